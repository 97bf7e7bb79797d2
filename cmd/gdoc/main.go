// Command gdoc drives the G-Doc API from a terminal: list, upload, delete and
// review documents, and show an applicant's requirement board.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"gdoc/internal/client"
	"gdoc/internal/domain"
	"gdoc/internal/portal"
)

const usage = `usage: gdoc [-api URL] <command> [flags]

commands:
  health
  documentos  [-search TEXT] [-postulante ID] [-convocatoria ID]
  subir       -file PATH [-emision YYYY-MM-DD] [-vencimiento YYYY-MM-DD] [-numero N]
  eliminar    -id N [-yes]
  revisar     -id N -decision aprobar|rechazar [-observacion TEXT] [-revisor NAME]
  requisitos  -convocatoria ID -postulante ID
  dashboard
`

type stdinConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func (c stdinConfirmer) Confirm(prompt string) bool {
	fmt.Fprintf(c.out, "%s [s/N] ", prompt)
	line, _ := c.in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "s", "si", "sí", "y", "yes":
		return true
	}
	return false
}

type alwaysConfirm struct{}

func (alwaysConfirm) Confirm(string) bool { return true }

type stderrNotifier struct{}

func (stderrNotifier) Notify(r portal.Result) {
	if r.OK {
		fmt.Fprintln(os.Stderr, r.Message)
		return
	}
	fmt.Fprintf(os.Stderr, "error (%s): %s\n", r.Reason, r.Message)
	if len(r.Fields) > 0 {
		fmt.Fprintf(os.Stderr, "  campos: %s\n", strings.Join(r.Fields, ", "))
	}
}

func main() {
	log.SetFlags(0)
	apiURL := flag.String("api", "", "API base URL (default $"+client.BaseURLEnv+" or "+client.DefaultBaseURL+")")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := client.New(*apiURL)
	if err := run(ctx, c, flag.Arg(0), flag.Args()[1:]); err != nil {
		log.Fatalf("gdoc %s: %v", flag.Arg(0), err)
	}
}

func run(ctx context.Context, c *client.Client, cmd string, args []string) error {
	switch cmd {
	case "health":
		h, err := c.Health(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s (v%s)\n", h.Status, h.Message, h.Version)
		return nil
	case "documentos":
		return listDocuments(ctx, c, args)
	case "subir":
		return upload(ctx, c, args)
	case "eliminar":
		return remove(ctx, c, args)
	case "revisar":
		return review(ctx, c, args)
	case "requisitos":
		return requirements(ctx, c, args)
	case "dashboard":
		return dashboard(ctx, c)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func listDocuments(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("documentos", flag.ExitOnError)
	search := fs.String("search", "", "name or applicant")
	postulante := fs.String("postulante", "", "applicant id")
	convocatoria := fs.String("convocatoria", "", "call id")
	_ = fs.Parse(args)

	list := portal.NewDocumentList(c, nil, stderrNotifier{}, nil)
	list.SetFilter(client.ListOptions{Search: *search, PostulanteID: *postulante, ConvocatoriaID: *convocatoria})
	if err := list.Load(ctx); err != nil {
		return err
	}
	printDocuments(os.Stdout, list.Title(), list.Items())
	return nil
}

func printDocuments(out io.Writer, title string, docs []domain.Document) {
	fmt.Fprintln(out, title)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNOMBRE\tPOSTULANTE\tSEMÁFORO\tREVISIÓN\tCARGADO")
	for _, d := range docs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", d.ID, d.Name, d.ApplicantName, d.Semaphore, d.ReviewStatus, humanize.Time(d.UploadedAt))
	}
	_ = tw.Flush()
}

func upload(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("subir", flag.ExitOnError)
	path := fs.String("file", "", "file to upload")
	issue := fs.String("emision", "", "issue date")
	expiry := fs.String("vencimiento", "", "expiry date")
	number := fs.String("numero", "", "document number given by the applicant")
	_ = fs.Parse(args)

	form := portal.NewUploadForm(c, stderrNotifier{}, func(doc domain.Document) {
		fmt.Printf("documento %d: semáforo %s, %s\n", doc.ID, doc.Semaphore, doc.FileURL)
	})
	if *path != "" {
		content, err := os.ReadFile(*path)
		if err != nil {
			return err
		}
		log.Printf("subiendo %s (%s)", filepath.Base(*path), humanize.Bytes(uint64(len(content))))
		form.SetFile(filepath.Base(*path), content)
	}
	form.SetMetadata(*issue, *expiry, *number)
	if res := form.Submit(ctx); !res.OK {
		return fmt.Errorf("%s", res.Message)
	}
	return nil
}

func remove(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("eliminar", flag.ExitOnError)
	id := fs.Int64("id", 0, "document id")
	yes := fs.Bool("yes", false, "skip confirmation")
	_ = fs.Parse(args)

	var confirm portal.Confirmer = stdinConfirmer{in: bufio.NewReader(os.Stdin), out: os.Stdout}
	if *yes {
		confirm = alwaysConfirm{}
	}
	list := portal.NewDocumentList(c, confirm, stderrNotifier{}, nil)
	res := list.Delete(ctx, *id)
	if !res.OK && res.Reason != "" {
		return fmt.Errorf("%s", res.Message)
	}
	if res.OK {
		fmt.Println(list.Title())
	}
	return nil
}

func review(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("revisar", flag.ExitOnError)
	id := fs.Int64("id", 0, "document id")
	decision := fs.String("decision", "", "aprobar or rechazar")
	observation := fs.String("observacion", "", "required when rejecting")
	reviewer := fs.String("revisor", os.Getenv("USER"), "reviewer name")
	_ = fs.Parse(args)

	parsed, ok := domain.ParseReviewDecision(*decision)
	if !ok {
		return fmt.Errorf("decision must be aprobar or rechazar")
	}
	res, err := c.ReviewDocumento(ctx, *id, domain.ReviewDecision{Decision: parsed, Observation: *observation, Reviewer: *reviewer})
	if err != nil {
		return err
	}
	if res.Queued {
		fmt.Printf("documento %d: decisión enviada al flujo de revisión\n", *id)
		return nil
	}
	fmt.Printf("documento %d: %s\n", res.Document.ID, res.Document.ReviewStatus)
	return nil
}

func requirements(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("requisitos", flag.ExitOnError)
	conv := fs.String("convocatoria", "", "call id")
	post := fs.String("postulante", "", "applicant id")
	_ = fs.Parse(args)

	board := portal.NewRequirementBoard(c, stderrNotifier{}, *conv, *post)
	if err := board.Load(ctx); err != nil {
		return err
	}
	approved, total := board.Progress()
	fmt.Printf("Progreso: %d/%d aprobados\n", approved, total)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REQUISITO\tOBLIGATORIO\tESTADO\tACCIÓN\tOBSERVACIÓN")
	for _, r := range board.Rows() {
		action := r.Upload.Label
		if !r.Upload.Enabled {
			action += " (deshabilitado)"
		}
		fmt.Fprintf(tw, "%s\t%t\t%s\t%s\t%s\n", r.Requirement.Name, r.Requirement.Mandatory, r.Status, action, r.Observation)
	}
	return tw.Flush()
}

func dashboard(ctx context.Context, c *client.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	s, err := c.Dashboard(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Convocatorias: %d (%d activas)\n", s.TotalConvocatorias, s.ActiveConvocatorias)
	fmt.Printf("Postulantes:   %s\n", humanize.Comma(int64(s.TotalApplicants)))
	fmt.Printf("Documentos:    %s (pendientes %d, aprobados %d, rechazados %d)\n",
		humanize.Comma(int64(s.TotalDocuments)), s.PendingReview, s.Approved, s.Rejected)
	fmt.Printf("Semáforo:      verde %d, amarillo %d, rojo %d\n", s.SemaphoreGreen, s.SemaphoreYellow, s.SemaphoreRed)
	return nil
}
