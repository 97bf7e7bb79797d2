package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	braintrust "github.com/braintrustdata/braintrust-sdk-go"
	"github.com/braintrustdata/braintrust-sdk-go/eval"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	dateLayout = "2006-01-02"

	auditSemaphore = "SEMAFORO"
	statusApproved = "aprobado"
	statusRejected = "rechazado"
	statusInReview = "en_revision"
)

var documentNumberPattern = regexp.MustCompile(`^\d{7,10}$`)

// evalInput describes one upload. Dates are offsets from the day the eval runs
// so expectations about expiry and issue age stay stable.
type evalInput struct {
	Name            string `json:"name"`
	FilePath        string `json:"file_path"`
	DocumentNumber  string `json:"numero_documento_usuario,omitempty"`
	IssueDaysAgo    *int   `json:"emision_hace_dias,omitempty"`
	ExpiryDaysAhead *int   `json:"vence_en_dias,omitempty"`
	Decision        string `json:"decision,omitempty"`
	Observation     string `json:"observacion,omitempty"`
}

type evalOutput struct {
	DocumentID     int64    `json:"id,omitempty"`
	Semaphore      string   `json:"estado,omitempty"`
	Reasons        []string `json:"semaforo_motivos,omitempty"`
	ReviewStatus   string   `json:"estado_revision,omitempty"`
	IssueDate      *string  `json:"fecha_emision,omitempty"`
	ExpiryDate     *string  `json:"fecha_vencimiento,omitempty"`
	DocumentNumber *string  `json:"numero_documento_usuario,omitempty"`
	ExtractedText  *string  `json:"texto_extraido,omitempty"`
	Confidence     float64  `json:"confianza_ocr,omitempty"`
	MinConfidence  float64  `json:"min_confidence,omitempty"`
}

type rawCase struct {
	Input    evalInput  `json:"input"`
	Expected evalOutput `json:"expected"`
}

type auditEntry struct {
	State string `json:"state"`
}

type config struct {
	APIURL         string
	CasesPath      string
	Project        string
	Experiment     string
	Reviewer       string
	PollInterval   time.Duration
	PollTimeout    time.Duration
	RequestTimeout time.Duration
	Parallelism    int
}

type evalRunner struct {
	cfg    config
	client *http.Client
}

func main() {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		fail(err)
	}

	if strings.TrimSpace(os.Getenv("BRAINTRUST_API_KEY")) == "" {
		fail(errors.New("BRAINTRUST_API_KEY is required"))
	}

	cases, err := loadCases(cfg.CasesPath)
	if err != nil {
		fail(err)
	}

	runner := &evalRunner{
		cfg:    cfg,
		client: &http.Client{},
	}

	if err := runner.healthCheck(ctx); err != nil {
		fail(err)
	}

	tp := sdktrace.NewTracerProvider()
	defer func() {
		_ = tp.Shutdown(context.Background())
	}()

	bt, err := braintrust.New(
		tp,
		braintrust.WithProject(cfg.Project),
		braintrust.WithBlockingLogin(true),
	)
	if err != nil {
		fail(fmt.Errorf("failed to initialize Braintrust: %w", err))
	}

	evaluator := braintrust.NewEvaluator[evalInput, evalOutput](bt)

	result, err := evaluator.Run(ctx, eval.Opts[evalInput, evalOutput]{
		Experiment: cfg.Experiment,
		Dataset:    eval.NewDataset(cases),
		Task:       eval.T(runner.runCase),
		Scorers: []eval.Scorer[evalInput, evalOutput]{
			eval.NewScorer("semaphore", scoreSemaphore),
			eval.NewScorer("semaphore_reasons", scoreReasons),
			eval.NewScorer("review_status", scoreReviewStatus),
			eval.NewScorer("field_accuracy", scoreFieldAccuracy),
			eval.NewScorer("date_rules", scoreDateRules),
			eval.NewScorer("document_number_format", scoreDocumentNumber),
			eval.NewScorer("confidence_threshold", scoreConfidenceThreshold),
		},
		Tags: []string{"gdoc", "semaforo", "extraction", "review-workflow"},
		Metadata: map[string]any{
			"service":          "gdoc",
			"api_url":          cfg.APIURL,
			"poll_timeout_sec": int(cfg.PollTimeout.Seconds()),
		},
		Parallelism: cfg.Parallelism,
	})
	if err != nil {
		fail(fmt.Errorf("eval run failed: %w", err))
	}

	if runErr := result.Error(); runErr != nil {
		fail(fmt.Errorf("eval completed with errors: %w", runErr))
	}

	if link, err := result.Permalink(); err == nil && link != "" {
		fmt.Println("Braintrust report:", link)
	}

	fmt.Println(result.String())
}

func loadConfig() (config, error) {
	cfg := config{
		APIURL:         getenv("EVAL_API_URL", "http://localhost:8080/api"),
		CasesPath:      getenv("EVAL_CASES_PATH", "cases.json"),
		Project:        getenv("BRAINTRUST_PROJECT", "gdoc"),
		Experiment:     getenv("EVAL_EXPERIMENT", "gdoc-semaforo-eval"),
		Reviewer:       getenv("EVAL_REVIEWER", "braintrust-go-eval"),
		PollInterval:   time.Duration(getenvInt("EVAL_POLL_INTERVAL_SEC", 2)) * time.Second,
		PollTimeout:    time.Duration(getenvInt("EVAL_POLL_TIMEOUT_SEC", 180)) * time.Second,
		RequestTimeout: time.Duration(getenvInt("EVAL_REQUEST_TIMEOUT_SEC", 20)) * time.Second,
		Parallelism:    getenvInt("EVAL_PARALLELISM", 1),
	}

	if cfg.PollInterval <= 0 {
		return config{}, errors.New("EVAL_POLL_INTERVAL_SEC must be > 0")
	}
	if cfg.PollTimeout <= 0 {
		return config{}, errors.New("EVAL_POLL_TIMEOUT_SEC must be > 0")
	}
	if cfg.RequestTimeout <= 0 {
		return config{}, errors.New("EVAL_REQUEST_TIMEOUT_SEC must be > 0")
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}

	return cfg, nil
}

func loadCases(path string) ([]eval.Case[evalInput, evalOutput], error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to read cases file %s: %w", resolved, err)
	}

	var raw []rawCase
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse cases file %s: %w", resolved, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("cases file is empty: %s", resolved)
	}

	cases := make([]eval.Case[evalInput, evalOutput], 0, len(raw))
	for _, row := range raw {
		cases = append(cases, eval.Case[evalInput, evalOutput]{
			Input:    row.Input,
			Expected: row.Expected,
			Metadata: map[string]any{"name": row.Input.Name, "file_path": row.Input.FilePath, "decision": row.Input.Decision},
		})
	}
	return cases, nil
}

// runCase uploads the file, waits for the review workflow to re-evaluate the
// semaphore with the extracted text and then applies the case's decision.
func (r *evalRunner) runCase(ctx context.Context, input evalInput) (evalOutput, error) {
	filePath, err := resolvePath(input.FilePath)
	if err != nil {
		return evalOutput{}, err
	}

	doc, err := r.uploadDocument(ctx, filePath, input, time.Now())
	if err != nil {
		return evalOutput{}, err
	}

	if err := r.waitForEvaluation(ctx, doc.DocumentID); err != nil {
		return evalOutput{}, err
	}

	if input.Decision == "" {
		return r.getDocument(ctx, doc.DocumentID)
	}

	want := statusApproved
	if input.Decision == "reject" || input.Decision == "rechazar" {
		want = statusRejected
	}
	if err := r.sendReview(ctx, doc.DocumentID, input); err != nil {
		return evalOutput{}, err
	}

	deadline := time.Now().Add(r.cfg.PollTimeout)
	for {
		current, err := r.getDocument(ctx, doc.DocumentID)
		if err != nil {
			return evalOutput{}, err
		}
		if current.ReviewStatus == want {
			return current, nil
		}
		if time.Now().After(deadline) {
			return current, fmt.Errorf("timed out waiting for document %d to become %s (last=%s)", doc.DocumentID, want, current.ReviewStatus)
		}
		if err := sleep(ctx, r.cfg.PollInterval); err != nil {
			return evalOutput{}, err
		}
	}
}

// waitForEvaluation polls the audit history until a second SEMAFORO entry
// shows the worker has re-evaluated the upload.
func (r *evalRunner) waitForEvaluation(ctx context.Context, documentID int64) error {
	deadline := time.Now().Add(r.cfg.PollTimeout)
	for {
		var history []auditEntry
		if err := r.doJSON(ctx, http.MethodGet, fmt.Sprintf("/documentos/%d/historial/", documentID), nil, &history); err != nil {
			return err
		}
		evaluations := 0
		for _, e := range history {
			if e.State == auditSemaphore {
				evaluations++
			}
		}
		if evaluations >= 2 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for the review workflow to evaluate document %d", documentID)
		}
		if err := sleep(ctx, r.cfg.PollInterval); err != nil {
			return err
		}
	}
}

func (r *evalRunner) healthCheck(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := r.doJSON(ctx, http.MethodGet, "/health/", nil, &resp); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if strings.ToLower(resp.Status) != "ok" {
		return fmt.Errorf("health check returned non-ok status: %s", resp.Status)
	}
	return nil
}

func (r *evalRunner) uploadDocument(ctx context.Context, filePath string, input evalInput, now time.Time) (evalOutput, error) {
	fileBytes, err := os.ReadFile(filePath)
	if err != nil {
		return evalOutput{}, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	fields := map[string]string{"nombre": input.Name, "numero_documento_usuario": input.DocumentNumber}
	if input.IssueDaysAgo != nil {
		fields["fecha_emision"] = now.AddDate(0, 0, -*input.IssueDaysAgo).Format(dateLayout)
	}
	if input.ExpiryDaysAhead != nil {
		fields["fecha_vencimiento"] = now.AddDate(0, 0, *input.ExpiryDaysAhead).Format(dateLayout)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("archivo", filepath.Base(filePath))
	if err != nil {
		return evalOutput{}, fmt.Errorf("failed to create multipart form: %w", err)
	}
	if _, err := part.Write(fileBytes); err != nil {
		return evalOutput{}, fmt.Errorf("failed to write multipart file: %w", err)
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := writer.WriteField(k, v); err != nil {
			return evalOutput{}, fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return evalOutput{}, fmt.Errorf("failed to finalize multipart form: %w", err)
	}

	var out evalOutput
	if err := r.do(ctx, http.MethodPost, "/documentos/", &body, writer.FormDataContentType(), &out); err != nil {
		return evalOutput{}, fmt.Errorf("upload failed: %w", err)
	}
	if out.DocumentID == 0 {
		return evalOutput{}, errors.New("upload response missing id")
	}
	if out.ReviewStatus != statusInReview {
		return evalOutput{}, fmt.Errorf("upload left document %d in %q", out.DocumentID, out.ReviewStatus)
	}
	return out, nil
}

func (r *evalRunner) getDocument(ctx context.Context, documentID int64) (evalOutput, error) {
	var out evalOutput
	if err := r.doJSON(ctx, http.MethodGet, fmt.Sprintf("/documentos/%d/", documentID), nil, &out); err != nil {
		return evalOutput{}, err
	}
	return out, nil
}

func (r *evalRunner) sendReview(ctx context.Context, documentID int64, input evalInput) error {
	payload := map[string]any{
		"decision":    input.Decision,
		"observacion": input.Observation,
		"revisor":     r.cfg.Reviewer,
	}
	return r.doJSON(ctx, http.MethodPost, fmt.Sprintf("/documentos/%d/revision/", documentID), payload, nil)
}

func (r *evalRunner) doJSON(ctx context.Context, method, path string, in any, out any) error {
	if in == nil {
		return r.do(ctx, method, path, nil, "", out)
	}
	buf, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return r.do(ctx, method, path, bytes.NewReader(buf), "application/json", out)
}

func (r *evalRunner) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	reqCtx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, strings.TrimRight(r.cfg.APIURL, "/")+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("request failed: method=%s path=%s status=%d body=%s", method, path, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	if out != nil && len(bytes.TrimSpace(payload)) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("decode failed: %w (payload=%s)", err, string(payload))
		}
	}
	return nil
}

func scoreSemaphore(_ context.Context, tr eval.TaskResult[evalInput, evalOutput]) (eval.Scores, error) {
	return boolScore(tr.Expected.Semaphore != "" && normalize(tr.Output.Semaphore) == normalize(tr.Expected.Semaphore)), nil
}

// scoreReasons checks that every expected rule id was reported. An empty
// expectation means the semaphore must carry no reasons.
func scoreReasons(_ context.Context, tr eval.TaskResult[evalInput, evalOutput]) (eval.Scores, error) {
	if len(tr.Expected.Reasons) == 0 {
		return boolScore(len(tr.Output.Reasons) == 0), nil
	}
	got := toSet(tr.Output.Reasons)
	for _, want := range tr.Expected.Reasons {
		if _, ok := got[want]; !ok {
			return eval.S(0), nil
		}
	}
	return eval.S(1), nil
}

func scoreReviewStatus(_ context.Context, tr eval.TaskResult[evalInput, evalOutput]) (eval.Scores, error) {
	expected := normalize(tr.Expected.ReviewStatus)
	if expected == "" {
		expected = statusInReview
	}
	return boolScore(normalize(tr.Output.ReviewStatus) == expected), nil
}

func scoreFieldAccuracy(_ context.Context, tr eval.TaskResult[evalInput, evalOutput]) (eval.Scores, error) {
	pairs := []struct{ want, got *string }{
		{tr.Expected.IssueDate, tr.Output.IssueDate},
		{tr.Expected.ExpiryDate, tr.Output.ExpiryDate},
		{tr.Expected.DocumentNumber, tr.Output.DocumentNumber},
	}
	matched, total := 0, 0
	for _, p := range pairs {
		if p.want == nil {
			continue
		}
		total++
		if p.got != nil && normalize(*p.got) == normalize(*p.want) {
			matched++
		}
	}
	if total == 0 {
		return eval.S(1), nil
	}
	return eval.S(float64(matched) / float64(total)), nil
}

func scoreDateRules(_ context.Context, tr eval.TaskResult[evalInput, evalOutput]) (eval.Scores, error) {
	issue, ok := parseDate(tr.Output.IssueDate)
	if !ok {
		return eval.S(0), nil
	}
	expiry, ok := parseDate(tr.Output.ExpiryDate)
	if !ok {
		return eval.S(0), nil
	}
	if issue != nil && expiry != nil && issue.After(*expiry) {
		return eval.S(0), nil
	}
	return eval.S(1), nil
}

func scoreDocumentNumber(_ context.Context, tr eval.TaskResult[evalInput, evalOutput]) (eval.Scores, error) {
	if tr.Output.DocumentNumber == nil {
		return boolScore(tr.Input.DocumentNumber == ""), nil
	}
	return boolScore(documentNumberPattern.MatchString(strings.TrimSpace(*tr.Output.DocumentNumber))), nil
}

func scoreConfidenceThreshold(_ context.Context, tr eval.TaskResult[evalInput, evalOutput]) (eval.Scores, error) {
	threshold := tr.Expected.MinConfidence
	if threshold <= 0 {
		threshold = 75
	}
	return boolScore(tr.Output.Confidence >= threshold), nil
}

// parseDate reports ok=false only for a present value that is not a date.
func parseDate(v *string) (*time.Time, bool) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil, true
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(*v))
	if err != nil {
		return nil, false
	}
	return &t, true
}

func boolScore(ok bool) eval.Scores {
	if ok {
		return eval.S(1)
	}
	return eval.S(0)
}

func toSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, item := range items {
		out[item] = struct{}{}
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func resolvePath(path string) (string, error) {
	if path == "" {
		return "", errors.New("path is empty")
	}
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		return "", fmt.Errorf("path not found: %s", path)
	}

	candidates := []string{
		path,
		filepath.Join("..", "..", path),
	}

	for _, c := range candidates {
		absPath, err := filepath.Abs(c)
		if err != nil {
			continue
		}
		if _, err := os.Stat(absPath); err == nil {
			return absPath, nil
		}
	}

	return "", fmt.Errorf("path not found: %s", path)
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return out
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
