package portal

import (
	"context"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"gdoc/internal/api"
	"gdoc/internal/client"
	"gdoc/internal/config"
	"gdoc/internal/domain"
	"gdoc/internal/service"
	"gdoc/internal/storage"
)

var _ = Describe("RequirementBoard", func() {
	var (
		srv      *httptest.Server
		notifier *recordingNotifier
		board    *RequirementBoard
	)

	BeforeEach(func() {
		store := storage.NewMemoryStore()
		Expect(storage.Seed(context.Background(), store)).To(Succeed())
		now := func() time.Time { return time.Date(2025, 2, 20, 9, 0, 0, 0, time.UTC) }
		docs := service.NewDocumentService(store, storage.NewMemoryBlobStore(), "http://gdoc.test/api").WithClock(now)
		cfg := config.Config{APIPrefix: "/api", PublicBaseURL: "http://gdoc.test", PageSize: 20, AllowedUploadBytes: 1 << 20}
		h := api.NewHandler(cfg, api.Services{
			Documents: docs,
			Portal:    service.NewPortalService(store, store, docs),
			Store:     store,
		})
		srv = httptest.NewServer(api.NewRouter(h, cfg.APIPrefix))
		DeferCleanup(srv.Close)

		notifier = &recordingNotifier{}
		board = NewRequirementBoard(client.New(srv.URL+"/api"), notifier, "1", "p1")
		Expect(board.Load(context.Background())).To(Succeed())
	})

	It("disables the upload action of approved documents without hiding it", func() {
		rows := board.Rows()
		Expect(rows).To(HaveLen(6))

		Expect(rows[0].Status).To(Equal(domain.LegacyApproved))
		Expect(rows[0].Upload).To(Equal(Action{Label: "Aprobado", Enabled: false}))

		Expect(rows[2].Status).To(Equal(domain.LegacyPending))
		Expect(rows[2].Upload).To(Equal(Action{Label: "Subir archivo", Enabled: true}))

		Expect(rows[4].Status).To(Equal(domain.LegacyUploaded))
		Expect(rows[4].Upload).To(Equal(Action{Label: "Reemplazar archivo", Enabled: true}))

		approved, total := board.Progress()
		Expect(approved).To(Equal(2))
		Expect(total).To(Equal(6))
	})

	It("never sends an upload for an approved requirement", func() {
		res := board.Upload(context.Background(), "r1", client.Upload{Filename: "hv.pdf", Content: []byte("%PDF-1.4")})

		Expect(res.OK).To(BeFalse())
		Expect(res.Reason).To(Equal(client.ReasonValidation))
		Expect(board.Rows()[0].Document.Filename).To(Equal("hoja_vida_garcia.pdf"))
	})

	It("marks a pending requirement as uploaded", func() {
		res := board.Upload(context.Background(), "r3", client.Upload{Filename: "diploma.pdf", Content: []byte("%PDF-1.4")})

		Expect(res.OK).To(BeTrue())
		row := board.Rows()[2]
		Expect(row.Status).To(Equal(domain.LegacyUploaded))
		Expect(row.Document).ToNot(BeNil())
		Expect(row.Upload.Label).To(Equal("Reemplazar archivo"))
	})

	It("reports a missing file without reaching the API", func() {
		res := board.Upload(context.Background(), "r3", client.Upload{})

		Expect(res.Reason).To(Equal(client.ReasonValidation))
		Expect(board.Rows()[2].Status).To(Equal(domain.LegacyPending))
		Expect(notifier.last()).To(Equal(res))
	})

	It("shows the reviewer's observation on rejected documents", func() {
		b := NewRequirementBoard(client.New(srv.URL+"/api"), notifier, "1", "p2")
		Expect(b.Load(context.Background())).To(Succeed())

		rejected := b.Rows()[2]
		Expect(rejected.Status).To(Equal(domain.LegacyRejected))
		Expect(rejected.Observation).ToNot(BeEmpty())
		Expect(rejected.Upload.Enabled).To(BeTrue())
	})
})
