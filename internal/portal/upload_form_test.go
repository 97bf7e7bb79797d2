package portal

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"gdoc/internal/client"
	"gdoc/internal/domain"
)

var _ = Describe("UploadForm", func() {
	var (
		api       *stubUploader
		notifier  *recordingNotifier
		timer     *manualTimer
		refreshed []domain.Document
		form      *UploadForm
	)

	BeforeEach(func() {
		api = &stubUploader{}
		notifier = &recordingNotifier{}
		timer = &manualTimer{}
		refreshed = nil
		form = NewUploadForm(api, notifier, func(doc domain.Document) { refreshed = append(refreshed, doc) })
		form.after = timer.after
	})

	It("refuses to submit without a file and sends nothing", func() {
		form.SetMetadata("2025-02-01", "", "")

		res := form.Submit(context.Background())

		Expect(res.OK).To(BeFalse())
		Expect(res.Reason).To(Equal(client.ReasonValidation))
		Expect(res.Message).To(Equal("Debes seleccionar un archivo"))
		Expect(api.count()).To(BeZero())
		Expect(form.Error()).ToNot(BeNil())
	})

	It("sends only the file when no metadata was entered and asks the list to refresh", func() {
		form.SetFile("doc.pdf", []byte("%PDF-1.4"))

		res := form.Submit(context.Background())

		Expect(res.OK).To(BeTrue())
		Expect(api.uploads).To(HaveLen(1))
		Expect(api.uploads[0]).To(Equal(client.Upload{Filename: "doc.pdf", Content: []byte("%PDF-1.4")}))
		Expect(refreshed).To(HaveLen(1))
		Expect(refreshed[0].ID).To(Equal(int64(21)))
	})

	It("clears the fields on success and hides the success flag after three seconds", func() {
		form.SetFile("cedula.txt", []byte("CC 1234567890"))
		form.SetMetadata("2025-02-01", "2030-02-01", " 1234567890 ")

		Expect(form.Submit(context.Background()).OK).To(BeTrue())
		Expect(api.uploads[0].UserDocumentNumber).To(Equal("1234567890"))

		Expect(form.Filename()).To(BeEmpty())
		issue, expiry, number := form.Metadata()
		Expect([]string{issue, expiry, number}).To(Equal([]string{"", "", ""}))
		Expect(form.Success()).To(BeTrue())
		Expect(form.Error()).To(BeNil())
		Expect(timer.delay).To(Equal(SuccessDisplay))
		Expect(notifier.last().Message).To(Equal("Documento subido correctamente"))

		timer.fire()
		Expect(form.Success()).To(BeFalse())
	})

	It("ignores a success timer left over from an earlier upload", func() {
		form.SetFile("a.pdf", []byte("%PDF-1.4"))
		Expect(form.Submit(context.Background()).OK).To(BeTrue())
		stale := timer.pending()

		form.SetFile("b.pdf", []byte("%PDF-1.4"))
		Expect(form.Submit(context.Background()).OK).To(BeTrue())

		stale()
		Expect(form.Success()).To(BeTrue())

		timer.fire()
		Expect(form.Success()).To(BeFalse())
	})

	It("keeps every field when the upload fails", func() {
		api.err = &client.Error{Reason: client.ReasonStatus, Status: 400, Message: "invalid fields: fecha_emision", Fields: []string{"fecha_emision"}}
		form.SetFile("cedula.txt", []byte("CC 1234567890"))
		form.SetMetadata("01/02/2025", "", "1234567890")

		res := form.Submit(context.Background())

		Expect(res.OK).To(BeFalse())
		Expect(res.Reason).To(Equal(client.ReasonStatus))
		Expect(res.Message).To(Equal("invalid fields: fecha_emision"))
		Expect(res.Fields).To(Equal([]string{"fecha_emision"}))
		Expect(form.Filename()).To(Equal("cedula.txt"))
		issue, _, number := form.Metadata()
		Expect(issue).To(Equal("01/02/2025"))
		Expect(number).To(Equal("1234567890"))
		Expect(form.Success()).To(BeFalse())
		Expect(refreshed).To(BeEmpty())
		Expect(notifier.last()).To(Equal(res))
	})

	It("refuses a second submit while the first is outstanding", func() {
		api.started = make(chan struct{}, 1)
		api.release = make(chan struct{})
		form.SetFile("doc.pdf", []byte("%PDF-1.4"))

		done := make(chan Result, 1)
		go func() { done <- form.Submit(context.Background()) }()
		Eventually(api.started).Should(Receive())
		Expect(form.Submitting()).To(BeTrue())

		second := form.Submit(context.Background())
		Expect(second.Reason).To(Equal(ReasonBusy))
		Expect(api.count()).To(Equal(1))

		close(api.release)
		Eventually(done).Should(Receive(WithTransform(func(r Result) bool { return r.OK }, BeTrue())))
		Expect(form.Submitting()).To(BeFalse())
	})
})
