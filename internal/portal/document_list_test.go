package portal

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"gdoc/internal/client"
	"gdoc/internal/domain"
)

var _ = Describe("DocumentList", func() {
	var (
		api       *stubDocumentAPI
		notifier  *recordingNotifier
		refreshes int
	)

	newList := func(confirm Confirmer) *DocumentList {
		return NewDocumentList(api, confirm, notifier, func() { refreshes++ })
	}

	BeforeEach(func() {
		api = &stubDocumentAPI{docs: []domain.Document{{ID: 1}, {ID: 2}}}
		notifier = &recordingNotifier{}
		refreshes = 0
	})

	It("titles the list with the number of loaded documents", func() {
		list := newList(answer(true))
		Expect(list.Title()).To(Equal("Lista de Documentos (0)"))

		Expect(list.Load(context.Background())).To(Succeed())
		Expect(list.Title()).To(Equal("Lista de Documentos (2)"))
		Expect(list.Items()).To(HaveLen(2))
	})

	It("keeps the previous items when a reload fails", func() {
		list := newList(answer(true))
		Expect(list.Load(context.Background())).To(Succeed())

		api.listErr = &client.Error{Reason: client.ReasonTransport, Message: "connection refused"}
		Expect(list.Load(context.Background())).ToNot(Succeed())
		Expect(list.Items()).To(HaveLen(2))
		Expect(list.LoadError()).ToNot(BeNil())
		Expect(list.LoadError().Reason).To(Equal(client.ReasonTransport))
	})

	It("sends nothing when the user declines the confirmation", func() {
		list := newList(answer(false))
		Expect(list.Load(context.Background())).To(Succeed())

		res := list.Delete(context.Background(), 1)

		Expect(res.OK).To(BeFalse())
		Expect(api.deletes).To(BeEmpty())
		Expect(list.Items()).To(HaveLen(2))
		Expect(refreshes).To(BeZero())
	})

	It("reloads and notifies the parent after a confirmed delete", func() {
		list := newList(answer(true))
		Expect(list.Load(context.Background())).To(Succeed())

		res := list.Delete(context.Background(), 1)

		Expect(res.OK).To(BeTrue())
		Expect(api.deletes).To(Equal([]int64{1}))
		Expect(api.lists).To(Equal(2))
		Expect(list.Title()).To(Equal("Lista de Documentos (1)"))
		Expect(refreshes).To(Equal(1))
	})

	It("reports a failed delete and leaves the list untouched", func() {
		api.deleteErr = &client.Error{Reason: client.ReasonStatus, Status: 404, Message: "not found"}
		list := newList(answer(true))
		Expect(list.Load(context.Background())).To(Succeed())

		res := list.Delete(context.Background(), 9)

		Expect(res.OK).To(BeFalse())
		Expect(res.Message).To(Equal("Error al eliminar: not found"))
		Expect(notifier.last()).To(Equal(res))
		Expect(list.Items()).To(HaveLen(2))
		Expect(api.lists).To(Equal(1))
		Expect(refreshes).To(BeZero())
	})

	It("describes errors that did not come from the client", func() {
		res := failure("Error al eliminar", errors.New("boom"))
		Expect(res.Message).To(Equal("Error al eliminar: boom"))
		Expect(res.Reason).To(BeEmpty())
	})
})
