package recognition

import (
	"context"
	"encoding/json"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Ollama", func() {
	var (
		ghttpServer *ghttp.Server
		recognizer  *Ollama
		received    ollamaChatRequest
		text        string
		err         error
	)

	BeforeEach(func() {
		ghttpServer = ghttp.NewServer()
		recognizer, err = NewOllama(ghttpServer.URL()+"/", "llava:1.6")
		Expect(err).NotTo(HaveOccurred())
		received = ollamaChatRequest{}
	})

	AfterEach(func() {
		ghttpServer.Close()
	})

	capture := func(w http.ResponseWriter, r *http.Request) {
		defer GinkgoRecover()
		Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
	}

	When("the model replies", func() {
		BeforeEach(func() {
			ghttpServer.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
				ghttp.VerifyContentType("application/json"),
				capture,
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{Role: "assistant", Content: "```text\nrice 5 50.00\nTOTAL: 50.00\n```"},
					Done:    true,
				}),
			))
		})

		JustBeforeEach(func() {
			text, err = recognizer.Recognize(context.Background(), newPage())
		})

		It("should return the transcription without fences", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("rice 5 50.00\nTOTAL: 50.00"))
		})

		It("should send the model and the image on the user message", func() {
			Expect(received.Model).To(Equal("llava:1.6"))
			Expect(received.Stream).To(BeFalse())
			Expect(received.Messages).To(HaveLen(2))
			Expect(received.Messages[1].Role).To(Equal("user"))
			Expect(received.Messages[1].Images).To(HaveLen(1))
			Expect(received.Messages[1].Images[0]).NotTo(BeEmpty())
		})
	})

	When("the API returns an error status", func() {
		BeforeEach(func() {
			ghttpServer.AppendHandlers(ghttp.RespondWith(http.StatusNotFound, `{"error":"model not found"}`))
		})

		It("should return an error with the status", func() {
			_, err = recognizer.Recognize(context.Background(), newPage())
			Expect(err).To(MatchError(ContainSubstring("status 404")))
		})
	})
})
