package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"google.golang.org/api/option"
)

var _ = Describe("VisionProvider", func() {
	var (
		server    *ghttp.Server
		provider  *VisionProvider
		detection Detection
		err       error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		var newErr error
		provider, newErr = NewVisionProvider(context.Background(), nil,
			option.WithEndpoint(server.URL()+"/"),
			option.WithoutAuthentication(),
		)
		Expect(newErr).NotTo(HaveOccurred())
		detection, err = provider.DetectText(context.Background(), []byte("png"))
	})

	When("vision finds text", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				func(w http.ResponseWriter, r *http.Request) {
					Expect(r.Method).To(Equal(http.MethodPost))
					Expect(r.URL.Path).To(HaveSuffix("images:annotate"))
					body, readErr := io.ReadAll(r.Body)
					Expect(readErr).NotTo(HaveOccurred())
					var req struct {
						Requests []struct {
							Image    struct{ Content string }
							Features []struct{ Type string }
						}
					}
					Expect(json.Unmarshal(body, &req)).To(Succeed())
					Expect(req.Requests).To(HaveLen(1))
					Expect(req.Requests[0].Image.Content).To(Equal(base64.StdEncoding.EncodeToString([]byte("png"))))
					Expect(req.Requests[0].Features[0].Type).To(Equal("TEXT_DETECTION"))
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
					"responses": []any{map[string]any{
						"textAnnotations": []any{
							map[string]any{"description": "COSTCO\nTOTAL $1.00", "locale": "en", "confidence": 0.9},
							map[string]any{"description": "COSTCO"},
						},
					}},
				}),
			))
		})

		It("should return the full-text annotation", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(detection.FullText).To(Equal("COSTCO\nTOTAL $1.00"))
			Expect(detection.Confidence).To(BeNumerically("~", 0.9, 1e-6))
		})
	})

	When("vision finds nothing", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
				"responses": []any{map[string]any{}},
			}))
		})

		It("should report no annotations", func() {
			Expect(err).To(MatchError(ErrNoAnnotations))
		})
	})

	When("the image response carries an error", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
				"responses": []any{map[string]any{
					"error": map[string]any{"code": 3, "message": "Bad image data."},
				}},
			}))
		})

		It("should surface the message", func() {
			Expect(err).To(MatchError(ContainSubstring("Bad image data.")))
		})
	})

	When("the API call fails", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusBadRequest, `{"error":{"code":400,"message":"invalid request"}}`))
		})

		It("should return an error", func() {
			Expect(err).To(HaveOccurred())
			Expect(detection).To(Equal(Detection{}))
		})
	})
})

var _ = Describe("OpenAIProvider", func() {
	var (
		server    *ghttp.Server
		detection Detection
		err       error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		provider, newErr := NewOpenAIProvider("sk-test", "gpt-4o-mini", server.URL()+"/v1", nil)
		Expect(newErr).NotTo(HaveOccurred())
		detection, err = provider.DetectText(context.Background(), []byte("png"))
	})

	When("the model transcribes the receipt", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/v1/chat/completions"),
				ghttp.VerifyHeaderKV("Authorization", "Bearer sk-test"),
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
					"id":     "chatcmpl-1",
					"object": "chat.completion",
					"model":  "gpt-4o-mini",
					"choices": []any{map[string]any{
						"index":         0,
						"message":       map[string]any{"role": "assistant", "content": "  SHELL\nTOTAL $40.00\n"},
						"finish_reason": "stop",
					}},
				}),
			))
		})

		It("should return the trimmed transcription without confidence", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(detection).To(Equal(Detection{FullText: "SHELL\nTOTAL $40.00"}))
		})
	})

	When("the model returns an empty message", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
				"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": ""}}},
			}))
		})

		It("should report no annotations", func() {
			Expect(err).To(MatchError(ErrNoAnnotations))
		})
	})
})

var _ = Describe("NewOpenAIProvider", func() {
	It("should require an API key", func() {
		_, err := NewOpenAIProvider("", "", "", nil)
		Expect(err).To(MatchError(ContainSubstring("API key is required")))
	})
})

var _ = Describe("GeminiProvider", func() {
	var server *ghttp.Server

	BeforeEach(func() {
		server = ghttp.NewServer()
		server.AppendHandlers(ghttp.CombineHandlers(
			func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(HaveSuffix("gemini-2.5-flash:generateContent"))
			},
			ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
				"candidates": []any{map[string]any{
					"content": map[string]any{
						"role":  "model",
						"parts": []any{map[string]any{"text": "HOME DEPOT\nTOTAL $12.00\n"}},
					},
				}},
			}),
		))
	})

	AfterEach(func() {
		server.Close()
	})

	It("should return the model's transcription", func() {
		provider, err := NewGeminiProvider(context.Background(), "key", "gemini-2.5-flash", server.URL(), nil)
		Expect(err).NotTo(HaveOccurred())
		detection, err := provider.DetectText(context.Background(), []byte("png"))
		Expect(err).NotTo(HaveOccurred())
		Expect(detection.FullText).To(Equal("HOME DEPOT\nTOTAL $12.00"))
		Expect(detection.Confidence).To(BeZero())
	})
})
