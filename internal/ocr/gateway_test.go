package ocr

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/receiptbox/internal/common"
)

func TestOCR(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "OCR Suite")
}

type mockProvider struct {
	detection Detection
	err       error
	delay     time.Duration
	lateErr   error // returned instead of ctx.Err() when the wait is cut short
	calls     int
	lastImage []byte
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) DetectText(ctx context.Context, image []byte) (Detection, error) {
	m.calls++
	m.lastImage = image
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			if m.lateErr != nil {
				return Detection{}, m.lateErr
			}
			return Detection{}, ctx.Err()
		}
	}
	return m.detection, m.err
}

var _ = Describe("Gateway", func() {
	var (
		provider *mockProvider
		gateway  *Gateway
		opts     []GatewayOption
		ctx      context.Context
		result   Result
		err      error
	)

	BeforeEach(func() {
		provider = &mockProvider{}
		opts = nil
		ctx = context.Background()
	})

	JustBeforeEach(func() {
		gateway = NewGateway(provider, nil, opts...)
		result, err = gateway.ExtractText(ctx, []byte("png-bytes"))
	})

	When("the provider returns text", func() {
		BeforeEach(func() {
			provider.detection = Detection{FullText: "COSTCO\nTotal $1.00", Confidence: 0.93}
		})

		It("should pass text and confidence through unchanged", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(Result{Text: "COSTCO\nTotal $1.00", Confidence: 0.93}))
		})

		It("should call the provider exactly once with the image", func() {
			Expect(provider.calls).To(Equal(1))
			Expect(provider.lastImage).To(Equal([]byte("png-bytes")))
		})
	})

	When("the provider reports no confidence", func() {
		BeforeEach(func() {
			provider.detection = Detection{FullText: "text"}
		})

		It("should leave confidence at zero for the parser to default", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Confidence).To(BeZero())
		})
	})

	When("the provider returns whitespace only", func() {
		BeforeEach(func() {
			provider.detection = Detection{FullText: "  \n "}
		})

		It("should hand the text to the parser rather than fail", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Text).To(Equal("  \n "))
		})
	})

	When("the provider fails", func() {
		BeforeEach(func() {
			provider.err = errors.New("503 backend unavailable")
		})

		It("should return an OCR provider error", func() {
			Expect(err).To(MatchError(common.ErrOCRProvider))
			var ocrErr *common.OCRError
			Expect(errors.As(err, &ocrErr)).To(BeTrue())
			Expect(ocrErr.Provider).To(Equal("mock"))
			Expect(ocrErr.Timeout).To(BeFalse())
		})

		It("should not retry", func() {
			Expect(provider.calls).To(Equal(1))
		})
	})

	When("the provider finds no annotations", func() {
		BeforeEach(func() {
			provider.err = ErrNoAnnotations
		})

		It("should return an OCR provider error wrapping the cause", func() {
			Expect(err).To(MatchError(common.ErrOCRProvider))
			Expect(errors.Is(err, ErrNoAnnotations)).To(BeTrue())
		})
	})

	When("the provider returns an empty detection without error", func() {
		It("should treat it as no text at all", func() {
			Expect(errors.Is(err, ErrNoAnnotations)).To(BeTrue())
			Expect(errors.Is(err, common.ErrNoTextDetected)).To(BeFalse())
		})
	})

	When("the call exceeds the gateway timeout", func() {
		BeforeEach(func() {
			provider.delay = time.Second
			opts = []GatewayOption{WithTimeout(20 * time.Millisecond)}
		})

		It("should return a timeout OCR error", func() {
			var ocrErr *common.OCRError
			Expect(errors.As(err, &ocrErr)).To(BeTrue())
			Expect(ocrErr.Timeout).To(BeTrue())
			Expect(result).To(Equal(Result{}))
		})
	})

	When("the provider fails on its own while the deadline passes", func() {
		BeforeEach(func() {
			provider.delay = time.Second
			provider.lateErr = errors.New("connection reset by peer")
			opts = []GatewayOption{WithTimeout(20 * time.Millisecond)}
		})

		It("should report a provider failure, not a timeout", func() {
			Expect(err).To(MatchError(common.ErrOCRProvider))
			var ocrErr *common.OCRError
			Expect(errors.As(err, &ocrErr)).To(BeTrue())
			Expect(ocrErr.Timeout).To(BeFalse())
			Expect(status.Code(common.ToStatus(err))).To(Equal(codes.Unavailable))
		})
	})

	When("the caller's context is already cancelled", func() {
		BeforeEach(func() {
			provider.delay = time.Second
			c, cancel := context.WithCancel(context.Background())
			cancel()
			ctx = c
		})

		It("should return a timeout OCR error", func() {
			var ocrErr *common.OCRError
			Expect(errors.As(err, &ocrErr)).To(BeTrue())
			Expect(ocrErr.Timeout).To(BeTrue())
		})
	})
})
