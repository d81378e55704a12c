package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/joseph-ayodele/receiptbox/internal/common"
	"github.com/joseph-ayodele/receiptbox/internal/entity"
	"github.com/joseph-ayodele/receiptbox/internal/receipts"
)

func TestAsync(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Async Suite")
}

type mockScanner struct {
	calls   atomic.Int32
	block   chan struct{}
	failFor string
}

func (m *mockScanner) ScanQueued(ctx context.Context, userID string, image []byte, _ string) (*receipts.ScanResult, error) {
	m.calls.Add(1)
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if string(image) == m.failFor {
		return nil, common.ErrNoTextDetected
	}
	return &receipts.ScanResult{ImageURL: "file:///" + string(image), Parsed: &entity.ParsedReceipt{RawText: string(image)}}, nil
}

type collector struct {
	mu      sync.Mutex
	results []Result
}

func (c *collector) add(r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

func (c *collector) all() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Result(nil), c.results...)
}

var _ = Describe("ScanQueue", func() {
	var (
		ctx     context.Context
		scanner *mockScanner
		results *collector
		queue   *ScanQueue
		opts    []Option
	)

	BeforeEach(func() {
		ctx = context.Background()
		scanner = &mockScanner{failFor: "blank"}
		results = &collector{}
		opts = []Option{WithWorkers(2)}
	})

	JustBeforeEach(func() {
		queue = NewScanQueue(scanner, nil, append(opts, WithResultHandler(results.add))...)
	})

	It("reports one result per job and drains on shutdown", func() {
		for _, img := range []string{"a", "b", "blank", "c"} {
			Expect(queue.Enqueue(ctx, Job{UserID: "u1", Source: img + ".png", Image: []byte(img), ContentType: "image/png"})).To(Succeed())
		}
		Expect(queue.Shutdown(ctx)).To(Succeed())

		got := results.all()
		Expect(got).To(HaveLen(4))
		var failed []string
		for _, r := range got {
			Expect(r.Job.Image).To(BeNil())
			Expect(r.Job.SubmittedAt).NotTo(BeZero())
			if r.Err != nil {
				failed = append(failed, r.Job.Source)
				Expect(errors.Is(r.Err, common.ErrNoTextDetected)).To(BeTrue())
			}
		}
		Expect(failed).To(ConsistOf("blank.png"))
	})

	It("refuses work after shutdown", func() {
		Expect(queue.Shutdown(ctx)).To(Succeed())
		Expect(queue.Enqueue(ctx, Job{Source: "late.png"})).To(MatchError(ErrQueueClosed))
		Expect(queue.Shutdown(ctx)).To(Succeed())
	})

	When("the buffer is full", func() {
		BeforeEach(func() {
			scanner.block = make(chan struct{})
			opts = []Option{WithWorkers(1), WithQueueSize(1)}
		})

		It("blocks until the caller's context ends", func() {
			Expect(queue.Enqueue(ctx, Job{Source: "1", Image: []byte("1")})).To(Succeed())
			Eventually(scanner.calls.Load).Should(BeEquivalentTo(1))
			Expect(queue.Enqueue(ctx, Job{Source: "2", Image: []byte("2")})).To(Succeed())

			short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer cancel()
			Expect(queue.Enqueue(short, Job{Source: "3", Image: []byte("3")})).To(MatchError(context.DeadlineExceeded))

			close(scanner.block)
			Expect(queue.Shutdown(ctx)).To(Succeed())
			Expect(results.all()).To(HaveLen(2))
		})

		It("releases a blocked sender when shutdown begins", func() {
			Expect(queue.Enqueue(ctx, Job{Source: "1", Image: []byte("1")})).To(Succeed())
			Eventually(scanner.calls.Load).Should(BeEquivalentTo(1))
			Expect(queue.Enqueue(ctx, Job{Source: "2", Image: []byte("2")})).To(Succeed())

			blocked := make(chan error, 1)
			go func() {
				defer GinkgoRecover()
				blocked <- queue.Enqueue(ctx, Job{Source: "3", Image: []byte("3")})
			}()
			Consistently(blocked, 30*time.Millisecond).ShouldNot(Receive())

			short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()
			start := time.Now()
			Expect(queue.Shutdown(short)).To(MatchError(context.DeadlineExceeded))
			Expect(time.Since(start)).To(BeNumerically("<", time.Second))
			Eventually(blocked).Should(Receive(MatchError(ErrQueueClosed)))

			close(scanner.block)
			Expect(queue.Shutdown(ctx)).To(Succeed())
			Expect(results.all()).To(HaveLen(2))
		})
	})

	When("a scan outlives the process timeout", func() {
		BeforeEach(func() {
			scanner.block = make(chan struct{})
			opts = []Option{WithWorkers(1), WithProcessTimeout(10 * time.Millisecond)}
		})

		It("reports the deadline", func() {
			Expect(queue.Enqueue(ctx, Job{Source: "slow", Image: []byte("slow")})).To(Succeed())
			Expect(queue.Shutdown(ctx)).To(Succeed())
			Expect(results.all()).To(HaveLen(1))
			Expect(results.all()[0].Err).To(MatchError(context.DeadlineExceeded))
		})
	})

	When("shutdown is interrupted", func() {
		BeforeEach(func() {
			scanner.block = make(chan struct{})
			opts = []Option{WithWorkers(1)}
		})

		It("returns the context error", func() {
			Expect(queue.Enqueue(ctx, Job{Source: "x", Image: []byte("x")})).To(Succeed())
			short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
			defer cancel()
			Expect(queue.Shutdown(short)).To(MatchError(context.DeadlineExceeded))
			close(scanner.block)
		})
	})
})
