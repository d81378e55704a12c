package ocr

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/joseph-ayodele/receiptbox/internal/common"
)

type mockRunner struct {
	stdout    string
	tsv       string
	err       error
	tsvErr    error
	calls     [][]string
	imageSeen []byte
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	m.calls = append(m.calls, append([]string{name}, args...))
	if data, err := os.ReadFile(args[0]); err == nil {
		m.imageSeen = data
	}
	if args[len(args)-1] == "tsv" {
		return []byte(m.tsv), nil, m.tsvErr
	}
	return []byte(m.stdout), []byte("stderr text"), m.err
}

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t800\t600\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t10\t10\t100\t20\t90.5\tCOSTCO\n" +
	"5\t1\t1\t1\t1\t2\t120\t10\t100\t20\t79.5\tWHOLESALE\n"

var _ = Describe("TesseractProvider", func() {
	var (
		runner    *mockRunner
		provider  *TesseractProvider
		detection Detection
		err       error
	)

	BeforeEach(func() {
		runner = &mockRunner{
			stdout: "COSTCO  WHOLESALE\r\n\r\n\r\n\r\nTotal:\t$154.32   \n",
			tsv:    sampleTSV,
		}
	})

	JustBeforeEach(func() {
		provider = NewTesseractProvider(TesseractConfig{TessdataDir: "/tessdata", PSM: 6}, runner, nil)
		detection, err = provider.DetectText(context.Background(), []byte("image-bytes"))
	})

	It("should normalize the recognized text", func() {
		Expect(err).NotTo(HaveOccurred())
		Expect(detection.FullText).To(Equal("COSTCO WHOLESALE\n\nTotal: $154.32"))
	})

	It("should report the mean word confidence", func() {
		Expect(detection.Confidence).To(BeNumerically("~", 0.85, 1e-9))
	})

	It("should pass the image through a temp file with configured flags", func() {
		Expect(runner.imageSeen).To(Equal([]byte("image-bytes")))
		Expect(runner.calls).To(HaveLen(2))
		Expect(runner.calls[0]).To(ContainElements("tesseract", "stdout", "-l", "eng", "--psm", "6", "--tessdata-dir", "/tessdata"))
		Expect(runner.calls[1][len(runner.calls[1])-1]).To(Equal("tsv"))
	})

	It("should remove the temp file afterwards", func() {
		_, statErr := os.Stat(runner.calls[0][1])
		Expect(os.IsNotExist(statErr)).To(BeTrue())
	})

	When("tesseract fails", func() {
		BeforeEach(func() {
			runner.err = errors.New("exit status 1")
		})

		It("should return the error with stderr", func() {
			Expect(err).To(MatchError(ContainSubstring("stderr text")))
		})
	})

	When("tesseract prints nothing", func() {
		BeforeEach(func() {
			runner.stdout = " \n\n"
		})

		It("should report no annotations", func() {
			Expect(err).To(MatchError(ErrNoAnnotations))
		})
	})

	When("the TSV pass fails", func() {
		BeforeEach(func() {
			runner.tsvErr = errors.New("tsv unsupported")
		})

		It("should still return the text with zero confidence", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(detection.Confidence).To(BeZero())
		})
	})
})

var _ = Describe("Normalize", func() {
	It("should keep single blank lines and drop separator rules", func() {
		Expect(Normalize("A\n-----\nB\n\n\n\nC")).To(Equal("A\n\nB\n\nC"))
	})

	It("should leave dates with leading zeros intact", func() {
		Expect(Normalize("03/05/2024")).To(Equal("03/05/2024"))
	})
})

var _ = Describe("execRunner", func() {
	var runner execRunner

	BeforeEach(func() {
		runner = execRunner{provider: "tesseract", logger: slog.Default()}
	})

	It("should report a killed process as the deadline that killed it", func() {
		if _, err := exec.LookPath("sleep"); err != nil {
			Skip("sleep is not installed")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, _, err := runner.Run(ctx, "sleep", "5")
		Expect(err).To(MatchError(context.DeadlineExceeded))
		Expect(common.NewOCRError("tesseract", err).Timeout).To(BeTrue())
	})

	It("should pass engine failures through unchanged", func() {
		_, _, err := runner.Run(context.Background(), "receiptbox-no-such-binary", "image.png")
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, context.DeadlineExceeded)).To(BeFalse())
		Expect(common.NewOCRError("tesseract", err).Timeout).To(BeFalse())
	})

	It("should label confidence passes", func() {
		Expect(runMode([]string{"a.png", "stdout", "-l", "eng", "tsv"})).To(Equal("tsv"))
		Expect(runMode([]string{"a.png", "stdout", "-l", "eng"})).To(Equal("text"))
	})
})
