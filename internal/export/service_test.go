package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/receiptbox/internal/entity"
)

func TestExport(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Export Suite")
}

type mockReceiptRepo struct {
	receipts []*entity.Receipt
	err      error
	from, to *entity.Date
	userID   string
}

func (m *mockReceiptRepo) Create(context.Context, *entity.Receipt) (*entity.Receipt, error) {
	return nil, errors.New("not implemented")
}
func (m *mockReceiptRepo) Get(context.Context, string, uuid.UUID) (*entity.Receipt, error) {
	return nil, errors.New("not implemented")
}
func (m *mockReceiptRepo) List(context.Context, string, entity.ListOptions) ([]*entity.Receipt, int, error) {
	return nil, 0, errors.New("not implemented")
}
func (m *mockReceiptRepo) ListAll(_ context.Context, userID string, from, to *entity.Date) ([]*entity.Receipt, error) {
	m.userID, m.from, m.to = userID, from, to
	return m.receipts, m.err
}
func (m *mockReceiptRepo) Update(context.Context, string, uuid.UUID, entity.ReceiptPatch) (*entity.Receipt, error) {
	return nil, errors.New("not implemented")
}
func (m *mockReceiptRepo) SetSheet(context.Context, string, uuid.UUID, string, string) error {
	return errors.New("not implemented")
}
func (m *mockReceiptRepo) Delete(context.Context, string, uuid.UUID) error {
	return errors.New("not implemented")
}

func strp(s string) *string   { return &s }
func fltp(f float64) *float64 { return &f }

func date(s string) *entity.Date {
	d, err := entity.ParseDate(s)
	Expect(err).NotTo(HaveOccurred())
	return &d
}

var _ = Describe("Service", func() {
	var (
		repo    *mockReceiptRepo
		service *Service
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = &mockReceiptRepo{receipts: []*entity.Receipt{
			{Vendor: strp("COSTCO, WHOLESALE"), Amount: fltp(154.32), TaxAmount: fltp(11.2), Date: date("2024-03-15"), Category: strp("Groceries"), PaymentMethod: strp("Visa")},
			{Vendor: strp("Mystery"), Notes: strp("no date")},
		}}
		service = NewService(repo, nil)
		service.now = func() time.Time { return time.Date(2024, 4, 1, 15, 0, 0, 0, time.UTC) }
	})

	Describe("CSV", func() {
		It("should write a header and one quoted record per receipt", func() {
			out, err := service.CSV(ctx, "user-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.userID).To(Equal("user-1"))

			records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(Equal([][]string{
				Headers,
				{"2024-03-15", "COSTCO, WHOLESALE", "Groceries", "154.32", "11.20", "Visa", ""},
				{"", "Mystery", "", "", "", "", "no date"},
			}))
			Expect(string(out)).To(ContainSubstring(`"COSTCO, WHOLESALE"`))
		})

		It("should surface repository failures", func() {
			repo.err = errors.New("boom")
			_, err := service.CSV(ctx, "user-1")
			Expect(err).To(MatchError(ContainSubstring("boom")))
		})
	})

	Describe("XLSX", func() {
		It("should write a Receipts sheet", func() {
			out, err := service.XLSX(ctx, "user-1", nil, nil)
			Expect(err).NotTo(HaveOccurred())

			f, err := excelize.OpenReader(bytes.NewReader(out))
			Expect(err).NotTo(HaveOccurred())
			defer f.Close()
			rows, err := f.GetRows("Receipts")
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(3))
			Expect(rows[0]).To(Equal(Headers))
			Expect(rows[1][:4]).To(Equal([]string{"2024-03-15", "COSTCO, WHOLESALE", "Groceries", "154.32"}))
		})

		It("should close an open-ended window at today", func() {
			_, err := service.XLSX(ctx, "user-1", date("2024-01-01"), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.from.String()).To(Equal("2024-01-01"))
			Expect(repo.to.String()).To(Equal("2024-04-01"))
		})

		It("should pass an upper bound through alone", func() {
			_, err := service.XLSX(ctx, "user-1", nil, date("2024-02-01"))
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.from).To(BeNil())
			Expect(repo.to.String()).To(Equal("2024-02-01"))
		})
	})

	It("should truncate long notes on rune boundaries", func() {
		Expect(truncate(strings.Repeat("é", 5), 3)).To(Equal("éé…"))
		Expect(truncate("short", 140)).To(Equal("short"))
	})
})
