package extract

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestExtract(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Extract Suite")
}

var _ = Describe("Vendor", func() {
	It("should return the first substantive line trimmed", func() {
		Expect(Vendor("\n   \nCOSTCO WHOLESALE  \n123 Main St")).To(HaveValue(Equal("COSTCO WHOLESALE")))
	})

	It("should skip short lines", func() {
		Expect(Vendor("#1\nok\nTarget Store")).To(HaveValue(Equal("Target Store")))
	})

	It("should measure length before trimming", func() {
		Expect(Vendor("  ab\nLonger Line")).To(HaveValue(Equal("ab")))
	})

	It("should return nil when no line qualifies", func() {
		Expect(Vendor("a\nbc\n  \n")).To(BeNil())
		Expect(Vendor("")).To(BeNil())
	})
})

var _ = Describe("Amount", func() {
	DescribeTable("label priority",
		func(text string, want float64) {
			Expect(Amount(text)).To(HaveValue(Equal(want)))
		},
		Entry("total beats subtotal", "Subtotal $10.00\nTotal: $12.50", 12.50),
		Entry("total without dollar sign", "TOTAL 9.99", 9.99),
		Entry("total on the next line", "Total\n$44.10", 44.10),
		Entry("amount label", "Item $3.00\nAmount: $7.25", 7.25),
		Entry("balance label", "Coffee $4.50\nBALANCE DUE $4.50\nBalance: 4.50", 4.50),
		Entry("total preferred over amount", "Amount: $1.00\nTotal $2.00", 2.00),
		Entry("first bare dollar figure", "Latte $5.25\nMuffin $3.75", 5.25),
	)

	It("should not read a subtotal as the total", func() {
		Expect(Amount("Subtotal: 10.00")).To(BeNil())
	})

	It("should read labels glued to the preceding word", func() {
		Expect(Amount("NETAMOUNT: 8.40")).To(HaveValue(Equal(8.40)))
	})

	It("should require two decimal places", func() {
		Expect(Amount("Total: $12.5")).To(BeNil())
	})
})

var _ = Describe("Date", func() {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	DescribeTable("formats",
		func(text string, want time.Time) {
			Expect(Date(text)).To(HaveValue(Equal(want)))
		},
		Entry("ISO", "Purchased 2024-03-15", day(2024, time.March, 15)),
		Entry("hyphen with two-digit year", "Purchased 03-15-24", day(2024, time.March, 15)),
		Entry("slash with four-digit year", "03/15/2024 14:02", day(2024, time.March, 15)),
		Entry("slash with two-digit year", "Date: 3/5/24", day(2024, time.March, 5)),
		Entry("hyphen with four-digit year", "12-01-2023", day(2023, time.December, 1)),
		Entry("leap day", "02/29/2024", day(2024, time.February, 29)),
		Entry("slash glued to a label", "DATE03/15/2024", day(2024, time.March, 15)),
		Entry("slash glued to a reference number", "Ref#1203/15/2024", day(2024, time.March, 15)),
		Entry("ISO glued to a label", "TXN2024-03-15", day(2024, time.March, 15)),
	)

	It("should agree for ISO and two-digit forms of the same day", func() {
		Expect(Date("Purchased 2024-03-15")).To(Equal(Date("Purchased 03-15-24")))
	})

	It("should fall through an invalid slash date to a later pattern", func() {
		Expect(Date("13/45/2024 then 2024-01-02")).To(HaveValue(Equal(day(2024, time.January, 2))))
	})

	It("should reject impossible calendar dates", func() {
		Expect(Date("02/30/2024")).To(BeNil())
		Expect(Date("02/29/2023")).To(BeNil())
	})

	It("should reject three-digit years", func() {
		Expect(Date("03/15/202")).To(BeNil())
	})

	It("should return nil with no date", func() {
		Expect(Date("no dates here")).To(BeNil())
	})
})

var _ = Describe("Tax", func() {
	It("should read the tax line", func() {
		Expect(Tax("Subtotal $10.00\nTax: $0.83\nTotal $10.83")).To(HaveValue(Equal(0.83)))
	})

	It("should read a sales tax line", func() {
		Expect(Tax("SALES TAX 1.20")).To(HaveValue(Equal(1.20)))
	})

	It("should read a label glued to the preceding word", func() {
		Expect(Tax("SALESTAX 1.11")).To(HaveValue(Equal(1.11)))
	})

	It("should return nil without a tax label", func() {
		Expect(Tax("Total $5.00")).To(BeNil())
	})
})

var _ = Describe("PaymentMethod", func() {
	DescribeTable("priority",
		func(text string, want string) {
			Expect(PaymentMethod(text)).To(HaveValue(Equal(want)))
		},
		Entry("brand beats credit", "paid by credit card, Visa ending 1234", "Visa"),
		Entry("two-word mastercard", "MASTER CARD xx99", "Mastercard"),
		Entry("amex", "AMEX ****1001", "American Express"),
		Entry("american express", "American Express", "American Express"),
		Entry("discover", "Discover", "Discover"),
		Entry("cash", "CASH TEND 20.00", "Cash"),
		Entry("debit", "US DEBIT", "Debit Card"),
		Entry("credit", "CREDIT SALE", "Credit Card"),
	)

	It("should return nil when no method is mentioned", func() {
		Expect(PaymentMethod("thank you")).To(BeNil())
	})
})
