package classify

import (
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/joseph-ayodele/receiptbox/constants"
)

func TestClassify(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Classify Suite")
}

var _ = Describe("Classifier", func() {
	var (
		classifier *Classifier
		vendor     string
		category   constants.Category
		ok         bool
	)

	BeforeEach(func() {
		classifier = New(nil)
	})

	JustBeforeEach(func() {
		category, ok = classifier.Classify(vendor)
	})

	When("the vendor is empty", func() {
		BeforeEach(func() {
			vendor = ""
		})

		It("should not assign a category", func() {
			Expect(ok).To(BeFalse())
			Expect(category).To(BeEmpty())
		})
	})

	When("no pattern matches", func() {
		BeforeEach(func() {
			vendor = "Zzyzx Unmatched Vendor 12345"
		})

		It("should fall back to Other", func() {
			Expect(ok).To(BeTrue())
			Expect(category).To(Equal(constants.Other))
		})
	})

	When("the vendor matches patterns in two categories", func() {
		BeforeEach(func() {
			vendor = "Costco Gas Station"
		})

		It("should use the earlier table entry", func() {
			Expect(category).To(Equal(constants.Groceries))
		})
	})

	When("the vendor is mixed case", func() {
		BeforeEach(func() {
			vendor = "STARBUCKS Store #1234"
		})

		It("should match case-insensitively", func() {
			Expect(category).To(Equal(constants.Restaurants))
		})
	})

	When("a short pattern appears inside another word", func() {
		BeforeEach(func() {
			vendor = "Gastonia Hardware"
		})

		It("should keep the substring match", func() {
			Expect(category).To(Equal(constants.GasFuel))
		})
	})

	When("the vendor names a utility gas company", func() {
		BeforeEach(func() {
			vendor = "Piedmont Gas Company"
		})

		It("should resolve to Gas/Fuel because gas precedes gas company", func() {
			Expect(category).To(Equal(constants.GasFuel))
		})
	})

	DescribeTable("reference vendors",
		func(v string, want constants.Category) {
			got, ok := classifier.Classify(v)
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal(want))
		},
		Entry("warehouse club", "COSTCO WHOLESALE", constants.Groceries),
		Entry("store number containing a fuel brand", "Costco #7612", constants.Groceries),
		Entry("ride share", "Uber Trip", constants.Transportation),
		Entry("hardware store", "The Home Depot", constants.HomeImprovement),
		Entry("pharmacy", "Walgreens #4411", constants.Healthcare),
		Entry("online retail", "AMZN Mktp US", constants.Shopping),
		Entry("courier", "FedEx Office", constants.OfficeSupplies),
		Entry("lawyer", "Smith Attorney at Law", constants.ProfessionalServices),
		Entry("insurer", "GEICO", constants.Insurance),
		Entry("lodging", "Marriott Downtown", constants.Travel),
		Entry("campus store", "State University Bookstore", constants.Education),
		Entry("streaming", "Netflix.com", constants.Entertainment),
		Entry("vet clinic", "Petco Vet Clinic", constants.PetCare),
	)

	It("should return a member of the enumeration for any non-empty vendor", func() {
		for _, v := range []string{"a", "x y z", "Bp", "176 Main", "??", "Taxes Inc", "Gift Shop"} {
			got, ok := classifier.Classify(v)
			Expect(ok).To(BeTrue())
			Expect(constants.IsValid(got)).To(BeTrue(), v)
		}
	})

	It("should never produce manual-only categories", func() {
		for _, r := range classifier.Table() {
			Expect(r.Category).NotTo(BeElementOf(constants.Taxes, constants.Gifts, constants.Subscriptions))
		}
	})

	When("a custom table is injected", func() {
		BeforeEach(func() {
			classifier = New(Table{
				{Pattern: "ACME", Category: constants.Subscriptions},
				{Pattern: "acme", Category: constants.Gifts},
			})
			vendor = "Acme Cloud"
		})

		It("should lowercase patterns and keep first-match order", func() {
			Expect(category).To(Equal(constants.Subscriptions))
		})
	})
})

var _ = Describe("LoadTable", func() {
	var (
		input string
		table Table
		err   error
	)

	JustBeforeEach(func() {
		table, err = LoadTable(strings.NewReader(input))
	})

	When("the file is valid", func() {
		BeforeEach(func() {
			input = `
- category: Subscriptions
  patterns: [github, "Adobe"]
- category: Groceries
  patterns: [aldi]
`
		})

		It("should keep file order", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(table).To(Equal(Table{
				{Pattern: "github", Category: constants.Subscriptions},
				{Pattern: "adobe", Category: constants.Subscriptions},
				{Pattern: "aldi", Category: constants.Groceries},
			}))
		})
	})

	When("a category is not in the enumeration", func() {
		BeforeEach(func() {
			input = "- category: Snacks\n  patterns: [chips]\n"
		})

		It("should return an error", func() {
			Expect(err).To(MatchError(ContainSubstring("unknown category")))
		})
	})

	When("a pattern is blank", func() {
		BeforeEach(func() {
			input = "- category: Other\n  patterns: [\" \"]\n"
		})

		It("should return an error", func() {
			Expect(err).To(MatchError(ContainSubstring("empty pattern")))
		})
	})
})
