package constants

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestConstants(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Constants Suite")
}

var _ = Describe("Category", func() {
	It("should list every category once with Other last", func() {
		all := AllCategories()
		Expect(all).To(HaveLen(19))
		Expect(all[len(all)-1]).To(Equal(Other))
		seen := map[Category]bool{}
		for _, c := range all {
			Expect(seen[c]).To(BeFalse(), string(c))
			seen[c] = true
		}
	})

	It("should hand out a copy", func() {
		all := AllCategories()
		all[0] = "Mutated"
		Expect(AllCategories()[0]).To(Equal(Groceries))
	})

	It("should only accept exact members", func() {
		Expect(IsValid(GasFuel)).To(BeTrue())
		Expect(IsValid("gas/fuel")).To(BeFalse())
	})

	DescribeTable("Canonicalize",
		func(input string, want Category, ok bool) {
			got, matched := Canonicalize(input)
			Expect(matched).To(Equal(ok))
			Expect(got).To(Equal(want))
		},
		Entry("exact", "Healthcare", Healthcare, true),
		Entry("case and spaces", "  home improvement ", HomeImprovement, true),
		Entry("synonym", "fuel", GasFuel, true),
		Entry("blank", "   ", Other, false),
		Entry("unknown", "spaceships", Other, false),
	)
})

var _ = Describe("File types", func() {
	It("should map extensions and MIME types both ways", func() {
		Expect(MIMEForExt(".JPG")).To(Equal("image/jpeg"))
		Expect(MIMEForExt("txt")).To(Equal("application/octet-stream"))
		Expect(ExtForMIME("image/png")).To(Equal("png"))
		Expect(ExtForMIME("image/webp")).To(Equal("jpg"))
	})
})
