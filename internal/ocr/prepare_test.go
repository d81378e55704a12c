package ocr

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		img.Set(x, x, color.White)
	}
	return img
}

var _ = Describe("Prepare", func() {
	It("should pass PNG bytes through untouched", func() {
		var buf bytes.Buffer
		Expect(png.Encode(&buf, testImage())).To(Succeed())

		out, err := Prepare(buf.Bytes(), "image/png")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(buf.Bytes()))
	})

	It("should convert JPEG to PNG, sniffing when no type is given", func() {
		var buf bytes.Buffer
		Expect(jpeg.Encode(&buf, testImage(), nil)).To(Succeed())

		out, err := Prepare(buf.Bytes(), "")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HavePrefix(string(pngMagic)))
		decoded, err := png.Decode(bytes.NewReader(out))
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.Bounds()).To(Equal(image.Rect(0, 0, 4, 4)))
	})

	It("should reject empty uploads", func() {
		_, err := Prepare(nil, "image/jpeg")
		Expect(err).To(MatchError("empty image"))
	})

	It("should reject bytes that are not an image", func() {
		_, err := Prepare([]byte("definitely not an image"), "")
		Expect(err).To(MatchError(ContainSubstring("decoding image")))
	})

	DescribeTable("HEIF brand detection",
		func(header string, expected bool) {
			Expect(isHEIC([]byte(header))).To(Equal(expected))
		},
		Entry("heic", "\x00\x00\x00\x18ftypheic", true),
		Entry("mif1", "\x00\x00\x00\x18ftypmif1", true),
		Entry("mp4", "\x00\x00\x00\x18ftypisom", false),
		Entry("too short", "\x00\x00", false),
	)

	It("should report a HEIC decode failure for truncated HEIC data", func() {
		_, err := Prepare([]byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00"), "")
		Expect(err).To(MatchError(ContainSubstring("decoding HEIC/HEIF image")))
	})
})
