package preprocess

import (
	"image"
	"image/color"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Geometry", func() {
	Describe("CorrectionAngle", func() {
		It("should treat steep angles as near vertical", func() {
			Expect(CorrectionAngle(-80)).To(BeNumerically("~", -10, 1e-9))
		})

		It("should negate shallow angles", func() {
			Expect(CorrectionAngle(-5)).To(BeNumerically("~", 5, 1e-9))
		})

		It("should leave axis-aligned rectangles alone", func() {
			Expect(CorrectionAngle(-90)).To(BeNumerically("~", 0, 1e-9))
		})
	})

	Describe("ConvexHull", func() {
		It("should drop interior points", func() {
			pts := []image.Point{
				{0, 0}, {10, 0}, {10, 10}, {0, 10},
				{5, 5}, {3, 7}, {5, 0},
			}
			Expect(ConvexHull(pts)).To(ConsistOf(
				image.Pt(0, 0), image.Pt(10, 0), image.Pt(10, 10), image.Pt(0, 10),
			))
		})

		It("should collapse duplicate points", func() {
			Expect(ConvexHull([]image.Point{{2, 2}, {2, 2}})).To(HaveLen(1))
		})
	})

	Describe("MinAreaRect", func() {
		It("should fit an axis-aligned rectangle", func() {
			rect := MinAreaRect([]image.Point{{10, 10}, {50, 10}, {50, 30}, {10, 30}, {30, 20}})
			Expect(rect.Width * rect.Height).To(BeNumerically("~", 800, 1e-6))
			Expect(rect.Angle).To(BeNumerically("~", -90, 1e-9))
			Expect(rect.CenterX).To(BeNumerically("~", 30, 1e-6))
			Expect(rect.CenterY).To(BeNumerically("~", 20, 1e-6))
		})

		It("should handle a single point", func() {
			rect := MinAreaRect([]image.Point{{4, 7}})
			Expect(CorrectionAngle(rect.Angle)).To(BeNumerically("~", 0, 1e-9))
		})

		It("should handle a horizontal segment", func() {
			rect := MinAreaRect([]image.Point{{0, 5}, {20, 5}, {10, 5}})
			Expect(CorrectionAngle(rect.Angle)).To(BeNumerically("~", 0, 1e-9))
		})

		It("should follow a diamond's edges", func() {
			rect := MinAreaRect([]image.Point{{10, 0}, {20, 10}, {10, 20}, {0, 10}})
			Expect(rect.Angle).To(BeNumerically("~", -45, 1e-9))
		})
	})

	Describe("OtsuThreshold", func() {
		It("should split a bimodal image between its modes", func() {
			g := image.NewGray(image.Rect(0, 0, 10, 10))
			for y := 0; y < 10; y++ {
				for x := 0; x < 10; x++ {
					v := uint8(200)
					if x < 3 {
						v = 50
					}
					g.SetGray(x, y, color.Gray{Y: v})
				}
			}
			t := OtsuThreshold(g)
			Expect(t).To(BeNumerically(">=", 50))
			Expect(t).To(BeNumerically("<", 200))
		})

		It("should keep a uniform white image free of foreground", func() {
			g := image.NewGray(image.Rect(0, 0, 5, 5))
			for i := range g.Pix {
				g.Pix[i] = 255
			}
			Expect(foregroundExtremes(g, OtsuThreshold(g))).To(BeEmpty())
		})
	})

	Describe("Rotate", func() {
		It("should be the identity for zero degrees", func() {
			img := newCanvas(20, 10)
			drawBlock(img, 10, 5, 6, 4, 0)
			out := Rotate(img, 0)
			Expect(out.Pix).To(Equal(img.Pix))
		})

		It("should turn a horizontal bar vertical at 90 degrees", func() {
			img := newCanvas(41, 41)
			drawBlock(img, 20, 20, 30, 3, 0)
			out := Rotate(img, 90)
			r, _, _, _ := out.At(20, 8).RGBA()
			Expect(r >> 8).To(BeNumerically("<", 40))
			r, _, _, _ = out.At(8, 20).RGBA()
			Expect(r >> 8).To(BeNumerically(">", 215))
		})
	})
})
