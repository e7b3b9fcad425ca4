package preprocess

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// bicubic convolution coefficient
const cubicA = -0.75

// Rotate turns img counter-clockwise by deg degrees about its center,
// keeping the original size. Sampling is bicubic and pixels outside the
// source replicate the nearest edge pixel, so no dark corners appear.
func Rotate(img image.Image, deg float64) *image.NRGBA {
	src := imaging.Clone(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))

	rad := deg * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	cx, cy := float64(w/2), float64(h/2)

	for y := 0; y < h; y++ {
		dy := float64(y) - cy
		for x := 0; x < w; x++ {
			dx := float64(x) - cx
			sx := cos*dx - sin*dy + cx
			sy := sin*dx + cos*dy + cy
			off := y*dst.Stride + x*4
			sampleBicubic(src, sx, sy, dst.Pix[off:off+4])
		}
	}
	return dst
}

func cubicWeights(t float64) [4]float64 {
	var w [4]float64
	w[0] = ((cubicA*(t+1)-5*cubicA)*(t+1)+8*cubicA)*(t+1) - 4*cubicA
	w[1] = ((cubicA+2)*t-(cubicA+3))*t*t + 1
	w[2] = ((cubicA+2)*(1-t)-(cubicA+3))*(1-t)*(1-t) + 1
	w[3] = 1 - w[0] - w[1] - w[2]
	return w
}

func sampleBicubic(src *image.NRGBA, x, y float64, out []uint8) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	x0, y0 := math.Floor(x), math.Floor(y)
	wx, wy := cubicWeights(x-x0), cubicWeights(y-y0)
	ix, iy := int(x0), int(y0)

	var acc [4]float64
	for j := 0; j < 4; j++ {
		row := clamp(iy-1+j, 0, h-1) * src.Stride
		for i := 0; i < 4; i++ {
			off := row + clamp(ix-1+i, 0, w-1)*4
			k := wx[i] * wy[j]
			acc[0] += k * float64(src.Pix[off])
			acc[1] += k * float64(src.Pix[off+1])
			acc[2] += k * float64(src.Pix[off+2])
			acc[3] += k * float64(src.Pix[off+3])
		}
	}
	for c := range acc {
		out[c] = clampByte(acc[c])
	}
}
