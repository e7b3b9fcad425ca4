package preprocess

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Grayscale converts img to an 8-bit gray image anchored at the origin
func Grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		w, h := g.Rect.Dx(), g.Rect.Dy()
		out := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			copy(out.Pix[y*out.Stride:y*out.Stride+w], g.Pix[y*g.Stride:y*g.Stride+w])
		}
		return out
	}

	nrgba := imaging.Grayscale(img)
	b := nrgba.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := nrgba.Pix[y*nrgba.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < b.Dx(); x++ {
			dst[x] = src[x*4]
		}
	}
	return out
}

// OtsuThreshold picks the global threshold that minimizes intra-class
// variance of the intensity histogram. Pixels <= threshold form the dark class.
func OtsuThreshold(g *image.Gray) uint8 {
	var hist [256]float64
	w, h := g.Rect.Dx(), g.Rect.Dy()
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		for _, v := range row {
			hist[v]++
		}
	}

	total := float64(w * h)
	if total == 0 {
		return 0
	}

	var mu float64
	for i, c := range hist {
		mu += float64(i) * c / total
	}

	var (
		q1, mu1  float64
		maxSigma float64
		best     int
	)
	for i := 0; i < 255; i++ {
		p := hist[i] / total
		q1Next := q1 + p
		if q1Next == 0 {
			continue
		}
		mu1 = (q1*mu1 + float64(i)*p) / q1Next
		q1 = q1Next
		q2 := 1 - q1
		if q2 <= 1e-12 {
			break
		}
		mu2 := (mu - q1*mu1) / q2
		sigma := q1 * q2 * (mu1 - mu2) * (mu1 - mu2)
		if sigma > maxSigma {
			maxSigma = sigma
			best = i
		}
	}
	return uint8(best)
}

// AdaptiveThreshold binarizes g against a per-pixel local mean over a
// blockSize x blockSize neighborhood. A pixel is white when it is brighter
// than the local mean minus offset. Borders replicate edge pixels.
func AdaptiveThreshold(g *image.Gray, blockSize int, offset float64, method ThresholdMethod) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	var mean []uint8
	switch method {
	case BoxMean:
		mean = boxMean(g, blockSize)
	default:
		mean = gaussianMean(g, blockSize)
	}

	// same rounding as an integer threshold table: white when src-mean > -ceil(offset)
	delta := int(math.Ceil(offset))
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := g.Pix[y*g.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			if int(src[x])-int(mean[y*w+x]) > -delta {
				dst[x] = 255
			}
		}
	}
	return out
}

// gaussianSigma mirrors the conventional sigma derived from a kernel size
func gaussianSigma(ksize int) float64 {
	return 0.3*(float64(ksize-1)*0.5-1) + 0.8
}

func gaussianKernel(ksize int) []float64 {
	sigma := gaussianSigma(ksize)
	k := make([]float64, ksize)
	r := ksize / 2
	var sum float64
	for i := range k {
		d := float64(i - r)
		k[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

func gaussianMean(g *image.Gray, ksize int) []uint8 {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	k := gaussianKernel(ksize)
	r := ksize / 2

	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride:]
		for x := 0; x < w; x++ {
			var acc float64
			for i, kv := range k {
				acc += kv * float64(row[clamp(x+i-r, 0, w-1)])
			}
			tmp[y*w+x] = acc
		}
	}

	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for i, kv := range k {
				acc += kv * tmp[clamp(y+i-r, 0, h-1)*w+x]
			}
			out[y*w+x] = clampByte(acc)
		}
	}
	return out
}

func boxMean(g *image.Gray, ksize int) []uint8 {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	r := ksize / 2
	area := float64(ksize * ksize)

	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride:]
		for x := 0; x < w; x++ {
			var acc float64
			for i := -r; i <= r; i++ {
				acc += float64(row[clamp(x+i, 0, w-1)])
			}
			tmp[y*w+x] = acc
		}
	}

	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for i := -r; i <= r; i++ {
				acc += tmp[clamp(y+i, 0, h-1)*w+x]
			}
			out[y*w+x] = clampByte(acc / area)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampByte(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
