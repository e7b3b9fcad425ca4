package preprocess

import (
	"image"
	"math"
)

// Bilateral smooths g while preserving edges: every output pixel is a
// weighted mean of its disc-shaped neighborhood, where weights fall off with
// both spatial distance (sigmaSpace) and intensity difference (sigmaColor).
func Bilateral(g *image.Gray, diameter int, sigmaColor, sigmaSpace float64) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	radius := diameter / 2
	if radius < 1 {
		radius = 1
	}

	var colorWeight [256]float64
	for i := range colorWeight {
		d := float64(i)
		colorWeight[i] = math.Exp(-(d * d) / (2 * sigmaColor * sigmaColor))
	}

	type tap struct {
		dx, dy int
		weight float64
	}
	var taps []tap
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			r := math.Sqrt(float64(dx*dx + dy*dy))
			if r > float64(radius) {
				continue
			}
			taps = append(taps, tap{dx: dx, dy: dy, weight: math.Exp(-(r * r) / (2 * sigmaSpace * sigmaSpace))})
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			center := int(g.Pix[y*g.Stride+x])
			var sum, norm float64
			for _, t := range taps {
				v := int(g.Pix[clamp(y+t.dy, 0, h-1)*g.Stride+clamp(x+t.dx, 0, w-1)])
				diff := v - center
				if diff < 0 {
					diff = -diff
				}
				k := t.weight * colorWeight[diff]
				sum += k * float64(v)
				norm += k
			}
			out.Pix[y*out.Stride+x] = clampByte(sum / norm)
		}
	}
	return out
}
