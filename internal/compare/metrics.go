package compare

import "math"

// Metrics are aggregate error measures over the color channels of two views.
// The alpha channel of 4-channel views is ignored.
type Metrics struct {
	MSE  float64
	PSNR float64
	SAD  uint64
}

// Measure computes mean squared error, PSNR in dB and the sum of absolute
// differences. Identical inputs report an infinite PSNR.
func Measure(ref, act View) (Metrics, error) {
	if err := checkPair(ref, act); err != nil {
		return Metrics{}, err
	}
	ch := min(ref.Channels, 3)
	rs, as := ref.stride(), act.stride()

	var sq, sad uint64
	for y := 0; y < ref.Height; y++ {
		r := ref.Pix[y*rs:]
		a := act.Pix[y*as:]
		for x := 0; x < ref.Width; x++ {
			for c := 0; c < ch; c++ {
				d := int64(r[x*ref.Channels+c]) - int64(a[x*ref.Channels+c])
				if d < 0 {
					d = -d
				}
				sad += uint64(d)
				sq += uint64(d * d)
			}
		}
	}

	n := ref.Width * ref.Height * ch
	mse := float64(sq) / float64(n)
	psnr := math.Inf(1)
	if mse > 0 {
		psnr = 10 * math.Log10(255*255/mse)
	}
	return Metrics{MSE: mse, PSNR: psnr, SAD: sad}, nil
}
