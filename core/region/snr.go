// core/region/snr.go
package region

import (
	"fmt"

	"xga-core/products"
)

// SignalToNoise sums a ratemap under the (interloper-corrected) source and
// background masks, normalises by the respective live pixel counts and
// returns the ratio of background-subtracted source signal to the background
// level in the aperture. With allowNegative false, each source pixel's
// background-subtracted contribution is clipped at zero.
func SignalToNoise(rm *products.RateMap, srcMask, bgMask []bool, allowNegative bool) (float64, error) {
	bgSum, bgPix, err := rm.SumUnderMask(bgMask)
	if err != nil {
		return 0, err
	}
	if bgPix == 0 || bgSum <= 0 {
		return 0, fmt.Errorf("signal-to-noise: background mask has no signal")
	}
	perPixBg := bgSum / float64(bgPix)

	d, rates, err := rm.Data()
	if err != nil {
		return 0, err
	}
	if len(srcMask) != d.Width*d.Height {
		return 0, fmt.Errorf("source mask length %d does not match grid %dx%d", len(srcMask), d.Width, d.Height)
	}

	var sig float64
	srcPix := 0
	for i, in := range srcMask {
		if !in {
			continue
		}
		on, err := rm.OnSensor(i%d.Width, i/d.Width)
		if err != nil {
			return 0, err
		}
		if !on {
			continue
		}
		c := float64(rates[i]) - perPixBg
		if c < 0 && !allowNegative {
			c = 0
		}
		sig += c
		srcPix++
	}
	if srcPix == 0 {
		return 0, fmt.Errorf("signal-to-noise: source mask covers no live pixels")
	}
	return (sig / float64(srcPix)) / perPixBg, nil
}
