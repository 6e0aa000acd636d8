package reduce

import (
	"fmt"
	"math"
)

// ThicknessFromTransmission infers sample thickness in cm from the
// Beer-Lambert relation d = -ln(T)/mu. Transmission outside
// (0.001, 0.999) makes the inversion numerically unreliable and is
// rejected, as is a non-positive attenuation coefficient.
func ThicknessFromTransmission(trans, muLinearCmInv float64) (float64, error) {
	if math.IsNaN(trans) || trans <= 0.001 || trans >= 0.999 {
		return 0, fmt.Errorf("transmission %g unsuitable for thickness inversion (need 0.001 < T < 0.999)", trans)
	}
	if !(muLinearCmInv > 0) {
		return 0, fmt.Errorf("linear attenuation coefficient must be > 0, got %g", muLinearCmInv)
	}
	return -math.Log(trans) / muLinearCmInv, nil
}

// ProfileHealthIssue checks a reduced absolute-intensity curve for the
// signature of over-subtraction or a broken normalization: nearly all
// points non-positive. Curves with fewer than 50 finite points are too
// short to judge. Returns an empty string when healthy.
func ProfileHealthIssue(iAbs []float64) string {
	var finiteCount, nonPos int
	for _, v := range iAbs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		finiteCount++
		if v <= 0 {
			nonPos++
		}
	}
	if finiteCount < 50 {
		return ""
	}
	frac := float64(nonPos) / float64(finiteCount)
	if frac >= 0.98 {
		return fmt.Sprintf("integration result suspect: %.1f%% of points non-positive (over-subtracted background or wrong normalization)", frac*100)
	}
	return ""
}
