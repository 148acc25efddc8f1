package finance

import "math"

// filterValidCloses drops points whose close is null, NaN or non-positive,
// keeping timestamp and value arrays aligned.
func filterValidCloses(ts []int64, cl []*float64) ([]int64, []float64) {
	if len(ts) != len(cl) {
		n := len(ts)
		if len(cl) < n {
			n = len(cl)
		}
		ts = ts[:n]
		cl = cl[:n]
	}
	outTs := make([]int64, 0, len(ts))
	outCl := make([]float64, 0, len(cl))
	for i := 0; i < len(ts); i++ {
		if cl[i] == nil || math.IsNaN(*cl[i]) || *cl[i] <= 0 {
			continue
		}
		outTs = append(outTs, ts[i])
		outCl = append(outCl, *cl[i])
	}
	return outTs, outCl
}
