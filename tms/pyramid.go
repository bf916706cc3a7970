package tms

// BuildPyramid fills a sparse level→resolution mapping into a dense slice
// covering minLevel through maxLevel inclusive, indexed by level-minLevel.
//
// Known resolutions stay untouched at their levels. Missing entries are
// synthesized by one downward sweep (doubling toward coarser levels) and one
// upward sweep (halving toward finer levels). A level that neither sweep can
// anchor receives the explicit placeholder 1.0 instead of being dropped, so
// the result is always fully populated.
func BuildPyramid(known map[int]float64, minLevel, maxLevel int) []float64 {
	if minLevel > maxLevel {
		return nil
	}
	resolutions := make([]float64, maxLevel-minLevel+1)
	for level, resolution := range known {
		if level < minLevel || level > maxLevel || resolution <= 0 {
			continue
		}
		resolutions[level-minLevel] = resolution
	}
	for i := len(resolutions) - 2; i >= 0; i-- {
		if resolutions[i] == 0 && resolutions[i+1] > 0 {
			resolutions[i] = 2 * resolutions[i+1]
		}
	}
	for i := 1; i < len(resolutions); i++ {
		if resolutions[i] == 0 && resolutions[i-1] > 0 {
			resolutions[i] = resolutions[i-1] / 2
		}
	}
	for i := range resolutions {
		if resolutions[i] == 0 {
			resolutions[i] = 1.0
		}
	}
	return resolutions
}
