package pattern

import "gonum.org/v1/gonum/stat"

// Confidence scores how much the pooled scores agree:
// max(0, 1 - populationStdDev/2). A single score is fully confident.
func Confidence(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	return clamp(1-stat.PopStdDev(scores, nil)/2, 0, 1)
}
