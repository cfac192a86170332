package metrics

import "math"

// computeMean calculates the arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computeCV returns stddev/mean, or nil when fewer than minN values or a zero mean.
func computeCV(values []float64, minN int) *float64 {
	if len(values) < minN || len(values) < 2 {
		return nil
	}
	mean := computeMean(values)
	if mean <= 0 {
		return nil
	}
	return ptr(computeStddev(values, mean) / mean)
}

// computeRatio returns num/den, or nil when den is not positive.
func computeRatio(num, den float64) *float64 {
	if den <= 0 {
		return nil
	}
	return ptr(num / den)
}

func ptr(v float64) *float64 {
	return &v
}
