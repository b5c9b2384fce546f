package pulse

import "math"

// minScale floors the normalisation denominator so all-zero families do not divide by zero
const minScale = 0.01

// scale maps v onto 0-100 relative to peak, capped at 100
func scale(v, peak float64) float64 {
	return math.Min(100, (v/peak)*100)
}

// normalizeFlat rescales a date -> score family so its maximum becomes 100
func normalizeFlat(family map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(family))
	if len(family) == 0 {
		return out
	}

	peak := minScale
	for _, v := range family {
		peak = math.Max(peak, v)
	}
	for k, v := range family {
		out[k] = scale(v, peak)
	}
	return out
}

// normalizeNested rescales a date -> label -> score family against one maximum
// taken over every (date, label) pair, keeping dates and labels comparable.
func normalizeNested(family map[string]map[string]float64) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(family))
	if len(family) == 0 {
		return out
	}

	peak := minScale
	for _, labels := range family {
		for _, v := range labels {
			peak = math.Max(peak, v)
		}
	}
	for date, labels := range family {
		scaled := make(map[string]float64, len(labels))
		for label, v := range labels {
			scaled[label] = scale(v, peak)
		}
		out[date] = scaled
	}
	return out
}

// addNested adds v at family[date][label], creating the inner map on first use
func addNested(family map[string]map[string]float64, date, label string, v float64) {
	labels, ok := family[date]
	if !ok {
		labels = make(map[string]float64)
		family[date] = labels
	}
	labels[label] += v
}
