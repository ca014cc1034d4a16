package dice

// Stats summarizes a sequence of roll totals.
type Stats struct {
	Count int
	Min   int
	Max   int
	Mean  float64
}

// ComputeStats returns count, min, max and mean of values.
//
// Postcondition: returns (Stats{}, false) iff len(values) == 0. The sum is
// accumulated in an int64 so large batches cannot overflow on 32-bit platforms.
func ComputeStats(values []int) (Stats, bool) {
	if len(values) == 0 {
		return Stats{}, false
	}

	s := Stats{Count: len(values), Min: values[0], Max: values[0]}
	var sum int64
	for _, v := range values {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
		sum += int64(v)
	}
	s.Mean = float64(sum) / float64(s.Count)
	return s, true
}
