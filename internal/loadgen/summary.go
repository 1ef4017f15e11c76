package loadgen

import (
	"errors"

	mstats "github.com/montanaflynn/stats"
)

// Summary describes a sample of measurements.
type Summary struct {
	Count  int
	Min    float64
	Mean   float64
	Median float64
	P95    float64
	Max    float64
}

// summarize reduces values to a Summary. An empty sample gives the zero
// Summary.
func summarize(values []float64) (Summary, error) {
	if len(values) == 0 {
		return Summary{}, nil
	}
	data := mstats.Float64Data(values)
	var (
		s    = Summary{Count: len(values)}
		errs []error
		err  error
	)
	s.Min, err = data.Min()
	errs = append(errs, err)
	s.Mean, err = data.Mean()
	errs = append(errs, err)
	s.Median, err = data.Median()
	errs = append(errs, err)
	s.P95, err = data.Percentile(95)
	errs = append(errs, err)
	s.Max, err = data.Max()
	errs = append(errs, err)
	if err := errors.Join(errs...); err != nil {
		return Summary{}, err
	}
	return s, nil
}
