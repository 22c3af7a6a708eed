package report

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Histogram 等宽直方图
type Histogram struct {
	Centers []float64 // 区间中心
	Counts  []float64 // 区间计数
}

// NewHistogram 在 [min,max] 上对所有样本集统一分箱
func NewHistogram(bins int, samples ...[]float64) []Histogram {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range samples {
		if len(s) == 0 {
			continue
		}
		lo = math.Min(lo, floats.Min(s))
		hi = math.Max(hi, floats.Max(s))
	}
	if bins < 1 || math.IsInf(lo, 0) {
		return make([]Histogram, len(samples))
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	dividers := make([]float64, bins+1)
	floats.Span(dividers, lo, hi)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	centers := make([]float64, bins)
	for i := range centers {
		centers[i] = 0.5 * (dividers[i] + dividers[i+1])
	}
	out := make([]Histogram, len(samples))
	for i, s := range samples {
		sorted := slices.Clone(s)
		slices.Sort(sorted)
		out[i] = Histogram{
			Centers: centers,
			Counts:  stat.Histogram(nil, dividers, sorted, nil),
		}
	}
	return out
}
