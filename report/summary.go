package report

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"regress/types"
)

// Summarize 计算分布统计：平均值 ± RMS/sqrt(N)，RMS ± RMS/sqrt(2N)
func Summarize(values []float64) types.Summary {
	n := len(values)
	if n == 0 {
		return types.Summary{}
	}
	mean, rms := stat.PopMeanStdDev(values, nil)
	if math.IsNaN(rms) {
		rms = 0
	}
	return types.Summary{
		N:         n,
		Mean:      mean,
		MeanError: rms / math.Sqrt(float64(n)),
		RMS:       rms,
		RMSError:  rms / math.Sqrt(2*float64(n)),
	}
}

// Values 输出行的数值列
func Values(rows []types.OutputRow) []float64 {
	values := make([]float64, len(rows))
	for i, r := range rows {
		values[i] = r.Value
	}
	return values
}
