package fit

import (
	"context"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"regress/types"
)

// sliceSource 内存记录源
type sliceSource struct {
	records []types.Record
	pos     int
	rewinds int
}

func (s *sliceSource) Len() int { return len(s.records) }

func (s *sliceSource) Rewind() error {
	s.pos = 0
	s.rewinds++
	return nil
}

func (s *sliceSource) Next(context.Context) (types.Record, bool, error) {
	if s.pos >= len(s.records) {
		return types.Record{}, false, nil
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, true, nil
}

// testUncertainty 默认单次测量不确定度
var testUncertainty = 1.0 / math.Sqrt(types.Rate/types.IntegrationFrequency)

// linearRecords 生成 y = Σ coef_j·x_j + intercept + 噪声 的记录
func linearRecords(seed uint64, n int, coef []float64, intercept, spread, sigma float64) []types.Record {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	xdist := distuv.Normal{Mu: 0, Sigma: spread, Src: src}
	noise := distuv.Normal{Mu: 0, Sigma: sigma, Src: src}
	records := make([]types.Record, n)
	for i := range records {
		manip := make([]types.Measurement, len(coef))
		y := intercept
		for j, c := range coef {
			manip[j].Value = xdist.Rand()
			y += c * manip[j].Value
		}
		if sigma > 0 {
			y += noise.Rand()
		}
		records[i] = types.Record{Entry: i, Manipulated: manip, Responding: types.Measurement{Value: y}}
	}
	return records
}

// recordingObserver 记录回调次数
type recordingObserver struct {
	channel string
	params  []string
	updates []types.Iteration
	errs    []error
}

func (o *recordingObserver) Init(channel string, params []string) {
	o.channel, o.params = channel, params
}

func (o *recordingObserver) Update(_ string, it types.Iteration) { o.updates = append(o.updates, it) }

func (o *recordingObserver) Error(_ string, err error) { o.errs = append(o.errs, err) }
