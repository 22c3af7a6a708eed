package fit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"regress/maths"
	"regress/types"
)

func TestLinearModelEval(t *testing.T) {
	theta := mat.NewVecDense(3, []float64{2, -1, 0.5})
	df := mat.NewVecDense(3, nil)
	ddf := mat.NewDense(3, 3, nil)
	dddf := maths.NewTensor3(3)
	f := LinearModel{}.Eval(theta, []float64{3, 4}, df, ddf, dddf)
	assert.InDelta(t, 2*3-4+0.5, f, 1e-12)
	assert.Equal(t, []float64{3, 4, 1}, df.RawVector().Data)
	assert.Zero(t, maths.MaxAbs(ddf))
}

func TestEngineRecordClassification(t *testing.T) {
	m := func(v, e float64) types.Measurement { return types.Measurement{Value: v, Error: e} }
	src := &sliceSource{records: []types.Record{
		{Entry: 0, Manipulated: []types.Measurement{m(1, 0)}, Responding: m(2, 0)},
		{Entry: 1, ErrorFlag: 1, Manipulated: []types.Measurement{m(1, 0)}, Responding: m(2, 0)},
		{Entry: 2, Manipulated: []types.Measurement{m(1, 3)}, Responding: m(2, 0)},
		{Entry: 3, Manipulated: []types.Measurement{m(1, 0)}, Responding: m(2, 1)},
		{Entry: 4, Manipulated: []types.Measurement{m(2, 0)}, Responding: m(5, 0)},
	}}
	e, err := NewEngine(2, nil, testUncertainty, 0, nil)
	require.NoError(t, err)
	acc := NewAccumulator(2)
	theta := mat.NewVecDense(2, []float64{1, 0.5})
	require.NoError(t, e.Pass(context.Background(), src, theta, mat.NewSymDense(2, nil), acc))

	assert.Equal(t, types.PassStats{Read: 5, Flagged: 1, BadManipulated: 1, BadResponding: 1, Accumulated: 2, Emitted: 2}, acc.Stats)
	assert.Equal(t, 3, acc.Stats.Excluded())
	require.Len(t, acc.Rows, 2)
	// 回归值 = y - f + θ_常数项
	assert.Equal(t, 0, acc.Rows[0].Entry)
	assert.InDelta(t, 2-1.5+0.5, acc.Rows[0].Value, 1e-12)
	assert.Equal(t, 4, acc.Rows[1].Entry)
	assert.InDelta(t, 5-2.5+0.5, acc.Rows[1].Value, 1e-12)
	assert.Equal(t, []float64{2, 5}, acc.Raw)
}

func TestEngineFirstPassIsLeastSquares(t *testing.T) {
	// 协方差为零时 σ² 为常数，α⁻¹β = 2(θ̂-θ)
	coef := []float64{0.5, -0.2}
	src := &sliceSource{records: linearRecords(1, 200, coef, 0.02, 1, 0)}
	e, err := NewEngine(3, LinearModel{}, testUncertainty, 0, nil)
	require.NoError(t, err)
	acc := NewAccumulator(3)
	require.NoError(t, e.Pass(context.Background(), src, mat.NewVecDense(3, nil), mat.NewSymDense(3, nil), acc))

	inv := maths.Invert(acc.Alpha)
	require.True(t, inv.OK(), "求逆失败: %v", inv.Err)
	var delta mat.VecDense
	delta.MulVec(inv.Inverse, acc.Beta)
	want := []float64{1.0, -0.4, 0.04}
	for j, w := range want {
		assert.InDelta(t, w, delta.AtVec(j), 1e-9, "参数 %d", j)
	}
}

func TestEngineBaselineVariance(t *testing.T) {
	// 基础方差 = 参数个数(含常数项)·u²
	src := &sliceSource{records: []types.Record{{
		Manipulated: make([]types.Measurement, 3),
		Responding:  types.Measurement{Value: 1e-4},
	}}}
	e, err := NewEngine(4, nil, testUncertainty, 0, nil)
	require.NoError(t, err)
	acc := NewAccumulator(4)
	require.NoError(t, e.Pass(context.Background(), src, mat.NewVecDense(4, nil), mat.NewSymDense(4, nil), acc))
	want := 1e-8 / (4 * testUncertainty * testUncertainty)
	assert.InDelta(t, want, acc.Chi2, 1e-12)
	assert.InDelta(t, 0.010417, acc.Chi2, 1e-6)
	assert.InDelta(t, 2*1e-4/(4*testUncertainty*testUncertainty), acc.Beta.AtVec(3), 1e-9)

	// 单个操纵量时基础方差为 2u²，不走单位权重分支
	src = &sliceSource{records: []types.Record{{
		Manipulated: make([]types.Measurement, 1),
		Responding:  types.Measurement{Value: 1e-4},
	}}}
	e, err = NewEngine(2, nil, testUncertainty, 0, nil)
	require.NoError(t, err)
	acc = NewAccumulator(2)
	require.NoError(t, e.Pass(context.Background(), src, mat.NewVecDense(2, nil), mat.NewSymDense(2, nil), acc))
	assert.InDelta(t, 1e-8/(2*testUncertainty*testUncertainty), acc.Chi2, 1e-12)
}

func TestEngineInvalidRowsDoNotContribute(t *testing.T) {
	valid := linearRecords(6, 50, []float64{0.5, -0.2}, 0.02, 1e-3, 1e-3)
	mixed := make([]types.Record, 0, 2*len(valid))
	for i, rec := range valid {
		bad := types.Record{
			Entry:       i,
			Manipulated: []types.Measurement{{Value: 1e6}, {Value: -1e6, Error: 1}},
			Responding:  types.Measurement{Value: 1e9},
		}
		mixed = append(mixed, rec, bad)
	}
	run := func(records []types.Record) *Accumulator {
		e, err := NewEngine(3, nil, testUncertainty, 0, nil)
		require.NoError(t, err)
		acc := NewAccumulator(3)
		theta := mat.NewVecDense(3, []float64{0.3, -0.1, 0.01})
		require.NoError(t, e.Pass(context.Background(), &sliceSource{records: records}, theta, mat.NewSymDense(3, nil), acc))
		return acc
	}
	want, got := run(valid), run(mixed)
	assert.Equal(t, len(valid), got.Stats.BadManipulated)
	assert.Equal(t, want.Chi2, got.Chi2)
	assert.True(t, mat.Equal(want.Beta, got.Beta))
	assert.True(t, mat.Equal(want.Alpha, got.Alpha))
	assert.Equal(t, want.Rows, got.Rows)
}

func TestEngineRecordCap(t *testing.T) {
	src := &sliceSource{records: linearRecords(2, 10, []float64{1}, 0, 1, 0)}
	e, err := NewEngine(2, nil, testUncertainty, 3, nil)
	require.NoError(t, err)
	acc := NewAccumulator(2)
	require.NoError(t, e.Pass(context.Background(), src, mat.NewVecDense(2, nil), mat.NewSymDense(2, nil), acc))
	assert.Equal(t, 3, acc.Stats.Read)
	assert.Equal(t, 3, src.pos)

	// 上限大于记录数时读取全部
	e, err = NewEngine(2, nil, testUncertainty, 100, nil)
	require.NoError(t, err)
	acc.Reset()
	src.pos = 0
	require.NoError(t, e.Pass(context.Background(), src, mat.NewVecDense(2, nil), mat.NewSymDense(2, nil), acc))
	assert.Equal(t, 10, acc.Stats.Read)
}

func TestEngineDegenerateVariance(t *testing.T) {
	src := &sliceSource{records: []types.Record{{
		Manipulated: []types.Measurement{{Value: 1}},
		Responding:  types.Measurement{Value: 3},
	}}}
	e, err := NewEngine(2, nil, testUncertainty, 0, nil)
	require.NoError(t, err)
	acc := NewAccumulator(2)
	cov := mat.NewSymDense(2, []float64{-1, 0, 0, -1})
	require.NoError(t, e.Pass(context.Background(), src, mat.NewVecDense(2, nil), cov, acc))
	assert.Equal(t, 1, acc.Stats.Degenerate)
	assert.Equal(t, 0, acc.Stats.Accumulated)
	assert.Equal(t, 1, acc.Stats.Emitted)
	assert.Zero(t, acc.Chi2)
	assert.Zero(t, maths.MaxAbs(acc.Alpha))
}

func TestEngineZeroVarianceUsesUnitWeight(t *testing.T) {
	m := func(v float64) types.Measurement { return types.Measurement{Value: v} }
	src := &sliceSource{records: []types.Record{
		{Manipulated: []types.Measurement{m(1)}, Responding: m(3)},
		{Manipulated: []types.Measurement{m(2)}, Responding: m(1)},
	}}
	e, err := NewEngine(2, nil, 0, 0, nil)
	require.NoError(t, err)
	acc := NewAccumulator(2)
	require.NoError(t, e.Pass(context.Background(), src, mat.NewVecDense(2, nil), mat.NewSymDense(2, nil), acc))
	assert.Equal(t, 2, acc.Stats.Accumulated)
	assert.InDelta(t, 9.0+1.0, acc.Chi2, 1e-12)
	// β_j = 2·r·df_j
	assert.InDelta(t, 2*3*1+2*1*2, acc.Beta.AtVec(0), 1e-12)
	assert.InDelta(t, 2*3+2*1, acc.Beta.AtVec(1), 1e-12)
	// α_jk = df_j·df_k
	assert.InDelta(t, 1.0+4.0, acc.Alpha.At(0, 0), 1e-12)
	assert.InDelta(t, 1.0+2.0, acc.Alpha.At(0, 1), 1e-12)
	assert.InDelta(t, 2.0, acc.Alpha.At(1, 1), 1e-12)
}

func TestEngineCancelled(t *testing.T) {
	src := &sliceSource{records: linearRecords(3, 10, []float64{1}, 0, 1, 0)}
	e, err := NewEngine(2, nil, testUncertainty, 0, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = e.Pass(ctx, src, mat.NewVecDense(2, nil), mat.NewSymDense(2, nil), NewAccumulator(2))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestEngineDimensionMismatch(t *testing.T) {
	src := &sliceSource{records: linearRecords(4, 2, []float64{1, 2}, 0, 1, 0)}
	e, err := NewEngine(2, nil, testUncertainty, 0, nil)
	require.NoError(t, err)
	err = e.Pass(context.Background(), src, mat.NewVecDense(2, nil), mat.NewSymDense(2, nil), NewAccumulator(2))
	assert.Error(t, err)

	_, err = NewEngine(0, nil, testUncertainty, 0, nil)
	assert.Error(t, err)
}

func BenchmarkEnginePass(b *testing.B) {
	src := &sliceSource{records: linearRecords(5, 5000, []float64{0.5, -0.2, 0.1}, 0.02, 1e-3, 1e-3)}
	e, err := NewEngine(4, nil, testUncertainty, 0, nil)
	if err != nil {
		b.Fatal(err)
	}
	acc := NewAccumulator(4)
	theta := mat.NewVecDense(4, []float64{0.5, -0.2, 0.1, 0.02})
	cov := mat.NewSymDense(4, nil)
	for i := 0; i < 4; i++ {
		cov.SetSym(i, i, 1e-6)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		acc.Reset()
		src.pos = 0
		if err := e.Pass(context.Background(), src, theta, cov, acc); err != nil {
			b.Fatal(err)
		}
	}
}
