package fit

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"regress/maths"
	"regress/types"
)

// Engine 单轮拟合引擎
// 对记录源做一次完整遍历，按当前参数与上一轮协方差累加 β、α 与 χ²。
type Engine struct {
	n         int            // 参数个数（含常数项）
	model     Model          // 拟合函数
	baseline  float64        // 基础方差 nManip·u²
	recordCap int            // 每轮最多读取记录数
	log       *logrus.Entry  // 日志
	x         []float64      // 操纵量数值
	df        *mat.VecDense  // ∂f/∂θ
	ddf       *mat.Dense     // ∂²f/∂θ²
	dddf      *maths.Tensor3 // ∂³f/∂θ³
	w         *mat.VecDense  // C·df
	dsi2      *mat.VecDense  // ∂σ²/∂θ
	dsi       *mat.VecDense  // ∂σ/∂θ
	ddsi2     *mat.Dense     // ∂²σ²/∂θ²
	ddsi      *mat.Dense     // ∂²σ/∂θ²
	tmp       *mat.Dense
	quad      *mat.Dense
}

// NewEngine 创建 n 参数引擎
// uncertainty 为单次测量不确定度 u，基础方差为 n·u²（常数项计入操纵量个数）。
func NewEngine(n int, model Model, uncertainty float64, recordCap int, log *logrus.Entry) (*Engine, error) {
	if n < 1 {
		return nil, fmt.Errorf("参数个数必须为正: %d", n)
	}
	if model == nil {
		model = LinearModel{}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{
		n:         n,
		model:     model,
		baseline:  float64(n) * uncertainty * uncertainty,
		recordCap: recordCap,
		log:       log,
		x:         make([]float64, n-1),
		df:        mat.NewVecDense(n, nil),
		ddf:       mat.NewDense(n, n, nil),
		dddf:      maths.NewTensor3(n),
		w:         mat.NewVecDense(n, nil),
		dsi2:      mat.NewVecDense(n, nil),
		dsi:       mat.NewVecDense(n, nil),
		ddsi2:     mat.NewDense(n, n, nil),
		ddsi:      mat.NewDense(n, n, nil),
		tmp:       mat.NewDense(n, n, nil),
		quad:      mat.NewDense(n, n, nil),
	}, nil
}

// Dim 参数个数
func (e *Engine) Dim() int { return e.n }

// limit 本轮读取上限
func (e *Engine) limit(available int) int {
	if e.recordCap <= 0 || e.recordCap > available {
		return available
	}
	return e.recordCap
}

// Pass 遍历记录源一次，结果累加到 acc
// 调用方负责在调用前重置 acc 并回绕记录源。
func (e *Engine) Pass(ctx context.Context, src types.RecordSource, theta mat.Vector, cov mat.Symmetric, acc *Accumulator) error {
	if theta.Len() != e.n {
		return fmt.Errorf("参数维度 %d 与引擎维度 %d 不一致", theta.Len(), e.n)
	}
	if r, _ := cov.Dims(); r != e.n {
		return fmt.Errorf("协方差维度 %d 与引擎维度 %d 不一致", r, e.n)
	}
	limit := e.limit(src.Len())
	trace := e.log.Logger.IsLevelEnabled(logrus.TraceLevel)
	for acc.Stats.Read < limit {
		if acc.Stats.Read%types.CheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		rec, ok, err := src.Next(ctx)
		if err != nil {
			return fmt.Errorf("读取第 %d 条记录: %w", acc.Stats.Read, err)
		}
		if !ok {
			break
		}
		acc.Stats.Read++
		if err := e.record(rec, theta, cov, acc, trace); err != nil {
			return err
		}
	}
	e.log.WithFields(logrus.Fields{
		"read":        acc.Stats.Read,
		"accumulated": acc.Stats.Accumulated,
		"excluded":    acc.Stats.Excluded(),
		"chi2":        acc.Chi2,
	}).Debug("完成一轮遍历")
	return nil
}

// record 处理单条记录
func (e *Engine) record(rec types.Record, theta mat.Vector, cov mat.Symmetric, acc *Accumulator, trace bool) error {
	if rec.ErrorFlag != 0 {
		acc.Stats.Flagged++
		return nil
	}
	if len(rec.Manipulated) != e.n-1 {
		return fmt.Errorf("记录 %d: 操纵量个数 %d 与参数个数 %d 不一致", rec.Entry, len(rec.Manipulated), e.n-1)
	}
	for j, m := range rec.Manipulated {
		if m.Error != 0 {
			acc.Stats.BadManipulated++
			return nil
		}
		e.x[j] = m.Value
	}
	e.df.Zero()
	e.ddf.Zero()
	e.dddf.Zero()
	f := e.model.Eval(theta, e.x, e.df, e.ddf, e.dddf)
	if rec.Responding.Error != 0 {
		acc.Stats.BadResponding++
		return nil
	}
	y := rec.Responding.Value
	r := y - f
	// 回归值保留常数项
	acc.emit(rec.Entry, r+theta.AtVec(e.n-1), y)

	// σ² = 基础方差 + dfᵀ·C·df
	si2 := e.baseline + maths.Quad(e.df, cov)
	var si, chi2 float64
	switch {
	case si2 < 0:
		acc.Stats.Degenerate++
		return nil
	case si2 == 0:
		si, chi2 = 1, r*r
	default:
		si, chi2 = math.Sqrt(si2), r*r/si2
	}
	if trace {
		e.log.Tracef("记录 %d: 函数值 = %f, σ = %f, χ² = %f", rec.Entry, f, si, chi2)
	}
	acc.Chi2 += chi2
	acc.Stats.Accumulated++
	e.accumulate(r, si, cov, acc)
	return nil
}

// accumulate 累加 β 与 α
func (e *Engine) accumulate(r, si float64, cov mat.Symmetric, acc *Accumulator) {
	n := e.n
	e.w.MulVec(cov, e.df)
	// ∂σ²/∂θ = 2·ddfᵀ·w
	e.dsi2.MulVec(e.ddf.T(), e.w)
	e.dsi2.ScaleVec(2, e.dsi2)
	// ∂²σ²/∂θ² = 2·(Σ_i w_i·dddf_i + ddfᵀ·C·ddf)
	e.dddf.ContractFirst(e.w, e.ddsi2)
	e.tmp.Mul(cov, e.ddf)
	e.quad.Mul(e.ddf.T(), e.tmp)
	e.ddsi2.Add(e.ddsi2, e.quad)
	e.ddsi2.Scale(2, e.ddsi2)

	si2 := si * si
	si3 := si2 * si
	si4 := si2 * si2
	e.dsi.ScaleVec(1/(2*si), e.dsi2)
	for j := 0; j < n; j++ {
		for k := 0; k < n; k++ {
			e.ddsi.Set(j, k, e.ddsi2.At(j, k)/(2*si)-e.dsi2.AtVec(j)*e.dsi2.AtVec(k)/(4*si3))
		}
	}

	r2 := r * r
	for j := 0; j < n; j++ {
		dsj, dfj := e.dsi.AtVec(j), e.df.AtVec(j)
		acc.Beta.SetVec(j, acc.Beta.AtVec(j)+2*r2*dsj/si3+2*r*dfj/si2)
		for k := j; k < n; k++ {
			dsk, dfk := e.dsi.AtVec(k), e.df.AtVec(k)
			a := 4*dsj*r*dfk/si3 +
				6*r2*dsj*dsk/si4 -
				2*r2*e.ddsi.At(j, k)/si3 +
				4*r*dsk*dfj/si3 +
				2*dfj*dfk/si2 -
				2*r*e.ddf.At(j, k)/si2
			acc.Alpha.SetSym(j, k, acc.Alpha.At(j, k)+0.5*a)
		}
	}
}
