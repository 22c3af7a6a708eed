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

// Option 控制器配置
type Option func(c *Controller)

// WithLogger 设置日志
func WithLogger(log *logrus.Entry) Option { return func(c *Controller) { c.log = log } }

// WithObserver 设置迭代观察者
func WithObserver(o types.Observer) Option { return func(c *Controller) { c.observer = o } }

// WithModel 设置拟合函数
func WithModel(m Model) Option { return func(c *Controller) { c.model = m } }

// WithChannel 设置响应通道名
func WithChannel(name string) Option { return func(c *Controller) { c.channel = name } }

// WithNames 设置参数名
func WithNames(names []string) Option { return func(c *Controller) { c.names = names } }

// WithRecordCap 每轮最多读取记录数（<=0 表示全部）
func WithRecordCap(n int) Option { return func(c *Controller) { c.recordCap = n } }

// WithMaxIterations 最大迭代次数
func WithMaxIterations(n int) Option { return func(c *Controller) { c.maxIterations = n } }

// WithTolerance 参数相对变化收敛阈值
func WithTolerance(tol float64) Option { return func(c *Controller) { c.tolerance = tol } }

// WithDamping 参数更新阻尼因子
func WithDamping(d float64) Option { return func(c *Controller) { c.damping = d } }

// WithUncertainty 单次测量不确定度
func WithUncertainty(u float64) Option { return func(c *Controller) { c.uncertainty = u } }

// Controller 迭代拟合控制器
//
// 状态转移：
//
//	Accumulating -> IterateAgain | Converged | Failed
//	IterateAgain -> Accumulating（重置累加量并回绕记录源）
type Controller struct {
	source        types.RecordSource
	engine        *Engine
	acc           *Accumulator
	log           *logrus.Entry
	observer      types.Observer
	model         Model
	channel       string
	names         []string
	recordCap     int
	maxIterations int
	tolerance     float64
	damping       float64
	uncertainty   float64

	state   State
	theta   *mat.VecDense // 当前参数
	weights []float64     // 参数权重
	cov     *mat.SymDense // 上一轮协方差
	delta   *mat.VecDense // 牛顿步长
	history []types.Iteration
}

// NewController 创建控制器
// params 为初始参数（最后一个为常数项），weights 与 params 等长。
func NewController(src types.RecordSource, params, weights []float64, opts ...Option) (*Controller, error) {
	n := len(params)
	if n < 1 {
		return nil, fmt.Errorf("至少需要一个参数")
	}
	if len(weights) != n {
		return nil, fmt.Errorf("权重个数 %d 与参数个数 %d 不一致", len(weights), n)
	}
	c := &Controller{
		source:        src,
		observer:      types.NopObserver{},
		recordCap:     types.RecordCap,
		maxIterations: types.MaxIterations,
		tolerance:     types.Tolerance,
		damping:       types.Damping,
		uncertainty:   1.0 / math.Sqrt(types.Rate/types.IntegrationFrequency),
		theta:         mat.NewVecDense(n, append([]float64{}, params...)),
		weights:       append([]float64{}, weights...),
		cov:           mat.NewSymDense(n, nil),
		delta:         mat.NewVecDense(n, nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logrus.NewEntry(logrus.StandardLogger())
	}
	c.log = c.log.WithField("channel", c.channel)
	if c.names == nil {
		c.names = make([]string, n)
		for j := range c.names {
			c.names[j] = fmt.Sprintf("p%d", j)
		}
	}
	if len(c.names) != n {
		return nil, fmt.Errorf("参数名个数 %d 与参数个数 %d 不一致", len(c.names), n)
	}
	if c.maxIterations < 1 {
		return nil, fmt.Errorf("最大迭代次数必须为正: %d", c.maxIterations)
	}
	var err error
	if c.engine, err = NewEngine(n, c.model, c.uncertainty, c.recordCap, c.log); err != nil {
		return nil, err
	}
	c.acc = NewAccumulator(n)
	return c, nil
}

// State 当前状态
func (c *Controller) State() State { return c.state }

// Run 迭代至收敛、失败或达到最大迭代次数
// 未收敛时返回当前最优结果与包装 ErrNotConverged 的错误；
// 曲率矩阵不可逆时返回 *SingularMatrixError，结果为空。
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	c.observer.Init(c.channel, c.names)
	if err := c.enter(Accumulating); err != nil {
		return nil, c.fail(err)
	}
	for !c.state.Terminal() {
		switch c.state {
		case Accumulating:
			next, err := c.iterate(ctx)
			if err != nil {
				return nil, c.fail(err)
			}
			c.state = next
		case IterateAgain:
			if len(c.history) >= c.maxIterations {
				res := c.result(false)
				c.log.Warnf("%d 次迭代后仍未收敛", len(c.history))
				return res, fmt.Errorf("%s: %d 次迭代后: %w", c.channel, len(c.history), ErrNotConverged)
			}
			if err := c.enter(Accumulating); err != nil {
				return nil, c.fail(err)
			}
		default:
			return nil, fmt.Errorf("%s: 非法状态 %s", c.channel, c.state)
		}
	}
	res := c.result(true)
	c.log.Infof("%d 次迭代后收敛", res.Iterations)
	return res, nil
}

// enter 进入新状态并执行转移动作
func (c *Controller) enter(s State) error {
	if s == Accumulating {
		c.acc.Reset()
		if err := c.source.Rewind(); err != nil {
			return fmt.Errorf("回绕记录源: %w", err)
		}
	}
	c.state = s
	return nil
}

// fail 转入失败状态
func (c *Controller) fail(err error) error {
	c.state = Failed
	c.observer.Error(c.channel, err)
	c.log.WithError(err).Error("拟合失败")
	return err
}

// iterate 执行一轮遍历与参数更新，返回下一状态
func (c *Controller) iterate(ctx context.Context) (State, error) {
	index := len(c.history)
	it := types.Iteration{Index: index, Params: append([]float64{}, c.theta.RawVector().Data...)}
	if err := c.engine.Pass(ctx, c.source, c.theta, c.cov, c.acc); err != nil {
		return Failed, err
	}
	inv := maths.Invert(c.acc.Alpha)
	if !inv.OK() {
		return Failed, &SingularMatrixError{Channel: c.channel, Iteration: index, Err: inv.Err}
	}
	c.cov = inv.Inverse
	c.delta.MulVec(c.cov, c.acc.Beta)

	n := c.theta.Len()
	it.Delta = make([]float64, n)
	it.RelChange = make([]types.Ratio, n)
	again := false
	for j := 0; j < n; j++ {
		old, d := c.theta.AtVec(j), c.delta.AtVec(j)
		rel := math.Inf(1)
		if old != 0 {
			rel = math.Abs((old+d)/old - 1)
		}
		// 上一轮为0或出现 NaN 时无法判断，继续迭代
		if !(rel <= c.tolerance) {
			again = true
		}
		c.theta.SetVec(j, old+c.damping*d)
		it.Delta[j] = d
		it.RelChange[j] = types.Ratio(rel)
	}
	it.Chi2 = c.acc.Chi2
	it.Stats = c.acc.Stats
	c.history = append(c.history, it)
	c.observer.Update(c.channel, it)
	c.log.WithFields(logrus.Fields{
		"iteration": index,
		"chi2":      it.Chi2,
		"converged": !again,
	}).Debug("完成一次迭代")
	if again {
		return IterateAgain, nil
	}
	return Converged, nil
}

// result 汇总当前结果
func (c *Controller) result(converged bool) *Result {
	n := c.theta.Len()
	res := &Result{
		Channel:    c.channel,
		Names:      append([]string{}, c.names...),
		Params:     append([]float64{}, c.theta.RawVector().Data...),
		Weights:    append([]float64{}, c.weights...),
		Errors:     make([]float64, n),
		Covariance: mat.NewSymDense(n, nil),
		Alpha:      mat.NewSymDense(n, nil),
		Beta:       mat.VecDenseCopyOf(c.acc.Beta),
		Chi2:       c.acc.Chi2,
		Converged:  converged,
		Iterations: len(c.history),
		Stats:      c.acc.Stats,
		Rows:       append([]types.OutputRow{}, c.acc.Rows...),
		Raw:        append([]float64{}, c.acc.Raw...),
		History:    c.history,
	}
	res.Covariance.CopySym(c.cov)
	res.Alpha.CopySym(c.acc.Alpha)
	for j := 0; j < n; j++ {
		res.Errors[j] = math.Sqrt(math.Max(0, c.cov.At(j, j)))
	}
	res.DegreesOfFreedom = c.acc.Stats.Accumulated - n
	if res.DegreesOfFreedom > 0 {
		res.ReducedChi2 = res.Chi2 / float64(res.DegreesOfFreedom)
	}
	for j, name := range res.Names {
		c.log.Infof("参数 %s ± 误差 = %5.3e ± %5.3e", name, res.Params[j], res.Errors[j])
	}
	c.log.Infof("χ² = %g, 自由度 = %d, χ²/ndf = %g", res.Chi2, res.DegreesOfFreedom, res.ReducedChi2)
	return res
}
