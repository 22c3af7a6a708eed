package regress

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"regress/config"
	"regress/fit"
	"regress/report"
	"regress/table"
	"regress/types"
)

// Regressor 相关性回归：对每个响应量拟合其与全部操纵量的线性相关系数
type Regressor struct {
	Channels *config.Channels // 通道配置
	Table    *table.Table     // 记录数据
	Source   string           // 数据来源
	Options  config.Options   // 运行参数
	Logger   *logrus.Logger   // 日志
	Observer types.Observer   // 迭代观察者
}

// NewRegressor 初始化
func NewRegressor(channels *config.Channels, tab *table.Table, opts config.Options) *Regressor {
	return &Regressor{
		Channels: channels,
		Table:    tab,
		Options:  opts,
		Logger:   logrus.StandardLogger(),
		Observer: types.NopObserver{},
	}
}

// Load 加载通道配置与数据文件
func Load(configFile, dataFile string, opts config.Options) (*Regressor, error) {
	channels, err := config.LoadChannels(configFile, opts.Delim())
	if err != nil {
		return nil, fmt.Errorf("加载通道配置: %w", err)
	}
	tab, err := table.Load(dataFile)
	if err != nil {
		return nil, fmt.Errorf("加载数据: %w", err)
	}
	r := NewRegressor(channels, tab, opts)
	r.Source = dataFile
	return r, nil
}

// Fit 拟合第 i 个响应量
// 未收敛时同时返回结果与包装 fit.ErrNotConverged 的错误。
func (r *Regressor) Fit(ctx context.Context, i int) (*types.ChannelReport, error) {
	cur, err := r.Table.Bind(r.Channels, i)
	if err != nil {
		return nil, err
	}
	name := r.Channels.Responding[i].Name
	params, weights := r.Channels.InitialParams()
	c, err := fit.NewController(cur, params, weights,
		fit.WithChannel(name),
		fit.WithNames(r.Channels.ParamNames()),
		fit.WithLogger(logrus.NewEntry(r.Logger)),
		fit.WithObserver(r.Observer),
		fit.WithRecordCap(r.Options.RecordCap),
		fit.WithMaxIterations(r.Options.MaxIterations),
		fit.WithTolerance(r.Options.Tolerance),
		fit.WithDamping(r.Options.Damping),
		fit.WithUncertainty(r.Options.Uncertainty()),
	)
	if err != nil {
		return nil, err
	}
	res, err := c.Run(ctx)
	if res == nil {
		return nil, err
	}
	return r.channelReport(name, res), err
}

// channelReport 拟合结果转换为通道报告
func (r *Regressor) channelReport(name string, res *fit.Result) *types.ChannelReport {
	ch := &types.ChannelReport{
		Name:             name,
		Column:           types.RegressedPrefix + name,
		Converged:        res.Converged,
		Iterations:       res.Iterations,
		Parameters:       res.Parameters(),
		Covariance:       res.CovarianceRows(),
		Chi2:             res.Chi2,
		ReducedChi2:      res.ReducedChi2,
		DegreesOfFreedom: res.DegreesOfFreedom,
		Stats:            res.Stats,
		History:          res.History,
		Rows:             res.Rows,
		Raw:              res.Raw,
		Regressed:        report.Summarize(report.Values(res.Rows)),
		Original:         report.Summarize(res.Raw),
	}
	log := r.Logger.WithField("channel", name)
	log.Infof("%s 平均值 = %5.3e ± %5.3e, RMS = %5.3e ± %5.3e",
		ch.Column, ch.Regressed.Mean, ch.Regressed.MeanError, ch.Regressed.RMS, ch.Regressed.RMSError)
	log.Infof("%s 平均值 = %5.3e ± %5.3e, RMS = %5.3e ± %5.3e",
		name, ch.Original.Mean, ch.Original.MeanError, ch.Original.RMS, ch.Original.RMSError)
	return ch
}

// workers 并行拟合数
func (r *Regressor) workers() int {
	if r.Options.Workers > 0 {
		return r.Options.Workers
	}
	return runtime.NumCPU()
}

// Run 拟合全部响应量
// 任一通道致命失败（曲率矩阵不可逆、读取错误、取消）时取消其余通道并返回错误；
// 未收敛的通道保留在结果中（Converged=false）。
func (r *Regressor) Run(ctx context.Context) (*types.Report, error) {
	rep := &types.Report{
		RunID:    uuid.NewString(),
		Created:  time.Now(),
		Source:   r.Source,
		Digest:   r.Table.Digest(),
		Entries:  r.Table.Len(),
		Channels: make([]*types.ChannelReport, len(r.Channels.Responding)),
	}
	flagged, err := r.flagged()
	if err != nil {
		return nil, err
	}
	r.Logger.WithFields(logrus.Fields{
		"run_id":      rep.RunID,
		"entries":     rep.Entries,
		"flagged":     flagged,
		"responding":  len(r.Channels.Responding),
		"manipulated": len(r.Channels.Manipulated),
	}).Info("开始回归")
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for i := range r.Channels.Responding {
		g.Go(func() error {
			ch, err := r.Fit(ctx, i)
			switch {
			case errors.Is(err, fit.ErrNotConverged):
				r.Logger.WithError(err).Warn("通道未收敛，保留当前结果")
				err = nil
			case errors.Is(err, fit.ErrSingularMatrix):
				r.Logger.WithError(err).Error("曲率矩阵不可逆，终止全部通道")
			}
			if err != nil {
				return err
			}
			rep.Channels[i] = ch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rep, nil
}

// flagged 全局错误标记非零的记录数
func (r *Regressor) flagged() (int, error) {
	flags, err := r.Table.Column(r.Channels.GlobalErrorColumn)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, f := range flags {
		if f != 0 {
			n++
		}
	}
	return n, nil
}

// Publish 发布结果
func Publish(ctx context.Context, rep *types.Report, sinks ...types.Sink) error {
	return report.Multi(sinks).Publish(ctx, rep)
}
