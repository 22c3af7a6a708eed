package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"regress"
	"regress/config"
	"regress/report"
	"regress/types"
)

type fitFlags struct {
	config    string
	data      string
	options   string
	recordCap int
	maxIter   int
	out       string
	charts    bool
	plots     bool
	compress  bool
	workers   int
	trace     string
	serve     string
}

func newFitCmd() *cobra.Command {
	f := &fitFlags{}
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "拟合全部响应量并输出结果",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFit(cmd, f)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.config, "config", "regressionInput.txt", "通道配置文件")
	flags.StringVar(&f.data, "data", "", "数据文件（CSV，可为 .zst 压缩）")
	flags.StringVar(&f.options, "options", "", "YAML 运行参数")
	flags.IntVar(&f.recordCap, "record-cap", types.RecordCap, "每轮最多读取记录数（<=0 表示全部）")
	flags.IntVar(&f.maxIter, "max-iter", types.MaxIterations, "最大迭代次数")
	flags.StringVar(&f.out, "out", ".", "输出目录")
	flags.BoolVar(&f.charts, "charts", false, "输出 HTML 图表")
	flags.BoolVar(&f.plots, "plots", false, "输出 PNG 直方图")
	flags.BoolVar(&f.compress, "compress", false, "zstd 压缩输出")
	flags.IntVar(&f.workers, "workers", 1, "并行拟合的响应量个数（0 表示 CPU 数）")
	flags.StringVar(&f.trace, "trace", "", "写出迭代记录 JSON")
	flags.StringVar(&f.serve, "serve", "", "拟合完成后在该地址发布图表页面")
	cmd.MarkFlagRequired("data")
	return cmd
}

// load 加载 YAML 参数，命令行显式指定的参数优先
func (f *fitFlags) load(cmd *cobra.Command) (config.Options, error) {
	opts := config.DefaultOptions()
	if f.options != "" {
		var err error
		if opts, err = config.LoadOptions(f.options); err != nil {
			return opts, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("record-cap") {
		opts.RecordCap = f.recordCap
	}
	if flags.Changed("max-iter") {
		opts.MaxIterations = f.maxIter
	}
	if flags.Changed("out") {
		opts.OutputDir = f.out
	}
	if flags.Changed("workers") {
		opts.Workers = f.workers
	}
	opts.Charts = opts.Charts || f.charts
	opts.Plots = opts.Plots || f.plots
	opts.Compress = opts.Compress || f.compress
	return opts, opts.Validate()
}

func runFit(cmd *cobra.Command, f *fitFlags) error {
	logger := setupLogger()
	opts, err := f.load(cmd)
	if err != nil {
		return err
	}
	r, err := regress.Load(f.config, f.data, opts)
	if err != nil {
		return err
	}
	r.Logger = logger
	record := report.NewRecord()
	r.Observer = record

	ctx := cmd.Context()
	rep, err := r.Run(ctx)
	if f.trace != "" {
		if terr := record.Save(f.trace); terr != nil {
			logger.WithError(terr).Error("写出迭代记录")
		}
	}
	if err != nil {
		return err
	}
	sinks, closeFn, err := regress.Sinks(opts)
	if err != nil {
		return err
	}
	defer closeFn()
	var page *report.Charts
	if f.serve != "" {
		page = &report.Charts{Dir: opts.OutputDir}
		sinks = append(sinks, page)
	}
	if err := regress.Publish(ctx, rep, sinks...); err != nil {
		return err
	}
	logger.WithField("dir", opts.OutputDir).Info("结果已输出")
	if page != nil {
		return serve(ctx, f.serve, page, logger)
	}
	return nil
}

// serve 发布图表页面直到收到中断
func serve(ctx context.Context, addr string, page *report.Charts, logger *logrus.Logger) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", page.Handler)
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdown)
	}()
	logger.Infof("图表页面: http://%s/", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
