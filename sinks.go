package regress

import (
	"os"

	"regress/config"
	"regress/report"
	"regress/types"
)

// Sinks 按运行参数创建输出，close 用于释放连接
func Sinks(opts config.Options) (sinks []types.Sink, closeFn func(), err error) {
	closeFn = func() {}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, closeFn, err
	}
	sinks = append(sinks,
		report.JSON{Dir: opts.OutputDir},
		report.CSV{Dir: opts.OutputDir, Compress: opts.Compress},
	)
	if opts.Charts {
		sinks = append(sinks, &report.Charts{Dir: opts.OutputDir})
	}
	if opts.Plots {
		sinks = append(sinks, report.Plots{Dir: opts.OutputDir})
	}
	if opts.Influx.URL != "" {
		influx, err := report.NewInflux(opts.Influx)
		if err != nil {
			return nil, closeFn, err
		}
		sinks = append(sinks, influx)
		closeFn = influx.Close
	}
	return sinks, closeFn, nil
}
