package report

import (
	"context"
	"fmt"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"regress/types"
)

// Plots 写出每个通道回归前后的 PNG 直方图：reg_<name>.png 与 <name>.png
type Plots struct {
	Dir string // 输出目录
}

// Publish 实现 types.Sink
func (s Plots) Publish(ctx context.Context, report *types.Report) error {
	for _, ch := range report.Channels {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.save(ch.Column, ch.Regressed, Values(ch.Rows)); err != nil {
			return fmt.Errorf("%s: %w", ch.Column, err)
		}
		if err := s.save(ch.Name, ch.Original, ch.Raw); err != nil {
			return fmt.Errorf("%s: %w", ch.Name, err)
		}
	}
	return nil
}

func (s Plots) save(name string, sum types.Summary, values []float64) error {
	if len(values) == 0 {
		return nil
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s  mean %.3e ± %.1e  rms %.3e ± %.1e", name, sum.Mean, sum.MeanError, sum.RMS, sum.RMSError)
	p.X.Label.Text = name
	p.Y.Label.Text = "entries"
	h, err := plotter.NewHist(plotter.Values(values), Bins)
	if err != nil {
		return err
	}
	p.Add(h)
	return p.Save(6*vg.Inch, 4*vg.Inch, filepath.Join(s.Dir, name+".png"))
}
