package report

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	ectypes "github.com/go-echarts/go-echarts/v2/types"
	"github.com/sirupsen/logrus"

	"regress/types"
)

// Bins 直方图分箱数
var Bins = 100

// Charts 曲线绘制，写出 report.html
type Charts struct {
	Dir    string        // 输出目录
	report *types.Report // 最近一次发布的结果
}

// Publish 实现 types.Sink
func (c *Charts) Publish(_ context.Context, report *types.Report) error {
	c.report = report
	file, err := os.Create(filepath.Join(c.Dir, "report.html"))
	if err != nil {
		return err
	}
	defer file.Close()
	if err := c.Render(file); err != nil {
		return err
	}
	return file.Sync()
}

// legend 图例设置
func legend() charts.GlobalOpts {
	return charts.WithLegendOpts(opts.Legend{
		Type:   "scroll",
		Orient: "vertical",
		Right:  "10",
		Top:    "20",
		Bottom: "20",
	})
}

// Render 格式化
func (c *Charts) Render(w io.Writer) error {
	page := components.NewPage()
	page.PageTitle = "回归分析"
	if c.report == nil {
		return page.Render(w)
	}
	for _, ch := range c.report.Channels {
		page.AddCharts(c.histogram(ch), c.params(ch), c.chi2(ch))
	}
	return page.Render(w)
}

// histogram 回归前后分布
func (c *Charts) histogram(ch *types.ChannelReport) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: ectypes.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    ch.Name,
			Subtitle: fmt.Sprintf("%s 与原始分布（RMS %.3e -> %.3e）", ch.Column, ch.Original.RMS, ch.Regressed.RMS),
		}),
		legend(),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
	)
	hist := NewHistogram(Bins, Values(ch.Rows), ch.Raw)
	labels := make([]string, len(hist[0].Centers))
	for i, x := range hist[0].Centers {
		labels[i] = strconv.FormatFloat(x, 'g', 4, 64)
	}
	bar.SetXAxis(labels)
	for i, name := range []string{ch.Column, ch.Name} {
		items := make([]opts.BarData, len(hist[i].Counts))
		for x, v := range hist[i].Counts {
			items[x].Value = v
		}
		bar.AddSeries(name, items)
	}
	return bar
}

// params 参数随迭代变化曲线
func (c *Charts) params(ch *types.ChannelReport) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: ectypes.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    ch.Name + " 参数收敛",
			Subtitle: "每次迭代使用的参数",
		}),
		legend(),
		charts.WithYAxisOpts(opts.YAxis{
			Scale: opts.Bool(true),
		}),
		charts.WithAnimation(true),
	)
	line.SetXAxis(iterationAxis(ch.History))
	for j, p := range ch.Parameters {
		items := make([]opts.LineData, len(ch.History))
		for x, it := range ch.History {
			items[x].Value = it.Params[j]
		}
		line.AddSeries(p.Name, items)
	}
	return line
}

// chi2 χ² 随迭代变化曲线
func (c *Charts) chi2(ch *types.ChannelReport) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: ectypes.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    ch.Name + " χ²",
			Subtitle: fmt.Sprintf("χ²/ndf = %.4g", ch.ReducedChi2),
		}),
		legend(),
		charts.WithYAxisOpts(opts.YAxis{
			Type: "log",
		}),
	)
	line.SetXAxis(iterationAxis(ch.History))
	items := make([]opts.LineData, len(ch.History))
	for x, it := range ch.History {
		items[x].Value = it.Chi2
	}
	line.AddSeries("χ²", items)
	return line
}

func iterationAxis(history []types.Iteration) []int {
	axis := make([]int, len(history))
	for i := range axis {
		axis[i] = i
	}
	return axis
}

// Handler 发布到网页面
func (c *Charts) Handler(w http.ResponseWriter, _ *http.Request) {
	if err := c.Render(w); err != nil {
		logrus.WithError(err).Error("渲染图表")
	}
}
