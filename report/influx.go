package report

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"regress/config"
	"regress/types"
)

// 写入 InfluxDB 的测量名
const (
	MeasurementFit   = "regress_fit"
	MeasurementParam = "regress_param"
)

// Influx 将拟合结果写入 InfluxDB v2
type Influx struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// NewInflux 创建 InfluxDB 输出
func NewInflux(cfg config.Influx) (*Influx, error) {
	if cfg.URL == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influx 输出需要 url 与 bucket")
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &Influx{client: client, writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket)}, nil
}

// Points 结果转换为数据点
func Points(report *types.Report) []*write.Point {
	var points []*write.Point
	for _, ch := range report.Channels {
		points = append(points, influxdb2.NewPointWithMeasurement(MeasurementFit).
			AddTag("run_id", report.RunID).
			AddTag("channel", ch.Name).
			AddField("chi2", ch.Chi2).
			AddField("reduced_chi2", ch.ReducedChi2).
			AddField("dof", ch.DegreesOfFreedom).
			AddField("iterations", ch.Iterations).
			AddField("converged", ch.Converged).
			AddField("accumulated", ch.Stats.Accumulated).
			AddField("regressed_rms", ch.Regressed.RMS).
			AddField("original_rms", ch.Original.RMS).
			SetTime(report.Created))
		for _, p := range ch.Parameters {
			points = append(points, influxdb2.NewPointWithMeasurement(MeasurementParam).
				AddTag("run_id", report.RunID).
				AddTag("channel", ch.Name).
				AddTag("param", p.Name).
				AddField("value", p.Value).
				AddField("error", p.Error).
				SetTime(report.Created))
		}
	}
	return points
}

// Publish 实现 types.Sink
func (s *Influx) Publish(ctx context.Context, report *types.Report) error {
	points := Points(report)
	if len(points) == 0 {
		return nil
	}
	if err := s.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("写入 influx: %w", err)
	}
	return nil
}

// Close 关闭连接
func (s *Influx) Close() { s.client.Close() }
