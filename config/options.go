package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"regress/types"
)

// Influx InfluxDB 输出配置（URL 为空时不启用）
type Influx struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// Options 拟合运行参数
type Options struct {
	RecordCap            int     `yaml:"record_cap"`            // 每轮最多读取记录数（<=0 表示全部）
	MaxIterations        int     `yaml:"max_iterations"`        // 最大迭代次数
	Tolerance            float64 `yaml:"tolerance"`             // 参数相对变化收敛阈值
	Damping              float64 `yaml:"damping"`               // 参数更新阻尼因子
	Rate                 float64 `yaml:"rate"`                  // 事件率（Hz）
	IntegrationFrequency float64 `yaml:"integration_frequency"` // 积分频率（Hz）
	Workers              int     `yaml:"workers"`               // 并行拟合的响应通道数
	Delimiter            string  `yaml:"delimiter"`             // 通道配置分隔符
	OutputDir            string  `yaml:"output_dir"`            // 输出目录
	Compress             bool    `yaml:"compress"`              // 输出 zstd 压缩的 CSV
	Charts               bool    `yaml:"charts"`                // 输出 HTML 图表
	Plots                bool    `yaml:"plots"`                 // 输出 PNG 直方图
	Influx               Influx  `yaml:"influx"`                // InfluxDB 输出
}

// DefaultOptions 默认参数
func DefaultOptions() Options {
	return Options{
		RecordCap:            types.RecordCap,
		MaxIterations:        types.MaxIterations,
		Tolerance:            types.Tolerance,
		Damping:              types.Damping,
		Rate:                 types.Rate,
		IntegrationFrequency: types.IntegrationFrequency,
		Workers:              1,
		Delimiter:            " ",
		OutputDir:            ".",
	}
}

// LoadOptions 从 YAML 文件加载参数，未出现的字段保持默认值
func LoadOptions(filename string) (Options, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Options{}, err
	}
	return ParseOptions(data)
}

// ParseOptions 解析 YAML 参数
func ParseOptions(data []byte) (Options, error) {
	opts := DefaultOptions()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		return Options{}, fmt.Errorf("解析运行参数: %w", err)
	}
	return opts, opts.Validate()
}

// Validate 检查参数合法性
func (o Options) Validate() error {
	switch {
	case o.MaxIterations < 1:
		return fmt.Errorf("max_iterations 必须为正: %d", o.MaxIterations)
	case !(o.Tolerance > 0):
		return fmt.Errorf("tolerance 必须为正: %g", o.Tolerance)
	case !(o.Damping > 0):
		return fmt.Errorf("damping 必须为正: %g", o.Damping)
	case !(o.Rate > 0):
		return fmt.Errorf("rate 必须为正: %g", o.Rate)
	case !(o.IntegrationFrequency > 0):
		return fmt.Errorf("integration_frequency 必须为正: %g", o.IntegrationFrequency)
	case o.Workers < 0:
		return fmt.Errorf("workers 不能为负: %d", o.Workers)
	case len([]rune(o.Delimiter)) != 1:
		return fmt.Errorf("delimiter 必须为单个字符: %q", o.Delimiter)
	}
	return nil
}

// Delim 通道配置分隔符
func (o Options) Delim() rune {
	if r := []rune(o.Delimiter); len(r) == 1 {
		return r[0]
	}
	return ' '
}

// Uncertainty 单次测量不确定度 1/sqrt(rate/frequency)
func (o Options) Uncertainty() float64 {
	return 1.0 / math.Sqrt(o.Rate/o.IntegrationFrequency)
}
