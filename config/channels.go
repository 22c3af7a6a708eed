package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"regress/types"
)

// ErrFormat 通道配置格式错误
var ErrFormat = errors.New("invalid channel config")

// 配置文件段落标记
const (
	sectionGlobal      = "Global"
	sectionResponding  = "Responding"
	sectionManipulated = "Manipulated"
)

// Channel 通道定义
type Channel struct {
	Name        string  // 通道名称
	ValueSuffix string  // 数值列后缀
	ErrorSuffix string  // 错误列后缀
	Param       float64 // 初始相关系数（仅操纵量）
	Weight      float64 // 初始权重（仅操纵量）
}

// ValueColumn 数值列名
func (c Channel) ValueColumn() string { return c.Name + c.ValueSuffix }

// ErrorColumn 错误列名
func (c Channel) ErrorColumn() string { return c.Name + c.ErrorSuffix }

// Channels 解析后的通道配置
type Channels struct {
	GlobalErrorColumn string    // 全局错误标记列
	Responding        []Channel // 响应量
	Manipulated       []Channel // 操纵量
}

// ParamNames 参数名列表（操纵量 + 常数项）
func (c *Channels) ParamNames() []string {
	names := make([]string, 0, len(c.Manipulated)+1)
	for _, m := range c.Manipulated {
		names = append(names, m.Name)
	}
	return append(names, types.ConstantTermName)
}

// InitialParams 初始参数与权重（常数项参数为0、权重为1）
func (c *Channels) InitialParams() (params, weights []float64) {
	params = make([]float64, 0, len(c.Manipulated)+1)
	weights = make([]float64, 0, len(c.Manipulated)+1)
	for _, m := range c.Manipulated {
		params = append(params, m.Param)
		weights = append(weights, m.Weight)
	}
	return append(params, 0.0), append(weights, 1.0)
}

// LoadChannels 加载通道配置文件
func LoadChannels(filename string, delim rune) (*Channels, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ParseChannels(file, delim)
}

// splitFields 按分隔符切分一行，空格分隔时合并连续空白
func splitFields(line string, delim rune) []string {
	if delim == ' ' || delim == '\t' {
		return strings.Fields(line)
	}
	parts := strings.Split(line, string(delim))
	fields := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			fields = append(fields, p)
		}
	}
	return fields
}

// ParseChannels 解析通道配置
//
//	Global <错误标记列>
//	Responding
//	<名称> <数值后缀> <错误后缀>
//	Manipulated
//	<名称> <数值后缀> <错误后缀> <初始参数> <初始权重>
func ParseChannels(r io.Reader, delim rune) (*Channels, error) {
	cfg := &Channels{GlobalErrorColumn: types.DefaultErrorFlag}
	var section string
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := splitFields(line, delim)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case sectionGlobal:
			if len(fields) < 2 {
				return nil, fmt.Errorf("第 %d 行: 缺少全局错误标记列: %w", n, ErrFormat)
			}
			cfg.GlobalErrorColumn = fields[1]
			section = ""
			continue
		case sectionResponding, sectionManipulated:
			section = fields[0]
			continue
		}
		switch section {
		case sectionResponding:
			if len(fields) < 3 {
				return nil, fmt.Errorf("第 %d 行: 响应量需要 名称 数值后缀 错误后缀: %w", n, ErrFormat)
			}
			cfg.Responding = append(cfg.Responding, Channel{Name: fields[0], ValueSuffix: fields[1], ErrorSuffix: fields[2]})
		case sectionManipulated:
			if len(fields) < 5 {
				return nil, fmt.Errorf("第 %d 行: 操纵量需要 名称 数值后缀 错误后缀 初始参数 初始权重: %w", n, ErrFormat)
			}
			param, err := strconv.ParseFloat(fields[3], 64)
			if err != nil {
				return nil, fmt.Errorf("第 %d 行: 初始参数 '%s' 无效: %w", n, fields[3], ErrFormat)
			}
			weight, err := strconv.ParseFloat(fields[4], 64)
			if err != nil {
				return nil, fmt.Errorf("第 %d 行: 初始权重 '%s' 无效: %w", n, fields[4], ErrFormat)
			}
			cfg.Manipulated = append(cfg.Manipulated, Channel{
				Name:        fields[0],
				ValueSuffix: fields[1],
				ErrorSuffix: fields[2],
				Param:       param,
				Weight:      weight,
			})
		default:
			return nil, fmt.Errorf("第 %d 行: 通道定义不在任何段落中: %w", n, ErrFormat)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(cfg.Responding) == 0 {
		return nil, fmt.Errorf("没有响应量定义: %w", ErrFormat)
	}
	return cfg, nil
}

// Export 导出通道配置（空格分隔）
func (c *Channels) Export(w io.Writer) error {
	writer := bufio.NewWriter(w)
	fmt.Fprintf(writer, "%s %s\n", sectionGlobal, c.GlobalErrorColumn)
	fmt.Fprintln(writer, sectionResponding)
	for _, ch := range c.Responding {
		fmt.Fprintf(writer, "%s %s %s\n", ch.Name, ch.ValueSuffix, ch.ErrorSuffix)
	}
	fmt.Fprintln(writer, sectionManipulated)
	for _, ch := range c.Manipulated {
		fmt.Fprintf(writer, "%s %s %s %s %s\n", ch.Name, ch.ValueSuffix, ch.ErrorSuffix,
			strconv.FormatFloat(ch.Param, 'g', -1, 64), strconv.FormatFloat(ch.Weight, 'g', -1, 64))
	}
	return writer.Flush()
}
