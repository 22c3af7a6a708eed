package synth

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"regress/config"
	"regress/table"
	"regress/types"
)

// 生成数据使用的列后缀
const (
	ValueSuffix = "_value"
	ErrorSuffix = "_error"
)

// Spec 合成数据参数
type Spec struct {
	Rows         int       // 记录数
	Seed         uint64    // 随机种子
	Manipulated  []string  // 操纵量名称
	Coefficients []float64 // 各操纵量的真实相关系数
	Intercept    float64   // 真实常数项
	Spread       float64   // 操纵量标准差
	Uncertainty  float64   // 单次测量不确定度 u
	Noise        float64   // 响应量噪声标准差（0 表示 sqrt(nManip)·u）
	FlagRate     float64   // 全局错误标记比例
	BadRate      float64   // 操纵量错误比例
	Responding   []string  // 响应量名称
}

// Default 默认参数：三个操纵量、1000 条记录
func Default() Spec {
	return Spec{
		Rows:         1000,
		Seed:         1,
		Manipulated:  []string{"diff_x", "diff_y", "diff_e"},
		Coefficients: []float64{0.5, -0.2, 0.1},
		Intercept:    0.02,
		Spread:       1e-3,
		Uncertainty:  1.0 / math.Sqrt(types.Rate/types.IntegrationFrequency),
		Responding:   []string{"asym_bcm"},
	}
}

// Sigma 响应量噪声标准差
// 默认 sqrt(nManip)·u（nManip 含常数项），与拟合的基础方差 nManip·u² 一致，χ²/ndf ≈ 1。
func (s Spec) Sigma() float64 {
	if s.Noise > 0 {
		return s.Noise
	}
	return math.Sqrt(float64(len(s.Coefficients)+1)) * s.Uncertainty
}

func (s Spec) validate() error {
	switch {
	case s.Rows < 0:
		return fmt.Errorf("记录数不能为负: %d", s.Rows)
	case len(s.Manipulated) != len(s.Coefficients):
		return fmt.Errorf("操纵量个数 %d 与系数个数 %d 不一致", len(s.Manipulated), len(s.Coefficients))
	case len(s.Responding) == 0:
		return fmt.Errorf("至少需要一个响应量")
	case s.Spread < 0 || s.Uncertainty < 0 || s.Noise < 0:
		return fmt.Errorf("标准差不能为负")
	case s.FlagRate < 0 || s.FlagRate > 1 || s.BadRate < 0 || s.BadRate > 1:
		return fmt.Errorf("错误比例需在 [0,1] 内")
	}
	return nil
}

// Channels 对应的通道配置（初始参数为0、权重为1）
func (s Spec) Channels() *config.Channels {
	ch := &config.Channels{GlobalErrorColumn: types.DefaultErrorFlag}
	for _, name := range s.Responding {
		ch.Responding = append(ch.Responding, config.Channel{Name: name, ValueSuffix: ValueSuffix, ErrorSuffix: ErrorSuffix})
	}
	for _, name := range s.Manipulated {
		ch.Manipulated = append(ch.Manipulated, config.Channel{
			Name:        name,
			ValueSuffix: ValueSuffix,
			ErrorSuffix: ErrorSuffix,
			Weight:      1,
		})
	}
	return ch
}

// Generate 生成 y = Σ c_j·x_j + 常数项 + 高斯噪声 的数据表
// 每个响应量使用相同的系数与独立的噪声。
func Generate(s Spec) (*table.Table, *config.Channels, error) {
	if err := s.validate(); err != nil {
		return nil, nil, err
	}
	ch := s.Channels()
	header := []string{ch.GlobalErrorColumn}
	for _, m := range ch.Manipulated {
		header = append(header, m.ValueColumn(), m.ErrorColumn())
	}
	for _, r := range ch.Responding {
		header = append(header, r.ValueColumn(), r.ErrorColumn())
	}
	tab, err := table.New(header...)
	if err != nil {
		return nil, nil, err
	}

	src := rand.NewPCG(s.Seed, s.Seed^0x5851f42d4c957f2d)
	x := distuv.Normal{Mu: 0, Sigma: s.Spread, Src: src}
	noise := distuv.Normal{Mu: 0, Sigma: s.Sigma(), Src: src}
	u := distuv.Uniform{Min: 0, Max: 1, Src: src}

	row := make([]float64, len(header))
	for i := 0; i < s.Rows; i++ {
		clear(row)
		if u.Rand() < s.FlagRate {
			row[0] = 1
		}
		f := s.Intercept
		for j, c := range s.Coefficients {
			v := x.Rand()
			row[1+2*j] = v
			if u.Rand() < s.BadRate {
				row[2+2*j] = 1
			}
			f += c * v
		}
		base := 1 + 2*len(s.Coefficients)
		for k := range s.Responding {
			y := f
			if s.Sigma() > 0 {
				y += noise.Rand()
			}
			row[base+2*k] = y
		}
		if err := tab.AddRow(row...); err != nil {
			return nil, nil, err
		}
	}
	return tab, ch, nil
}
