package types

import (
	"math"
	"strconv"
)

// PassStats 单轮拟合的记录统计
type PassStats struct {
	Read           int `json:"read"`            // 读取的记录数
	Flagged        int `json:"flagged"`         // 全局错误标记跳过
	BadManipulated int `json:"bad_manipulated"` // 操纵量错误跳过
	BadResponding  int `json:"bad_responding"`  // 响应量错误跳过
	Degenerate     int `json:"degenerate"`      // si2 < 0，仅输出不累加
	Accumulated    int `json:"accumulated"`     // 参与 χ² 累加
	Emitted        int `json:"emitted"`         // 输出行数
}

// Excluded 被排除的记录总数
func (s PassStats) Excluded() int { return s.Flagged + s.BadManipulated + s.BadResponding }

// Iteration 单次迭代的记录
type Iteration struct {
	Index     int       `json:"index"`      // 迭代序号（从0开始）
	Params    []float64 `json:"params"`     // 本轮使用的参数
	Delta     []float64 `json:"delta"`      // 牛顿步长 cov·beta
	RelChange []Ratio   `json:"rel_change"` // 相对变化 |(θ+δ)/θ - 1|
	Chi2      float64   `json:"chi2"`       // χ² 总和
	Stats     PassStats `json:"stats"`      // 记录统计
}

// Ratio 相对变化量，非有限值（上一轮参数为0）编码为 null
type Ratio float64

// MarshalJSON 实现 json.Marshaler
func (r Ratio) MarshalJSON() ([]byte, error) {
	f := float64(r)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

// Observer 调试接口：接收每次迭代的状态
type Observer interface {
	Init(channel string, params []string) // 拟合开始
	Update(channel string, it Iteration)  // 每轮迭代结束
	Error(channel string, err error)      // 拟合失败
}

// NopObserver 空实现
type NopObserver struct{}

func (NopObserver) Init(string, []string)   {}
func (NopObserver) Update(string, Iteration) {}
func (NopObserver) Error(string, error)      {}
