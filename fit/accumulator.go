package fit

import (
	"gonum.org/v1/gonum/mat"

	"regress/types"
)

// Accumulator 单轮拟合的累加量
// 每轮开始时由 Controller 重置，轮内由 Engine 逐条记录更新，轮后只读。
type Accumulator struct {
	Beta  *mat.VecDense     // χ² 梯度向量
	Alpha *mat.SymDense     // χ² 曲率矩阵
	Chi2  float64           // χ² 总和
	Stats types.PassStats   // 记录统计
	Rows  []types.OutputRow // 回归输出行
	Raw   []float64         // 与输出行对应的原始响应值
}

// NewAccumulator 创建 n 参数的累加器
func NewAccumulator(n int) *Accumulator {
	return &Accumulator{
		Beta:  mat.NewVecDense(n, nil),
		Alpha: mat.NewSymDense(n, nil),
	}
}

// Reset 清零所有累加量
func (acc *Accumulator) Reset() {
	acc.Beta.Zero()
	acc.Alpha.Zero()
	acc.Chi2 = 0
	acc.Stats = types.PassStats{}
	acc.Rows = acc.Rows[:0]
	acc.Raw = acc.Raw[:0]
}

// emit 记录一条回归输出
func (acc *Accumulator) emit(entry int, value, raw float64) {
	acc.Rows = append(acc.Rows, types.OutputRow{Entry: entry, Value: value})
	acc.Raw = append(acc.Raw, raw)
	acc.Stats.Emitted++
}
