package fit

import (
	"gonum.org/v1/gonum/mat"

	"regress/maths"
)

// Model 拟合函数 f(θ; x)
//
// Eval 返回函数值，并写入对参数的一、二、三阶导数。调用前 df、ddf、dddf 已清零，
// 实现只需写入非零项。x 为操纵量数值（长度 n-1），最后一个参数为常数项，
// 其隐含的操纵量值为 1。
type Model interface {
	Eval(theta mat.Vector, x []float64, df *mat.VecDense, ddf *mat.Dense, dddf *maths.Tensor3) float64
}

// LinearModel 线性模型 f = Σ θ_j·x_j + θ_常数项
// 一阶导数为操纵量本身，二阶、三阶导数恒为零。
type LinearModel struct{}

// Eval 实现 Model
func (LinearModel) Eval(theta mat.Vector, x []float64, df *mat.VecDense, _ *mat.Dense, _ *maths.Tensor3) float64 {
	n := theta.Len()
	f := 0.0
	for j := 0; j < n-1; j++ {
		f += theta.AtVec(j) * x[j]
		df.SetVec(j, x[j])
	}
	// 常数项：θ_last·1
	f += theta.AtVec(n - 1)
	df.SetVec(n-1, 1.0)
	return f
}
