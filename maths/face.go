package maths

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// 补充必要常量（浮点精度阈值）
const (
	MachineEpsilon = 2.220446049250313e-16 // float64 机器精度
)

// LU 接口定义了 LU 分解和求解线性方程组的操作。
type LU interface {
	Dim() int                            // 矩阵维度
	Decompose(matrix mat.Matrix) error   // 对输入方阵执行LU分解（PA=LU）
	SolveReuse(b, x *mat.VecDense) error // 重用向量求解Ax=b（利用LU分解结果）
	Inverse(dst *mat.Dense) error        // 利用分解结果求逆矩阵
}

// MaxAbs 返回矩阵中绝对值最大的元素
func MaxAbs(a mat.Matrix) float64 {
	r, c := a.Dims()
	maxAbs := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := math.Abs(a.At(i, j)); v > maxAbs {
				maxAbs = v
			}
		}
	}
	return maxAbs
}

// Quad 计算二次型 xᵀ·A·x
func Quad(x mat.Vector, a mat.Symmetric) float64 {
	return mat.Inner(x, a, x)
}

// IsIdentity 判断矩阵是否在容差内为单位矩阵
func IsIdentity(a mat.Matrix, tol float64) bool {
	r, c := a.Dims()
	if r != c {
		return false
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(a.At(i, j)-want) > tol {
				return false
			}
		}
	}
	return true
}
