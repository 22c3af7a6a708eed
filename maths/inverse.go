package maths

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrSingular 矩阵不可逆
var ErrSingular = errors.New("matrix is singular or nearly singular")

// SingularError 奇异矩阵错误，记录分解失败的位置
type SingularError struct {
	Dim    int     // 矩阵维度
	Column int     // 失败的消元列
	Pivot  float64 // 该列最大主元绝对值
}

func (e *SingularError) Error() string {
	return fmt.Sprintf("lu dense decompose: %dx%d matrix is singular at column %d (pivot %.3e)", e.Dim, e.Dim, e.Column, e.Pivot)
}

// Unwrap 支持 errors.Is(err, ErrSingular)
func (e *SingularError) Unwrap() error { return ErrSingular }

// Inversion 求逆结果：成功时 Inverse 非空，失败时 Err 非空
type Inversion struct {
	Inverse *mat.SymDense
	Err     error
}

// OK 是否求逆成功
func (inv Inversion) OK() bool { return inv.Err == nil && inv.Inverse != nil }

// Invert 对称矩阵求逆（曲率矩阵 -> 协方差矩阵）
// 使用带部分主元的LU分解逐列求解，结果取 (X+Xᵀ)/2 保持对称。
func Invert(a mat.Symmetric) Inversion {
	n := a.SymmetricDim()
	lu, err := NewLU(n)
	if err != nil {
		return Inversion{Err: err}
	}
	if err := lu.Decompose(a); err != nil {
		return Inversion{Err: err}
	}
	full := mat.NewDense(n, n, nil)
	if err := lu.Inverse(full); err != nil {
		return Inversion{Err: err}
	}
	inv := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			inv.SetSym(i, j, 0.5*(full.At(i, j)+full.At(j, i)))
		}
	}
	return Inversion{Inverse: inv}
}
