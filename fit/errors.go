package fit

import (
	"errors"
	"fmt"

	"regress/maths"
)

// ErrNotConverged 达到最大迭代次数仍未收敛
var ErrNotConverged = errors.New("fit did not converge")

// ErrSingularMatrix 曲率矩阵不可逆
var ErrSingularMatrix = maths.ErrSingular

// SingularMatrixError 某轮迭代曲率矩阵求逆失败
type SingularMatrixError struct {
	Channel   string // 响应通道
	Iteration int    // 迭代序号
	Err       error  // 求逆错误
}

func (e *SingularMatrixError) Error() string {
	return fmt.Sprintf("%s: 第 %d 次迭代曲率矩阵不可逆: %v", e.Channel, e.Iteration, e.Err)
}

func (e *SingularMatrixError) Unwrap() error { return e.Err }
