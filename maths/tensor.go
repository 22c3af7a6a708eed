package maths

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Tensor3 n×n×n 稠密三阶张量（行优先存储，越界panic）
type Tensor3 struct {
	n    int
	data []float64
}

// NewTensor3 创建指定维度的零张量
func NewTensor3(n int) *Tensor3 {
	if n < 0 {
		panic("invalid tensor dimension: cannot be negative")
	}
	return &Tensor3{n: n, data: make([]float64, n*n*n)}
}

// Dim 返回张量维度
func (t *Tensor3) Dim() int { return t.n }

func (t *Tensor3) index(i, j, k int) int {
	if i < 0 || i >= t.n || j < 0 || j >= t.n || k < 0 || k >= t.n {
		panic(fmt.Sprintf("tensor index out of range: (%d, %d, %d) dim=%d", i, j, k, t.n))
	}
	return (i*t.n+j)*t.n + k
}

// At 获取元素
func (t *Tensor3) At(i, j, k int) float64 { return t.data[t.index(i, j, k)] }

// Set 设置元素
func (t *Tensor3) Set(i, j, k int, v float64) { t.data[t.index(i, j, k)] = v }

// Zero 清零
func (t *Tensor3) Zero() { clear(t.data) }

// ContractFirst 沿第一维收缩：dst[a][b] = Σ_j w[j]·T[j][a][b]
func (t *Tensor3) ContractFirst(w mat.Vector, dst *mat.Dense) {
	if w.Len() != t.n {
		panic(fmt.Sprintf("vector dimension mismatch: w length=%d, tensor dim=%d", w.Len(), t.n))
	}
	dst.Zero()
	for j := 0; j < t.n; j++ {
		if wj := w.AtVec(j); wj != 0 {
			for a := 0; a < t.n; a++ {
				for b := 0; b < t.n; b++ {
					dst.Set(a, b, dst.At(a, b)+wj*t.At(j, a, b))
				}
			}
		}
	}
}
