package maths

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// NewLU 创建稠密矩阵LU分解器（输入矩阵维度n）
// 参数:
//
//	n - 矩阵维度（必须为正整数）
//
// 返回:
//
//	LU接口实例，错误信息
func NewLU(n int) (LU, error) {
	if n < 1 {
		return nil, errors.New("lu dimension must be positive")
	}
	return &luDense{
		n:        n,
		L:        mat.NewDense(n, n, nil),
		U:        mat.NewDense(n, n, nil),
		Y:        mat.NewVecDense(n, nil),
		P:        make([]int, n),
		pinverse: make([]int, n),
	}, nil
}

// luDense 稠密矩阵LU分解实现（PA=LU，带部分主元）
//
//	P - 置换矩阵（用向量表示）
//	L - 单位下三角矩阵（对角线为1）
//	U - 上三角矩阵
type luDense struct {
	n        int           // 矩阵维度（方阵n×n）
	L        *mat.Dense    // 下三角矩阵L（L[i][i]=1，严格下三角存储消元因子）
	U        *mat.Dense    // 上三角矩阵U（存储消元后上三角元素）
	Y        *mat.VecDense // 中间变量：存储前向替换结果Ly=Pb
	P        []int         // 置换向量：P[i] = 分解后第i行对应的原始矩阵行索引
	pinverse []int         // 逆置换向量：pinverse[i] = 原始第i行对应的分解后行索引
	tol      float64       // 主元阈值（相对输入矩阵最大元素）
}

// Dim 获取矩阵维度
func (lu *luDense) Dim() int {
	return lu.n
}

// init 初始化置换向量和L矩阵的对角线
//
//  1. 清零L矩阵
//  2. 将输入矩阵A拷贝到U矩阵
//  3. 初始化置换向量P和pinverse为单位置换
//  4. 设置L矩阵对角线为1
//  5. 计算主元阈值 n·ε·max|A|
func (lu *luDense) init(matrix mat.Matrix) {
	lu.L.Zero()
	lu.U.Copy(matrix) // 后续在U上进行原位消元
	for i := 0; i < lu.n; i++ {
		lu.P[i] = i
		lu.pinverse[i] = i
		lu.L.Set(i, i, 1.0)
	}
	lu.tol = float64(lu.n) * MachineEpsilon * MaxAbs(matrix)
}

// updatePermutation 更新置换向量（交换并同步更新逆置换）
func (lu *luDense) updatePermutation(k, maxRow int) {
	lu.P[k], lu.P[maxRow] = lu.P[maxRow], lu.P[k]
	lu.pinverse[lu.P[k]] = k
	lu.pinverse[lu.P[maxRow]] = maxRow
}

// swapRows 交换U矩阵的两行
func (lu *luDense) swapRows(a, b int) {
	for j := 0; j < lu.n; j++ {
		va, vb := lu.U.At(a, j), lu.U.At(b, j)
		lu.U.Set(a, j, vb)
		lu.U.Set(b, j, va)
	}
}

// Decompose 执行稠密矩阵LU分解（高斯消元+部分主元）
//
// 算法步骤:
//  1. 初始化：拷贝A到U，初始化P、pinverse和L
//  2. 对每一列k（0到n-1）:
//     a. 部分主元选择：在U的当前列k中找[k, n-1]行的最大值
//     b. 行交换：交换U的行，交换L的前k-1列，更新置换向量
//     c. 高斯消元：计算消元因子存入L，更新U矩阵
//
// 主元不超过 n·ε·max|A| 时返回 *SingularError。
func (lu *luDense) Decompose(matrix mat.Matrix) error {
	r, c := matrix.Dims()
	if r != c {
		return errors.New("lu dense decompose: input must be square matrix")
	}
	if r != lu.n {
		return errors.New("lu dense decompose: matrix dimension mismatch")
	}

	lu.init(matrix)

	for k := 0; k < lu.n; k++ {
		// 部分主元选择
		maxRow := k
		maxAbsVal := math.Abs(lu.U.At(k, k))
		for i := k + 1; i < lu.n; i++ {
			if v := math.Abs(lu.U.At(i, k)); v > maxAbsVal {
				maxAbsVal = v
				maxRow = i
			}
		}

		// 检查矩阵是否奇异（主元接近零）
		if maxAbsVal <= lu.tol {
			return &SingularError{Dim: lu.n, Column: k, Pivot: maxAbsVal}
		}

		// 行交换
		if maxRow != k {
			lu.swapRows(k, maxRow)
			// 交换L矩阵的前k-1列（只交换已填充的消元因子）
			for j := 0; j < k; j++ {
				val1 := lu.L.At(k, j)
				val2 := lu.L.At(maxRow, j)
				lu.L.Set(k, j, val2)
				lu.L.Set(maxRow, j, val1)
			}
			lu.updatePermutation(k, maxRow)
		}

		// 高斯消元
		pivotVal := lu.U.At(k, k)
		for i := k + 1; i < lu.n; i++ {
			factor := lu.U.At(i, k) / pivotVal
			lu.L.Set(i, k, factor)
			lu.U.Set(i, k, 0.0) // 显式置零

			for j := k + 1; j < lu.n; j++ {
				lu.U.Set(i, j, lu.U.At(i, j)-factor*lu.U.At(k, j))
			}
		}
	}
	return nil
}

// SolveReuse 利用分解结果求解Ax=b（重用预分配向量）
//
//  1. 前向替换：求解Ly = Pb
//  2. 后向替换：求解Ux = y
func (lu *luDense) SolveReuse(b, x *mat.VecDense) error {
	if b.Len() != lu.n || x.Len() != lu.n {
		return errors.New("lu dense solve: vector dimension mismatch")
	}

	// 前向替换：求解Ly = Pb
	lu.Y.Zero()
	for i := 0; i < lu.n; i++ {
		sum := b.AtVec(lu.P[i])
		for j := 0; j < i; j++ {
			sum -= lu.L.At(i, j) * lu.Y.AtVec(j)
		}
		lu.Y.SetVec(i, sum)
	}

	// 后向替换：求解Ux = y
	x.Zero()
	for i := lu.n - 1; i >= 0; i-- {
		sum := lu.Y.AtVec(i)
		for j := i + 1; j < lu.n; j++ {
			sum -= lu.U.At(i, j) * x.AtVec(j)
		}
		diagVal := lu.U.At(i, i)
		if diagVal == 0 {
			return errors.New("lu dense solve: division by zero (U diagonal is zero)")
		}
		x.SetVec(i, sum/diagVal)
	}
	return nil
}

// Inverse 逐列求解 A·X = I 得到逆矩阵
func (lu *luDense) Inverse(dst *mat.Dense) error {
	r, c := dst.Dims()
	if r != lu.n || c != lu.n {
		return errors.New("lu dense inverse: destination dimension mismatch")
	}
	e := mat.NewVecDense(lu.n, nil)
	x := mat.NewVecDense(lu.n, nil)
	for col := 0; col < lu.n; col++ {
		e.Zero()
		e.SetVec(col, 1)
		if err := lu.SolveReuse(e, x); err != nil {
			return err
		}
		dst.SetCol(col, x.RawVector().Data)
	}
	return nil
}
