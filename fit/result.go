package fit

import (
	"gonum.org/v1/gonum/mat"

	"regress/types"
)

// Result 单个响应通道的拟合结果
// Rows 与 Raw 来自最后一轮遍历，使用的是该轮更新前的参数。
type Result struct {
	Channel          string
	Names            []string          // 参数名（最后一个为常数项）
	Params           []float64         // 拟合参数
	Weights          []float64         // 参数权重
	Errors           []float64         // 参数误差 sqrt(cov_jj)
	Covariance       *mat.SymDense     // 协方差矩阵
	Alpha            *mat.SymDense     // 最后一轮曲率矩阵
	Beta             *mat.VecDense     // 最后一轮梯度向量
	Chi2             float64           // 最后一轮 χ²
	ReducedChi2      float64           // χ²/自由度
	DegreesOfFreedom int               // 累加记录数 - 参数个数
	Converged        bool              // 是否收敛
	Iterations       int               // 迭代次数
	Stats            types.PassStats   // 最后一轮记录统计
	Rows             []types.OutputRow // 回归输出
	Raw              []float64         // 原始响应值
	History          []types.Iteration // 迭代历史
}

// Parameters 参数列表
func (r *Result) Parameters() []types.Parameter {
	params := make([]types.Parameter, len(r.Params))
	for j := range params {
		params[j] = types.Parameter{Name: r.Names[j], Value: r.Params[j], Error: r.Errors[j], Weight: r.Weights[j]}
	}
	return params
}

// CovarianceRows 协方差矩阵按行展开
func (r *Result) CovarianceRows() [][]float64 {
	n := r.Covariance.SymmetricDim()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
		for j := range rows[i] {
			rows[i][j] = r.Covariance.At(i, j)
		}
	}
	return rows
}
