package types

import (
	"context"
	"time"
)

// Parameter 拟合参数
type Parameter struct {
	Name   string  `json:"name"`   // 操纵量名称（常数项为 PV_Asymmetry）
	Value  float64 `json:"value"`  // 相关系数
	Error  float64 `json:"error"`  // sqrt(协方差对角元)
	Weight float64 `json:"weight"` // 初始权重
}

// Summary 分布统计
type Summary struct {
	N         int     `json:"n"`          // 样本数
	Mean      float64 `json:"mean"`       // 平均值
	MeanError float64 `json:"mean_error"` // 平均值误差 RMS/sqrt(N)
	RMS       float64 `json:"rms"`        // 标准差
	RMSError  float64 `json:"rms_error"`  // 标准差误差 RMS/sqrt(2N)
}

// ChannelReport 单个响应通道的拟合结果
type ChannelReport struct {
	Name             string      `json:"name"`               // 响应通道名称
	Column           string      `json:"column"`             // 输出列名 reg_<name>
	Converged        bool        `json:"converged"`          // 是否收敛
	Iterations       int         `json:"iterations"`         // 迭代次数
	Parameters       []Parameter `json:"parameters"`         // 拟合参数
	Covariance       [][]float64 `json:"covariance"`         // 协方差矩阵
	Chi2             float64     `json:"chi2"`               // χ² 总和
	ReducedChi2      float64     `json:"reduced_chi2"`       // χ²/自由度
	DegreesOfFreedom int         `json:"degrees_of_freedom"` // 累加行数 - 参数个数
	Stats            PassStats   `json:"stats"`              // 最后一轮记录统计
	History          []Iteration `json:"history"`            // 迭代历史
	Regressed        Summary     `json:"regressed"`          // 回归后分布
	Original         Summary     `json:"original"`           // 原始分布
	Rows             []OutputRow `json:"-"`                  // 回归输出行
	Raw              []float64   `json:"-"`                  // 原始响应值
}

// Report 一次运行的全部结果
type Report struct {
	RunID    string           `json:"run_id"`   // 运行标识
	Created  time.Time        `json:"created"`  // 生成时间
	Source   string           `json:"source"`   // 数据文件
	Digest   uint64           `json:"digest"`   // 输入数据摘要
	Entries  int              `json:"entries"`  // 输入记录总数
	Channels []*ChannelReport `json:"channels"` // 各响应通道结果
}

// Sink 结果输出接口
type Sink interface {
	Publish(ctx context.Context, report *Report) error
}
