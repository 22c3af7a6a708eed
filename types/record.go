package types

import "context"

// Measurement 单通道测量值
type Measurement struct {
	Value float64 // 测量值
	Error float64 // 错误标记（非零表示该通道本条记录无效）
}

// Record 单条事件记录
type Record struct {
	Entry       int           // 记录在数据源中的序号
	ErrorFlag   float64       // 全局错误标记（非零表示整条记录无效）
	Manipulated []Measurement // 操纵量（预测量）
	Responding  Measurement   // 响应量（拟合目标）
}

// RecordSource 有序、可重置的记录源
type RecordSource interface {
	Len() int                                       // 可用记录总数
	Rewind() error                                  // 回到第一条记录
	Next(ctx context.Context) (Record, bool, error) // 读取下一条记录，读完返回 false
}

// OutputRow 回归输出行
type OutputRow struct {
	Entry int     `json:"entry"` // 输入记录序号
	Value float64 `json:"value"` // 回归后的值 y - f + θ常数项
}
