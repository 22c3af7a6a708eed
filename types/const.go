package types

// 命名常量定义
const (
	ConstantTermName = "PV_Asymmetry" // 常数项（物理不对称度）参数名
	RegressedPrefix  = "reg_"         // 回归输出列前缀
	DefaultErrorFlag = "ErrorFlag"    // 默认全局错误标记列
)

// 默认参数常量定义
var (
	Tolerance            = 0.01  // 参数相对变化收敛阈值
	Damping              = 0.3   // 参数更新阻尼因子
	MaxIterations        = 100   // 最大迭代次数
	RecordCap            = 5000  // 每轮最多读取的记录数
	Rate                 = 1.0e9 // 事件率（Hz）
	IntegrationFrequency = 240.0 // 积分频率（Hz）
	CheckInterval        = 1024  // 取消检查间隔（记录数）
)
