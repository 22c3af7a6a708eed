package fit

// State 拟合控制器状态
type State int

const (
	Accumulating State = iota // 正在遍历记录并累加
	IterateAgain       // 参数未收敛，准备下一轮
	Converged          // 参数已收敛
	Failed             // 曲率矩阵不可逆或遍历出错
)

// String 实现 fmt.Stringer
func (s State) String() string {
	switch s {
	case Accumulating:
		return "Accumulating"
	case IterateAgain:
		return "IterateAgain"
	case Converged:
		return "Converged"
	case Failed:
		return "Failed"
	}
	return "Unknown"
}

// Terminal 是否为终止状态
func (s State) Terminal() bool { return s == Converged || s == Failed }
