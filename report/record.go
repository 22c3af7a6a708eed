package report

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"regress/types"
)

// Trace 单个响应通道的迭代记录
type Trace struct {
	Params     []string          `json:"params"`          // 参数名
	Iterations []types.Iteration `json:"iterations"`      // 每轮迭代
	Error      string            `json:"error,omitempty"` // 失败原因
}

// Record 记录各通道迭代历史，实现 types.Observer
// 失败的通道不会出现在结果中，迭代记录仍保留在这里。
type Record struct {
	mu       sync.Mutex
	Channels map[string]*Trace `json:"channels"`
}

// NewRecord 创建记录
func NewRecord() *Record { return &Record{Channels: make(map[string]*Trace)} }

// Init 初始化通道
func (list *Record) Init(channel string, params []string) {
	list.mu.Lock()
	defer list.mu.Unlock()
	list.Channels[channel] = &Trace{Params: append([]string{}, params...)}
}

// Update 记录一次迭代
func (list *Record) Update(channel string, it types.Iteration) {
	list.mu.Lock()
	defer list.mu.Unlock()
	if tr, ok := list.Channels[channel]; ok {
		tr.Iterations = append(tr.Iterations, it)
	}
}

// Error 记录失败原因
func (list *Record) Error(channel string, err error) {
	list.mu.Lock()
	defer list.mu.Unlock()
	if tr, ok := list.Channels[channel]; ok {
		tr.Error = err.Error()
	}
}

// Trace 获取通道记录
func (list *Record) Trace(channel string) (*Trace, bool) {
	list.mu.Lock()
	defer list.mu.Unlock()
	tr, ok := list.Channels[channel]
	return tr, ok
}

// Render 格式和输出内容
func (list *Record) Render(w io.Writer) error {
	list.mu.Lock()
	defer list.mu.Unlock()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(list)
}

// Save 写出到文件
func (list *Record) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	return list.Render(file)
}
