package table

import (
	"context"
	"fmt"

	"regress/config"
	"regress/types"
)

// Cursor 绑定通道配置的记录游标，实现 types.RecordSource
// 每个游标独立维护读取位置，多个游标可并发读取同一张表。
type Cursor struct {
	table  *Table
	pos    int
	global int   // 全局错误标记列
	value  []int // 操纵量数值列
	errs   []int // 操纵量错误列
	respV  int   // 响应量数值列
	respE  int   // 响应量错误列
	buffer []types.Measurement
}

// Bind 按通道配置绑定第 resp 个响应量
func (t *Table) Bind(ch *config.Channels, resp int) (*Cursor, error) {
	if resp < 0 || resp >= len(ch.Responding) {
		return nil, fmt.Errorf("响应量序号 %d 超出范围 [0,%d)", resp, len(ch.Responding))
	}
	c := &Cursor{
		table:  t,
		value:  make([]int, len(ch.Manipulated)),
		errs:   make([]int, len(ch.Manipulated)),
		buffer: make([]types.Measurement, len(ch.Manipulated)),
	}
	var err error
	if c.global, err = t.ColumnIndex(ch.GlobalErrorColumn); err != nil {
		return nil, err
	}
	for i, m := range ch.Manipulated {
		if c.value[i], err = t.ColumnIndex(m.ValueColumn()); err != nil {
			return nil, err
		}
		if c.errs[i], err = t.ColumnIndex(m.ErrorColumn()); err != nil {
			return nil, err
		}
	}
	r := ch.Responding[resp]
	if c.respV, err = t.ColumnIndex(r.ValueColumn()); err != nil {
		return nil, err
	}
	if c.respE, err = t.ColumnIndex(r.ErrorColumn()); err != nil {
		return nil, err
	}
	return c, nil
}

// Len 可用记录总数
func (c *Cursor) Len() int { return c.table.Len() }

// Rewind 回到第一条记录
func (c *Cursor) Rewind() error {
	c.pos = 0
	return nil
}

// Next 读取下一条记录
// 返回记录的 Manipulated 切片在下一次调用前有效。
func (c *Cursor) Next(ctx context.Context) (types.Record, bool, error) {
	if c.pos >= len(c.table.rows) {
		return types.Record{}, false, nil
	}
	row := c.table.rows[c.pos]
	for i := range c.buffer {
		c.buffer[i] = types.Measurement{Value: row[c.value[i]], Error: row[c.errs[i]]}
	}
	rec := types.Record{
		Entry:       c.pos,
		ErrorFlag:   row[c.global],
		Manipulated: c.buffer,
		Responding:  types.Measurement{Value: row[c.respV], Error: row[c.respE]},
	}
	c.pos++
	return rec, true, nil
}
