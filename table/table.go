package table

import (
	"bufio"
	"encoding/binary"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
)

// ErrColumn 列不存在
var ErrColumn = errors.New("column not found")

// Table 数值表（CSV 第一行为列名）
type Table struct {
	header []string       // 列名
	index  map[string]int // 列名 -> 列序号
	rows   [][]float64    // 行数据
}

// New 创建空表
func New(header ...string) (*Table, error) {
	t := &Table{header: append([]string{}, header...), index: make(map[string]int, len(header))}
	for i, name := range header {
		if _, ok := t.index[name]; ok {
			return nil, fmt.Errorf("列名重复: %s", name)
		}
		t.index[name] = i
	}
	return t, nil
}

// Load 从文件加载表，".zst" 结尾的文件按 zstd 解压
func Load(filename string) (*Table, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	var r io.Reader = bufio.NewReader(file)
	if strings.HasSuffix(filename, ".zst") {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		r = dec
	}
	t, err := Read(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return t, nil
}

// Read 读取 CSV 数据
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("读取列名: %w", err)
	}
	t, err := New(header...)
	if err != nil {
		return nil, err
	}
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make([]float64, len(fields))
		for i, f := range fields {
			if row[i], err = strconv.ParseFloat(f, 64); err != nil {
				line, _ := reader.FieldPos(i)
				return nil, fmt.Errorf("第 %d 行 %s 列: %w", line, header[i], err)
			}
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

// AddRow 追加一行
func (t *Table) AddRow(values ...float64) error {
	if len(values) != len(t.header) {
		return fmt.Errorf("行长度 %d 与列数 %d 不一致", len(values), len(t.header))
	}
	t.rows = append(t.rows, append([]float64{}, values...))
	return nil
}

// Header 列名
func (t *Table) Header() []string { return t.header }

// Len 行数
func (t *Table) Len() int { return len(t.rows) }

// ColumnIndex 查找列序号
func (t *Table) ColumnIndex(name string) (int, error) {
	i, ok := t.index[name]
	if !ok {
		return 0, fmt.Errorf("%s: %w", name, ErrColumn)
	}
	return i, nil
}

// Column 复制一列数据
func (t *Table) Column(name string) ([]float64, error) {
	i, err := t.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	col := make([]float64, len(t.rows))
	for r, row := range t.rows {
		col[r] = row[i]
	}
	return col, nil
}

// Digest 表内容摘要（列名 + 数值位模式）
func (t *Table) Digest() uint64 {
	h := xxhash.New()
	h.WriteString(strings.Join(t.header, ","))
	var buf [8]byte
	for _, row := range t.rows {
		for _, v := range row {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:])
		}
	}
	return h.Sum64()
}

// Write 以 CSV 格式写出
func (t *Table) Write(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.header); err != nil {
		return err
	}
	fields := make([]string, len(t.header))
	for _, row := range t.rows {
		for i, v := range row {
			fields[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := writer.Write(fields); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// Save 写出到文件，".zst" 结尾时 zstd 压缩
func (t *Table) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	var w io.Writer = file
	var enc *zstd.Encoder
	if strings.HasSuffix(filename, ".zst") {
		if enc, err = zstd.NewWriter(file); err != nil {
			return err
		}
		w = enc
	}
	if err := t.Write(w); err != nil {
		return err
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return err
		}
	}
	return file.Sync()
}
