package report

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/klauspost/compress/zstd"

	"regress/types"
)

// CSV 每个响应通道写出 reg_<name>.csv（entry,reg_<name>）
type CSV struct {
	Dir      string // 输出目录
	Compress bool   // zstd 压缩为 .csv.zst
}

// Filename 通道输出文件名
func (s CSV) Filename(ch *types.ChannelReport) string {
	name := ch.Column + ".csv"
	if s.Compress {
		name += ".zst"
	}
	return filepath.Join(s.Dir, name)
}

// Publish 实现 types.Sink
func (s CSV) Publish(ctx context.Context, report *types.Report) error {
	for _, ch := range report.Channels {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.write(ch); err != nil {
			return fmt.Errorf("%s: %w", ch.Name, err)
		}
	}
	return nil
}

func (s CSV) write(ch *types.ChannelReport) error {
	file, err := os.Create(s.Filename(ch))
	if err != nil {
		return err
	}
	defer file.Close()
	var w io.Writer = file
	var enc *zstd.Encoder
	if s.Compress {
		if enc, err = zstd.NewWriter(file, zstd.WithEncoderLevel(zstd.SpeedBetterCompression)); err != nil {
			return err
		}
		w = enc
	}
	if err := WriteRows(w, ch.Column, ch.Rows); err != nil {
		return err
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return err
		}
	}
	return file.Sync()
}

// WriteRows 写出回归输出列
func WriteRows(w io.Writer, column string, rows []types.OutputRow) error {
	writer := bufio.NewWriter(w)
	fmt.Fprintf(writer, "entry,%s\n", column)
	buf := make([]byte, 0, 32)
	for _, r := range rows {
		buf = strconv.AppendInt(buf[:0], int64(r.Entry), 10)
		buf = append(buf, ',')
		buf = strconv.AppendFloat(buf, r.Value, 'g', -1, 64)
		buf = append(buf, '\n')
		if _, err := writer.Write(buf); err != nil {
			return err
		}
	}
	return writer.Flush()
}
