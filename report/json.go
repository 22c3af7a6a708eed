package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"regress/types"
)

// JSON 将完整结果写为 report.json
type JSON struct {
	Dir string // 输出目录
}

// Publish 实现 types.Sink
func (s JSON) Publish(_ context.Context, report *types.Report) error {
	file, err := os.Create(filepath.Join(s.Dir, "report.json"))
	if err != nil {
		return err
	}
	defer file.Close()
	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	return file.Sync()
}
