package report

import (
	"context"
	"errors"

	"regress/types"
)

// Multi 依次发布到多个输出，汇总所有错误
type Multi []types.Sink

// Publish 实现 types.Sink
func (m Multi) Publish(ctx context.Context, report *types.Report) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
