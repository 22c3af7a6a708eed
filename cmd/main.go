package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var verbose int

// setupLogger 按 -v 次数设置日志级别
func setupLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	switch {
	case verbose >= 2:
		logger.SetLevel(logrus.TraceLevel)
	case verbose == 1:
		logger.SetLevel(logrus.DebugLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}

var rootCmd = &cobra.Command{
	Use:           "regress",
	Short:         "迭代 χ² 相关性回归",
	Long:          "对每个响应量拟合其与全部操纵量的线性相关系数，并输出去除相关性后的回归值。",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "日志详细程度（-v 调试，-vv 逐条记录）")
	rootCmd.AddCommand(newFitCmd(), newSynthCmd())
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logrus.WithError(err).Error("运行失败")
		stop()
		os.Exit(1)
	}
}
