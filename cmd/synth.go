package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"regress/synth"
)

func newSynthCmd() *cobra.Command {
	gen := synth.Default()
	var out, cfg string
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "生成合成数据与通道配置",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := setupLogger()
			tab, channels, err := synth.Generate(gen)
			if err != nil {
				return err
			}
			if err := tab.Save(out); err != nil {
				return err
			}
			file, err := os.Create(cfg)
			if err != nil {
				return err
			}
			defer file.Close()
			if err := channels.Export(file); err != nil {
				return err
			}
			logger.WithFields(logrus.Fields{
				"rows":   tab.Len(),
				"data":   out,
				"config": cfg,
			}).Info("已生成合成数据")
			return file.Sync()
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&gen.Rows, "rows", gen.Rows, "记录数")
	flags.Uint64Var(&gen.Seed, "seed", gen.Seed, "随机种子")
	flags.Float64SliceVar(&gen.Coefficients, "coef", gen.Coefficients, "真实相关系数")
	flags.StringSliceVar(&gen.Manipulated, "manipulated", gen.Manipulated, "操纵量名称")
	flags.StringSliceVar(&gen.Responding, "responding", gen.Responding, "响应量名称")
	flags.Float64Var(&gen.Intercept, "intercept", gen.Intercept, "真实常数项")
	flags.Float64Var(&gen.Spread, "spread", gen.Spread, "操纵量标准差")
	flags.Float64Var(&gen.FlagRate, "flag-rate", 0, "全局错误标记比例")
	flags.StringVar(&out, "out", "run.csv", "数据文件（.zst 结尾时压缩）")
	flags.StringVar(&cfg, "config", "regressionInput.txt", "通道配置文件")
	return cmd
}
