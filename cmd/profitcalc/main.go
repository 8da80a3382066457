// profitcalc 离线核算：直接读取平台导出文件，输出利润汇总与审计提示，可选写出 Excel 报表。
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"o2oprofit/internal/calculator"
	"o2oprofit/internal/config"
	"o2oprofit/internal/exporter"
	"o2oprofit/internal/logger"
	"o2oprofit/internal/model"
	"o2oprofit/internal/parser"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		var cfgErr *calculator.ConfigurationError
		if errors.As(err, &cfgErr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

type options struct {
	file       string
	configPath string
	mode       string
	schema     string
	exclude    string
	out        string
	workers    int
	logLevel   string
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("profitcalc", flag.ContinueOnError)
	fs.StringVar(&opts.file, "file", "", "平台导出文件 (.xlsx/.csv)")
	fs.StringVar(&opts.configPath, "config", "", "config.toml 路径 (可选)")
	fs.StringVar(&opts.mode, "mode", "", "平台费用模式 strict/fallback/none")
	fs.StringVar(&opts.schema, "schema", "", "营销口径版本，如 v1/v2/v3")
	fs.StringVar(&opts.exclude, "exclude", "", "剔除分类，逗号分隔；传 - 表示不剔除")
	fs.StringVar(&opts.out, "out", "", "Excel 报表输出路径 (可选)")
	fs.IntVar(&opts.workers, "workers", 0, "并行聚合分区数")
	fs.StringVar(&opts.logLevel, "log", "warn", "日志级别")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.file == "" {
		return nil, fmt.Errorf("缺少 -file 参数")
	}
	return opts, nil
}

// engineConfig 配置文件 + 命令行覆盖
func engineConfig(opts *options) (model.CalcConfig, error) {
	appCfg := config.DefaultConfig()
	if opts.configPath != "" {
		loaded, _, err := config.LoadFromFile(opts.configPath)
		if err != nil {
			return model.CalcConfig{}, err
		}
		appCfg = loaded
	}

	calc := appCfg.Calculation
	if opts.mode != "" {
		calc.FeeMode = opts.mode
	}
	if opts.schema != "" {
		calc.MarketingSchema = opts.schema
	}
	switch opts.exclude {
	case "":
	case "-":
		calc.ExcludedCategories = []string{}
	default:
		var cats []string
		for _, c := range strings.Split(opts.exclude, ",") {
			if c = strings.TrimSpace(c); c != "" {
				cats = append(cats, c)
			}
		}
		calc.ExcludedCategories = cats
	}
	if opts.workers > 0 {
		calc.Workers = opts.workers
	}

	cfg, err := calc.EngineConfig()
	if err != nil {
		return cfg, &calculator.ConfigurationError{Reason: err.Error()}
	}
	return cfg, nil
}

func run(args []string, w io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	zl, err := logger.Init(opts.logLevel, true)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	cfg, err := engineConfig(opts)
	if err != nil {
		return err
	}

	lines, results, err := parser.NewOrderParser().ParseFile(opts.file)
	if err != nil {
		return err
	}
	for _, r := range results {
		zl.Debug("sheet parsed",
			zap.String("sheet", r.SheetName),
			zap.String("status", r.Status),
			zap.Int("rows", r.ImportedRows),
			zap.Strings("unmapped", r.UnmappedColumns),
		)
		if r.DerivedProfit {
			fmt.Fprintf(w, "提示: %s 无商品利润列，已按 实收-成本 推导\n", r.SheetName)
		}
	}

	res, err := calculator.Calculate(lines, cfg)
	if err != nil {
		return err
	}
	printResult(w, res)

	if opts.out != "" {
		var reportOpts exporter.ExportOptions
		if err := exporter.NewExporter().ExportToFile(res, opts.out, reportOpts); err != nil {
			return err
		}
		fmt.Fprintf(w, "\n报表已写入: %s\n", opts.out)
	}
	return nil
}

func printResult(w io.Writer, res *calculator.Result) {
	t := res.Total
	fmt.Fprintf(w, "口径: %s\n", res.Tag)
	fmt.Fprintf(w, "明细行: %d  订单: %d  剔除: %d  兜底: %d\n",
		res.Diagnostics.InputRows, t.OrderCount, res.Diagnostics.ExcludedCount(), res.Diagnostics.FallbackCount())
	fmt.Fprintf(w, "商品实收: %.2f  实际利润: %.2f  利润率: %s\n", t.Revenue, t.Profit, t.ProfitMargin)

	if len(res.Channels) > 0 {
		fmt.Fprintln(w, "\n渠道汇总:")
		for _, s := range res.Channels {
			fmt.Fprintf(w, "  %-6s 订单 %5d  实收 %12.2f  利润 %12.2f  利润率 %s\n",
				s.Key, s.OrderCount, s.Revenue, s.Profit, s.ProfitMargin)
		}
	}

	if notes := res.Diagnostics.Notes(); len(notes) > 0 {
		fmt.Fprintln(w, "\n审计提示:")
		for _, n := range notes {
			fmt.Fprintf(w, "  - %s\n", n)
		}
	}
}
