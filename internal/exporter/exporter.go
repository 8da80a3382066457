package exporter

import (
	"fmt"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"

	"o2oprofit/internal/calculator"
	"o2oprofit/internal/model"
)

const (
	SheetOrders    = "订单明细"
	SheetChannels  = "渠道汇总"
	SheetStores    = "门店汇总"
	SheetDiagnosis = "数据诊断"
	SheetReconcile = "对账结果"
)

// Exporter 利润报表导出器
type Exporter struct{}

// NewExporter 创建导出器
func NewExporter() *Exporter {
	return &Exporter{}
}

// ProgressEvent 导出进度：第 Step 个 Sheet（共 Steps 个）开始写入
type ProgressEvent struct {
	Step    int
	Steps   int
	Percent int
	Stage   string
}

// exportStep 写入一个 Sheet
type exportStep struct {
	stage string
	fn    func() error
}

func notify(progress func(ProgressEvent), evt ProgressEvent) {
	if progress != nil {
		progress(evt)
	}
}

// ExportOptions 导出选项
type ExportOptions struct {
	// Reconcile 非空时追加对账结果 Sheet
	Reconcile *calculator.ReconcileReport
	Progress  func(ProgressEvent)
}

// Export 将一次计算结果导出为工作簿
func (e *Exporter) Export(result *calculator.Result, opts ExportOptions) (*excelize.File, error) {
	if result == nil {
		return nil, fmt.Errorf("no calculation result to export")
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetOrders); err != nil {
		_ = f.Close()
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("创建样式失败: %w", err)
	}
	w := &sheetWriter{f: f, headerStyle: headerStyle}

	steps := []exportStep{
		{"写入订单明细", func() error { return w.writeOrders(result.Orders) }},
		{"写入渠道汇总", func() error { return w.writeSummaries(SheetChannels, "渠道", result.Channels, result.Total) }},
		{"写入门店汇总", func() error { return w.writeSummaries(SheetStores, "门店", result.Stores, result.Total) }},
		{"写入数据诊断", func() error { return w.writeDiagnostics(result) }},
	}
	if opts.Reconcile != nil {
		steps = append(steps, exportStep{"写入对账结果", func() error { return w.writeReconcile(opts.Reconcile) }})
	}

	for i, step := range steps {
		notify(opts.Progress, ProgressEvent{Step: i + 1, Steps: len(steps), Percent: i * 100 / len(steps), Stage: step.stage})
		if err := step.fn(); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%s失败: %w", step.stage, err)
		}
	}
	notify(opts.Progress, ProgressEvent{Step: len(steps), Steps: len(steps), Percent: 100, Stage: "完成"})

	f.SetActiveSheet(0)
	return f, nil
}

// ExportToFile 导出并保存到指定路径
func (e *Exporter) ExportToFile(result *calculator.Result, path string, opts ExportOptions) error {
	f, err := e.Export(result, opts)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("保存报表失败: %w", err)
	}
	return nil
}

type sheetWriter struct {
	f           *excelize.File
	headerStyle int
}

func (w *sheetWriter) ensureSheet(sheet string) error {
	idx, err := w.f.GetSheetIndex(sheet)
	if err != nil {
		return err
	}
	if idx >= 0 {
		return nil
	}
	_, err = w.f.NewSheet(sheet)
	return err
}

func (w *sheetWriter) writeRow(sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return w.f.SetSheetRow(sheet, cell, &values)
}

func (w *sheetWriter) writeHeader(sheet string, headers []string) error {
	values := make([]interface{}, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	if err := w.writeRow(sheet, 1, values); err != nil {
		return err
	}
	if err := w.f.SetRowStyle(sheet, 1, 1, w.headerStyle); err != nil {
		return err
	}
	return w.f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func (w *sheetWriter) writeOrders(orders []*model.AggregatedOrder) error {
	headers := []string{
		"订单号", "渠道", "门店", "下单日期", "明细行数",
		"商品实收", "商品利润", "平台费用", "费用来源",
		"配送净成本", "营销费用", "企客后返", "实际利润", "利润率", "校验提示",
	}
	if err := w.writeHeader(SheetOrders, headers); err != nil {
		return err
	}

	for i, o := range orders {
		values := []interface{}{
			o.OrderID, o.Channel, o.StoreName, o.OrderDate, o.LineCount,
			money(o.Revenue), money(o.GrossProfit), money(o.ResolvedPlatformFee), feeSourceLabel(o.FeeSource),
			money(o.DeliveryNetCost), money(o.MarketingCost), money(o.EnterpriseRebate), money(o.ActualProfit),
			ratioCell(o.ProfitMargin), strings.Join(calculator.ValidateOrder(o), "；"),
		}
		if err := w.writeRow(SheetOrders, i+2, values); err != nil {
			return err
		}
	}

	if err := w.f.SetColWidth(SheetOrders, "A", "A", 24); err != nil {
		return err
	}
	if err := w.f.SetColWidth(SheetOrders, "B", "D", 14); err != nil {
		return err
	}
	return w.f.SetColWidth(SheetOrders, "O", "O", 30)
}

func (w *sheetWriter) writeSummaries(sheet, keyLabel string, list []model.Summary, total model.Summary) error {
	if err := w.ensureSheet(sheet); err != nil {
		return err
	}
	headers := []string{
		keyLabel, "订单数", "明细行数", "兜底订单数",
		"商品实收", "商品利润", "平台费用", "配送净成本", "营销费用", "企客后返", "实际利润",
		"利润率", "客单价", "单均利润", "平台费率", "配送费率", "营销费率",
	}
	if err := w.writeHeader(sheet, headers); err != nil {
		return err
	}

	row := 2
	for _, s := range append(append([]model.Summary{}, list...), total) {
		values := []interface{}{
			s.Key, s.OrderCount, s.LineCount, s.FallbackOrders,
			money(s.Revenue), money(s.GrossProfit), money(s.PlatformFee), money(s.DeliveryNetCost),
			money(s.MarketingCost), money(s.EnterpriseRebate), money(s.Profit),
			ratioCell(s.ProfitMargin), moneyRatio(s.AvgOrderValue), moneyRatio(s.AvgProfitPerOrder),
			ratioCell(s.PlatformFeeRate), ratioCell(s.DeliveryCostRate), ratioCell(s.MarketingCostRate),
		}
		if err := w.writeRow(sheet, row, values); err != nil {
			return err
		}
		row++
	}
	return w.f.SetColWidth(sheet, "A", "A", 20)
}

func (w *sheetWriter) writeDiagnostics(result *calculator.Result) error {
	if err := w.ensureSheet(SheetDiagnosis); err != nil {
		return err
	}
	d := result.Diagnostics

	rows := [][]interface{}{
		{"计算口径", result.Tag},
		{"输入明细行", d.InputRows},
		{"分类剔除行", d.ExcludedCategoryRows},
		{"聚合订单数", d.AggregatedOrders},
		{"计入订单数", len(result.Orders)},
		{"费用缺失剔除", d.ExcludedCount()},
		{"佣金兜底订单", d.FallbackCount()},
		{"一致性告警", len(d.ConsistencyWarnings)},
		{},
		{"审计提示"},
	}
	for _, note := range d.Notes() {
		rows = append(rows, []interface{}{"", note})
	}

	if len(d.ConsistencyWarnings) > 0 {
		rows = append(rows, []interface{}{}, []interface{}{"一致性告警", "订单号", "字段", "首值", "冲突值", "行号"})
		for _, cw := range d.ConsistencyWarnings {
			rows = append(rows, []interface{}{"", cw.OrderID, cw.Field, cw.First, cw.Conflicting, cw.RowNo})
		}
	}
	if len(d.ExcludedOrders) > 0 {
		rows = append(rows, []interface{}{}, []interface{}{"剔除订单", "订单号", "渠道", "门店", "原因"})
		for _, ex := range d.ExcludedOrders {
			rows = append(rows, []interface{}{"", ex.OrderID, ex.Channel, ex.StoreName, ex.Reason})
		}
	}
	if len(d.FallbackAdjusted) > 0 {
		rows = append(rows, []interface{}{}, []interface{}{"兜底订单", "订单号", "渠道", "原服务费", "替代费用"})
		for _, fa := range d.FallbackAdjusted {
			rows = append(rows, []interface{}{"", fa.OrderID, fa.Channel, money(fa.Primary), money(fa.Substituted)})
		}
	}

	for i, values := range rows {
		if len(values) == 0 {
			continue
		}
		if err := w.writeRow(SheetDiagnosis, i+1, values); err != nil {
			return err
		}
	}
	if err := w.f.SetColWidth(SheetDiagnosis, "A", "A", 16); err != nil {
		return err
	}
	return w.f.SetColWidth(SheetDiagnosis, "B", "B", 40)
}

func (w *sheetWriter) writeReconcile(report *calculator.ReconcileReport) error {
	if err := w.ensureSheet(SheetReconcile); err != nil {
		return err
	}
	headers := []string{"维度", "分组", "指标", "基准值", "计算值", "差异", "差异率", "结果"}
	if err := w.writeHeader(SheetReconcile, headers); err != nil {
		return err
	}

	for i, it := range report.Items {
		status := "一致"
		switch {
		case it.Missing:
			status = "缺少分组"
		case !it.Matched:
			status = "不一致"
		}
		values := []interface{}{
			string(it.GroupBy), it.Key, it.Metric,
			roundHalfUp(it.Expected, 2), roundHalfUp(it.Actual, 2), roundHalfUp(it.Diff, 2),
			ratioCell(it.DiffRate), status,
		}
		if err := w.writeRow(SheetReconcile, i+2, values); err != nil {
			return err
		}
	}
	return nil
}

func feeSourceLabel(s model.FeeSource) string {
	switch s {
	case model.FeeFromPrimary:
		return "平台服务费"
	case model.FeeFromSecondary:
		return "平台佣金（兜底）"
	}
	return "未确定"
}

func money(v float64) float64 {
	return roundHalfUp(v, 2)
}

// ratioCell 比率保留 4 位小数，未定义输出 "undefined"
func ratioCell(r model.Ratio) interface{} {
	if !r.Defined {
		return r.String()
	}
	return roundHalfUp(r.Value, 4)
}

func moneyRatio(r model.Ratio) interface{} {
	if !r.Defined {
		return r.String()
	}
	return money(r.Value)
}

func roundHalfUp(v float64, digits int) float64 {
	if digits < 0 {
		return v
	}
	scale := math.Pow10(digits)
	x := v * scale
	if x >= 0 {
		return math.Floor(x+0.5) / scale
	}
	return -math.Floor(-x+0.5) / scale
}
