package exporter

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"o2oprofit/internal/calculator"
	"o2oprofit/internal/model"
)

func line(orderID, channel, store string, values map[string]float64) *model.OrderLine {
	return &model.OrderLine{
		OrderID:   orderID,
		Channel:   channel,
		StoreName: store,
		Category:  "零食",
		Values:    values,
	}
}

// A 正常；B 服务费为零（strict 剔除）；C 实收为零（利润率未定义）
func sampleResult(t *testing.T) *calculator.Result {
	t.Helper()
	rows := []*model.OrderLine{
		line("A", "美团", "一号店", map[string]float64{
			model.FieldItemRevenue:        100,
			model.FieldItemProfit:         25,
			model.FieldDeliveryFee:        5,
			model.FieldPlatformServiceFee: 8,
		}),
		line("B", "饿了么", "二号店", map[string]float64{
			model.FieldItemRevenue:        50,
			model.FieldItemProfit:         20,
			model.FieldPlatformServiceFee: 0,
			model.FieldPlatformCommission: 4,
		}),
		line("C", "美团", "一号店", map[string]float64{
			model.FieldItemRevenue:        0,
			model.FieldItemProfit:         0,
			model.FieldPlatformServiceFee: 1,
		}),
	}
	cfg := model.DefaultCalcConfig()
	cfg.FeeMode = model.FeeModeStrict
	res, err := calculator.Calculate(rows, cfg)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	return res
}

func findRow(t *testing.T, f *excelize.File, sheet, key string) []string {
	t.Helper()
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("get rows %s: %v", sheet, err)
	}
	for _, r := range rows {
		if len(r) > 0 && r[0] == key {
			return r
		}
	}
	t.Fatalf("row %q not found in %s", key, sheet)
	return nil
}

func TestExportSheets(t *testing.T) {
	res := sampleResult(t)
	profit := 12.0
	report := calculator.Reconcile(res, []calculator.ReferenceTotal{
		{GroupBy: model.GroupByChannel, Key: "美团", Profit: &profit},
	}, calculator.DefaultTolerance())

	var events []ProgressEvent
	f, err := NewExporter().Export(res, ExportOptions{
		Reconcile: report,
		Progress:  func(ev ProgressEvent) { events = append(events, ev) },
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer f.Close()

	want := []string{SheetOrders, SheetChannels, SheetStores, SheetDiagnosis, SheetReconcile}
	sheets := f.GetSheetList()
	if len(sheets) != len(want) {
		t.Fatalf("sheets = %v", sheets)
	}
	for i, name := range want {
		if sheets[i] != name {
			t.Fatalf("sheet[%d] = %q, want %q", i, sheets[i], name)
		}
	}

	if v, _ := f.GetCellValue(SheetOrders, "A1"); v != "订单号" {
		t.Fatalf("A1 = %q", v)
	}
	// 利润率在第 N 列
	c := findRow(t, f, SheetOrders, "C")
	if len(c) < 14 || c[13] != "undefined" {
		t.Fatalf("order C margin = %v", c)
	}
	a := findRow(t, f, SheetOrders, "A")
	if a[12] != "12" {
		t.Fatalf("order A profit = %q", a[12])
	}

	total := findRow(t, f, SheetChannels, "合计")
	if total[1] != "2" {
		t.Fatalf("total order count = %q", total[1])
	}
	if _, err := f.GetCellValue(SheetDiagnosis, "A1"); err != nil {
		t.Fatalf("diagnosis: %v", err)
	}
	excluded := findRow(t, f, SheetDiagnosis, "费用缺失剔除")
	if excluded[1] != "1" {
		t.Fatalf("excluded = %v", excluded)
	}

	rec := findRow(t, f, SheetReconcile, "channel")
	if rec[len(rec)-1] != "不一致" && rec[len(rec)-1] != "一致" {
		t.Fatalf("reconcile row = %v", rec)
	}

	// 5 个 Sheet 各一次，外加完成事件
	if len(events) != 6 || events[len(events)-1].Percent != 100 {
		t.Fatalf("progress events = %+v", events)
	}
	for i, ev := range events[:5] {
		if ev.Step != i+1 || ev.Steps != 5 || ev.Percent != i*20 {
			t.Fatalf("event %d = %+v", i, ev)
		}
	}
	if events[4].Stage != "写入对账结果" {
		t.Fatalf("last sheet stage = %q", events[4].Stage)
	}
}

func TestExportWithoutReconcile(t *testing.T) {
	f, err := NewExporter().Export(sampleResult(t), ExportOptions{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer f.Close()
	idx, err := f.GetSheetIndex(SheetReconcile)
	if err != nil {
		t.Fatalf("sheet index: %v", err)
	}
	if idx != -1 {
		t.Fatalf("reconcile sheet should be absent")
	}
}

func TestExportToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	if err := NewExporter().ExportToFile(sampleResult(t), path, ExportOptions{}); err != nil {
		t.Fatalf("export: %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	if len(f.GetSheetList()) != 4 {
		t.Fatalf("sheets = %v", f.GetSheetList())
	}
}

func TestExportNilResult(t *testing.T) {
	if _, err := NewExporter().Export(nil, ExportOptions{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{2.346, 2.35},
		{-2.346, -2.35},
		{2.344, 2.34},
	}
	for _, tt := range tests {
		if got := roundHalfUp(tt.in, 2); got != tt.want {
			t.Fatalf("roundHalfUp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
