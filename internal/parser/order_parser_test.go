package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"o2oprofit/internal/model"
)

func createOrderWorkbook(t *testing.T) *excelize.File {
	t.Helper()

	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })

	const sheet = "美团订单明细"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	rows := [][]interface{}{
		{"订单编号", "门店名称", "下单时间", "一级分类", "商品名称", "商品实收(元)", "商品成本", "配送费", "平台服务费", "备注"},
		{"A001", "一号店", "2025-03-01 12:00:00", "零食", "薯片", "40", "30", "5", "8", ""},
		{"A001", "一号店", "2025-03-01 12:00:00", "饮料", "可乐", "1,060.00", "1,000", "5", "8", "加冰"},
		{"", "一号店", "", "零食", "空行", "1", "1", "", "", ""},
		{"A002", "二号店", "2025/3/2", "零食", "饼干", "abc", "2", "3", "", ""},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("write row %d: %v", i, err)
		}
	}
	return f
}

func TestOrderParser_ParseSheet(t *testing.T) {
	t.Parallel()

	f := createOrderWorkbook(t)
	p := NewOrderParser()

	lines, result, err := p.ParseSheet(f, "美团订单明细")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(lines) != 3 || result.ImportedRows != 3 {
		t.Fatalf("lines = %d, imported = %d, want 3", len(lines), result.ImportedRows)
	}
	if result.SkippedRows != 1 {
		t.Fatalf("skipped = %d, want 1", result.SkippedRows)
	}
	if result.ErrorRows != 1 || len(result.Errors) != 1 {
		t.Fatalf("errors = %d %v, want 1", result.ErrorRows, result.Errors)
	}
	if !result.DerivedProfit {
		t.Fatalf("item profit should be derived from revenue and cost")
	}

	first := lines[0]
	if first.OrderID != "A001" || first.Channel != "美团" || first.StoreName != "一号店" {
		t.Fatalf("unexpected first line: %+v", first)
	}
	if first.OrderDate != "2025-03-01" || first.Category != "零食" || first.RowNo != 2 {
		t.Fatalf("unexpected first line: %+v", first)
	}
	if v, _ := first.Value(model.FieldItemProfit); v != 10 {
		t.Fatalf("derived profit = %v, want 10", v)
	}
	if v, _ := lines[1].Value(model.FieldItemProfit); v != 60 {
		t.Fatalf("derived profit with thousands separator = %v, want 60", v)
	}

	// 实收无法解析时不推导利润，字段视为缺失
	bad := lines[2]
	if _, ok := bad.Value(model.FieldItemRevenue); ok {
		t.Fatalf("unparsable revenue should be absent")
	}
	if _, ok := bad.Value(model.FieldItemProfit); ok {
		t.Fatalf("profit should not be derived without revenue")
	}
	if _, ok := bad.Value(model.FieldPlatformServiceFee); ok {
		t.Fatalf("empty service fee should be absent")
	}
	if len(result.UnmappedColumns) != 1 || result.UnmappedColumns[0] != "备注" {
		t.Fatalf("unmapped = %v", result.UnmappedColumns)
	}
}

func TestOrderParser_ParseCSV(t *testing.T) {
	t.Parallel()

	data := strings.Join([]string{
		"order_id,channel,store_name,category_l1,item_profit,delivery_fee,platform_commission",
		"B1,eleme,二号店,零食,20,3,4",
		"B1,eleme,二号店,零食,5,3,1",
	}, "\n")

	lines, result, err := NewOrderParser().ParseCSV(strings.NewReader(data), "订单明细.csv")
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(lines) != 2 || result.DerivedProfit {
		t.Fatalf("unexpected result: %+v", result)
	}
	if lines[0].Channel != "饿了么" {
		t.Fatalf("channel = %q, want 饿了么", lines[0].Channel)
	}
	if v, _ := lines[1].Value(model.FieldPlatformCommission); v != 1 {
		t.Fatalf("commission = %v", v)
	}
}

// TestOrderParser_BadOrderDate 日期无法解析时记为错误行，日期留空
func TestOrderParser_BadOrderDate(t *testing.T) {
	t.Parallel()

	rows := [][]string{
		{"订单编号", "门店名称", "下单时间", "一级分类", "商品利润", "平台服务费"},
		{"D1", "一号店", "2025-03-01", "零食", "10", "2"},
		{"D2", "一号店", "上周三", "零食", "8", "2"},
	}
	lines, result, err := NewOrderParser().ParseRows("美团订单明细", rows)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(lines) != 2 || result.ErrorRows != 1 {
		t.Fatalf("lines = %d, error rows = %d, want 2/1", len(lines), result.ErrorRows)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "上周三") {
		t.Fatalf("errors = %v", result.Errors)
	}
	if lines[1].OrderDate != "" {
		t.Fatalf("bad date kept as %q", lines[1].OrderDate)
	}
	if v, _ := lines[1].Value(model.FieldItemProfit); v != 8 {
		t.Fatalf("amounts on the row should still parse, profit = %v", v)
	}
}

func TestOrderParser_SkipsNonOrderSheet(t *testing.T) {
	t.Parallel()

	rows := [][]string{
		{"门店", "合计金额"},
		{"一号店", "100"},
	}
	_, result, err := NewOrderParser().ParseRows("美团账单汇总", rows)
	if !errors.Is(err, ErrNotOrderSheet) {
		t.Fatalf("err = %v, want ErrNotOrderSheet", err)
	}
	if result.Status != "skipped" || result.SheetType != SheetTypeSummary {
		t.Fatalf("unexpected result: %+v", result)
	}
}
