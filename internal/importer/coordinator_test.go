package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"o2oprofit/internal/model"
	"o2oprofit/internal/parser"
	"o2oprofit/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "o2o.db"))
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// writeWorkbook 生成含订单明细与汇总表的测试工作簿
func writeWorkbook(t *testing.T) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "美团订单明细"); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	detail := [][]interface{}{
		{"订单编号", "门店名称", "一级分类", "商品名称", "商品利润", "配送费", "平台服务费", "平台佣金"},
		{"A", "一号店", "零食", "薯片", 10, 5, 8, 1},
		{"A", "一号店", "饮料", "可乐", 15, 5, 8, 2},
		{"B", "二号店", "零食", "饼干", 20, 3, 0, 4},
	}
	writeRows(t, f, "美团订单明细", detail)

	if _, err := f.NewSheet("对账汇总"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	writeRows(t, f, "对账汇总", [][]interface{}{
		{"门店", "合计金额"},
		{"一号店", 100},
	})

	path := filepath.Join(t.TempDir(), "美团_202503.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func writeRows(t *testing.T, f *excelize.File, sheet string, rows [][]interface{}) {
	t.Helper()
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("write row: %v", err)
		}
	}
}

func drain(t *testing.T, ch <-chan ProgressEvent) (*parser.ImportReport, []ProgressEvent) {
	t.Helper()
	var report *parser.ImportReport
	var events []ProgressEvent
	for evt := range ch {
		events = append(events, evt)
		if evt.Type == "error" {
			t.Fatalf("import error event: %s", evt.Message)
		}
		if evt.Type == "done" {
			r, ok := evt.Data.(*parser.ImportReport)
			if !ok {
				t.Fatalf("unexpected report type: %T", evt.Data)
			}
			report = r
		}
	}
	if report == nil {
		t.Fatalf("missing done report")
	}
	return report, events
}

func TestImportWorkbook(t *testing.T) {
	st := newTestStore(t)
	path := writeWorkbook(t)

	c := NewCoordinator(st)
	completed := 0
	c.OnComplete(func(*parser.ImportReport) { completed++ })

	report, _ := drain(t, c.Import(ImportOptions{FilePath: path}))

	if report.TotalSheets != 2 || report.ImportedSheets != 1 || report.SkippedSheets != 1 {
		t.Fatalf("unexpected sheets: total=%d imported=%d skipped=%d", report.TotalSheets, report.ImportedSheets, report.SkippedSheets)
	}
	if report.ImportedRows != 3 {
		t.Fatalf("imported rows = %d, want 3", report.ImportedRows)
	}
	if completed != 1 {
		t.Fatalf("completion callback called %d times", completed)
	}

	count, err := st.CountOrderLines(store.OrderLineQuery{Channel: "美团"})
	if err != nil || count != 3 {
		t.Fatalf("stored lines = %d, %v", count, err)
	}

	logs, err := st.ListImportLogs(5)
	if err != nil || len(logs) != 1 || logs[0].Status != "partial" {
		t.Fatalf("import logs = %+v, %v", logs, err)
	}
	metas, err := st.ListSheetMeta(report.ImportID)
	if err != nil || len(metas) != 2 {
		t.Fatalf("sheet meta = %+v, %v", metas, err)
	}
}

func TestImportDuplicateFile(t *testing.T) {
	st := newTestStore(t)
	path := writeWorkbook(t)
	c := NewCoordinator(st)

	first, _ := drain(t, c.Import(ImportOptions{FilePath: path}))

	second, events := drain(t, c.Import(ImportOptions{FilePath: path}))
	if second.ImportID != first.ImportID || second.ImportedRows != 0 {
		t.Fatalf("duplicate import should be skipped: %+v", second)
	}
	warned := false
	for _, e := range events {
		if e.Type == "warning" {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected duplicate warning")
	}
	if count, _ := st.CountOrderLines(store.OrderLineQuery{}); count != 3 {
		t.Fatalf("lines = %d, want 3", count)
	}

	third, _ := drain(t, c.Import(ImportOptions{FilePath: path, ReplaceDuplicate: true}))
	if third.ImportID == first.ImportID {
		t.Fatalf("replace should create a new import")
	}
	if count, _ := st.CountOrderLines(store.OrderLineQuery{}); count != 3 {
		t.Fatalf("lines after replace = %d, want 3", count)
	}
}

func TestImportCSV(t *testing.T) {
	st := newTestStore(t)

	path := filepath.Join(t.TempDir(), "upload.tmp")
	data := "订单号,门店,一级分类,商品名称,商品实收,商品成本,配送费,平台服务费\n" +
		"C1,三号店,零食,薯片,30,20,4,2\n" +
		"C1,三号店,饮料,可乐,10,6,4,2\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	report, _ := drain(t, NewCoordinator(st).Import(ImportOptions{FilePath: path, Filename: "抖音订单明细.csv"}))
	if report.ImportedRows != 2 || len(report.Sheets) != 1 || !report.Sheets[0].DerivedProfit {
		t.Fatalf("unexpected report: %+v", report)
	}

	lines, err := st.QueryOrderLines(store.OrderLineQuery{})
	if err != nil || len(lines) != 2 {
		t.Fatalf("lines = %v, %v", lines, err)
	}
	if lines[0].Channel != "抖音" || lines[0].Values["item_profit"] != 10 {
		t.Fatalf("unexpected line: %+v", lines[0])
	}
}

// TestReplaceDuplicateKeepsOldBatchOnFailure 重新导入失败时旧批次保留，不触发完成回调
func TestReplaceDuplicateKeepsOldBatchOnFailure(t *testing.T) {
	st := newTestStore(t)

	// 只有汇总表、没有订单明细的文件
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", "对账汇总"); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	writeRows(t, f, "对账汇总", [][]interface{}{{"门店", "合计金额"}, {"一号店", 100}})
	path := filepath.Join(t.TempDir(), "美团_202504.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	_ = f.Close()

	hash, err := fileHash(path)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	prevID, err := st.CreateImportLog("美团_202504.xlsx", path, 0, hash)
	if err != nil {
		t.Fatalf("create import log: %v", err)
	}
	if err := st.BatchInsertOrderLines(prevID, []*model.OrderLine{
		{OrderID: "OLD", Channel: "美团", StoreName: "一号店", Category: "零食", Values: map[string]float64{"item_profit": 5}},
	}); err != nil {
		t.Fatalf("seed lines: %v", err)
	}
	if err := st.UpdateImportLog(prevID, store.ImportLogUpdate{Status: "success", ImportedSheets: 1, ImportedRows: 1}); err != nil {
		t.Fatalf("update import log: %v", err)
	}

	c := NewCoordinator(st)
	completed := 0
	c.OnComplete(func(*parser.ImportReport) { completed++ })

	var gotError bool
	for evt := range c.Import(ImportOptions{FilePath: path, ReplaceDuplicate: true}) {
		switch evt.Type {
		case "error":
			gotError = true
		case "done":
			t.Fatalf("import should fail: %+v", evt.Data)
		}
	}
	if !gotError {
		t.Fatalf("expected error event")
	}
	if completed != 0 {
		t.Fatalf("completion callback called %d times", completed)
	}

	lines, err := st.QueryOrderLines(store.OrderLineQuery{})
	if err != nil || len(lines) != 1 || lines[0].OrderID != "OLD" {
		t.Fatalf("old batch should survive: %+v, %v", lines, err)
	}
	prev, err := st.FindImportLogByHash(hash)
	if err != nil || prev == nil || prev.ID != prevID {
		t.Fatalf("old import log should survive: %+v, %v", prev, err)
	}
}
