package store

import (
	"errors"
	"path/filepath"
	"testing"

	"o2oprofit/internal/calculator"
	"o2oprofit/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "data", "o2o.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleLines() []*model.OrderLine {
	return []*model.OrderLine{
		{OrderID: "A", Channel: "美团", StoreName: "一号店", OrderDate: "2025-03-01", Category: "零食",
			Values: map[string]float64{model.FieldItemProfit: 10, model.FieldDeliveryFee: 5}, RowNo: 2, SourceSheet: "明细"},
		{OrderID: "A", Channel: "美团", StoreName: "一号店", OrderDate: "2025-03-01", Category: "饮料",
			Values: map[string]float64{model.FieldItemProfit: 15, model.FieldDeliveryFee: 5}, RowNo: 3, SourceSheet: "明细"},
		{OrderID: "B", Channel: "饿了么", StoreName: "二号店", OrderDate: "2025-03-05", Category: "零食",
			Values: map[string]float64{model.FieldItemProfit: 20}, RowNo: 4, SourceSheet: "明细"},
	}
}

func TestOrderLinesRoundTrip(t *testing.T) {
	s := newTestStore(t)

	importID, err := s.CreateImportLog("orders.xlsx", "/tmp/orders.xlsx", 100, "hash-1")
	if err != nil {
		t.Fatalf("create import log: %v", err)
	}
	if err := s.BatchInsertOrderLines(importID, sampleLines()); err != nil {
		t.Fatalf("insert: %v", err)
	}

	lines, err := s.QueryOrderLines(OrderLineQuery{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}
	if lines[1].Category != "饮料" || lines[1].Values[model.FieldItemProfit] != 15 || lines[1].RowNo != 3 {
		t.Fatalf("unexpected line: %+v", lines[1])
	}

	tests := []struct {
		name string
		q    OrderLineQuery
		want int
	}{
		{"按门店", OrderLineQuery{StoreName: "一号店"}, 2},
		{"按渠道", OrderLineQuery{Channel: "饿了么"}, 1},
		{"按日期", OrderLineQuery{DateFrom: "2025-03-02", DateTo: "2025-03-31"}, 1},
		{"按导入批次", OrderLineQuery{ImportID: importID}, 3},
		{"分页", OrderLineQuery{Limit: 2, Offset: 2}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.QueryOrderLines(tt.q)
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("lines = %d, want %d", len(got), tt.want)
			}
		})
	}

	count, err := s.CountOrderLines(OrderLineQuery{Channel: "美团"})
	if err != nil || count != 2 {
		t.Fatalf("count = %d, %v", count, err)
	}

	stores, _ := s.ListStores()
	channels, _ := s.ListChannels()
	if len(stores) != 2 || len(channels) != 2 {
		t.Fatalf("stores = %v, channels = %v", stores, channels)
	}

	if err := s.DeleteImport(importID); err != nil {
		t.Fatalf("delete import: %v", err)
	}
	if count, _ := s.CountOrderLines(OrderLineQuery{}); count != 0 {
		t.Fatalf("count after delete = %d", count)
	}
}

func TestImportLogs(t *testing.T) {
	s := newTestStore(t)

	id, err := s.CreateImportLog("orders.csv", "", 10, "hash-2")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if found, err := s.FindImportLogByHash("hash-2"); err != nil || found != nil {
		t.Fatalf("processing import should not count as imported: %+v %v", found, err)
	}

	if err := s.UpdateImportLog(id, ImportLogUpdate{
		TotalSheets: 1, ImportedSheets: 1, TotalRows: 3, ImportedRows: 3, Status: "success",
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	found, err := s.FindImportLogByHash("hash-2")
	if err != nil || found == nil {
		t.Fatalf("find by hash: %+v %v", found, err)
	}
	if found.ImportedRows != 3 || found.CompletedAt == nil {
		t.Fatalf("unexpected log: %+v", found)
	}

	if err := s.InsertSheetMeta(model.SheetMeta{
		ImportLogID: id, SheetName: "明细", SheetType: "order_detail", Status: "imported",
		ColumnsJSON: BuildColumnsJSON([]string{"订单编号"}), ColumnMappingJSON: "{}",
	}); err != nil {
		t.Fatalf("insert sheet meta: %v", err)
	}
	metas, err := s.ListSheetMeta(id)
	if err != nil || len(metas) != 1 || metas[0].ColumnsJSON != `["订单编号"]` {
		t.Fatalf("sheet meta = %+v, %v", metas, err)
	}

	logs, err := s.ListImportLogs(10)
	if err != nil || len(logs) != 1 {
		t.Fatalf("logs = %v, %v", logs, err)
	}
}

func TestCalcRuns(t *testing.T) {
	s := newTestStore(t)

	run := &model.CalcRun{Tag: "fee=strict", Fingerprint: "fp", OrderCount: 2, Profit: 25}
	if err := s.SaveCalcRun(run); err != nil {
		t.Fatalf("save: %v", err)
	}
	if run.ID == "" {
		t.Fatalf("run id should be generated")
	}

	runs, err := s.ListCalcRuns(0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("runs = %v, %v", runs, err)
	}
	if runs[0].ID != run.ID || runs[0].Profit != 25 || runs[0].CreatedAt.IsZero() {
		t.Fatalf("unexpected run: %+v", runs[0])
	}
}

func TestReferenceTotals(t *testing.T) {
	s := newTestStore(t)

	count := 2
	profit := 25.0
	refs := []calculator.ReferenceTotal{
		{GroupBy: model.GroupByTotal, OrderCount: &count, Profit: &profit},
		{GroupBy: model.GroupByChannel, Key: "美团", Profit: &profit},
	}
	if err := s.ReplaceReferenceTotals(refs); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := s.ReplaceReferenceTotals(refs[1:]); err != nil {
		t.Fatalf("replace again: %v", err)
	}

	got, err := s.ListReferenceTotals()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Key != "美团" || got[0].Revenue != nil || *got[0].Profit != 25 {
		t.Fatalf("unexpected refs: %+v", got)
	}
}

func TestCalcConfigPersistence(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.LoadCalcConfig(); !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("err = %v, want ErrConfigNotFound", err)
	}

	cfg := model.DefaultCalcConfig()
	cfg.FeeMode = model.FeeModeStrict
	if err := s.SaveCalcConfig(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := s.LoadCalcConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Fingerprint() != cfg.Fingerprint() {
		t.Fatalf("fingerprint = %q, want %q", loaded.Fingerprint(), cfg.Fingerprint())
	}
}
