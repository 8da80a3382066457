package calculator

import (
	"encoding/json"
	"testing"

	"o2oprofit/internal/model"
)

func newOrder(id, channel, store string, revenue, profit float64) *model.AggregatedOrder {
	return &model.AggregatedOrder{
		OrderID:      id,
		Channel:      channel,
		StoreName:    store,
		LineCount:    1,
		Revenue:      revenue,
		ActualProfit: profit,
		ProfitMargin: model.NewRatio(profit, revenue),
	}
}

// TestRollupRateFromTotals 汇总利润率 = Σ利润 / Σ实收，而非订单利润率的平均
func TestRollupRateFromTotals(t *testing.T) {
	orders := []*model.AggregatedOrder{
		newOrder("1", "美团", "一号店", 100, 10),
		newOrder("2", "美团", "一号店", 10, 5),
	}

	got := Rollup(orders, model.GroupByChannel)
	if len(got) != 1 {
		t.Fatalf("groups = %d, want 1", len(got))
	}
	margin := got[0].ProfitMargin
	if !margin.Defined || !floatEquals(margin.Value, 15.0/110.0) {
		t.Fatalf("margin = %v, want %v", margin, 15.0/110.0)
	}
	mean := (0.1 + 0.5) / 2
	if floatEquals(margin.Value, mean) {
		t.Fatalf("margin must not be the mean of order margins")
	}
	if !floatEquals(got[0].AvgOrderValue.Value, 55) {
		t.Fatalf("avg order value = %v, want 55", got[0].AvgOrderValue)
	}
}

func TestRollupSortedByKey(t *testing.T) {
	orders := []*model.AggregatedOrder{
		newOrder("1", "美团", "b店", 1, 1),
		newOrder("2", "京东", "a店", 1, 1),
		newOrder("3", "美团", "a店", 1, 1),
	}
	stores := Rollup(orders, model.GroupByStore)
	if len(stores) != 2 || stores[0].Key != "a店" || stores[1].Key != "b店" {
		t.Fatalf("unexpected store order: %+v", stores)
	}
	if stores[0].OrderCount != 2 {
		t.Fatalf("a店 orders = %d, want 2", stores[0].OrderCount)
	}

	total := Total(orders)
	if total.OrderCount != 3 || total.Key != "合计" {
		t.Fatalf("unexpected total: %+v", total)
	}
}

func TestRatioJSON(t *testing.T) {
	s := Total(nil)
	data, err := json.Marshal(s.ProfitMargin)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "null" {
		t.Fatalf("undefined ratio = %s, want null", data)
	}
	if s.ProfitMargin.String() != "undefined" {
		t.Fatalf("string = %q", s.ProfitMargin.String())
	}

	var r model.Ratio
	if err := json.Unmarshal([]byte("0.25"), &r); err != nil || !r.Defined || r.Value != 0.25 {
		t.Fatalf("unmarshal = %+v, %v", r, err)
	}
}
