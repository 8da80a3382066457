package calculator

import (
	"math"
	"sort"
	"strconv"

	"o2oprofit/internal/model"
)

// Aggregator 订单聚合器：按订单号分组，按字段登记表逐字段归约
type Aggregator struct {
	registry *Registry
	numeric  []model.FieldSpec
}

// NewAggregator 创建聚合器
func NewAggregator(registry *Registry) *Aggregator {
	return &Aggregator{
		registry: registry,
		numeric:  registry.NumericFields(),
	}
}

// AggregateResult 聚合结果
type AggregateResult struct {
	Orders             []*model.AggregatedOrder
	Warnings           []DataConsistencyWarning
	InconsistentOrders int
	UnclassifiedFields []string
}

// indexedRow 带输入位置的明细行，用于分区后恢复原始顺序
type indexedRow struct {
	idx  int
	line *model.OrderLine
}

type indexedOrder struct {
	first int
	order *model.AggregatedOrder
}

type indexedWarning struct {
	idx     int
	warning DataConsistencyWarning
}

type partialResult struct {
	orders       []indexedOrder
	warnings     []indexedWarning
	inconsistent int
	unclassified map[string]struct{}
}

// Aggregate 串行聚合；订单按首次出现顺序输出
func (a *Aggregator) Aggregate(rows []*model.OrderLine) AggregateResult {
	indexed := make([]indexedRow, len(rows))
	for i, row := range rows {
		indexed[i] = indexedRow{idx: i, line: row}
	}
	return mergePartials([]*partialResult{a.aggregatePartition(indexed)})
}

// aggregatePartition 聚合一个分区；同一订单的所有行必须位于同一分区
func (a *Aggregator) aggregatePartition(rows []indexedRow) *partialResult {
	res := &partialResult{unclassified: make(map[string]struct{})}
	byID := make(map[string]int)
	flagged := make(map[string]bool)

	warn := func(idx int, o *model.AggregatedOrder, field, first, got string, rowNo int) {
		res.warnings = append(res.warnings, indexedWarning{idx: idx, warning: DataConsistencyWarning{
			OrderID:     o.OrderID,
			Field:       field,
			First:       first,
			Conflicting: got,
			RowNo:       rowNo,
		}})
		if !flagged[o.OrderID] {
			flagged[o.OrderID] = true
			res.inconsistent++
		}
	}

	for _, r := range rows {
		line := r.line
		pos, ok := byID[line.OrderID]
		if !ok {
			pos = len(res.orders)
			byID[line.OrderID] = pos
			res.orders = append(res.orders, indexedOrder{first: r.idx, order: &model.AggregatedOrder{
				OrderID:   line.OrderID,
				Channel:   line.Channel,
				StoreName: line.StoreName,
				OrderDate: line.OrderDate,
				Values:    make(map[string]float64, len(a.numeric)),
				Present:   make(map[string]bool, len(a.numeric)),
			}})
		}
		o := res.orders[pos].order
		o.LineCount++

		if ok {
			// 文本类订单级维度
			o.Channel = a.checkText(r.idx, o, model.FieldChannel, o.Channel, line.Channel, line.RowNo, warn)
			o.StoreName = a.checkText(r.idx, o, model.FieldStoreName, o.StoreName, line.StoreName, line.RowNo, warn)
			o.OrderDate = a.checkText(r.idx, o, model.FieldOrderDate, o.OrderDate, line.OrderDate, line.RowNo, warn)
		}

		for _, spec := range a.numeric {
			v, has := line.Value(spec.Name)
			if !has {
				continue
			}
			switch spec.Reduction {
			case model.ReduceSum:
				o.Values[spec.Name] += v
			case model.ReduceFirst:
				if !o.Present[spec.Name] {
					o.Values[spec.Name] = v
				} else if math.Float64bits(o.Values[spec.Name]) != math.Float64bits(v) {
					warn(r.idx, o, spec.Name, formatValue(o.Values[spec.Name]), formatValue(v), line.RowNo)
				}
			}
			o.Present[spec.Name] = true
		}

		for name := range line.Values {
			if !a.registry.Known(name) {
				res.unclassified[name] = struct{}{}
			}
		}
	}
	return res
}

type warnFunc func(idx int, o *model.AggregatedOrder, field, first, got string, rowNo int)

func (a *Aggregator) checkText(idx int, o *model.AggregatedOrder, field, current, got string, rowNo int, warn warnFunc) string {
	if got == "" || got == current {
		return current
	}
	if current == "" {
		return got
	}
	warn(idx, o, field, current, got, rowNo)
	return current
}

// mergePartials 合并分区结果，恢复输入顺序，保证与串行结果一致
func mergePartials(parts []*partialResult) AggregateResult {
	var orders []indexedOrder
	var warnings []indexedWarning
	unclassified := make(map[string]struct{})
	out := AggregateResult{}

	for _, p := range parts {
		orders = append(orders, p.orders...)
		warnings = append(warnings, p.warnings...)
		out.InconsistentOrders += p.inconsistent
		for name := range p.unclassified {
			unclassified[name] = struct{}{}
		}
	}

	sort.SliceStable(orders, func(i, j int) bool { return orders[i].first < orders[j].first })
	sort.SliceStable(warnings, func(i, j int) bool { return warnings[i].idx < warnings[j].idx })

	out.Orders = make([]*model.AggregatedOrder, len(orders))
	for i, o := range orders {
		out.Orders[i] = o.order
	}
	out.Warnings = make([]DataConsistencyWarning, len(warnings))
	for i, w := range warnings {
		out.Warnings[i] = w.warning
	}
	out.UnclassifiedFields = make([]string, 0, len(unclassified))
	for name := range unclassified {
		out.UnclassifiedFields = append(out.UnclassifiedFields, name)
	}
	sort.Strings(out.UnclassifiedFields)
	return out
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
