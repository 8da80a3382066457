package calculator

import (
	"slices"
	"sort"

	"o2oprofit/internal/model"
)

// Result 一次计算的完整结果
//
// Orders 为唯一口径来源；Channels/Stores/Total 由其重新汇总得到。
type Result struct {
	Tag         string                   `json:"tag"`
	Config      model.CalcConfig         `json:"config"`
	Orders      []*model.AggregatedOrder `json:"orders"`
	Channels    []model.Summary          `json:"channels"`
	Stores      []model.Summary          `json:"stores"`
	Total       model.Summary            `json:"total"`
	Diagnostics Diagnostics              `json:"diagnostics"`
}

// Clone 深拷贝结果，缓存与调用方各持一份
func (r *Result) Clone() *Result {
	c := *r
	c.Config.ExcludedCategories = slices.Clone(r.Config.ExcludedCategories)
	c.Config.Marketing.Fields = slices.Clone(r.Config.Marketing.Fields)
	c.Config.Marketing.AllowUnclassified = slices.Clone(r.Config.Marketing.AllowUnclassified)
	c.Config.FieldOverrides = slices.Clone(r.Config.FieldOverrides)
	if r.Orders != nil {
		c.Orders = make([]*model.AggregatedOrder, len(r.Orders))
		for i, o := range r.Orders {
			c.Orders[i] = o.Clone()
		}
	}
	c.Channels = slices.Clone(r.Channels)
	c.Stores = slices.Clone(r.Stores)

	d := &c.Diagnostics
	d.OrdersRemovedByFilter = slices.Clone(r.Diagnostics.OrdersRemovedByFilter)
	d.ConsistencyWarnings = slices.Clone(r.Diagnostics.ConsistencyWarnings)
	d.ExcludedOrders = slices.Clone(r.Diagnostics.ExcludedOrders)
	d.FallbackAdjusted = slices.Clone(r.Diagnostics.FallbackAdjusted)
	d.UnclassifiedFields = slices.Clone(r.Diagnostics.UnclassifiedFields)
	d.AbsentFields = slices.Clone(r.Diagnostics.AbsentFields)
	d.AbsentMarketingFields = slices.Clone(r.Diagnostics.AbsentMarketingFields)
	return &c
}

// Engine 订单利润计算引擎
//
// 构造时完成全部配置校验；Run 为纯函数，相同输入得到相同输出。
type Engine struct {
	cfg        model.CalcConfig
	aggregator *Aggregator
	marketing  *MarketingRollup
	excluded   CategorySet
}

// NewEngine 创建计算引擎，配置非法时返回 *ConfigurationError
func NewEngine(cfg model.CalcConfig) (*Engine, error) {
	mode, err := model.ParseFeeMode(string(cfg.FeeMode))
	if err != nil {
		return nil, configErrorf("", "%v", err)
	}
	// 规范化后写回，标签与费用判定使用同一取值
	cfg.FeeMode = mode

	registry, err := NewRegistry(cfg.FieldOverrides)
	if err != nil {
		return nil, err
	}
	if err := registry.RequireFormulaFields(); err != nil {
		return nil, err
	}

	marketing, err := NewMarketingRollup(registry, cfg.Marketing)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:        cfg,
		aggregator: NewAggregator(registry),
		marketing:  marketing,
		excluded:   NewCategorySet(cfg.ExcludedCategories),
	}, nil
}

// Calculate 便捷入口：校验配置并执行一次计算
func Calculate(rows []*model.OrderLine, cfg model.CalcConfig) (*Result, error) {
	e, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	return e.Run(rows), nil
}

// Run 执行完整流水线：过滤 → 聚合 → 费用判定 → 营销汇总 → 利润 → 汇总
func (e *Engine) Run(rows []*model.OrderLine) *Result {
	diag := Diagnostics{
		InputRows:             len(rows),
		OrdersRemovedByFilter: []string{},
		ConsistencyWarnings:   []DataConsistencyWarning{},
		ExcludedOrders:        []ExcludedOrderEvent{},
		FallbackAdjusted:      []FeeAdjustment{},
		UnclassifiedFields:    []string{},
		AbsentFields:          []string{},
		AbsentMarketingFields: []string{},
	}

	valid := make([]*model.OrderLine, 0, len(rows))
	for _, row := range rows {
		if row == nil || row.OrderID == "" {
			diag.EmptyOrderIDRows++
			continue
		}
		valid = append(valid, row)
	}

	filtered := FilterRows(valid, e.excluded)
	diag.ExcludedCategoryRows = filtered.ExcludedRows
	diag.OrdersRemovedByFilter = append(diag.OrdersRemovedByFilter, filtered.RemovedOrders...)

	agg := e.aggregator.AggregateParallel(filtered.Kept, e.cfg.Workers)
	diag.AggregatedOrders = len(agg.Orders)
	diag.ConsistencyWarnings = append(diag.ConsistencyWarnings, agg.Warnings...)
	diag.InconsistentOrders = agg.InconsistentOrders
	diag.UnclassifiedFields = append(diag.UnclassifiedFields, agg.UnclassifiedFields...)

	present := make(map[string]bool)
	orders := make([]*model.AggregatedOrder, 0, len(agg.Orders))
	for _, o := range agg.Orders {
		for name := range o.Present {
			present[name] = true
		}

		fee := ResolveFee(o, e.cfg.FeeMode)
		if fee.Excluded {
			diag.ExcludedOrders = append(diag.ExcludedOrders, ExcludedOrderEvent{
				OrderID:   o.OrderID,
				Channel:   o.Channel,
				StoreName: o.StoreName,
				Reason:    "平台服务费缺失或为零",
			})
			continue
		}
		if fee.Adjusted {
			diag.FallbackAdjusted = append(diag.FallbackAdjusted, FeeAdjustment{
				OrderID:     o.OrderID,
				Channel:     o.Channel,
				Primary:     o.Value(model.FieldPlatformServiceFee),
				Substituted: fee.Fee,
			})
		}

		ComputeProfit(o, fee, e.marketing.Cost(o))
		orders = append(orders, o)
	}

	diag.AbsentFields = append(diag.AbsentFields, absentFrom(present, formulaFieldNames())...)
	diag.AbsentMarketingFields = append(diag.AbsentMarketingFields, absentFrom(present, e.cfg.Marketing.Fields)...)

	return &Result{
		Tag:         e.cfg.Tag(),
		Config:      e.cfg,
		Orders:      orders,
		Channels:    Rollup(orders, model.GroupByChannel),
		Stores:      Rollup(orders, model.GroupByStore),
		Total:       Total(orders),
		Diagnostics: diag,
	}
}

func formulaFieldNames() []string {
	names := make([]string, 0, len(formulaFields))
	for name := range formulaFields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// absentFrom 未出现在任何订单中的字段；无数据时不报告
func absentFrom(present map[string]bool, fields []string) []string {
	if len(present) == 0 {
		return nil
	}
	var out []string
	for _, f := range fields {
		if !present[f] {
			out = append(out, f)
		}
	}
	return out
}
