package calculator

import (
	"o2oprofit/internal/model"
)

// MarketingRollup 营销费用汇总（按导出版本配置字段）
type MarketingRollup struct {
	schema model.MarketingSchema
	fields []string
}

// NewMarketingRollup 校验口径并创建汇总器
//
// 字段须已登记为订单级；未登记字段仅在 AllowUnclassified 中声明时允许（按 0 计）。
func NewMarketingRollup(registry *Registry, schema model.MarketingSchema) (*MarketingRollup, error) {
	allow := make(map[string]bool, len(schema.AllowUnclassified))
	for _, f := range schema.AllowUnclassified {
		allow[f] = true
	}

	seen := make(map[string]bool, len(schema.Fields))
	fields := make([]string, 0, len(schema.Fields))
	for _, name := range schema.Fields {
		if seen[name] {
			continue
		}
		seen[name] = true

		spec, err := registry.Classify(name)
		if err != nil {
			if allow[name] {
				continue
			}
			return nil, configErrorf(name, "marketing schema %s references an unclassified field", schema.Version)
		}
		if spec.Kind != model.KindNumeric || !spec.IsOrderLevel() {
			return nil, configErrorf(name, "marketing field must be a numeric order-level field")
		}
		fields = append(fields, name)
	}

	return &MarketingRollup{schema: schema, fields: fields}, nil
}

// Fields 实际参与汇总的字段
func (m *MarketingRollup) Fields() []string {
	out := make([]string, len(m.fields))
	copy(out, m.fields)
	return out
}

// Cost 订单营销费用：各字段已按订单取首值，此处直接相加；缺失字段计 0
func (m *MarketingRollup) Cost(o *model.AggregatedOrder) float64 {
	var total float64
	for _, name := range m.fields {
		total += o.Value(name)
	}
	return total
}
