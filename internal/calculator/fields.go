package calculator

import (
	"sort"

	"o2oprofit/internal/model"
)

// defaultFieldSpecs 默认字段登记表
var defaultFieldSpecs = []model.FieldSpec{
	// 维度
	{Name: model.FieldOrderID, Label: "订单号", Kind: model.KindText, Level: model.LevelOrder, Reduction: model.ReduceFirst},
	{Name: model.FieldChannel, Label: "渠道", Kind: model.KindText, Level: model.LevelOrder, Reduction: model.ReduceFirst},
	{Name: model.FieldStoreName, Label: "门店", Kind: model.KindText, Level: model.LevelOrder, Reduction: model.ReduceFirst},
	{Name: model.FieldOrderDate, Label: "下单时间", Kind: model.KindText, Level: model.LevelOrder, Reduction: model.ReduceFirst},
	{Name: model.FieldCategory, Label: "一级分类", Kind: model.KindText, Level: model.LevelItem, Reduction: model.ReduceNone},
	{Name: model.FieldProductName, Label: "商品名称", Kind: model.KindText, Level: model.LevelItem, Reduction: model.ReduceNone},

	// 商品行级
	{Name: model.FieldUnitPrice, Label: "商品单价", Kind: model.KindNumeric, Level: model.LevelItem, Reduction: model.ReduceNone},
	{Name: model.FieldQuantity, Label: "数量", Kind: model.KindNumeric, Level: model.LevelItem, Reduction: model.ReduceSum},
	{Name: model.FieldItemRevenue, Label: "商品实收", Kind: model.KindNumeric, Level: model.LevelItem, Reduction: model.ReduceSum},
	{Name: model.FieldItemCost, Label: "商品成本", Kind: model.KindNumeric, Level: model.LevelItem, Reduction: model.ReduceSum},
	{Name: model.FieldItemProfit, Label: "商品利润", Kind: model.KindNumeric, Level: model.LevelItem, Reduction: model.ReduceSum},
	{Name: model.FieldPlatformCommission, Label: "平台佣金", Kind: model.KindNumeric, Level: model.LevelItem, Reduction: model.ReduceSum},

	// 订单级
	{Name: model.FieldPlatformServiceFee, Label: "平台服务费", Kind: model.KindNumeric, Level: model.LevelOrder, Reduction: model.ReduceFirst},
	{Name: model.FieldDeliveryFee, Label: "配送费", Kind: model.KindNumeric, Level: model.LevelOrder, Reduction: model.ReduceFirst},
	{Name: model.FieldUserPaidDeliveryFee, Label: "用户支付配送费", Kind: model.KindNumeric, Level: model.LevelOrder, Reduction: model.ReduceFirst},
	{Name: model.FieldDeliveryFeeWaiver, Label: "配送费减免", Kind: model.KindNumeric, Level: model.LevelOrder, Reduction: model.ReduceFirst},
	{Name: model.FieldCustomerRebate, Label: "顾客返利", Kind: model.KindNumeric, Level: model.LevelOrder, Reduction: model.ReduceFirst},
	{Name: model.FieldEnterpriseCustomerRebate, Label: "企客后返", Kind: model.KindNumeric, Level: model.LevelOrder, Reduction: model.ReduceFirst},

	// 营销（订单级）
	{Name: model.FieldFullReduction, Label: "满减金额", Kind: model.KindNumeric, Level: model.LevelOrder, Reduction: model.ReduceFirst},
	{Name: model.FieldProductDiscount, Label: "商品减免", Kind: model.KindNumeric, Level: model.LevelOrder, Reduction: model.ReduceFirst},
	{Name: model.FieldMerchantCoupon, Label: "商家代金券", Kind: model.KindNumeric, Level: model.LevelOrder, Reduction: model.ReduceFirst},
	{Name: model.FieldMerchantDeliveryDiscount, Label: "商家承担配送费活动", Kind: model.KindNumeric, Level: model.LevelOrder, Reduction: model.ReduceFirst},
	{Name: model.FieldMerchantRedPacket, Label: "商家红包", Kind: model.KindNumeric, Level: model.LevelOrder, Reduction: model.ReduceFirst},
	{Name: model.FieldNewCustomerDiscount, Label: "新客立减", Kind: model.KindNumeric, Level: model.LevelOrder, Reduction: model.ReduceFirst},
	{Name: model.FieldSpecialPriceSubsidy, Label: "特价补贴", Kind: model.KindNumeric, Level: model.LevelOrder, Reduction: model.ReduceFirst},
	{Name: model.FieldGiftCost, Label: "赠品成本", Kind: model.KindNumeric, Level: model.LevelOrder, Reduction: model.ReduceFirst},
}

// formulaFields 利润公式直接引用的字段及其要求的聚合方式
var formulaFields = map[string]model.Reduction{
	model.FieldItemRevenue:              model.ReduceSum,
	model.FieldItemProfit:               model.ReduceSum,
	model.FieldPlatformCommission:       model.ReduceSum,
	model.FieldPlatformServiceFee:       model.ReduceFirst,
	model.FieldDeliveryFee:              model.ReduceFirst,
	model.FieldDeliveryFeeWaiver:        model.ReduceFirst,
	model.FieldCustomerRebate:           model.ReduceFirst,
	model.FieldEnterpriseCustomerRebate: model.ReduceFirst,
}

// Registry 字段分类登记表
type Registry struct {
	specs map[string]model.FieldSpec
	order []string
}

// NewRegistry 以默认登记表为基础，叠加覆盖项
func NewRegistry(overrides []model.FieldSpec) (*Registry, error) {
	r := &Registry{specs: make(map[string]model.FieldSpec, len(defaultFieldSpecs)+len(overrides))}
	for _, spec := range defaultFieldSpecs {
		r.put(spec)
	}
	for _, spec := range overrides {
		if err := validateSpec(spec); err != nil {
			return nil, err
		}
		r.put(spec)
	}
	return r, nil
}

func (r *Registry) put(spec model.FieldSpec) {
	if spec.Kind == "" {
		spec.Kind = model.KindNumeric
	}
	if _, ok := r.specs[spec.Name]; !ok {
		r.order = append(r.order, spec.Name)
	}
	r.specs[spec.Name] = spec
}

func validateSpec(spec model.FieldSpec) error {
	if spec.Name == "" {
		return &ConfigurationError{Reason: "field override without name"}
	}
	switch spec.Level {
	case model.LevelItem:
		if spec.Reduction != model.ReduceSum && spec.Reduction != model.ReduceNone {
			return configErrorf(spec.Name, "item-level field must reduce by sum or none, got %q", spec.Reduction)
		}
	case model.LevelOrder:
		if spec.Reduction != model.ReduceFirst {
			return configErrorf(spec.Name, "order-level field must reduce by first, got %q", spec.Reduction)
		}
	default:
		return configErrorf(spec.Name, "unknown level %q", spec.Level)
	}
	return nil
}

// Classify 查询字段分类；未登记时返回 ConfigurationError
func (r *Registry) Classify(name string) (model.FieldSpec, error) {
	spec, ok := r.specs[name]
	if !ok {
		return model.FieldSpec{}, configErrorf(name, "no field classification")
	}
	return spec, nil
}

// Known 是否已登记
func (r *Registry) Known(name string) bool {
	_, ok := r.specs[name]
	return ok
}

// Require 校验字段已登记且聚合方式符合要求
func (r *Registry) Require(name string, reduction model.Reduction) error {
	spec, err := r.Classify(name)
	if err != nil {
		return err
	}
	if spec.Kind != model.KindNumeric {
		return configErrorf(name, "formula field must be numeric")
	}
	if spec.Reduction != reduction {
		return configErrorf(name, "formula expects %s reduction, registry declares %s", reduction, spec.Reduction)
	}
	return nil
}

// RequireFormulaFields 校验利润公式引用的全部字段
func (r *Registry) RequireFormulaFields() error {
	names := make([]string, 0, len(formulaFields))
	for name := range formulaFields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := r.Require(name, formulaFields[name]); err != nil {
			return err
		}
	}
	return nil
}

// NumericFields 参与订单聚合的数值字段（按登记顺序）
func (r *Registry) NumericFields() []model.FieldSpec {
	out := make([]model.FieldSpec, 0, len(r.order))
	for _, name := range r.order {
		spec := r.specs[name]
		if spec.Kind == model.KindNumeric && spec.Reduction != model.ReduceNone {
			out = append(out, spec)
		}
	}
	return out
}
