package calculator

import "o2oprofit/internal/model"

// FeeResolution 平台费用判定结果
type FeeResolution struct {
	Fee      float64
	Source   model.FeeSource
	Excluded bool
	// Adjusted 兜底模式下以平台佣金替代了服务费
	Adjusted bool
}

// ResolveFee 按策略确定订单的有效平台费用
//
//	strict:   仅用平台服务费；缺失或为零的订单剔除
//	fallback: 服务费缺失或为零时以平台佣金替代，不因此剔除
//	none:     原样使用服务费（缺失按 0）
func ResolveFee(o *model.AggregatedOrder, mode model.FeeMode) FeeResolution {
	primary := o.Value(model.FieldPlatformServiceFee)
	hasPrimary := o.Has(model.FieldPlatformServiceFee) && primary != 0

	switch mode {
	case model.FeeModeStrict:
		if !hasPrimary {
			return FeeResolution{Source: model.FeeUnresolved, Excluded: true}
		}
		return FeeResolution{Fee: primary, Source: model.FeeFromPrimary}
	case model.FeeModeFallback:
		if !hasPrimary {
			return FeeResolution{
				Fee:      o.Value(model.FieldPlatformCommission),
				Source:   model.FeeFromSecondary,
				Adjusted: true,
			}
		}
		return FeeResolution{Fee: primary, Source: model.FeeFromPrimary}
	case model.FeeModeNone:
		return FeeResolution{Fee: primary, Source: model.FeeFromPrimary}
	}
	// 未经 NewEngine 校验的模式一律剔除，不静默按 none 计算
	return FeeResolution{Source: model.FeeUnresolved, Excluded: true}
}
