package calculator

import "o2oprofit/internal/model"

// ValidateOrder 校验订单结果的业务规则（用于明细标注与导出提示）
func ValidateOrder(o *model.AggregatedOrder) []string {
	if o == nil {
		return []string{}
	}

	errs := make([]string, 0, 4)

	if o.Revenue < 0 {
		errs = append(errs, "商品实收不能为负数")
	}
	if o.ResolvedPlatformFee < 0 {
		errs = append(errs, "平台费用不能为负数")
	}
	if o.Revenue > 0 && o.ResolvedPlatformFee > o.Revenue {
		errs = append(errs, "平台费用超过商品实收")
	}
	if o.DeliveryNetCost < 0 {
		errs = append(errs, "配送减免超过配送费")
	}

	return errs
}
