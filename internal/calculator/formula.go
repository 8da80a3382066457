package calculator

import "o2oprofit/internal/model"

// DeliveryNetCost 配送净成本 = 配送费 - 配送费减免 - 顾客返利
func DeliveryNetCost(o *model.AggregatedOrder) float64 {
	return o.Value(model.FieldDeliveryFee) -
		o.Value(model.FieldDeliveryFeeWaiver) -
		o.Value(model.FieldCustomerRebate)
}

// ComputeProfit 计算订单实际利润并写入派生字段
//
//	实际利润 = 商品毛利 - 平台费用 - 配送净成本 + 企客后返
//
// 商品毛利为剔除分类后剩余明细行的商品利润之和。fee 为已判定的平台费用。
func ComputeProfit(o *model.AggregatedOrder, fee FeeResolution, marketingCost float64) float64 {
	o.Revenue = o.Value(model.FieldItemRevenue)
	o.GrossProfit = o.Value(model.FieldItemProfit)
	o.ResolvedPlatformFee = fee.Fee
	o.FeeSource = fee.Source
	o.MarketingCost = marketingCost
	o.DeliveryNetCost = DeliveryNetCost(o)
	o.EnterpriseRebate = o.Value(model.FieldEnterpriseCustomerRebate)

	o.ActualProfit = o.GrossProfit - o.ResolvedPlatformFee - o.DeliveryNetCost + o.EnterpriseRebate
	o.ProfitMargin = model.NewRatio(o.ActualProfit, o.Revenue)
	return o.ActualProfit
}
