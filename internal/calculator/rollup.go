package calculator

import (
	"sort"

	"o2oprofit/internal/model"
)

// Rollup 按渠道或门店汇总订单结果，按分组键排序输出
func Rollup(orders []*model.AggregatedOrder, by model.GroupBy) []model.Summary {
	groups := make(map[string]*model.Summary)
	for _, o := range orders {
		key := groupKey(o, by)
		s, ok := groups[key]
		if !ok {
			s = &model.Summary{GroupBy: by, Key: key}
			groups[key] = s
		}
		accumulate(s, o)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]model.Summary, 0, len(keys))
	for _, k := range keys {
		s := groups[k]
		finalizeRates(s)
		out = append(out, *s)
	}
	return out
}

// Total 全部订单汇总
func Total(orders []*model.AggregatedOrder) model.Summary {
	s := model.Summary{GroupBy: model.GroupByTotal, Key: "合计"}
	for _, o := range orders {
		accumulate(&s, o)
	}
	finalizeRates(&s)
	return s
}

func groupKey(o *model.AggregatedOrder, by model.GroupBy) string {
	switch by {
	case model.GroupByChannel:
		return o.Channel
	case model.GroupByStore:
		return o.StoreName
	}
	return "合计"
}

func accumulate(s *model.Summary, o *model.AggregatedOrder) {
	s.OrderCount++
	s.LineCount += o.LineCount
	if o.FeeSource == model.FeeFromSecondary {
		s.FallbackOrders++
	}
	s.Revenue += o.Revenue
	s.GrossProfit += o.GrossProfit
	s.PlatformFee += o.ResolvedPlatformFee
	s.DeliveryNetCost += o.DeliveryNetCost
	s.MarketingCost += o.MarketingCost
	s.EnterpriseRebate += o.EnterpriseRebate
	s.Profit += o.ActualProfit
}

// finalizeRates 比率一律由汇总值重新计算
func finalizeRates(s *model.Summary) {
	orders := float64(s.OrderCount)
	s.ProfitMargin = model.NewRatio(s.Profit, s.Revenue)
	s.AvgOrderValue = model.NewRatio(s.Revenue, orders)
	s.AvgProfitPerOrder = model.NewRatio(s.Profit, orders)
	s.PlatformFeeRate = model.NewRatio(s.PlatformFee, s.Revenue)
	s.DeliveryCostRate = model.NewRatio(s.DeliveryNetCost, s.Revenue)
	s.MarketingCostRate = model.NewRatio(s.MarketingCost, s.Revenue)
}
