package model

// GroupBy 汇总维度
type GroupBy string

const (
	GroupByChannel GroupBy = "channel"
	GroupByStore   GroupBy = "store"
	GroupByTotal   GroupBy = "total"
)

// Summary 渠道/门店/整体汇总
//
// 比率均由汇总后的分子分母重新计算，不对单笔订单比率取平均。
type Summary struct {
	GroupBy GroupBy `json:"groupBy"`
	Key     string  `json:"key"`

	OrderCount     int `json:"orderCount"`
	LineCount      int `json:"lineCount"`
	FallbackOrders int `json:"fallbackOrders"`

	Revenue          float64 `json:"revenue"`
	GrossProfit      float64 `json:"grossProfit"`
	PlatformFee      float64 `json:"platformFee"`
	DeliveryNetCost  float64 `json:"deliveryNetCost"`
	MarketingCost    float64 `json:"marketingCost"`
	EnterpriseRebate float64 `json:"enterpriseRebate"`
	Profit           float64 `json:"profit"`

	ProfitMargin      Ratio `json:"profitMargin"`
	AvgOrderValue     Ratio `json:"avgOrderValue"`
	AvgProfitPerOrder Ratio `json:"avgProfitPerOrder"`
	PlatformFeeRate   Ratio `json:"platformFeeRate"`
	DeliveryCostRate  Ratio `json:"deliveryCostRate"`
	MarketingCostRate Ratio `json:"marketingCostRate"`
}
