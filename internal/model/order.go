package model

import "maps"

// OrderLine 订单明细行（一个商品一行）
//
// OrderID 在同一订单的所有商品行上重复；Values 以规范字段名为键，
// 键不存在表示导出文件未提供该字段。
type OrderLine struct {
	OrderID     string             `json:"orderId"`
	Channel     string             `json:"channel"`
	StoreName   string             `json:"storeName"`
	OrderDate   string             `json:"orderDate"`
	Category    string             `json:"category"`
	ProductName string             `json:"productName"`
	Values      map[string]float64 `json:"values"`

	RowNo       int    `json:"rowNo,omitempty"`
	SourceSheet string `json:"sourceSheet,omitempty"`
}

// Value 读取字段值，未提供时返回 (0, false)
func (l *OrderLine) Value(field string) (float64, bool) {
	if l.Values == nil {
		return 0, false
	}
	v, ok := l.Values[field]
	return v, ok
}

// FeeSource 平台费用来源
type FeeSource string

const (
	FeeFromPrimary   FeeSource = "primary"   // 平台服务费
	FeeFromSecondary FeeSource = "secondary" // 兜底：平台佣金
	FeeUnresolved    FeeSource = "unresolved"
)

// AggregatedOrder 按订单聚合后的结果（一单一行）
type AggregatedOrder struct {
	OrderID   string `json:"orderId"`
	Channel   string `json:"channel"`
	StoreName string `json:"storeName"`
	OrderDate string `json:"orderDate"`
	LineCount int    `json:"lineCount"`

	// Values 各字段按 FieldSpec 聚合后的值；Present 记录字段是否在任一行出现
	Values  map[string]float64 `json:"values"`
	Present map[string]bool    `json:"-"`

	Revenue             float64   `json:"revenue"`
	GrossProfit         float64   `json:"grossProfit"`
	ResolvedPlatformFee float64   `json:"resolvedPlatformFee"`
	FeeSource           FeeSource `json:"feeSource"`
	MarketingCost       float64   `json:"marketingCost"`
	DeliveryNetCost     float64   `json:"deliveryNetCost"`
	EnterpriseRebate    float64   `json:"enterpriseRebate"`
	ActualProfit        float64   `json:"actualProfit"`
	ProfitMargin        Ratio     `json:"profitMargin"`
}

// Value 读取聚合后的字段值
func (o *AggregatedOrder) Value(field string) float64 {
	return o.Values[field]
}

// Has 字段是否在该订单中出现过
func (o *AggregatedOrder) Has(field string) bool {
	return o.Present[field]
}

// Clone 深拷贝，结果集对外只暴露副本
func (o *AggregatedOrder) Clone() *AggregatedOrder {
	c := *o
	c.Values = maps.Clone(o.Values)
	c.Present = maps.Clone(o.Present)
	return &c
}
