package calculator

import (
	"fmt"
	"strings"
)

// ConfigurationError 配置错误：公式引用了未登记字段、口径字段非法等
//
// 致命错误，整个计算中止，不返回任何部分结果。
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error: field %q: %s", e.Field, e.Reason)
}

func configErrorf(field, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// DataConsistencyWarning 同一订单的订单级字段在各行取值不一致
type DataConsistencyWarning struct {
	OrderID     string `json:"orderId"`
	Field       string `json:"field"`
	First       string `json:"first"`
	Conflicting string `json:"conflicting"`
	RowNo       int    `json:"rowNo,omitempty"`
}

// ExcludedOrderEvent 订单因费用策略被剔除
type ExcludedOrderEvent struct {
	OrderID   string `json:"orderId"`
	Channel   string `json:"channel"`
	StoreName string `json:"storeName"`
	Reason    string `json:"reason"`
}

// FeeAdjustment 订单平台费用被兜底替换
type FeeAdjustment struct {
	OrderID     string  `json:"orderId"`
	Channel     string  `json:"channel"`
	Primary     float64 `json:"primary"`
	Substituted float64 `json:"substituted"`
}

// Diagnostics 计算过程中累计的审计信息
type Diagnostics struct {
	InputRows             int      `json:"inputRows"`
	ExcludedCategoryRows  int      `json:"excludedCategoryRows"`
	AggregatedOrders      int      `json:"aggregatedOrders"`
	OrdersRemovedByFilter []string `json:"ordersRemovedByFilter"`

	ConsistencyWarnings []DataConsistencyWarning `json:"consistencyWarnings"`
	InconsistentOrders  int                      `json:"inconsistentOrders"`
	ExcludedOrders      []ExcludedOrderEvent     `json:"excludedOrders"`
	FallbackAdjusted    []FeeAdjustment          `json:"fallbackAdjusted"`

	UnclassifiedFields    []string `json:"unclassifiedFields"`
	AbsentFields          []string `json:"absentFields"`
	AbsentMarketingFields []string `json:"absentMarketingFields"`
	EmptyOrderIDRows      int      `json:"emptyOrderIdRows"`
}

// ExcludedCount 被剔除订单数
func (d *Diagnostics) ExcludedCount() int {
	return len(d.ExcludedOrders)
}

// FallbackCount 兜底调整订单数
func (d *Diagnostics) FallbackCount() int {
	return len(d.FallbackAdjusted)
}

// Notes 面向用户的审计提示（非阻断）
func (d *Diagnostics) Notes() []string {
	notes := make([]string, 0, 6)
	if d.ExcludedCategoryRows > 0 {
		notes = append(notes, fmt.Sprintf("%d 行非商品明细（耗材/包装等）未计入商品毛利", d.ExcludedCategoryRows))
	}
	if n := len(d.OrdersRemovedByFilter); n > 0 {
		notes = append(notes, fmt.Sprintf("%d 个订单仅含被剔除分类的商品，已整体移出结果", n))
	}
	if n := d.ExcludedCount(); n > 0 {
		notes = append(notes, fmt.Sprintf("%d 个订单因平台服务费缺失被剔除", n))
	}
	if n := d.FallbackCount(); n > 0 {
		notes = append(notes, fmt.Sprintf("%d 个订单平台服务费缺失，已用平台佣金替代", n))
	}
	if d.InconsistentOrders > 0 {
		notes = append(notes, fmt.Sprintf("%d 个订单的订单级字段在明细行间不一致，已取首行值", d.InconsistentOrders))
	}
	if d.EmptyOrderIDRows > 0 {
		notes = append(notes, fmt.Sprintf("%d 行缺少订单号，已跳过", d.EmptyOrderIDRows))
	}
	if len(d.UnclassifiedFields) > 0 {
		notes = append(notes, "未登记字段未参与计算: "+strings.Join(d.UnclassifiedFields, ", "))
	}
	return notes
}
