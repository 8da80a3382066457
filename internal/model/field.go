package model

// FieldLevel 字段层级
type FieldLevel string

const (
	LevelItem  FieldLevel = "item"  // 商品行级：同一订单内逐行不同
	LevelOrder FieldLevel = "order" // 订单级：同一订单内每行重复
)

// Reduction 聚合方式
type Reduction string

const (
	ReduceSum   Reduction = "sum"   // 按订单求和
	ReduceFirst Reduction = "first" // 取首个值（要求各行一致）
	ReduceNone  Reduction = "none"  // 不参与订单聚合（如单价、分类）
)

// FieldKind 字段数据类型
type FieldKind string

const (
	KindNumeric FieldKind = "numeric"
	KindText    FieldKind = "text"
)

// FieldSpec 字段元数据
type FieldSpec struct {
	Name      string     `json:"name" toml:"name"`
	Label     string     `json:"label" toml:"label"`
	Kind      FieldKind  `json:"kind" toml:"kind"`
	Level     FieldLevel `json:"level" toml:"level"`
	Reduction Reduction  `json:"reduction" toml:"reduction"`
}

// IsOrderLevel 是否订单级字段
func (f FieldSpec) IsOrderLevel() bool {
	return f.Level == LevelOrder
}

// 规范字段名
const (
	FieldOrderID     = "order_id"
	FieldChannel     = "channel"
	FieldStoreName   = "store_name"
	FieldOrderDate   = "order_date"
	FieldCategory    = "category_l1"
	FieldProductName = "product_name"

	FieldUnitPrice          = "unit_price"
	FieldQuantity           = "quantity"
	FieldItemRevenue        = "item_revenue"
	FieldItemCost           = "item_cost"
	FieldItemProfit         = "item_profit"
	FieldPlatformCommission = "platform_commission"

	FieldPlatformServiceFee       = "platform_service_fee"
	FieldDeliveryFee              = "delivery_fee"
	FieldUserPaidDeliveryFee      = "user_paid_delivery_fee"
	FieldDeliveryFeeWaiver        = "delivery_fee_waiver"
	FieldCustomerRebate           = "customer_rebate"
	FieldEnterpriseCustomerRebate = "enterprise_customer_rebate"

	FieldFullReduction            = "full_reduction"
	FieldProductDiscount          = "product_discount"
	FieldMerchantCoupon           = "merchant_coupon"
	FieldMerchantDeliveryDiscount = "merchant_delivery_discount"
	FieldMerchantRedPacket        = "merchant_red_packet"
	FieldNewCustomerDiscount      = "new_customer_discount"
	FieldSpecialPriceSubsidy      = "special_price_subsidy"
	FieldGiftCost                 = "gift_cost"
)
