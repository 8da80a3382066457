package parser

import (
	"regexp"

	"o2oprofit/internal/model"
)

// fieldRule 规范字段与列名模式
type fieldRule struct {
	field   string
	pattern *regexp.Regexp
}

func rule(field, pattern string) fieldRule {
	return fieldRule{field: field, pattern: regexp.MustCompile(`^(` + pattern + `)$`)}
}

// 各平台导出列名 → 规范字段名
//
// 列名在匹配前已规范化（去空白与 "(元)" 后缀），模式按整列匹配。
var defaultFieldRules = []fieldRule{
	// 维度
	rule(model.FieldOrderID, `订单编号|订单号|订单ID|订单Id|订单id|平台订单号|外卖订单号`),
	rule(model.FieldChannel, `渠道|平台|来源平台|销售渠道|订单来源`),
	rule(model.FieldStoreName, `门店|门店名称|店铺名称|店铺|商家名称|门店名`),
	rule(model.FieldOrderDate, `下单时间|下单日期|订单日期|日期|订单时间|完成时间`),
	rule(model.FieldCategory, `一级分类|商品一级分类|一级类目|类目|商品分类`),
	rule(model.FieldProductName, `商品名称|商品名|品名|商品`),

	// 商品行
	rule(model.FieldUnitPrice, `单价|商品单价|售价|商品售价`),
	rule(model.FieldQuantity, `数量|商品数量|销量|购买数量`),
	rule(model.FieldItemRevenue, `商品实收|实收金额|商品实付|商品销售额|商品收入`),
	rule(model.FieldItemCost, `商品成本|成本|进货成本|成本金额`),
	rule(model.FieldItemProfit, `商品利润|商品毛利|毛利|毛利额|利润额`),
	rule(model.FieldPlatformCommission, `平台佣金|佣金|抽佣|平台抽佣`),

	// 订单级费用
	rule(model.FieldPlatformServiceFee, `平台服务费|服务费|技术服务费`),
	rule(model.FieldDeliveryFee, `配送费|配送成本|物流配送费|商家配送费`),
	rule(model.FieldUserPaidDeliveryFee, `用户支付配送费|顾客支付配送费|用户实付配送费`),
	rule(model.FieldDeliveryFeeWaiver, `配送费减免|商家承担配送费减免|减配送费|免配送费`),
	rule(model.FieldCustomerRebate, `顾客返利|用户返利|返利`),
	rule(model.FieldEnterpriseCustomerRebate, `企客后返|企业客户返利|企客返利|企业客户后返`),

	// 营销
	rule(model.FieldFullReduction, `满减|满减活动|满减优惠|满减金额`),
	rule(model.FieldProductDiscount, `商品折扣|商品减免|折扣|折扣金额`),
	rule(model.FieldMerchantCoupon, `商家代金券|代金券|商家券`),
	rule(model.FieldMerchantDeliveryDiscount, `商家承担配送优惠|配送优惠|配送费优惠`),
	rule(model.FieldMerchantRedPacket, `商家红包|红包`),
	rule(model.FieldNewCustomerDiscount, `新客立减|新客优惠|新用户立减`),
	rule(model.FieldSpecialPriceSubsidy, `特价补贴|特价商品补贴`),
	rule(model.FieldGiftCost, `赠品成本|满赠成本|赠品`),
}

// 已是规范字段名的列（如 CSV 模板或自定义字段）原样使用
var canonicalNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// FieldMapper 字段映射器
type FieldMapper struct {
	rules []fieldRule
}

// NewFieldMapper 创建字段映射器
func NewFieldMapper() *FieldMapper {
	return &FieldMapper{rules: defaultFieldRules}
}

// Map 映射表头；同一规范字段只取第一个匹配的列
//
// 返回列映射与未能识别的非空列名。
func (m *FieldMapper) Map(columnNames []string) (map[int]FieldMapping, []string) {
	mappings := make(map[int]FieldMapping)
	assigned := make(map[string]bool)
	var unmapped []string

	for idx, raw := range columnNames {
		col := NormalizeColumnName(raw)
		if col == "" {
			continue
		}

		field := m.match(col)
		if field == "" {
			unmapped = append(unmapped, col)
			continue
		}
		if assigned[field] {
			continue
		}
		assigned[field] = true
		mappings[idx] = FieldMapping{
			ColumnIndex: idx,
			ColumnName:  col,
			Field:       field,
		}
	}

	return mappings, unmapped
}

func (m *FieldMapper) match(col string) string {
	for _, r := range m.rules {
		if r.pattern.MatchString(col) {
			return r.field
		}
	}
	if canonicalNameRe.MatchString(col) {
		return col
	}
	return ""
}

// HasField 映射结果中是否包含指定字段
func HasField(mappings map[int]FieldMapping, field string) bool {
	for _, fm := range mappings {
		if fm.Field == field {
			return true
		}
	}
	return false
}
