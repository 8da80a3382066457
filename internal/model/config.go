package model

import (
	"fmt"
	"sort"
	"strings"
)

// FeeMode 平台费用兜底策略
type FeeMode string

const (
	FeeModeStrict   FeeMode = "strict"   // 服务费缺失/为零的订单剔除
	FeeModeFallback FeeMode = "fallback" // 服务费缺失/为零时以平台佣金替代
	FeeModeNone     FeeMode = "none"     // 不修正，按原值计算
)

// ParseFeeMode 解析费用模式
func ParseFeeMode(s string) (FeeMode, error) {
	switch FeeMode(strings.ToLower(strings.TrimSpace(s))) {
	case FeeModeStrict:
		return FeeModeStrict, nil
	case FeeModeFallback:
		return FeeModeFallback, nil
	case FeeModeNone:
		return FeeModeNone, nil
	}
	return "", fmt.Errorf("unknown fee mode: %q", s)
}

// MarketingSchema 营销费用字段口径（随导出版本变化）
type MarketingSchema struct {
	Version string   `json:"version" toml:"version"`
	Fields  []string `json:"fields" toml:"fields"`
	// AllowUnclassified 允许未登记的字段（视为缺失，按 0 计）
	AllowUnclassified []string `json:"allowUnclassified,omitempty" toml:"allow_unclassified"`
}

// 内置营销口径
var builtinMarketingSchemas = map[string][]string{
	"v1": {
		FieldFullReduction,
		FieldProductDiscount,
		FieldMerchantCoupon,
		FieldMerchantDeliveryDiscount,
	},
	"v2": {
		FieldFullReduction,
		FieldProductDiscount,
		FieldMerchantCoupon,
		FieldMerchantDeliveryDiscount,
		FieldMerchantRedPacket,
		FieldNewCustomerDiscount,
	},
	"v3": {
		FieldFullReduction,
		FieldProductDiscount,
		FieldMerchantCoupon,
		FieldMerchantDeliveryDiscount,
		FieldMerchantRedPacket,
		FieldNewCustomerDiscount,
		FieldSpecialPriceSubsidy,
		FieldGiftCost,
	},
}

// LatestMarketingVersion 最新营销口径版本
const LatestMarketingVersion = "v3"

// BuiltinMarketingSchema 获取内置营销口径
func BuiltinMarketingSchema(version string) (MarketingSchema, bool) {
	fields, ok := builtinMarketingSchemas[version]
	if !ok {
		return MarketingSchema{}, false
	}
	out := make([]string, len(fields))
	copy(out, fields)
	return MarketingSchema{Version: version, Fields: out}, true
}

// MarketingVersions 内置营销口径版本，按版本号升序
func MarketingVersions() []string {
	versions := make([]string, 0, len(builtinMarketingSchemas))
	for v := range builtinMarketingSchemas {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions
}

// DefaultExcludedCategories 默认剔除的非商品分类
func DefaultExcludedCategories() []string {
	return []string{"耗材", "包装", "包材", "购物袋"}
}

// CalcConfig 一次计算的完整配置
type CalcConfig struct {
	ExcludedCategories []string        `json:"excludedCategories"`
	FeeMode            FeeMode         `json:"feeMode"`
	Marketing          MarketingSchema `json:"marketing"`
	FieldOverrides     []FieldSpec     `json:"fieldOverrides,omitempty"`
	// Workers >1 时按订单号分区并行聚合
	Workers int `json:"workers,omitempty"`
}

// DefaultCalcConfig 默认计算配置
func DefaultCalcConfig() CalcConfig {
	schema, _ := BuiltinMarketingSchema(LatestMarketingVersion)
	return CalcConfig{
		ExcludedCategories: DefaultExcludedCategories(),
		FeeMode:            FeeModeFallback,
		Marketing:          schema,
	}
}

// Tag 计算口径标签（写入结果与运行日志）
func (c CalcConfig) Tag() string {
	cats := sortedCopy(c.ExcludedCategories)
	return fmt.Sprintf("fee=%s;exclude=%s;marketing=%s", c.FeeMode, strings.Join(cats, ","), c.Marketing.Version)
}

// Fingerprint 完整配置指纹，用作缓存键的一部分
//
// Workers 不影响结果，不计入指纹。
func (c CalcConfig) Fingerprint() string {
	var b strings.Builder
	b.WriteString(string(c.FeeMode))
	b.WriteString("|")
	b.WriteString(strings.Join(sortedCopy(c.ExcludedCategories), ","))
	b.WriteString("|")
	b.WriteString(c.Marketing.Version)
	b.WriteString(":")
	b.WriteString(strings.Join(c.Marketing.Fields, ","))
	b.WriteString(":")
	b.WriteString(strings.Join(sortedCopy(c.Marketing.AllowUnclassified), ","))
	b.WriteString("|")

	overrides := make([]string, 0, len(c.FieldOverrides))
	for _, f := range c.FieldOverrides {
		overrides = append(overrides, fmt.Sprintf("%s/%s/%s/%s", f.Name, f.Kind, f.Level, f.Reduction))
	}
	sort.Strings(overrides)
	b.WriteString(strings.Join(overrides, ","))
	return b.String()
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}
