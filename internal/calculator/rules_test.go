package calculator

import (
	"testing"

	"o2oprofit/internal/model"
)

func TestRuleFeeNotExceedRevenue(t *testing.T) {
	o := &model.AggregatedOrder{
		Revenue:             10,
		ResolvedPlatformFee: 12,
	}
	errs := ValidateOrder(o)
	if !containsString(errs, "平台费用超过商品实收") {
		t.Fatalf("expected rule error, got: %v", errs)
	}
}

func TestRuleDeliveryWaiver(t *testing.T) {
	o := &model.AggregatedOrder{Revenue: 10, DeliveryNetCost: -1}
	errs := ValidateOrder(o)
	if !containsString(errs, "配送减免超过配送费") {
		t.Fatalf("expected rule error, got: %v", errs)
	}
	if len(ValidateOrder(nil)) != 0 {
		t.Fatalf("nil order should have no errors")
	}
}

func containsString(items []string, want string) bool {
	for _, it := range items {
		if it == want {
			return true
		}
	}
	return false
}
