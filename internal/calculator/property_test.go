package calculator

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"o2oprofit/internal/model"
)

var (
	propChannels = []string{"美团", "饿了么", "京东"}
	propStores   = []string{"一号店", "二号店"}
)

// buildRows 由随机整数生成明细行；订单级字段只由订单号决定，保证同单一致
func buildRows(ids, amounts []int) []*model.OrderLine {
	rows := make([]*model.OrderLine, 0, len(ids))
	for i, id := range ids {
		amount := 0
		if i < len(amounts) {
			amount = amounts[i]
		}
		orderNo := id % 12
		rows = append(rows, newLine(
			fmt.Sprintf("P%02d", orderNo),
			propChannels[orderNo%len(propChannels)],
			propStores[orderNo%len(propStores)],
			"零食",
			map[string]float64{
				model.FieldItemRevenue:        float64(amount * 3),
				model.FieldItemProfit:         float64(amount),
				model.FieldPlatformCommission: float64(amount % 3),
				model.FieldDeliveryFee:        float64(orderNo % 5),
				model.FieldPlatformServiceFee: float64(orderNo % 4),
			},
		))
	}
	return rows
}

func propParameters() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	return parameters
}

func TestPropertyIdempotence(t *testing.T) {
	properties := gopter.NewProperties(propParameters())

	properties.Property("相同输入结果一致", prop.ForAll(
		func(ids, amounts []int) bool {
			cfg := testConfig(model.FeeModeFallback)
			a, errA := Calculate(buildRows(ids, amounts), cfg)
			b, errB := Calculate(buildRows(ids, amounts), cfg)
			if errA != nil || errB != nil {
				return false
			}
			return reflect.DeepEqual(a, b)
		},
		gen.SliceOf(gen.IntRange(0, 100)),
		gen.SliceOf(gen.IntRange(0, 50)),
	))

	properties.TestingRun(t)
}

func TestPropertyOrderLevelNotMultiplied(t *testing.T) {
	properties := gopter.NewProperties(propParameters())

	properties.Property("订单级字段不随行数放大", prop.ForAll(
		func(ids, amounts []int) bool {
			res, err := Calculate(buildRows(ids, amounts), testConfig(model.FeeModeNone))
			if err != nil {
				return false
			}
			for _, o := range res.Orders {
				var orderNo int
				fmt.Sscanf(o.OrderID, "P%d", &orderNo)
				if o.Value(model.FieldDeliveryFee) != float64(orderNo%5) {
					return false
				}
				if o.Value(model.FieldPlatformServiceFee) != float64(orderNo%4) {
					return false
				}
			}
			return res.Diagnostics.InconsistentOrders == 0
		},
		gen.SliceOf(gen.IntRange(0, 100)),
		gen.SliceOf(gen.IntRange(0, 50)),
	))

	properties.TestingRun(t)
}

func TestPropertyParallelMatchesSerial(t *testing.T) {
	properties := gopter.NewProperties(propParameters())

	properties.Property("分区并行与串行一致", prop.ForAll(
		func(ids, amounts []int, workers int) bool {
			serialCfg := testConfig(model.FeeModeStrict)
			parallelCfg := serialCfg
			parallelCfg.Workers = workers

			serial, err := Calculate(buildRows(ids, amounts), serialCfg)
			if err != nil {
				return false
			}
			parallel, err := Calculate(buildRows(ids, amounts), parallelCfg)
			if err != nil {
				return false
			}
			parallel.Config.Workers = 0
			return reflect.DeepEqual(serial, parallel)
		},
		gen.SliceOf(gen.IntRange(0, 100)),
		gen.SliceOf(gen.IntRange(0, 50)),
		gen.IntRange(1, 8),
	))

	properties.TestingRun(t)
}

func TestPropertyRatesFromTotals(t *testing.T) {
	properties := gopter.NewProperties(propParameters())

	properties.Property("汇总比率由合计值计算", prop.ForAll(
		func(ids, amounts []int) bool {
			res, err := Calculate(buildRows(ids, amounts), testConfig(model.FeeModeFallback))
			if err != nil {
				return false
			}
			var revenue, profit float64
			for _, o := range res.Orders {
				revenue += o.Revenue
				profit += o.ActualProfit
			}
			want := model.NewRatio(profit, revenue)
			got := res.Total.ProfitMargin
			if got.Defined != want.Defined {
				return false
			}
			return !got.Defined || floatEquals(got.Value, want.Value)
		},
		gen.SliceOf(gen.IntRange(0, 100)),
		gen.SliceOf(gen.IntRange(0, 50)),
	))

	properties.TestingRun(t)
}

func TestPropertyStrictSubsetOfFallback(t *testing.T) {
	properties := gopter.NewProperties(propParameters())

	properties.Property("strict 保留的订单在 fallback 中利润相同", prop.ForAll(
		func(ids, amounts []int) bool {
			strict, err := Calculate(buildRows(ids, amounts), testConfig(model.FeeModeStrict))
			if err != nil {
				return false
			}
			fallback, err := Calculate(buildRows(ids, amounts), testConfig(model.FeeModeFallback))
			if err != nil {
				return false
			}
			if len(strict.Orders)+strict.Diagnostics.ExcludedCount() != len(fallback.Orders) {
				return false
			}
			for _, o := range strict.Orders {
				f := findOrder(fallback, o.OrderID)
				if f == nil || f.ActualProfit != o.ActualProfit || f.FeeSource != model.FeeFromPrimary {
					return false
				}
			}
			return len(fallback.Diagnostics.FallbackAdjusted) == strict.Diagnostics.ExcludedCount()
		},
		gen.SliceOf(gen.IntRange(0, 100)),
		gen.SliceOf(gen.IntRange(0, 50)),
	))

	properties.TestingRun(t)
}
