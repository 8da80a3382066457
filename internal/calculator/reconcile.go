package calculator

import (
	"math"

	"o2oprofit/internal/model"
)

// ReferenceTotal 外部提供的核对基准（人工核算或平台对账单）
type ReferenceTotal struct {
	GroupBy    model.GroupBy `json:"groupBy"`
	Key        string        `json:"key"`
	OrderCount *int          `json:"orderCount,omitempty"`
	Revenue    *float64      `json:"revenue,omitempty"`
	Profit     *float64      `json:"profit,omitempty"`
}

// Tolerance 核对容差：满足绝对或相对任一即视为一致
type Tolerance struct {
	Absolute float64 `json:"absolute"`
	Relative float64 `json:"relative"`
}

// DefaultTolerance 默认容差：0.01 元或 0.5%
func DefaultTolerance() Tolerance {
	return Tolerance{Absolute: 0.01, Relative: 0.005}
}

// ReconcileItem 单项核对结果
type ReconcileItem struct {
	GroupBy  model.GroupBy `json:"groupBy"`
	Key      string        `json:"key"`
	Metric   string        `json:"metric"`
	Expected float64       `json:"expected"`
	Actual   float64       `json:"actual"`
	Diff     float64       `json:"diff"`
	DiffRate model.Ratio   `json:"diffRate"`
	Matched  bool          `json:"matched"`
	Missing  bool          `json:"missing"`
}

// ReconcileReport 核对报告
type ReconcileReport struct {
	Tag        string          `json:"tag"`
	Tolerance  Tolerance       `json:"tolerance"`
	Items      []ReconcileItem `json:"items"`
	Mismatches int             `json:"mismatches"`
}

// Reconcile 将计算结果与外部基准逐项核对
func Reconcile(result *Result, refs []ReferenceTotal, tol Tolerance) *ReconcileReport {
	report := &ReconcileReport{
		Tag:       result.Tag,
		Tolerance: tol,
		Items:     []ReconcileItem{},
	}

	index := map[model.GroupBy]map[string]model.Summary{
		model.GroupByChannel: indexSummaries(result.Channels),
		model.GroupByStore:   indexSummaries(result.Stores),
		model.GroupByTotal:   {"": result.Total, result.Total.Key: result.Total},
	}

	for _, ref := range refs {
		summary, found := index[ref.GroupBy][ref.Key]
		check := func(metric string, expected, actual float64) {
			item := ReconcileItem{
				GroupBy:  ref.GroupBy,
				Key:      ref.Key,
				Metric:   metric,
				Expected: expected,
				Missing:  !found,
			}
			if found {
				item.Actual = actual
			}
			item.Diff = item.Actual - expected
			item.DiffRate = model.NewRatio(item.Diff, math.Abs(expected))
			item.Matched = found && withinTolerance(item.Diff, expected, tol)
			if !item.Matched {
				report.Mismatches++
			}
			report.Items = append(report.Items, item)
		}

		if ref.OrderCount != nil {
			check("orderCount", float64(*ref.OrderCount), float64(summary.OrderCount))
		}
		if ref.Revenue != nil {
			check("revenue", *ref.Revenue, summary.Revenue)
		}
		if ref.Profit != nil {
			check("profit", *ref.Profit, summary.Profit)
		}
	}
	return report
}

func indexSummaries(list []model.Summary) map[string]model.Summary {
	out := make(map[string]model.Summary, len(list))
	for _, s := range list {
		out[s.Key] = s
	}
	return out
}

func withinTolerance(diff, expected float64, tol Tolerance) bool {
	d := math.Abs(diff)
	if d <= tol.Absolute {
		return true
	}
	return expected != 0 && d/math.Abs(expected) <= tol.Relative
}
