package calculator

import (
	"strings"

	"o2oprofit/internal/model"
)

// FilterResult 行过滤结果
type FilterResult struct {
	Kept         []*model.OrderLine
	ExcludedRows int
	// RemovedOrders 所有明细行均被剔除的订单（按首次出现顺序）
	RemovedOrders []string
}

// CategorySet 剔除分类集合
type CategorySet map[string]struct{}

// NewCategorySet 规范化分类名后构建集合
func NewCategorySet(categories []string) CategorySet {
	set := make(CategorySet, len(categories))
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		set[c] = struct{}{}
	}
	return set
}

// Contains 分类是否被剔除
func (s CategorySet) Contains(category string) bool {
	_, ok := s[strings.TrimSpace(category)]
	return ok
}

// FilterRows 剔除非商品明细行（耗材、包装等）
//
// 必须在订单聚合之前执行：按订单级字段在聚合后过滤会删除整单而不是明细行。
// 输入不被修改。
func FilterRows(rows []*model.OrderLine, excluded CategorySet) FilterResult {
	res := FilterResult{Kept: make([]*model.OrderLine, 0, len(rows))}
	if len(excluded) == 0 {
		res.Kept = append(res.Kept, rows...)
		return res
	}

	survived := make(map[string]bool)
	var seen []string
	for _, row := range rows {
		if _, ok := survived[row.OrderID]; !ok {
			survived[row.OrderID] = false
			seen = append(seen, row.OrderID)
		}
		if excluded.Contains(row.Category) {
			res.ExcludedRows++
			continue
		}
		survived[row.OrderID] = true
		res.Kept = append(res.Kept, row)
	}

	for _, id := range seen {
		if !survived[id] {
			res.RemovedOrders = append(res.RemovedOrders, id)
		}
	}
	return res
}
