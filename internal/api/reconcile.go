package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"o2oprofit/internal/calculator"
	"o2oprofit/internal/model"
)

// ReferencesRequest 核对基准（整体替换）
type ReferencesRequest struct {
	References []calculator.ReferenceTotal `json:"references"`
}

func validateReferences(refs []calculator.ReferenceTotal) error {
	seen := make(map[string]bool, len(refs))
	for i := range refs {
		r := &refs[i]
		r.Key = strings.TrimSpace(r.Key)
		switch r.GroupBy {
		case model.GroupByChannel, model.GroupByStore:
			if r.Key == "" {
				return badRequest(fmt.Sprintf("第 %d 条基准缺少分组名称", i+1))
			}
		case model.GroupByTotal:
		default:
			return badRequest(fmt.Sprintf("第 %d 条基准的维度无效: %q", i+1, r.GroupBy))
		}
		if r.OrderCount == nil && r.Revenue == nil && r.Profit == nil {
			return badRequest(fmt.Sprintf("第 %d 条基准没有任何指标", i+1))
		}
		id := string(r.GroupBy) + "|" + r.Key
		if seen[id] {
			return badRequest(fmt.Sprintf("基准重复: %s/%s", r.GroupBy, r.Key))
		}
		seen[id] = true
	}
	return nil
}

// PutReferences 保存核对基准
// PUT /api/references
func (h *Handler) PutReferences(c *gin.Context) {
	var req ReferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest("请求格式错误: "+err.Error()))
		return
	}
	if err := validateReferences(req.References); err != nil {
		respondError(c, err)
		return
	}
	if err := h.store.ReplaceReferenceTotals(req.References); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(req.References)})
}

// GetReferences 已保存的核对基准
// GET /api/references
func (h *Handler) GetReferences(c *gin.Context) {
	refs, err := h.store.ListReferenceTotals()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": refs})
}

// toleranceFromQuery 容差参数 absTol / relTol，缺省用默认容差
func toleranceFromQuery(c *gin.Context) (calculator.Tolerance, error) {
	tol := calculator.DefaultTolerance()
	for _, p := range []struct {
		name string
		dst  *float64
	}{{"absTol", &tol.Absolute}, {"relTol", &tol.Relative}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return tol, badRequest(p.name + " 必须为非负数")
		}
		*p.dst = v
	}
	return tol, nil
}

// ReconcileResponse 对账响应
type ReconcileResponse struct {
	*calculator.ReconcileReport
	Notes []string `json:"notes"`
}

// Reconcile 计算结果与核对基准比对
// GET /api/reconcile
func (h *Handler) Reconcile(c *gin.Context) {
	tol, err := toleranceFromQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	out, ok := h.computeFromContext(c)
	if !ok {
		return
	}
	refs, err := h.store.ListReferenceTotals()
	if err != nil {
		respondError(c, err)
		return
	}

	report := calculator.Reconcile(out.result, refs, tol)
	notes := out.result.Diagnostics.Notes()
	if len(refs) == 0 {
		notes = append(notes, "尚未设置核对基准")
	}
	c.JSON(http.StatusOK, ReconcileResponse{ReconcileReport: report, Notes: notes})
}
