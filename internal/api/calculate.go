package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"o2oprofit/internal/cache"
	"o2oprofit/internal/calculator"
	"o2oprofit/internal/model"
	"o2oprofit/internal/store"
)

const dateLayout = "2006-01-02"

// CalcRequest 计算请求：口径覆盖 + 数据范围
//
// 口径字段为空时使用已保存的口径；ExcludedCategories 为 nil 表示沿用，空数组表示不剔除。
type CalcRequest struct {
	FeeMode            string   `json:"feeMode" form:"feeMode"`
	ExcludedCategories []string `json:"excludedCategories" form:"excludedCategories"`
	MarketingSchema    string   `json:"marketingSchema" form:"marketingSchema"`
	Store              string   `json:"store" form:"store"`
	Channel            string   `json:"channel" form:"channel"`
	From               string   `json:"from" form:"from"`
	To                 string   `json:"to" form:"to"`
}

func (r *CalcRequest) normalize() error {
	r.FeeMode = strings.TrimSpace(r.FeeMode)
	r.MarketingSchema = strings.TrimSpace(r.MarketingSchema)
	r.Store = strings.TrimSpace(r.Store)
	r.Channel = strings.TrimSpace(r.Channel)

	if r.ExcludedCategories != nil {
		// 查询串允许逗号分隔
		cats := make([]string, 0, len(r.ExcludedCategories))
		for _, item := range r.ExcludedCategories {
			for _, part := range strings.Split(item, ",") {
				if part = strings.TrimSpace(part); part != "" {
					cats = append(cats, part)
				}
			}
		}
		r.ExcludedCategories = cats
	}

	for _, d := range []struct{ name, value string }{{"from", r.From}, {"to", r.To}} {
		if d.value == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, d.value); err != nil {
			return badRequest(fmt.Sprintf("%s 日期格式应为 YYYY-MM-DD: %q", d.name, d.value))
		}
	}
	if r.From != "" && r.To != "" && r.From > r.To {
		return badRequest("from 不能晚于 to")
	}
	return nil
}

func (r *CalcRequest) query() store.OrderLineQuery {
	return store.OrderLineQuery{
		StoreName: r.Store,
		Channel:   r.Channel,
		DateFrom:  r.From,
		DateTo:    r.To,
	}
}

// bindCalcRequest GET 读查询串，其余读 JSON（允许空请求体）
func bindCalcRequest(c *gin.Context, req *CalcRequest) error {
	if c.Request.Method == http.MethodGet {
		if err := c.ShouldBindQuery(req); err != nil {
			return badRequest("请求参数错误: " + err.Error())
		}
	} else if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		return badRequest("请求格式错误: " + err.Error())
	}
	return req.normalize()
}

// baseConfig 已保存的口径；未保存时使用配置文件
func (h *Handler) baseConfig() (model.CalcConfig, error) {
	saved, err := h.store.LoadCalcConfig()
	switch {
	case err == nil:
		saved.Workers = h.calc.Workers
		return saved, nil
	case errors.Is(err, store.ErrConfigNotFound):
		cfg, err := h.calc.EngineConfig()
		if err != nil {
			return model.CalcConfig{}, &calculator.ConfigurationError{Reason: err.Error()}
		}
		return cfg, nil
	default:
		return model.CalcConfig{}, err
	}
}

// resolveConfig 在基础口径上应用请求覆盖
func (h *Handler) resolveConfig(req *CalcRequest) (model.CalcConfig, error) {
	cfg, err := h.baseConfig()
	if err != nil {
		return cfg, err
	}

	if req.FeeMode != "" {
		mode, err := model.ParseFeeMode(req.FeeMode)
		if err != nil {
			return cfg, &calculator.ConfigurationError{Field: "feeMode", Reason: err.Error()}
		}
		cfg.FeeMode = mode
	}
	if req.ExcludedCategories != nil {
		cfg.ExcludedCategories = append([]string{}, req.ExcludedCategories...)
	}
	if req.MarketingSchema != "" {
		schema, err := h.calc.ResolveMarketingSchema(req.MarketingSchema)
		if err != nil {
			return cfg, &calculator.ConfigurationError{Field: "marketingSchema", Reason: err.Error()}
		}
		cfg.Marketing = schema
	}
	return cfg, nil
}

// calcOutcome 一次计算（或缓存命中）的结果
type calcOutcome struct {
	result *calculator.Result
	runID  string
	cached bool
}

func (h *Handler) compute(req *CalcRequest) (*calcOutcome, error) {
	cfg, err := h.resolveConfig(req)
	if err != nil {
		return nil, err
	}

	key := cache.Key{
		StoreName:   req.Store,
		Channel:     req.Channel,
		From:        req.From,
		To:          req.To,
		Fingerprint: cfg.Fingerprint(),
	}
	if res, ok := h.cache.Get(key); ok {
		return &calcOutcome{result: res, cached: true}, nil
	}

	rows, err := h.store.QueryOrderLines(req.query())
	if err != nil {
		return nil, fmt.Errorf("读取订单明细失败: %w", err)
	}
	res, err := calculator.Calculate(rows, cfg)
	if err != nil {
		return nil, err
	}
	h.cache.Set(key, res)

	run := &model.CalcRun{
		Tag:            res.Tag,
		Fingerprint:    key.Fingerprint,
		StoreName:      req.Store,
		Channel:        req.Channel,
		DateFrom:       req.From,
		DateTo:         req.To,
		InputRows:      res.Diagnostics.InputRows,
		OrderCount:     res.Total.OrderCount,
		ExcludedOrders: res.Diagnostics.ExcludedCount(),
		FallbackOrders: res.Diagnostics.FallbackCount(),
		Warnings:       len(res.Diagnostics.ConsistencyWarnings),
		Revenue:        res.Total.Revenue,
		Profit:         res.Total.Profit,
	}
	if err := h.store.SaveCalcRun(run); err != nil {
		zap.L().Warn("save calc run failed", zap.Error(err))
	}

	zap.L().Info("calculation finished",
		zap.String("run_id", run.ID),
		zap.String("tag", res.Tag),
		zap.Int("rows", len(rows)),
		zap.Int("orders", res.Total.OrderCount),
		zap.Int("excluded", run.ExcludedOrders),
		zap.Int("fallback", run.FallbackOrders),
	)
	return &calcOutcome{result: res, runID: run.ID}, nil
}

// computeFromContext 绑定请求并计算
func (h *Handler) computeFromContext(c *gin.Context) (*calcOutcome, bool) {
	var req CalcRequest
	if err := bindCalcRequest(c, &req); err != nil {
		respondError(c, err)
		return nil, false
	}
	out, err := h.compute(&req)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return out, true
}

// CalculateResponse 计算响应（不含订单明细，明细见 /orders）
type CalculateResponse struct {
	RunID       string                 `json:"runId,omitempty"`
	Tag         string                 `json:"tag"`
	Cached      bool                   `json:"cached"`
	Total       model.Summary          `json:"total"`
	Channels    []model.Summary        `json:"channels"`
	Stores      []model.Summary        `json:"stores"`
	Notes       []string               `json:"notes"`
	Diagnostics calculator.Diagnostics `json:"diagnostics"`
}

// Calculate 执行利润计算
// POST /api/calculate
func (h *Handler) Calculate(c *gin.Context) {
	out, ok := h.computeFromContext(c)
	if !ok {
		return
	}
	res := out.result
	c.JSON(http.StatusOK, CalculateResponse{
		RunID:       out.runID,
		Tag:         res.Tag,
		Cached:      out.cached,
		Total:       res.Total,
		Channels:    res.Channels,
		Stores:      res.Stores,
		Notes:       res.Diagnostics.Notes(),
		Diagnostics: res.Diagnostics,
	})
}

// OrdersResponse 订单利润明细（分页）
type OrdersResponse struct {
	Tag    string                   `json:"tag"`
	Total  int                      `json:"total"`
	Limit  int                      `json:"limit"`
	Offset int                      `json:"offset"`
	Items  []*model.AggregatedOrder `json:"items"`
	Notes  []string                 `json:"notes"`
}

// ListOrders 订单级利润明细
// GET /api/orders
func (h *Handler) ListOrders(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		respondError(c, badRequest("limit 必须为正整数"))
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		respondError(c, badRequest("offset 不能为负数"))
		return
	}

	out, ok := h.computeFromContext(c)
	if !ok {
		return
	}
	orders := out.result.Orders

	start := offset
	if start > len(orders) {
		start = len(orders)
	}
	end := start + limit
	if end > len(orders) {
		end = len(orders)
	}

	c.JSON(http.StatusOK, OrdersResponse{
		Tag:    out.result.Tag,
		Total:  len(orders),
		Limit:  limit,
		Offset: offset,
		Items:  orders[start:end],
		Notes:  out.result.Diagnostics.Notes(),
	})
}

// SummaryResponse 分组汇总
type SummaryResponse struct {
	Tag     string          `json:"tag"`
	GroupBy model.GroupBy   `json:"groupBy"`
	Items   []model.Summary `json:"items"`
	Total   model.Summary   `json:"total"`
	Notes   []string        `json:"notes"`
}

// ChannelSummary 渠道汇总
// GET /api/summary/channels
func (h *Handler) ChannelSummary(c *gin.Context) {
	out, ok := h.computeFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, SummaryResponse{
		Tag:     out.result.Tag,
		GroupBy: model.GroupByChannel,
		Items:   out.result.Channels,
		Total:   out.result.Total,
		Notes:   out.result.Diagnostics.Notes(),
	})
}

// StoreSummary 门店汇总
// GET /api/summary/stores
func (h *Handler) StoreSummary(c *gin.Context) {
	out, ok := h.computeFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, SummaryResponse{
		Tag:     out.result.Tag,
		GroupBy: model.GroupByStore,
		Items:   out.result.Stores,
		Total:   out.result.Total,
		Notes:   out.result.Diagnostics.Notes(),
	})
}

// ListRuns 最近的计算运行记录
// GET /api/runs
func (h *Handler) ListRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		respondError(c, badRequest("limit 必须为正整数"))
		return
	}
	runs, err := h.store.ListCalcRuns(limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": runs})
}
