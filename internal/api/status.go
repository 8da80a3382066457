package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"o2oprofit/internal/store"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	Initialized    bool       `json:"initialized"`    // 是否已有订单数据
	OrderLines     int        `json:"orderLines"`     // 订单明细行数
	StoreCount     int        `json:"storeCount"`     // 门店数
	ChannelCount   int        `json:"channelCount"`   // 渠道数
	CachedResults  int        `json:"cachedResults"`  // 缓存中的计算结果数
	Tag            string     `json:"tag"`            // 当前计算口径
	LastImportFile string     `json:"lastImportFile"` // 最后导入的文件
	LastImportTime *time.Time `json:"lastImportTime"` // 最后导入时间
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	lines, err := h.store.CountOrderLines(store.OrderLineQuery{})
	if err != nil {
		respondError(c, err)
		return
	}
	stores, err := h.store.ListStores()
	if err != nil {
		respondError(c, err)
		return
	}
	channels, err := h.store.ListChannels()
	if err != nil {
		respondError(c, err)
		return
	}

	resp := StatusResponse{
		Initialized:   lines > 0,
		OrderLines:    lines,
		StoreCount:    len(stores),
		ChannelCount:  len(channels),
		CachedResults: h.cache.Len(),
	}
	if cfg, err := h.baseConfig(); err == nil {
		resp.Tag = cfg.Tag()
	}
	if logs, err := h.store.ListImportLogs(1); err == nil && len(logs) > 0 {
		resp.LastImportFile = logs[0].Filename
		created := logs[0].CreatedAt
		resp.LastImportTime = &created
	}

	c.JSON(http.StatusOK, resp)
}

// ListStores 已导入数据中的门店
// GET /api/stores
func (h *Handler) ListStores(c *gin.Context) {
	stores, err := h.store.ListStores()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": stores})
}

// ListChannels 已导入数据中的渠道
// GET /api/channels
func (h *Handler) ListChannels(c *gin.Context) {
	channels, err := h.store.ListChannels()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": channels})
}
