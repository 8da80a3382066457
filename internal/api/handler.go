package api

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"o2oprofit/internal/cache"
	"o2oprofit/internal/calculator"
	"o2oprofit/internal/config"
	"o2oprofit/internal/importer"
	"o2oprofit/internal/parser"
	"o2oprofit/internal/store"
)

// Options 处理器依赖的运行参数
type Options struct {
	Calculation config.CalculationConfig
	Cache       *cache.ResultCache
	UploadDir   string
	ExportDir   string
}

// Handler API 处理器
type Handler struct {
	store       *store.Store
	cache       *cache.ResultCache
	coordinator *importer.Coordinator
	calc        config.CalculationConfig
	uploadDir   string
	exportDir   string
	downloads   *exportDownloadStore
}

// NewHandler 创建 API 处理器
func NewHandler(st *store.Store, opts Options) *Handler {
	if opts.Cache == nil {
		opts.Cache = cache.New(0)
	}
	if opts.UploadDir == "" {
		opts.UploadDir = os.TempDir()
	}
	if opts.ExportDir == "" {
		opts.ExportDir = os.TempDir()
	}

	h := &Handler{
		store:       st,
		cache:       opts.Cache,
		coordinator: importer.NewCoordinator(st),
		calc:        opts.Calculation,
		uploadDir:   opts.UploadDir,
		exportDir:   opts.ExportDir,
		downloads:   newExportDownloadStore(),
	}

	// 新数据入库后旧结果全部失效
	h.coordinator.OnComplete(func(report *parser.ImportReport) {
		h.cache.Invalidate()
		zap.L().Debug("result cache invalidated", zap.String("file", report.Filename))
	})
	return h
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)
	router.GET("/stores", h.ListStores)
	router.GET("/channels", h.ListChannels)

	// 计算口径
	router.GET("/config", h.GetConfig)
	router.PATCH("/config", h.UpdateConfig)

	// 数据导入
	router.POST("/import", h.Import)
	router.GET("/imports", h.ListImports)
	router.GET("/imports/:id/sheets", h.ListImportSheets)
	router.DELETE("/imports/:id", h.DeleteImport)

	// 利润计算
	router.POST("/calculate", h.Calculate)
	router.GET("/orders", h.ListOrders)
	router.GET("/summary/channels", h.ChannelSummary)
	router.GET("/summary/stores", h.StoreSummary)
	router.GET("/runs", h.ListRuns)

	// 对账
	router.PUT("/references", h.PutReferences)
	router.GET("/references", h.GetReferences)
	router.GET("/reconcile", h.Reconcile)

	// 报表导出
	router.POST("/export", h.Export)
	router.POST("/export/stream", h.ExportStream)
	router.GET("/export/download/:token", h.DownloadExport)
}

// requestError 请求参数错误
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error {
	return &requestError{msg: msg}
}

// respondError 配置错误与参数错误返回 400，其余返回 500
func respondError(c *gin.Context, err error) {
	var cfgErr *calculator.ConfigurationError
	if errors.As(err, &cfgErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    cfgErr.Error(),
			"field":    cfgErr.Field,
			"blocking": true,
		})
		return
	}

	var reqErr *requestError
	if errors.As(err, &reqErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": reqErr.Error()})
		return
	}

	zap.L().Error("request failed",
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
