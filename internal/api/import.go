package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"o2oprofit/internal/importer"
)

var allowedImportExts = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".csv":  true,
}

// Import 导入平台订单导出文件 (SSE 流式响应)
// POST /api/import
func (h *Handler) Import(c *gin.Context) {
	uploaded, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未找到上传文件"})
		return
	}

	ext := strings.ToLower(filepath.Ext(uploaded.Filename))
	if !allowedImportExts[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "仅支持 .xlsx / .xlsm / .csv 文件"})
		return
	}

	// 保存到上传目录，文件名不依赖用户输入
	savedPath := filepath.Join(h.uploadDir, uuid.NewString()+ext)
	if err := c.SaveUploadedFile(uploaded, savedPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存文件失败"})
		return
	}

	replace := c.DefaultPostForm("replace", "false") == "true"

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "不支持流式响应"})
		return
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	progressChan := h.coordinator.Import(importer.ImportOptions{
		FilePath:         savedPath,
		Filename:         uploaded.Filename,
		ReplaceDuplicate: replace,
	})

	for event := range progressChan {
		writeSSE(c, flusher, event)
	}
}

// writeSSE SSE 格式: data: {json}\n\n
func writeSSE(c *gin.Context, flusher http.Flusher, event interface{}) {
	b, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", b)
	flusher.Flush()
}

// ListImports 导入记录
// GET /api/imports
func (h *Handler) ListImports(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		respondError(c, badRequest("limit 必须为正整数"))
		return
	}
	logs, err := h.store.ListImportLogs(limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": logs})
}

// ListImportSheets 某次导入的工作表识别结果
// GET /api/imports/:id/sheets
func (h *Handler) ListImportSheets(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, badRequest("无效的导入 ID"))
		return
	}
	metas, err := h.store.ListSheetMeta(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": metas})
}

// DeleteImport 删除一次导入的全部明细
// DELETE /api/imports/:id
func (h *Handler) DeleteImport(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, badRequest("无效的导入 ID"))
		return
	}
	if err := h.store.DeleteImport(id); err != nil {
		respondError(c, err)
		return
	}
	h.cache.Invalidate()
	c.JSON(http.StatusOK, gin.H{"message": "已删除"})
}
