package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"o2oprofit/internal/calculator"
	"o2oprofit/internal/exporter"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportRequest 导出请求：计算参数 + 是否附带对账结果
type ExportRequest struct {
	CalcRequest
	Reconcile bool `json:"reconcile"`
}

func (h *Handler) bindExport(c *gin.Context) (*ExportRequest, error) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		return nil, badRequest("请求格式错误: " + err.Error())
	}
	if err := req.normalize(); err != nil {
		return nil, err
	}
	return &req, nil
}

func (h *Handler) exportOptions(req *ExportRequest, result *calculator.Result) (exporter.ExportOptions, error) {
	var opts exporter.ExportOptions
	if !req.Reconcile {
		return opts, nil
	}
	refs, err := h.store.ListReferenceTotals()
	if err != nil {
		return opts, err
	}
	opts.Reconcile = calculator.Reconcile(result, refs, calculator.DefaultTolerance())
	return opts, nil
}

// Export 导出利润报表
// POST /api/export
func (h *Handler) Export(c *gin.Context) {
	req, err := h.bindExport(c)
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := h.compute(&req.CalcRequest)
	if err != nil {
		respondError(c, err)
		return
	}
	opts, err := h.exportOptions(req, out.result)
	if err != nil {
		respondError(c, err)
		return
	}

	file, err := exporter.NewExporter().Export(out.result, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "导出失败: " + err.Error()})
		return
	}
	defer file.Close()

	c.Header("Content-Disposition", buildExportContentDisposition(time.Now()))
	c.Header("Content-Type", xlsxContentType)
	c.Header("X-Calc-Tag", out.result.Tag)

	if err := file.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "写入文件失败"})
		return
	}
}

type exportProgressEvent struct {
	Type      string      `json:"type"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// ExportStream 导出报表（SSE 进度 + 完成后提供下载地址）
// POST /api/export/stream
func (h *Handler) ExportStream(c *gin.Context) {
	req, err := h.bindExport(c)
	if err != nil {
		respondError(c, err)
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "不支持流式响应"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	send := func(typ, message string, data interface{}) {
		writeSSE(c, flusher, exportProgressEvent{
			Type:      typ,
			Message:   message,
			Data:      data,
			Timestamp: time.Now(),
		})
	}
	fail := func(message string) {
		send("error", message, map[string]any{})
	}

	send("start", "开始计算", map[string]any{"store": req.Store, "channel": req.Channel})

	out, err := h.compute(&req.CalcRequest)
	if err != nil {
		fail("计算失败: " + err.Error())
		return
	}
	opts, err := h.exportOptions(req, out.result)
	if err != nil {
		fail("读取核对基准失败: " + err.Error())
		return
	}

	lastPercent := -1
	opts.Progress = func(p exporter.ProgressEvent) {
		if p.Percent == lastPercent {
			return
		}
		lastPercent = p.Percent
		send("progress", p.Stage, map[string]any{"percent": p.Percent, "step": p.Step, "steps": p.Steps})
	}

	file, err := exporter.NewExporter().Export(out.result, opts)
	if err != nil {
		fail("导出失败: " + err.Error())
		return
	}
	defer file.Close()

	path := filepath.Join(h.exportDir, fmt.Sprintf("profit_%s.xlsx", uuid.NewString()))
	if err := file.SaveAs(path); err != nil {
		_ = os.Remove(path)
		fail("写入导出文件失败: " + err.Error())
		return
	}

	token := h.downloads.put(path, 10*time.Minute)
	send("done", "导出完成", map[string]any{
		"percent":     100,
		"tag":         out.result.Tag,
		"downloadUrl": "/api/export/download/" + token,
	})
}

// DownloadExport 下载导出的报表（一次性）
// GET /api/export/download/:token
func (h *Handler) DownloadExport(c *gin.Context) {
	token := c.Param("token")
	item, ok := h.downloads.get(token)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "下载链接已失效"})
		return
	}

	if _, err := os.Stat(item.filePath); err != nil {
		h.downloads.delete(token)
		c.JSON(http.StatusNotFound, gin.H{"error": "导出文件不存在"})
		return
	}

	c.Header("Content-Disposition", buildExportContentDisposition(item.createdAt))
	c.Header("Content-Type", xlsxContentType)
	c.File(item.filePath)

	h.downloads.delete(token)
	_ = os.Remove(item.filePath)
}

// buildExportContentDisposition ASCII 文件名兜底 + RFC 5987 中文文件名
func buildExportContentDisposition(t time.Time) string {
	day := t.Format("20060102")
	ascii := fmt.Sprintf("profit-report-%s.xlsx", day)
	utf8Name := fmt.Sprintf("利润报表-%s.xlsx", day)
	return fmt.Sprintf("attachment; filename=\"%s\"; filename*=UTF-8''%s", ascii, url.PathEscape(utf8Name))
}
