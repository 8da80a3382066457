package importer

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"o2oprofit/internal/model"
	"o2oprofit/internal/parser"
	"o2oprofit/internal/store"
)

// Coordinator 导入协调器
type Coordinator struct {
	store      *store.Store
	parser     *parser.OrderParser
	onComplete []func(*parser.ImportReport)
}

// NewCoordinator 创建导入协调器
func NewCoordinator(store *store.Store) *Coordinator {
	return &Coordinator{
		store:  store,
		parser: parser.NewOrderParser(),
	}
}

// OnComplete 注册导入成功后的回调（如清空计算缓存）
func (c *Coordinator) OnComplete(fn func(*parser.ImportReport)) {
	c.onComplete = append(c.onComplete, fn)
}

// ImportOptions 导入选项
type ImportOptions struct {
	FilePath string
	// Filename 展示用文件名，为空时取 FilePath 的文件名；CSV 依据它识别平台
	Filename string
	// ReplaceDuplicate 同一文件（内容哈希相同）已导入时，删除旧批次后重新导入；否则跳过
	ReplaceDuplicate bool
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`      // start/sheet_start/info/warning/sheet_done/done/error
	Message   string      `json:"message"`   // 事件消息
	Data      interface{} `json:"data"`      // 附加数据
	Timestamp time.Time   `json:"timestamp"` // 时间戳
}

// importContext 单次导入的状态
type importContext struct {
	filename string
	tx       *sql.Tx
	importID int64
	report   *parser.ImportReport
	metas    []model.SheetMeta
	progress chan ProgressEvent
}

// Import 执行导入，返回进度通道
func (c *Coordinator) Import(opts ImportOptions) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 100)

	go func() {
		defer close(progressChan)
		c.doImport(opts, progressChan)
	}()

	return progressChan
}

func (c *Coordinator) doImport(opts ImportOptions, progress chan ProgressEvent) {
	startTime := time.Now()
	filename := opts.Filename
	if filename == "" {
		filename = filepath.Base(opts.FilePath)
	}

	c.send(progress, "start", "开始导入订单明细", map[string]string{"filename": filename})

	info, err := os.Stat(opts.FilePath)
	if err != nil {
		c.fail(progress, fmt.Sprintf("打开文件失败: %v", err))
		return
	}
	hash, err := fileHash(opts.FilePath)
	if err != nil {
		c.fail(progress, fmt.Sprintf("读取文件失败: %v", err))
		return
	}

	prev, err := c.store.FindImportLogByHash(hash)
	if err != nil {
		c.fail(progress, fmt.Sprintf("查询导入记录失败: %v", err))
		return
	}
	if prev != nil && !opts.ReplaceDuplicate {
		c.send(progress, "warning", fmt.Sprintf("文件已于批次 %d 导入，跳过", prev.ID), map[string]int64{"import_id": prev.ID})
		c.send(progress, "done", "导入完成（重复文件）", &parser.ImportReport{ImportID: prev.ID, Filename: filename, Sheets: []parser.ParseResult{}})
		return
	}

	importID, err := c.store.CreateImportLog(filename, opts.FilePath, info.Size(), hash)
	if err != nil {
		c.fail(progress, fmt.Sprintf("创建导入记录失败: %v", err))
		return
	}

	tx, err := c.store.BeginTx()
	if err != nil {
		c.finishLog(importID, nil, "failed", err.Error())
		c.fail(progress, fmt.Sprintf("开启事务失败: %v", err))
		return
	}
	defer tx.Rollback()

	// 旧批次与新批次同一事务：新批次失败时旧数据保持不变
	if prev != nil {
		if err := c.store.DeleteImportTx(tx, prev.ID); err != nil {
			_ = tx.Rollback()
			c.finishLog(importID, nil, "failed", err.Error())
			c.fail(progress, fmt.Sprintf("删除旧批次失败: %v", err))
			return
		}
		c.send(progress, "info", fmt.Sprintf("重复文件：导入成功后替换旧批次 %d", prev.ID), map[string]int64{"import_id": prev.ID})
	}

	ctx := &importContext{
		filename: filename,
		tx:       tx,
		importID: importID,
		progress: progress,
		report: &parser.ImportReport{
			ImportID: importID,
			Filename: filename,
			Sheets:   []parser.ParseResult{},
		},
	}

	if strings.EqualFold(filepath.Ext(filename), ".csv") || strings.EqualFold(filepath.Ext(opts.FilePath), ".csv") {
		err = c.importCSV(ctx, opts.FilePath)
	} else {
		err = c.importWorkbook(ctx, opts.FilePath)
	}
	if err == nil && ctx.report.ImportedSheets == 0 {
		err = errNoOrderSheet
	}
	if err != nil {
		_ = tx.Rollback()
		c.insertMetas(ctx.metas)
		ctx.report.Duration = time.Since(startTime)
		c.finishLog(importID, ctx.report, "failed", err.Error())
		c.fail(progress, err.Error())
		return
	}

	if err := tx.Commit(); err != nil {
		c.finishLog(importID, ctx.report, "failed", err.Error())
		c.fail(progress, fmt.Sprintf("提交导入失败: %v", err))
		return
	}

	// 事务提交后再写元信息（单连接）
	c.insertMetas(ctx.metas)

	status := "success"
	if ctx.report.ErrorRows > 0 || ctx.report.SkippedSheets > 0 {
		status = "partial"
	}
	ctx.report.Duration = time.Since(startTime)
	c.finishLog(importID, ctx.report, status, "")

	zap.L().Info("import finished",
		zap.String("file", filename),
		zap.Int64("import_id", importID),
		zap.String("status", status),
		zap.Int("imported_rows", ctx.report.ImportedRows),
		zap.Duration("duration", ctx.report.Duration),
	)

	for _, fn := range c.onComplete {
		fn(ctx.report)
	}
	c.send(progress, "done", "导入完成", ctx.report)
}

var errNoOrderSheet = errors.New("未找到可导入的订单明细")

func (c *Coordinator) insertMetas(metas []model.SheetMeta) {
	for _, meta := range metas {
		if err := c.store.InsertSheetMeta(meta); err != nil {
			zap.L().Warn("insert sheet meta failed", zap.String("sheet", meta.SheetName), zap.Error(err))
		}
	}
}

func (c *Coordinator) importWorkbook(ctx *importContext, path string) error {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("打开文件失败: %w", err)
	}
	defer file.Close()

	sheetList := file.GetSheetList()
	ctx.report.TotalSheets = len(sheetList)
	c.send(ctx.progress, "info", fmt.Sprintf("发现 %d 个 Sheet", len(sheetList)), map[string]interface{}{
		"total_sheets": len(sheetList),
	})

	for _, sheetName := range sheetList {
		c.send(ctx.progress, "sheet_start", fmt.Sprintf("正在解析 Sheet: %s", sheetName), map[string]string{
			"sheet_name": sheetName,
		})
		rows, err := file.GetRows(sheetName)
		if err != nil {
			c.recordSheetResult(ctx, parser.ParseResult{
				SheetName: sheetName,
				SheetType: parser.SheetTypeUnknown,
				Status:    "error",
				Errors:    []string{fmt.Sprintf("读取 Sheet 失败: %v", err)},
			}, nil)
			continue
		}
		if err := c.processRows(ctx, sheetName, rows); err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) importCSV(ctx *importContext, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("打开文件失败: %w", err)
	}
	defer f.Close()

	ctx.report.TotalSheets = 1
	c.send(ctx.progress, "sheet_start", fmt.Sprintf("正在解析 CSV: %s", ctx.filename), map[string]string{
		"sheet_name": ctx.filename,
	})

	lines, result, err := c.parser.ParseCSV(f, ctx.filename)
	return c.handleParsed(ctx, ctx.filename, nil, lines, result, err)
}

// processRows 识别并解析一个 Sheet，订单明细写入当前事务
func (c *Coordinator) processRows(ctx *importContext, sheetName string, rows [][]string) error {
	var headers []string
	if len(rows) > 0 {
		headers = rows[0]
	}
	recognition := c.parser.Recognize(sheetName, headers)
	c.send(ctx.progress, "info",
		fmt.Sprintf("Sheet \"%s\" 识别为: %s (置信度: %.2f)", sheetName, recognition.SheetType, recognition.Confidence),
		map[string]interface{}{
			"sheet_name": sheetName,
			"sheet_type": string(recognition.SheetType),
			"confidence": recognition.Confidence,
			"channel":    recognition.Channel,
		})

	lines, result, err := c.parser.ParseRows(sheetName, rows)
	return c.handleParsed(ctx, sheetName, headers, lines, result, err)
}

func (c *Coordinator) handleParsed(ctx *importContext, sheetName string, headers []string, lines []*model.OrderLine, result parser.ParseResult, err error) error {
	if err != nil {
		if errors.Is(err, parser.ErrNotOrderSheet) {
			result.Status = "skipped"
			c.send(ctx.progress, "info", fmt.Sprintf("跳过非订单明细: %s", sheetName), nil)
		} else {
			if result.Status == "" || result.Status == "imported" {
				result.Status = "error"
			}
			result.Errors = append(result.Errors, err.Error())
			c.send(ctx.progress, "warning", fmt.Sprintf("Sheet \"%s\" 解析失败: %v", sheetName, err), nil)
		}
		c.recordSheetResult(ctx, result, headers)
		return nil
	}

	if err := c.store.InsertOrderLinesTx(ctx.tx, ctx.importID, lines); err != nil {
		return fmt.Errorf("写入 Sheet \"%s\" 失败: %w", sheetName, err)
	}

	if result.DerivedProfit {
		c.send(ctx.progress, "info", fmt.Sprintf("Sheet \"%s\" 缺少商品利润列，按 商品实收 - 商品成本 推导", sheetName), nil)
	}
	if len(result.UnmappedColumns) > 0 {
		c.send(ctx.progress, "info", fmt.Sprintf("Sheet \"%s\" 未识别列: %s", sheetName, strings.Join(result.UnmappedColumns, "、")), nil)
	}

	c.recordSheetResult(ctx, result, headers)
	c.send(ctx.progress, "sheet_done", fmt.Sprintf("Sheet \"%s\" 导入成功: %d 行", sheetName, result.ImportedRows), map[string]interface{}{
		"sheet_name":    sheetName,
		"imported_rows": result.ImportedRows,
		"skipped_rows":  result.SkippedRows,
		"error_rows":    result.ErrorRows,
	})
	return nil
}

// recordSheetResult 记录 Sheet 处理结果
func (c *Coordinator) recordSheetResult(ctx *importContext, result parser.ParseResult, headers []string) {
	ctx.report.Sheets = append(ctx.report.Sheets, result)

	switch result.Status {
	case "imported":
		ctx.report.ImportedSheets++
		ctx.report.ImportedRows += result.ImportedRows
	case "skipped":
		ctx.report.SkippedSheets++
	}
	ctx.report.ErrorRows += result.ErrorRows
	ctx.report.TotalRows += result.ImportedRows + result.SkippedRows

	ctx.metas = append(ctx.metas, model.SheetMeta{
		ImportLogID:       ctx.importID,
		SheetName:         result.SheetName,
		SheetType:         string(result.SheetType),
		Channel:           result.Channel,
		TotalRows:         result.ImportedRows + result.SkippedRows,
		ImportedRows:      result.ImportedRows,
		ColumnsJSON:       store.BuildColumnsJSON(headers),
		ColumnMappingJSON: store.BuildColumnsJSON(result.Mappings),
		Status:            result.Status,
		ErrorMessage:      strings.Join(result.Errors, "; "),
		SourceFile:        ctx.filename,
	})
}

func (c *Coordinator) finishLog(importID int64, report *parser.ImportReport, status, message string) {
	u := store.ImportLogUpdate{Status: status, ErrorMessage: message}
	if report != nil {
		u.TotalSheets = report.TotalSheets
		u.ImportedSheets = report.ImportedSheets
		u.SkippedSheets = report.SkippedSheets
		u.TotalRows = report.TotalRows
		u.ImportedRows = report.ImportedRows
		u.ErrorRows = report.ErrorRows
	}
	if err := c.store.UpdateImportLog(importID, u); err != nil {
		zap.L().Error("update import log failed", zap.Int64("import_id", importID), zap.Error(err))
	}
}

func (c *Coordinator) fail(progress chan ProgressEvent, message string) {
	zap.L().Warn("import failed", zap.String("reason", message))
	c.send(progress, "error", message, nil)
}

// send 发送进度事件；通道已满时丢弃，done/error 除外
func (c *Coordinator) send(ch chan ProgressEvent, typ, message string, data interface{}) {
	event := ProgressEvent{Type: typ, Message: message, Data: data, Timestamp: time.Now()}
	if typ == "done" || typ == "error" {
		ch <- event
		return
	}
	select {
	case ch <- event:
	default:
	}
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
