package parser

import "time"

// SheetType Sheet 类型
type SheetType string

const (
	SheetTypeOrderDetail SheetType = "order_detail" // 订单商品明细
	SheetTypeSummary     SheetType = "summary"      // 平台汇总/账单汇总，不导入
	SheetTypeUnknown     SheetType = "unknown"
)

// SheetRecognitionResult Sheet 识别结果
type SheetRecognitionResult struct {
	SheetName  string    `json:"sheetName"`
	SheetType  SheetType `json:"sheetType"`
	Confidence float64   `json:"confidence"` // 置信度 0-1
	Channel    string    `json:"channel"`    // 从 Sheet 名识别出的平台，可能为空
	DataYear   int       `json:"dataYear"`
	DataMonth  int       `json:"dataMonth"`
}

// FieldMapping 字段映射结果
type FieldMapping struct {
	ColumnIndex int    `json:"columnIndex"` // 列索引
	ColumnName  string `json:"columnName"`  // 原始列名（规范化后）
	Field       string `json:"field"`       // 规范字段名
}

// ParseResult 单个 Sheet / CSV 的解析结果
type ParseResult struct {
	SheetName    string    `json:"sheetName"`
	SheetType    SheetType `json:"sheetType"`
	Channel      string    `json:"channel"`
	Status       string    `json:"status"` // imported/skipped/error
	ImportedRows int       `json:"importedRows"`
	SkippedRows  int       `json:"skippedRows"` // 缺少订单号或空行
	ErrorRows    int       `json:"errorRows"`
	Errors       []string  `json:"errors,omitempty"`
	// DerivedProfit 导出缺少商品利润列，按 实收 - 成本 逐行推导
	DerivedProfit   bool           `json:"derivedProfit"`
	Mappings        []FieldMapping `json:"mappings,omitempty"` // 按列顺序
	UnmappedColumns []string       `json:"unmappedColumns,omitempty"`
	Duration        time.Duration  `json:"duration"`
}

// ImportReport 导入报告
type ImportReport struct {
	ImportID       int64         `json:"importId"`
	Filename       string        `json:"filename"`
	TotalSheets    int           `json:"totalSheets"`
	ImportedSheets int           `json:"importedSheets"`
	SkippedSheets  int           `json:"skippedSheets"`
	TotalRows      int           `json:"totalRows"`
	ImportedRows   int           `json:"importedRows"`
	ErrorRows      int           `json:"errorRows"`
	Duration       time.Duration `json:"duration"`
	Sheets         []ParseResult `json:"sheets"`
}

// maxRowErrors 单个 Sheet 最多保留的错误明细条数
const maxRowErrors = 50
