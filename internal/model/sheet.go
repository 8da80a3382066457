package model

// SheetMeta 导入时单个 Sheet 的元信息（用于追溯列映射与跳过原因）
type SheetMeta struct {
	ImportLogID       int64   `json:"importLogId"`
	SheetName         string  `json:"sheetName"`
	SheetType         string  `json:"sheetType"`
	Channel           string  `json:"channel"`
	Confidence        float64 `json:"confidence"`
	TotalRows         int     `json:"totalRows"`
	ImportedRows      int     `json:"importedRows"`
	ColumnsJSON       string  `json:"columnsJson"`
	ColumnMappingJSON string  `json:"columnMappingJson"`
	Status            string  `json:"status"`
	ErrorMessage      string  `json:"errorMessage,omitempty"`
	SourceFile        string  `json:"sourceFile"`
}
