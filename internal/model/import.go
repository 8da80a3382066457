package model

import "time"

// ImportLog 一次文件导入的记录
type ImportLog struct {
	ID             int64      `json:"id"`
	Filename       string     `json:"filename"`
	FilePath       string     `json:"filePath"`
	FileSize       int64      `json:"fileSize"`
	FileHash       string     `json:"fileHash"`
	TotalSheets    int        `json:"totalSheets"`
	ImportedSheets int        `json:"importedSheets"`
	SkippedSheets  int        `json:"skippedSheets"`
	TotalRows      int        `json:"totalRows"`
	ImportedRows   int        `json:"importedRows"`
	ErrorRows      int        `json:"errorRows"`
	Status         string     `json:"status"` // processing/success/partial/failed
	ErrorMessage   string     `json:"errorMessage,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// CalcRun 一次利润计算的运行记录
type CalcRun struct {
	ID             string    `json:"id"` // uuid
	Tag            string    `json:"tag"`
	Fingerprint    string    `json:"fingerprint"`
	StoreName      string    `json:"storeName,omitempty"`
	Channel        string    `json:"channel,omitempty"`
	DateFrom       string    `json:"dateFrom,omitempty"`
	DateTo         string    `json:"dateTo,omitempty"`
	InputRows      int       `json:"inputRows"`
	OrderCount     int       `json:"orderCount"`
	ExcludedOrders int       `json:"excludedOrders"`
	FallbackOrders int       `json:"fallbackOrders"`
	Warnings       int       `json:"warnings"`
	Revenue        float64   `json:"revenue"`
	Profit         float64   `json:"profit"`
	CreatedAt      time.Time `json:"createdAt"`
}
