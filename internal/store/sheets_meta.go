package store

import (
	"encoding/json"
	"fmt"

	"o2oprofit/internal/model"
)

// InsertSheetMeta 写入 Sheet 元信息（列映射与跳过原因）
func (s *Store) InsertSheetMeta(meta model.SheetMeta) error {
	_, err := s.db.Exec(`
		INSERT INTO sheets_meta (
			import_log_id, sheet_name, sheet_type, channel, confidence,
			total_rows, imported_rows,
			columns_json, column_mapping_json,
			status, error_message, source_file
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		meta.ImportLogID, meta.SheetName, meta.SheetType, meta.Channel, meta.Confidence,
		meta.TotalRows, meta.ImportedRows,
		meta.ColumnsJSON, meta.ColumnMappingJSON,
		meta.Status, meta.ErrorMessage, meta.SourceFile,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sheets_meta: %w", err)
	}
	return nil
}

// ListSheetMeta 某次导入的 Sheet 元信息
func (s *Store) ListSheetMeta(importID int64) ([]model.SheetMeta, error) {
	rows, err := s.db.Query(`
		SELECT import_log_id, sheet_name, sheet_type, channel, confidence, total_rows, imported_rows,
			columns_json, column_mapping_json, status, error_message, source_file
		FROM sheets_meta WHERE import_log_id = ? ORDER BY id
	`, importID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sheets_meta: %w", err)
	}
	defer rows.Close()

	var out []model.SheetMeta
	for rows.Next() {
		var m model.SheetMeta
		if err := rows.Scan(
			&m.ImportLogID, &m.SheetName, &m.SheetType, &m.Channel, &m.Confidence, &m.TotalRows, &m.ImportedRows,
			&m.ColumnsJSON, &m.ColumnMappingJSON, &m.Status, &m.ErrorMessage, &m.SourceFile,
		); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// BuildColumnsJSON 将列名或列映射序列化为 JSON
func BuildColumnsJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
