package store

import (
	"database/sql"
	"fmt"

	"o2oprofit/internal/model"
)

// CreateImportLog 创建导入日志，返回 import_log_id
func (s *Store) CreateImportLog(filename, filePath string, fileSize int64, fileHash string) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO import_logs (filename, file_path, file_size, file_hash, status)
		VALUES (?, ?, ?, ?, 'processing')
	`, filename, filePath, fileSize, fileHash)
	if err != nil {
		return 0, fmt.Errorf("failed to create import log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get import log id: %w", err)
	}
	return id, nil
}

// ImportLogUpdate 导入完成后的统计
type ImportLogUpdate struct {
	TotalSheets    int
	ImportedSheets int
	SkippedSheets  int
	TotalRows      int
	ImportedRows   int
	ErrorRows      int
	Status         string
	ErrorMessage   string
}

// UpdateImportLog 完成导入日志更新
func (s *Store) UpdateImportLog(id int64, u ImportLogUpdate) error {
	_, err := s.db.Exec(`
		UPDATE import_logs SET
			total_sheets = ?,
			imported_sheets = ?,
			skipped_sheets = ?,
			total_rows = ?,
			imported_rows = ?,
			error_rows = ?,
			status = ?,
			error_message = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, u.TotalSheets, u.ImportedSheets, u.SkippedSheets, u.TotalRows, u.ImportedRows, u.ErrorRows, u.Status, u.ErrorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to update import log: %w", err)
	}
	return nil
}

const importLogColumns = `id, filename, file_path, file_size, file_hash, total_sheets, imported_sheets,
	skipped_sheets, total_rows, imported_rows, error_rows, status, error_message, created_at, completed_at`

// ListImportLogs 最近的导入记录
func (s *Store) ListImportLogs(limit int) ([]*model.ImportLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query("SELECT "+importLogColumns+" FROM import_logs ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list import logs: %w", err)
	}
	defer rows.Close()

	logs := []*model.ImportLog{}
	for rows.Next() {
		l, err := scanImportLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// FindImportLogByHash 查找同一文件已成功导入的记录，未找到返回 nil
func (s *Store) FindImportLogByHash(hash string) (*model.ImportLog, error) {
	row := s.db.QueryRow("SELECT "+importLogColumns+
		" FROM import_logs WHERE file_hash = ? AND status IN ('success', 'partial') ORDER BY id DESC LIMIT 1", hash)
	l, err := scanImportLog(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return l, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanImportLog(r rowScanner) (*model.ImportLog, error) {
	l := &model.ImportLog{}
	var completed sql.NullTime
	err := r.Scan(
		&l.ID, &l.Filename, &l.FilePath, &l.FileSize, &l.FileHash,
		&l.TotalSheets, &l.ImportedSheets, &l.SkippedSheets,
		&l.TotalRows, &l.ImportedRows, &l.ErrorRows,
		&l.Status, &l.ErrorMessage, &l.CreatedAt, &completed,
	)
	if err != nil {
		return nil, err
	}
	if completed.Valid {
		t := completed.Time
		l.CompletedAt = &t
	}
	return l, nil
}
