package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"o2oprofit/internal/model"
)

// OrderLineQuery 订单明细查询条件；空值表示不限
type OrderLineQuery struct {
	StoreName string
	Channel   string
	DateFrom  string // 含，2006-01-02
	DateTo    string // 含，2006-01-02
	ImportID  int64
	Limit     int
	Offset    int
}

func (q OrderLineQuery) where() (string, []interface{}) {
	clause := " WHERE 1=1"
	args := []interface{}{}

	if q.StoreName != "" {
		clause += " AND store_name = ?"
		args = append(args, q.StoreName)
	}
	if q.Channel != "" {
		clause += " AND channel = ?"
		args = append(args, q.Channel)
	}
	if q.DateFrom != "" {
		clause += " AND order_date >= ?"
		args = append(args, q.DateFrom)
	}
	if q.DateTo != "" {
		clause += " AND order_date <= ?"
		args = append(args, q.DateTo)
	}
	if q.ImportID > 0 {
		clause += " AND import_log_id = ?"
		args = append(args, q.ImportID)
	}
	return clause, args
}

// BatchInsertOrderLines 批量写入订单明细
func (s *Store) BatchInsertOrderLines(importID int64, lines []*model.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertOrderLines(tx, importID, lines); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// InsertOrderLinesTx 在调用方事务中写入订单明细
func (s *Store) InsertOrderLinesTx(tx *sql.Tx, importID int64, lines []*model.OrderLine) error {
	return insertOrderLines(tx, importID, lines)
}

func insertOrderLines(tx *sql.Tx, importID int64, lines []*model.OrderLine) error {
	stmt, err := tx.Prepare(`
		INSERT INTO order_lines (
			import_log_id, order_id, channel, store_name, order_date,
			category, product_name, values_json, row_no, source_sheet
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, l := range lines {
		values, err := json.Marshal(l.Values)
		if err != nil {
			return fmt.Errorf("failed to encode values of order %s: %w", l.OrderID, err)
		}
		if _, err := stmt.Exec(
			importID, l.OrderID, l.Channel, l.StoreName, l.OrderDate,
			l.Category, l.ProductName, string(values), l.RowNo, l.SourceSheet,
		); err != nil {
			return fmt.Errorf("failed to insert order line: %w", err)
		}
	}
	return nil
}

// QueryOrderLines 按导入顺序查询订单明细
func (s *Store) QueryOrderLines(q OrderLineQuery) ([]*model.OrderLine, error) {
	where, args := q.where()
	query := `SELECT order_id, channel, store_name, order_date, category, product_name,
		values_json, row_no, source_sheet FROM order_lines` + where + " ORDER BY id"

	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
		if q.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, q.Offset)
		}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	var lines []*model.OrderLine
	for rows.Next() {
		l := &model.OrderLine{}
		var values string
		if err := rows.Scan(
			&l.OrderID, &l.Channel, &l.StoreName, &l.OrderDate, &l.Category, &l.ProductName,
			&values, &l.RowNo, &l.SourceSheet,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		if err := json.Unmarshal([]byte(values), &l.Values); err != nil {
			return nil, fmt.Errorf("failed to decode values of order %s: %w", l.OrderID, err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// CountOrderLines 统计订单明细行数
func (s *Store) CountOrderLines(q OrderLineQuery) (int, error) {
	where, args := q.where()
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM order_lines"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	return count, nil
}

// ListStores 已导入的门店
func (s *Store) ListStores() ([]string, error) {
	return s.distinct("store_name")
}

// ListChannels 已导入的渠道
func (s *Store) ListChannels() ([]string, error) {
	return s.distinct("channel")
}

func (s *Store) distinct(column string) ([]string, error) {
	rows, err := s.db.Query(fmt.Sprintf(
		"SELECT DISTINCT %s FROM order_lines WHERE %s <> '' ORDER BY %s", column, column, column))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", column, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// DeleteImport 删除一次导入的全部明细与元信息
func (s *Store) DeleteImport(importID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteImport(tx, importID); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteImportTx 在调用方事务内删除一次导入（重新导入时与新批次同一事务提交）
func (s *Store) DeleteImportTx(tx *sql.Tx, importID int64) error {
	return deleteImport(tx, importID)
}

func deleteImport(tx *sql.Tx, importID int64) error {
	for _, stmt := range []string{
		"DELETE FROM order_lines WHERE import_log_id = ?",
		"DELETE FROM sheets_meta WHERE import_log_id = ?",
		"DELETE FROM import_logs WHERE id = ?",
	} {
		if _, err := tx.Exec(stmt, importID); err != nil {
			return fmt.Errorf("failed to delete import %d: %w", importID, err)
		}
	}
	return nil
}
