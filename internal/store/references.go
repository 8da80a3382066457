package store

import (
	"database/sql"
	"fmt"

	"o2oprofit/internal/calculator"
	"o2oprofit/internal/model"
)

// ReplaceReferenceTotals 整体替换核对基准
func (s *Store) ReplaceReferenceTotals(refs []calculator.ReferenceTotal) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM reference_totals"); err != nil {
		return fmt.Errorf("failed to clear reference totals: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO reference_totals (group_by, group_key, order_count, revenue, profit)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(group_by, group_key) DO UPDATE SET
			order_count = excluded.order_count,
			revenue = excluded.revenue,
			profit = excluded.profit
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range refs {
		if _, err := stmt.Exec(string(r.GroupBy), r.Key, r.OrderCount, r.Revenue, r.Profit); err != nil {
			return fmt.Errorf("failed to insert reference %s/%s: %w", r.GroupBy, r.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListReferenceTotals 全部核对基准
func (s *Store) ListReferenceTotals() ([]calculator.ReferenceTotal, error) {
	rows, err := s.db.Query(`
		SELECT group_by, group_key, order_count, revenue, profit
		FROM reference_totals ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reference totals: %w", err)
	}
	defer rows.Close()

	refs := []calculator.ReferenceTotal{}
	for rows.Next() {
		var (
			groupBy string
			ref     calculator.ReferenceTotal
			count   sql.NullInt64
			revenue sql.NullFloat64
			profit  sql.NullFloat64
		)
		if err := rows.Scan(&groupBy, &ref.Key, &count, &revenue, &profit); err != nil {
			return nil, err
		}
		ref.GroupBy = model.GroupBy(groupBy)
		if count.Valid {
			v := int(count.Int64)
			ref.OrderCount = &v
		}
		if revenue.Valid {
			v := revenue.Float64
			ref.Revenue = &v
		}
		if profit.Valid {
			v := profit.Float64
			ref.Profit = &v
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}
