package store

import (
	"fmt"

	"github.com/google/uuid"

	"o2oprofit/internal/model"
)

// SaveCalcRun 写入计算运行记录；ID 为空时生成 uuid
func (s *Store) SaveCalcRun(run *model.CalcRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	_, err := s.db.Exec(`
		INSERT INTO calc_runs (
			id, tag, fingerprint, store_name, channel, date_from, date_to,
			input_rows, order_count, excluded_orders, fallback_orders, warnings,
			revenue, profit
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, run.Tag, run.Fingerprint, run.StoreName, run.Channel, run.DateFrom, run.DateTo,
		run.InputRows, run.OrderCount, run.ExcludedOrders, run.FallbackOrders, run.Warnings,
		run.Revenue, run.Profit,
	)
	if err != nil {
		return fmt.Errorf("failed to save calc run: %w", err)
	}
	return nil
}

// ListCalcRuns 最近的计算记录，按时间倒序
func (s *Store) ListCalcRuns(limit int) ([]*model.CalcRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, tag, fingerprint, store_name, channel, date_from, date_to,
			input_rows, order_count, excluded_orders, fallback_orders, warnings,
			revenue, profit, created_at
		FROM calc_runs ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list calc runs: %w", err)
	}
	defer rows.Close()

	runs := []*model.CalcRun{}
	for rows.Next() {
		r := &model.CalcRun{}
		if err := rows.Scan(
			&r.ID, &r.Tag, &r.Fingerprint, &r.StoreName, &r.Channel, &r.DateFrom, &r.DateTo,
			&r.InputRows, &r.OrderCount, &r.ExcludedOrders, &r.FallbackOrders, &r.Warnings,
			&r.Revenue, &r.Profit, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan calc run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
