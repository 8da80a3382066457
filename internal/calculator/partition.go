package calculator

import (
	"hash/fnv"

	"golang.org/x/sync/errgroup"

	"o2oprofit/internal/model"
)

// partitionOf 订单号哈希分区，同一订单的全部明细行落在同一分区
func partitionOf(orderID string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(orderID))
	return int(h.Sum32() % uint32(n))
}

// AggregateParallel 按订单号分区并行聚合，输出与 Aggregate 完全一致
func (a *Aggregator) AggregateParallel(rows []*model.OrderLine, workers int) AggregateResult {
	if workers <= 1 || len(rows) < workers {
		return a.Aggregate(rows)
	}

	buckets := make([][]indexedRow, workers)
	for i, row := range rows {
		p := partitionOf(row.OrderID, workers)
		buckets[p] = append(buckets[p], indexedRow{idx: i, line: row})
	}

	parts := make([]*partialResult, workers)
	var g errgroup.Group
	for i := range buckets {
		i := i
		g.Go(func() error {
			parts[i] = a.aggregatePartition(buckets[i])
			return nil
		})
	}
	_ = g.Wait()

	return mergePartials(parts)
}
