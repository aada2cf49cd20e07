package service

import (
	"context"
	"sort"

	"github.com/pspdems/dems-backend/internal/dems/repository"
	"github.com/pspdems/dems-backend/pkg/logger"
)

// Stock status values
const (
	StockOut      = "OutOfStock"
	StockLow      = "LowStock"
	StockAdequate = "Adequate"
)

// StockReader runs the grouped per-scope stock query.
type StockReader interface {
	StockTotals(ctx context.Context, scope repository.Scope, filter repository.BatchFilter) ([]repository.StockRow, error)
}

// StockSnapshot is the derived per-(medicine, plant) aggregate. Field names
// are part of the endpoint contract.
type StockSnapshot struct {
	MedItemID      int64  `json:"MedItemId"`
	MedicineName   string `json:"MedicineName"`
	PlantID        int64  `json:"PlantId"`
	TotalAvailable int    `json:"TotalAvailable"`
	ReorderLevel   int    `json:"ReorderLevel"`
	Status         string `json:"Status"`
}

// StockAggregator computes stock snapshots across both inventory scopes.
// A medicine with no batches anywhere never appears: absence is not a zero
// row. Report callers that need "never stocked" cross-reference the medicine
// master explicitly.
type StockAggregator struct {
	inventory StockReader
	fallback  int
	logger    *logger.Logger
}

// NewStockAggregator creates a stock aggregator with the configured
// reorder-level fallback.
func NewStockAggregator(inventory StockReader, fallback int, log *logger.Logger) *StockAggregator {
	return &StockAggregator{inventory: inventory, fallback: fallback, logger: log}
}

type stockKey struct {
	medItemID int64
	plantID   int64
}

// Aggregate sums batch stock per (medicine, plant) across both scopes and
// classifies each group against its reorder threshold. fallback <= 0 uses
// the configured default. Results are ordered by ascending stock (ties by
// medicine name) and capped at top when top > 0.
func (s *StockAggregator) Aggregate(ctx context.Context, vis Visibility, fallback, top int) ([]StockSnapshot, error) {
	if fallback <= 0 {
		fallback = s.fallback
	}

	groups := make(map[stockKey]*StockSnapshot)
	for _, scope := range repository.AllScopes {
		rows, err := s.inventory.StockTotals(ctx, scope, vis.BatchFilter())
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			key := stockKey{medItemID: row.MedItemID, plantID: row.PlantID}
			snap, ok := groups[key]
			if !ok {
				level := fallback
				if row.ReorderLevel != nil {
					level = *row.ReorderLevel
				}
				snap = &StockSnapshot{
					MedItemID:    row.MedItemID,
					MedicineName: row.MedicineName,
					PlantID:      row.PlantID,
					ReorderLevel: level,
				}
				groups[key] = snap
			}
			snap.TotalAvailable += row.TotalAvailable
		}
	}

	result := make([]StockSnapshot, 0, len(groups))
	for _, snap := range groups {
		snap.Status = classifyStock(snap.TotalAvailable, snap.ReorderLevel)
		result = append(result, *snap)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TotalAvailable != result[j].TotalAvailable {
			return result[i].TotalAvailable < result[j].TotalAvailable
		}
		return result[i].MedicineName < result[j].MedicineName
	})

	if top > 0 && len(result) > top {
		result = result[:top]
	}
	return result, nil
}

// LowStock returns only the low-stock snapshots (stock above zero but at or
// below the threshold). Out-of-stock groups are excluded.
func (s *StockAggregator) LowStock(ctx context.Context, vis Visibility, fallback, top int) ([]StockSnapshot, error) {
	return s.filtered(ctx, vis, fallback, top, StockLow)
}

// OutOfStock returns only the out-of-stock snapshots.
func (s *StockAggregator) OutOfStock(ctx context.Context, vis Visibility, fallback, top int) ([]StockSnapshot, error) {
	return s.filtered(ctx, vis, fallback, top, StockOut)
}

func (s *StockAggregator) filtered(ctx context.Context, vis Visibility, fallback, top int, status string) ([]StockSnapshot, error) {
	all, err := s.Aggregate(ctx, vis, fallback, 0)
	if err != nil {
		return nil, err
	}
	result := make([]StockSnapshot, 0, len(all))
	for _, snap := range all {
		if snap.Status == status {
			result = append(result, snap)
		}
	}
	if top > 0 && len(result) > top {
		result = result[:top]
	}
	return result, nil
}

func classifyStock(total, threshold int) string {
	switch {
	case total <= 0:
		return StockOut
	case total <= threshold:
		return StockLow
	default:
		return StockAdequate
	}
}
