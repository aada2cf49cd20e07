package service

import (
	"context"
	"sort"
	"time"

	"github.com/pspdems/dems-backend/internal/dems/repository"
	"github.com/pspdems/dems-backend/pkg/actor"
	"github.com/pspdems/dems-backend/pkg/logger"
	"github.com/pspdems/dems-backend/pkg/timeutil"
)

const reportDateFormat = "02-01-2006"

// MedicineLister serves the medicine master list.
type MedicineLister interface {
	List(ctx context.Context) ([]*repository.MedicineItem, error)
}

// IndentRegisterReader is the indent surface the register report needs.
type IndentRegisterReader interface {
	ListBetween(ctx context.Context, filter repository.IndentFilter, from, to time.Time) ([]*repository.IndentHeader, error)
	ItemTotals(ctx context.Context, indentID int64) (*repository.IndentTotals, error)
}

// ReportInfo is the header block printed on every tabular report.
type ReportInfo struct {
	PlantCode   string `json:"plant_code"`
	PlantName   string `json:"plant_name"`
	FromDate    string `json:"from_date,omitempty"`
	ToDate      string `json:"to_date,omitempty"`
	GeneratedBy string `json:"generated_by"`
	GeneratedAt string `json:"generated_at"`
}

// StockRegisterRow is one medicine in the stock register. Medicines with no
// batches at all appear with zero stock; they are not omitted.
type StockRegisterRow struct {
	MedicineName    string `json:"medicine_name"`
	StoreStock      int    `json:"store_stock"`
	CompounderStock int    `json:"compounder_stock"`
	TotalStock      int    `json:"total_stock"`
	ReorderLevel    int    `json:"reorder_level"`
	Status          string `json:"status"`
}

// StockRegisterReport bundles the register rows with the report header
type StockRegisterReport struct {
	Info ReportInfo         `json:"info"`
	Rows []StockRegisterRow `json:"rows"`
}

// IndentRegisterRow is one indent in the indent register
type IndentRegisterRow struct {
	IndentID      int64  `json:"indent_id"`
	IndentDate    string `json:"indent_date"`
	CreatedBy     string `json:"created_by"`
	Status        string `json:"status"`
	ItemCount     int    `json:"item_count"`
	RaisedTotal   int    `json:"raised_total"`
	ReceivedTotal int    `json:"received_total"`
}

// IndentRegisterReport bundles the register rows with period totals
type IndentRegisterReport struct {
	Info          ReportInfo          `json:"info"`
	Rows          []IndentRegisterRow `json:"rows"`
	TotalRaised   int                 `json:"total_raised"`
	TotalReceived int                 `json:"total_received"`
}

// ReportService builds the tabular registers. Both reports honor the same
// visibility scope as the dashboards.
type ReportService struct {
	indents   IndentRegisterReader
	inventory StockReader
	medicines MedicineLister
	plants    PlantLookup
	resolver  *VisibilityResolver
	fallback  int
	logger    *logger.Logger
}

// NewReportService creates a new report service
func NewReportService(
	indents IndentRegisterReader,
	inventory StockReader,
	medicines MedicineLister,
	plants PlantLookup,
	resolver *VisibilityResolver,
	fallback int,
	log *logger.Logger,
) *ReportService {
	return &ReportService{
		indents:   indents,
		inventory: inventory,
		medicines: medicines,
		plants:    plants,
		resolver:  resolver,
		fallback:  fallback,
		logger:    log,
	}
}

// StockRegister builds the stock register: every medicine in the master list
// with its current store and compounder totals. Cross-plant scopes sum stock
// across plants.
func (s *ReportService) StockRegister(ctx context.Context, a *actor.Actor) (*StockRegisterReport, error) {
	vis := s.resolve(ctx, a)

	medicines, err := s.medicines.List(ctx)
	if err != nil {
		return nil, err
	}

	type scoped struct{ store, compounder int }
	totals := make(map[int64]scoped, len(medicines))
	levels := make(map[int64]*int, len(medicines))

	for _, scope := range repository.AllScopes {
		rows, err := s.inventory.StockTotals(ctx, scope, vis.BatchFilter())
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			t := totals[row.MedItemID]
			if scope == repository.ScopeStore {
				t.store += row.TotalAvailable
			} else {
				t.compounder += row.TotalAvailable
			}
			totals[row.MedItemID] = t
			if row.ReorderLevel != nil {
				levels[row.MedItemID] = row.ReorderLevel
			}
		}
	}

	rows := make([]StockRegisterRow, 0, len(medicines))
	for _, med := range medicines {
		t := totals[med.ID]
		level := s.fallback
		if med.ReorderLevel != nil && *med.ReorderLevel > 0 {
			level = *med.ReorderLevel
		} else if l, ok := levels[med.ID]; ok && l != nil && *l > 0 {
			level = *l
		}
		total := t.store + t.compounder
		rows = append(rows, StockRegisterRow{
			MedicineName:    med.Name,
			StoreStock:      t.store,
			CompounderStock: t.compounder,
			TotalStock:      total,
			ReorderLevel:    level,
			Status:          classifyStock(total, level),
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].MedicineName < rows[j].MedicineName })

	return &StockRegisterReport{Info: s.info(ctx, a, vis, time.Time{}, time.Time{}), Rows: rows}, nil
}

// IndentRegister builds the indent register for [from, to]. A zero range
// defaults to the current calendar month.
func (s *ReportService) IndentRegister(ctx context.Context, a *actor.Actor, from, to time.Time) (*IndentRegisterReport, error) {
	vis := s.resolve(ctx, a)
	from, to = normalizeRange(from, to)

	headers, err := s.indents.ListBetween(ctx, vis.IndentFilter(), from, to)
	if err != nil {
		return nil, err
	}

	report := &IndentRegisterReport{
		Info: s.info(ctx, a, vis, from, to),
		Rows: make([]IndentRegisterRow, 0, len(headers)),
	}
	for _, h := range headers {
		t, err := s.indents.ItemTotals(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		report.Rows = append(report.Rows, IndentRegisterRow{
			IndentID:      h.ID,
			IndentDate:    h.IndentDate.Format(reportDateFormat),
			CreatedBy:     h.CreatedBy,
			Status:        h.Status,
			ItemCount:     t.ItemCount,
			RaisedTotal:   t.RaisedTotal,
			ReceivedTotal: t.ReceivedTotal,
		})
		report.TotalRaised += t.RaisedTotal
		report.TotalReceived += t.ReceivedTotal
	}
	return report, nil
}

func (s *ReportService) resolve(ctx context.Context, a *actor.Actor) Visibility {
	if a.IsAdmin() {
		return OpenVisibility()
	}
	return s.resolver.Resolve(ctx, a)
}

func (s *ReportService) info(ctx context.Context, a *actor.Actor, vis Visibility, from, to time.Time) ReportInfo {
	info := ReportInfo{
		PlantCode:   "ALL",
		PlantName:   "All Plants",
		GeneratedBy: a.Key(),
		GeneratedAt: timeutil.ToIST(time.Now()).Format("02-01-2006 15:04:05"),
	}
	if vis.PlantID != nil {
		if plant, err := s.plants.GetByID(ctx, *vis.PlantID); err == nil {
			info.PlantCode = plant.Code
			info.PlantName = plant.Name
		} else {
			s.logger.Warn().Err(err).Int64("plant_id", *vis.PlantID).Msg("plant lookup failed for report header")
		}
	}
	if !from.IsZero() {
		info.FromDate = from.Format(reportDateFormat)
	}
	if !to.IsZero() {
		info.ToDate = to.Format(reportDateFormat)
	}
	return info
}

// normalizeRange fills a zero range with the current calendar month and
// snaps both bounds to midnight.
func normalizeRange(from, to time.Time) (time.Time, time.Time) {
	now := time.Now()
	if from.IsZero() {
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	}
	if to.IsZero() {
		to = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, -1)
	}
	return timeutil.Midnight(from), timeutil.Midnight(to)
}
