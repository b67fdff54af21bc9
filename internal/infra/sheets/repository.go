package sheets

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/leadstream/amocrm-sheets-sync/internal/entity"
)

// ErrNotConfigured is returned when no spreadsheet id is configured;
// the operation that hit it fails, the process keeps running.
var ErrNotConfigured = errors.New("GOOGLE_SPREADSHEET_ID not configured")

// LeadRepository stores lead records in one sheet, keyed by the trimmed
// value of the first column. The sheet has no native unique keys, so
// every lookup is a linear scan over the data rows.
type LeadRepository struct {
	api           ValuesAPI
	spreadsheetID string
	readRange     string
	sheetName     string
	logger        *zap.Logger
}

func NewLeadRepository(api ValuesAPI, spreadsheetID, readRange string, logger *zap.Logger) *LeadRepository {
	sheetName := "Лист1"
	if i := strings.Index(readRange, "!"); i > 0 {
		sheetName = readRange[:i]
	}
	return &LeadRepository{
		api:           api,
		spreadsheetID: spreadsheetID,
		readRange:     readRange,
		sheetName:     sheetName,
		logger:        logger,
	}
}

func (r *LeadRepository) EnsureHeaders(ctx context.Context) error {
	if r.spreadsheetID == "" {
		return ErrNotConfigured
	}

	headerRange := fmt.Sprintf("%s!A1:H1", r.sheetName)
	rows, err := r.api.Get(ctx, r.spreadsheetID, headerRange)
	if err != nil {
		return fmt.Errorf("ensure headers: %w", err)
	}

	if len(rows) > 0 && len(rows[0]) > 0 && cellString(rows[0][0]) == entity.SheetHeaders[0] {
		return nil
	}

	header := make([]interface{}, len(entity.SheetHeaders))
	for i, h := range entity.SheetHeaders {
		header[i] = h
	}
	if err := r.api.Update(ctx, r.spreadsheetID, headerRange, [][]interface{}{header}); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}

	r.logger.Info("lead sheet headers created", zap.String("spreadsheet_id", r.spreadsheetID))
	return nil
}

func (r *LeadRepository) Append(ctx context.Context, record *entity.LeadRecord) error {
	if r.spreadsheetID == "" {
		return ErrNotConfigured
	}
	if err := r.EnsureHeaders(ctx); err != nil {
		return err
	}

	// Re-check for a duplicate right before writing; the upsert path may
	// have scanned a stale snapshot.
	rows, err := r.api.Get(ctx, r.spreadsheetID, r.readRange)
	if err != nil {
		return err
	}
	if idx := findDataRow(rows, record.LeadID); idx >= 0 {
		r.logger.Warn("lead already present, skipping duplicate append",
			zap.String("lead_id", record.LeadID),
			zap.Int("row", idx+2))
		return nil
	}

	if err := r.api.Append(ctx, r.spreadsheetID, r.readRange, [][]interface{}{record.Row()}); err != nil {
		return err
	}

	r.logger.Info("lead appended to sheet",
		zap.String("lead_id", record.LeadID),
		zap.String("event_type", string(record.EventType)))
	return nil
}

func (r *LeadRepository) Upsert(ctx context.Context, record *entity.LeadRecord) error {
	if r.spreadsheetID == "" {
		return ErrNotConfigured
	}
	if err := r.EnsureHeaders(ctx); err != nil {
		return err
	}

	rows, err := r.api.Get(ctx, r.spreadsheetID, r.readRange)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return r.Append(ctx, record)
	}

	idx := findDataRow(rows, record.LeadID)
	if idx < 0 {
		return r.Append(ctx, record)
	}

	rowNumber := idx + 2 // data rows start below the header
	updateRange := fmt.Sprintf("%s!A%d:H%d", r.sheetName, rowNumber, rowNumber)
	if err := r.api.Update(ctx, r.spreadsheetID, updateRange, [][]interface{}{record.Row()}); err != nil {
		return err
	}

	r.logger.Info("lead row overwritten in sheet",
		zap.String("lead_id", record.LeadID),
		zap.Int("row", rowNumber))
	return nil
}

func (r *LeadRepository) FindByLeadID(ctx context.Context, leadID string) (*entity.LeadRecord, error) {
	if r.spreadsheetID == "" {
		return nil, ErrNotConfigured
	}

	rows, err := r.api.Get(ctx, r.spreadsheetID, r.readRange)
	if err != nil {
		return nil, err
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	idx := findDataRow(rows, leadID)
	if idx < 0 {
		return nil, nil
	}

	row := rows[idx+1]
	if len(row) < len(entity.SheetHeaders) {
		r.logger.Warn("lead row is incomplete", zap.String("lead_id", leadID), zap.Int("columns", len(row)))
		return nil, nil
	}

	budget, _ := strconv.ParseFloat(cellString(row[6]), 64)
	return &entity.LeadRecord{
		LeadID:          cellString(row[0]),
		CreatedDate:     cellString(row[1]),
		ContactPhone:    cellString(row[2]),
		ContactName:     cellString(row[3]),
		ResponsibleName: cellString(row[4]),
		ResponsibleID:   cellString(row[5]),
		Budget:          budget,
		Status:          cellString(row[7]),
		EventType:       entity.EventUpdated,
	}, nil
}

// findDataRow returns the index of the matching row among the data rows
// (excluding the header), or -1.
func findDataRow(rows [][]interface{}, leadID string) int {
	want := strings.TrimSpace(leadID)
	if want == "" || len(rows) <= 1 {
		return -1
	}
	for i, row := range rows[1:] {
		if len(row) > 0 && strings.TrimSpace(cellString(row[0])) == want {
			return i
		}
	}
	return -1
}

func cellString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
