package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/leadstream/amocrm-sheets-sync/internal/entity"
)

// fakeValuesAPI is an in-memory spreadsheet: a header row plus data rows.
type fakeValuesAPI struct {
	rows        [][]interface{}
	getErr      error
	appendCalls int
	updateCalls int
	lastUpdate  string
}

func (f *fakeValuesAPI) Get(_ context.Context, _, readRange string) ([][]interface{}, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if strings.HasSuffix(readRange, "!A1:H1") {
		if len(f.rows) == 0 {
			return nil, nil
		}
		return [][]interface{}{f.rows[0]}, nil
	}
	return f.rows, nil
}

func (f *fakeValuesAPI) Append(_ context.Context, _, _ string, values [][]interface{}) error {
	f.appendCalls++
	f.rows = append(f.rows, values...)
	return nil
}

func (f *fakeValuesAPI) Update(_ context.Context, _, writeRange string, values [][]interface{}) error {
	f.updateCalls++
	f.lastUpdate = writeRange
	var from, to int
	if _, err := fmt.Sscanf(writeRange[strings.Index(writeRange, "!")+1:], "A%d:H%d", &from, &to); err != nil {
		return err
	}
	for len(f.rows) < from {
		f.rows = append(f.rows, nil)
	}
	f.rows[from-1] = values[0]
	return nil
}

func headerRow() []interface{} {
	row := make([]interface{}, len(entity.SheetHeaders))
	for i, h := range entity.SheetHeaders {
		row[i] = h
	}
	return row
}

func newTestRepo(api *fakeValuesAPI) *LeadRepository {
	return NewLeadRepository(api, "sheet-id", "Лист1!A:H", zap.NewNop())
}

func sampleRecord(leadID string, budget float64) *entity.LeadRecord {
	return &entity.LeadRecord{
		LeadID:          leadID,
		CreatedDate:     "14.11.2023",
		ContactPhone:    "+71234567890",
		ContactName:     "Иван",
		ResponsibleName: "Ольга",
		ResponsibleID:   "7",
		Budget:          budget,
		Status:          "Новая заявка",
		EventType:       entity.EventCreated,
	}
}

func TestEnsureHeadersCreatesWhenMissing(t *testing.T) {
	api := &fakeValuesAPI{}
	repo := newTestRepo(api)

	err := repo.EnsureHeaders(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, api.updateCalls)
	assert.Equal(t, entity.SheetHeaders[0], api.rows[0][0])
}

func TestEnsureHeadersKeepsExisting(t *testing.T) {
	api := &fakeValuesAPI{rows: [][]interface{}{headerRow()}}
	repo := newTestRepo(api)

	err := repo.EnsureHeaders(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, api.updateCalls)
}

func TestEnsureHeadersRewritesMismatch(t *testing.T) {
	api := &fakeValuesAPI{rows: [][]interface{}{{"Wrong", "Header"}}}
	repo := newTestRepo(api)

	err := repo.EnsureHeaders(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, api.updateCalls)
	assert.Equal(t, entity.SheetHeaders[0], api.rows[0][0])
}

func TestUpsertAppendsNewLead(t *testing.T) {
	api := &fakeValuesAPI{rows: [][]interface{}{headerRow()}}
	repo := newTestRepo(api)
	rec := sampleRecord("100", 5000)

	err := repo.Upsert(context.Background(), rec)
	assert.NoError(t, err)
	assert.Len(t, api.rows, 2)
	assert.Equal(t, rec.Row(), api.rows[1])
	assert.Equal(t, 1, api.appendCalls)
}

func TestUpsertIsIdempotent(t *testing.T) {
	api := &fakeValuesAPI{rows: [][]interface{}{headerRow()}}
	repo := newTestRepo(api)
	rec := sampleRecord("100", 5000)

	assert.NoError(t, repo.Upsert(context.Background(), rec))
	assert.NoError(t, repo.Upsert(context.Background(), rec))

	assert.Len(t, api.rows, 2)
	assert.Equal(t, rec.Row(), api.rows[1])
}

func TestUpsertOverwritesExistingRow(t *testing.T) {
	api := &fakeValuesAPI{rows: [][]interface{}{headerRow()}}
	repo := newTestRepo(api)

	assert.NoError(t, repo.Upsert(context.Background(), sampleRecord("100", 5000)))
	updated := sampleRecord("100", 9000)
	updated.Status = "Успешно реализовано"
	assert.NoError(t, repo.Upsert(context.Background(), updated))

	assert.Len(t, api.rows, 2)
	assert.Equal(t, updated.Row(), api.rows[1])
	assert.Equal(t, "Лист1!A2:H2", api.lastUpdate)
}

func TestUpsertMatchesTrimmedLeadID(t *testing.T) {
	api := &fakeValuesAPI{rows: [][]interface{}{
		headerRow(),
		{" 100 ", "14.11.2023", "x", "x", "x", "7", 5000, "x"},
	}}
	repo := newTestRepo(api)

	assert.NoError(t, repo.Upsert(context.Background(), sampleRecord("100", 7000)))
	assert.Len(t, api.rows, 2)
	assert.Equal(t, 0, api.appendCalls)
}

func TestAppendSkipsDuplicate(t *testing.T) {
	api := &fakeValuesAPI{rows: [][]interface{}{headerRow()}}
	repo := newTestRepo(api)
	rec := sampleRecord("100", 5000)

	assert.NoError(t, repo.Append(context.Background(), rec))
	assert.NoError(t, repo.Append(context.Background(), rec))

	assert.Len(t, api.rows, 2)
	assert.Equal(t, 1, api.appendCalls)
}

func TestFindByLeadID(t *testing.T) {
	api := &fakeValuesAPI{rows: [][]interface{}{
		headerRow(),
		{"100", "14.11.2023", "+71234567890", "Иван", "Ольга", "7", "5000", "Новая заявка"},
	}}
	repo := newTestRepo(api)

	rec, err := repo.FindByLeadID(context.Background(), "100")
	assert.NoError(t, err)
	assert.NotNil(t, rec)
	assert.Equal(t, "100", rec.LeadID)
	assert.Equal(t, float64(5000), rec.Budget)
	assert.Equal(t, "Ольга", rec.ResponsibleName)
}

func TestFindByLeadIDNotFound(t *testing.T) {
	api := &fakeValuesAPI{rows: [][]interface{}{headerRow()}}
	repo := newTestRepo(api)

	rec, err := repo.FindByLeadID(context.Background(), "404")
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestFindByLeadIDIncompleteRow(t *testing.T) {
	api := &fakeValuesAPI{rows: [][]interface{}{
		headerRow(),
		{"100", "14.11.2023"},
	}}
	repo := newTestRepo(api)

	rec, err := repo.FindByLeadID(context.Background(), "100")
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestOperationsFailWithoutSpreadsheetID(t *testing.T) {
	repo := NewLeadRepository(&fakeValuesAPI{}, "", "Лист1!A:H", zap.NewNop())
	ctx := context.Background()

	assert.ErrorIs(t, repo.EnsureHeaders(ctx), ErrNotConfigured)
	assert.ErrorIs(t, repo.Append(ctx, sampleRecord("1", 0)), ErrNotConfigured)
	assert.ErrorIs(t, repo.Upsert(ctx, sampleRecord("1", 0)), ErrNotConfigured)
	_, err := repo.FindByLeadID(ctx, "1")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestUpsertPropagatesReadError(t *testing.T) {
	api := &fakeValuesAPI{getErr: errors.New("quota exceeded")}
	repo := newTestRepo(api)

	err := repo.Upsert(context.Background(), sampleRecord("100", 5000))
	assert.Error(t, err)
}
