package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ShayCichocki/taskgenie/pkg/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ResultStore persists processing results keyed by execution id.
type ResultStore struct {
	db *DB
}

// NewResultStore creates a ResultStore on db. The core migrations must have
// been applied.
func NewResultStore(db *DB) *ResultStore {
	return &ResultStore{db: db}
}

// SaveResult inserts or replaces the record for r.ExecutionID.
func (s *ResultStore) SaveResult(ctx context.Context, r models.ResultRecord) error {
	if r.ExecutionID == "" {
		return errors.New("save result: execution id is required")
	}

	workItem, err := json.Marshal(r.WorkItem)
	if err != nil {
		return fmt.Errorf("encode work item: %w", err)
	}
	ids, err := json.Marshal(r.WorkItemIDs)
	if err != nil {
		return fmt.Errorf("encode work item ids: %w", err)
	}
	items, err := json.Marshal(r.WorkItems)
	if err != nil {
		return fmt.Errorf("encode work items: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT OR REPLACE INTO results (
			execution_id, execution_result, timestamp, work_item_id, work_item_status,
			work_item_comment, work_item, work_items_count, work_item_ids, work_items,
			changed_by, area_path, iteration_path, business_unit, system
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ExecutionID, string(r.ExecutionResult), FormatTime(r.Timestamp), r.WorkItemID, r.WorkItemStatus,
		r.WorkItemComment, string(workItem), r.WorkItemsCount, string(ids), string(items),
		r.ChangedBy, r.AreaPath, r.IterationPath, r.BusinessUnit, r.System)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

const resultColumns = `
	execution_id, execution_result, timestamp, work_item_id, work_item_status,
	work_item_comment, work_item, work_items_count, work_item_ids, work_items,
	changed_by, area_path, iteration_path, business_unit, system`

// GetResult returns the record for an execution id, or ErrNotFound.
func (s *ResultStore) GetResult(ctx context.Context, executionID string) (*models.ResultRecord, error) {
	row := s.db.QueryRow(ctx, `SELECT `+resultColumns+` FROM results WHERE execution_id = ?`, executionID)
	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	return r, nil
}

// ListResults returns the most recent records, newest first.
func (s *ResultStore) ListResults(ctx context.Context, limit int) ([]models.ResultRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx, `SELECT `+resultColumns+` FROM results ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []models.ResultRecord
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResult(row scanner) (*models.ResultRecord, error) {
	var (
		r                     models.ResultRecord
		result, ts, workItem  string
		comment, ids, items   sql.NullString
		changedBy, area, iter sql.NullString
		businessUnit, system  sql.NullString
	)
	err := row.Scan(&r.ExecutionID, &result, &ts, &r.WorkItemID, &r.WorkItemStatus,
		&comment, &workItem, &r.WorkItemsCount, &ids, &items,
		&changedBy, &area, &iter, &businessUnit, &system)
	if err != nil {
		return nil, err
	}

	r.ExecutionResult = models.ExecutionResult(result)
	if r.Timestamp, err = ParseTime(ts); err != nil {
		return nil, fmt.Errorf("parse timestamp: %w", err)
	}
	r.WorkItemComment = comment.String
	r.ChangedBy = changedBy.String
	r.AreaPath = area.String
	r.IterationPath = iter.String
	r.BusinessUnit = businessUnit.String
	r.System = system.String

	if err := json.Unmarshal([]byte(workItem), &r.WorkItem); err != nil {
		return nil, fmt.Errorf("decode work item: %w", err)
	}
	if ids.Valid && ids.String != "" {
		if err := json.Unmarshal([]byte(ids.String), &r.WorkItemIDs); err != nil {
			return nil, fmt.Errorf("decode work item ids: %w", err)
		}
	}
	if items.Valid && items.String != "" {
		if err := json.Unmarshal([]byte(items.String), &r.WorkItems); err != nil {
			return nil, fmt.Errorf("decode work items: %w", err)
		}
	}
	return &r, nil
}
