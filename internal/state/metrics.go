package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ShayCichocki/taskgenie/internal/metrics"
)

// MetricStore is a metrics.Sink that records data in the metrics table.
type MetricStore struct {
	db *DB
}

// NewMetricStore creates a MetricStore on db.
func NewMetricStore(db *DB) *MetricStore {
	return &MetricStore{db: db}
}

// PutMetric implements metrics.Sink.
func (s *MetricStore) PutMetric(ctx context.Context, d metrics.Datum) error {
	dims, err := json.Marshal(d.Dimensions)
	if err != nil {
		return fmt.Errorf("encode dimensions: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO metrics (namespace, name, value, unit, dimensions, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, d.Namespace, d.Name, d.Value, d.Unit, string(dims), FormatTime(d.Timestamp))
	if err != nil {
		return fmt.Errorf("put metric %s: %w", d.Name, err)
	}
	return nil
}

// MetricTotal is the summed value of one metric name.
type MetricTotal struct {
	Name  string
	Total float64
}

// Totals returns the summed value per metric name, ordered by name.
func (s *MetricStore) Totals(ctx context.Context) ([]MetricTotal, error) {
	rows, err := s.db.Query(ctx, `SELECT name, SUM(value) FROM metrics GROUP BY name ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("metric totals: %w", err)
	}
	defer rows.Close()

	var out []MetricTotal
	for rows.Next() {
		var m MetricTotal
		if err := rows.Scan(&m.Name, &m.Total); err != nil {
			return nil, fmt.Errorf("scan metric total: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

var _ metrics.Sink = (*MetricStore)(nil)
