// Package metrics emits work item processing metrics. Emission is fire and
// forget: sink failures are logged and never returned to the caller.
package metrics

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ShayCichocki/taskgenie/pkg/models"
)

// Namespace is the metric namespace for every emitted datum.
const Namespace = "Azure DevOps"

// Metric names.
const (
	IncompleteWorkItems = "IncompleteWorkItems"
	// DimensionWorkItemType is the dimension carrying the work item type.
	DimensionWorkItemType = "WorkItemType"
)

// Datum is a single metric observation.
type Datum struct {
	Namespace  string
	Name       string
	Value      float64
	Unit       string
	Dimensions map[string]string
	Timestamp  time.Time
}

// Sink stores or forwards metric data.
type Sink interface {
	PutMetric(ctx context.Context, d Datum) error
}

// Emitter records processing metrics to a Sink.
type Emitter struct {
	sink   Sink
	logger *slog.Logger
	now    func() time.Time
}

// NewEmitter creates an Emitter. A nil sink logs metrics only.
func NewEmitter(sink Sink, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{sink: sink, logger: logger, now: time.Now}
}

// IncompleteWorkItem records a work item that failed evaluation.
func (e *Emitter) IncompleteWorkItem(ctx context.Context, t models.WorkItemType) {
	e.emit(ctx, IncompleteWorkItems, 1, t)
}

// WorkItemsGenerated records count generated children of type t.
func (e *Emitter) WorkItemsGenerated(ctx context.Context, count int, t models.WorkItemType) {
	e.emit(ctx, metricName(t, "Generated"), float64(count), t)
}

// WorkItemUpdated records that a work item of type t was decomposed.
func (e *Emitter) WorkItemUpdated(ctx context.Context, t models.WorkItemType) {
	e.emit(ctx, metricName(t, "Updated"), 1, t)
}

func (e *Emitter) emit(ctx context.Context, name string, value float64, t models.WorkItemType) {
	d := Datum{
		Namespace:  Namespace,
		Name:       name,
		Value:      value,
		Unit:       "Count",
		Dimensions: map[string]string{DimensionWorkItemType: string(t)},
		Timestamp:  e.now(),
	}
	e.logger.Debug("emitting metric", "name", d.Name, "value", d.Value, "work_item_type", string(t))

	if e.sink == nil {
		return
	}
	if err := e.sink.PutMetric(ctx, d); err != nil {
		e.logger.Warn("failed to emit metric", "name", d.Name, "error", err)
	}
}

// metricName builds "<TypeWithoutSpaces><suffix>", e.g. UserStoryGenerated.
func metricName(t models.WorkItemType, suffix string) string {
	return strings.ReplaceAll(string(t), " ", "") + suffix
}
