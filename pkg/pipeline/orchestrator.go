package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/harrisonrobin/notask/pkg/extract"
	"github.com/harrisonrobin/notask/pkg/model"
	"github.com/harrisonrobin/notask/pkg/notion"
)

// DefaultPageSize is the number of rows fetched per run.
const DefaultPageSize = 10

// Orchestrator locates the task database and queries its upcoming rows.
type Orchestrator struct {
	store    Store
	dueDate  string
	pageSize int
	now      func() time.Time
	logger   *slog.Logger
}

func NewOrchestrator(store Store, dueDateProperty string, pageSize int, now func() time.Time, logger *slog.Logger) *Orchestrator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		store:    store,
		dueDate:  dueDateProperty,
		pageSize: pageSize,
		now:      now,
		logger:   logger,
	}
}

// Upcoming returns the rows of the first visible database whose due date is
// on or after now, at most one page of them, in the order Notion returns.
func (o *Orchestrator) Upcoming(ctx context.Context) ([]notion.Page, error) {
	db, err := o.firstDatabase(ctx)
	if err != nil {
		return nil, err
	}

	prop, ok := db.Properties[o.dueDate]
	if !ok || prop.Type != notion.TypeDate {
		return nil, fmt.Errorf("%w: database %s has no date property %q", model.ErrSchemaMismatch, db.ID, o.dueDate)
	}
	ref := prop.ID
	if ref == "" {
		ref = o.dueDate
	}

	q := notion.DatabaseQuery{
		Filter: &notion.Filter{And: []notion.Filter{{
			Property: ref,
			Date:     &notion.DateCondition{OnOrAfter: o.now().UTC().Format(time.RFC3339)},
		}}},
		PageSize: o.pageSize,
	}
	pages, err := o.store.QueryDatabase(ctx, db.ID, q)
	if err != nil {
		return nil, &model.RemoteError{Op: "query", Err: err}
	}

	o.logger.Info("queried upcoming rows", "database", db.PlainTitle(), "count", len(pages))
	return pages, nil
}

func (o *Orchestrator) firstDatabase(ctx context.Context) (notion.Database, error) {
	dbs, err := o.store.SearchDatabases(ctx)
	if err != nil {
		return notion.Database{}, &model.RemoteError{Op: "search", Err: err}
	}
	if len(dbs) == 0 {
		return notion.Database{}, fmt.Errorf("%w: no database is shared with the integration", model.ErrSchemaMismatch)
	}
	return dbs[0], nil
}

// DatabaseSummary describes a database by the property kinds a task can use.
type DatabaseSummary struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Icon       *model.Icon       `json:"icon"`
	Properties map[string]string `json:"properties"`
}

var summaryKinds = map[notion.PropertyType]bool{
	notion.TypeDate:        true,
	notion.TypeTitle:       true,
	notion.TypeSelect:      true,
	notion.TypeMultiSelect: true,
	notion.TypeRelation:    true,
	notion.TypeStatus:      true,
}

// Databases lists every visible database.
func (o *Orchestrator) Databases(ctx context.Context) ([]DatabaseSummary, error) {
	dbs, err := o.store.SearchDatabases(ctx)
	if err != nil {
		return nil, &model.RemoteError{Op: "search", Err: err}
	}

	out := make([]DatabaseSummary, 0, len(dbs))
	for _, db := range dbs {
		s := DatabaseSummary{
			ID:         db.ID,
			Title:      db.PlainTitle(),
			Icon:       extract.Icon(db.Icon),
			Properties: make(map[string]string),
		}
		for name, p := range db.Properties {
			if summaryKinds[p.Type] {
				s.Properties[name] = string(p.Type)
			}
		}
		out = append(out, s)
	}
	return out, nil
}
