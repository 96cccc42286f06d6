package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/iter"

	"github.com/harrisonrobin/notask/pkg/model"
	"github.com/harrisonrobin/notask/pkg/notion"
)

// Config holds the pipeline's tunables. Zero values fall back to defaults.
type Config struct {
	Properties Properties
	PageSize   int
	Now        func() time.Time
}

// Pipeline fetches upcoming rows and projects them into tasks.
type Pipeline struct {
	orchestrator *Orchestrator
	projector    *Projector
	logger       *slog.Logger
}

// New wires a pipeline over store.
func New(store Store, cfg Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	props := cfg.Properties
	if props == (Properties{}) {
		props = DefaultProperties()
	}
	return &Pipeline{
		orchestrator: NewOrchestrator(store, props.DueDate, cfg.PageSize, cfg.Now, logger),
		projector:    NewProjector(props, NewResolver(store, logger)),
		logger:       logger,
	}
}

// Orchestrator exposes the query side, e.g. for listing databases.
func (p *Pipeline) Orchestrator() *Orchestrator {
	return p.orchestrator
}

// Tasks queries the upcoming rows and projects all of them.
func (p *Pipeline) Tasks(ctx context.Context) ([]model.Task, error) {
	pages, err := p.orchestrator.Upcoming(ctx)
	if err != nil {
		return nil, err
	}
	return p.ProjectAll(ctx, pages)
}

type rowResult struct {
	task model.Task
	err  error
}

// ProjectAll projects every page concurrently. It returns the tasks in page
// order, or, if any page fails, the error of the lowest-indexed failing page
// and no tasks.
func (p *Pipeline) ProjectAll(ctx context.Context, pages []notion.Page) ([]model.Task, error) {
	// Every row runs to completion; failures are inspected in page order
	// afterwards so the reported one does not depend on timing.
	mapper := iter.Mapper[notion.Page, rowResult]{MaxGoroutines: len(pages)}
	results := mapper.Map(pages, func(page *notion.Page) rowResult {
		task, err := p.projector.Project(ctx, *page)
		return rowResult{task: task, err: err}
	})

	tasks := make([]model.Task, 0, len(results))
	for i, res := range results {
		if res.err != nil {
			p.logger.Debug("row projection failed", "index", i, "page", pages[i].ID, "error", res.err)
			return nil, res.err
		}
		tasks = append(tasks, res.task)
	}

	p.logger.Info("projected tasks", "count", len(tasks))
	return tasks, nil
}
