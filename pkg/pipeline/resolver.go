package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sourcegraph/conc/iter"

	"github.com/harrisonrobin/notask/pkg/extract"
	"github.com/harrisonrobin/notask/pkg/model"
	"github.com/harrisonrobin/notask/pkg/notion"
)

// Resolver turns relation references into display links by fetching each
// referenced page.
type Resolver struct {
	store  Store
	logger *slog.Logger
}

func NewResolver(store Store, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

type fetchResult struct {
	page *notion.Page
	err  error
}

// Resolve fetches every reference concurrently and returns one link per
// reference, in reference order. If any fetch fails the whole resolution fails
// with a *model.RelationError for the lowest failing index. Fetches already in
// flight are left to finish.
func (r *Resolver) Resolve(ctx context.Context, pageID string, refs []string) ([]model.RelationLink, error) {
	if len(refs) == 0 {
		return []model.RelationLink{}, nil
	}

	r.logger.Debug("resolving relations", "page", pageID, "count", len(refs))

	mapper := iter.Mapper[string, fetchResult]{MaxGoroutines: len(refs)}
	results := mapper.Map(refs, func(id *string) fetchResult {
		page, err := r.store.GetPage(ctx, *id)
		if err == nil && page == nil {
			err = fmt.Errorf("empty response for page %s", *id)
		}
		return fetchResult{page: page, err: err}
	})

	links := make([]model.RelationLink, 0, len(refs))
	for i, res := range results {
		if res.err != nil {
			r.logger.Debug("relation target unavailable", "page", pageID, "target", refs[i], "error", res.err)
			return nil, &model.RelationError{PageID: pageID, TargetID: refs[i], Err: res.err}
		}
		links = append(links, model.RelationLink{
			ID:   refs[i],
			Name: extract.PageTitle(*res.page),
			Icon: extract.PageIcon(*res.page),
		})
	}
	return links, nil
}
