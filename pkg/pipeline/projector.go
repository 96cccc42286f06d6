package pipeline

import (
	"context"

	"github.com/harrisonrobin/notask/pkg/extract"
	"github.com/harrisonrobin/notask/pkg/model"
	"github.com/harrisonrobin/notask/pkg/notion"
)

// Projector turns one row into one task.
type Projector struct {
	props    Properties
	resolver *Resolver
}

func NewProjector(props Properties, resolver *Resolver) *Projector {
	return &Projector{props: props, resolver: resolver}
}

// Project extracts every task field from page. The first failing extractor
// or relation fetch fails the row; no partial task is returned. Relation
// targets are only fetched once every local property has been extracted.
func (p *Projector) Project(ctx context.Context, page notion.Page) (model.Task, error) {
	name, err := extract.Title(page, p.props.Name)
	if err != nil {
		return model.Task{}, err
	}
	due, err := extract.Date(page, p.props.DueDate)
	if err != nil {
		return model.Task{}, err
	}
	status, err := extract.Status(page, p.props.Status)
	if err != nil {
		return model.Task{}, err
	}
	types, err := extract.MultiSelect(page, p.props.Type)
	if err != nil {
		return model.Task{}, err
	}
	refs, err := extract.Relations(page, p.props.Class)
	if err != nil {
		return model.Task{}, err
	}
	class, err := p.resolver.Resolve(ctx, page.ID, refs)
	if err != nil {
		return model.Task{}, err
	}

	return model.Task{
		ID:         page.ID,
		Name:       name,
		DueDate:    due,
		Status:     status,
		Class:      class,
		Type:       types,
		ExtraProps: map[string]any{},
	}, nil
}
