// Package pipeline turns the upcoming rows of a Notion database into tasks.
//
// The Orchestrator finds the database and queries it, the Projector turns a
// single row into a model.Task (resolving relation targets through the
// Resolver), and Pipeline fans the Projector out over every row. Failures are
// all-or-nothing at both levels: a row with one bad property or one
// unreachable relation target yields no task, and one failed row fails the
// whole run.
package pipeline

import (
	"context"

	"github.com/harrisonrobin/notask/pkg/notion"
)

// Store is the read-only view of Notion the pipeline needs. *notion.Client
// satisfies it. Implementations must be safe for concurrent use.
type Store interface {
	SearchDatabases(ctx context.Context) ([]notion.Database, error)
	QueryDatabase(ctx context.Context, databaseID string, q notion.DatabaseQuery) ([]notion.Page, error)
	GetPage(ctx context.Context, pageID string) (*notion.Page, error)
}

var _ Store = (*notion.Client)(nil)

// Properties names the database properties a task is projected from.
type Properties struct {
	Name    string
	DueDate string
	Status  string
	Class   string
	Type    string
}

// DefaultProperties returns the property names of the stock task database.
func DefaultProperties() Properties {
	return Properties{
		Name:    "Name",
		DueDate: "Due Date",
		Status:  "Status",
		Class:   "Class",
		Type:    "Type",
	}
}
