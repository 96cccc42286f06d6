package pipeline

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harrisonrobin/notask/pkg/notion"
)

// fakeStore is an in-memory Store with per-page delays and failures.
type fakeStore struct {
	databases []notion.Database
	searchErr error
	rows      []notion.Page
	queryErr  error
	pages     map[string]*notion.Page
	fail      map[string]error
	delay     map[string]time.Duration

	fetches atomic.Int32
	mu      sync.Mutex
	queries []notion.DatabaseQuery
	queried []string
}

func (f *fakeStore) SearchDatabases(ctx context.Context) ([]notion.Database, error) {
	return f.databases, f.searchErr
}

func (f *fakeStore) QueryDatabase(ctx context.Context, databaseID string, q notion.DatabaseQuery) ([]notion.Page, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.queried = append(f.queried, databaseID)
	f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.rows, nil
}

func (f *fakeStore) GetPage(ctx context.Context, pageID string) (*notion.Page, error) {
	f.fetches.Add(1)
	if d := f.delay[pageID]; d > 0 {
		time.Sleep(d)
	}
	if err := f.fail[pageID]; err != nil {
		return nil, err
	}
	p, ok := f.pages[pageID]
	if !ok {
		return nil, &notion.APIError{Status: 404, Code: notion.CodeObjectNotFound, Message: "Could not find page with ID: " + pageID}
	}
	return p, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strptr(s string) *string { return &s }

func title(text string) *notion.TitleProperty {
	return &notion.TitleProperty{Title: []notion.RichText{{Type: "text", PlainText: text}}}
}

func option(id, name, color string) notion.Option {
	return notion.Option{ID: strptr(id), Name: strptr(name), Color: color}
}

// taskRow builds a row with every task property set and the given relation targets.
func taskRow(id, name string, relations ...string) notion.Page {
	refs := make([]notion.Reference, 0, len(relations))
	for _, r := range relations {
		refs = append(refs, notion.Reference{ID: r})
	}
	status := option("st-"+id, "Todo", "red")
	return notion.Page{
		Object: "page",
		ID:     id,
		Properties: notion.Properties{
			"Name":     title(name),
			"Due Date": &notion.DateProperty{Date: &notion.DateObject{Start: "2024-05-01"}},
			"Status":   &notion.StatusProperty{Status: &status},
			"Type": &notion.MultiSelectProperty{MultiSelect: []notion.Option{
				option("t1", "Essay", "blue"),
			}},
			"Class": &notion.RelationProperty{Relation: refs},
		},
	}
}

// target builds a relation target page with a title and an emoji icon.
func target(id, name, emoji string) *notion.Page {
	return &notion.Page{
		Object: "page",
		ID:     id,
		Icon:   &notion.Icon{Type: "emoji", Emoji: emoji},
		Properties: notion.Properties{
			"Title": title(name),
		},
	}
}

func taskDatabase() notion.Database {
	return notion.Database{
		Object: "database",
		ID:     "db-1",
		Title:  []notion.RichText{{PlainText: "Homework"}},
		Properties: map[string]notion.PropertyConfig{
			"Name":     {ID: "title", Name: "Name", Type: notion.TypeTitle},
			"Due Date": {ID: "d%3Ae", Name: "Due Date", Type: notion.TypeDate},
			"Status":   {ID: "st", Name: "Status", Type: notion.TypeStatus},
			"Points":   {ID: "pt", Name: "Points", Type: "number"},
		},
	}
}
