// Package extract pulls typed values out of a Notion page's property map.
//
// Each extractor matches exactly one property variant. A missing property or
// a different variant is a *model.PropertyError, except where noted: the
// multi-select extractor drops incomplete options one by one, and an absent
// relation property is an empty reference list.
package extract

import (
	"github.com/harrisonrobin/notask/pkg/model"
	"github.com/harrisonrobin/notask/pkg/notion"
)

func lookup(page notion.Page, name string, want notion.PropertyType) (notion.PropertyValue, error) {
	v, ok := page.Properties[name]
	if !ok || v == nil {
		return nil, mismatch(page, name, want, "missing")
	}
	return v, nil
}

func mismatch(page notion.Page, name string, want notion.PropertyType, reason string) error {
	return &model.PropertyError{
		PageID:   page.ID,
		Property: name,
		Want:     string(want),
		Reason:   reason,
	}
}

func wrongVariant(page notion.Page, name string, want notion.PropertyType, got notion.PropertyValue) error {
	return mismatch(page, name, want, "got "+string(got.Kind()))
}

// Title concatenates the plain text of a title property.
func Title(page notion.Page, name string) (string, error) {
	v, err := lookup(page, name, notion.TypeTitle)
	if err != nil {
		return "", err
	}
	switch p := v.(type) {
	case *notion.TitleProperty:
		return notion.PlainText(p.Title), nil
	default:
		return "", wrongVariant(page, name, notion.TypeTitle, v)
	}
}

// Date returns a date property's payload unchanged. A date property with no
// date set is an error, not an empty value.
func Date(page notion.Page, name string) (model.DateValue, error) {
	v, err := lookup(page, name, notion.TypeDate)
	if err != nil {
		return model.DateValue{}, err
	}
	switch p := v.(type) {
	case *notion.DateProperty:
		if p.Date == nil || p.Date.Start == "" {
			return model.DateValue{}, mismatch(page, name, notion.TypeDate, "no date set")
		}
		return model.DateValue{
			Start:    p.Date.Start,
			End:      p.Date.End,
			TimeZone: p.Date.TimeZone,
		}, nil
	default:
		return model.DateValue{}, wrongVariant(page, name, notion.TypeDate, v)
	}
}

// Status builds a SelectOption from a status property. The status payload,
// its id and its name must all be present.
func Status(page notion.Page, name string) (model.SelectOption, error) {
	v, err := lookup(page, name, notion.TypeStatus)
	if err != nil {
		return model.SelectOption{}, err
	}
	switch p := v.(type) {
	case *notion.StatusProperty:
		if p.Status == nil {
			return model.SelectOption{}, mismatch(page, name, notion.TypeStatus, "no status set")
		}
		opt, ok := selectOption(*p.Status)
		if !ok {
			return model.SelectOption{}, mismatch(page, name, notion.TypeStatus, "status without id or name")
		}
		return opt, nil
	default:
		return model.SelectOption{}, wrongVariant(page, name, notion.TypeStatus, v)
	}
}

// MultiSelect maps every option that has both an id and a name. Incomplete
// options are dropped.
func MultiSelect(page notion.Page, name string) ([]model.SelectOption, error) {
	v, err := lookup(page, name, notion.TypeMultiSelect)
	if err != nil {
		return nil, err
	}
	switch p := v.(type) {
	case *notion.MultiSelectProperty:
		out := make([]model.SelectOption, 0, len(p.MultiSelect))
		for _, o := range p.MultiSelect {
			if opt, ok := selectOption(o); ok {
				out = append(out, opt)
			}
		}
		return out, nil
	default:
		return nil, wrongVariant(page, name, notion.TypeMultiSelect, v)
	}
}

// Relations returns the referenced page ids of a relation property, in order.
// An absent property yields no references.
func Relations(page notion.Page, name string) ([]string, error) {
	v, ok := page.Properties[name]
	if !ok || v == nil {
		return []string{}, nil
	}
	switch p := v.(type) {
	case *notion.RelationProperty:
		ids := make([]string, 0, len(p.Relation))
		for _, r := range p.Relation {
			ids = append(ids, r.ID)
		}
		return ids, nil
	default:
		return nil, wrongVariant(page, name, notion.TypeRelation, v)
	}
}

func selectOption(o notion.Option) (model.SelectOption, bool) {
	if o.ID == nil || o.Name == nil {
		return model.SelectOption{}, false
	}
	color := o.Color
	if color == "" {
		color = model.DefaultColor
	}
	return model.SelectOption{ID: *o.ID, Name: *o.Name, Color: color}, true
}
