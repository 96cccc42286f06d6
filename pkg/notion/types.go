package notion

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// PropertyType is the "type" discriminator of a property value or configuration.
type PropertyType string

const (
	TypeTitle       PropertyType = "title"
	TypeDate        PropertyType = "date"
	TypeStatus      PropertyType = "status"
	TypeSelect      PropertyType = "select"
	TypeMultiSelect PropertyType = "multi_select"
	TypeRelation    PropertyType = "relation"
)

// RichText is one run of a rich text array.
type RichText struct {
	Type      string  `json:"type"`
	PlainText string  `json:"plain_text"`
	Href      *string `json:"href,omitempty"`
}

// PlainText concatenates the plain text of every run.
func PlainText(runs []RichText) string {
	var sb strings.Builder
	for _, r := range runs {
		sb.WriteString(r.PlainText)
	}
	return sb.String()
}

// FileObject is an external or Notion-hosted file reference.
type FileObject struct {
	URL        string  `json:"url"`
	ExpiryTime *string `json:"expiry_time,omitempty"`
}

// Icon of a page or database. Exactly one of Emoji, External or File is set,
// according to Type.
type Icon struct {
	Type     string      `json:"type"`
	Emoji    string      `json:"emoji,omitempty"`
	External *FileObject `json:"external,omitempty"`
	File     *FileObject `json:"file,omitempty"`
}

// Option is a select, multi-select or status option. ID and Name may be
// absent in payloads, hence the pointers.
type Option struct {
	ID    *string `json:"id,omitempty"`
	Name  *string `json:"name,omitempty"`
	Color string  `json:"color,omitempty"`
}

// DateObject is the payload of a date property.
type DateObject struct {
	Start    string  `json:"start"`
	End      *string `json:"end"`
	TimeZone *string `json:"time_zone"`
}

// Reference is one entry of a relation property.
type Reference struct {
	ID string `json:"id"`
}

// PropertyValue is the closed set of property values a page can carry. The
// concrete types are *TitleProperty, *DateProperty, *StatusProperty,
// *SelectProperty, *MultiSelectProperty, *RelationProperty and
// *UnsupportedProperty.
type PropertyValue interface {
	PropertyID() string
	Kind() PropertyType
	isPropertyValue()
}

type propertyBase struct {
	ID string `json:"id"`
}

func (b propertyBase) PropertyID() string { return b.ID }
func (propertyBase) isPropertyValue()     {}

type TitleProperty struct {
	propertyBase
	Title []RichText `json:"title"`
}

func (*TitleProperty) Kind() PropertyType { return TypeTitle }

type DateProperty struct {
	propertyBase
	Date *DateObject `json:"date"`
}

func (*DateProperty) Kind() PropertyType { return TypeDate }

type StatusProperty struct {
	propertyBase
	Status *Option `json:"status"`
}

func (*StatusProperty) Kind() PropertyType { return TypeStatus }

type SelectProperty struct {
	propertyBase
	Select *Option `json:"select"`
}

func (*SelectProperty) Kind() PropertyType { return TypeSelect }

type MultiSelectProperty struct {
	propertyBase
	MultiSelect []Option `json:"multi_select"`
}

func (*MultiSelectProperty) Kind() PropertyType { return TypeMultiSelect }

type RelationProperty struct {
	propertyBase
	Relation []Reference `json:"relation"`
	HasMore  bool        `json:"has_more"`
}

func (*RelationProperty) Kind() PropertyType { return TypeRelation }

// UnsupportedProperty holds any property type this package does not model.
type UnsupportedProperty struct {
	propertyBase
	Type PropertyType
	Raw  json.RawMessage
}

func (p *UnsupportedProperty) Kind() PropertyType { return p.Type }

// Properties maps property names to their values.
type Properties map[string]PropertyValue

// UnmarshalJSON decodes each property into its concrete variant, keyed on "type".
func (p *Properties) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Properties, len(raw))
	for name, r := range raw {
		v, err := decodeProperty(r)
		if err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
		out[name] = v
	}
	*p = out
	return nil
}

func decodeProperty(raw json.RawMessage) (PropertyValue, error) {
	kind := PropertyType(gjson.GetBytes(raw, "type").String())

	var v PropertyValue
	switch kind {
	case TypeTitle:
		v = &TitleProperty{}
	case TypeDate:
		v = &DateProperty{}
	case TypeStatus:
		v = &StatusProperty{}
	case TypeSelect:
		v = &SelectProperty{}
	case TypeMultiSelect:
		v = &MultiSelectProperty{}
	case TypeRelation:
		v = &RelationProperty{}
	default:
		return &UnsupportedProperty{
			propertyBase: propertyBase{ID: gjson.GetBytes(raw, "id").String()},
			Type:         kind,
			Raw:          append(json.RawMessage(nil), raw...),
		}, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Page is a row of a database.
type Page struct {
	Object     string     `json:"object"`
	ID         string     `json:"id"`
	URL        string     `json:"url,omitempty"`
	Archived   bool       `json:"archived"`
	Icon       *Icon      `json:"icon"`
	Properties Properties `json:"properties"`
}

// PropertyConfig is the schema entry of a database property.
type PropertyConfig struct {
	ID   string       `json:"id"`
	Name string       `json:"name"`
	Type PropertyType `json:"type"`
}

// Database is a Notion database object.
type Database struct {
	Object     string                    `json:"object"`
	ID         string                    `json:"id"`
	Title      []RichText                `json:"title"`
	Icon       *Icon                     `json:"icon"`
	Properties map[string]PropertyConfig `json:"properties"`
}

// PlainTitle returns the database title as plain text.
func (d Database) PlainTitle() string {
	return PlainText(d.Title)
}

// DateCondition is the condition of a date filter.
type DateCondition struct {
	Equals     string `json:"equals,omitempty"`
	Before     string `json:"before,omitempty"`
	After      string `json:"after,omitempty"`
	OnOrBefore string `json:"on_or_before,omitempty"`
	OnOrAfter  string `json:"on_or_after,omitempty"`
}

// Filter is either a compound filter (And) or a property filter.
type Filter struct {
	And      []Filter       `json:"and,omitempty"`
	Property string         `json:"property,omitempty"`
	Date     *DateCondition `json:"date,omitempty"`
}

// DatabaseQuery is the body of a database query.
type DatabaseQuery struct {
	Filter      *Filter `json:"filter,omitempty"`
	PageSize    int     `json:"page_size,omitempty"`
	StartCursor string  `json:"start_cursor,omitempty"`
}
