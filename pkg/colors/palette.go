package colors

import "strings"

// Google Calendar event color ids, by name.
const (
	Lavender  = "1"
	Sage      = "2"
	Grape     = "3"
	Flamingo  = "4"
	Banana    = "5"
	Tangerine = "6"
	Peacock   = "7"
	Graphite  = "8"
	Blueberry = "9"
	Basil     = "10"
	Tomato    = "11"
)

var notionToCalendar = map[string]string{
	"gray":   Graphite,
	"brown":  Tangerine,
	"orange": Tangerine,
	"yellow": Banana,
	"green":  Basil,
	"blue":   Blueberry,
	"purple": Grape,
	"pink":   Flamingo,
	"red":    Tomato,
}

// FromNotion maps a Notion option color to a calendar color id. "default" and
// unknown colors map to "", which leaves the calendar's own color.
func FromNotion(color string) string {
	return notionToCalendar[strings.TrimSuffix(color, "_background")]
}
