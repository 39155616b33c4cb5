package audit

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NoReason is rendered in place of an absent audit reason.
const NoReason = "No reason given"

// Notification is the presentation-neutral payload produced for one entry.
type Notification struct {
	Action      Action
	Category    Category
	GuildID     string
	EntryID     string
	CreatedAt   time.Time
	Title       string
	Description string
	Changes     []Change
	Details     []Detail
}

// Change is one tracked property whose value differs between before and after.
type Change struct {
	Name   string
	Before string
	After  string
}

// Detail is a free-form named value, e.g. message content or added roles.
type Detail struct {
	Name  string
	Value string
}

// property is a statically declared tracked field of a State type. get must
// return a comparable value.
type property[S State] struct {
	name string
	get  func(S) any
}

func prop[S State](name string, get func(S) any) property[S] {
	return property[S]{name: name, get: get}
}

// fieldName turns "timed_out_until" into "Timed Out Until". A Caser keeps
// state, so each call gets its own.
func fieldName(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}

// diff returns one Change per property whose before and after values differ,
// in declaration order.
func diff[S State](before, after S, props []property[S]) []Change {
	var out []Change
	for _, p := range props {
		b, a := p.get(before), p.get(after)
		if b == a {
			continue
		}
		out = append(out, Change{
			Name:   fieldName(p.name),
			Before: fmt.Sprint(b),
			After:  fmt.Sprint(a),
		})
	}
	return out
}

// diffStates asserts that both sides of e are S and diffs them. A missing
// side is treated as the zero value, so creates and deletes still render.
func diffStates[S State](e *Entry, props []property[S]) ([]Change, error) {
	var before, after S
	if e.Before != nil {
		b, ok := e.Before.(S)
		if !ok {
			return nil, shapeErr(e.Action, "before", fmt.Sprintf("%T", before), e.Before)
		}
		before = b
	}
	if e.After != nil {
		a, ok := e.After.(S)
		if !ok {
			return nil, shapeErr(e.Action, "after", fmt.Sprintf("%T", after), e.After)
		}
		after = a
	}
	return diff(before, after, props), nil
}

func reasonText(e *Entry) string {
	if strings.TrimSpace(e.Reason) == "" {
		return NoReason
	}
	return e.Reason
}

func newNotification(e *Entry, title, description string) Notification {
	return Notification{
		Action:      e.Action,
		GuildID:     e.GuildID,
		EntryID:     e.ID,
		CreatedAt:   e.CreatedAt,
		Title:       title,
		Description: description,
	}
}
