package notify

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/winter-dragon/dragonlog/internal/audit"
)

// Category colours used for embeds and mirrors.
const (
	ColorCreated = 0x00FF00
	ColorChanged = 0xFFFF00
	ColorDeleted = 0xFF0000
	ColorUnknown = 0x888888
)

// Embed limits enforced by Discord.
const (
	maxTitle       = 256
	maxDescription = 4096
	maxFields      = 25
	maxFieldName   = 256
	maxFieldValue  = 1024
	maxTotal       = 6000
)

// Message is a rendered notification, shaped like a Discord embed.
type Message struct {
	Action      string    `json:"action"`
	GuildID     string    `json:"guild_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Color       int       `json:"color"`
	Fields      []Field   `json:"fields,omitempty"`
	Footer      string    `json:"footer,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Render turns a notification into a message. Change fields come before
// detail fields, both in the order the handler produced them.
func Render(n audit.Notification) Message {
	m := Message{
		Action:      n.Action.String(),
		GuildID:     n.GuildID,
		Title:       truncate(n.Title, maxTitle),
		Description: truncate(n.Description, maxDescription),
		Color:       CategoryColor(n.Category),
		Timestamp:   n.CreatedAt,
	}
	if n.EntryID != "" {
		m.Footer = "Entry " + n.EntryID
	}
	for _, c := range n.Changes {
		m.Fields = append(m.Fields, Field{
			Name:  truncate(c.Name, maxFieldName),
			Value: truncate("From: "+audit.CodeSpan(c.Before)+" → To: "+audit.CodeSpan(c.After), maxFieldValue),
		})
	}
	for _, d := range n.Details {
		m.Fields = append(m.Fields, Field{
			Name:  truncate(d.Name, maxFieldName),
			Value: truncate(d.Value, maxFieldValue),
		})
	}
	if len(m.Fields) > maxFields {
		m.Fields = m.Fields[:maxFields]
	}
	m.fit()
	return m
}

// size counts the characters Discord sums against the total embed limit.
func (m Message) size() int {
	n := runeLen(m.Title) + runeLen(m.Description) + runeLen(m.Footer)
	for _, f := range m.Fields {
		n += runeLen(f.Name) + runeLen(f.Value)
	}
	return n
}

// fit drops trailing fields, then shortens the description, until the
// message is within maxTotal.
func (m *Message) fit() {
	total := m.size()
	for total > maxTotal && len(m.Fields) > 0 {
		last := m.Fields[len(m.Fields)-1]
		total -= runeLen(last.Name) + runeLen(last.Value)
		m.Fields = m.Fields[:len(m.Fields)-1]
	}
	if total > maxTotal {
		m.Description = truncate(m.Description, runeLen(m.Description)-(total-maxTotal))
	}
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

// CategoryColor maps a category to its embed colour.
func CategoryColor(c audit.Category) int {
	switch c {
	case audit.CategoryCreated:
		return ColorCreated
	case audit.CategoryChanged:
		return ColorChanged
	case audit.CategoryDeleted:
		return ColorDeleted
	default:
		return ColorUnknown
	}
}

// Text renders the message as plain text for mirrors that cannot show embeds.
func (m Message) Text() string {
	var b strings.Builder
	b.WriteString(m.Description)
	for _, f := range m.Fields {
		b.WriteString("\n")
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Value)
	}
	return b.String()
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
