package discord

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// EventAuditLogEntryCreate is the gateway dispatch type carrying new audit
// log entries.
const EventAuditLogEntryCreate = "GUILD_AUDIT_LOG_ENTRY_CREATE"

// RawEntry is an audit log entry in Discord's wire format. The gateway event
// and the REST audit log endpoint share this shape; only the gateway form
// carries guild_id.
type RawEntry struct {
	GuildID    string      `json:"guild_id"`
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	TargetID   string      `json:"target_id"`
	ActionType int         `json:"action_type"`
	Reason     string      `json:"reason"`
	Changes    []RawChange `json:"changes"`
	Options    *RawOptions `json:"options"`
}

// RawChange is one changed key. Values are kept raw because their JSON type
// depends on the key.
type RawChange struct {
	Key      string          `json:"key"`
	OldValue json.RawMessage `json:"old_value"`
	NewValue json.RawMessage `json:"new_value"`
}

// RawOptions holds the optional entry info. Discord sends every numeric value
// as a string.
type RawOptions struct {
	ApplicationID      string `json:"application_id"`
	AutoModRuleName    string `json:"auto_moderation_rule_name"`
	AutoModRuleTrigger string `json:"auto_moderation_rule_trigger_type"`
	ChannelID          string `json:"channel_id"`
	Count              string `json:"count"`
	DeleteMemberDays   string `json:"delete_member_days"`
	ID                 string `json:"id"`
	IntegrationType    string `json:"integration_type"`
	MembersRemoved     string `json:"members_removed"`
	MessageID          string `json:"message_id"`
	RoleName           string `json:"role_name"`
	Type               string `json:"type"`
}

// ParseRawEntry decodes a gateway or REST audit log entry.
func ParseRawEntry(data []byte) (RawEntry, error) {
	var r RawEntry
	if err := json.Unmarshal(data, &r); err != nil {
		return RawEntry{}, fmt.Errorf("decoding audit log entry: %w", err)
	}
	if r.ID == "" {
		return RawEntry{}, fmt.Errorf("decoding audit log entry: missing id")
	}
	return r, nil
}

// side selects the old or new value of a change.
type side bool

const (
	before side = false
	after  side = true
)

// changeSet indexes changes by key.
type changeSet map[string]RawChange

func newChangeSet(changes []RawChange) changeSet {
	c := make(changeSet, len(changes))
	for _, ch := range changes {
		c[ch.Key] = ch
	}
	return c
}

func (c changeSet) value(key string, s side) json.RawMessage {
	ch, ok := c[key]
	if !ok {
		return nil
	}
	v := ch.OldValue
	if s == after {
		v = ch.NewValue
	}
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return nil
	}
	return v
}

// str decodes a string value, falling back to the raw JSON text for
// non-string values.
func (c changeSet) str(key string, s side) string {
	v := c.value(key, s)
	if v == nil {
		return ""
	}
	var out string
	if err := json.Unmarshal(v, &out); err == nil {
		return out
	}
	return string(v)
}

// num decodes an integer sent either as a number or a numeric string.
func (c changeSet) num(key string, s side) int {
	v := c.value(key, s)
	if v == nil {
		return 0
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
		if f, err := n.Float64(); err == nil {
			return int(f)
		}
	}
	i, _ := strconv.Atoi(strings.Trim(string(v), `"`))
	return i
}

func (c changeSet) flag(key string, s side) bool {
	v := c.value(key, s)
	if v == nil {
		return false
	}
	var b bool
	_ = json.Unmarshal(v, &b)
	return b
}

// compact renders list or object values as compact JSON so they can be compared.
func (c changeSet) compact(key string, s side) string {
	v := c.value(key, s)
	if v == nil {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return string(v)
	}
	return buf.String()
}

// pick returns the new value of key, or the old one when the object was deleted.
func (c changeSet) pick(key string) string {
	if v := c.str(key, after); v != "" {
		return v
	}
	return c.str(key, before)
}

// pickNum is pick for integer values.
func (c changeSet) pickNum(key string) int {
	if c.value(key, after) != nil {
		return c.num(key, after)
	}
	return c.num(key, before)
}

// partial is a partial object such as a role in $add/$remove.
type partial struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (c changeSet) partials(key string) []partial {
	v := c.value(key, after)
	if v == nil {
		return nil
	}
	var out []partial
	_ = json.Unmarshal(v, &out)
	return out
}

func atoiOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
