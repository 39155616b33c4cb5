package audit

import (
	"fmt"
	"strconv"
	"time"
)

// Entry is one audit-log record as received from the platform. Handlers only
// borrow it for the duration of a single pipeline pass.
type Entry struct {
	ID        string
	GuildID   string
	Action    Action
	Actor     *User // nil when the platform did not resolve a user
	Target    Target
	Reason    string // empty when no reason was given
	CreatedAt time.Time
	Extra     Extra
	Before    State
	After     State
}

// discordEpoch is the first millisecond of 2015, the base of snowflake timestamps.
const discordEpoch = 1420070400000

// SnowflakeTime returns the creation time encoded in a Discord snowflake.
func SnowflakeTime(id string) (time.Time, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing snowflake %q: %w", id, err)
	}
	ms := int64(n>>22) + discordEpoch
	return time.UnixMilli(ms).UTC(), nil
}

// Target is the object an audit entry acted on.
type Target interface {
	TargetID() string
	target()
}

// User is a guild member or user reference.
type User struct {
	ID   string
	Name string
	Bot  bool
}

func (u *User) TargetID() string { return u.ID }
func (*User) target()            {}

// Mention renders the user as a Discord mention.
func (u *User) Mention() string { return "<@" + u.ID + ">" }

// ChannelKind is a coarse channel type used in notification text.
type ChannelKind string

const (
	ChannelText         ChannelKind = "text"
	ChannelVoice        ChannelKind = "voice"
	ChannelCategory     ChannelKind = "category"
	ChannelNews         ChannelKind = "news"
	ChannelStage        ChannelKind = "stage_voice"
	ChannelForum        ChannelKind = "forum"
	ChannelMedia        ChannelKind = "media"
	ChannelNewsThread   ChannelKind = "news_thread"
	ChannelPublicThread ChannelKind = "public_thread"
	ChannelPrivThread   ChannelKind = "private_thread"
	ChannelUnknown      ChannelKind = "unknown"
)

// ChannelKindFromType maps Discord's numeric channel type.
func ChannelKindFromType(t int) ChannelKind {
	switch t {
	case 0:
		return ChannelText
	case 2:
		return ChannelVoice
	case 4:
		return ChannelCategory
	case 5:
		return ChannelNews
	case 10:
		return ChannelNewsThread
	case 11:
		return ChannelPublicThread
	case 12:
		return ChannelPrivThread
	case 13:
		return ChannelStage
	case 15:
		return ChannelForum
	case 16:
		return ChannelMedia
	default:
		return ChannelUnknown
	}
}

// IsThread reports whether the kind is one of the thread kinds.
func (k ChannelKind) IsThread() bool {
	return k == ChannelNewsThread || k == ChannelPublicThread || k == ChannelPrivThread
}

// Channel is a guild channel (not a thread).
type Channel struct {
	ID       string
	Name     string
	Kind     ChannelKind
	ParentID string
	Parent   *Channel
}

func (c *Channel) TargetID() string { return c.ID }
func (*Channel) target()            {}

func (c *Channel) Mention() string { return "<#" + c.ID + ">" }

// Role is a guild role.
type Role struct {
	ID   string
	Name string
}

func (r *Role) TargetID() string { return r.ID }
func (*Role) target()            {}

func (r *Role) Mention() string { return "<@&" + r.ID + ">" }

// Message is a guild message reference.
type Message struct {
	ID      string
	Author  User
	Channel Channel
	Content string
}

func (m *Message) TargetID() string { return m.ID }
func (*Message) target()            {}

// Emoji is a custom guild emoji.
type Emoji struct {
	ID       string
	Name     string
	Animated bool
}

func (e *Emoji) TargetID() string { return e.ID }
func (*Emoji) target()            {}

func (e *Emoji) Mention() string {
	if e.Animated {
		return "<a:" + e.Name + ":" + e.ID + ">"
	}
	return "<:" + e.Name + ":" + e.ID + ">"
}

// Webhook is a channel webhook. Channel is nil when it could not be resolved.
type Webhook struct {
	ID      string
	Name    string
	Channel *Channel
}

func (w *Webhook) TargetID() string { return w.ID }
func (*Webhook) target()            {}

// Thread is a thread channel.
type Thread struct {
	ID       string
	Name     string
	Kind     ChannelKind
	ParentID string
}

func (t *Thread) TargetID() string { return t.ID }
func (*Thread) target()            {}

func (t *Thread) Mention() string { return "<#" + t.ID + ">" }

// Invite is a guild invite, identified by its code.
type Invite struct {
	Code    string
	Channel *Channel
}

func (i *Invite) TargetID() string { return i.Code }
func (*Invite) target()            {}

type Integration struct {
	ID   string
	Name string
	Type string
}

func (i *Integration) TargetID() string { return i.ID }
func (*Integration) target()            {}

type ScheduledEvent struct {
	ID   string
	Name string
}

func (s *ScheduledEvent) TargetID() string { return s.ID }
func (*ScheduledEvent) target()            {}

type StageInstance struct {
	ID      string
	Topic   string
	Channel *Channel
}

func (s *StageInstance) TargetID() string { return s.ID }
func (*StageInstance) target()            {}

type Sticker struct {
	ID   string
	Name string
}

func (s *Sticker) TargetID() string { return s.ID }
func (*Sticker) target()            {}

type Guild struct {
	ID   string
	Name string
}

func (g *Guild) TargetID() string { return g.ID }
func (*Guild) target()            {}

type AutoModRule struct {
	ID   string
	Name string
}

func (a *AutoModRule) TargetID() string { return a.ID }
func (*AutoModRule) target()            {}

// Unknown is a target the adapter could not resolve to a concrete kind.
type Unknown struct {
	ID string
}

func (u *Unknown) TargetID() string { return u.ID }
func (*Unknown) target()            {}

// Extra is the action-specific payload attached to some entries.
type Extra interface {
	extra()
}

// MemberMoveExtra carries the destination voice channel of a member move.
type MemberMoveExtra struct {
	Channel Channel
	Count   int
}

type MemberDisconnectExtra struct {
	Count int
}

// MessageDeleteExtra describes where messages by the target author were deleted.
type MessageDeleteExtra struct {
	Channel Channel
	Count   int
}

type BulkDeleteExtra struct {
	Count int
}

// PruneExtra holds member prune statistics. A negative value means unknown.
type PruneExtra struct {
	DeleteMemberDays int
	MembersRemoved   int
}

// OverwriteExtra names the role or member a permission overwrite applies to.
// Exactly one of Role and Member is set.
type OverwriteExtra struct {
	Role   *Role
	Member *User
}

// Mention renders whichever principal the overwrite targets.
func (o OverwriteExtra) Mention() string {
	if o.Role != nil {
		return o.Role.Mention()
	}
	if o.Member != nil {
		return o.Member.Mention()
	}
	return ""
}

type PinExtra struct {
	Channel   Channel
	MessageID string
	Content   string
}

type MemberRolesExtra struct {
	Added   []Role
	Removed []Role
}

type AutoModExtra struct {
	RuleName    string
	TriggerType string
	Channel     *Channel
}

type CommandPermissionExtra struct {
	ApplicationID string
}

func (MemberMoveExtra) extra()        {}
func (MemberDisconnectExtra) extra()  {}
func (MessageDeleteExtra) extra()     {}
func (BulkDeleteExtra) extra()        {}
func (PruneExtra) extra()             {}
func (OverwriteExtra) extra()         {}
func (PinExtra) extra()               {}
func (MemberRolesExtra) extra()       {}
func (AutoModExtra) extra()           {}
func (CommandPermissionExtra) extra() {}
