package discord

import (
	"context"
	"time"

	"github.com/winter-dragon/dragonlog/internal/audit"
)

// Directory resolves platform IDs to named objects. Implementations must not
// fail: an unresolvable ID yields an object carrying only the ID.
type Directory interface {
	User(ctx context.Context, guildID, id string) *audit.User
	Channel(ctx context.Context, id string) *audit.Channel
	Role(ctx context.Context, guildID, id string) *audit.Role
}

// Convert turns a raw entry into an audit.Entry. The target, extra and state
// shapes follow the action type; anything unrecognised becomes audit.Unknown.
func Convert(ctx context.Context, dir Directory, raw RawEntry) *audit.Entry {
	action := audit.ActionFromType(raw.ActionType)
	changes := newChangeSet(raw.Changes)
	opts := raw.Options
	if opts == nil {
		opts = &RawOptions{}
	}

	e := &audit.Entry{
		ID:      raw.ID,
		GuildID: raw.GuildID,
		Action:  action,
		Reason:  raw.Reason,
	}
	if ts, err := audit.SnowflakeTime(raw.ID); err == nil {
		e.CreatedAt = ts
	} else {
		e.CreatedAt = time.Now().UTC()
	}
	if raw.UserID != "" {
		e.Actor = dir.User(ctx, raw.GuildID, raw.UserID)
	}

	c := converter{ctx: ctx, dir: dir, raw: raw, changes: changes, opts: opts, entry: e}
	c.fill()
	return e
}

type converter struct {
	ctx     context.Context
	dir     Directory
	raw     RawEntry
	changes changeSet
	opts    *RawOptions
	entry   *audit.Entry
}

// states assigns before/after from build according to the action category.
func (c *converter) states(build func(s side) audit.State) {
	switch audit.CategoryOf(c.entry.Action) {
	case audit.CategoryCreated:
		c.entry.After = build(after)
	case audit.CategoryDeleted:
		c.entry.Before = build(before)
	default:
		c.entry.Before = build(before)
		c.entry.After = build(after)
	}
}

func (c *converter) channel(id string) *audit.Channel {
	if id == "" {
		return nil
	}
	return c.dir.Channel(c.ctx, id)
}

func (c *converter) user(id string) *audit.User {
	if id == "" {
		return nil
	}
	return c.dir.User(c.ctx, c.raw.GuildID, id)
}

func (c *converter) fill() {
	e, ch, o := c.entry, c.changes, c.opts
	switch e.Action {
	case audit.GuildUpdate:
		e.Target = &audit.Guild{ID: c.raw.GuildID, Name: ch.pick("name")}
		c.states(func(s side) audit.State { return guildState(ch, s) })

	case audit.ChannelCreate, audit.ChannelUpdate, audit.ChannelDelete:
		t := c.channel(c.raw.TargetID)
		if t == nil {
			t = &audit.Channel{}
		}
		if t.Name == "" {
			t.Name = ch.pick("name")
		}
		if _, ok := ch["type"]; ok {
			t.Kind = audit.ChannelKindFromType(ch.pickNum("type"))
		}
		e.Target = t
		c.states(func(s side) audit.State { return channelState(ch, s) })

	case audit.OverwriteCreate, audit.OverwriteUpdate, audit.OverwriteDelete:
		e.Target = c.channel(c.raw.TargetID)
		switch o.Type {
		case "0", "role":
			e.Extra = audit.OverwriteExtra{Role: &audit.Role{ID: o.ID, Name: o.RoleName}}
		case "1", "member":
			if u := c.user(o.ID); u != nil {
				e.Extra = audit.OverwriteExtra{Member: u}
			}
		}
		c.states(func(s side) audit.State {
			return audit.OverwriteState{
				Allow: ch.str("allow", s),
				Deny:  ch.str("deny", s),
				ID:    ch.str("id", s),
				Type:  ch.str("type", s),
			}
		})

	case audit.Kick, audit.Ban, audit.Unban, audit.BotAdd:
		e.Target = c.user(c.raw.TargetID)

	case audit.MemberUpdate:
		e.Target = c.user(c.raw.TargetID)
		c.states(func(s side) audit.State {
			return audit.MemberState{
				Nick:          ch.str("nick", s),
				Mute:          ch.flag("mute", s),
				Deaf:          ch.flag("deaf", s),
				TimedOutUntil: ch.str("communication_disabled_until", s),
			}
		})

	case audit.MemberRoleUpdate:
		e.Target = c.user(c.raw.TargetID)
		x := audit.MemberRolesExtra{}
		for _, p := range ch.partials("$add") {
			x.Added = append(x.Added, audit.Role{ID: p.ID, Name: p.Name})
		}
		for _, p := range ch.partials("$remove") {
			x.Removed = append(x.Removed, audit.Role{ID: p.ID, Name: p.Name})
		}
		e.Extra = x

	case audit.MemberPrune:
		e.Extra = audit.PruneExtra{
			DeleteMemberDays: atoiOr(o.DeleteMemberDays, -1),
			MembersRemoved:   atoiOr(o.MembersRemoved, -1),
		}

	case audit.MemberMove:
		x := audit.MemberMoveExtra{Count: atoiOr(o.Count, -1)}
		if t := c.channel(o.ChannelID); t != nil {
			x.Channel = *t
		}
		e.Extra = x

	case audit.MemberDisconnect:
		e.Extra = audit.MemberDisconnectExtra{Count: atoiOr(o.Count, -1)}

	case audit.RoleCreate, audit.RoleUpdate, audit.RoleDelete:
		r := c.dir.Role(c.ctx, c.raw.GuildID, c.raw.TargetID)
		if r.Name == "" {
			r.Name = ch.pick("name")
		}
		e.Target = r
		c.states(func(s side) audit.State {
			return audit.RoleState{
				Name:        ch.str("name", s),
				Color:       ch.num("color", s),
				Hoist:       ch.flag("hoist", s),
				Mentionable: ch.flag("mentionable", s),
				Permissions: ch.str("permissions", s),
				Position:    ch.num("position", s),
			}
		})

	case audit.InviteCreate, audit.InviteUpdate, audit.InviteDelete:
		e.Target = &audit.Invite{Code: ch.pick("code"), Channel: c.channel(ch.pick("channel_id"))}
		c.states(func(s side) audit.State {
			return audit.InviteState{
				Code:      ch.str("code", s),
				ChannelID: ch.str("channel_id", s),
				InviterID: ch.str("inviter_id", s),
				MaxAge:    ch.num("max_age", s),
				MaxUses:   ch.num("max_uses", s),
				Uses:      ch.num("uses", s),
				Temporary: ch.flag("temporary", s),
			}
		})

	case audit.WebhookCreate, audit.WebhookUpdate, audit.WebhookDelete:
		e.Target = &audit.Webhook{
			ID:      c.raw.TargetID,
			Name:    ch.pick("name"),
			Channel: c.channel(ch.pick("channel_id")),
		}
		c.states(func(s side) audit.State {
			return audit.WebhookState{
				Name:      ch.str("name", s),
				ChannelID: ch.str("channel_id", s),
				Avatar:    ch.str("avatar_hash", s),
			}
		})

	case audit.EmojiCreate, audit.EmojiUpdate, audit.EmojiDelete:
		e.Target = &audit.Emoji{ID: c.raw.TargetID, Name: ch.pick("name")}
		c.states(func(s side) audit.State { return audit.EmojiState{Name: ch.str("name", s)} })

	case audit.MessageDelete:
		e.Target = c.user(c.raw.TargetID)
		x := audit.MessageDeleteExtra{Count: atoiOr(o.Count, -1)}
		if t := c.channel(o.ChannelID); t != nil {
			x.Channel = *t
		}
		e.Extra = x

	case audit.MessageBulkDelete:
		e.Target = c.channel(c.raw.TargetID)
		e.Extra = audit.BulkDeleteExtra{Count: atoiOr(o.Count, -1)}

	case audit.MessagePin, audit.MessageUnpin:
		e.Target = c.user(c.raw.TargetID)
		x := audit.PinExtra{MessageID: o.MessageID}
		if t := c.channel(o.ChannelID); t != nil {
			x.Channel = *t
		}
		e.Extra = x

	case audit.IntegrationCreate, audit.IntegrationUpdate, audit.IntegrationDelete:
		typ := ch.pick("type")
		if typ == "" {
			typ = o.IntegrationType
		}
		e.Target = &audit.Integration{ID: c.raw.TargetID, Name: ch.pick("name"), Type: typ}
		c.states(func(s side) audit.State {
			return audit.IntegrationState{
				ExpireBehavior:    ch.num("expire_behavior", s),
				ExpireGracePeriod: ch.num("expire_grace_period", s),
				EnableEmoticons:   ch.flag("enable_emoticons", s),
			}
		})

	case audit.StageInstanceCreate, audit.StageInstanceUpdate, audit.StageInstanceDelete:
		chID := o.ChannelID
		if chID == "" {
			chID = ch.pick("channel_id")
		}
		e.Target = &audit.StageInstance{ID: c.raw.TargetID, Topic: ch.pick("topic"), Channel: c.channel(chID)}
		c.states(func(s side) audit.State {
			return audit.StageInstanceState{Topic: ch.str("topic", s), PrivacyLevel: ch.num("privacy_level", s)}
		})

	case audit.StickerCreate, audit.StickerUpdate, audit.StickerDelete:
		e.Target = &audit.Sticker{ID: c.raw.TargetID, Name: ch.pick("name")}
		c.states(func(s side) audit.State {
			return audit.StickerState{
				Name:        ch.str("name", s),
				Description: ch.str("description", s),
				Tags:        ch.str("tags", s),
			}
		})

	case audit.ScheduledEventCreate, audit.ScheduledEventUpdate, audit.ScheduledEventDelete:
		e.Target = &audit.ScheduledEvent{ID: c.raw.TargetID, Name: ch.pick("name")}
		c.states(func(s side) audit.State {
			return audit.ScheduledEventState{
				Name:               ch.str("name", s),
				Description:        ch.str("description", s),
				ChannelID:          ch.str("channel_id", s),
				EntityType:         ch.num("entity_type", s),
				Status:             ch.num("status", s),
				Location:           ch.str("location", s),
				PrivacyLevel:       ch.num("privacy_level", s),
				ScheduledStartTime: ch.str("scheduled_start_time", s),
				ScheduledEndTime:   ch.str("scheduled_end_time", s),
			}
		})

	case audit.ThreadCreate, audit.ThreadUpdate, audit.ThreadDelete:
		t := &audit.Thread{ID: c.raw.TargetID, Name: ch.pick("name"), Kind: audit.ChannelPublicThread}
		if _, ok := ch["type"]; ok {
			t.Kind = audit.ChannelKindFromType(ch.pickNum("type"))
		}
		if resolved := c.channel(c.raw.TargetID); resolved != nil {
			if t.Name == "" {
				t.Name = resolved.Name
			}
			t.ParentID = resolved.ParentID
		}
		e.Target = t
		c.states(func(s side) audit.State {
			return audit.ThreadState{
				Name:                ch.str("name", s),
				Archived:            ch.flag("archived", s),
				Locked:              ch.flag("locked", s),
				AutoArchiveDuration: ch.num("auto_archive_duration", s),
				SlowmodeDelay:       ch.num("rate_limit_per_user", s),
			}
		})

	case audit.AppCommandPermissionUpdate:
		e.Target = &audit.Unknown{ID: c.raw.TargetID}
		e.Extra = audit.CommandPermissionExtra{ApplicationID: o.ApplicationID}

	case audit.AutoModRuleCreate, audit.AutoModRuleUpdate, audit.AutoModRuleDelete:
		e.Target = &audit.AutoModRule{ID: c.raw.TargetID, Name: ch.pick("name")}
		c.states(func(s side) audit.State {
			return audit.AutoModRuleState{
				Name:           ch.str("name", s),
				EventType:      ch.num("event_type", s),
				TriggerType:    ch.num("trigger_type", s),
				Enabled:        ch.flag("enabled", s),
				ExemptRoles:    ch.compact("exempt_roles", s),
				ExemptChannels: ch.compact("exempt_channels", s),
			}
		})

	case audit.AutoModBlockMessage, audit.AutoModFlagToChannel, audit.AutoModTimeoutMember:
		e.Target = c.user(c.raw.TargetID)
		e.Extra = audit.AutoModExtra{
			RuleName:    o.AutoModRuleName,
			TriggerType: o.AutoModRuleTrigger,
			Channel:     c.channel(o.ChannelID),
		}

	default:
		if c.raw.TargetID != "" {
			e.Target = &audit.Unknown{ID: c.raw.TargetID}
		}
	}

	// A missing ID must not leave a typed nil behind.
	switch t := e.Target.(type) {
	case *audit.Channel:
		if t == nil {
			e.Target = nil
		}
	case *audit.User:
		if t == nil {
			e.Target = nil
		}
	}
}

func guildState(ch changeSet, s side) audit.State {
	return audit.GuildState{
		Name:              ch.str("name", s),
		Description:       ch.str("description", s),
		Icon:              ch.str("icon_hash", s),
		OwnerID:           ch.str("owner_id", s),
		AFKChannelID:      ch.str("afk_channel_id", s),
		AFKTimeout:        ch.num("afk_timeout", s),
		SystemChannelID:   ch.str("system_channel_id", s),
		VerificationLevel: ch.num("verification_level", s),
		ExplicitFilter:    ch.num("explicit_content_filter", s),
		VanityURLCode:     ch.str("vanity_url_code", s),
		PreferredLocale:   ch.str("preferred_locale", s),
	}
}

func channelState(ch changeSet, s side) audit.State {
	return audit.ChannelState{
		Name:               ch.str("name", s),
		Type:               ch.num("type", s),
		Position:           ch.num("position", s),
		Overwrites:         ch.compact("permission_overwrites", s),
		Topic:              ch.str("topic", s),
		Bitrate:            ch.num("bitrate", s),
		RTCRegion:          ch.str("rtc_region", s),
		VideoQualityMode:   ch.num("video_quality_mode", s),
		DefaultAutoArchive: ch.num("default_auto_archive_duration", s),
		NSFW:               ch.flag("nsfw", s),
		SlowmodeDelay:      ch.num("rate_limit_per_user", s),
		UserLimit:          ch.num("user_limit", s),
	}
}
