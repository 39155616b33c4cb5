package audit

import "fmt"

var guildProps = []property[GuildState]{
	prop("name", func(s GuildState) any { return s.Name }),
	prop("description", func(s GuildState) any { return s.Description }),
	prop("icon", func(s GuildState) any { return s.Icon }),
	prop("owner", func(s GuildState) any { return s.OwnerID }),
	prop("afk_channel", func(s GuildState) any { return s.AFKChannelID }),
	prop("afk_timeout", func(s GuildState) any { return s.AFKTimeout }),
	prop("system_channel", func(s GuildState) any { return s.SystemChannelID }),
	prop("verification_level", func(s GuildState) any { return s.VerificationLevel }),
	prop("explicit_content_filter", func(s GuildState) any { return s.ExplicitFilter }),
	prop("vanity_url_code", func(s GuildState) any { return s.VanityURLCode }),
	prop("preferred_locale", func(s GuildState) any { return s.PreferredLocale }),
}

var channelProps = []property[ChannelState]{
	prop("name", func(s ChannelState) any { return s.Name }),
	prop("type", func(s ChannelState) any { return s.Type }),
	prop("position", func(s ChannelState) any { return s.Position }),
	prop("overwrites", func(s ChannelState) any { return s.Overwrites }),
	prop("topic", func(s ChannelState) any { return s.Topic }),
	prop("bitrate", func(s ChannelState) any { return s.Bitrate }),
	prop("rtc_region", func(s ChannelState) any { return s.RTCRegion }),
	prop("video_quality_mode", func(s ChannelState) any { return s.VideoQualityMode }),
	prop("default_auto_archive_duration", func(s ChannelState) any { return s.DefaultAutoArchive }),
	prop("nsfw", func(s ChannelState) any { return s.NSFW }),
	prop("slowmode_delay", func(s ChannelState) any { return s.SlowmodeDelay }),
	prop("user_limit", func(s ChannelState) any { return s.UserLimit }),
}

var overwriteProps = []property[OverwriteState]{
	prop("allow", func(s OverwriteState) any { return s.Allow }),
	prop("deny", func(s OverwriteState) any { return s.Deny }),
	prop("id", func(s OverwriteState) any { return s.ID }),
	prop("type", func(s OverwriteState) any { return s.Type }),
}

var threadProps = []property[ThreadState]{
	prop("name", func(s ThreadState) any { return s.Name }),
	prop("archived", func(s ThreadState) any { return s.Archived }),
	prop("locked", func(s ThreadState) any { return s.Locked }),
	prop("auto_archive_duration", func(s ThreadState) any { return s.AutoArchiveDuration }),
	prop("slowmode_delay", func(s ThreadState) any { return s.SlowmodeDelay }),
}

func guildHandlers() []Handler {
	return []Handler{
		updated(GuildUpdate, "Server Updated", guildProps, func(actor *User, g *Guild) string {
			return fmt.Sprintf("%s updated the server", actor.Mention())
		}),

		simple(ChannelCreate, "Channel Created", func(actor *User, c *Channel) string {
			return fmt.Sprintf("%s created %s %s", actor.Mention(), kindText(c.Kind), c.Mention())
		}),
		updated(ChannelUpdate, "Channel Changed", channelProps, func(actor *User, c *Channel) string {
			return fmt.Sprintf("%s changed %s %s", actor.Mention(), kindText(c.Kind), c.Mention())
		}),
		simple(ChannelDelete, "Channel Deleted", func(actor *User, c *Channel) string {
			return fmt.Sprintf("%s deleted %s %s", actor.Mention(), kindText(c.Kind), CodeSpan(c.Name))
		}),

		overwriteHandler(OverwriteCreate, "Permission Overwrite Created", "created"),
		overwriteHandler(OverwriteUpdate, "Permission Overwrite Changed", "changed"),
		overwriteHandler(OverwriteDelete, "Permission Overwrite Deleted", "deleted"),

		simple(ThreadCreate, "Thread Created", func(actor *User, t *Thread) string {
			return fmt.Sprintf("%s created %s %s", actor.Mention(), kindText(t.Kind), t.Mention())
		}),
		updated(ThreadUpdate, "Thread Changed", threadProps, func(actor *User, t *Thread) string {
			return fmt.Sprintf("%s changed %s %s", actor.Mention(), kindText(t.Kind), t.Mention())
		}),
		simple(ThreadDelete, "Thread Deleted", func(actor *User, t *Thread) string {
			return fmt.Sprintf("%s deleted %s %s", actor.Mention(), kindText(t.Kind), CodeSpan(t.Name))
		}),
	}
}

// overwriteHandler covers the three permission overwrite actions. The extra
// must name the role or member the overwrite applies to.
func overwriteHandler(a Action, title, verb string) Handler {
	return Handler{
		Action: a,
		Build: func(e *Entry) (Notification, error) {
			actor, err := requireActor(e)
			if err != nil {
				return Notification{}, err
			}
			ch, err := targetAs[Channel](e)
			if err != nil {
				return Notification{}, err
			}
			ow, err := extraAs[OverwriteExtra](e)
			if err != nil {
				return Notification{}, err
			}
			if ow.Role == nil && ow.Member == nil {
				return Notification{}, shapeErr(a, "extra", "role or member overwrite", ow)
			}
			changes, err := diffStates(e, overwriteProps)
			if err != nil {
				return Notification{}, err
			}
			n := newNotification(e, title, withReason(e, "%s %s permission overwrite for %s in %s",
				actor.Mention(), verb, ow.Mention(), ch.Mention()))
			n.Changes = changes
			return n, nil
		},
	}
}
