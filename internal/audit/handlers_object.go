package audit

import "fmt"

var roleProps = []property[RoleState]{
	prop("name", func(s RoleState) any { return s.Name }),
	prop("color", func(s RoleState) any { return s.Color }),
	prop("hoist", func(s RoleState) any { return s.Hoist }),
	prop("mentionable", func(s RoleState) any { return s.Mentionable }),
	prop("permissions", func(s RoleState) any { return s.Permissions }),
	prop("position", func(s RoleState) any { return s.Position }),
}

var inviteProps = []property[InviteState]{
	prop("max_age", func(s InviteState) any { return s.MaxAge }),
	prop("code", func(s InviteState) any { return s.Code }),
	prop("temporary", func(s InviteState) any { return s.Temporary }),
	prop("inviter", func(s InviteState) any { return s.InviterID }),
	prop("channel", func(s InviteState) any { return s.ChannelID }),
	prop("uses", func(s InviteState) any { return s.Uses }),
	prop("max_uses", func(s InviteState) any { return s.MaxUses }),
}

var webhookProps = []property[WebhookState]{
	prop("name", func(s WebhookState) any { return s.Name }),
	prop("channel", func(s WebhookState) any { return s.ChannelID }),
	prop("avatar", func(s WebhookState) any { return s.Avatar }),
}

var emojiProps = []property[EmojiState]{
	prop("name", func(s EmojiState) any { return s.Name }),
}

var integrationProps = []property[IntegrationState]{
	prop("expire_behavior", func(s IntegrationState) any { return s.ExpireBehavior }),
	prop("expire_grace_period", func(s IntegrationState) any { return s.ExpireGracePeriod }),
	prop("enable_emoticons", func(s IntegrationState) any { return s.EnableEmoticons }),
}

var stageProps = []property[StageInstanceState]{
	prop("topic", func(s StageInstanceState) any { return s.Topic }),
	prop("privacy_level", func(s StageInstanceState) any { return s.PrivacyLevel }),
}

var scheduledEventProps = []property[ScheduledEventState]{
	prop("name", func(s ScheduledEventState) any { return s.Name }),
	prop("description", func(s ScheduledEventState) any { return s.Description }),
	prop("channel", func(s ScheduledEventState) any { return s.ChannelID }),
	prop("entity_type", func(s ScheduledEventState) any { return s.EntityType }),
	prop("status", func(s ScheduledEventState) any { return s.Status }),
	prop("location", func(s ScheduledEventState) any { return s.Location }),
	prop("privacy_level", func(s ScheduledEventState) any { return s.PrivacyLevel }),
	prop("start_time", func(s ScheduledEventState) any { return s.ScheduledStartTime }),
	prop("end_time", func(s ScheduledEventState) any { return s.ScheduledEndTime }),
}

var autoModRuleProps = []property[AutoModRuleState]{
	prop("name", func(s AutoModRuleState) any { return s.Name }),
	prop("event_type", func(s AutoModRuleState) any { return s.EventType }),
	prop("trigger_type", func(s AutoModRuleState) any { return s.TriggerType }),
	prop("enabled", func(s AutoModRuleState) any { return s.Enabled }),
	prop("exempt_roles", func(s AutoModRuleState) any { return s.ExemptRoles }),
	prop("exempt_channels", func(s AutoModRuleState) any { return s.ExemptChannels }),
}

func objectHandlers() []Handler {
	return []Handler{
		simple(RoleCreate, "Role Created", func(actor *User, r *Role) string {
			return fmt.Sprintf("%s created role %s", actor.Mention(), r.Mention())
		}),
		updated(RoleUpdate, "Role Changed", roleProps, func(actor *User, r *Role) string {
			return fmt.Sprintf("%s changed role %s", actor.Mention(), r.Mention())
		}),
		simple(RoleDelete, "Role Deleted", func(actor *User, r *Role) string {
			return fmt.Sprintf("%s deleted role %s", actor.Mention(), CodeSpan(r.Name))
		}),

		simple(InviteCreate, "Invite Created", func(actor *User, i *Invite) string {
			return fmt.Sprintf("%s created invite %s for %s", actor.Mention(), CodeSpan(i.Code), channelRef(i.Channel))
		}),
		updated(InviteUpdate, "Invite Updated", inviteProps, func(actor *User, i *Invite) string {
			return fmt.Sprintf("%s updated invite %s", actor.Mention(), CodeSpan(i.Code))
		}),
		simple(InviteDelete, "Invite Deleted", func(actor *User, i *Invite) string {
			return fmt.Sprintf("%s deleted invite %s", actor.Mention(), CodeSpan(i.Code))
		}),

		webhookHandler(WebhookCreate, "Webhook Created", "created", true),
		webhookHandler(WebhookUpdate, "Webhook Changed", "changed", true),
		webhookHandler(WebhookDelete, "Webhook Deleted", "deleted", false),

		simple(EmojiCreate, "Emoji Created", func(actor *User, em *Emoji) string {
			return fmt.Sprintf("%s created emoji %s %s", actor.Mention(), em.Mention(), CodeSpan(em.Name))
		}),
		updated(EmojiUpdate, "Emoji Changed", emojiProps, func(actor *User, em *Emoji) string {
			return fmt.Sprintf("%s changed emoji %s", actor.Mention(), em.Mention())
		}),
		simple(EmojiDelete, "Emoji Deleted", func(actor *User, em *Emoji) string {
			return fmt.Sprintf("%s deleted emoji %s", actor.Mention(), CodeSpan(em.Name))
		}),

		simple(IntegrationCreate, "Integration Created", func(actor *User, i *Integration) string {
			return fmt.Sprintf("%s added %s integration %s", actor.Mention(), i.Type, CodeSpan(i.Name))
		}),
		updated(IntegrationUpdate, "Integration Changed", integrationProps, func(actor *User, i *Integration) string {
			return fmt.Sprintf("%s changed integration %s", actor.Mention(), CodeSpan(i.Name))
		}),
		simple(IntegrationDelete, "Integration Deleted", func(actor *User, i *Integration) string {
			return fmt.Sprintf("%s removed integration %s", actor.Mention(), CodeSpan(i.Name))
		}),

		simple(StageInstanceCreate, "Stage Started", func(actor *User, s *StageInstance) string {
			return fmt.Sprintf("%s started stage %s in %s", actor.Mention(), CodeSpan(s.Topic), channelRef(s.Channel))
		}),
		updated(StageInstanceUpdate, "Stage Changed", stageProps, func(actor *User, s *StageInstance) string {
			return fmt.Sprintf("%s changed stage in %s", actor.Mention(), channelRef(s.Channel))
		}),
		simple(StageInstanceDelete, "Stage Ended", func(actor *User, s *StageInstance) string {
			return fmt.Sprintf("%s ended stage %s", actor.Mention(), CodeSpan(s.Topic))
		}),

		// Sticker actions are classified but have no notification yet.
		stub(StickerCreate),
		stub(StickerUpdate),
		stub(StickerDelete),

		simple(ScheduledEventCreate, "Event Scheduled", func(actor *User, s *ScheduledEvent) string {
			return fmt.Sprintf("%s scheduled event %s", actor.Mention(), CodeSpan(s.Name))
		}),
		updated(ScheduledEventUpdate, "Event Changed", scheduledEventProps, func(actor *User, s *ScheduledEvent) string {
			return fmt.Sprintf("%s changed event %s", actor.Mention(), CodeSpan(s.Name))
		}),
		simple(ScheduledEventDelete, "Event Cancelled", func(actor *User, s *ScheduledEvent) string {
			return fmt.Sprintf("%s cancelled event %s", actor.Mention(), CodeSpan(s.Name))
		}),

		{Action: AppCommandPermissionUpdate, Build: buildCommandPermission},

		simple(AutoModRuleCreate, "AutoMod Rule Created", func(actor *User, r *AutoModRule) string {
			return fmt.Sprintf("%s created AutoMod rule %s", actor.Mention(), CodeSpan(r.Name))
		}),
		updated(AutoModRuleUpdate, "AutoMod Rule Changed", autoModRuleProps, func(actor *User, r *AutoModRule) string {
			return fmt.Sprintf("%s changed AutoMod rule %s", actor.Mention(), CodeSpan(r.Name))
		}),
		simple(AutoModRuleDelete, "AutoMod Rule Deleted", func(actor *User, r *AutoModRule) string {
			return fmt.Sprintf("%s deleted AutoMod rule %s", actor.Mention(), CodeSpan(r.Name))
		}),
		autoModHandler(AutoModBlockMessage, "AutoMod Blocked Message", "blocked a message from"),
		autoModHandler(AutoModFlagToChannel, "AutoMod Flagged Message", "flagged a message from"),
		autoModHandler(AutoModTimeoutMember, "AutoMod Timeout", "timed out"),
	}
}

// webhookHandler requires the webhook's channel when needChannel is set; a
// deleted webhook may no longer resolve to one.
func webhookHandler(a Action, title, verb string, needChannel bool) Handler {
	return Handler{
		Action: a,
		Build: func(e *Entry) (Notification, error) {
			actor, err := requireActor(e)
			if err != nil {
				return Notification{}, err
			}
			w, err := targetAs[Webhook](e)
			if err != nil {
				return Notification{}, err
			}
			if needChannel && w.Channel == nil {
				return Notification{}, shapeErr(a, "target", "webhook with channel", w)
			}
			desc := fmt.Sprintf("%s %s webhook %s", actor.Mention(), verb, CodeSpan(w.Name))
			if w.Channel != nil {
				desc += " in " + channelRef(w.Channel)
			}
			changes, err := diffStates(e, webhookProps)
			if err != nil {
				return Notification{}, err
			}
			n := newNotification(e, title, withReason(e, "%s", desc))
			if a == WebhookUpdate {
				n.Changes = changes
			}
			return n, nil
		},
	}
}

func buildCommandPermission(e *Entry) (Notification, error) {
	actor, err := requireActor(e)
	if err != nil {
		return Notification{}, err
	}
	cp, err := extraAs[CommandPermissionExtra](e)
	if err != nil {
		return Notification{}, err
	}
	return newNotification(e, "Command Permissions Changed",
		withReason(e, "%s changed command permissions of application %s", actor.Mention(), CodeSpan(cp.ApplicationID))), nil
}

// autoModHandler renders AutoMod enforcement actions. The actor is the member
// whose message triggered the rule.
func autoModHandler(a Action, title, verb string) Handler {
	return Handler{
		Action: a,
		Build: func(e *Entry) (Notification, error) {
			member, err := requireActor(e)
			if err != nil {
				return Notification{}, err
			}
			am, err := extraAs[AutoModExtra](e)
			if err != nil {
				return Notification{}, err
			}
			desc := fmt.Sprintf("AutoMod %s %s", verb, member.Mention())
			if am.Channel != nil {
				desc += " in " + channelRef(am.Channel)
			}
			n := newNotification(e, title, withReason(e, "%s", desc))
			n.Details = append(n.Details, Detail{Name: "Rule", Value: am.RuleName})
			if am.TriggerType != "" {
				n.Details = append(n.Details, Detail{Name: "Trigger", Value: am.TriggerType})
			}
			return n, nil
		},
	}
}
