package audit

import (
	"strconv"
	"strings"
)

// Action is the audit action tag of an entry, e.g. "channel_create".
type Action string

const (
	GuildUpdate                Action = "guild_update"
	ChannelCreate              Action = "channel_create"
	ChannelUpdate              Action = "channel_update"
	ChannelDelete              Action = "channel_delete"
	OverwriteCreate            Action = "overwrite_create"
	OverwriteUpdate            Action = "overwrite_update"
	OverwriteDelete            Action = "overwrite_delete"
	Kick                       Action = "kick"
	MemberPrune                Action = "member_prune"
	Ban                        Action = "ban"
	Unban                      Action = "unban"
	MemberUpdate               Action = "member_update"
	MemberRoleUpdate           Action = "member_role_update"
	MemberMove                 Action = "member_move"
	MemberDisconnect           Action = "member_disconnect"
	BotAdd                     Action = "bot_add"
	RoleCreate                 Action = "role_create"
	RoleUpdate                 Action = "role_update"
	RoleDelete                 Action = "role_delete"
	InviteCreate               Action = "invite_create"
	InviteUpdate               Action = "invite_update"
	InviteDelete               Action = "invite_delete"
	WebhookCreate              Action = "webhook_create"
	WebhookUpdate              Action = "webhook_update"
	WebhookDelete              Action = "webhook_delete"
	EmojiCreate                Action = "emoji_create"
	EmojiUpdate                Action = "emoji_update"
	EmojiDelete                Action = "emoji_delete"
	MessageDelete              Action = "message_delete"
	MessageBulkDelete          Action = "message_bulk_delete"
	MessagePin                 Action = "message_pin"
	MessageUnpin               Action = "message_unpin"
	IntegrationCreate          Action = "integration_create"
	IntegrationUpdate          Action = "integration_update"
	IntegrationDelete          Action = "integration_delete"
	StageInstanceCreate        Action = "stage_instance_create"
	StageInstanceUpdate        Action = "stage_instance_update"
	StageInstanceDelete        Action = "stage_instance_delete"
	StickerCreate              Action = "sticker_create"
	StickerUpdate              Action = "sticker_update"
	StickerDelete              Action = "sticker_delete"
	ScheduledEventCreate       Action = "scheduled_event_create"
	ScheduledEventUpdate       Action = "scheduled_event_update"
	ScheduledEventDelete       Action = "scheduled_event_delete"
	ThreadCreate               Action = "thread_create"
	ThreadUpdate               Action = "thread_update"
	ThreadDelete               Action = "thread_delete"
	AppCommandPermissionUpdate Action = "app_command_permission_update"
	AutoModRuleCreate          Action = "automod_rule_create"
	AutoModRuleUpdate          Action = "automod_rule_update"
	AutoModRuleDelete          Action = "automod_rule_delete"
	AutoModBlockMessage        Action = "automod_block_message"
	AutoModFlagToChannel       Action = "automod_flag_to_channel"
	AutoModTimeoutMember       Action = "automod_timeout_member"

	// Gateway events that never appear in the audit log but flow through the
	// same pipeline.
	MemberJoin  Action = "member_join"
	MemberLeave Action = "member_leave"
	MessageEdit Action = "message_edit"
)

// Global is the pseudo action name of the guild-wide log channel.
const Global = "GLOBAL"

// LogChannelName is the name used for the per-action log channel mapping.
func (a Action) LogChannelName() string { return strings.ToUpper(string(a)) }

func (a Action) String() string { return string(a) }

// auditLogActions maps Discord's numeric audit log action type to its tag.
var auditLogActions = map[int]Action{
	1:   GuildUpdate,
	10:  ChannelCreate,
	11:  ChannelUpdate,
	12:  ChannelDelete,
	13:  OverwriteCreate,
	14:  OverwriteUpdate,
	15:  OverwriteDelete,
	20:  Kick,
	21:  MemberPrune,
	22:  Ban,
	23:  Unban,
	24:  MemberUpdate,
	25:  MemberRoleUpdate,
	26:  MemberMove,
	27:  MemberDisconnect,
	28:  BotAdd,
	30:  RoleCreate,
	31:  RoleUpdate,
	32:  RoleDelete,
	40:  InviteCreate,
	41:  InviteUpdate,
	42:  InviteDelete,
	50:  WebhookCreate,
	51:  WebhookUpdate,
	52:  WebhookDelete,
	60:  EmojiCreate,
	61:  EmojiUpdate,
	62:  EmojiDelete,
	72:  MessageDelete,
	73:  MessageBulkDelete,
	74:  MessagePin,
	75:  MessageUnpin,
	80:  IntegrationCreate,
	81:  IntegrationUpdate,
	82:  IntegrationDelete,
	83:  StageInstanceCreate,
	84:  StageInstanceUpdate,
	85:  StageInstanceDelete,
	90:  StickerCreate,
	91:  StickerUpdate,
	92:  StickerDelete,
	100: ScheduledEventCreate,
	101: ScheduledEventUpdate,
	102: ScheduledEventDelete,
	110: ThreadCreate,
	111: ThreadUpdate,
	112: ThreadDelete,
	121: AppCommandPermissionUpdate,
	140: AutoModRuleCreate,
	141: AutoModRuleUpdate,
	142: AutoModRuleDelete,
	143: AutoModBlockMessage,
	144: AutoModFlagToChannel,
	145: AutoModTimeoutMember,
}

// ActionFromType returns the tag for a numeric Discord action type. Unknown
// types yield "action_<n>" so they still classify (to nothing) instead of failing.
func ActionFromType(t int) Action {
	if a, ok := auditLogActions[t]; ok {
		return a
	}
	return Action("action_" + strconv.Itoa(t))
}

// TypeOf returns the numeric Discord action type for a, or 0 for gateway-only actions.
func TypeOf(a Action) int {
	for t, act := range auditLogActions {
		if act == a {
			return t
		}
	}
	return 0
}
