package audit

import "strings"

// Category is the coarse presentation class of a notification.
type Category string

const (
	CategoryCreated Category = "created"
	CategoryChanged Category = "changed"
	CategoryDeleted Category = "deleted"
	CategoryUnknown Category = "unknown"
)

func (c Category) String() string { return string(c) }

// explicitCategories classifies every action outside the
// _create/_update/_delete naming convention. Anything listed here wins over
// the suffix rule.
var explicitCategories = map[Action]Category{
	Kick:                       CategoryDeleted,
	MemberPrune:                CategoryDeleted,
	Ban:                        CategoryDeleted,
	Unban:                      CategoryCreated,
	MemberRoleUpdate:           CategoryChanged,
	MemberMove:                 CategoryChanged,
	MemberDisconnect:           CategoryDeleted,
	BotAdd:                     CategoryCreated,
	MessageBulkDelete:          CategoryDeleted,
	MessagePin:                 CategoryCreated,
	MessageUnpin:               CategoryDeleted,
	AppCommandPermissionUpdate: CategoryChanged,
	AutoModBlockMessage:        CategoryDeleted,
	AutoModFlagToChannel:       CategoryChanged,
	AutoModTimeoutMember:       CategoryChanged,
	MemberJoin:                 CategoryCreated,
	MemberLeave:                CategoryDeleted,
	MessageEdit:                CategoryChanged,
}

// CategoryOf classifies a. It returns CategoryUnknown for actions that are
// neither listed explicitly nor follow the suffix convention.
func CategoryOf(a Action) Category {
	if c, ok := explicitCategories[a]; ok {
		return c
	}
	s := string(a)
	switch {
	case strings.HasSuffix(s, "_create"):
		return CategoryCreated
	case strings.HasSuffix(s, "_update"):
		return CategoryChanged
	case strings.HasSuffix(s, "_delete"):
		return CategoryDeleted
	}
	return CategoryUnknown
}
