package audit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/winter-dragon/dragonlog/models"
)

var memberProps = []property[MemberState]{
	prop("nick", func(s MemberState) any { return s.Nick }),
	prop("mute", func(s MemberState) any { return s.Mute }),
	prop("deaf", func(s MemberState) any { return s.Deaf }),
	prop("timed_out_until", func(s MemberState) any { return s.TimedOutUntil }),
}

func memberHandlers() []Handler {
	ban := simple(Ban, "Ban", func(actor *User, u *User) string {
		return fmt.Sprintf("%s banned %s %s", actor.Mention(), u.Mention(), u.Name)
	})
	ban.Effect = syncBan
	unban := simple(Unban, "Unban", func(actor *User, u *User) string {
		return fmt.Sprintf("%s unbanned %s %s", actor.Mention(), u.Mention(), u.Name)
	})
	unban.Effect = syncUnban

	return []Handler{
		simple(Kick, "Kick", func(actor *User, u *User) string {
			return fmt.Sprintf("%s kicked %s %s", actor.Mention(), u.Mention(), u.Name)
		}),
		{Action: MemberPrune, Build: buildMemberPrune},
		ban,
		unban,
		updated(MemberUpdate, "Member Updated", memberProps, func(actor *User, u *User) string {
			return fmt.Sprintf("%s updated %s", actor.Mention(), u.Mention())
		}),
		{Action: MemberRoleUpdate, Build: buildMemberRoleUpdate},
		{Action: MemberMove, Build: buildMemberMove},
		{Action: MemberDisconnect, Build: buildMemberDisconnect},
		simple(BotAdd, "Bot Added", func(actor *User, u *User) string {
			return fmt.Sprintf("%s added bot %s %s", actor.Mention(), u.Mention(), u.Name)
		}),
		{Action: MemberJoin, Build: buildMemberPresence("Member Joined", "joined the server")},
		{Action: MemberLeave, Build: buildMemberPresence("Member Left", "left the server")},
	}
}

func buildMemberPrune(e *Entry) (Notification, error) {
	actor, err := requireActor(e)
	if err != nil {
		return Notification{}, err
	}
	pe, ok, err := optionalExtra[PruneExtra](e)
	if err != nil {
		return Notification{}, err
	}
	if !ok {
		pe = PruneExtra{DeleteMemberDays: -1, MembersRemoved: -1}
	}
	days := "an unknown number of"
	if pe.DeleteMemberDays >= 0 {
		days = strconv.Itoa(pe.DeleteMemberDays)
	}
	return newNotification(e, "Member Prune", withReason(e, "%s pruned %s inactive for %s days",
		actor.Mention(), plural(pe.MembersRemoved, "member"), days)), nil
}

func buildMemberRoleUpdate(e *Entry) (Notification, error) {
	actor, err := requireActor(e)
	if err != nil {
		return Notification{}, err
	}
	u, err := targetAs[User](e)
	if err != nil {
		return Notification{}, err
	}
	n := newNotification(e, "Member Role Update",
		withReason(e, "%s updated roles for %s", actor.Mention(), u.Mention()))
	roles, ok, err := optionalExtra[MemberRolesExtra](e)
	if err != nil {
		return Notification{}, err
	}
	if !ok {
		return n, nil
	}
	if len(roles.Added) > 0 {
		n.Details = append(n.Details, Detail{Name: "Added Roles", Value: roleList(roles.Added)})
	}
	if len(roles.Removed) > 0 {
		n.Details = append(n.Details, Detail{Name: "Removed Roles", Value: roleList(roles.Removed)})
	}
	return n, nil
}

func roleList(roles []Role) string {
	parts := make([]string, len(roles))
	for i := range roles {
		parts[i] = roles[i].Mention()
	}
	return strings.Join(parts, ", ")
}

// buildMemberMove handles voice moves. The platform reports the destination
// channel and a member count rather than a single target.
func buildMemberMove(e *Entry) (Notification, error) {
	actor, err := requireActor(e)
	if err != nil {
		return Notification{}, err
	}
	mv, err := extraAs[MemberMoveExtra](e)
	if err != nil {
		return Notification{}, err
	}
	who := plural(mv.Count, "member")
	if u, ok := e.Target.(*User); ok && u != nil {
		who = u.Mention()
	}
	return newNotification(e, "Member Move",
		withReason(e, "%s moved %s to %s", actor.Mention(), who, channelRef(&mv.Channel))), nil
}

func buildMemberDisconnect(e *Entry) (Notification, error) {
	actor, err := requireActor(e)
	if err != nil {
		return Notification{}, err
	}
	dc, err := extraAs[MemberDisconnectExtra](e)
	if err != nil {
		return Notification{}, err
	}
	return newNotification(e, "Member Disconnect",
		withReason(e, "%s disconnected %s from voice", actor.Mention(), plural(dc.Count, "member"))), nil
}

// buildMemberPresence renders join and leave events, where the actor is the
// member itself.
func buildMemberPresence(title, verb string) BuildFunc {
	return func(e *Entry) (Notification, error) {
		actor, err := requireActor(e)
		if err != nil {
			return Notification{}, err
		}
		n := newNotification(e, title, fmt.Sprintf("%s %s %s", actor.Mention(), actor.Name, verb))
		if created, err := SnowflakeTime(actor.ID); err == nil {
			n.Details = append(n.Details, Detail{Name: "Account Created", Value: created.Format(time.RFC3339)})
		}
		return n, nil
	}
}

// syncBan records the banned user when the guild takes part in ban sharing.
func syncBan(ctx context.Context, env Env, e *Entry) error {
	u, err := targetAs[User](e)
	if err != nil {
		env.Log.Error("ban target is not a user", "error", err)
		return nil
	}
	if env.Store == nil {
		return nil
	}
	found, err := env.Store.FindByID(ctx, &models.SyncBanGuild{GuildID: e.GuildID})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if !found {
		return nil
	}
	rec := &models.SyncBanUser{
		UserID:   u.ID,
		GuildID:  e.GuildID,
		Reason:   e.Reason,
		BannedAt: e.CreatedAt.UTC().Format(time.RFC3339),
	}
	if err := env.Store.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	env.Log.Info("ban synchronised", "user_id", u.ID)
	return nil
}

func syncUnban(ctx context.Context, env Env, e *Entry) error {
	u, err := targetAs[User](e)
	if err != nil {
		env.Log.Error("unban target is not a user", "error", err)
		return nil
	}
	if env.Store == nil {
		return nil
	}
	// Only an unban inside the sync network lifts the shared ban.
	found, err := env.Store.FindByID(ctx, &models.SyncBanGuild{GuildID: e.GuildID})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if !found {
		return nil
	}
	if err := env.Store.Delete(ctx, &models.SyncBanUser{UserID: u.ID}); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}
