package audit

import (
	"fmt"
	"strings"
)

// DefaultHandlers is the static registration table of every action the bot
// logs. Pass it to NewRegistry.
func DefaultHandlers() []Handler {
	var hs []Handler
	hs = append(hs, guildHandlers()...)
	hs = append(hs, memberHandlers()...)
	hs = append(hs, objectHandlers()...)
	hs = append(hs, messageHandlers()...)
	return hs
}

func requireActor(e *Entry) (*User, error) {
	if e.Actor == nil {
		return nil, shapeErr(e.Action, "actor", "*audit.User", nil)
	}
	return e.Actor, nil
}

// targetAs asserts that the entry target is a non-nil *T.
func targetAs[T any, P interface {
	*T
	Target
}](e *Entry) (P, error) {
	p, ok := e.Target.(P)
	if !ok || p == nil {
		var want P
		return nil, shapeErr(e.Action, "target", fmt.Sprintf("%T", want), e.Target)
	}
	return p, nil
}

func extraAs[X Extra](e *Entry) (X, error) {
	x, ok := e.Extra.(X)
	if !ok {
		var want X
		return want, shapeErr(e.Action, "extra", fmt.Sprintf("%T", want), e.Extra)
	}
	return x, nil
}

// optionalExtra is extraAs for actions where the platform may omit the payload.
// ok is false when the entry has no extra at all.
func optionalExtra[X Extra](e *Entry) (x X, ok bool, err error) {
	if e.Extra == nil {
		return x, false, nil
	}
	x, err = extraAs[X](e)
	return x, err == nil, err
}

// withReason appends the reason clause every description ends with.
func withReason(e *Entry, format string, args ...any) string {
	return fmt.Sprintf(format, args...) + " with reason: " + reasonText(e)
}

func kindText(k ChannelKind) string {
	if k == "" {
		k = ChannelUnknown
	}
	return strings.ReplaceAll(string(k), "_", " ")
}

func channelRef(c *Channel) string {
	if c == nil || c.ID == "" {
		return "an unknown channel"
	}
	return c.Mention()
}

// CodeSpan wraps s in inline code. The fence is one backtick longer than the
// longest backtick run in s, so names containing backticks stay intact.
func CodeSpan(s string) string {
	longest, run := 0, 0
	for _, r := range s {
		if r == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	fence := strings.Repeat("`", longest+1)
	if strings.HasPrefix(s, "`") || strings.HasSuffix(s, "`") {
		s = " " + s + " "
	}
	return fence + s + fence
}

func plural(n int, word string) string {
	if n < 0 {
		return "an unknown number of " + word + "s"
	}
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// simple builds the handler for actions that only need an actor and a target of
// type P. describe renders the description without the reason clause.
func simple[T any, P interface {
	*T
	Target
}](a Action, title string, describe func(actor *User, t P) string) Handler {
	return Handler{
		Action: a,
		Build: func(e *Entry) (Notification, error) {
			actor, err := requireActor(e)
			if err != nil {
				return Notification{}, err
			}
			t, err := targetAs[T, P](e)
			if err != nil {
				return Notification{}, err
			}
			return newNotification(e, title, withReason(e, "%s", describe(actor, t))), nil
		},
	}
}

// updated builds the handler for an update action: actor and target checks,
// then a diff of the tracked properties of state S.
func updated[T any, P interface {
	*T
	Target
}, S State](a Action, title string, props []property[S], describe func(actor *User, t P) string) Handler {
	return Handler{
		Action: a,
		Build: func(e *Entry) (Notification, error) {
			actor, err := requireActor(e)
			if err != nil {
				return Notification{}, err
			}
			t, err := targetAs[T, P](e)
			if err != nil {
				return Notification{}, err
			}
			changes, err := diffStates(e, props)
			if err != nil {
				return Notification{}, err
			}
			n := newNotification(e, title, withReason(e, "%s", describe(actor, t)))
			n.Changes = changes
			return n, nil
		},
	}
}

func stub(a Action) Handler {
	return Handler{Action: a, Stub: true}
}
