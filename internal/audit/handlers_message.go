package audit

import "fmt"

var messageEditProps = []property[MessageEditState]{
	prop("content", func(s MessageEditState) any { return s.Content }),
}

func messageHandlers() []Handler {
	return []Handler{
		{Action: MessageDelete, Build: buildMessageDelete},
		{Action: MessageBulkDelete, Build: buildBulkDelete},
		{Action: MessagePin, Build: buildPin("Message Pinned", "pinned")},
		{Action: MessageUnpin, Build: buildPin("Message Unpinned", "unpinned")},
		{Action: MessageEdit, Build: buildMessageEdit},
	}
}

func contentDetail(content string) []Detail {
	if content == "" {
		return nil
	}
	return []Detail{{Name: "Content", Value: CodeSpan(content)}}
}

// buildMessageDelete accepts either the author (audit log form, with the
// channel and count in the extra) or the message itself (gateway form).
func buildMessageDelete(e *Entry) (Notification, error) {
	actor, err := requireActor(e)
	if err != nil {
		return Notification{}, err
	}
	switch t := e.Target.(type) {
	case *Message:
		if t == nil {
			break
		}
		n := newNotification(e, "Message Deleted", withReason(e, "%s deleted a message sent by %s in %s",
			actor.Mention(), t.Author.Mention(), channelRef(&t.Channel)))
		n.Details = contentDetail(t.Content)
		return n, nil
	case *User:
		if t == nil {
			break
		}
		md, err := extraAs[MessageDeleteExtra](e)
		if err != nil {
			return Notification{}, err
		}
		return newNotification(e, "Message Deleted", withReason(e, "%s deleted %s sent by %s in %s",
			actor.Mention(), plural(md.Count, "message"), t.Mention(), channelRef(&md.Channel))), nil
	}
	return Notification{}, shapeErr(e.Action, "target", "*audit.Message or *audit.User", e.Target)
}

func buildBulkDelete(e *Entry) (Notification, error) {
	actor, err := requireActor(e)
	if err != nil {
		return Notification{}, err
	}
	ch, err := targetAs[Channel](e)
	if err != nil {
		return Notification{}, err
	}
	count := -1
	if bd, ok, err := optionalExtra[BulkDeleteExtra](e); err != nil {
		return Notification{}, err
	} else if ok {
		count = bd.Count
	}
	return newNotification(e, "Messages Bulk Deleted", withReason(e, "%s deleted %s in %s",
		actor.Mention(), plural(count, "message"), ch.Mention())), nil
}

// buildPin renders pin and unpin. The target is the author of the message and
// the extra carries the channel and, when known, the content.
func buildPin(title, verb string) BuildFunc {
	return func(e *Entry) (Notification, error) {
		actor, err := requireActor(e)
		if err != nil {
			return Notification{}, err
		}
		author, err := targetAs[User](e)
		if err != nil {
			return Notification{}, err
		}
		pin, err := extraAs[PinExtra](e)
		if err != nil {
			return Notification{}, err
		}
		if pin.Channel.ID == "" {
			return Notification{}, shapeErr(e.Action, "extra", "pin with channel", pin)
		}
		n := newNotification(e, title, withReason(e, "%s %s a message from %s in %s",
			actor.Mention(), verb, author.Mention(), pin.Channel.Mention()))
		n.Details = contentDetail(pin.Content)
		return n, nil
	}
}

// buildMessageEdit renders an edit observed on the gateway. The actor is the
// message author.
func buildMessageEdit(e *Entry) (Notification, error) {
	actor, err := requireActor(e)
	if err != nil {
		return Notification{}, err
	}
	m, err := targetAs[Message](e)
	if err != nil {
		return Notification{}, err
	}
	changes, err := diffStates(e, messageEditProps)
	if err != nil {
		return Notification{}, err
	}
	n := newNotification(e, "Message Edited", fmt.Sprintf("%s edited a message in %s",
		actor.Mention(), channelRef(&m.Channel)))
	n.Changes = changes
	return n, nil
}
