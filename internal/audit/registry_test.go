package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(discardLogger(), DefaultHandlers())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func TestClassifyReturnsExactlyOneDescriptorForRegisteredActions(t *testing.T) {
	r := newTestRegistry(t)
	for _, d := range r.Descriptors() {
		got := r.Classify(&Entry{Action: d.Action()})
		if len(got) != 1 {
			t.Fatalf("%s: expected 1 descriptor, got %d", d.Action(), len(got))
		}
		if got[0].Action() != d.Action() {
			t.Fatalf("%s: classified as %s", d.Action(), got[0].Action())
		}
	}
}

func TestClassifyUnknownActionIsEmpty(t *testing.T) {
	r := newTestRegistry(t)
	for _, a := range []Action{"", "action_999", ActionFromType(9999), "CHANNEL_CREATE"} {
		if got := r.Classify(&Entry{Action: a}); len(got) != 0 {
			t.Fatalf("%q: expected no descriptors, got %d", a, len(got))
		}
	}
	if got := r.Classify(nil); len(got) != 0 {
		t.Fatalf("nil entry: expected no descriptors, got %d", len(got))
	}
}

func TestEveryAuditLogTypeIsRegistered(t *testing.T) {
	r := newTestRegistry(t)
	for typ, a := range auditLogActions {
		if len(r.Classify(&Entry{Action: a})) != 1 {
			t.Fatalf("type %d (%s) has no handler", typ, a)
		}
		if TypeOf(a) != typ {
			t.Fatalf("TypeOf(%s) = %d, want %d", a, TypeOf(a), typ)
		}
	}
	for _, a := range []Action{MemberJoin, MemberLeave, MessageEdit} {
		if len(r.Classify(&Entry{Action: a})) != 1 {
			t.Fatalf("gateway action %s has no handler", a)
		}
	}
	if n := len(r.Descriptors()); n != len(auditLogActions)+3 {
		t.Fatalf("expected %d descriptors, got %d", len(auditLogActions)+3, n)
	}
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	build := func(*Entry) (Notification, error) { return Notification{}, nil }
	_, err := NewRegistry(discardLogger(), []Handler{
		{Action: Kick, Build: build},
		{Action: Kick, Build: build},
	})
	if !errors.Is(err, ErrDuplicateHandler) {
		t.Fatalf("expected ErrDuplicateHandler, got %v", err)
	}
}

func TestNewRegistryRejectsUncategorisedAction(t *testing.T) {
	build := func(*Entry) (Notification, error) { return Notification{}, nil }
	if _, err := NewRegistry(discardLogger(), []Handler{{Action: "frobnicate", Build: build}}); err == nil {
		t.Fatal("expected an error for an action without a category")
	}
	if _, err := NewRegistry(discardLogger(), []Handler{{Action: Kick}}); err == nil {
		t.Fatal("expected an error for a handler without a builder")
	}
}

func TestCategorySuffixConvention(t *testing.T) {
	r := newTestRegistry(t)
	for _, d := range r.Descriptors() {
		s := string(d.Action())
		var want Category
		switch {
		case strings.HasSuffix(s, "_create"):
			want = CategoryCreated
		case strings.HasSuffix(s, "_delete"):
			want = CategoryDeleted
		case strings.HasSuffix(s, "_update"):
			want = CategoryChanged
		default:
			if _, ok := explicitCategories[d.Action()]; !ok {
				t.Fatalf("%s is not explicitly classified", s)
			}
			want = explicitCategories[d.Action()]
		}
		if d.Category() != want {
			t.Fatalf("%s: category %s, want %s", s, d.Category(), want)
		}
		if d.Category() == CategoryUnknown {
			t.Fatalf("%s: registered action has unknown category", s)
		}
	}
	if CategoryOf("no_such_thing") != CategoryUnknown {
		t.Fatal("unregistered action should be unknown")
	}
}

func TestStubHandlersFailWithNotImplemented(t *testing.T) {
	r := newTestRegistry(t)
	for _, a := range []Action{StickerCreate, StickerUpdate, StickerDelete} {
		ds := r.Classify(&Entry{Action: a, Actor: testActor})
		if len(ds) != 1 || !ds[0].Stub() {
			t.Fatalf("%s: expected a stub descriptor", a)
		}
		ev := ds[0].Bind(&Entry{Action: a, Actor: testActor}, nil)
		if err := ev.Handle(context.Background()); !errors.Is(err, ErrNotImplemented) {
			t.Fatalf("%s Handle: expected ErrNotImplemented, got %v", a, err)
		}
		if _, err := ev.Notification(); !errors.Is(err, ErrNotImplemented) {
			t.Fatalf("%s Notification: expected ErrNotImplemented, got %v", a, err)
		}
	}
}

func TestActionFromType(t *testing.T) {
	if got := ActionFromType(10); got != ChannelCreate {
		t.Fatalf("ActionFromType(10) = %s", got)
	}
	if got := ActionFromType(7); got != "action_7" {
		t.Fatalf("ActionFromType(7) = %s", got)
	}
	if got := ChannelCreate.LogChannelName(); got != "CHANNEL_CREATE" {
		t.Fatalf("LogChannelName = %s", got)
	}
}

func TestSnowflakeTime(t *testing.T) {
	// 175928847299117063 is the example snowflake from the Discord docs.
	ts, err := SnowflakeTime("175928847299117063")
	if err != nil {
		t.Fatalf("SnowflakeTime: %v", err)
	}
	if ts.UnixMilli() != 1462015105796 {
		t.Fatalf("unexpected time %v (%d)", ts, ts.UnixMilli())
	}
	if _, err := SnowflakeTime("not-a-number"); err == nil {
		t.Fatal("expected an error for a malformed snowflake")
	}
}
