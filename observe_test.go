package prefs

import (
	"bytes"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/goliatone/go-prefs/pkg/activity"
	"github.com/goliatone/go-prefs/pkg/store"
)

func TestObserveEmitsEntryLifecycle(t *testing.T) {
	hook := &activity.CaptureHook{}
	d := New(store.NewMemoryStore(),
		WithActivityHooks(activity.Hooks{hook}),
		WithActivityConfig(activity.Config{Enabled: true, ActorID: "actor-1"}),
		WithStoreName("memory"),
	)
	entry := Value[int](d, "volume").Observed(d)

	entry.SetValue(Ptr(3))
	entry.SetValue(Ptr(3))
	entry.SetValue(Ptr(4))
	entry.Clear()
	entry.Clear()

	want := []string{activity.VerbCreated, activity.VerbUpdated, activity.VerbDeleted}
	if got := hook.Verbs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	created := hook.Events[0]
	if created.ObjectType != activity.ObjectType || created.ObjectID != "volume" {
		t.Fatalf("unexpected routing: %+v", created)
	}
	if created.ActorID != "actor-1" || created.Channel != activity.DefaultChannel {
		t.Fatalf("emitter defaults not applied: %+v", created)
	}
	if created.Metadata["new_value"] != int64(3) || created.Metadata["store"] != "memory" {
		t.Fatalf("unexpected metadata: %v", created.Metadata)
	}
	if _, ok := created.Metadata["old_value"]; ok {
		t.Fatalf("created events carry no old value")
	}

	updated := hook.Events[1]
	if updated.Metadata["old_value"] != int64(3) || updated.Metadata["new_value"] != int64(4) {
		t.Fatalf("unexpected update metadata: %v", updated.Metadata)
	}
	deleted := hook.Events[2]
	if deleted.Metadata["old_value"] != int64(4) {
		t.Fatalf("unexpected delete metadata: %v", deleted.Metadata)
	}
}

func TestObserveEnsuredOnlyUpdates(t *testing.T) {
	hook := &activity.CaptureHook{}
	d := New(nil, WithActivityHooks(activity.Hooks{hook}))
	entry := EnsuredValue(d, "theme", Constant("light")).Observed(d)

	entry.SetValue("dark")
	entry.Clear()
	entry.SetValue("light")

	want := []string{activity.VerbUpdated, activity.VerbUpdated}
	if got := hook.Verbs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestObserveDisabled(t *testing.T) {
	hook := &activity.CaptureHook{}
	d := New(nil,
		WithActivityHooks(activity.Hooks{hook}),
		WithActivityConfig(activity.Config{Enabled: false}),
	)
	Value[string](d, "k").Observed(d).SetValue(Ptr("x"))
	if len(hook.Events) != 0 {
		t.Fatalf("disabled emission must not notify, got %v", hook.Verbs())
	}

	bare := New(nil)
	Value[string](bare, "k").Observed(bare).SetValue(Ptr("x"))
	if got := Value[string](bare, "k").Value(); got == nil || *got != "x" {
		t.Fatalf("observing without hooks still writes")
	}
}

func TestObserveLogsHookFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hook := &activity.CaptureHook{Err: errors.New("sink offline")}
	d := New(nil, WithLogger(logger), WithActivityHooks(activity.Hooks{hook}))

	entry := Value[bool](d, "flag").Observed(d)
	entry.SetValue(Ptr(true))

	if got := entry.Value(); got == nil || !*got {
		t.Fatalf("hook failures must not block the write")
	}
	out := buf.String()
	if !strings.Contains(out, "prefs activity hook failed") || !strings.Contains(out, "sink offline") {
		t.Fatalf("expected a warning, got %q", out)
	}
	if !strings.Contains(out, "verb=prefs.created") {
		t.Fatalf("expected the verb in the log, got %q", out)
	}
}

func TestObserveChainedWithDidSet(t *testing.T) {
	hook := &activity.CaptureHook{}
	d := New(nil, WithActivityHooks(activity.Hooks{hook}))
	var seen []string
	entry := ListValue[string](d, "tags").DidSet(Chain(
		Observe[*[]string](d, "tags"),
		func(newValue, _ *[]string) {
			seen = append(seen, strings.Join(Deref(newValue), ","))
		},
	))

	entry.SetValue(&[]string{"a", "b"})
	entry.SetValue(&[]string{"a", "b"})
	entry.SetValue(&[]string{"c"})

	if got := hook.Verbs(); !reflect.DeepEqual(got, []string{activity.VerbCreated, activity.VerbUpdated}) {
		t.Fatalf("unexpected verbs %v", got)
	}
	if !reflect.DeepEqual(seen, []string{"a,b", "a,b", "c"}) {
		t.Fatalf("every write reaches the plain callback, got %v", seen)
	}
	if got := hook.Events[0].Metadata["new_value"]; !reflect.DeepEqual(got, []any{"a", "b"}) {
		t.Fatalf("lists bind as []any, got %#v", got)
	}
}
