package prefs

import (
	"context"
	"log/slog"
	"reflect"

	"github.com/goliatone/go-prefs/pkg/activity"
)

// Observe returns a change callback that turns entry mutations into activity
// events on d's hooks:
//
//	absent  -> present   prefs.created
//	present -> present   prefs.updated (skipped when the value is unchanged)
//	present -> absent    prefs.deleted
//
// Ensured entries are never absent, so they only produce updates. Hook
// failures are logged and never reach the caller.
func Observe[R any](d *Defaults, key string) func(newValue, oldValue R) {
	d = resolve(d)
	return func(newValue, oldValue R) {
		if !d.emitter.Enabled() {
			return
		}
		oldAbsent := IsAbsent(oldValue)
		newAbsent := IsAbsent(newValue)
		input := activity.EntryEventInput{
			Key:   key,
			Store: d.cfg.storeName,
		}
		if !oldAbsent {
			input.OldValue = bindValue(oldValue)
		}
		if !newAbsent {
			input.NewValue = bindValue(newValue)
		}

		var event activity.Event
		switch {
		case oldAbsent && newAbsent:
			return
		case oldAbsent:
			event = activity.BuildEntryCreatedEvent(input)
		case newAbsent:
			event = activity.BuildEntryDeletedEvent(input)
		default:
			if reflect.DeepEqual(input.OldValue, input.NewValue) {
				return
			}
			event = activity.BuildEntryUpdatedEvent(input)
		}

		if err := d.emitter.Emit(context.Background(), event); err != nil {
			d.cfg.logger.Warn("prefs activity hook failed",
				slog.String("key", key),
				slog.String("verb", event.Verb),
				slog.Any("error", err),
			)
		}
	}
}

// Chain calls every non-nil callback in order. DidSet replaces callbacks, so
// use Chain to attach more than one.
func Chain[R any](callbacks ...func(newValue, oldValue R)) func(newValue, oldValue R) {
	compact := make([]func(newValue, oldValue R), 0, len(callbacks))
	for _, callback := range callbacks {
		if callback != nil {
			compact = append(compact, callback)
		}
	}
	return func(newValue, oldValue R) {
		for _, callback := range compact {
			callback(newValue, oldValue)
		}
	}
}

// Observed attaches Observe(d, e.Key()) as the change callback.
func (e Entry[V, R]) Observed(d *Defaults) Entry[V, R] {
	return e.DidSet(Observe[R](d, e.key))
}
