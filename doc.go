// Package prefs declares typed preference entries over a key-value store.
//
// An entry binds one key in one store to a marshaller, a quantifier (one
// value or a list) and a strategy (Optional entries surface absence as nil,
// Ensured entries fall back to a supplied value). Entries are immutable
// values; Ensure, WhenNil, EnsureRule and DidSet return derived entries.
//
//	d := prefs.New(store.NewMemoryStore())
//	retryLimit := prefs.EnsuredValue(d, "retryLimit", prefs.Constant(5)).
//		Ensure(func(v int) bool { return v < 1 }, 5)
//	retryLimit.SetValue(0)
//	retryLimit.Value() // 5
//
// Data flow:
//
//	Entry.Value:    store.Get -> marshaller decode -> strategy -> transform chain
//	Entry.SetValue: transform chain -> marshaller encode -> store.Set (nil removes)
//
// Decoding never fails loudly: a missing key, a primitive of the wrong shape
// or an undecodable payload all read as absent. Durable stores under
// pkg/store/... log write failures and retain the last one for Err().
//
// Rules can be written as expressions (expr by default, cel, or js with the
// js_eval build tag) and attached with EnsureRule. Observe turns entry
// mutations into activity events on the hooks configured on Defaults.
package prefs
