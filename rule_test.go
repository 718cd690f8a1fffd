package prefs

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-prefs/pkg/store"
)

type evaluatorFactory struct {
	name string
	new  func(cache ProgramCache, registry *FunctionRegistry) Evaluator
}

var evaluatorFactories = []evaluatorFactory{
	{
		name: EngineExpr,
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			return NewExprEvaluator(ExprWithProgramCache(cache), ExprWithFunctionRegistry(registry))
		},
	},
	{
		name: EngineCEL,
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			return NewCELEvaluator(CELWithProgramCache(cache), CELWithFunctionRegistry(registry))
		},
	},
}

func TestRuleThresholdAcrossEngines(t *testing.T) {
	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			d := New(store.NewMemoryStore(), WithEvaluator(factory.new(nil, nil)))
			rule, err := NewRule[int](d, "value < 1")
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			if !rule.Match("retry", 0) || rule.Match("retry", 3) {
				t.Fatalf("unexpected threshold results")
			}

			entry := EnsuredValue(d, "retry", Constant(5)).EnsureRule(rule, 5)
			entry.SetValue(0)
			if got := entry.Value(); got != 5 {
				t.Fatalf("expected 5 after writing 0, got %d", got)
			}
			entry.SetValue(3)
			if got := entry.Value(); got != 3 {
				t.Fatalf("expected 3, got %d", got)
			}
		})
	}
}

func TestRuleSeesAbsenceAsNull(t *testing.T) {
	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			d := New(store.NewMemoryStore(), WithEvaluator(factory.new(nil, nil)))
			rule := MustRule[*string](d, "value == null")

			if !rule.Match("k", nil) {
				t.Fatalf("nil pointers bind as null")
			}
			if rule.Match("k", Ptr("x")) {
				t.Fatalf("pointers are followed")
			}

			entry := Value[string](d, "k").EnsureRule(rule, Ptr("fallback"))
			if got := entry.Value(); got == nil || *got != "fallback" {
				t.Fatalf("expected fallback, got %v", got)
			}
		})
	}
}

func TestRuleArgsAndKey(t *testing.T) {
	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			d := New(store.NewMemoryStore(), WithEvaluator(factory.new(nil, nil)))
			rule, err := NewRule[int](d, `key == "volume" && value > args.max`, WithRuleArgs(map[string]any{"max": 11}))
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			if !rule.Match("volume", 12) {
				t.Fatalf("expected match above max")
			}
			if rule.Match("volume", 11) || rule.Match("other", 12) {
				t.Fatalf("unexpected match")
			}
		})
	}
}

func TestRuleNotBool(t *testing.T) {
	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			d := New(store.NewMemoryStore(), WithEvaluator(factory.new(nil, nil)))
			rule := MustRule[int](d, `"text"`)
			ok, err := rule.Eval("k", 1)
			if ok || !errors.Is(err, ErrRuleNotBool) {
				t.Fatalf("expected ErrRuleNotBool, got %v", err)
			}
			var evalErr *EvaluationError
			if !errors.As(err, &evalErr) || evalErr.Key != "k" {
				t.Fatalf("expected key metadata, got %#v", err)
			}
		})
	}
}

func TestRuleCompileErrors(t *testing.T) {
	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			d := New(store.NewMemoryStore(), WithEvaluator(factory.new(nil, nil)))
			_, err := NewRule[int](d, "value <")
			var evalErr *EvaluationError
			if !errors.As(err, &evalErr) {
				t.Fatalf("expected EvaluationError, got %v", err)
			}
			if evalErr.Engine != factory.name || evalErr.Expr != "value <" {
				t.Fatalf("unexpected metadata: %+v", evalErr)
			}

			if _, err := NewRule[int](d, ""); !errors.Is(err, ErrEmptyExpression) {
				t.Fatalf("expected ErrEmptyExpression, got %v", err)
			}
		})
	}
}

func TestMustRulePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	MustRule[int](New(nil), "value <")
}

func TestZeroRuleReportsNoEvaluator(t *testing.T) {
	var rule Rule[int]
	if _, err := rule.Eval("k", 1); !errors.Is(err, ErrNoEvaluator) {
		t.Fatalf("expected ErrNoEvaluator, got %v", err)
	}
}

func TestRuleRuntimeFailureIsLoggedAndFalse(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("explode", func(...any) (any, error) {
		return nil, errors.New("kaboom")
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	var events []EvaluatorLogEvent
	d := New(store.NewMemoryStore(),
		WithFunctionRegistry(registry),
		WithEvaluatorLogger(EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
			events = append(events, event)
		})),
	)
	rule := MustRule[int](d, `explode(value)`)

	if rule.Match("danger", 1) {
		t.Fatalf("runtime errors must fold into false")
	}
	if len(events) != 1 {
		t.Fatalf("expected one log event, got %d", len(events))
	}
	event := events[0]
	if event.Engine != EngineExpr || event.Key != "danger" || event.Err == nil {
		t.Fatalf("unexpected event: %+v", event)
	}

	entry := EnsuredValue(d, "danger", Constant(1)).EnsureRule(rule, 99)
	if got := entry.Value(); got != 1 {
		t.Fatalf("a failing rule leaves the value unchanged, got %d", got)
	}
}

func TestDefaultsUsesExprByDefault(t *testing.T) {
	cache := NewMapProgramCache()
	d := New(nil, WithProgramCache(cache))
	evaluator, err := d.Evaluator()
	if err != nil {
		t.Fatalf("evaluator: %v", err)
	}
	if evaluatorEngineName(evaluator) != EngineExpr {
		t.Fatalf("expected expr engine, got %s", evaluatorEngineName(evaluator))
	}
	again, _ := d.Evaluator()
	if again != evaluator {
		t.Fatalf("the default evaluator is built once")
	}

	MustRule[int](d, "value > 1")
	MustRule[int](d, "value > 1")
	MustRule[int](d, "value > 2")
	if cache.Len() != 2 {
		t.Fatalf("expected two cached programs, got %d", cache.Len())
	}
}

func TestNewEvaluatorNames(t *testing.T) {
	for _, name := range []string{"", "expr", " EXPR ", "cel"} {
		evaluator, err := NewEvaluator(name, nil, nil)
		if err != nil || evaluator == nil {
			t.Fatalf("engine %q: %v", name, err)
		}
	}
	if _, err := NewEvaluator("lua", nil, nil); !errors.Is(err, ErrNoEvaluator) {
		t.Fatalf("expected ErrNoEvaluator, got %v", err)
	}
}

func TestFunctionRegistry(t *testing.T) {
	registry := NewFunctionRegistry()
	double := func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("double: want 1 argument, got %d", len(args))
		}
		n, ok := args[0].(int64)
		if !ok {
			return nil, fmt.Errorf("double: want int64, got %T", args[0])
		}
		return n * 2, nil
	}
	if err := registry.Register("double", double); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("DOUBLE", double); !errors.Is(err, ErrFunctionExists) {
		t.Fatalf("expected ErrFunctionExists, got %v", err)
	}
	if err := registry.Register(" ", double); err == nil {
		t.Fatalf("blank names are rejected")
	}
	if err := registry.Register("nil", nil); err == nil {
		t.Fatalf("nil functions are rejected")
	}
	if !registry.Has("Double") || registry.Has("triple") {
		t.Fatalf("unexpected Has results")
	}
	if got, err := registry.Call("double", int64(4)); err != nil || got != int64(8) {
		t.Fatalf("call: %v %v", got, err)
	}
	if _, err := registry.Call("triple"); !errors.Is(err, ErrFunctionNotFound) {
		t.Fatalf("expected ErrFunctionNotFound, got %v", err)
	}
	if names := registry.Names(); len(names) != 1 || names[0] != "double" {
		t.Fatalf("unexpected names %v", names)
	}

	clone := registry.Clone()
	_ = clone.Register("triple", double)
	if registry.Has("triple") {
		t.Fatalf("clones are independent")
	}

	expressions := map[string]string{
		EngineExpr: "double(value) == 6",
		EngineCEL:  `call("double", [value]) == 6`,
	}
	for _, factory := range evaluatorFactories {
		expression, ok := expressions[factory.name]
		if !ok {
			continue
		}
		t.Run(factory.name, func(t *testing.T) {
			d := New(nil, WithEvaluator(factory.new(nil, registry)))
			rule := MustRule[int](d, expression)
			if !rule.Match("k", 3) || rule.Match("k", 4) {
				t.Fatalf("unexpected results for %s", expression)
			}
		})
	}
}

func TestWithCustomFunction(t *testing.T) {
	d := New(nil, WithCustomFunction("isEven", func(args ...any) (any, error) {
		n, _ := args[0].(int64)
		return n%2 == 0, nil
	}))
	rule := MustRule[int](d, "isEven(value)")
	if !rule.Match("k", 4) || rule.Match("k", 5) {
		t.Fatalf("unexpected custom function results")
	}
}

type capturingEvaluator struct {
	contexts []RuleContext
}

func (c *capturingEvaluator) Evaluate(ctx RuleContext, _ string) (any, error) {
	c.contexts = append(c.contexts, ctx)
	return true, nil
}

func (c *capturingEvaluator) Compile(string, ...CompileOption) (CompiledRule, error) {
	return capturedRule{c}, nil
}

type capturedRule struct {
	evaluator *capturingEvaluator
}

func (r capturedRule) Evaluate(ctx RuleContext) (any, error) {
	return r.evaluator.Evaluate(ctx, "")
}

func TestEvaluateDefaultsContext(t *testing.T) {
	capture := &capturingEvaluator{}
	var events []EvaluatorLogEvent
	d := New(nil,
		WithEvaluator(capture),
		WithEvaluatorLogger(EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
			events = append(events, event)
		})),
	)

	before := time.Now()
	if _, err := d.Evaluate(RuleContext{Key: "k"}, "anything"); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	ctx := capture.contexts[0]
	if ctx.Now == nil || ctx.Now.Before(before) {
		t.Fatalf("expected now to be filled in, got %v", ctx.Now)
	}
	if ctx.Args == nil || ctx.Metadata == nil {
		t.Fatalf("expected empty maps, got %+v", ctx)
	}

	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if _, err := d.Evaluate(RuleContext{Now: &fixed}, "anything"); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !capture.contexts[1].Now.Equal(fixed) {
		t.Fatalf("an explicit now is kept")
	}
	if len(events) != 2 || events[0].Engine != "custom" {
		t.Fatalf("unexpected log events %+v", events)
	}

	if _, err := d.Evaluate(RuleContext{}, ""); !errors.Is(err, ErrEmptyExpression) {
		t.Fatalf("expected ErrEmptyExpression, got %v", err)
	}
}

func TestBindValueShapes(t *testing.T) {
	type level int
	got := bindValue(map[string][]level{"a": {1, 2}})
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("expected map[string]any, got %T", got)
	}
	list, ok := m["a"].([]any)
	if !ok || len(list) != 2 || list[0] != int64(1) {
		t.Fatalf("unexpected list %#v", m["a"])
	}
	if bindValue((*int)(nil)) != nil {
		t.Fatalf("nil pointers bind as nil")
	}
	if b, ok := bindValue([]byte("x")).([]byte); !ok || string(b) != "x" {
		t.Fatalf("byte slices pass through")
	}
	if bindValue(uint8(3)) != uint64(3) {
		t.Fatalf("unsigned values widen to uint64")
	}
}
