package prefs

import (
	"fmt"
	"time"
)

// Rule is a compiled boolean expression over an entry value, for use with
// EnsureRule. The expression sees `value` (the resolved value with pointers
// followed, null when absent), `key`, `now`, `args` and `metadata`.
type Rule[R any] struct {
	defaults   *Defaults
	evaluator  Evaluator
	compiled   CompiledRule
	expression string
	args       map[string]any
}

// RuleOption configures a Rule.
type RuleOption func(*ruleConfig)

type ruleConfig struct {
	args map[string]any
}

// WithRuleArgs binds args as the `args` variable.
func WithRuleArgs(args map[string]any) RuleOption {
	return func(cfg *ruleConfig) {
		cfg.args = copyArgs(args)
	}
}

// NewRule compiles expression with d's evaluator. Compile errors are returned
// here; evaluation errors later make Match report false.
func NewRule[R any](d *Defaults, expression string, opts ...RuleOption) (Rule[R], error) {
	d = resolve(d)
	if expression == "" {
		return Rule[R]{}, ErrEmptyExpression
	}
	cfg := ruleConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	evaluator, err := d.resolveEvaluator()
	if err != nil {
		return Rule[R]{}, err
	}
	compiled, err := evaluator.Compile(expression)
	if err != nil {
		return Rule[R]{}, wrapEvaluationError(evaluatorEngineName(evaluator), expression, "", err)
	}
	return Rule[R]{
		defaults:   d,
		evaluator:  evaluator,
		compiled:   compiled,
		expression: expression,
		args:       cfg.args,
	}, nil
}

// MustRule is NewRule that panics on error, for package-level declarations.
func MustRule[R any](d *Defaults, expression string, opts ...RuleOption) Rule[R] {
	rule, err := NewRule[R](d, expression, opts...)
	if err != nil {
		panic(err)
	}
	return rule
}

// Expression returns the source expression.
func (r Rule[R]) Expression() string {
	return r.expression
}

// Eval evaluates the rule for key and value and requires a bool result.
func (r Rule[R]) Eval(key string, value R) (bool, error) {
	if r.compiled == nil {
		return false, ErrNoEvaluator
	}
	ctx := RuleContext{Key: key, Value: value, Args: r.args}.withDefaults()
	start := time.Now()
	result, err := r.compiled.Evaluate(ctx)
	if err == nil {
		if _, ok := result.(bool); !ok {
			err = fmt.Errorf("%w: got %T", ErrRuleNotBool, result)
		}
	}
	r.defaults.logEvaluation(r.evaluator, r.expression, key, time.Since(start), err)
	if err != nil {
		return false, wrapEvaluationError(evaluatorEngineName(r.evaluator), r.expression, key, err)
	}
	return result.(bool), nil
}

// Match is Eval with errors folded into false.
func (r Rule[R]) Match(key string, value R) bool {
	ok, err := r.Eval(key, value)
	return err == nil && ok
}

// EnsureRule is Ensure with rule as the predicate.
func (e Entry[V, R]) EnsureRule(rule Rule[R], use R) Entry[V, R] {
	key := e.key
	return e.Ensure(func(value R) bool {
		return rule.Match(key, value)
	}, use)
}

func copyArgs(args map[string]any) map[string]any {
	if len(args) == 0 {
		return nil
	}
	out := make(map[string]any, len(args))
	for key, value := range args {
		out[key] = value
	}
	return out
}
