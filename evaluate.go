package prefs

import (
	"time"
)

// Evaluate runs expr through the configured evaluator and reports the attempt
// to the evaluator logger.
func (d *Defaults) Evaluate(ctx RuleContext, expr string) (any, error) {
	d = resolve(d)
	if expr == "" {
		return nil, ErrEmptyExpression
	}
	evaluator, err := d.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	ctx = ctx.withDefaults()
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	d.logEvaluation(evaluator, expr, ctx.Key, time.Since(start), evalErr)
	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}

// Evaluator returns the configured evaluator, building the default expr
// engine on first use.
func (d *Defaults) Evaluator() (Evaluator, error) {
	return resolve(d).resolveEvaluator()
}

func (d *Defaults) resolveEvaluator() (Evaluator, error) {
	d.evalMu.Lock()
	defer d.evalMu.Unlock()
	if d.cfg.evaluator != nil {
		return d.cfg.evaluator, nil
	}
	evaluator, err := NewEvaluator(EngineExpr, d.cfg.programCache, d.cfg.functions)
	if err != nil {
		return nil, err
	}
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	d.cfg.evaluator = evaluator
	return evaluator, nil
}

func (d *Defaults) logEvaluation(evaluator Evaluator, expr, key string, duration time.Duration, err error) {
	engine := evaluatorEngineName(evaluator)
	d.cfg.evaluatorLogger.LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expr,
		Key:      key,
		Duration: duration,
		Err:      wrapEvaluationError(engine, expr, key, err),
	})
}
