//go:build js_eval

package prefs

func init() {
	evaluatorFactories = append(evaluatorFactories, evaluatorFactory{
		name: EngineJS,
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			return NewJSEvaluator(JSWithProgramCache(cache), JSWithFunctionRegistry(registry))
		},
	})
}
