package cli

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	prefs "github.com/goliatone/go-prefs"
	"github.com/goliatone/go-prefs/internal/wire"
	"github.com/goliatone/go-prefs/pkg/store"
)

// ValueOptions holds the typed-entry flags shared by get, set and check.
type ValueOptions struct {
	*RootOptions
	Type string
	List bool
}

func addValueFlags(cmd *cobra.Command, opts *ValueOptions, typeDefault string) {
	cmd.Flags().StringVarP(&opts.Type, "type", "t", typeDefault, "value type ("+strings.Join(TypeNames(), "|")+")")
	cmd.Flags().BoolVarP(&opts.List, "list", "l", false, "treat the key as a list entry")
}

func withSession(opts *RootOptions, cmd *cobra.Command, run func(*session, *OutputFormatter) error) error {
	sess, err := openSession(opts, cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	runErr := run(sess, out)
	if runErr == nil {
		if err := sess.Err(); err != nil {
			runErr = WrapExitError(ExitCommandError, "store write failed", err)
		}
	}
	if err := sess.Close(); err != nil && runErr == nil {
		runErr = WrapExitError(ExitCommandError, "failed to close store", err)
	}
	return runErr
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValueOptions{RootOptions: rootOpts}
	var merged bool

	cmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Read a key",
		Long: `Read a key. Without --type the stored primitive is printed as is;
with --type it is decoded through a typed entry, and a value that does not
decode reads as missing.

Examples:
  prefs get --store prefs.json theme
  prefs get --store prefs.db retries --type int
  prefs get --store prefs.toml tags --type string --list`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			return withSession(rootOpts, cmd, func(sess *session, out *OutputFormatter) error {
				if opts.Type == "" {
					var (
						value store.Primitive
						ok    bool
					)
					if merged {
						value, ok = sess.stack.Merged(key)
					} else {
						value, ok = sess.stack.Get(key)
					}
					if !ok {
						return NewExitError(ExitFailure, fmt.Sprintf("key %q not found", key))
					}
					envelope, err := wire.Encode(value)
					if err != nil {
						return WrapExitError(ExitCommandError, "failed to encode value", err)
					}
					return out.Success(map[string]any{"key": key, "value": envelope}, RenderPrimitive(value))
				}

				vt, err := lookupType(opts.Type)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid type", err)
				}
				value, ok := vt.get(sess.defaults, key, opts.List)
				if !ok {
					return NewExitError(ExitFailure, fmt.Sprintf("key %q not found as %s", key, opts.Type))
				}
				return out.Success(map[string]any{"key": key, "value": value}, renderAny(value))
			})
		},
	}
	addValueFlags(cmd, opts, "")
	cmd.Flags().BoolVar(&merged, "merged", false, "merge map values across layers")
	return cmd
}

// NewSetCommand creates the set command.
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValueOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "set KEY VALUE...",
		Short: "Write a key",
		Long: `Write a key through a typed entry. List entries take every remaining
argument as one element.

Examples:
  prefs set --store prefs.json theme dark
  prefs set --store prefs.db retries 3 --type int
  prefs set --store prefs.toml tags a b c --list`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, values := args[0], args[1:]
			return withSession(rootOpts, cmd, func(sess *session, out *OutputFormatter) error {
				vt, err := lookupType(opts.Type)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid type", err)
				}
				if err := vt.set(sess.defaults, key, values, opts.List); err != nil {
					return WrapExitError(ExitCommandError, "invalid value", err)
				}
				return out.Success(map[string]any{"key": key}, fmt.Sprintf("set %s", key))
			})
		},
	}
	addValueFlags(cmd, opts, "string")
	return cmd
}

// NewRemoveCommand creates the rm command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm KEY...",
		Aliases: []string{"remove", "clear"},
		Short:   "Remove keys from the writable layer",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(sess *session, out *OutputFormatter) error {
				for _, key := range args {
					sess.defaults.Remove(key)
				}
				return out.Success(map[string]any{"removed": args}, fmt.Sprintf("removed %s", strings.Join(args, ", ")))
			})
		},
	}
}

// NewKeysCommand creates the keys command.
func NewKeysCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List every key across layers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(sess *session, out *OutputFormatter) error {
				keys, _ := sess.defaults.Keys()
				if keys == nil {
					keys = []string{}
				}
				return out.Success(map[string]any{"keys": keys}, keys...)
			})
		},
	}
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "trace KEY",
		Short: "Show which layer supplies a key",
		Long: `Show every layer consulted for a key, strongest first, and the value
each one holds.

Examples:
  prefs trace --store prefs.json --defaults defaults.yaml theme`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			return withSession(rootOpts, cmd, func(sess *session, out *OutputFormatter) error {
				trace := sess.stack.Trace(key)
				if rootOpts.Format == "json" {
					data, err := trace.ToJSON()
					if err != nil {
						return WrapExitError(ExitCommandError, "failed to encode trace", err)
					}
					return out.Success(json.RawMessage(data))
				}
				lines := make([]string, 0, len(trace.Layers))
				for _, layer := range trace.Layers {
					marker := " "
					if winner, ok := trace.Winner(); ok && winner.Scope.Name == layer.Scope.Name {
						marker = "*"
					}
					value := "-"
					if layer.Found {
						value = RenderPrimitive(layer.Value)
					}
					mode := "rw"
					if layer.ReadOnly {
						mode = "ro"
					}
					lines = append(lines, fmt.Sprintf("%s %-12s %4d %s %s", marker, layer.Scope.Name, layer.Scope.Priority, mode, value))
				}
				return out.Success(nil, lines...)
			})
		},
	}
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValueOptions{RootOptions: rootOpts}
	var engine string

	cmd := &cobra.Command{
		Use:   "check KEY EXPRESSION",
		Short: "Evaluate a rule against a key",
		Long: `Evaluate a boolean rule against the typed value of a key. The rule sees
value (null when missing) and key. Exits 1 when the rule is false.

Examples:
  prefs check --store prefs.db retries 'value != nil && value >= 3' --type int
  prefs check --store prefs.db retries 'value >= 3' --type int --engine cel`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, expression := args[0], args[1]
			evaluator, err := prefs.NewEvaluator(engine, prefs.NewMapProgramCache(), nil)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid engine", err)
			}
			return withSession(rootOpts, cmd, func(sess *session, out *OutputFormatter) error {
				vt, err := lookupType(opts.Type)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid type", err)
				}
				d := prefs.New(sess.stack, prefs.WithLogger(sess.defaults.Logger()), prefs.WithEvaluator(evaluator))
				ok, err := vt.match(d, key, expression, opts.List)
				if err != nil {
					return WrapExitError(ExitCommandError, "rule failed", err)
				}
				if err := out.Success(map[string]any{"key": key, "match": ok}, strconv.FormatBool(ok)); err != nil {
					return err
				}
				if !ok {
					return NewExitError(ExitFailure, "rule did not match")
				}
				return nil
			})
		},
	}
	addValueFlags(cmd, opts, "string")
	cmd.Flags().StringVar(&engine, "engine", prefs.EngineExpr, "rule engine (expr|cel|js)")
	return cmd
}

// RenderPrimitive formats p for text output.
func RenderPrimitive(p store.Primitive) string {
	switch v := p.(type) {
	case nil:
		return "null"
	case store.Bool:
		return strconv.FormatBool(bool(v))
	case store.Int:
		return strconv.FormatInt(int64(v), 10)
	case store.Float:
		return strconv.FormatFloat(float64(v), 'g', -1, 64)
	case store.Text:
		return string(v)
	case store.Data:
		return base64.StdEncoding.EncodeToString(v)
	case store.List:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = RenderPrimitive(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case store.Map:
		keys := v.SortedKeys()
		parts := make([]string, len(keys))
		for i, key := range keys {
			parts[i] = key + ": " + RenderPrimitive(v[key])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprint(p)
	}
}

func renderAny(value any) string {
	if values, ok := value.([]any); ok {
		parts := make([]string, len(values))
		for i, item := range values {
			parts[i] = fmt.Sprint(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprint(value)
}
