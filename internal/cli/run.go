package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// NewRootCommand builds the termweave cobra command tree. main.go and Run
// both go through this so flag definitions live in exactly one place.
func NewRootCommand(out *Result) *cobra.Command {
	var fv flagVars

	cmd := &cobra.Command{
		Use:           "termweave [program]",
		Short:         "Run a term-rewriting program",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			programPath := "-"
			if len(args) == 1 {
				programPath = args[0]
			}
			clearUnchangedFlags(cmd.Flags(), &fv)
			inv, err := resolveInvocation(fv, programPath)
			if err != nil {
				*out = Result{ExitCode: ExitCode(err)}
				return err
			}
			res, err := Execute(cmd.Context(), inv)
			*out = res
			return err
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&fv.dryRun, "dry-run", false, "parse and validate the program without running it")
	flags.StringVar(&fv.traceJSONL, "trace-jsonl", "", "write one JSON line per rewrite event to this path")
	flags.BoolVar(&fv.otelTraces, "otel-traces", false, "emit an OpenTelemetry span per rewrite event")

	fv.walkChildren = flags.Bool("walk-children", false, "schedule a rewritten term's children for consideration")
	fv.walkDepth = flags.Int("walk-depth", 0, "limit child scheduling to this depth below each scheduled term (unlimited when not set)")
	fv.strictMatching = flags.Bool("strict-matching", false, "fail the run if more than one rule matches a term")
	fv.detectConflicts = flags.Bool("detect-conflicts", false, "reject the program at load time if two rules deterministically overlap")
	fv.maxTerms = flags.Int("max-terms", 0, "cap the number of interned terms (0 means unbounded)")
	fv.scheduler = flags.String("scheduler", "fifo", "frontier strategy: fifo|lifo|random")
	fv.schedulerSeed = flags.Int64("scheduler-seed", 0, "seed for the random scheduler")
	fv.signaturePath = flags.String("signature", "", "path to a signature JSON file constraining term shapes")

	flags.StringVar(&fv.storeJSON, "store-json", "", "write the final store and run state to this snapshot path")
	flags.StringVar(&fv.loadStore, "load-store", "", "resume from a snapshot written by --store-json")
	flags.BoolVar(&fv.stepsOnly, "steps-only", false, "omit the per-rule and per-scale breakdown from the summary")

	flags.StringArrayVar(&fv.ruleBudgets, "rule-budget", nil, "name=N fire budget for a rule (repeatable)")
	flags.StringArrayVar(&fv.onlyRules, "only-rule", nil, "restrict firing to this rule (repeatable)")
	flags.StringArrayVar(&fv.skipRules, "skip-rule", nil, "never fire this rule (repeatable)")
	flags.IntSliceVar(&fv.onlyScales, "only-scale", nil, "restrict rewriting to this scale (repeatable)")
	flags.IntSliceVar(&fv.skipScales, "skip-scale", nil, "never rewrite at this scale (repeatable)")

	flags.StringVar(&fv.configPath, "config", "", "YAML config file; explicit flags always override it")
	flags.StringVar(&fv.storeBackend, "store-backend", "memory", "term store backend: memory|badger")
	flags.StringVar(&fv.badgerDir, "badger-dir", "", "on-disk directory for the badger backend")
	flags.StringVar(&fv.metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address for the run's duration")
	flags.BoolVar(&fv.debug, "debug", false, "enable debug-level logging")
	flags.BoolVar(&fv.jsonLogs, "json-logs", false, "emit structured JSON logs instead of console output")

	return cmd
}

// clearUnchangedFlags nils out any flagVars pointer whose flag the user
// never actually typed. cobra's flags.Bool/Int/String accessors always
// return a non-nil pointer already holding the registered default, so
// without this pass resolveInvocation could never tell "left at default"
// from "explicitly set to the default value" and a --config file's value
// for that field would always lose to the flag's default.
func clearUnchangedFlags(flags *pflag.FlagSet, fv *flagVars) {
	if !flags.Changed("walk-children") {
		fv.walkChildren = nil
	}
	if !flags.Changed("walk-depth") {
		fv.walkDepth = nil
	}
	if !flags.Changed("strict-matching") {
		fv.strictMatching = nil
	}
	if !flags.Changed("detect-conflicts") {
		fv.detectConflicts = nil
	}
	if !flags.Changed("max-terms") {
		fv.maxTerms = nil
	}
	if !flags.Changed("scheduler") {
		fv.scheduler = nil
	}
	if !flags.Changed("scheduler-seed") {
		fv.schedulerSeed = nil
	}
	if !flags.Changed("signature") {
		fv.signaturePath = nil
	}
}

// Run is a high-level entrypoint suitable for black-box tests: it accepts
// the argument slice (excluding argv[0]) and returns the semantic exit
// code plus any error. It touches no process-global state, apart from the
// global OpenTelemetry tracer provider installed when --otel-traces is set.
func Run(ctx context.Context, args []string) (Result, error) {
	var res Result
	cmd := NewRootCommand(&res)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err != nil && res.ExitCode == ExitSuccess {
		res.ExitCode = ExitCode(err)
	}
	return res, err
}

// ExitCode extracts a semantic exit code from an error returned before
// Execute ran (i.e. an invocation-time validation failure).
func ExitCode(err error) int {
	var invErr *InvocationError
	if errors.As(err, &invErr) {
		return invErr.ExitCode
	}
	if err == nil {
		return ExitSuccess
	}
	return ExitValidationError
}
