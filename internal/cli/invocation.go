// Package cli canonicalizes process arguments into an Invocation, runs a
// program against the engine, and maps the outcome to one of the
// semantic exit codes a shell script can depend on.
package cli

import (
	"fmt"
	"strconv"
	"strings"

	"termweave/internal/config"
)

const (
	ExitSuccess         = 0
	ExitValidationError = 2
	ExitGuardFailure    = 3
	ExitIOFailure       = 4
)

// InvocationError carries the exit code a parsing failure should produce.
type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func validationErrorf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitValidationError, Message: fmt.Sprintf(format, args...)}
}

// Invocation is the fully canonicalized description of one termweave run,
// after merging any --config file with the flags the user actually typed.
type Invocation struct {
	ProgramPath string // "-" means stdin
	DryRun      bool

	EmitOTelTraces bool

	config.Resolved

	StoreJSONPath string
	LoadStorePath string

	StepsOnly bool

	StoreBackend string // "memory" or "badger"
	BadgerDir    string

	MetricsAddr string // empty disables the /metrics server

	Debug    bool
	JSONLogs bool
}

// flagVars mirrors Invocation but with presence-tracking pointers, so
// Merge can tell "the user typed this flag" from "left at zero value".
type flagVars struct {
	dryRun bool

	traceJSONL string
	otelTraces bool

	walkChildren    *bool
	walkDepth       *int
	strictMatching  *bool
	detectConflicts *bool
	maxTerms        *int
	scheduler       *string
	schedulerSeed   *int64
	signaturePath   *string

	storeJSON string
	loadStore string
	stepsOnly bool

	ruleBudgets []string
	onlyRules   []string
	skipRules   []string
	onlyScales  []int
	skipScales  []int

	configPath string

	storeBackend string
	badgerDir    string

	metricsAddr string

	debug    bool
	jsonLogs bool
}

func resolveInvocation(fv flagVars, programPath string) (Invocation, error) {
	var file *config.File
	if fv.configPath != "" {
		f, err := config.Load(fv.configPath)
		if err != nil {
			return Invocation{}, fmt.Errorf("cli: %w", err)
		}
		file = f
	}

	ruleBudgets, err := parseRuleBudgets(fv.ruleBudgets)
	if err != nil {
		return Invocation{}, validationErrorf("%v", err)
	}

	flags := config.Flags{
		WalkChildren:    fv.walkChildren,
		WalkDepth:       fv.walkDepth,
		StrictMatching:  fv.strictMatching,
		DetectConflicts: fv.detectConflicts,
		MaxTerms:        fv.maxTerms,
		Scheduler:       fv.scheduler,
		SchedulerSeed:   fv.schedulerSeed,
		SignaturePath:   fv.signaturePath,
		TraceJSONLPath:  nonEmptyPtr(fv.traceJSONL),
		RuleBudgets:     ruleBudgets,
		OnlyRules:       fv.onlyRules,
		SkipRules:       fv.skipRules,
		OnlyScales:      fv.onlyScales,
		SkipScales:      fv.skipScales,
	}

	resolved := config.Merge(file, flags)

	if resolved.Scheduler == "" {
		resolved.Scheduler = "fifo"
	}
	switch resolved.Scheduler {
	case "fifo", "lifo", "random":
	default:
		return Invocation{}, validationErrorf("unknown --scheduler %q (expected fifo|lifo|random)", resolved.Scheduler)
	}

	storeBackend := fv.storeBackend
	if storeBackend == "" {
		storeBackend = "memory"
	}
	if storeBackend != "memory" && storeBackend != "badger" {
		return Invocation{}, validationErrorf("unknown --store-backend %q (expected memory|badger)", storeBackend)
	}
	if storeBackend == "badger" && fv.badgerDir == "" {
		return Invocation{}, validationErrorf("--store-backend badger requires --badger-dir")
	}

	return Invocation{
		ProgramPath:    programPath,
		DryRun:         fv.dryRun,
		EmitOTelTraces: fv.otelTraces,
		Resolved:       resolved,
		StoreJSONPath:  fv.storeJSON,
		LoadStorePath:  fv.loadStore,
		StepsOnly:      fv.stepsOnly,
		StoreBackend:   storeBackend,
		BadgerDir:      fv.badgerDir,
		MetricsAddr:    fv.metricsAddr,
		Debug:          fv.debug,
		JSONLogs:       fv.jsonLogs,
	}, nil
}

func nonEmptyPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func parseRuleBudgets(pairs []string) (map[string]int, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]int, len(pairs))
	for _, p := range pairs {
		name, val, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("--rule-budget expects name=N, got %q", p)
		}
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("--rule-budget %q: budget must be a non-negative integer", p)
		}
		out[name] = n
	}
	return out, nil
}
