package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"termweave/internal/guard"
	"termweave/internal/logging"
	"termweave/internal/metrics"
	"termweave/internal/program"
	"termweave/internal/rule"
	"termweave/internal/runtime"
	"termweave/internal/scheduler"
	"termweave/internal/signature"
	"termweave/internal/snapshot"
	"termweave/internal/term"
	"termweave/internal/trace"
)

// Result is what a completed Execute call reports back to main.
type Result struct {
	ExitCode int
	Summary  *Summary
}

// Execute runs one canonicalized Invocation to completion (or to a halt
// condition) and maps the outcome to a semantic exit code.
func Execute(ctx context.Context, inv Invocation) (res Result, execErr error) {
	res.ExitCode = ExitIOFailure

	log, err := logging.New(inv.JSONLogs, inv.Debug)
	if err != nil {
		return res, fmt.Errorf("cli: building logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	runID := uuid.New().String()
	log = log.With(zap.String("run_id", runID))

	src, err := readProgramSource(inv.ProgramPath)
	if err != nil {
		logging.LogFatal(log, logging.CategoryIO, err)
		return res, err
	}

	prog, err := program.Parse(src)
	if err != nil {
		logging.LogFatal(log, logging.CategoryValidation, err)
		res.ExitCode = ExitValidationError
		return res, err
	}

	if inv.DetectConflicts {
		if err := rule.CheckConflicts(prog.Rules); err != nil {
			logging.LogFatal(log, logging.CategoryValidation, err)
			res.ExitCode = ExitValidationError
			return res, err
		}
	}

	validator, sigParseErr, err := loadValidator(inv.SignaturePath)
	if err != nil {
		logging.LogFatal(log, logging.CategoryIO, err)
		return res, err
	}
	if sigParseErr != nil {
		logging.LogFatal(log, logging.CategorySignature, sigParseErr)
		res.ExitCode = ExitValidationError
		return res, sigParseErr
	}

	maxTerms := 0
	if inv.HasMaxTerms {
		maxTerms = inv.MaxTerms
	}
	guardCfg := prog.GuardConfig(maxTerms, inv.RuleBudgets, inv.OnlyRules, inv.SkipRules, inv.OnlyScales, inv.SkipScales)

	backend, closeBackend, err := openBackend(inv)
	if err != nil {
		logging.LogFatal(log, logging.CategoryIO, err)
		return res, err
	}
	defer closeBackend()

	var store *term.Store
	var sched scheduler.Scheduler
	var guards *guard.Guards
	var restoredDoc *snapshot.Doc

	if inv.LoadStorePath != "" {
		doc, err := snapshot.Load(inv.LoadStorePath)
		if err != nil {
			logging.LogFatal(log, logging.CategoryIO, err)
			return res, err
		}
		restoredStore, restoredSched, restoredGuards, err := snapshot.Restore(doc, backend, validator)
		if err != nil {
			logging.LogFatal(log, logging.CategoryIO, err)
			return res, err
		}
		store, sched = restoredStore, restoredSched

		// A snapshot carries no max_steps per spec §6's stable key list;
		// re-apply this invocation's program budget on top of the
		// restored rule/term budgets before resuming.
		guardCfg.MaxSteps = prog.MaxSteps
		guardCfg.RuleBudgets = doc.RuleBudgets
		guardCfg.IncludeRules = doc.IncludeRules
		guardCfg.ExcludeRules = doc.ExcludeRules
		guardCfg.IncludeScales = doc.IncludeScales
		guardCfg.ExcludeScales = doc.ExcludeScales
		guards, err = guard.New(guardCfg)
		if err != nil {
			logging.LogFatal(log, logging.CategoryGuard, err)
			res.ExitCode = ExitValidationError
			return res, err
		}
		guards.Restore(restoredGuards.State())
		restoredDoc = &doc
	} else {
		guards, err = guard.New(guardCfg)
		if err != nil {
			logging.LogFatal(log, logging.CategoryGuard, err)
			res.ExitCode = ExitValidationError
			return res, err
		}
		store = term.New(backend, validator, maxTerms)
	}

	schedKind := scheduler.Kind(inv.Scheduler)
	if sched == nil {
		sched, err = scheduler.New(schedKind, inv.SchedulerSeed)
		if err != nil {
			logging.LogFatal(log, logging.CategoryValidation, err)
			res.ExitCode = ExitValidationError
			return res, err
		}
	}

	if inv.EmitOTelTraces {
		shutdownOTel, err := trace.InitOTelProvider()
		if err != nil {
			logging.LogFatal(log, logging.CategoryIO, err)
			return res, err
		}
		defer func() { _ = shutdownOTel(context.Background()) }()
	}

	sink, closeSink, err := buildSink(inv, log)
	if err != nil {
		logging.LogFatal(log, logging.CategoryIO, err)
		return res, err
	}
	defer closeSink()

	rt := runtime.New(store, sched, guards, sink, runtime.Config{
		Rules:          prog.Rules,
		WalkChildren:   inv.WalkChildren,
		WalkDepth:      inv.WalkDepth,
		HasWalkDepth:   inv.HasWalkDepth,
		StrictMatching: inv.StrictMatching,
	})

	var root term.ID
	if restoredDoc != nil {
		root = restoredDoc.Root
		if err := rt.Seed(restoredDoc.Root, restoredDoc.Frontier, restoredDoc.Processed); err != nil {
			logging.LogFatal(log, logging.CategoryIO, err)
			return res, err
		}
	} else {
		root, err = rt.Load(prog.Root)
		if err != nil {
			logging.LogFatal(log, logging.CategoryIO, err)
			return res, err
		}
	}

	if inv.DryRun {
		res.ExitCode = ExitSuccess
		res.Summary = &Summary{ProgramPath: inv.ProgramPath, RunID: runID, Root: root, DryRun: true}
		return res, nil
	}

	var reg *metrics.Registry
	var stopMetrics func()
	if inv.MetricsAddr != "" {
		reg = metrics.New()
		metricsCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- reg.Serve(metricsCtx, inv.MetricsAddr) }()
		stopMetrics = func() {
			cancel()
			<-done
		}
		defer stopMetrics()
	}

	var runErr error
	if prog.MaxSteps > 0 {
		_, runErr = rt.Run(prog.MaxSteps)
	} else {
		_, runErr = rt.RunUntilIdle()
	}

	stats, statsErr := rt.Stats()
	if statsErr != nil {
		logging.LogFatal(log, logging.CategoryIO, statsErr)
		return res, statsErr
	}

	if reg != nil {
		for name, n := range stats.RuleCounts {
			reg.RuleFires.WithLabelValues(name).Add(float64(n))
		}
		for scale, n := range stats.ScaleCounts {
			reg.ScaleFires.WithLabelValues(fmt.Sprintf("%d", scale)).Add(float64(n))
		}
		reg.StoreSize.Set(float64(stats.StoreSize))
		reg.Frontier.Set(float64(stats.FrontierSize))
		if stats.TermLimitExhausted {
			reg.TermLimitExhausted.Set(1)
		} else {
			reg.TermLimitExhausted.Set(0)
		}
	}

	if runErr != nil {
		var ambiguous *rule.AmbiguousMatchError
		if errors.As(runErr, &ambiguous) {
			logging.LogFatal(log, logging.CategoryAmbiguous, runErr)
			res.ExitCode = ExitGuardFailure
			return res, runErr
		}
		var sigErr *signature.ValidationError
		if errors.As(runErr, &sigErr) {
			logging.LogFatal(log, logging.CategorySignature, runErr)
			res.ExitCode = ExitValidationError
			return res, runErr
		}
		logging.LogFatal(log, logging.CategoryGuard, runErr)
		res.ExitCode = ExitGuardFailure
		return res, runErr
	}

	if stats.TermLimitExhausted {
		logging.LogGuardWarning(log, "term limit exhausted")
	}
	if len(stats.RuleBudgetExhausted) > 0 {
		logging.LogGuardWarning(log, "rule budgets exhausted", zap.Strings("rules", stats.RuleBudgetExhausted))
	}

	if inv.StoreJSONPath != "" {
		doc, err := snapshot.Build(rt, snapshotFilters(inv))
		if err != nil {
			logging.LogFatal(log, logging.CategoryIO, err)
			return res, err
		}
		if err := snapshot.Save(inv.StoreJSONPath, doc); err != nil {
			logging.LogFatal(log, logging.CategoryIO, err)
			return res, err
		}
	}

	res.ExitCode = ExitSuccess
	res.Summary = BuildSummary(inv, prog, runID, root, stats)
	return res, nil
}

// loadValidator reads and parses a --signature file. The two error
// returns are deliberately distinct: an I/O failure (unreadable file) maps
// to ExitIOFailure, while a malformed or invalid signature document maps
// to ExitValidationError.
func loadValidator(path string) (validator term.Validator, parseErr error, ioErr error) {
	if path == "" {
		return nil, nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cli: reading signature %s: %w", path, err)
	}
	sig, err := signature.Parse(data)
	if err != nil {
		return nil, err, nil
	}
	return sig, nil, nil
}

func openBackend(inv Invocation) (term.Backend, func(), error) {
	switch inv.StoreBackend {
	case "badger":
		b, err := term.OpenBadgerBackend(inv.BadgerDir)
		if err != nil {
			return nil, nil, fmt.Errorf("cli: opening badger backend: %w", err)
		}
		return b, func() { _ = b.Close() }, nil
	default:
		return term.NewMemoryBackend(), func() {}, nil
	}
}

func buildSink(inv Invocation, log *zap.Logger) (*trace.DetachingSink, func(), error) {
	named := make(map[string]trace.Sink)
	if inv.TraceJSONLPath != "" {
		s, err := trace.NewJSONLSink(inv.TraceJSONLPath)
		if err != nil {
			return nil, nil, fmt.Errorf("cli: opening trace sink: %w", err)
		}
		named["jsonl"] = s
	}
	if inv.EmitOTelTraces {
		named["otel"] = trace.NewOTelSink("termweave")
	}
	if len(named) == 0 {
		return nil, func() {}, nil
	}
	onWarn := func(name string, err error) {
		log.Warn("trace sink detached", zap.String("sink", name), zap.Error(err))
	}
	sink := trace.NewDetachingSink(onWarn, named)
	return sink, sink.Close, nil
}

func snapshotFilters(inv Invocation) snapshot.Filters {
	return snapshot.Filters{
		WalkChildren:    inv.WalkChildren,
		WalkDepth:       inv.WalkDepth,
		HasWalkDepth:    inv.HasWalkDepth,
		StrictMatching:  inv.StrictMatching,
		DetectConflicts: inv.DetectConflicts,
		IncludeRules:    inv.OnlyRules,
		ExcludeRules:    inv.SkipRules,
		IncludeScales:   inv.OnlyScales,
		ExcludeScales:   inv.SkipScales,
		MaxTerms:        inv.MaxTerms,
		HasMaxTerms:     inv.HasMaxTerms,
	}
}

func readProgramSource(path string) (string, error) {
	if path == "-" || path == "" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("cli: reading program from stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cli: reading program %s: %w", path, err)
	}
	return string(b), nil
}
