// Package config implements the optional --config YAML file from spec §6's
// ambient stack: it merges into the same immutable configuration record the
// CLI flags populate, with CLI flags always taking precedence over the
// file when both set a field.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML shape a --config file may declare. Every field is a
// pointer so "not present in the file" is distinguishable from "present
// and zero", which Merge needs to implement CLI-wins-over-file precedence.
type File struct {
	WalkChildren    *bool             `yaml:"walk_children"`
	WalkDepth       *int              `yaml:"walk_depth"`
	StrictMatching  *bool             `yaml:"strict_matching"`
	DetectConflicts *bool             `yaml:"detect_conflicts"`
	MaxTerms        *int              `yaml:"max_terms"`
	Scheduler       *string           `yaml:"scheduler"`
	SchedulerSeed   *int64            `yaml:"scheduler_seed"`
	SignaturePath   *string           `yaml:"signature"`
	TraceJSONLPath  *string           `yaml:"trace_jsonl"`
	RuleBudgets     map[string]int    `yaml:"rule_budgets"`
	OnlyRules       []string          `yaml:"only_rule"`
	SkipRules       []string          `yaml:"skip_rule"`
	OnlyScales      []int             `yaml:"only_scale"`
	SkipScales      []int             `yaml:"skip_scale"`
}

// Load reads and parses a --config YAML file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &f, nil
}

// Flags is the set of values the CLI layer collected from flags, using
// the same "explicit or not" distinction as File so Merge can tell a
// flag the user actually typed from one left at its zero-value default.
type Flags struct {
	WalkChildren    *bool
	WalkDepth       *int
	StrictMatching  *bool
	DetectConflicts *bool
	MaxTerms        *int
	Scheduler       *string
	SchedulerSeed   *int64
	SignaturePath   *string
	TraceJSONLPath  *string
	RuleBudgets     map[string]int
	OnlyRules       []string
	SkipRules       []string
	OnlyScales      []int
	SkipScales      []int
}

// Merge combines a parsed File with the CLI-collected Flags into one
// effective Resolved configuration, with any flag the user explicitly set
// always overriding the file's value for the same field.
func Merge(file *File, flags Flags) Resolved {
	r := Resolved{}
	if file != nil {
		r.WalkChildren = derefBool(file.WalkChildren)
		r.WalkDepth = derefInt(file.WalkDepth)
		r.HasWalkDepth = file.WalkDepth != nil
		r.StrictMatching = derefBool(file.StrictMatching)
		r.DetectConflicts = derefBool(file.DetectConflicts)
		r.MaxTerms = derefInt(file.MaxTerms)
		r.HasMaxTerms = file.MaxTerms != nil
		r.Scheduler = derefString(file.Scheduler)
		r.SchedulerSeed = derefInt64(file.SchedulerSeed)
		r.SignaturePath = derefString(file.SignaturePath)
		r.TraceJSONLPath = derefString(file.TraceJSONLPath)
		r.RuleBudgets = file.RuleBudgets
		r.OnlyRules = file.OnlyRules
		r.SkipRules = file.SkipRules
		r.OnlyScales = file.OnlyScales
		r.SkipScales = file.SkipScales
	}

	if flags.WalkChildren != nil {
		r.WalkChildren = *flags.WalkChildren
	}
	if flags.WalkDepth != nil {
		r.WalkDepth = *flags.WalkDepth
		r.HasWalkDepth = true
	}
	if flags.StrictMatching != nil {
		r.StrictMatching = *flags.StrictMatching
	}
	if flags.DetectConflicts != nil {
		r.DetectConflicts = *flags.DetectConflicts
	}
	if flags.MaxTerms != nil {
		r.MaxTerms = *flags.MaxTerms
		r.HasMaxTerms = true
	}
	if flags.Scheduler != nil {
		r.Scheduler = *flags.Scheduler
	}
	if flags.SchedulerSeed != nil {
		r.SchedulerSeed = *flags.SchedulerSeed
	}
	if flags.SignaturePath != nil {
		r.SignaturePath = *flags.SignaturePath
	}
	if flags.TraceJSONLPath != nil {
		r.TraceJSONLPath = *flags.TraceJSONLPath
	}
	if flags.RuleBudgets != nil {
		r.RuleBudgets = flags.RuleBudgets
	}
	if flags.OnlyRules != nil {
		r.OnlyRules = flags.OnlyRules
	}
	if flags.SkipRules != nil {
		r.SkipRules = flags.SkipRules
	}
	if flags.OnlyScales != nil {
		r.OnlyScales = flags.OnlyScales
	}
	if flags.SkipScales != nil {
		r.SkipScales = flags.SkipScales
	}
	return r
}

// Resolved is the final, effective configuration after merging file and
// flags — what the rest of the program consumes.
type Resolved struct {
	WalkChildren    bool
	WalkDepth       int
	HasWalkDepth    bool
	StrictMatching  bool
	DetectConflicts bool
	MaxTerms        int
	HasMaxTerms     bool
	Scheduler       string
	SchedulerSeed   int64
	SignaturePath   string
	TraceJSONLPath  string
	RuleBudgets     map[string]int
	OnlyRules       []string
	SkipRules       []string
	OnlyScales      []int
	SkipScales      []int
}

func derefBool(p *bool) bool {
	if p == nil {
		return false
	}
	return *p
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func derefInt64(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
