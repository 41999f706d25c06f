// Package kpi computes config-driven indicators, fit scores,
// migration signals and insight messages from behaviour features.
// All thresholds live in the profile; nothing is hardcoded here.
package kpi

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/expr"
	"github.com/opensource-finance/heron/internal/tariff"
)

// Score bounds for the account fit score.
const (
	minScore         = 0
	maxScore         = 100
	defaultBasePoint = 100
)

// Engine compiles KPI profiles once and evaluates them per customer.
// It is safe for concurrent use after profiles are loaded.
type Engine struct {
	mu        sync.RWMutex
	evaluator *expr.Evaluator
	profiles  map[string]*compiledProfile
}

// compiledKPI pairs a definition with its compiled formula. A
// compile failure is carried, not raised: the indicator reports
// unavailable at evaluation time.
type compiledKPI struct {
	def        domain.KPIDefinition
	program    *expr.Compiled
	compileErr error
}

type compiledProfile struct {
	profile *domain.KPIProfile
	kpis    []compiledKPI
}

// NewEngine creates a KPI engine with an empty profile set.
func NewEngine() (*Engine, error) {
	evaluator, err := expr.NewEvaluator()
	if err != nil {
		return nil, fmt.Errorf("failed to create formula evaluator: %w", err)
	}
	return &Engine{
		evaluator: evaluator,
		profiles:  make(map[string]*compiledProfile),
	}, nil
}

// LoadProfile compiles and registers a profile under its name.
// Malformed formulas do not fail the load; the affected indicators
// evaluate as unavailable.
func (e *Engine) LoadProfile(p *domain.KPIProfile) error {
	if p == nil || p.Name == "" {
		return fmt.Errorf("kpi profile with a name is required")
	}

	compiled := &compiledProfile{profile: p}
	for _, def := range p.KPIs {
		ck := compiledKPI{def: def}
		if def.ExcessUsage == nil {
			ck.program, ck.compileErr = e.evaluator.Compile(def.Formula)
		}
		compiled.kpis = append(compiled.kpis, ck)
	}

	e.mu.Lock()
	e.profiles[p.Name] = compiled
	e.mu.Unlock()
	return nil
}

// LoadProfiles registers multiple profiles.
func (e *Engine) LoadProfiles(profiles []*domain.KPIProfile) error {
	for _, p := range profiles {
		if err := e.LoadProfile(p); err != nil {
			return err
		}
	}
	return nil
}

// ProfileCount returns the number of loaded profiles.
func (e *Engine) ProfileCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.profiles)
}

// Compute runs the full KPI pipeline for one customer against one
// account: indicator values, fired signals, fit score, insights and
// benefit utilisation. It returns an error only when the profile
// name is not loaded; indicator failures surface as unavailable
// values.
func (e *Engine) Compute(profileName string, account *domain.AccountConfig, feats *domain.Features) (domain.KPISummary, error) {
	e.mu.RLock()
	compiled, ok := e.profiles[profileName]
	e.mu.RUnlock()
	if !ok {
		return domain.KPISummary{}, fmt.Errorf("kpi profile %q is not loaded", profileName)
	}

	p := compiled.profile
	vars := buildNamespace(p, account, feats)

	summary := domain.KPISummary{ProfileName: p.Name}

	for _, ck := range compiled.kpis {
		value := e.computeKPI(ck, account, vars)
		summary.Values = append(summary.Values, value)

		sig := ck.def.Signal
		if sig == nil || !value.Available {
			continue
		}
		if signalFires(sig, value.Value) {
			summary.Signals = append(summary.Signals, sig.Name)
			if msg := renderInsight(ck.def, value.Value); msg != "" {
				summary.Insights = append(summary.Insights, msg)
			}
		}
	}

	summary.FitScore = fitScore(p, compiled, summary.Signals)

	if len(summary.Insights) == 0 && p.GoodFitMessage != "" {
		summary.Insights = append(summary.Insights, p.GoodFitMessage)
	}

	summary.Benefits = computeBenefits(p, account, feats)

	return summary, nil
}

// buildNamespace merges features, profile constants and the account
// free tier counts into the formula namespace. Later sources win on
// name collision.
func buildNamespace(p *domain.KPIProfile, account *domain.AccountConfig, feats *domain.Features) map[string]float64 {
	vars := feats.Vars()
	for name, v := range p.Constants {
		vars[name] = v
	}
	if account != nil {
		for name, n := range account.FreeTier.Counts {
			vars[name] = float64(n)
		}
	}
	return vars
}

func (e *Engine) computeKPI(ck compiledKPI, account *domain.AccountConfig, vars map[string]float64) domain.KPIValue {
	value := domain.KPIValue{Name: ck.def.Name}

	if ck.def.ExcessUsage != nil {
		value.Value = excessUsageCost(ck.def.ExcessUsage, account, vars)
		value.Available = true
		return value
	}

	if ck.compileErr != nil {
		value.Reason = ck.compileErr.Error()
		return value
	}

	for _, input := range ck.def.Inputs {
		if _, ok := vars[input]; !ok {
			value.Reason = fmt.Sprintf("input %q is not available", input)
			return value
		}
	}

	result, err := ck.program.Eval(vars)
	if err != nil {
		value.Reason = err.Error()
		return value
	}

	value.Value = result.AsNumber()
	value.Available = true
	return value
}

// excessUsageCost prices usage beyond the free allowance. Every
// started step of excess events costs the step fee; usage at or
// under the allowance costs nothing.
func excessUsageCost(spec *domain.ExcessUsageSpec, account *domain.AccountConfig, vars map[string]float64) float64 {
	used := int(vars[spec.UsageKey])

	allowance := 0
	if account != nil {
		allowance = account.FreeTier.Counts[spec.AllowanceName]
	}

	excess := used - allowance
	if excess <= 0 {
		return 0
	}

	steps := (excess + spec.StepSize - 1) / spec.StepSize
	return tariff.Round2(float64(steps) * spec.StepFee)
}

func signalFires(sig *domain.SignalSpec, value float64) bool {
	switch sig.Operator {
	case domain.OpGT:
		return value > sig.Threshold
	case domain.OpGTE:
		return value >= sig.Threshold
	case domain.OpLT:
		return value < sig.Threshold
	case domain.OpLTE:
		return value <= sig.Threshold
	case domain.OpEQ:
		return value == sig.Threshold
	default:
		return false
	}
}

// fitScore starts at the profile base and deducts each fired
// signal's penalty, clamped to [0, 100] and rounded to one decimal.
func fitScore(p *domain.KPIProfile, compiled *compiledProfile, fired []string) float64 {
	base := p.BasePoints
	if base == 0 {
		base = defaultBasePoint
	}

	penalties := make(map[string]float64)
	for _, ck := range compiled.kpis {
		if ck.def.Signal != nil {
			penalties[ck.def.Signal.Name] = ck.def.Signal.Penalty
		}
	}

	score := base
	for _, name := range fired {
		score -= penalties[name]
	}

	if score < minScore {
		score = minScore
	}
	if score > maxScore {
		score = maxScore
	}
	return round1(score)
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// renderInsight fills the {kpi}, {value} and {threshold}
// placeholders of the definition's insight template.
func renderInsight(def domain.KPIDefinition, value float64) string {
	if def.Insight == "" {
		return ""
	}
	msg := strings.ReplaceAll(def.Insight, "{kpi}", def.Name)
	msg = strings.ReplaceAll(msg, "{value}", formatNumber(value))
	if def.Signal != nil {
		msg = strings.ReplaceAll(msg, "{threshold}", formatNumber(def.Signal.Threshold))
	}
	return msg
}

// formatNumber prints a value without trailing zeros, keeping at
// most two decimals.
func formatNumber(v float64) string {
	s := strconv.FormatFloat(tariff.Round2(v), 'f', -1, 64)
	return s
}

// computeBenefits reports how each bundled perk was consumed.
// Allowances resolve from the account free tier: a count maps to
// remaining units, an inclusion flag maps to included.
func computeBenefits(p *domain.KPIProfile, account *domain.AccountConfig, feats *domain.Features) []domain.BenefitUsage {
	if len(p.Benefits) == 0 || account == nil {
		return nil
	}

	vars := feats.Vars()
	usages := make([]domain.BenefitUsage, 0, len(p.Benefits))

	for _, bdef := range p.Benefits {
		usage := domain.BenefitUsage{
			Name: bdef.Name,
			Used: int(vars[bdef.UsageKey]),
		}

		if allowance, ok := account.FreeTier.Counts[bdef.AllowanceName]; ok {
			usage.Counted = true
			usage.Allowance = allowance
			if remaining := allowance - usage.Used; remaining > 0 {
				usage.Remaining = remaining
			}
		} else if account.FreeTier.Included[bdef.AllowanceName] {
			usage.Included = true
		}

		usages = append(usages, usage)
	}

	return usages
}
