package intent

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ventabot/ventabot/internal/domain"
	"github.com/ventabot/ventabot/internal/normalize"
)

const (
	// DefaultThreshold is the confidence at which the cascade
	// short-circuits.
	DefaultThreshold = 0.6

	// DefaultContextBonus is added when a detected intent agrees with the
	// current state's accepted set.
	DefaultContextBonus = 0.3

	// noMatchConfidence is assigned when the basic scorer matches nothing.
	noMatchConfidence = 0.3

	// delegatedConfidence is the fixed confidence granted to the external
	// fallback classifier when it returns a non-unknown intent.
	delegatedConfidence = 0.7

	// DefaultClassifyTimeout bounds one delegated classifier call.
	DefaultClassifyTimeout = 10 * time.Second
)

// Classifier is the external keyword-only fallback classifier consulted as
// the cascade's last strategy.
type Classifier interface {
	Classify(ctx context.Context, text string) (domain.Intent, error)
}

// Config tunes the detector's scoring. Zero values fall back to defaults
// so callers can pass Config{} and get spec behavior.
type Config struct {
	Threshold       float64
	ContextBonus    float64
	ClassifyTimeout time.Duration
}

func (c Config) threshold() float64 {
	if c.Threshold > 0 {
		return c.Threshold
	}
	return DefaultThreshold
}

func (c Config) bonus() float64 {
	if c.ContextBonus > 0 {
		return c.ContextBonus
	}
	return DefaultContextBonus
}

func (c Config) classifyTimeout() time.Duration {
	if c.ClassifyTimeout > 0 {
		return c.ClassifyTimeout
	}
	return DefaultClassifyTimeout
}

// Detector runs the strategy cascade. It never returns an error and never
// panics outward; internal failures degrade to an error_fallback result.
type Detector struct {
	cfg        Config
	classifier Classifier
	logger     *slog.Logger
}

// NewDetector creates a detector. classifier may be nil, in which case the
// delegated strategy is skipped.
func NewDetector(cfg Config, classifier Classifier, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{cfg: cfg, classifier: classifier, logger: logger}
}

// Detect classifies one utterance given the session context. Strategies
// run in strict order and short-circuit at the confidence threshold. For
// voice turns the phonetic strategy runs immediately after the basic one,
// since transcription noise is the dominant failure mode there.
func (d *Detector) Detect(ctx context.Context, text string, sess *domain.Session, isVoice bool) (result domain.IntentResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("intent detector panic recovered", slog.Any("panic", r))
			result = domain.IntentResult{
				Intent:       domain.IntentUnknown,
				Confidence:   0,
				Strategy:     domain.StrategyErrorFallback,
				OriginalText: text,
			}
		}
	}()

	norm := normalize.Normalize(text)
	base := domain.IntentResult{
		Intent:         domain.IntentUnknown,
		Strategy:       domain.StrategyFallback,
		NormalizedText: norm,
		OriginalText:   text,
	}
	if norm == "" {
		base.Confidence = 0
		return base
	}

	threshold := d.cfg.threshold()

	strategies := []func(context.Context, string, *domain.Session) (domain.Intent, float64, domain.Strategy){
		d.basic,
		d.contextual,
		d.phonetic,
		d.delegated,
	}
	if isVoice {
		strategies = []func(context.Context, string, *domain.Session) (domain.Intent, float64, domain.Strategy){
			d.basic,
			d.phonetic,
			d.contextual,
			d.delegated,
		}
	}

	best := base
	best.Confidence = 0
	var maxConf float64
	for _, strat := range strategies {
		in, conf, name := strat(ctx, norm, sess)
		if conf > maxConf {
			maxConf = conf
		}
		if in != domain.IntentUnknown && conf > best.Confidence {
			best.Intent = in
			best.Confidence = conf
			best.Strategy = name
		}
		if best.Confidence >= threshold {
			return best
		}
	}

	// Nothing crossed the threshold: report unknown with the best score
	// seen so far so the router can still weigh it.
	base.Confidence = maxConf
	return base
}

// basic scores weighted keyword hits against the fixed table.
func (d *Detector) basic(_ context.Context, norm string, _ *domain.Session) (domain.Intent, float64, domain.Strategy) {
	in, conf := scoreKeywords(norm)
	return in, conf, domain.StrategyBasic
}

// contextual re-scores restricted to the current state's accepted intent
// set, with a fixed bonus for agreement. Digits-only input in a state that
// collects a number is recognized directly.
func (d *Detector) contextual(_ context.Context, norm string, sess *domain.Session) (domain.Intent, float64, domain.Strategy) {
	if sess == nil {
		return domain.IntentUnknown, 0, domain.StrategyContextual
	}

	if stateWantsDigits(sess.State) && normalize.IsDigits(strings.ReplaceAll(norm, " ", "")) {
		return domain.IntentPhone, capConfidence(delegatedConfidence + d.cfg.bonus()), domain.StrategyContextual
	}

	accepted := AcceptedIntents(sess.State)
	if len(accepted) == 0 {
		return domain.IntentUnknown, 0, domain.StrategyContextual
	}

	in, conf := scoreKeywords(norm)
	for _, a := range accepted {
		if in == a {
			return in, capConfidence(conf + d.cfg.bonus()), domain.StrategyContextual
		}
	}
	return domain.IntentUnknown, 0, domain.StrategyContextual
}

// phonetic substitutes common mispronunciation variants, then re-runs the
// basic scorer.
func (d *Detector) phonetic(_ context.Context, norm string, _ *domain.Session) (domain.Intent, float64, domain.Strategy) {
	tokens := tokenize(norm)
	changed := false
	for i, t := range tokens {
		if canonical, ok := phoneticVariants[t]; ok {
			tokens[i] = canonical
			changed = true
		}
	}
	if !changed {
		return domain.IntentUnknown, 0, domain.StrategyPhonetic
	}
	in, conf := scoreKeywords(strings.Join(tokens, " "))
	return in, conf, domain.StrategyPhonetic
}

// delegated hands the text to the external fallback classifier and accepts
// its verdict at a fixed medium confidence.
func (d *Detector) delegated(ctx context.Context, norm string, _ *domain.Session) (domain.Intent, float64, domain.Strategy) {
	if d.classifier == nil {
		return domain.IntentUnknown, 0, domain.StrategyDelegated
	}
	ctx, cancel := context.WithTimeout(ctx, d.cfg.classifyTimeout())
	defer cancel()
	in, err := d.classifier.Classify(ctx, norm)
	if err != nil {
		d.logger.Warn("delegated classifier failed", slog.String("error", err.Error()))
		return domain.IntentUnknown, 0, domain.StrategyDelegated
	}
	if in == domain.IntentUnknown || in == "" {
		return domain.IntentUnknown, 0, domain.StrategyDelegated
	}
	return in, delegatedConfidence, domain.StrategyDelegated
}

// scoreKeywords is the shared weighted scorer: highest total weight wins,
// confidence is the mean matched weight capped at 1.0.
func scoreKeywords(norm string) (domain.Intent, float64) {
	tokens := tokenize(norm)
	if len(tokens) == 0 {
		return domain.IntentUnknown, 0
	}

	tokenSet := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		tokenSet[t] = true
	}

	type candidate struct {
		intent domain.Intent
		total  float64
		hits   int
	}
	var candidates []candidate
	for in, kws := range weights {
		var total float64
		hits := 0
		for kw, w := range kws {
			if tokenSet[kw] {
				total += w
				hits++
			}
		}
		if hits > 0 {
			candidates = append(candidates, candidate{intent: in, total: total, hits: hits})
		}
	}
	if len(candidates) == 0 {
		return domain.IntentUnknown, noMatchConfidence
	}

	// Deterministic winner on equal totals.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].total != candidates[j].total {
			return candidates[i].total > candidates[j].total
		}
		return candidates[i].intent < candidates[j].intent
	})
	win := candidates[0]
	return win.intent, capConfidence(win.total / float64(win.hits))
}

func capConfidence(c float64) float64 {
	if c > 1.0 {
		return 1.0
	}
	return c
}

func tokenize(s string) []string {
	return strings.Fields(s)
}

func stateWantsDigits(s domain.State) bool {
	switch s {
	case domain.StateAwaitingPhone, domain.StateAwaitingSMSCode,
		domain.StateAwaitingRegDNI, domain.StateAwaitingTempDNI:
		return true
	}
	return false
}
