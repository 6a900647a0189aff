// Package router turns one inbound customer turn into exactly one
// Decision. Steps run in a fixed precedence order; the first step that
// returns a decision wins, and a floor reply guarantees the customer is
// never left without an answer.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ventabot/ventabot/internal/ai"
	"github.com/ventabot/ventabot/internal/commerce"
	"github.com/ventabot/ventabot/internal/domain"
	"github.com/ventabot/ventabot/internal/history"
	"github.com/ventabot/ventabot/internal/intent"
	"github.com/ventabot/ventabot/internal/normalize"
	"github.com/ventabot/ventabot/internal/session"
)

const (
	// DefaultOrderParseTimeout bounds the AI structured order extraction.
	DefaultOrderParseTimeout = 30 * time.Second

	// DefaultGenerateTimeout bounds AI free-text fallback generation.
	DefaultGenerateTimeout = 20 * time.Second
)

// Config tunes the router. Zero values fall back to defaults.
type Config struct {
	OrderParseTimeout time.Duration
	GenerateTimeout   time.Duration
	History           history.Budget
}

func (c Config) orderParseTimeout() time.Duration {
	if c.OrderParseTimeout > 0 {
		return c.OrderParseTimeout
	}
	return DefaultOrderParseTimeout
}

func (c Config) generateTimeout() time.Duration {
	if c.GenerateTimeout > 0 {
		return c.GenerateTimeout
	}
	return DefaultGenerateTimeout
}

// Input is one inbound turn with the session it belongs to. History is the
// recent window loaded by the engine, oldest first.
type Input struct {
	Raw        string
	Normalized string
	Session    *domain.Session
	History    []domain.Turn
	IsVoice    bool
}

// step is one stage of the precedence pipeline. A nil decision with a nil
// error means "not mine, fall through"; an error also falls through but is
// logged with the step name.
type step struct {
	name string
	run  func(ctx context.Context, in *Input) (*domain.Decision, error)
}

// Router owns the precedence pipeline.
type Router struct {
	detector *intent.Detector
	ai       ai.Collaborator
	commerce commerce.API
	windower *history.Windower
	cfg      Config
	logger   *slog.Logger
	tracer   trace.Tracer
	steps    []step
}

// New creates a Router. ai may be nil; the AI-backed steps then fall
// through to the deterministic fallback tree.
func New(detector *intent.Detector, collab ai.Collaborator, api commerce.API, cfg Config, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		detector: detector,
		ai:       collab,
		commerce: api,
		windower: history.NewWindower(),
		cfg:      cfg,
		logger:   logger,
		tracer:   otel.Tracer("ventabot/router"),
	}
	r.steps = []step{
		{name: "quick_command", run: r.stepQuickCommand},
		{name: "state_handler", run: r.stepStateHandler},
		{name: "product_fast_path", run: r.stepProductFastPath},
		{name: "detected_intent", run: r.stepDetectedIntent},
		{name: "ai_order_parse", run: r.stepAIOrderParse},
		{name: "fallback", run: r.stepFallback},
	}
	return r
}

// Route produces exactly one valid Decision for the turn. It never
// returns nil and never panics outward.
func (r *Router) Route(ctx context.Context, in *Input) *domain.Decision {
	ctx, span := r.tracer.Start(ctx, "router.Route",
		trace.WithAttributes(
			attribute.String("session.state", string(in.Session.State)),
			attribute.Bool("turn.voice", in.IsVoice),
		))
	defer span.End()

	if in.Normalized == "" {
		in.Normalized = normalize.Normalize(in.Raw)
	}

	for _, s := range r.steps {
		dec := r.runStep(ctx, s, in)
		if dec == nil {
			continue
		}
		if err := dec.Validate(); err != nil {
			r.logger.Error("step produced invalid decision",
				slog.String("step", s.name),
				slog.String("error", err.Error()))
			continue
		}
		span.SetAttributes(attribute.String("router.step", s.name))
		return dec
	}

	// Every step fell through, including the fallback: answer anyway.
	r.logger.Error("no step produced a decision", slog.String("session", in.Session.Key))
	return domain.NewMessage(ReplyFloor)
}

// runStep isolates one step: panics and errors degrade to fall-through.
func (r *Router) runStep(ctx context.Context, s step, in *Input) (dec *domain.Decision) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("router step panic recovered",
				slog.String("step", s.name),
				slog.Any("panic", rec))
			dec = nil
		}
	}()

	dec, err := s.run(ctx, in)
	if err != nil {
		r.logger.Warn("router step failed, falling through",
			slog.String("step", s.name),
			slog.String("error", err.Error()))
		return nil
	}
	return dec
}

// stepQuickCommand resolves single-token commands without touching the
// detector. Payment method names are only a quick command while an order
// is actually awaiting payment.
func (r *Router) stepQuickCommand(ctx context.Context, in *Input) (*domain.Decision, error) {
	tokens := strings.Fields(in.Normalized)
	if len(tokens) != 1 {
		return nil, nil
	}
	token := tokens[0]

	if method := intent.MatchPaymentMethod(token); method != "" {
		if in.Session.State != domain.StateAwaitingPaymentMethod {
			return nil, nil
		}
		orderID := in.Session.Ctx(domain.CtxPendingOrder)
		if orderID == "" {
			return domain.NewMessage(ReplyAskPayment), nil
		}
		return domain.NewAction(domain.ActionConfirmOrder, map[string]string{
			"order_id":       orderID,
			"payment_method": method,
		}), nil
	}

	// Quick commands only interrupt from IDLE; inside a flow the state
	// handler owns the turn.
	if in.Session.State != domain.StateIdle {
		return nil, nil
	}

	switch intent.QuickCommands[token] {
	case domain.IntentCatalog:
		return domain.NewAction(domain.ActionShowCatalog, nil), nil
	case domain.IntentHelp:
		return domain.NewMessage(ReplyHelp), nil
	case domain.IntentOrderStatus:
		return domain.NewAction(domain.ActionOrderStatus, nil), nil
	case domain.IntentOrderHistory:
		return domain.NewAction(domain.ActionOrderHistory, nil), nil
	}
	return nil, nil
}

// stepDetectedIntent runs the detector cascade and maps actionable intents
// to decisions. Unknown or below-threshold results fall through to the AI
// steps.
func (r *Router) stepDetectedIntent(ctx context.Context, in *Input) (*domain.Decision, error) {
	res := r.detector.Detect(ctx, in.Raw, in.Session, in.IsVoice)
	if res.Intent == domain.IntentUnknown {
		// Below threshold everywhere; let the AI steps take the turn.
		return nil, nil
	}
	if !intent.IsValidTransition(in.Session.State, res.Intent) {
		return nil, domain.ErrInvalidTransition(in.Session.State, res.Intent)
	}

	r.logger.Debug("intent detected",
		slog.String("intent", string(res.Intent)),
		slog.Float64("confidence", res.Confidence),
		slog.String("strategy", string(res.Strategy)))

	switch res.Intent {
	case domain.IntentGreeting:
		if in.Session.Authenticated() {
			name := in.Session.Ctx(domain.CtxClientName)
			return domain.NewMessage(fmt.Sprintf(ReplyWelcomeBack, name)), nil
		}
		return domain.NewMessage(ReplyAskRegistered).
			WithState(domain.StateAwaitingClientConfirmation), nil

	case domain.IntentFarewell:
		return domain.NewMessage(ReplyFarewell), nil

	case domain.IntentHelp:
		return domain.NewMessage(ReplyHelp), nil

	case domain.IntentCatalog:
		return domain.NewAction(domain.ActionShowCatalog, nil), nil

	case domain.IntentOrderStatus:
		return domain.NewAction(domain.ActionOrderStatus, nil), nil

	case domain.IntentOrderHistory:
		return domain.NewAction(domain.ActionOrderHistory, nil), nil

	case domain.IntentCancel:
		// Only reachable from IDLE: mid-flow cancellation is consumed by
		// the state handler's interrupt before the detector runs.
		if r.hasDraftOrder(ctx, in.Session) {
			return domain.NewMessage(ReplyAskCancelOrder).
				WithState(domain.StateAwaitingCancelConfirmation), nil
		}
		return domain.NewMessage(ReplyNothingToCancel), nil

	case domain.IntentPayment:
		return domain.NewAction(domain.ActionShowPayment, nil), nil

	case domain.IntentRegister:
		return domain.NewMessage(ReplyAskRegName).
			WithState(domain.StateAwaitingRegName), nil

	case domain.IntentAccount:
		if !in.Session.Authenticated() {
			if hasAny(in.Normalized, []string{"recuperar"}) {
				return domain.NewMessage(ReplyRecoverAccess), nil
			}
			return domain.NewMessage(ReplyNeedLogin), nil
		}
		if field := updateFieldNamed(in.Normalized); field != "" {
			return domain.NewMessage(fmt.Sprintf("¿Cuál es tu nuevo %s?", field)).
				WithState(domain.StateAwaitingUpdateField).
				WithContext(map[string]string{domain.CtxUpdateField: field}), nil
		}
		return domain.NewAction(domain.ActionAccountInfo, nil), nil

	case domain.IntentPhone:
		return r.resolvePhone(ctx, in, normalize.Digits(in.Normalized))

	case domain.IntentPriceQuery, domain.IntentStockQuery:
		return r.productQuery(ctx, in, res.Intent)

	case domain.IntentOrder:
		// Ordering needs item extraction; hand over to the AI step.
		return nil, nil
	}
	return nil, nil
}

const fallbackSystemPrompt = "Eres el asistente de ventas de una tienda peruana. " +
	"Responde en español, en una o dos frases, con tono amable. " +
	"Si el cliente pregunta por productos, precios o pedidos, invítalo a escribir 'catálogo', 'precio de <producto>' o 'pedido'. " +
	"Nunca inventes precios ni stock."

// stepFallback is the guaranteed last step: free-text AI when available,
// a canned reply tree otherwise. It always produces a decision.
func (r *Router) stepFallback(ctx context.Context, in *Input) (*domain.Decision, error) {
	// States whose handler declines off-vocabulary input re-prompt here
	// instead of free-texting, so the flow stays on rails.
	switch in.Session.State {
	case domain.StateAwaitingClientConfirmation:
		return domain.NewMessage(ReplyAskYesNo), nil
	case domain.StateAwaitingPhone:
		return domain.NewMessage(ReplyBadPhone), nil
	}

	if r.ai != nil && r.ai.Available(ctx) {
		genCtx, cancel := context.WithTimeout(ctx, r.cfg.generateTimeout())
		defer cancel()

		window := r.windower.Window(in.History, r.cfg.History)
		reply, err := r.ai.GenerateText(genCtx, buildFallbackPrompt(window, in.Raw), fallbackSystemPrompt, ai.Options{
			Temperature: 0.7,
			MaxTokens:   200,
		})
		if err == nil && strings.TrimSpace(reply) != "" {
			return domain.NewMessage(strings.TrimSpace(reply)), nil
		}
		r.logger.Warn("ai fallback failed, using canned reply", slog.String("error", errString(err)))
	}

	if hasAny(in.Normalized, intent.CancelWords) {
		return domain.NewMessage(ReplyCancelFlow).
			WithState(domain.StateIdle).
			WithContext(session.ClearTransientPatch()), nil
	}
	return domain.NewMessage(ReplyGeneric), nil
}

func buildFallbackPrompt(window []domain.Turn, raw string) string {
	var b strings.Builder
	for _, t := range window {
		switch t.Role {
		case domain.RoleCustomer:
			b.WriteString("Cliente: ")
		default:
			b.WriteString("Asistente: ")
		}
		b.WriteString(t.Text)
		b.WriteByte('\n')
	}
	b.WriteString("Cliente: ")
	b.WriteString(raw)
	return b.String()
}

// updateFieldNamed recognizes "actualizar/cambiar <campo>" utterances and
// returns the canonical account field, or "".
func updateFieldNamed(normalized string) string {
	if !hasAny(normalized, []string{"actualizar", "cambiar"}) {
		return ""
	}
	fields := map[string]string{
		"nombre": "nombre", "correo": "correo", "email": "correo",
		"celular": "celular", "telefono": "celular", "numero": "celular",
	}
	for _, t := range strings.Fields(normalized) {
		if f, ok := fields[t]; ok {
			return f
		}
	}
	return ""
}

func hasAny(normalized string, words []string) bool {
	for _, t := range strings.Fields(normalized) {
		for _, w := range words {
			if t == w {
				return true
			}
		}
	}
	return false
}

func errString(err error) string {
	if err == nil {
		return "empty reply"
	}
	return err.Error()
}
