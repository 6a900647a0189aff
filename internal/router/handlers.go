package router

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ventabot/ventabot/internal/domain"
	"github.com/ventabot/ventabot/internal/intent"
	"github.com/ventabot/ventabot/internal/normalize"
	"github.com/ventabot/ventabot/internal/session"
)

const (
	minNameLen     = 3
	dniLen         = 8
	phoneLen       = 9
	minPasswordLen = 6
	maxSMSAttempts = 3
)

// handler owns one state's turn. A nil decision means the handler declined
// the turn and the pipeline continues.
type handler func(ctx context.Context, in *Input) (*domain.Decision, error)

// stepStateHandler dispatches to the current state's handler, applying the
// universal cancellation interrupt first where it applies.
func (r *Router) stepStateHandler(ctx context.Context, in *Input) (*domain.Decision, error) {
	if intent.CancellationApplies(in.Session.State) &&
		in.Session.State != domain.StateIdle &&
		intent.IsCancellation(in.Normalized) {
		// A live order draft is never discarded on a bare "cancelar":
		// the customer must confirm losing it first.
		if r.hasDraftOrder(ctx, in.Session) {
			return domain.NewMessage(ReplyAskCancelOrder).
				WithState(domain.StateAwaitingCancelConfirmation), nil
		}
		return domain.NewMessage(ReplyCancelFlow).
			WithState(domain.StateIdle).
			WithContext(session.ClearTransientPatch()), nil
	}

	handlers := map[domain.State]handler{
		domain.StateIdle:                       r.handleIdleDigits,
		domain.StateAwaitingClientConfirmation: r.handleClientConfirmation,
		domain.StateAwaitingPhone:              r.handlePhone,
		domain.StateAwaitingPassword:           r.handlePassword,
		domain.StateAwaitingSMSCode:            r.handleSMSCode,
		domain.StateAwaitingRegName:            r.handleRegName,
		domain.StateAwaitingRegDNI:             r.handleRegDNI,
		domain.StateAwaitingRegEmail:           r.handleRegEmail,
		domain.StateAwaitingRegPassword:        r.handleRegPassword,
		domain.StateAwaitingTempName:           r.handleTempName,
		domain.StateAwaitingTempDNI:            r.handleTempDNI,
		domain.StateAwaitingPaymentMethod:      r.handlePaymentMethod,
		domain.StateAwaitingCancelConfirmation: r.handleCancelConfirmation,
		domain.StateAwaitingUpdateField:        r.handleUpdateField,
	}
	h, ok := handlers[in.Session.State]
	if !ok {
		return nil, nil
	}
	return h(ctx, in)
}

// handleIdleDigits recognizes a bare 9-digit phone number sent from IDLE
// as a login attempt. Anything else is declined so later steps can run.
func (r *Router) handleIdleDigits(ctx context.Context, in *Input) (*domain.Decision, error) {
	digits := normalize.Digits(in.Normalized)
	if len(digits) != phoneLen || !normalize.IsDigits(strings.ReplaceAll(in.Normalized, " ", "")) {
		return nil, nil
	}
	return r.resolvePhone(ctx, in, digits)
}

// handleClientConfirmation resolves yes/no; anything else is declined so
// the product fast path can still answer, with the fallback re-prompting.
func (r *Router) handleClientConfirmation(_ context.Context, in *Input) (*domain.Decision, error) {
	switch {
	case intent.IsAffirmation(in.Normalized):
		return domain.NewMessage(ReplyAskPhone).
			WithState(domain.StateAwaitingPhone), nil
	case intent.IsNegation(in.Normalized):
		return domain.NewMessage(ReplyAskTempName).
			WithState(domain.StateAwaitingTempName), nil
	}
	return nil, nil
}

// handlePhone owns inputs that carry digits; digit-free input is declined
// so a product question asked mid-login still gets answered.
func (r *Router) handlePhone(ctx context.Context, in *Input) (*domain.Decision, error) {
	digits := normalize.Digits(in.Raw)
	if digits == "" {
		return nil, nil
	}
	if len(digits) != phoneLen {
		return domain.NewMessage(ReplyBadPhone), nil
	}
	return r.resolvePhone(ctx, in, digits)
}

// resolvePhone looks up a phone number against the commerce backend and
// routes to the password prompt or the registration offer. Shared by the
// AWAITING_PHONE handler and the IDLE bare-number shortcut.
func (r *Router) resolvePhone(ctx context.Context, in *Input, digits string) (*domain.Decision, error) {
	client, err := r.commerce.ClientByPhone(ctx, digits)
	if err == nil {
		return domain.NewMessage(fmt.Sprintf(ReplyAskPassword, client.Name)).
			WithState(domain.StateAwaitingPassword).
			WithContext(map[string]string{
				domain.CtxClientID:    client.ID,
				domain.CtxClientPhone: client.Phone,
				domain.CtxClientName:  client.Name,
			}), nil
	}
	if !domain.IsKind(err, domain.KindNotFound) {
		return nil, err
	}

	if in.Session.State == domain.StateAwaitingPhone {
		// Inside the login flow an unknown number rolls straight into
		// registration, keeping the number for the final submit.
		return domain.NewMessage(ReplyAskRegName).
			WithState(domain.StateAwaitingRegName).
			WithContext(map[string]string{domain.CtxCandidatePhone: digits}), nil
	}
	return domain.NewMessage(fmt.Sprintf(ReplyPhoneUnknown, digits)).
		WithContext(map[string]string{domain.CtxCandidatePhone: digits}), nil
}

// handlePassword owns the whole turn: the input is a literal password, so
// no intent detection applies. Cancellation is checked explicitly here
// because the universal interrupt skips this state.
func (r *Router) handlePassword(ctx context.Context, in *Input) (*domain.Decision, error) {
	if intent.IsCancellation(in.Normalized) {
		patch := session.ClearTransientPatch()
		patch[domain.CtxClientID] = ""
		patch[domain.CtxClientPhone] = ""
		patch[domain.CtxClientName] = ""
		return domain.NewMessage(ReplyCancelFlow).
			WithState(domain.StateIdle).
			WithContext(patch), nil
	}

	clientID := in.Session.Ctx(domain.CtxClientID)
	ok, err := r.commerce.VerifyPassword(ctx, clientID, strings.TrimSpace(in.Raw))
	if err != nil {
		return nil, err
	}
	if !ok {
		return domain.NewMessage(ReplyWrongPassword), nil
	}
	name := in.Session.Ctx(domain.CtxClientName)
	return domain.NewMessage(fmt.Sprintf(ReplyWelcomeBack, name)).
		WithState(domain.StateIdle).
		WithContext(map[string]string{domain.CtxAuthenticated: "true"}), nil
}

func (r *Router) handleSMSCode(_ context.Context, in *Input) (*domain.Decision, error) {
	code := normalize.Digits(in.Raw)
	want := in.Session.Ctx(domain.CtxSMSCode)

	if expiry := in.Session.Ctx(domain.CtxSMSExpiry); expiry != "" {
		t, err := time.Parse(time.RFC3339, expiry)
		if err == nil && time.Now().After(t) {
			return domain.NewMessage(ReplySMSExpired).
				WithState(domain.StateIdle).
				WithContext(session.ClearTransientPatch()), nil
		}
	}

	if code == "" || code != want {
		attempts, _ := strconv.Atoi(in.Session.Ctx(domain.CtxSMSAttempts))
		attempts++
		if attempts >= maxSMSAttempts {
			return domain.NewMessage(ReplySMSTooMany).
				WithState(domain.StateIdle).
				WithContext(session.ClearTransientPatch()), nil
		}
		return domain.NewMessage(ReplySMSBadCode).
			WithContext(map[string]string{domain.CtxSMSAttempts: strconv.Itoa(attempts)}), nil
	}

	name := in.Session.Ctx(domain.CtxClientName)
	patch := session.ClearTransientPatch()
	patch[domain.CtxAuthenticated] = "true"
	return domain.NewMessage(fmt.Sprintf(ReplyWelcomeBack, name)).
		WithState(domain.StateIdle).
		WithContext(patch), nil
}

func (r *Router) handleRegName(_ context.Context, in *Input) (*domain.Decision, error) {
	name := strings.TrimSpace(in.Raw)
	if len([]rune(name)) < minNameLen {
		return domain.NewMessage(ReplyBadRegName), nil
	}
	return domain.NewMessage(fmt.Sprintf(ReplyAskRegDNI, firstName(name))).
		WithState(domain.StateAwaitingRegDNI).
		WithContext(map[string]string{domain.CtxRegName: name}), nil
}

func (r *Router) handleRegDNI(_ context.Context, in *Input) (*domain.Decision, error) {
	dni := normalize.Digits(in.Raw)
	if len(dni) != dniLen {
		// Re-prompt without touching the name already collected.
		return domain.NewMessage(ReplyBadRegDNI), nil
	}
	return domain.NewMessage(ReplyAskRegEmail).
		WithState(domain.StateAwaitingRegEmail).
		WithContext(map[string]string{domain.CtxRegDNI: dni}), nil
}

func (r *Router) handleRegEmail(_ context.Context, in *Input) (*domain.Decision, error) {
	email := strings.TrimSpace(in.Raw)
	if !validEmail(email) {
		return domain.NewMessage(ReplyBadRegEmail), nil
	}
	return domain.NewMessage(ReplyAskRegPassword).
		WithState(domain.StateAwaitingRegPassword).
		WithContext(map[string]string{domain.CtxRegEmail: email}), nil
}

func (r *Router) handleRegPassword(_ context.Context, in *Input) (*domain.Decision, error) {
	password := strings.TrimSpace(in.Raw)
	if len(password) < minPasswordLen {
		return domain.NewMessage(ReplyBadRegPassword), nil
	}
	return domain.NewAction(domain.ActionRegisterClient, map[string]string{
		"name":     in.Session.Ctx(domain.CtxRegName),
		"dni":      in.Session.Ctx(domain.CtxRegDNI),
		"email":    in.Session.Ctx(domain.CtxRegEmail),
		"password": password,
		"phone":    in.Session.Ctx(domain.CtxCandidatePhone),
	}), nil
}

func (r *Router) handleTempName(_ context.Context, in *Input) (*domain.Decision, error) {
	name := strings.TrimSpace(in.Raw)
	if len([]rune(name)) < minNameLen {
		return domain.NewMessage(ReplyBadRegName), nil
	}
	return domain.NewMessage(fmt.Sprintf(ReplyAskTempDNI, firstName(name))).
		WithState(domain.StateAwaitingTempDNI).
		WithContext(map[string]string{domain.CtxTempName: name}), nil
}

func (r *Router) handleTempDNI(_ context.Context, in *Input) (*domain.Decision, error) {
	dni := normalize.Digits(in.Raw)
	if len(dni) != dniLen {
		return domain.NewMessage(ReplyBadRegDNI), nil
	}
	name := in.Session.Ctx(domain.CtxTempName)
	patch := session.ClearTransientPatch()
	patch[domain.CtxClientName] = name
	return domain.NewMessage(fmt.Sprintf(ReplyTempDone, firstName(name))).
		WithState(domain.StateIdle).
		WithContext(patch), nil
}

// handlePaymentMethod also lets the customer keep editing the draft while
// the payment question is open: product questions fall through to the fast
// path, add/remove requests become order actions.
func (r *Router) handlePaymentMethod(_ context.Context, in *Input) (*domain.Decision, error) {
	method := intent.MatchPaymentMethod(in.Normalized)
	if method == "" {
		switch {
		case hasAny(in.Normalized, priceVocab) || hasAny(in.Normalized, stockVocab):
			return nil, nil
		case hasAny(in.Normalized, addVocab):
			return r.itemRequest(in, domain.ActionAddItem)
		case hasAny(in.Normalized, removeVocab):
			return r.itemRequest(in, domain.ActionRemoveItem)
		}
		return domain.NewMessage(ReplyBadPayment), nil
	}
	orderID := in.Session.Ctx(domain.CtxPendingOrder)
	if orderID == "" {
		return domain.NewMessage(ReplyAskPayment).
			WithState(domain.StateIdle).
			WithContext(session.ClearTransientPatch()), nil
	}
	return domain.NewAction(domain.ActionConfirmOrder, map[string]string{
		"order_id":       orderID,
		"payment_method": method,
	}), nil
}

// itemRequest extracts a product term and quantity from a draft-editing
// utterance and emits the add or remove action.
func (r *Router) itemRequest(in *Input, action domain.Action) (*domain.Decision, error) {
	if in.Session.Ctx(domain.CtxPendingOrder) == "" {
		return nil, nil
	}

	qty := 1
	var content []string
	for _, t := range strings.Fields(in.Normalized) {
		if n, err := strconv.Atoi(t); err == nil && n > 0 {
			qty = n
			continue
		}
		if n, ok := numberWords[t]; ok {
			qty = n
			continue
		}
		if stopWords[t] || editVocab[t] {
			continue
		}
		content = append(content, t)
	}
	if len(content) == 0 {
		return domain.NewMessage(ReplyAskAddWhat), nil
	}
	return domain.NewAction(action, map[string]string{
		"producto": strings.Join(content, " "),
		"cantidad": strconv.Itoa(qty),
	}), nil
}

func (r *Router) handleCancelConfirmation(_ context.Context, in *Input) (*domain.Decision, error) {
	orderID := in.Session.Ctx(domain.CtxPendingOrder)
	switch {
	case intent.IsAffirmation(in.Normalized):
		return domain.NewAction(domain.ActionCancelOrder, map[string]string{
			"order_id": orderID,
		}), nil
	case intent.IsNegation(in.Normalized):
		if orderID != "" {
			// The draft survives; put the payment question back.
			return domain.NewMessage(ReplyKeepOrder + " " + ReplyAskPayment).
				WithState(domain.StateAwaitingPaymentMethod), nil
		}
		return domain.NewMessage(ReplyKeepOrder).
			WithState(domain.StateIdle), nil
	}
	return domain.NewMessage(ReplyAskYesNo), nil
}

func (r *Router) handleUpdateField(_ context.Context, in *Input) (*domain.Decision, error) {
	field := in.Session.Ctx(domain.CtxUpdateField)
	if field == "" {
		return domain.NewMessage(ReplyAskUpdate), nil
	}
	return domain.NewAction(domain.ActionUpdateAccount, map[string]string{
		"field": field,
		"value": strings.TrimSpace(in.Raw),
	}), nil
}

func firstName(full string) string {
	if i := strings.IndexByte(full, ' '); i > 0 {
		return full[:i]
	}
	return full
}

// validEmail is a cheap shape check; the commerce backend does the real
// validation on registration.
func validEmail(s string) bool {
	at := strings.IndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return false
	}
	domainPart := s[at+1:]
	dot := strings.IndexByte(domainPart, '.')
	return dot > 0 && dot < len(domainPart)-1 && !strings.ContainsAny(s, " \t")
}
