// Package domain holds the canonical types shared by the dialogue engine:
// conversation state, sessions, intent results, and routing decisions.
package domain

import "time"

// State is a position in the per-conversation dialogue state machine.
type State string

const (
	// StateIdle is the initial state. Every completed or abandoned flow
	// returns here.
	StateIdle State = "IDLE"

	// StateAwaitingClientConfirmation waits for a yes/no answer to
	// "are you a registered client?".
	StateAwaitingClientConfirmation State = "AWAITING_CLIENT_CONFIRMATION"

	// StateAwaitingPhone waits for the customer's phone number.
	StateAwaitingPhone State = "AWAITING_PHONE"

	// StateAwaitingPassword waits for the account password.
	StateAwaitingPassword State = "AWAITING_PASSWORD"

	// StateAwaitingSMSCode waits for the SMS verification code.
	StateAwaitingSMSCode State = "AWAITING_SMS_CODE"

	// Registration sub-chain, collected one field per turn.
	StateAwaitingRegName     State = "AWAITING_REG_NAME"
	StateAwaitingRegDNI      State = "AWAITING_REG_DNI"
	StateAwaitingRegEmail    State = "AWAITING_REG_EMAIL"
	StateAwaitingRegPassword State = "AWAITING_REG_PASSWORD"

	// Lightweight guest registration, name and DNI only.
	StateAwaitingTempName State = "AWAITING_TEMP_NAME"
	StateAwaitingTempDNI  State = "AWAITING_TEMP_DNI"

	// StateAwaitingPaymentMethod waits for a payment method choice on a
	// pending order.
	StateAwaitingPaymentMethod State = "AWAITING_PAYMENT_METHOD"

	// StateAwaitingCancelConfirmation waits for a yes/no answer before
	// cancelling a pending order.
	StateAwaitingCancelConfirmation State = "AWAITING_CANCEL_CONFIRMATION"

	// StateAwaitingUpdateField waits for the new value of an account field
	// the customer asked to change.
	StateAwaitingUpdateField State = "AWAITING_UPDATE_FIELD"
)

// Session context keys. Keys are session-scoped and persist until
// explicitly cleared; transient keys are dropped on return to IDLE.
const (
	CtxClientID       = "_client_id"
	CtxClientPhone    = "_client_phone"
	CtxClientName     = "_client_name"
	CtxAuthenticated  = "_authenticated"
	CtxTokenRef       = "_token_ref"
	CtxPendingOrder   = "_pending_order"
	CtxPaymentMethod  = "_payment_method"
	CtxRegName        = "_reg_nombre"
	CtxRegDNI         = "_reg_dni"
	CtxRegEmail       = "_reg_email"
	CtxTempName       = "_temp_nombre"
	CtxTempDNI        = "_temp_dni"
	CtxUpdateField    = "_update_field"
	CtxSMSCode        = "_sms_code"
	CtxSMSExpiry      = "_sms_expiry"
	CtxSMSAttempts    = "_sms_attempts"
	CtxCandidatePhone = "_candidate_phone"
)

// TransientContextKeys are cleared whenever a session returns to IDLE.
// Authentication results (_client_id, _authenticated, _token_ref) survive
// so a logged-in customer stays logged in across flows.
var TransientContextKeys = []string{
	CtxRegName, CtxRegDNI, CtxRegEmail,
	CtxTempName, CtxTempDNI,
	CtxUpdateField,
	CtxSMSCode, CtxSMSExpiry, CtxSMSAttempts,
	CtxCandidatePhone,
}

// Role identifies the author of a history turn.
type Role string

const (
	RoleCustomer  Role = "customer"
	RoleAssistant Role = "assistant"
)

// Turn is one utterance in a session's history.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the per-customer conversation record. One exists per customer
// key (a phone-like identifier). Sessions are never deleted automatically.
type Session struct {
	Key       string            `json:"key"`
	State     State             `json:"state"`
	Context   map[string]string `json:"context"`
	History   []Turn            `json:"history,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewSession creates an empty session in IDLE for the given customer key.
func NewSession(key string) *Session {
	now := time.Now()
	return &Session{
		Key:       key,
		State:     StateIdle,
		Context:   make(map[string]string),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Ctx returns a context value, empty string if absent.
func (s *Session) Ctx(key string) string {
	if s.Context == nil {
		return ""
	}
	return s.Context[key]
}

// Authenticated reports whether the customer completed password or SMS
// verification in this session.
func (s *Session) Authenticated() bool {
	return s.Ctx(CtxAuthenticated) == "true"
}
