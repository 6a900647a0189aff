package intent

import "github.com/ventabot/ventabot/internal/domain"

// acceptedIntents is the fixed table mapping each state to the intents it
// accepts. The router uses it to decide whether a detected intent is
// actionable in the current state or must be treated as noise.
//
// AWAITING_CLIENT_CONFIRMATION and AWAITING_PASSWORD deliberately omit
// IntentCancel: those two states reuse yes/no (or literal) vocabulary for
// their own purpose, so the universal cancellation interrupt does not
// apply there.
var acceptedIntents = map[domain.State][]domain.Intent{
	domain.StateIdle: {
		domain.IntentGreeting, domain.IntentFarewell,
		domain.IntentPriceQuery, domain.IntentStockQuery,
		domain.IntentOrder, domain.IntentOrderStatus,
		domain.IntentOrderHistory, domain.IntentCancel,
		domain.IntentCatalog, domain.IntentHelp,
		domain.IntentPayment, domain.IntentRegister,
		domain.IntentAccount, domain.IntentPhone,
	},
	domain.StateAwaitingClientConfirmation: {
		domain.IntentConfirm, domain.IntentDeny,
	},
	domain.StateAwaitingPhone: {
		domain.IntentPhone, domain.IntentCancel,
	},
	domain.StateAwaitingPassword: {
		// Handler-owned: any literal string may be a password. The table
		// accepts nothing, the state handler owns the turn entirely.
	},
	domain.StateAwaitingSMSCode: {
		domain.IntentPhone, domain.IntentCancel,
	},
	domain.StateAwaitingRegName: {
		domain.IntentCancel,
	},
	domain.StateAwaitingRegDNI: {
		domain.IntentPhone, domain.IntentCancel,
	},
	domain.StateAwaitingRegEmail: {
		domain.IntentCancel,
	},
	domain.StateAwaitingRegPassword: {
		domain.IntentCancel,
	},
	domain.StateAwaitingTempName: {
		domain.IntentCancel,
	},
	domain.StateAwaitingTempDNI: {
		domain.IntentPhone, domain.IntentCancel,
	},
	domain.StateAwaitingPaymentMethod: {
		domain.IntentPayment, domain.IntentCancel,
	},
	domain.StateAwaitingCancelConfirmation: {
		domain.IntentConfirm, domain.IntentDeny, domain.IntentCancel,
	},
	domain.StateAwaitingUpdateField: {
		domain.IntentCancel,
	},
}

// IsValidTransition reports whether the intent is legal in the state.
func IsValidTransition(state domain.State, in domain.Intent) bool {
	for _, a := range acceptedIntents[state] {
		if a == in {
			return true
		}
	}
	return false
}

// AcceptedIntents returns the intents the state accepts. The returned
// slice is shared; callers must not mutate it.
func AcceptedIntents(state domain.State) []domain.Intent {
	return acceptedIntents[state]
}

// CancellationApplies reports whether the universal cancellation interrupt
// is evaluated in this state.
func CancellationApplies(state domain.State) bool {
	switch state {
	case domain.StateAwaitingClientConfirmation, domain.StateAwaitingPassword:
		return false
	}
	return true
}
