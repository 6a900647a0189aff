package domain

// Intent is a coarse classification of what the customer wants this turn.
type Intent string

const (
	IntentGreeting     Intent = "greeting"
	IntentFarewell     Intent = "farewell"
	IntentPriceQuery   Intent = "price_query"
	IntentStockQuery   Intent = "stock_query"
	IntentOrder        Intent = "order"
	IntentOrderStatus  Intent = "order_status"
	IntentOrderHistory Intent = "order_history"
	IntentConfirm      Intent = "confirm"
	IntentDeny         Intent = "deny"
	IntentCancel       Intent = "cancel"
	IntentCatalog      Intent = "catalog"
	IntentHelp         Intent = "help"
	IntentPayment      Intent = "payment"
	IntentRegister     Intent = "register"
	IntentAccount      Intent = "account"
	IntentPhone        Intent = "phone_number"
	IntentUnknown      Intent = "unknown"
)

// Strategy names which detector stage produced an intent result.
type Strategy string

const (
	StrategyBasic      Strategy = "basic"
	StrategyContextual Strategy = "contextual"
	StrategyPhonetic   Strategy = "phonetic"
	StrategyDelegated  Strategy = "delegated"
	StrategyFallback   Strategy = "fallback"
	// StrategyErrorFallback marks a result synthesized after an internal
	// detector failure.
	StrategyErrorFallback Strategy = "error_fallback"
)

// IntentResult is the detector's output for one turn. It is consumed once
// by the router and never persisted.
type IntentResult struct {
	Intent         Intent
	Confidence     float64
	Strategy       Strategy
	NormalizedText string
	OriginalText   string
}
