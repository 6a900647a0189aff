package ai

import (
	"context"
	"strings"

	"github.com/ventabot/ventabot/internal/domain"
)

// KeywordClassifier is the detector's delegated fallback: a flat
// keyword-to-intent lookup, deliberately simpler than the weighted scorer.
// It stands in for an external classification capability and can be swapped
// for a model-backed one without touching the detector.
type KeywordClassifier struct{}

var keywordIntents = map[string]domain.Intent{
	"vender":   domain.IntentCatalog,
	"vendes":   domain.IntentCatalog,
	"venden":   domain.IntentCatalog,
	"mostrar":  domain.IntentCatalog,
	"muestra":  domain.IntentCatalog,
	"necesito": domain.IntentOrder,
	"deseo":    domain.IntentOrder,
	"busco":    domain.IntentPriceQuery,
	"costar":   domain.IntentPriceQuery,
	"hola":     domain.IntentGreeting,
	"alo":      domain.IntentGreeting,
	"socorro":  domain.IntentHelp,
	"factura":  domain.IntentOrderStatus,
	"boleta":   domain.IntentOrderStatus,
}

// Classify returns the first keyword hit, or IntentUnknown.
func (KeywordClassifier) Classify(_ context.Context, text string) (domain.Intent, error) {
	for _, tok := range strings.Fields(text) {
		if in, ok := keywordIntents[tok]; ok {
			return in, nil
		}
	}
	return domain.IntentUnknown, nil
}
