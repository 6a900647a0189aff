// Package intent detects what the customer wants from a normalized
// utterance using a multi-strategy cascade, and owns the declarative
// keyword tables shared by every component that matches vocabulary.
package intent

import "github.com/ventabot/ventabot/internal/domain"

// CancelWords is the universal-cancellation vocabulary. A single shared
// list: the router's cancellation wrapper, the detector, and the state
// handlers all match against it.
var CancelWords = []string{"cancelar", "anular", "salir", "volver", "atras", "menu", "regresar"}

// AffirmWords is the affirmative vocabulary for yes/no states.
var AffirmWords = []string{"si", "dale", "ok", "okey", "claro", "bueno", "confirmo", "correcto", "afirmativo", "acepto", "ya"}

// DenyWords is the negative vocabulary for yes/no states.
var DenyWords = []string{"no", "nada", "negativo", "tampoco", "nunca"}

// PaymentMethods maps recognized payment vocabulary to the canonical
// method name the commerce collaborator expects.
var PaymentMethods = map[string]string{
	"efectivo":      "efectivo",
	"cash":          "efectivo",
	"tarjeta":       "tarjeta",
	"visa":          "tarjeta",
	"mastercard":    "tarjeta",
	"transferencia": "transferencia",
	"deposito":      "transferencia",
	"yape":          "yape",
	"plin":          "plin",
}

// QuickCommands maps single-word commands to the intent they resolve to.
// These bypass the whole cascade for latency and determinism.
var QuickCommands = map[string]domain.Intent{
	"catalogo":  domain.IntentCatalog,
	"productos": domain.IntentCatalog,
	"ayuda":     domain.IntentHelp,
	"help":      domain.IntentHelp,
	"pedido":    domain.IntentOrderStatus,
	"estado":    domain.IntentOrderStatus,
	"historial": domain.IntentOrderHistory,
	"pedidos":   domain.IntentOrderHistory,
}

// weights scores candidate intents by keyword. The winning intent is the
// one with the highest total weight over matched tokens; confidence is the
// mean weight of the matches, capped at 1.0.
var weights = map[domain.Intent]map[string]float64{
	domain.IntentGreeting: {
		"hola": 0.9, "buenas": 0.8, "buenos": 0.7, "saludos": 0.8,
		"dias": 0.4, "tardes": 0.4, "noches": 0.4,
	},
	domain.IntentFarewell: {
		"chau": 0.9, "adios": 0.9, "gracias": 0.6, "hasta": 0.4, "luego": 0.4,
	},
	domain.IntentPriceQuery: {
		"precio": 0.9, "precios": 0.9, "cuanto": 0.8, "cuesta": 0.8,
		"vale": 0.7, "costo": 0.8, "barato": 0.5, "oferta": 0.5,
	},
	domain.IntentStockQuery: {
		"stock": 0.9, "disponible": 0.8, "disponibles": 0.8,
		"queda": 0.7, "quedan": 0.7, "hay": 0.5, "tienen": 0.6,
	},
	domain.IntentOrder: {
		"comprar": 0.9, "pedir": 0.8, "ordenar": 0.8, "quiero": 0.7,
		"llevar": 0.6, "agregar": 0.6, "añadir": 0.6,
	},
	domain.IntentOrderStatus: {
		"estado": 0.8, "seguimiento": 0.8, "entrega": 0.6, "llega": 0.5,
	},
	domain.IntentOrderHistory: {
		"historial": 1.0, "pedidos": 0.9, "compras": 0.7,
	},
	domain.IntentConfirm: {
		"si": 0.9, "confirmo": 1.0, "acepto": 0.9, "claro": 0.8,
		"correcto": 0.8, "afirmativo": 0.9,
	},
	domain.IntentDeny: {
		"no": 0.9, "negativo": 0.9, "nada": 0.7, "tampoco": 0.7,
	},
	domain.IntentCancel: {
		"cancelar": 1.0, "anular": 0.9, "salir": 0.9, "volver": 0.8,
		"atras": 0.8, "menu": 0.8, "regresar": 0.8,
	},
	domain.IntentCatalog: {
		"catalogo": 1.0, "productos": 0.8, "lista": 0.6, "ofertas": 0.7,
	},
	domain.IntentHelp: {
		"ayuda": 1.0, "help": 0.9, "opciones": 0.6,
	},
	domain.IntentPayment: {
		"pagar": 0.9, "pago": 0.8, "efectivo": 0.9, "tarjeta": 0.9,
		"transferencia": 0.9, "yape": 1.0, "plin": 1.0,
	},
	domain.IntentRegister: {
		"registrarme": 1.0, "registrar": 0.9, "registro": 0.8, "inscribirme": 0.8,
	},
	domain.IntentAccount: {
		"cuenta": 0.7, "perfil": 0.8, "datos": 0.7, "actualizar": 0.7,
		"cambiar": 0.6, "recuperar": 0.7, "contraseña": 0.6, "clave": 0.5,
	},
}

// phoneticVariants maps syllable-dropped or slurred forms the transcriber
// produces for domain words to the canonical token. Applied only by the
// phonetic strategy, after the cheaper strategies stay under threshold.
var phoneticVariants = map[string]string{
	"cancear":     "cancelar",
	"cacelar":     "cancelar",
	"compar":      "comprar",
	"compra":      "comprar",
	"catalgo":     "catalogo",
	"talogo":      "catalogo",
	"transfencia": "transferencia",
	"registar":    "registrar",
	"pedio":       "pedido",
	"pidido":      "pedido",
	"prcio":       "precio",
	"precyo":      "precio",
	"aiuda":       "ayuda",
}

func containsToken(tokens []string, words []string) bool {
	for _, t := range tokens {
		for _, w := range words {
			if t == w {
				return true
			}
		}
	}
	return false
}

// IsCancellation reports whether the normalized text carries a
// cancellation word.
func IsCancellation(normalized string) bool {
	return containsToken(tokenize(normalized), CancelWords)
}

// IsAffirmation reports whether the normalized text is affirmative.
func IsAffirmation(normalized string) bool {
	return containsToken(tokenize(normalized), AffirmWords)
}

// IsNegation reports whether the normalized text is negative.
func IsNegation(normalized string) bool {
	return containsToken(tokenize(normalized), DenyWords)
}

// MatchPaymentMethod returns the canonical payment method named in the
// normalized text, or "" if none is recognized.
func MatchPaymentMethod(normalized string) string {
	for _, t := range tokenize(normalized) {
		if m, ok := PaymentMethods[t]; ok {
			return m
		}
	}
	return ""
}
