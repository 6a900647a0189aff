// Package normalize performs deterministic text cleanup on inbound
// utterances: lowercasing, diacritic stripping, punctuation removal, and
// substitution of known voice-transcription errors. All functions are pure
// and idempotent.
package normalize

import (
	"strings"
	"unicode"
)

// diacritics maps the accented runes that appear in the target locale to
// their plain form. Matching happens on the stripped text; the original
// text is preserved for anything echoed back to the customer.
var diacritics = map[rune]rune{
	'á': 'a', 'é': 'e', 'í': 'i', 'ó': 'o', 'ú': 'u', 'ü': 'u',
	'Á': 'a', 'É': 'e', 'Í': 'i', 'Ó': 'o', 'Ú': 'u', 'Ü': 'u',
	'ñ': 'ñ', 'Ñ': 'ñ',
}

// corrections maps known mis-transcribed tokens to their canonical form.
// These are spellings the speech-to-text engine actually produces for
// domain words: confirmation vocabulary, payment method names, commands.
var corrections = map[string]string{
	// confirmation words
	"sip": "si",
	"sii": "si",
	"nop": "no",
	"nel": "no",
	// payment methods
	"llape":        "yape",
	"yapel":        "yape",
	"plim":         "plin",
	"efetivo":      "efectivo",
	"efectibo":     "efectivo",
	"tageta":       "tarjeta",
	"trasferencia": "transferencia",
	"tranferencia": "transferencia",
	// commands and domain verbs
	"canselar": "cancelar",
	"cancelal": "cancelar",
	"catalago": "catalogo",
	"presio":   "precio",
	"presios":  "precios",
	"quanto":   "cuanto",
	"peido":    "pedido",
	"conprar":  "comprar",
	"ayudame":  "ayuda",
}

// Normalize lowercases, strips diacritics and punctuation, collapses
// whitespace, and applies the transcription-correction table token by
// token. It never panics; empty or whitespace-only input yields "".
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	stripped := StripPunctuation(StripDiacritics(strings.ToLower(raw)))
	fields := strings.Fields(stripped)
	if len(fields) == 0 {
		return ""
	}
	for i, tok := range fields {
		if canonical, ok := corrections[tok]; ok {
			fields[i] = canonical
		}
	}
	return strings.Join(fields, " ")
}

// StripDiacritics replaces accented vowels with their plain form. The eñe
// is preserved: it is a distinct letter, not an accent.
func StripDiacritics(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if plain, ok := diacritics[r]; ok {
			b.WriteRune(plain)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// StripPunctuation removes punctuation and symbol runes, replacing them
// with spaces so token boundaries survive ("¿cuánto?" -> " cuanto ").
func StripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return r
	}, s)
}

// Digits extracts the digit runes from s, in order. Used by the phone,
// DNI, and SMS-code handlers, where customers dictate numbers with spaces
// and dashes.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsDigits reports whether s is non-empty and contains only digit runes.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
