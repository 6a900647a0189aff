package normalize

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", "   \t ", ""},
		{"lowercases", "HOLA", "hola"},
		{"strips accents", "¿Cuánto cuesta?", "cuanto cuesta"},
		{"keeps enie", "mañana", "mañana"},
		{"strips punctuation", "hola!!!, buenas...", "hola buenas"},
		{"transcription payment", "pago con llape", "pago con yape"},
		{"transcription command", "quiero canselar", "quiero cancelar"},
		{"transcription price", "quanto vale el presio", "cuanto vale el precio"},
		{"collapses spaces", "hola    buenas", "hola buenas"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	samples := []string{
		"",
		"¿Eres cliente registrado?",
		"quiero canselar mi peido",
		"pago con llape, porfa",
		"CUÁNTO CUESTA UNA LAPTOP!!!",
		"sí, dale",
		"987 654 321",
		"trasferencia o efetivo",
	}
	for _, s := range samples {
		once := Normalize(s)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", s, once, twice)
		}
	}
}

func TestDigits(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"987 654 321", "987654321"},
		{"9-8-7", "987"},
		{"mi dni es 12345678", "12345678"},
		{"sin numeros", ""},
	}
	for _, tt := range tests {
		if got := Digits(tt.in); got != tt.want {
			t.Errorf("Digits(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsDigits(t *testing.T) {
	if !IsDigits("987654321") {
		t.Error("IsDigits(987654321) = false")
	}
	if IsDigits("") || IsDigits("98a") || IsDigits("9 8") {
		t.Error("IsDigits accepted non-digit input")
	}
}
