// Package history builds the bounded conversation window handed to the AI
// collaborator: the most recent N turns, further trimmed to a token budget
// so prompts stay inside the model's context.
package history

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/ventabot/ventabot/internal/domain"
)

const (
	// DefaultMaxTurns bounds the window by turn count.
	DefaultMaxTurns = 10

	// DefaultMaxTokens bounds the window by token count.
	DefaultMaxTokens = 1024
)

// Budget limits a history window. Zero fields fall back to defaults.
type Budget struct {
	MaxTurns  int
	MaxTokens int
}

func (b Budget) turns() int {
	if b.MaxTurns > 0 {
		return b.MaxTurns
	}
	return DefaultMaxTurns
}

func (b Budget) tokens() int {
	if b.MaxTokens > 0 {
		return b.MaxTokens
	}
	return DefaultMaxTokens
}

// Windower trims history to a budget. Token counts use a tiktoken codec
// when one loads, with a bytes/4 estimate as fallback: an estimate is fine
// here, the budget exists to bound prompts, not to bill them.
type Windower struct {
	once  sync.Once
	codec tokenizer.Codec
}

// NewWindower creates a Windower. Codec loading is deferred to first use.
func NewWindower() *Windower {
	return &Windower{}
}

// Window returns the most recent turns that fit the budget, oldest first.
// The newest turn is always included even if it alone exceeds the token
// budget, so the AI collaborator never loses the current exchange.
func (w *Windower) Window(turns []domain.Turn, budget Budget) []domain.Turn {
	if len(turns) == 0 {
		return nil
	}

	maxTurns := budget.turns()
	if len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}

	maxTokens := budget.tokens()
	total := 0
	start := len(turns)
	for i := len(turns) - 1; i >= 0; i-- {
		cost := w.countTokens(turns[i].Text)
		if total+cost > maxTokens && start < len(turns) {
			break
		}
		total += cost
		start = i
	}

	out := make([]domain.Turn, len(turns)-start)
	copy(out, turns[start:])
	return out
}

func (w *Windower) countTokens(text string) int {
	w.once.Do(func() {
		codec, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err == nil {
			w.codec = codec
		}
	})
	if w.codec != nil {
		if ids, _, err := w.codec.Encode(text); err == nil {
			return len(ids)
		}
	}
	return len(text)/4 + 1
}
