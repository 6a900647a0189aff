package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ventabot/ventabot/internal/ai"
	"github.com/ventabot/ventabot/internal/domain"
)

// priceVocab and stockVocab trigger the product fast path without waiting
// for the full detector cascade.
var (
	priceVocab = []string{"precio", "precios", "cuanto", "cuesta", "vale", "costo"}
	stockVocab = []string{"stock", "disponible", "disponibles", "queda", "quedan"}
)

// stopWords are tokens never worth searching the catalog for.
var stopWords = map[string]bool{
	"precio": true, "precios": true, "cuanto": true, "cuesta": true,
	"vale": true, "costo": true, "stock": true, "disponible": true,
	"disponibles": true, "queda": true, "quedan": true, "hay": true,
	"tienen": true, "tiene": true, "el": true, "la": true, "los": true,
	"las": true, "un": true, "una": true, "de": true, "del": true,
	"que": true, "cual": true, "es": true, "por": true, "para": true,
	"me": true, "su": true,
}

// stepProductFastPath answers price/stock questions directly from the
// catalog, leaving the session state untouched. It runs after the state
// handler, so it only sees turns the current flow declined to own.
func (r *Router) stepProductFastPath(ctx context.Context, in *Input) (*domain.Decision, error) {
	wantPrice := hasAny(in.Normalized, priceVocab)
	wantStock := hasAny(in.Normalized, stockVocab)
	if !wantPrice && !wantStock {
		return nil, nil
	}

	which := domain.IntentPriceQuery
	if wantStock && !wantPrice {
		which = domain.IntentStockQuery
	}
	return r.productQuery(ctx, in, which)
}

// hasDraftOrder re-reads the pending order from the backend rather than
// trusting the context key alone: the order may have been confirmed or
// cancelled out of band.
func (r *Router) hasDraftOrder(ctx context.Context, sess *domain.Session) bool {
	orderID := sess.Ctx(domain.CtxPendingOrder)
	if orderID == "" {
		return false
	}
	o, err := r.commerce.Order(ctx, orderID)
	return err == nil && o.Status == "draft"
}

const extractSystemPrompt = "Extrae el producto mencionado por el cliente. " +
	`Responde SOLO con JSON: {"producto": "...", "marca": "...", "categoria": "..."}. ` +
	"Usa \"\" para campos no mencionados."

// productQuery resolves a product reference and answers with price or
// stock. Term extraction prefers the AI collaborator; without it, a small
// deterministic candidate list is searched in order.
func (r *Router) productQuery(ctx context.Context, in *Input, which domain.Intent) (*domain.Decision, error) {
	terms := r.extractTerms(ctx, in)
	if len(terms) == 0 {
		return nil, nil
	}

	for _, term := range terms {
		products, err := r.commerce.SearchProducts(ctx, term)
		if err != nil {
			return nil, err
		}
		if len(products) == 0 {
			continue
		}
		p := products[0]
		if which == domain.IntentStockQuery {
			return domain.NewMessage(fmt.Sprintf("%s: quedan %d unidades.", p.Name, p.Stock)), nil
		}
		return domain.NewMessage(fmt.Sprintf("%s: S/ %.2f (stock: %d)", p.Name, p.Price, p.Stock)), nil
	}
	return domain.NewMessage(fmt.Sprintf(ReplyProductNotFound, terms[0])), nil
}

// extractTerms builds the ordered list of search candidates: AI-extracted
// fields first when available, then the cleaned phrase, content tokens of
// four letters or more, and the last content token.
func (r *Router) extractTerms(ctx context.Context, in *Input) []string {
	var terms []string

	if r.ai != nil && r.ai.Available(ctx) {
		if extracted := r.aiExtractProduct(ctx, in.Raw); extracted != "" {
			terms = append(terms, extracted)
		}
	}

	var content []string
	for _, t := range strings.Fields(in.Normalized) {
		if !stopWords[t] {
			content = append(content, t)
		}
	}
	if len(content) == 0 {
		return terms
	}

	terms = append(terms, strings.Join(content, " "))
	for _, t := range content {
		if len([]rune(t)) >= 4 {
			terms = append(terms, t)
		}
	}
	terms = append(terms, content[len(content)-1])
	return dedupe(terms)
}

func (r *Router) aiExtractProduct(ctx context.Context, raw string) string {
	genCtx, cancel := context.WithTimeout(ctx, r.cfg.generateTimeout())
	defer cancel()

	doc, err := r.ai.GenerateStructured(genCtx, raw, extractSystemPrompt, ai.Options{MaxTokens: 100})
	if err != nil {
		r.logger.Warn("ai product extraction failed", slog.String("error", err.Error()))
		return ""
	}
	var out struct {
		Producto  string `json:"producto"`
		Marca     string `json:"marca"`
		Categoria string `json:"categoria"`
	}
	if err := json.Unmarshal(doc, &out); err != nil {
		return ""
	}
	term := strings.TrimSpace(strings.Join(strings.Fields(out.Producto+" "+out.Marca), " "))
	if term == "" {
		term = strings.TrimSpace(out.Categoria)
	}
	return term
}

func dedupe(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

var orderVocab = []string{"comprar", "pedir", "ordenar", "quiero", "llevar", "agregar"}

// addVocab and removeVocab recognize draft-editing requests while the
// payment question is open.
var (
	addVocab    = []string{"agregar", "agrega", "añadir", "añade", "suma", "sumale", "aumenta"}
	removeVocab = []string{"quitar", "quita", "eliminar", "elimina", "sacar", "saca", "retirar", "retira"}
)

// editVocab indexes both lists for token filtering.
var editVocab = map[string]bool{
	"agregar": true, "agrega": true, "añadir": true, "añade": true,
	"suma": true, "sumale": true, "aumenta": true,
	"quitar": true, "quita": true, "eliminar": true, "elimina": true,
	"sacar": true, "saca": true, "retirar": true, "retira": true,
}

// numberWords maps spoken quantities to values.
var numberWords = map[string]int{
	"una": 1, "dos": 2, "tres": 3, "cuatro": 4, "cinco": 5,
	"seis": 6, "siete": 7, "ocho": 8, "nueve": 9, "diez": 10,
}

const orderSystemPrompt = "Extrae los productos y cantidades que el cliente quiere comprar. " +
	`Responde SOLO con JSON: {"items": [{"producto": "...", "cantidad": 1}]}. ` +
	"Cantidad por defecto: 1."

// stepAIOrderParse turns a free-text purchase request into a create-order
// action via structured AI extraction. Without the collaborator, or when
// extraction fails, the turn falls through to the fallback step.
func (r *Router) stepAIOrderParse(ctx context.Context, in *Input) (*domain.Decision, error) {
	if in.Session.State != domain.StateIdle {
		return nil, nil
	}
	if !hasAny(in.Normalized, orderVocab) {
		return nil, nil
	}
	if r.ai == nil || !r.ai.Available(ctx) {
		return nil, nil
	}

	parseCtx, cancel := context.WithTimeout(ctx, r.cfg.orderParseTimeout())
	defer cancel()

	doc, err := r.ai.GenerateStructured(parseCtx, in.Raw, orderSystemPrompt, ai.Options{MaxTokens: 300})
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Items []struct {
			Producto string `json:"producto"`
			Cantidad int    `json:"cantidad"`
		} `json:"items"`
	}
	if err := json.Unmarshal(doc, &parsed); err != nil || len(parsed.Items) == 0 {
		return nil, nil
	}
	for i := range parsed.Items {
		if parsed.Items[i].Cantidad <= 0 {
			parsed.Items[i].Cantidad = 1
		}
	}

	items, err := json.Marshal(parsed.Items)
	if err != nil {
		return nil, err
	}
	return domain.NewAction(domain.ActionCreateOrder, map[string]string{
		"items": string(items),
		"count": strconv.Itoa(len(parsed.Items)),
	}), nil
}
