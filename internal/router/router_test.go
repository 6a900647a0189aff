package router

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ventabot/ventabot/internal/ai"
	"github.com/ventabot/ventabot/internal/commerce"
	"github.com/ventabot/ventabot/internal/domain"
	"github.com/ventabot/ventabot/internal/intent"
)

// stubAI is a scriptable collaborator. Zero value behaves as unavailable.
type stubAI struct {
	available  bool
	text       string
	textErr    error
	structured string
	structErr  error
}

func (s *stubAI) Available(ctx context.Context) bool { return s.available }

func (s *stubAI) GenerateText(ctx context.Context, prompt, system string, opts ai.Options) (string, error) {
	return s.text, s.textErr
}

func (s *stubAI) GenerateStructured(ctx context.Context, prompt, system string, opts ai.Options) (json.RawMessage, error) {
	if s.structErr != nil {
		return nil, s.structErr
	}
	return json.RawMessage(s.structured), nil
}

func newTestRouter(t *testing.T, collab ai.Collaborator) (*Router, *commerce.Fake) {
	t.Helper()
	fake := commerce.NewFake()
	fake.SeedProduct(commerce.Product{ID: "p1", Name: "Laptop HP 15", Brand: "HP", Category: "computo", Price: 2199, Stock: 4})
	fake.SeedClient(commerce.Client{ID: "cli-1", Name: "Ana", Phone: "987654321"}, "secreta1")

	det := intent.NewDetector(intent.Config{}, nil, nil)
	return New(det, collab, fake, Config{}, nil), fake
}

func sessionIn(state domain.State, ctxKV map[string]string) *domain.Session {
	s := domain.NewSession("51900000001")
	s.State = state
	for k, v := range ctxKV {
		s.Context[k] = v
	}
	return s
}

func route(t *testing.T, r *Router, sess *domain.Session, raw string) *domain.Decision {
	t.Helper()
	dec := r.Route(context.Background(), &Input{Raw: raw, Session: sess})
	if dec == nil {
		t.Fatal("Route returned nil")
	}
	if err := dec.Validate(); err != nil {
		t.Fatalf("invalid decision: %v", err)
	}
	return dec
}

func TestGreetingFromIdle(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	dec := route(t, r, sessionIn(domain.StateIdle, nil), "¡Hola!")

	if dec.Message != ReplyAskRegistered {
		t.Errorf("message = %q", dec.Message)
	}
	if dec.NextState == nil || *dec.NextState != domain.StateAwaitingClientConfirmation {
		t.Errorf("next state = %v, want AWAITING_CLIENT_CONFIRMATION", dec.NextState)
	}
}

func TestGreetingAuthenticated(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	sess := sessionIn(domain.StateIdle, map[string]string{
		domain.CtxAuthenticated: "true",
		domain.CtxClientName:    "Ana",
	})
	dec := route(t, r, sess, "hola")

	if !strings.Contains(dec.Message, "Ana") {
		t.Errorf("message = %q, want greeting by name", dec.Message)
	}
	if dec.NextState != nil {
		t.Errorf("next state = %v, want none", *dec.NextState)
	}
}

func TestQuickCommandCatalog(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	dec := route(t, r, sessionIn(domain.StateIdle, nil), "catálogo")

	if dec.Action != domain.ActionShowCatalog {
		t.Errorf("action = %q, want show_catalog", dec.Action)
	}
}

func TestPriceQueryFastPath(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	sess := sessionIn(domain.StateIdle, nil)
	dec := route(t, r, sess, "¿Cuánto cuesta la laptop?")

	if !strings.Contains(dec.Message, "S/ 2199.00") {
		t.Errorf("message = %q, want price reply", dec.Message)
	}
	if dec.NextState != nil {
		t.Error("price query must not change state")
	}
}

func TestStockQueryFastPath(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	dec := route(t, r, sessionIn(domain.StateIdle, nil), "¿hay stock de laptop?")

	if !strings.Contains(dec.Message, "quedan 4") {
		t.Errorf("message = %q, want stock reply", dec.Message)
	}
}

func TestPriceQueryUnknownProduct(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	dec := route(t, r, sessionIn(domain.StateIdle, nil), "precio de impresora epson")

	if !strings.Contains(dec.Message, "No encontré") {
		t.Errorf("message = %q, want not-found reply", dec.Message)
	}
}

func TestPhoneKnownClient(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	sess := sessionIn(domain.StateAwaitingPhone, nil)
	dec := route(t, r, sess, "987654321")

	if dec.NextState == nil || *dec.NextState != domain.StateAwaitingPassword {
		t.Fatalf("next state = %v, want AWAITING_PASSWORD", dec.NextState)
	}
	if dec.ContextPatch[domain.CtxClientName] != "Ana" {
		t.Errorf("_client_name = %q, want Ana", dec.ContextPatch[domain.CtxClientName])
	}
	if !strings.Contains(dec.Message, "Ana") {
		t.Errorf("message = %q, want password prompt by name", dec.Message)
	}
}

func TestPhoneUnknownRollsIntoRegistration(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	sess := sessionIn(domain.StateAwaitingPhone, nil)
	dec := route(t, r, sess, "911111111")

	if dec.NextState == nil || *dec.NextState != domain.StateAwaitingRegName {
		t.Fatalf("next state = %v, want AWAITING_REG_NAME", dec.NextState)
	}
	if dec.ContextPatch[domain.CtxCandidatePhone] != "911111111" {
		t.Errorf("candidate phone = %q", dec.ContextPatch[domain.CtxCandidatePhone])
	}
}

func TestBarePhoneFromIdle(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	dec := route(t, r, sessionIn(domain.StateIdle, nil), "987 654 321")

	if dec.NextState == nil || *dec.NextState != domain.StateAwaitingPassword {
		t.Fatalf("next state = %v, want AWAITING_PASSWORD", dec.NextState)
	}
}

func TestBadPhoneReprompts(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	dec := route(t, r, sessionIn(domain.StateAwaitingPhone, nil), "12345")

	if dec.Message != ReplyBadPhone {
		t.Errorf("message = %q", dec.Message)
	}
	if dec.NextState != nil {
		t.Error("bad phone must not change state")
	}
}

func TestPasswordCorrect(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	sess := sessionIn(domain.StateAwaitingPassword, map[string]string{
		domain.CtxClientID:   "cli-1",
		domain.CtxClientName: "Ana",
	})
	dec := route(t, r, sess, "secreta1")

	if dec.NextState == nil || *dec.NextState != domain.StateIdle {
		t.Fatalf("next state = %v, want IDLE", dec.NextState)
	}
	if dec.ContextPatch[domain.CtxAuthenticated] != "true" {
		t.Error("expected _authenticated=true in patch")
	}
}

func TestPasswordWrongStays(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	sess := sessionIn(domain.StateAwaitingPassword, map[string]string{
		domain.CtxClientID: "cli-1",
	})
	dec := route(t, r, sess, "nope")

	if dec.Message != ReplyWrongPassword {
		t.Errorf("message = %q", dec.Message)
	}
	if dec.NextState != nil {
		t.Error("wrong password must not change state")
	}
}

func TestPasswordCancelClearsIdentity(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	sess := sessionIn(domain.StateAwaitingPassword, map[string]string{
		domain.CtxClientID:    "cli-1",
		domain.CtxClientPhone: "987654321",
		domain.CtxClientName:  "Ana",
	})
	dec := route(t, r, sess, "cancelar")

	if dec.NextState == nil || *dec.NextState != domain.StateIdle {
		t.Fatalf("next state = %v, want IDLE", dec.NextState)
	}
	for _, k := range []string{domain.CtxClientID, domain.CtxClientPhone, domain.CtxClientName} {
		if v, ok := dec.ContextPatch[k]; !ok || v != "" {
			t.Errorf("patch[%s] = %q, want empty-delete", k, v)
		}
	}
}

func TestCancelMidRegistration(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	sess := sessionIn(domain.StateAwaitingRegName, nil)
	dec := route(t, r, sess, "mejor cancelar")

	if dec.Message != ReplyCancelFlow {
		t.Errorf("message = %q", dec.Message)
	}
	if dec.NextState == nil || *dec.NextState != domain.StateIdle {
		t.Errorf("next state = %v, want IDLE", dec.NextState)
	}
}

func TestShortDNIKeepsCollectedName(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	sess := sessionIn(domain.StateAwaitingRegDNI, map[string]string{
		domain.CtxRegName: "Carlos Quispe",
	})
	dec := route(t, r, sess, "12345")

	if dec.Message != ReplyBadRegDNI {
		t.Errorf("message = %q", dec.Message)
	}
	if dec.NextState != nil {
		t.Error("bad DNI must not change state")
	}
	if _, ok := dec.ContextPatch[domain.CtxRegName]; ok {
		t.Error("re-prompt must not touch the collected name")
	}
}

func TestRegistrationCompletes(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	sess := sessionIn(domain.StateAwaitingRegPassword, map[string]string{
		domain.CtxRegName:        "Carlos Quispe",
		domain.CtxRegDNI:         "45678901",
		domain.CtxRegEmail:       "carlos@mail.com",
		domain.CtxCandidatePhone: "911111111",
	})
	dec := route(t, r, sess, "clave123")

	if dec.Action != domain.ActionRegisterClient {
		t.Fatalf("action = %q, want register_client", dec.Action)
	}
	if dec.ActionData["dni"] != "45678901" || dec.ActionData["phone"] != "911111111" {
		t.Errorf("action data = %v", dec.ActionData)
	}
}

func TestPaymentMethodConfirmsOrder(t *testing.T) {
	r, fake := newTestRouter(t, nil)
	o, _ := fake.CreateOrder(context.Background(), "cli-1")
	sess := sessionIn(domain.StateAwaitingPaymentMethod, map[string]string{
		domain.CtxPendingOrder: o.ID,
	})
	dec := route(t, r, sess, "yape")

	if dec.Action != domain.ActionConfirmOrder {
		t.Fatalf("action = %q, want confirm_order", dec.Action)
	}
	if dec.ActionData["payment_method"] != "yape" || dec.ActionData["order_id"] != o.ID {
		t.Errorf("action data = %v", dec.ActionData)
	}
}

func TestUnknownPaymentMethodReprompts(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	sess := sessionIn(domain.StateAwaitingPaymentMethod, map[string]string{
		domain.CtxPendingOrder: "ord-1",
	})
	dec := route(t, r, sess, "bitcoin")

	if dec.Message != ReplyBadPayment {
		t.Errorf("message = %q", dec.Message)
	}
}

func TestCancelConfirmationYes(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	sess := sessionIn(domain.StateAwaitingCancelConfirmation, map[string]string{
		domain.CtxPendingOrder: "ord-9",
	})
	dec := route(t, r, sess, "sí")

	if dec.Action != domain.ActionCancelOrder || dec.ActionData["order_id"] != "ord-9" {
		t.Errorf("decision = %+v", dec)
	}
}

func TestCancelConfirmationNo(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	sess := sessionIn(domain.StateAwaitingCancelConfirmation, nil)
	dec := route(t, r, sess, "no")

	if dec.Message != ReplyKeepOrder {
		t.Errorf("message = %q", dec.Message)
	}
	if dec.NextState == nil || *dec.NextState != domain.StateIdle {
		t.Errorf("next state = %v, want IDLE", dec.NextState)
	}
}

func TestAIOrderParse(t *testing.T) {
	collab := &stubAI{
		available:  true,
		structured: `{"items":[{"producto":"laptop hp","cantidad":2}]}`,
	}
	r, _ := newTestRouter(t, collab)
	dec := route(t, r, sessionIn(domain.StateIdle, nil), "quiero llevar dos laptops hp")

	if dec.Action != domain.ActionCreateOrder {
		t.Fatalf("action = %q, want create_order", dec.Action)
	}
	if !strings.Contains(dec.ActionData["items"], "laptop hp") {
		t.Errorf("items = %q", dec.ActionData["items"])
	}
}

func TestAIFailureStillAnswers(t *testing.T) {
	collab := &stubAI{
		available: true,
		textErr:   domain.ErrAITimeout(context.DeadlineExceeded),
		structErr: domain.ErrAITimeout(context.DeadlineExceeded),
	}
	r, _ := newTestRouter(t, collab)
	dec := route(t, r, sessionIn(domain.StateIdle, nil), "quisiera llevarme algo bonito")

	if dec.Message == "" {
		t.Fatalf("decision = %+v, want canned message", dec)
	}
}

func TestAIFallbackReply(t *testing.T) {
	collab := &stubAI{available: true, text: "¡Claro! Escribe catálogo para ver los productos."}
	r, _ := newTestRouter(t, collab)
	dec := route(t, r, sessionIn(domain.StateIdle, nil), "una consulta rara sin vocabulario conocido")

	if !strings.Contains(dec.Message, "catálogo") {
		t.Errorf("message = %q, want AI reply", dec.Message)
	}
}

func TestGibberishWithoutAI(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	dec := route(t, r, sessionIn(domain.StateIdle, nil), "xyzzy plugh")

	if dec.Message != ReplyGeneric {
		t.Errorf("message = %q, want generic reply", dec.Message)
	}
}

func TestClientConfirmationBranches(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	yes := route(t, r, sessionIn(domain.StateAwaitingClientConfirmation, nil), "sí")
	if yes.NextState == nil || *yes.NextState != domain.StateAwaitingPhone {
		t.Errorf("yes branch state = %v, want AWAITING_PHONE", yes.NextState)
	}

	no := route(t, r, sessionIn(domain.StateAwaitingClientConfirmation, nil), "no")
	if no.NextState == nil || *no.NextState != domain.StateAwaitingTempName {
		t.Errorf("no branch state = %v, want AWAITING_TEMP_NAME", no.NextState)
	}

	other := route(t, r, sessionIn(domain.StateAwaitingClientConfirmation, nil), "tal vez")
	if other.Message != ReplyAskYesNo {
		t.Errorf("other branch message = %q", other.Message)
	}
}

func TestAccountUpdateFlow(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	sess := sessionIn(domain.StateIdle, map[string]string{
		domain.CtxAuthenticated: "true",
		domain.CtxClientID:      "cli-1",
	})
	dec := route(t, r, sess, "quiero actualizar mi correo")
	if dec.NextState == nil || *dec.NextState != domain.StateAwaitingUpdateField {
		t.Fatalf("next state = %v, want AWAITING_UPDATE_FIELD", dec.NextState)
	}
	if dec.ContextPatch[domain.CtxUpdateField] != "correo" {
		t.Errorf("_update_field = %q", dec.ContextPatch[domain.CtxUpdateField])
	}

	sess = sessionIn(domain.StateAwaitingUpdateField, map[string]string{
		domain.CtxUpdateField: "correo",
	})
	dec = route(t, r, sess, "ana@mail.com")
	if dec.Action != domain.ActionUpdateAccount {
		t.Fatalf("action = %q, want update_account", dec.Action)
	}
	if dec.ActionData["field"] != "correo" || dec.ActionData["value"] != "ana@mail.com" {
		t.Errorf("action data = %v", dec.ActionData)
	}
}

func TestCancelDuringPaymentAsksConfirmation(t *testing.T) {
	r, fake := newTestRouter(t, nil)
	o, _ := fake.CreateOrder(context.Background(), "cli-1")
	sess := sessionIn(domain.StateAwaitingPaymentMethod, map[string]string{
		domain.CtxPendingOrder: o.ID,
	})
	dec := route(t, r, sess, "cancelar")

	if dec.Message != ReplyAskCancelOrder {
		t.Errorf("message = %q, want cancel confirmation prompt", dec.Message)
	}
	if dec.NextState == nil || *dec.NextState != domain.StateAwaitingCancelConfirmation {
		t.Fatalf("next state = %v, want AWAITING_CANCEL_CONFIRMATION", dec.NextState)
	}
	if v, ok := dec.ContextPatch[domain.CtxPendingOrder]; ok && v == "" {
		t.Error("interrupt must not drop the pending order reference")
	}
}

func TestCancelOrderFromIdle(t *testing.T) {
	r, fake := newTestRouter(t, nil)
	o, _ := fake.CreateOrder(context.Background(), "cli-1")
	sess := sessionIn(domain.StateIdle, map[string]string{
		domain.CtxPendingOrder: o.ID,
	})

	for _, utterance := range []string{"cancelar", "cancelar mi pedido", "anular pedido", "quiero cancelar el pedido"} {
		dec := route(t, r, sess, utterance)
		if dec.NextState == nil || *dec.NextState != domain.StateAwaitingCancelConfirmation {
			t.Errorf("%q: next state = %v, want AWAITING_CANCEL_CONFIRMATION", utterance, dec.NextState)
		}
	}

	confirm := sessionIn(domain.StateAwaitingCancelConfirmation, map[string]string{
		domain.CtxPendingOrder: o.ID,
	})
	dec := route(t, r, confirm, "sí")
	if dec.Action != domain.ActionCancelOrder || dec.ActionData["order_id"] != o.ID {
		t.Errorf("decision = %+v, want cancel_order", dec)
	}
}

func TestCancelFromIdleWithoutOrder(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	dec := route(t, r, sessionIn(domain.StateIdle, nil), "cancelar")

	if dec.Message != ReplyNothingToCancel {
		t.Errorf("message = %q", dec.Message)
	}
}

func TestCancelConfirmationNoKeepsDraft(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	sess := sessionIn(domain.StateAwaitingCancelConfirmation, map[string]string{
		domain.CtxPendingOrder: "ord-7",
	})
	dec := route(t, r, sess, "no")

	if dec.NextState == nil || *dec.NextState != domain.StateAwaitingPaymentMethod {
		t.Fatalf("next state = %v, want AWAITING_PAYMENT_METHOD", dec.NextState)
	}
	if !strings.Contains(dec.Message, ReplyKeepOrder) {
		t.Errorf("message = %q", dec.Message)
	}
}

func TestProductQueryDuringClientConfirmation(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	sess := sessionIn(domain.StateAwaitingClientConfirmation, nil)
	dec := route(t, r, sess, "¿Cuánto cuesta la laptop?")

	if !strings.Contains(dec.Message, "S/ 2199.00") {
		t.Errorf("message = %q, want price reply", dec.Message)
	}
	if dec.NextState != nil {
		t.Error("mid-flow product query must not change state")
	}
}

func TestProductQueryDuringPhonePrompt(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	sess := sessionIn(domain.StateAwaitingPhone, nil)
	dec := route(t, r, sess, "¿hay stock de laptop?")

	if !strings.Contains(dec.Message, "quedan 4") {
		t.Errorf("message = %q, want stock reply", dec.Message)
	}
	if dec.NextState != nil {
		t.Error("mid-flow product query must not change state")
	}
}

func TestProductQueryDuringPayment(t *testing.T) {
	r, fake := newTestRouter(t, nil)
	o, _ := fake.CreateOrder(context.Background(), "cli-1")
	sess := sessionIn(domain.StateAwaitingPaymentMethod, map[string]string{
		domain.CtxPendingOrder: o.ID,
	})
	dec := route(t, r, sess, "¿cuánto cuesta la laptop?")

	if !strings.Contains(dec.Message, "S/ 2199.00") {
		t.Errorf("message = %q, want price reply", dec.Message)
	}
	if dec.NextState != nil {
		t.Error("price question must not leave the payment prompt")
	}
}

func TestOrderHistoryIntent(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	quick := route(t, r, sessionIn(domain.StateIdle, nil), "historial")
	if quick.Action != domain.ActionOrderHistory {
		t.Errorf("quick command action = %q, want order_history", quick.Action)
	}

	dec := route(t, r, sessionIn(domain.StateIdle, nil), "quiero ver mis pedidos")
	if dec.Action != domain.ActionOrderHistory {
		t.Errorf("action = %q, want order_history", dec.Action)
	}
}

func TestAddItemDuringPayment(t *testing.T) {
	r, fake := newTestRouter(t, nil)
	fake.SeedProduct(commerce.Product{ID: "p2", Name: "Mouse Logitech", Brand: "Logitech", Category: "accesorios", Price: 49.90, Stock: 12})
	o, _ := fake.CreateOrder(context.Background(), "cli-1")
	sess := sessionIn(domain.StateAwaitingPaymentMethod, map[string]string{
		domain.CtxPendingOrder: o.ID,
	})
	dec := route(t, r, sess, "agrega dos mouse")

	if dec.Action != domain.ActionAddItem {
		t.Fatalf("action = %q, want add_item", dec.Action)
	}
	if dec.ActionData["producto"] != "mouse" || dec.ActionData["cantidad"] != "2" {
		t.Errorf("action data = %v", dec.ActionData)
	}
}

func TestRemoveItemDuringPayment(t *testing.T) {
	r, fake := newTestRouter(t, nil)
	o, _ := fake.CreateOrder(context.Background(), "cli-1")
	sess := sessionIn(domain.StateAwaitingPaymentMethod, map[string]string{
		domain.CtxPendingOrder: o.ID,
	})
	dec := route(t, r, sess, "quita la laptop")

	if dec.Action != domain.ActionRemoveItem {
		t.Fatalf("action = %q, want remove_item", dec.Action)
	}
	if dec.ActionData["producto"] != "laptop" {
		t.Errorf("producto = %q", dec.ActionData["producto"])
	}
}

func TestRecoveryRequestUnauthenticated(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	dec := route(t, r, sessionIn(domain.StateIdle, nil), "quiero recuperar mi contraseña")

	if dec.Message != ReplyRecoverAccess {
		t.Errorf("message = %q, want recovery pointer", dec.Message)
	}
}

func TestTempRegistration(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	sess := sessionIn(domain.StateAwaitingTempName, nil)
	dec := route(t, r, sess, "María López")
	if dec.NextState == nil || *dec.NextState != domain.StateAwaitingTempDNI {
		t.Fatalf("next state = %v, want AWAITING_TEMP_DNI", dec.NextState)
	}

	sess = sessionIn(domain.StateAwaitingTempDNI, map[string]string{
		domain.CtxTempName: "María López",
	})
	dec = route(t, r, sess, "87654321")
	if dec.NextState == nil || *dec.NextState != domain.StateIdle {
		t.Fatalf("next state = %v, want IDLE", dec.NextState)
	}
	if dec.ContextPatch[domain.CtxClientName] != "María López" {
		t.Errorf("_client_name = %q", dec.ContextPatch[domain.CtxClientName])
	}
}
