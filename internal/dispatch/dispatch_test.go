package dispatch

import (
	"context"
	"strings"
	"testing"

	"github.com/ventabot/ventabot/internal/commerce"
	"github.com/ventabot/ventabot/internal/domain"
	"github.com/ventabot/ventabot/internal/session/memory"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *commerce.Fake, *memory.Store) {
	t.Helper()
	fake := commerce.NewFake()
	fake.SeedProduct(commerce.Product{ID: "p1", Name: "Laptop HP 15", Brand: "HP", Price: 2199, Stock: 4})
	fake.SeedProduct(commerce.Product{ID: "p2", Name: "Mouse Logitech", Brand: "Logitech", Price: 49.9, Stock: 20})
	store := memory.New()
	return New(fake, store, nil), fake, store
}

func newSession(t *testing.T, store *memory.Store, ctxKV map[string]string) *domain.Session {
	t.Helper()
	sess, err := store.Create(context.Background(), "51900000001")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(ctxKV) > 0 {
		if err := store.Update(context.Background(), sess.Key, sess.State, ctxKV); err != nil {
			t.Fatalf("Update: %v", err)
		}
		sess, _ = store.Get(context.Background(), sess.Key)
	}
	return sess
}

func TestShowCatalog(t *testing.T) {
	d, _, store := newTestDispatcher(t)
	sess := newSession(t, store, nil)

	reply, err := d.Dispatch(context.Background(), domain.NewAction(domain.ActionShowCatalog, nil), sess)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(reply, "Laptop HP 15") || !strings.Contains(reply, "Mouse Logitech") {
		t.Errorf("reply = %q", reply)
	}
}

func TestCreateOrderMovesToPayment(t *testing.T) {
	d, _, store := newTestDispatcher(t)
	sess := newSession(t, store, map[string]string{domain.CtxClientID: "cli-1"})

	dec := domain.NewAction(domain.ActionCreateOrder, map[string]string{
		"items": `[{"producto":"laptop","cantidad":1},{"producto":"mouse","cantidad":2}]`,
	})
	reply, err := d.Dispatch(context.Background(), dec, sess)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(reply, "S/ 2298.80") {
		t.Errorf("reply = %q, want combined total", reply)
	}

	got, _ := store.Get(context.Background(), sess.Key)
	if got.State != domain.StateAwaitingPaymentMethod {
		t.Errorf("state = %s, want AWAITING_PAYMENT_METHOD", got.State)
	}
	if got.Ctx(domain.CtxPendingOrder) == "" {
		t.Error("expected _pending_order to be set")
	}
}

func TestCreateOrderAllMissing(t *testing.T) {
	d, _, store := newTestDispatcher(t)
	sess := newSession(t, store, nil)

	dec := domain.NewAction(domain.ActionCreateOrder, map[string]string{
		"items": `[{"producto":"parlante","cantidad":1}]`,
	})
	reply, err := d.Dispatch(context.Background(), dec, sess)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(reply, "No encontré") {
		t.Errorf("reply = %q", reply)
	}

	got, _ := store.Get(context.Background(), sess.Key)
	if got.State != domain.StateIdle {
		t.Errorf("state = %s, want IDLE untouched", got.State)
	}
}

func TestConfirmOrderClearsPending(t *testing.T) {
	d, fake, store := newTestDispatcher(t)
	o, _ := fake.CreateOrder(context.Background(), "cli-1")
	o, _ = fake.AddItem(context.Background(), o.ID, commerce.OrderItem{ProductID: "p1", Name: "Laptop HP 15", Quantity: 1, UnitPrice: 2199})
	sess := newSession(t, store, map[string]string{domain.CtxPendingOrder: o.ID})
	store.Update(context.Background(), sess.Key, domain.StateAwaitingPaymentMethod, nil)
	sess, _ = store.Get(context.Background(), sess.Key)

	dec := domain.NewAction(domain.ActionConfirmOrder, map[string]string{
		"order_id":       o.ID,
		"payment_method": "yape",
	})
	reply, err := d.Dispatch(context.Background(), dec, sess)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(reply, "confirmado") || !strings.Contains(reply, "yape") {
		t.Errorf("reply = %q", reply)
	}

	got, _ := store.Get(context.Background(), sess.Key)
	if got.State != domain.StateIdle {
		t.Errorf("state = %s, want IDLE", got.State)
	}
	if got.Ctx(domain.CtxPendingOrder) != "" {
		t.Error("_pending_order must be cleared")
	}
}

func TestCancelOrder(t *testing.T) {
	d, fake, store := newTestDispatcher(t)
	o, _ := fake.CreateOrder(context.Background(), "cli-1")
	sess := newSession(t, store, map[string]string{domain.CtxPendingOrder: o.ID})

	dec := domain.NewAction(domain.ActionCancelOrder, map[string]string{"order_id": o.ID})
	reply, err := d.Dispatch(context.Background(), dec, sess)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(reply, "cancelado") {
		t.Errorf("reply = %q", reply)
	}

	cancelled, _ := fake.Order(context.Background(), o.ID)
	if cancelled.Status != "cancelled" {
		t.Errorf("order status = %s", cancelled.Status)
	}
}

func TestOrderStatusWithPending(t *testing.T) {
	d, fake, store := newTestDispatcher(t)
	o, _ := fake.CreateOrder(context.Background(), "cli-1")
	fake.AddItem(context.Background(), o.ID, commerce.OrderItem{ProductID: "p2", Name: "Mouse Logitech", Quantity: 2, UnitPrice: 49.9})
	sess := newSession(t, store, map[string]string{domain.CtxPendingOrder: o.ID})

	reply, err := d.Dispatch(context.Background(), domain.NewAction(domain.ActionOrderStatus, nil), sess)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(reply, "2x Mouse Logitech") {
		t.Errorf("reply = %q", reply)
	}
}

func TestOrderStatusNoOrders(t *testing.T) {
	d, _, store := newTestDispatcher(t)
	sess := newSession(t, store, nil)

	reply, err := d.Dispatch(context.Background(), domain.NewAction(domain.ActionOrderStatus, nil), sess)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(reply, "No tienes pedidos") {
		t.Errorf("reply = %q", reply)
	}
}

func TestRegisterClientAuthenticates(t *testing.T) {
	d, _, store := newTestDispatcher(t)
	sess := newSession(t, store, nil)

	dec := domain.NewAction(domain.ActionRegisterClient, map[string]string{
		"name":     "Carlos Quispe",
		"dni":      "45678901",
		"email":    "carlos@mail.com",
		"password": "clave123",
		"phone":    "911111111",
	})
	reply, err := d.Dispatch(context.Background(), dec, sess)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(reply, "Carlos Quispe") {
		t.Errorf("reply = %q", reply)
	}

	got, _ := store.Get(context.Background(), sess.Key)
	if !got.Authenticated() {
		t.Error("registration must authenticate the session")
	}
	if got.Ctx(domain.CtxClientID) == "" {
		t.Error("_client_id must be set after registration")
	}
}

func TestUpdateAccount(t *testing.T) {
	d, fake, store := newTestDispatcher(t)
	fake.SeedClient(commerce.Client{ID: "cli-1", Name: "Ana", Phone: "987654321"}, "secreta1")
	sess := newSession(t, store, map[string]string{domain.CtxClientID: "cli-1"})

	dec := domain.NewAction(domain.ActionUpdateAccount, map[string]string{
		"field": "email",
		"value": "ana@mail.com",
	})
	reply, err := d.Dispatch(context.Background(), dec, sess)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(reply, "actualicé") {
		t.Errorf("reply = %q", reply)
	}

	c, _ := fake.ClientByPhone(context.Background(), "987654321")
	if c.Email != "ana@mail.com" {
		t.Errorf("email = %q", c.Email)
	}
}

func TestAddItemNewLine(t *testing.T) {
	d, fake, store := newTestDispatcher(t)
	o, _ := fake.CreateOrder(context.Background(), "cli-1")
	fake.AddItem(context.Background(), o.ID, commerce.OrderItem{ProductID: "p1", Name: "Laptop HP 15", Quantity: 1, UnitPrice: 2199})
	sess := newSession(t, store, map[string]string{domain.CtxPendingOrder: o.ID})

	dec := domain.NewAction(domain.ActionAddItem, map[string]string{
		"producto": "mouse",
		"cantidad": "2",
	})
	reply, err := d.Dispatch(context.Background(), dec, sess)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(reply, "Agregué 2x Mouse Logitech") {
		t.Errorf("reply = %q", reply)
	}

	got, _ := fake.Order(context.Background(), o.ID)
	if len(got.Items) != 2 {
		t.Errorf("items = %d, want 2", len(got.Items))
	}
}

func TestAddItemBumpsExistingLine(t *testing.T) {
	d, fake, store := newTestDispatcher(t)
	o, _ := fake.CreateOrder(context.Background(), "cli-1")
	fake.AddItem(context.Background(), o.ID, commerce.OrderItem{ProductID: "p2", Name: "Mouse Logitech", Quantity: 1, UnitPrice: 49.9})
	sess := newSession(t, store, map[string]string{domain.CtxPendingOrder: o.ID})

	dec := domain.NewAction(domain.ActionAddItem, map[string]string{
		"producto": "mouse",
		"cantidad": "2",
	})
	reply, err := d.Dispatch(context.Background(), dec, sess)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(reply, "3x Mouse Logitech") {
		t.Errorf("reply = %q, want merged quantity", reply)
	}

	got, _ := fake.Order(context.Background(), o.ID)
	if len(got.Items) != 1 || got.Items[0].Quantity != 3 {
		t.Errorf("items = %+v, want one line with quantity 3", got.Items)
	}
}

func TestRemoveItem(t *testing.T) {
	d, fake, store := newTestDispatcher(t)
	o, _ := fake.CreateOrder(context.Background(), "cli-1")
	fake.AddItem(context.Background(), o.ID, commerce.OrderItem{ProductID: "p1", Name: "Laptop HP 15", Quantity: 1, UnitPrice: 2199})
	fake.AddItem(context.Background(), o.ID, commerce.OrderItem{ProductID: "p2", Name: "Mouse Logitech", Quantity: 2, UnitPrice: 49.9})
	sess := newSession(t, store, map[string]string{domain.CtxPendingOrder: o.ID})

	dec := domain.NewAction(domain.ActionRemoveItem, map[string]string{"producto": "mouse"})
	reply, err := d.Dispatch(context.Background(), dec, sess)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(reply, "Quité Mouse Logitech") || !strings.Contains(reply, "S/ 2199.00") {
		t.Errorf("reply = %q", reply)
	}

	got, _ := fake.Order(context.Background(), o.ID)
	if len(got.Items) != 1 || got.Items[0].ProductID != "p1" {
		t.Errorf("items = %+v, want only the laptop left", got.Items)
	}
}

func TestRemoveItemNotInOrder(t *testing.T) {
	d, fake, store := newTestDispatcher(t)
	o, _ := fake.CreateOrder(context.Background(), "cli-1")
	fake.AddItem(context.Background(), o.ID, commerce.OrderItem{ProductID: "p1", Name: "Laptop HP 15", Quantity: 1, UnitPrice: 2199})
	sess := newSession(t, store, map[string]string{domain.CtxPendingOrder: o.ID})

	dec := domain.NewAction(domain.ActionRemoveItem, map[string]string{"producto": "mouse"})
	reply, err := d.Dispatch(context.Background(), dec, sess)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(reply, "no está en tu pedido") {
		t.Errorf("reply = %q", reply)
	}
}

func TestOrderHistory(t *testing.T) {
	d, fake, store := newTestDispatcher(t)
	o, _ := fake.CreateOrder(context.Background(), "cli-1")
	fake.AddItem(context.Background(), o.ID, commerce.OrderItem{ProductID: "p1", Name: "Laptop HP 15", Quantity: 1, UnitPrice: 2199})
	fake.ConfirmOrder(context.Background(), o.ID, "yape")
	sess := newSession(t, store, map[string]string{domain.CtxClientID: "cli-1"})

	reply, err := d.Dispatch(context.Background(), domain.NewAction(domain.ActionOrderHistory, nil), sess)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(reply, o.ID) || !strings.Contains(reply, "confirmed") {
		t.Errorf("reply = %q", reply)
	}
}

func TestUnknownActionDoesNotFail(t *testing.T) {
	d, _, store := newTestDispatcher(t)
	sess := newSession(t, store, nil)

	reply, err := d.Dispatch(context.Background(), domain.NewAction("launch_rocket", nil), sess)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if reply == "" {
		t.Error("unknown action must still produce a reply")
	}
}
