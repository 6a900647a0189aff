// Package dispatch executes action-form routing decisions against the
// commerce backend and applies the resulting session transitions. It is the
// only component besides the engine that writes to the session store.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ventabot/ventabot/internal/commerce"
	"github.com/ventabot/ventabot/internal/domain"
	"github.com/ventabot/ventabot/internal/session"
)

const maxCatalogItems = 10

// Dispatcher runs workflow actions and persists their session effects.
type Dispatcher struct {
	commerce commerce.API
	store    session.Store
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New creates a Dispatcher.
func New(api commerce.API, store session.Store, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		commerce: api,
		store:    store,
		logger:   logger,
		tracer:   otel.Tracer("ventabot/dispatch"),
	}
}

// Dispatch executes dec's action and returns the customer-facing reply.
// Unknown actions are logged and answered with a generic help pointer
// rather than failing the turn.
func (d *Dispatcher) Dispatch(ctx context.Context, dec *domain.Decision, sess *domain.Session) (string, error) {
	ctx, span := d.tracer.Start(ctx, "dispatch.Dispatch",
		trace.WithAttributes(attribute.String("action", string(dec.Action))))
	defer span.End()

	switch dec.Action {
	case domain.ActionShowCatalog:
		return d.showCatalog(ctx)
	case domain.ActionOrderStatus:
		return d.orderStatus(ctx, sess)
	case domain.ActionCreateOrder:
		return d.createOrder(ctx, dec, sess)
	case domain.ActionAddItem:
		return d.addItem(ctx, dec, sess)
	case domain.ActionRemoveItem:
		return d.removeItem(ctx, dec, sess)
	case domain.ActionConfirmOrder:
		return d.confirmOrder(ctx, dec, sess)
	case domain.ActionCancelOrder:
		return d.cancelOrder(ctx, dec, sess)
	case domain.ActionShowPayment:
		return d.showPayment(ctx, sess)
	case domain.ActionOrderHistory:
		return d.orderHistory(ctx, sess)
	case domain.ActionAccountInfo:
		return d.accountInfo(ctx, sess)
	case domain.ActionUpdateAccount:
		return d.updateAccount(ctx, dec, sess)
	case domain.ActionRegisterClient:
		return d.registerClient(ctx, dec, sess)
	}

	d.logger.Error("unknown action", slog.String("action", string(dec.Action)))
	return "No pude procesar esa operación. Escribe ayuda para ver opciones.", nil
}

func (d *Dispatcher) showCatalog(ctx context.Context) (string, error) {
	products, err := d.commerce.SearchProducts(ctx, "")
	if err != nil {
		return "", err
	}
	if len(products) == 0 {
		return "El catálogo está vacío por ahora. Vuelve pronto.", nil
	}
	if len(products) > maxCatalogItems {
		products = products[:maxCatalogItems]
	}

	var b strings.Builder
	b.WriteString("Nuestro catálogo:\n")
	for _, p := range products {
		fmt.Fprintf(&b, "- %s: S/ %.2f\n", p.Name, p.Price)
	}
	b.WriteString("Pregunta por el precio o stock de cualquiera.")
	return b.String(), nil
}

func (d *Dispatcher) orderStatus(ctx context.Context, sess *domain.Session) (string, error) {
	if orderID := sess.Ctx(domain.CtxPendingOrder); orderID != "" {
		o, err := d.commerce.Order(ctx, orderID)
		if err == nil {
			return describeOrder(o), nil
		}
		if !domain.IsKind(err, domain.KindNotFound) {
			return "", err
		}
		// Stale pointer: fall through to the history lookup.
	}

	clientID := sess.Ctx(domain.CtxClientID)
	if clientID == "" {
		return "No tienes pedidos activos. Escribe catálogo para empezar uno.", nil
	}
	orders, err := d.commerce.OrdersByClient(ctx, clientID)
	if err != nil {
		return "", err
	}
	if len(orders) == 0 {
		return "No tienes pedidos activos. Escribe catálogo para empezar uno.", nil
	}
	return describeOrder(&orders[len(orders)-1]), nil
}

// orderItems is the wire shape the router's AI extraction produces.
type orderItems []struct {
	Producto string `json:"producto"`
	Cantidad int    `json:"cantidad"`
}

func (d *Dispatcher) createOrder(ctx context.Context, dec *domain.Decision, sess *domain.Session) (string, error) {
	var items orderItems
	if err := json.Unmarshal([]byte(dec.ActionData["items"]), &items); err != nil {
		return "", fmt.Errorf("bad order items payload: %w", err)
	}
	if len(items) == 0 {
		return "No entendí qué productos quieres. Escribe catálogo para verlos.", nil
	}

	clientID := sess.Ctx(domain.CtxClientID)
	if clientID == "" {
		clientID = sess.Key
	}
	order, err := d.commerce.CreateOrder(ctx, clientID)
	if err != nil {
		return "", err
	}

	var added, missing []string
	for _, item := range items {
		products, err := d.commerce.SearchProducts(ctx, item.Producto)
		if err != nil {
			return "", err
		}
		if len(products) == 0 {
			missing = append(missing, item.Producto)
			continue
		}
		p := products[0]
		order, err = d.commerce.AddItem(ctx, order.ID, commerce.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  item.Cantidad,
			UnitPrice: p.Price,
		})
		if err != nil {
			return "", err
		}
		added = append(added, fmt.Sprintf("%dx %s", item.Cantidad, p.Name))
	}

	if len(added) == 0 {
		if err := d.commerce.CancelOrder(ctx, order.ID); err != nil {
			d.logger.Warn("failed to discard empty order", slog.String("error", err.Error()))
		}
		return fmt.Sprintf("No encontré %s en el catálogo. Escribe catálogo para ver los productos.",
			strings.Join(missing, ", ")), nil
	}

	if err := d.store.Update(ctx, sess.Key, domain.StateAwaitingPaymentMethod, map[string]string{
		domain.CtxPendingOrder: order.ID,
	}); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tu pedido: %s. Total: S/ %.2f.", strings.Join(added, ", "), order.Total)
	if len(missing) > 0 {
		fmt.Fprintf(&b, " No encontré: %s.", strings.Join(missing, ", "))
	}
	b.WriteString(" ¿Cómo deseas pagar? (efectivo, tarjeta, transferencia, Yape o Plin)")
	return b.String(), nil
}

func (d *Dispatcher) addItem(ctx context.Context, dec *domain.Decision, sess *domain.Session) (string, error) {
	orderID := sess.Ctx(domain.CtxPendingOrder)
	if orderID == "" {
		return "No tienes un pedido abierto. Dime qué quieres comprar y lo empiezo.", nil
	}
	term := dec.ActionData["producto"]
	products, err := d.commerce.SearchProducts(ctx, term)
	if err != nil {
		return "", err
	}
	if len(products) == 0 {
		return fmt.Sprintf("No encontré \"%s\" en el catálogo.", term), nil
	}
	p := products[0]
	qty := 1
	fmt.Sscanf(dec.ActionData["cantidad"], "%d", &qty)
	if qty <= 0 {
		qty = 1
	}

	// A product already on the draft gets its line bumped instead of a
	// duplicate line.
	current, err := d.commerce.Order(ctx, orderID)
	if err != nil {
		return "", err
	}
	for _, it := range current.Items {
		if it.ProductID == p.ID {
			order, err := d.commerce.UpdateItem(ctx, orderID, p.ID, it.Quantity+qty)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Ahora llevas %dx %s. Total: S/ %.2f.", it.Quantity+qty, p.Name, order.Total), nil
		}
	}

	order, err := d.commerce.AddItem(ctx, orderID, commerce.OrderItem{
		ProductID: p.ID,
		Name:      p.Name,
		Quantity:  qty,
		UnitPrice: p.Price,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Agregué %dx %s. Total: S/ %.2f.", qty, p.Name, order.Total), nil
}

func (d *Dispatcher) removeItem(ctx context.Context, dec *domain.Decision, sess *domain.Session) (string, error) {
	orderID := sess.Ctx(domain.CtxPendingOrder)
	if orderID == "" {
		return "No tienes un pedido abierto.", nil
	}
	term := dec.ActionData["producto"]
	products, err := d.commerce.SearchProducts(ctx, term)
	if err != nil {
		return "", err
	}
	if len(products) == 0 {
		return fmt.Sprintf("No encontré \"%s\" en el catálogo.", term), nil
	}
	p := products[0]
	order, err := d.commerce.RemoveItem(ctx, orderID, p.ID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return fmt.Sprintf("%s no está en tu pedido.", p.Name), nil
		}
		return "", err
	}
	if len(order.Items) == 0 {
		return fmt.Sprintf("Quité %s y tu pedido quedó vacío. ¿Deseas cancelarlo o agregar otro producto?", p.Name), nil
	}
	return fmt.Sprintf("Quité %s. Total: S/ %.2f.", p.Name, order.Total), nil
}

func (d *Dispatcher) confirmOrder(ctx context.Context, dec *domain.Decision, sess *domain.Session) (string, error) {
	order, err := d.commerce.ConfirmOrder(ctx, dec.ActionData["order_id"], dec.ActionData["payment_method"])
	if err != nil {
		return "", err
	}

	patch := session.ClearTransientPatch()
	patch[domain.CtxPendingOrder] = ""
	patch[domain.CtxPaymentMethod] = order.PaymentMethod
	if err := d.store.Update(ctx, sess.Key, domain.StateIdle, patch); err != nil {
		return "", err
	}
	return fmt.Sprintf("¡Pedido confirmado! Total: S/ %.2f, pago con %s. Te avisaré cuando esté en camino.",
		order.Total, order.PaymentMethod), nil
}

func (d *Dispatcher) cancelOrder(ctx context.Context, dec *domain.Decision, sess *domain.Session) (string, error) {
	orderID := dec.ActionData["order_id"]
	if orderID == "" {
		orderID = sess.Ctx(domain.CtxPendingOrder)
	}
	if orderID != "" {
		if err := d.commerce.CancelOrder(ctx, orderID); err != nil && !domain.IsKind(err, domain.KindNotFound) {
			return "", err
		}
	}

	patch := session.ClearTransientPatch()
	patch[domain.CtxPendingOrder] = ""
	if err := d.store.Update(ctx, sess.Key, domain.StateIdle, patch); err != nil {
		return "", err
	}
	return "Pedido cancelado. Escribe catálogo cuando quieras empezar otro.", nil
}

func (d *Dispatcher) showPayment(ctx context.Context, sess *domain.Session) (string, error) {
	orderID := sess.Ctx(domain.CtxPendingOrder)
	if orderID == "" {
		return "Aceptamos efectivo, tarjeta, transferencia, Yape y Plin.", nil
	}
	if err := d.store.Update(ctx, sess.Key, domain.StateAwaitingPaymentMethod, nil); err != nil {
		return "", err
	}
	return "¿Cómo deseas pagar tu pedido? Aceptamos efectivo, tarjeta, transferencia, Yape o Plin.", nil
}

func (d *Dispatcher) orderHistory(ctx context.Context, sess *domain.Session) (string, error) {
	clientID := sess.Ctx(domain.CtxClientID)
	if clientID == "" {
		return "Para ver tu historial primero inicia sesión. Envíame tu celular de 9 dígitos.", nil
	}
	orders, err := d.commerce.OrdersByClient(ctx, clientID)
	if err != nil {
		return "", err
	}
	if len(orders) == 0 {
		return "Aún no tienes pedidos.", nil
	}

	var b strings.Builder
	b.WriteString("Tus pedidos:\n")
	for _, o := range orders {
		fmt.Fprintf(&b, "- %s: %s, S/ %.2f\n", o.ID, o.Status, o.Total)
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}

func (d *Dispatcher) accountInfo(ctx context.Context, sess *domain.Session) (string, error) {
	phone := sess.Ctx(domain.CtxClientPhone)
	if phone == "" {
		return "Para ver tu cuenta primero inicia sesión. Envíame tu celular de 9 dígitos.", nil
	}
	client, err := d.commerce.ClientByPhone(ctx, phone)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Tu cuenta:\n- Nombre: %s\n- Celular: %s\n- Correo: %s\nEscribe actualizar para cambiar un dato.",
		client.Name, client.Phone, client.Email), nil
}

func (d *Dispatcher) updateAccount(ctx context.Context, dec *domain.Decision, sess *domain.Session) (string, error) {
	clientID := sess.Ctx(domain.CtxClientID)
	if clientID == "" {
		return "Para actualizar tu cuenta primero inicia sesión.", nil
	}
	field, value := dec.ActionData["field"], dec.ActionData["value"]
	client, err := d.commerce.UpdateClient(ctx, clientID, field, value)
	if err != nil {
		if domain.IsKind(err, domain.KindValidation) {
			return "Ese dato no se puede actualizar por aquí.", nil
		}
		return "", err
	}

	patch := session.ClearTransientPatch()
	patch[domain.CtxClientName] = client.Name
	patch[domain.CtxClientPhone] = client.Phone
	if err := d.store.Update(ctx, sess.Key, domain.StateIdle, patch); err != nil {
		return "", err
	}
	return "Listo, actualicé tus datos.", nil
}

func (d *Dispatcher) registerClient(ctx context.Context, dec *domain.Decision, sess *domain.Session) (string, error) {
	reg := commerce.Registration{
		Name:     dec.ActionData["name"],
		DNI:      dec.ActionData["dni"],
		Email:    dec.ActionData["email"],
		Password: dec.ActionData["password"],
		Phone:    dec.ActionData["phone"],
	}
	client, err := d.commerce.Register(ctx, reg)
	if err != nil {
		return "", err
	}

	patch := session.ClearTransientPatch()
	patch[domain.CtxClientID] = client.ID
	patch[domain.CtxClientName] = client.Name
	patch[domain.CtxClientPhone] = client.Phone
	patch[domain.CtxAuthenticated] = "true"
	if err := d.store.Update(ctx, sess.Key, domain.StateIdle, patch); err != nil {
		return "", err
	}
	return fmt.Sprintf("¡Cuenta creada, %s! Ya puedes comprar con nosotros. Escribe catálogo para empezar.",
		client.Name), nil
}

func describeOrder(o *commerce.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pedido %s (%s):\n", o.ID, o.Status)
	for _, it := range o.Items {
		fmt.Fprintf(&b, "- %dx %s\n", it.Quantity, it.Name)
	}
	fmt.Fprintf(&b, "Total: S/ %.2f", o.Total)
	return b.String()
}
