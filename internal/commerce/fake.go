package commerce

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ventabot/ventabot/internal/domain"
)

// Fake is an in-memory commerce API for tests and local development.
type Fake struct {
	mu        sync.Mutex
	products  []Product
	clients   map[string]*Client // by id
	passwords map[string]string  // client id -> password
	orders    map[string]*Order
	nextID    int
}

var _ API = (*Fake)(nil)

// NewFake creates an empty fake backend.
func NewFake() *Fake {
	return &Fake{
		clients:   make(map[string]*Client),
		passwords: make(map[string]string),
		orders:    make(map[string]*Order),
	}
}

// SeedProduct adds a catalog product.
func (f *Fake) SeedProduct(p Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products = append(f.products, p)
}

// SeedClient adds a registered client with a password.
func (f *Fake) SeedClient(c Client, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := c
	f.clients[c.ID] = &cp
	f.passwords[c.ID] = password
}

func (f *Fake) SearchProducts(ctx context.Context, term string) ([]Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		// Empty term lists the whole catalog.
		out := make([]Product, len(f.products))
		copy(out, f.products)
		return out, nil
	}
	var out []Product
	for _, p := range f.products {
		haystack := strings.ToLower(p.Name + " " + p.Brand + " " + p.Category)
		if strings.Contains(haystack, term) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *Fake) Product(ctx context.Context, id string) (*Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound("product " + id)
}

func (f *Fake) CreateOrder(ctx context.Context, clientID string) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	o := &Order{ID: fmt.Sprintf("ord-%d", f.nextID), ClientID: clientID, Status: "draft"}
	f.orders[o.ID] = o
	cp := *o
	return &cp, nil
}

func (f *Fake) AddItem(ctx context.Context, orderID string, item OrderItem) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound("order " + orderID)
	}
	o.Items = append(o.Items, item)
	o.Total += item.UnitPrice * float64(item.Quantity)
	cp := *o
	return &cp, nil
}

func (f *Fake) UpdateItem(ctx context.Context, orderID, productID string, quantity int) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound("order " + orderID)
	}
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			o.Total += o.Items[i].UnitPrice * float64(quantity-o.Items[i].Quantity)
			o.Items[i].Quantity = quantity
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound("item " + productID)
}

func (f *Fake) RemoveItem(ctx context.Context, orderID, productID string) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound("order " + orderID)
	}
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			o.Total -= o.Items[i].UnitPrice * float64(o.Items[i].Quantity)
			o.Items = append(o.Items[:i], o.Items[i+1:]...)
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound("item " + productID)
}

func (f *Fake) ConfirmOrder(ctx context.Context, orderID, paymentMethod string) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound("order " + orderID)
	}
	o.Status = "confirmed"
	o.PaymentMethod = paymentMethod
	cp := *o
	return &cp, nil
}

func (f *Fake) CancelOrder(ctx context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return domain.ErrNotFound("order " + orderID)
	}
	o.Status = "cancelled"
	return nil
}

func (f *Fake) Order(ctx context.Context, orderID string) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound("order " + orderID)
	}
	cp := *o
	return &cp, nil
}

func (f *Fake) OrdersByClient(ctx context.Context, clientID string) ([]Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Order
	for _, o := range f.orders {
		if o.ClientID == clientID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *Fake) ClientByPhone(ctx context.Context, phone string) (*Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.clients {
		if c.Phone == phone {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound("client with phone " + phone)
}

func (f *Fake) VerifyPassword(ctx context.Context, clientID, password string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.passwords[clientID]
	if !ok {
		return false, domain.ErrNotFound("client " + clientID)
	}
	return stored == password, nil
}

func (f *Fake) Register(ctx context.Context, reg Registration) (*Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c := &Client{
		ID:    fmt.Sprintf("cli-%d", f.nextID),
		Name:  reg.Name,
		Phone: reg.Phone,
		DNI:   reg.DNI,
		Email: reg.Email,
	}
	f.clients[c.ID] = c
	f.passwords[c.ID] = reg.Password
	cp := *c
	return &cp, nil
}

func (f *Fake) UpdateClient(ctx context.Context, clientID, field, value string) (*Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clients[clientID]
	if !ok {
		return nil, domain.ErrNotFound("client " + clientID)
	}
	switch field {
	case "name", "nombre":
		c.Name = value
	case "email", "correo":
		c.Email = value
	case "phone", "celular", "telefono":
		c.Phone = value
	default:
		return nil, domain.ErrValidation("unknown account field " + field)
	}
	cp := *c
	return &cp, nil
}
