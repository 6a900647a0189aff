// Package commerce defines the catalog/commerce collaborator port: product
// search, order lifecycle, and client account operations. The routing core
// consumes this interface only; order contents are owned by the backend.
package commerce

import "context"

// Product is a ranked catalog search candidate.
type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Brand    string  `json:"brand"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
}

// OrderItem is one line of an order draft.
type OrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Order is an order draft or confirmed order owned by the backend.
type Order struct {
	ID            string      `json:"id"`
	ClientID      string      `json:"client_id"`
	Items         []OrderItem `json:"items"`
	Status        string      `json:"status"` // draft, confirmed, cancelled
	PaymentMethod string      `json:"payment_method,omitempty"`
	Total         float64     `json:"total"`
}

// Client is a registered customer account.
type Client struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	DNI   string `json:"dni"`
	Email string `json:"email"`
}

// Registration carries the fields collected by the registration flow.
type Registration struct {
	Name     string `json:"name"`
	DNI      string `json:"dni"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

// API is the commerce collaborator consumed by the routing core.
// Lookup misses return KindNotFound errors, never (nil, nil).
type API interface {
	// SearchProducts returns ranked candidates for a free-text term.
	SearchProducts(ctx context.Context, term string) ([]Product, error)
	Product(ctx context.Context, id string) (*Product, error)

	CreateOrder(ctx context.Context, clientID string) (*Order, error)
	AddItem(ctx context.Context, orderID string, item OrderItem) (*Order, error)
	UpdateItem(ctx context.Context, orderID, productID string, quantity int) (*Order, error)
	RemoveItem(ctx context.Context, orderID, productID string) (*Order, error)
	ConfirmOrder(ctx context.Context, orderID, paymentMethod string) (*Order, error)
	CancelOrder(ctx context.Context, orderID string) error
	Order(ctx context.Context, orderID string) (*Order, error)
	OrdersByClient(ctx context.Context, clientID string) ([]Order, error)

	ClientByPhone(ctx context.Context, phone string) (*Client, error)
	VerifyPassword(ctx context.Context, clientID, password string) (bool, error)
	Register(ctx context.Context, reg Registration) (*Client, error)

	// UpdateClient sets one account field (name, email, phone) to a new
	// value.
	UpdateClient(ctx context.Context, clientID, field, value string) (*Client, error)
}
