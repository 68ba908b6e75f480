// Package cart is the client-side shopping cart. It holds line items keyed by
// product, prices them with the same rules the server applies at checkout and
// turns them into an order request.
package cart

import (
	"errors"
	"fmt"
	"sync"

	"github.com/himalfrost/store-api/internal/domain"
	"github.com/himalfrost/store-api/internal/pkg/pricing"
)

var ErrEmpty = errors.New("cart is empty")

// Cart is safe for concurrent use. Every mutation is persisted to its Storage
// before returning; the last write wins.
type Cart struct {
	mu      sync.Mutex
	lines   []domain.OrderItem
	storage Storage
}

// New loads a cart from storage. A nil storage keeps the cart in memory only.
func New(storage Storage) (*Cart, error) {
	c := &Cart{storage: storage}
	if storage == nil {
		return c, nil
	}
	lines, err := storage.Load()
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	c.lines = lines
	return c, nil
}

// Add puts item in the cart. If the product is already there its quantity is
// increased by item.Quantity and the stored name and price are kept.
func (c *Cart) Add(item domain.OrderItem) error {
	if item.ProductID == "" {
		return fmt.Errorf("product id required: %w", domain.ErrBadRequest)
	}
	if item.Quantity < 1 {
		return fmt.Errorf("quantity must be at least 1: %w", domain.ErrBadRequest)
	}
	if item.Price <= 0 {
		return fmt.Errorf("price must be positive: %w", domain.ErrBadRequest)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(item.ProductID); i >= 0 {
		c.lines[i].Quantity += item.Quantity
	} else {
		c.lines = append(c.lines, item)
	}
	return c.save()
}

// Remove drops the product's line. Removing an absent product is a no-op.
func (c *Cart) Remove(productID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(productID)
	if i < 0 {
		return nil
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return c.save()
}

// SetQuantity replaces the product's quantity; below 1 removes the line.
func (c *Cart) SetQuantity(productID string, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(productID)
	if i < 0 {
		return fmt.Errorf("product %s not in cart: %w", productID, domain.ErrNotFound)
	}
	if qty < 1 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	} else {
		c.lines[i].Quantity = qty
	}
	return c.save()
}

func (c *Cart) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
	return c.save()
}

// Items returns a copy of the lines in the order they were first added.
func (c *Cart) Items() []domain.OrderItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.OrderItem(nil), c.lines...)
}

func (c *Cart) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) Subtotal() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return pricing.FromCents(pricing.SubtotalCents(c.lines))
}

// Quote prices the cart as checkout would.
func (c *Cart) Quote(rules pricing.Rules) pricing.Quote {
	c.mu.Lock()
	defer c.mu.Unlock()
	return rules.Calculate(c.lines)
}

// CheckoutRequest builds a cash-on-delivery order request from the current
// lines. Later cart changes do not affect the returned value.
func (c *Cart) CheckoutRequest(customer domain.CustomerInfo) (domain.CreateOrderRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.lines) == 0 {
		return domain.CreateOrderRequest{}, ErrEmpty
	}
	return domain.CreateOrderRequest{
		Items:         append([]domain.OrderItem(nil), c.lines...),
		Customer:      customer,
		PaymentMethod: domain.PaymentCashOnDelivery,
	}, nil
}

func (c *Cart) indexOf(productID string) int {
	for i, l := range c.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

// save must be called with c.mu held.
func (c *Cart) save() error {
	if c.storage == nil {
		return nil
	}
	if err := c.storage.Save(append([]domain.OrderItem(nil), c.lines...)); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}
