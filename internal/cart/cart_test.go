package cart

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/himalfrost/store-api/internal/domain"
	"github.com/himalfrost/store-api/internal/pkg/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStorage struct {
	lines []domain.OrderItem
	saves int
	err   error
}

func (m *memStorage) Load() ([]domain.OrderItem, error) { return m.lines, nil }

func (m *memStorage) Save(lines []domain.OrderItem) error {
	if m.err != nil {
		return m.err
	}
	m.lines = lines
	m.saves++
	return nil
}

func momo(qty int) domain.OrderItem {
	return domain.OrderItem{ProductID: "p-momo", Name: "Chicken Momo", Price: 12.99, Quantity: qty}
}

func TestCart_AddMergesQuantities(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)

	require.NoError(t, c.Add(momo(2)))
	require.NoError(t, c.Add(momo(3)))

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, 5, c.TotalItems())
}

func TestCart_AddRejectsBadItems(t *testing.T) {
	c, _ := New(nil)
	assert.ErrorIs(t, c.Add(domain.OrderItem{ProductID: "p", Price: 1, Quantity: 0}), domain.ErrBadRequest)
	assert.ErrorIs(t, c.Add(domain.OrderItem{ProductID: "p", Price: 0, Quantity: 1}), domain.ErrBadRequest)
	assert.ErrorIs(t, c.Add(domain.OrderItem{Price: 1, Quantity: 1}), domain.ErrBadRequest)
	assert.Empty(t, c.Items())
}

func TestCart_SetQuantityBelowOneRemoves(t *testing.T) {
	c, _ := New(nil)
	require.NoError(t, c.Add(momo(1)))
	require.NoError(t, c.SetQuantity("p-momo", 4))
	assert.Equal(t, 4, c.TotalItems())

	require.NoError(t, c.SetQuantity("p-momo", 0))
	assert.Empty(t, c.Items())
	assert.ErrorIs(t, c.SetQuantity("p-momo", 2), domain.ErrNotFound)
}

func TestCart_Remove(t *testing.T) {
	c, _ := New(nil)
	require.NoError(t, c.Add(momo(1)))
	require.NoError(t, c.Add(domain.OrderItem{ProductID: "p-sauce", Name: "Achar", Price: 4.5, Quantity: 1}))
	require.NoError(t, c.Remove("p-momo"))
	require.NoError(t, c.Remove("absent"))

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "p-sauce", items[0].ProductID)
}

func TestCart_QuoteMatchesCheckoutPricing(t *testing.T) {
	c, _ := New(nil)
	require.NoError(t, c.Add(momo(3)))

	assert.InDelta(t, 38.97, c.Subtotal(), 1e-9)
	q := c.Quote(pricing.DefaultRules)
	assert.InDelta(t, 38.97, q.Subtotal, 1e-9)
	assert.InDelta(t, 5.00, q.Shipping, 1e-9)
	assert.InDelta(t, 3.12, q.Tax, 1e-9)
	assert.InDelta(t, 47.09, q.Total, 1e-9)
}

func TestCart_CheckoutRequestIsACopy(t *testing.T) {
	c, _ := New(nil)
	_, err := c.CheckoutRequest(domain.CustomerInfo{})
	assert.ErrorIs(t, err, ErrEmpty)

	require.NoError(t, c.Add(momo(2)))
	req, err := c.CheckoutRequest(domain.CustomerInfo{Name: "Maya", Email: "maya@example.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCashOnDelivery, req.PaymentMethod)

	require.NoError(t, c.SetQuantity("p-momo", 9))
	assert.Equal(t, 2, req.Items[0].Quantity)
}

func TestCart_PersistsEveryMutation(t *testing.T) {
	s := &memStorage{lines: []domain.OrderItem{momo(1)}}
	c, err := New(s)
	require.NoError(t, err)
	assert.Equal(t, 1, c.TotalItems())

	require.NoError(t, c.Add(momo(1)))
	require.NoError(t, c.Clear())
	assert.Equal(t, 2, s.saves)
	assert.Empty(t, s.lines)
}

func TestCart_SaveErrorSurfaces(t *testing.T) {
	s := &memStorage{err: errors.New("disk full")}
	c, _ := New(s)
	assert.ErrorContains(t, c.Add(momo(1)), "disk full")
}

func TestFileStorage_RoundTripAcrossCarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cart.json")
	fs := FileStorage{Path: path}

	first, err := New(fs)
	require.NoError(t, err)
	assert.Empty(t, first.Items())
	require.NoError(t, first.Add(momo(2)))

	second, err := New(fs)
	require.NoError(t, err)
	assert.Equal(t, first.Items(), second.Items())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"product_id": "p-momo"`)
}

func TestFileStorage_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err := New(FileStorage{Path: path})
	assert.Error(t, err)
}
