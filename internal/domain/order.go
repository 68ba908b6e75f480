package domain

import "time"

type OrderStatus string

// The one canonical order status enum shared by storefront, admin and mobile clients.
const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusDelivered OrderStatus = "delivered"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
	StatusFailed    OrderStatus = "failed"
)

var OrderStatuses = []OrderStatus{
	StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
	StatusDelivered, StatusCompleted, StatusCancelled, StatusFailed,
}

// CancellableStatuses are the states a customer may cancel from.
var CancellableStatuses = []OrderStatus{StatusPending, StatusConfirmed, StatusPreparing}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func (s OrderStatus) Cancellable() bool {
	for _, v := range CancellableStatuses {
		if v == s {
			return true
		}
	}
	return false
}

const (
	PaymentCashOnDelivery = "cash_on_delivery"
	PaymentStatusPending  = "pending"
)

// OrderItem is a frozen snapshot of a product at checkout time.
type OrderItem struct {
	ProductID string  `json:"product_id" dynamodbav:"product_id" validate:"required"`
	Name      string  `json:"name" dynamodbav:"name" validate:"required"`
	Price     float64 `json:"price" dynamodbav:"price" validate:"gt=0"`
	Quantity  int     `json:"quantity" dynamodbav:"quantity" validate:"min=1"`
}

type CustomerInfo struct {
	Name       string `json:"name" dynamodbav:"name" validate:"max=120"`
	Email      string `json:"email" dynamodbav:"email" validate:"omitempty,email"`
	Phone      string `json:"phone" dynamodbav:"phone" validate:"max=30"`
	Address    string `json:"address" dynamodbav:"address" validate:"max=300"`
	City       string `json:"city" dynamodbav:"city" validate:"max=120"`
	PostalCode string `json:"postal_code" dynamodbav:"postal_code" validate:"max=20"`
	Notes      string `json:"notes" dynamodbav:"notes" validate:"max=1000"`
}

type PaymentInfo struct {
	Method string `json:"method" dynamodbav:"method"`
	Status string `json:"status" dynamodbav:"status"`
}

type Order struct {
	OrderID       string       `json:"order_id" dynamodbav:"order_id"`
	UserID        string       `json:"user_id,omitempty" dynamodbav:"user_id,omitempty"`
	Items         []OrderItem  `json:"items" dynamodbav:"items"`
	Subtotal      float64      `json:"subtotal" dynamodbav:"subtotal"`
	Tax           float64      `json:"tax" dynamodbav:"tax"`
	Shipping      float64      `json:"shipping" dynamodbav:"shipping"`
	Total         float64      `json:"total" dynamodbav:"total"`
	SubtotalCents int64        `json:"subtotal_cents" dynamodbav:"subtotal_cents"`
	TaxCents      int64        `json:"tax_cents" dynamodbav:"tax_cents"`
	ShippingCents int64        `json:"shipping_cents" dynamodbav:"shipping_cents"`
	TotalCents    int64        `json:"total_cents" dynamodbav:"total_cents"`
	Status        OrderStatus  `json:"status" dynamodbav:"status"`
	Customer      CustomerInfo `json:"customer" dynamodbav:"customer"`
	CustomerEmail string       `json:"-" dynamodbav:"customer_email,omitempty"` // GSI key, lower-cased
	Payment       PaymentInfo  `json:"payment" dynamodbav:"payment"`
	CreatedAt     time.Time    `json:"created" dynamodbav:"created_at"`
	UpdatedAt     time.Time    `json:"updated" dynamodbav:"updated_at"`
}

type CreateOrderRequest struct {
	Items         []OrderItem  `json:"items" validate:"required,min=1,dive"`
	Customer      CustomerInfo `json:"customer"`
	PaymentMethod string       `json:"payment_method" validate:"omitempty,oneof=cash_on_delivery"`
}

type UpdateStatusRequest struct {
	Status OrderStatus `json:"status" validate:"required,order_status"`
}

type CancelOrderRequest struct {
	Email string `json:"email"` // guest orders only
}
