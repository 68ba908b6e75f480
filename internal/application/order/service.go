package order

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/himalfrost/store-api/internal/domain"
	"github.com/himalfrost/store-api/internal/infrastructure/smtp"
	"github.com/himalfrost/store-api/internal/pkg/id"
	"github.com/himalfrost/store-api/internal/pkg/pricing"
)

type Service interface {
	// Create prices items and records a pending order. user is nil for guest checkout.
	Create(ctx context.Context, req domain.CreateOrderRequest, user *domain.User) (*domain.Order, error)
	// Get returns the order if viewer may see it. viewer is nil for anonymous callers.
	// Get returns an order to its owner or an admin. Guest orders also need
	// the snapshot email, given explicitly or taken from a signed-in viewer.
	Get(ctx context.Context, orderID string, viewer *domain.User, email string) (*domain.Order, error)
	ListMine(ctx context.Context, user *domain.User) ([]domain.Order, error)
	ListAll(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error)
	// Cancel moves a pending, confirmed or preparing order to cancelled.
	// Guest orders are matched on email instead of the caller's account.
	Cancel(ctx context.Context, orderID string, viewer *domain.User, email string) (*domain.Order, error)
}

type orderStore interface {
	Create(ctx context.Context, o *domain.Order) error
	Get(ctx context.Context, orderID string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListByEmail(ctx context.Context, email string) ([]domain.Order, error)
	List(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, to domain.OrderStatus, from ...domain.OrderStatus) (*domain.Order, error)
}

type profileUpdater interface {
	SaveCheckoutDetails(ctx context.Context, userID string, c domain.CustomerInfo) error
}

type ServiceDeps struct {
	OrderRepo orderStore
	Profiles  profileUpdater
	Mailer    smtp.Mailer // nil disables confirmation emails
	Pricing   pricing.Rules
}

type service struct {
	repo     orderStore
	profiles profileUpdater
	mailer   smtp.Mailer
	rules    pricing.Rules
	now      func() time.Time
	newID    func(time.Time) string
	async    func(func())
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:     deps.OrderRepo,
		profiles: deps.Profiles,
		mailer:   deps.Mailer,
		rules:    deps.Pricing,
		now:      time.Now,
		newID:    id.NewOrderID,
		async:    func(f func()) { go f() },
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateOrderRequest, user *domain.User) (*domain.Order, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("order has no items: %w", domain.ErrBadRequest)
	}
	items := make([]domain.OrderItem, len(req.Items))
	for i, it := range req.Items {
		if it.ProductID == "" || it.Quantity < 1 || it.Price <= 0 {
			return nil, fmt.Errorf("item %d is malformed: %w", i, domain.ErrBadRequest)
		}
		items[i] = it
	}
	method := req.PaymentMethod
	if method == "" {
		method = domain.PaymentCashOnDelivery
	}
	if method != domain.PaymentCashOnDelivery {
		return nil, fmt.Errorf("unsupported payment method %q: %w", method, domain.ErrBadRequest)
	}

	customer := req.Customer
	customer.Email = strings.ToLower(strings.TrimSpace(customer.Email))
	if user != nil {
		if customer.Email == "" {
			customer.Email = user.Email
		}
		if customer.Phone == "" {
			customer.Phone = user.Phone
		}
	}

	q := s.rules.Calculate(items)
	now := s.now().UTC()
	o := &domain.Order{
		OrderID:       s.newID(now),
		Items:         items,
		Subtotal:      q.Subtotal,
		Tax:           q.Tax,
		Shipping:      q.Shipping,
		Total:         q.Total,
		SubtotalCents: q.SubtotalCents,
		TaxCents:      q.TaxCents,
		ShippingCents: q.ShippingCents,
		TotalCents:    q.TotalCents,
		Status:        domain.StatusPending,
		Customer:      customer,
		CustomerEmail: customer.Email,
		Payment:       domain.PaymentInfo{Method: method, Status: domain.PaymentStatusPending},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if user != nil {
		o.UserID = user.UserID
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}
	slog.Info("order created", "order_id", o.OrderID, "user_id", o.UserID, "total", o.Total)

	if user != nil && s.profiles != nil && (req.Customer.Name != "" || req.Customer.Email != "") {
		if err := s.profiles.SaveCheckoutDetails(ctx, user.UserID, req.Customer); err != nil {
			slog.Warn("save checkout details to profile", "user_id", user.UserID, "err", err)
		}
	}
	if s.mailer != nil && o.Customer.Email != "" {
		snapshot := *o
		s.async(func() { s.sendConfirmation(&snapshot) })
	}
	return o, nil
}

func (s *service) Get(ctx context.Context, orderID string, viewer *domain.User, email string) (*domain.Order, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := canAccess(o, viewer, email, "view"); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *service) ListMine(ctx context.Context, user *domain.User) ([]domain.Order, error) {
	if user == nil {
		return nil, fmt.Errorf("sign in to list orders: %w", domain.ErrUnauthorized)
	}
	owned, err := s.repo.ListByUser(ctx, user.UserID)
	if err != nil {
		return nil, err
	}
	if user.Email == "" {
		return owned, nil
	}
	// Orders placed as a guest with the same email belong to the user too.
	byEmail, err := s.repo.ListByEmail(ctx, user.Email)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(owned))
	for _, o := range owned {
		seen[o.OrderID] = true
	}
	for _, o := range byEmail {
		if !seen[o.OrderID] && (o.UserID == "" || o.UserID == user.UserID) {
			owned = append(owned, o)
			seen[o.OrderID] = true
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].CreatedAt.After(owned[j].CreatedAt) })
	return owned, nil
}

func (s *service) ListAll(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", status, domain.ErrBadRequest)
	}
	return s.repo.List(ctx, status)
}

func (s *service) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", status, domain.ErrBadRequest)
	}
	o, err := s.repo.UpdateStatus(ctx, orderID, status)
	if err != nil {
		return nil, err
	}
	slog.Info("order status changed", "order_id", orderID, "status", status)
	return o, nil
}

func (s *service) Cancel(ctx context.Context, orderID string, viewer *domain.User, email string) (*domain.Order, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := canAccess(o, viewer, email, "cancel"); err != nil {
		return nil, err
	}
	if !o.Status.Cancellable() {
		return nil, fmt.Errorf("order %s is %s: %w", orderID, o.Status, domain.ErrInvalidTransition)
	}
	// The condition is re-checked in the store so a concurrent status change wins.
	updated, err := s.repo.UpdateStatus(ctx, orderID, domain.StatusCancelled, domain.CancellableStatuses...)
	if err != nil {
		return nil, err
	}
	slog.Info("order cancelled", "order_id", orderID)
	return updated, nil
}

// canAccess admits admins, the owner of a signed-in order, and for guest
// orders anyone presenting the snapshot email.
func canAccess(o *domain.Order, viewer *domain.User, email, action string) error {
	if viewer.IsAdmin() {
		return nil
	}
	if o.UserID != "" {
		if viewer == nil {
			return fmt.Errorf("sign in to %s this order: %w", action, domain.ErrUnauthorized)
		}
		if viewer.UserID != o.UserID {
			return fmt.Errorf("order belongs to another account: %w", domain.ErrForbidden)
		}
		return nil
	}
	if email == "" && viewer != nil {
		email = viewer.Email
	}
	if email == "" || o.CustomerEmail == "" || !strings.EqualFold(strings.TrimSpace(email), o.CustomerEmail) {
		return fmt.Errorf("email does not match the order: %w", domain.ErrForbidden)
	}
	return nil
}

func (s *service) sendConfirmation(o *domain.Order) {
	subject := fmt.Sprintf("Order %s received", o.OrderID)
	if err := s.mailer.SendEmail(o.Customer.Email, subject, confirmationBody(o)); err != nil {
		slog.Warn("send order confirmation", "order_id", o.OrderID, "err", err)
	}
}

func confirmationBody(o *domain.Order) string {
	var b strings.Builder
	name := o.Customer.Name
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\n\nThanks for your order %s. We will call you when it is on its way.\n\n", name, o.OrderID)
	for _, it := range o.Items {
		fmt.Fprintf(&b, "  %d x %s @ $%.2f\n", it.Quantity, it.Name, it.Price)
	}
	fmt.Fprintf(&b, "\nSubtotal: $%.2f\nTax:      $%.2f\nShipping: $%.2f\nTotal:    $%.2f\n", o.Subtotal, o.Tax, o.Shipping, o.Total)
	fmt.Fprintf(&b, "\nPayment: cash on delivery\n")
	if o.Customer.Address != "" {
		fmt.Fprintf(&b, "Deliver to: %s, %s %s\n", o.Customer.Address, o.Customer.City, o.Customer.PostalCode)
	}
	return b.String()
}
