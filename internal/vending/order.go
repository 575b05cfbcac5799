// Package vending holds the purchase rules of the machine: the credit and
// stock guards, the coordinator that commits a purchase, and the slot catalog.
package vending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vending_machine/internal/domain"
	"vending_machine/internal/ledger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultMaxAttempts bounds how often a purchase is replayed after a version conflict
const DefaultMaxAttempts = 3

// Coordinator places orders. It keeps no state between requests; every
// attempt starts from a fresh read of the store.
type Coordinator struct {
	store       ledger.Store
	log         logrus.FieldLogger
	maxAttempts int
	now         func() time.Time
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithMaxAttempts sets how many times a purchase may run before a version
// conflict is reported as a failure. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithLogger replaces the standard logrus logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Coordinator) { c.log = l }
}

// WithClock overrides the order timestamp source
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator returns a coordinator writing through store
func NewCoordinator(store ledger.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:       store,
		log:         logrus.StandardLogger(),
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PlaceOrder sells one unit of productID from slotID to userID.
//
// Credit is checked before stock. On success the debited user, the
// decremented slot and the new order are committed together. Business-rule
// rejections (ErrInsufficientCredit, ErrOutOfStock) and faults are returned
// as errors; use Classify to tell them apart. A version conflict at commit
// restarts the purchase from the lookups, at most maxAttempts times in total.
func (c *Coordinator) PlaceOrder(ctx context.Context, userID, productID, slotID uuid.UUID) (*domain.Order, error) {
	fields := logrus.Fields{
		"user_id":    userID,
		"product_id": productID,
		"slot_id":    slotID,
	}
	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var order *domain.Order
		order, err = c.attempt(ctx, userID, productID, slotID)
		if err == nil {
			c.log.WithFields(fields).WithFields(logrus.Fields{
				"order_id": order.ID,
				"attempt":  attempt,
			}).Info("Order placed")
			return order, nil
		}
		if !errors.Is(err, ledger.ErrVersionConflict) {
			break
		}
		c.log.WithFields(fields).WithField("attempt", attempt).Warn("Order commit conflicted, retrying")
	}

	if IsBusinessError(err) {
		c.log.WithFields(fields).WithField("reason", err.Error()).Info("Order rejected")
	} else {
		c.log.WithFields(fields).WithError(err).Error("Order failed")
	}
	return nil, err
}

// attempt runs one pass of resolve, authorize and commit
func (c *Coordinator) attempt(ctx context.Context, userID, productID, slotID uuid.UUID) (*domain.Order, error) {
	user, err := c.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	product, err := c.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("resolve product: %w", err)
	}
	slot, err := c.store.GetSlot(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("resolve slot: %w", err)
	}
	if slot.ProductID != product.ID {
		return nil, fmt.Errorf("slot %s holds %s, not %s: %w", slot.ID, slot.ProductID, product.ID, ErrSlotProductMismatch)
	}
	slot.Product = *product

	debited, err := AuthorizeAndDebit(*user, product.Price)
	if err != nil {
		return nil, err
	}
	decremented, err := AuthorizeAndDecrement(*slot)
	if err != nil {
		return nil, err
	}

	order := domain.Order{
		ID:        uuid.New(),
		UserID:    user.ID,
		ProductID: product.ID,
		SlotID:    slot.ID,
		CreatedAt: c.now().UTC(),
	}
	if err := c.store.Commit(ctx, ledger.Batch{
		Users:  []domain.User{debited},
		Slots:  []domain.Slot{decremented},
		Orders: []domain.Order{order},
	}); err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}
	return &order, nil
}
