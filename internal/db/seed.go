package db

import (
	"context"
	"fmt"

	"vending_machine/internal/domain"
	"vending_machine/internal/ledger"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type seedProduct struct {
	name     string
	price    string
	quantity int
}

// Demo catalog laid out left to right, top to bottom
var seedProducts = []seedProduct{
	{"Water", "1.20", 20},
	{"Cola", "1.80", 15},
	{"Orange juice", "2.10", 10},
	{"Chocolate bar", "1.50", 12},
	{"Crisps", "1.30", 8},
	{"Sandwich", "10.40", 5},
}

// Seed fills an empty store with an admin, a customer and a small catalog.
// It is a no-op when the admin user already exists.
func Seed(ctx context.Context, store ledger.Store) error {
	if _, err := store.GetUserByUsername(ctx, "admin"); err == nil {
		logrus.Info("Seed data already present, skipping")
		return nil
	}
	users := []domain.User{
		{Username: "admin", Role: domain.RoleAdmin, Credit: decimal.Zero},
		{Username: "customer", Role: domain.RoleUser, Credit: decimal.RequireFromString("100.00")},
	}
	for i := range users {
		if err := store.CreateUser(ctx, &users[i]); err != nil {
			return fmt.Errorf("seed user %q: %w", users[i].Username, err)
		}
	}
	for i, sp := range seedProducts {
		product := domain.Product{Name: sp.name, Price: decimal.RequireFromString(sp.price)}
		if err := store.CreateProduct(ctx, &product); err != nil {
			return fmt.Errorf("seed product %q: %w", sp.name, err)
		}
		slot := domain.Slot{
			ProductID: product.ID,
			Quantity:  sp.quantity,
			Row:       i/domain.MaxSlotColumn + 1,
			Column:    i%domain.MaxSlotColumn + 1,
		}
		if err := store.CreateSlot(ctx, &slot); err != nil {
			return fmt.Errorf("seed slot for %q: %w", sp.name, err)
		}
	}
	logrus.WithFields(logrus.Fields{
		"users":    len(users),
		"products": len(seedProducts),
	}).Info("Seed data created")
	return nil
}
