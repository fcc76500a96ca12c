package store

import (
	"log"
	"os"

	"warungpos/backend/internal/domain"
)

// seedUsers builds the initial user accounts for a fresh till. PINs are read
// from SEED_ADMIN_PIN and SEED_CASHIER_PIN; if unset, hardcoded dev defaults
// are used with a warning printed to stdout.
func seedUsers() []domain.User {
	adminPIN := envOr("SEED_ADMIN_PIN", "1234")
	cashierPIN := envOr("SEED_CASHIER_PIN", "0000")
	if os.Getenv("SEED_ADMIN_PIN") == "" || os.Getenv("SEED_CASHIER_PIN") == "" {
		log.Println("[store] WARNING: using default dev PINs. Set SEED_ADMIN_PIN and SEED_CASHIER_PIN to override.")
	}

	users := []domain.User{
		{ID: "1", Name: "Admin", Role: domain.RoleAdmin, PIN: adminPIN},
		{ID: "2", Name: "Kasir 1", Role: domain.RoleCashier, PIN: cashierPIN},
	}
	for i := range users {
		hashed, err := HashPIN(users[i].PIN)
		if err != nil {
			log.Fatalf("[store] failed to hash seed PIN for %s: %v", users[i].Name, err)
		}
		users[i].PIN = hashed
	}
	return users
}

func seedPromos() []domain.Promo {
	return []domain.Promo{
		{ID: "1", Name: "Opening Promo", Type: domain.PromoPercentage, Value: 10, Code: "OPEN10", Active: true},
		{ID: "2", Name: "Potongan 5rb", Type: domain.PromoFixed, Value: 5000, Code: "HEMAT5", MinPurchase: 50000, Active: true},
	}
}

// Seed returns the initial state for a till with no persisted snapshot.
func Seed() *domain.State {
	return &domain.State{
		Users: seedUsers(),
		Categories: []domain.Category{
			{ID: "1", Name: "Makanan"},
			{ID: "2", Name: "Minuman"},
			{ID: "3", Name: "Snack"},
			{ID: "4", Name: "Lainnya"},
		},
		Products: []domain.Product{
			{ID: "1", Name: "Kopi Susu Gula Aren", Price: 18000, Cost: 10000, Stock: 50, Category: "Minuman"},
			{ID: "2", Name: "Americano", Price: 15000, Cost: 8000, Stock: 50, Category: "Minuman"},
			{ID: "3", Name: "Croissant", Price: 25000, Cost: 15000, Stock: 20, Category: "Makanan"},
			{ID: "4", Name: "Kentang Goreng", Price: 20000, Cost: 10000, Stock: 100, Category: "Snack"},
		},
		Promos:       seedPromos(),
		Cart:         []domain.CartItem{},
		Transactions: []domain.Transaction{},
		Shifts:       []domain.Shift{},
		ActivityLogs: []domain.ActivityLog{},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
