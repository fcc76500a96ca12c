package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"warungpos/backend/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")
	ErrCorrupt  = errors.New("corrupt snapshot")
)

// StorageKey is the key the whole engine state is persisted under.
const StorageKey = "pos-storage"

// SchemaVersion is the current envelope version. Version-0 payloads (written
// before promos, shifts and user roles existed) are upgraded by Decode.
const SchemaVersion = 1

// Snapshot persists the entire engine state as one versioned blob. Load
// returns ErrNotFound when nothing has been persisted yet.
type Snapshot interface {
	Load(ctx context.Context) (*domain.State, error)
	Save(ctx context.Context, state *domain.State) error
	Close() error
}

type envelope struct {
	State   json.RawMessage `json:"state"`
	Version int             `json:"version"`
}

// Encode wraps the state in the versioned envelope.
func Encode(state *domain.State) ([]byte, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{State: raw, Version: SchemaVersion})
}

// Decode unwraps a persisted envelope and migrates old payloads to the
// current schema.
func Decode(payload []byte) (*domain.State, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(env.State) == 0 {
		return nil, ErrCorrupt
	}

	var state domain.State
	if err := json.Unmarshal(env.State, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	if env.Version < SchemaVersion {
		migrateV0(&state)
	}
	normalize(&state)
	return &state, nil
}

// migrateV0 upgrades payloads written before promos, shifts and user roles
// existed: missing collections get defaults and users with no role become
// cashiers.
func migrateV0(state *domain.State) {
	if len(state.Promos) == 0 {
		state.Promos = seedPromos()
	}
	if state.Shifts == nil {
		state.Shifts = []domain.Shift{}
	}
	if len(state.Users) == 0 {
		state.Users = seedUsers()
	}
	for i := range state.Users {
		if state.Users[i].Role == "" {
			state.Users[i].Role = domain.RoleCashier
		}
	}
	if state.User != nil && state.User.Role == "" {
		state.User.Role = domain.RoleCashier
	}
}

// normalize repairs nil collections and upgrades legacy plain-text PINs to
// bcrypt hashes, the same way the login credential cache used to upgrade
// plain-text passwords.
func normalize(state *domain.State) {
	if state.Users == nil {
		state.Users = []domain.User{}
	}
	if state.Products == nil {
		state.Products = []domain.Product{}
	}
	if state.Categories == nil {
		state.Categories = []domain.Category{}
	}
	if state.Cart == nil {
		state.Cart = []domain.CartItem{}
	}
	if state.Transactions == nil {
		state.Transactions = []domain.Transaction{}
	}
	if state.Promos == nil {
		state.Promos = []domain.Promo{}
	}
	if state.Shifts == nil {
		state.Shifts = []domain.Shift{}
	}
	if state.ActivityLogs == nil {
		state.ActivityLogs = []domain.ActivityLog{}
	}

	for i := range state.Users {
		if !IsPINHash(state.Users[i].PIN) {
			if hashed, err := HashPIN(state.Users[i].PIN); err == nil {
				state.Users[i].PIN = hashed
			}
		}
	}
}

// HashPIN bcrypt-hashes a plain-text PIN.
func HashPIN(pin string) (string, error) {
	raw, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// VerifyPIN reports whether the plain-text input matches a stored hash.
func VerifyPIN(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !IsPINHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func IsPINHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
