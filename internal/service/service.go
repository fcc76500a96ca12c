package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicatePIN      = errors.New("pin already in use")
	ErrSelfDelete        = errors.New("cannot delete the logged-in user")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrShiftNotOpen      = errors.New("no open shift")
	ErrShiftAlreadyOpen  = errors.New("shift already open")
	ErrAlreadyVoid       = errors.New("transaction already void")
	ErrPromoNotEligible  = errors.New("promo not eligible")
)

// Service is the transaction & shift ledger engine. It owns the whole till
// state, applies every mutation atomically under the lock, and writes the
// snapshot back through the store after each change.
type Service struct {
	mu    sync.RWMutex
	state *domain.State
	snap  store.Snapshot
}

// New loads the persisted snapshot, seeding a fresh state when none exists.
func New(ctx context.Context, snap store.Snapshot) (*Service, error) {
	state, err := snap.Load(ctx)
	if errors.Is(err, store.ErrNotFound) {
		state = store.Seed()
		if err := snap.Save(ctx, state); err != nil {
			return nil, fmt.Errorf("persist seed state: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	return &Service{state: state, snap: snap}, nil
}

// persist writes the snapshot back. Called with the lock held; a failed write
// is logged rather than rolled back, the in-memory state stays authoritative.
func (s *Service) persist(ctx context.Context) {
	if err := s.snap.Save(ctx, s.state); err != nil {
		log.Printf("[service] WARN: failed to persist snapshot: %v", err)
	}
}

// appendLog prepends an audit entry (most-recent-first). No-op when nobody is
// logged in. Called with the lock held.
func (s *Service) appendLog(action string, details string) {
	if s.state.User == nil {
		return
	}
	entry := domain.ActivityLog{
		ID:        uuid.NewString(),
		UserID:    s.state.User.ID,
		UserName:  s.state.User.Name,
		Action:    action,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
	s.state.ActivityLogs = append([]domain.ActivityLog{entry}, s.state.ActivityLogs...)
}

// LogActivity records a caller-supplied audit entry. No-op without a session
// user, mirroring every internal mutation's audit side effect.
func (s *Service) LogActivity(ctx context.Context, action string, details string) error {
	if strings.TrimSpace(action) == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.User == nil {
		return nil
	}
	s.appendLog(action, details)
	s.persist(ctx)
	return nil
}

func (s *Service) Login(ctx context.Context, pin string) (domain.User, error) {
	pin = strings.TrimSpace(pin)
	if pin == "" {
		return domain.User{}, ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.state.Users {
		if store.VerifyPIN(user.PIN, pin) {
			session := user
			s.state.User = &session
			s.appendLog("Login", "User logged in")
			s.persist(ctx)
			return redact(user), nil
		}
	}
	return domain.User{}, ErrUnauthorized
}

func (s *Service) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.User == nil {
		return nil
	}
	s.appendLog("Logout", "User logged out")
	s.state.User = nil
	s.persist(ctx)
	return nil
}

func (s *Service) CurrentUser() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state.User == nil {
		return domain.User{}, false
	}
	return redact(*s.state.User), true
}

func (s *Service) ListUsers() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.User, 0, len(s.state.Users))
	for _, user := range s.state.Users {
		users = append(users, redact(user))
	}
	return users
}

func (s *Service) AddUser(ctx context.Context, req domain.UserCreateRequest) (domain.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.PIN = strings.TrimSpace(req.PIN)
	if req.Name == "" || len(req.PIN) < 4 {
		return domain.User{}, ErrInvalidInput
	}
	if req.Role != domain.RoleAdmin && req.Role != domain.RoleCashier {
		return domain.User{}, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pinInUse(req.PIN, "") {
		return domain.User{}, ErrDuplicatePIN
	}
	hashed, err := store.HashPIN(req.PIN)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash pin: %w", err)
	}

	user := domain.User{
		ID:   uuid.NewString(),
		Name: req.Name,
		Role: req.Role,
		PIN:  hashed,
	}
	s.state.Users = append(s.state.Users, user)
	s.appendLog("Add User", fmt.Sprintf("Added user: %s", user.Name))
	s.persist(ctx)
	return redact(user), nil
}

func (s *Service) UpdateUser(ctx context.Context, id string, req domain.UserUpdateRequest) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.state.Users, func(u domain.User) bool { return u.ID == id })
	if idx < 0 {
		return domain.User{}, ErrNotFound
	}

	updated := s.state.Users[idx]
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.User{}, ErrInvalidInput
		}
		updated.Name = name
	}
	if req.Role != nil {
		if *req.Role != domain.RoleAdmin && *req.Role != domain.RoleCashier {
			return domain.User{}, ErrInvalidInput
		}
		updated.Role = *req.Role
	}
	if req.PIN != nil {
		pin := strings.TrimSpace(*req.PIN)
		if len(pin) < 4 {
			return domain.User{}, ErrInvalidInput
		}
		if s.pinInUse(pin, id) {
			return domain.User{}, ErrDuplicatePIN
		}
		hashed, err := store.HashPIN(pin)
		if err != nil {
			return domain.User{}, fmt.Errorf("hash pin: %w", err)
		}
		updated.PIN = hashed
	}

	s.state.Users[idx] = updated
	if s.state.User != nil && s.state.User.ID == id {
		session := updated
		s.state.User = &session
	}
	s.appendLog("Update User", fmt.Sprintf("Updated user ID: %s", id))
	s.persist(ctx)
	return redact(updated), nil
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.User != nil && s.state.User.ID == id {
		return ErrSelfDelete
	}
	idx := slices.IndexFunc(s.state.Users, func(u domain.User) bool { return u.ID == id })
	if idx < 0 {
		return ErrNotFound
	}

	name := s.state.Users[idx].Name
	s.state.Users = slices.Delete(s.state.Users, idx, idx+1)
	s.appendLog("Delete User", fmt.Sprintf("Deleted user: %s", name))
	s.persist(ctx)
	return nil
}

// pinInUse reports whether any user other than excludeID already owns the
// plain-text PIN. Called with the lock held.
func (s *Service) pinInUse(pin string, excludeID string) bool {
	for _, user := range s.state.Users {
		if user.ID == excludeID {
			continue
		}
		if store.VerifyPIN(user.PIN, pin) {
			return true
		}
	}
	return false
}

func (s *Service) ListProducts() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := slices.Clone(s.state.Products)
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(a.Category, b.Category)
	})
	return products
}

func (s *Service) AddProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" || req.Category == "" || req.Price < 1 || req.Cost < 0 || req.Stock < 0 {
		return domain.Product{}, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product := domain.Product{
		ID:       uuid.NewString(),
		Name:     req.Name,
		Price:    req.Price,
		Cost:     req.Cost,
		Stock:    req.Stock,
		Category: req.Category,
	}
	s.state.Products = append(s.state.Products, product)
	s.appendLog("Add Product", fmt.Sprintf("Added product: %s", product.Name))
	s.persist(ctx)
	return product, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.state.Products, func(p domain.Product) bool { return p.ID == id })
	if idx < 0 {
		return domain.Product{}, ErrNotFound
	}

	updated := s.state.Products[idx]
	details := fmt.Sprintf("Updated product: %s", updated.Name)
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, ErrInvalidInput
		}
		updated.Name = name
	}
	if req.Price != nil {
		if *req.Price < 1 {
			return domain.Product{}, ErrInvalidInput
		}
		updated.Price = *req.Price
		details += fmt.Sprintf(", Price changed to %d", *req.Price)
	}
	if req.Cost != nil {
		if *req.Cost < 0 {
			return domain.Product{}, ErrInvalidInput
		}
		updated.Cost = *req.Cost
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return domain.Product{}, ErrInvalidInput
		}
		updated.Stock = *req.Stock
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return domain.Product{}, ErrInvalidInput
		}
		updated.Category = category
	}

	s.state.Products[idx] = updated
	s.appendLog("Update Product", details)
	s.persist(ctx)
	return updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.state.Products, func(p domain.Product) bool { return p.ID == id })
	if idx < 0 {
		return ErrNotFound
	}

	name := s.state.Products[idx].Name
	s.state.Products = slices.Delete(s.state.Products, idx, idx+1)
	s.appendLog("Delete Product", fmt.Sprintf("Deleted product: %s", name))
	s.persist(ctx)
	return nil
}

func (s *Service) ListCategories() []domain.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.Categories)
}

func (s *Service) AddCategory(ctx context.Context, name string) (domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	category := domain.Category{ID: uuid.NewString(), Name: name}
	s.state.Categories = append(s.state.Categories, category)
	s.appendLog("Add Category", fmt.Sprintf("Added category: %s", name))
	s.persist(ctx)
	return category, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id string, name string) (domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.state.Categories, func(c domain.Category) bool { return c.ID == id })
	if idx < 0 {
		return domain.Category{}, ErrNotFound
	}

	s.state.Categories[idx].Name = name
	s.appendLog("Update Category", fmt.Sprintf("Updated category ID: %s to %s", id, name))
	s.persist(ctx)
	return s.state.Categories[idx], nil
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.state.Categories, func(c domain.Category) bool { return c.ID == id })
	if idx < 0 {
		return ErrNotFound
	}

	name := s.state.Categories[idx].Name
	s.state.Categories = slices.Delete(s.state.Categories, idx, idx+1)
	s.appendLog("Delete Category", fmt.Sprintf("Deleted category: %s", name))
	s.persist(ctx)
	return nil
}
