package service

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
)

func (s *Service) ListPromos() []domain.Promo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.Promos)
}

// ApplicablePromos lists the promos a cashier may offer against the current
// cart: active and with the minimum purchase met.
func (s *Service) ApplicablePromos() []domain.Promo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := cartTotal(s.state.Cart)
	applicable := make([]domain.Promo, 0, len(s.state.Promos))
	for _, promo := range s.state.Promos {
		if promo.Active && promo.MinPurchase <= total {
			applicable = append(applicable, promo)
		}
	}
	return applicable
}

// Discount is the promo engine's single computation rule: percentage promos
// round half away from zero, fixed promos apply their value verbatim.
func Discount(promo domain.Promo, total int64) int64 {
	switch promo.Type {
	case domain.PromoPercentage:
		return int64(math.Round(float64(total) * float64(promo.Value) / 100))
	case domain.PromoFixed:
		return promo.Value
	default:
		return 0
	}
}

// PromoDiscountByCode resolves a promo code against the current cart total.
// The result is a plain discount integer; the transaction ledger never sees
// the promo itself.
func (s *Service) PromoDiscountByCode(code string) (int64, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	total := cartTotal(s.state.Cart)
	for _, promo := range s.state.Promos {
		if !strings.EqualFold(promo.Code, code) {
			continue
		}
		if !promo.Active || total < promo.MinPurchase {
			return 0, ErrPromoNotEligible
		}
		discount := Discount(promo, total)
		if discount > total {
			discount = total
		}
		return discount, nil
	}
	return 0, ErrNotFound
}

func (s *Service) AddPromo(ctx context.Context, req domain.PromoCreateRequest) (domain.Promo, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if req.Name == "" || req.Code == "" || req.Value < 1 || req.MinPurchase < 0 {
		return domain.Promo{}, ErrInvalidInput
	}
	if req.Type != domain.PromoPercentage && req.Type != domain.PromoFixed {
		return domain.Promo{}, ErrInvalidInput
	}
	if req.Type == domain.PromoPercentage && req.Value > 100 {
		return domain.Promo{}, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	promo := domain.Promo{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Code:        req.Code,
		Type:        req.Type,
		Value:       req.Value,
		MinPurchase: req.MinPurchase,
		Active:      req.Active,
	}
	s.state.Promos = append(s.state.Promos, promo)
	s.appendLog("Add Promo", fmt.Sprintf("Added promo: %s", promo.Name))
	s.persist(ctx)
	return promo, nil
}

func (s *Service) UpdatePromo(ctx context.Context, id string, req domain.PromoUpdateRequest) (domain.Promo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.state.Promos, func(p domain.Promo) bool { return p.ID == id })
	if idx < 0 {
		return domain.Promo{}, ErrNotFound
	}

	updated := s.state.Promos[idx]
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Promo{}, ErrInvalidInput
		}
		updated.Name = name
	}
	if req.Code != nil {
		code := strings.ToUpper(strings.TrimSpace(*req.Code))
		if code == "" {
			return domain.Promo{}, ErrInvalidInput
		}
		updated.Code = code
	}
	if req.Type != nil {
		if *req.Type != domain.PromoPercentage && *req.Type != domain.PromoFixed {
			return domain.Promo{}, ErrInvalidInput
		}
		updated.Type = *req.Type
	}
	if req.Value != nil {
		if *req.Value < 1 {
			return domain.Promo{}, ErrInvalidInput
		}
		updated.Value = *req.Value
	}
	if req.MinPurchase != nil {
		if *req.MinPurchase < 0 {
			return domain.Promo{}, ErrInvalidInput
		}
		updated.MinPurchase = *req.MinPurchase
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}
	if updated.Type == domain.PromoPercentage && updated.Value > 100 {
		return domain.Promo{}, ErrInvalidInput
	}

	s.state.Promos[idx] = updated
	s.appendLog("Update Promo", fmt.Sprintf("Updated promo: %s", updated.Name))
	s.persist(ctx)
	return updated, nil
}

func (s *Service) DeletePromo(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.state.Promos, func(p domain.Promo) bool { return p.ID == id })
	if idx < 0 {
		return ErrNotFound
	}

	name := s.state.Promos[idx].Name
	s.state.Promos = slices.Delete(s.state.Promos, idx, idx+1)
	s.appendLog("Delete Promo", fmt.Sprintf("Deleted promo: %s", name))
	s.persist(ctx)
	return nil
}

func (s *Service) Cart() []domain.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.Cart)
}

func (s *Service) CartTotal() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cartTotal(s.state.Cart)
}

// cartTotal is always recomputed from the lines, never cached.
func cartTotal(cart []domain.CartItem) int64 {
	var total int64
	for _, item := range cart {
		total += item.Price * int64(item.Qty)
	}
	return total
}

// AddToCart appends the product with qty 1, or bumps the existing line.
// There is deliberately no stock check at add time; availability is enforced
// at checkout.
func (s *Service) AddToCart(ctx context.Context, productID string) ([]domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.state.Products, func(p domain.Product) bool { return p.ID == productID })
	if idx < 0 {
		return nil, ErrNotFound
	}

	if line := slices.IndexFunc(s.state.Cart, func(i domain.CartItem) bool { return i.ID == productID }); line >= 0 {
		s.state.Cart[line].Qty++
	} else {
		product := s.state.Products[idx]
		s.state.Cart = append(s.state.Cart, domain.CartItem{
			ID:       product.ID,
			Name:     product.Name,
			Price:    product.Price,
			Cost:     product.Cost,
			Category: product.Category,
			Qty:      1,
		})
	}

	s.persist(ctx)
	return slices.Clone(s.state.Cart), nil
}

// UpdateCartQty replaces a line's quantity; qty <= 0 removes the line.
func (s *Service) UpdateCartQty(ctx context.Context, productID string, qty int) ([]domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	line := slices.IndexFunc(s.state.Cart, func(i domain.CartItem) bool { return i.ID == productID })
	if qty <= 0 {
		if line >= 0 {
			s.state.Cart = slices.Delete(s.state.Cart, line, line+1)
			s.persist(ctx)
		}
		return slices.Clone(s.state.Cart), nil
	}
	if line < 0 {
		return nil, ErrNotFound
	}

	s.state.Cart[line].Qty = qty
	s.persist(ctx)
	return slices.Clone(s.state.Cart), nil
}

func (s *Service) RemoveFromCart(ctx context.Context, productID string) []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	if line := slices.IndexFunc(s.state.Cart, func(i domain.CartItem) bool { return i.ID == productID }); line >= 0 {
		s.state.Cart = slices.Delete(s.state.Cart, line, line+1)
		s.persist(ctx)
	}
	return slices.Clone(s.state.Cart)
}

func (s *Service) ClearCart(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.state.Cart) == 0 {
		return
	}
	s.state.Cart = []domain.CartItem{}
	s.persist(ctx)
}

// ProcessTransaction converts the cart into an immutable transaction: it
// requires a session user and an open shift, freezes the cart lines, stamps
// the shift id, decrements stock, prepends the transaction and clears the
// cart. Total is clamped at zero when the discount exceeds the subtotal.
func (s *Service) ProcessTransaction(ctx context.Context, paymentMethod string, discount int64) (domain.Transaction, error) {
	if paymentMethod != domain.PaymentCash && paymentMethod != domain.PaymentQris {
		return domain.Transaction{}, ErrInvalidInput
	}
	if discount < 0 {
		return domain.Transaction{}, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.User == nil {
		return domain.Transaction{}, ErrUnauthorized
	}
	if s.state.ActiveShift == nil {
		return domain.Transaction{}, ErrShiftNotOpen
	}
	if len(s.state.Cart) == 0 {
		return domain.Transaction{}, ErrEmptyCart
	}

	for _, item := range s.state.Cart {
		idx := slices.IndexFunc(s.state.Products, func(p domain.Product) bool { return p.ID == item.ID })
		if idx < 0 {
			return domain.Transaction{}, fmt.Errorf("%w: product %s", ErrNotFound, item.Name)
		}
		if s.state.Products[idx].Stock < item.Qty {
			return domain.Transaction{}, fmt.Errorf("%w: %s", ErrInsufficientStock, item.Name)
		}
	}

	subtotal := cartTotal(s.state.Cart)
	total := subtotal - discount
	if total < 0 {
		total = 0
	}

	tx := domain.Transaction{
		ID:            uuid.NewString(),
		Date:          time.Now().UTC(),
		Items:         slices.Clone(s.state.Cart),
		Subtotal:      subtotal,
		Discount:      discount,
		Total:         total,
		ShiftID:       s.state.ActiveShift.ID,
		CashierID:     s.state.User.ID,
		CashierName:   s.state.User.Name,
		PaymentMethod: paymentMethod,
		Status:        domain.TxStatusValid,
	}

	for _, item := range tx.Items {
		idx := slices.IndexFunc(s.state.Products, func(p domain.Product) bool { return p.ID == item.ID })
		s.state.Products[idx].Stock -= item.Qty
	}

	s.state.Transactions = append([]domain.Transaction{tx}, s.state.Transactions...)
	s.state.Cart = []domain.CartItem{}
	s.appendLog("Process Transaction", fmt.Sprintf("Sold %d item(s) for %d via %s", len(tx.Items), tx.Total, tx.PaymentMethod))
	s.persist(ctx)
	return cloneTransaction(tx), nil
}

// VoidTransaction irreversibly cancels a valid transaction. The approver PIN
// is re-resolved to an admin user inside the engine; the name stamped on the
// void record is never caller input.
func (s *Service) VoidTransaction(ctx context.Context, id string, reason string, approverPIN string) (domain.Transaction, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Transaction{}, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.state.Transactions, func(t domain.Transaction) bool { return t.ID == id })
	if idx < 0 {
		return domain.Transaction{}, ErrNotFound
	}
	if s.state.Transactions[idx].Status == domain.TxStatusVoid {
		return domain.Transaction{}, ErrAlreadyVoid
	}

	approver, ok := s.resolveAdmin(approverPIN)
	if !ok {
		return domain.Transaction{}, ErrUnauthorized
	}

	now := time.Now().UTC()
	tx := s.state.Transactions[idx]
	tx.Status = domain.TxStatusVoid
	tx.VoidReason = reason
	tx.VoidBy = approver.Name
	tx.VoidAt = &now
	s.state.Transactions[idx] = tx

	for _, item := range tx.Items {
		if p := slices.IndexFunc(s.state.Products, func(p domain.Product) bool { return p.ID == item.ID }); p >= 0 {
			s.state.Products[p].Stock += item.Qty
		}
	}

	s.appendLog("Void Transaction", fmt.Sprintf("Voided transaction %s... by %s. Reason: %s", shortID(tx.ID), approver.Name, reason))
	s.persist(ctx)
	return cloneTransaction(tx), nil
}

// resolveAdmin maps a PIN to a role=admin user. Called with the lock held.
func (s *Service) resolveAdmin(pin string) (domain.User, bool) {
	pin = strings.TrimSpace(pin)
	if pin == "" {
		return domain.User{}, false
	}
	for _, user := range s.state.Users {
		if user.Role == domain.RoleAdmin && store.VerifyPIN(user.PIN, pin) {
			return user, true
		}
	}
	return domain.User{}, false
}

func (s *Service) Transactions() []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txs := make([]domain.Transaction, 0, len(s.state.Transactions))
	for _, tx := range s.state.Transactions {
		txs = append(txs, cloneTransaction(tx))
	}
	return txs
}

func (s *Service) TransactionByID(id string) (domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := slices.IndexFunc(s.state.Transactions, func(t domain.Transaction) bool { return t.ID == id })
	if idx < 0 {
		return domain.Transaction{}, ErrNotFound
	}
	return cloneTransaction(s.state.Transactions[idx]), nil
}

// StartShift opens the single cash-drawer session. Only one shift can be open
// at a time, till-wide.
func (s *Service) StartShift(ctx context.Context, startCash int64) (domain.Shift, error) {
	if startCash < 0 {
		return domain.Shift{}, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.User == nil {
		return domain.Shift{}, ErrUnauthorized
	}
	if s.state.ActiveShift != nil {
		return domain.Shift{}, ErrShiftAlreadyOpen
	}

	shift := domain.Shift{
		ID:          uuid.NewString(),
		CashierID:   s.state.User.ID,
		CashierName: s.state.User.Name,
		StartTime:   time.Now().UTC(),
		StartCash:   startCash,
		Status:      domain.ShiftStatusOpen,
	}
	active := shift
	s.state.ActiveShift = &active
	s.state.Shifts = append([]domain.Shift{shift}, s.state.Shifts...)
	s.appendLog("Start Shift", fmt.Sprintf("Opened shift with start cash %d", startCash))
	s.persist(ctx)
	return shift, nil
}

// EndShift seals the open shift: expected cash is the starting float plus all
// cash totals of the shift's non-void transactions, expected QRIS the same
// over QRIS totals. Differences are signed (negative = shortage).
func (s *Service) EndShift(ctx context.Context, actualCash int64, actualQris int64) (domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.ActiveShift == nil {
		return domain.Shift{}, ErrShiftNotOpen
	}

	active := *s.state.ActiveShift
	var totalCash, totalQris int64
	for _, tx := range s.state.Transactions {
		if tx.ShiftID != active.ID || tx.Status != domain.TxStatusValid {
			continue
		}
		switch tx.PaymentMethod {
		case domain.PaymentCash:
			totalCash += tx.Total
		case domain.PaymentQris:
			totalQris += tx.Total
		}
	}

	now := time.Now().UTC()
	active.Status = domain.ShiftStatusClosed
	active.EndTime = &now
	active.ExpectedCash = active.StartCash + totalCash
	active.ActualCash = actualCash
	active.Difference = actualCash - active.ExpectedCash
	active.ExpectedQris = totalQris
	active.ActualQris = actualQris
	active.QrisDifference = actualQris - active.ExpectedQris

	if idx := slices.IndexFunc(s.state.Shifts, func(sh domain.Shift) bool { return sh.ID == active.ID }); idx >= 0 {
		s.state.Shifts[idx] = active
	}
	s.state.ActiveShift = nil
	s.appendLog("End Shift", fmt.Sprintf("Closed shift, cash difference %d, qris difference %d", active.Difference, active.QrisDifference))
	s.persist(ctx)
	return active, nil
}

func (s *Service) ActiveShift() (domain.Shift, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state.ActiveShift == nil {
		return domain.Shift{}, false
	}
	return *s.state.ActiveShift, true
}

func (s *Service) Shifts() []domain.Shift {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.Shifts)
}

func (s *Service) ActivityLogs() []domain.ActivityLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.ActivityLogs)
}

func cloneTransaction(tx domain.Transaction) domain.Transaction {
	tx.Items = slices.Clone(tx.Items)
	return tx
}

func redact(user domain.User) domain.User {
	user.PIN = ""
	return user
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
