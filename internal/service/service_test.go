package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store/memory"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := New(context.Background(), memory.New())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func loginAdmin(t *testing.T, svc *Service) domain.User {
	t.Helper()
	user, err := svc.Login(context.Background(), "1234")
	if err != nil {
		t.Fatalf("admin login failed: %v", err)
	}
	return user
}

func TestLoginSeedUsers(t *testing.T) {
	svc := newTestService(t)

	user := loginAdmin(t, svc)
	if user.Name != "Admin" || user.Role != "admin" {
		t.Fatalf("expected seeded admin, got %+v", user)
	}
	if user.PIN != "" {
		t.Fatalf("login response must not carry the PIN hash")
	}

	if err := svc.Logout(context.Background()); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	if _, err := svc.Login(context.Background(), "9999"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for bad pin, got %v", err)
	}
	if _, ok := svc.CurrentUser(); ok {
		t.Fatalf("failed login must not establish a session")
	}
}

func TestCartTotalMatchesLines(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	loginAdmin(t, svc)

	// Seeded: product 1 = Kopi Susu Gula Aren @18000, product 4 = Kentang Goreng @20000.
	if _, err := svc.AddToCart(ctx, "1"); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	if _, err := svc.AddToCart(ctx, "1"); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	if _, err := svc.AddToCart(ctx, "4"); err != nil {
		t.Fatalf("add to cart: %v", err)
	}

	if got := svc.CartTotal(); got != 2*18000+20000 {
		t.Fatalf("cart total = %d, want %d", got, 2*18000+20000)
	}

	if _, err := svc.UpdateCartQty(ctx, "1", 5); err != nil {
		t.Fatalf("update qty: %v", err)
	}
	if got := svc.CartTotal(); got != 5*18000+20000 {
		t.Fatalf("cart total after qty update = %d, want %d", got, 5*18000+20000)
	}

	// qty <= 0 removes the line without error.
	if _, err := svc.UpdateCartQty(ctx, "4", 0); err != nil {
		t.Fatalf("qty 0 should remove the line: %v", err)
	}
	if got := svc.CartTotal(); got != 5*18000 {
		t.Fatalf("cart total after removal = %d, want %d", got, 5*18000)
	}

	if _, err := svc.UpdateCartQty(ctx, "missing", 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown cart line, got %v", err)
	}
}

func TestAddToCartIgnoresStockUntilCheckout(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	loginAdmin(t, svc)

	// Croissant has stock 20; the cart may exceed it.
	if _, err := svc.AddToCart(ctx, "3"); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	if _, err := svc.UpdateCartQty(ctx, "3", 25); err != nil {
		t.Fatalf("cart qty above stock must be allowed: %v", err)
	}

	if _, err := svc.StartShift(ctx, 0); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	if _, err := svc.ProcessTransaction(ctx, "cash", 0); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock at checkout, got %v", err)
	}

	// A rejected checkout leaves cart and stock untouched.
	if len(svc.Cart()) != 1 {
		t.Fatalf("cart must survive a rejected checkout")
	}
	products := svc.ListProducts()
	for _, p := range products {
		if p.ID == "3" && p.Stock != 20 {
			t.Fatalf("stock changed on rejected checkout: %d", p.Stock)
		}
	}
}

func TestCheckoutPreconditions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.ProcessTransaction(ctx, "cash", 0); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized without session, got %v", err)
	}

	loginAdmin(t, svc)
	if _, err := svc.ProcessTransaction(ctx, "cash", 0); !errors.Is(err, ErrShiftNotOpen) {
		t.Fatalf("expected ErrShiftNotOpen, got %v", err)
	}

	if _, err := svc.StartShift(ctx, 50000); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	if _, err := svc.ProcessTransaction(ctx, "cash", 0); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}

	if _, err := svc.AddToCart(ctx, "1"); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	if _, err := svc.ProcessTransaction(ctx, "transfer", 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown payment method, got %v", err)
	}
	if _, err := svc.ProcessTransaction(ctx, "cash", -1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative discount, got %v", err)
	}
	if len(svc.Transactions()) != 0 {
		t.Fatalf("no transaction may be recorded before a valid checkout")
	}
}

func TestCheckoutDecrementsStockAndClearsCart(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	loginAdmin(t, svc)

	if _, err := svc.StartShift(ctx, 100000); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	if _, err := svc.AddToCart(ctx, "1"); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	if _, err := svc.UpdateCartQty(ctx, "1", 3); err != nil {
		t.Fatalf("update qty: %v", err)
	}

	tx, err := svc.ProcessTransaction(ctx, "cash", 4000)
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if tx.Subtotal != 3*18000 {
		t.Fatalf("subtotal = %d, want %d", tx.Subtotal, 3*18000)
	}
	if tx.Total != 3*18000-4000 {
		t.Fatalf("total = %d, want %d", tx.Total, 3*18000-4000)
	}
	if tx.Status != domain.TxStatusValid {
		t.Fatalf("new transaction must be valid, got %s", tx.Status)
	}
	if tx.ShiftID == "" {
		t.Fatalf("transaction must carry the open shift id")
	}

	if len(svc.Cart()) != 0 {
		t.Fatalf("cart must be empty after checkout")
	}
	for _, p := range svc.ListProducts() {
		if p.ID == "1" && p.Stock != 47 {
			t.Fatalf("stock = %d after selling 3 of 50", p.Stock)
		}
	}
}

func TestCheckoutClampsTotalAtZero(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	loginAdmin(t, svc)

	if _, err := svc.StartShift(ctx, 0); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	if _, err := svc.AddToCart(ctx, "2"); err != nil {
		t.Fatalf("add to cart: %v", err)
	}

	tx, err := svc.ProcessTransaction(ctx, "cash", 999999)
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if tx.Total != 0 {
		t.Fatalf("total must clamp at zero, got %d", tx.Total)
	}
}

func TestVoidRestoresStockAndIsFinal(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	loginAdmin(t, svc)

	if _, err := svc.StartShift(ctx, 0); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	if _, err := svc.AddToCart(ctx, "4"); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	if _, err := svc.UpdateCartQty(ctx, "4", 2); err != nil {
		t.Fatalf("update qty: %v", err)
	}
	tx, err := svc.ProcessTransaction(ctx, "cash", 0)
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	voided, err := svc.VoidTransaction(ctx, tx.ID, "wrong order", "1234")
	if err != nil {
		t.Fatalf("void failed: %v", err)
	}
	if voided.Status != domain.TxStatusVoid {
		t.Fatalf("status = %s, want void", voided.Status)
	}
	if voided.VoidBy != "Admin" || voided.VoidReason != "wrong order" || voided.VoidAt == nil {
		t.Fatalf("void metadata incomplete: %+v", voided)
	}

	for _, p := range svc.ListProducts() {
		if p.ID == "4" && p.Stock != 100 {
			t.Fatalf("stock must round-trip through sell+void, got %d", p.Stock)
		}
	}

	if _, err := svc.VoidTransaction(ctx, tx.ID, "again", "1234"); !errors.Is(err, ErrAlreadyVoid) {
		t.Fatalf("expected ErrAlreadyVoid, got %v", err)
	}
	if _, err := svc.VoidTransaction(ctx, "missing", "reason", "1234"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown transaction, got %v", err)
	}
	again, err := svc.TransactionByID(tx.ID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if again.VoidReason != "wrong order" || !again.VoidAt.Equal(*voided.VoidAt) {
		t.Fatalf("void metadata must not change on a repeated void")
	}
}

func TestVoidRequiresAdminPIN(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// The cashier runs the till; voids need an admin PIN regardless.
	if _, err := svc.Login(ctx, "0000"); err != nil {
		t.Fatalf("cashier login failed: %v", err)
	}
	if _, err := svc.StartShift(ctx, 0); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	if _, err := svc.AddToCart(ctx, "1"); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	tx, err := svc.ProcessTransaction(ctx, "qris", 0)
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	if _, err := svc.VoidTransaction(ctx, tx.ID, "test", "0000"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("cashier pin must not approve a void, got %v", err)
	}
	if _, err := svc.VoidTransaction(ctx, tx.ID, "test", "1234"); err != nil {
		t.Fatalf("admin pin must approve a void: %v", err)
	}
}

func TestEndShiftWithNoSales(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	loginAdmin(t, svc)

	if _, err := svc.StartShift(ctx, 75000); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	shift, err := svc.EndShift(ctx, 75000, 0)
	if err != nil {
		t.Fatalf("end shift: %v", err)
	}
	if shift.ExpectedCash != 75000 || shift.ExpectedQris != 0 {
		t.Fatalf("expected cash %d qris %d", shift.ExpectedCash, shift.ExpectedQris)
	}
	if shift.Difference != 0 || shift.QrisDifference != 0 {
		t.Fatalf("differences must be zero, got %d / %d", shift.Difference, shift.QrisDifference)
	}
	if _, ok := svc.ActiveShift(); ok {
		t.Fatalf("active shift slot must be cleared")
	}
}

func TestShiftReconciliation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	loginAdmin(t, svc)

	if _, err := svc.StartShift(ctx, 100000); err != nil {
		t.Fatalf("start shift: %v", err)
	}

	// Two cash sales totaling 50000.
	product, err := svc.AddProduct(ctx, domain.ProductCreateRequest{
		Name: "Nasi Goreng Spesial", Price: 30000, Cost: 12000, Stock: 10, Category: "Makanan",
	})
	if err != nil {
		t.Fatalf("add product: %v", err)
	}
	if _, err := svc.AddToCart(ctx, product.ID); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	if _, err := svc.ProcessTransaction(ctx, "cash", 0); err != nil {
		t.Fatalf("cash checkout: %v", err)
	}
	if _, err := svc.AddToCart(ctx, "4"); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	if _, err := svc.ProcessTransaction(ctx, "cash", 0); err != nil {
		t.Fatalf("cash checkout: %v", err)
	}

	// One 20000 qris sale (Kentang Goreng).
	if _, err := svc.AddToCart(ctx, "4"); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	if _, err := svc.ProcessTransaction(ctx, "qris", 0); err != nil {
		t.Fatalf("qris checkout: %v", err)
	}

	shift, err := svc.EndShift(ctx, 150000, 20000)
	if err != nil {
		t.Fatalf("end shift: %v", err)
	}
	if shift.ExpectedCash != 150000 {
		t.Fatalf("expected cash = %d, want 150000", shift.ExpectedCash)
	}
	if shift.ExpectedQris != 20000 {
		t.Fatalf("expected qris = %d, want 20000", shift.ExpectedQris)
	}
	if shift.Difference != 0 || shift.QrisDifference != 0 {
		t.Fatalf("differences must be zero, got %d / %d", shift.Difference, shift.QrisDifference)
	}
	if shift.Status != domain.ShiftStatusClosed || shift.EndTime == nil {
		t.Fatalf("shift not sealed: %+v", shift)
	}

	if _, err := svc.EndShift(ctx, 0, 0); !errors.Is(err, ErrShiftNotOpen) {
		t.Fatalf("expected ErrShiftNotOpen after close, got %v", err)
	}
}

func TestEndShiftExcludesVoidedTransactions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	loginAdmin(t, svc)

	if _, err := svc.StartShift(ctx, 10000); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	if _, err := svc.AddToCart(ctx, "2"); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	tx, err := svc.ProcessTransaction(ctx, "cash", 0)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if _, err := svc.VoidTransaction(ctx, tx.ID, "customer cancelled", "1234"); err != nil {
		t.Fatalf("void: %v", err)
	}

	shift, err := svc.EndShift(ctx, 10000, 0)
	if err != nil {
		t.Fatalf("end shift: %v", err)
	}
	if shift.ExpectedCash != 10000 {
		t.Fatalf("voided sale must not count toward expected cash, got %d", shift.ExpectedCash)
	}
}

func TestSingleActiveShift(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	loginAdmin(t, svc)

	if _, err := svc.StartShift(ctx, 1000); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	if _, err := svc.StartShift(ctx, 2000); !errors.Is(err, ErrShiftAlreadyOpen) {
		t.Fatalf("expected ErrShiftAlreadyOpen, got %v", err)
	}
	if _, err := svc.StartShift(ctx, -1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative float, got %v", err)
	}
}

func TestPromoDiscounts(t *testing.T) {
	if got := Discount(domain.Promo{Type: domain.PromoPercentage, Value: 10}, 100000); got != 10000 {
		t.Fatalf("10%% of 100000 = %d, want 10000", got)
	}
	if got := Discount(domain.Promo{Type: domain.PromoFixed, Value: 5000}, 100000); got != 5000 {
		t.Fatalf("fixed discount = %d, want 5000", got)
	}
	// Rounding is half away from zero.
	if got := Discount(domain.Promo{Type: domain.PromoPercentage, Value: 15}, 999); got != 150 {
		t.Fatalf("15%% of 999 = %d, want 150", got)
	}
}

func TestPromoEligibility(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	loginAdmin(t, svc)

	// Kentang Goreng x2 = 40000: below HEMAT5's 50000 minimum.
	if _, err := svc.AddToCart(ctx, "4"); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	if _, err := svc.UpdateCartQty(ctx, "4", 2); err != nil {
		t.Fatalf("update qty: %v", err)
	}

	if _, err := svc.PromoDiscountByCode("HEMAT5"); !errors.Is(err, ErrPromoNotEligible) {
		t.Fatalf("expected ErrPromoNotEligible below min purchase, got %v", err)
	}
	if got, err := svc.PromoDiscountByCode("OPEN10"); err != nil || got != 4000 {
		t.Fatalf("OPEN10 on 40000 = %d (%v), want 4000", got, err)
	}
	if _, err := svc.PromoDiscountByCode("NOPE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown code, got %v", err)
	}

	applicable := svc.ApplicablePromos()
	for _, promo := range applicable {
		if promo.Code == "HEMAT5" {
			t.Fatalf("HEMAT5 must not be applicable at 40000")
		}
	}

	// Raise the cart to 60000: both promos apply.
	if _, err := svc.UpdateCartQty(ctx, "4", 3); err != nil {
		t.Fatalf("update qty: %v", err)
	}
	if got, err := svc.PromoDiscountByCode("hemat5"); err != nil || got != 5000 {
		t.Fatalf("HEMAT5 on 60000 = %d (%v), want 5000", got, err)
	}
}

func TestAuditLogGrowsPerMutation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	loginAdmin(t, svc)

	before := len(svc.ActivityLogs())
	if _, err := svc.AddProduct(ctx, domain.ProductCreateRequest{
		Name: "Teh Tarik", Price: 12000, Cost: 5000, Stock: 30, Category: "Minuman",
	}); err != nil {
		t.Fatalf("add product: %v", err)
	}

	logs := svc.ActivityLogs()
	if len(logs) != before+1 {
		t.Fatalf("audit log grew by %d, want 1", len(logs)-before)
	}
	// Entries are prepended, most recent first.
	if logs[0].Action != "Add Product" || logs[0].UserName != "Admin" {
		t.Fatalf("newest entry = %+v", logs[0])
	}
}

func TestAuditLogSkippedWithoutSession(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.LogActivity(ctx, "Ping", "no session"); err != nil {
		t.Fatalf("log without session must be a silent no-op: %v", err)
	}
	if len(svc.ActivityLogs()) != 0 {
		t.Fatalf("unauthenticated activity must not be recorded")
	}
	if err := svc.LogActivity(ctx, "", "details"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty action, got %v", err)
	}
}

func TestUserManagement(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	admin := loginAdmin(t, svc)

	if _, err := svc.AddUser(ctx, domain.UserCreateRequest{Name: "Kasir 2", Role: "cashier", PIN: "1234"}); !errors.Is(err, ErrDuplicatePIN) {
		t.Fatalf("expected ErrDuplicatePIN, got %v", err)
	}

	user, err := svc.AddUser(ctx, domain.UserCreateRequest{Name: "Kasir 2", Role: "cashier", PIN: "5678"})
	if err != nil {
		t.Fatalf("add user: %v", err)
	}
	if user.PIN != "" {
		t.Fatalf("responses must never carry the PIN hash")
	}

	if err := svc.DeleteUser(ctx, admin.ID); !errors.Is(err, ErrSelfDelete) {
		t.Fatalf("expected ErrSelfDelete, got %v", err)
	}
	if err := svc.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	// The deleted cashier's PIN no longer logs in.
	if _, err := svc.Login(ctx, "5678"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after delete, got %v", err)
	}
}

func TestDailyReportAggregatesValidSales(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	loginAdmin(t, svc)

	if _, err := svc.StartShift(ctx, 0); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	if _, err := svc.AddToCart(ctx, "1"); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	if _, err := svc.ProcessTransaction(ctx, "cash", 2000); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	report, err := svc.DailyReport("")
	if err != nil {
		t.Fatalf("daily report: %v", err)
	}
	if report.Transactions != 1 || report.GrossSales != 18000 || report.NetSales != 16000 {
		t.Fatalf("report = %+v", report)
	}
	// Margin: (18000-10000) - 2000 discount.
	if report.EstimatedMargin != 6000 {
		t.Fatalf("margin = %d, want 6000", report.EstimatedMargin)
	}
	if len(report.ByPayment) != 1 || report.ByPayment[0].PaymentMethod != "cash" {
		t.Fatalf("by payment = %+v", report.ByPayment)
	}

	if _, err := svc.DailyReport("30-08-2026"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad date, got %v", err)
	}
}

func TestReceiptRendersTransaction(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	loginAdmin(t, svc)

	if _, err := svc.StartShift(ctx, 0); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	if _, err := svc.AddToCart(ctx, "3"); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	tx, err := svc.ProcessTransaction(ctx, "cash", 0)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	receipt, err := svc.Receipt(tx.ID)
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if receipt.EscposBase64 == "" || receipt.FileName == "" {
		t.Fatalf("receipt incomplete: %+v", receipt)
	}
	if want := "Croissant x1"; !strings.Contains(receipt.PreviewText, want) {
		t.Fatalf("preview missing %q:\n%s", want, receipt.PreviewText)
	}
}
