package domain

import "time"

// Monetary amounts are integer currency units (rupiah); no fractional cents.

type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Cost     int64  `json:"cost"`
	Stock    int    `json:"stock"`
	Category string `json:"category"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CartItem is a product line in the working cart. The same shape is frozen
// into Transaction.Items at checkout, so price and cost never drift after a
// sale is committed.
type CartItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Cost     int64  `json:"cost"`
	Category string `json:"category"`
	Qty      int    `json:"qty"`
}

type Transaction struct {
	ID            string     `json:"id"`
	Date          time.Time  `json:"date"`
	Items         []CartItem `json:"items"`
	Subtotal      int64      `json:"subtotal"`
	Discount      int64      `json:"discount"`
	Total         int64      `json:"total"`
	ShiftID       string     `json:"shiftId"`
	CashierID     string     `json:"cashierId"`
	CashierName   string     `json:"cashierName"`
	PaymentMethod string     `json:"paymentMethod"`
	Status        string     `json:"status"`
	VoidReason    string     `json:"voidReason,omitempty"`
	VoidBy        string     `json:"voidBy,omitempty"`
	VoidAt        *time.Time `json:"voidAt,omitempty"`
}

type Promo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Type        string `json:"type"`
	Value       int64  `json:"value"`
	MinPurchase int64  `json:"minPurchase,omitempty"`
	Active      bool   `json:"active"`
}

type Shift struct {
	ID             string     `json:"id"`
	CashierID      string     `json:"cashierId"`
	CashierName    string     `json:"cashierName"`
	StartTime      time.Time  `json:"startTime"`
	StartCash      int64      `json:"startCash"`
	Status         string     `json:"status"`
	EndTime        *time.Time `json:"endTime,omitempty"`
	ExpectedCash   int64      `json:"expectedCash,omitempty"`
	ActualCash     int64      `json:"actualCash,omitempty"`
	Difference     int64      `json:"difference,omitempty"`
	ExpectedQris   int64      `json:"expectedQris,omitempty"`
	ActualQris     int64      `json:"actualQris,omitempty"`
	QrisDifference int64      `json:"qrisDifference,omitempty"`
}

// User.PIN holds a bcrypt hash at rest. Plain-text PINs only appear in
// requests and in legacy version-0 payloads, which the store migration
// upgrades on load.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
	PIN  string `json:"pin"`
}

type ActivityLog struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// State is the whole engine state: the single blob persisted under the
// pos-storage key after every mutation.
type State struct {
	User         *User         `json:"user"`
	Users        []User        `json:"users"`
	Products     []Product     `json:"products"`
	Categories   []Category    `json:"categories"`
	Cart         []CartItem    `json:"cart"`
	Transactions []Transaction `json:"transactions"`
	Promos       []Promo       `json:"promos"`
	Shifts       []Shift       `json:"shifts"`
	ActiveShift  *Shift        `json:"activeShift"`
	ActivityLogs []ActivityLog `json:"activityLogs"`
}

type LoginRequest struct {
	PIN string `json:"pin"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
	ExpiresAt   string `json:"expires_at"`
}

// Actor identifies the bearer of an access token on a request.
type Actor struct {
	ID   string
	Name string
	Role string
}

type ProductCreateRequest struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Cost     int64  `json:"cost"`
	Stock    int    `json:"stock"`
	Category string `json:"category"`
}

type ProductUpdateRequest struct {
	Name     *string `json:"name,omitempty"`
	Price    *int64  `json:"price,omitempty"`
	Cost     *int64  `json:"cost,omitempty"`
	Stock    *int    `json:"stock,omitempty"`
	Category *string `json:"category,omitempty"`
}

type CategoryCreateRequest struct {
	Name string `json:"name"`
}

type PromoCreateRequest struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Type        string `json:"type"`
	Value       int64  `json:"value"`
	MinPurchase int64  `json:"min_purchase"`
	Active      bool   `json:"active"`
}

type PromoUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Code        *string `json:"code,omitempty"`
	Type        *string `json:"type,omitempty"`
	Value       *int64  `json:"value,omitempty"`
	MinPurchase *int64  `json:"min_purchase,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

type UserCreateRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
	PIN  string `json:"pin"`
}

type UserUpdateRequest struct {
	Name *string `json:"name,omitempty"`
	Role *string `json:"role,omitempty"`
	PIN  *string `json:"pin,omitempty"`
}

type AddToCartRequest struct {
	ProductID string `json:"product_id"`
}

type UpdateCartQtyRequest struct {
	Qty int `json:"qty"`
}

type CheckoutRequest struct {
	PaymentMethod string `json:"payment_method"`
	Discount      int64  `json:"discount"`
	PromoCode     string `json:"promo_code,omitempty"`
}

type VoidTransactionRequest struct {
	Reason      string `json:"reason"`
	ApproverPIN string `json:"approver_pin"`
}

type StartShiftRequest struct {
	StartCash int64 `json:"start_cash"`
}

type EndShiftRequest struct {
	ActualCash int64 `json:"actual_cash"`
	ActualQris int64 `json:"actual_qris"`
}

type DailyReportPayment struct {
	PaymentMethod string `json:"payment_method"`
	Transactions  int64  `json:"transactions"`
	Total         int64  `json:"total"`
}

type DailyReport struct {
	Date            string               `json:"date"`
	Transactions    int64                `json:"transactions"`
	GrossSales      int64                `json:"gross_sales"`
	Discount        int64                `json:"discount"`
	NetSales        int64                `json:"net_sales"`
	EstimatedMargin int64                `json:"estimated_margin"`
	ByPayment       []DailyReportPayment `json:"by_payment"`
}

type ReceiptResponse struct {
	TransactionID string `json:"transaction_id"`
	EscposBase64  string `json:"escpos_base64"`
	PreviewText   string `json:"preview_text"`
	FileName      string `json:"file_name"`
}

const (
	PaymentCash = "cash"
	PaymentQris = "qris"
)

const (
	TxStatusValid = "valid"
	TxStatusVoid  = "void"
)

const (
	ShiftStatusOpen   = "open"
	ShiftStatusClosed = "closed"
)

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

const (
	PromoPercentage = "percentage"
	PromoFixed      = "fixed"
)
