package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// Permissions is the flat set of workshop areas an account may open. JSON
// field names match what the web client stores and reads back.
type Permissions struct {
	Customers        bool `json:"customers" gorm:"column:perm_customers"`
	ServiceOrders    bool `json:"serviceOrders" gorm:"column:perm_service_orders"`
	Inventory        bool `json:"inventory" gorm:"column:perm_inventory"`
	Invoices         bool `json:"invoices" gorm:"column:perm_invoices"`
	Expenses         bool `json:"expenses" gorm:"column:perm_expenses"`
	Reports          bool `json:"reports" gorm:"column:perm_reports"`
	Employees        bool `json:"employees" gorm:"column:perm_employees"`
	Settings         bool `json:"settings" gorm:"column:perm_settings"`
	FinancialReports bool `json:"financialReports" gorm:"column:perm_financial_reports"`
	ProfitAnalysis   bool `json:"profitAnalysis" gorm:"column:perm_profit_analysis"`
	Payroll          bool `json:"payroll" gorm:"column:perm_payroll"`
	WorkshopRent     bool `json:"workshopRent" gorm:"column:perm_workshop_rent"`
}

// AllPermissions is the full grant an admin holds.
func AllPermissions() Permissions {
	return Permissions{
		Customers:        true,
		ServiceOrders:    true,
		Inventory:        true,
		Invoices:         true,
		Expenses:         true,
		Reports:          true,
		Employees:        true,
		Settings:         true,
		FinancialReports: true,
		ProfitAnalysis:   true,
		Payroll:          true,
		WorkshopRent:     true,
	}
}

// Account is the stored identity. PasswordHash never leaves the package
// boundary; everything serialized for clients goes through Snapshot.
type Account struct {
	ID           string      `json:"id" gorm:"primaryKey;column:id"`
	EmployeeID   string      `json:"employee_id" gorm:"column:employee_id;uniqueIndex"`
	Name         string      `json:"name" gorm:"column:name"`
	Username     string      `json:"username" gorm:"column:username;uniqueIndex"`
	Email        string      `json:"email" gorm:"column:email"`
	Phone        string      `json:"phone" gorm:"column:phone"`
	Role         Role        `json:"role" gorm:"column:role"`
	Permissions  Permissions `json:"permissions" gorm:"embedded"`
	PasswordHash string      `json:"-" gorm:"column:password_hash"`
	CreatedAt    time.Time   `json:"created_at" gorm:"column:created_at"`
}

func (Account) TableName() string {
	return "accounts"
}

// EffectivePermissions resolves what the account can actually do right now.
// Admins always get the full set regardless of what the row says, so a stale
// stored grant can never lock an admin out.
func EffectivePermissions(account *Account) Permissions {
	if account.Role == RoleAdmin {
		return AllPermissions()
	}
	return account.Permissions
}

// AccountSnapshot is the account as exposed to clients and as cached inside a
// session: same identity, effective permissions, no credentials.
type AccountSnapshot struct {
	ID          string      `json:"id"`
	EmployeeID  string      `json:"employee_id"`
	Name        string      `json:"name"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone"`
	Role        Role        `json:"role"`
	Permissions Permissions `json:"permissions"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (a *Account) Snapshot() AccountSnapshot {
	return AccountSnapshot{
		ID:          a.ID,
		EmployeeID:  a.EmployeeID,
		Name:        a.Name,
		Username:    a.Username,
		Email:       a.Email,
		Phone:       a.Phone,
		Role:        a.Role,
		Permissions: EffectivePermissions(a),
		CreatedAt:   a.CreatedAt,
	}
}

// MarshalSnapshot serializes a snapshot for storage next to the session.
func MarshalSnapshot(s AccountSnapshot) ([]byte, error) {
	return json.Marshal(s)
}

func UnmarshalSnapshot(data []byte) (AccountSnapshot, error) {
	var s AccountSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return AccountSnapshot{}, err
	}
	return s, nil
}

// PasswordResetRequest is the stored side of a reset token. The token the
// caller receives references this row by ID; a row can be spent exactly once.
type PasswordResetRequest struct {
	ID        string     `json:"id" gorm:"primaryKey;column:id"`
	AccountID string     `json:"account_id" gorm:"column:account_id;index"`
	CreatedAt time.Time  `json:"created_at" gorm:"column:created_at"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"column:expires_at"`
	Used      bool       `json:"used" gorm:"column:used"`
	UsedAt    *time.Time `json:"used_at,omitempty" gorm:"column:used_at"`
}

func (PasswordResetRequest) TableName() string {
	return "password_reset_requests"
}

var (
	ErrAccountNotFound      = errors.New("auth: account not found")
	ErrResetRequestNotFound = errors.New("auth: password reset request not found")
)

// AccountRepository persists accounts.
type AccountRepository interface {
	Count() (int64, error)
	GetByID(id string) (*Account, error)
	// FindByIdentifier matches username, email, or employee id, in that
	// order of preference.
	FindByIdentifier(identifier string) (*Account, error)
	FindByUsername(username string) (*Account, error)
	Create(account *Account) error
	UpdatePasswordHash(accountID, passwordHash string) error
	EmployeeIDs() ([]string, error)
}

// ResetRequestRepository persists password reset requests.
type ResetRequestRepository interface {
	Create(request *PasswordResetRequest) error
	GetByID(id string) (*PasswordResetRequest, error)
	MarkUsed(id string, usedAt time.Time) error
}

type ctxKey string

const ContextUserKey ctxKey = "user"

// AccountFromContext returns the authenticated account placed into the
// request context by AuthMiddleware.
func AccountFromContext(ctx context.Context) (*AccountSnapshot, bool) {
	snapshot, ok := ctx.Value(ContextUserKey).(*AccountSnapshot)
	return snapshot, ok
}

func ContextWithAccount(ctx context.Context, snapshot *AccountSnapshot) context.Context {
	return context.WithValue(ctx, ContextUserKey, snapshot)
}
