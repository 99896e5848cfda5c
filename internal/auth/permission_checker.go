package auth

// Permission names the workshop areas a route can be gated on.
type Permission string

const (
	PermCustomers        Permission = "customers"
	PermServiceOrders    Permission = "serviceOrders"
	PermInventory        Permission = "inventory"
	PermInvoices         Permission = "invoices"
	PermExpenses         Permission = "expenses"
	PermReports          Permission = "reports"
	PermEmployees        Permission = "employees"
	PermSettings         Permission = "settings"
	PermFinancialReports Permission = "financialReports"
	PermProfitAnalysis   Permission = "profitAnalysis"
	PermPayroll          Permission = "payroll"
	PermWorkshopRent     Permission = "workshopRent"
)

type PermissionChecker interface {
	HasPermission(account *AccountSnapshot, permission Permission) bool
	CanManageEmployees(account *AccountSnapshot) bool
	CanViewFinancials(account *AccountSnapshot) bool
	CanAccessSettings(account *AccountSnapshot) bool
	IsAdmin(account *AccountSnapshot) bool
}

type DefaultPermissionChecker struct{}

func NewPermissionChecker() PermissionChecker {
	return &DefaultPermissionChecker{}
}

func (c *DefaultPermissionChecker) HasPermission(account *AccountSnapshot, permission Permission) bool {
	if account == nil {
		return false
	}
	if account.Role == RoleAdmin {
		return true
	}

	p := account.Permissions
	switch permission {
	case PermCustomers:
		return p.Customers
	case PermServiceOrders:
		return p.ServiceOrders
	case PermInventory:
		return p.Inventory
	case PermInvoices:
		return p.Invoices
	case PermExpenses:
		return p.Expenses
	case PermReports:
		return p.Reports
	case PermEmployees:
		return p.Employees
	case PermSettings:
		return p.Settings
	case PermFinancialReports:
		return p.FinancialReports
	case PermProfitAnalysis:
		return p.ProfitAnalysis
	case PermPayroll:
		return p.Payroll
	case PermWorkshopRent:
		return p.WorkshopRent
	default:
		return false
	}
}

func (c *DefaultPermissionChecker) CanManageEmployees(account *AccountSnapshot) bool {
	return c.HasPermission(account, PermEmployees)
}

func (c *DefaultPermissionChecker) CanViewFinancials(account *AccountSnapshot) bool {
	return c.HasPermission(account, PermFinancialReports) || c.HasPermission(account, PermProfitAnalysis)
}

func (c *DefaultPermissionChecker) CanAccessSettings(account *AccountSnapshot) bool {
	return c.HasPermission(account, PermSettings)
}

func (c *DefaultPermissionChecker) IsAdmin(account *AccountSnapshot) bool {
	return account != nil && account.Role == RoleAdmin
}
