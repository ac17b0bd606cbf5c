package constants

// Static route constants
const (
	PublicRoute    = "/"
	PricingRoute   = "/pricing"
	DashboardRoute = "/dashboard"
	BillingRoute   = "/billing"
	LoginRoute     = "/login"
	RegisterRoute  = "/register"
	LogoutRoute    = "/logout"
)
