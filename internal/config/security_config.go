package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityMember                      // Any valid portal session token
	SecurityAdmin                       // Session token carrying the ADMIN role
)

// RouteSecurityConfig maps named API routes to their required security level
var RouteSecurityConfig = map[string]SecurityLevel{
	"health": SecurityPublic,

	// Catalog
	"items.list":         SecurityMember,
	"items.availability": SecurityMember,

	// Member workflow
	"rentals.request":        SecurityMember,
	"rentals.checkout":       SecurityMember,
	"rentals.mine":           SecurityMember,
	"rentals.get":            SecurityMember,
	"rentals.request_return": SecurityMember,

	// Admin workflow
	"rentals.pending":         SecurityAdmin,
	"rentals.pending_returns": SecurityAdmin,
	"rentals.approve":         SecurityAdmin,
	"rentals.verify_return":   SecurityAdmin,
	"rentals.checkin":         SecurityAdmin,
	"mirror.list":             SecurityAdmin,
}

// GetRouteSecurityLevel returns the level for a route, defaulting to member
// access for routes that are not listed
func GetRouteSecurityLevel(route string) SecurityLevel {
	if level, ok := RouteSecurityConfig[route]; ok {
		return level
	}
	return SecurityMember
}
