package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Partner access token required
)

// EndpointSecurityConfig maps HTTP route names to their required security
// level. Route names are the ones given to mux routes.
var EndpointSecurityConfig = map[string]SecurityLevel{
	"health":        SecurityPublic,
	"metrics":       SecurityPublic,
	"mock_download": SecurityPublic,

	"dashboard":              SecurityAccess,
	"booking_approve":        SecurityAccess,
	"booking_reject":         SecurityAccess,
	"booking_deliver":        SecurityAccess,
	"booking_confirm_return": SecurityAccess,
	"booking_mark_paid":      SecurityAccess,
	"booking_photos":         SecurityAccess,
	"booking_audit":          SecurityAccess,
	"capture_open":           SecurityAccess,
	"capture_view":           SecurityAccess,
	"capture_close":          SecurityAccess,
	"capture_frame":          SecurityAccess,
	"capture_camera_error":   SecurityAccess,
	"capture_mileage":        SecurityAccess,
	"capture_photo":          SecurityAccess,
	"capture_retake":         SecurityAccess,
	"capture_advance":        SecurityAccess,
	"capture_skip":           SecurityAccess,
	"capture_finalize":       SecurityAccess,
}

// GetSecurityLevel returns the security level for a given route
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAccess
}
