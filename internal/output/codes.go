// Package output provides JSON/Markdown output formatting and error handling.
package output

// Exit codes matching the documented CLI contract.
const (
	ExitOK        = 0 // Success
	ExitUsage     = 1 // Invalid arguments or flags
	ExitNotFound  = 2 // Resource not found
	ExitAuth      = 3 // Not authenticated
	ExitForbidden = 4 // Access denied
	ExitRateLimit = 5 // Rate limited (429)
	ExitNetwork   = 6 // Connection/DNS/timeout error
	ExitAPI       = 7 // Server returned error
	ExitAmbiguous = 8 // Multiple matches for name
	ExitConflict  = 9 // Remote revision diverged (409)
)

// Error codes for JSON envelope.
const (
	CodeUsage     = "usage"
	CodeNotFound  = "not_found"
	CodeAuth      = "auth_required"
	CodeForbidden = "forbidden"
	CodeRateLimit = "rate_limit"
	CodeNetwork   = "network"
	CodeAPI       = "api_error"
	CodeAmbiguous = "ambiguous"
	CodeConflict  = "conflict"
)

var exitCodes = map[string]int{
	CodeUsage:     ExitUsage,
	CodeNotFound:  ExitNotFound,
	CodeAuth:      ExitAuth,
	CodeForbidden: ExitForbidden,
	CodeRateLimit: ExitRateLimit,
	CodeNetwork:   ExitNetwork,
	CodeAPI:       ExitAPI,
	CodeAmbiguous: ExitAmbiguous,
	CodeConflict:  ExitConflict,
}

// ExitCodeFor returns the exit code for a given error code. Unknown codes
// map to ExitAPI.
func ExitCodeFor(code string) int {
	if ec, ok := exitCodes[code]; ok {
		return ec
	}
	return ExitAPI
}
