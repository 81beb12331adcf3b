package instrumentation

import "strings"

// ExtractUserDomain extracts the domain part from an email address so that
// metrics never carry a full address.
//
// Example:
//
//	ExtractUserDomain("jane@example.com")  // "example.com"
//	ExtractUserDomain("invalid")           // "unknown"
//	ExtractUserDomain("")                  // "unknown"
func ExtractUserDomain(email string) string {
	if email == "" {
		return "unknown"
	}

	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return strings.ToLower(parts[1])
	}

	return "unknown"
}

// Operation types for provider metrics.
const (
	OperationList   = "list"
	OperationGet    = "get"
	OperationSearch = "search"
	OperationLogin  = "login"
)
