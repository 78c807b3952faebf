package observability

import (
	"strings"

	"github.com/freelancehub/app-indexer/internal/logging"
)

// Logger returns the global safe logger instance
func Logger() *logging.SafeLogger {
	return logging.Logger
}

// MaskEmail keeps the first character of the local part and the domain
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "****"
	}
	return email[:1] + "****" + email[at:]
}

// MaskPhone keeps the last four digits of a phone number
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

// MaskSensitiveData masks contact fields in a document snapshot
func MaskSensitiveData(data map[string]interface{}) map[string]interface{} {
	masked := make(map[string]interface{}, len(data))
	for k, v := range data {
		switch k {
		case "email":
			if s, ok := v.(string); ok {
				masked[k] = MaskEmail(s)
				continue
			}
			masked[k] = "********"
		case "phone", "password", "remember_token":
			masked[k] = "********"
		default:
			masked[k] = v
		}
	}
	return masked
}
