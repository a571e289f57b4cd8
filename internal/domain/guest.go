package domain

import "regexp"

// Phone number bounds shared by the ticket form and the history lookup.
const (
	PhoneMinLen = 10
	PhoneMaxLen = 15
)

// PhonePattern is the character rule for guest phone numbers.
var PhonePattern = regexp.MustCompile(`^\+?[\d\s\-\(\)]+$`)

// ValidPhone reports whether phone satisfies both the length bounds and PhonePattern.
func ValidPhone(phone string) bool {
	return len(phone) >= PhoneMinLen && len(phone) <= PhoneMaxLen && PhonePattern.MatchString(phone)
}

// Guest is the anonymous identity a visitor registers with.
type Guest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}
