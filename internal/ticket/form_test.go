package ticket

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/support-portal/internal/domain"
)

func TestFormPhoneRuleMatchesDomain(t *testing.T) {
	v := newValidator()
	for _, phone := range []string{
		"+49 30 1234567",
		"(030) 123-4567",
		"123456789",
		"1234567890",
		"+1234567890123456",
		"+49 30 12x4567",
		"49--30--12",
	} {
		form := validForm()
		form.GuestPhone = phone
		err := validate(v, form)
		assert.Equal(t, domain.ValidPhone(phone), err == nil, "phone %q", phone)
	}
}
