package ticket

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/support-portal/internal/domain"
)

// Form is the ticket submission form.
type Form struct {
	MainCategory  string `json:"mainCategory" validate:"required"`
	SubDepartment string `json:"subDepartment,omitempty"`
	Subject       string `json:"subject" validate:"required,min=5,max=100"`
	Description   string `json:"description" validate:"required,min=20,max=2000"`
	GuestName     string `json:"guestName" validate:"required,min=2,max=50"`
	GuestPhone    string `json:"guestPhone" validate:"required,min=10,max=15,phone"`
	GuestEmail    string `json:"guestEmail" validate:"required,email"`
}

// DepartmentID is the sub-department when one is chosen, else the main category.
func (f Form) DepartmentID() string {
	if f.SubDepartment != "" {
		return f.SubDepartment
	}
	return f.MainCategory
}

func (f Form) normalized() Form {
	f.MainCategory = strings.TrimSpace(f.MainCategory)
	f.SubDepartment = strings.TrimSpace(f.SubDepartment)
	f.Subject = strings.TrimSpace(f.Subject)
	f.Description = strings.TrimSpace(f.Description)
	f.GuestName = strings.TrimSpace(f.GuestName)
	f.GuestPhone = strings.TrimSpace(f.GuestPhone)
	f.GuestEmail = strings.TrimSpace(f.GuestEmail)
	return f
}

type codeInput struct {
	Code string `json:"code" validate:"required,len=6,number"`
}

// FieldError is one failed rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// ValidationError lists every field that failed client-side validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+":"+f.Rule)
	}
	return "ticket: invalid input (" + strings.Join(parts, ", ") + ")"
}

// MessageKey names the catalog entry for the first failed rule.
func (e *ValidationError) MessageKey() string {
	if len(e.Fields) == 0 {
		return "validation.required"
	}
	return "validation." + e.Fields[0].Rule
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return domain.PhonePattern.MatchString(fl.Field().String())
	})
	return v
}

func validate(v *validator.Validate, input any) error {
	err := v.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
	}
	return out
}
