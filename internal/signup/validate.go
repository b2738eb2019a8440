package signup

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultMinAge     = 16
	// MinPasswordLength counts characters, not bytes.
	MinPasswordLength = 8
)

// emailPattern is the local@domain.tld shape accepted by the email input.
var emailPattern = regexp.MustCompile(`^[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}$`)

// fieldConstraints mirrors the input attributes of the form.
type fieldConstraints struct {
	Email       string   `validate:"required,email_pattern"`
	PhoneNumber string   `validate:"required"`
	Gender      string   `validate:"omitempty,oneof=male female other"`
	CGPA        *float64 `validate:"omitempty,gte=0,lte=10"`
	Income      *float64 `validate:"omitempty,gte=0"`
}

var fieldMessages = map[string]string{
	"Email":       "Please enter a valid email address",
	"PhoneNumber": "Please enter your phone number",
	"Gender":      "Please select a valid gender",
	"CGPA":        "CGPA must be between 0 and 10",
	"Income":      "Annual family income cannot be negative",
}

// Validator is the pre-submit gate. It holds no per-draft state and is safe
// for concurrent use.
type Validator struct {
	minAge   int
	validate *validator.Validate
}

func NewValidator(minAge int) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("email_pattern", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return &Validator{minAge: minAge, validate: v}
}

// Validate reports the first rule d violates, or nil.
func (v *Validator) Validate(d *Draft) error {
	if d.FullName == "" {
		return ErrMissingName
	}
	if age, ok := d.Age(); ok && age < v.minAge {
		return &UnderageError{Age: age, MinAge: v.minAge}
	}
	if d.Password != d.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if utf8.RuneCountInString(d.Password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if !d.AgreeTerms {
		return ErrTermsNotAccepted
	}
	return v.validateFields(d)
}

func (v *Validator) validateFields(d *Draft) error {
	cgpa, err := parseOptionalNumber(d.College.CGPA)
	if err != nil {
		return &FieldError{Field: "CGPA", Message: "CGPA must be a number"}
	}
	income, err := parseOptionalNumber(d.Income)
	if err != nil {
		return &FieldError{Field: "Income", Message: "Annual family income must be a number"}
	}

	err = v.validate.Struct(fieldConstraints{
		Email:       d.Email,
		PhoneNumber: strings.TrimSpace(d.PhoneNumber),
		Gender:      d.Gender,
		CGPA:        cgpa,
		Income:      income,
	})

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		field := verrs[0].Field()
		return &FieldError{Field: field, Message: fieldMessages[field]}
	}
	return err
}

func parseOptionalNumber(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, strconv.ErrSyntax
	}
	return &n, nil
}
