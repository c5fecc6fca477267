package booking

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"metisconnect/models"

	"github.com/go-playground/validator/v10"
)

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9 ().-]+$`)

	validate     *validator.Validate
	validateOnce sync.Once
)

const (
	minPhoneDigits = 10
	maxPhoneDigits = 15
)

func draftValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return validPhone(fl.Field().String())
		})
		_ = v.RegisterValidation("service", func(fl validator.FieldLevel) bool {
			_, ok := LookupService(fl.Field().String())
			return ok
		})
		validate = v
	})
	return validate
}

func validPhone(phone string) bool {
	if !phonePattern.MatchString(phone) {
		return false
	}
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= minPhoneDigits && digits <= maxPhoneDigits
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "is not a valid email address"
	case "phone":
		return "is not a valid phone number"
	case "service":
		return "is not a known service"
	case "datetime":
		return fmt.Sprintf("must match %s", fe.Param())
	default:
		return "is invalid"
	}
}

// normalizeDraft trims user input; the caller's draft is left untouched.
func normalizeDraft(d models.BookingDraft) models.BookingDraft {
	d.CustomerName = strings.TrimSpace(d.CustomerName)
	d.CustomerPhone = strings.TrimSpace(d.CustomerPhone)
	d.CustomerEmail = strings.TrimSpace(d.CustomerEmail)
	d.ServiceCode = strings.TrimSpace(d.ServiceCode)
	d.Date = strings.TrimSpace(d.Date)
	d.Time = strings.TrimSpace(d.Time)
	return d
}

// validateDraft runs every local rule and returns the combined instant.
func validateDraft(d models.BookingDraft, loc *time.Location, now time.Time) (time.Time, error) {
	var fields []FieldError

	if err := draftValidator().Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return time.Time{}, fmt.Errorf("validate booking draft: %w", err)
		}
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
		}
	}

	var instant time.Time
	if !hasField(fields, "date") && !hasField(fields, "time") {
		t, err := time.ParseInLocation("2006-01-02 15:04", d.Date+" "+d.Time, loc)
		switch {
		case err != nil:
			fields = append(fields, FieldError{Field: "date", Message: "is not a valid date"})
		case !t.After(now):
			fields = append(fields, FieldError{Field: "time", Message: "must be in the future"})
		default:
			instant = t
		}
	}

	if len(fields) > 0 {
		return time.Time{}, &ValidationError{Fields: fields}
	}
	return instant, nil
}

func hasField(fields []FieldError, name string) bool {
	for _, f := range fields {
		if f.Field == name {
			return true
		}
	}
	return false
}
