package validation

import (
	"errors"
	"strings"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// User-facing messages shown inline in the project wizard.
const (
	MsgURLRequired     = "Ange en hemsida URL"
	MsgURLScheme       = "URL måste börja med http:// eller https://"
	MsgContactRequired = "Fyll i email och telefon"
	MsgEmailInvalid    = "Ange en giltig e-postadress"
)

var errScheme = errors.New(MsgURLScheme)

func hasHTTPScheme(value interface{}) error {
	s, _ := value.(string)
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return nil
	}
	return errScheme
}

// CheckURL requires a non-empty http(s) URL.
func CheckURL(raw string) error {
	return ozzo.Validate(strings.TrimSpace(raw),
		ozzo.Required.Error(MsgURLRequired),
		ozzo.By(hasHTTPScheme),
	)
}

// CheckContact requires email and phone; the email must be well formed.
func CheckContact(email, phone string) error {
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)
	if email == "" || phone == "" {
		return errors.New(MsgContactRequired)
	}
	return ozzo.Validate(email, is.EmailFormat.Error(MsgEmailInvalid))
}

// ValidateEmail reports whether email is well formed.
func ValidateEmail(email string) bool {
	return ozzo.Validate(email, ozzo.Required, is.EmailFormat) == nil
}
