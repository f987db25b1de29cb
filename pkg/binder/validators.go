package binder

import (
	"net/url"

	"github.com/go-playground/validator/v10"
)

// urlValidator ensures the value is an absolute URL or the empty string. The
// reason the empty string is allowed is that this validator can be used to
// clear out values. If you're using this validator but want the value to be
// required, add a `ne=` to the validate tag so that the empty string is
// disallowed.
func urlValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}
