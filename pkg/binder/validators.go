package binder

import (
	"net/url"

	"github.com/go-playground/validator/v10"

	"github.com/HusseinSarrar05/mygpo/pkg/models"
)

// feedURLValidator ensures the value is an absolute http or https URL, or the
// empty string. The reason the empty string is allowed is that optional fields
// should not fail validation when omitted; add `required` to the validate tag
// to disallow it.
func feedURLValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// deviceUIDValidator ensures the value is a well-formed client-chosen device
// identifier, or the empty string.
func deviceUIDValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return models.ValidDeviceUID(value)
}
