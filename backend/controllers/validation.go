package controllers

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func validationDetails(err error) map[string]string {
	details := make(map[string]string)
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		for _, fe := range fieldErrors {
			details[fe.Field()] = fe.Tag()
		}
	}
	return details
}
