// Package response defines the JSON envelope every API endpoint answers with.
package response

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var EmptyRequestBodyResponse = Response{
	Status:  StatusError,
	Error:   "Empty Request Body",
	Message: "Request body is empty. Please provide necessary data.",
}

var BadRequestResponse = Response{
	Status:  StatusError,
	Error:   "Bad Request",
	Message: "The request body could not be parsed. Please check the syntax.",
}

var ResourceNotFoundResponse = Response{
	Status:  StatusError,
	Error:   "Resource Not Found",
	Message: "The requested resource was not found.",
}

var ServerErrorResponse = Response{
	Status:  StatusError,
	Error:   "Server Error",
	Message: "An internal server error occurred. Please try again later.",
}

type Response struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
	Details []any  `json:"details,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func SuccessResponse(msg string, data ...any) Response {
	resp := Response{
		Status:  StatusSuccess,
		Message: msg,
	}

	if len(data) > 0 {
		resp.Data = data[0]
	}

	return resp
}

func ErrorResponse(errName, msg string) Response {
	return Response{
		Status:  StatusError,
		Error:   errName,
		Message: msg,
	}
}

// validationError describes one field that failed request validation.
type validationError struct {
	Field string `json:"field"`
	Value any    `json:"value"`
	Issue string `json:"issue"`
}

func getValidationErrors(err error) []validationError {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return nil
	}

	var errs []validationError

	for _, fieldErr := range validationErrs {
		issue := fmt.Sprintf("Failed on the '%s' rule.", fieldErr.Tag())

		switch fieldErr.Tag() {
		case "required":
			issue = "This field is required."
		case "url":
			issue = "Invalid url."
		case "email":
			issue = "Invalid email."
		case "oneof":
			issue = fmt.Sprintf("Must be one of: %s.", fieldErr.Param())
		case "min":
			issue = fmt.Sprintf("Must be at least %s.", fieldErr.Param())
		case "max":
			issue = fmt.Sprintf("Must be at most %s.", fieldErr.Param())
		}

		errs = append(errs, validationError{
			Field: fieldErr.Field(),
			Value: fieldErr.Value(),
			Issue: issue,
		})
	}

	return errs
}

// ValidationErrorResponse flattens validator errors into per-field details.
func ValidationErrorResponse(err error) Response {
	resp := Response{
		Status:  StatusError,
		Error:   "Validation Error",
		Message: "One or more fields failed validation.",
	}

	for _, ve := range getValidationErrors(err) {
		resp.Details = append(resp.Details, ve)
	}

	return resp
}
