// Package common holds the response helpers shared by the HTTP handlers.
package common

import (
	"errors"

	"github.com/amirasaad/awgen/pkg/domain"
	"github.com/amirasaad/awgen/pkg/domain/asset"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Response defines the standard API response structure for success cases.
type Response struct {
	Status  int    `json:"status"`         // HTTP status code
	Message string `json:"message"`        // Human-readable explanation
	Data    any    `json:"data,omitempty"` // Response data
}

// ProblemDetails follows RFC 9457 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string `json:"type,omitempty"`     // A URI reference that identifies the problem type
	Title    string `json:"title"`              // Short, human-readable summary
	Status   int    `json:"status"`             // HTTP status code
	Detail   string `json:"detail,omitempty"`   // Human-readable explanation
	Instance string `json:"instance,omitempty"` // URI reference that identifies the specific occurrence
	Errors   any    `json:"errors,omitempty"`   // Optional: additional error details
}

var validate = validator.New()

// SuccessResponseJSON writes a Response with the given status.
func SuccessResponseJSON(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Response{Status: status, Message: message, Data: data})
}

// ErrorResponseJSON returns a response following RFC 9457 Problem Details
func ErrorResponseJSON(
	c *fiber.Ctx,
	status int,
	title string,
	detail any,
) error {
	pd := ProblemDetails{
		Type:   "about:blank",
		Title:  title,
		Status: status,
	}
	if detail != nil {
		if s, ok := detail.(string); ok {
			pd.Detail = s
		} else {
			pd.Errors = detail
		}
	}
	pd.Instance = c.OriginalURL()
	c.Set(fiber.HeaderContentType, "application/problem+json")

	return c.Status(status).JSON(pd)
}

// ProblemDetailsJSON writes a problem response for err. The optional extras
// are a detail string and an explicit status code; without a status the code
// is derived from err.
func ProblemDetailsJSON(c *fiber.Ctx, title string, err error, extras ...any) error {
	status := 0
	detail := ""
	for _, e := range extras {
		switch v := e.(type) {
		case int:
			status = v
		case string:
			detail = v
		}
	}
	if status == 0 {
		status = ErrorToStatusCode(err)
	}
	if detail == "" && err != nil {
		detail = err.Error()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) && status == fiber.StatusInternalServerError {
		status = fe.Code
	}
	return ErrorResponseJSON(c, status, title, detail)
}

// ErrorToStatusCode maps domain errors to appropriate HTTP status codes.
func ErrorToStatusCode(err error) int {
	switch {
	case err == nil:
		return fiber.StatusInternalServerError
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, asset.ErrInvalidPath):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// BindAndValidate parses the request body and validates it using go-playground/validator.
// Returns a pointer to the struct (populated), or writes an error response and returns nil.
func BindAndValidate[T any](c *fiber.Ctx) (*T, error) {
	var input T
	if err := c.BodyParser(&input); err != nil {
		_ = ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid request body", err.Error())
		return nil, err
	}
	if err := validate.Struct(input); err != nil {
		_ = ErrorResponseJSON(c, fiber.StatusBadRequest, "Validation failed", err.Error())
		return nil, err
	}
	return &input, nil
}
