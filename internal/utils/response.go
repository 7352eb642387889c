package utils

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Outcome classifies a book operation result; the HTTP status it maps to
// depends on the negotiated API version.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeCreated
	OutcomeInvalid
	OutcomeForbidden
	OutcomeNotFound
	OutcomeConflict
	OutcomeFailed
	OutcomeAggregateFailed
)

// Result is an operation outcome plus the JSON body to send
type Result struct {
	Outcome Outcome
	Body    interface{}
}

// MessageResponse is the {message, valid} body shared by the book routes
type MessageResponse struct {
	Message string `json:"message"`
	Valid   bool   `json:"valid"`
}

// StatusMessage is a bare {message} body
type StatusMessage struct {
	Message string `json:"message"`
}

// Message builds a result with a {message, valid} body
func Message(outcome Outcome, message string, valid bool) Result {
	return Result{Outcome: outcome, Body: MessageResponse{Message: message, Valid: valid}}
}

// IsLegacyVersion reports whether the api version selects the 1.x status contract
func IsLegacyVersion(version string) bool {
	return strings.HasPrefix(version, "1")
}

// StatusFor maps an outcome to the HTTP status of the api version.
// Legacy clients get 200 for everything but aggregation failures and rejections.
func StatusFor(version string, outcome Outcome) int {
	if IsLegacyVersion(version) {
		switch outcome {
		case OutcomeAggregateFailed:
			return fiber.StatusInternalServerError
		case OutcomeForbidden:
			return fiber.StatusForbidden
		default:
			return fiber.StatusOK
		}
	}

	switch outcome {
	case OutcomeCreated:
		return fiber.StatusCreated
	case OutcomeInvalid:
		return fiber.StatusBadRequest
	case OutcomeForbidden:
		return fiber.StatusForbidden
	case OutcomeNotFound:
		return fiber.StatusNotFound
	case OutcomeConflict:
		return fiber.StatusConflict
	case OutcomeFailed, OutcomeAggregateFailed:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusOK
	}
}

// SendResult writes the result with the status for the request's api version
func SendResult(c *fiber.Ctx, r Result) error {
	version, _ := c.Locals("apiVersion").(string)
	return c.Status(StatusFor(version, r.Outcome)).JSON(r.Body)
}

// ErrorResponse sends the error envelope used for rejected requests
func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	Ok        bool   `json:"ok"`
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
	Type      string `json:"type,omitempty"`
}
