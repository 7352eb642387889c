package utils

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		outcome Outcome
		v2      int
		legacy  int
	}{
		{OutcomeOK, 200, 200},
		{OutcomeCreated, 201, 200},
		{OutcomeInvalid, 400, 200},
		{OutcomeForbidden, 403, 403},
		{OutcomeNotFound, 404, 200},
		{OutcomeConflict, 409, 200},
		{OutcomeFailed, 500, 200},
		{OutcomeAggregateFailed, 500, 500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.v2, StatusFor("2.0.0", tt.outcome), "v2 outcome %d", tt.outcome)
		assert.Equal(t, tt.legacy, StatusFor("1.0.0", tt.outcome), "legacy outcome %d", tt.outcome)
	}
}

func TestSendResult(t *testing.T) {
	app := fiber.New()
	app.Get("/:version", func(c *fiber.Ctx) error {
		c.Locals("apiVersion", c.Params("version"))
		return SendResult(c, Message(OutcomeNotFound, "Book not found", false))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/2.0.0", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var msg MessageResponse
	require.NoError(t, json.Unmarshal(body, &msg))
	assert.Equal(t, MessageResponse{Message: "Book not found", Valid: false}, msg)

	resp, err = app.Test(httptest.NewRequest("GET", "/1.0.0", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
