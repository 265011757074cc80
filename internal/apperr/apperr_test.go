package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"client input", ClientInput("question is required"), http.StatusBadRequest},
		{"conflict", Conflict("in flight"), http.StatusConflict},
		{"collaborator", Collaborator("boom", errors.New("x")), http.StatusInternalServerError},
		{"wrapped client input", fmt.Errorf("ctx: %w", ClientInput("bad")), http.StatusBadRequest},
		{"plain error", errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestDetail(t *testing.T) {
	assert.Equal(t, "Could not extract time from your prompt.",
		Detail(ClientInput("Could not extract time from your prompt.")))
	assert.Equal(t, "Scheduling failed: quota",
		Detail(Collaborator("Scheduling failed: quota", errors.New("quota"))))
	assert.Equal(t, "upstream down", Detail(Collaborator("", errors.New("upstream down"))))
	assert.Equal(t, "plain", Detail(errors.New("plain")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Collaborator("search failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, CodeCollaborator, CodeOf(err))
	assert.False(t, err.Timestamp.IsZero())
}
