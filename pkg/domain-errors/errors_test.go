package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodesAndMessages(t *testing.T) {
	err := New(CodeInvalidKey, "invalid license key")
	assert.True(t, HasCode(err, CodeInvalidKey))
	assert.False(t, HasCode(err, CodeDeactivated))
	assert.Equal(t, CodeInvalidKey, CodeOf(err))
	assert.Equal(t, "invalid license key", MessageOf(err))
}

func TestWrapKeepsCauseServerSide(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := Wrap(cause, CodeInternal, "store failure")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "store failure", MessageOf(err), "cause text never reaches the caller")
	assert.Contains(t, err.Error(), "connection refused", "cause text stays in server logs")
}

func TestWrappedCodeSurvivesFmtWrap(t *testing.T) {
	err := fmt.Errorf("handling webhook: %w", New(CodeDuplicateEvent, "event already processed"))
	assert.True(t, HasCode(err, CodeDuplicateEvent))
}

func TestNonDomainErrorDefaults(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Equal(t, "internal error", MessageOf(err))
}

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeBadRequest, http.StatusBadRequest},
		{CodeInvalidEvent, http.StatusBadRequest},
		{CodeDuplicateEvent, http.StatusOK},
		{CodeInvalidKey, http.StatusNotFound},
		{CodeDeactivated, http.StatusForbidden},
		{CodeDeviceLimit, http.StatusForbidden},
		{CodeContention, http.StatusServiceUnavailable},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeConflict, http.StatusConflict},
		{CodeInternal, http.StatusInternalServerError},
		{Code("mystery"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToHTTPStatus(tt.code), "code %s", tt.code)
	}
}
