package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(nil))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.Equal(t, CodeTimeout, CodeOf(New(CodeTimeout, "too slow")))
}

func TestCodeOfWrappedChain(t *testing.T) {
	cause := New(CodeElementNotFound, "no match for %q", "#x")
	err := fmt.Errorf("executing click: %w", cause)

	assert.Equal(t, CodeElementNotFound, CodeOf(err))
	assert.True(t, Is(err, CodeElementNotFound))
	assert.False(t, Is(err, CodeTimeout))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(CodeDriverError, cause, "browser call failed")

	assert.Equal(t, CodeDriverError, CodeOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "browser call failed")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(CodeDriverError, nil, "nothing happened"))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code   Code
		status int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeResourceExhausted, http.StatusTooManyRequests},
		{CodeValidation, http.StatusBadRequest},
		{CodeTimeout, http.StatusGatewayTimeout},
		{CodeCanceled, 499},
		{CodeDriverUnavailable, http.StatusBadGateway},
		{CodeDriverError, http.StatusBadGateway},
		{CodeElementNotFound, http.StatusUnprocessableEntity},
		{CodeNavigationFailed, http.StatusUnprocessableEntity},
		{CodeScriptError, http.StatusUnprocessableEntity},
		{CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, HTTPStatus(New(tt.code, "x")), string(tt.code))
	}

	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("unclassified")))
}
