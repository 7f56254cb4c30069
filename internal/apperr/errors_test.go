package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := New(CodeInsufficientLocations, "need %d locations", 2)
	assert.Equal(t, "INSUFFICIENT_LOCATIONS: need 2 locations", err.Error())

	cause := errors.New("connection refused")
	wrapped := Wrap(CodeProviderFailure, cause, "distance matrix request failed")
	assert.Equal(t, "PROVIDER_FAILURE: distance matrix request failed: connection refused", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestIsFollowsWrapChain(t *testing.T) {
	err := fmt.Errorf("solve: %w", New(CodeInvalidDistanceData, "row 2 has 3 elements"))

	assert.True(t, Is(err, CodeInvalidDistanceData))
	assert.False(t, Is(err, CodeProviderFailure))
	assert.False(t, Is(errors.New("plain"), CodeInvalidDistanceData))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, CodeProviderFailure, GetCode(New(CodeProviderFailure, "boom")))
	assert.Equal(t, CodeInternal, GetCode(errors.New("plain")))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "At least two locations are required",
		UserMessage(New(CodeInsufficientLocations, "At least two locations are required")))
	assert.Equal(t, "An error occurred. Please try again.", UserMessage(errors.New("db exploded")))
	assert.Equal(t, "An error occurred. Please try again.",
		UserMessage(Wrap(CodeInternal, errors.New("secret"), "internal")))
}
