package apierr_test

import (
	"errors"
	"testing"

	"github.com/netkit-project/netkit/internal/apierr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInternalAssignsCorrelationID(t *testing.T) {
	err := apierr.New(apierr.Internal, "boom")
	assert.NotEmpty(t, err.CorrelationID)
}

func TestNewNonInternalHasNoCorrelationID(t *testing.T) {
	err := apierr.New(apierr.NotFound, "no such device %s", "h1")
	assert.Empty(t, err.CorrelationID)
	assert.Equal(t, "NotFound: no such device h1", err.Error())
}

func TestAsWrapsPlainError(t *testing.T) {
	wrapped := apierr.As(errors.New("kaboom"))
	require.NotNil(t, wrapped)
	assert.Equal(t, apierr.Internal, wrapped.Kind)
	assert.NotEmpty(t, wrapped.CorrelationID)
}

func TestAsPassesThroughExistingError(t *testing.T) {
	original := apierr.New(apierr.Privilege, "missing CAP_NET_ADMIN")
	assert.Same(t, original, apierr.As(original))
}

func TestAsNil(t *testing.T) {
	assert.Nil(t, apierr.As(nil))
}
