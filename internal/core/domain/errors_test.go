package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrRateLimited", ErrRateLimited},
		{"ErrParseDegraded", ErrParseDegraded},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrDimensionMismatch", ErrDimensionMismatch},
		{"ErrIndexWriteFailed", ErrIndexWriteFailed},
		{"ErrIndexUnreachable", ErrIndexUnreachable},
		{"ErrGenerationUnavailable", ErrGenerationUnavailable},
		{"ErrVisionUnavailable", ErrVisionUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestDimensionMismatchError(t *testing.T) {
	err := CheckDimension("c1", []float32{1, 2}, 3)
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	assert.Contains(t, err.Error(), "chunk c1")
	assert.Contains(t, err.Error(), "want 3, got 2")

	var dm *DimensionMismatchError
	require.True(t, errors.As(fmt.Errorf("embedding batch: %w", err), &dm))
	assert.Equal(t, 3, dm.Want)
	assert.Equal(t, 2, dm.Got)
}

func TestDimensionMismatchError_QueryVector(t *testing.T) {
	err := &DimensionMismatchError{Want: 4, Got: 8}
	assert.Equal(t, "dimension mismatch: want 4, got 8", err.Error())
}

func TestCheckDimension_OK(t *testing.T) {
	assert.NoError(t, CheckDimension("c1", []float32{1, 2, 3}, 3))
}

func TestIndexWriteFailedError(t *testing.T) {
	cause := errors.New("connection reset")
	err := error(&IndexWriteFailedError{Source: "guide", Written: 100, Total: 250, Err: cause})

	assert.True(t, errors.Is(err, ErrIndexWriteFailed))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "100/250")

	var wf *IndexWriteFailedError
	require.True(t, errors.As(err, &wf))
	assert.Equal(t, 100, wf.Written)
}
