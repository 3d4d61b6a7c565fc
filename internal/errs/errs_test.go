package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf_UnwrapsChain(t *testing.T) {
	base := Wrap(KindAcquisition, "fetch http://example/v.mp4", errors.New("connection refused"))
	wrapped := fmt.Errorf("item 4: %w", base)

	assert.Equal(t, KindAcquisition, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindAcquisition))
	assert.False(t, IsKind(wrapped, KindDecode))
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
}

func TestRetryable(t *testing.T) {
	assert.True(t, KindAcquisition.Retryable())
	assert.True(t, KindIndex.Retryable())
	assert.True(t, KindTimeout.Retryable())
	assert.False(t, KindDecode.Retryable())
	assert.False(t, KindExtraction.Retryable())
	assert.False(t, KindCheckpoint.Retryable())
}

func TestError_Message(t *testing.T) {
	err := Wrap(KindIndex, "insert fingerprint", errors.New("broken pipe"))
	require.Contains(t, err.Error(), "IndexError")
	require.Contains(t, err.Error(), "broken pipe")

	bare := New(KindExtraction, "empty frame")
	require.Equal(t, "[ExtractionError] empty frame", bare.Error())
}
