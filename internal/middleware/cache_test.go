package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureWriterWithinLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, limit: 32}

	_, err := cw.Write([]byte("hello "))
	require.NoError(t, err)
	_, err = cw.Write([]byte("world"))
	require.NoError(t, err)

	assert.Equal(t, int64(11), cw.size)
	assert.Equal(t, "hello world", cw.buf.String())
	assert.Equal(t, "hello world", rec.Body.String())
}

func TestCaptureWriterCountsBytesPastLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, limit: 10}

	// First write lands exactly on the cap, the second spills past it. The
	// client still receives everything, the buffer stays capped, and size
	// reflects the full response so it cannot be mistaken for a complete
	// capture and stored.
	_, err := cw.Write([]byte("0123456789"))
	require.NoError(t, err)
	_, err = cw.Write([]byte("ABCDE"))
	require.NoError(t, err)

	assert.Equal(t, int64(15), cw.size)
	assert.Equal(t, "0123456789", cw.buf.String())
	assert.Equal(t, "0123456789ABCDE", rec.Body.String())
	assert.False(t, cw.size <= cw.limit)
}

func TestCaptureWriterUnlimited(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec}

	_, err := cw.Write([]byte("anything goes"))
	require.NoError(t, err)

	assert.Equal(t, int64(13), cw.size)
	assert.Equal(t, "anything goes", cw.buf.String())
}
