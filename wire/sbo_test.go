package wire

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPayloadInline(t *testing.T) {
	p := NewPayload([]byte("short"))
	assert.Equal(t, 5, p.Len())
	assert.True(t, bytes.Equal([]byte("short"), p.Bytes()))
	assert.False(t, p.Release(), "inline payload has no refcount to release")
}

func TestNewPayloadHeap(t *testing.T) {
	data := []byte(strings.Repeat("x", sboThreshold+1))
	p := NewPayload(data)
	assert.Equal(t, len(data), p.Len())
	assert.True(t, bytes.Equal(data, p.Bytes()))
}

func TestNewPayloadCopiesData(t *testing.T) {
	data := []byte("hello")
	p := NewPayload(data)
	data[0] = 'X'
	assert.Equal(t, "hello", string(p.Bytes()))
}

func TestNewPayloadSharedDoesNotCopy(t *testing.T) {
	data := []byte(strings.Repeat("y", sboThreshold+5))
	p := NewPayloadShared(data)
	data[0] = 'Z'
	assert.Equal(t, byte('Z'), p.Bytes()[0])
}

func TestRetainReleaseBalance(t *testing.T) {
	data := []byte(strings.Repeat("z", sboThreshold+1))
	p := NewPayloadShared(data)
	p2 := p.Retain()

	assert.False(t, p.Release())
	require.True(t, p2.Release())
}
