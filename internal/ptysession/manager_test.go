package ptysession

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOpenRejectsEmptyIdentifiers(t *testing.T) {
	m := NewManager("/bin/sh", 30*time.Second, 200*time.Millisecond, 65536)

	_, err := m.Open("", "c1", 24, 80, func(string, string, string, error) {})
	assert.Error(t, err)

	_, err = m.Open("h1", "", 24, 80, func(string, string, string, error) {})
	assert.Error(t, err)
}

func TestGetMissingSessionReportsFalse(t *testing.T) {
	m := NewManager("/bin/sh", 30*time.Second, 200*time.Millisecond, 65536)
	_, ok := m.Get("nope", "c1")
	assert.False(t, ok)
}

func TestCloseUnknownSessionIsNoop(t *testing.T) {
	m := NewManager("/bin/sh", 30*time.Second, 200*time.Millisecond, 65536)
	assert.NotPanics(t, func() { m.Close("nope", "c1") })
}

func TestDetachUnknownSessionIsNoop(t *testing.T) {
	m := NewManager("/bin/sh", 30*time.Second, 200*time.Millisecond, 65536)
	assert.NotPanics(t, func() { m.Detach("nope", "c1") })
}
