package resilience

import (
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string { return "deadline exceeded" }
func (timeoutErr) Timeout() bool { return true }

var _ net.Error = timeoutErr{}

func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", eris.New("boom"), false},
		{"explicit_transient", NewTransientError(eris.New("rate limited"), 429), true},
		{"wrapped_transient", fmt.Errorf("call: %w", NewTransientError(eris.New("down"), 503)), true},
		{"net_timeout", timeoutErr{}, true},
		{"conn_reset", syscall.ECONNRESET, true},
		{"conn_refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"message_fragment", eris.New("Get \"https://x\": TLS handshake timeout"), true},
		{"no_such_host", eris.New("lookup api.example.com: no such host"), true},
		{"not_found_message", eris.New("404 not found"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestTransientErrorUnwrap(t *testing.T) {
	inner := eris.New("upstream 503")
	te := NewTransientError(inner, 503)

	assert.Equal(t, inner.Error(), te.Error())
	assert.Equal(t, inner, te.Unwrap())
	assert.Equal(t, 503, te.StatusCode)
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "code %d", code)
	}
	for _, code := range []int{200, 301, 400, 401, 404, 422, 501} {
		assert.False(t, IsTransientHTTPStatus(code), "code %d", code)
	}
}
