package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "dial timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestStatusError(t *testing.T) {
	err := &StatusError{StatusCode: 404, URL: "https://example.org/Sector.json"}
	assert.Equal(t, "unexpected status 404 from https://example.org/Sector.json", err.Error())
	assert.False(t, err.Transient())
	assert.True(t, (&StatusError{StatusCode: 503}).Transient())
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("bad json"), false},
		{"status 502", &StatusError{StatusCode: 502}, true},
		{"status 400", &StatusError{StatusCode: 400}, false},
		{"wrapped status", eris.Wrap(&StatusError{StatusCode: 429}, "fetch"), true},
		{"net timeout", fmt.Errorf("get: %w", timeoutErr{}), true},
		{"conn reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"conn refused", syscall.ECONNREFUSED, true},
		{"message", errors.New("write tcp: broken pipe"), true},
		{"ftp 421", errors.New("421 Service not available, closing control connection"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), code)
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404, 501} {
		assert.False(t, IsTransientHTTPStatus(code), code)
	}
}
