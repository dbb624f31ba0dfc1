package errors

import (
	"errors"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	sentinelErrors := []struct {
		name string
		err  error
		msg  string
	}{
		{"ErrInvalidPort", ErrInvalidPort, "invalid port number"},
		{"ErrBindFailed", ErrBindFailed, "could not bind port"},
		{"ErrPortInUse", ErrPortInUse, "port already in use"},
		{"ErrListenerStopped", ErrListenerStopped, "listener is stopped"},
		{"ErrRelayStopped", ErrRelayStopped, "relay is stopped"},
		{"ErrViewerStopped", ErrViewerStopped, "viewer client is stopped"},
		{"ErrConnectFailed", ErrConnectFailed, "could not connect to relay"},
		{"ErrLogWriteFailed", ErrLogWriteFailed, "log write failed"},
		{"ErrLogDirUnavailable", ErrLogDirUnavailable, "log directory unavailable"},
		{"ErrQueueFull", ErrQueueFull, "record queue full"},
		{"ErrConfigNotFound", ErrConfigNotFound, "config not found"},
		{"ErrConfigInvalid", ErrConfigInvalid, "invalid configuration"},
		{"ErrFilterInvalid", ErrFilterInvalid, "invalid filter expression"},
		{"ErrDaemonRunning", ErrDaemonRunning, "daemon already running"},
		{"ErrTimeout", ErrTimeout, "operation timeout"},
	}

	for _, tc := range sentinelErrors {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err == nil {
				t.Errorf("%s is nil", tc.name)
				return
			}
			if tc.err.Error() != tc.msg {
				t.Errorf("%s: got %q, want %q", tc.name, tc.err.Error(), tc.msg)
			}
		})
	}
}

func TestNewBindError(t *testing.T) {
	err := NewBindError(7004, errors.New("address already in use"))
	if !errors.Is(err, ErrBindFailed) {
		t.Errorf("NewBindError should wrap ErrBindFailed, got %v", err)
	}
	want := "could not bind port 7004: address already in use"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestNewConnectError(t *testing.T) {
	err := NewConnectError("localhost", 7005, errors.New("connection refused"))
	if !errors.Is(err, ErrConnectFailed) {
		t.Errorf("NewConnectError should wrap ErrConnectFailed, got %v", err)
	}
}

func TestNewFilterError(t *testing.T) {
	err := NewFilterError("Fields()[", errors.New("unexpected EOF"))
	if !errors.Is(err, ErrFilterInvalid) {
		t.Errorf("NewFilterError should wrap ErrFilterInvalid, got %v", err)
	}
}
