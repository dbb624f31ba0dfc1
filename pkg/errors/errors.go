package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPort       = errors.New("invalid port number")
	ErrBindFailed        = errors.New("could not bind port")
	ErrPortInUse         = errors.New("port already in use")
	ErrListenerStopped   = errors.New("listener is stopped")
	ErrRelayStopped      = errors.New("relay is stopped")
	ErrViewerStopped     = errors.New("viewer client is stopped")
	ErrConnectFailed     = errors.New("could not connect to relay")
	ErrLogWriteFailed    = errors.New("log write failed")
	ErrLogDirUnavailable = errors.New("log directory unavailable")
	ErrQueueFull         = errors.New("record queue full")
	ErrConfigNotFound    = errors.New("config not found")
	ErrConfigInvalid     = errors.New("invalid configuration")
	ErrFilterInvalid     = errors.New("invalid filter expression")
	ErrDaemonRunning     = errors.New("daemon already running")
	ErrTimeout           = errors.New("operation timeout")
)

// NewBindError wraps a bind failure with the offending port and OS cause.
// NewBindError 将绑定失败与出错端口和底层系统错误包装在一起。
func NewBindError(port int, err error) error {
	return fmt.Errorf("%w %d: %v", ErrBindFailed, port, err)
}

func NewPortError(port int) error {
	return fmt.Errorf("%w: %d", ErrInvalidPort, port)
}

func NewConnectError(host string, port int, err error) error {
	return fmt.Errorf("%w %s:%d: %v", ErrConnectFailed, host, port, err)
}

func NewLogWriteError(path string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrLogWriteFailed, path, err)
}

func NewConfigError(field string, value interface{}) error {
	return fmt.Errorf("%w: field=%s value=%v", ErrConfigInvalid, field, value)
}

func NewFilterError(expression string, err error) error {
	return fmt.Errorf("%w: %q: %v", ErrFilterInvalid, expression, err)
}
