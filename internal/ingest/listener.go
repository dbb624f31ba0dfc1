// Package ingest implements the switch-facing TCP listener. Switches push
// newline-terminated SMDR text with no framing or handshake; every decoded,
// non-empty line is handed to a registered callback as a Record.
// ingest 包实现面向交换机的 TCP 监听器。交换机推送以换行结尾的 SMDR 文本，
// 无帧格式与握手；每条解码后的非空行作为 Record 交给注册的回调。
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/smdrkit/smdrd/internal/decode"
	"github.com/smdrkit/smdrd/internal/metrics"
	"github.com/smdrkit/smdrd/internal/record"
	"github.com/smdrkit/smdrd/internal/utils/logger"
	"github.com/smdrkit/smdrd/pkg/errors"
)

// State is the listener lifecycle state.
// State 是监听器的生命周期状态。
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "stopped"
	}
}

const (
	readBufferSize = 4096
	// stopJoinTimeout bounds the wait for the accept loop and connection
	// handlers during Stop.
	// stopJoinTimeout 限定 Stop 时等待 accept 循环与连接处理协程的时长。
	stopJoinTimeout = 2 * time.Second
)

// LineHandler receives one Record per decoded line. It must not block long:
// it runs on the originating connection's read loop.
// LineHandler 每条解码行收到一个 Record。不得长时间阻塞：
// 它运行在来源连接的读取循环上。
type LineHandler func(rec record.Record)

// Listener accepts switch connections and feeds decoded lines to a handler.
// Start is safe to call while running: the new socket is bound before the old
// listener is torn down, so a failed rebind never leaves the service dark.
// Listener 接受交换机连接并将解码行交给处理函数。运行中调用 Start 是安全的：
// 新套接字先绑定成功后才拆除旧监听器，失败的重新绑定不会让服务中断。
type Listener struct {
	handler LineHandler

	mu    sync.Mutex // serializes Start/Stop and guards the fields below
	state State
	ln    net.Listener
	port  int
	wg    sync.WaitGroup

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
}

// NewListener creates a stopped listener with the given per-line handler.
// NewListener 创建一个处于停止状态、带有按行处理函数的监听器。
func NewListener(handler LineHandler) *Listener {
	return &Listener{
		handler: handler,
		conns:   make(map[net.Conn]struct{}),
	}
}

// reuseAddr enables SO_REUSEADDR before bind so a restart does not trip over
// the server's own prior socket in TIME_WAIT.
// reuseAddr 在 bind 前开启 SO_REUSEADDR，避免重启时撞上自身残留的 TIME_WAIT 套接字。
func reuseAddr(network, address string, c syscall.RawConn) error {
	var opErr error
	if err := c.Control(func(fd uintptr) {
		opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	}); err != nil {
		return err
	}
	return opErr
}

// Start binds 0.0.0.0:port and begins accepting. If binding fails, a running
// listener is left fully intact and the error names the port and cause. On
// success any previous listener is stopped only after the new one is live.
// Port 0 binds an ephemeral port; Port() reports the actual one.
// Start 绑定 0.0.0.0:port 并开始接受连接。绑定失败时原有监听器完好保留，
// 错误中包含端口与原因。成功后才停止旧监听器。端口 0 表示临时端口。
func (l *Listener) Start(port int) error {
	if port < 0 || port > 65535 {
		return errors.NewPortError(port)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	log := logger.Get(nil)

	// Bind the new socket before touching the old one.
	// 先绑定新套接字，再处理旧的。
	lc := net.ListenConfig{Control: reuseAddr}
	newLn, err := lc.Listen(context.Background(), "tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		log.Warnf("⚠️  Bind to port %d failed, keeping current listener: %v", port, err)
		return errors.NewBindError(port, err)
	}

	// The new socket is live; now it is safe to retire the old listener.
	// 新套接字已就绪；此时才可安全停用旧监听器。
	l.stopLocked()

	actualPort := newLn.Addr().(*net.TCPAddr).Port
	l.state = StateStarting
	l.ln = newLn
	l.port = actualPort
	l.state = StateRunning

	l.wg.Add(1)
	go l.acceptLoop(newLn)

	log.Infof("🚀 SMDR ingest listening on 0.0.0.0:%d", actualPort)
	return nil
}

// Stop closes the listening socket and every active connection, then waits
// (bounded) for the accept loop and handlers to terminate. Idempotent and
// safe to call from any goroutine.
// Stop 关闭监听套接字与所有活动连接，然后有限等待 accept 循环与处理协程退出。
// 幂等，可从任意协程调用。
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
}

func (l *Listener) stopLocked() {
	if l.state != StateRunning {
		return
	}
	l.state = StateStopping

	if l.ln != nil {
		_ = l.ln.Close()
		l.ln = nil
	}

	l.connMu.Lock()
	for conn := range l.conns {
		_ = conn.Close()
	}
	l.connMu.Unlock()

	// Bounded join: a stuck handler is reported, not fatal.
	// 有限等待：卡住的处理协程只告警，不致命。
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopJoinTimeout):
		logger.Get(nil).Warnf("⚠️  Ingest accept loop did not terminate within %v", stopJoinTimeout)
	}

	l.state = StateStopped
	logger.Get(nil).Infof("🛑 SMDR ingest listener stopped")
}

// IsPortAvailable reports whether the TCP port can be bound on all
// interfaces. Best-effort: the probe socket is always released.
// IsPortAvailable 报告该 TCP 端口是否可在所有接口上绑定。
// 尽力而为：探测套接字总会被释放。
func IsPortAvailable(port int) bool {
	lc := net.ListenConfig{Control: reuseAddr}
	probe, err := lc.Listen(context.Background(), "tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return false
	}
	_ = probe.Close()
	return true
}

// Port returns the port of the last successful Start.
// Port 返回最近一次成功 Start 的端口。
func (l *Listener) Port() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port
}

// State returns the current lifecycle state.
// State 返回当前生命周期状态。
func (l *Listener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Listener) acceptLoop(ln net.Listener) {
	defer l.wg.Done()
	log := logger.Get(nil)

	for {
		conn, err := ln.Accept()
		if err != nil {
			// Closed listener means Stop or a rebind took over.
			// 监听器关闭意味着 Stop 或重新绑定已接管。
			return
		}
		log.Debugf("Accepted switch connection from %s", conn.RemoteAddr())

		l.connMu.Lock()
		l.conns[conn] = struct{}{}
		l.connMu.Unlock()

		l.wg.Add(1)
		go l.handleConn(conn)
	}
}

// handleConn owns one switch connection: it reads chunks, decodes them, and
// emits one Record per complete line. It exits on peer close or any I/O
// error; nothing it encounters may escape as a panic.
// handleConn 独占一个交换机连接：读取数据块、解码并按完整行发出 Record。
// 对端关闭或任何 I/O 错误时退出；任何异常都不得以 panic 形式逃逸。
func (l *Listener) handleConn(conn net.Conn) {
	log := logger.Get(nil)
	metrics.ActiveConnections.Inc()

	defer func() {
		_ = conn.Close()
		l.connMu.Lock()
		delete(l.conns, conn)
		l.connMu.Unlock()
		metrics.ActiveConnections.Dec()
		l.wg.Done()
	}()

	host, portStr, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		host = conn.RemoteAddr().String()
	}
	srcPort, _ := strconv.Atoi(portStr)

	buf := make([]byte, readBufferSize)
	var pending []byte

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			metrics.BytesReceived.Add(float64(n))
			pending = append(pending, buf[:n]...)

			// Hand off every complete line; keep the partial remainder
			// for the next read.
			// 交付每条完整行；不完整的剩余部分留待下次读取。
			for {
				idx := bytes.IndexByte(pending, '\n')
				if idx < 0 {
					break
				}
				line := bytes.TrimRight(pending[:idx], "\r")
				pending = pending[idx+1:]
				if len(line) == 0 {
					continue
				}
				rec := record.New(decode.Decode(line), host, srcPort, time.Now())
				metrics.LinesReceived.WithLabelValues(host).Inc()
				l.dispatch(rec)
			}
		}
		if err != nil {
			// Zero-length read (EOF) or transport error: close and move on.
			// 零长度读取（EOF）或传输错误：关闭连接并继续。
			log.Debugf("Switch connection %s closed: %v", conn.RemoteAddr(), err)
			return
		}
	}
}

// dispatch invokes the handler, absorbing panics so a misbehaving callback
// cannot abort the connection.
// dispatch 调用处理函数并吸收 panic，异常回调不会中断连接。
func (l *Listener) dispatch(rec record.Record) {
	if l.handler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Get(nil).Errorf("❌ Line handler panicked for %s: %v", rec.Source(), r)
		}
	}()
	l.handler(rec)
}
