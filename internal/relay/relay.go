// Package relay pushes received SMDR lines to connected viewer clients over
// TCP. A newly connected viewer first receives a bounded tail of the current
// day's log, then every subsequently broadcast line — no polling, no request
// protocol, just newline-terminated text pushed server-to-client.
// relay 包通过 TCP 将收到的 SMDR 行推送给已连接的查看器客户端。
// 新连接的查看器先收到当天日志的有限回放，随后收到每条广播行 ——
// 无轮询、无请求协议，只有服务端到客户端推送的换行分隔文本。
package relay

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/smdrkit/smdrd/internal/metrics"
	"github.com/smdrkit/smdrd/internal/utils/logger"
	"github.com/smdrkit/smdrd/pkg/errors"
)

// TailSource provides the path of the current log epoch for late-joiner
// catch-up. Implemented by the log writer.
// TailSource 提供当前日志纪元的路径，用于迟到加入者补读。由日志写入器实现。
type TailSource interface {
	CurrentPath() string
}

const defaultSendTimeout = 5 * time.Second

// Relay owns the ViewerSet. All mutations — connect, disconnect, broadcast —
// happen under one mutex, which is also what makes the tail-then-live
// hand-off gapless: while a tail is being replayed to a joining viewer, no
// broadcast can slip past it.
// Relay 拥有 ViewerSet。所有变更（连接、断开、广播）都在同一把互斥锁下进行，
// 这也是回放与实时交接无缝的原因：向新查看器回放时，广播无法越过它。
type Relay struct {
	source      TailSource
	tailLines   int
	sendTimeout time.Duration

	mu      sync.Mutex
	viewers map[net.Conn]struct{}
	ln      net.Listener
	running bool
	wg      sync.WaitGroup
}

// NewRelay creates a stopped relay. tailLines bounds the catch-up replay;
// sendTimeout bounds each per-viewer write — a viewer that cannot drain a
// line within it is dropped rather than allowed to stall the relay.
// NewRelay 创建一个停止状态的中继。tailLines 限定补读行数；
// sendTimeout 限定每个查看器的单次写入 —— 无法及时消费的查看器被移除，
// 而不是拖住整个中继。
func NewRelay(source TailSource, tailLines int, sendTimeout time.Duration) *Relay {
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	return &Relay{
		source:      source,
		tailLines:   tailLines,
		sendTimeout: sendTimeout,
		viewers:     make(map[net.Conn]struct{}),
	}
}

// Start opens the viewer-facing listening socket and begins accepting.
// Start 打开面向查看器的监听套接字并开始接受连接。
func (r *Relay) Start(host string, port int) error {
	if port < 0 || port > 65535 {
		return errors.NewPortError(port)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		r.stopLocked()
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return errors.NewBindError(port, err)
	}

	r.ln = ln
	r.running = true
	r.wg.Add(1)
	go r.acceptLoop(ln)

	logger.Get(nil).Infof("🚀 Viewer relay listening on %s", ln.Addr())
	return nil
}

// Addr returns the bound listener address, or nil when stopped.
// Addr 返回绑定的监听地址，停止时为 nil。
func (r *Relay) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ln == nil {
		return nil
	}
	return r.ln.Addr()
}

// ViewerCount returns the current size of the ViewerSet.
// ViewerCount 返回 ViewerSet 的当前大小。
func (r *Relay) ViewerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.viewers)
}

func (r *Relay) acceptLoop(ln net.Listener) {
	defer r.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		// Registration (with tail replay) runs off the accept loop so a
		// slow joiner cannot block further accepts.
		// 注册（含回放）在 accept 循环之外执行，慢速加入者不会阻塞后续接受。
		go r.register(conn)
	}
}

// register replays the tail to a new viewer and admits it to the ViewerSet.
// Both happen under the broadcast mutex: the viewer sees the tail, then every
// live line, with no duplicate and no gap at the boundary.
// register 向新查看器回放末尾行并将其加入 ViewerSet。
// 两步都在广播互斥锁下完成：查看器先看到回放，再看到每条实时行，
// 边界处不重复、无缺口。
func (r *Relay) register(conn net.Conn) {
	log := logger.Get(nil)

	if tcp, ok := conn.(*net.TCPConn); ok {
		// Keep live latency near zero.
		// 保持实时延迟接近于零。
		_ = tcp.SetNoDelay(true)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		_ = conn.Close()
		return
	}

	lines, err := ReadLastLines(r.source.CurrentPath(), r.tailLines)
	if err != nil {
		log.Warnf("⚠️  Could not read tail for viewer %s: %v", conn.RemoteAddr(), err)
	}
	for _, line := range lines {
		if !r.sendLocked(conn, line) {
			_ = conn.Close()
			return
		}
	}

	r.viewers[conn] = struct{}{}
	metrics.ConnectedViewers.Set(float64(len(r.viewers)))
	log.Infof("👀 Viewer connected from %s (replayed %d lines, %d viewers)", conn.RemoteAddr(), len(lines), len(r.viewers))
}

// Broadcast sends the line, newline-terminated, to every connected viewer.
// Sends are independent: a failed viewer is removed and closed without
// affecting delivery to the rest. Safe to call concurrently with viewer
// connect/disconnect.
// Broadcast 将该行（以换行结尾）发送给每个已连接查看器。发送相互独立：
// 失败的查看器被移除并关闭，不影响其他查看器。可与连接/断开并发调用。
func (r *Relay) Broadcast(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}

	for conn := range r.viewers {
		if r.sendLocked(conn, line) {
			metrics.LinesBroadcast.Inc()
			continue
		}
		delete(r.viewers, conn)
		_ = conn.Close()
		metrics.ViewersDropped.Inc()
		metrics.ConnectedViewers.Set(float64(len(r.viewers)))
		logger.Get(nil).Infof("👋 Viewer %s dropped after failed send (%d viewers)", conn.RemoteAddr(), len(r.viewers))
	}
}

// sendLocked writes one line with the per-viewer deadline. Caller holds r.mu.
// sendLocked 在查看器写入期限内写出一行。调用方持有 r.mu。
func (r *Relay) sendLocked(conn net.Conn, line string) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(r.sendTimeout))
	_, err := conn.Write([]byte(line + "\n"))
	return err == nil
}

// Stop closes the listening socket and every viewer, clears the ViewerSet,
// and joins the accept loop. Idempotent.
// Stop 关闭监听套接字与所有查看器，清空 ViewerSet 并等待 accept 循环退出。幂等。
func (r *Relay) Stop() {
	r.mu.Lock()
	r.stopLocked()
	r.mu.Unlock()

	r.wg.Wait()
	logger.Get(nil).Infof("🛑 Viewer relay stopped")
}

func (r *Relay) stopLocked() {
	if !r.running {
		return
	}
	r.running = false

	if r.ln != nil {
		_ = r.ln.Close()
		r.ln = nil
	}
	for conn := range r.viewers {
		_ = conn.Close()
		delete(r.viewers, conn)
	}
	metrics.ConnectedViewers.Set(0)
}
