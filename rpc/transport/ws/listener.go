package ws

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// listener adapts an http server accepting websocket upgrades to net.Listener.
// Every upgraded websocket is handed out by Accept as a net.Conn carrying
// binary messages.
type listener struct {
	ln     net.Listener
	server *http.Server
	conns  chan net.Conn
	done   chan struct{}
	once   sync.Once
}

func newListener(ln net.Listener, path string) *listener {
	l := &listener{
		ln:    ln,
		conns: make(chan net.Conn),
		done:  make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, l.upgrade)
	l.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("websocket server stopped: %v", err)
		}
	}()
	return l
}

// upgrade accepts the websocket and blocks until Accept picked it up
func (l *listener) upgrade(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		Logger.Warningf("websocket upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}
	c.SetReadLimit(maxMessageSize)

	// the request context ends with this handler, the connection must outlive it
	conn := websocket.NetConn(context.Background(), c, websocket.MessageBinary)

	select {
	case l.conns <- conn:
	case <-l.done:
		_ = c.Close(websocket.StatusGoingAway, "listener closed")
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see net.Listener)
// --------------------------------------------------------------------------

func (l *listener) Accept() (net.Conn, error) {
	select {
	case conn := <-l.conns:
		return conn, nil
	case <-l.done:
		return nil, net.ErrClosed
	}
}

func (l *listener) Close() error {
	var err error
	l.once.Do(func() {
		close(l.done)
		err = l.server.Close()
	})
	return err
}

func (l *listener) Addr() net.Addr {
	return l.ln.Addr()
}
