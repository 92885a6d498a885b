package tcp

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Server accepts trading terminal connections and spawns one goroutine per
// connection. SHUTDOWN flips the running flag and closes the listener; the
// accept loop exits when its in-flight accept returns. Outstanding client
// connections are not force-closed.
type Server struct {
	addr        string
	auth        Authenticator
	interp      *Interpreter
	registry    SessionRegistry
	readTimeout time.Duration

	running  atomic.Bool
	listener net.Listener
}

// NewServer creates a new Server and wires the interpreter's SHUTDOWN
// handler to it.
func NewServer(addr string, auth Authenticator, interp *Interpreter, registry SessionRegistry, readTimeout time.Duration) *Server {
	s := &Server{
		addr:        addr,
		auth:        auth,
		interp:      interp,
		registry:    registry,
		readTimeout: readTimeout,
	}
	interp.shutdown = s.Shutdown
	return s
}

// ListenAndServe blocks running the accept loop until Shutdown is called.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.running.Store(true)

	log.Printf("Server listening on %s", s.addr)

	for s.running.Load() {
		conn, err := listener.Accept()
		if err != nil {
			if !s.running.Load() {
				break
			}
			log.Printf("[tcp] accept failed: %v", err)
			continue
		}

		c := &clientConn{
			id:          uuid.New(),
			conn:        conn,
			auth:        s.auth,
			interp:      s.interp,
			registry:    s.registry,
			readTimeout: s.readTimeout,
		}
		go c.handle(ctx)
	}

	log.Println("Accept loop stopped")
	return nil
}

// Shutdown stops the accept loop. Safe to call more than once and from any
// connection goroutine.
func (s *Server) Shutdown() {
	if s.running.CompareAndSwap(true, false) {
		if s.listener != nil {
			s.listener.Close()
		}
	}
}
