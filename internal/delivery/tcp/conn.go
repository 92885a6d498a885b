package tcp

import (
	"context"
	"errors"
	"log"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"tradeterm/internal/domain"
)

// readBufferSize is the fixed receive buffer. The reference client sends
// bare command lines without newline framing, so reads are size-bounded, not
// line-delimited.
const readBufferSize = 1024

// clientConn drives one connection through its lifecycle:
// unauthenticated -> authenticated -> terminated. The connection goroutine
// owns the socket for its entire lifetime.
type clientConn struct {
	id          uuid.UUID
	conn        net.Conn
	auth        Authenticator
	interp      *Interpreter
	registry    SessionRegistry
	readTimeout time.Duration
}

// handle runs the state machine until quit, read failure, or disconnect.
// Socket close and session removal happen exactly once on every exit path.
func (c *clientConn) handle(ctx context.Context) {
	defer c.conn.Close()
	log.Printf("[conn %s] accepted connection from %s", c.shortID(), c.conn.RemoteAddr())

	user, err := c.authenticate(ctx)
	if err != nil {
		log.Printf("[conn %s] closed before login: %v", c.shortID(), err)
		return
	}
	defer c.registry.Unregister(user.Username)
	log.Printf("[conn %s] %s logged in", c.shortID(), user.Username)

	for {
		line, err := c.readLine()
		if err != nil {
			log.Printf("[conn %s] closing connection: %v", c.shortID(), err)
			return
		}
		if c.interp.Execute(ctx, user, line, c.conn) {
			log.Printf("[conn %s] %s quit", c.shortID(), user.Username)
			return
		}
	}
}

// authenticate blocks until a LOGIN line succeeds or the connection drops.
// Every line before success is treated as a login attempt.
func (c *clientConn) authenticate(ctx context.Context) (*domain.User, error) {
	for {
		line, err := c.readLine()
		if err != nil {
			return nil, err
		}

		fields := strings.Fields(line)
		if len(fields) != 3 || fields[0] != "LOGIN" {
			send(c.conn, frameLoginHint)
			continue
		}

		user, err := c.auth.Login(ctx, fields[1], fields[2])
		if errors.Is(err, domain.ErrInvalidCredentials) {
			send(c.conn, frameLoginBad)
			continue
		}
		if err != nil {
			log.Printf("[conn %s] login failed: %v", c.shortID(), err)
			send(c.conn, frameInternalError)
			continue
		}

		c.registry.Register(user.Username, c.peerHost())
		send(c.conn, frameOK)
		return user, nil
	}
}

// readLine blocks on one fixed-buffer read and trims surrounding whitespace.
func (c *clientConn) readLine() (string, error) {
	if c.readTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return "", err
		}
	}
	buf := make([]byte, readBufferSize)
	n, err := c.conn.Read(buf)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(buf[:n])), nil
}

// peerHost returns the peer's address without the ephemeral port, matching
// what the WHO listing shows.
func (c *clientConn) peerHost() string {
	addr := c.conn.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func (c *clientConn) shortID() string {
	return c.id.String()[:8]
}
