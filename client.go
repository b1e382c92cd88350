/*
file: redis-emulator/client.go

The in-process entry point spec.md §6 "Entry points" describes: "an
in-process API for tests, exposing a server object, a method to
construct client handles bound to it." Grounded on the REDESIGN FLAG in
SPEC_FULL.md §9 that replaces the teacher's database.DB/DBS singleton
with an explicitly constructed *Server, reached here through
Server.NewClient() / the package-level NewClient() convenience.
*/
package redisemu

import "github.com/akashmaji946/redis-emulator/resp"

// Client is an in-process handle bound to a Server: spec.md §6's first
// entry-point surface. It wraps a *Conn with no net.Conn backing it, so
// Do() calls straight into Server.Dispatch without going through the
// frame codec.
type Client struct {
	server *Server
	conn   *Conn
}

// NewClient constructs a Client with its own private Server, per
// SPEC_FULL.md §9: "a Client created via redisemu.NewClient() (package
// func, no server argument) gets its own private server."
func NewClient(opts ...Option) *Client {
	return NewServer(opts...).NewClient()
}

// NewClient constructs a Client bound to this Server. Multiple Clients
// built from the same Server observe each other's writes (spec.md §3
// "Ownership" / §9's only sharing mechanism).
func (s *Server) NewClient() *Client {
	c := newConn(s, nil, s.newClientID())
	s.registerConn(c)
	return &Client{server: s, conn: c}
}

// Server returns the Server this Client is bound to.
func (c *Client) Server() *Server { return c.server }

// ID returns the client's connection id (CLIENT ID / CLIENT LIST).
func (c *Client) ID() int64 { return c.conn.ID() }

// Close unregisters the client's connection from the server and drops
// its pub/sub subscriptions. It does not clear the transaction queue or
// watched keys, and does not cancel a blocking wait running on another
// goroutine.
func (c *Client) Close() { c.conn.close() }

// Do dispatches one command, given as already-separated arguments (the
// command name first), and returns its raw resp.Value reply. Cmd below
// does the same for string arguments.
func (c *Client) Do(args ...[]byte) resp.Value {
	return c.server.Dispatch(c.conn, args)
}

// Cmd is a convenience over Do for string-typed arguments, the common
// case in tests ("SET", "foo", "bar").
func (c *Client) Cmd(args ...string) resp.Value {
	raw := make([][]byte, len(args))
	for i, a := range args {
		raw[i] = []byte(a)
	}
	return c.server.Dispatch(c.conn, raw)
}

// Select switches the client's active database by setting the index
// directly, without going through Dispatch. Unlike SELECT, it does not
// check the index against the configured database count.
func (c *Client) Select(db int) {
	c.conn.dbIndex = db
}
