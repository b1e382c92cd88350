/*
file: redis-emulator/conn.go

Generalizes internal/common/client.go's Client (conn/Authenticated/
InTx/Tx/WatchedKeys/TxFailed/DatabaseID) with protocol-version and
subscription-set fields the teacher never modeled.
*/
package redisemu

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/akashmaji946/redis-emulator/resp"
)

// txState is the connection's transaction lifecycle, per spec.md §4.7.
type txState int

const (
	txNone txState = iota
	txQueuing
	txAborted
)

// queuedCmd is one command captured between MULTI and EXEC.
type queuedCmd struct {
	name string
	args [][]byte
}

// watchedKey records the version a WATCHed key had at watch time.
type watchedKey struct {
	db      int
	key     string
	version uint64
}

// Conn is one client connection's state: spec.md §3's "Connection"
// entity. Field names mirror the teacher's Client struct where the
// concept carries over directly.
type Conn struct {
	id     int64
	server *Server
	netw   net.Conn // nil for connections constructed purely in-process via Do()

	mu       sync.Mutex // serializes writes to w (command replies vs. async pushes)
	w        *resp.Writer
	proto    int // negotiated RESP version, 2 or 3

	name          string
	dbIndex       int
	authenticated bool

	tx       txState
	queue    []queuedCmd
	watches  []watchedKey
	// inExec is true only while cmdExec is running its queued batch, so
	// blockUntil can tell a top-level blocking command from one reached
	// through EXEC (spec.md §4.7: queued commands "run in order under
	// the global lock without interleaving" - a blocking command must
	// never suspend there).
	inExec bool

	subChannels  map[string]bool
	subPatterns  map[string]bool
	subShard     map[string]bool

	blockedSince time.Time
	closed       bool

	createdAt time.Time
	lastCmd   string
}

func newConn(s *Server, netw net.Conn, id int64) *Conn {
	c := &Conn{
		id:            id,
		server:        s,
		netw:          netw,
		proto:         s.Config.DefaultProtocol,
		authenticated: s.Config.RequirePass == "",
		subChannels:   make(map[string]bool),
		subPatterns:   make(map[string]bool),
		subShard:      make(map[string]bool),
		createdAt:     time.Now(),
	}
	if netw != nil {
		c.w = resp.NewWriter(netw)
		c.w.Proto = c.proto
	}
	return c
}

// ID returns the connection's server-unique client id (CLIENT ID).
func (c *Conn) ID() int64 { return c.id }

// db returns the Database this connection currently has selected.
func (c *Conn) db() *Database { return c.server.dbs[c.dbIndex] }

func (c *Conn) inSubscribeMode() bool {
	return len(c.subChannels) > 0 || len(c.subPatterns) > 0 || len(c.subShard) > 0
}

// writeReply writes and flushes a single reply value, synchronized
// against concurrent async push deliveries (pub/sub messages can
// arrive on this connection from a different goroutine).
func (c *Conn) writeReply(v resp.Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.w == nil {
		return nil
	}
	c.w.Proto = c.proto
	if err := c.w.WriteValue(v); err != nil {
		return err
	}
	return c.w.Flush()
}

// deliverPush sends an out-of-band push (pub/sub message) to this
// connection, independent of whatever command reply is in flight.
func (c *Conn) deliverPush(v resp.Value) {
	_ = c.writeReply(v)
}

func (c *Conn) clearTx() {
	c.tx = txNone
	c.queue = nil
}

func (c *Conn) clearWatches() {
	c.watches = nil
}

func (c *Conn) watchedDirty() bool {
	for _, wk := range c.watches {
		db := c.server.dbs[wk.db]
		db.mu.RLock()
		cur := db.versions[wk.key]
		db.mu.RUnlock()
		if cur != wk.version {
			return true
		}
	}
	return false
}

// reset clears all per-connection state back to a fresh-connection
// baseline, per RESET's contract and spec.md §4.6 "Cancellation"
// (RESET cancels blocking waits and clears transaction/watch state).
func (c *Conn) reset() {
	c.server.removeClientSubs(c)
	c.tx = txNone
	c.queue = nil
	c.watches = nil
	c.dbIndex = 0
	c.authenticated = c.server.Config.RequirePass == ""
	c.name = ""
	c.proto = c.server.Config.DefaultProtocol
}

// serveLoop reads frames from a byte-stream connection and dispatches
// them until the connection is closed or a protocol error occurs, per
// spec.md §4.1 ("Errors during decoding are fatal for the connection").
func (c *Conn) serveLoop() {
	defer c.close()
	r := bufio.NewReader(c.netw)
	for {
		args, err := resp.ReadCommand(r)
		if err != nil {
			return
		}
		if len(args) == 0 {
			continue
		}
		reply := c.server.Dispatch(c, args)
		if err := c.writeReply(reply); err != nil {
			return
		}
		if c.lastCmd == "QUIT" {
			return
		}
	}
}

func (c *Conn) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.server.onConnClose(c)
	if c.netw != nil {
		_ = c.netw.Close()
	}
}
