/*
file: redis-emulator/server.go

Generalizes internal/common/appstate.go's AppState (stats counters,
server-wide aggregation) into an explicit, constructible Server with no
persistence baggage (RDB/AOF/user-encryption are out of spec scope; see
DESIGN.md). Ownership: the Server exclusively owns every Database and
the pub/sub registries, per spec.md §3 "Ownership."
*/
package redisemu

import (
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Server is a single in-process Redis-compatible instance: the array
// of databases, the pub/sub registry, the script cache, a monotonic
// command clock, the connected flag, and configuration (spec.md §3).
//
// A Server is process-local and explicitly constructed; there is no
// package-level singleton (spec.md §9). Multiple *Conn values created
// from the same *Server observe each other's writes.
type Server struct {
	Config *Config
	Log    *logrus.Logger
	Metrics *Metrics

	clock Clock

	dbs []*Database

	pubsub         *pubsubRegistry
	keyspacePubsub *pubsubRegistry
	shardPubsub    *pubsubRegistry

	blocking *blockingCoordinator

	commands commandTable

	scriptsMu sync.RWMutex
	scripts   map[string]string // sha1 -> body, per spec.md §2 item 4

	execMu sync.Mutex // the "single logical executor" of spec.md §5

	connectedMu sync.RWMutex
	connected   bool

	nextClientID int64

	clientsMu sync.Mutex
	clients   map[int64]*Conn

	cmdClock atomic.Int64 // monotonically increasing command counter

	cluster *clusterSim

	listener net.Listener

	evalMu    sync.RWMutex
	evaluator Evaluator
}

// NewServer constructs a Server ready for use. Pass Options to
// override defaults; an unconfigured Server behaves like a fresh
// `redis-server` with 16 databases and a real wall clock.
func NewServer(opts ...Option) *Server {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}

	s := &Server{
		Config:         cfg,
		Log:            newDefaultLogger(),
		Metrics:        newMetrics(),
		clock:          realClock{},
		pubsub:         newPubsubRegistry(),
		keyspacePubsub: newPubsubRegistry(),
		shardPubsub:    newPubsubRegistry(),
		blocking:       newBlockingCoordinator(),
		scripts:        make(map[string]string),
		connected:      true,
		clients:        make(map[int64]*Conn),
	}
	s.dbs = make([]*Database, cfg.Databases)
	for i := range s.dbs {
		dbIndex := i
		db := newDatabase(dbIndex)
		db.onExpire = func(key string) { s.emitExpired(dbIndex, key) }
		s.dbs[i] = db
	}
	if cfg.ClusterEnabled {
		s.cluster = newClusterSim(cfg.ClusterNodes)
	}
	s.commands = buildCommandTable()

	go s.activeExpireLoop()

	s.componentLog("server").Info("server initialized")
	return s
}

// SetClock installs a custom Clock (e.g. a *ManualClock), per spec.md
// §6's "knobs to set the simulated clock."
func (s *Server) SetClock(c Clock) { s.clock = c }

// SetEvaluator installs the narrow scripting hook EVAL/EVALSHA call
// through (see scripting.go). A Server with no Evaluator installed, or
// with Config.LuaModulesEnabled false, fails those commands with an ERR
// error rather than executing anything (EVALSHA of an uncached SHA
// still replies NOSCRIPT), matching spec.md's explicit scripting
// non-goal.
func (s *Server) SetEvaluator(e Evaluator) {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()
	s.evaluator = e
}

func (s *Server) getEvaluator() Evaluator {
	if !s.Config.LuaModulesEnabled {
		return nil
	}
	s.evalMu.RLock()
	defer s.evalMu.RUnlock()
	return s.evaluator
}

// Clock returns the server's current clock.
func (s *Server) Clock() Clock { return s.clock }

// nowMs is a shorthand used throughout the command handlers.
func (s *Server) nowMs() int64 { return nowMillis(s.clock) }

// SetConnected toggles the simulated connectivity flag described in
// spec.md §3/§5/§8 scenario 2: while false, every command a client
// issues fails with a connection error.
func (s *Server) SetConnected(connected bool) {
	s.connectedMu.Lock()
	defer s.connectedMu.Unlock()
	s.connected = connected
}

func (s *Server) isConnected() bool {
	s.connectedMu.RLock()
	defer s.connectedMu.RUnlock()
	return s.connected
}

// FlushAll clears every database, matching the FLUSHALL command
// (exposed directly for test setup/teardown convenience).
func (s *Server) FlushAll() {
	for _, db := range s.dbs {
		db.flush()
	}
}

// Seed pre-populates db 0 with a string key, a convenience knob spec.md
// §6 "Entry points" calls for ("knobs to ... pre-populate keys").
func (s *Server) Seed(key string, value []byte) {
	s.dbs[0].set(key, newString(value), false)
}

// activeExpireLoop runs the periodic sweep spec.md §4.4 describes.
func (s *Server) activeExpireLoop() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		now := s.nowMs()
		for _, db := range s.dbs {
			db.activeExpireSweep(now)
		}
	}
}

// emitExpired is Database.onExpire's callback: it runs while the
// Database's own mu is still held by the expiring deletion, so it must
// not re-acquire it (unlike keyspaceNotify, which is safe for command
// handlers that aren't already holding db.mu). The key's watch version
// was already bumped by deleteKeyLocked.
func (s *Server) emitExpired(dbIndex int, key string) {
	s.Metrics.ExpiredKeys.Inc()
	if !s.notifyEnabled("expired") {
		return
	}
	s.keyspacePubsub.publish(keyspaceChannel(dbIndex, key), []byte("expired"))
	s.keyspacePubsub.publish(keyeventChannel(dbIndex, "expired"), []byte(key))
}

func (s *Server) registerConn(c *Conn) {
	s.clientsMu.Lock()
	s.clients[c.id] = c
	s.clientsMu.Unlock()
	s.Metrics.ConnectedClients.Inc()
}

func (s *Server) onConnClose(c *Conn) {
	s.clientsMu.Lock()
	delete(s.clients, c.id)
	s.clientsMu.Unlock()
	s.removeClientSubs(c)
	s.Metrics.ConnectedClients.Dec()
}

func (s *Server) removeClientSubs(c *Conn) {
	s.pubsub.removeAll(c)
	s.keyspacePubsub.removeAll(c)
	s.shardPubsub.removeAll(c)
	c.subChannels = make(map[string]bool)
	c.subPatterns = make(map[string]bool)
	c.subShard = make(map[string]bool)
}

func (s *Server) newClientID() int64 {
	return atomic.AddInt64(&s.nextClientID, 1)
}

// ListenAndServe opens addr and accepts connections until the listener
// is closed (via Close), serving each one on its own goroutine per
// spec.md §6's byte-stream entry point. This is the thin TCP front end
// cmd/redis-emulator-server wraps; it is not required for the in-process
// Client API, which never touches net at all.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.componentLog("server").Infof("listening on %s", addr)
	for {
		netw, err := ln.Accept()
		if err != nil {
			return err
		}
		c := newConn(s, netw, s.newClientID())
		s.registerConn(c)
		go c.serveLoop()
	}
}

// Close stops accepting new connections on the listener opened by
// ListenAndServe, if any.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// notifyEnabled reports whether the configured notify-keyspace-events
// mask (spec.md §6) enables delivery for the given event class. The
// mask syntax follows the reference server: K=keyspace channel,
// E=keyevent channel, A=all classes, plus per-class letters
// (g$lshzxet...). At least one of K/E must be present for any
// notification to be emitted at all.
func (s *Server) notifyEnabled(event string) bool {
	mask := s.Config.NotifyKeyspaceEvents
	if mask == "" {
		return false
	}
	hasK := strings.ContainsRune(mask, 'K')
	hasE := strings.ContainsRune(mask, 'E')
	if !hasK && !hasE {
		return false
	}
	if strings.ContainsRune(mask, 'A') {
		return true
	}
	class := eventClass(event)
	return class != 0 && strings.ContainsRune(mask, class)
}

func eventClass(event string) rune {
	switch event {
	case "expired":
		return 'x'
	case "evicted":
		return 'e'
	case "set", "setrange", "incrby", "incrbyfloat", "append", "getset", "getdel":
		return '$'
	case "lpush", "rpush", "lpop", "rpop", "linsert", "lset", "lrem", "ltrim":
		return 'l'
	case "sadd", "srem", "spop", "sinterstore", "sunionstore", "sdiffstore":
		return 's'
	case "hset", "hdel", "hincrby", "hincrbyfloat", "hexpire":
		return 'h'
	case "zadd", "zincr", "zrem", "zremrangebyscore", "zremrangebyrank", "zremrangebylex", "zdiffstore", "zinterstore", "zunionstore":
		return 'z'
	case "xadd", "xtrim", "xdel", "xgroup-create", "xclaim", "xsetid":
		return 't'
	case "del", "rename_from", "rename_to", "move_from", "move_to", "copy_to", "restore":
		return 'g'
	case "expire", "persist":
		return 'g'
	default:
		return 'g'
	}
}
