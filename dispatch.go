/*
file: redis-emulator/dispatch.go

Generalizes internal/handlers/handlers.go's Handlers map + Handle()
(arity check, auth check, queue-vs-execute branching, MONITOR fan-out)
into a single command table shared by every cmd_*.go family file, each
of which contributes its entries via a register*Commands function
called from buildCommandTable.
*/
package redisemu

import (
	"math"
	"strconv"
	"strings"

	"github.com/akashmaji946/redis-emulator/resp"
)

// HandlerFunc executes one already-arity-checked command and produces
// its reply. args[0] is the command name as received (case preserved);
// args[1:] are the remaining arguments.
type HandlerFunc func(s *Server, c *Conn, args [][]byte) resp.Value

// commandSpec describes one registered command or two-word subcommand
// family (e.g. "XGROUP", whose handler then looks at args[1]).
type commandSpec struct {
	name string
	// arity mirrors the reference server convention: a positive number
	// is the exact argument count (including the command name);
	// negative means "at least -arity".
	arity int
	// isWrite marks commands that mutate the keyspace; clusterRedirect
	// consults it. No read-only connection check exists.
	isWrite bool
	// noScript commands are rejected from EVAL bodies (narrow Evaluator
	// boundary; see scripting.go).
	noScript bool
	handler  HandlerFunc
}

// commandTable is the full, process-wide (but not global: it's built
// fresh per Server) name -> spec lookup. Two-word commands are keyed
// by "CLIENT GETNAME" etc., normalized upper-case with a single space.
type commandTable map[string]*commandSpec

func buildCommandTable() commandTable {
	tbl := make(commandTable)
	registerStringCommands(tbl)
	registerGenericCommands(tbl)
	registerListCommands(tbl)
	registerHashCommands(tbl)
	registerSetCommands(tbl)
	registerZSetCommands(tbl)
	registerStreamCommands(tbl)
	registerBitmapCommands(tbl)
	registerHLLCommands(tbl)
	registerPubSubCommands(tbl)
	registerTxnCommands(tbl)
	registerScriptingCommands(tbl)
	registerAdminCommands(tbl)
	registerClusterCommands(tbl)
	registerScanCommands(tbl)
	return tbl
}

func (tbl commandTable) add(spec *commandSpec) {
	tbl[strings.ToUpper(spec.name)] = spec
}

// twoWordCommands lists the families the dispatcher tries to resolve
// as "NAME SUBCOMMAND" before falling back to a single-word lookup.
var twoWordCommands = map[string]bool{
	"CLIENT": true, "CONFIG": true, "CLUSTER": true, "XGROUP": true,
	"XINFO": true, "SCRIPT": true, "COMMAND": true, "OBJECT": true,
	"MEMORY": true, "ACL": true, "LATENCY": true, "PUBSUB": true,
	"DEBUG": true,
}

// subscribeAllowed lists the commands a connection holding any
// subscription may still issue, per spec.md §4.5.
var subscribeAllowed = map[string]bool{
	"SUBSCRIBE": true, "UNSUBSCRIBE": true, "PSUBSCRIBE": true, "PUNSUBSCRIBE": true,
	"SSUBSCRIBE": true, "SUNSUBSCRIBE": true, "PING": true, "RESET": true, "QUIT": true,
}

// txControlCommands are always executed immediately even while a
// connection is queuing, per spec.md §4.2 item 5.
var txControlCommands = map[string]bool{
	"EXEC": true, "DISCARD": true, "MULTI": true, "WATCH": true, "UNWATCH": true, "RESET": true,
}

func lookup(tbl commandTable, args [][]byte) (*commandSpec, string) {
	name := strings.ToUpper(string(args[0]))
	if twoWordCommands[name] && len(args) >= 2 {
		two := name + " " + strings.ToUpper(string(args[1]))
		if spec, ok := tbl[two]; ok {
			return spec, two
		}
	}
	spec, ok := tbl[name]
	if !ok {
		return nil, name
	}
	return spec, name
}

func arityOK(spec *commandSpec, argc int) bool {
	if spec.arity >= 0 {
		return argc == spec.arity
	}
	return argc >= -spec.arity
}

// Dispatch routes one already-parsed command through the full pipeline:
// connectivity check, lookup, arity, subscribe-context restriction,
// cluster redirect, auth, queuing, and finally execution under the
// server's single logical executor (spec.md §5).
func (s *Server) Dispatch(c *Conn, args [][]byte) resp.Value {
	if len(args) == 0 {
		return resp.Err("ERR empty command")
	}
	c.lastCmd = strings.ToUpper(string(args[0]))

	if !s.isConnected() {
		return errConnection()
	}

	spec, name := lookup(s.commands, args)
	if spec == nil {
		if c.tx == txQueuing {
			c.tx = txAborted
		}
		return errUnknownCommand(name, args)
	}
	if !arityOK(spec, len(args)) {
		if c.tx == txQueuing {
			c.tx = txAborted
		}
		return errWrongArgs(strings.ToLower(name))
	}

	if c.inSubscribeMode() && !subscribeAllowed[name] {
		return errSubscribeContext(strings.ToLower(name))
	}

	if r, redirect := s.clusterRedirect(spec, name, args); redirect {
		return r
	}

	if !c.authenticated && name != "AUTH" && name != "HELLO" && name != "RESET" && name != "QUIT" {
		return errNoAuth()
	}

	if (c.tx == txQueuing || c.tx == txAborted) && !txControlCommands[name] {
		// Syntax/arity failures above already flipped tx to txAborted
		// without queuing; this branch only ever queues valid commands.
		c.queue = append(c.queue, queuedCmd{name: name, args: args})
		return resp.Str("QUEUED")
	}

	s.execMu.Lock()
	defer s.execMu.Unlock()
	reply := spec.handler(s, c, args)
	s.Metrics.CommandsProcessed.Inc()
	s.cmdClock.Add(1)
	return reply
}

// dispatchQueued runs one previously queued command during EXEC. It
// bypasses the queuing branch (the connection's tx is already txNone
// by the time EXEC iterates its queue) but still goes through lookup
// so a command removed between queuing and EXEC (impossible in this
// design, but kept for symmetry) degrades gracefully.
func (s *Server) dispatchQueued(c *Conn, qc queuedCmd) resp.Value {
	spec, name := lookup(s.commands, qc.args)
	if spec == nil {
		return errUnknownCommand(name, qc.args)
	}
	return spec.handler(s, c, qc.args)
}

// parseInt parses a base-10 signed 64-bit integer argument; callers pick
// the error reply when it reports false.
func parseInt(b []byte) (int64, bool) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	return n, err == nil
}

func parseFloat(b []byte) (float64, bool) {
	s := string(b)
	switch strings.ToLower(s) {
	case "inf", "+inf", "infinity", "+infinity":
		return posInfinity, true
	case "-inf", "-infinity":
		return negInfinity, true
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

var (
	posInfinity = math.Inf(1)
	negInfinity = math.Inf(-1)
)
