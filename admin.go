/*
file: redis-emulator/admin.go

Connection and server-administration commands, grounded on two teacher
files: internal/handlers/handler_connection.go (Ping/Auth/Command/the
safe-vs-sensitive command split) for the connection-lifecycle half, and
internal/common/info.go (RedisInfo's category-map-and-print shape, built
with gopsutil for the memory section) for INFO. CONFIG/CLIENT/DEBUG have
no teacher equivalent (the teacher has no config-introspection surface
or per-client registry) and are built directly from spec.md §4.8 against
Server/Conn's own fields.
*/
package redisemu

import (
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/mem"

	"github.com/akashmaji946/redis-emulator/resp"
)

var serverStartTime = time.Now()

func registerAdminCommands(tbl commandTable) {
	tbl.add(&commandSpec{name: "PING", arity: -1, handler: cmdPing})
	tbl.add(&commandSpec{name: "ECHO", arity: 2, handler: cmdEcho})
	tbl.add(&commandSpec{name: "QUIT", arity: 1, handler: cmdQuit})
	tbl.add(&commandSpec{name: "AUTH", arity: -2, handler: cmdAuth})
	tbl.add(&commandSpec{name: "HELLO", arity: -1, handler: cmdHello})
	tbl.add(&commandSpec{name: "SELECT", arity: 2, handler: cmdSelect})
	tbl.add(&commandSpec{name: "SWAPDB", arity: 3, isWrite: true, handler: cmdSwapdb})
	tbl.add(&commandSpec{name: "FLUSHDB", arity: -1, isWrite: true, handler: cmdFlushdb})
	tbl.add(&commandSpec{name: "FLUSHALL", arity: -1, isWrite: true, handler: cmdFlushall})
	tbl.add(&commandSpec{name: "DBSIZE", arity: 1, handler: cmdDbsize})
	tbl.add(&commandSpec{name: "INFO", arity: -1, handler: cmdInfo})
	tbl.add(&commandSpec{name: "TIME", arity: 1, handler: cmdTime})
	tbl.add(&commandSpec{name: "LASTSAVE", arity: 1, handler: cmdLastsave})
	tbl.add(&commandSpec{name: "WAIT", arity: 3, handler: cmdWait})

	tbl.add(&commandSpec{name: "CONFIG GET", arity: -3, handler: cmdConfigGet})
	tbl.add(&commandSpec{name: "CONFIG SET", arity: -4, isWrite: true, handler: cmdConfigSet})
	tbl.add(&commandSpec{name: "CONFIG RESETSTAT", arity: 2, handler: cmdConfigNoop})
	tbl.add(&commandSpec{name: "CONFIG REWRITE", arity: 2, handler: cmdConfigNoop})

	tbl.add(&commandSpec{name: "CLIENT LIST", arity: -2, handler: cmdClientList})
	tbl.add(&commandSpec{name: "CLIENT INFO", arity: 2, handler: cmdClientInfo})
	tbl.add(&commandSpec{name: "CLIENT GETNAME", arity: 2, handler: cmdClientGetname})
	tbl.add(&commandSpec{name: "CLIENT SETNAME", arity: 3, handler: cmdClientSetname})
	tbl.add(&commandSpec{name: "CLIENT ID", arity: 2, handler: cmdClientID})
	tbl.add(&commandSpec{name: "CLIENT KILL", arity: -3, isWrite: true, handler: cmdClientKill})
	tbl.add(&commandSpec{name: "CLIENT NO-EVICT", arity: 3, handler: cmdConfigNoop})
	tbl.add(&commandSpec{name: "CLIENT NO-TOUCH", arity: 3, handler: cmdConfigNoop})
	tbl.add(&commandSpec{name: "CLIENT UNPAUSE", arity: 2, handler: cmdConfigNoop})
	tbl.add(&commandSpec{name: "CLIENT PAUSE", arity: -3, handler: cmdConfigNoop})
	tbl.add(&commandSpec{name: "CLIENT REPLY", arity: 3, handler: cmdConfigNoop})

	tbl.add(&commandSpec{name: "DEBUG SLEEP", arity: 3, handler: cmdDebugSleep})
	tbl.add(&commandSpec{name: "DEBUG OBJECT", arity: 3, handler: cmdDebugObject})
	tbl.add(&commandSpec{name: "DEBUG JMAP", arity: 2, handler: cmdConfigNoop})
	tbl.add(&commandSpec{name: "DEBUG SET-ACTIVE-EXPIRE", arity: 3, handler: cmdConfigNoop})
	tbl.add(&commandSpec{name: "DEBUG STRINGMATCH-LEN", arity: 4, handler: cmdDebugStringmatchLen})

	tbl.add(&commandSpec{name: "COMMAND", arity: -1, handler: cmdCommand})
	tbl.add(&commandSpec{name: "COMMAND COUNT", arity: 2, handler: cmdCommandCount})
	tbl.add(&commandSpec{name: "COMMAND DOCS", arity: -2, handler: cmdCommandDocsEmpty})
	tbl.add(&commandSpec{name: "COMMAND INFO", arity: -2, handler: cmdCommandDocsEmpty})
}

func cmdPing(s *Server, c *Conn, args [][]byte) resp.Value {
	if len(args) == 2 {
		return resp.Bulk(args[1])
	}
	if c.inSubscribeMode() {
		return resp.Arr(resp.BulkStr("pong"), resp.BulkStr(""))
	}
	return resp.Str("PONG")
}

func cmdEcho(s *Server, c *Conn, args [][]byte) resp.Value {
	return resp.Bulk(args[1])
}

func cmdQuit(s *Server, c *Conn, args [][]byte) resp.Value {
	// The reply is written before serveLoop tears the connection down;
	// there is no separate close signal in the HandlerFunc contract, so
	// serveLoop checks c.lastCmd == "QUIT" after writing the reply.
	// Client.Do leaves an in-process connection open.
	return resp.Str("OK")
}

func cmdAuth(s *Server, c *Conn, args [][]byte) resp.Value {
	var pass string
	switch len(args) {
	case 2:
		pass = string(args[1])
	case 3:
		pass = string(args[2]) // AUTH <username> <password>; usernames are not modeled
	default:
		return errWrongArgs("auth")
	}
	if s.Config.RequirePass == "" {
		return resp.Err("ERR Client sent AUTH, but no password is set. Did you mean AUTH <username> <password>?")
	}
	if pass != s.Config.RequirePass {
		return errAuthFailed()
	}
	c.authenticated = true
	return resp.Str("OK")
}

// cmdHello negotiates the RESP protocol version, per spec.md §4.1's
// "HELLO negotiates RESP2/RESP3" and §6's server-greeting entry point.
func cmdHello(s *Server, c *Conn, args [][]byte) resp.Value {
	proto := c.proto
	i := 1
	if i < len(args) {
		n, ok := parseInt(args[i])
		if !ok || (n != 2 && n != 3) {
			return resp.Err("NOPROTO unsupported protocol version")
		}
		proto = int(n)
		i++
	}
	for i < len(args) {
		switch strings.ToUpper(string(args[i])) {
		case "AUTH":
			if i+2 >= len(args) {
				return errSyntax()
			}
			if r := cmdAuth(s, c, [][]byte{[]byte("AUTH"), args[i+1], args[i+2]}); r.IsError() {
				return r
			}
			i += 3
		case "SETNAME":
			if i+1 >= len(args) {
				return errSyntax()
			}
			c.name = string(args[i+1])
			i += 2
		default:
			return errSyntax()
		}
	}
	if !c.authenticated {
		return errNoAuth()
	}
	c.proto = proto
	if c.w != nil {
		c.w.Proto = proto
	}
	return resp.MapOf(
		resp.MapEntry{Key: resp.BulkStr("server"), Val: resp.BulkStr("redis")},
		resp.MapEntry{Key: resp.BulkStr("version"), Val: resp.BulkStr("7.4.0")},
		resp.MapEntry{Key: resp.BulkStr("proto"), Val: resp.Int64(int64(proto))},
		resp.MapEntry{Key: resp.BulkStr("id"), Val: resp.Int64(c.id)},
		resp.MapEntry{Key: resp.BulkStr("mode"), Val: resp.BulkStr(clusterMode(s))},
		resp.MapEntry{Key: resp.BulkStr("role"), Val: resp.BulkStr("master")},
		resp.MapEntry{Key: resp.BulkStr("modules"), Val: resp.Arr()},
	)
}

func clusterMode(s *Server) string {
	if s.Config.ClusterEnabled {
		return "cluster"
	}
	return "standalone"
}

func cmdSelect(s *Server, c *Conn, args [][]byte) resp.Value {
	n, ok := parseInt(args[1])
	if !ok || n < 0 || int(n) >= len(s.dbs) {
		return resp.Err("ERR DB index is out of range")
	}
	c.dbIndex = int(n)
	return resp.Str("OK")
}

func cmdSwapdb(s *Server, c *Conn, args [][]byte) resp.Value {
	a, ok1 := parseInt(args[1])
	b, ok2 := parseInt(args[2])
	if !ok1 || !ok2 || a < 0 || b < 0 || int(a) >= len(s.dbs) || int(b) >= len(s.dbs) {
		return resp.Err("ERR DB index is out of range")
	}
	s.dbs[a], s.dbs[b] = s.dbs[b], s.dbs[a]
	s.dbs[a].id, s.dbs[b].id = int(a), int(b)
	return resp.Str("OK")
}

func cmdFlushdb(s *Server, c *Conn, args [][]byte) resp.Value {
	c.db().flush()
	return resp.Str("OK")
}

func cmdFlushall(s *Server, c *Conn, args [][]byte) resp.Value {
	s.FlushAll()
	return resp.Str("OK")
}

func cmdDbsize(s *Server, c *Conn, args [][]byte) resp.Value {
	return resp.Int64(int64(c.db().size(s.nowMs())))
}

func cmdTime(s *Server, c *Conn, args [][]byte) resp.Value {
	now := s.clock.Now()
	sec := now.Unix()
	usec := now.Nanosecond() / 1000
	return resp.Arr(resp.BulkStr(strconv.FormatInt(sec, 10)), resp.BulkStr(strconv.Itoa(usec)))
}

func cmdLastsave(s *Server, c *Conn, args [][]byte) resp.Value {
	return resp.Int64(serverStartTime.Unix())
}

// cmdWait simulates WAIT against zero replicas: there are none to wait
// for, so it always returns immediately satisfied, per spec.md §4.6.
func cmdWait(s *Server, c *Conn, args [][]byte) resp.Value {
	return resp.Int64(0)
}

// cmdInfo builds the INFO reply the way internal/common/info.go's
// RedisInfo does: a handful of "# Section" blocks of key:value lines,
// with the memory section's total backed by gopsutil the same way.
func cmdInfo(s *Server, c *Conn, args [][]byte) resp.Value {
	snap := s.Metrics.Snapshot()
	var b strings.Builder

	b.WriteString("# Server\n")
	fmt.Fprintf(&b, "redis_version:7.4.0-emu\n")
	fmt.Fprintf(&b, "os:%s %s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&b, "process_id:%d\n", 1)
	fmt.Fprintf(&b, "uptime_in_seconds:%d\n", int64(time.Since(serverStartTime).Seconds()))
	fmt.Fprintf(&b, "redis_mode:%s\n", clusterMode(s))
	b.WriteString("\n# Clients\n")
	fmt.Fprintf(&b, "connected_clients:%d\n", int64(snap.ConnectedClients))
	fmt.Fprintf(&b, "blocked_clients:%d\n", int64(snap.BlockedClients))

	b.WriteString("\n# Memory\n")
	var totalSys uint64
	if vm, err := mem.VirtualMemory(); err == nil {
		totalSys = vm.Total
	}
	fmt.Fprintf(&b, "used_memory:%d\n", estimateMemBytes(s))
	fmt.Fprintf(&b, "total_system_memory:%d\n", totalSys)
	fmt.Fprintf(&b, "maxmemory:%d\n", s.Config.MaxMemory)
	fmt.Fprintf(&b, "maxmemory_policy:%s\n", evictionPolicyName(s.Config.Eviction))

	b.WriteString("\n# Persistence\n")
	b.WriteString("rdb_bgsave_in_progress:0\n")
	b.WriteString("aof_enabled:0\n")

	b.WriteString("\n# Stats\n")
	fmt.Fprintf(&b, "total_connections_received:%d\n", s.nextClientID)
	fmt.Fprintf(&b, "total_commands_processed:%d\n", int64(snap.CommandsProcessed))
	fmt.Fprintf(&b, "expired_keys:%d\n", int64(snap.ExpiredKeys))
	fmt.Fprintf(&b, "evicted_keys:%d\n", int64(snap.EvictedKeys))
	fmt.Fprintf(&b, "pubsub_channels:%d\n", 0)

	b.WriteString("\n# Replication\n")
	b.WriteString("role:master\n")
	b.WriteString("connected_slaves:0\n")

	b.WriteString("\n# Keyspace\n")
	nowMs := s.nowMs()
	for _, db := range s.dbs {
		if n := db.size(nowMs); n > 0 {
			fmt.Fprintf(&b, "db%d:keys=%d,expires=0,avg_ttl=0\n", db.id, n)
		}
	}

	return resp.VerbatimText("txt", b.String())
}

func evictionPolicyName(p EvictionPolicy) string {
	switch p {
	case AllKeysLRU:
		return "allkeys-lru"
	case AllKeysLFU:
		return "allkeys-lfu"
	case AllKeysRandom:
		return "allkeys-random"
	default:
		return "noeviction"
	}
}

func estimateMemBytes(s *Server) int64 {
	var total int64
	for _, db := range s.dbs {
		total += db.memBytes
	}
	return total
}

// cmdConfigGet matches on the configuration knobs spec.md §6 exposes
// through Config; unknown glob patterns simply return no matches, as
// the reference server does.
func cmdConfigGet(s *Server, c *Conn, args [][]byte) resp.Value {
	all := map[string]string{
		"maxmemory":               strconv.FormatInt(s.Config.MaxMemory, 10),
		"maxmemory-policy":        evictionPolicyName(s.Config.Eviction),
		"notify-keyspace-events":  s.Config.NotifyKeyspaceEvents,
		"databases":               strconv.Itoa(s.Config.Databases),
		"requirepass":             s.Config.RequirePass,
		"cluster-enabled":         boolStr(s.Config.ClusterEnabled),
		"save":                    "",
		"appendonly":              "no",
	}
	var names []string
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []resp.Value
	for _, pat := range args[2:] {
		p := string(pat)
		for _, name := range names {
			if globMatch(p, name) {
				out = append(out, resp.BulkStr(name), resp.BulkStr(all[name]))
			}
		}
	}
	return resp.Arr(out...)
}

func boolStr(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func cmdConfigSet(s *Server, c *Conn, args [][]byte) resp.Value {
	pairs := args[2:]
	if len(pairs)%2 != 0 {
		return errWrongArgs("config|set")
	}
	for i := 0; i < len(pairs); i += 2 {
		name := strings.ToLower(string(pairs[i]))
		val := string(pairs[i+1])
		switch name {
		case "maxmemory":
			n, ok := parseInt([]byte(val))
			if !ok {
				return errNotInteger()
			}
			s.Config.MaxMemory = n
		case "maxmemory-policy":
			switch val {
			case "noeviction":
				s.Config.Eviction = NoEviction
			case "allkeys-lru":
				s.Config.Eviction = AllKeysLRU
			case "allkeys-lfu":
				s.Config.Eviction = AllKeysLFU
			case "allkeys-random":
				s.Config.Eviction = AllKeysRandom
			default:
				return errSyntax()
			}
		case "notify-keyspace-events":
			s.Config.NotifyKeyspaceEvents = val
		case "requirepass":
			s.Config.RequirePass = val
		default:
			// Unknown-but-accepted knobs (save, appendonly, ...) are
			// silently ignored rather than rejected, matching the
			// reference server's tolerance for config it doesn't model.
		}
	}
	return resp.Str("OK")
}

func cmdConfigNoop(s *Server, c *Conn, args [][]byte) resp.Value {
	return resp.Str("OK")
}

func cmdClientList(s *Server, c *Conn, args [][]byte) resp.Value {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	var ids []int64
	for id := range s.clients {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var b strings.Builder
	for _, id := range ids {
		b.WriteString(clientLine(s.clients[id]))
		b.WriteString("\n")
	}
	return resp.Bulk([]byte(b.String()))
}

func clientLine(cc *Conn) string {
	addr := "?:0"
	if cc.netw != nil {
		addr = cc.netw.RemoteAddr().String()
	}
	return fmt.Sprintf("id=%d addr=%s name=%s db=%d resp=%d cmd=%s age=%d",
		cc.id, addr, cc.name, cc.dbIndex, cc.proto, strings.ToLower(cc.lastCmd),
		int64(time.Since(cc.createdAt).Seconds()))
}

func cmdClientInfo(s *Server, c *Conn, args [][]byte) resp.Value {
	return resp.Bulk([]byte(clientLine(c)))
}

func cmdClientGetname(s *Server, c *Conn, args [][]byte) resp.Value {
	if c.name == "" {
		return resp.NullBulk()
	}
	return resp.BulkStr(c.name)
}

func cmdClientSetname(s *Server, c *Conn, args [][]byte) resp.Value {
	name := string(args[2])
	if strings.ContainsAny(name, " \n") {
		return resp.Err("ERR Client names cannot contain spaces, newlines or special characters.")
	}
	c.name = name
	return resp.Str("OK")
}

func cmdClientID(s *Server, c *Conn, args [][]byte) resp.Value {
	return resp.Int64(c.id)
}

// cmdClientKill closes a named connection's socket by ID, per spec.md
// §4.8's CLIENT KILL. An in-process Client (netw == nil) is marked
// closed but has nothing to shut down at the transport layer.
func cmdClientKill(s *Server, c *Conn, args [][]byte) resp.Value {
	var targetID int64
	found := false
	rest := args[2:]
	for i := 0; i < len(rest); i++ {
		if strings.ToUpper(string(rest[i])) == "ID" && i+1 < len(rest) {
			n, ok := parseInt(rest[i+1])
			if !ok {
				return errNotInteger()
			}
			targetID, found = n, true
			i++
		}
	}
	if !found {
		return errSyntax()
	}
	s.clientsMu.Lock()
	target, ok := s.clients[targetID]
	s.clientsMu.Unlock()
	if !ok {
		return resp.Int64(0)
	}
	target.close()
	return resp.Int64(1)
}

func cmdDebugSleep(s *Server, c *Conn, args [][]byte) resp.Value {
	secs, ok := parseFloat(args[2])
	if !ok {
		return errNotFloat()
	}
	s.execMu.Unlock()
	time.Sleep(time.Duration(secs * float64(time.Second)))
	s.execMu.Lock()
	return resp.Str("OK")
}

func cmdDebugObject(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, ok := db.get(string(args[2]), s.nowMs())
	if !ok {
		return errNoSuchKey()
	}
	return resp.Str(fmt.Sprintf("Value at:0x0 refcount:1 encoding:%s serializedlength:0 lru:0 lru_seconds_idle:0", encodingHint(obj)))
}

func cmdDebugStringmatchLen(s *Server, c *Conn, args [][]byte) resp.Value {
	matched := globMatch(string(args[2]), string(args[3]))
	return resp.Int64(boolToInt(matched))
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// cmdCommand returns a minimal COMMAND reply: one array entry per
// registered single-word command, matching the reference server's
// shape ([name, arity, flags, first-key, last-key, step]) closely
// enough for client introspection without a real flags table.
func cmdCommand(s *Server, c *Conn, args [][]byte) resp.Value {
	if len(args) > 1 {
		return cmdCommandDocsEmpty(s, c, args)
	}
	var out []resp.Value
	for name, spec := range s.commands {
		if strings.Contains(name, " ") {
			continue
		}
		out = append(out, resp.Arr(
			resp.BulkStr(strings.ToLower(name)),
			resp.Int64(int64(spec.arity)),
			resp.Arr(),
			resp.Int64(1),
			resp.Int64(1),
			resp.Int64(1),
		))
	}
	return resp.Arr(out...)
}

func cmdCommandCount(s *Server, c *Conn, args [][]byte) resp.Value {
	n := 0
	for name := range s.commands {
		if !strings.Contains(name, " ") {
			n++
		}
	}
	return resp.Int64(int64(n))
}

func cmdCommandDocsEmpty(s *Server, c *Conn, args [][]byte) resp.Value {
	return resp.Arr()
}
