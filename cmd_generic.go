/*
file: redis-emulator/cmd_generic.go

Generalizes internal/handlers/handler_key.go's Del/Exists/Keys/Type/
Expire family/Copy/Rename family/Touch/RandomKey/Sort onto Database's expiry
index and supplements OBJECT ENCODING (dropped by the teacher, added
per spec.md §6's "synthesized encoding hint" for DEBUG OBJECT).
*/
package redisemu

import (
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"github.com/akashmaji946/redis-emulator/resp"
)

func registerGenericCommands(tbl commandTable) {
	tbl.add(&commandSpec{name: "DEL", arity: -2, isWrite: true, handler: cmdDel})
	tbl.add(&commandSpec{name: "UNLINK", arity: -2, isWrite: true, handler: cmdDel})
	tbl.add(&commandSpec{name: "EXISTS", arity: -2, handler: cmdExists})
	tbl.add(&commandSpec{name: "KEYS", arity: 2, handler: cmdKeys})
	tbl.add(&commandSpec{name: "TYPE", arity: 2, handler: cmdType})
	tbl.add(&commandSpec{name: "EXPIRE", arity: -3, isWrite: true, handler: cmdExpire})
	tbl.add(&commandSpec{name: "PEXPIRE", arity: -3, isWrite: true, handler: cmdPExpire})
	tbl.add(&commandSpec{name: "EXPIREAT", arity: -3, isWrite: true, handler: cmdExpireAt})
	tbl.add(&commandSpec{name: "PEXPIREAT", arity: -3, isWrite: true, handler: cmdPExpireAt})
	tbl.add(&commandSpec{name: "TTL", arity: 2, handler: cmdTTL})
	tbl.add(&commandSpec{name: "PTTL", arity: 2, handler: cmdPTTL})
	tbl.add(&commandSpec{name: "EXPIRETIME", arity: 2, handler: cmdExpireTime})
	tbl.add(&commandSpec{name: "PEXPIRETIME", arity: 2, handler: cmdPExpireTime})
	tbl.add(&commandSpec{name: "PERSIST", arity: 2, isWrite: true, handler: cmdPersist})
	tbl.add(&commandSpec{name: "RENAME", arity: 3, isWrite: true, handler: cmdRename})
	tbl.add(&commandSpec{name: "RENAMENX", arity: 3, isWrite: true, handler: cmdRenameNX})
	tbl.add(&commandSpec{name: "COPY", arity: -3, isWrite: true, handler: cmdCopy})
	tbl.add(&commandSpec{name: "TOUCH", arity: -2, handler: cmdTouch})
	tbl.add(&commandSpec{name: "RANDOMKEY", arity: 1, handler: cmdRandomKey})
	tbl.add(&commandSpec{name: "SORT", arity: -2, isWrite: true, handler: cmdSort})
	tbl.add(&commandSpec{name: "DUMP", arity: 2, handler: cmdDump})
	tbl.add(&commandSpec{name: "RESTORE", arity: -4, isWrite: true, handler: cmdRestore})
	tbl.add(&commandSpec{name: "OBJECT ENCODING", arity: 3, handler: cmdObjectEncoding})
	tbl.add(&commandSpec{name: "OBJECT FREQ", arity: 3, handler: cmdObjectFreq})
	tbl.add(&commandSpec{name: "OBJECT IDLETIME", arity: 3, handler: cmdObjectIdleTime})
	tbl.add(&commandSpec{name: "OBJECT REFCOUNT", arity: 3, handler: cmdObjectRefcount})
}

func cmdDel(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	n := 0
	for _, a := range args[1:] {
		key := string(a)
		if db.exists(key, s.nowMs()) {
			db.delete(key)
			s.keyspaceNotify(db.id, "del", key)
			n++
		}
	}
	return resp.Int64(int64(n))
}

func cmdExists(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	nowMs := s.nowMs()
	n := 0
	for _, a := range args[1:] {
		if db.exists(string(a), nowMs) {
			n++
		}
	}
	return resp.Int64(int64(n))
}

func cmdKeys(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	pattern := string(args[1])
	var out []string
	for _, k := range db.keys(s.nowMs()) {
		if globMatch(pattern, k) {
			out = append(out, k)
		}
	}
	return resp.ArrFrom(out...)
}

func cmdType(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, ok := db.get(string(args[1]), s.nowMs())
	if !ok {
		return resp.Str("none")
	}
	return resp.Str(obj.Kind.String())
}

func expireOptionOK(cur int64, newDeadline, nowMs int64, opt string) bool {
	switch opt {
	case "NX":
		return cur == 0
	case "XX":
		return cur != 0
	case "GT":
		return cur != 0 && newDeadline > cur
	case "LT":
		return cur == 0 || newDeadline < cur
	}
	return true
}

func doExpire(s *Server, c *Conn, args [][]byte, deltaToMs func(n int64) int64) resp.Value {
	key := string(args[1])
	n, ok := parseInt(args[2])
	if !ok {
		return errNotInteger()
	}
	db := c.db()
	nowMs := s.nowMs()
	if _, exists := db.get(key, nowMs); !exists {
		return resp.Int64(0)
	}
	deadline := deltaToMs(n)

	opt := ""
	if len(args) >= 4 {
		opt = strings.ToUpper(string(args[3]))
		if opt != "NX" && opt != "XX" && opt != "GT" && opt != "LT" {
			return errSyntax()
		}
	}
	curTTL := db.ttlMs(key, nowMs)
	var curDeadline int64
	if curTTL > 0 {
		curDeadline = nowMs + curTTL
	}
	if opt != "" && !expireOptionOK(curDeadline, deadline, nowMs, opt) {
		return resp.Int64(0)
	}

	if deadline <= nowMs {
		db.delete(key)
		s.keyspaceNotify(db.id, "expired", key)
		return resp.Int64(1)
	}
	db.setExpireAt(key, deadline)
	s.keyspaceNotify(db.id, "expire", key)
	return resp.Int64(1)
}

func cmdExpire(s *Server, c *Conn, args [][]byte) resp.Value {
	return doExpire(s, c, args, func(n int64) int64 { return s.nowMs() + n*1000 })
}

func cmdPExpire(s *Server, c *Conn, args [][]byte) resp.Value {
	return doExpire(s, c, args, func(n int64) int64 { return s.nowMs() + n })
}

func cmdExpireAt(s *Server, c *Conn, args [][]byte) resp.Value {
	return doExpire(s, c, args, func(n int64) int64 { return n * 1000 })
}

func cmdPExpireAt(s *Server, c *Conn, args [][]byte) resp.Value {
	return doExpire(s, c, args, func(n int64) int64 { return n })
}

func cmdTTL(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	ms := db.ttlMs(string(args[1]), s.nowMs())
	if ms < 0 {
		return resp.Int64(ms)
	}
	secs := ms / 1000
	if ms%1000 != 0 {
		secs++
	}
	return resp.Int64(secs)
}

func cmdPTTL(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	return resp.Int64(db.ttlMs(string(args[1]), s.nowMs()))
}

func cmdExpireTime(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	nowMs := s.nowMs()
	ms := db.ttlMs(string(args[1]), nowMs)
	if ms < 0 {
		return resp.Int64(ms)
	}
	return resp.Int64((nowMs + ms) / 1000)
}

func cmdPExpireTime(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	nowMs := s.nowMs()
	ms := db.ttlMs(string(args[1]), nowMs)
	if ms < 0 {
		return resp.Int64(ms)
	}
	return resp.Int64(nowMs + ms)
}

func cmdPersist(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	if db.persist(string(args[1])) {
		s.keyspaceNotify(db.id, "persist", string(args[1]))
		return resp.Int64(1)
	}
	return resp.Int64(0)
}

func cmdRename(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	src, dst := string(args[1]), string(args[2])
	nowMs := s.nowMs()
	obj, ok := db.get(src, nowMs)
	if !ok {
		return errNoSuchKey()
	}
	ttl := db.ttlMs(src, nowMs)
	db.delete(src)
	db.set(dst, obj, false)
	if ttl > 0 {
		db.setExpireAt(dst, nowMs+ttl)
	}
	s.keyspaceNotify(db.id, "rename_from", src)
	s.keyspaceNotify(db.id, "rename_to", dst)
	return resp.Str("OK")
}

func cmdRenameNX(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	src, dst := string(args[1]), string(args[2])
	nowMs := s.nowMs()
	obj, ok := db.get(src, nowMs)
	if !ok {
		return errNoSuchKey()
	}
	if db.exists(dst, nowMs) {
		return resp.Int64(0)
	}
	ttl := db.ttlMs(src, nowMs)
	db.delete(src)
	db.set(dst, obj, false)
	if ttl > 0 {
		db.setExpireAt(dst, nowMs+ttl)
	}
	return resp.Int64(1)
}

func cmdCopy(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	src, dst := string(args[1]), string(args[2])
	replace := false
	for _, a := range args[3:] {
		if strings.EqualFold(string(a), "REPLACE") {
			replace = true
		}
	}
	nowMs := s.nowMs()
	obj, ok := db.get(src, nowMs)
	if !ok {
		return resp.Int64(0)
	}
	if db.exists(dst, nowMs) && !replace {
		return resp.Int64(0)
	}
	db.set(dst, cloneObject(obj), false)
	s.keyspaceNotify(db.id, "copy_to", dst)
	return resp.Int64(1)
}

func cmdTouch(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	nowMs := s.nowMs()
	n := 0
	for _, a := range args[1:] {
		if db.exists(string(a), nowMs) {
			n++
		}
	}
	return resp.Int64(int64(n))
}

func cmdRandomKey(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	keys := db.keys(s.nowMs())
	if len(keys) == 0 {
		return resp.NullBulk()
	}
	return resp.BulkStr(keys[rand.Intn(len(keys))])
}

func cmdSort(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	key := string(args[1])
	alpha := false
	desc := false
	for _, a := range args[2:] {
		switch strings.ToUpper(string(a)) {
		case "ALPHA":
			alpha = true
		case "DESC":
			desc = true
		case "ASC":
		}
	}
	obj, ok := db.get(key, s.nowMs())
	if !ok {
		return resp.Arr()
	}
	var elems []string
	switch obj.Kind {
	case KindList:
		for _, b := range obj.List {
			elems = append(elems, string(b))
		}
	case KindSet:
		for m := range obj.Set {
			elems = append(elems, m)
		}
	case KindZSet:
		for m := range obj.ZSet.byMember {
			elems = append(elems, m)
		}
	default:
		return errWrongType()
	}
	if alpha {
		sort.Strings(elems)
	} else {
		var parseErr bool
		sort.Slice(elems, func(i, j int) bool {
			a, errA := strconv.ParseFloat(elems[i], 64)
			b, errB := strconv.ParseFloat(elems[j], 64)
			if errA != nil || errB != nil {
				parseErr = true
				return elems[i] < elems[j]
			}
			return a < b
		})
		if parseErr && !alpha {
			return resp.Err("ERR One or more scores can't be converted into double")
		}
	}
	if desc {
		for i, j := 0, len(elems)-1; i < j; i, j = i+1, j-1 {
			elems[i], elems[j] = elems[j], elems[i]
		}
	}
	return resp.ArrFrom(elems...)
}

// cloneObject deep-copies obj for COPY.
func cloneObject(obj *Object) *Object {
	switch obj.Kind {
	case KindString:
		return newString(append([]byte(nil), obj.Str...))
	case KindList:
		out := newList()
		for _, b := range obj.List {
			out.List = append(out.List, append([]byte(nil), b...))
		}
		return out
	case KindHash:
		out := newHashValue()
		for k, v := range obj.Hash.fields {
			out.Hash.fields[k] = append([]byte(nil), v...)
		}
		for k, v := range obj.Hash.expires {
			out.Hash.expires[k] = v
		}
		return out
	case KindSet, KindHLL:
		out := &Object{Kind: obj.Kind, Set: newSet()}
		for m := range obj.Set {
			out.Set[m] = struct{}{}
		}
		return out
	case KindZSet:
		out := newZSetValue()
		for m, sc := range obj.ZSet.byMember {
			out.ZSet.Set(m, sc)
		}
		return out
	case KindStream:
		clonedGroups := make(map[string]*ConsumerGroup, len(obj.Stream.Groups))
		for name, g := range obj.Stream.Groups {
			ng := newConsumerGroup(g.Name, g.LastDelivered)
			for id, pe := range g.Pending {
				cp := *pe
				ng.Pending[id] = &cp
			}
			for cn, gc := range g.Consumers {
				cp := *gc
				ng.Consumers[cn] = &cp
			}
			clonedGroups[name] = ng
		}
		return &Object{Kind: KindStream, Stream: &Stream{
			Entries:      append([]StreamEntry(nil), obj.Stream.Entries...),
			LastID:       obj.Stream.LastID,
			MaxDelID:     obj.Stream.MaxDelID,
			EntriesAdded: obj.Stream.EntriesAdded,
			Groups:       clonedGroups,
		}}
	}
	return obj
}

func encodingHint(obj *Object) string {
	switch obj.Kind {
	case KindString:
		if _, err := strconv.ParseInt(string(obj.Str), 10, 64); err == nil {
			return "int"
		}
		if len(obj.Str) <= 44 {
			return "embstr"
		}
		return "raw"
	case KindList:
		return "listpack"
	case KindHash:
		if len(obj.Hash.fields) <= 128 {
			return "listpack"
		}
		return "hashtable"
	case KindSet, KindHLL:
		return "hashtable"
	case KindZSet:
		if obj.ZSet.Len() <= 128 {
			return "listpack"
		}
		return "skiplist"
	case KindStream:
		return "stream"
	}
	return "unknown"
}

func cmdObjectEncoding(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, ok := db.get(string(args[2]), s.nowMs())
	if !ok {
		return resp.NullBulk()
	}
	return resp.BulkStr(encodingHint(obj))
}

func cmdObjectFreq(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	if _, ok := db.get(string(args[2]), s.nowMs()); !ok {
		return errNoSuchKey()
	}
	return resp.Int64(0)
}

func cmdObjectIdleTime(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	if _, ok := db.get(string(args[2]), s.nowMs()); !ok {
		return errNoSuchKey()
	}
	return resp.Int64(0)
}

func cmdObjectRefcount(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	if _, ok := db.get(string(args[2]), s.nowMs()); !ok {
		return errNoSuchKey()
	}
	return resp.Int64(1)
}
