/*
file: redis-emulator/cmd_string.go

Generalizes internal/handlers/handler_string.go's Get/Set/Incr family/Mget/
Mset/Append/GetRange/SetRange/GetEx/GetDel family onto the Object/
Database types, adding the SET option grammar (NX/XX/EX/PX/EXAT/PXAT/
KEEPTTL/GET/IFEQ/IFGT/IFLT) spec.md §4.3 requires that the teacher
never implemented.
*/
package redisemu

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/akashmaji946/redis-emulator/resp"
)

func registerStringCommands(tbl commandTable) {
	tbl.add(&commandSpec{name: "GET", arity: 2, handler: cmdGet})
	tbl.add(&commandSpec{name: "SET", arity: -3, isWrite: true, handler: cmdSet})
	tbl.add(&commandSpec{name: "SETNX", arity: 3, isWrite: true, handler: cmdSetNX})
	tbl.add(&commandSpec{name: "SETEX", arity: 4, isWrite: true, handler: cmdSetEX})
	tbl.add(&commandSpec{name: "PSETEX", arity: 4, isWrite: true, handler: cmdPSetEX})
	tbl.add(&commandSpec{name: "GETSET", arity: 3, isWrite: true, handler: cmdGetSet})
	tbl.add(&commandSpec{name: "GETDEL", arity: 2, isWrite: true, handler: cmdGetDel})
	tbl.add(&commandSpec{name: "GETEX", arity: -2, isWrite: true, handler: cmdGetEx})
	tbl.add(&commandSpec{name: "APPEND", arity: 3, isWrite: true, handler: cmdAppend})
	tbl.add(&commandSpec{name: "STRLEN", arity: 2, handler: cmdStrlen})
	tbl.add(&commandSpec{name: "INCR", arity: 2, isWrite: true, handler: cmdIncr})
	tbl.add(&commandSpec{name: "DECR", arity: 2, isWrite: true, handler: cmdDecr})
	tbl.add(&commandSpec{name: "INCRBY", arity: 3, isWrite: true, handler: cmdIncrBy})
	tbl.add(&commandSpec{name: "DECRBY", arity: 3, isWrite: true, handler: cmdDecrBy})
	tbl.add(&commandSpec{name: "INCRBYFLOAT", arity: 3, isWrite: true, handler: cmdIncrByFloat})
	tbl.add(&commandSpec{name: "MGET", arity: -2, handler: cmdMget})
	tbl.add(&commandSpec{name: "MSET", arity: -3, isWrite: true, handler: cmdMset})
	tbl.add(&commandSpec{name: "MSETNX", arity: -3, isWrite: true, handler: cmdMsetNX})
	tbl.add(&commandSpec{name: "GETRANGE", arity: 4, handler: cmdGetRange})
	tbl.add(&commandSpec{name: "SETRANGE", arity: 4, isWrite: true, handler: cmdSetRange})
}

// stringAt returns the live string Object at key, or nil with a
// WRONGTYPE error if it exists under a different kind.
func stringAt(db *Database, key string, nowMs int64) (*Object, resp.Value, bool) {
	obj, ok := db.get(key, nowMs)
	if !ok {
		return nil, resp.Value{}, false
	}
	if obj.Kind != KindString {
		return nil, errWrongType(), true
	}
	return obj, resp.Value{}, true
}

func cmdGet(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, errv, found := stringAt(db, string(args[1]), s.nowMs())
	if !found {
		return resp.NullBulk()
	}
	if obj == nil {
		return errv
	}
	return resp.Bulk(obj.Str)
}

func cmdSet(s *Server, c *Conn, args [][]byte) resp.Value {
	key := string(args[1])
	val := args[2]
	db := c.db()
	nowMs := s.nowMs()

	var nx, xx, keepTTL, getOpt bool
	var expireAtMs int64
	hasExpire := false
	// ifMode/ifValue implement the IFEQ/IFGT/IFLT compare-and-set
	// options spec.md §4.3 lists alongside NX/XX: the SET only proceeds
	// if the condition against the *current* stored value holds.
	ifMode := ""
	var ifValue []byte

	for i := 3; i < len(args); i++ {
		opt := strings.ToUpper(string(args[i]))
		switch opt {
		case "NX":
			nx = true
		case "XX":
			xx = true
		case "KEEPTTL":
			keepTTL = true
		case "GET":
			getOpt = true
		case "IFEQ", "IFGT", "IFLT":
			if ifMode != "" {
				return errSyntax()
			}
			if i+1 >= len(args) {
				return errSyntax()
			}
			ifMode = opt[2:]
			ifValue = args[i+1]
			i++
		case "EX", "PX", "EXAT", "PXAT":
			if i+1 >= len(args) {
				return errSyntax()
			}
			n, ok := parseInt(args[i+1])
			if !ok {
				return resp.Err("ERR value is not an integer or out of range")
			}
			switch opt {
			case "EX":
				expireAtMs = nowMs + n*1000
			case "PX":
				expireAtMs = nowMs + n
			case "EXAT":
				expireAtMs = n * 1000
			case "PXAT":
				expireAtMs = n
			}
			hasExpire = true
			i++
		default:
			return errSyntax()
		}
	}
	if nx && xx {
		return errSyntax()
	}

	obj, existed := db.get(key, nowMs)
	var oldReply resp.Value
	if getOpt {
		if !existed {
			oldReply = resp.NullBulk()
		} else if obj.Kind != KindString {
			return errWrongType()
		} else {
			oldReply = resp.Bulk(obj.Str)
		}
	}
	if nx && existed {
		if getOpt {
			return oldReply
		}
		return resp.NullBulk()
	}
	if xx && !existed {
		if getOpt {
			return oldReply
		}
		return resp.NullBulk()
	}
	if ifMode != "" {
		if !existed {
			if getOpt {
				return oldReply
			}
			return resp.NullBulk()
		}
		if obj.Kind != KindString {
			return errWrongType()
		}
		var cond bool
		switch ifMode {
		case "EQ":
			cond = bytes.Equal(obj.Str, ifValue)
		case "GT", "LT":
			curF, ok1 := parseFloat(obj.Str)
			cmpF, ok2 := parseFloat(ifValue)
			if !ok1 || !ok2 {
				return errNotFloat()
			}
			if ifMode == "GT" {
				cond = curF > cmpF
			} else {
				cond = curF < cmpF
			}
		}
		if !cond {
			if getOpt {
				return oldReply
			}
			return resp.NullBulk()
		}
	}

	db.set(key, newString(val), keepTTL && !hasExpire)
	if hasExpire {
		db.setExpireAt(key, expireAtMs)
	}
	s.keyspaceNotify(db.id, "set", key)

	if getOpt {
		return oldReply
	}
	return resp.Str("OK")
}

func cmdSetNX(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	key := string(args[1])
	if db.exists(key, s.nowMs()) {
		return resp.Int64(0)
	}
	db.set(key, newString(args[2]), false)
	s.keyspaceNotify(db.id, "set", key)
	return resp.Int64(1)
}

func setWithTTLSeconds(s *Server, c *Conn, key string, val []byte, seconds int64, ms bool) resp.Value {
	if seconds < 0 {
		unit := "setex"
		if ms {
			unit = "psetex"
		}
		return resp.Err("ERR invalid expire time in '" + unit + "' command")
	}
	db := c.db()
	nowMs := s.nowMs()
	deltaMs := seconds * 1000
	if ms {
		deltaMs = seconds
	}
	db.set(key, newString(val), false)
	db.setExpireAt(key, nowMs+deltaMs)
	s.keyspaceNotify(db.id, "set", key)
	return resp.Str("OK")
}

func cmdSetEX(s *Server, c *Conn, args [][]byte) resp.Value {
	n, ok := parseInt(args[2])
	if !ok {
		return errNotInteger()
	}
	return setWithTTLSeconds(s, c, string(args[1]), args[3], n, false)
}

func cmdPSetEX(s *Server, c *Conn, args [][]byte) resp.Value {
	n, ok := parseInt(args[2])
	if !ok {
		return errNotInteger()
	}
	return setWithTTLSeconds(s, c, string(args[1]), args[3], n, true)
}

func cmdGetSet(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	key := string(args[1])
	nowMs := s.nowMs()
	obj, errv, found := stringAt(db, key, nowMs)
	var old resp.Value
	if !found {
		old = resp.NullBulk()
	} else if obj == nil {
		return errv
	} else {
		old = resp.Bulk(obj.Str)
	}
	db.set(key, newString(args[2]), false)
	s.keyspaceNotify(db.id, "set", key)
	return old
}

func cmdGetDel(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	key := string(args[1])
	nowMs := s.nowMs()
	obj, errv, found := stringAt(db, key, nowMs)
	if !found {
		return resp.NullBulk()
	}
	if obj == nil {
		return errv
	}
	db.delete(key)
	s.keyspaceNotify(db.id, "del", key)
	return resp.Bulk(obj.Str)
}

func cmdGetEx(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	key := string(args[1])
	nowMs := s.nowMs()
	obj, errv, found := stringAt(db, key, nowMs)
	if !found {
		return resp.NullBulk()
	}
	if obj == nil {
		return errv
	}
	val := resp.Bulk(obj.Str)
	if len(args) == 2 {
		return val
	}
	i := 2
	persist := false
	hasExpire := false
	var expireAtMs int64
	for i < len(args) {
		opt := strings.ToUpper(string(args[i]))
		switch opt {
		case "PERSIST":
			persist = true
			i++
		case "EX", "PX", "EXAT", "PXAT":
			if i+1 >= len(args) {
				return errSyntax()
			}
			n, ok := parseInt(args[i+1])
			if !ok {
				return errNotInteger()
			}
			switch opt {
			case "EX":
				expireAtMs = nowMs + n*1000
			case "PX":
				expireAtMs = nowMs + n
			case "EXAT":
				expireAtMs = n * 1000
			case "PXAT":
				expireAtMs = n
			}
			hasExpire = true
			i += 2
		default:
			return errSyntax()
		}
	}
	if persist {
		db.persist(key)
	} else if hasExpire {
		db.setExpireAt(key, expireAtMs)
	}
	return val
}

func cmdAppend(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	key := string(args[1])
	nowMs := s.nowMs()
	obj, existed := db.get(key, nowMs)
	if !existed {
		db.set(key, newString(append([]byte(nil), args[2]...)), false)
		s.keyspaceNotify(db.id, "append", key)
		return resp.Int64(int64(len(args[2])))
	}
	if obj.Kind != KindString {
		return errWrongType()
	}
	obj.Str = append(obj.Str, args[2]...)
	s.keyspaceNotify(db.id, "append", key)
	return resp.Int64(int64(len(obj.Str)))
}

func cmdStrlen(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, errv, found := stringAt(db, string(args[1]), s.nowMs())
	if !found {
		return resp.Int64(0)
	}
	if obj == nil {
		return errv
	}
	return resp.Int64(int64(len(obj.Str)))
}

func incrByInt(s *Server, c *Conn, key string, delta int64) resp.Value {
	db := c.db()
	nowMs := s.nowMs()
	obj, existed := db.get(key, nowMs)
	if !existed {
		obj = newString([]byte("0"))
		db.set(key, obj, false)
	} else if obj.Kind != KindString {
		return errWrongType()
	}
	cur, err := strconv.ParseInt(string(obj.Str), 10, 64)
	if err != nil {
		return resp.Err("ERR value is not an integer or out of range")
	}
	next := cur + delta
	if (delta > 0 && next < cur) || (delta < 0 && next > cur) {
		return resp.Err("ERR increment or decrement would overflow")
	}
	obj.Str = []byte(strconv.FormatInt(next, 10))
	s.keyspaceNotify(db.id, "incrby", key)
	return resp.Int64(next)
}

func cmdIncr(s *Server, c *Conn, args [][]byte) resp.Value {
	return incrByInt(s, c, string(args[1]), 1)
}

func cmdDecr(s *Server, c *Conn, args [][]byte) resp.Value {
	return incrByInt(s, c, string(args[1]), -1)
}

func cmdIncrBy(s *Server, c *Conn, args [][]byte) resp.Value {
	n, ok := parseInt(args[2])
	if !ok {
		return errNotInteger()
	}
	return incrByInt(s, c, string(args[1]), n)
}

func cmdDecrBy(s *Server, c *Conn, args [][]byte) resp.Value {
	n, ok := parseInt(args[2])
	if !ok {
		return errNotInteger()
	}
	return incrByInt(s, c, string(args[1]), -n)
}

func cmdIncrByFloat(s *Server, c *Conn, args [][]byte) resp.Value {
	delta, ok := parseFloat(args[2])
	if !ok {
		return errNotFloat()
	}
	db := c.db()
	key := string(args[1])
	nowMs := s.nowMs()
	obj, existed := db.get(key, nowMs)
	if !existed {
		obj = newString([]byte("0"))
		db.set(key, obj, false)
	} else if obj.Kind != KindString {
		return errWrongType()
	}
	cur, ok := parseFloat(obj.Str)
	if !ok {
		return errNotFloat()
	}
	next := cur + delta
	formatted := strconv.FormatFloat(next, 'f', -1, 64)
	obj.Str = []byte(formatted)
	s.keyspaceNotify(db.id, "incrbyfloat", key)
	return resp.Bulk(obj.Str)
}

func cmdMget(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	nowMs := s.nowMs()
	out := make([]resp.Value, len(args)-1)
	for i, a := range args[1:] {
		obj, existed := db.get(string(a), nowMs)
		if !existed || obj.Kind != KindString {
			out[i] = resp.NullBulk()
			continue
		}
		out[i] = resp.Bulk(obj.Str)
	}
	return resp.Arr(out...)
}

func cmdMset(s *Server, c *Conn, args [][]byte) resp.Value {
	if (len(args)-1)%2 != 0 {
		return errWrongArgs("mset")
	}
	db := c.db()
	for i := 1; i < len(args); i += 2 {
		db.set(string(args[i]), newString(append([]byte(nil), args[i+1]...)), false)
		s.keyspaceNotify(db.id, "set", string(args[i]))
	}
	return resp.Str("OK")
}

func cmdMsetNX(s *Server, c *Conn, args [][]byte) resp.Value {
	if (len(args)-1)%2 != 0 {
		return errWrongArgs("msetnx")
	}
	db := c.db()
	nowMs := s.nowMs()
	for i := 1; i < len(args); i += 2 {
		if db.exists(string(args[i]), nowMs) {
			return resp.Int64(0)
		}
	}
	for i := 1; i < len(args); i += 2 {
		db.set(string(args[i]), newString(append([]byte(nil), args[i+1]...)), false)
		s.keyspaceNotify(db.id, "set", string(args[i]))
	}
	return resp.Int64(1)
}

func cmdGetRange(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, errv, found := stringAt(db, string(args[1]), s.nowMs())
	if !found {
		return resp.Bulk(nil)
	}
	if obj == nil {
		return errv
	}
	start, ok1 := parseInt(args[2])
	end, ok2 := parseInt(args[3])
	if !ok1 || !ok2 {
		return errNotInteger()
	}
	length := int64(len(obj.Str))
	if start < 0 {
		start += length
	}
	if end < 0 {
		end += length
	}
	if start < 0 {
		start = 0
	}
	if end >= length {
		end = length - 1
	}
	if length == 0 || start > end || start >= length {
		return resp.Bulk([]byte{})
	}
	return resp.Bulk(obj.Str[start : end+1])
}

func cmdSetRange(s *Server, c *Conn, args [][]byte) resp.Value {
	offset, ok := parseInt(args[2])
	if !ok || offset < 0 {
		return resp.Err("ERR offset is out of range")
	}
	db := c.db()
	key := string(args[1])
	nowMs := s.nowMs()
	value := args[3]
	obj, existed := db.get(key, nowMs)
	if !existed {
		if len(value) == 0 {
			return resp.Int64(0)
		}
		buf := make([]byte, int(offset)+len(value))
		copy(buf[offset:], value)
		db.set(key, newString(buf), false)
		s.keyspaceNotify(db.id, "setrange", key)
		return resp.Int64(int64(len(buf)))
	}
	if obj.Kind != KindString {
		return errWrongType()
	}
	newLen := int(offset) + len(value)
	if newLen > len(obj.Str) {
		buf := make([]byte, newLen)
		copy(buf, obj.Str)
		copy(buf[offset:], value)
		obj.Str = buf
	} else {
		copy(obj.Str[offset:], value)
	}
	s.keyspaceNotify(db.id, "setrange", key)
	return resp.Int64(int64(len(obj.Str)))
}
