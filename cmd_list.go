/*
file: redis-emulator/cmd_list.go

Generalizes internal/handlers/handler_list.go's Lpush/Rpush/Lpop/Rpop/
Lrange/Lindex/Lset/Linsert/Lrem/Ltrim/Llen family onto Object/Database,
and adds the blocking variants (BLPOP/BRPOP/BLMOVE/BRPOPLPUSH/BLMPOP)
spec.md §4.3/§4.6 call for, which the teacher never implemented, using
blocking.go's waiter coordinator.
*/
package redisemu

import (
	"strings"
	"time"

	"github.com/akashmaji946/redis-emulator/resp"
)

func registerListCommands(tbl commandTable) {
	tbl.add(&commandSpec{name: "LPUSH", arity: -3, isWrite: true, handler: cmdLpush})
	tbl.add(&commandSpec{name: "RPUSH", arity: -3, isWrite: true, handler: cmdRpush})
	tbl.add(&commandSpec{name: "LPUSHX", arity: -3, isWrite: true, handler: cmdLpushX})
	tbl.add(&commandSpec{name: "RPUSHX", arity: -3, isWrite: true, handler: cmdRpushX})
	tbl.add(&commandSpec{name: "LPOP", arity: -2, isWrite: true, handler: cmdLpop})
	tbl.add(&commandSpec{name: "RPOP", arity: -2, isWrite: true, handler: cmdRpop})
	tbl.add(&commandSpec{name: "LLEN", arity: 2, handler: cmdLlen})
	tbl.add(&commandSpec{name: "LRANGE", arity: 4, handler: cmdLrange})
	tbl.add(&commandSpec{name: "LINDEX", arity: 3, handler: cmdLindex})
	tbl.add(&commandSpec{name: "LSET", arity: 4, isWrite: true, handler: cmdLset})
	tbl.add(&commandSpec{name: "LINSERT", arity: 5, isWrite: true, handler: cmdLinsert})
	tbl.add(&commandSpec{name: "LREM", arity: 4, isWrite: true, handler: cmdLrem})
	tbl.add(&commandSpec{name: "LTRIM", arity: 4, isWrite: true, handler: cmdLtrim})
	tbl.add(&commandSpec{name: "LPOS", arity: -3, handler: cmdLpos})
	tbl.add(&commandSpec{name: "RPOPLPUSH", arity: 3, isWrite: true, handler: cmdRpopLpush})
	tbl.add(&commandSpec{name: "LMOVE", arity: 5, isWrite: true, handler: cmdLmove})
	tbl.add(&commandSpec{name: "LMPOP", arity: -4, isWrite: true, handler: cmdLmpop})
	tbl.add(&commandSpec{name: "BLPOP", arity: -3, isWrite: true, handler: cmdBlpop})
	tbl.add(&commandSpec{name: "BRPOP", arity: -3, isWrite: true, handler: cmdBrpop})
	tbl.add(&commandSpec{name: "BRPOPLPUSH", arity: 4, isWrite: true, handler: cmdBrpopLpush})
	tbl.add(&commandSpec{name: "BLMOVE", arity: 6, isWrite: true, handler: cmdBlmove})
	tbl.add(&commandSpec{name: "BLMPOP", arity: -5, isWrite: true, handler: cmdBlmpop})
}

func listAt(db *Database, key string, nowMs int64) (*Object, resp.Value, bool) {
	obj, ok := db.get(key, nowMs)
	if !ok {
		return nil, resp.Value{}, false
	}
	if obj.Kind != KindList {
		return nil, errWrongType(), true
	}
	return obj, resp.Value{}, true
}

func pushCommon(s *Server, c *Conn, key string, values [][]byte, left bool, requireExisting bool) resp.Value {
	db := c.db()
	nowMs := s.nowMs()
	obj, existed := db.get(key, nowMs)
	if existed && obj.Kind != KindList {
		return errWrongType()
	}
	if !existed {
		if requireExisting {
			return resp.Int64(0)
		}
		obj = newList()
		db.set(key, obj, false)
	}
	for _, v := range values {
		val := append([]byte(nil), v...)
		if left {
			obj.List = append([][]byte{val}, obj.List...)
		} else {
			obj.List = append(obj.List, val)
		}
	}
	event := "rpush"
	if left {
		event = "lpush"
	}
	s.keyspaceNotify(db.id, event, key)
	s.blocking.notifyKey(db, db.id, key)
	return resp.Int64(int64(len(obj.List)))
}

func cmdLpush(s *Server, c *Conn, args [][]byte) resp.Value {
	return pushCommon(s, c, string(args[1]), args[2:], true, false)
}

func cmdRpush(s *Server, c *Conn, args [][]byte) resp.Value {
	return pushCommon(s, c, string(args[1]), args[2:], false, false)
}

func cmdLpushX(s *Server, c *Conn, args [][]byte) resp.Value {
	return pushCommon(s, c, string(args[1]), args[2:], true, true)
}

func cmdRpushX(s *Server, c *Conn, args [][]byte) resp.Value {
	return pushCommon(s, c, string(args[1]), args[2:], false, true)
}

func popCommon(s *Server, c *Conn, key string, left bool, count int, hasCount bool) resp.Value {
	db := c.db()
	obj, errv, found := listAt(db, key, s.nowMs())
	if !found {
		if hasCount {
			return resp.NullArray()
		}
		return resp.NullBulk()
	}
	if obj == nil {
		return errv
	}
	n := 1
	if hasCount {
		n = count
	}
	if n > len(obj.List) {
		n = len(obj.List)
	}
	var popped [][]byte
	if left {
		popped = obj.List[:n]
		obj.List = obj.List[n:]
	} else {
		popped = obj.List[len(obj.List)-n:]
		obj.List = obj.List[:len(obj.List)-n]
		reverseBytes(popped)
	}
	event := "rpop"
	if left {
		event = "lpop"
	}
	if len(popped) > 0 {
		s.keyspaceNotify(db.id, event, key)
	}
	if obj.Empty() {
		db.delete(key)
	}
	if hasCount {
		if len(popped) == 0 {
			return resp.NullArray()
		}
		return resp.ArrFromBytes(popped)
	}
	if len(popped) == 0 {
		return resp.NullBulk()
	}
	return resp.Bulk(popped[0])
}

func reverseBytes(b [][]byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

func popArgs(args [][]byte) (count int, hasCount bool, errv resp.Value, isErr bool) {
	if len(args) < 3 {
		return 0, false, resp.Value{}, false
	}
	n, ok := parseInt(args[2])
	if !ok || n < 0 {
		return 0, false, errNotInteger(), true
	}
	return int(n), true, resp.Value{}, false
}

func cmdLpop(s *Server, c *Conn, args [][]byte) resp.Value {
	count, hasCount, errv, isErr := popArgs(args)
	if isErr {
		return errv
	}
	return popCommon(s, c, string(args[1]), true, count, hasCount)
}

func cmdRpop(s *Server, c *Conn, args [][]byte) resp.Value {
	count, hasCount, errv, isErr := popArgs(args)
	if isErr {
		return errv
	}
	return popCommon(s, c, string(args[1]), false, count, hasCount)
}

func cmdLlen(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, errv, found := listAt(db, string(args[1]), s.nowMs())
	if !found {
		return resp.Int64(0)
	}
	if obj == nil {
		return errv
	}
	return resp.Int64(int64(len(obj.List)))
}

// clampRange normalizes start/end (possibly negative) to valid slice
// bounds over a sequence of the given length, per spec.md §4.3:
// "negative indices counting from the tail... negative list indices
// past the head clamp to 0."
func clampRange(start, end, length int64) (int64, int64, bool) {
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
		return 0, 0, false
	}
	return start, end, true
}

func cmdLrange(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, errv, found := listAt(db, string(args[1]), s.nowMs())
	if !found {
		return resp.Arr()
	}
	if obj == nil {
		return errv
	}
	start, ok1 := parseInt(args[2])
	end, ok2 := parseInt(args[3])
	if !ok1 || !ok2 {
		return errNotInteger()
	}
	lo, hi, ok := clampRange(start, end, int64(len(obj.List)))
	if !ok {
		return resp.Arr()
	}
	return resp.ArrFromBytes(obj.List[lo : hi+1])
}

func cmdLindex(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, errv, found := listAt(db, string(args[1]), s.nowMs())
	if !found {
		return resp.NullBulk()
	}
	if obj == nil {
		return errv
	}
	idx, ok := parseInt(args[2])
	if !ok {
		return errNotInteger()
	}
	length := int64(len(obj.List))
	if idx < 0 {
		idx += length
	}
	if idx < 0 || idx >= length {
		return resp.NullBulk()
	}
	return resp.Bulk(obj.List[idx])
}

func cmdLset(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, errv, found := listAt(db, string(args[1]), s.nowMs())
	if !found {
		return errNoSuchKey()
	}
	if obj == nil {
		return errv
	}
	idx, ok := parseInt(args[2])
	if !ok {
		return errNotInteger()
	}
	length := int64(len(obj.List))
	if idx < 0 {
		idx += length
	}
	if idx < 0 || idx >= length {
		return errOutOfRange()
	}
	obj.List[idx] = append([]byte(nil), args[3]...)
	s.keyspaceNotify(db.id, "lset", string(args[1]))
	return resp.Str("OK")
}

func cmdLinsert(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	key := string(args[1])
	obj, errv, found := listAt(db, key, s.nowMs())
	if !found {
		return resp.Int64(0)
	}
	if obj == nil {
		return errv
	}
	where := strings.ToUpper(string(args[2]))
	if where != "BEFORE" && where != "AFTER" {
		return errSyntax()
	}
	pivot := args[3]
	idx := -1
	for i, v := range obj.List {
		if string(v) == string(pivot) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return resp.Int64(-1)
	}
	insertAt := idx
	if where == "AFTER" {
		insertAt = idx + 1
	}
	val := append([]byte(nil), args[4]...)
	obj.List = append(obj.List, nil)
	copy(obj.List[insertAt+1:], obj.List[insertAt:])
	obj.List[insertAt] = val
	s.keyspaceNotify(db.id, "linsert", key)
	return resp.Int64(int64(len(obj.List)))
}

func cmdLrem(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	key := string(args[1])
	obj, errv, found := listAt(db, key, s.nowMs())
	if !found {
		return resp.Int64(0)
	}
	if obj == nil {
		return errv
	}
	count, ok := parseInt(args[2])
	if !ok {
		return errNotInteger()
	}
	target := args[3]
	removed := 0
	switch {
	case count == 0:
		out := obj.List[:0]
		for _, v := range obj.List {
			if string(v) == string(target) {
				removed++
				continue
			}
			out = append(out, v)
		}
		obj.List = out
	case count > 0:
		out := obj.List[:0]
		for _, v := range obj.List {
			if int64(removed) < count && string(v) == string(target) {
				removed++
				continue
			}
			out = append(out, v)
		}
		obj.List = out
	default:
		n := -count
		out := make([][]byte, 0, len(obj.List))
		for i := len(obj.List) - 1; i >= 0; i-- {
			v := obj.List[i]
			if int64(removed) < n && string(v) == string(target) {
				removed++
				continue
			}
			out = append(out, v)
		}
		reverseBytes(out)
		obj.List = out
	}
	if removed > 0 {
		s.keyspaceNotify(db.id, "lrem", key)
	}
	if obj.Empty() {
		db.delete(key)
	}
	return resp.Int64(int64(removed))
}

func cmdLtrim(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	key := string(args[1])
	obj, errv, found := listAt(db, key, s.nowMs())
	if !found {
		return resp.Str("OK")
	}
	if obj == nil {
		return errv
	}
	start, ok1 := parseInt(args[2])
	end, ok2 := parseInt(args[3])
	if !ok1 || !ok2 {
		return errNotInteger()
	}
	lo, hi, ok := clampRange(start, end, int64(len(obj.List)))
	if !ok {
		db.delete(key)
		s.keyspaceNotify(db.id, "ltrim", key)
		return resp.Str("OK")
	}
	obj.List = append([][]byte{}, obj.List[lo:hi+1]...)
	s.keyspaceNotify(db.id, "ltrim", key)
	if obj.Empty() {
		db.delete(key)
	}
	return resp.Str("OK")
}

func cmdLpos(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, errv, found := listAt(db, string(args[1]), s.nowMs())
	if !found {
		return resp.NullBulk()
	}
	if obj == nil {
		return errv
	}
	target := args[2]
	rank := int64(1)
	count := int64(1)
	hasCount := false
	for i := 3; i < len(args); i++ {
		switch strings.ToUpper(string(args[i])) {
		case "RANK":
			i++
			if i >= len(args) {
				return errSyntax()
			}
			n, ok := parseInt(args[i])
			if !ok || n == 0 {
				return errSyntax()
			}
			rank = n
		case "COUNT":
			i++
			if i >= len(args) {
				return errSyntax()
			}
			n, ok := parseInt(args[i])
			if !ok || n < 0 {
				return errSyntax()
			}
			count = n
			hasCount = true
		default:
			return errSyntax()
		}
	}
	var matches []int64
	skip := rank
	if rank > 0 {
		skip--
	} else {
		skip++
	}
	if rank > 0 {
		for i := int64(0); i < int64(len(obj.List)); i++ {
			if string(obj.List[i]) == string(target) {
				if skip > 0 {
					skip--
					continue
				}
				matches = append(matches, i)
				if !hasCount {
					break
				}
				if count != 0 && int64(len(matches)) >= count {
					break
				}
			}
		}
	} else {
		for i := int64(len(obj.List)) - 1; i >= 0; i-- {
			if string(obj.List[i]) == string(target) {
				if skip < 0 {
					skip++
					continue
				}
				matches = append(matches, i)
				if !hasCount {
					break
				}
				if count != 0 && int64(len(matches)) >= count {
					break
				}
			}
		}
	}
	if !hasCount {
		if len(matches) == 0 {
			return resp.NullBulk()
		}
		return resp.Int64(matches[0])
	}
	out := make([]resp.Value, len(matches))
	for i, m := range matches {
		out[i] = resp.Int64(m)
	}
	return resp.Arr(out...)
}

// moveOne transfers one value between srcKey and dstKey, used by both
// RPOPLPUSH/LMOVE and their blocking counterparts.
func moveOne(s *Server, c *Conn, srcKey, dstKey string, fromLeft, toLeft bool) ([]byte, resp.Value, bool) {
	db := c.db()
	srcObj, errv, found := listAt(db, srcKey, s.nowMs())
	if !found {
		return nil, resp.Value{}, false
	}
	if srcObj == nil {
		return nil, errv, true
	}
	if len(srcObj.List) == 0 {
		return nil, resp.Value{}, false
	}
	dstObj, existed := db.get(dstKey, s.nowMs())
	if existed && dstObj.Kind != KindList {
		return nil, errWrongType(), true
	}
	if !existed {
		dstObj = newList()
		db.set(dstKey, dstObj, false)
	}

	var val []byte
	if fromLeft {
		val = srcObj.List[0]
		srcObj.List = srcObj.List[1:]
	} else {
		val = srcObj.List[len(srcObj.List)-1]
		srcObj.List = srcObj.List[:len(srcObj.List)-1]
	}
	if toLeft {
		dstObj.List = append([][]byte{val}, dstObj.List...)
	} else {
		dstObj.List = append(dstObj.List, val)
	}
	if srcObj.Empty() {
		db.delete(srcKey)
	}
	s.keyspaceNotify(db.id, "rpop", srcKey)
	s.keyspaceNotify(db.id, "lpush", dstKey)
	s.blocking.notifyKey(db, db.id, dstKey)
	return val, resp.Value{}, true
}

func cmdRpopLpush(s *Server, c *Conn, args [][]byte) resp.Value {
	val, errv, ok := moveOne(s, c, string(args[1]), string(args[2]), false, true)
	if errv.IsError() {
		return errv
	}
	if !ok {
		return resp.NullBulk()
	}
	return resp.Bulk(val)
}

func parseLeftRight(b []byte) (bool, bool) {
	switch strings.ToUpper(string(b)) {
	case "LEFT":
		return true, true
	case "RIGHT":
		return false, true
	}
	return false, false
}

func cmdLmove(s *Server, c *Conn, args [][]byte) resp.Value {
	fromLeft, ok1 := parseLeftRight(args[3])
	toLeft, ok2 := parseLeftRight(args[4])
	if !ok1 || !ok2 {
		return errSyntax()
	}
	val, errv, ok := moveOne(s, c, string(args[1]), string(args[2]), fromLeft, toLeft)
	if errv.IsError() {
		return errv
	}
	if !ok {
		return resp.NullBulk()
	}
	return resp.Bulk(val)
}

func cmdLmpop(s *Server, c *Conn, args [][]byte) resp.Value {
	return doLmpop(s, c, args[1:])
}

// doLmpop implements LMPOP's grammar: <numkeys> key [key ...] LEFT|RIGHT
// [COUNT count]. Shared by LMPOP and BLMPOP's non-blocking first try.
func doLmpop(s *Server, c *Conn, args [][]byte) resp.Value {
	numKeys, ok := parseInt(args[0])
	if !ok || numKeys <= 0 || int(numKeys)+1 > len(args) {
		return errSyntax()
	}
	keys := make([]string, numKeys)
	for i := range keys {
		keys[i] = string(args[1+i])
	}
	rest := args[1+numKeys:]
	if len(rest) < 1 {
		return errSyntax()
	}
	left, ok := parseLeftRight(rest[0])
	if !ok {
		return errSyntax()
	}
	count := int64(1)
	if len(rest) >= 3 && strings.EqualFold(string(rest[1]), "COUNT") {
		n, ok := parseInt(rest[2])
		if !ok || n <= 0 {
			return errSyntax()
		}
		count = n
	}

	db := c.db()
	nowMs := s.nowMs()
	for _, key := range keys {
		obj, found := db.get(key, nowMs)
		if !found {
			continue
		}
		if obj.Kind != KindList {
			return errWrongType()
		}
		if len(obj.List) == 0 {
			continue
		}
		n := count
		if n > int64(len(obj.List)) {
			n = int64(len(obj.List))
		}
		var popped [][]byte
		if left {
			popped = append([][]byte{}, obj.List[:n]...)
			obj.List = obj.List[n:]
		} else {
			popped = append([][]byte{}, obj.List[len(obj.List)-int(n):]...)
			obj.List = obj.List[:len(obj.List)-int(n)]
			reverseBytes(popped)
		}
		event := "rpop"
		if left {
			event = "lpop"
		}
		s.keyspaceNotify(db.id, event, key)
		if obj.Empty() {
			db.delete(key)
		}
		return resp.Arr(resp.BulkStr(key), resp.ArrFromBytes(popped))
	}
	return resp.NullArray()
}

func parseTimeout(b []byte) (time.Duration, bool) {
	f, ok := parseFloat(b)
	if !ok || f < 0 {
		return 0, false
	}
	return time.Duration(f * float64(time.Second)), true
}

// blockUntil suspends c on the given keys until pred holds for one of
// them or timeout elapses, releasing the server's single executor lock
// while suspended per spec.md §5 "Suspension points." onReady is
// called (still holding execMu) once a key is ready, and its result is
// returned as the command's reply; a timeout yields NullArray.
func blockUntil(s *Server, c *Conn, keys []string, pred func(db *Database, key string) bool, timeout time.Duration, onReady func(key string) resp.Value) resp.Value {
	db := c.db()
	for _, k := range keys {
		if pred(db, k) {
			return onReady(k)
		}
	}

	if c.inExec {
		// A blocking command queued inside MULTI never actually
		// suspends (spec.md §4.7): it evaluates its condition once,
		// already done above, and reports the same null reply a
		// top-level call would give on timeout rather than releasing
		// the single executor lock EXEC is still holding.
		return resp.NullArray()
	}

	w := &waiter{conn: c, dbIndex: c.dbIndex, keys: keys, predicate: pred, done: make(chan struct{})}
	s.blocking.register(w)
	s.Metrics.BlockedClients.Inc()

	s.execMu.Unlock()
	key := blockWait(w, timeout)
	s.execMu.Lock()

	s.Metrics.BlockedClients.Dec()
	s.blocking.unregister(w)

	if key == "" {
		return resp.NullArray()
	}
	return onReady(key)
}

func blockingPop(s *Server, c *Conn, keys []string, left bool, timeout time.Duration) resp.Value {
	pred := func(db *Database, key string) bool {
		obj, ok := db.store[key]
		return ok && obj.Kind == KindList && len(obj.List) > 0
	}
	onReady := func(key string) resp.Value {
		reply := popCommon(s, c, key, left, 0, false)
		if reply.Type == resp.BulkString && !reply.IsNull {
			return resp.Arr(resp.BulkStr(key), reply)
		}
		return resp.NullArray()
	}
	return blockUntil(s, c, keys, pred, timeout, onReady)
}

func cmdBlpop(s *Server, c *Conn, args [][]byte) resp.Value {
	timeout, ok := parseTimeout(args[len(args)-1])
	if !ok {
		return errSyntax()
	}
	keys := make([]string, 0, len(args)-2)
	for _, a := range args[1 : len(args)-1] {
		keys = append(keys, string(a))
	}
	return blockingPop(s, c, keys, true, timeout)
}

func cmdBrpop(s *Server, c *Conn, args [][]byte) resp.Value {
	timeout, ok := parseTimeout(args[len(args)-1])
	if !ok {
		return errSyntax()
	}
	keys := make([]string, 0, len(args)-2)
	for _, a := range args[1 : len(args)-1] {
		keys = append(keys, string(a))
	}
	return blockingPop(s, c, keys, false, timeout)
}

func cmdBrpopLpush(s *Server, c *Conn, args [][]byte) resp.Value {
	timeout, ok := parseTimeout(args[3])
	if !ok {
		return errSyntax()
	}
	srcKey, dstKey := string(args[1]), string(args[2])
	pred := func(db *Database, key string) bool {
		obj, ok := db.store[key]
		return ok && obj.Kind == KindList && len(obj.List) > 0
	}
	onReady := func(key string) resp.Value {
		val, errv, ok := moveOne(s, c, srcKey, dstKey, false, true)
		if errv.IsError() {
			return errv
		}
		if !ok {
			return resp.NullBulk()
		}
		return resp.Bulk(val)
	}
	return blockUntil(s, c, []string{srcKey}, pred, timeout, onReady)
}

func cmdBlmove(s *Server, c *Conn, args [][]byte) resp.Value {
	fromLeft, ok1 := parseLeftRight(args[3])
	toLeft, ok2 := parseLeftRight(args[4])
	if !ok1 || !ok2 {
		return errSyntax()
	}
	timeout, ok := parseTimeout(args[5])
	if !ok {
		return errSyntax()
	}
	srcKey, dstKey := string(args[1]), string(args[2])
	pred := func(db *Database, key string) bool {
		obj, ok := db.store[key]
		return ok && obj.Kind == KindList && len(obj.List) > 0
	}
	onReady := func(key string) resp.Value {
		val, errv, ok := moveOne(s, c, srcKey, dstKey, fromLeft, toLeft)
		if errv.IsError() {
			return errv
		}
		if !ok {
			return resp.NullBulk()
		}
		return resp.Bulk(val)
	}
	return blockUntil(s, c, []string{srcKey}, pred, timeout, onReady)
}

func cmdBlmpop(s *Server, c *Conn, args [][]byte) resp.Value {
	timeout, ok := parseTimeout(args[1])
	if !ok {
		return errSyntax()
	}
	rest := args[2:]
	numKeys, ok := parseInt(rest[0])
	if !ok || numKeys <= 0 {
		return errSyntax()
	}
	keys := make([]string, numKeys)
	for i := range keys {
		keys[i] = string(rest[1+i])
	}
	pred := func(db *Database, key string) bool {
		obj, ok := db.store[key]
		return ok && obj.Kind == KindList && len(obj.List) > 0
	}
	onReady := func(key string) resp.Value {
		return doLmpop(s, c, rest)
	}
	return blockUntil(s, c, keys, pred, timeout, onReady)
}
