/*
file: redis-emulator/cmd_set.go

Generalizes internal/handlers/handler_set.go's Sadd/Srem/Smembers/
Sismember/Scard family onto Object/Database, and adds the multi-key set
algebra (SUNION/SINTER/SDIFF + *STORE variants) and SINTERCARD/SMISMEMBER
spec.md §4.3 requires that the teacher never implemented.
*/
package redisemu

import (
	"math/rand"

	"github.com/akashmaji946/redis-emulator/resp"
)

func registerSetCommands(tbl commandTable) {
	tbl.add(&commandSpec{name: "SADD", arity: -3, isWrite: true, handler: cmdSadd})
	tbl.add(&commandSpec{name: "SREM", arity: -3, isWrite: true, handler: cmdSrem})
	tbl.add(&commandSpec{name: "SMEMBERS", arity: 2, handler: cmdSmembers})
	tbl.add(&commandSpec{name: "SISMEMBER", arity: 3, handler: cmdSismember})
	tbl.add(&commandSpec{name: "SMISMEMBER", arity: -3, handler: cmdSmismember})
	tbl.add(&commandSpec{name: "SCARD", arity: 2, handler: cmdScard})
	tbl.add(&commandSpec{name: "SPOP", arity: -2, isWrite: true, handler: cmdSpop})
	tbl.add(&commandSpec{name: "SRANDMEMBER", arity: -2, handler: cmdSrandmember})
	tbl.add(&commandSpec{name: "SMOVE", arity: 4, isWrite: true, handler: cmdSmove})
	tbl.add(&commandSpec{name: "SUNION", arity: -2, handler: cmdSunion})
	tbl.add(&commandSpec{name: "SINTER", arity: -2, handler: cmdSinter})
	tbl.add(&commandSpec{name: "SDIFF", arity: -2, handler: cmdSdiff})
	tbl.add(&commandSpec{name: "SUNIONSTORE", arity: -3, isWrite: true, handler: cmdSunionstore})
	tbl.add(&commandSpec{name: "SINTERSTORE", arity: -3, isWrite: true, handler: cmdSinterstore})
	tbl.add(&commandSpec{name: "SDIFFSTORE", arity: -3, isWrite: true, handler: cmdSdiffstore})
	tbl.add(&commandSpec{name: "SINTERCARD", arity: -3, handler: cmdSintercard})
}

func setAt(db *Database, key string, nowMs int64) (*Object, resp.Value, bool) {
	obj, ok := db.get(key, nowMs)
	if !ok {
		return nil, resp.Value{}, false
	}
	if obj.Kind != KindSet {
		return nil, errWrongType(), true
	}
	return obj, resp.Value{}, true
}

func cmdSadd(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	key := string(args[1])
	nowMs := s.nowMs()
	obj, existed := db.get(key, nowMs)
	if existed && obj.Kind != KindSet {
		return errWrongType()
	}
	if !existed {
		obj = newSetValue()
		db.set(key, obj, false)
	}
	added := 0
	for _, a := range args[2:] {
		m := string(a)
		if _, ok := obj.Set[m]; !ok {
			obj.Set[m] = struct{}{}
			added++
		}
	}
	if added > 0 {
		s.keyspaceNotify(db.id, "sadd", key)
	}
	return resp.Int64(int64(added))
}

func cmdSrem(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	key := string(args[1])
	obj, errv, found := setAt(db, key, s.nowMs())
	if !found {
		return resp.Int64(0)
	}
	if obj == nil {
		return errv
	}
	n := 0
	for _, a := range args[2:] {
		m := string(a)
		if _, ok := obj.Set[m]; ok {
			delete(obj.Set, m)
			n++
		}
	}
	if n > 0 {
		s.keyspaceNotify(db.id, "srem", key)
	}
	if obj.Empty() {
		db.delete(key)
	}
	return resp.Int64(int64(n))
}

func cmdSmembers(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, errv, found := setAt(db, string(args[1]), s.nowMs())
	if !found {
		return resp.SetOf()
	}
	if obj == nil {
		return errv
	}
	out := make([]resp.Value, 0, len(obj.Set))
	for m := range obj.Set {
		out = append(out, resp.BulkStr(m))
	}
	return resp.SetOf(out...)
}

func cmdSismember(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, errv, found := setAt(db, string(args[1]), s.nowMs())
	if !found {
		return resp.Int64(0)
	}
	if obj == nil {
		return errv
	}
	if _, ok := obj.Set[string(args[2])]; ok {
		return resp.Int64(1)
	}
	return resp.Int64(0)
}

func cmdSmismember(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, errv, found := setAt(db, string(args[1]), s.nowMs())
	out := make([]resp.Value, len(args)-2)
	if !found {
		for i := range out {
			out[i] = resp.Int64(0)
		}
		return resp.Arr(out...)
	}
	if obj == nil {
		return errv
	}
	for i, a := range args[2:] {
		if _, ok := obj.Set[string(a)]; ok {
			out[i] = resp.Int64(1)
		} else {
			out[i] = resp.Int64(0)
		}
	}
	return resp.Arr(out...)
}

func cmdScard(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, errv, found := setAt(db, string(args[1]), s.nowMs())
	if !found {
		return resp.Int64(0)
	}
	if obj == nil {
		return errv
	}
	return resp.Int64(int64(len(obj.Set)))
}

func cmdSpop(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	key := string(args[1])
	obj, errv, found := setAt(db, key, s.nowMs())
	hasCount := len(args) >= 3
	if !found {
		if hasCount {
			return resp.SetOf()
		}
		return resp.NullBulk()
	}
	if obj == nil {
		return errv
	}
	n := 1
	if hasCount {
		cnt, ok := parseInt(args[2])
		if !ok || cnt < 0 {
			return errNotInteger()
		}
		n = int(cnt)
	}
	members := make([]string, 0, len(obj.Set))
	for m := range obj.Set {
		members = append(members, m)
	}
	rand.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
	if n > len(members) {
		n = len(members)
	}
	picked := members[:n]
	for _, m := range picked {
		delete(obj.Set, m)
	}
	if n > 0 {
		s.keyspaceNotify(db.id, "spop", key)
	}
	if obj.Empty() {
		db.delete(key)
	}
	if hasCount {
		out := make([]resp.Value, len(picked))
		for i, m := range picked {
			out[i] = resp.BulkStr(m)
		}
		return resp.SetOf(out...)
	}
	if len(picked) == 0 {
		return resp.NullBulk()
	}
	return resp.BulkStr(picked[0])
}

func cmdSrandmember(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, errv, found := setAt(db, string(args[1]), s.nowMs())
	hasCount := len(args) >= 3
	if !found {
		if hasCount {
			return resp.Arr()
		}
		return resp.NullBulk()
	}
	if obj == nil {
		return errv
	}
	members := make([]string, 0, len(obj.Set))
	for m := range obj.Set {
		members = append(members, m)
	}
	if !hasCount {
		if len(members) == 0 {
			return resp.NullBulk()
		}
		return resp.BulkStr(members[rand.Intn(len(members))])
	}
	count, ok := parseInt(args[2])
	if !ok {
		return errNotInteger()
	}
	// spec.md §4.3: negative count may repeat; positive count yields
	// distinct elements (capped at the set's size).
	var out []string
	if count >= 0 {
		rand.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
		n := int(count)
		if n > len(members) {
			n = len(members)
		}
		out = members[:n]
	} else {
		n := int(-count)
		for i := 0; i < n && len(members) > 0; i++ {
			out = append(out, members[rand.Intn(len(members))])
		}
	}
	return resp.ArrFrom(out...)
}

func cmdSmove(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	srcKey, dstKey, member := string(args[1]), string(args[2]), string(args[3])
	nowMs := s.nowMs()
	srcObj, errv, found := setAt(db, srcKey, nowMs)
	if !found {
		return resp.Int64(0)
	}
	if srcObj == nil {
		return errv
	}
	if _, ok := srcObj.Set[member]; !ok {
		return resp.Int64(0)
	}
	dstObj, existed := db.get(dstKey, nowMs)
	if existed && dstObj.Kind != KindSet {
		return errWrongType()
	}
	if !existed {
		dstObj = newSetValue()
		db.set(dstKey, dstObj, false)
	}
	delete(srcObj.Set, member)
	dstObj.Set[member] = struct{}{}
	if srcObj.Empty() {
		db.delete(srcKey)
	}
	s.keyspaceNotify(db.id, "smove", srcKey)
	return resp.Int64(1)
}

// loadSets reads every key as a set, treating missing keys as empty
// sets; returns a WRONGTYPE error if any key exists under another kind.
func loadSets(db *Database, keys []string, nowMs int64) ([]map[string]struct{}, resp.Value, bool) {
	out := make([]map[string]struct{}, len(keys))
	for i, k := range keys {
		obj, ok := db.get(k, nowMs)
		if !ok {
			out[i] = map[string]struct{}{}
			continue
		}
		if obj.Kind != KindSet {
			return nil, errWrongType(), false
		}
		out[i] = obj.Set
	}
	return out, resp.Value{}, true
}

func setUnion(sets []map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for _, set := range sets {
		for m := range set {
			out[m] = struct{}{}
		}
	}
	return out
}

func setInter(sets []map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	if len(sets) == 0 {
		return out
	}
	for m := range sets[0] {
		inAll := true
		for _, s := range sets[1:] {
			if _, ok := s[m]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			out[m] = struct{}{}
		}
	}
	return out
}

func setDiff(sets []map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	if len(sets) == 0 {
		return out
	}
	for m := range sets[0] {
		excluded := false
		for _, s := range sets[1:] {
			if _, ok := s[m]; ok {
				excluded = true
				break
			}
		}
		if !excluded {
			out[m] = struct{}{}
		}
	}
	return out
}

func setToValues(set map[string]struct{}) []resp.Value {
	out := make([]resp.Value, 0, len(set))
	for m := range set {
		out = append(out, resp.BulkStr(m))
	}
	return out
}

func setAlgebra(s *Server, c *Conn, keys []string, combine func([]map[string]struct{}) map[string]struct{}) resp.Value {
	db := c.db()
	sets, errv, ok := loadSets(db, keys, s.nowMs())
	if !ok {
		return errv
	}
	return resp.SetOf(setToValues(combine(sets))...)
}

func cmdSunion(s *Server, c *Conn, args [][]byte) resp.Value {
	return setAlgebra(s, c, byteArgsToStrings(args[1:]), setUnion)
}

func cmdSinter(s *Server, c *Conn, args [][]byte) resp.Value {
	return setAlgebra(s, c, byteArgsToStrings(args[1:]), setInter)
}

func cmdSdiff(s *Server, c *Conn, args [][]byte) resp.Value {
	return setAlgebra(s, c, byteArgsToStrings(args[1:]), setDiff)
}

func byteArgsToStrings(args [][]byte) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = string(a)
	}
	return out
}

func setAlgebraStore(s *Server, c *Conn, dst string, keys []string, combine func([]map[string]struct{}) map[string]struct{}) resp.Value {
	db := c.db()
	sets, errv, ok := loadSets(db, keys, s.nowMs())
	if !ok {
		return errv
	}
	result := combine(sets)
	if len(result) == 0 {
		db.delete(dst)
		return resp.Int64(0)
	}
	obj := &Object{Kind: KindSet, Set: result}
	db.set(dst, obj, false)
	s.keyspaceNotify(db.id, "sinterstore", dst)
	return resp.Int64(int64(len(result)))
}

func cmdSunionstore(s *Server, c *Conn, args [][]byte) resp.Value {
	return setAlgebraStore(s, c, string(args[1]), byteArgsToStrings(args[2:]), setUnion)
}

func cmdSinterstore(s *Server, c *Conn, args [][]byte) resp.Value {
	return setAlgebraStore(s, c, string(args[1]), byteArgsToStrings(args[2:]), setInter)
}

func cmdSdiffstore(s *Server, c *Conn, args [][]byte) resp.Value {
	return setAlgebraStore(s, c, string(args[1]), byteArgsToStrings(args[2:]), setDiff)
}

func cmdSintercard(s *Server, c *Conn, args [][]byte) resp.Value {
	numKeys, ok := parseInt(args[1])
	if !ok || numKeys <= 0 || int(numKeys)+2 > len(args)+1 {
		return errSyntax()
	}
	if int(numKeys) > len(args)-2 {
		return errSyntax()
	}
	keys := byteArgsToStrings(args[2 : 2+numKeys])
	limit := -1
	rest := args[2+numKeys:]
	if len(rest) >= 2 && string(rest[0]) != "" {
		for i := 0; i < len(rest); i++ {
			if string(rest[i]) == "LIMIT" {
				n, ok := parseInt(rest[i+1])
				if !ok || n < 0 {
					return errSyntax()
				}
				limit = int(n)
				i++
			}
		}
	}
	db := c.db()
	sets, errv, ok := loadSets(db, keys, s.nowMs())
	if !ok {
		return errv
	}
	inter := setInter(sets)
	if limit >= 0 && limit < len(inter) {
		return resp.Int64(int64(limit))
	}
	return resp.Int64(int64(len(inter)))
}
