/*
file: redis-emulator/cmd_zset.go

Generalizes internal/handlers/handler_zset.go's Zadd/Zscore/Zrange/
Zrem family onto the zset dual-index type in object.go, adding the full
ZADD option grammar (NX/XX/GT/LT/CH/INCR), score/lex range queries, and
the aggregation STORE variants spec.md §4.3 specifies in more depth than
the teacher's own handler.
*/
package redisemu

import (
	"math"
	"math/rand"
	"strings"

	"github.com/akashmaji946/redis-emulator/resp"
)

func registerZSetCommands(tbl commandTable) {
	tbl.add(&commandSpec{name: "ZADD", arity: -4, isWrite: true, handler: cmdZadd})
	tbl.add(&commandSpec{name: "ZSCORE", arity: 3, handler: cmdZscore})
	tbl.add(&commandSpec{name: "ZMSCORE", arity: -3, handler: cmdZmscore})
	tbl.add(&commandSpec{name: "ZCARD", arity: 2, handler: cmdZcard})
	tbl.add(&commandSpec{name: "ZREM", arity: -3, isWrite: true, handler: cmdZrem})
	tbl.add(&commandSpec{name: "ZINCRBY", arity: 4, isWrite: true, handler: cmdZincrby})
	tbl.add(&commandSpec{name: "ZRANK", arity: -3, handler: cmdZrank})
	tbl.add(&commandSpec{name: "ZREVRANK", arity: -3, handler: cmdZrevrank})
	tbl.add(&commandSpec{name: "ZRANGE", arity: -4, handler: cmdZrange})
	tbl.add(&commandSpec{name: "ZREVRANGE", arity: -4, handler: cmdZrevrange})
	tbl.add(&commandSpec{name: "ZRANGEBYSCORE", arity: -4, handler: cmdZrangebyscore})
	tbl.add(&commandSpec{name: "ZREVRANGEBYSCORE", arity: -4, handler: cmdZrevrangebyscore})
	tbl.add(&commandSpec{name: "ZRANGEBYLEX", arity: -4, handler: cmdZrangebylex})
	tbl.add(&commandSpec{name: "ZREVRANGEBYLEX", arity: -4, handler: cmdZrevrangebylex})
	tbl.add(&commandSpec{name: "ZRANGESTORE", arity: -5, isWrite: true, handler: cmdZrangestore})
	tbl.add(&commandSpec{name: "ZCOUNT", arity: 4, handler: cmdZcount})
	tbl.add(&commandSpec{name: "ZLEXCOUNT", arity: 4, handler: cmdZlexcount})
	tbl.add(&commandSpec{name: "ZREMRANGEBYRANK", arity: 4, isWrite: true, handler: cmdZremrangebyrank})
	tbl.add(&commandSpec{name: "ZREMRANGEBYSCORE", arity: 4, isWrite: true, handler: cmdZremrangebyscore})
	tbl.add(&commandSpec{name: "ZREMRANGEBYLEX", arity: 4, isWrite: true, handler: cmdZremrangebylex})
	tbl.add(&commandSpec{name: "ZPOPMIN", arity: -2, isWrite: true, handler: cmdZpopmin})
	tbl.add(&commandSpec{name: "ZPOPMAX", arity: -2, isWrite: true, handler: cmdZpopmax})
	tbl.add(&commandSpec{name: "BZPOPMIN", arity: -3, isWrite: true, handler: cmdBzpopmin})
	tbl.add(&commandSpec{name: "BZPOPMAX", arity: -3, isWrite: true, handler: cmdBzpopmax})
	tbl.add(&commandSpec{name: "ZRANDMEMBER", arity: -2, handler: cmdZrandmember})
	tbl.add(&commandSpec{name: "ZUNIONSTORE", arity: -4, isWrite: true, handler: cmdZunionstore})
	tbl.add(&commandSpec{name: "ZINTERSTORE", arity: -4, isWrite: true, handler: cmdZinterstore})
	tbl.add(&commandSpec{name: "ZDIFFSTORE", arity: -4, isWrite: true, handler: cmdZdiffstore})
	tbl.add(&commandSpec{name: "ZUNION", arity: -3, handler: cmdZunion})
	tbl.add(&commandSpec{name: "ZINTER", arity: -3, handler: cmdZinter})
	tbl.add(&commandSpec{name: "ZDIFF", arity: -3, handler: cmdZdiff})
	tbl.add(&commandSpec{name: "ZINTERCARD", arity: -3, handler: cmdZintercard})
	tbl.add(&commandSpec{name: "ZMPOP", arity: -4, isWrite: true, handler: cmdZmpop})
	tbl.add(&commandSpec{name: "BZMPOP", arity: -5, isWrite: true, handler: cmdBzmpop})
}

func zsetAt(db *Database, key string, nowMs int64) (*Object, resp.Value, bool) {
	obj, ok := db.get(key, nowMs)
	if !ok {
		return nil, resp.Value{}, false
	}
	if obj.Kind != KindZSet {
		return nil, errWrongType(), true
	}
	return obj, resp.Value{}, true
}

func cmdZadd(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	key := string(args[1])
	nowMs := s.nowMs()

	i := 2
	var nx, xx, gt, lt, ch, incr bool
	for i < len(args) {
		opt := strings.ToUpper(string(args[i]))
		switch opt {
		case "NX":
			nx = true
		case "XX":
			xx = true
		case "GT":
			gt = true
		case "LT":
			lt = true
		case "CH":
			ch = true
		case "INCR":
			incr = true
		default:
			goto pairs
		}
		i++
	}
pairs:
	if nx && (gt || lt) {
		return errSyntax()
	}
	if gt && lt {
		return errSyntax()
	}
	if (len(args)-i)%2 != 0 || len(args) == i {
		return errSyntax()
	}
	if incr && len(args)-i != 2 {
		return resp.Err("ERR INCR option supports a single increment-element pair")
	}

	obj, existed := db.get(key, nowMs)
	if existed && obj.Kind != KindZSet {
		return errWrongType()
	}
	if !existed {
		obj = newZSetValue()
	}

	added, changed := 0, 0
	var incrResult resp.Value
	for p := i; p < len(args); p += 2 {
		score, ok := parseFloat(args[p])
		if !ok {
			return errNotFloat()
		}
		if math.IsNaN(score) {
			return resp.Err("ERR value is not a valid float")
		}
		member := string(args[p+1])
		cur, has := obj.ZSet.Score(member)

		if incr {
			if nx && has {
				return resp.NullBulk()
			}
			if xx && !has {
				return resp.NullBulk()
			}
			next := score
			if has {
				next = cur + score
			}
			if (gt && has && next <= cur) || (lt && has && next >= cur) {
				return resp.NullBulk()
			}
			obj.ZSet.Set(member, next)
			incrResult = resp.Bulk([]byte(resp.FormatDouble(next)))
			continue
		}

		if nx && has {
			continue
		}
		if xx && !has {
			continue
		}
		if gt && has && score <= cur {
			continue
		}
		if lt && has && score >= cur {
			continue
		}
		if !has {
			obj.ZSet.Set(member, score)
			added++
			changed++
		} else if cur != score {
			obj.ZSet.Set(member, score)
			changed++
		}
	}

	if !existed && obj.ZSet.Len() > 0 {
		db.set(key, obj, false)
	}
	if obj.ZSet.Len() == 0 && existed {
		db.delete(key)
	}
	if changed > 0 {
		s.keyspaceNotify(db.id, "zadd", key)
		s.blocking.notifyKey(db, db.id, key)
	}

	if incr {
		return incrResult
	}
	if ch {
		return resp.Int64(int64(changed))
	}
	return resp.Int64(int64(added))
}

func cmdZscore(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, errv, found := zsetAt(db, string(args[1]), s.nowMs())
	if !found {
		return resp.NullBulk()
	}
	if obj == nil {
		return errv
	}
	score, ok := obj.ZSet.Score(string(args[2]))
	if !ok {
		return resp.NullBulk()
	}
	return resp.Bulk([]byte(resp.FormatDouble(score)))
}

func cmdZmscore(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, errv, found := zsetAt(db, string(args[1]), s.nowMs())
	out := make([]resp.Value, len(args)-2)
	if !found {
		for i := range out {
			out[i] = resp.NullBulk()
		}
		return resp.Arr(out...)
	}
	if obj == nil {
		return errv
	}
	for i, a := range args[2:] {
		if score, ok := obj.ZSet.Score(string(a)); ok {
			out[i] = resp.Bulk([]byte(resp.FormatDouble(score)))
		} else {
			out[i] = resp.NullBulk()
		}
	}
	return resp.Arr(out...)
}

func cmdZcard(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, errv, found := zsetAt(db, string(args[1]), s.nowMs())
	if !found {
		return resp.Int64(0)
	}
	if obj == nil {
		return errv
	}
	return resp.Int64(int64(obj.ZSet.Len()))
}

func cmdZrem(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	key := string(args[1])
	obj, errv, found := zsetAt(db, key, s.nowMs())
	if !found {
		return resp.Int64(0)
	}
	if obj == nil {
		return errv
	}
	n := 0
	for _, a := range args[2:] {
		if obj.ZSet.Remove(string(a)) {
			n++
		}
	}
	if n > 0 {
		s.keyspaceNotify(db.id, "zrem", key)
	}
	if obj.Empty() {
		db.delete(key)
	}
	return resp.Int64(int64(n))
}

func cmdZincrby(s *Server, c *Conn, args [][]byte) resp.Value {
	delta, ok := parseFloat(args[2])
	if !ok {
		return errNotFloat()
	}
	db := c.db()
	key := string(args[1])
	member := string(args[3])
	nowMs := s.nowMs()
	obj, existed := db.get(key, nowMs)
	if existed && obj.Kind != KindZSet {
		return errWrongType()
	}
	if !existed {
		obj = newZSetValue()
		db.set(key, obj, false)
	}
	cur, _ := obj.ZSet.Score(member)
	next := cur + delta
	if math.IsNaN(next) {
		return resp.Err("ERR resulting score is not a number (NaN)")
	}
	obj.ZSet.Set(member, next)
	s.keyspaceNotify(db.id, "zincr", key)
	return resp.Bulk([]byte(resp.FormatDouble(next)))
}

func rankOf(s *Server, c *Conn, args [][]byte, reverse bool) resp.Value {
	db := c.db()
	obj, errv, found := zsetAt(db, string(args[1]), s.nowMs())
	withScore := len(args) >= 4 && strings.EqualFold(string(args[3]), "WITHSCORE")
	nullReply := resp.NullBulk()
	if withScore {
		nullReply = resp.NullArray()
	}
	if !found {
		return nullReply
	}
	if obj == nil {
		return errv
	}
	rank := obj.ZSet.Rank(string(args[2]))
	if rank < 0 {
		return nullReply
	}
	if reverse {
		rank = obj.ZSet.Len() - 1 - rank
	}
	if withScore {
		score, _ := obj.ZSet.Score(string(args[2]))
		return resp.Arr(resp.Int64(int64(rank)), resp.Bulk([]byte(resp.FormatDouble(score))))
	}
	return resp.Int64(int64(rank))
}

func cmdZrank(s *Server, c *Conn, args [][]byte) resp.Value    { return rankOf(s, c, args, false) }
func cmdZrevrank(s *Server, c *Conn, args [][]byte) resp.Value { return rankOf(s, c, args, true) }

func zMemberValues(order []zmember, withScores bool) []resp.Value {
	if !withScores {
		out := make([]resp.Value, len(order))
		for i, m := range order {
			out[i] = resp.BulkStr(m.member)
		}
		return out
	}
	out := make([]resp.Value, 0, len(order)*2)
	for _, m := range order {
		out = append(out, resp.BulkStr(m.member), resp.Bulk([]byte(resp.FormatDouble(m.score))))
	}
	return out
}

func cmdZrange(s *Server, c *Conn, args [][]byte) resp.Value {
	return zRangeDispatch(s, c, args[1], args[2], args[3], args[4:], false)
}

func cmdZrevrange(s *Server, c *Conn, args [][]byte) resp.Value {
	return zRangeDispatch(s, c, args[1], args[2], args[3], args[4:], true)
}

// zRangeDispatch implements the unified ZRANGE grammar: <key> <min>
// <max> [BYSCORE|BYLEX] [REV] [LIMIT off cnt] [WITHSCORES], as well as
// the legacy ZREVRANGE form (the caller presets REV).
func zRangeDispatch(s *Server, c *Conn, key, minArg, maxArg []byte, opts [][]byte, legacyRev bool) resp.Value {
	db := c.db()
	obj, errv, found := zsetAt(db, string(key), s.nowMs())
	if !found {
		return resp.Arr()
	}
	if obj == nil {
		return errv
	}
	byScore, byLex, rev, withScores := false, false, legacyRev, false
	limitOff, limitCnt := 0, -1
	hasLimit := false
	for i := 0; i < len(opts); i++ {
		switch strings.ToUpper(string(opts[i])) {
		case "BYSCORE":
			byScore = true
		case "BYLEX":
			byLex = true
		case "REV":
			rev = true
		case "WITHSCORES":
			withScores = true
		case "LIMIT":
			if i+2 >= len(opts) {
				return errSyntax()
			}
			off, ok1 := parseInt(opts[i+1])
			cnt, ok2 := parseInt(opts[i+2])
			if !ok1 || !ok2 {
				return errNotInteger()
			}
			limitOff, limitCnt = int(off), int(cnt)
			hasLimit = true
			i += 2
		}
	}
	_ = hasLimit

	var result []zmember
	switch {
	case byScore:
		result = zByScore(obj.ZSet, string(minArg), string(maxArg), rev, limitOff, limitCnt)
	case byLex:
		result = zByLex(obj.ZSet, string(minArg), string(maxArg), rev, limitOff, limitCnt)
	default:
		start, ok1 := parseInt(minArg)
		end, ok2 := parseInt(maxArg)
		if !ok1 || !ok2 {
			return errNotInteger()
		}
		lo, hi, ok := clampRange(start, end, int64(obj.ZSet.Len()))
		if !ok {
			return resp.Arr()
		}
		order := obj.ZSet.order
		if rev {
			for i := int64(len(order)) - 1 - hi; i <= int64(len(order))-1-lo; i++ {
				result = append(result, order[i])
			}
			reverseZMembers(result)
		} else {
			result = append(result, order[lo:hi+1]...)
		}
	}
	return resp.Arr(zMemberValues(result, withScores)...)
}

func reverseZMembers(m []zmember) {
	for i, j := 0, len(m)-1; i < j; i, j = i+1, j-1 {
		m[i], m[j] = m[j], m[i]
	}
}

// parseScoreBound parses a ZRANGEBYSCORE-style endpoint: "(score" is
// exclusive, "-inf"/"+inf" are the unbounded ends.
func parseScoreBound(s string) (float64, bool, bool) {
	exclusive := false
	if strings.HasPrefix(s, "(") {
		exclusive = true
		s = s[1:]
	}
	f, ok := parseFloat([]byte(s))
	return f, exclusive, ok
}

func zByScore(z *zset, minArg, maxArg string, rev bool, limitOff, limitCnt int) []zmember {
	if rev {
		minArg, maxArg = maxArg, minArg
	}
	minVal, minExcl, ok1 := parseScoreBound(minArg)
	maxVal, maxExcl, ok2 := parseScoreBound(maxArg)
	if !ok1 || !ok2 {
		return nil
	}
	var out []zmember
	for _, m := range z.order {
		if m.score < minVal || (minExcl && m.score == minVal) {
			continue
		}
		if m.score > maxVal || (maxExcl && m.score == maxVal) {
			continue
		}
		out = append(out, m)
	}
	if rev {
		reverseZMembers(out)
	}
	return applyLimit(out, limitOff, limitCnt)
}

func applyLimit(items []zmember, off, cnt int) []zmember {
	if off < 0 {
		off = 0
	}
	if off >= len(items) {
		return nil
	}
	items = items[off:]
	if cnt >= 0 && cnt < len(items) {
		items = items[:cnt]
	}
	return items
}

// parseLexBound parses a ZRANGEBYLEX endpoint: "[m" inclusive, "(m"
// exclusive, "-"/"+" unbounded.
func parseLexBound(s string) (val string, inclusive, unbounded bool, isMax bool, ok bool) {
	switch s {
	case "-":
		return "", true, true, false, true
	case "+":
		return "", true, true, true, true
	}
	if len(s) == 0 {
		return "", false, false, false, false
	}
	switch s[0] {
	case '[':
		return s[1:], true, false, false, true
	case '(':
		return s[1:], false, false, false, true
	}
	return "", false, false, false, false
}

func zByLex(z *zset, minArg, maxArg string, rev bool, limitOff, limitCnt int) []zmember {
	if rev {
		minArg, maxArg = maxArg, minArg
	}
	minVal, minIncl, minUnbounded, minIsMax, ok1 := parseLexBound(minArg)
	maxVal, maxIncl, maxUnbounded, _, ok2 := parseLexBound(maxArg)
	if !ok1 || !ok2 {
		return nil
	}
	_ = minIsMax
	var out []zmember
	for _, m := range z.order {
		if !minUnbounded {
			if m.member < minVal || (!minIncl && m.member == minVal) {
				continue
			}
		} else if minVal == "" && minIncl == true && minUnbounded && minArg == "+" {
			continue
		}
		if !maxUnbounded {
			if m.member > maxVal || (!maxIncl && m.member == maxVal) {
				continue
			}
		} else if maxArg == "-" {
			continue
		}
		out = append(out, m)
	}
	if rev {
		reverseZMembers(out)
	}
	return applyLimit(out, limitOff, limitCnt)
}

func cmdZrangebyscore(s *Server, c *Conn, args [][]byte) resp.Value {
	return zScoreLexCommand(s, c, args, zByScore, false)
}

func cmdZrevrangebyscore(s *Server, c *Conn, args [][]byte) resp.Value {
	return zScoreLexCommand(s, c, args, zByScore, true)
}

func cmdZrangebylex(s *Server, c *Conn, args [][]byte) resp.Value {
	return zScoreLexCommand(s, c, args, zByLex, false)
}

func cmdZrevrangebylex(s *Server, c *Conn, args [][]byte) resp.Value {
	return zScoreLexCommand(s, c, args, zByLex, true)
}

func zScoreLexCommand(s *Server, c *Conn, args [][]byte, rangeFn func(*zset, string, string, bool, int, int) []zmember, rev bool) resp.Value {
	db := c.db()
	obj, errv, found := zsetAt(db, string(args[1]), s.nowMs())
	if !found {
		return resp.Arr()
	}
	if obj == nil {
		return errv
	}
	// In the REV forms args[2] is the upper bound; rangeFn swaps the two
	// bounds itself when rev is set.
	minArg, maxArg := string(args[2]), string(args[3])
	withScores := false
	limitOff, limitCnt := 0, -1
	for i := 4; i < len(args); i++ {
		switch strings.ToUpper(string(args[i])) {
		case "WITHSCORES":
			withScores = true
		case "LIMIT":
			if i+2 >= len(args) {
				return errSyntax()
			}
			off, ok1 := parseInt(args[i+1])
			cnt, ok2 := parseInt(args[i+2])
			if !ok1 || !ok2 {
				return errNotInteger()
			}
			limitOff, limitCnt = int(off), int(cnt)
			i += 2
		}
	}
	result := rangeFn(obj.ZSet, minArg, maxArg, rev, limitOff, limitCnt)
	return resp.Arr(zMemberValues(result, withScores)...)
}

func cmdZrangestore(s *Server, c *Conn, args [][]byte) resp.Value {
	dst := string(args[1])
	reply := zRangeDispatch(s, c, args[2], args[3], args[4], args[5:], false)
	if reply.IsError() {
		return reply
	}
	db := c.db()
	if len(reply.Arr) == 0 {
		db.delete(dst)
		return resp.Int64(0)
	}
	newZ := newZSetValue()
	for i := 0; i < len(reply.Arr); i++ {
		newZ.ZSet.Set(string(reply.Arr[i].Bulk), 0)
	}
	// zRangeDispatch above wasn't asked WITHSCORES, so scores must be
	// re-read from the source set to populate the stored copy.
	src, _ := c.db().get(string(args[2]), s.nowMs())
	if src != nil && src.Kind == KindZSet {
		for member := range newZ.ZSet.byMember {
			if sc, ok := src.ZSet.Score(member); ok {
				newZ.ZSet.Set(member, sc)
			}
		}
	}
	db.set(dst, newZ, false)
	s.keyspaceNotify(db.id, "zadd", dst)
	return resp.Int64(int64(newZ.ZSet.Len()))
}

func cmdZcount(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, errv, found := zsetAt(db, string(args[1]), s.nowMs())
	if !found {
		return resp.Int64(0)
	}
	if obj == nil {
		return errv
	}
	result := zByScore(obj.ZSet, string(args[2]), string(args[3]), false, 0, -1)
	return resp.Int64(int64(len(result)))
}

func cmdZlexcount(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, errv, found := zsetAt(db, string(args[1]), s.nowMs())
	if !found {
		return resp.Int64(0)
	}
	if obj == nil {
		return errv
	}
	result := zByLex(obj.ZSet, string(args[2]), string(args[3]), false, 0, -1)
	return resp.Int64(int64(len(result)))
}

func cmdZremrangebyrank(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	key := string(args[1])
	obj, errv, found := zsetAt(db, key, s.nowMs())
	if !found {
		return resp.Int64(0)
	}
	if obj == nil {
		return errv
	}
	start, ok1 := parseInt(args[2])
	end, ok2 := parseInt(args[3])
	if !ok1 || !ok2 {
		return errNotInteger()
	}
	lo, hi, ok := clampRange(start, end, int64(obj.ZSet.Len()))
	if !ok {
		return resp.Int64(0)
	}
	toRemove := append([]zmember{}, obj.ZSet.order[lo:hi+1]...)
	for _, m := range toRemove {
		obj.ZSet.Remove(m.member)
	}
	if len(toRemove) > 0 {
		s.keyspaceNotify(db.id, "zremrangebyrank", key)
	}
	if obj.Empty() {
		db.delete(key)
	}
	return resp.Int64(int64(len(toRemove)))
}

func cmdZremrangebyscore(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	key := string(args[1])
	obj, errv, found := zsetAt(db, key, s.nowMs())
	if !found {
		return resp.Int64(0)
	}
	if obj == nil {
		return errv
	}
	result := zByScore(obj.ZSet, string(args[2]), string(args[3]), false, 0, -1)
	for _, m := range result {
		obj.ZSet.Remove(m.member)
	}
	if len(result) > 0 {
		s.keyspaceNotify(db.id, "zremrangebyscore", key)
	}
	if obj.Empty() {
		db.delete(key)
	}
	return resp.Int64(int64(len(result)))
}

func cmdZremrangebylex(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	key := string(args[1])
	obj, errv, found := zsetAt(db, key, s.nowMs())
	if !found {
		return resp.Int64(0)
	}
	if obj == nil {
		return errv
	}
	result := zByLex(obj.ZSet, string(args[2]), string(args[3]), false, 0, -1)
	for _, m := range result {
		obj.ZSet.Remove(m.member)
	}
	if len(result) > 0 {
		s.keyspaceNotify(db.id, "zremrangebylex", key)
	}
	if obj.Empty() {
		db.delete(key)
	}
	return resp.Int64(int64(len(result)))
}

func zPopCommon(s *Server, c *Conn, args [][]byte, min bool) resp.Value {
	db := c.db()
	key := string(args[1])
	obj, errv, found := zsetAt(db, key, s.nowMs())
	if !found {
		return resp.Arr()
	}
	if obj == nil {
		return errv
	}
	count := 1
	if len(args) >= 3 {
		n, ok := parseInt(args[2])
		if !ok || n < 0 {
			return errNotInteger()
		}
		count = int(n)
	}
	if count > obj.ZSet.Len() {
		count = obj.ZSet.Len()
	}
	var popped []zmember
	for i := 0; i < count; i++ {
		if len(obj.ZSet.order) == 0 {
			break
		}
		var m zmember
		if min {
			m = obj.ZSet.order[0]
		} else {
			m = obj.ZSet.order[len(obj.ZSet.order)-1]
		}
		obj.ZSet.Remove(m.member)
		popped = append(popped, m)
	}
	event := "zpopmax"
	if min {
		event = "zpopmin"
	}
	if len(popped) > 0 {
		s.keyspaceNotify(db.id, event, key)
	}
	if obj.Empty() {
		db.delete(key)
	}
	return resp.Arr(zMemberValues(popped, true)...)
}

func cmdZpopmin(s *Server, c *Conn, args [][]byte) resp.Value { return zPopCommon(s, c, args, true) }
func cmdZpopmax(s *Server, c *Conn, args [][]byte) resp.Value { return zPopCommon(s, c, args, false) }

func cmdBzpopmin(s *Server, c *Conn, args [][]byte) resp.Value {
	return blockingZPopImpl(s, c, args, true)
}

func cmdBzpopmax(s *Server, c *Conn, args [][]byte) resp.Value {
	return blockingZPopImpl(s, c, args, false)
}

func blockingZPopImpl(s *Server, c *Conn, args [][]byte, min bool) resp.Value {
	timeout, ok := parseTimeout(args[len(args)-1])
	if !ok {
		return errSyntax()
	}
	keys := make([]string, 0, len(args)-2)
	for _, a := range args[1 : len(args)-1] {
		keys = append(keys, string(a))
	}
	pred := func(db *Database, key string) bool {
		obj, ok := db.store[key]
		return ok && obj.Kind == KindZSet && obj.ZSet.Len() > 0
	}
	onReady := func(key string) resp.Value {
		db := c.db()
		obj, ok := db.store[key]
		if !ok || obj.Kind != KindZSet || obj.ZSet.Len() == 0 {
			return resp.NullArray()
		}
		var m zmember
		if min {
			m = obj.ZSet.order[0]
		} else {
			m = obj.ZSet.order[len(obj.ZSet.order)-1]
		}
		obj.ZSet.Remove(m.member)
		if obj.Empty() {
			db.delete(key)
		}
		return resp.Arr(resp.BulkStr(key), resp.BulkStr(m.member), resp.Bulk([]byte(resp.FormatDouble(m.score))))
	}
	return blockUntil(s, c, keys, pred, timeout, onReady)
}

func cmdZrandmember(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, errv, found := zsetAt(db, string(args[1]), s.nowMs())
	if !found {
		if len(args) >= 3 {
			return resp.Arr()
		}
		return resp.NullBulk()
	}
	if obj == nil {
		return errv
	}
	members := make([]string, 0, obj.ZSet.Len())
	for m := range obj.ZSet.byMember {
		members = append(members, m)
	}
	if len(args) == 2 {
		if len(members) == 0 {
			return resp.NullBulk()
		}
		return resp.BulkStr(members[pseudoRandIndex(len(members))])
	}
	count, ok := parseInt(args[2])
	if !ok {
		return errNotInteger()
	}
	withScores := len(args) >= 4 && strings.EqualFold(string(args[3]), "WITHSCORES")
	var picks []string
	if count >= 0 {
		shuffleStrings(members)
		n := int(count)
		if n > len(members) {
			n = len(members)
		}
		picks = members[:n]
	} else {
		n := int(-count)
		for i := 0; i < n && len(members) > 0; i++ {
			picks = append(picks, members[pseudoRandIndex(len(members))])
		}
	}
	if withScores {
		out := make([]resp.Value, 0, len(picks)*2)
		for _, m := range picks {
			score, _ := obj.ZSet.Score(m)
			out = append(out, resp.BulkStr(m), resp.Bulk([]byte(resp.FormatDouble(score))))
		}
		return resp.Arr(out...)
	}
	return resp.ArrFrom(picks...)
}

// aggregateZSets combines per-key zsets under weights and an
// aggregation function, per spec.md §4.3's ZUNIONSTORE/ZINTERSTORE/
// ZDIFFSTORE "per-key weights" requirement.
func aggregateZSets(db *Database, keys []string, weights []float64, aggregate string, combine func([]map[string]float64) map[string]struct{}, nowMs int64) (map[string]float64, resp.Value, bool) {
	scores := make([]map[string]float64, len(keys))
	for i, k := range keys {
		obj, ok := db.get(k, nowMs)
		m := make(map[string]float64)
		if ok {
			switch obj.Kind {
			case KindZSet:
				for mem, sc := range obj.ZSet.byMember {
					m[mem] = sc * weights[i]
				}
			case KindSet:
				for mem := range obj.Set {
					m[mem] = 1 * weights[i]
				}
			default:
				return nil, errWrongType(), false
			}
		}
		scores[i] = m
	}
	members := combine(scores)
	out := make(map[string]float64, len(members))
	for mem := range members {
		var result float64
		first := true
		for _, m := range scores {
			v, ok := m[mem]
			if !ok {
				continue
			}
			if first {
				result = v
				first = false
				continue
			}
			switch aggregate {
			case "MIN":
				if v < result {
					result = v
				}
			case "MAX":
				if v > result {
					result = v
				}
			default:
				result += v
			}
		}
		out[mem] = result
	}
	return out, resp.Value{}, true
}

func unionMembers(scores []map[string]float64) map[string]struct{} {
	out := make(map[string]struct{})
	for _, m := range scores {
		for k := range m {
			out[k] = struct{}{}
		}
	}
	return out
}

func interMembers(scores []map[string]float64) map[string]struct{} {
	out := make(map[string]struct{})
	if len(scores) == 0 {
		return out
	}
	for k := range scores[0] {
		inAll := true
		for _, m := range scores[1:] {
			if _, ok := m[k]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			out[k] = struct{}{}
		}
	}
	return out
}

func diffMembers(scores []map[string]float64) map[string]struct{} {
	out := make(map[string]struct{})
	if len(scores) == 0 {
		return out
	}
	for k := range scores[0] {
		excluded := false
		for _, m := range scores[1:] {
			if _, ok := m[k]; ok {
				excluded = true
				break
			}
		}
		if !excluded {
			out[k] = struct{}{}
		}
	}
	return out
}

// parseZStoreArgs parses the shared <numkeys> key[...] [WEIGHTS ...]
// [AGGREGATE SUM|MIN|MAX] tail used by ZUNIONSTORE/ZINTERSTORE/ZDIFFSTORE
// and their read-only ZUNION/ZINTER/ZDIFF counterparts.
func parseZStoreArgs(args [][]byte, allowWeights bool) (keys []string, weights []float64, aggregate string, withScores bool, errv resp.Value, ok bool) {
	numKeys, pok := parseInt(args[0])
	if !pok || numKeys <= 0 || int(numKeys) > len(args)-1 {
		return nil, nil, "", false, errSyntax(), false
	}
	keys = byteArgsToStrings(args[1 : 1+numKeys])
	weights = make([]float64, numKeys)
	for i := range weights {
		weights[i] = 1
	}
	aggregate = "SUM"
	rest := args[1+numKeys:]
	for i := 0; i < len(rest); i++ {
		switch strings.ToUpper(string(rest[i])) {
		case "WEIGHTS":
			if !allowWeights {
				return nil, nil, "", false, errSyntax(), false
			}
			for j := 0; j < int(numKeys); j++ {
				i++
				if i >= len(rest) {
					return nil, nil, "", false, errSyntax(), false
				}
				w, ok := parseFloat(rest[i])
				if !ok {
					return nil, nil, "", false, errNotFloat(), false
				}
				weights[j] = w
			}
		case "AGGREGATE":
			i++
			if i >= len(rest) {
				return nil, nil, "", false, errSyntax(), false
			}
			aggregate = strings.ToUpper(string(rest[i]))
		case "WITHSCORES":
			withScores = true
		default:
			return nil, nil, "", false, errSyntax(), false
		}
	}
	return keys, weights, aggregate, withScores, resp.Value{}, true
}

func zStoreCommon(s *Server, c *Conn, dst string, args [][]byte, combine func([]map[string]float64) map[string]struct{}) resp.Value {
	keys, weights, aggregate, _, errv, ok := parseZStoreArgs(args, true)
	if !ok {
		return errv
	}
	db := c.db()
	scores, errv2, ok2 := aggregateZSets(db, keys, weights, aggregate, combine, s.nowMs())
	if !ok2 {
		return errv2
	}
	if len(scores) == 0 {
		db.delete(dst)
		return resp.Int64(0)
	}
	z := newZSetValue()
	for m, sc := range scores {
		z.ZSet.Set(m, sc)
	}
	db.set(dst, z, false)
	s.keyspaceNotify(db.id, "zadd", dst)
	return resp.Int64(int64(z.ZSet.Len()))
}

func cmdZunionstore(s *Server, c *Conn, args [][]byte) resp.Value {
	return zStoreCommon(s, c, string(args[1]), args[2:], unionMembers)
}

func cmdZinterstore(s *Server, c *Conn, args [][]byte) resp.Value {
	return zStoreCommon(s, c, string(args[1]), args[2:], interMembers)
}

func cmdZdiffstore(s *Server, c *Conn, args [][]byte) resp.Value {
	return zStoreCommon(s, c, string(args[1]), args[2:], diffMembers)
}

func zReadOnlyCommon(s *Server, c *Conn, args [][]byte, combine func([]map[string]float64) map[string]struct{}, allowWeights bool) resp.Value {
	keys, weights, aggregate, withScores, errv, ok := parseZStoreArgs(args, allowWeights)
	if !ok {
		return errv
	}
	db := c.db()
	scores, errv2, ok2 := aggregateZSets(db, keys, weights, aggregate, combine, s.nowMs())
	if !ok2 {
		return errv2
	}
	order := make([]zmember, 0, len(scores))
	for m, sc := range scores {
		order = append(order, zmember{member: m, score: sc})
	}
	sortZMembers(order)
	return resp.Arr(zMemberValues(order, withScores)...)
}

func sortZMembers(order []zmember) {
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && zless(order[j], order[j-1]); j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
}

func cmdZunion(s *Server, c *Conn, args [][]byte) resp.Value {
	return zReadOnlyCommon(s, c, args, unionMembers, true)
}

func cmdZinter(s *Server, c *Conn, args [][]byte) resp.Value {
	return zReadOnlyCommon(s, c, args, interMembers, true)
}

func cmdZdiff(s *Server, c *Conn, args [][]byte) resp.Value {
	return zReadOnlyCommon(s, c, args, diffMembers, false)
}

func cmdZintercard(s *Server, c *Conn, args [][]byte) resp.Value {
	numKeys, ok := parseInt(args[1])
	if !ok || numKeys <= 0 || int(numKeys) > len(args)-1 {
		return errSyntax()
	}
	keys := byteArgsToStrings(args[2 : 2+numKeys])
	limit := -1
	rest := args[2+numKeys:]
	for i := 0; i < len(rest); i++ {
		if strings.EqualFold(string(rest[i]), "LIMIT") {
			n, ok := parseInt(rest[i+1])
			if !ok || n < 0 {
				return errSyntax()
			}
			limit = int(n)
			i++
		}
	}
	db := c.db()
	weights := make([]float64, numKeys)
	for i := range weights {
		weights[i] = 1
	}
	scores, errv, ok2 := aggregateZSets(db, keys, weights, "SUM", interMembers, s.nowMs())
	if !ok2 {
		return errv
	}
	if limit >= 0 && limit < len(scores) {
		return resp.Int64(int64(limit))
	}
	return resp.Int64(int64(len(scores)))
}

// doZmpop implements ZMPOP's grammar: <numkeys> key [key ...] MIN|MAX
// [COUNT count]. Shared by ZMPOP and BZMPOP's non-blocking first try.
func doZmpop(s *Server, c *Conn, args [][]byte) resp.Value {
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
	var min bool
	switch strings.ToUpper(string(rest[0])) {
	case "MIN":
		min = true
	case "MAX":
		min = false
	default:
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
		if obj.Kind != KindZSet {
			return errWrongType()
		}
		if obj.ZSet.Len() == 0 {
			continue
		}
		n := count
		if n > int64(obj.ZSet.Len()) {
			n = int64(obj.ZSet.Len())
		}
		popped := make([]zmember, 0, n)
		for i := int64(0); i < n; i++ {
			var m zmember
			if min {
				m = obj.ZSet.order[0]
			} else {
				m = obj.ZSet.order[len(obj.ZSet.order)-1]
			}
			obj.ZSet.Remove(m.member)
			popped = append(popped, m)
		}
		event := "zpopmax"
		if min {
			event = "zpopmin"
		}
		s.keyspaceNotify(db.id, event, key)
		if obj.Empty() {
			db.delete(key)
		}
		pairs := make([]resp.Value, len(popped))
		for i, m := range popped {
			pairs[i] = resp.Arr(resp.BulkStr(m.member), resp.Bulk([]byte(resp.FormatDouble(m.score))))
		}
		return resp.Arr(resp.BulkStr(key), resp.Arr(pairs...))
	}
	return resp.NullArray()
}

func cmdZmpop(s *Server, c *Conn, args [][]byte) resp.Value {
	return doZmpop(s, c, args[1:])
}

func cmdBzmpop(s *Server, c *Conn, args [][]byte) resp.Value {
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
		return ok && obj.Kind == KindZSet && obj.ZSet.Len() > 0
	}
	onReady := func(key string) resp.Value {
		return doZmpop(s, c, rest)
	}
	return blockUntil(s, c, keys, pred, timeout, onReady)
}

func pseudoRandIndex(n int) int {
	return rand.Intn(n)
}

func shuffleStrings(s []string) {
	rand.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}

