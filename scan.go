/*
file: redis-emulator/scan.go

SCAN/HSCAN/SSCAN/ZSCAN, grounded on internal/database/database.go's
flat key-iteration helpers generalized onto the spec's cursor contract
(spec.md §9 "Iteration under mutation"): cursors may miss or repeat
keys under concurrent mutation, but a key present for the entire scan
is returned at least once. This emulator satisfies that with the
simplest correct scheme — a single pass over a snapshot slice, sliced
by an opaque numeric cursor — rather than reproducing the reference
server's reverse-binary bucket cursor, which no command semantics
depend on.
*/
package redisemu

import (
	"strconv"
	"strings"

	"github.com/akashmaji946/redis-emulator/resp"
)

func registerScanCommands(tbl commandTable) {
	tbl.add(&commandSpec{name: "SCAN", arity: -2, handler: cmdScan})
	tbl.add(&commandSpec{name: "HSCAN", arity: -3, handler: cmdHscan})
	tbl.add(&commandSpec{name: "SSCAN", arity: -3, handler: cmdSscan})
	tbl.add(&commandSpec{name: "ZSCAN", arity: -3, handler: cmdZscan})
}

const scanPageSize = 10

// scanOptions parses the common MATCH/COUNT[/TYPE] option tail shared
// by SCAN and its per-type siblings.
type scanOptions struct {
	match   string
	count   int
	typ     string
	noValue bool
}

func parseScanOptions(args [][]byte, allowType bool) (scanOptions, bool) {
	opt := scanOptions{match: "", count: scanPageSize}
	for i := 0; i < len(args); i++ {
		switch strings.ToUpper(string(args[i])) {
		case "MATCH":
			if i+1 >= len(args) {
				return opt, false
			}
			opt.match = string(args[i+1])
			i++
		case "COUNT":
			if i+1 >= len(args) {
				return opt, false
			}
			n, ok := parseInt(args[i+1])
			if !ok || n <= 0 {
				return opt, false
			}
			opt.count = int(n)
			i++
		case "TYPE":
			if !allowType || i+1 >= len(args) {
				return opt, false
			}
			opt.typ = strings.ToLower(string(args[i+1]))
			i++
		case "NOVALUES":
			opt.noValue = true
		default:
			return opt, false
		}
	}
	return opt, true
}

// cmdScan walks the live keyspace. The cursor is the index into a
// fresh, sorted snapshot of key names taken on cursor 0; subsequent
// calls re-snapshot and resume past the last name returned, so keys
// added after the scan started may be missed or seen twice under
// concurrent writes but any key that persists throughout is seen.
func cmdScan(s *Server, c *Conn, args [][]byte) resp.Value {
	cursor, ok := parseInt(args[1])
	if !ok || cursor < 0 {
		return resp.Err("ERR invalid cursor")
	}
	opt, ok := parseScanOptions(args[2:], true)
	if !ok {
		return errSyntax()
	}
	db := c.db()
	nowMs := s.nowMs()
	keys := db.keys(nowMs)
	sortStrings(keys)

	start := int(cursor)
	if start > len(keys) {
		start = len(keys)
	}
	end := start + opt.count
	if end > len(keys) {
		end = len(keys)
	}
	page := keys[start:end]

	var out []string
	for _, k := range page {
		if opt.match != "" && !globMatch(opt.match, k) {
			continue
		}
		if opt.typ != "" {
			obj, found := db.get(k, nowMs)
			if !found || obj.Kind.String() != opt.typ {
				continue
			}
		}
		out = append(out, k)
	}
	nextCursor := "0"
	if end < len(keys) {
		nextCursor = strconv.Itoa(end)
	}
	return resp.Arr(resp.BulkStr(nextCursor), resp.ArrFrom(out...))
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func cmdHscan(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	key := string(args[1])
	cursor, ok := parseInt(args[2])
	if !ok || cursor < 0 {
		return resp.Err("ERR invalid cursor")
	}
	opt, ok := parseScanOptions(args[3:], false)
	if !ok {
		return errSyntax()
	}
	obj, found := db.get(key, s.nowMs())
	if !found {
		return resp.Arr(resp.BulkStr("0"), resp.Arr())
	}
	if obj.Kind != KindHash {
		return errWrongType()
	}
	fields := make([]string, 0, len(obj.Hash.fields))
	for f := range obj.Hash.fields {
		fields = append(fields, f)
	}
	sortStrings(fields)

	start := int(cursor)
	if start > len(fields) {
		start = len(fields)
	}
	end := start + opt.count
	if end > len(fields) {
		end = len(fields)
	}
	var out []resp.Value
	for _, f := range fields[start:end] {
		if opt.match != "" && !globMatch(opt.match, f) {
			continue
		}
		out = append(out, resp.BulkStr(f))
		if !opt.noValue {
			out = append(out, resp.Bulk(obj.Hash.fields[f]))
		}
	}
	nextCursor := "0"
	if end < len(fields) {
		nextCursor = strconv.Itoa(end)
	}
	return resp.Arr(resp.BulkStr(nextCursor), resp.Arr(out...))
}

func cmdSscan(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	key := string(args[1])
	cursor, ok := parseInt(args[2])
	if !ok || cursor < 0 {
		return resp.Err("ERR invalid cursor")
	}
	opt, ok := parseScanOptions(args[3:], false)
	if !ok {
		return errSyntax()
	}
	obj, found := db.get(key, s.nowMs())
	if !found {
		return resp.Arr(resp.BulkStr("0"), resp.Arr())
	}
	if obj.Kind != KindSet && obj.Kind != KindHLL {
		return errWrongType()
	}
	members := make([]string, 0, len(obj.Set))
	for m := range obj.Set {
		members = append(members, m)
	}
	sortStrings(members)

	start := int(cursor)
	if start > len(members) {
		start = len(members)
	}
	end := start + opt.count
	if end > len(members) {
		end = len(members)
	}
	var out []string
	for _, m := range members[start:end] {
		if opt.match != "" && !globMatch(opt.match, m) {
			continue
		}
		out = append(out, m)
	}
	nextCursor := "0"
	if end < len(members) {
		nextCursor = strconv.Itoa(end)
	}
	return resp.Arr(resp.BulkStr(nextCursor), resp.ArrFrom(out...))
}

func cmdZscan(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	key := string(args[1])
	cursor, ok := parseInt(args[2])
	if !ok || cursor < 0 {
		return resp.Err("ERR invalid cursor")
	}
	opt, ok := parseScanOptions(args[3:], false)
	if !ok {
		return errSyntax()
	}
	obj, found := db.get(key, s.nowMs())
	if !found {
		return resp.Arr(resp.BulkStr("0"), resp.Arr())
	}
	if obj.Kind != KindZSet {
		return errWrongType()
	}
	members := make([]string, len(obj.ZSet.order))
	for i, zm := range obj.ZSet.order {
		members[i] = zm.member
	}

	start := int(cursor)
	if start > len(members) {
		start = len(members)
	}
	end := start + opt.count
	if end > len(members) {
		end = len(members)
	}
	var out []resp.Value
	for _, m := range members[start:end] {
		if opt.match != "" && !globMatch(opt.match, m) {
			continue
		}
		score, _ := obj.ZSet.Score(m)
		out = append(out, resp.BulkStr(m), resp.BulkStr(resp.FormatDouble(score)))
	}
	nextCursor := "0"
	if end < len(members) {
		nextCursor = strconv.Itoa(end)
	}
	return resp.Arr(resp.BulkStr(nextCursor), resp.Arr(out...))
}
