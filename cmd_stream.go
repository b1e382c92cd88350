/*
file: redis-emulator/cmd_stream.go

Commands over the Stream type defined in stream.go. New relative to
the teacher (no stream support there); grounded on spec.md §4.3's XADD/
XREAD/consumer-group description, and on cmd_list.go's blockUntil for
the BLOCK option shared with XREAD/XREADGROUP.
*/
package redisemu

import (
	"strconv"
	"strings"
	"time"

	"github.com/akashmaji946/redis-emulator/resp"
)

func registerStreamCommands(tbl commandTable) {
	tbl.add(&commandSpec{name: "XADD", arity: -5, isWrite: true, handler: cmdXadd})
	tbl.add(&commandSpec{name: "XLEN", arity: 2, handler: cmdXlen})
	tbl.add(&commandSpec{name: "XRANGE", arity: -4, handler: cmdXrange})
	tbl.add(&commandSpec{name: "XREVRANGE", arity: -4, handler: cmdXrevrange})
	tbl.add(&commandSpec{name: "XDEL", arity: -3, isWrite: true, handler: cmdXdel})
	tbl.add(&commandSpec{name: "XTRIM", arity: -4, isWrite: true, handler: cmdXtrim})
	tbl.add(&commandSpec{name: "XREAD", arity: -4, handler: cmdXread})
	tbl.add(&commandSpec{name: "XREADGROUP", arity: -7, isWrite: true, handler: cmdXreadgroup})
	tbl.add(&commandSpec{name: "XGROUP", arity: -2, isWrite: true, handler: cmdXgroup})
	tbl.add(&commandSpec{name: "XACK", arity: -4, isWrite: true, handler: cmdXack})
	tbl.add(&commandSpec{name: "XCLAIM", arity: -6, isWrite: true, handler: cmdXclaim})
	tbl.add(&commandSpec{name: "XAUTOCLAIM", arity: -7, isWrite: true, handler: cmdXautoclaim})
	tbl.add(&commandSpec{name: "XPENDING", arity: -3, handler: cmdXpending})
	tbl.add(&commandSpec{name: "XSETID", arity: -3, isWrite: true, handler: cmdXsetid})
	tbl.add(&commandSpec{name: "XINFO", arity: -3, handler: cmdXinfo})
}

func streamAt(db *Database, key string, nowMs int64) (*Object, resp.Value, bool) {
	obj, ok := db.get(key, nowMs)
	if !ok {
		return nil, resp.Value{}, false
	}
	if obj.Kind != KindStream {
		return nil, errWrongType(), true
	}
	return obj, resp.Value{}, true
}

func cmdXadd(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	key := string(args[1])
	nowMs := s.nowMs()

	i := 2
	maxLen, minID := -1, ""
	hasTrim := false
	for i < len(args) {
		opt := strings.ToUpper(string(args[i]))
		switch opt {
		case "NOMKSTREAM":
			i++
		case "MAXLEN", "MINID":
			i++
			if i < len(args) && string(args[i]) == "~" || i < len(args) && string(args[i]) == "=" {
				i++
			}
			if i >= len(args) {
				return errSyntax()
			}
			if opt == "MAXLEN" {
				n, ok := parseInt(args[i])
				if !ok {
					return errNotInteger()
				}
				maxLen = int(n)
			} else {
				minID = string(args[i])
			}
			hasTrim = true
			i++
		case "LIMIT":
			i += 2
		default:
			goto idarg
		}
	}
idarg:
	if i >= len(args) {
		return errSyntax()
	}
	idArg := string(args[i])
	i++
	if (len(args)-i)%2 != 0 || len(args) == i {
		return resp.Err("ERR wrong number of arguments for 'xadd' command")
	}

	obj, existed := db.get(key, nowMs)
	if existed && obj.Kind != KindStream {
		return errWrongType()
	}
	if !existed {
		obj = &Object{Kind: KindStream, Stream: newStream()}
	}

	var id StreamID
	if idArg == "*" {
		id = obj.Stream.nextAutoID(nowMs)
	} else if strings.HasSuffix(idArg, "-*") {
		ms, err := strconv.ParseUint(strings.TrimSuffix(idArg, "-*"), 10, 64)
		if err != nil {
			return resp.Err("ERR Invalid stream ID specified as stream command argument")
		}
		seq := uint64(0)
		if ms == obj.Stream.LastID.Ms {
			seq = obj.Stream.LastID.Seq + 1
		}
		id = StreamID{Ms: ms, Seq: seq}
	} else {
		parsed, err := ParseStreamID(idArg, 0)
		if err != nil {
			return resp.Err("ERR Invalid stream ID specified as stream command argument")
		}
		id = parsed
	}

	fields := make([]KV, 0, (len(args)-i)/2)
	for p := i; p < len(args); p += 2 {
		fields = append(fields, KV{Field: string(args[p]), Value: args[p+1]})
	}
	if err := obj.Stream.Append(id, fields); err != nil {
		return resp.Err(err.Error())
	}
	if !existed {
		db.set(key, obj, false)
	}
	if hasTrim {
		if maxLen >= 0 {
			obj.Stream.TrimMaxLen(maxLen)
		}
		if minID != "" {
			if mid, err := ParseStreamID(minID, 0); err == nil {
				obj.Stream.TrimMinID(mid)
			}
		}
	}
	s.keyspaceNotify(db.id, "xadd", key)
	s.blocking.notifyKey(db, db.id, key)
	return resp.BulkStr(id.String())
}

func cmdXlen(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, errv, found := streamAt(db, string(args[1]), s.nowMs())
	if !found {
		return resp.Int64(0)
	}
	if obj == nil {
		return errv
	}
	return resp.Int64(int64(obj.Stream.Len()))
}

func streamEntryValue(e StreamEntry) resp.Value {
	fields := make([]resp.Value, 0, len(e.Fields)*2)
	for _, kv := range e.Fields {
		fields = append(fields, resp.BulkStr(kv.Field), resp.Bulk(kv.Value))
	}
	return resp.Arr(resp.BulkStr(e.ID.String()), resp.Arr(fields...))
}

func streamEntriesValue(entries []StreamEntry) resp.Value {
	out := make([]resp.Value, len(entries))
	for i, e := range entries {
		out[i] = streamEntryValue(e)
	}
	return resp.Arr(out...)
}

func parseRangeID(s string, missingSeq uint64) (StreamID, error) {
	switch s {
	case "-":
		return StreamID{}, nil
	case "+":
		return StreamID{Ms: ^uint64(0), Seq: ^uint64(0)}, nil
	}
	excl := strings.HasPrefix(s, "(")
	if excl {
		s = s[1:]
	}
	id, err := ParseStreamID(s, missingSeq)
	if err != nil {
		return id, err
	}
	if excl {
		if id.Seq == ^uint64(0) {
			id.Ms++
			id.Seq = 0
		} else {
			id.Seq++
		}
	}
	return id, nil
}

func cmdXrange(s *Server, c *Conn, args [][]byte) resp.Value {
	return xRangeCommon(s, c, args, false)
}

func cmdXrevrange(s *Server, c *Conn, args [][]byte) resp.Value {
	return xRangeCommon(s, c, args, true)
}

func xRangeCommon(s *Server, c *Conn, args [][]byte, rev bool) resp.Value {
	db := c.db()
	obj, errv, found := streamAt(db, string(args[1]), s.nowMs())
	if !found {
		return resp.Arr()
	}
	if obj == nil {
		return errv
	}
	startArg, endArg := string(args[2]), string(args[3])
	if rev {
		startArg, endArg = string(args[3]), string(args[2])
	}
	start, err1 := parseRangeID(startArg, 0)
	end, err2 := parseRangeID(endArg, ^uint64(0))
	if err1 != nil || err2 != nil {
		return resp.Err("ERR Invalid stream ID specified as stream command argument")
	}
	count := -1
	if len(args) >= 6 && strings.EqualFold(string(args[4]), "COUNT") {
		n, ok := parseInt(args[5])
		if !ok {
			return errNotInteger()
		}
		count = int(n)
	}
	var entries []StreamEntry
	if rev {
		entries = obj.Stream.RevRange(end, start, count)
	} else {
		entries = obj.Stream.Range(start, end, count)
	}
	return streamEntriesValue(entries)
}

func cmdXdel(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	key := string(args[1])
	obj, errv, found := streamAt(db, key, s.nowMs())
	if !found {
		return resp.Int64(0)
	}
	if obj == nil {
		return errv
	}
	ids := make(map[StreamID]bool, len(args)-2)
	for _, a := range args[2:] {
		id, err := ParseStreamID(string(a), 0)
		if err != nil {
			return resp.Err("ERR Invalid stream ID specified as stream command argument")
		}
		ids[id] = true
	}
	kept := obj.Stream.Entries[:0]
	n := 0
	for _, e := range obj.Stream.Entries {
		if ids[e.ID] {
			n++
			if obj.Stream.MaxDelID.Less(e.ID) {
				obj.Stream.MaxDelID = e.ID
			}
			continue
		}
		kept = append(kept, e)
	}
	obj.Stream.Entries = append([]StreamEntry{}, kept...)
	if n > 0 {
		s.keyspaceNotify(db.id, "xdel", key)
	}
	return resp.Int64(int64(n))
}

func cmdXtrim(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	key := string(args[1])
	obj, errv, found := streamAt(db, key, s.nowMs())
	if !found {
		return resp.Int64(0)
	}
	if obj == nil {
		return errv
	}
	strategy := strings.ToUpper(string(args[2]))
	i := 3
	if i < len(args) && (string(args[i]) == "~" || string(args[i]) == "=") {
		i++
	}
	if i >= len(args) {
		return errSyntax()
	}
	var removed int
	switch strategy {
	case "MAXLEN":
		n, ok := parseInt(args[i])
		if !ok {
			return errNotInteger()
		}
		removed = obj.Stream.TrimMaxLen(int(n))
	case "MINID":
		id, err := ParseStreamID(string(args[i]), 0)
		if err != nil {
			return resp.Err("ERR Invalid stream ID specified as stream command argument")
		}
		removed = obj.Stream.TrimMinID(id)
	default:
		return errSyntax()
	}
	if removed > 0 {
		s.keyspaceNotify(db.id, "xtrim", key)
	}
	return resp.Int64(int64(removed))
}

func cmdXsetid(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	key := string(args[1])
	nowMs := s.nowMs()
	obj, existed := db.get(key, nowMs)
	if existed && obj.Kind != KindStream {
		return errWrongType()
	}
	if !existed {
		obj = &Object{Kind: KindStream, Stream: newStream()}
		db.set(key, obj, false)
	}
	id, err := ParseStreamID(string(args[2]), 0)
	if err != nil {
		return resp.Err("ERR Invalid stream ID specified as stream command argument")
	}
	obj.Stream.LastID = id
	return resp.Str("OK")
}

// xReadOne returns the stream's entries with IDs greater than after,
// capped at count when count >= 0; XREAD/XREADGROUP build the per-key
// [key, entries] reply from it.
func xReadOne(stream *Stream, after StreamID, count int) []StreamEntry {
	start := after
	if start.Seq == ^uint64(0) {
		start.Ms++
		start.Seq = 0
	} else {
		start.Seq++
	}
	end := StreamID{Ms: ^uint64(0), Seq: ^uint64(0)}
	return stream.Range(start, end, count)
}

func cmdXread(s *Server, c *Conn, args [][]byte) resp.Value {
	i := 1
	count := -1
	var blockMs int64 = -1
	for i < len(args) {
		switch strings.ToUpper(string(args[i])) {
		case "COUNT":
			n, ok := parseInt(args[i+1])
			if !ok {
				return errNotInteger()
			}
			count = int(n)
			i += 2
		case "BLOCK":
			n, ok := parseInt(args[i+1])
			if !ok {
				return errNotInteger()
			}
			blockMs = n
			i += 2
		case "STREAMS":
			i++
			goto streams
		default:
			return errSyntax()
		}
	}
streams:
	rest := args[i:]
	if len(rest) == 0 || len(rest)%2 != 0 {
		return resp.Err("ERR Unbalanced XREAD list of streams: for each stream key an ID or '$' must be specified.")
	}
	n := len(rest) / 2
	keys := make([]string, n)
	ids := make([]StreamID, n)
	db := c.db()
	nowMs := s.nowMs()
	for j := 0; j < n; j++ {
		keys[j] = string(rest[j])
		idArg := string(rest[n+j])
		if idArg == "$" {
			if obj, ok := db.get(keys[j], nowMs); ok && obj.Kind == KindStream {
				ids[j] = obj.Stream.LastID
			}
			continue
		}
		id, err := ParseStreamID(idArg, ^uint64(0))
		if err != nil {
			return resp.Err("ERR Invalid stream ID specified as stream command argument")
		}
		ids[j] = id
	}

	collect := func() resp.Value {
		var out []resp.Value
		for j, k := range keys {
			obj, ok := db.get(k, nowMs)
			if !ok || obj.Kind != KindStream {
				continue
			}
			entries := xReadOne(obj.Stream, ids[j], count)
			if len(entries) > 0 {
				out = append(out, resp.Arr(resp.BulkStr(k), streamEntriesValue(entries)))
			}
		}
		if len(out) == 0 {
			return resp.NullArray()
		}
		return resp.Arr(out...)
	}

	if reply := collect(); !reply.IsNull {
		return reply
	}
	if blockMs < 0 {
		return resp.NullArray()
	}

	pred := func(db *Database, key string) bool {
		for j, k := range keys {
			if k != key {
				continue
			}
			obj, ok := db.store[key]
			return ok && obj.Kind == KindStream && obj.Stream.LastID != ids[j] && ids[j].Less(obj.Stream.LastID)
		}
		return false
	}
	onReady := func(string) resp.Value { return collect() }
	timeout := time.Duration(blockMs) * time.Millisecond
	return blockUntil(s, c, keys, pred, timeout, onReady)
}

func cmdXgroup(s *Server, c *Conn, args [][]byte) resp.Value {
	sub := strings.ToUpper(string(args[1]))
	db := c.db()
	nowMs := s.nowMs()
	switch sub {
	case "CREATE":
		if len(args) < 5 {
			return errSyntax()
		}
		key := string(args[2])
		group := string(args[3])
		obj, existed := db.get(key, nowMs)
		mkstream := len(args) >= 6 && strings.EqualFold(string(args[5]), "MKSTREAM")
		if !existed {
			if !mkstream {
				return resp.Err("ERR The XGROUP subcommand requires the key to exist. Note that for CREATE you may want to use the MKSTREAM option to create an empty stream automatically.")
			}
			obj = &Object{Kind: KindStream, Stream: newStream()}
			db.set(key, obj, false)
		}
		if obj.Kind != KindStream {
			return errWrongType()
		}
		if _, ok := obj.Stream.Groups[group]; ok {
			return resp.Err("BUSYGROUP Consumer Group name already exists")
		}
		start := obj.Stream.LastID
		if string(args[4]) != "$" {
			id, err := ParseStreamID(string(args[4]), 0)
			if err != nil {
				return resp.Err("ERR Invalid stream ID specified as stream command argument")
			}
			start = id
		}
		obj.Stream.Groups[group] = newConsumerGroup(group, start)
		return resp.Str("OK")
	case "SETID":
		obj, errv, found := streamAt(db, string(args[2]), nowMs)
		if !found || obj == nil {
			if obj == nil && found {
				return errv
			}
			return resp.Err("ERR no such key")
		}
		grp, ok := obj.Stream.Groups[string(args[3])]
		if !ok {
			return resp.Err("NOGROUP No such consumer group")
		}
		start := obj.Stream.LastID
		if string(args[4]) != "$" {
			id, err := ParseStreamID(string(args[4]), 0)
			if err != nil {
				return resp.Err("ERR Invalid stream ID specified as stream command argument")
			}
			start = id
		}
		grp.LastDelivered = start
		return resp.Str("OK")
	case "DESTROY":
		obj, errv, found := streamAt(db, string(args[2]), nowMs)
		if !found {
			return resp.Int64(0)
		}
		if obj == nil {
			return errv
		}
		if _, ok := obj.Stream.Groups[string(args[3])]; !ok {
			return resp.Int64(0)
		}
		delete(obj.Stream.Groups, string(args[3]))
		return resp.Int64(1)
	case "CREATECONSUMER":
		obj, errv, found := streamAt(db, string(args[2]), nowMs)
		if !found || obj == nil {
			if found {
				return errv
			}
			return resp.Err("ERR no such key")
		}
		grp, ok := obj.Stream.Groups[string(args[3])]
		if !ok {
			return resp.Err("NOGROUP No such consumer group")
		}
		name := string(args[4])
		if _, ok := grp.Consumers[name]; ok {
			return resp.Int64(0)
		}
		grp.Consumers[name] = &groupConsumer{Name: name, SeenTime: nowMs}
		return resp.Int64(1)
	case "DELCONSUMER":
		obj, errv, found := streamAt(db, string(args[2]), nowMs)
		if !found || obj == nil {
			if found {
				return errv
			}
			return resp.Err("ERR no such key")
		}
		grp, ok := obj.Stream.Groups[string(args[3])]
		if !ok {
			return resp.Err("NOGROUP No such consumer group")
		}
		name := string(args[4])
		n := int64(0)
		for id, pe := range grp.Pending {
			if pe.Consumer == name {
				delete(grp.Pending, id)
				n++
			}
		}
		delete(grp.Consumers, name)
		return resp.Int64(n)
	}
	return resp.Err("ERR Unknown XGROUP subcommand")
}

func cmdXreadgroup(s *Server, c *Conn, args [][]byte) resp.Value {
	if !strings.EqualFold(string(args[1]), "GROUP") {
		return errSyntax()
	}
	group := string(args[2])
	consumer := string(args[3])
	i := 4
	count := -1
	var blockMs int64 = -1
	noack := false
	for i < len(args) {
		switch strings.ToUpper(string(args[i])) {
		case "COUNT":
			n, ok := parseInt(args[i+1])
			if !ok {
				return errNotInteger()
			}
			count = int(n)
			i += 2
		case "BLOCK":
			n, ok := parseInt(args[i+1])
			if !ok {
				return errNotInteger()
			}
			blockMs = n
			i += 2
		case "NOACK":
			noack = true
			i++
		case "STREAMS":
			i++
			goto streams
		default:
			return errSyntax()
		}
	}
streams:
	rest := args[i:]
	if len(rest) == 0 || len(rest)%2 != 0 {
		return errSyntax()
	}
	n := len(rest) / 2
	keys := make([]string, n)
	idArgs := make([]string, n)
	for j := 0; j < n; j++ {
		keys[j] = string(rest[j])
		idArgs[j] = string(rest[n+j])
	}
	db := c.db()
	nowMs := s.nowMs()

	deliverNew := func(key, idArg string) (resp.Value, bool) {
		obj, ok := db.get(key, nowMs)
		if !ok || obj.Kind != KindStream {
			return resp.Value{}, false
		}
		grp, ok := obj.Stream.Groups[group]
		if !ok {
			return resp.Err("NOGROUP No such key '" + key + "' or consumer group '" + group + "' in XREADGROUP with GROUP option"), true
		}
		if _, ok := grp.Consumers[consumer]; !ok {
			grp.Consumers[consumer] = &groupConsumer{Name: consumer, SeenTime: nowMs}
		}
		grp.Consumers[consumer].SeenTime = nowMs
		if idArg == ">" {
			entries := xReadOne(obj.Stream, grp.LastDelivered, count)
			if len(entries) == 0 {
				return resp.Value{}, false
			}
			for _, e := range entries {
				grp.LastDelivered = e.ID
				if !noack {
					grp.Pending[e.ID] = &PendingEntry{ID: e.ID, Consumer: consumer, DeliveryTime: nowMs, DeliveryCount: 1}
				}
			}
			return resp.Arr(resp.BulkStr(key), streamEntriesValue(entries)), true
		}
		// Re-reading the consumer's own PEL from a given ID.
		id, err := ParseStreamID(idArg, 0)
		if err != nil {
			return resp.Err("ERR Invalid stream ID specified as stream command argument"), true
		}
		var entries []StreamEntry
		for _, e := range obj.Stream.Entries {
			pe, pending := grp.Pending[e.ID]
			if pending && pe.Consumer == consumer && !e.ID.Less(id) {
				entries = append(entries, e)
			}
		}
		return resp.Arr(resp.BulkStr(key), streamEntriesValue(entries)), true
	}

	collect := func() resp.Value {
		var out []resp.Value
		for j, k := range keys {
			v, ok := deliverNew(k, idArgs[j])
			if !ok {
				continue
			}
			if v.IsError() {
				return v
			}
			out = append(out, v)
		}
		if len(out) == 0 {
			return resp.NullArray()
		}
		return resp.Arr(out...)
	}

	reply := collect()
	if reply.IsError() || !reply.IsNull || blockMs < 0 {
		return reply
	}
	pred := func(db *Database, key string) bool {
		obj, ok := db.store[key]
		if !ok || obj.Kind != KindStream {
			return false
		}
		grp, ok := obj.Stream.Groups[group]
		return ok && grp.LastDelivered.Less(obj.Stream.LastID)
	}
	onReady := func(string) resp.Value { return collect() }
	timeout := time.Duration(blockMs) * time.Millisecond
	return blockUntil(s, c, keys, pred, timeout, onReady)
}

func cmdXack(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, errv, found := streamAt(db, string(args[1]), s.nowMs())
	if !found {
		return resp.Int64(0)
	}
	if obj == nil {
		return errv
	}
	grp, ok := obj.Stream.Groups[string(args[2])]
	if !ok {
		return resp.Int64(0)
	}
	n := int64(0)
	for _, a := range args[3:] {
		id, err := ParseStreamID(string(a), 0)
		if err != nil {
			continue
		}
		if _, ok := grp.Pending[id]; ok {
			delete(grp.Pending, id)
			n++
		}
	}
	return resp.Int64(n)
}

func cmdXclaim(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, errv, found := streamAt(db, string(args[1]), s.nowMs())
	if !found {
		return resp.Arr()
	}
	if obj == nil {
		return errv
	}
	grp, ok := obj.Stream.Groups[string(args[2])]
	if !ok {
		return resp.Err("NOGROUP No such consumer group")
	}
	consumer := string(args[3])
	minIdle, ok := parseInt(args[4])
	if !ok {
		return errNotInteger()
	}
	nowMs := s.nowMs()
	var claimed []StreamEntry
	for _, a := range args[5:] {
		id, err := ParseStreamID(string(a), 0)
		if err != nil {
			continue
		}
		pe, pending := grp.Pending[id]
		if !pending || nowMs-pe.DeliveryTime < minIdle {
			continue
		}
		idx := obj.Stream.indexOfID(id)
		if idx >= obj.Stream.Len() || !obj.Stream.Entries[idx].ID.Equal(id) {
			delete(grp.Pending, id)
			continue
		}
		pe.Consumer = consumer
		pe.DeliveryTime = nowMs
		pe.DeliveryCount++
		if _, ok := grp.Consumers[consumer]; !ok {
			grp.Consumers[consumer] = &groupConsumer{Name: consumer, SeenTime: nowMs}
		}
		claimed = append(claimed, obj.Stream.Entries[idx])
	}
	return streamEntriesValue(claimed)
}

func cmdXautoclaim(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, errv, found := streamAt(db, string(args[1]), s.nowMs())
	if !found {
		return resp.Arr(resp.BulkStr("0-0"), resp.Arr(), resp.Arr())
	}
	if obj == nil {
		return errv
	}
	grp, ok := obj.Stream.Groups[string(args[2])]
	if !ok {
		return resp.Err("NOGROUP No such consumer group")
	}
	consumer := string(args[3])
	minIdle, ok := parseInt(args[4])
	if !ok {
		return errNotInteger()
	}
	start, err := ParseStreamID(string(args[5]), 0)
	if err != nil {
		return resp.Err("ERR Invalid stream ID specified as stream command argument")
	}
	count := 100
	for i := 6; i < len(args); i++ {
		if strings.EqualFold(string(args[i]), "COUNT") {
			n, ok := parseInt(args[i+1])
			if ok {
				count = int(n)
			}
		}
	}
	nowMs := s.nowMs()
	var ids []StreamID
	for id := range grp.Pending {
		if !id.Less(start) {
			ids = append(ids, id)
		}
	}
	sortStreamIDs(ids)
	var claimed []StreamEntry
	var deleted []resp.Value
	next := StreamID{}
	for _, id := range ids {
		if len(claimed)+len(deleted) >= count {
			next = id
			break
		}
		pe := grp.Pending[id]
		if nowMs-pe.DeliveryTime < minIdle {
			continue
		}
		idx := obj.Stream.indexOfID(id)
		if idx >= obj.Stream.Len() || !obj.Stream.Entries[idx].ID.Equal(id) {
			delete(grp.Pending, id)
			deleted = append(deleted, resp.BulkStr(id.String()))
			continue
		}
		pe.Consumer = consumer
		pe.DeliveryTime = nowMs
		pe.DeliveryCount++
		claimed = append(claimed, obj.Stream.Entries[idx])
	}
	if _, ok := grp.Consumers[consumer]; !ok {
		grp.Consumers[consumer] = &groupConsumer{Name: consumer, SeenTime: nowMs}
	}
	return resp.Arr(resp.BulkStr(next.String()), streamEntriesValue(claimed), resp.Arr(deleted...))
}

func sortStreamIDs(ids []StreamID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j].Less(ids[j-1]); j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}

func cmdXpending(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, errv, found := streamAt(db, string(args[1]), s.nowMs())
	if !found {
		return resp.Err("NOGROUP No such key or consumer group")
	}
	if obj == nil {
		return errv
	}
	grp, ok := obj.Stream.Groups[string(args[2])]
	if !ok {
		return resp.Err("NOGROUP No such consumer group")
	}
	if len(args) == 3 {
		if len(grp.Pending) == 0 {
			return resp.Arr(resp.Int64(0), resp.NullBulk(), resp.NullBulk(), resp.NullArray())
		}
		var minID, maxID StreamID
		first := true
		byConsumer := make(map[string]int64)
		for id, pe := range grp.Pending {
			if first || id.Less(minID) {
				minID = id
			}
			if first || maxID.Less(id) {
				maxID = id
			}
			first = false
			byConsumer[pe.Consumer]++
		}
		var consumers []resp.Value
		for name, n := range byConsumer {
			consumers = append(consumers, resp.Arr(resp.BulkStr(name), resp.BulkStr(strconv.FormatInt(n, 10))))
		}
		return resp.Arr(resp.Int64(int64(len(grp.Pending))), resp.BulkStr(minID.String()), resp.BulkStr(maxID.String()), resp.Arr(consumers...))
	}
	// Extended form: [IDLE ms] start end count [consumer]
	i := 3
	var minIdle int64
	if strings.EqualFold(string(args[i]), "IDLE") {
		n, ok := parseInt(args[i+1])
		if !ok {
			return errNotInteger()
		}
		minIdle = n
		i += 2
	}
	start, err1 := parseRangeID(string(args[i]), 0)
	end, err2 := parseRangeID(string(args[i+1]), ^uint64(0))
	if err1 != nil || err2 != nil {
		return resp.Err("ERR Invalid stream ID specified as stream command argument")
	}
	count, ok := parseInt(args[i+2])
	if !ok {
		return errNotInteger()
	}
	var filterConsumer string
	if len(args) > i+3 {
		filterConsumer = string(args[i+3])
	}
	nowMs := s.nowMs()
	var ids []StreamID
	for id := range grp.Pending {
		ids = append(ids, id)
	}
	sortStreamIDs(ids)
	var out []resp.Value
	for _, id := range ids {
		if id.Less(start) || end.Less(id) {
			continue
		}
		pe := grp.Pending[id]
		if filterConsumer != "" && pe.Consumer != filterConsumer {
			continue
		}
		if nowMs-pe.DeliveryTime < minIdle {
			continue
		}
		out = append(out, resp.Arr(
			resp.BulkStr(id.String()),
			resp.BulkStr(pe.Consumer),
			resp.Int64(nowMs-pe.DeliveryTime),
			resp.Int64(pe.DeliveryCount),
		))
		if int64(len(out)) >= count {
			break
		}
	}
	return resp.Arr(out...)
}

func cmdXinfo(s *Server, c *Conn, args [][]byte) resp.Value {
	sub := strings.ToUpper(string(args[1]))
	db := c.db()
	obj, errv, found := streamAt(db, string(args[2]), s.nowMs())
	if !found {
		return resp.Err("ERR no such key")
	}
	if obj == nil {
		return errv
	}
	switch sub {
	case "STREAM":
		return resp.MapOf(
			resp.MapEntry{Key: resp.BulkStr("length"), Val: resp.Int64(int64(obj.Stream.Len()))},
			resp.MapEntry{Key: resp.BulkStr("last-generated-id"), Val: resp.BulkStr(obj.Stream.LastID.String())},
			resp.MapEntry{Key: resp.BulkStr("max-deleted-entry-id"), Val: resp.BulkStr(obj.Stream.MaxDelID.String())},
			resp.MapEntry{Key: resp.BulkStr("entries-added"), Val: resp.Int64(obj.Stream.EntriesAdded)},
			resp.MapEntry{Key: resp.BulkStr("groups"), Val: resp.Int64(int64(len(obj.Stream.Groups)))},
		)
	case "GROUPS":
		var out []resp.Value
		for name, grp := range obj.Stream.Groups {
			out = append(out, resp.MapOf(
				resp.MapEntry{Key: resp.BulkStr("name"), Val: resp.BulkStr(name)},
				resp.MapEntry{Key: resp.BulkStr("consumers"), Val: resp.Int64(int64(len(grp.Consumers)))},
				resp.MapEntry{Key: resp.BulkStr("pending"), Val: resp.Int64(int64(len(grp.Pending)))},
				resp.MapEntry{Key: resp.BulkStr("last-delivered-id"), Val: resp.BulkStr(grp.LastDelivered.String())},
			))
		}
		return resp.Arr(out...)
	case "CONSUMERS":
		if len(args) < 4 {
			return errSyntax()
		}
		grp, ok := obj.Stream.Groups[string(args[3])]
		if !ok {
			return resp.Err("NOGROUP No such consumer group")
		}
		var out []resp.Value
		for name, cons := range grp.Consumers {
			pending := 0
			for _, pe := range grp.Pending {
				if pe.Consumer == name {
					pending++
				}
			}
			out = append(out, resp.MapOf(
				resp.MapEntry{Key: resp.BulkStr("name"), Val: resp.BulkStr(name)},
				resp.MapEntry{Key: resp.BulkStr("pending"), Val: resp.Int64(int64(pending))},
				resp.MapEntry{Key: resp.BulkStr("seen-time"), Val: resp.Int64(cons.SeenTime)},
			))
		}
		return resp.Arr(out...)
	}
	return resp.Err("ERR Unknown XINFO subcommand")
}
