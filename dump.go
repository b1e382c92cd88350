/*
file: redis-emulator/dump.go

DUMP/RESTORE via a self-described encoding/gob envelope, grounded on
internal/common/appstate.go's SaveUsers/LoadUsers (the teacher's own
use of gob for on-disk persistence, the same stdlib serialization
reapplied here to a byte-string payload instead of a file). spec.md §6
requires the envelope to "decode whatever DUMP produced within the same
implementation" without matching the reference server's RDB format, and
requires RESTORE to reject unknown tags rather than execute arbitrary
logic on untrusted input.
*/
package redisemu

import (
	"bytes"
	"encoding/gob"
	"strings"

	"github.com/akashmaji946/redis-emulator/resp"
)

// dumpTag is the envelope's leading byte, one per known Kind. RESTORE
// refuses to decode anything else, which is the "reject unknown tags"
// requirement from spec.md §6.
type dumpTag byte

const (
	dumpTagString dumpTag = iota + 1
	dumpTagList
	dumpTagHash
	dumpTagSet
	dumpTagZSet
	dumpTagStream
	dumpTagHLL
)

func tagForKind(k Kind) (dumpTag, bool) {
	switch k {
	case KindString:
		return dumpTagString, true
	case KindList:
		return dumpTagList, true
	case KindHash:
		return dumpTagHash, true
	case KindSet:
		return dumpTagSet, true
	case KindZSet:
		return dumpTagZSet, true
	case KindStream:
		return dumpTagStream, true
	case KindHLL:
		return dumpTagHLL, true
	}
	return 0, false
}

func kindForTag(t dumpTag) (Kind, bool) {
	switch t {
	case dumpTagString:
		return KindString, true
	case dumpTagList:
		return KindList, true
	case dumpTagHash:
		return KindHash, true
	case dumpTagSet:
		return KindSet, true
	case dumpTagZSet:
		return KindZSet, true
	case dumpTagStream:
		return KindStream, true
	case dumpTagHLL:
		return KindHLL, true
	}
	return 0, false
}

// dumpString/dumpHash/... are the gob-friendly payload shapes behind
// each tag (Object itself isn't gob-registered since its fields are
// kind-specific pointers the decoder must rebuild with validation).
type dumpString struct{ Str []byte }
type dumpList struct{ List [][]byte }
type dumpHash struct {
	Fields  map[string][]byte
	Expires map[string]int64
}
type dumpSet struct{ Members []string }
type dumpZSet struct {
	Members []string
	Scores  []float64
}
type dumpStream struct {
	Entries      []StreamEntry
	LastID       StreamID
	MaxDelID     StreamID
	EntriesAdded int64
}

func cmdDump(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, ok := db.get(string(args[1]), s.nowMs())
	if !ok {
		return resp.NullBulk()
	}
	payload, err := encodeDump(obj)
	if err != nil {
		return resp.Err("ERR " + err.Error())
	}
	return resp.Bulk(payload)
}

func encodeDump(obj *Object) ([]byte, error) {
	tag, ok := tagForKind(obj.Kind)
	if !ok {
		return nil, errUnsupportedDumpKind
	}
	var buf bytes.Buffer
	buf.WriteByte(byte(tag))
	enc := gob.NewEncoder(&buf)
	var err error
	switch obj.Kind {
	case KindString:
		err = enc.Encode(dumpString{Str: obj.Str})
	case KindList:
		err = enc.Encode(dumpList{List: obj.List})
	case KindHash:
		err = enc.Encode(dumpHash{Fields: obj.Hash.fields, Expires: obj.Hash.expires})
	case KindSet, KindHLL:
		members := make([]string, 0, len(obj.Set))
		for m := range obj.Set {
			members = append(members, m)
		}
		err = enc.Encode(dumpSet{Members: members})
	case KindZSet:
		members := make([]string, 0, obj.ZSet.Len())
		scores := make([]float64, 0, obj.ZSet.Len())
		for _, zm := range obj.ZSet.order {
			members = append(members, zm.member)
			scores = append(scores, zm.score)
		}
		err = enc.Encode(dumpZSet{Members: members, Scores: scores})
	case KindStream:
		err = enc.Encode(dumpStream{
			Entries:      obj.Stream.Entries,
			LastID:       obj.Stream.LastID,
			MaxDelID:     obj.Stream.MaxDelID,
			EntriesAdded: obj.Stream.EntriesAdded,
		})
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var errUnsupportedDumpKind = dumpError("unsupported value kind")

type dumpError string

func (e dumpError) Error() string { return string(e) }

func decodeDump(payload []byte) (*Object, error) {
	if len(payload) == 0 {
		return nil, dumpError("DUMP payload version or checksum are wrong")
	}
	tag := dumpTag(payload[0])
	kind, ok := kindForTag(tag)
	if !ok {
		return nil, dumpError("Bad data format")
	}
	dec := gob.NewDecoder(bytes.NewReader(payload[1:]))
	switch kind {
	case KindString:
		var d dumpString
		if err := dec.Decode(&d); err != nil {
			return nil, err
		}
		return newString(d.Str), nil
	case KindList:
		var d dumpList
		if err := dec.Decode(&d); err != nil {
			return nil, err
		}
		obj := newList()
		obj.List = d.List
		return obj, nil
	case KindHash:
		var d dumpHash
		if err := dec.Decode(&d); err != nil {
			return nil, err
		}
		obj := newHashValue()
		if d.Fields != nil {
			obj.Hash.fields = d.Fields
		}
		if d.Expires != nil {
			obj.Hash.expires = d.Expires
		}
		return obj, nil
	case KindSet, KindHLL:
		var d dumpSet
		if err := dec.Decode(&d); err != nil {
			return nil, err
		}
		obj := &Object{Kind: kind, Set: newSet()}
		for _, m := range d.Members {
			obj.Set[m] = struct{}{}
		}
		return obj, nil
	case KindZSet:
		var d dumpZSet
		if err := dec.Decode(&d); err != nil {
			return nil, err
		}
		obj := newZSetValue()
		for i, m := range d.Members {
			obj.ZSet.Set(m, d.Scores[i])
		}
		return obj, nil
	case KindStream:
		var d dumpStream
		if err := dec.Decode(&d); err != nil {
			return nil, err
		}
		st := newStream()
		st.Entries = d.Entries
		st.LastID = d.LastID
		st.MaxDelID = d.MaxDelID
		st.EntriesAdded = d.EntriesAdded
		return &Object{Kind: KindStream, Stream: st}, nil
	}
	return nil, dumpError("Bad data format")
}

func cmdRestore(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	key := string(args[1])
	ttlMs, ok := parseInt(args[2])
	if !ok || ttlMs < 0 {
		return resp.Err("ERR Invalid TTL value, must be >= 0")
	}
	payload := args[3]

	replace := false
	absTTL := false
	for i := 4; i < len(args); i++ {
		switch strings.ToUpper(string(args[i])) {
		case "REPLACE":
			replace = true
		case "ABSTTL":
			absTTL = true
		case "IDLETIME", "FREQ":
			i++ // value ignored; no LRU/LFU simulation in this emulator
		default:
			return errSyntax()
		}
	}

	nowMs := s.nowMs()
	if db.exists(key, nowMs) && !replace {
		return resp.Err("BUSYKEY Target key name already exists.")
	}

	obj, err := decodeDump(payload)
	if err != nil {
		return resp.Err("ERR DUMP payload version or checksum are wrong")
	}
	db.set(key, obj, false)
	if ttlMs > 0 {
		if absTTL {
			db.setExpireAt(key, ttlMs)
		} else {
			db.setExpireAt(key, nowMs+ttlMs)
		}
	}
	s.keyspaceNotify(db.id, "restore", key)
	return resp.Str("OK")
}
