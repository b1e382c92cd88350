/*
file: redis-emulator/stream.go

Stream entries and consumer groups, per spec.md §3/§4.3. New relative
to the teacher, which has no stream support at all; grounded in spec.md's
own description of IDs, PEL, and trim policies.
*/
package redisemu

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// StreamID is a (ms, seq) pair. IDs order lexicographically on (ms,
// seq) and must strictly increase within a stream.
type StreamID struct {
	Ms  uint64
	Seq uint64
}

// Less reports whether id sorts before other.
func (id StreamID) Less(other StreamID) bool {
	if id.Ms != other.Ms {
		return id.Ms < other.Ms
	}
	return id.Seq < other.Seq
}

// Equal reports value equality.
func (id StreamID) Equal(other StreamID) bool { return id.Ms == other.Ms && id.Seq == other.Seq }

// String renders the canonical "ms-seq" form.
func (id StreamID) String() string {
	return strconv.FormatUint(id.Ms, 10) + "-" + strconv.FormatUint(id.Seq, 10)
}

// ParseStreamID parses a fully or partially specified ID. missingSeq is
// used for the seq component when the input omits it (0 for a range
// start, max uint64 for a range end, by convention of the caller).
func ParseStreamID(s string, missingSeq uint64) (StreamID, error) {
	parts := strings.SplitN(s, "-", 2)
	ms, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return StreamID{}, fmt.Errorf("invalid stream ID")
	}
	if len(parts) == 1 {
		return StreamID{Ms: ms, Seq: missingSeq}, nil
	}
	seq, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return StreamID{}, fmt.Errorf("invalid stream ID")
	}
	return StreamID{Ms: ms, Seq: seq}, nil
}

// StreamEntry is one appended record.
type StreamEntry struct {
	ID     StreamID
	Fields []KV // preserves insertion order, unlike a map
}

// KV is an ordered field/value pair, used by stream entries and
// HRANDFIELD/HGETALL-style replies that must preserve field order.
type KV struct {
	Field string
	Value []byte
}

// PendingEntry is one record of a consumer group's pending-entries
// list (PEL): an entry that was delivered but not yet acknowledged.
type PendingEntry struct {
	ID            StreamID
	Consumer      string
	DeliveryTime  int64 // ms, server clock
	DeliveryCount int64
}

// ConsumerGroup tracks a named group's delivery cursor and PEL.
type ConsumerGroup struct {
	Name          string
	LastDelivered StreamID
	Pending       map[StreamID]*PendingEntry
	Consumers     map[string]*groupConsumer
}

type groupConsumer struct {
	Name     string
	SeenTime int64
}

func newConsumerGroup(name string, last StreamID) *ConsumerGroup {
	return &ConsumerGroup{
		Name:          name,
		LastDelivered: last,
		Pending:       make(map[StreamID]*PendingEntry),
		Consumers:     make(map[string]*groupConsumer),
	}
}

// Stream is an append-only sequence of entries plus named consumer
// groups, per spec.md §3's Stream row.
type Stream struct {
	Entries   []StreamEntry
	LastID    StreamID
	MaxDelID  StreamID // highest ID ever deleted/trimmed, for XINFO STREAM
	EntriesAdded int64
	Groups    map[string]*ConsumerGroup
}

func newStream() *Stream {
	return &Stream{Groups: make(map[string]*ConsumerGroup)}
}

// nextAutoID computes the ID for XADD key * ..., per spec.md §4.3:
// "auto-id * uses the clock plus a sequence disambiguator."
func (s *Stream) nextAutoID(nowMs int64) StreamID {
	ms := uint64(nowMs)
	if ms < s.LastID.Ms {
		ms = s.LastID.Ms
	}
	seq := uint64(0)
	if ms == s.LastID.Ms {
		seq = s.LastID.Seq + 1
	}
	return StreamID{Ms: ms, Seq: seq}
}

// Append validates id > LastID and appends the entry, or returns an
// error matching spec.md §8's strictly-increasing-ID invariant.
func (s *Stream) Append(id StreamID, fields []KV) error {
	if len(s.Entries) > 0 || s.LastID != (StreamID{}) {
		if !s.LastID.Less(id) {
			return fmt.Errorf("ERR The ID specified in XADD is equal or smaller than the target stream top item")
		}
	}
	s.Entries = append(s.Entries, StreamEntry{ID: id, Fields: fields})
	s.LastID = id
	s.EntriesAdded++
	return nil
}

// indexOfID returns the index of the first entry with ID >= id.
func (s *Stream) indexOfID(id StreamID) int {
	return sort.Search(len(s.Entries), func(i int) bool { return !s.Entries[i].ID.Less(id) })
}

// Range returns entries with start <= ID <= end, in stream order,
// capped at count if count >= 0.
func (s *Stream) Range(start, end StreamID, count int) []StreamEntry {
	lo := s.indexOfID(start)
	var out []StreamEntry
	for i := lo; i < len(s.Entries); i++ {
		e := s.Entries[i]
		if end.Less(e.ID) {
			break
		}
		out = append(out, e)
		if count >= 0 && len(out) >= count {
			break
		}
	}
	return out
}

// RevRange returns entries with start <= ID <= end in reverse stream
// order (XREVRANGE's end/start are given high-to-low).
func (s *Stream) RevRange(end, start StreamID, count int) []StreamEntry {
	hi := s.indexOfID(end)
	if hi < len(s.Entries) && !s.Entries[hi].ID.Equal(end) {
		hi--
	} else if hi == len(s.Entries) {
		hi--
	}
	var out []StreamEntry
	for i := hi; i >= 0; i-- {
		e := s.Entries[i]
		if e.ID.Less(start) {
			break
		}
		out = append(out, e)
		if count >= 0 && len(out) >= count {
			break
		}
	}
	return out
}

// TrimMaxLen removes oldest entries until at most n remain. Returns
// the number removed.
func (s *Stream) TrimMaxLen(n int) int {
	if len(s.Entries) <= n {
		return 0
	}
	removed := len(s.Entries) - n
	for _, e := range s.Entries[:removed] {
		if s.MaxDelID.Less(e.ID) {
			s.MaxDelID = e.ID
		}
	}
	s.Entries = append([]StreamEntry{}, s.Entries[removed:]...)
	return removed
}

// TrimMinID removes entries with ID < minID. Returns the number removed.
func (s *Stream) TrimMinID(minID StreamID) int {
	i := s.indexOfID(minID)
	if i == 0 {
		return 0
	}
	for _, e := range s.Entries[:i] {
		if s.MaxDelID.Less(e.ID) {
			s.MaxDelID = e.ID
		}
	}
	s.Entries = append([]StreamEntry{}, s.Entries[i:]...)
	return i
}

// Len reports the number of entries currently held in the stream;
// trimmed entries are not counted.
func (s *Stream) Len() int { return len(s.Entries) }
