package redisemu

import "testing"

func TestStreamIDOrdering(t *testing.T) {
	a := StreamID{Ms: 1, Seq: 5}
	b := StreamID{Ms: 1, Seq: 6}
	c := StreamID{Ms: 2, Seq: 0}

	if !a.Less(b) {
		t.Fatal("a should sort before b (same ms, lower seq)")
	}
	if !b.Less(c) {
		t.Fatal("b should sort before c (lower ms)")
	}
	if a.Less(a) {
		t.Fatal("an ID should not be Less than itself")
	}
	if !a.Equal(StreamID{Ms: 1, Seq: 5}) {
		t.Fatal("identical IDs should compare Equal")
	}
}

func TestParseStreamID(t *testing.T) {
	id, err := ParseStreamID("123-4", 0)
	if err != nil {
		t.Fatalf("ParseStreamID: %v", err)
	}
	if id.Ms != 123 || id.Seq != 4 {
		t.Fatalf("parsed %+v, want {123 4}", id)
	}

	id2, err := ParseStreamID("123", 0)
	if err != nil {
		t.Fatalf("ParseStreamID without seq: %v", err)
	}
	if id2.Ms != 123 || id2.Seq != 0 {
		t.Fatalf("parsed %+v, want {123 0}", id2)
	}

	if _, err := ParseStreamID("not-a-number", 0); err == nil {
		t.Fatal("expected an error for a non-numeric ms component")
	}
}

func TestStreamAppendRejectsNonIncreasingID(t *testing.T) {
	s := newStream()
	if err := s.Append(StreamID{Ms: 5, Seq: 0}, []KV{{Field: "f", Value: []byte("v")}}); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := s.Append(StreamID{Ms: 5, Seq: 0}, nil); err == nil {
		t.Fatal("expected an error appending a non-increasing ID")
	}
	if err := s.Append(StreamID{Ms: 4, Seq: 9}, nil); err == nil {
		t.Fatal("expected an error appending an ID smaller than the top item")
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1 (rejected appends must not land)", s.Len())
	}
}

func TestStreamNextAutoID(t *testing.T) {
	s := newStream()
	id1 := s.nextAutoID(1000)
	s.Append(id1, nil)
	id2 := s.nextAutoID(1000) // same millisecond: sequence disambiguates
	if id2.Ms != id1.Ms || id2.Seq != id1.Seq+1 {
		t.Fatalf("expected a bumped sequence within the same ms, got %+v after %+v", id2, id1)
	}
	id3 := s.nextAutoID(2000)
	if !id1.Less(id3) {
		t.Fatalf("an ID generated at a later ms must sort after the prior one")
	}
}

func TestStreamRangeAndRevRange(t *testing.T) {
	s := newStream()
	for i := uint64(1); i <= 5; i++ {
		s.Append(StreamID{Ms: i, Seq: 0}, []KV{{Field: "n", Value: []byte{byte(i)}}})
	}
	r := s.Range(StreamID{Ms: 2, Seq: 0}, StreamID{Ms: 4, Seq: 0}, -1)
	if len(r) != 3 || r[0].ID.Ms != 2 || r[2].ID.Ms != 4 {
		t.Fatalf("Range = %+v", r)
	}

	rr := s.RevRange(StreamID{Ms: 4, Seq: 0}, StreamID{Ms: 2, Seq: 0}, -1)
	if len(rr) != 3 || rr[0].ID.Ms != 4 || rr[2].ID.Ms != 2 {
		t.Fatalf("RevRange = %+v", rr)
	}

	capped := s.Range(StreamID{Ms: 1, Seq: 0}, StreamID{Ms: 5, Seq: 0}, 2)
	if len(capped) != 2 {
		t.Fatalf("count-capped Range returned %d entries, want 2", len(capped))
	}
}

func TestStreamTrimMaxLen(t *testing.T) {
	s := newStream()
	for i := uint64(1); i <= 5; i++ {
		s.Append(StreamID{Ms: i, Seq: 0}, nil)
	}
	removed := s.TrimMaxLen(2)
	if removed != 3 {
		t.Fatalf("TrimMaxLen removed %d, want 3", removed)
	}
	if s.Len() != 2 {
		t.Fatalf("Len after trim = %d, want 2", s.Len())
	}
	if s.Entries[0].ID.Ms != 4 {
		t.Fatalf("oldest surviving entry should be ms=4, got %+v", s.Entries[0].ID)
	}
}

func TestStreamTrimMinID(t *testing.T) {
	s := newStream()
	for i := uint64(1); i <= 5; i++ {
		s.Append(StreamID{Ms: i, Seq: 0}, nil)
	}
	removed := s.TrimMinID(StreamID{Ms: 3, Seq: 0})
	if removed != 2 {
		t.Fatalf("TrimMinID removed %d, want 2", removed)
	}
	if s.Len() != 3 {
		t.Fatalf("Len after trim = %d, want 3", s.Len())
	}
}
