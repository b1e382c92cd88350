package redisemu

import "testing"

func TestZSetOrderingByScoreThenMember(t *testing.T) {
	z := newZSet()
	z.Set("b", 1)
	z.Set("a", 1)
	z.Set("c", 0)

	if z.Len() != 3 {
		t.Fatalf("Len = %d, want 3", z.Len())
	}
	want := []string{"c", "a", "b"}
	for i, m := range want {
		if z.order[i].member != m {
			t.Fatalf("order[%d] = %q, want %q (%v)", i, z.order[i].member, m, z.order)
		}
	}
}

func TestZSetSetUpdatesScoreAndReordersWithoutDuplication(t *testing.T) {
	z := newZSet()
	z.Set("a", 5)
	z.Set("b", 10)
	added := z.Set("a", 20)
	if added {
		t.Fatal("Set on an existing member should report added=false")
	}
	if z.Len() != 2 {
		t.Fatalf("Len = %d, want 2", z.Len())
	}
	if z.order[0].member != "b" || z.order[1].member != "a" {
		t.Fatalf("expected order [b a] after rescoring a above b, got %v", z.order)
	}
}

func TestZSetRank(t *testing.T) {
	z := newZSet()
	z.Set("a", 1)
	z.Set("b", 2)
	z.Set("c", 3)
	if r := z.Rank("b"); r != 1 {
		t.Fatalf("Rank(b) = %d, want 1", r)
	}
	if r := z.Rank("missing"); r != -1 {
		t.Fatalf("Rank(missing) = %d, want -1", r)
	}
}

func TestZSetRemove(t *testing.T) {
	z := newZSet()
	z.Set("a", 1)
	z.Set("b", 2)
	if !z.Remove("a") {
		t.Fatal("Remove(a) should report true")
	}
	if z.Remove("a") {
		t.Fatal("Remove(a) twice should report false")
	}
	if z.Len() != 1 {
		t.Fatalf("Len = %d, want 1", z.Len())
	}
}

func TestObjectEmpty(t *testing.T) {
	list := newList()
	if !list.Empty() {
		t.Fatal("a freshly built list should be empty")
	}
	list.List = append(list.List, []byte("x"))
	if list.Empty() {
		t.Fatal("a list with one element should not be empty")
	}

	stream := &Object{Kind: KindStream, Stream: newStream()}
	if stream.Empty() {
		t.Fatal("a drained stream is never reported as Empty")
	}
}
