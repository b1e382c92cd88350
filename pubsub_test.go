package redisemu

import "testing"

func TestGlobMatchStar(t *testing.T) {
	cases := []struct {
		pattern, s string
		want       bool
	}{
		{"*", "anything", true},
		{"news.*", "news.tech", true},
		{"news.*", "news", false},
		{"h?llo", "hello", true},
		{"h?llo", "hllo", false},
		{"h[ae]llo", "hallo", true},
		{"h[ae]llo", "hillo", false},
		{"h[^ae]llo", "hillo", true},
		{"h[a-c]llo", "hbllo", true},
		{"h[a-c]llo", "dllo", false},
	}
	for _, tc := range cases {
		if got := globMatch(tc.pattern, tc.s); got != tc.want {
			t.Errorf("globMatch(%q, %q) = %v, want %v", tc.pattern, tc.s, got, tc.want)
		}
	}
}

func TestGlobMatchEscapedLiteral(t *testing.T) {
	if !globMatch(`a\*b`, "a*b") {
		t.Fatal(`a\*b should match the literal "a*b"`)
	}
	if globMatch(`a\*b`, "axb") {
		t.Fatal(`a\*b should not match "axb"`)
	}
}

func TestPubsubRegistryPublishReachesEverySubscriber(t *testing.T) {
	s := NewServer()
	c1 := s.NewClient()
	c2 := s.NewClient()
	c3 := s.NewClient()

	s.pubsub.subscribe("ch", c1.conn)
	s.pubsub.subscribe("ch", c2.conn)
	s.pubsub.subscribe("ch", c3.conn)

	n := s.pubsub.publish("ch", []byte("hello"))
	if n != 3 {
		t.Fatalf("publish delivered to %d subscribers, want 3", n)
	}
}

func TestPubsubUnsubscribeRemovesFromDelivery(t *testing.T) {
	s := NewServer()
	c1 := s.NewClient()
	c2 := s.NewClient()

	s.pubsub.subscribe("ch", c1.conn)
	s.pubsub.subscribe("ch", c2.conn)
	s.pubsub.unsubscribe("ch", c1.conn)

	if n := s.pubsub.numSub("ch"); n != 1 {
		t.Fatalf("numSub after unsubscribe = %d, want 1", n)
	}
}

func TestPubsubPatternMatchDelivery(t *testing.T) {
	s := NewServer()
	c := s.NewClient()
	s.pubsub.psubscribe("news.*", c.conn)

	n := s.pubsub.publish("news.tech", []byte("payload"))
	if n != 1 {
		t.Fatalf("pattern-matched publish delivered to %d, want 1", n)
	}
	n2 := s.pubsub.publish("sports.tech", []byte("payload"))
	if n2 != 0 {
		t.Fatalf("non-matching publish delivered to %d, want 0", n2)
	}
}

func TestChannelsMatching(t *testing.T) {
	s := NewServer()
	c := s.NewClient()
	s.pubsub.subscribe("news.tech", c.conn)
	s.pubsub.subscribe("news.sport", c.conn)
	s.pubsub.subscribe("weather", c.conn)

	all := s.pubsub.channelsMatching("")
	if len(all) != 3 {
		t.Fatalf("channelsMatching(\"\") = %v, want 3 entries", all)
	}
	news := s.pubsub.channelsMatching("news.*")
	if len(news) != 2 {
		t.Fatalf("channelsMatching(news.*) = %v, want 2 entries", news)
	}
}
