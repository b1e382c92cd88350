package redisemu_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"

	redisemu "github.com/akashmaji946/redis-emulator"
)

// getFreePort asks the OS for an ephemeral port, the same trick
// l00pss-redkit's test helpers use to avoid colliding with a server
// left running from a previous test run.
func getFreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("getFreePort: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

// startRedisServer boots a *redisemu.Server on a free loopback port and
// returns a connected go-redis client plus a cleanup func, mirroring
// l00pss-redkit's startRedisServer(t) helper shape.
func startRedisServer(t *testing.T, opts ...redisemu.Option) (*goredis.Client, func()) {
	t.Helper()
	port := getFreePort(t)
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	s := redisemu.NewServer(opts...)
	go func() {
		_ = s.ListenAndServe(addr)
	}()

	client := goredis.NewClient(&goredis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var lastErr error
	for i := 0; i < 50; i++ {
		if err := client.Ping(ctx).Err(); err == nil {
			lastErr = nil
			break
		} else {
			lastErr = err
		}
		time.Sleep(20 * time.Millisecond)
	}
	if lastErr != nil {
		t.Fatalf("server never became reachable: %v", lastErr)
	}

	return client, func() {
		_ = client.Close()
		_ = s.Close()
	}
}

func TestIntegrationPingSetGet(t *testing.T) {
	client, cleanup := startRedisServer(t)
	defer cleanup()
	ctx := context.Background()

	if err := client.Set(ctx, "foo", "bar", 0).Err(); err != nil {
		t.Fatalf("SET: %v", err)
	}
	got, err := client.Get(ctx, "foo").Result()
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if got != "bar" {
		t.Fatalf("GET = %q, want %q", got, "bar")
	}
}

func TestIntegrationListPushRange(t *testing.T) {
	client, cleanup := startRedisServer(t)
	defer cleanup()
	ctx := context.Background()

	if err := client.RPush(ctx, "mylist", "a", "b", "c").Err(); err != nil {
		t.Fatalf("RPUSH: %v", err)
	}
	got, err := client.LRange(ctx, "mylist", 0, -1).Result()
	if err != nil {
		t.Fatalf("LRANGE: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("LRANGE = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("LRANGE[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIntegrationZAddZRangeByScore(t *testing.T) {
	client, cleanup := startRedisServer(t)
	defer cleanup()
	ctx := context.Background()

	if err := client.ZAdd(ctx, "z",
		&goredis.Z{Score: 1, Member: "a"},
		&goredis.Z{Score: 2, Member: "b"},
		&goredis.Z{Score: 3, Member: "c"},
	).Err(); err != nil {
		t.Fatalf("ZADD: %v", err)
	}
	got, err := client.ZRangeByScore(ctx, "z", &goredis.ZRangeBy{Min: "1", Max: "2"}).Result()
	if err != nil {
		t.Fatalf("ZRANGEBYSCORE: %v", err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("ZRANGEBYSCORE = %v", got)
	}
}

func TestIntegrationMultiExecTransaction(t *testing.T) {
	client, cleanup := startRedisServer(t)
	defer cleanup()
	ctx := context.Background()

	_, err := client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, "a", "1", 0)
		pipe.Incr(ctx, "a")
		return nil
	})
	if err != nil {
		t.Fatalf("TxPipelined: %v", err)
	}
	got, err := client.Get(ctx, "a").Result()
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if got != "2" {
		t.Fatalf("GET after transaction = %q, want %q", got, "2")
	}
}

func TestIntegrationBlockingListPop(t *testing.T) {
	client, cleanup := startRedisServer(t)
	defer cleanup()
	ctx := context.Background()

	result := make(chan []string, 1)
	errs := make(chan error, 1)
	go func() {
		v, err := client.BLPop(ctx, 2*time.Second, "q").Result()
		if err != nil {
			errs <- err
			return
		}
		result <- v
	}()

	time.Sleep(100 * time.Millisecond)
	if err := client.RPush(ctx, "q", "item").Err(); err != nil {
		t.Fatalf("RPUSH: %v", err)
	}

	select {
	case v := <-result:
		if len(v) != 2 || v[0] != "q" || v[1] != "item" {
			t.Fatalf("BLPOP result = %v", v)
		}
	case err := <-errs:
		t.Fatalf("BLPOP: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("BLPOP never returned")
	}
}

func TestIntegrationPubSub(t *testing.T) {
	client, cleanup := startRedisServer(t)
	defer cleanup()
	ctx := context.Background()

	sub := client.Subscribe(ctx, "news")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("Receive (subscribe confirmation): %v", err)
	}
	ch := sub.Channel()

	if err := client.Publish(ctx, "news", "hello").Err(); err != nil {
		t.Fatalf("PUBLISH: %v", err)
	}

	select {
	case msg := <-ch:
		if msg.Payload != "hello" {
			t.Fatalf("message payload = %q, want %q", msg.Payload, "hello")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber never received the published message")
	}
}

func TestIntegrationExpire(t *testing.T) {
	client, cleanup := startRedisServer(t)
	defer cleanup()
	ctx := context.Background()

	if err := client.Set(ctx, "k", "v", 0).Err(); err != nil {
		t.Fatalf("SET: %v", err)
	}
	if err := client.PExpire(ctx, "k", 50*time.Millisecond).Err(); err != nil {
		t.Fatalf("PEXPIRE: %v", err)
	}
	time.Sleep(150 * time.Millisecond)
	_, err := client.Get(ctx, "k").Result()
	if err != goredis.Nil {
		t.Fatalf("expected redis.Nil after expiry, got %v", err)
	}
}
