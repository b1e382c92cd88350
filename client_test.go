package redisemu

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/akashmaji946/redis-emulator/resp"
)

func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	return NewClient(opts...)
}

func TestPingEcho(t *testing.T) {
	c := newTestClient(t)
	if v := c.Cmd("PING"); v.Str != "PONG" {
		t.Fatalf("PING = %+v", v)
	}
	if v := c.Cmd("ECHO", "hi"); string(v.Bulk) != "hi" {
		t.Fatalf("ECHO = %+v", v)
	}
}

func TestStringSetGet(t *testing.T) {
	c := newTestClient(t)
	if v := c.Cmd("SET", "foo", "bar"); v.Str != "OK" {
		t.Fatalf("SET reply = %+v", v)
	}
	if v := c.Cmd("GET", "foo"); string(v.Bulk) != "bar" {
		t.Fatalf("GET = %+v", v)
	}
	if v := c.Cmd("GET", "missing"); !v.IsNull {
		t.Fatalf("GET missing key should be null, got %+v", v)
	}
	if v := c.Cmd("APPEND", "foo", "baz"); v.Int != 6 {
		t.Fatalf("APPEND length = %+v", v)
	}
	if v := c.Cmd("GET", "foo"); string(v.Bulk) != "barbaz" {
		t.Fatalf("GET after APPEND = %+v", v)
	}
}

func TestWrongTypeError(t *testing.T) {
	c := newTestClient(t)
	c.Cmd("RPUSH", "alist", "a", "b")
	v := c.Cmd("GET", "alist")
	if !v.IsError() || len(v.Str) < 9 || v.Str[:9] != "WRONGTYPE" {
		t.Fatalf("expected WRONGTYPE error, got %+v", v)
	}
}

func TestListPushRange(t *testing.T) {
	c := newTestClient(t)
	c.Cmd("RPUSH", "mylist", "a", "b", "c")
	c.Cmd("LPUSH", "mylist", "z")
	v := c.Cmd("LRANGE", "mylist", "0", "-1")
	want := []string{"z", "a", "b", "c"}
	if len(v.Arr) != len(want) {
		t.Fatalf("LRANGE length = %d, want %d (%+v)", len(v.Arr), len(want), v)
	}
	for i, w := range want {
		if string(v.Arr[i].Bulk) != w {
			t.Fatalf("LRANGE[%d] = %q, want %q", i, v.Arr[i].Bulk, w)
		}
	}
}

func TestExpireAndTTL(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	s := NewServer()
	s.SetClock(clk)
	c := s.NewClient()

	c.Cmd("SET", "k", "v")
	c.Cmd("EXPIRE", "k", "10")
	if v := c.Cmd("TTL", "k"); v.Int != 10 {
		t.Fatalf("TTL = %+v", v)
	}
	clk.Advance(11 * time.Second)
	if v := c.Cmd("GET", "k"); !v.IsNull {
		t.Fatalf("expected key to have expired, got %+v", v)
	}
	if v := c.Cmd("TTL", "k"); v.Int != -2 {
		t.Fatalf("TTL of expired/absent key = %+v", v)
	}
}

func TestLazyExpiryEmitsKeyspaceNotification(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	s := NewServer(WithNotifyKeyspaceEvents("KEA"))
	s.SetClock(clk)
	c := s.NewClient()

	probeLocal, probeRemote := net.Pipe()
	defer probeLocal.Close()
	probe := newConn(s, probeRemote, s.newClientID())
	s.registerConn(probe)
	s.keyspacePubsub.subscribe(keyeventChannel(0, "expired"), probe)

	received := make(chan string, 1)
	go func() {
		buf := make([]byte, 4096)
		n, _ := probeLocal.Read(buf)
		received <- string(buf[:n])
	}()

	c.Cmd("SET", "k", "v")
	c.Cmd("PEXPIRE", "k", "10")
	before := s.Metrics.Snapshot().ExpiredKeys
	clk.Advance(20 * time.Millisecond)

	if v := c.Cmd("GET", "k"); !v.IsNull {
		t.Fatalf("expected k to have expired, got %+v", v)
	}
	if after := s.Metrics.Snapshot().ExpiredKeys; after != before+1 {
		t.Fatalf("ExpiredKeys metric = %v, want %v", after, before+1)
	}

	select {
	case msg := <-received:
		if !strings.Contains(msg, "k") {
			t.Fatalf("expired notification payload = %q, want it to contain key %q", msg, "k")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("never received an expired keyspace notification")
	}
}

func TestSetIfeqIfgtIflt(t *testing.T) {
	c := newTestClient(t)
	c.Cmd("SET", "k", "5")

	if v := c.Cmd("SET", "k", "6", "IFEQ", "not-5"); !v.IsNull {
		t.Fatalf("SET IFEQ with mismatched comparison should fail, got %+v", v)
	}
	if v := c.Cmd("GET", "k"); string(v.Bulk) != "5" {
		t.Fatalf("failed IFEQ must not modify the key, got %+v", v)
	}
	if v := c.Cmd("SET", "k", "6", "IFEQ", "5"); v.Str != "OK" {
		t.Fatalf("SET IFEQ with matching comparison should succeed, got %+v", v)
	}
	if v := c.Cmd("GET", "k"); string(v.Bulk) != "6" {
		t.Fatalf("GET after IFEQ SET = %+v", v)
	}

	if v := c.Cmd("SET", "k", "7", "IFGT", "10"); !v.IsNull {
		t.Fatalf("SET IFGT should fail when current value is not greater, got %+v", v)
	}
	if v := c.Cmd("SET", "k", "8", "IFGT", "3"); v.Str != "OK" {
		t.Fatalf("SET IFGT should succeed when current value is greater, got %+v", v)
	}

	if v := c.Cmd("SET", "k", "9", "IFLT", "1"); !v.IsNull {
		t.Fatalf("SET IFLT should fail when current value is not less, got %+v", v)
	}
	if v := c.Cmd("SET", "k", "10", "IFLT", "100"); v.Str != "OK" {
		t.Fatalf("SET IFLT should succeed when current value is less, got %+v", v)
	}
	if v := c.Cmd("GET", "k"); string(v.Bulk) != "10" {
		t.Fatalf("GET after IFLT SET = %+v", v)
	}
}

func TestZAddZRangeByScore(t *testing.T) {
	c := newTestClient(t)
	c.Cmd("ZADD", "z", "1", "a", "2", "b", "3", "c")
	v := c.Cmd("ZRANGEBYSCORE", "z", "1", "2")
	if len(v.Arr) != 2 || string(v.Arr[0].Bulk) != "a" || string(v.Arr[1].Bulk) != "b" {
		t.Fatalf("ZRANGEBYSCORE = %+v", v)
	}
}

func TestZmpop(t *testing.T) {
	c := newTestClient(t)
	c.Cmd("ZADD", "z", "1", "a", "2", "b", "3", "c")
	v := c.Cmd("ZMPOP", "1", "z", "MIN", "COUNT", "2")
	if len(v.Arr) != 2 || string(v.Arr[0].Bulk) != "z" {
		t.Fatalf("ZMPOP key = %+v", v)
	}
	popped := v.Arr[1].Arr
	if len(popped) != 2 {
		t.Fatalf("ZMPOP popped count = %+v", popped)
	}
	if string(popped[0].Arr[0].Bulk) != "a" || string(popped[1].Arr[0].Bulk) != "b" {
		t.Fatalf("ZMPOP members = %+v", popped)
	}
	if v := c.Cmd("ZCARD", "z"); v.Int != 1 {
		t.Fatalf("ZCARD after ZMPOP = %+v", v)
	}
	if v := c.Cmd("ZMPOP", "1", "missing", "MAX"); !v.IsNull {
		t.Fatalf("ZMPOP on missing key should be null array, got %+v", v)
	}
}

func TestMultiExecCommits(t *testing.T) {
	c := newTestClient(t)
	if v := c.Cmd("MULTI"); v.Str != "OK" {
		t.Fatalf("MULTI = %+v", v)
	}
	if v := c.Cmd("SET", "a", "1"); v.Str != "QUEUED" {
		t.Fatalf("queued SET reply = %+v", v)
	}
	if v := c.Cmd("INCR", "a"); v.Str != "QUEUED" {
		t.Fatalf("queued INCR reply = %+v", v)
	}
	v := c.Cmd("EXEC")
	if len(v.Arr) != 2 {
		t.Fatalf("EXEC result array = %+v", v)
	}
	if v := c.Cmd("GET", "a"); string(v.Bulk) != "2" {
		t.Fatalf("GET after EXEC = %+v", v)
	}
}

func TestWatchAbortsOnConflict(t *testing.T) {
	s := NewServer()
	c1 := s.NewClient()
	c2 := s.NewClient()

	c1.Cmd("SET", "w", "1")
	c1.Cmd("WATCH", "w")
	c1.Cmd("MULTI")
	c1.Cmd("SET", "w", "2")

	// A second client's independent write dirties the watched key.
	c2.Cmd("SET", "w", "100")

	v := c1.Cmd("EXEC")
	if !v.IsNull {
		t.Fatalf("EXEC should abort with a null array after a WATCH conflict, got %+v", v)
	}
	if v := c1.Cmd("GET", "w"); string(v.Bulk) != "100" {
		t.Fatalf("aborted transaction must not apply its writes, got %+v", v)
	}
}

func TestBlpopWakesOnPush(t *testing.T) {
	s := NewServer()
	waiter := s.NewClient()
	pusher := s.NewClient()

	done := make(chan resp.Value, 1)
	go func() {
		done <- waiter.Cmd("BLPOP", "q", "1")
	}()

	time.Sleep(50 * time.Millisecond)
	pusher.Cmd("RPUSH", "q", "item")

	select {
	case v := <-done:
		if len(v.Arr) != 2 || string(v.Arr[0].Bulk) != "q" || string(v.Arr[1].Bulk) != "item" {
			t.Fatalf("BLPOP result = %+v", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("BLPOP did not wake up after RPUSH")
	}
}

func TestBlpopTimesOutWhenNeverPushed(t *testing.T) {
	c := newTestClient(t)
	start := time.Now()
	v := c.Cmd("BLPOP", "never", "1")
	elapsed := time.Since(start)
	if !v.IsNull {
		t.Fatalf("expected a null-array timeout reply, got %+v", v)
	}
	if elapsed < 900*time.Millisecond {
		t.Fatalf("BLPOP returned too early after %v", elapsed)
	}
}

func TestBlpopInsideMultiNeverSuspends(t *testing.T) {
	c := newTestClient(t)

	c.Cmd("MULTI")
	if v := c.Cmd("BLPOP", "never", "0"); v.Str != "QUEUED" {
		t.Fatalf("queued BLPOP reply = %+v", v)
	}

	done := make(chan resp.Value, 1)
	go func() { done <- c.Cmd("EXEC") }()

	select {
	case v := <-done:
		if len(v.Arr) != 1 || !v.Arr[0].IsNull {
			t.Fatalf("EXEC result = %+v, want a single null reply for the unready BLPOP", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("EXEC hung instead of returning the queued BLPOP's immediate null reply")
	}
}

func TestXaddAutoIDIncreasesMonotonically(t *testing.T) {
	c := newTestClient(t)
	v1 := c.Cmd("XADD", "st", "*", "field", "1")
	v2 := c.Cmd("XADD", "st", "*", "field", "2")
	id1, err := ParseStreamID(string(v1.Bulk), 0)
	if err != nil {
		t.Fatalf("parse id1: %v", err)
	}
	id2, err := ParseStreamID(string(v2.Bulk), 0)
	if err != nil {
		t.Fatalf("parse id2: %v", err)
	}
	if !id1.Less(id2) {
		t.Fatalf("expected id1 < id2, got %s and %s", id1, id2)
	}
	if v := c.Cmd("XLEN", "st"); v.Int != 2 {
		t.Fatalf("XLEN = %+v", v)
	}
}

func TestDumpRestoreRoundTrip(t *testing.T) {
	c := newTestClient(t)
	c.Cmd("RPUSH", "src", "a", "b", "c")
	dump := c.Cmd("DUMP", "src")
	if dump.IsNull {
		t.Fatal("DUMP of an existing key should not be null")
	}
	if v := c.Cmd("RESTORE", "dst", "0", string(dump.Bulk)); v.Str != "OK" {
		t.Fatalf("RESTORE = %+v", v)
	}
	v := c.Cmd("LRANGE", "dst", "0", "-1")
	want := []string{"a", "b", "c"}
	if len(v.Arr) != len(want) {
		t.Fatalf("restored LRANGE = %+v", v)
	}
	for i, w := range want {
		if string(v.Arr[i].Bulk) != w {
			t.Fatalf("restored[%d] = %q, want %q", i, v.Arr[i].Bulk, w)
		}
	}

	// RESTORE onto an existing key without REPLACE must fail.
	c.Cmd("SET", "existing", "v")
	if v := c.Cmd("RESTORE", "existing", "0", string(dump.Bulk)); !v.IsError() {
		t.Fatalf("expected BUSYKEY error, got %+v", v)
	}
}

func TestSetConnectedGatesCommands(t *testing.T) {
	s := NewServer()
	c := s.NewClient()
	s.SetConnected(false)
	if v := c.Cmd("PING"); !v.IsError() {
		t.Fatalf("expected a connection error while disconnected, got %+v", v)
	}
	s.SetConnected(true)
	if v := c.Cmd("PING"); v.IsError() {
		t.Fatalf("expected PING to succeed once reconnected, got %+v", v)
	}
}

func TestScriptingWithoutEvaluatorFails(t *testing.T) {
	c := newTestClient(t)
	v := c.Cmd("EVAL", "return 1", "0")
	if !v.IsError() {
		t.Fatalf("EVAL with no Evaluator installed should fail, got %+v", v)
	}
}

type echoEvaluator struct{}

func (echoEvaluator) Eval(ctx context.Context, script string, keys, args []string) (resp.Value, error) {
	return resp.BulkStr(script), nil
}

func TestScriptingWithEvaluatorInstalled(t *testing.T) {
	s := NewServer()
	s.SetEvaluator(echoEvaluator{})
	c := s.NewClient()
	v := c.Cmd("EVAL", "hello", "0")
	if string(v.Bulk) != "hello" {
		t.Fatalf("EVAL result = %+v", v)
	}
	sha := c.Cmd("SCRIPT", "LOAD", "hello")
	v2 := c.Cmd("EVALSHA", string(sha.Bulk), "0")
	if string(v2.Bulk) != "hello" {
		t.Fatalf("EVALSHA result = %+v", v2)
	}
}

func TestClusterKeyslotConsistentForSameKey(t *testing.T) {
	c := newTestClient(t, WithCluster(3))
	v1 := c.Cmd("CLUSTER", "KEYSLOT", "foo")
	v2 := c.Cmd("CLUSTER", "KEYSLOT", "foo")
	if v1.Int != v2.Int {
		t.Fatalf("CLUSTER KEYSLOT should be deterministic for the same key: %d vs %d", v1.Int, v2.Int)
	}
	if v1.Int < 0 || v1.Int >= clusterSlotCount {
		t.Fatalf("slot %d out of range", v1.Int)
	}
}

func TestDbsizeAndFlushall(t *testing.T) {
	c := newTestClient(t)
	c.Cmd("SET", "a", "1")
	c.Cmd("SET", "b", "2")
	if v := c.Cmd("DBSIZE"); v.Int != 2 {
		t.Fatalf("DBSIZE = %+v", v)
	}
	c.Cmd("FLUSHALL")
	if v := c.Cmd("DBSIZE"); v.Int != 0 {
		t.Fatalf("DBSIZE after FLUSHALL = %+v", v)
	}
}

func TestSelectSwitchesKeyspace(t *testing.T) {
	c := newTestClient(t, WithDatabases(4))
	c.Cmd("SET", "only-in-zero", "1")
	c.Select(1)
	if v := c.Cmd("GET", "only-in-zero"); !v.IsNull {
		t.Fatalf("key set in db 0 should not be visible from db 1, got %+v", v)
	}
	c.Select(0)
	if v := c.Cmd("GET", "only-in-zero"); string(v.Bulk) != "1" {
		t.Fatalf("key should still be visible back in db 0, got %+v", v)
	}
}
