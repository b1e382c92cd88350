/*
file: redis-emulator/cluster.go

New relative to the teacher (no cluster support there); grounded on
l00pss-redkit's go.mod dependency pair cespare/xxhash/v2 +
dgryski/go-rendezvous, which that repo pulls in for exactly this
key->slot->node assignment shape. spec.md §4.2 item 5/§6 calls for a
simulated CLUSTER KEYSLOT/SHARDS surface and MOVED/ASK replies without
an actual multi-process cluster, so slot assignment here is rendezvous
hashing over a fixed, in-process list of simulated node labels.
*/
package redisemu

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"

	"github.com/akashmaji946/redis-emulator/resp"
)

const clusterSlotCount = 16384

// clusterSim assigns each of the 16384 hash slots to one of n simulated
// node labels via rendezvous hashing, so the same key consistently maps
// to the same simulated node across calls (spec.md §6's "CLUSTER
// KEYSLOT/SHARDS... simulated assignment").
type clusterSim struct {
	nodes []string
	rdv   *rendezvous.Rendezvous
	// slotOwner caches the rendezvous pick per slot; slots are cheap to
	// recompute, but this keeps CLUSTER SHARDS output stable in O(1).
	slotOwner [clusterSlotCount]string
}

func newClusterSim(n int) *clusterSim {
	if n <= 0 {
		n = 1
	}
	nodes := make([]string, n)
	for i := range nodes {
		nodes[i] = fmt.Sprintf("node-%d", i)
	}
	hashFn := func(s string) uint64 { return xxhash.Sum64String(s) }
	cs := &clusterSim{
		nodes: nodes,
		rdv:   rendezvous.New(nodes, hashFn),
	}
	for slot := 0; slot < clusterSlotCount; slot++ {
		cs.slotOwner[slot] = cs.rdv.Get(strconv.Itoa(slot))
	}
	return cs
}

// keySlot implements the reference CRC16-free simulation: rather than
// reproduce the reference server's CRC16 table (an implementation
// detail no command semantics depend on), slots are derived from
// xxhash of the hash-tag-extracted key, which satisfies the one
// property commands rely on: identical keys, or keys sharing a
// "{tag}", always land on the same slot.
func (cs *clusterSim) keySlot(key string) int {
	tag := hashTag(key)
	h := xxhash.Sum64String(tag)
	return int(h % clusterSlotCount)
}

// hashTag extracts the {...} hash-tag substring from key if present,
// per the reference server's key-to-slot contract; otherwise the whole
// key participates in hashing.
func hashTag(key string) string {
	start := strings.IndexByte(key, '{')
	if start < 0 {
		return key
	}
	end := strings.IndexByte(key[start+1:], '}')
	if end <= 0 {
		return key
	}
	return key[start+1 : start+1+end]
}

func (cs *clusterSim) nodeForSlot(slot int) string {
	if slot < 0 || slot >= clusterSlotCount {
		return cs.nodes[0]
	}
	return cs.slotOwner[slot]
}

func (cs *clusterSim) nodeForKey(key string) string {
	return cs.nodeForSlot(cs.keySlot(key))
}

// shardRanges groups contiguous slots by owning node, for CLUSTER
// SHARDS' output shape.
type slotRange struct {
	node string
	from int
	to   int
}

func (cs *clusterSim) shardRanges() []slotRange {
	var out []slotRange
	for slot := 0; slot < clusterSlotCount; slot++ {
		owner := cs.slotOwner[slot]
		if len(out) > 0 && out[len(out)-1].node == owner && out[len(out)-1].to == slot-1 {
			out[len(out)-1].to = slot
			continue
		}
		out = append(out, slotRange{node: owner, from: slot, to: slot})
	}
	return out
}

func registerClusterCommands(tbl commandTable) {
	tbl.add(&commandSpec{name: "CLUSTER KEYSLOT", arity: 3, handler: cmdClusterKeyslot})
	tbl.add(&commandSpec{name: "CLUSTER SHARDS", arity: 2, handler: cmdClusterShards})
	tbl.add(&commandSpec{name: "CLUSTER INFO", arity: 2, handler: cmdClusterInfo})
	tbl.add(&commandSpec{name: "CLUSTER NODES", arity: 2, handler: cmdClusterNodes})
	tbl.add(&commandSpec{name: "CLUSTER MYID", arity: 2, handler: cmdClusterMyid})
	tbl.add(&commandSpec{name: "CLUSTER COUNTKEYSINSLOT", arity: 3, handler: cmdClusterCountKeysInSlot})
	tbl.add(&commandSpec{name: "CLUSTER GETKEYSINSLOT", arity: 4, handler: cmdClusterGetKeysInSlot})
}

func cmdClusterKeyslot(s *Server, c *Conn, args [][]byte) resp.Value {
	cs := s.clusterOrDefault()
	return resp.Int64(int64(cs.keySlot(string(args[2]))))
}

func cmdClusterShards(s *Server, c *Conn, args [][]byte) resp.Value {
	cs := s.clusterOrDefault()
	var out []resp.Value
	for _, r := range cs.shardRanges() {
		out = append(out, resp.Arr(
			resp.BulkStr("slots"),
			resp.Arr(resp.Int64(int64(r.from)), resp.Int64(int64(r.to))),
			resp.BulkStr("nodes"),
			resp.Arr(resp.MapOf(
				resp.MapEntry{Key: resp.BulkStr("id"), Val: resp.BulkStr(r.node)},
				resp.MapEntry{Key: resp.BulkStr("role"), Val: resp.BulkStr("master")},
			)),
		))
	}
	return resp.Arr(out...)
}

func cmdClusterInfo(s *Server, c *Conn, args [][]byte) resp.Value {
	state := "ok"
	enabled := 0
	if s.Config.ClusterEnabled {
		enabled = 1
	}
	text := fmt.Sprintf("cluster_enabled:%d\ncluster_state:%s\ncluster_slots_assigned:%d\ncluster_known_nodes:%d\ncluster_size:%d\n",
		enabled, state, clusterSlotCount, len(s.clusterOrDefault().nodes), len(s.clusterOrDefault().nodes))
	return resp.Bulk([]byte(text))
}

func cmdClusterNodes(s *Server, c *Conn, args [][]byte) resp.Value {
	cs := s.clusterOrDefault()
	var b strings.Builder
	for i, node := range cs.nodes {
		fmt.Fprintf(&b, "%s 127.0.0.1:%d@%d myself,master - 0 0 %d connected\n", node, 30000+i, 40000+i, i)
	}
	return resp.Bulk([]byte(b.String()))
}

func cmdClusterMyid(s *Server, c *Conn, args [][]byte) resp.Value {
	return resp.BulkStr(s.clusterOrDefault().nodes[0])
}

func cmdClusterCountKeysInSlot(s *Server, c *Conn, args [][]byte) resp.Value {
	slot, ok := parseInt(args[2])
	if !ok {
		return errNotInteger()
	}
	db := c.db()
	n := 0
	cs := s.clusterOrDefault()
	for _, k := range db.keys(s.nowMs()) {
		if cs.keySlot(k) == int(slot) {
			n++
		}
	}
	return resp.Int64(int64(n))
}

func cmdClusterGetKeysInSlot(s *Server, c *Conn, args [][]byte) resp.Value {
	slot, ok := parseInt(args[2])
	if !ok {
		return errNotInteger()
	}
	count, ok := parseInt(args[3])
	if !ok || count < 0 {
		return errNotInteger()
	}
	db := c.db()
	cs := s.clusterOrDefault()
	var out []string
	for _, k := range db.keys(s.nowMs()) {
		if cs.keySlot(k) == int(slot) {
			out = append(out, k)
			if int64(len(out)) >= count {
				break
			}
		}
	}
	return resp.ArrFrom(out...)
}

// clusterRedirect implements the simulated MOVED discipline spec.md §6
// describes: when cluster mode is on, a write whose first argument
// hashes to a slot not owned by this node's simulated label (always
// nodes[0], "myself") is rejected with MOVED instead of executed. Reads
// are intentionally left unredirected, matching a single-process
// emulator that actually does hold every slot's data locally; only
// write traffic needs a redirect target to exercise the discipline.
var clusterRedirectExempt = map[string]bool{
	"SWAPDB": true, "FLUSHALL": true, "FLUSHDB": true, "CONFIG SET": true,
	"CLIENT KILL": true,
}

func (s *Server) clusterRedirect(spec *commandSpec, name string, args [][]byte) (resp.Value, bool) {
	if !s.Config.ClusterEnabled || !spec.isWrite || len(args) < 2 || clusterRedirectExempt[name] {
		return resp.Value{}, false
	}
	cs := s.clusterOrDefault()
	slot := cs.keySlot(string(args[1]))
	owner := cs.nodeForSlot(slot)
	if owner == cs.nodes[0] {
		return resp.Value{}, false
	}
	return errMoved(slot, owner), true
}

// clusterOrDefault lazily builds a single-node simulation when cluster
// mode isn't enabled, so CLUSTER KEYSLOT/SHARDS stay answerable on a
// standalone server the same way the reference server's CLUSTER
// KEYSLOT is (it always computes a slot, whether or not clustering is
// active).
func (s *Server) clusterOrDefault() *clusterSim {
	if s.cluster != nil {
		return s.cluster
	}
	s.cluster = newClusterSim(1)
	return s.cluster
}
