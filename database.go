/*
file: redis-emulator/database.go

Generalizes internal/database/database.go's Database (Store/Mu/Touch/
Rem/RemIfExpired/ActiveExpire/EvictKeys) off the teacher's package-level
DB/DBS singleton and onto an explicit owner (*Server), per the REDESIGN
FLAG in SPEC_FULL.md.
*/
package redisemu

import (
	"math/rand"
	"sort"
	"sync"
)

// Database is one numbered keyspace: a key->Object map, an expiry
// index, and a per-key watch-version counter (spec.md §3).
type Database struct {
	mu sync.RWMutex

	id      int
	store   map[string]*Object
	expires map[string]int64 // key -> deadline ms; absent = no TTL
	// versions is bumped on every write-class mutation of a key, and is
	// the basis for WATCH/EXEC's optimistic-concurrency check.
	versions map[string]uint64

	lastAccess  map[string]int64
	accessCount map[string]int64
	memBytes    int64

	// onExpire is set by the owning Server once it constructs its
	// Databases, and is invoked (still holding db.mu) whenever a key is
	// removed because its deadline passed, so the Server can emit the
	// "expired" keyspace notification spec.md §4.4 requires "before the
	// handler observes absence." nil in a freshly-constructed Database
	// that hasn't been attached to a Server yet (e.g. in tests exercising
	// Database directly), in which case expiry is silent.
	onExpire func(key string)
}

func newDatabase(id int) *Database {
	return &Database{
		id:          id,
		store:       make(map[string]*Object),
		expires:     make(map[string]int64),
		versions:    make(map[string]uint64),
		lastAccess:  make(map[string]int64),
		accessCount: make(map[string]int64),
	}
}

// touch bumps key's watch version. Callers must hold db.mu for writing.
// It emits no keyspace notification; Server.keyspaceNotify does that.
func (db *Database) touch(key string) {
	db.versions[key]++
}

func (db *Database) version(key string) uint64 { return db.versions[key] }

// isExpired reports whether key's deadline (if any) is <= nowMs.
func (db *Database) isExpired(key string, nowMs int64) bool {
	deadline, ok := db.expires[key]
	return ok && deadline <= nowMs
}

// expireIfNeeded performs the lazy-expiry check spec.md §4.4 requires:
// "every keyed read/write first resolves expiry." Must be called with
// db.mu held for writing, since it may delete the key. Returns the
// object (nil if absent/expired) and whether the key was found live.
func (db *Database) expireIfNeeded(key string, nowMs int64) (*Object, bool) {
	obj, ok := db.store[key]
	if !ok {
		return nil, false
	}
	if db.isExpired(key, nowMs) {
		db.expireKeyLocked(key)
		return nil, false
	}
	return obj, true
}

func (db *Database) deleteKeyLocked(key string) {
	delete(db.store, key)
	delete(db.expires, key)
	delete(db.lastAccess, key)
	delete(db.accessCount, key)
	db.touch(key)
}

// expireKeyLocked removes key because its deadline passed and notifies
// the owning Server, if attached, so the "expired" keyspace event fires
// at the exact point of deletion (spec.md §4.4, §8). Must be called
// with db.mu held for writing.
func (db *Database) expireKeyLocked(key string) {
	db.deleteKeyLocked(key)
	if db.onExpire != nil {
		db.onExpire(key)
	}
}

// get returns the live object at key, applying lazy expiry.
func (db *Database) get(key string, nowMs int64) (*Object, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	obj, ok := db.expireIfNeeded(key, nowMs)
	if ok {
		db.lastAccess[key] = nowMs
		db.accessCount[key]++
	}
	return obj, ok
}

// set stores obj at key, clearing any prior TTL unless keepTTL is true.
func (db *Database) set(key string, obj *Object, keepTTL bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.store[key] = obj
	if !keepTTL {
		delete(db.expires, key)
	}
	db.touch(key)
}

// delete removes key unconditionally. Returns true if it existed.
func (db *Database) delete(key string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.store[key]; !ok {
		return false
	}
	db.deleteKeyLocked(key)
	return true
}

// setExpireAt sets key's deadline to deadlineMs. Returns false if the
// key doesn't exist.
func (db *Database) setExpireAt(key string, deadlineMs int64) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.store[key]; !ok {
		return false
	}
	db.expires[key] = deadlineMs
	db.touch(key)
	return true
}

// persist clears key's TTL. Returns true if a TTL was actually cleared.
func (db *Database) persist(key string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.store[key]; !ok {
		return false
	}
	if _, ok := db.expires[key]; !ok {
		return false
	}
	delete(db.expires, key)
	db.touch(key)
	return true
}

// ttlMs returns the remaining TTL in milliseconds (-1 = no TTL, -2 =
// absent), per the standard TTL/PTTL contract.
func (db *Database) ttlMs(key string, nowMs int64) int64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.expireIfNeeded(key, nowMs); !ok {
		return -2
	}
	deadline, ok := db.expires[key]
	if !ok {
		return -1
	}
	remaining := deadline - nowMs
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// exists reports whether key is currently live, applying lazy expiry.
func (db *Database) exists(key string, nowMs int64) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, ok := db.expireIfNeeded(key, nowMs)
	return ok
}

// size returns the number of live keys, applying lazy expiry as it
// walks (matches DBSIZE's usual best-effort behavior).
func (db *Database) size(nowMs int64) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for k := range db.store {
		if _, ok := db.expireIfNeeded(k, nowMs); ok {
			n++
		}
	}
	return n
}

// flush clears every key in the database.
func (db *Database) flush() {
	db.mu.Lock()
	defer db.mu.Unlock()
	for k := range db.store {
		db.versions[k]++
	}
	db.store = make(map[string]*Object)
	db.expires = make(map[string]int64)
}

// keys returns all live key names, applying lazy expiry.
func (db *Database) keys(nowMs int64) []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]string, 0, len(db.store))
	for k := range db.store {
		if _, ok := db.expireIfNeeded(k, nowMs); ok {
			out = append(out, k)
		}
	}
	return out
}

// activeExpireSweep samples up to a fixed budget of keys and removes
// any that have expired, matching spec.md §4.4's "periodic sweep."
func (db *Database) activeExpireSweep(nowMs int64) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	budget := 20
	for k, deadline := range db.expires {
		if budget <= 0 {
			break
		}
		budget--
		if deadline <= nowMs {
			db.expireKeyLocked(k)
			n++
		}
	}
	return n
}

// sampleKeys returns up to n randomly chosen key names.
func (db *Database) sampleKeys(n int) []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	all := make([]string, 0, len(db.store))
	for k := range db.store {
		all = append(all, k)
	}
	rand.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	if n < len(all) {
		all = all[:n]
	}
	return all
}

// evictKeys frees memory under the configured eviction policy, per
// internal/database/database.go's EvictKeys: sample a bounded number
// of keys, sort by the policy's comparator, and delete until
// memBytes+neededBytes fits under cfg.MaxMemory. Returns the number of
// keys evicted and whether enough memory was ultimately freed.
func (db *Database) evictKeys(cfg *Config, neededBytes int64) (int, bool) {
	if cfg.Eviction == NoEviction {
		return 0, false
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	keys := make([]string, 0, len(db.store))
	for k := range db.store {
		keys = append(keys, k)
	}
	rand.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
	if len(keys) > 20 {
		keys = keys[:20]
	}

	switch cfg.Eviction {
	case AllKeysLRU:
		sort.Slice(keys, func(i, j int) bool { return db.lastAccess[keys[i]] < db.lastAccess[keys[j]] })
	case AllKeysLFU:
		sort.Slice(keys, func(i, j int) bool { return db.accessCount[keys[i]] < db.accessCount[keys[j]] })
	}

	fits := func() bool { return db.memBytes+neededBytes < cfg.MaxMemory }

	freed := 0
	for _, k := range keys {
		if fits() {
			break
		}
		db.deleteKeyLocked(k)
		freed++
	}
	return freed, fits()
}
