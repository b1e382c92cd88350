/*
file: redis-emulator/object.go

Generalizes internal/common/value.go's Item (a Type string plus
parallel fields) into the closed, spec-defined kind set. A dispatch
table per kind, not subtype polymorphism, per spec.md §9.
*/
package redisemu

import "sort"

// Kind is the tag of a stored Object. The zero value is never used on
// a live key: an Object only exists in a Database once it has been
// given a concrete Kind.
type Kind int

const (
	KindString Kind = iota + 1
	KindList
	KindHash
	KindSet
	KindZSet
	KindStream
	KindHLL // represented internally as a Set; see spec.md §3.
)

// String is used by TYPE and error messages.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindHash:
		return "hash"
	case KindSet:
		return "set"
	case KindZSet:
		return "zset"
	case KindStream:
		return "stream"
	case KindHLL:
		return "string" // HLL is addressed through string-shaped commands (PFADD et al.)
	default:
		return "none"
	}
}

// zmember is one (member, score) pair of a ZSet's order index.
type zmember struct {
	member string
	score  float64
}

// zset is a sorted-set representation: a map for O(1) score lookup and
// a score-then-lex-ordered slice rebuilt incrementally for range
// queries, per spec.md §3's dual-index invariant.
type zset struct {
	byMember map[string]float64
	order    []zmember // kept sorted by (score asc, member asc)
}

func newZSet() *zset {
	return &zset{byMember: make(map[string]float64)}
}

func zless(a, b zmember) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	return a.member < b.member
}

func (z *zset) indexOf(m zmember) int {
	return sort.Search(len(z.order), func(i int) bool { return !zless(z.order[i], m) })
}

// Set inserts or updates member with score. Returns true if member was
// newly added.
func (z *zset) Set(member string, score float64) bool {
	if old, ok := z.byMember[member]; ok {
		if old == score {
			return false
		}
		z.removeFromOrder(zmember{member, old})
		z.insertOrder(zmember{member, score})
		z.byMember[member] = score
		return false
	}
	z.byMember[member] = score
	z.insertOrder(zmember{member, score})
	return true
}

func (z *zset) insertOrder(m zmember) {
	i := z.indexOf(m)
	z.order = append(z.order, zmember{})
	copy(z.order[i+1:], z.order[i:])
	z.order[i] = m
}

func (z *zset) removeFromOrder(m zmember) {
	i := z.indexOf(m)
	for i < len(z.order) && z.order[i] != m {
		i++
	}
	if i == len(z.order) {
		return
	}
	z.order = append(z.order[:i], z.order[i+1:]...)
}

// Remove deletes member. Returns true if it was present.
func (z *zset) Remove(member string) bool {
	score, ok := z.byMember[member]
	if !ok {
		return false
	}
	delete(z.byMember, member)
	z.removeFromOrder(zmember{member, score})
	return true
}

// Score returns member's score.
func (z *zset) Score(member string) (float64, bool) {
	s, ok := z.byMember[member]
	return s, ok
}

// Len returns the member count.
func (z *zset) Len() int { return len(z.byMember) }

// Rank returns member's 0-based rank in ascending order, or -1.
func (z *zset) Rank(member string) int {
	score, ok := z.byMember[member]
	if !ok {
		return -1
	}
	i := z.indexOf(zmember{member, score})
	for i < len(z.order) && z.order[i].member != member {
		i++
	}
	if i == len(z.order) {
		return -1
	}
	return i
}

// hashObject is a Hash value: fields plus an optional per-field
// expiry deadline (milliseconds on the server clock), per spec.md
// §4.3's HEXPIRE family.
type hashObject struct {
	fields  map[string][]byte
	expires map[string]int64 // field -> deadline ms; absent = no TTL
}

// Object is the tagged value stored under a key. Only the field(s)
// relevant to Kind are populated.
type Object struct {
	Kind Kind

	Str []byte

	List [][]byte

	Hash *hashObject

	Set map[string]struct{}

	ZSet *zset

	Stream *Stream
}

func newHash() *hashObject {
	return &hashObject{fields: make(map[string][]byte)}
}

func newSet() map[string]struct{} { return make(map[string]struct{}) }

// newString builds a string-kinded Object.
func newString(b []byte) *Object { return &Object{Kind: KindString, Str: b} }

// newList builds an empty list-kinded Object.
func newList() *Object { return &Object{Kind: KindList, List: [][]byte{}} }

// newHashValue builds an empty hash-kinded Object.
func newHashValue() *Object { return &Object{Kind: KindHash, Hash: newHash()} }

// newSetValue builds an empty set-kinded Object.
func newSetValue() *Object { return &Object{Kind: KindSet, Set: newSet()} }

// newZSetValue builds an empty zset-kinded Object.
func newZSetValue() *Object { return &Object{Kind: KindZSet, ZSet: newZSet()} }

// newHLLValue builds an empty HLL-kinded Object (exact set underneath).
func newHLLValue() *Object { return &Object{Kind: KindHLL, Set: newSet()} }

// Empty reports whether a container-kinded Object has nothing left in
// it and should be deleted from the keyspace (spec.md §3: "Non-empty:
// an emptied list/hash/set/zset is removed").
func (o *Object) Empty() bool {
	switch o.Kind {
	case KindList:
		return len(o.List) == 0
	case KindHash:
		return len(o.Hash.fields) == 0
	case KindSet, KindHLL:
		return len(o.Set) == 0
	case KindZSet:
		return o.ZSet.Len() == 0
	case KindStream:
		return false // streams persist even when drained; XLEN can be 0
	}
	return false
}
