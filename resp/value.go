/*
Package resp implements the RESP2/RESP3 wire protocol used by the
command dispatcher and connection layer in package redisemu.

file: redis-emulator/resp/value.go
*/
package resp

// Type identifies the RESP protocol type of a Value. It corresponds
// directly to the leading byte of the wire representation.
type Type byte

// RESP protocol type prefixes. RESP2 defines SimpleString through
// Array; RESP3 adds Null, Double, Boolean, BigNumber, BulkError,
// Verbatim, Map, Set and Push.
const (
	SimpleString Type = '+'
	Error        Type = '-'
	Integer      Type = ':'
	BulkString   Type = '$'
	Array        Type = '*'

	Null      Type = '_'
	Double    Type = ','
	Boolean   Type = '#'
	BigNumber Type = '('
	BulkError Type = '!'
	Verbatim  Type = '='
	Map       Type = '%'
	Set       Type = '~'
	Push      Type = '>'
)

// MapEntry is one key/value pair of a RESP3 Map reply.
type MapEntry struct {
	Key Value
	Val Value
}

// Value is a tagged union covering every RESP2/RESP3 reply shape. A
// single struct (rather than an interface per kind) keeps dispatch
// exhaustive and mirrors the teacher's own Value design.
//
// Only the field(s) relevant to Type are populated; the rest are zero.
type Value struct {
	Type Type

	Str     string // SimpleString, Error, BigNumber (digits), Verbatim text
	VerbKnd string // Verbatim's 3-byte format marker, e.g. "txt"
	Bulk    []byte // BulkString, BulkError payload; nil means a null bulk string
	IsNull  bool   // true for a null bulk string/array, or Type == Null
	Int     int64  // Integer
	Dbl     float64
	DblInf  int8 // +1/-1 when Dbl is +Inf/-Inf, 0 otherwise (doubles can't format Inf via strconv the redis way without help)
	Bool    bool
	Arr     []Value  // Array, Set, Push
	MapVals []MapEntry
}

// Str builds a RESP simple string ("+OK\r\n").
func Str(s string) Value { return Value{Type: SimpleString, Str: s} }

// Err builds a RESP error reply. msg should already carry its
// conventional prefix (ERR, WRONGTYPE, ...).
func Err(msg string) Value { return Value{Type: Error, Str: msg} }

// Errf is a convenience wrapper for building Err values from a prefix
// and formatted body, e.g. Errf("ERR", "value is not an integer").
func Errf(prefix, msg string) Value { return Err(prefix + " " + msg) }

// Int64 builds a RESP integer reply.
func Int64(n int64) Value { return Value{Type: Integer, Int: n} }

// Bulk builds a non-null RESP bulk string from bytes.
func Bulk(b []byte) Value { return Value{Type: BulkString, Bulk: b} }

// BulkStr builds a non-null RESP bulk string from a Go string.
func BulkStr(s string) Value { return Value{Type: BulkString, Bulk: []byte(s)} }

// NullBulk builds the RESP null bulk string ("$-1\r\n" in RESP2, "_\r\n"
// when the connection negotiated RESP3).
func NullBulk() Value { return Value{Type: BulkString, IsNull: true} }

// NullArray builds the RESP null array ("*-1\r\n" in RESP2).
func NullArray() Value { return Value{Type: Array, IsNull: true} }

// NullValue builds the RESP3-native null ("_\r\n"); encoders targeting
// RESP2 render it as a null bulk string.
func NullValue() Value { return Value{Type: Null, IsNull: true} }

// Arr builds a RESP array from already-built Values.
func Arr(vals ...Value) Value { return Value{Type: Array, Arr: vals} }

// ArrFrom builds a RESP array from a slice of bulk strings, a very
// common reply shape (KEYS, LRANGE, ...).
func ArrFrom(strs ...string) Value {
	vals := make([]Value, len(strs))
	for i, s := range strs {
		vals[i] = BulkStr(s)
	}
	return Arr(vals...)
}

// ArrFromBytes builds a RESP array from a slice of byte-string members.
func ArrFromBytes(items [][]byte) Value {
	vals := make([]Value, len(items))
	for i, b := range items {
		vals[i] = Bulk(b)
	}
	return Arr(vals...)
}

// SetOf builds a RESP3 Set reply; RESP2 encoders downgrade it to Array.
func SetOf(vals ...Value) Value { return Value{Type: Set, Arr: vals} }

// MapOf builds a RESP3 Map reply; RESP2 encoders downgrade it to a flat
// Array of alternating key/value entries.
func MapOf(entries ...MapEntry) Value { return Value{Type: Map, MapVals: entries} }

// Dbl builds a RESP3 Double reply; RESP2 encoders downgrade it to a
// bulk string formatted the way Redis formats doubles.
func Dbl(f float64) Value { return Value{Type: Double, Dbl: f} }

// Bool builds a RESP3 Boolean reply; RESP2 encoders downgrade it to
// Integer 0/1.
func Bool(b bool) Value { return Value{Type: Boolean, Bool: b} }

// BigNum builds a RESP3 BigNumber reply from its decimal digit string;
// RESP2 encoders downgrade it to a bulk string.
func BigNum(digits string) Value { return Value{Type: BigNumber, Str: digits} }

// VerbatimText builds a RESP3 verbatim string ("=<len>\r\ntxt:<data>\r\n");
// RESP2 encoders downgrade it to a plain bulk string.
func VerbatimText(kind, text string) Value {
	return Value{Type: Verbatim, VerbKnd: kind, Str: text}
}

// PushOf builds a RESP3 out-of-band push message (pub/sub delivery,
// invalidation, ...); RESP2 encoders downgrade it to a plain Array,
// which is how RESP2 pub/sub messages have always looked on the wire.
func PushOf(vals ...Value) Value { return Value{Type: Push, Arr: vals} }

// IsError reports whether v is an Error or BulkError reply.
func (v Value) IsError() bool { return v.Type == Error || v.Type == BulkError }
