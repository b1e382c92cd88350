package resp

import (
	"bytes"
	"testing"
)

func encode(t *testing.T, proto int, v Value) string {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Proto = proto
	if err := w.WriteValue(v); err != nil {
		t.Fatalf("WriteValue: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	return buf.String()
}

func TestWriterRESP2Basics(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want string
	}{
		{"simple string", Str("OK"), "+OK\r\n"},
		{"error", Err("ERR boom"), "-ERR boom\r\n"},
		{"integer", Int64(42), ":42\r\n"},
		{"bulk", Bulk([]byte("hi")), "$2\r\nhi\r\n"},
		{"null bulk", NullBulk(), "$-1\r\n"},
		{"null array", NullArray(), "*-1\r\n"},
		{"array", Arr(Int64(1), Int64(2)), "*2\r\n:1\r\n:2\r\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := encode(t, 2, tc.v)
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestWriterZeroValueIsNoOp(t *testing.T) {
	got := encode(t, 2, Value{})
	if got != "" {
		t.Fatalf("zero Value should write nothing, got %q", got)
	}
}

func TestWriterRESP3Downgrades(t *testing.T) {
	// Null, Boolean and Map only take their native RESP3 form when the
	// connection negotiated protocol 3; on RESP2 they downgrade.
	if got := encode(t, 2, NullValue()); got != "$-1\r\n" {
		t.Fatalf("RESP2 Null downgrade = %q", got)
	}
	if got := encode(t, 3, NullValue()); got != "_\r\n" {
		t.Fatalf("RESP3 Null = %q", got)
	}

	if got := encode(t, 2, Bool(true)); got != ":1\r\n" {
		t.Fatalf("RESP2 Boolean(true) downgrade = %q", got)
	}
	if got := encode(t, 2, Bool(false)); got != ":0\r\n" {
		t.Fatalf("RESP2 Boolean(false) downgrade = %q", got)
	}
	if got := encode(t, 3, Bool(true)); got != "#t\r\n" {
		t.Fatalf("RESP3 Boolean(true) = %q", got)
	}

	m := MapOf(MapEntry{Key: BulkStr("a"), Val: Int64(1)}, MapEntry{Key: BulkStr("b"), Val: Int64(2)})
	if got := encode(t, 2, m); got != "*4\r\n$1\r\na\r\n:1\r\n$1\r\nb\r\n:2\r\n" {
		t.Fatalf("RESP2 Map downgrade = %q", got)
	}
	if got := encode(t, 3, m); got != "%2\r\n$1\r\na\r\n:1\r\n$1\r\nb\r\n:2\r\n" {
		t.Fatalf("RESP3 Map = %q", got)
	}

	set := SetOf(Int64(1), Int64(2))
	if got := encode(t, 2, set); got != "*2\r\n:1\r\n:2\r\n" {
		t.Fatalf("RESP2 Set downgrade = %q", got)
	}
	if got := encode(t, 3, set); got != "~2\r\n:1\r\n:2\r\n" {
		t.Fatalf("RESP3 Set = %q", got)
	}

	push := PushOf(BulkStr("message"), BulkStr("ch"), BulkStr("payload"))
	if got := encode(t, 2, push); got[0] != '*' {
		t.Fatalf("RESP2 Push should downgrade to an Array, got %q", got)
	}
	if got := encode(t, 3, push); got[0] != '>' {
		t.Fatalf("RESP3 Push should keep its native prefix, got %q", got)
	}

	vt := VerbatimText("txt", "hello")
	if got := encode(t, 2, vt); got != "$5\r\nhello\r\n" {
		t.Fatalf("RESP2 Verbatim downgrade = %q", got)
	}
	if got := encode(t, 3, vt); got != "=9\r\ntxt:hello\r\n" {
		t.Fatalf("RESP3 Verbatim = %q", got)
	}
}

func TestFormatDouble(t *testing.T) {
	cases := map[float64]string{
		3.0:            "3",
		3.5:            "3.5",
		0:              "0",
		posInf:         "inf",
		negInf:         "-inf",
	}
	for f, want := range cases {
		if got := FormatDouble(f); got != want {
			t.Fatalf("FormatDouble(%v) = %q, want %q", f, got, want)
		}
	}
}
