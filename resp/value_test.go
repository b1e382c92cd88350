package resp

import "testing"

func TestIsError(t *testing.T) {
	if !Err("ERR boom").IsError() {
		t.Fatal("Err value should report IsError")
	}
	if !(Value{Type: BulkError, Bulk: []byte("boom")}).IsError() {
		t.Fatal("BulkError value should report IsError")
	}
	if Str("OK").IsError() {
		t.Fatal("SimpleString should not report IsError")
	}
	if Int64(1).IsError() {
		t.Fatal("Integer should not report IsError")
	}
}

func TestArrFromAndArrFromBytes(t *testing.T) {
	v := ArrFrom("a", "b", "c")
	if v.Type != Array || len(v.Arr) != 3 {
		t.Fatalf("unexpected ArrFrom shape: %+v", v)
	}
	for i, want := range []string{"a", "b", "c"} {
		if string(v.Arr[i].Bulk) != want {
			t.Fatalf("element %d = %q, want %q", i, v.Arr[i].Bulk, want)
		}
	}

	vb := ArrFromBytes([][]byte{[]byte("x"), []byte("y")})
	if len(vb.Arr) != 2 || string(vb.Arr[0].Bulk) != "x" || string(vb.Arr[1].Bulk) != "y" {
		t.Fatalf("unexpected ArrFromBytes shape: %+v", vb)
	}
}

func TestNullConstructors(t *testing.T) {
	if !NullBulk().IsNull || NullBulk().Type != BulkString {
		t.Fatal("NullBulk should be a null BulkString")
	}
	if !NullArray().IsNull || NullArray().Type != Array {
		t.Fatal("NullArray should be a null Array")
	}
	if !NullValue().IsNull || NullValue().Type != Null {
		t.Fatal("NullValue should be a null Null")
	}
}
