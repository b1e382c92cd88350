/*
file: redis-emulator/cmd_bitmap.go

Generalizes internal/handlers/handler_bitmap.go's SetBit/GetBit/
BitCount/BitOp/BitPos onto Object/Database's string representation,
per spec.md §4.3's bitmap semantics (BIT/BYTE index modes, zero-extend
on BITOP).
*/
package redisemu

import (
	"strings"

	"github.com/akashmaji946/redis-emulator/resp"
)

func registerBitmapCommands(tbl commandTable) {
	tbl.add(&commandSpec{name: "SETBIT", arity: 4, isWrite: true, handler: cmdSetbit})
	tbl.add(&commandSpec{name: "GETBIT", arity: 3, handler: cmdGetbit})
	tbl.add(&commandSpec{name: "BITCOUNT", arity: -2, handler: cmdBitcount})
	tbl.add(&commandSpec{name: "BITOP", arity: -4, isWrite: true, handler: cmdBitop})
	tbl.add(&commandSpec{name: "BITPOS", arity: -3, handler: cmdBitpos})
}

func cmdSetbit(s *Server, c *Conn, args [][]byte) resp.Value {
	offset, ok := parseInt(args[2])
	if !ok || offset < 0 {
		return resp.Err("ERR bit offset is not an integer or out of range")
	}
	bit, ok := parseInt(args[3])
	if !ok || (bit != 0 && bit != 1) {
		return resp.Err("ERR bit is not an integer or out of range")
	}
	db := c.db()
	key := string(args[1])
	nowMs := s.nowMs()
	obj, existed := db.get(key, nowMs)
	if existed && obj.Kind != KindString {
		return errWrongType()
	}
	if !existed {
		obj = newString([]byte{})
		db.set(key, obj, false)
	}
	byteIdx := int(offset / 8)
	bitIdx := uint(7 - offset%8)
	if byteIdx >= len(obj.Str) {
		buf := make([]byte, byteIdx+1)
		copy(buf, obj.Str)
		obj.Str = buf
	}
	old := (obj.Str[byteIdx] >> bitIdx) & 1
	if bit == 1 {
		obj.Str[byteIdx] |= 1 << bitIdx
	} else {
		obj.Str[byteIdx] &^= 1 << bitIdx
	}
	s.keyspaceNotify(db.id, "setbit", key)
	return resp.Int64(int64(old))
}

func cmdGetbit(s *Server, c *Conn, args [][]byte) resp.Value {
	offset, ok := parseInt(args[2])
	if !ok || offset < 0 {
		return resp.Err("ERR bit offset is not an integer or out of range")
	}
	db := c.db()
	obj, errv, found := stringAt(db, string(args[1]), s.nowMs())
	if !found {
		return resp.Int64(0)
	}
	if obj == nil {
		return errv
	}
	byteIdx := int(offset / 8)
	if byteIdx >= len(obj.Str) {
		return resp.Int64(0)
	}
	bitIdx := uint(7 - offset%8)
	return resp.Int64(int64((obj.Str[byteIdx] >> bitIdx) & 1))
}

func popcountByte(b byte) int {
	n := 0
	for b != 0 {
		n += int(b & 1)
		b >>= 1
	}
	return n
}

func cmdBitcount(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, errv, found := stringAt(db, string(args[1]), s.nowMs())
	if !found {
		return resp.Int64(0)
	}
	if obj == nil {
		return errv
	}
	data := obj.Str
	startByte, endByte := 0, len(data)-1
	if len(args) >= 4 {
		start, ok1 := parseInt(args[2])
		end, ok2 := parseInt(args[3])
		if !ok1 || !ok2 {
			return errNotInteger()
		}
		unit := "BYTE"
		if len(args) >= 5 {
			unit = strings.ToUpper(string(args[4]))
		}
		if unit == "BIT" {
			totalBits := int64(len(data)) * 8
			lo, hi, ok := clampRange(start, end, totalBits)
			if !ok {
				return resp.Int64(0)
			}
			n := 0
			for bit := lo; bit <= hi; bit++ {
				byteIdx := bit / 8
				bitIdx := uint(7 - bit%8)
				if (data[byteIdx]>>bitIdx)&1 == 1 {
					n++
				}
			}
			return resp.Int64(int64(n))
		}
		lo, hi, ok := clampRange(start, end, int64(len(data)))
		if !ok {
			return resp.Int64(0)
		}
		startByte, endByte = int(lo), int(hi)
	} else if len(data) == 0 {
		return resp.Int64(0)
	}
	n := 0
	for i := startByte; i <= endByte && i < len(data); i++ {
		n += popcountByte(data[i])
	}
	return resp.Int64(int64(n))
}

func cmdBitop(s *Server, c *Conn, args [][]byte) resp.Value {
	op := strings.ToUpper(string(args[1]))
	dst := string(args[2])
	srcKeys := args[3:]
	db := c.db()
	nowMs := s.nowMs()

	srcs := make([][]byte, len(srcKeys))
	maxLen := 0
	for i, k := range srcKeys {
		obj, errv, found := stringAt(db, string(k), nowMs)
		if found && obj == nil {
			return errv
		}
		if found {
			srcs[i] = obj.Str
		}
		if len(srcs[i]) > maxLen {
			maxLen = len(srcs[i])
		}
	}

	if op == "NOT" {
		if len(srcKeys) != 1 {
			return resp.Err("ERR BITOP NOT must be called with a single source key.")
		}
		out := make([]byte, maxLen)
		for i := 0; i < maxLen; i++ {
			out[i] = ^srcs[0][i]
		}
		return bitopStore(s, db, dst, out)
	}

	if maxLen == 0 {
		db.delete(dst)
		return resp.Int64(0)
	}
	out := make([]byte, maxLen)
	for i := range srcs {
		buf := make([]byte, maxLen)
		copy(buf, srcs[i])
		srcs[i] = buf
	}
	switch op {
	case "AND":
		for i := range out {
			out[i] = 0xFF
			for _, src := range srcs {
				out[i] &= src[i]
			}
		}
	case "OR":
		for i := range out {
			for _, src := range srcs {
				out[i] |= src[i]
			}
		}
	case "XOR":
		for i := range out {
			for _, src := range srcs {
				out[i] ^= src[i]
			}
		}
	default:
		return errSyntax()
	}
	return bitopStore(s, db, dst, out)
}

func bitopStore(s *Server, db *Database, dst string, out []byte) resp.Value {
	if len(out) == 0 {
		db.delete(dst)
		return resp.Int64(0)
	}
	db.set(dst, newString(out), false)
	s.keyspaceNotify(db.id, "set", dst)
	return resp.Int64(int64(len(out)))
}

func cmdBitpos(s *Server, c *Conn, args [][]byte) resp.Value {
	db := c.db()
	obj, errv, found := stringAt(db, string(args[1]), s.nowMs())
	target, ok := parseInt(args[2])
	if !ok || (target != 0 && target != 1) {
		return errNotInteger()
	}
	if !found {
		if target == 0 {
			return resp.Int64(0)
		}
		return resp.Int64(-1)
	}
	if obj == nil {
		return errv
	}
	data := obj.Str
	unit := "BYTE"
	hasRange := len(args) >= 4
	var startByte, endByte int64 = 0, int64(len(data)) - 1
	explicitEnd := false
	if hasRange {
		start, ok1 := parseInt(args[3])
		if !ok1 {
			return errNotInteger()
		}
		end := int64(len(data)) - 1
		if len(args) >= 5 {
			n, ok2 := parseInt(args[4])
			if !ok2 {
				return errNotInteger()
			}
			end = n
			explicitEnd = true
		}
		if len(args) >= 6 {
			unit = strings.ToUpper(string(args[5]))
		}
		if unit == "BIT" {
			totalBits := int64(len(data)) * 8
			lo, hi, ok := clampRange(start, end, totalBits)
			if !ok {
				return resp.Int64(-1)
			}
			for bit := lo; bit <= hi; bit++ {
				byteIdx := bit / 8
				bitIdx := uint(7 - bit%8)
				if int64((data[byteIdx]>>bitIdx)&1) == target {
					return resp.Int64(bit)
				}
			}
			return resp.Int64(-1)
		}
		lo, hi, ok := clampRange(start, end, int64(len(data)))
		if !ok {
			return resp.Int64(-1)
		}
		startByte, endByte = lo, hi
	}
	for byteIdx := startByte; byteIdx <= endByte && int(byteIdx) < len(data); byteIdx++ {
		for bitIdx := uint(0); bitIdx < 8; bitIdx++ {
			bitVal := int64((data[byteIdx] >> (7 - bitIdx)) & 1)
			if bitVal == target {
				return resp.Int64(byteIdx*8 + int64(bitIdx))
			}
		}
	}
	// Per the reference server: searching for a clear bit with no
	// explicit end, past the string's end, finds the implicit zero
	// padding that follows it.
	if target == 0 && !hasRange || (target == 0 && hasRange && !explicitEnd) {
		return resp.Int64(int64(len(data)) * 8)
	}
	return resp.Int64(-1)
}
