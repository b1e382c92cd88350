/*
file: redis-emulator/errors.go

Error-kind constructors matching the prefixes spec.md §6/§7 enumerate:
ERR, WRONGTYPE, NOSCRIPT, BUSY, NOAUTH, MOVED, ASK, READONLY, OOM,
SYNTAX (folded under ERR text, as the reference server does), EXECABORT.
*/
package redisemu

import (
	"fmt"

	"github.com/akashmaji946/redis-emulator/resp"
)

func errWrongType() resp.Value {
	return resp.Err("WRONGTYPE Operation against a key holding the wrong kind of value")
}

func errSyntax() resp.Value {
	return resp.Err("ERR syntax error")
}

func errNotInteger() resp.Value {
	return resp.Err("ERR value is not an integer or out of range")
}

func errNotFloat() resp.Value {
	return resp.Err("ERR value is not a valid float")
}

func errWrongArgs(cmd string) resp.Value {
	return resp.Err(fmt.Sprintf("ERR wrong number of arguments for '%s' command", cmd))
}

func errUnknownCommand(name string, args [][]byte) resp.Value {
	return resp.Err(fmt.Sprintf("ERR unknown command '%s'", name))
}

func errNoSuchKey() resp.Value {
	return resp.Err("ERR no such key")
}

func errNoScript() resp.Value {
	return resp.Err("NOSCRIPT No matching script. Please use EVAL.")
}

func errBusy() resp.Value {
	return resp.Err("BUSY Redis is busy running a script")
}

func errNoAuth() resp.Value {
	return resp.Err("NOAUTH Authentication required.")
}

func errAuthFailed() resp.Value {
	return resp.Err("ERR invalid password")
}

func errReadOnly() resp.Value {
	return resp.Err("READONLY You can't write against a read only replica.")
}

func errOOM() resp.Value {
	return resp.Err("OOM command not allowed when used memory > 'maxmemory'.")
}

func errExecAbort() resp.Value {
	return resp.Err("EXECABORT Transaction discarded because of previous errors.")
}

func errNotInMulti() resp.Value {
	return resp.Err("ERR EXEC without MULTI")
}

func errDiscardWithoutMulti() resp.Value {
	return resp.Err("ERR DISCARD without MULTI")
}

func errNestedMulti() resp.Value {
	return resp.Err("ERR MULTI calls can not be nested")
}

func errSubscribeContext(cmd string) resp.Value {
	return resp.Err(fmt.Sprintf("ERR Can't execute '%s': only (P|S)SUBSCRIBE / (P|S)UNSUBSCRIBE / PING / QUIT / RESET are allowed in this context", cmd))
}

func errConnection() resp.Value {
	return resp.Err("ERR Server is not connected")
}

func errMoved(slot int, addr string) resp.Value {
	return resp.Err(fmt.Sprintf("MOVED %d %s", slot, addr))
}

func errAsk(slot int, addr string) resp.Value {
	return resp.Err(fmt.Sprintf("ASK %d %s", slot, addr))
}

func errOutOfRange() resp.Value {
	return resp.Err("ERR index out of range")
}
