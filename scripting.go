/*
file: redis-emulator/scripting.go

Scripting is an explicit non-goal for this emulator (spec.md excludes
shipping a Lua interpreter), but the SHA-1 script cache and EVAL/EVALSHA
command surface are real: they're built against a narrow Evaluator
interface a caller can plug an interpreter into, the same boundary
internal/handlers draws around anything it doesn't want to own directly
(see handler_connection.go's IsSafeCmd carving admin/auth out of the
general command path). No teacher file implements scripting since the
teacher has none either; this is grounded in spec.md's own resolution
of the Open Question, recorded in SPEC_FULL.md.
*/
package redisemu

import (
	"context"
	"crypto/sha1"
	"encoding/hex"

	"github.com/akashmaji946/redis-emulator/resp"
)

// Evaluator is the pluggable scripting boundary. EVAL/EVALSHA call
// through to an installed Evaluator (see Server.SetEvaluator); with
// none installed, or with Config.LuaModulesEnabled false, both commands
// fail with an ERR error (EVALSHA of an uncached SHA replies NOSCRIPT
// first).
type Evaluator interface {
	Eval(ctx context.Context, script string, keys, args []string) (resp.Value, error)
}

func registerScriptingCommands(tbl commandTable) {
	tbl.add(&commandSpec{name: "EVAL", arity: -3, noScript: true, handler: cmdEval})
	tbl.add(&commandSpec{name: "EVAL_RO", arity: -3, noScript: true, handler: cmdEval})
	tbl.add(&commandSpec{name: "EVALSHA", arity: -3, noScript: true, handler: cmdEvalsha})
	tbl.add(&commandSpec{name: "EVALSHA_RO", arity: -3, noScript: true, handler: cmdEvalsha})
	tbl.add(&commandSpec{name: "SCRIPT LOAD", arity: 3, handler: cmdScriptLoad})
	tbl.add(&commandSpec{name: "SCRIPT EXISTS", arity: -3, handler: cmdScriptExists})
	tbl.add(&commandSpec{name: "SCRIPT FLUSH", arity: -2, handler: cmdScriptFlush})
}

func sha1Hex(body string) string {
	sum := sha1.Sum([]byte(body))
	return hex.EncodeToString(sum[:])
}

func cmdScriptLoad(s *Server, c *Conn, args [][]byte) resp.Value {
	body := string(args[2])
	sha := sha1Hex(body)
	s.scriptsMu.Lock()
	s.scripts[sha] = body
	s.scriptsMu.Unlock()
	return resp.BulkStr(sha)
}

func cmdScriptExists(s *Server, c *Conn, args [][]byte) resp.Value {
	s.scriptsMu.RLock()
	defer s.scriptsMu.RUnlock()
	out := make([]resp.Value, 0, len(args)-2)
	for _, a := range args[2:] {
		_, ok := s.scripts[string(a)]
		out = append(out, resp.Int64(boolToInt(ok)))
	}
	return resp.Arr(out...)
}

func cmdScriptFlush(s *Server, c *Conn, args [][]byte) resp.Value {
	s.scriptsMu.Lock()
	s.scripts = make(map[string]string)
	s.scriptsMu.Unlock()
	return resp.Str("OK")
}

// parseKeysAndArgs splits EVAL's trailing argument list into its
// numkeys-prefixed KEYS/ARGV halves.
func parseKeysAndArgs(args [][]byte) ([]string, []string, bool) {
	numKeys, ok := parseInt(args[0])
	if !ok || numKeys < 0 || int(numKeys) > len(args)-1 {
		return nil, nil, false
	}
	rest := args[1:]
	keys := make([]string, numKeys)
	for i := range keys {
		keys[i] = string(rest[i])
	}
	argv := make([]string, len(rest)-int(numKeys))
	for i := range argv {
		argv[i] = string(rest[int(numKeys)+i])
	}
	return keys, argv, true
}

func cmdEval(s *Server, c *Conn, args [][]byte) resp.Value {
	body := string(args[1])
	keys, argv, ok := parseKeysAndArgs(args[2:])
	if !ok {
		return resp.Err("ERR Number of keys can't be greater than number of args")
	}
	eval := s.getEvaluator()
	if eval == nil {
		return resp.Err("ERR This Redis command is not allowed from script context, and no Evaluator is installed")
	}
	sha := sha1Hex(body)
	s.scriptsMu.Lock()
	s.scripts[sha] = body
	s.scriptsMu.Unlock()
	v, err := eval.Eval(context.Background(), body, keys, argv)
	if err != nil {
		return resp.Err("ERR " + err.Error())
	}
	return v
}

func cmdEvalsha(s *Server, c *Conn, args [][]byte) resp.Value {
	sha := string(args[1])
	s.scriptsMu.RLock()
	body, ok := s.scripts[sha]
	s.scriptsMu.RUnlock()
	if !ok {
		return errNoScript()
	}
	keys, argv, ok := parseKeysAndArgs(args[2:])
	if !ok {
		return resp.Err("ERR Number of keys can't be greater than number of args")
	}
	eval := s.getEvaluator()
	if eval == nil {
		return resp.Err("ERR This Redis command is not allowed from script context, and no Evaluator is installed")
	}
	v, err := eval.Eval(context.Background(), body, keys, argv)
	if err != nil {
		return resp.Err("ERR " + err.Error())
	}
	return v
}
