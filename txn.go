/*
file: redis-emulator/txn.go

Generalizes internal/handlers/handler_transaction.go's Multi/Exec/
Discard/Watch pair onto Conn's tx/queue/watches fields, adding WATCH's
per-key version check (spec.md §4.7) the teacher's transaction handler
never implemented (it only tracked an in-flight flag).
*/
package redisemu

import "github.com/akashmaji946/redis-emulator/resp"

func registerTxnCommands(tbl commandTable) {
	tbl.add(&commandSpec{name: "MULTI", arity: 1, noScript: true, handler: cmdMulti})
	tbl.add(&commandSpec{name: "EXEC", arity: 1, noScript: true, handler: cmdExec})
	tbl.add(&commandSpec{name: "DISCARD", arity: 1, noScript: true, handler: cmdDiscard})
	tbl.add(&commandSpec{name: "WATCH", arity: -2, noScript: true, handler: cmdWatch})
	tbl.add(&commandSpec{name: "UNWATCH", arity: 1, noScript: true, handler: cmdUnwatch})
	tbl.add(&commandSpec{name: "RESET", arity: 1, handler: cmdReset})
}

func cmdMulti(s *Server, c *Conn, args [][]byte) resp.Value {
	if c.tx != txNone {
		return errNestedMulti()
	}
	c.tx = txQueuing
	c.queue = nil
	return resp.Str("OK")
}

func cmdDiscard(s *Server, c *Conn, args [][]byte) resp.Value {
	if c.tx == txNone {
		return errDiscardWithoutMulti()
	}
	c.clearTx()
	c.clearWatches()
	return resp.Str("OK")
}

// cmdExec runs the queued commands under the server's single executor,
// per spec.md §4.7: a dirtied WATCHed key aborts the whole batch with a
// null array reply rather than executing any of it.
func cmdExec(s *Server, c *Conn, args [][]byte) resp.Value {
	if c.tx == txNone {
		return errNotInMulti()
	}
	if c.tx == txAborted {
		c.clearTx()
		c.clearWatches()
		return errExecAbort()
	}
	queued := c.queue
	c.clearTx()
	if c.watchedDirty() {
		c.clearWatches()
		return resp.NullArray()
	}
	c.clearWatches()

	c.inExec = true
	defer func() { c.inExec = false }()
	out := make([]resp.Value, len(queued))
	for i, qc := range queued {
		out[i] = s.dispatchQueued(c, qc)
	}
	s.Metrics.TxnsExecuted.Inc()
	return resp.Arr(out...)
}

// cmdWatch records the current watch-version of each named key, per
// spec.md §4.7. WATCH inside MULTI is a protocol error, matching the
// reference server.
func cmdWatch(s *Server, c *Conn, args [][]byte) resp.Value {
	if c.tx == txQueuing {
		return resp.Err("ERR WATCH inside MULTI is not allowed")
	}
	db := c.db()
	for _, a := range args[1:] {
		key := string(a)
		db.mu.RLock()
		ver := db.versions[key]
		db.mu.RUnlock()
		c.watches = append(c.watches, watchedKey{db: c.dbIndex, key: key, version: ver})
	}
	return resp.Str("OK")
}

func cmdUnwatch(s *Server, c *Conn, args [][]byte) resp.Value {
	c.clearWatches()
	return resp.Str("OK")
}

func cmdReset(s *Server, c *Conn, args [][]byte) resp.Value {
	c.reset()
	return resp.Str("RESET")
}
