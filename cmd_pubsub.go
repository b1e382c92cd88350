/*
file: redis-emulator/cmd_pubsub.go

Generalizes internal/handlers/handler_pubsub.go's Subscribe/Publish
pair into the full SUBSCRIBE/PSUBSCRIBE/PUBLISH family plus the shard
variants (SSUBSCRIBE/SUNSUBSCRIBE/SPUBLISH) spec.md §4.5 adds on top of
the teacher's exact-channel-only design, using pubsub.go's registry and
glob matcher.
*/
package redisemu

import "github.com/akashmaji946/redis-emulator/resp"

func registerPubSubCommands(tbl commandTable) {
	tbl.add(&commandSpec{name: "SUBSCRIBE", arity: -2, handler: cmdSubscribe})
	tbl.add(&commandSpec{name: "UNSUBSCRIBE", arity: -1, handler: cmdUnsubscribe})
	tbl.add(&commandSpec{name: "PSUBSCRIBE", arity: -2, handler: cmdPsubscribe})
	tbl.add(&commandSpec{name: "PUNSUBSCRIBE", arity: -1, handler: cmdPunsubscribe})
	tbl.add(&commandSpec{name: "PUBLISH", arity: 3, handler: cmdPublish})
	tbl.add(&commandSpec{name: "SSUBSCRIBE", arity: -2, handler: cmdSsubscribe})
	tbl.add(&commandSpec{name: "SUNSUBSCRIBE", arity: -1, handler: cmdSunsubscribe})
	tbl.add(&commandSpec{name: "SPUBLISH", arity: 3, handler: cmdSpublish})
	tbl.add(&commandSpec{name: "PUBSUB CHANNELS", arity: -2, handler: cmdPubsubChannels})
	tbl.add(&commandSpec{name: "PUBSUB NUMSUB", arity: -2, handler: cmdPubsubNumsub})
	tbl.add(&commandSpec{name: "PUBSUB NUMPAT", arity: 2, handler: cmdPubsubNumpat})
	tbl.add(&commandSpec{name: "PUBSUB SHARDCHANNELS", arity: -2, handler: cmdPubsubShardchannels})
	tbl.add(&commandSpec{name: "PUBSUB SHARDNUMSUB", arity: -2, handler: cmdPubsubShardnumsub})
}

func subCount(c *Conn) int64 {
	return int64(len(c.subChannels) + len(c.subPatterns) + len(c.subShard))
}

func cmdSubscribe(s *Server, c *Conn, args [][]byte) resp.Value {
	for _, a := range args[1:] {
		ch := string(a)
		if !c.subChannels[ch] {
			c.subChannels[ch] = true
			s.pubsub.subscribe(ch, c)
		}
		c.deliverPush(resp.PushOf(resp.BulkStr("subscribe"), resp.BulkStr(ch), resp.Int64(subCount(c))))
	}
	return resp.Value{}
}

func cmdUnsubscribe(s *Server, c *Conn, args [][]byte) resp.Value {
	channels := args[1:]
	if len(channels) == 0 {
		for ch := range c.subChannels {
			channels = append(channels, []byte(ch))
		}
	}
	if len(channels) == 0 {
		c.deliverPush(resp.PushOf(resp.BulkStr("unsubscribe"), resp.NullBulk(), resp.Int64(subCount(c))))
		return resp.Value{}
	}
	for _, a := range channels {
		ch := string(a)
		if c.subChannels[ch] {
			delete(c.subChannels, ch)
			s.pubsub.unsubscribe(ch, c)
		}
		c.deliverPush(resp.PushOf(resp.BulkStr("unsubscribe"), resp.BulkStr(ch), resp.Int64(subCount(c))))
	}
	return resp.Value{}
}

func cmdPsubscribe(s *Server, c *Conn, args [][]byte) resp.Value {
	for _, a := range args[1:] {
		p := string(a)
		if !c.subPatterns[p] {
			c.subPatterns[p] = true
			s.pubsub.psubscribe(p, c)
		}
		c.deliverPush(resp.PushOf(resp.BulkStr("psubscribe"), resp.BulkStr(p), resp.Int64(subCount(c))))
	}
	return resp.Value{}
}

func cmdPunsubscribe(s *Server, c *Conn, args [][]byte) resp.Value {
	patterns := args[1:]
	if len(patterns) == 0 {
		for p := range c.subPatterns {
			patterns = append(patterns, []byte(p))
		}
	}
	if len(patterns) == 0 {
		c.deliverPush(resp.PushOf(resp.BulkStr("punsubscribe"), resp.NullBulk(), resp.Int64(subCount(c))))
		return resp.Value{}
	}
	for _, a := range patterns {
		p := string(a)
		if c.subPatterns[p] {
			delete(c.subPatterns, p)
			s.pubsub.punsubscribe(p, c)
		}
		c.deliverPush(resp.PushOf(resp.BulkStr("punsubscribe"), resp.BulkStr(p), resp.Int64(subCount(c))))
	}
	return resp.Value{}
}

func cmdPublish(s *Server, c *Conn, args [][]byte) resp.Value {
	n := s.pubsub.publish(string(args[1]), args[2])
	return resp.Int64(int64(n))
}

func cmdSsubscribe(s *Server, c *Conn, args [][]byte) resp.Value {
	for _, a := range args[1:] {
		ch := string(a)
		if !c.subShard[ch] {
			c.subShard[ch] = true
			s.shardPubsub.subscribe(ch, c)
		}
		c.deliverPush(resp.PushOf(resp.BulkStr("ssubscribe"), resp.BulkStr(ch), resp.Int64(subCount(c))))
	}
	return resp.Value{}
}

func cmdSunsubscribe(s *Server, c *Conn, args [][]byte) resp.Value {
	channels := args[1:]
	if len(channels) == 0 {
		for ch := range c.subShard {
			channels = append(channels, []byte(ch))
		}
	}
	if len(channels) == 0 {
		c.deliverPush(resp.PushOf(resp.BulkStr("sunsubscribe"), resp.NullBulk(), resp.Int64(subCount(c))))
		return resp.Value{}
	}
	for _, a := range channels {
		ch := string(a)
		if c.subShard[ch] {
			delete(c.subShard, ch)
			s.shardPubsub.unsubscribe(ch, c)
		}
		c.deliverPush(resp.PushOf(resp.BulkStr("sunsubscribe"), resp.BulkStr(ch), resp.Int64(subCount(c))))
	}
	return resp.Value{}
}

func cmdSpublish(s *Server, c *Conn, args [][]byte) resp.Value {
	n := s.shardPubsub.publish(string(args[1]), args[2])
	return resp.Int64(int64(n))
}

func cmdPubsubChannels(s *Server, c *Conn, args [][]byte) resp.Value {
	pattern := ""
	if len(args) >= 3 {
		pattern = string(args[2])
	}
	return resp.ArrFrom(s.pubsub.channelsMatching(pattern)...)
}

func cmdPubsubShardchannels(s *Server, c *Conn, args [][]byte) resp.Value {
	pattern := ""
	if len(args) >= 3 {
		pattern = string(args[2])
	}
	return resp.ArrFrom(s.shardPubsub.channelsMatching(pattern)...)
}

func cmdPubsubNumsub(s *Server, c *Conn, args [][]byte) resp.Value {
	out := make([]resp.Value, 0, (len(args)-2)*2)
	for _, a := range args[2:] {
		ch := string(a)
		out = append(out, resp.BulkStr(ch), resp.Int64(int64(s.pubsub.numSub(ch))))
	}
	return resp.Arr(out...)
}

func cmdPubsubShardnumsub(s *Server, c *Conn, args [][]byte) resp.Value {
	out := make([]resp.Value, 0, (len(args)-2)*2)
	for _, a := range args[2:] {
		ch := string(a)
		out = append(out, resp.BulkStr(ch), resp.Int64(int64(s.shardPubsub.numSub(ch))))
	}
	return resp.Arr(out...)
}

func cmdPubsubNumpat(s *Server, c *Conn, args [][]byte) resp.Value {
	return resp.Int64(int64(s.pubsub.numPat()))
}
