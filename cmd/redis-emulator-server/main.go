/*
file: redis-emulator/cmd/redis-emulator-server/main.go

The thin TCP front end: a flag-parsed port plus a graceful-shutdown
signal handler, in the shape of the teacher's own cmd/main.go (listener
setup, signal.Notify, a WaitGroup-free Accept loop since Server.Serve
owns connection goroutines itself) minus the redis.conf/AOF/RDB
bootstrap an in-process emulator has no use for.
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	redisemu "github.com/akashmaji946/redis-emulator"
)

func main() {
	port := flag.Int("port", 6379, "TCP port to listen on")
	databases := flag.Int("databases", 16, "number of numbered keyspaces")
	requirePass := flag.String("requirepass", "", "if set, require AUTH before non-safe commands")
	clusterEnabled := flag.Bool("cluster-enabled", false, "enable simulated cluster slot discipline")
	clusterNodes := flag.Int("cluster-nodes", 3, "number of simulated cluster node labels")
	flag.Parse()

	opts := []redisemu.Option{
		redisemu.WithDatabases(*databases),
	}
	if *requirePass != "" {
		opts = append(opts, redisemu.WithRequirePass(*requirePass))
	}
	if *clusterEnabled {
		opts = append(opts, redisemu.WithCluster(*clusterNodes))
	}

	s := redisemu.NewServer(opts...)

	addr := fmt.Sprintf(":%d", *port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		s.Log.Warn("signal received, closing listener")
		_ = s.Close()
	}()

	s.Log.Infof("redis-emulator-server listening on %s", addr)
	if err := s.ListenAndServe(addr); err != nil {
		s.Log.Warnf("server stopped: %v", err)
	}
}
