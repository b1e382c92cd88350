/*
file: redis-emulator/config.go

A plain struct with functional options, in the style of the teacher's
conf.go, minus file-based redis.conf parsing: an in-process emulator has
no filesystem surface to read one from.
*/
package redisemu

// EvictionPolicy mirrors the reference server's maxmemory-policy knob.
type EvictionPolicy int

const (
	NoEviction EvictionPolicy = iota
	AllKeysRandom
	AllKeysLRU
	AllKeysLFU
)

// Config holds the server-wide settings enumerated in spec.md §6.
type Config struct {
	// ServerVersion records the emulated major version (6 or 7). No
	// command consults it: error messages and reply shapes are the same
	// for both values.
	ServerVersion int
	// Databases is the number of numbered keyspaces (default 16).
	Databases int
	// DefaultProtocol is the RESP version (2 or 3) a new connection
	// starts on before any HELLO negotiation.
	DefaultProtocol int
	// RequirePass, if non-empty, requires AUTH before any non-safe
	// command.
	RequirePass string
	// LuaModulesEnabled gates EVAL/EVALSHA's narrow Evaluator hookup;
	// when false those commands behave as if no Evaluator were
	// installed and fail with an ERR error.
	LuaModulesEnabled bool
	// NotifyKeyspaceEvents is the bit-mask configuration string for
	// keyspace notifications (spec.md §4.5), e.g. "KEA".
	NotifyKeyspaceEvents string
	// MaxMemory is a byte budget reported by CONFIG GET maxmemory. No
	// command path enforces it.
	MaxMemory int64
	// Eviction records the maxmemory policy reported by CONFIG GET
	// maxmemory-policy. evictKeys implements the policies, but nothing
	// calls it, so no key is ever evicted.
	Eviction EvictionPolicy
	// ClusterEnabled turns on the simulated CLUSTER/MOVED/ASK
	// discipline described in spec.md §4.2 item 5 and §6.
	ClusterEnabled bool
	// ClusterNodes is the number of simulated node labels slots are
	// assigned across when ClusterEnabled is true.
	ClusterNodes int
}

// Option configures a Config; see With* constructors below.
type Option func(*Config)

// defaultConfig matches the reference server's common defaults.
func defaultConfig() *Config {
	return &Config{
		ServerVersion:     7,
		Databases:         16,
		DefaultProtocol:   2,
		LuaModulesEnabled: true,
		Eviction:          NoEviction,
		ClusterNodes:      3,
	}
}

// WithDatabases overrides the number of numbered keyspaces.
func WithDatabases(n int) Option { return func(c *Config) { c.Databases = n } }

// WithServerVersion selects the emulated major version (6 or 7).
func WithServerVersion(v int) Option { return func(c *Config) { c.ServerVersion = v } }

// WithProtocolVersion sets the default RESP version new connections
// start on.
func WithProtocolVersion(v int) Option { return func(c *Config) { c.DefaultProtocol = v } }

// WithRequirePass requires AUTH <password> before non-safe commands.
func WithRequirePass(pw string) Option { return func(c *Config) { c.RequirePass = pw } }

// WithLuaModules toggles EVAL/EVALSHA availability.
func WithLuaModules(enabled bool) Option { return func(c *Config) { c.LuaModulesEnabled = enabled } }

// WithNotifyKeyspaceEvents sets the keyspace-notification bit mask string.
func WithNotifyKeyspaceEvents(mask string) Option {
	return func(c *Config) { c.NotifyKeyspaceEvents = mask }
}

// WithMaxMemory sets a soft memory budget and eviction policy.
func WithMaxMemory(bytes int64, policy EvictionPolicy) Option {
	return func(c *Config) { c.MaxMemory = bytes; c.Eviction = policy }
}

// WithCluster enables the simulated cluster/slot discipline across n
// virtual node labels.
func WithCluster(n int) Option {
	return func(c *Config) { c.ClusterEnabled = true; c.ClusterNodes = n }
}
