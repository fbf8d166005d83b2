// Package config holds engine + demo-server configuration, functional-options
// style — the teacher never reaches for a third-party config library, and
// neither does this package (DESIGN.md records this as deliberate).
package config

import "time"

// Config is the demo binary's top-level configuration.
type Config struct {
	HTTPAddr          string
	WALAddr           string
	PersistPath       string
	SaveDebounce      time.Duration
	OptimisticDefault bool
	Development       bool
}

// Option mutates a Config during construction.
type Option func(*Config)

// New builds a Config from sane defaults plus any Options.
func New(opts ...Option) *Config {
	c := &Config{
		HTTPAddr:          ":8080",
		WALAddr:           ":5433",
		PersistPath:       "circuit.json",
		SaveDebounce:      750 * time.Millisecond,
		OptimisticDefault: true,
		Development:       false,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithHTTPAddr(addr string) Option { return func(c *Config) { c.HTTPAddr = addr } }
func WithWALAddr(addr string) Option  { return func(c *Config) { c.WALAddr = addr } }
func WithPersistPath(p string) Option { return func(c *Config) { c.PersistPath = p } }
func WithDebounce(d time.Duration) Option {
	return func(c *Config) { c.SaveDebounce = d }
}
func WithOptimisticDefault(b bool) Option {
	return func(c *Config) { c.OptimisticDefault = b }
}
func WithDevelopment(b bool) Option { return func(c *Config) { c.Development = b } }
