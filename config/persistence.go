package config

import "time"

const defaultPingTimeout = 5 * time.Second

// Persistence is the database view of the configuration, shaped for
// go-persistence-bun
type Persistence struct {
	DSN         string
	Debug       bool
	PingTimeout time.Duration
}

// GetPersistence returns the database options
func (c Config) GetPersistence() Persistence {
	return Persistence{
		DSN:         c.DSN,
		Debug:       c.Debug,
		PingTimeout: defaultPingTimeout,
	}
}

func (p Persistence) GetDSN() string {
	return p.DSN
}

func (p Persistence) GetDebug() bool {
	return p.Debug
}

func (p Persistence) GetDriver() string {
	return "sqlite"
}

func (p Persistence) GetServer() string {
	return p.DSN
}

func (p Persistence) GetPingTimeout() time.Duration {
	return p.PingTimeout
}

func (p Persistence) GetOtelIdentifier() string {
	return ""
}

func (p Persistence) GetDatabase() string {
	return p.DSN
}
