package rpc

import (
	"time"

	"github.com/HorseArcher567/octopus/pkg/etcd"
)

// EtcdConfig is the coordination-store connection info carried inside
// ClientConfig and ServerConfig, kept distinct from etcd.Config so the
// fields match the field names callers configure (Hosts/User/Pass) rather
// than the client package's internal shape.
type EtcdConfig struct {
	// Hosts is the list of etcd node addresses.
	Hosts []string `yaml:"hosts" json:"hosts" toml:"hosts"`

	// User is the etcd username (optional).
	User string `yaml:"user" json:"user" toml:"user"`

	// Pass is the etcd password (optional).
	Pass string `yaml:"pass" json:"pass" toml:"pass"`

	// DialTimeout is the connection timeout (default: 5s).
	DialTimeout time.Duration `yaml:"dialTimeout" json:"dialTimeout" toml:"dialTimeout"`
}

func (c EtcdConfig) toEtcdConfig() *etcd.Config {
	return &etcd.Config{
		Endpoints:   c.Hosts,
		Username:    c.User,
		Password:    c.Pass,
		DialTimeout: c.DialTimeout,
	}
}

func (c EtcdConfig) isEmpty() bool {
	return len(c.Hosts) == 0
}

// ServerConfig configures a Server: the gRPC listener, the registration
// namespace and lease TTL, and the debug surfaces to expose.
type ServerConfig struct {
	// ServerName is the name instances register under and clients dial by.
	ServerName string `yaml:"serverName" json:"serverName" toml:"serverName"`

	// Model selects the registration namespace; instances and clients must
	// agree on it to find each other (e.g. "prod", "staging").
	Model string `yaml:"model" json:"model" toml:"model"`

	// Endpoint is the dialable address to register and to listen on, e.g.
	// "0.0.0.0:9090". The registered address and the listen address are the
	// same value; put a reverse proxy in front if they must differ.
	Endpoint string `yaml:"endpoint" json:"endpoint" toml:"endpoint"`

	// Etcd is the coordination store connection. Leave empty to run without
	// registration (direct-dial-only deployments, tests).
	Etcd EtcdConfig `yaml:"etcd" json:"etcd" toml:"etcd"`

	// TTL is the registration lease lifetime in seconds (default 10).
	TTL int64 `yaml:"ttl" json:"ttl" toml:"ttl"`

	// EnableReflection registers the gRPC server reflection service.
	EnableReflection bool `yaml:"enableReflection" json:"enableReflection" toml:"enableReflection"`

	// EnableHealth registers the standard gRPC health service and toggles
	// its status across the server's lifecycle.
	EnableHealth bool `yaml:"enableHealth" json:"enableHealth" toml:"enableHealth"`
}

func (c *ServerConfig) withDefaults() ServerConfig {
	cfg := *c
	if cfg.TTL <= 0 {
		cfg.TTL = 10
	}
	return cfg
}

// ClientConfig configures a client's connection to the serverName passed to
// NewClient. When Etcd is non-empty the client discovers and load-balances
// across instances registered under Model/serverName; otherwise serverName
// is treated as a direct, comma-separated address list.
type ClientConfig struct {
	// Model is the registration namespace to discover within; ignored in
	// direct mode.
	Model string `yaml:"model" json:"model" toml:"model"`

	// Etcd is the coordination store connection. Empty selects direct mode.
	Etcd EtcdConfig `yaml:"etcd" json:"etcd" toml:"etcd"`

	// BalancerCapacity bounds how many buffered discovery changes the
	// client's resolver will queue before backpressuring the watch loop
	// (default 16).
	BalancerCapacity int `yaml:"balancerCapacity" json:"balancerCapacity" toml:"balancerCapacity"`
}

func (c *ClientConfig) withDefaults() ClientConfig {
	cfg := *c
	if cfg.BalancerCapacity <= 0 {
		cfg.BalancerCapacity = 16
	}
	return cfg
}
