// Package config loads the node's flat key/value configuration file.
package config

import (
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Config mirrors the flat key/value options recognized by this node,
// per the specification's external interfaces section. Struct tags
// double as the INI parser's registered keys, so any unrecognized key
// in the file is rejected at load time.
type Config struct {
	DNSSeedHost string `long:"dns_seed_host" description:"hostname of the DNS seed to resolve peer candidates from"`
	Port        uint16 `long:"port" description:"peer-to-peer TCP port"`

	ProtoVersion    uint32 `long:"proto_version" description:"protocol version advertised in our version message"`
	ProtoVersionMin uint32 `long:"proto_version_min" description:"minimum protocol version accepted from peers"`
	UserAgent       string `long:"user_agent" description:"user agent string advertised in our version message"`

	ConnectTimeoutSeconds uint32 `long:"connect_timeout" description:"TCP connect timeout in seconds"`
	ReadTimeoutSeconds    uint32 `long:"read_timeout" description:"peer read timeout in seconds"`

	HandshakePoolSize uint32 `long:"handshake_pool_size" description:"bounded worker pool size for the handshake supervisor"`

	IBDSingleNode bool   `long:"ibd_single_node" description:"force sequential single-peer IBD"`
	IBDStartDate  string `long:"ibd_start_date" description:"ISO-8601 date; blocks before it are not downloaded"`

	DataDir string `long:"data_dir" description:"directory holding headers.bin, blocks.dat, blocks.idx"`

	ErrorLogPath   string `long:"error_log_path" description:"path to the error log"`
	InfoLogPath    string `long:"info_log_path" description:"path to the info log"`
	MessageLogPath string `long:"message_log_path" description:"path to the wire-message log"`
}

// Default returns the built-in defaults (testnet seed, standard port,
// sane timeouts) used when a key is absent from the config file.
func Default() Config {
	return Config{
		DNSSeedHost:       "seed.testnet.bitcoin.sprovoost.nl",
		Port:              18333,
		ProtoVersion:      70015,
		ProtoVersionMin:   70001,
		UserAgent:         "/taller-go:0.1.0/",
		ConnectTimeoutSeconds: 10,
		ReadTimeoutSeconds:    30,
		HandshakePoolSize: 8,
		IBDSingleNode:     false,
		DataDir:           "data",
		ErrorLogPath:      "logs/error.log",
		InfoLogPath:       "logs/info.log",
		MessageLogPath:    "logs/message.log",
	}
}

// ConnectTimeout returns the configured TCP connect timeout as a
// time.Duration.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// ReadTimeout returns the configured peer read timeout as a
// time.Duration.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// Load reads and parses the flat key/value file at path over the
// package defaults. Unknown keys are rejected by the underlying INI
// parser, which only recognizes the struct tags above.
func Load(path string) (*Config, error) {
	cfg := Default()

	parser := flags.NewParser(&cfg, flags.Default)
	iniParser := flags.NewIniParser(parser)
	if err := iniParser.ParseFile(path); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
