// Package config defines the YAML-decoded configuration for the tracker
// binary and the default-fallback validation applied to it before use.
package config

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"udptracker/internal/accesslist"
	"udptracker/internal/tracelog"
)

const (
	defaultShardCount                 = 16
	defaultMaxRequestsPerIter         = 50
	defaultChannelRecvTimeout         = time.Millisecond
	defaultMaxResponsePeers           = 50
	defaultAnnounceInterval           = 15 * time.Minute
	defaultConnectionTTL              = 2 * time.Minute
	defaultPeerTTL                    = 20 * time.Minute
	defaultCleanInterval              = time.Minute
	defaultStatisticsInterval         = 5 * time.Second
	defaultReadBufferSize             = 8 * 1024 * 1024
	defaultWriterCount                = 1
	defaultMetricsAddr                = "127.0.0.1:9090"
)

// Config is the top-level configuration of the tracker binary.
type Config struct {
	ListenAddr      string        `yaml:"listen_addr"`
	MetricsAddr     string        `yaml:"metrics_addr"`
	ShardCount      int           `yaml:"shard_count"`
	ReadBufferSize  int           `yaml:"read_buffer_size"`
	WriterCount     int           `yaml:"writer_count"`

	MaxRequestsPerIter int           `yaml:"max_requests_per_batch"`
	ChannelRecvTimeout time.Duration `yaml:"batch_collection_timeout"`
	MaxResponsePeers   int           `yaml:"max_response_peers"`
	AnnounceInterval   time.Duration `yaml:"announce_interval"`
	TrackCompleted     bool          `yaml:"track_completed"`

	ConnectionTTL      time.Duration  `yaml:"connection_ttl"`
	PeerTTL            time.Duration  `yaml:"peer_ttl"`
	CleanInterval      time.Duration  `yaml:"clean_interval"`
	AccessListType     accesslist.Type `yaml:"access_list_type"`
	AccessListPath     string         `yaml:"access_list_path"`

	StatisticsInterval time.Duration `yaml:"statistics_interval"`
}

// Default is a sane configuration used as a fallback and for testing.
var Default = Config{
	ListenAddr:         ":6969",
	MetricsAddr:        defaultMetricsAddr,
	ShardCount:         defaultShardCount,
	ReadBufferSize:     defaultReadBufferSize,
	WriterCount:        defaultWriterCount,
	MaxRequestsPerIter: defaultMaxRequestsPerIter,
	ChannelRecvTimeout: defaultChannelRecvTimeout,
	MaxResponsePeers:   defaultMaxResponsePeers,
	AnnounceInterval:   defaultAnnounceInterval,
	TrackCompleted:     false,
	ConnectionTTL:      defaultConnectionTTL,
	PeerTTL:            defaultPeerTTL,
	CleanInterval:      defaultCleanInterval,
	AccessListType:     accesslist.Ignore,
	StatisticsInterval: defaultStatisticsInterval,
}

// Validate sanity checks values set in cfg and returns a new config with
// default values replacing anything invalid. It warns to the logger when a
// value is changed.
func (cfg Config) Validate() Config {
	valid := cfg

	if cfg.ListenAddr == "" {
		valid.ListenAddr = Default.ListenAddr
		warnFallback("ListenAddr", cfg.ListenAddr, valid.ListenAddr)
	}
	if cfg.ShardCount <= 0 {
		valid.ShardCount = Default.ShardCount
		warnFallback("ShardCount", cfg.ShardCount, valid.ShardCount)
	}
	if cfg.WriterCount <= 0 {
		valid.WriterCount = Default.WriterCount
		warnFallback("WriterCount", cfg.WriterCount, valid.WriterCount)
	}
	if cfg.MaxRequestsPerIter <= 0 {
		valid.MaxRequestsPerIter = Default.MaxRequestsPerIter
		warnFallback("MaxRequestsPerIter", cfg.MaxRequestsPerIter, valid.MaxRequestsPerIter)
	}
	if cfg.ChannelRecvTimeout <= 0 {
		valid.ChannelRecvTimeout = Default.ChannelRecvTimeout
		warnFallback("ChannelRecvTimeout", cfg.ChannelRecvTimeout, valid.ChannelRecvTimeout)
	}
	if cfg.MaxResponsePeers <= 0 {
		valid.MaxResponsePeers = Default.MaxResponsePeers
		warnFallback("MaxResponsePeers", cfg.MaxResponsePeers, valid.MaxResponsePeers)
	}
	if cfg.AnnounceInterval <= 0 {
		valid.AnnounceInterval = Default.AnnounceInterval
		warnFallback("AnnounceInterval", cfg.AnnounceInterval, valid.AnnounceInterval)
	}
	if cfg.ConnectionTTL <= 0 {
		valid.ConnectionTTL = Default.ConnectionTTL
		warnFallback("ConnectionTTL", cfg.ConnectionTTL, valid.ConnectionTTL)
	}
	if cfg.PeerTTL <= 0 {
		valid.PeerTTL = Default.PeerTTL
		warnFallback("PeerTTL", cfg.PeerTTL, valid.PeerTTL)
	}
	if cfg.CleanInterval <= 0 {
		valid.CleanInterval = Default.CleanInterval
		warnFallback("CleanInterval", cfg.CleanInterval, valid.CleanInterval)
	}
	if cfg.StatisticsInterval <= 0 {
		valid.StatisticsInterval = Default.StatisticsInterval
		warnFallback("StatisticsInterval", cfg.StatisticsInterval, valid.StatisticsInterval)
	}
	switch cfg.AccessListType {
	case accesslist.Allow, accesslist.Deny, accesslist.Ignore:
	default:
		valid.AccessListType = Default.AccessListType
		warnFallback("AccessListType", cfg.AccessListType, valid.AccessListType)
	}
	if cfg.AccessListType != accesslist.Ignore && cfg.AccessListPath == "" {
		valid.AccessListType = accesslist.Ignore
		tracelog.Warn("access list type set but no path given, disabling filtering", tracelog.Fields{
			"name": "AccessListType",
		})
	}

	return valid
}

func warnFallback(name string, provided, fallback interface{}) {
	tracelog.Warn("falling back to default configuration", tracelog.Fields{
		"name":     name,
		"provided": provided,
		"default":  fallback,
	})
}

// Decode unmarshals r into a Config.
func Decode(r io.Reader) (*Config, error) {
	contents, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "config: read")
	}

	cfg := Default
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, errors.Wrap(err, "config: decode yaml")
	}

	return &cfg, nil
}

// Open reads and decodes the YAML configuration file at path. Given "", it
// returns Default. Supports environment variable expansion in path.
func Open(path string) (*Config, error) {
	if path == "" {
		d := Default
		return &d, nil
	}

	f, err := os.Open(os.ExpandEnv(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(f)
}
