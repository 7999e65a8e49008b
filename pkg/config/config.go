// Package config loads process-wide settings (environment variables,
// host/guest node classification) into an explicit value passed into each
// component at construction, rather than a global singleton.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/eclipse-pullpiri/pullpiri/pkg/log"
)

// NodeClass classifies a node by which runtime executes its workloads.
type NodeClass string

const (
	ClassFederation NodeClass = "bluechi"
	ClassNodeAgent  NodeClass = "nodeagent"
)

// HostEntry names one node and its runtime class.
type HostEntry struct {
	Name  string
	Class NodeClass
}

// Config aggregates the environment-derived settings every component
// needs at construction time.
type Config struct {
	// Env is "production" (JSON logging) or anything else (console logging),
	// read from PULLPIRI_ENV.
	Env string
	// LogLevel is a verbosity filter string, read from an RUST_LOG-style
	// environment variable.
	LogLevel log.Level
	// MasterIP overrides the node agent's default master address.
	MasterIP string
	// NodeRole overrides the node agent's default role.
	NodeRole string
	// NodeName overrides the node agent's default name.
	NodeName string
	// HostName is used in container config projection.
	HostName string
	// Host is this process's own node/runtime classification.
	Host HostEntry
	// Guests are the other nodes' runtime classifications, known statically.
	Guests []HostEntry
	// YamlStorage is the directory federation unit overlays symlink into.
	YamlStorage string
	// BackoffDurationSeconds is the minimum dwell time in the Model
	// CrashLoopBackOff state before a retry transition is accepted.
	BackoffDurationSeconds int64
	// StaleNodeThresholdSeconds is the heartbeat age past which the
	// Registry marks a node Offline.
	StaleNodeThresholdSeconds int64
	// ActionQueueCapacity bounds the ActionCommand channel; beyond it,
	// sends are load-shed rather than blocking.
	ActionQueueCapacity int
}

const (
	DefaultBackoffDurationSeconds    = 30
	DefaultStaleNodeThresholdSeconds = 90
	DefaultActionQueueCapacity       = 1024
	DefaultYamlStorage               = "/etc/piccolo/yaml"
)

// FromEnv builds a Config from the environment variables named in §6,
// applying the documented defaults for anything unset.
func FromEnv() Config {
	cfg := Config{
		Env:                       getenv("PULLPIRI_ENV", "development"),
		LogLevel:                  log.Level(getenv("RUST_LOG", string(log.InfoLevel))),
		MasterIP:                  getenv("PICCOLO_MASTER_IP", ""),
		NodeRole:                  getenv("PICCOLO_NODE_ROLE", "Sub"),
		NodeName:                  getenv("PICCOLO_NODE_NAME", ""),
		HostName:                  getenv("HOST_NAME", ""),
		YamlStorage:               getenv("PICCOLO_YAML_STORAGE", DefaultYamlStorage),
		BackoffDurationSeconds:    getenvInt64("PICCOLO_BACKOFF_DURATION_SECS", DefaultBackoffDurationSeconds),
		StaleNodeThresholdSeconds: getenvInt64("PICCOLO_STALE_NODE_THRESHOLD_SECS", DefaultStaleNodeThresholdSeconds),
		ActionQueueCapacity:       int(getenvInt64("PICCOLO_ACTION_QUEUE_CAPACITY", DefaultActionQueueCapacity)),
	}
	cfg.Host = HostEntry{Name: cfg.NodeName, Class: classifyType(getenv("PICCOLO_HOST_TYPE", string(ClassFederation)))}
	cfg.Guests = parseGuests(getenv("PICCOLO_GUESTS", ""))
	return cfg
}

// JSONLogging reports whether PULLPIRI_ENV selects JSON log output.
func (c Config) JSONLogging() bool {
	return c.Env == "production"
}

func classifyType(s string) NodeClass {
	switch strings.ToLower(s) {
	case string(ClassNodeAgent):
		return ClassNodeAgent
	default:
		return ClassFederation
	}
}

// parseGuests parses a "name:type,name:type" list of guest node
// classifications.
func parseGuests(raw string) []HostEntry {
	if raw == "" {
		return nil
	}
	var out []HostEntry
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			continue
		}
		out = append(out, HostEntry{Name: parts[0], Class: classifyType(parts[1])})
	}
	return out
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getenvInt64(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}
