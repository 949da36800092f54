package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration written as "750ms" or "30s" in topology files.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// PeerSpec overrides one peer's address and resilience parameters. Zero
// fields keep the environment defaults.
type PeerSpec struct {
	URL          string   `yaml:"url" toml:"url"`
	Threshold    int      `yaml:"threshold" toml:"threshold"`
	ResetTimeout Duration `yaml:"reset_timeout" toml:"reset_timeout"`
	Timeout      Duration `yaml:"timeout" toml:"timeout"`
	RPS          float64  `yaml:"rps" toml:"rps"`
	Burst        int      `yaml:"burst" toml:"burst"`
}

// Topology is the optional peer topology file.
type Topology struct {
	Peers map[string]PeerSpec `yaml:"peers" toml:"peers"`
}

// PeerSettings are the resolved parameters for one peer.
type PeerSettings struct {
	Name         string
	URL          string
	Threshold    int
	ResetTimeout time.Duration
	Timeout      time.Duration
	RPS          float64
	Burst        int
}

// LoadTopology reads a YAML (.yaml, .yml) or TOML (.toml) topology file.
func LoadTopology(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read topology: %w", err)
	}

	var topo Topology
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &topo)
	case ".toml":
		err = toml.Unmarshal(data, &topo)
	default:
		return nil, fmt.Errorf("unsupported topology format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse topology %s: %w", path, err)
	}

	if err := topo.Validate(); err != nil {
		return nil, err
	}
	return &topo, nil
}

// Validate rejects negative parameters.
func (t *Topology) Validate() error {
	for name, spec := range t.Peers {
		if spec.Threshold < 0 || spec.ResetTimeout < 0 || spec.Timeout < 0 || spec.RPS < 0 || spec.Burst < 0 {
			return fmt.Errorf("peer %s: negative setting in topology", name)
		}
	}
	return nil
}

// ResolvePeers merges env defaults with topo (which may be nil), one entry
// per peer sorted by name. Peers only present in the topology are included.
func (c *Config) ResolvePeers(topo *Topology) []PeerSettings {
	urls := c.Peers.URLs()
	if topo != nil {
		for name, spec := range topo.Peers {
			if spec.URL != "" {
				urls[name] = spec.URL
			} else if _, ok := urls[name]; !ok {
				urls[name] = ""
			}
		}
	}

	out := make([]PeerSettings, 0, len(urls))
	for name, url := range urls {
		ps := PeerSettings{
			Name:         name,
			URL:          url,
			Threshold:    c.Resilience.BreakerThreshold,
			ResetTimeout: c.Resilience.BreakerResetTimeout,
			Timeout:      c.Resilience.PeerTimeout,
			RPS:          c.Resilience.PeerRPS,
			Burst:        c.Resilience.PeerBurst,
		}
		if topo != nil {
			if spec, ok := topo.Peers[name]; ok {
				if spec.Threshold > 0 {
					ps.Threshold = spec.Threshold
				}
				if spec.ResetTimeout > 0 {
					ps.ResetTimeout = time.Duration(spec.ResetTimeout)
				}
				if spec.Timeout > 0 {
					ps.Timeout = time.Duration(spec.Timeout)
				}
				if spec.RPS > 0 {
					ps.RPS = spec.RPS
				}
				if spec.Burst > 0 {
					ps.Burst = spec.Burst
				}
			}
		}
		out = append(out, ps)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
