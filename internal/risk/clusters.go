package risk

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/tradingpipeline/internal/money"
)

// Cluster is one correlation group from clusters.yaml.
type Cluster struct {
	Name    string   `yaml:"name"`
	Symbols []string `yaml:"symbols"`
	CapUSD  *float64 `yaml:"cap_usd,omitempty"`
	CapPct  *float64 `yaml:"cap_pct,omitempty"`
}

type clustersFile struct {
	Clusters []Cluster `yaml:"clusters"`
}

// Clusters is the loaded correlation-cluster map validation's
// correlation-cap layer checks against, indexed by symbol for O(1) lookup.
type Clusters struct {
	bySymbol map[string]*Cluster
}

// LoadClusters reads a static clusters.yaml file mapping correlated symbols
// to a shared exposure cap.
func LoadClusters(path string) (*Clusters, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read clusters file %s: %w", path, err)
	}
	var parsed clustersFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse clusters file %s: %w", path, err)
	}

	c := &Clusters{bySymbol: make(map[string]*Cluster)}
	for i := range parsed.Clusters {
		cluster := &parsed.Clusters[i]
		for _, sym := range cluster.Symbols {
			c.bySymbol[sym] = cluster
		}
	}
	return c, nil
}

// ClusterFor returns the cluster containing symbol, or nil if symbol
// belongs to no configured cluster (correlation exposure is then
// unconstrained for it).
func (c *Clusters) ClusterFor(symbol string) *Cluster {
	if c == nil {
		return nil
	}
	return c.bySymbol[symbol]
}

// CapFor resolves a cluster's cap as an absolute USD figure against
// balance: cap_usd if set, else cap_pct of balance.
func (c *Cluster) CapFor(balance decimal.Decimal) decimal.Decimal {
	if c == nil {
		return decimal.NewFromInt(1 << 30) // unconstrained
	}
	if c.CapUSD != nil {
		return decimal.NewFromFloat(*c.CapUSD)
	}
	if c.CapPct != nil {
		return money.PercentOf(balance, decimal.NewFromFloat(*c.CapPct))
	}
	return decimal.NewFromInt(1 << 30)
}
