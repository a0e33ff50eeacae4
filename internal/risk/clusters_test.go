package risk

import "testing"

func TestLoadClustersResolvesSymbolMembership(t *testing.T) {
	c, err := LoadClusters("clusters.yaml")
	if err != nil {
		t.Fatalf("LoadClusters: %v", err)
	}
	cl := c.ClusterFor("BTC/USDT")
	if cl == nil {
		t.Fatal("expected BTC/USDT to resolve to the btc_majors cluster")
	}
	if cl.Name != "btc_majors" {
		t.Errorf("expected btc_majors, got %s", cl.Name)
	}
}

func TestLoadClustersUnknownSymbolIsUnconstrained(t *testing.T) {
	c, err := LoadClusters("clusters.yaml")
	if err != nil {
		t.Fatalf("LoadClusters: %v", err)
	}
	if c.ClusterFor("DOGE/USDT") != nil {
		t.Error("expected a symbol absent from every cluster to resolve to nil (unconstrained)")
	}
}

func TestClusterCapForUsesPercentOfBalance(t *testing.T) {
	c, err := LoadClusters("clusters.yaml")
	if err != nil {
		t.Fatalf("LoadClusters: %v", err)
	}
	cl := c.ClusterFor("BTC/USDT")
	cap := cl.CapFor(d(10000))
	if !cap.Equal(d(2500)) {
		t.Errorf("expected btc_majors cap_pct=25 of 10000 = 2500, got %s", cap)
	}
}

func TestClusterCapForNilClusterIsUnconstrained(t *testing.T) {
	var cl *Cluster
	cap := cl.CapFor(d(10000))
	if !cap.GreaterThan(d(1000000)) {
		t.Errorf("expected a nil cluster's cap to be effectively unconstrained, got %s", cap)
	}
}
