package geoip_test

import (
	"io"
	"net/http"
	"testing"

	"github.com/vuong2023/Rules/internal/geoip"
	"github.com/vuong2023/Rules/internal/model"
)

func TestFromBytes_InvalidData(t *testing.T) {
	if _, err := geoip.FromBytes([]byte("not an mmdb")); err == nil {
		t.Fatalf("garbage input must fail to open")
	}
}

const geoLiteURL = "https://github.com/MetaCubeX/meta-rules-dat/releases/download/latest/geoip-lite.db"

func TestIntegration_CountryRuleSet(t *testing.T) {
	if testing.Short() {
		t.Skip("network integration test")
	}
	resp, err := http.Get(geoLiteURL)
	if err != nil {
		t.Skipf("skipping, network unavailable: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Skipf("skipping, download failed: %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read db: %v", err)
	}

	db, err := geoip.FromBytes(data)
	if err != nil {
		t.Fatalf("load db: %v", err)
	}
	if len(db.Countries()) == 0 {
		t.Fatalf("no countries indexed")
	}

	rs, err := db.RuleSet("VN")
	if err != nil {
		t.Fatalf("RuleSet(VN): %v", err)
	}
	if rs.Kind != model.SetIPCIDR || rs.Len() == 0 {
		t.Fatalf("kind=%s len=%d, want a populated IPCIDR set", rs.Kind, rs.Len())
	}
	for _, r := range rs.Payload {
		if r.Kind != model.IPCIDR && r.Kind != model.IPCIDR6 {
			t.Fatalf("unexpected rule kind in geoip set: %v", r)
		}
	}

	if _, err := db.RuleSet("INVALIDXXXX"); err == nil {
		t.Fatalf("unknown country must fail")
	}
}
