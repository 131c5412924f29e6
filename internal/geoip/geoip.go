// Package geoip extracts per-country CIDR sets from a MaxMind MMDB country
// database, as an alternative source for IPCIDR rulesets.
package geoip

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oschwald/maxminddb-golang"

	"github.com/vuong2023/Rules/internal/model"
)

// DB is an in-memory per-country CIDR index built from one MMDB snapshot.
// It is read-only after Load and safe to share.
type DB struct {
	cidrs map[string][]string
}

// FromBytes parses the MMDB and indexes every network by its country
// ISO code.
func FromBytes(data []byte) (*DB, error) {
	mmdb, err := maxminddb.FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open mmdb: %w", err)
	}
	defer mmdb.Close()

	cidrs := make(map[string][]string)
	networks := mmdb.Networks(maxminddb.SkipAliasedNetworks)
	for networks.Next() {
		var record any
		subnet, err := networks.Network(&record)
		if err != nil {
			continue
		}
		code := countryCode(record)
		if code == "" {
			continue
		}
		cidrs[code] = append(cidrs[code], subnet.String())
	}
	if err := networks.Err(); err != nil {
		return nil, fmt.Errorf("failed to walk mmdb networks: %w", err)
	}
	return &DB{cidrs: cidrs}, nil
}

// countryCode digs the ISO code out of whichever record layout the database
// uses (GeoLite2 country records, or bare string/code databases).
func countryCode(record any) string {
	switch v := record.(type) {
	case string:
		return strings.ToUpper(v)
	case map[string]any:
		if c, ok := v["country"].(map[string]any); ok {
			if iso, ok := c["iso_code"].(string); ok {
				return strings.ToUpper(iso)
			}
		}
		if iso, ok := v["iso_code"].(string); ok {
			return strings.ToUpper(iso)
		}
		if code, ok := v["code"].(string); ok {
			return strings.ToUpper(code)
		}
	}
	return ""
}

// Countries returns every indexed ISO code, sorted.
func (db *DB) Countries() []string {
	out := make([]string, 0, len(db.cidrs))
	for code := range db.cidrs {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// RuleSet builds an IPCIDR-kind ruleset for one country code.
func (db *DB) RuleSet(code string) (*model.RuleSet, error) {
	payloads, ok := db.cidrs[strings.ToUpper(code)]
	if !ok {
		return nil, fmt.Errorf("no networks for country %q", code)
	}
	rs, _ := model.NewRuleSet(model.SetIPCIDR, nil)
	for _, payload := range payloads {
		kind := model.IPCIDR
		if strings.Contains(payload, ":") {
			kind = model.IPCIDR6
		}
		r, err := model.New(kind, payload)
		if err != nil {
			return nil, err
		}
		if err := rs.Add(r); err != nil {
			return nil, err
		}
	}
	return rs, nil
}
