// Package generator wires the pipeline stages together: fetch or load raw
// sources, build rulesets, overlay patches, deduplicate and dump every
// target format. Stages run strictly in sequence; no ruleset is ever
// touched by two stages at once.
package generator

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vuong2023/Rules/internal/cidr"
	"github.com/vuong2023/Rules/internal/config"
	"github.com/vuong2023/Rules/internal/fetch"
	"github.com/vuong2023/Rules/internal/filterlist"
	"github.com/vuong2023/Rules/internal/geoip"
	"github.com/vuong2023/Rules/internal/geosite"
	"github.com/vuong2023/Rules/internal/model"
	"github.com/vuong2023/Rules/internal/patch"
	"github.com/vuong2023/Rules/internal/render"
	"github.com/vuong2023/Rules/internal/rules"
)

// Fetcher retrieves one upstream source as lines. Production wiring uses
// fetch.Text; tests inject a stub.
type Fetcher func(ctx context.Context, kind fetch.Kind, url string) ([]string, error)

type Generator struct {
	cfg     *config.Config
	fetcher Fetcher
	domains geosite.Loader

	// fetchBytes retrieves binary data files (the GeoIP database);
	// overridable in tests.
	fetchBytes func(ctx context.Context, url string) ([]byte, error)
}

func New(cfg *config.Config, fetcher Fetcher, domains geosite.Loader) *Generator {
	if fetcher == nil {
		fetcher = fetch.Text
	}
	if domains == nil {
		domains = geosite.DirLoader{Dir: cfg.Paths.DomainList}
	}
	return &Generator{
		cfg:     cfg,
		fetcher: fetcher,
		domains: domains,
		fetchBytes: func(ctx context.Context, url string) ([]byte, error) {
			return fetch.Bytes(ctx, fetch.KindDataFile, url, fetch.Options{})
		},
	}
}

// Run executes every stage in order and writes all outputs under the
// configured dist directory.
func (g *Generator) Run(ctx context.Context) error {
	stages := []struct {
		name string
		run  func(context.Context) error
	}{
		{"reject", g.runReject},
		{"domestic", g.runDomestic},
		{"domestic-cidr", g.runDomesticCIDR},
		{"categories", g.runCategories},
		{"custom", g.runCustom},
		{"geoip", g.runGeoIP},
	}
	for _, stage := range stages {
		start := time.Now()
		slog.Info("stage started", "stage", stage.name)
		if err := stage.run(ctx); err != nil {
			return err
		}
		slog.Info("stage finished", "stage", stage.name, "elapsed", time.Since(start))
	}
	return nil
}

// BuildReject assembles the reject ruleset from ad-block filter sources and
// the community ads list, and derives the matching exclusion ruleset from
// the whitelist sources.
func (g *Generator) BuildReject(ctx context.Context) (reject, exclusions *model.RuleSet, err error) {
	reject, _ = model.NewRuleSet(model.SetDomain, nil)
	rawExclusions, _ := model.NewRuleSet(model.SetDomain, nil)

	for _, url := range g.cfg.Reject.FilterURLs {
		lines, err := g.fetcher(ctx, fetch.KindFilterList, url)
		if err != nil {
			return nil, nil, err
		}
		for _, entry := range filterlist.Parse(lines) {
			switch entry.Action {
			case filterlist.Block:
				if err := addUnique(reject, model.DomainSuffix, entry.Domain); err != nil {
					return nil, nil, err
				}
			case filterlist.Allow:
				// Exception filters inside a block list feed the
				// exclusion set instead.
				if err := addUnique(rawExclusions, model.DomainFull, entry.Domain); err != nil {
					return nil, nil, err
				}
			}
		}
		slog.Info("imported reject source", "url", url, "total", reject.Len())
	}

	for _, url := range g.cfg.Reject.ExcludeURLs {
		lines, err := g.fetcher(ctx, fetch.KindFilterList, url)
		if err != nil {
			return nil, nil, err
		}
		for _, entry := range filterlist.Parse(lines) {
			if err := addUnique(rawExclusions, model.DomainFull, entry.Domain); err != nil {
				return nil, nil, err
			}
		}
		slog.Info("imported exclude source", "url", url, "total", rawExclusions.Len())
	}

	entries, err := geosite.Parse(g.domains, g.cfg.Reject.DomainList, nil)
	if err != nil {
		return nil, nil, err
	}
	community, err := geosite.Convert(entries, nil)
	if err != nil {
		return nil, nil, err
	}
	if err := reject.Union(community); err != nil {
		return nil, nil, err
	}
	slog.Info("imported community reject rules", "list", g.cfg.Reject.DomainList, "count", community.Len())

	reject.Dedup()
	crossPrune(reject, rawExclusions)

	// Keep only exclusions that still overlap a kept reject suffix; the
	// rest would never match anything the reject set blocks.
	exclusions, _ = model.NewRuleSet(model.SetDomain, nil)
	for _, excl := range rawExclusions.Payload {
		for _, rej := range reject.Payload {
			if strings.HasSuffix(excl.Payload, rej.Payload) {
				if !exclusions.Contains(excl) {
					if err := exclusions.Add(excl); err != nil {
						return nil, nil, err
					}
				}
				break
			}
		}
	}

	if reject, err = patch.Apply(reject, "reject", g.cfg.Paths.Patches); err != nil {
		return nil, nil, err
	}
	if exclusions, err = patch.Apply(exclusions, "exclude", g.cfg.Paths.Patches); err != nil {
		return nil, nil, err
	}
	reject.Dedup()
	exclusions.Dedup()
	return reject, exclusions, nil
}

// crossPrune removes reject/exclusion pairs that cancel each other: same
// payload with equal kinds, or a full-domain reject neutralized by a
// suffix exclusion.
func crossPrune(reject, exclusions *model.RuleSet) {
	for _, excl := range exclusions.Clone().Payload {
		for _, rej := range reject.Clone().Payload {
			if rej.Payload != excl.Payload {
				continue
			}
			if rej.Kind == excl.Kind ||
				(rej.Kind == model.DomainFull && excl.Kind == model.DomainSuffix) {
				reject.Remove(rej)
				exclusions.Remove(excl)
				slog.Debug("reject rule removed as excluded",
					"rule", rej.String(), "excluded_by", excl.String())
			}
		}
	}
}

// BuildDomestic assembles the domestic ruleset. The first returned set
// omits the domestic TLD catch-alls (some consumers ignore eTLD suffix
// entries and need the explicit list); the second includes them.
func (g *Generator) BuildDomestic(ctx context.Context) (withoutTLDs, full *model.RuleSet, err error) {
	entries, err := geosite.Parse(g.domains, g.cfg.Domestic.DomainList, nil)
	if err != nil {
		return nil, nil, err
	}
	domestic, err := geosite.Convert(entries, g.cfg.Domestic.ExcludedTags)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("imported domestic rules", "list", g.cfg.Domestic.DomainList, "count", domestic.Len())

	for _, r := range domestic.Clone().Payload {
		for _, tld := range g.cfg.Domestic.OverseasTLDs {
			if strings.HasSuffix(r.Payload, tld) {
				domestic.Remove(r)
				slog.Debug("rule removed for overseas TLD", "rule", r.String())
				break
			}
		}
	}

	if domestic, err = patch.Apply(domestic, "domestic", g.cfg.Paths.Patches); err != nil {
		return nil, nil, err
	}
	domestic.Dedup()
	withoutTLDs = domestic.Clone()

	tldEntries, err := geosite.Parse(g.domains, g.cfg.Domestic.TLDList, nil)
	if err != nil {
		return nil, nil, err
	}
	tlds, err := geosite.Convert(tldEntries, nil)
	if err != nil {
		return nil, nil, err
	}
	if err := domestic.Union(tlds); err != nil {
		return nil, nil, err
	}
	domestic.Dedup()
	slog.Info("generated domestic rules", "count", domestic.Len())
	return withoutTLDs, domestic, nil
}

// BuildDomesticCIDR fetches the plain IPv4 dump and derives the IPv6 set
// from the RIR delegated stats, aggregated to minimal prefixes.
func (g *Generator) BuildDomesticCIDR(ctx context.Context) (v4, v6 *model.RuleSet, err error) {
	lines, err := g.fetcher(ctx, fetch.KindCIDRList, g.cfg.Domestic.IPv4URL)
	if err != nil {
		return nil, nil, err
	}
	v4, err = cidr.RuleSet(cidr.ParsePlain(lines))
	if err != nil {
		return nil, nil, err
	}
	slog.Info("generated domestic IPv4 rules", "count", v4.Len())

	lines, err = g.fetcher(ctx, fetch.KindCIDRList, g.cfg.Domestic.DelegatedURL)
	if err != nil {
		return nil, nil, err
	}
	prefixes := cidr.ParseDelegated(lines, "apnic", g.cfg.Domestic.DelegatedCC, "ipv6")
	v6, err = cidr.RuleSet(cidr.Aggregate(prefixes))
	if err != nil {
		return nil, nil, err
	}
	slog.Info("generated domestic IPv6 rules", "count", v6.Len())
	return v4, v6, nil
}

// BuildCategory converts one community category list, honoring the
// configured import exclusions.
func (g *Generator) BuildCategory(name string) (*model.RuleSet, error) {
	entries, err := geosite.Parse(g.domains, name, g.cfg.Categories.ExcludedImports)
	if err != nil {
		return nil, err
	}
	rs, err := geosite.Convert(entries, nil)
	if err != nil {
		return nil, err
	}
	rs.Dedup()
	return rs, nil
}

func (g *Generator) runReject(ctx context.Context) error {
	reject, exclusions, err := g.BuildReject(ctx)
	if err != nil {
		return err
	}
	if err := render.BatchDump(reject, g.cfg.Targets, g.cfg.Paths.Dist, "reject"); err != nil {
		return err
	}
	return render.BatchDump(exclusions, g.cfg.Targets, g.cfg.Paths.Dist, "exclude")
}

func (g *Generator) runDomestic(ctx context.Context) error {
	withoutTLDs, domestic, err := g.BuildDomestic(ctx)
	if err != nil {
		return err
	}
	if err := render.BatchDump(withoutTLDs, []render.Target{render.TargetText},
		g.cfg.Paths.Dist, "domestic_withcntld"); err != nil {
		return err
	}
	return render.BatchDump(domestic, g.cfg.Targets, g.cfg.Paths.Dist, "domestic")
}

func (g *Generator) runDomesticCIDR(ctx context.Context) error {
	v4, v6, err := g.BuildDomesticCIDR(ctx)
	if err != nil {
		return err
	}
	if err := render.BatchDump(v4, g.cfg.Targets, g.cfg.Paths.Dist, "domestic_ip"); err != nil {
		return err
	}
	return render.BatchDump(v6, g.cfg.Targets, g.cfg.Paths.Dist, "domestic_ip6")
}

func (g *Generator) runCategories(context.Context) error {
	for _, name := range g.cfg.Categories.Names {
		rs, err := g.BuildCategory(name)
		if err != nil {
			return err
		}
		if err := render.BatchDump(rs, g.cfg.Targets, g.cfg.Paths.Dist, name); err != nil {
			return err
		}
	}
	return nil
}

// personalTargets is the reduced target list for personal rulesets; the
// geosite re-export is written separately under a prefixed name.
var personalTargets = []render.Target{
	render.TargetText, render.TargetTextPlus, render.TargetYAML,
	render.TargetSurge, render.TargetClash,
}

func (g *Generator) runCustom(context.Context) error {
	files, err := os.ReadDir(g.cfg.Paths.Custom)
	if err != nil {
		return err
	}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		rs, err := rules.ParseCustomFile(filepath.Join(g.cfg.Paths.Custom, f.Name()))
		if err != nil {
			return err
		}
		stem := strings.TrimSuffix(f.Name(), filepath.Ext(f.Name()))
		if err := render.BatchDump(rs, g.cfg.Targets, g.cfg.Paths.Dist, stem); err != nil {
			return err
		}
		slog.Debug("converted custom source", "source", f.Name(), "count", rs.Len())
	}

	personal, err := os.ReadDir(g.cfg.Paths.Personal)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, f := range personal {
		if f.IsDir() {
			continue
		}
		rs, err := rules.ParseCustomFile(filepath.Join(g.cfg.Paths.Personal, f.Name()))
		if err != nil {
			return err
		}
		stem := strings.TrimSuffix(f.Name(), filepath.Ext(f.Name()))
		if err := render.BatchDump(rs, personalTargets,
			filepath.Join(g.cfg.Paths.Dist, "personal"), stem); err != nil {
			return err
		}
		if err := render.Dump(render.TargetGeosite, rs,
			filepath.Join(g.cfg.Paths.Dist, string(render.TargetGeosite)), "personal-"+stem); err != nil {
			return err
		}
		slog.Debug("converted personal source", "source", f.Name(), "count", rs.Len())
	}
	return nil
}

func (g *Generator) runGeoIP(ctx context.Context) error {
	if g.cfg.GeoIP.URL == "" || len(g.cfg.GeoIP.Countries) == 0 {
		slog.Debug("no GeoIP database configured, stage skipped")
		return nil
	}
	data, err := g.fetchBytes(ctx, g.cfg.GeoIP.URL)
	if err != nil {
		return err
	}
	db, err := geoip.FromBytes(data)
	if err != nil {
		return err
	}
	for _, code := range g.cfg.GeoIP.Countries {
		rs, err := db.RuleSet(code)
		if err != nil {
			return err
		}
		name := "geoip-" + strings.ToLower(code)
		if err := render.BatchDump(rs, g.cfg.Targets, g.cfg.Paths.Dist, name); err != nil {
			return err
		}
		slog.Info("generated GeoIP rules", "country", code, "count", rs.Len())
	}
	return nil
}

func addUnique(rs *model.RuleSet, kind model.Kind, payload string) error {
	r, err := model.New(kind, payload)
	if err != nil {
		return err
	}
	if rs.Contains(r) {
		return nil
	}
	return rs.Add(r)
}
