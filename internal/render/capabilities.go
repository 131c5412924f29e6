package render

import "github.com/vuong2023/Rules/internal/model"

// Supports reports whether the target can represent a ruleset of the given
// kind at all. Dump treats an unsupported pairing as a logged skip rather
// than an error: the consumer simply has no use for that file.
//
// NOTE: Combined sets are caller-ordered; only the classical formats and the
// sing-box ruleset document preserve a meaningful mixed ordering.
func (t Target) known() bool {
	switch t {
	case TargetText, TargetTextPlus, TargetYAML,
		TargetSurge, TargetClash, TargetGeosite, TargetSingRuleset:
		return true
	default:
		return false
	}
}

func (t Target) Supports(kind model.SetKind) bool {
	switch t {
	case TargetText, TargetTextPlus, TargetYAML:
		return kind == model.SetDomain || kind == model.SetIPCIDR
	case TargetSurge, TargetClash, TargetSingRuleset:
		return true
	case TargetGeosite:
		return kind == model.SetDomain
	default:
		return false
	}
}
