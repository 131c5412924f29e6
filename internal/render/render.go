// Package render serializes rulesets into the consumer-specific output
// formats used by traffic-routing tools.
package render

import (
	"fmt"

	"github.com/vuong2023/Rules/internal/model"
)

type Target string

const (
	TargetText        Target = "text"
	TargetTextPlus    Target = "text-plus"
	TargetYAML        Target = "yaml"
	TargetSurge       Target = "surge-compatible"
	TargetClash       Target = "clash-compatible"
	TargetGeosite     Target = "geosite"
	TargetSingRuleset Target = "sing-ruleset"
)

// Targets lists every supported output format.
var Targets = []Target{
	TargetText, TargetTextPlus, TargetYAML,
	TargetSurge, TargetClash, TargetGeosite, TargetSingRuleset,
}

// Ext returns the file extension for the target, including the dot. The
// geosite re-export is extensionless by convention.
func (t Target) Ext() string {
	switch t {
	case TargetYAML:
		return ".yaml"
	case TargetSingRuleset:
		return ".json"
	case TargetGeosite:
		return ""
	default:
		return ".txt"
	}
}

type RenderError struct {
	Code    string
	Message string
	Path    string
	Cause   error
}

func (e *RenderError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Path != "" {
		msg += fmt.Sprintf(" (file: %s)", e.Path)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *RenderError) Unwrap() error { return e.Cause }

// Render serializes rs for the target and returns the file content. The
// caller is expected to have checked Supports first; rendering a set kind
// the target cannot represent returns an UNSUPPORTED_KIND error.
func Render(target Target, rs *model.RuleSet) (string, error) {
	if !target.known() {
		return "", &RenderError{
			Code:    "UNSUPPORTED_TARGET",
			Message: fmt.Sprintf("unsupported target: %s", target),
		}
	}
	if !target.Supports(rs.Kind) {
		return "", &RenderError{
			Code:    "UNSUPPORTED_KIND",
			Message: fmt.Sprintf("%s-kind ruleset cannot be rendered as %s", rs.Kind, target),
		}
	}
	switch target {
	case TargetText:
		return renderLines(rs, renderTextRule)
	case TargetTextPlus:
		return renderLines(rs, renderTextPlusRule)
	case TargetYAML:
		return renderYAML(rs)
	case TargetSurge:
		return renderLines(rs, renderSurgeRule)
	case TargetClash:
		return renderLines(rs, renderClashRule)
	case TargetGeosite:
		return renderLines(rs, renderGeositeRule)
	case TargetSingRuleset:
		return renderSingRuleset(rs)
	default:
		return "", &RenderError{
			Code:    "UNSUPPORTED_TARGET",
			Message: fmt.Sprintf("unsupported target: %s", target),
		}
	}
}
