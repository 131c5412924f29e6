package render

import (
	"encoding/json"
	"fmt"

	"github.com/vuong2023/Rules/internal/model"
)

// singDocument is the sing-box source-format ruleset: one version-1 document
// holding a single rule object whose fields are arrays keyed by kind.
type singDocument struct {
	Version int        `json:"version"`
	Rules   []singRule `json:"rules"`
}

type singRule struct {
	Domain       []string `json:"domain,omitempty"`
	DomainSuffix []string `json:"domain_suffix,omitempty"`
	IPCIDR       []string `json:"ip_cidr,omitempty"`
}

func renderSingRuleset(rs *model.RuleSet) (string, error) {
	var rule singRule
	for _, r := range rs.Payload {
		switch r.Kind {
		case model.DomainFull:
			rule.Domain = append(rule.Domain, r.Payload)
		case model.DomainSuffix:
			// sing-box expects the leading dot on suffix entries.
			rule.DomainSuffix = append(rule.DomainSuffix, "."+r.Payload)
		case model.IPCIDR, model.IPCIDR6:
			rule.IPCIDR = append(rule.IPCIDR, r.Payload)
		default:
			return "", unsupportedRuleKind(r)
		}
	}

	doc := singDocument{Version: 1, Rules: []singRule{rule}}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", &RenderError{
			Code:    "RENDER_FAILED",
			Message: fmt.Sprintf("cannot encode sing-box ruleset: %v", err),
			Cause:   err,
		}
	}
	return string(data), nil
}
