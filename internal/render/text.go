package render

import (
	"fmt"
	"strings"

	"github.com/vuong2023/Rules/internal/model"
)

func renderLines(rs *model.RuleSet, render func(model.Rule) (string, error)) (string, error) {
	var b strings.Builder
	for _, r := range rs.Payload {
		line, err := render(r)
		if err != nil {
			return "", err
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func renderTextRule(r model.Rule) (string, error) {
	switch r.Kind {
	case model.DomainSuffix:
		return "." + r.Payload, nil
	case model.DomainFull, model.IPCIDR, model.IPCIDR6:
		return r.Payload, nil
	default:
		return "", unsupportedRuleKind(r)
	}
}

func renderTextPlusRule(r model.Rule) (string, error) {
	switch r.Kind {
	case model.DomainSuffix:
		return "+." + r.Payload, nil
	case model.DomainFull, model.IPCIDR, model.IPCIDR6:
		return r.Payload, nil
	default:
		return "", unsupportedRuleKind(r)
	}
}

func renderSurgeRule(r model.Rule) (string, error) {
	switch r.Kind {
	case model.DomainSuffix:
		return "DOMAIN-SUFFIX," + r.Payload, nil
	case model.DomainFull:
		return "DOMAIN," + r.Payload, nil
	case model.IPCIDR:
		return "IP-CIDR," + r.Payload, nil
	case model.IPCIDR6:
		return "IP-CIDR6," + r.Payload, nil
	default:
		return "", unsupportedRuleKind(r)
	}
}

func renderClashRule(r model.Rule) (string, error) {
	line, err := renderSurgeRule(r)
	if err != nil {
		return "", err
	}
	// Clash classical lines carry a trailing policy field.
	return line + ",Policy", nil
}

func renderGeositeRule(r model.Rule) (string, error) {
	switch r.Kind {
	case model.DomainSuffix:
		return r.Payload, nil
	case model.DomainFull:
		return "full:" + r.Payload, nil
	default:
		return "", unsupportedRuleKind(r)
	}
}

// renderYAML emits the tagged payload block consumed as a Clash provider:
//
//	payload:
//	  - '+.example.com'
//
// The block is written by hand so entries keep the exact single-quoted shape
// downstream parsers are tested against.
func renderYAML(rs *model.RuleSet) (string, error) {
	var b strings.Builder
	b.WriteString("payload:\n")
	for _, r := range rs.Payload {
		var entry string
		switch r.Kind {
		case model.DomainSuffix:
			entry = "+." + r.Payload
		case model.DomainFull, model.IPCIDR, model.IPCIDR6:
			entry = r.Payload
		default:
			return "", unsupportedRuleKind(r)
		}
		b.WriteString("  - ")
		b.WriteString(yamlSQ(entry))
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func yamlSQ(s string) string {
	// YAML single-quoted scalar: the only escape is a doubled quote.
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func unsupportedRuleKind(r model.Rule) error {
	return &RenderError{
		Code:    "UNSUPPORTED_KIND",
		Message: fmt.Sprintf("unsupported rule kind %q", r.Kind),
	}
}
