// Package rules parses the self-describing custom source syntax: the first
// line carries a "@<Kind>" header selecting how the remaining lines are
// interpreted (Domain, IPCIDR or Combined).
package rules

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/vuong2023/Rules/internal/model"
)

type ParseError struct {
	Code    string
	Message string
	Name    string
	Line    int
	Cause   error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Name != "" {
		msg += fmt.Sprintf(" (source: %s, line %d)", e.Name, e.Line)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Cause }

// ParseCustomFile reads and parses one custom source file.
func ParseCustomFile(path string) (*model.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{
			Code:    "SOURCE_NOT_FOUND",
			Message: fmt.Sprintf("cannot read custom source %q", path),
			Name:    path,
			Cause:   err,
		}
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	return ParseCustom(path, lines)
}

// ParseCustom parses custom source lines. name is used for diagnostics only.
func ParseCustom(name string, lines []string) (*model.RuleSet, error) {
	kind, body := readHeader(name, lines)
	rs, _ := model.NewRuleSet(kind, nil)

	for i, raw := range body {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var (
			r   model.Rule
			err error
		)
		switch kind {
		case model.SetDomain:
			if strings.HasPrefix(line, ".") {
				r, err = model.New(model.DomainSuffix, strings.TrimLeft(line, "."))
			} else {
				r, err = model.New(model.DomainFull, line)
			}
		case model.SetIPCIDR:
			if strings.Contains(line, ":") {
				r, err = model.New(model.IPCIDR6, line)
			} else {
				r, err = model.New(model.IPCIDR, line)
			}
		case model.SetCombined:
			r, err = parseClassicalLine(line)
		}
		if err != nil {
			return nil, &ParseError{
				Code:    "CUSTOM_PARSE_ERROR",
				Message: fmt.Sprintf("invalid line %q", line),
				Name:    name,
				Line:    i + 2, // body starts after the header line
				Cause:   err,
			}
		}
		if err := rs.Add(r); err != nil {
			return nil, err
		}
	}
	return rs, nil
}

// readHeader extracts the "@<Kind>" header from the first line. A missing or
// unknown header is a warning, and the whole file is treated as Domain kind.
func readHeader(name string, lines []string) (model.SetKind, []string) {
	if len(lines) == 0 {
		return model.SetDomain, nil
	}
	_, header, ok := strings.Cut(lines[0], "@")
	if !ok {
		slog.Warn("custom source has no valid kind header, treated as Domain", "source", name)
		return model.SetDomain, lines
	}
	switch strings.TrimSpace(header) {
	case "Domain":
		return model.SetDomain, lines[1:]
	case "IPCIDR":
		return model.SetIPCIDR, lines[1:]
	case "Combined":
		return model.SetCombined, lines[1:]
	default:
		slog.Warn("custom source has an unknown kind header, treated as Domain",
			"source", name, "header", header)
		return model.SetDomain, lines[1:]
	}
}

// parseClassicalLine parses one comma-delimited classical rule line.
func parseClassicalLine(line string) (model.Rule, error) {
	typ, value, ok := strings.Cut(line, ",")
	if !ok || value == "" {
		return model.Rule{}, fmt.Errorf("expected TYPE,VALUE, got %q", line)
	}
	value = strings.TrimSpace(value)
	switch strings.TrimSpace(typ) {
	case "DOMAIN":
		return model.New(model.DomainFull, value)
	case "DOMAIN-SUFFIX":
		return model.New(model.DomainSuffix, value)
	case "IP-CIDR":
		return model.New(model.IPCIDR, value)
	case "IP-CIDR6":
		return model.New(model.IPCIDR6, value)
	default:
		return model.Rule{}, fmt.Errorf("unsupported classical rule type %q", typ)
	}
}
