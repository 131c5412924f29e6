package rules

import (
	"strings"
	"testing"

	"github.com/vuong2023/Rules/internal/model"
)

func FuzzParseCustom(f *testing.F) {
	seed := []string{
		"# @Domain\n.example.com\nwww.example.com",
		"# @IPCIDR\n203.0.113.0/24\n2001:db8::/32",
		"# @Combined\nDOMAIN,www.example.com\nIP-CIDR,203.0.113.0/24",
		"no header\n.example.com",
		"# @Unknown\nexample.com",
		"",
		"# @Domain\n# only comments\n",
	}
	for _, s := range seed {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, src string) {
		rs, err := ParseCustom("fuzz", strings.Split(src, "\n"))
		if err != nil {
			return
		}
		// Every surviving rule must satisfy the set's homogeneity invariant.
		for _, r := range rs.Payload {
			switch rs.Kind {
			case model.SetDomain:
				if !r.Kind.IsDomain() {
					t.Fatalf("non-domain rule in Domain set: %v", r)
				}
			case model.SetIPCIDR:
				if r.Kind != model.IPCIDR && r.Kind != model.IPCIDR6 {
					t.Fatalf("non-IP rule in IPCIDR set: %v", r)
				}
			}
			if r.Payload == "" {
				t.Fatalf("empty payload survived parsing")
			}
		}
	})
}
