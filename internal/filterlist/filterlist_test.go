package filterlist

import (
	"reflect"
	"testing"
)

func TestParse_BlockAndAllow(t *testing.T) {
	got := Parse([]string{
		"! EasyList section",
		"[Adblock Plus 2.0]",
		"||ads.example.com^",
		"@@||cdn.example.com^",
		"||tracker.example.org^$third-party",
		"example.com##.banner",
		"|http://ads.example.net/banner.gif",
		"/ads/banner/*",
		"||ads.example.org/",
		"",
	})

	want := []Line{
		{Action: Block, Domain: "ads.example.com"},
		{Action: Allow, Domain: "cdn.example.com"},
		{Action: Block, Domain: "ads.example.org"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got=%v, want=%v", got, want)
	}
}

func TestParse_DroppedShapes(t *testing.T) {
	dropped := []string{
		"^ads^",
		"||198.51.100.7^",      // bare IPv4, not a domain
		"||ads.example.com^*/", // wildcard leftovers fail domain validation
		"##.ad-slot",
	}
	if got := Parse(dropped); len(got) != 0 {
		t.Fatalf("expected everything dropped, got %v", got)
	}
}
