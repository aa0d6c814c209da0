package imagegen

import (
	"strings"
	"testing"

	"hairstudio/internal/domain"
)

func TestBuildSynthesisInstruction(t *testing.T) {
	req := SynthesisRequest{
		HairstyleName:    "layered medium",
		HairstyleDesc:    "soft layers",
		HaircolorName:    "lavender ash",
		HaircolorDesc:    "no bleach",
		RecommendedLevel: "level 10",
		CurrentLevel:     "about level 7",
		UserRequests:     "keep the bangs long",
	}
	got := BuildSynthesisInstruction(req, true)

	checks := []string{
		"skin texture",
		"background unchanged",
		"Edit the hair only",
		"Style: layered medium (soft layers)",
		"Color: lavender ash (no bleach)",
		"level 10 on the JHCA level scale",
		"Compare it with the current about level 7",
		"keep the bangs long",
		"reference for the desired hairstyle",
		"Negative prompt:",
		"(different person)",
	}
	for _, expect := range checks {
		if !strings.Contains(got, expect) {
			t.Fatalf("instruction missing %q: %s", expect, got)
		}
	}
	if strings.Contains(BuildSynthesisInstruction(req, false), "reference for the desired hairstyle") {
		t.Fatal("reference line must only appear with a reference image")
	}
}

func TestBuildRefinementInstruction(t *testing.T) {
	got := BuildRefinementInstruction("  a bit brighter ")
	for _, expect := range []string{`"a bit brighter"`, "must not change", "JHCA level scale", "(background changed)"} {
		if !strings.Contains(got, expect) {
			t.Fatalf("instruction missing %q: %s", expect, got)
		}
	}
}

func TestSwitchColorText(t *testing.T) {
	got := SwitchColorText(domain.ColorOption{Name: "pink beige", RecommendedLevel: "level 12"})
	if got != "Change the hair color to pink beige at level 12 on the JHCA level scale, keeping the hairstyle exactly as it is." {
		t.Fatalf("SwitchColorText = %q", got)
	}
}

func TestParseDataURL(t *testing.T) {
	img, err := ParseDataURL("data:image/webp;base64,QUJD")
	if err != nil {
		t.Fatalf("ParseDataURL error: %v", err)
	}
	if img.MimeType != "image/webp" || img.Base64 != "QUJD" {
		t.Fatalf("ParseDataURL = %+v", img)
	}
	if img.DataURL() != "data:image/webp;base64,QUJD" {
		t.Fatalf("DataURL = %q", img.DataURL())
	}
	for _, bad := range []string{"", "data:text/plain;base64,QUJD", "https://s/a.png", "data:image/png,QUJD"} {
		if _, err := ParseDataURL(bad); err == nil {
			t.Fatalf("ParseDataURL(%q) expected error", bad)
		}
	}
}

func TestImageExt(t *testing.T) {
	cases := map[string]string{"image/png": "png", "image/jpeg": "jpg", "image/webp": "webp", "": "png"}
	for mime, want := range cases {
		if got := (Image{MimeType: mime}).Ext(); got != want {
			t.Fatalf("Ext(%q) = %q, want %q", mime, got, want)
		}
	}
}
