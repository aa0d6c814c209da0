package i18n

import "testing"

func TestT(t *testing.T) {
	if got := T(Japanese, MsgSelectionIncomplete); got != "ヘアスタイルとヘアカラーをそれぞれ選択してください。" {
		t.Fatalf("T(ja) = %q", got)
	}
	if got := T(English, MsgUploadFailed, "item-back-video"); got != "Uploading item-back-video failed. Please select the file again." {
		t.Fatalf("T(en) = %q", got)
	}
	if got := T("id", MsgBusy); got != "A request is still running. Please wait." {
		t.Fatalf("T(id) = %q, want English fallback", got)
	}
}

func TestCatalogComplete(t *testing.T) {
	for key, m := range messages {
		if m[0] == "" || m[1] == "" {
			t.Fatalf("message %q is missing a translation", key)
		}
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ja-JP,ja;q=0.9", Japanese},
		{"en-US,en;q=0.9", English},
		{"EN", English},
		{"fr-FR", ""},
		{"", ""},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			if got := Match(tc.in); got != tc.want {
				t.Fatalf("Match(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
