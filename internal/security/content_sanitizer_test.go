package security

import (
	"strings"
	"testing"
)

func TestSanitizeRich_AllowedTags(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name         string
		input        string
		wantContains []string
	}{
		{
			name:         "pタグが許可される",
			input:        "<p>Led the platform team</p>",
			wantContains: []string{"<p>Led the platform team</p>"},
		},
		{
			name:         "リストが許可される",
			input:        "<ul><li>Go</li><li>PostgreSQL</li></ul>",
			wantContains: []string{"<ul>", "<li>Go</li>", "<li>PostgreSQL</li>", "</ul>"},
		},
		{
			name:         "強調タグが許可される",
			input:        "<strong>10x</strong> <em>faster</em> <b>builds</b> <i>daily</i> <u>now</u>",
			wantContains: []string{"<strong>10x</strong>", "<em>faster</em>", "<b>builds</b>", "<i>daily</i>", "<u>now</u>"},
		},
		{
			name:         "httpsリンクが許可される",
			input:        `<a href="https://example.com/portfolio">portfolio</a>`,
			wantContains: []string{"<a", `href="https://example.com/portfolio"`, "portfolio", "</a>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.SanitizeRich(tt.input)
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("SanitizeRich(%q) = %q, expected to contain %q", tt.input, got, want)
				}
			}
		})
	}
}

func TestSanitizeRich_RemovesDangerousContent(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name       string
		input      string
		notContain []string
	}{
		{
			name:       "scriptタグが除去される",
			input:      `<p>hi</p><script>alert("xss")</script>`,
			notContain: []string{"<script", "alert("},
		},
		{
			name:       "iframeタグが除去される",
			input:      `<iframe src="https://evil.example.com"></iframe>`,
			notContain: []string{"<iframe"},
		},
		{
			name:       "imgタグが除去される",
			input:      `<img src="https://example.com/x.png" onerror="alert(1)">`,
			notContain: []string{"<img", "onerror"},
		},
		{
			name:       "onclick属性が除去される",
			input:      `<p onclick="alert(1)">click</p>`,
			notContain: []string{"onclick"},
		},
		{
			name:       "javascript URIが除去される",
			input:      `<a href="javascript:alert(1)">x</a>`,
			notContain: []string{"javascript:"},
		},
		{
			name:       "http URIが除去される",
			input:      `<a href="http://example.com">x</a>`,
			notContain: []string{"http://example.com"},
		},
		{
			name:       "style属性が除去される",
			input:      `<p style="background:url(javascript:alert(1))">x</p>`,
			notContain: []string{"style=", "javascript"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.SanitizeRich(tt.input)
			for _, bad := range tt.notContain {
				if strings.Contains(got, bad) {
					t.Errorf("SanitizeRich(%q) = %q, should not contain %q", tt.input, got, bad)
				}
			}
		})
	}
}

func TestSanitizeRich_AnchorAttributes(t *testing.T) {
	sanitizer := NewContentSanitizer()

	got := sanitizer.SanitizeRich(`<a href="https://example.com" target="_self">link</a>`)

	if !strings.Contains(got, `target="_blank"`) {
		t.Errorf("SanitizeRich() = %q, expected target=\"_blank\"", got)
	}
	if !strings.Contains(got, "noopener") || !strings.Contains(got, "noreferrer") {
		t.Errorf("SanitizeRich() = %q, expected rel with noopener and noreferrer", got)
	}
}

func TestSanitizePlain_StripsAllTags(t *testing.T) {
	sanitizer := NewContentSanitizer()

	got := sanitizer.SanitizePlain(`<b>Jane</b> <script>alert(1)</script>Doe`)

	if strings.Contains(got, "<") {
		t.Errorf("SanitizePlain() = %q, expected no tags", got)
	}
	if !strings.Contains(got, "Jane") || !strings.Contains(got, "Doe") {
		t.Errorf("SanitizePlain() = %q, expected text to be kept", got)
	}
}

func TestSanitize_EmptyInput(t *testing.T) {
	sanitizer := NewContentSanitizer()

	if got := sanitizer.SanitizeRich(""); got != "" {
		t.Errorf("SanitizeRich(\"\") = %q, want empty", got)
	}
	if got := sanitizer.SanitizePlain(""); got != "" {
		t.Errorf("SanitizePlain(\"\") = %q, want empty", got)
	}
}

func TestSanitizeRich_Idempotent(t *testing.T) {
	sanitizer := NewContentSanitizer()

	input := `<p>Built <a href="https://example.com">tools</a></p><script>x</script>`
	first := sanitizer.SanitizeRich(input)
	second := sanitizer.SanitizeRich(first)

	if first != second {
		t.Errorf("SanitizeRich is not idempotent:\nfirst:  %q\nsecond: %q", first, second)
	}
}
