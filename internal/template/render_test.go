package template

import "testing"

func TestRender(t *testing.T) {
	cases := []struct {
		name  string
		input string
		vars  map[string]string
		want  string
	}{
		{
			name:  "substitutes variables",
			input: "Hello {{first_name}}, your quote {{reference}} is ready.",
			vars:  map[string]string{"first_name": "Maya", "reference": "Q-2026-0001"},
			want:  "Hello Maya, your quote Q-2026-0001 is ready.",
		},
		{
			name:  "unknown placeholders are preserved",
			input: "Hello {{first_name}}, total {{total}}.",
			vars:  map[string]string{"first_name": "Maya"},
			want:  "Hello Maya, total {{total}}.",
		},
		{
			name:  "no variables",
			input: "Plain text.",
			vars:  nil,
			want:  "Plain text.",
		},
		{
			name:  "repeated placeholder",
			input: "{{name}} and {{name}}",
			vars:  map[string]string{"name": "Maya"},
			want:  "Maya and Maya",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Render(tc.input, tc.vars)
			if got != tc.want {
				t.Fatalf("Render(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestRenderTemplate(t *testing.T) {
	tpl := Template{
		Subject: "Quote {{reference}}",
		Body:    "Dear {{first_name}},\nyour total is {{total}}.",
	}
	rendered := RenderTemplate(tpl, map[string]string{
		"reference":  "Q-2026-0001",
		"first_name": "Maya",
		"total":      "1,250.00 USD",
	})
	if rendered.Subject != "Quote Q-2026-0001" {
		t.Fatalf("subject = %q", rendered.Subject)
	}
	if rendered.Body != "Dear Maya,\nyour total is 1,250.00 USD." {
		t.Fatalf("body = %q", rendered.Body)
	}
}
