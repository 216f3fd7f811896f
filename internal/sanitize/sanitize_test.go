package sanitize

import "testing"

func TestInput(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "plain text", in: "Acme Corp", want: "Acme Corp"},
		{name: "trims whitespace", in: "  hello  ", want: "hello"},
		{name: "script block removed with content", in: "before<script>alert(1)</script>after", want: "beforeafter"},
		{name: "script block case insensitive", in: "a<SCRIPT src=x>bad</SCRIPT >b", want: "ab"},
		{name: "iframe block removed", in: "x<iframe src=\"evil\"></iframe>y", want: "xy"},
		{name: "javascript uri neutralized", in: "javascript:alert(1)", want: "alert(1)"},
		{name: "event handler stripped", in: "a onclick=doEvil() b", want: "a doEvil() b"},
		{name: "angle brackets stripped", in: "1 < 2 > 0", want: "1  2  0"},
		{name: "unclosed tag loses brackets only", in: "<b>bold", want: "bbold"},
		{name: "multiline script", in: "a<script>\nline1\nline2\n</script>b", want: "ab"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Input(tc.in); got != tc.want {
				t.Errorf("Input(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com", "https://example.com"},
		{"http://example.com/path", "http://example.com/path"},
		{"  https://example.com  ", "https://example.com"},
		{"ftp://example.com", ""},
		{"javascript:alert(1)", ""},
		{"example.com", ""},
		{"", ""},
	}

	for _, tc := range tests {
		if got := URL(tc.in); got != tc.want {
			t.Errorf("URL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEmail(t *testing.T) {
	if got := Email("  User@Example.COM "); got != "user@example.com" {
		t.Errorf("Email = %q, want %q", got, "user@example.com")
	}
}

func TestValue(t *testing.T) {
	if got := Value("<script>x</script>ok"); got != "ok" {
		t.Errorf("Value(string) = %v, want %q", got, "ok")
	}
	if got := Value(42); got != 42 {
		t.Errorf("Value(int) = %v, want 42", got)
	}
	if got := Value(true); got != true {
		t.Errorf("Value(bool) = %v, want true", got)
	}
}

func TestMap(t *testing.T) {
	got := Map(map[string]any{
		"name":  "<b>Acme</b>",
		"count": 3,
	})
	if got["name"] != "bAcme/b" {
		t.Errorf("Map name = %v", got["name"])
	}
	if got["count"] != 3 {
		t.Errorf("Map count = %v", got["count"])
	}

	if m := Map(nil); m == nil {
		t.Error("Map(nil) should return non-nil map")
	}
}
