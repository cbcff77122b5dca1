package refs

import "testing"

func TestParseTaskURL(t *testing.T) {
	cases := map[string]string{
		"https://app.asana.com/0/111/222":                         "222",
		"https://app.asana.com/0/111/222/f":                       "222",
		"https://app.asana.com/1/9/project/111/task/333":          "333",
		"https://app.asana.com/1/9/project/111/task/333?focus=1": "333",
	}
	for raw, want := range cases {
		got, ok := ParseTaskURL(raw)
		if !ok || got != want {
			t.Fatalf("%s: got %q %v, want %q", raw, got, ok, want)
		}
	}
}

func TestParseTaskURLRejectsOtherHosts(t *testing.T) {
	if _, ok := ParseTaskURL("https://example.com/0/1/2"); ok {
		t.Fatalf("expected non-asana host to be rejected")
	}
	if _, ok := ParseTaskURL("123"); ok {
		t.Fatalf("expected plain id to be rejected")
	}
}

func TestNormalizeTaskRef(t *testing.T) {
	if got := NormalizeTaskRef("id:42"); got != "42" {
		t.Fatalf("unexpected: %q", got)
	}
	if got := NormalizeTaskRef("https://app.asana.com/0/1/42"); got != "42" {
		t.Fatalf("unexpected: %q", got)
	}
}
