package policy

import "testing"

func TestToLocal(t *testing.T) {
	tests := map[string]string{
		"remotes/origin/main":        "main",
		"remotes/upstream/feature":   "feature",
		"remotes/origin/feature/foo": "feature/foo",
		"main":                       "main",
		"feature/x":                  "feature/x",
		"origin/main":                "origin/main",
		"remotes/origin/":            "remotes/origin/",
		"remotes/":                   "remotes/",
		"remotes/a/remotes/b/c":      "c",
		"remotes/a/remotes/b/":       "remotes/b/",
		"":                           "",
	}
	for in, want := range tests {
		if got := ToLocal(in); got != want {
			t.Fatalf("ToLocal(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestToLocal_Idempotent(t *testing.T) {
	for _, ref := range []string{"remotes/origin/main", "main", "remotes/upstream/feature/a", "feature/x", "remotes/a/remotes/b/c", "remotes/o/remotes/"} {
		once := ToLocal(ref)
		if twice := ToLocal(once); twice != once {
			t.Fatalf("ToLocal not idempotent for %q: %q then %q", ref, once, twice)
		}
	}
}
