package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"archops-sim/internal/catalog"
)

func TestLoadScenario(t *testing.T) {
	sc, err := Load("testdata/simple.yaml")
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	if sc.Name != "example" {
		t.Fatalf("unexpected name %s", sc.Name)
	}
	if sc.Description != "basic test scenario" {
		t.Fatalf("unexpected description %s", sc.Description)
	}
	if len(sc.Steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(sc.Steps))
	}
	if sc.Steps[0].At != 2 || sc.Steps[0].Line() != "place AUTH" {
		t.Fatalf("steps not ordered by second: %+v", sc.Steps[0])
	}
	due := sc.Due(10)
	if len(due) != 2 || due[0].Line() != "link 1 4" || due[1].Line() != "fix 3" {
		t.Fatalf("unexpected due steps %+v", due)
	}
	if sc.Last() != 10 {
		t.Fatalf("last = %d, want 10", sc.Last())
	}
}

func TestParseRejectsBadSteps(t *testing.T) {
	cases := map[string]string{
		"zero second":    "steps:\n  - at: 0\n    action: fix\n",
		"missing action": "steps:\n  - at: 3\n",
		"nested args":    "steps:\n  - at: 3\n    action: link\n    args: [[1, 2]]\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestResolve(t *testing.T) {
	sc, err := Resolve("upward-shortcut")
	if err != nil || sc.Name != "upward-shortcut" {
		t.Fatalf("resolve built-in: %v", err)
	}
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("name: custom\nsteps:\n  - at: 1\n    action: buy\n    args: [hire]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sc, err = Resolve(path)
	if err != nil || sc.Name != "custom" {
		t.Fatalf("resolve file: %v", err)
	}
	if _, err := Resolve("no-such-scenario"); err == nil {
		t.Fatalf("expected error for unknown scenario")
	}
}

func TestBuiltInsAreValid(t *testing.T) {
	names := Names()
	if len(names) != 3 {
		t.Fatalf("built-ins = %v", names)
	}
	for _, n := range names {
		sc := BuiltIn()[n]
		if err := sc.Validate(); err != nil {
			t.Errorf("%s: %v", n, err)
		}
		for _, st := range sc.Steps {
			if st.Action != "place" {
				continue
			}
			if _, err := catalog.Parse(st.Args[0]); err != nil {
				t.Errorf("%s: unknown kind %s", n, st.Args[0])
			}
		}
	}
}
