package dashboard

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderMissingEnv(t *testing.T) {
	t.Setenv(DatasourceEnv, "")
	if err := Render(t.TempDir()); err == nil {
		t.Fatalf("expected error for missing env vars")
	}
}

func TestRenderSuccess(t *testing.T) {
	t.Setenv(DatasourceEnv, "uid1")

	dir := t.TempDir()
	if err := Render(dir); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	for _, name := range []string{"grafana-dashboard.json", "grafana-runs.json"} {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !strings.Contains(string(b), "uid1") {
			t.Fatalf("%s: datasource uid not rendered", name)
		}
		var doc map[string]any
		if err := json.Unmarshal(b, &doc); err != nil {
			t.Fatalf("%s is not valid JSON: %v", name, err)
		}
	}
	b, _ := os.ReadFile(filepath.Join(dir, "grafana-dashboard.json"))
	if !strings.Contains(string(b), "FROM archops_state") {
		t.Fatalf("state table not rendered")
	}
}
