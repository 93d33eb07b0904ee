// Package dashboard renders Grafana dashboards over the GreptimeDB tables.
package dashboard

import (
	"embed"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"

	"archops-sim/internal/telemetry"
)

//go:embed templates/*.json.tmpl
var templates embed.FS

var templateFiles = []string{
	"templates/grafana-dashboard.json.tmpl",
	"templates/grafana-runs.json.tmpl",
}

// DatasourceEnv names the variable holding the Grafana datasource UID.
const DatasourceEnv = "GREPTIMEDB_DATASOURCE_UID"

func funcMap() template.FuncMap {
	return template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
	}
}

type tables struct {
	State  string
	Events string
	Runs   string
}

// Render writes every dashboard into outDir, named after its template
// without the .tmpl suffix.
func Render(outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	data := tables{
		State:  telemetry.StateTableName,
		Events: telemetry.EventsTableName,
		Runs:   telemetry.RunsTableName,
	}
	for _, name := range templateFiles {
		t, err := template.New(path.Base(name)).Funcs(funcMap()).ParseFS(templates, name)
		if err != nil {
			return err
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(path.Base(name), ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if err := t.Execute(f, data); err != nil {
			f.Close()
			return fmt.Errorf("render %s: %w", path.Base(name), err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
