// CUE schema validation code
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"github.com/BurntSushi/toml"
)

//go:embed simulation.cue
var builtinSchema []byte

// ValidateWithCue validates a YAML or TOML configuration file against the
// #Config definition of a CUE schema file. An empty cueFile uses the
// built-in schema.
func ValidateWithCue(configFile, cueFile string) error {
	ctx := cuecontext.New()

	schemaBytes := builtinSchema
	if cueFile != "" {
		b, err := os.ReadFile(cueFile)
		if err != nil {
			return fmt.Errorf("cannot read CUE schema: %w", err)
		}
		schemaBytes = b
	}
	schema := ctx.CompileBytes(schemaBytes)
	if schema.Err() != nil {
		return fmt.Errorf("cannot compile CUE schema: %w", schema.Err())
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if !def.Exists() {
		return fmt.Errorf("CUE schema has no #Config definition")
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("cannot read config: %w", err)
	}
	var configVal cue.Value
	if isTOML(configFile) {
		var raw map[string]any
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return fmt.Errorf("cannot decode TOML config: %w", err)
		}
		configVal = ctx.Encode(raw)
	} else {
		file, err := cueyaml.Extract(configFile, data)
		if err != nil {
			return fmt.Errorf("cannot parse YAML config: %w", err)
		}
		configVal = ctx.BuildFile(file)
	}
	if configVal.Err() != nil {
		return fmt.Errorf("cannot load config into CUE: %w", configVal.Err())
	}

	final := def.Unify(configVal)
	if err := final.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
