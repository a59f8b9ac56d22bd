// Package config loads the optional tawa.yaml project file. It is the
// Go port of the teacher's "Tawa Module Information" file, generalized
// from a single Package field into the handful of settings `tawa
// build` needs to pick an entry point and a codegen target.
package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// DefaultFileName is where `tawa build` looks for project settings and
// where `tawa init` writes them, mirroring the teacher's hardcoded
// "Tawa Module Information" path. `tawa run` does not read it.
const DefaultFileName = "tawa.yaml"

// Project is the parsed shape of tawa.yaml.
type Project struct {
	// Package names the compiled module, the direct descendant of the
	// teacher's tawaModule.Package.
	Package string `yaml:"package"`
	// Target is an LLVM target triple. It is loaded and saved with the
	// file, but `build` does not read it: the emitted module carries no
	// target triple.
	Target string `yaml:"target,omitempty"`
	// Entry names a DEF as the program's entry point. It is loaded and
	// saved with the file, but `build` does not read it: the emitted
	// _tawa_main always runs every top-level statement in order.
	Entry string `yaml:"entry,omitempty"`
}

// Default is used when no tawa.yaml is present: absence of the file is
// not an error, matching the teacher's config only being required by
// `build`, never by plain interpretation.
func Default(packageName string) *Project {
	return &Project{Package: packageName}
}

// Load reads and parses path. A missing file is reported via the
// returned bool, not an error, so callers can fall back to Default.
func Load(path string) (*Project, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

// Save writes p to path as YAML, matching the teacher's `init`
// subcommand writing "Tawa Module Information".
func Save(path string, p *Project) error {
	out, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}
