// Package project probes workspace manifests to detect the dominant
// language and project name. The result feeds structural grammar
// priority, warm-up sampling, and diagnostics.
package project

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Info describes a detected project.
type Info struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Manifest string `json:"manifest"`
}

// cargoManifest is the subset of Cargo.toml we read.
type cargoManifest struct {
	Package struct {
		Name string `toml:"name"`
	} `toml:"package"`
}

// pyProject is the subset of pyproject.toml we read.
type pyProject struct {
	Project struct {
		Name string `toml:"name"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Name string `toml:"name"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// packageJSON is the subset of package.json we read.
type packageJSON struct {
	Name string `json:"name"`
}

// Detect probes root for known manifests, most specific first. An
// unrecognized workspace yields an Info with empty fields, not an
// error.
func Detect(root string) Info {
	probes := []struct {
		file   string
		detect func(path string) Info
	}{
		{"go.mod", detectGoMod},
		{"package.json", detectPackageJSON},
		{"Cargo.toml", detectCargo},
		{"pyproject.toml", detectPyProject},
		{"pom.xml", func(string) Info { return Info{Language: "java", Manifest: "pom.xml"} }},
		{"build.gradle", func(string) Info { return Info{Language: "java", Manifest: "build.gradle"} }},
		{"build.gradle.kts", func(string) Info { return Info{Language: "kotlin", Manifest: "build.gradle.kts"} }},
	}

	for _, p := range probes {
		path := filepath.Join(root, p.file)
		if _, err := os.Stat(path); err == nil {
			info := p.detect(path)
			if info.Manifest == "" {
				info.Manifest = p.file
			}
			if info.Name == "" {
				info.Name = filepath.Base(root)
			}
			return info
		}
	}
	return Info{Name: filepath.Base(root)}
}

func detectGoMod(path string) Info {
	info := Info{Language: "go", Manifest: "go.mod"}
	f, err := os.Open(path)
	if err != nil {
		return info
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "module ") {
			module := strings.TrimSpace(strings.TrimPrefix(line, "module "))
			info.Name = filepath.Base(module)
			break
		}
	}
	return info
}

func detectPackageJSON(path string) Info {
	info := Info{Language: "javascript", Manifest: "package.json"}
	data, err := os.ReadFile(path)
	if err != nil {
		return info
	}
	var pkg packageJSON
	if json.Unmarshal(data, &pkg) == nil {
		info.Name = pkg.Name
	}
	if hasTSConfig(filepath.Dir(path)) {
		info.Language = "typescript"
	}
	return info
}

func detectCargo(path string) Info {
	info := Info{Language: "rust", Manifest: "Cargo.toml"}
	var m cargoManifest
	if _, err := toml.DecodeFile(path, &m); err == nil {
		info.Name = m.Package.Name
	}
	return info
}

func detectPyProject(path string) Info {
	info := Info{Language: "python", Manifest: "pyproject.toml"}
	var p pyProject
	if _, err := toml.DecodeFile(path, &p); err == nil {
		if p.Project.Name != "" {
			info.Name = p.Project.Name
		} else {
			info.Name = p.Tool.Poetry.Name
		}
	}
	return info
}

func hasTSConfig(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "tsconfig.json"))
	return err == nil
}
