// Package serverset loads and saves the bulk monitored-server list
// spec.md §6 describes as (name, address, port, protocol, timeout_ms,
// script_text) tuples. The primary format is a Lua table, read with
// gopher-lua + gluamapper exactly as the teacher reads its endpoint
// config; a YAML alternate format is also supported for deployments
// that prefer a plain-data file over an executable one.
package serverset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/gluamapper"
	lua "github.com/yuin/gopher-lua"
	"gopkg.in/yaml.v3"

	"github.com/CaptianFluffy100/net-sentinel/internal/config"
)

// Server is one monitored-server entry as persisted on disk.
type Server struct {
	Name      string `yaml:"name"`
	Address   string `yaml:"address"`
	Port      int    `yaml:"port"`
	Protocol  string `yaml:"protocol"`
	TimeoutMs int    `yaml:"timeout_ms"`
	Script    string `yaml:"script"`
	Trace     bool   `yaml:"trace,omitempty"`
}

// Set is the full bulk server list, the unit Lua/YAML files round-trip.
type Set struct {
	Servers []Server `yaml:"servers"`
}

// Validate checks referential and structural constraints across the
// set: unique names, a recognized protocol per entry, non-empty
// script text. It mirrors the teacher's ValidateConfig shape (check
// every entry, accumulate the first failure, return it wrapped).
func (s *Set) Validate() error {
	seen := make(map[string]bool, len(s.Servers))
	for i, srv := range s.Servers {
		if srv.Name == "" {
			return fmt.Errorf("server %d: missing name", i)
		}
		if seen[srv.Name] {
			return fmt.Errorf("server %d: duplicate name %q", i, srv.Name)
		}
		seen[srv.Name] = true

		if srv.Address == "" {
			return fmt.Errorf("server %q: missing address", srv.Name)
		}
		switch strings.ToUpper(srv.Protocol) {
		case "TCP", "UDP", "HTTP", "HTTPS":
		default:
			return fmt.Errorf("server %q: unrecognized protocol %q", srv.Name, srv.Protocol)
		}
		if strings.TrimSpace(srv.Script) == "" {
			return fmt.Errorf("server %q: empty script", srv.Name)
		}
	}
	return nil
}

// Load reads path, dispatching on its extension: ".lua" goes through
// ReadLua, anything else (".yaml"/".yml" or unset) through ReadYAML.
func Load(path string) (*Set, error) {
	if strings.HasSuffix(path, ".lua") {
		return ReadLua(path)
	}
	return ReadYAML(path)
}

// ReadLua executes the Lua file at path, which must return a table
// assignable to Set, maps it with gluamapper exactly as the teacher's
// lua.ReadLuaConfig does, and validates the result.
func ReadLua(path string) (*Set, error) {
	L := lua.NewState()
	defer L.Close()

	if err := L.DoFile(path); err != nil {
		return nil, err
	}

	lv := L.Get(-1)
	table, ok := lv.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("lua file did not return a table")
	}

	var set Set
	if err := gluamapper.Map(table, &set); err != nil {
		return nil, err
	}

	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server set: %w", err)
	}
	return &set, nil
}

// ReadYAML unmarshals a YAML server set from path.
func ReadYAML(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var set Set
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, err
	}
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server set: %w", err)
	}
	return &set, nil
}

// WriteLua emits set as a Lua table in the teacher's fmt.Fprintf
// indentation style, returning a table named "config" (matching the
// teacher's WriteConfig convention) with the server list under the
// "servers" field.
func WriteLua(w io.Writer, set *Set) error {
	fmt.Fprintln(w, "local config = {}")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "-- SERVERS -----------------------------------------")
	fmt.Fprintln(w, "config.servers = {")
	for _, srv := range set.Servers {
		fmt.Fprintln(w, "\t{")
		fmt.Fprintf(w, "\t\tname = %q,\n", srv.Name)
		fmt.Fprintf(w, "\t\taddress = %q,\n", srv.Address)
		fmt.Fprintf(w, "\t\tport = %d,\n", srv.Port)
		fmt.Fprintf(w, "\t\tprotocol = %q,\n", srv.Protocol)
		fmt.Fprintf(w, "\t\ttimeout_ms = %d,\n", srv.TimeoutMs)
		fmt.Fprintf(w, "\t\tscript = %q,\n", srv.Script)
		fmt.Fprintln(w, "\t},")
	}
	fmt.Fprintln(w, "}")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "return config")
	return nil
}

// WriteYAML emits set as YAML.
func WriteYAML(w io.Writer, set *Set) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(set)
}

// SaveToRecent writes set into the app config's scripts directory
// under a name derived from originalPath, incrementing a numeric
// suffix until a free filename is found, mirroring the teacher's
// lua.SaveToRecent naming scheme.
func SaveToRecent(set *Set, originalPath string) (string, error) {
	appConfig, err := config.LoadDefault()
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}

	dir := appConfig.ScriptsDir
	if dir == "" {
		dir = "scripts"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create scripts directory: %w", err)
	}

	baseName := filepath.Base(originalPath)
	ext := filepath.Ext(baseName)
	nameWithoutExt := strings.TrimSuffix(baseName, ext)
	outExt := ".yaml"
	if ext == ".lua" {
		outExt = ".lua"
	}

	counter := 1
	var newPath string
	for {
		newPath = filepath.Join(dir, fmt.Sprintf("%s_%d%s", nameWithoutExt, counter, outExt))
		if _, err := os.Stat(newPath); os.IsNotExist(err) {
			break
		}
		counter++
	}

	f, err := os.Create(newPath)
	if err != nil {
		return "", fmt.Errorf("failed to create server set file: %w", err)
	}
	defer f.Close()

	if outExt == ".lua" {
		if err := WriteLua(f, set); err != nil {
			return "", fmt.Errorf("failed to write lua: %w", err)
		}
	} else {
		if err := WriteYAML(f, set); err != nil {
			return "", fmt.Errorf("failed to write yaml: %w", err)
		}
	}

	return newPath, nil
}
