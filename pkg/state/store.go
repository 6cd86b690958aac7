// Package state persists the record of the last successfully applied profile.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/kargtune/kargtune/pkg/kargs"
)

// DefaultStatePath is the fixed per-installation record location. It lives
// under /var/lib, outside the paths a bootloader or deployment reset wipes.
const DefaultStatePath = "/var/lib/kargtune/state.yaml"

// ProfileState is the persisted record of the last successful application.
// It is written only at the end of a fully successful apply; a failed or
// partial run never updates it, so the next diff is computed against a
// known-good baseline even if that baseline is stale.
type ProfileState struct {
	// Profile is the applied profile name.
	Profile string `yaml:"profile"`

	// AppliedParams is the flat list of parameter strings the profile put
	// in force.
	AppliedParams []string `yaml:"applied_params"`

	// Timestamp is when the apply completed, RFC3339.
	Timestamp time.Time `yaml:"timestamp"`

	// ToolVersion is the release that wrote the record. Diagnostic only,
	// never used for behavior branching.
	ToolVersion string `yaml:"tool_version"`
}

// Params returns the applied parameters as a set.
func (s *ProfileState) Params() *kargs.ParameterSet {
	params := make([]kargs.Parameter, len(s.AppliedParams))
	for i, p := range s.AppliedParams {
		params[i] = kargs.Parameter(p)
	}
	return kargs.NewParameterSet(params...)
}

// Store reads and writes the profile state record at an injectable path,
// which lets every test own an isolated instance.
type Store struct {
	path        string
	toolVersion string
}

// NewStore creates a store at the given path. An empty path selects the
// fixed default location.
func NewStore(path, toolVersion string) *Store {
	if path == "" {
		path = DefaultStatePath
	}
	return &Store{path: path, toolVersion: toolVersion}
}

// Path returns the record location.
func (s *Store) Path() string {
	return s.path
}

// LoadLast returns the last persisted state, or nil when no usable record
// exists. A missing or unparsable record is not an error: the orchestrator
// proceeds with legacy cleanup as the only guaranteed removal.
func (s *Store) LoadLast() (*ProfileState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state record: %w", err)
	}

	var state ProfileState
	if err := yaml.Unmarshal(data, &state); err != nil {
		log.Warn().
			Err(err).
			Str("path", s.path).
			Msg("State record unparsable, treating as absent")
		return nil, nil
	}
	if state.Profile == "" {
		log.Warn().Str("path", s.path).Msg("State record has no profile, treating as absent")
		return nil, nil
	}
	return &state, nil
}

// Save atomically persists a new record via temp-then-rename. The parent
// directory is created on demand so the store survives a platform reset that
// wiped it.
func (s *Store) Save(profile string, applied *kargs.ParameterSet) error {
	state := ProfileState{
		Profile:       profile,
		AppliedParams: applied.Strings(),
		Timestamp:     time.Now().UTC(),
		ToolVersion:   s.toolVersion,
	}

	data, err := yaml.Marshal(&state)
	if err != nil {
		return fmt.Errorf("failed to marshal state record: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp state file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace state record: %w", err)
	}

	log.Debug().
		Str("profile", profile).
		Int("params", applied.Len()).
		Str("path", s.path).
		Msg("Persisted profile state")
	return nil
}

// Clear removes the record. Missing records are fine: the reset path calls
// this after removing the active profile's parameters.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove state record: %w", err)
	}
	return nil
}
