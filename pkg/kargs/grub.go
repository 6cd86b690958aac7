package kargs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultGrubConfigPath is the well-known bootloader defaults file.
const DefaultGrubConfigPath = "/etc/default/grub"

// grubCmdlineKey is the combined command-line variable this backend owns.
const grubCmdlineKey = "GRUB_CMDLINE_LINUX_DEFAULT"

// GrubBackend manages kernel parameters by rewriting the combined
// command-line variable inside the bootloader defaults file. Every other line
// of the file is preserved verbatim, and writes go through a temp file plus
// rename so a crash mid-write cannot corrupt the config.
type GrubBackend struct {
	configPath string
}

// NewGrubBackend creates the bootloader-config backend for the given file.
// An empty path selects the well-known default location.
func NewGrubBackend(configPath string) *GrubBackend {
	if configPath == "" {
		configPath = DefaultGrubConfigPath
	}
	return &GrubBackend{configPath: configPath}
}

// CurrentParams reads the combined command line out of the config file.
// A missing file is reported as unavailable, not silently empty.
func (b *GrubBackend) CurrentParams(ctx context.Context) (*ParameterSet, error) {
	_, params, err := b.read()
	if err != nil {
		return nil, err
	}
	return params, nil
}

// AppendParams adds any missing parameters to the combined command line and
// rewrites the file. Already-present parameters are left where they are, so a
// second call with the same input changes nothing.
func (b *GrubBackend) AppendParams(ctx context.Context, params *ParameterSet) error {
	if params.Len() == 0 {
		return nil
	}

	lines, current, err := b.read()
	if err != nil {
		return err
	}

	changed := false
	for _, p := range params.List() {
		if current.Add(p) {
			changed = true
		}
	}
	if !changed {
		return nil
	}

	if err := b.write(lines, current); err != nil {
		return err
	}

	log.Info().
		Int("count", params.Len()).
		Str("config", b.configPath).
		Msg("Appended kernel arguments to bootloader config")
	return nil
}

// RemoveParams deletes any present parameters from the combined command line
// and rewrites the file. Absent parameters are no-op successes.
func (b *GrubBackend) RemoveParams(ctx context.Context, params *ParameterSet) error {
	if params.Len() == 0 {
		return nil
	}

	lines, current, err := b.read()
	if err != nil {
		return err
	}

	changed := false
	for _, p := range params.List() {
		if current.Remove(p) {
			changed = true
		}
	}
	if !changed {
		return nil
	}

	if err := b.write(lines, current); err != nil {
		return err
	}

	log.Info().
		Int("count", params.Len()).
		Str("config", b.configPath).
		Msg("Removed kernel arguments from bootloader config")
	return nil
}

// RequiresReboot is always true: the rewritten command line applies at the
// next boot regardless of whether parameters were appended or replaced.
func (b *GrubBackend) RequiresReboot() bool {
	return true
}

// read returns the raw file lines and the parsed, deduplicated command line.
func (b *GrubBackend) read() ([]string, *ParameterSet, error) {
	data, err := os.ReadFile(b.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, NewUnavailableError(
				fmt.Sprintf("bootloader config %s not found", b.configPath), err).
				WithOperation("query")
		}
		return nil, nil, NewInternalError("failed to read bootloader config", err).
			WithOperation("query")
	}

	lines := strings.Split(string(data), "\n")
	for _, line := range lines {
		if key, value, ok := parseCmdlineAssignment(line); ok && key == grubCmdlineKey {
			return lines, ParseCmdline(value), nil
		}
	}

	// Variable absent: treated as an empty command line, the rewrite appends it.
	return lines, NewParameterSet(), nil
}

// write rewrites the config with the new combined command line, preserving
// every unrelated line byte for byte. The temp file lives in the same
// directory so the final rename stays on one filesystem.
func (b *GrubBackend) write(lines []string, params *ParameterSet) error {
	assignment := fmt.Sprintf(`%s="%s"`, grubCmdlineKey, params.Cmdline())

	replaced := false
	out := make([]string, 0, len(lines)+1)
	for _, line := range lines {
		if key, _, ok := parseCmdlineAssignment(line); ok && key == grubCmdlineKey && !replaced {
			out = append(out, assignment)
			replaced = true
			continue
		}
		out = append(out, line)
	}
	if !replaced {
		// Keep the trailing newline (an empty final element) after the new line.
		if n := len(out); n > 0 && out[n-1] == "" {
			out = append(out[:n-1], assignment, "")
		} else {
			out = append(out, assignment)
		}
	}

	dir := filepath.Dir(b.configPath)
	tmp, err := os.CreateTemp(dir, filepath.Base(b.configPath)+".tmp-*")
	if err != nil {
		return NewInternalError("failed to create temp config", err).WithOperation("write")
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(strings.Join(out, "\n")); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return NewInternalError("failed to write temp config", err).WithOperation("write")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return NewInternalError("failed to sync temp config", err).WithOperation("write")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return NewInternalError("failed to close temp config", err).WithOperation("write")
	}

	if info, err := os.Stat(b.configPath); err == nil {
		_ = os.Chmod(tmpPath, info.Mode().Perm())
	}

	if err := os.Rename(tmpPath, b.configPath); err != nil {
		os.Remove(tmpPath)
		return NewInternalError("failed to replace bootloader config", err).WithOperation("write")
	}
	return nil
}

// parseCmdlineAssignment recognizes a KEY="value" line, tolerating leading
// whitespace and unquoted values. Comment lines are not assignments.
func parseCmdlineAssignment(line string) (key, value string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", "", false
	}
	eq := strings.IndexByte(trimmed, '=')
	if eq <= 0 {
		return "", "", false
	}
	key = strings.TrimSpace(trimmed[:eq])
	value = strings.TrimSpace(trimmed[eq+1:])
	value = strings.Trim(value, `"'`)
	return key, value, true
}
