// Package platform probes the host once at startup to decide which
// kernel-parameter backend applies.
package platform

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// BackendKind selects the kernel-parameter backend variant.
type BackendKind string

const (
	// BackendTransactional is the atomic image-layering tool on immutable systems.
	BackendTransactional BackendKind = "transactional"

	// BackendBootloaderConfig is the bootloader defaults file on mutable systems.
	BackendBootloaderConfig BackendKind = "bootloader-config"
)

// Descriptor is the immutable result of the one-shot platform probe.
type Descriptor struct {
	// Immutable is true on image-based systems where the root filesystem is
	// managed transactionally.
	Immutable bool `json:"immutable"`

	// Backend is the kernel-parameter backend to construct.
	Backend BackendKind `json:"backend"`

	// Distro is the distribution ID from os-release, or "unknown".
	Distro string `json:"distro"`
}

// Probes are the environment inputs the detector consumes. Injectable so
// tests can simulate hosts without touching the real system.
type Probes struct {
	// LookPath reports whether a binary is present on PATH.
	LookPath func(name string) bool

	// StatusQuery runs the transactional tool's status command and returns
	// its error (nil exit means a live, responding daemon).
	StatusQuery func(ctx context.Context) error

	// ReadOSRelease returns the contents of the distro-id file.
	ReadOSRelease func() ([]byte, error)
}

// DefaultProbes returns probes backed by the live system.
func DefaultProbes() Probes {
	return Probes{
		LookPath: func(name string) bool {
			_, err := exec.LookPath(name)
			return err == nil
		},
		StatusQuery: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return exec.CommandContext(ctx, "rpm-ostree", "status", "--json").Run()
		},
		ReadOSRelease: func() ([]byte, error) {
			return os.ReadFile("/etc/os-release")
		},
	}
}

// Detect probes the host and returns a descriptor. It never fails: any
// ambiguity resolves to the bootloader-config default, which is safe to
// attempt on any system, whereas assuming the transactional path on a
// non-transactional host fails outright. Read-only, no side effects.
func Detect(ctx context.Context, probes Probes) Descriptor {
	desc := Descriptor{
		Immutable: false,
		Backend:   BackendBootloaderConfig,
		Distro:    "unknown",
	}

	if probes.ReadOSRelease != nil {
		if data, err := probes.ReadOSRelease(); err == nil {
			if id := osReleaseID(string(data)); id != "" {
				desc.Distro = id
			}
		}
	}

	if probes.LookPath == nil || !probes.LookPath("rpm-ostree") {
		log.Debug().Str("distro", desc.Distro).Msg("No transactional tool on PATH, using bootloader config")
		return desc
	}

	// The binary alone is not proof: it ships on some mutable systems too.
	// Only a responding daemon confirms a booted transactional deployment.
	if probes.StatusQuery == nil {
		return desc
	}
	if err := probes.StatusQuery(ctx); err != nil {
		log.Debug().
			Err(err).
			Str("distro", desc.Distro).
			Msg("Transactional status query failed, using bootloader config")
		return desc
	}

	desc.Immutable = true
	desc.Backend = BackendTransactional

	log.Info().
		Str("distro", desc.Distro).
		Str("backend", string(desc.Backend)).
		Msg("Detected transactional platform")
	return desc
}

// osReleaseID extracts the ID= field from os-release contents.
func osReleaseID(contents string) string {
	for _, line := range strings.Split(contents, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "ID=") {
			return strings.Trim(strings.TrimPrefix(line, "ID="), `"`)
		}
	}
	return ""
}
