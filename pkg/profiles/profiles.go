// Package profiles defines the built-in performance profiles and their
// kernel parameter sets.
package profiles

import (
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/kargtune/kargtune/pkg/kargs"
)

// Profile is a named, predefined set of kernel parameters representing one
// performance mode.
type Profile struct {
	// Name identifies the profile in CLI invocations and state records.
	Name string `yaml:"name" validate:"required,excludesall= "`

	// Description is a one-line summary for listings.
	Description string `yaml:"description" validate:"required"`

	// Params are the exact kernel command-line tokens the profile applies.
	Params []string `yaml:"params" validate:"required,min=1,dive,required,excludesall= "`
}

// ParamSet returns the profile's parameters as a set.
func (p *Profile) ParamSet() *kargs.ParameterSet {
	params := make([]kargs.Parameter, len(p.Params))
	for i, s := range p.Params {
		params[i] = kargs.Parameter(s)
	}
	return kargs.NewParameterSet(params...)
}

var validate = validator.New()

// Validate checks the profile definition against its schema.
func (p *Profile) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid profile %q: %w", p.Name, err)
	}
	return nil
}

// builtins are the shipped profiles. User configuration may override or
// extend these through the catalog.
var builtins = map[string]Profile{
	"competitive": {
		Name:        "competitive",
		Description: "Lowest input latency: isolated CPUs, mitigations off, tickless cores",
		Params: []string{
			"mitigations=off",
			"isolcpus=4-9",
			"nohz_full=4-9",
			"rcu_nocbs=4-9",
			"nmi_watchdog=0",
			"transparent_hugepage=never",
		},
	},
	"balanced": {
		Name:        "balanced",
		Description: "Performance with stock scheduling, mitigations off",
		Params: []string{
			"mitigations=off",
			"nmi_watchdog=0",
			"transparent_hugepage=madvise",
		},
	},
	"streaming": {
		Name:        "streaming",
		Description: "Encoding headroom: hugepages for capture buffers",
		Params: []string{
			"mitigations=off",
			"transparent_hugepage=always",
			"hugepagesz=2M",
			"hugepages=1024",
		},
	},
	"powersave": {
		Name:        "powersave",
		Description: "Stock security posture and aggressive frequency scaling",
		Params: []string{
			"mitigations=auto",
			"workqueue.power_efficient=1",
		},
	},
}

// Catalog resolves profile names to definitions.
type Catalog struct {
	profiles map[string]Profile
}

// NewCatalog builds a catalog of the built-in profiles plus any overrides.
// An override with an existing name replaces the builtin wholesale. Every
// definition is validated; the first invalid one aborts construction.
func NewCatalog(overrides []Profile) (*Catalog, error) {
	c := &Catalog{profiles: make(map[string]Profile, len(builtins)+len(overrides))}
	for name, p := range builtins {
		c.profiles[name] = p
	}
	for _, p := range overrides {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		c.profiles[p.Name] = p
	}
	return c, nil
}

// Get returns the named profile.
func (c *Catalog) Get(name string) (Profile, error) {
	p, ok := c.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q (have: %v)", name, c.Names())
	}
	return p, nil
}

// Names returns all profile names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.profiles))
	for name := range c.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns all profiles sorted by name.
func (c *Catalog) List() []Profile {
	out := make([]Profile, 0, len(c.profiles))
	for _, name := range c.Names() {
		out = append(out, c.profiles[name])
	}
	return out
}
