// Package samples is the registry of programs the CLI and the scenario
// harness can run by name.
package samples

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fniksic/PSharp/internal/engine"
	"github.com/fniksic/PSharp/internal/ir"
	"github.com/fniksic/PSharp/internal/samples/election"
	"github.com/fniksic/PSharp/internal/samples/ring"
)

// Params are the key=value program parameters given on the command line
// or in a scenario file.
type Params map[string]string

// ParseParams parses "key=value" pairs.
func ParseParams(pairs []string) (Params, error) {
	p := Params{}
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid param %q (want key=value)", pair)
		}
		p[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return p, nil
}

// Int returns the integer value of key, or def if unset.
func (p Params) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, ir.Errorf(ir.ErrCodeConfig, "param %s: %q is not an integer", key, v)
	}
	return n, nil
}

// Bool returns the boolean value of key, or def if unset.
func (p Params) Bool(key string, def bool) (bool, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, ir.Errorf(ir.ErrCodeConfig, "param %s: %q is not a boolean", key, v)
	}
	return b, nil
}

// Sample describes a runnable program.
type Sample struct {
	Name        string
	Description string
	Params      []string
	New         func(Params) (engine.Program, error)
}

// Registry maps program names to samples.
type Registry struct {
	samples map[string]Sample
}

func NewRegistry() *Registry {
	return &Registry{samples: make(map[string]Sample)}
}

// Register adds s. Names must be unique.
func (r *Registry) Register(s Sample) error {
	if _, dup := r.samples[s.Name]; dup {
		return fmt.Errorf("program %q already registered", s.Name)
	}
	r.samples[s.Name] = s
	return nil
}

// Lookup builds the named program with params.
func (r *Registry) Lookup(name string, params Params) (engine.Program, error) {
	s, ok := r.samples[name]
	if !ok {
		return nil, ir.Errorf(ir.ErrCodeConfig, "unknown program %q (known: %s)", name, strings.Join(r.Names(), ", "))
	}
	known := make(map[string]bool, len(s.Params))
	for _, k := range s.Params {
		known[k] = true
	}
	for k := range params {
		if !known[k] {
			return nil, ir.Errorf(ir.ErrCodeConfig, "program %s has no param %q", name, k)
		}
	}
	return s.New(params)
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.samples))
	for name := range r.samples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every sample sorted by name.
func (r *Registry) All() []Sample {
	out := make([]Sample, 0, len(r.samples))
	for _, name := range r.Names() {
		out = append(out, r.samples[name])
	}
	return out
}

// Default returns a registry holding the built-in samples.
func Default() *Registry {
	r := NewRegistry()
	for _, s := range []Sample{
		{
			Name:        election.Name,
			Description: "quorum leader election with single-leader and eventual-leader monitors",
			Params:      []string{"size", "candidates", "faulty"},
			New:         newElection,
		},
		{
			Name:        ring.Name,
			Description: "leader election on a unidirectional ring",
			Params:      []string{"ids", "faulty"},
			New:         newRing,
		},
	} {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
	return r
}

func newElection(p Params) (engine.Program, error) {
	cfg := election.DefaultConfig()
	var err error
	if cfg.Size, err = p.Int("size", cfg.Size); err != nil {
		return nil, err
	}
	if cfg.Candidates, err = p.Int("candidates", cfg.Candidates); err != nil {
		return nil, err
	}
	if cfg.Faulty, err = p.Bool("faulty", cfg.Faulty); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return election.Program(cfg), nil
}

func newRing(p Params) (engine.Program, error) {
	cfg := ring.DefaultConfig()
	if v, ok := p["ids"]; ok {
		ids, err := ring.ParseIDs(v)
		if err != nil {
			return nil, err
		}
		cfg.IDs = ids
	}
	var err error
	if cfg.Faulty, err = p.Bool("faulty", cfg.Faulty); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return ring.Program(cfg), nil
}
