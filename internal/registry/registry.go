// Package registry holds the in-memory table of discovered modules. The
// registry is populated once during the scan phase and only read afterwards;
// records mutate only to advance their activation state and to attach the
// scope handle.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/kyriji/modloader/internal/artifact"
)

// State is a module's activation state. Transitions are monotonic:
// Registered → Activating → Activated, or Registered → Activating → Failed.
type State int

const (
	StateRegistered State = iota
	StateActivating
	StateActivated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateActivating:
		return "activating"
	case StateActivated:
		return "activated"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Module is one registered module record.
type Module struct {
	Name         string
	ArtifactPath string
	Dependencies []string
	EntryPoint   string
	State        State

	// Artifact is the parsed payload, retained from the scan so activation
	// does not reread the file.
	Artifact *artifact.Artifact

	// Scope is the isolated execution context handle, attached on successful
	// activation and retained for the module's lifetime. There is no
	// teardown; the scope dies with the process.
	Scope any
}

// ErrMissingName marks an artifact whose manifest declares no module name.
// Such an artifact can never be a dependency target and is never registered.
var ErrMissingName = errors.New("manifest declares no module name")

// Registry maps module names to records.
type Registry struct {
	modules map[string]*Module
	logger  *log.Logger
}

// New creates an empty registry.
func New(logger *log.Logger) *Registry {
	return &Registry{
		modules: make(map[string]*Module),
		logger:  logger,
	}
}

// Put inserts a prepared record. A name collision overwrites the previous
// registration (last writer wins) with a warning naming both artifacts.
func (r *Registry) Put(m *Module) {
	if prev, ok := r.modules[m.Name]; ok {
		r.logger.Warn("duplicate module name, last registration wins",
			"module", m.Name, "kept", m.ArtifactPath, "replaced", prev.ArtifactPath)
	}
	r.modules[m.Name] = m
}

// Register reads the manifest at artifactPath and inserts a record in state
// Registered. An unnamed manifest returns an error wrapping ErrMissingName;
// an unreadable artifact returns the *artifact.ReadError. Either way the
// caller skips the artifact and continues.
func (r *Registry) Register(artifactPath string) error {
	a, err := artifact.Open(artifactPath)
	if err != nil {
		return err
	}
	if a.Manifest.Name == "" {
		return fmt.Errorf("artifact %s: %w", artifactPath, ErrMissingName)
	}

	r.Put(&Module{
		Name:         a.Manifest.Name,
		ArtifactPath: artifactPath,
		Dependencies: a.Manifest.DependencyList(),
		EntryPoint:   a.Manifest.Entry,
		State:        StateRegistered,
		Artifact:     a,
	})
	r.logger.Debug("registered module",
		"module", a.Manifest.Name, "artifact", artifactPath, "dependencies", a.Manifest.DependencyList())
	return nil
}

// Scan registers every candidate artifact in dir. Per-artifact failures are
// logged and skipped; they never abort the scan. Finding no artifacts at all
// is a warning, not an error.
func (r *Registry) Scan(dir, ext string) error {
	paths, err := artifact.Scan(dir, ext)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		r.logger.Warn("no module artifacts found", "dir", dir, "extension", ext)
		return nil
	}

	for _, p := range paths {
		if err := r.Register(p); err != nil {
			r.logger.Error("skipping artifact", "artifact", p, "err", err)
		}
	}
	r.logger.Info("scan complete", "dir", dir, "modules", len(r.modules))
	return nil
}

// Get looks up a record by module name.
func (r *Registry) Get(name string) (*Module, bool) {
	m, ok := r.modules[name]
	return m, ok
}

// Names returns all registered module names, sorted. The order carries no
// activation meaning; it only keeps logs stable.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports the number of registered modules.
func (r *Registry) Len() int {
	return len(r.modules)
}
