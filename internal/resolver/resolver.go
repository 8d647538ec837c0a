// Package resolver computes a safe activation order over the registry.
// Resolution is depth-first: a module's dependencies are activated strictly
// before the module itself. Cycle detection is branch-scoped — each
// root-to-leaf chain carries its own copy of the path, so two independent
// branches sharing an ancestor never false-positive as a cycle.
package resolver

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/kyriji/modloader/internal/registry"
)

// Engine activates a single module whose dependencies are already activated.
// deps holds the records of the module's direct dependencies only; transitive
// dependency code was already made visible to those modules during their own
// activation. The returned handle is attached to the record.
type Engine interface {
	Activate(mod *registry.Module, deps []*registry.Module) (any, error)
}

// ErrUnknownModule reports an Activate call naming a module that was never
// registered.
var ErrUnknownModule = errors.New("unknown module")

// ErrPreviouslyFailed reports a resolution path reaching a module whose
// activation already failed. Failures are terminal; there is no retry.
var ErrPreviouslyFailed = errors.New("activation previously failed")

// MissingDependencyError reports a declared dependency absent from the
// registry. The declaring module does not activate.
type MissingDependencyError struct {
	Module     string
	Dependency string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("module %s: dependency %s not found in registry", e.Module, e.Dependency)
}

// CircularDependencyError reports a dependency chain that revisits a module
// within a single resolution branch. Chain is the root-to-repeat path; its
// last element repeats an earlier one.
type CircularDependencyError struct {
	Chain []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency: %s", strings.Join(e.Chain, " -> "))
}

// DependencyFailedError reports a dependency whose own activation already
// failed. The declaring module fails too, without re-running the dependency.
type DependencyFailedError struct {
	Module     string
	Dependency string
}

func (e *DependencyFailedError) Error() string {
	return fmt.Sprintf("module %s: dependency %s previously failed to activate", e.Module, e.Dependency)
}

func (e *DependencyFailedError) Unwrap() error { return ErrPreviouslyFailed }

// Resolver walks the registry, activating dependencies before dependents.
type Resolver struct {
	reg    *registry.Registry
	engine Engine
	logger *log.Logger
}

// New creates a resolver over reg, delegating per-module activation to engine.
func New(reg *registry.Registry, engine Engine, logger *log.Logger) *Resolver {
	return &Resolver{reg: reg, engine: engine, logger: logger}
}

// ActivateAll attempts to activate every registered module. Failures are
// module-scoped: each is logged and collected, and resolution continues with
// the next module. Iteration order is unspecified by contract; the resolver
// guarantees only that dependencies complete before dependents.
func (r *Resolver) ActivateAll() []error {
	var errs []error
	for _, name := range r.reg.Names() {
		if err := r.activate(name, nil); err != nil {
			r.logger.Error("module activation failed", "module", name, "err", err)
			errs = append(errs, fmt.Errorf("module %s: %w", name, err))
		}
	}
	return errs
}

// Activate resolves and activates one module and everything it depends on.
// Activating an already-activated module is a no-op.
func (r *Resolver) Activate(name string) error {
	if _, ok := r.reg.Get(name); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModule, name)
	}
	return r.activate(name, nil)
}

// activate is the recursive resolution step. branch is the chain of module
// names currently activating on this root-to-leaf path; each recursion gets
// its own extended copy, so cycle detection never leaks across sibling
// branches.
func (r *Resolver) activate(name string, branch []string) error {
	mod, ok := r.reg.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModule, name)
	}

	switch mod.State {
	case registry.StateActivated:
		return nil
	case registry.StateFailed:
		return fmt.Errorf("module %s: %w", name, ErrPreviouslyFailed)
	}

	if slices.Contains(branch, name) {
		return &CircularDependencyError{Chain: append(slices.Clone(branch), name)}
	}

	mod.State = registry.StateActivating
	childBranch := append(slices.Clone(branch), name)

	deps := make([]*registry.Module, 0, len(mod.Dependencies))
	for _, depName := range mod.Dependencies {
		dep, ok := r.reg.Get(depName)
		if !ok {
			mod.State = registry.StateFailed
			return &MissingDependencyError{Module: name, Dependency: depName}
		}
		if dep.State == registry.StateFailed {
			mod.State = registry.StateFailed
			return &DependencyFailedError{Module: name, Dependency: depName}
		}
		if err := r.activate(depName, childBranch); err != nil {
			mod.State = registry.StateFailed
			return err
		}
		deps = append(deps, dep)
	}

	r.logger.Info("activating module", "module", name, "artifact", mod.ArtifactPath)
	scope, err := r.engine.Activate(mod, deps)
	if err != nil {
		mod.State = registry.StateFailed
		return err
	}
	mod.Scope = scope
	mod.State = registry.StateActivated
	r.logger.Info("module activated", "module", name)
	return nil
}
