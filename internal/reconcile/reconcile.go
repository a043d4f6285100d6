// Package reconcile decides whether an existing build directory can be
// reused for a new build request.
//
// CMake can reconfigure a build directory in place when only cache
// variables change (build type, runtime version, ...). Changing the
// generator or its toolset leaves an inconsistent cache, so the directory
// has to be removed first.
package reconcile

import (
	"github.com/goplus/ncmake/internal/config"
	"github.com/goplus/ncmake/internal/state"
)

// ShouldPurge reports whether the build directory must be removed before
// generating again.
func ShouldPurge(req *config.Request, persisted *state.State) bool {
	if persisted == nil || persisted.BuildType == "" {
		return true
	}
	if req.Generator != "" && req.Generator != persisted.Generator {
		return true
	}
	return req.Toolset != "" && req.Toolset != persisted.Toolset
}

// ShouldRegenerate reports whether cmake has to run its configure step.
// It is true whenever ShouldPurge is.
func ShouldRegenerate(req *config.Request, persisted *state.State) bool {
	if ShouldPurge(req, persisted) {
		return true
	}
	switch {
	case req.BuildType != persisted.BuildType:
		return true
	case req.Variant != "" && req.Variant != persisted.Variant:
		return true
	case req.Version != "" && req.Version != persisted.Version:
		return true
	case req.Download != nil && *req.Download != bool(persisted.Download):
		return true
	case req.Standard != "" && req.Standard != persisted.Standard:
		return true
	}
	return false
}

// Decision is the outcome of comparing a request with the persisted state.
type Decision struct {
	Purge      bool
	Regenerate bool
}

// Decide evaluates both checks.
func Decide(req *config.Request, persisted *state.State) Decision {
	return Decision{
		Purge:      ShouldPurge(req, persisted),
		Regenerate: ShouldRegenerate(req, persisted),
	}
}
