package service

import (
	"github.com/clubconnect/clubconnect/internal/core/domain"
)

// Phase is the lifecycle stage of a synchronizer.
type Phase int

const (
	// PhaseBooting lasts until the first reconciliation completes. No
	// navigation is emitted while booting.
	PhaseBooting Phase = iota
	PhaseReady
)

func (p Phase) String() string {
	if p == PhaseReady {
		return "ready"
	}
	return "booting"
}

// State is the reconciled view of one device.
type State struct {
	Phase   Phase
	Session *domain.Session
	User    *domain.CurrentUser
	// Path is the path the app is on, including targets we navigated to.
	Path string
	// Target is the last navigation target emitted, empty if none yet.
	Target string
	// Err is the cause of the last failed resolution, kept for diagnostics.
	Err error
}

// Outcome is the result of resolving one session event against the profile store.
type Outcome struct {
	Session *domain.Session
	Profile *domain.Profile
	Err     error
}

// Effects are the side effects a reduction asks the caller to perform.
type Effects struct {
	Navigate string
}

// Reduce folds a resolved session event into the prior state.
func Reduce(prior State, out Outcome) (State, Effects) {
	next := prior
	next.Phase = PhaseReady
	next.Err = nil

	switch {
	case out.Session == nil:
		next.Session = nil
		next.User = nil
	case out.Err != nil || out.Profile == nil:
		next.Session = nil
		next.User = nil
		next.Err = out.Err
	default:
		s := *out.Session
		next.Session = &s
		next.User = domain.MergeCurrentUser(s, *out.Profile)
	}

	return navigate(next)
}

// Decide records a path change reported by the app and applies the
// navigation rule. It never navigates while booting.
func Decide(prior State, path string) (State, Effects) {
	next := prior
	next.Path = domain.NormalizePath(path)
	if next.Phase == PhaseBooting {
		return next, Effects{}
	}
	return navigate(next)
}

func navigate(s State) (State, Effects) {
	target, ok := domain.NavigationTarget(s.User, s.Path)
	if !ok || target == domain.NormalizePath(s.Path) {
		return s, Effects{}
	}
	s.Path = target
	s.Target = target
	return s, Effects{Navigate: target}
}
