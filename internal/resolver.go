package internal

import (
	"context"

	"github.com/iksnae/commit-mirror/internal/vcs"
)

// Resolver determines which source commits have not been synchronized yet
type Resolver struct {
	backend   vcs.Backend
	localRef  string
	remoteRef string
}

// NewResolver creates a Resolver comparing localRef against remoteRef
func NewResolver(backend vcs.Backend, localRef, remoteRef string) *Resolver {
	return &Resolver{
		backend:   backend,
		localRef:  localRef,
		remoteRef: remoteRef,
	}
}

// Resolve returns the ids reachable from the local branch but not from its
// remote-tracking counterpart, newest first.
func (r *Resolver) Resolve(ctx context.Context, repo string) ([]string, error) {
	remote, err := r.backend.ResolveReference(ctx, repo, r.remoteRef)
	if err != nil {
		return nil, &ResolutionError{Ref: r.remoteRef, Err: err}
	}

	local, err := r.backend.ResolveReference(ctx, repo, r.localRef)
	if err != nil {
		return nil, &ResolutionError{Ref: r.localRef, Err: err}
	}

	if remote == local {
		return nil, nil
	}

	ids, err := r.backend.ListIDsBetween(ctx, repo, remote, local)
	if err != nil {
		return nil, &ResolutionError{Ref: r.remoteRef + ".." + r.localRef, Err: err}
	}

	return ids, nil
}

// orderIDs applies an OrderPolicy to resolver output
func orderIDs(ids []string, order OrderPolicy) []string {
	ordered := make([]string, len(ids))
	copy(ordered, ids)
	if order == OrderChronological {
		for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		}
	}
	return ordered
}
