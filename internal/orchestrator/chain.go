package orchestrator

import (
	"context"

	"github.com/google/uuid"
)

type chainKey struct{}

// runChain tracks the synchronizations already executing on this call path,
// so follow-ups and rule-triggered runs cannot recurse.
type runChain struct {
	depth   int
	visited map[uuid.UUID]bool
}

func chainFromContext(ctx context.Context) runChain {
	if chain, ok := ctx.Value(chainKey{}).(runChain); ok {
		return chain
	}
	return runChain{visited: map[uuid.UUID]bool{}}
}

// contextWithChain returns a context whose chain includes the given
// synchronization. The visited set is copied; sibling follow-ups must not
// see each other.
func contextWithChain(ctx context.Context, syncID uuid.UUID) context.Context {
	chain := chainFromContext(ctx)
	visited := make(map[uuid.UUID]bool, len(chain.visited)+1)
	for id := range chain.visited {
		visited[id] = true
	}
	visited[syncID] = true
	return context.WithValue(ctx, chainKey{}, runChain{
		depth:   chain.depth + 1,
		visited: visited,
	})
}
