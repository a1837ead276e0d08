package router

import (
	"github.com/ethereum/go-ethereum/common"
)

// MaxPathsToEvaluate limits the number of paths to evaluate for performance
const MaxPathsToEvaluate = 10

// FindPaths discovers token paths between two tokens up to maxHops, walking
// the current snapshot breadth first so shorter paths come out first. Each
// path includes both endpoints. Returns nil when the tokens are not
// connected.
func (g *Graph) FindPaths(inputToken, outputToken common.Address, maxHops int) [][]common.Address {
	if maxHops < 1 || inputToken == outputToken {
		return nil
	}
	snap := g.getSnapshot()

	if _, ok := snap.adj[inputToken]; !ok {
		return nil
	}

	var results [][]common.Address

	// Direct pair first, it is always the shortest
	if neighbors, ok := snap.adj[inputToken]; ok {
		if _, ok := neighbors[outputToken]; ok {
			results = append(results, []common.Address{inputToken, outputToken})
		}
	}

	type queueEntry struct {
		token common.Address
		path  []common.Address
	}

	base := g.baseTokenSet()
	queue := []queueEntry{{token: inputToken, path: []common.Address{inputToken}}}

	for len(queue) > 0 && len(results) < MaxPathsToEvaluate {
		entry := queue[0]
		queue = queue[1:]

		if len(entry.path)-1 >= maxHops {
			continue
		}

		neighbors, ok := snap.adj[entry.token]
		if !ok {
			continue
		}

		for next := range neighbors {
			if containsToken(entry.path, next) {
				continue
			}
			// intermediates are restricted to base tokens when a set exists
			if next != outputToken && len(base) > 0 {
				if _, ok := base[next]; !ok {
					continue
				}
			}
			path := make([]common.Address, len(entry.path), len(entry.path)+1)
			copy(path, entry.path)
			path = append(path, next)

			if next == outputToken {
				// direct pair was already recorded above
				if len(path) > 2 {
					results = append(results, path)
					if len(results) >= MaxPathsToEvaluate {
						return results
					}
				}
				continue
			}
			queue = append(queue, queueEntry{token: next, path: path})
		}
	}

	return results
}

func containsToken(path []common.Address, token common.Address) bool {
	for _, t := range path {
		if t == token {
			return true
		}
	}
	return false
}
