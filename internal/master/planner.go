// internal/master/planner.go
package master

import (
	"fmt"

	"task-dispatch/internal/domain"
)

// Distribute splits total across workers as evenly as possible. The first
// total%N workers, in input order, receive one extra unit.
func Distribute(total int, workers []domain.Worker) ([]domain.Assignment, error) {
	n := len(workers)
	if n == 0 {
		return nil, fmt.Errorf("%w: cannot distribute over zero workers", domain.ErrInvalidArgument)
	}
	if total < 0 {
		return nil, fmt.Errorf("%w: total must be non-negative, got %d", domain.ErrInvalidArgument, total)
	}

	base := total / n
	remainder := total % n
	out := make([]domain.Assignment, n)
	for i, w := range workers {
		count := base
		if i < remainder {
			count++
		}
		out[i] = domain.Assignment{Worker: w, Count: count}
	}
	return out, nil
}
