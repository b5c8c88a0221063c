package movies

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DeleteConcurrency limits concurrent delete requests
const DeleteConcurrency = 5

// BatchDeleteResult contains the results of a batch delete operation
type BatchDeleteResult struct {
	Requested  int
	Successful []int64
	Failed     []DeleteError
}

// DeleteError contains information about a failed delete operation
type DeleteError struct {
	MovieID int64
	Err     error
}

// Error implements the error interface
func (e DeleteError) Error() string {
	return fmt.Sprintf("failed to delete movie %d: %v", e.MovieID, e.Err)
}

// Unwrap returns the underlying error
func (e DeleteError) Unwrap() error {
	return e.Err
}

// BatchDelete deletes movies concurrently. Individual failures do not stop
// the batch; results are collected in completion order.
func (s *Service) BatchDelete(ctx context.Context, ids []int64) BatchDeleteResult {
	result := BatchDeleteResult{
		Requested: len(ids),
	}

	if len(ids) == 0 {
		return result
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(DeleteConcurrency)

	successChan := make(chan int64, len(ids))
	errorChan := make(chan DeleteError, len(ids))

	for _, id := range ids {
		g.Go(func() error {
			if err := s.DeleteMovie(ctx, id); err != nil {
				errorChan <- DeleteError{MovieID: id, Err: err}
			} else {
				successChan <- id
			}
			return nil
		})
	}

	_ = g.Wait()
	close(successChan)
	close(errorChan)

	for id := range successChan {
		result.Successful = append(result.Successful, id)
	}
	for err := range errorChan {
		result.Failed = append(result.Failed, err)
	}

	s.logger.Info().
		Int("requested", result.Requested).
		Int("deleted", len(result.Successful)).
		Int("failed", len(result.Failed)).
		Msg("Batch delete finished")

	return result
}
