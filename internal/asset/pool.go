package asset

import (
	"context"
	"sync"

	"github.com/frahmantamala/tracker-workorders/internal"
)

// DefaultWorkers bounds concurrent uploads of one submission.
const DefaultWorkers = 3

// Storer is satisfied by Uploader.
type Storer interface {
	Store(ctx context.Context, orderID string, kind Kind, slot string, content []byte, contentType string) (string, error)
}

// Job is one attachment waiting to be stored.
type Job struct {
	Slot        string
	Content     []byte
	ContentType string
}

type jobResult struct {
	slot string
	ref  string
	err  error
}

// StoreAll stores jobs on a pool of workers and returns the references by slot.
// The first failure cancels the jobs not yet dispatched.
func StoreAll(ctx context.Context, s Storer, orderID string, kind Kind, jobs []Job, workers int) (map[string]string, error) {
	refs := make(map[string]string, len(jobs))
	if len(jobs) == 0 {
		return refs, nil
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	poolCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := make(chan Job)
	results := make(chan jobResult, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				ref, err := s.Store(poolCtx, orderID, kind, job.Slot, job.Content, job.ContentType)
				if err != nil {
					cancel()
				}
				results <- jobResult{slot: job.Slot, ref: ref, err: err}
			}
		}()
	}

dispatch:
	for _, job := range jobs {
		select {
		case queue <- job:
		case <-poolCtx.Done():
			break dispatch
		}
	}
	close(queue)
	wg.Wait()
	close(results)

	var firstErr error
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		refs[r.slot] = r.ref
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if len(refs) < len(jobs) {
		return nil, internal.NewStorageError("upload cancelled", ctx.Err())
	}
	return refs, nil
}
