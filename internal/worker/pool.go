// Package worker provides a parallel texture set baking pool.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/MeKo-Tech/skintex/internal/skintone"
)

// Baker bakes one tone and reports where the result went (an export
// path or archive identifier). The generate command implements it on
// top of pipeline.Builder plus an export sink.
type Baker interface {
	Bake(ctx context.Context, tone skintone.Descriptor) (string, error)
}

// Task is a single tone bake request.
type Task struct {
	Tone skintone.Descriptor
}

// Result is the outcome of one bake.
type Result struct {
	Task    Task
	Path    string
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the pool.
type Config struct {
	Workers    int
	Baker      Baker
	OnProgress ProgressFunc
}

// Pool bakes tones in parallel. Bakes are CPU-bound, so workers should
// roughly match core count; the zero value falls back to one worker.
type Pool struct {
	workers    int
	baker      Baker
	onProgress ProgressFunc
}

func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		workers:    workers,
		baker:      cfg.Baker,
		onProgress: cfg.OnProgress,
	}
}

// Run bakes all tasks and returns their results, blocking until every
// task has finished or been marked canceled. Order of results follows
// completion, not submission.
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	taskCh := make(chan Task, len(tasks))
	resultCh := make(chan Result, len(tasks))

	var (
		completed int
		failed    int
		mu        sync.Mutex
	)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, taskCh, resultCh)
		}()
	}

	go func() {
		defer close(taskCh)
		for _, task := range tasks {
			select {
			case taskCh <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	results := make([]Result, 0, len(tasks))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for result := range resultCh {
			results = append(results, result)

			mu.Lock()
			completed++
			if result.Err != nil {
				failed++
			}
			c, f := completed, failed
			mu.Unlock()

			if p.onProgress != nil {
				p.onProgress(c, len(tasks), f)
			}
		}
	}()

	wg.Wait()
	close(resultCh)
	<-done

	return results
}

func (p *Pool) worker(ctx context.Context, tasks <-chan Task, results chan<- Result) {
	for task := range tasks {
		select {
		case <-ctx.Done():
			results <- Result{Task: task, Err: ctx.Err()}
			continue
		default:
		}

		start := time.Now()
		path, err := p.baker.Bake(ctx, task.Tone)
		results <- Result{
			Task:    task,
			Path:    path,
			Err:     err,
			Elapsed: time.Since(start),
		}
	}
}
