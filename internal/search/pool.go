package search

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/harliandi/go-sizefit/pkg/metrics"
)

// ErrPoolBusy is returned when the worker pool queue is full
var ErrPoolBusy = errors.New("worker pool is busy, please retry later")

// ErrUnknownFormat is returned when a job names a format no engine serves
var ErrUnknownFormat = errors.New("no engine registered for output format")

type job struct {
	data   []byte
	rng    Range
	format string
	result chan<- jobResult
}

type jobResult struct {
	res *Result
	err error
}

// Pool fans size-targeting searches out to a fixed set of workers. Each
// output format is served by its own Engine; the search itself stays
// single-threaded per job.
type Pool struct {
	engines map[string]*Engine
	jobs    chan job
	workers int
	wg      sync.WaitGroup
	once    sync.Once
}

// NewPool creates a pool over the given format->engine table.
func NewPool(engines map[string]*Engine, workers int) *Pool {
	return &Pool{
		engines: engines,
		jobs:    make(chan job, workers*2),
		workers: workers,
	}
}

// Start launches the worker goroutines. Safe to call more than once.
func (p *Pool) Start() {
	p.once.Do(func() {
		log.Printf("Starting search pool with %d workers", p.workers)
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker(i)
		}
	})
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for j := range p.jobs {
		metrics.SearchStarted(len(p.jobs))
		var out jobResult
		engine, ok := p.engines[j.format]
		if !ok {
			out.err = ErrUnknownFormat
		} else {
			out.res, out.err = engine.Fit(context.Background(), j.data, j.rng)
		}
		metrics.SearchFinished(len(p.jobs))

		select {
		case j.result <- out:
		default:
			log.Printf("Worker %d: result channel full or closed", id)
		}
	}
}

// Submit enqueues a search and waits for its result. Returns ErrPoolBusy
// immediately when the queue is full, and the context error when the caller
// gives up while waiting.
func (p *Pool) Submit(ctx context.Context, data []byte, rng Range, format string) (*Result, error) {
	p.Start()

	resultChan := make(chan jobResult, 1)
	j := job{data: data, rng: rng, format: format, result: resultChan}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case p.jobs <- j:
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case out := <-resultChan:
			return out.res, out.err
		}
	default:
		return nil, ErrPoolBusy
	}
}

// SubmitWithRetry retries Submit with a short backoff while the pool is busy.
func (p *Pool) SubmitWithRetry(ctx context.Context, data []byte, rng Range, format string, maxRetries int) (*Result, error) {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		res, err := p.Submit(ctx, data, rng, format)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrPoolBusy) {
			return nil, err
		}
		lastErr = err

		wait := time.Duration(i+1) * 10 * time.Millisecond
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}

// Stop drains the queue and waits for the workers to finish.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
	log.Printf("Search pool stopped")
}
