// Package batch decodes many RAW files concurrently. Each job runs on its own
// engine session, so parallelism lives entirely in the caller's workers.
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cocosip/go-raw-codec/raw"
)

// Decoder decodes one RAW container. *raw.Decoder satisfies it.
type Decoder interface {
	Decode(data []byte) (*raw.DecodedResult, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(data []byte) (*raw.DecodedResult, error)

// Decode calls f(data).
func (f DecoderFunc) Decode(data []byte) (*raw.DecodedResult, error) {
	return f(data)
}

// Job is one container to decode.
type Job struct {
	Name string
	Data []byte
}

// Result contains the decoded image for a job or the error that stopped it.
type Result struct {
	Name    string
	TraceID string
	Image   *raw.DecodedResult
	Err     error
	Elapsed time.Duration
}

// Process decodes jobs on workers goroutines and streams results in
// completion order. The returned channel is closed once jobs is closed and
// drained, or once ctx is done. Cancellation takes effect between jobs; a
// decode already running completes.
func Process(ctx context.Context, dec Decoder, jobs <-chan Job, workers int) <-chan Result {
	if workers < 1 {
		workers = 1
	}
	out := make(chan Result, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			work(ctx, dec, jobs, out)
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func work(ctx context.Context, dec Decoder, jobs <-chan Job, out chan<- Result) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			res := run(dec, job)
			select {
			case out <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}

func run(dec Decoder, job Job) Result {
	traceID := uuid.New().String()
	log := raw.Logger().With("trace_id", traceID, "job", job.Name)

	start := time.Now()
	img, err := dec.Decode(job.Data)
	elapsed := time.Since(start)

	if err != nil {
		log.Warn("job failed", "error", err, "elapsed", elapsed)
	} else {
		log.Debug("job decoded", "width", img.Width, "height", img.Height, "elapsed", elapsed)
	}
	return Result{Name: job.Name, TraceID: traceID, Image: img, Err: err, Elapsed: elapsed}
}
