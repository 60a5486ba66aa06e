package processor

import (
	"context"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/adverant/nexus/flightcapture-worker/internal/logging"
	"github.com/adverant/nexus/flightcapture-worker/internal/models"
	"github.com/adverant/nexus/flightcapture-worker/internal/roi"
)

type regionKey struct{}

// RegionFromContext returns the ROI name a recognition call is serving.
func RegionFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(regionKey{}).(string)
	return name, ok
}

// ROIResult is the outcome of recognizing one region. A failed region has
// empty Text and a non-nil Err.
type ROIResult struct {
	Index    int
	Name     string
	Kind     models.FieldKind
	Text     string
	Err      error
	Duration time.Duration
}

// Hooks receive coordinator events. Both run with the batch lock held, so
// calls never overlap.
type Hooks struct {
	// OnResult runs once per region as it completes.
	OnResult func(ROIResult)
	// OnComplete runs exactly once, after the last region.
	OnComplete func([]ROIResult)
}

// Coordinator fans recognition out over a set of ROIs and joins the results.
type Coordinator struct {
	recognizer Recognizer
	timeout    time.Duration
	logger     *logging.Logger
}

// NewCoordinator creates a coordinator. A positive timeout bounds each
// recognition call separately; failed calls are never retried.
func NewCoordinator(recognizer Recognizer, timeout time.Duration, logger *logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Coordinator{recognizer: recognizer, timeout: timeout, logger: logger}
}

// Batch tracks one fan-out.
type Batch struct {
	mu        sync.Mutex
	results   []ROIResult
	completed int
	fired     bool
	hooks     Hooks
	done      chan struct{}
}

// Start crops and recognizes every definition concurrently and returns
// immediately. With no definitions the batch completes at once.
func (c *Coordinator) Start(ctx context.Context, img image.Image, defs []roi.Definition, hooks Hooks) *Batch {
	b := &Batch{
		results: make([]ROIResult, len(defs)),
		hooks:   hooks,
		done:    make(chan struct{}),
	}

	if len(defs) == 0 {
		b.mu.Lock()
		b.finishLocked()
		b.mu.Unlock()
		return b
	}

	for i, def := range defs {
		go func(i int, def roi.Definition) {
			b.record(c.recognize(ctx, img, i, def))
		}(i, def)
	}
	return b
}

// Run is Start followed by Wait.
func (c *Coordinator) Run(ctx context.Context, img image.Image, defs []roi.Definition) []ROIResult {
	return c.Start(ctx, img, defs, Hooks{}).Wait()
}

func (c *Coordinator) recognize(ctx context.Context, img image.Image, i int, def roi.Definition) ROIResult {
	start := time.Now()
	res := ROIResult{Index: i, Name: def.Name, Kind: def.Kind}

	sub, err := roi.CropDefinition(img, def)
	if err != nil {
		res.Err = err
	} else {
		callCtx := context.WithValue(ctx, regionKey{}, def.Name)
		if c.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(callCtx, c.timeout)
			defer cancel()
		}
		text, err := c.recognizer.Recognize(callCtx, sub)
		res.Text = strings.TrimSpace(text)
		res.Err = err
	}

	if res.Err != nil {
		res.Text = ""
		c.logger.Warn("Region recognition failed",
			"roi", def.Name,
			"field", def.Kind.String(),
			"error", res.Err)
	}
	res.Duration = time.Since(start)
	return res
}

func (b *Batch) record(res ROIResult) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.results[res.Index] = res
	b.completed++
	if b.hooks.OnResult != nil {
		b.hooks.OnResult(res)
	}
	if b.completed == len(b.results) {
		b.finishLocked()
	}
}

func (b *Batch) finishLocked() {
	if b.fired {
		return
	}
	b.fired = true
	if b.hooks.OnComplete != nil {
		out := make([]ROIResult, len(b.results))
		copy(out, b.results)
		b.hooks.OnComplete(out)
	}
	close(b.done)
}

// Done is closed after OnComplete has run.
func (b *Batch) Done() <-chan struct{} { return b.done }

// Wait blocks until every region has reported and returns the results in
// definition order.
func (b *Batch) Wait() []ROIResult {
	<-b.done
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ROIResult, len(b.results))
	copy(out, b.results)
	return out
}

// Completed returns how many regions have reported so far.
func (b *Batch) Completed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.completed
}

// Total returns the number of regions in the batch.
func (b *Batch) Total() int { return len(b.results) }
