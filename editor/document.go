package editor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"lukechampine.com/blake3"

	"github.com/gemforce-team/abcedit/abc"
	"github.com/gemforce-team/abcedit/errors"
	"github.com/gemforce-team/abcedit/listing"
	"github.com/gemforce-team/abcedit/program"
)

// JobKind identifies a document operation.
type JobKind string

const (
	JobDecode JobKind = "decode"
	JobEncode JobKind = "encode"
)

// Result is the outcome of a decode or encode.
type Result struct {
	ID       string
	Kind     JobKind
	Program  *program.Program // decoded program, for decode jobs
	Data     []byte           // encoded bytes, for encode jobs
	Digest   [32]byte         // blake3 digest of the bytes read or written
	Duration time.Duration
	Err      error
}

type job struct {
	id     string
	kind   JobKind
	done   chan struct{}
	result Result
}

// Document is an open ABC document: its bytes and, once decoded, its
// program. At most one operation runs on a document at a time; a request
// made while a background job is running fails with a busy error.
type Document struct {
	opts   Options
	logger *zap.Logger

	mu      sync.Mutex
	data    []byte
	prog    *program.Program
	running *job
	pending *job // finished, not yet polled

	// hook runs at the start of every job; tests use it to hold jobs open
	hook func(JobKind)
}

// Open returns a document over data. The caller must not modify data while
// a decode is running.
func Open(data []byte, opts ...Option) *Document {
	d := &Document{data: data}
	for _, opt := range opts {
		opt(&d.opts)
	}
	d.logger = d.opts.Logger
	if d.logger == nil {
		d.logger = Logger()
	}
	return d
}

// Data returns the document bytes: the bytes it was opened with, or the
// output of the last successful encode.
func (d *Document) Data() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.data
}

// Program returns the decoded program, or nil before the first decode.
func (d *Document) Program() *program.Program {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.prog
}

// SetProgram replaces the program that the next encode writes.
func (d *Document) SetProgram(p *program.Program) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running != nil {
		return errors.Busy(string(d.running.kind))
	}
	d.prog = p
	return nil
}

// Decode parses the document bytes into a program.
func (d *Document) Decode() (*program.Program, error) {
	r, err := d.runSync(JobDecode)
	if err != nil {
		return nil, err
	}
	return r.Program, r.Err
}

// Encode writes the program back to bytes.
func (d *Document) Encode() ([]byte, error) {
	r, err := d.runSync(JobEncode)
	if err != nil {
		return nil, err
	}
	return r.Data, r.Err
}

// DecodeAsync starts a background decode and returns its job ID.
func (d *Document) DecodeAsync() (string, error) {
	return d.start(JobDecode)
}

// EncodeAsync starts a background encode and returns its job ID.
func (d *Document) EncodeAsync() (string, error) {
	return d.start(JobEncode)
}

// Poll returns the result of the last background job once it has finished.
// It reports false while the job is running or when there is no unpolled
// result.
func (d *Document) Poll() (Result, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending == nil {
		return Result{}, false
	}
	r := d.pending.result
	d.pending = nil
	return r, true
}

// Wait blocks until the running background job finishes or ctx is done.
// It does not consume the result; use Poll.
func (d *Document) Wait(ctx context.Context) error {
	d.mu.Lock()
	j := d.running
	d.mu.Unlock()
	if j == nil {
		return nil
	}
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Listing renders the decoded program. It fails if the document has not been
// decoded.
func (d *Document) Listing() ([]listing.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running != nil {
		return nil, errors.Busy(string(d.running.kind))
	}
	if d.prog == nil {
		return nil, errors.NotFound(errors.PhaseJob, "program", "decoded program")
	}
	return listing.New(d.prog, listing.Options{IncludeDebug: d.opts.IncludeDebug}).Files(), nil
}

func (d *Document) runSync(kind JobKind) (Result, error) {
	j, err := d.reserve(kind)
	if err != nil {
		return Result{}, err
	}
	d.run(j)
	d.mu.Lock()
	d.running = nil
	d.mu.Unlock()
	return j.result, nil
}

func (d *Document) start(kind JobKind) (string, error) {
	j, err := d.reserve(kind)
	if err != nil {
		return "", err
	}
	go func() {
		d.run(j)
		d.mu.Lock()
		d.running = nil
		d.pending = j
		d.mu.Unlock()
		close(j.done)
	}()
	return j.id, nil
}

// reserve claims the document for a new job.
func (d *Document) reserve(kind JobKind) (*job, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running != nil {
		return nil, errors.Busy(string(d.running.kind))
	}
	j := &job{id: uuid.NewString(), kind: kind, done: make(chan struct{})}
	d.running = j
	return j, nil
}

// run executes j. The document is reserved, so the job owns the program and
// bytes until it returns.
func (d *Document) run(j *job) {
	log := d.logger.With(zap.String("job", j.id), zap.String("kind", string(j.kind)))
	log.Debug("job started")
	start := time.Now()

	j.result = Result{ID: j.id, Kind: j.kind}
	func() {
		defer func() {
			if r := recover(); r != nil {
				j.result.Err = errors.New(errors.PhaseJob, errors.KindInvalidData).
					Detail("%s panicked: %v", j.kind, r).
					Build()
			}
		}()
		if d.hook != nil {
			d.hook(j.kind)
		}
		switch j.kind {
		case JobDecode:
			d.decode(&j.result)
		case JobEncode:
			d.encode(&j.result)
		default:
			j.result.Err = errors.Unsupported(errors.PhaseJob, fmt.Sprintf("job kind %q", j.kind))
		}
	}()
	j.result.Duration = time.Since(start)

	if j.result.Err != nil {
		log.Warn("job failed", zap.Duration("duration", j.result.Duration), zap.Error(j.result.Err))
		return
	}
	log.Debug("job finished", zap.Duration("duration", j.result.Duration))
}

func (d *Document) decode(r *Result) {
	d.mu.Lock()
	data := d.data
	d.mu.Unlock()

	r.Digest = blake3.Sum256(data)
	f, err := abc.Parse(data)
	if err != nil {
		r.Err = err
		return
	}
	p, err := program.FromABC(f)
	if err != nil {
		r.Err = err
		return
	}
	r.Program = p

	d.mu.Lock()
	d.prog = p
	d.mu.Unlock()
}

func (d *Document) encode(r *Result) {
	d.mu.Lock()
	p := d.prog
	d.mu.Unlock()

	if p == nil {
		r.Err = errors.NotFound(errors.PhaseJob, "program", "decoded program")
		return
	}
	f, err := program.ToABC(p)
	if err != nil {
		r.Err = err
		return
	}
	data, err := f.EncodeWith(abc.EncodeOptions{SugarLocals: d.opts.SugarLocals})
	if err != nil {
		r.Err = err
		return
	}
	r.Data = data
	r.Digest = blake3.Sum256(data)

	d.mu.Lock()
	d.data = data
	d.mu.Unlock()
}
