// Package ats scores uploaded resumes against job requirements in the
// background.
package ats

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/nexthire/internal/db"
	"github.com/jonathan/nexthire/internal/matching"
	"github.com/jonathan/nexthire/internal/pdftext"
	"golang.org/x/sync/semaphore"
)

// Defaults used when the config leaves a field zero.
const (
	DefaultWorkers = 4
	DefaultTimeout = 30 * time.Second

	storeTimeout = 5 * time.Second
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("ats scorer is closed")

// ResultStore records scoring outcomes.
type ResultStore interface {
	SetATSResult(ctx context.Context, applicationID string, score int, status string) error
}

// Extractor turns a resume file into text.
type Extractor func(data []byte) (string, error)

// Outcome is the recorded result of scoring one application.
type Outcome struct {
	Score   int
	Status  string
	Matched []string
}

// Scorer runs resume scoring on a bounded pool.
type Scorer struct {
	store   ResultStore
	table   *matching.Table
	extract Extractor
	sem     *semaphore.Weighted
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithExtractor replaces the PDF text extractor.
func WithExtractor(e Extractor) Option {
	return func(s *Scorer) { s.extract = e }
}

// WithTable replaces the embedded skill table.
func WithTable(t *matching.Table) Option {
	return func(s *Scorer) { s.table = t }
}

// New creates a scorer with at most workers concurrent jobs, each bounded
// by timeout.
func New(store ResultStore, workers int, timeout time.Duration, opts ...Option) *Scorer {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scorer{
		store:   store,
		table:   matching.Default(),
		extract: pdftext.Extract,
		sem:     semaphore.NewWeighted(int64(workers)),
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit queues scoring of one application and returns immediately.
func (s *Scorer) Submit(applicationID string, resume []byte, requirements []string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		if err := s.sem.Acquire(s.ctx, 1); err != nil {
			log.Printf("[ats] dropped application %s: %v", applicationID, err)
			return
		}
		defer s.sem.Release(1)

		ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()
		if _, err := s.Run(ctx, applicationID, resume, requirements); err != nil {
			log.Printf("[ats] application %s: %v", applicationID, err)
		}
	}()
	return nil
}

// Run scores one application synchronously and records the outcome.
func (s *Scorer) Run(ctx context.Context, applicationID string, resume []byte, requirements []string) (Outcome, error) {
	out := s.evaluate(ctx, resume, requirements)
	log.Printf("[ats] application %s: score=%d status=%s matched=%v", applicationID, out.Score, out.Status, out.Matched)

	// The outcome of a timed-out run is still recorded.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()
	if err := s.store.SetATSResult(writeCtx, applicationID, out.Score, out.Status); err != nil {
		return out, fmt.Errorf("failed to record result: %w", err)
	}
	return out, nil
}

// evaluate computes the outcome. A panic anywhere in extraction or
// matching yields score -1.
func (s *Scorer) evaluate(ctx context.Context, resume []byte, requirements []string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ats] scoring panicked: %v", r)
			out = Outcome{Score: -1, Status: db.ATSFailed}
		}
	}()

	if len(requirements) == 0 {
		return Outcome{Status: db.ATSNoSkills}
	}

	text, err := s.extractWithContext(ctx, resume)
	if err != nil {
		log.Printf("[ats] text extraction failed: %v", err)
		return Outcome{Status: db.ATSFailed}
	}
	if strings.TrimSpace(text) == "" {
		return Outcome{Status: db.ATSEmptyText}
	}

	r := matching.Score(matching.NormalizeText(text), s.table.ExtractKeywords(requirements))
	out = Outcome{Score: r.Score, Matched: r.Matched, Status: db.ATSScored}
	if r.Score == 0 {
		out.Status = db.ATSNoMatch
	}
	return out
}

func (s *Scorer) extractWithContext(ctx context.Context, resume []byte) (string, error) {
	type result struct {
		text string
		err  error
		pv   any
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{pv: r}
			}
		}()
		text, err := s.extract(resume)
		done <- result{text: text, err: err}
	}()

	select {
	case r := <-done:
		if r.pv != nil {
			panic(r.pv)
		}
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close stops accepting work and waits for in-flight scoring until ctx
// ends, after which queued work is abandoned.
func (s *Scorer) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}
