package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/htmlpath/internal/anchorstore"
	"github.com/dgallion1/htmlpath/internal/chunker"
	"github.com/dgallion1/htmlpath/internal/document"
	"github.com/dgallion1/htmlpath/internal/selector"
	"github.com/dgallion1/htmlpath/internal/source"
	"github.com/dgallion1/htmlpath/internal/stats"
	"github.com/dgallion1/htmlpath/internal/verify"
)

// AnchorStore receives the anchors of every processed document.
type AnchorStore interface {
	PutAnchors(ctx context.Context, rec anchorstore.Record) error
}

// Worker processes a single document job.
type Worker struct {
	store    AnchorStore
	latency  *stats.Latency
	log      *slog.Logger
	chunkCfg chunker.Config
	srcOpts  source.Options
	backoff  func(int) time.Duration

	maxConcurrentResolve int
}

func NewWorker(store AnchorStore, latency *stats.Latency, log *slog.Logger, chunkCfg chunker.Config, srcOpts source.Options, maxResolve int) *Worker {
	if maxResolve <= 0 {
		maxResolve = 1
	}
	return &Worker{
		store:                store,
		latency:              latency,
		log:                  log,
		chunkCfg:             chunkCfg,
		srcOpts:              srcOpts,
		backoff:              Backoff,
		maxConcurrentResolve: maxResolve,
	}
}

// Process runs convert, resolve, verify and store for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)

	// Phase 1: Convert to HTML.
	job.SetStatus(StatusConverting, "converting")
	conv, err := source.ForFile(job.Filename, w.srcOpts)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "converting")
		return
	}
	doc, err := conv.Convert(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		log.Error("convert failed", "error", err)
		job.AddError(fmt.Sprintf("convert: %s", err))
		job.SetStatus(StatusFailed, "converting")
		return
	}
	job.releaseFileData()
	title := doc.Title
	if job.Title != "" {
		title = job.Title
	}
	job.SetDocument(title, doc.Format, ContentHashHex([]byte(doc.HTML)))

	// Phase 2: Pick offsets and resolve them.
	offsets, anchors := w.chooseOffsets(job, doc.HTML)
	if len(offsets) == 0 {
		log.Warn("no offsets to resolve")
		job.AddError("no text content to anchor")
		job.SetStatus(StatusFailed, "resolving")
		return
	}
	job.SetTotalOffsets(len(offsets))
	job.SetStatus(StatusResolving, "resolving")

	idx := selector.NewIndex(doc.HTML)
	w.resolveAll(ctx, log, job, idx, offsets, anchors)
	if ctx.Err() != nil {
		job.AddError(ctx.Err().Error())
		job.SetStatus(StatusFailed, "resolving")
		return
	}

	// Phase 3: Verify with a real selector engine.
	job.SetStatus(StatusVerifying, "verifying")
	verified, failed := w.verifyAll(log, doc.HTML, offsets, anchors)
	for _, a := range anchors {
		if a.Error != "" {
			job.AddError(fmt.Sprintf("offset %d: %s", a.Offset, a.Error))
		}
	}
	job.SetAnchors(anchors, verified)
	log.Info("anchors resolved", "offsets", len(anchors), "verified", verified, "errors", failed)

	hadErrors := failed > 0
	if failed == len(anchors) {
		job.SetStatus(StatusFailed, "resolving")
		return
	}

	// Phase 4: Publish.
	if w.store != nil {
		job.SetStatus(StatusStoring, "storing")
		snap := job.Snapshot()
		rec := anchorstore.Record{
			DocID:       job.DocID,
			Title:       snap.Title,
			Format:      snap.Format,
			ContentHash: snap.ContentHash,
			Anchors:     anchors,
		}
		err := withRetry(ctx, w.backoff, func() error {
			err := w.store.PutAnchors(ctx, rec)
			if err != nil && IsRetryable(err) {
				log.Warn("retryable store error", "error", err)
			}
			return err
		})
		if err != nil {
			log.Error("store failed", "error", err)
			job.AddError(fmt.Sprintf("store: %s", err))
			hadErrors = true
		} else {
			job.MarkStored()
		}
	}

	if hadErrors {
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
}

// chooseOffsets converts requested offsets to byte offsets, or falls back to
// chunk starts. Offsets that cannot be converted get an anchor carrying the
// error and a -1 byte offset.
func (w *Worker) chooseOffsets(job *Job, html string) ([]int, []document.Anchor) {
	if job.offsets == nil {
		chunks := chunker.ChunkHTML(html, w.chunkCfg)
		offsets := make([]int, len(chunks))
		for i, c := range chunks {
			offsets[i] = c.Offset
		}
		return offsets, make([]document.Anchor, len(offsets))
	}

	offsets := make([]int, len(job.offsets))
	anchors := make([]document.Anchor, len(job.offsets))
	for i, off := range job.offsets {
		b, err := selector.ByteOffset(html, off, job.unit)
		if err != nil {
			anchors[i] = document.Anchor{Offset: off, Error: err.Error()}
			b = -1
		}
		offsets[i] = b
	}
	return offsets, anchors
}

func (w *Worker) resolveAll(ctx context.Context, log *slog.Logger, job *Job, idx *selector.Index, offsets []int, anchors []document.Anchor) {
	sem := make(chan struct{}, w.maxConcurrentResolve)
	var wg sync.WaitGroup
	for i, off := range offsets {
		if off < 0 {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(i, off int) {
			defer wg.Done()
			defer func() { <-sem }()

			start := time.Now()
			path, err := idx.Resolve(off)
			if w.latency != nil {
				w.latency.Since(start)
			}
			a := document.Anchor{Offset: off}
			if job.offsets != nil {
				a.Offset = job.offsets[i]
			}
			if err != nil {
				a.Error = err.Error()
			} else {
				a.Selector = path.Selector()
				a.Segments = path.Segments
				a.Diagnostics = path.Diagnostics
				for _, d := range path.Diagnostics {
					log.Debug("resolve diagnostic", "offset", off, "diagnostic", d.String())
				}
			}
			anchors[i] = a
			job.IncrResolved()
		}(i, off)
	}
	wg.Wait()
}

// verifyAll checks every resolved anchor and returns how many verified and
// how many carry an error.
func (w *Worker) verifyAll(log *slog.Logger, html string, offsets []int, anchors []document.Anchor) (verified, failed int) {
	tree, err := verify.Parse(html)
	if err != nil {
		log.Warn("verification skipped", "error", err)
	}
	for i := range anchors {
		a := &anchors[i]
		if a.Error != "" {
			failed++
			continue
		}
		if tree == nil {
			continue
		}
		if err := tree.Check(a, verify.ProbeText(html, offsets[i])); err != nil {
			log.Warn("verify failed", "offset", a.Offset, "selector", a.Selector, "error", err)
			failed++
			continue
		}
		if a.Verified {
			verified++
		}
	}
	return verified, failed
}
