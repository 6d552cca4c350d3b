package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/htmlpath/internal/anchorstore"
	"github.com/dgallion1/htmlpath/internal/chunker"
	"github.com/dgallion1/htmlpath/internal/config"
	"github.com/dgallion1/htmlpath/internal/selector"
	"github.com/dgallion1/htmlpath/internal/source"
	"github.com/dgallion1/htmlpath/internal/stats"
)

const page = `<html><body><div><p>alpha</p><p>beta</p></div></body></html>`

type fakeStore struct {
	mu    sync.Mutex
	calls int
	recs  []anchorstore.Record
	err   error
}

func (f *fakeStore) PutAnchors(_ context.Context, rec anchorstore.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.recs = append(f.recs, rec)
	return nil
}

func testWorker(store AnchorStore) *Worker {
	w := NewWorker(store, stats.NewLatency(time.Hour), slog.New(slog.DiscardHandler),
		chunker.Config{ChunkSize: 1, MinChunk: 1}, source.Options{}, 4)
	w.backoff = func(int) time.Duration { return 0 }
	return w
}

func TestWorker_ResolvesAndVerifiesOffsets(t *testing.T) {
	store := &fakeStore{}
	w := testWorker(store)
	offsets := []int{strings.Index(page, "alpha"), strings.Index(page, "beta")}
	job := NewJob("doc-1", "page.html", "", []byte(page), offsets, selector.Bytes)

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (%v)", snap.Status, snap.Progress.Errors)
	}
	want := []string{
		"html:nth-of-type(1)>body:nth-of-type(1)>div:nth-of-type(1)>p:nth-of-type(1)",
		"html:nth-of-type(1)>body:nth-of-type(1)>div:nth-of-type(1)>p:nth-of-type(2)",
	}
	for i, a := range snap.Anchors {
		if a.Selector != want[i] {
			t.Errorf("anchor %d: expected %q, got %q", i, want[i], a.Selector)
		}
		if !a.Verified || a.Matches != 1 {
			t.Errorf("anchor %d: expected verified unique match, got %+v", i, a)
		}
		if a.Offset != offsets[i] {
			t.Errorf("anchor %d: expected offset %d, got %d", i, offsets[i], a.Offset)
		}
	}
	if snap.Progress.Verified != 2 || snap.Progress.Resolved != 2 || !snap.Progress.Stored {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
	if snap.ContentHash != ContentHashHex([]byte(page)) || snap.Format != "html" {
		t.Errorf("unexpected document info %+v", snap)
	}
	if len(store.recs) != 1 || store.recs[0].DocID != "doc-1" || len(store.recs[0].Anchors) != 2 {
		t.Errorf("unexpected store calls %+v", store.recs)
	}
	if job.FileData() != nil {
		t.Error("expected upload to be released after conversion")
	}
	if w.latency.Snapshot().Count != 2 {
		t.Errorf("expected 2 latency samples, got %d", w.latency.Snapshot().Count)
	}
}

func TestWorker_ConvertsOffsetUnits(t *testing.T) {
	doc := "<p>é</p><p>x</p>"
	w := testWorker(nil)
	// Rune offset 11 is the "x"; its byte offset is 12.
	job := NewJob("d", "u.html", "", []byte(doc), []int{11}, selector.Runes)
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (%v)", snap.Status, snap.Progress.Errors)
	}
	a := snap.Anchors[0]
	if a.Offset != 11 || a.Selector != "p:nth-of-type(2)" || !a.Verified {
		t.Errorf("unexpected anchor %+v", a)
	}
}

func TestWorker_ChunksWhenNoOffsetsGiven(t *testing.T) {
	w := testWorker(nil)
	job := NewJob("d", "notes.txt", "My Notes", []byte("one\n\ntwo"), nil, selector.Bytes)
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (%v)", snap.Status, snap.Progress.Errors)
	}
	if snap.Title != "My Notes" {
		t.Errorf("expected title override, got %q", snap.Title)
	}
	if len(snap.Anchors) != 2 {
		t.Fatalf("expected 2 anchors, got %d", len(snap.Anchors))
	}
	if snap.Anchors[0].Selector != "p:nth-of-type(1)" || snap.Anchors[1].Selector != "p:nth-of-type(2)" {
		t.Errorf("unexpected selectors %q, %q", snap.Anchors[0].Selector, snap.Anchors[1].Selector)
	}
	if snap.Progress.Stored {
		t.Error("expected nothing stored without a store")
	}
}

func TestWorker_PartialOnBadOffset(t *testing.T) {
	w := testWorker(&fakeStore{})
	job := NewJob("d", "page.html", "", []byte(page), []int{strings.Index(page, "beta"), 10_000}, selector.Bytes)
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusPartial {
		t.Fatalf("expected partial, got %s", snap.Status)
	}
	if snap.Anchors[1].Error == "" || snap.Anchors[1].Offset != 10_000 {
		t.Errorf("expected error anchor for out-of-range offset, got %+v", snap.Anchors[1])
	}
	if len(snap.Progress.Errors) != 1 {
		t.Errorf("expected 1 job error, got %v", snap.Progress.Errors)
	}
}

func TestWorker_FailsWhenEveryOffsetFails(t *testing.T) {
	w := testWorker(&fakeStore{})
	job := NewJob("d", "page.html", "", []byte(page), []int{-1, 10_000}, selector.Bytes)
	w.Process(context.Background(), job)

	if snap := job.Snapshot(); snap.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", snap.Status)
	}
}

func TestWorker_FailsOnUnsupportedFormat(t *testing.T) {
	w := testWorker(nil)
	job := NewJob("d", "image.png", "", []byte("x"), nil, selector.Bytes)
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "converting" {
		t.Fatalf("expected failed in converting, got %s/%s", snap.Status, snap.Phase)
	}
}

func TestWorker_FailsOnEmptyDocument(t *testing.T) {
	w := testWorker(nil)
	job := NewJob("d", "empty.txt", "", []byte("   \n"), nil, selector.Bytes)
	w.Process(context.Background(), job)

	if snap := job.Snapshot(); snap.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", snap.Status)
	}
}

func TestWorker_RetriesTemporaryStoreErrors(t *testing.T) {
	store := &fakeStore{err: &anchorstore.StatusError{Op: "put anchors", Status: http.StatusServiceUnavailable}}
	w := testWorker(store)
	job := NewJob("d", "page.html", "", []byte(page), []int{strings.Index(page, "alpha")}, selector.Bytes)
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusPartial || snap.Progress.Stored {
		t.Fatalf("expected partial without store, got %s stored=%v", snap.Status, snap.Progress.Stored)
	}
	if store.calls != MaxRetries {
		t.Errorf("expected %d attempts, got %d", MaxRetries, store.calls)
	}
}

func TestWorker_DoesNotRetryPermanentStoreErrors(t *testing.T) {
	store := &fakeStore{err: errors.New("bad request")}
	w := testWorker(store)
	job := NewJob("d", "page.html", "", []byte(page), []int{strings.Index(page, "alpha")}, selector.Bytes)
	w.Process(context.Background(), job)

	if store.calls != 1 {
		t.Errorf("expected a single attempt, got %d", store.calls)
	}
	if snap := job.Snapshot(); snap.Status != StatusPartial {
		t.Errorf("expected partial, got %s", snap.Status)
	}
}

func TestOrchestrator_ProcessesSubmittedJobs(t *testing.T) {
	cfg := config.Config{WorkerCount: 2, MaxQueueSize: 10, MaxConcurrentResolve: 2, AnchorChunkSize: 50, JobTTL: time.Hour}
	store := &fakeStore{}
	o := NewOrchestrator(cfg, store, stats.NewLatency(time.Hour), slog.New(slog.DiscardHandler))
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("d", "page.html", "", []byte(page), nil, selector.Bytes)
	if err := o.Submit(job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.GetJob(job.ID) != job {
		t.Fatal("expected job to be registered")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		snap := job.Snapshot()
		if snap.Status == StatusCompleted {
			break
		}
		if snap.Status == StatusFailed || snap.Status == StatusPartial || time.Now().After(deadline) {
			t.Fatalf("job did not complete: %s %v", snap.Status, snap.Progress.Errors)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if o.Latency().Snapshot().Count == 0 {
		t.Error("expected resolve latency to be recorded")
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 1, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, nil, nil, slog.New(slog.DiscardHandler))

	first := NewJob("a", "a.html", "", []byte(page), nil, selector.Bytes)
	second := NewJob("b", "b.html", "", []byte(page), nil, selector.Bytes)
	if err := o.Submit(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := o.Submit(second); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if snap := second.Snapshot(); snap.Status != StatusFailed {
		t.Errorf("expected rejected job to be failed, got %s", snap.Status)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
	o.Stop()

	// Never started, so the queued job is failed on shutdown.
	if snap := first.Snapshot(); snap.Status != StatusFailed || len(snap.Progress.Errors) != 1 {
		t.Errorf("expected queued job to fail on stop, got %s %v", snap.Status, snap.Progress.Errors)
	}
	o.Stop()
}

func TestOrchestrator_SubmitAfterStop(t *testing.T) {
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 4, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, nil, nil, slog.New(slog.DiscardHandler))
	o.Start(context.Background())
	o.Stop()

	job := NewJob("a", "a.html", "", []byte(page), nil, selector.Bytes)
	if err := o.Submit(job); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if o.GetJob(job.ID) != nil {
		t.Error("expected rejected job not to be registered")
	}
}
