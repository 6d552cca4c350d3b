package pipeline

import (
	"crypto/sha256"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dgallion1/htmlpath/internal/document"
	"github.com/dgallion1/htmlpath/internal/selector"
)

// JobStatus represents the state of an anchoring job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusConverting JobStatus = "converting"
	StatusResolving  JobStatus = "resolving"
	StatusVerifying  JobStatus = "verifying"
	StatusStoring    JobStatus = "storing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusPartial    JobStatus = "partial"
)

// Job tracks the state of a single uploaded document.
type Job struct {
	mu sync.Mutex

	ID    string `json:"job_id"`
	DocID string `json:"doc_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`
	Format   string    `json:"format"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	offsets  []int
	unit     selector.Unit
	anchors  []document.Anchor
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalOffsets int      `json:"total_offsets"`
	Resolved     int      `json:"resolved"`
	Verified     int      `json:"verified"`
	Stored       bool     `json:"stored"`
	Errors       []string `json:"errors"`
}

// NewJob creates a queued job for an uploaded file. A nil offsets slice
// means offsets are chosen by chunking the converted document.
func NewJob(docID, filename, title string, data []byte, offsets []int, unit selector.Unit) *Job {
	now := time.Now()
	return &Job{
		ID:        NewJobID(),
		DocID:     docID,
		Status:    StatusQueued,
		Phase:     "queued",
		Filename:  filename,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		fileData:  data,
		offsets:   offsets,
		unit:      unit,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetDocument records what conversion produced.
func (j *Job) SetDocument(title, format, contentHash string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Title = title
	j.Format = format
	j.ContentHash = contentHash
	j.UpdatedAt = time.Now()
}

// SetTotalOffsets records how many offsets will be resolved.
func (j *Job) SetTotalOffsets(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalOffsets = n
	j.UpdatedAt = time.Now()
}

// IncrResolved atomically increments the resolved counter.
func (j *Job) IncrResolved() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Resolved++
	j.UpdatedAt = time.Now()
}

// SetAnchors stores the final anchors and the number that verified.
func (j *Job) SetAnchors(anchors []document.Anchor, verified int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.anchors = anchors
	j.Progress.Verified = verified
	j.UpdatedAt = time.Now()
}

// MarkStored records a successful publish to the anchor store.
func (j *Job) MarkStored() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Stored = true
	j.UpdatedAt = time.Now()
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// releaseFileData drops the upload once it has been converted.
func (j *Job) releaseFileData() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = nil
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string            `json:"job_id"`
	DocID       string            `json:"doc_id"`
	Status      JobStatus         `json:"status"`
	Phase       string            `json:"phase"`
	Filename    string            `json:"filename"`
	Title       string            `json:"title"`
	Format      string            `json:"format,omitempty"`
	ContentHash string            `json:"content_hash,omitempty"`
	Progress    Progress          `json:"progress"`
	Anchors     []document.Anchor `json:"anchors"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := slices.Clone(j.Progress.Errors)
	if errs == nil {
		errs = []string{}
	}
	anchors := slices.Clone(j.anchors)
	if anchors == nil {
		anchors = []document.Anchor{}
	}
	progress := j.Progress
	progress.Errors = errs
	return JobSnapshot{
		ID:          j.ID,
		DocID:       j.DocID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		Title:       j.Title,
		Format:      j.Format,
		ContentHash: j.ContentHash,
		Progress:    progress,
		Anchors:     anchors,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
