package build

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/docindex/internal/data/repos"
	"github.com/yungbote/docindex/internal/domain/index"
	"github.com/yungbote/docindex/internal/indexing/category"
	"github.com/yungbote/docindex/internal/indexing/chunker"
	"github.com/yungbote/docindex/internal/indexing/embedding"
	"github.com/yungbote/docindex/internal/indexing/ident"
	"github.com/yungbote/docindex/internal/indexing/staleness"
	"github.com/yungbote/docindex/internal/indexing/vectorstore"
	"github.com/yungbote/docindex/internal/observability"
	"github.com/yungbote/docindex/internal/pkg/dbctx"
	"github.com/yungbote/docindex/internal/platform/logger"
)

const (
	DefaultConcurrency      = 5
	DefaultHeartbeatTimeout = 5 * time.Minute
	descriptionMaxRunes     = 200
)

type Config struct {
	// Concurrency bounds documents in flight and sizes the status flush window.
	Concurrency      int
	OverlapWords     int
	HeartbeatTimeout time.Duration
}

type Deps struct {
	Log        *logger.Logger
	Builds     repos.BuildStatusRepo
	Metadata   repos.DocumentMetadataRepo
	Detector   *staleness.Detector
	Chunker    *chunker.Chunker
	Embedder   embedding.Client
	Store      vectorstore.Store
	Categories *category.Table
	Tokens     TokenCounter
	Now        func() time.Time
}

// Orchestrator runs indexing builds. Each build's status record is written
// only by the Run call that created it, apart from abandonment finalization
// in Status.
type Orchestrator struct {
	log  *logger.Logger
	deps Deps
	cfg  Config
}

func New(deps Deps, cfg Config) (*Orchestrator, error) {
	switch {
	case deps.Builds == nil, deps.Metadata == nil:
		return nil, errors.New("build: repos required")
	case deps.Detector == nil:
		return nil, errors.New("build: staleness detector required")
	case deps.Embedder == nil:
		return nil, errors.New("build: embedder required")
	case deps.Store == nil:
		return nil, errors.New("build: vector store required")
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Chunker == nil {
		deps.Chunker = chunker.New(chunker.Options{})
	}
	if deps.Tokens == nil {
		deps.Tokens = EstimateCounter{}
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.OverlapWords < 0 {
		cfg.OverlapWords = chunker.DefaultOverlapWords
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	return &Orchestrator{log: deps.Log.With("service", "BuildOrchestrator"), deps: deps, cfg: cfg}, nil
}

type docOutcome struct {
	result index.DocumentResult
	chunks int
	tokens int
	billed int
}

// run holds the mutable state of one build. All fields are guarded by mu.
type run struct {
	mu       sync.Mutex
	status   *index.BuildStatus
	outcomes []*docOutcome
	done     int
}

// Run indexes docs and returns the final status. Per-document failures are
// recorded in the status; the returned error covers only failures to create
// or persist the status itself.
func (o *Orchestrator) Run(ctx context.Context, buildID string, docs []index.Document) (*index.BuildStatus, error) {
	if strings.TrimSpace(buildID) == "" {
		buildID = uuid.NewString()
	}
	start := o.deps.Now()
	// Status writes must land even when the caller's context is cancelled.
	writeCtx := context.WithoutCancel(ctx)

	r := &run{
		status: &index.BuildStatus{
			BuildID:     buildID,
			Status:      index.BuildRunning,
			TotalDocs:   len(docs),
			StartedAt:   start,
			HeartbeatAt: start,
		},
		outcomes: make([]*docOutcome, len(docs)),
	}
	if err := o.deps.Builds.Create(dbctx.Context{Ctx: writeCtx}, r.status); err != nil {
		return nil, fmt.Errorf("create build status %s: %w", buildID, err)
	}
	log := o.log.With("build_id", buildID)
	log.Info("build started", "documents", len(docs), "concurrency", o.cfg.Concurrency)

	stopHeartbeat := o.startHeartbeat(writeCtx, log, r)
	defer stopHeartbeat()

	var g errgroup.Group
	g.SetLimit(o.cfg.Concurrency)
	for i := range docs {
		i := i
		g.Go(func() error {
			out := o.indexDocument(ctx, log, docs[i])
			observability.Current().IncBuildDocument(out.result.Status)

			r.mu.Lock()
			defer r.mu.Unlock()
			r.outcomes[i] = out
			r.done++
			if r.done%o.cfg.Concurrency == 0 && r.done < len(docs) {
				if err := o.flushLocked(writeCtx, r); err != nil {
					log.Warn("build status flush failed", "processed", r.done, "error", err)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	stopHeartbeat()

	r.mu.Lock()
	defer r.mu.Unlock()
	o.aggregateLocked(r)
	st := r.status
	st.Status = index.BuildCompleted
	if len(docs) > 0 && st.Failed == len(docs) {
		st.Status = index.BuildFailed
	}
	finished := o.deps.Now()
	st.FinishedAt = &finished
	st.HeartbeatAt = finished
	if err := o.deps.Builds.Save(dbctx.Context{Ctx: writeCtx}, st); err != nil {
		return st, fmt.Errorf("save final build status %s: %w", buildID, err)
	}
	observability.Current().ObserveBuild(st.Status, finished.Sub(start))
	billed := 0
	for _, out := range r.outcomes {
		if out != nil {
			billed += out.billed
		}
	}
	log.Info(
		"build finished",
		"status", st.Status,
		"indexed", st.Indexed,
		"unchanged", st.Unchanged,
		"failed", st.Failed,
		"chunks", st.TotalChunks,
		"tokens", st.TotalTokens,
		"billed_tokens", billed,
	)
	return st, nil
}

// aggregateLocked recomputes counters, results and errors from the finished
// outcomes, in input order.
func (o *Orchestrator) aggregateLocked(r *run) {
	st := r.status
	st.Indexed, st.Unchanged, st.Failed = 0, 0, 0
	st.TotalChunks, st.TotalTokens = 0, 0
	st.Results = st.Results[:0]
	st.Errors = st.Errors[:0]
	for _, out := range r.outcomes {
		if out == nil {
			continue
		}
		switch out.result.Status {
		case index.DocIndexed:
			st.Indexed++
		case index.DocUnchanged:
			st.Unchanged++
		case index.DocFailed:
			st.Failed++
			st.Errors = append(st.Errors, out.result.Path+": "+out.result.Error)
		}
		st.TotalChunks += out.chunks
		st.TotalTokens += out.tokens
		st.Results = append(st.Results, out.result)
	}
}

func (o *Orchestrator) flushLocked(ctx context.Context, r *run) error {
	o.aggregateLocked(r)
	r.status.HeartbeatAt = o.deps.Now()
	return o.deps.Builds.Save(dbctx.Context{Ctx: ctx}, r.status)
}

// startHeartbeat refreshes HeartbeatAt while documents are slow to finish, so
// a live build is not mistaken for an abandoned one.
func (o *Orchestrator) startHeartbeat(ctx context.Context, log *logger.Logger, r *run) func() {
	interval := o.cfg.HeartbeatTimeout / 3
	stop := make(chan struct{})
	done := make(chan struct{})
	var once sync.Once
	go func() {
		defer close(done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				r.mu.Lock()
				select {
				case <-stop:
					r.mu.Unlock()
					return
				default:
				}
				err := o.flushLocked(ctx, r)
				r.mu.Unlock()
				if err != nil {
					log.Warn("build heartbeat failed", "error", err)
				}
			}
		}
	}()
	// The returned func blocks until the goroutine has exited, so no flush
	// touches the status after it returns.
	return func() {
		once.Do(func() { close(stop) })
		<-done
	}
}

func (o *Orchestrator) indexDocument(ctx context.Context, log *logger.Logger, doc index.Document) *docOutcome {
	p := strings.TrimSpace(doc.Path)
	out := &docOutcome{result: index.DocumentResult{Path: p}}
	fail := func(err error) *docOutcome {
		out.result.Status = index.DocFailed
		out.result.Error = err.Error()
		out.chunks, out.tokens, out.billed = 0, 0, 0
		log.Warn("document failed", "doc_id", ident.DocID(p), "error", err)
		return out
	}
	if p == "" {
		return fail(errors.New("path is required"))
	}

	docID := ident.DocID(p)
	hash := ident.ContentHash(doc.Body)
	stale, err := o.deps.Detector.IsStale(ctx, docID, hash)
	if err != nil {
		return fail(err)
	}
	if !stale {
		out.result.Status = index.DocUnchanged
		return out
	}

	chunks := o.deps.Chunker.Chunk(doc.Body, o.cfg.OverlapWords)
	title := documentTitle(doc, chunks)
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	batch, err := o.deps.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fail(err)
	}
	out.billed = batch.Tokens

	now := o.deps.Now()
	cat := o.deps.Categories.Resolve(p)
	entries := make([]vectorstore.Entry, len(chunks))
	for i, ch := range chunks {
		section := ch.SectionName
		if section == "" {
			section = title
		}
		entries[i] = vectorstore.Entry{
			ChunkID:     ident.ChunkID(p, ch.ChunkIndex),
			DocID:       docID,
			Path:        p,
			Title:       title,
			Section:     section,
			Content:     ch.Text,
			Category:    cat,
			ChunkIndex:  ch.ChunkIndex,
			TotalChunks: ch.TotalChunks,
			ContentHash: hash,
			Vector:      batch.Vectors[i],
			IndexedAt:   now,
		}
		out.tokens += o.deps.Tokens.Count(ch.Text)
	}
	if err := o.deps.Store.Upsert(ctx, docID, entries); err != nil {
		return fail(err)
	}

	meta := &index.DocumentMetadata{
		DocID:       docID,
		Path:        p,
		Title:       title,
		Description: description(chunks),
		Category:    cat,
		Tags:        doc.Tags,
		WordCount:   len(strings.Fields(doc.Body)),
		ChunkCount:  len(chunks),
		ContentHash: hash,
		LastIndexed: now,
	}
	if err := o.deps.Metadata.Upsert(dbctx.Context{Ctx: ctx}, meta); err != nil {
		return fail(fmt.Errorf("save metadata: %w", err))
	}

	n := len(chunks)
	out.result.Status = index.DocIndexed
	out.result.ChunksCreated = &n
	out.chunks = n
	return out
}

// documentTitle prefers the supplied title, then the first heading, then the
// file name.
func documentTitle(doc index.Document, chunks []chunker.Chunk) string {
	if t := strings.TrimSpace(doc.Title); t != "" {
		return t
	}
	for _, ch := range chunks {
		if ch.SectionName != "" {
			return ch.SectionName
		}
	}
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(doc.Path), "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

func description(chunks []chunker.Chunk) string {
	if len(chunks) == 0 {
		return ""
	}
	first, _, _ := strings.Cut(chunks[0].Text, "\n\n")
	first = strings.Join(strings.Fields(first), " ")
	if utf8.RuneCountInString(first) <= descriptionMaxRunes {
		return first
	}
	return string([]rune(first)[:descriptionMaxRunes])
}
