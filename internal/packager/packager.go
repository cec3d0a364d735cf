package packager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog/log"

	"umlexport/internal/emitter"
)

// archiveTime is stamped on every entry so equal trees give equal archives.
var archiveTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Sink receives the archive. Start is called exactly once, before the first
// Write, and only when the archive is complete.
type Sink interface {
	io.Writer
	Start(filename string, size int64)
}

// Mirror keeps a copy of delivered archives in object storage.
type Mirror interface {
	PutArchive(ctx context.Context, key string, r io.Reader, size int64) error
}

type Config struct {
	WorkDir         string
	CompressTimeout time.Duration
	StreamTimeout   time.Duration
}

type Packager struct {
	cfg    Config
	mirror Mirror
	hook   func(id uuid.UUID, s State)
}

type Option func(*Packager)

// WithMirror uploads every archive after compression. Upload failures never
// fail the export.
func WithMirror(m Mirror) Option {
	return func(p *Packager) {
		p.mirror = m
	}
}

// WithStateHook observes every state transition.
func WithStateHook(hook func(id uuid.UUID, s State)) Option {
	return func(p *Packager) {
		p.hook = hook
	}
}

func New(cfg Config, opts ...Option) *Packager {
	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Join(os.TempDir(), "umlexport")
	}
	p := &Packager{cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type Request struct {
	ID          uuid.UUID
	ProjectName string
	Tree        *emitter.Tree
}

type Result struct {
	ID        uuid.UUID
	Filename  string
	Size      int64
	Entries   int
	MirrorKey string
}

type run struct {
	id      uuid.UUID
	project string
	state   State
	hook    func(uuid.UUID, State)
}

func (r *run) transition(to State) {
	log.Debug().
		Str("export_id", r.id.String()).
		Str("project", r.project).
		Str("from", r.state.String()).
		Str("to", to.String()).
		Msg("export state changed")
	r.state = to
	if r.hook != nil {
		r.hook(r.id, to)
	}
}

// Deliver writes the tree into a fresh workspace, compresses it and streams
// the archive into sink. The workspace is removed on every exit path.
func (p *Packager) Deliver(ctx context.Context, req Request, sink Sink) (res *Result, err error) {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	r := &run{id: req.ID, project: safeProjectName(req.ProjectName), hook: p.hook}
	r.transition(StateBuilding)

	if req.Tree == nil || len(req.Tree.Files) == 0 {
		r.transition(StateFailed)
		return nil, &PackagingFailure{Stage: StateBuilding, Err: errors.New("nothing to package")}
	}

	ws, err := newWorkspace(p.cfg.WorkDir, r.id, r.project)
	if err != nil {
		r.transition(StateFailed)
		return nil, &PackagingFailure{Stage: StateBuilding, Err: err}
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.transition(StateFailed)
			p.cleanup(r, ws)
			panic(rec)
		}
		if err != nil {
			r.transition(StateFailed)
		}
		p.cleanup(r, ws)
	}()

	if err := ws.write(req.Tree); err != nil {
		return nil, &PackagingFailure{Stage: StateBuilding, Err: err}
	}

	r.transition(StateCompressing)
	cctx, cancel := withTimeout(ctx, p.cfg.CompressTimeout)
	entries, err := compress(cctx, ws.projectDir(), ws.archivePath())
	cancel()
	if err != nil {
		return nil, &PackagingFailure{Stage: StateCompressing, Err: err}
	}

	res = &Result{ID: r.id, Filename: r.project + ".zip", Entries: entries}
	if p.mirror != nil {
		res.MirrorKey = p.mirrorArchive(ctx, r, ws)
	}

	r.transition(StateStreaming)
	size, err := p.stream(ctx, ws.archivePath(), res.Filename, sink)
	if err != nil {
		return nil, err
	}
	res.Size = size
	return res, nil
}

func (p *Packager) stream(ctx context.Context, archive, filename string, sink Sink) (int64, error) {
	f, err := os.Open(archive)
	if err != nil {
		return 0, &PackagingFailure{Stage: StateStreaming, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, &PackagingFailure{Stage: StateStreaming, Err: err}
	}

	sctx, cancel := withTimeout(ctx, p.cfg.StreamTimeout)
	defer cancel()

	sink.Start(filename, info.Size())
	n, err := io.Copy(&contextWriter{ctx: sctx, w: sink}, f)
	if err != nil {
		return n, &DeliveryFailure{Written: n, Err: err}
	}
	return n, nil
}

func (p *Packager) mirrorArchive(ctx context.Context, r *run, ws *workspace) string {
	key := fmt.Sprintf("exports/%s/%s.zip", r.id, r.project)
	logger := log.With().Str("export_id", r.id.String()).Str("key", key).Logger()

	f, err := os.Open(ws.archivePath())
	if err != nil {
		logger.Warn().Err(err).Msg("archive mirror skipped")
		return ""
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		logger.Warn().Err(err).Msg("archive mirror skipped")
		return ""
	}

	mctx, cancel := withTimeout(ctx, p.cfg.StreamTimeout)
	defer cancel()
	if err := p.mirror.PutArchive(mctx, key, f, info.Size()); err != nil {
		logger.Warn().Err(err).Msg("archive mirror failed")
		return ""
	}
	logger.Info().Int64("size", info.Size()).Msg("archive mirrored")
	return key
}

func (p *Packager) cleanup(r *run, ws *workspace) {
	if err := ws.remove(); err != nil {
		log.Error().Err(err).Str("export_id", r.id.String()).Str("workspace", ws.root).Msg("workspace cleanup failed")
	}
	r.transition(StateCleanedUp)
}

// compress zips srcDir into dst. Entries are walked in lexical order and
// directories get their own entries so empty ones survive.
func compress(ctx context.Context, srcDir, dst string) (int, error) {
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, fmt.Errorf("create archive: %w", err)
	}

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	entries := 0
	walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == srcDir {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}

		hdr := &zip.FileHeader{Name: filepath.ToSlash(rel), Modified: archiveTime}
		if d.IsDir() {
			hdr.Name += "/"
			hdr.SetMode(fs.ModeDir | 0o755)
			if _, err := zw.CreateHeader(hdr); err != nil {
				return err
			}
			entries++
			return nil
		}

		hdr.Method = zip.Deflate
		hdr.SetMode(0o644)
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		if err := copyFile(w, path); err != nil {
			return fmt.Errorf("add %s: %w", rel, err)
		}
		entries++
		return nil
	})

	if walkErr != nil {
		_ = zw.Close()
		_ = out.Close()
		return 0, walkErr
	}
	if err := zw.Close(); err != nil {
		_ = out.Close()
		return 0, fmt.Errorf("finish archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("close archive: %w", err)
	}
	return entries, nil
}

func copyFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// contextWriter stops a copy once ctx is done.
type contextWriter struct {
	ctx context.Context
	w   io.Writer
}

func (c *contextWriter) Write(b []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.w.Write(b)
}
