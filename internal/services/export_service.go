package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"umlexport/internal/compiler"
	"umlexport/internal/diagram"
	"umlexport/internal/emitter"
	"umlexport/internal/models"
	"umlexport/internal/packager"
	"umlexport/internal/utils"
)

// DiagramStore looks diagrams up by id. GetByID returns nil, nil for an
// unknown id.
type DiagramStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Diagram, error)
}

// ExportLog keeps the audit trail of export requests.
type ExportLog interface {
	Create(ctx context.Context, export *models.Export) error
	Finish(ctx context.Context, id uuid.UUID, outcome models.ExportOutcome) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Export, error)
}

type ExportOptions struct {
	StrictTypes     bool
	FailOnAmbiguity bool
	ModelCacheSize  int
}

type ExportService struct {
	diagrams DiagramStore
	exports  ExportLog
	emitter  *emitter.Emitter
	packager *packager.Packager
	models   *lru.Cache[string, *compiler.ResolvedModel]
	opts     ExportOptions
}

// NewExportService wires the export pipeline. diagrams and exports may be
// nil when no database is configured; only inline exports work then.
func NewExportService(
	diagrams DiagramStore,
	exports ExportLog,
	em *emitter.Emitter,
	pk *packager.Packager,
	opts ExportOptions,
) (*ExportService, error) {
	s := &ExportService{
		diagrams: diagrams,
		exports:  exports,
		emitter:  em,
		packager: pk,
		opts:     opts,
	}
	if opts.ModelCacheSize > 0 {
		cache, err := lru.New[string, *compiler.ResolvedModel](opts.ModelCacheSize)
		if err != nil {
			return nil, fmt.Errorf("create model cache: %w", err)
		}
		s.models = cache
	}
	return s, nil
}

type ExportResult struct {
	ExportID    uuid.UUID `json:"export_id"`
	ProjectName string    `json:"project_name"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	Warnings    int       `json:"warnings"`
}

type ClassSummary struct {
	Name        string   `json:"name"`
	Table       string   `json:"table"`
	PrimaryKey  []string `json:"primary_key"`
	Attributes  []string `json:"attributes"`
	ForeignKeys []string `json:"foreign_keys,omitempty"`
	Extends     string   `json:"extends,omitempty"`
}

// Preview is the compile-only view of an export.
type Preview struct {
	ProjectName   string                          `json:"project_name"`
	Classes       []ClassSummary                  `json:"classes"`
	Relationships []compiler.ResolvedRelationship `json:"relationships"`
	Warnings      []compiler.Warning              `json:"warnings"`
	Files         []string                        `json:"files"`
}

// ExportDiagram compiles a stored diagram and streams its project archive.
func (s *ExportService) ExportDiagram(ctx context.Context, rawID string, sink packager.Sink) (*ExportResult, error) {
	if s.diagrams == nil {
		return nil, toServiceError(ErrStoreUnavailable)
	}
	id, err := utils.ParseUUID(rawID)
	if err != nil {
		return nil, newServiceError(http.StatusBadRequest, "Invalid diagram id", err)
	}

	d, err := s.diagrams.GetByID(ctx, id)
	if err != nil {
		return nil, newServiceError(http.StatusInternalServerError, "Failed to load diagram", err)
	}
	if d == nil {
		return nil, toServiceError(fmt.Errorf("%w: %s", ErrDiagramNotFound, id))
	}

	return s.export(ctx, &id, d.Content, compiler.ProjectName(d.Title), sink)
}

// ExportInline compiles a diagram sent in the request body. An optional
// top-level "name" (or "title") names the project.
func (s *ExportService) ExportInline(ctx context.Context, payload []byte, sink packager.Sink) (*ExportResult, error) {
	return s.export(ctx, nil, payload, inlineProjectName(payload), sink)
}

// Preview compiles and renders without packaging anything.
func (s *ExportService) Preview(ctx context.Context, payload []byte) (*Preview, error) {
	model, err := s.compile(payload, inlineProjectName(payload))
	if err != nil {
		return nil, toServiceError(err)
	}
	tree, err := s.emitter.Emit(ctx, model)
	if err != nil {
		return nil, toServiceError(err)
	}

	p := &Preview{
		ProjectName: model.ProjectName,
		Warnings:    model.Warnings,
		Files:       append(tree.Paths(), tree.Dirs...),
	}
	for _, c := range model.Classes {
		summary := ClassSummary{
			Name:    c.Name,
			Table:   emitter.TableName(c.Name),
			Extends: c.Inheritance.ParentName,
		}
		for _, f := range c.Identity.Fields() {
			summary.PrimaryKey = append(summary.PrimaryKey, f.Name)
		}
		for _, a := range c.Attributes {
			summary.Attributes = append(summary.Attributes, a.Name+": "+a.JavaType())
			if a.IsForeignKey {
				summary.ForeignKeys = append(summary.ForeignKeys, a.Name)
			}
		}
		p.Classes = append(p.Classes, summary)
		p.Relationships = append(p.Relationships, c.Relationships...)
	}
	if p.Warnings == nil {
		p.Warnings = []compiler.Warning{}
	}
	if p.Relationships == nil {
		p.Relationships = []compiler.ResolvedRelationship{}
	}
	return p, nil
}

// GetExport returns one audit record.
func (s *ExportService) GetExport(ctx context.Context, rawID string) (*models.Export, error) {
	if s.exports == nil {
		return nil, toServiceError(ErrStoreUnavailable)
	}
	id, err := utils.ParseUUID(rawID)
	if err != nil {
		return nil, newServiceError(http.StatusBadRequest, "Invalid export id", err)
	}
	export, err := s.exports.GetByID(ctx, id)
	if err != nil {
		return nil, newServiceError(http.StatusInternalServerError, "Failed to load export", err)
	}
	if export == nil {
		return nil, toServiceError(fmt.Errorf("%w: %s", ErrExportNotFound, id))
	}
	return export, nil
}

func (s *ExportService) export(ctx context.Context, diagramID *uuid.UUID, payload []byte, projectName string, sink packager.Sink) (*ExportResult, error) {
	record := &models.Export{ID: uuid.New(), DiagramID: diagramID, ProjectName: projectName}
	logger := log.With().Str("export_id", record.ID.String()).Str("project", projectName).Logger()
	s.recordStart(ctx, record)

	outcome := models.ExportOutcome{Status: models.ExportFailed}
	defer func() {
		s.recordFinish(record.ID, outcome)
	}()

	model, err := s.compile(payload, projectName)
	if err != nil {
		outcome.Err = err
		logger.Info().Err(err).Msg("diagram rejected")
		return nil, toServiceError(err)
	}
	outcome.ClassCount = len(model.Classes)
	outcome.RelationshipCount = model.RelationshipCount()
	outcome.WarningCount = len(model.Warnings)
	for _, w := range model.Warnings {
		logger.Debug().Str("code", string(w.Code)).Str("edge", w.EdgeID).Bool("ambiguous", w.Ambiguous).Msg(w.Message)
	}

	tree, err := s.emitter.Emit(ctx, model)
	if err != nil {
		outcome.Err = err
		logger.Error().Err(err).Msg("emission failed")
		return nil, toServiceError(err)
	}

	res, err := s.packager.Deliver(ctx, packager.Request{ID: record.ID, ProjectName: model.ProjectName, Tree: tree}, sink)
	if err != nil {
		outcome.Err = err
		logger.Error().Err(err).Msg("packaging failed")
		return nil, toServiceError(err)
	}

	outcome.Status = models.ExportSucceeded
	outcome.ArchiveSize = res.Size
	outcome.MirrorKey = res.MirrorKey
	logger.Info().
		Int("classes", outcome.ClassCount).
		Int("relationships", outcome.RelationshipCount).
		Int("warnings", outcome.WarningCount).
		Int64("size", res.Size).
		Msg("export delivered")

	return &ExportResult{
		ExportID:    record.ID,
		ProjectName: model.ProjectName,
		Filename:    res.Filename,
		Size:        res.Size,
		Warnings:    len(model.Warnings),
	}, nil
}

// compile decodes and assembles a diagram. Models are immutable, so equal
// inputs share one cached model.
func (s *ExportService) compile(payload []byte, projectName string) (*compiler.ResolvedModel, error) {
	key := s.cacheKey(payload, projectName)
	if s.models != nil {
		if model, ok := s.models.Get(key); ok {
			return model, nil
		}
	}

	doc, err := diagram.Decode(payload)
	if err != nil {
		return nil, compiler.NewInputValidationError("invalid diagram document", err)
	}

	opts := compiler.Options{ProjectName: projectName, FailOnAmbiguity: s.opts.FailOnAmbiguity}
	if s.opts.StrictTypes {
		opts.UnknownTypes = compiler.StrictTypePolicy
	}
	model, err := compiler.Assemble(doc, opts)
	if err != nil {
		return nil, err
	}

	if s.models != nil {
		s.models.Add(key, model)
	}
	return model, nil
}

func (s *ExportService) cacheKey(payload []byte, projectName string) string {
	h := sha256.New()
	h.Write(payload)
	fmt.Fprintf(h, "\x00%s\x00strict=%t\x00fail=%t", projectName, s.opts.StrictTypes, s.opts.FailOnAmbiguity)
	return hex.EncodeToString(h.Sum(nil))
}

func (s *ExportService) recordStart(ctx context.Context, record *models.Export) {
	if s.exports == nil {
		return
	}
	if err := s.exports.Create(ctx, record); err != nil {
		log.Warn().Err(err).Str("export_id", record.ID.String()).Msg("failed to record export start")
	}
}

// recordFinish runs after the response is written, so it does not use the
// request context.
func (s *ExportService) recordFinish(id uuid.UUID, outcome models.ExportOutcome) {
	if s.exports == nil {
		return
	}
	if err := s.exports.Finish(context.Background(), id, outcome); err != nil {
		log.Warn().Err(err).Str("export_id", id.String()).Msg("failed to record export outcome")
	}
}

func inlineProjectName(payload []byte) string {
	var named struct {
		Name  string `json:"name"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(payload, &named); err != nil {
		return compiler.DefaultProjectName
	}
	return compiler.ProjectName(utils.FirstNonEmpty(named.Name, named.Title))
}
