package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umlexport/internal/emitter"
	"umlexport/internal/models"
	"umlexport/internal/packager"
)

const libraryDiagram = `{
	"name": "Library System",
	"elements": [
		{"id": "a", "name": "Author", "type": "class", "attributes": ["+ id: Long", "+ name: String"]},
		{"id": "b", "name": "Book", "type": "class", "attributes": ["+ id: Long", "+ title: String"]}
	],
	"connections": [
		{"id": "e1", "type": "association", "source": "a", "target": "b", "sourceMultiplicity": "1", "targetMultiplicity": "*"}
	]
}`

type fakeDiagrams struct {
	diagrams map[uuid.UUID]*models.Diagram
	err      error
}

func (f *fakeDiagrams) GetByID(_ context.Context, id uuid.UUID) (*models.Diagram, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.diagrams[id], nil
}

type fakeExports struct {
	mu       sync.Mutex
	records  map[uuid.UUID]*models.Export
	outcomes map[uuid.UUID]models.ExportOutcome
}

func newFakeExports() *fakeExports {
	return &fakeExports{records: map[uuid.UUID]*models.Export{}, outcomes: map[uuid.UUID]models.ExportOutcome{}}
}

func (f *fakeExports) Create(_ context.Context, export *models.Export) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	export.Prepare()
	copied := *export
	f.records[export.ID] = &copied
	return nil
}

func (f *fakeExports) Finish(_ context.Context, id uuid.UUID, outcome models.ExportOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return errors.New("export not found")
	}
	rec.Status = outcome.Status
	f.outcomes[id] = outcome
	return nil
}

func (f *fakeExports) GetByID(_ context.Context, id uuid.UUID) (*models.Export, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[id], nil
}

type sink struct {
	bytes.Buffer
	filename string
}

func (s *sink) Start(filename string, _ int64) { s.filename = filename }

func newService(t *testing.T, diagrams DiagramStore, exports ExportLog, opts ExportOptions) *ExportService {
	t.Helper()
	em, err := emitter.New()
	require.NoError(t, err)
	pk := packager.New(packager.Config{WorkDir: t.TempDir()})
	svc, err := NewExportService(diagrams, exports, em, pk, opts)
	require.NoError(t, err)
	return svc
}

func requireStatus(t *testing.T, err error, status int) *ServiceError {
	t.Helper()
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, status, svcErr.Status)
	return svcErr
}

func TestExportInline(t *testing.T) {
	exports := newFakeExports()
	svc := newService(t, nil, exports, ExportOptions{ModelCacheSize: 8})
	out := &sink{}

	res, err := svc.ExportInline(context.Background(), []byte(libraryDiagram), out)
	require.NoError(t, err)

	assert.Equal(t, "spring-boot-library-system", res.ProjectName)
	assert.Equal(t, "spring-boot-library-system.zip", res.Filename)
	assert.Equal(t, "spring-boot-library-system.zip", out.filename)
	assert.Equal(t, int64(out.Len()), res.Size)
	assert.Equal(t, []byte("PK"), out.Bytes()[:2])

	outcome := exports.outcomes[res.ExportID]
	assert.Equal(t, models.ExportSucceeded, outcome.Status)
	assert.Equal(t, 2, outcome.ClassCount)
	assert.Equal(t, 1, outcome.RelationshipCount)
	assert.NoError(t, outcome.Err)
}

func TestExportInline_DefaultProjectName(t *testing.T) {
	svc := newService(t, nil, nil, ExportOptions{})
	res, err := svc.ExportInline(context.Background(),
		[]byte(`{"elements": [{"id": "a", "name": "Author", "type": "class"}]}`), &sink{})
	require.NoError(t, err)
	assert.Equal(t, "spring-boot-project", res.ProjectName)
}

func TestExportInline_InvalidDiagrams(t *testing.T) {
	exports := newFakeExports()
	svc := newService(t, nil, exports, ExportOptions{})

	for _, payload := range []string{
		``,
		`[1, 2]`,
		`{"elements": [`,
		`{"connections": []}`,
		`{"elements": [{"id": "n", "name": "Note", "type": "note"}]}`,
	} {
		out := &sink{}
		_, err := svc.ExportInline(context.Background(), []byte(payload), out)
		svcErr := requireStatus(t, err, http.StatusBadRequest)
		assert.NotNil(t, svcErr.PublicError(), payload)
		assert.Zero(t, out.Len(), "nothing may be streamed for %q", payload)
	}

	for _, outcome := range exports.outcomes {
		assert.Equal(t, models.ExportFailed, outcome.Status)
		assert.Error(t, outcome.Err)
	}
}

func TestExportInline_FailOnAmbiguity(t *testing.T) {
	svc := newService(t, nil, nil, ExportOptions{FailOnAmbiguity: true})
	_, err := svc.ExportInline(context.Background(), []byte(`{
		"elements": [{"id": "a", "name": "Author", "type": "class"}],
		"connections": [{"id": "e1", "type": "association", "source": "a", "target": "ghost", "sourceMultiplicity": "*", "targetMultiplicity": "1"}]
	}`), &sink{})
	requireStatus(t, err, http.StatusUnprocessableEntity)
}

func TestExportInline_StrictTypes(t *testing.T) {
	svc := newService(t, nil, nil, ExportOptions{StrictTypes: true})
	_, err := svc.ExportInline(context.Background(),
		[]byte(`{"elements": [{"id": "a", "name": "Author", "type": "class", "attributes": ["+ born: Planet"]}]}`), &sink{})
	requireStatus(t, err, http.StatusBadRequest)
}

func TestExportDiagram(t *testing.T) {
	id := uuid.New()
	diagrams := &fakeDiagrams{diagrams: map[uuid.UUID]*models.Diagram{
		id: {ID: id, Title: "Tienda v2", Content: json.RawMessage(libraryDiagram)},
	}}
	exports := newFakeExports()
	svc := newService(t, diagrams, exports, ExportOptions{})

	res, err := svc.ExportDiagram(context.Background(), id.String(), &sink{})
	require.NoError(t, err)
	assert.Equal(t, "spring-boot-tienda-v2", res.ProjectName)

	rec, err := svc.GetExport(context.Background(), res.ExportID.String())
	require.NoError(t, err)
	require.NotNil(t, rec.DiagramID)
	assert.Equal(t, id, *rec.DiagramID)
	assert.Equal(t, models.ExportSucceeded, rec.Status)
}

func TestExportDiagram_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := newService(t, nil, nil, ExportOptions{}).ExportDiagram(ctx, uuid.NewString(), &sink{})
	requireStatus(t, err, http.StatusServiceUnavailable)

	svc := newService(t, &fakeDiagrams{}, nil, ExportOptions{})
	_, err = svc.ExportDiagram(ctx, "not-a-uuid", &sink{})
	requireStatus(t, err, http.StatusBadRequest)

	_, err = svc.ExportDiagram(ctx, uuid.NewString(), &sink{})
	svcErr := requireStatus(t, err, http.StatusNotFound)
	assert.ErrorIs(t, svcErr, ErrDiagramNotFound)

	broken := newService(t, &fakeDiagrams{err: errors.New("connection refused")}, nil, ExportOptions{})
	_, err = broken.ExportDiagram(ctx, uuid.NewString(), &sink{})
	svcErr = requireStatus(t, err, http.StatusInternalServerError)
	assert.Nil(t, svcErr.PublicError())
}

func TestGetExport_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := newService(t, nil, nil, ExportOptions{}).GetExport(ctx, uuid.NewString())
	requireStatus(t, err, http.StatusServiceUnavailable)

	svc := newService(t, nil, newFakeExports(), ExportOptions{})
	_, err = svc.GetExport(ctx, "nope")
	requireStatus(t, err, http.StatusBadRequest)
	_, err = svc.GetExport(ctx, uuid.NewString())
	requireStatus(t, err, http.StatusNotFound)
}

func TestPreview(t *testing.T) {
	svc := newService(t, nil, nil, ExportOptions{})

	p, err := svc.Preview(context.Background(), []byte(libraryDiagram))
	require.NoError(t, err)

	assert.Equal(t, "spring-boot-library-system", p.ProjectName)
	require.Len(t, p.Classes, 2)
	book := p.Classes[1]
	assert.Equal(t, "Book", book.Name)
	assert.Equal(t, "books", book.Table)
	assert.Equal(t, []string{"id"}, book.PrimaryKey)
	assert.Equal(t, []string{"authorId"}, book.ForeignKeys)
	require.Len(t, p.Relationships, 1)
	assert.Equal(t, "e1", p.Relationships[0].EdgeID)
	assert.Empty(t, p.Warnings)
	assert.Contains(t, p.Files, "pom.xml")
	assert.Contains(t, p.Files, "src/main/java/com/example/demo/entity/Book.java")
}

func TestCompile_UsesCache(t *testing.T) {
	svc := newService(t, nil, nil, ExportOptions{ModelCacheSize: 4})

	first, err := svc.compile([]byte(libraryDiagram), "spring-boot-a")
	require.NoError(t, err)
	second, err := svc.compile([]byte(libraryDiagram), "spring-boot-a")
	require.NoError(t, err)
	assert.Same(t, first, second)

	other, err := svc.compile([]byte(libraryDiagram), "spring-boot-b")
	require.NoError(t, err)
	assert.NotSame(t, first, other)
	assert.Equal(t, "spring-boot-b", other.ProjectName)
}

func TestToServiceError(t *testing.T) {
	assert.Nil(t, toServiceError(nil))

	deadline := toServiceError(&packager.PackagingFailure{Stage: packager.StateCompressing, Err: context.DeadlineExceeded})
	assert.Equal(t, http.StatusGatewayTimeout, deadline.Status)

	packaging := toServiceError(&packager.PackagingFailure{Stage: packager.StateBuilding, Err: errors.New("disk full")})
	assert.Equal(t, http.StatusInternalServerError, packaging.Status)
	assert.Nil(t, packaging.PublicError())

	delivery := toServiceError(&packager.DeliveryFailure{Err: errors.New("broken pipe")})
	assert.True(t, IsDeliveryFailure(delivery))

	existing := &ServiceError{Status: http.StatusTeapot, Message: "tea"}
	assert.Same(t, existing, toServiceError(existing))
}
