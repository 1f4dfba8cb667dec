package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WhiteShieldPT/docsearch-pt/internal/config"
	"github.com/WhiteShieldPT/docsearch-pt/internal/entity"
	"github.com/WhiteShieldPT/docsearch-pt/internal/extract"
	"github.com/WhiteShieldPT/docsearch-pt/internal/record"
	"github.com/WhiteShieldPT/docsearch-pt/internal/store"
	"github.com/WhiteShieldPT/docsearch-pt/internal/task"
)

// fileExtractor reads the file itself as its text. Good enough to
// exercise the pipeline without external tools.
type fileExtractor struct{}

func (fileExtractor) Extract(_ context.Context, path string) extract.Result {
	data, err := os.ReadFile(path)
	if err != nil {
		return extract.Result{}
	}
	return extract.Result{Text: string(data), Engine: extract.EngineNative, Pages: 1}
}

func newTestServer(t *testing.T) (*Server, *store.Store, *config.Config) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.NewMemOnly(logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.Default()
	cfg.Paths.DefaultFolder = t.TempDir()
	cfg.Paths.Extensions = []string{".pdf", ".txt"}

	srv := New(cfg, "", st, fileExtractor{}, nil, logger)
	return srv, st, cfg
}

func seedDocument(t *testing.T, st *store.Store, cfg *config.Config, name, text string) record.IndexRecord {
	t.Helper()
	path := filepath.Join(cfg.Paths.DefaultFolder, name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	rec := record.Build(path, int64(len(text)),
		extract.Result{Text: text, Engine: extract.EngineNative, Pages: 1},
		entity.Extract(text), time.Now())
	require.NoError(t, st.Upsert(context.Background(), rec))
	return rec
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var out map[string]any
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	}
	return rr, out
}

func waitForTerminal(t *testing.T, srv *Server, id string) task.Snapshot {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		snap, ok := srv.tasks.Get(id)
		require.True(t, ok)
		if snap.State.Terminal() {
			return snap
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("task %s did not finish", id)
	return task.Snapshot{}
}

// ===========================================================================
// Search
// ===========================================================================

func TestSearchReturnsSeededDocument(t *testing.T) {
	srv, st, cfg := newTestServer(t)
	seedDocument(t, st, cfg, "fatura_acme.pdf", "Fatura FT 2024/001 da ACME Unipessoal Lda, Total: 123,45 €")
	h := srv.Routes()

	rr, out := doJSON(t, h, http.MethodGet, "/api/search?universal=ACME", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	require.EqualValues(t, 1, out["total"])
	hits := out["hits"].([]any)
	require.Len(t, hits, 1)
	fields := hits[0].(map[string]any)["fields"].(map[string]any)
	assert.Equal(t, "fatura_acme.pdf", fields["filename"])
}

func TestSearchDegradesWhenStoreFails(t *testing.T) {
	srv, st, _ := newTestServer(t)
	require.NoError(t, st.Close())
	h := srv.Routes()

	rr, out := doJSON(t, h, http.MethodGet, "/api/search?universal=anything", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, out["message"])
	assert.Empty(t, out["hits"])
}

func TestSearchStructuredFilters(t *testing.T) {
	srv, st, cfg := newTestServer(t)
	seedDocument(t, st, cfg, "a.pdf", "Fatura FT 2024/010 NIF: 218940517 Total: 500,00 €")
	seedDocument(t, st, cfg, "b.pdf", "Recibo sem identificacao, Total: 10,00 €")
	h := srv.Routes()

	rr, out := doJSON(t, h, http.MethodGet, "/api/search?nif=218940517", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	require.EqualValues(t, 1, out["total"])
}

// ===========================================================================
// Ingestion lifecycle
// ===========================================================================

func TestIngestRunsToCompletion(t *testing.T) {
	srv, st, cfg := newTestServer(t)
	for _, name := range []string{"one.txt", "two.txt"} {
		path := filepath.Join(cfg.Paths.DefaultFolder, name)
		require.NoError(t, os.WriteFile(path, []byte("Fatura da Construtora Silva Lda"), 0o644))
	}
	h := srv.Routes()

	rr, out := doJSON(t, h, http.MethodPost, "/api/ingest", ingestRequest{})
	require.Equal(t, http.StatusAccepted, rr.Code)
	id := out["task_id"].(string)
	require.NotEmpty(t, id)

	snap := waitForTerminal(t, srv, id)
	assert.Equal(t, task.StateCompleted, snap.State)
	assert.Equal(t, 2, snap.Indexed)
	assert.Equal(t, 2, snap.Total)

	count, err := st.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	rr, out = doJSON(t, h, http.MethodGet, "/api/progress/"+id, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, string(task.StateCompleted), out["status"])
}

func TestIngestRejectsMissingFolder(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Routes()

	rr, _ := doJSON(t, h, http.MethodPost, "/api/ingest",
		ingestRequest{Folder: "/nonexistent/path"})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestProgressUnknownTask(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Routes()

	rr, out := doJSON(t, h, http.MethodGet, "/api/progress/no-such-task", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", out["status"])

	rr, out = doJSON(t, h, http.MethodGet, "/api/progress", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", out["status"])
}

func TestCancelUnknownTask(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Routes()

	rr, _ := doJSON(t, h, http.MethodPost, "/api/cancel/no-such-task", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// ===========================================================================
// Status and maintenance
// ===========================================================================

func TestStatusReportsDocumentCount(t *testing.T) {
	srv, st, cfg := newTestServer(t)
	seedDocument(t, st, cfg, "a.pdf", "algum texto")
	h := srv.Routes()

	rr, out := doJSON(t, h, http.MethodGet, "/api/status", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", out["status"])
	assert.EqualValues(t, 1, out["documents"])
	assert.EqualValues(t, 1, out["local_files"])
	assert.Equal(t, cfg.Paths.DefaultFolder, out["default_folder"])
}

func TestViewStreamsOriginalFile(t *testing.T) {
	srv, st, cfg := newTestServer(t)
	rec := seedDocument(t, st, cfg, "fatura.pdf", "conteudo original do ficheiro")
	h := srv.Routes()

	req := httptest.NewRequest(http.MethodGet, "/api/view/"+rec.ID, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "fatura.pdf")
	assert.Equal(t, "conteudo original do ficheiro", rr.Body.String())
}

func TestViewUnknownDocument(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Routes()

	rr, _ := doJSON(t, h, http.MethodGet, "/api/view/no-such-doc", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestViewRefusesFileOutsideFolder(t *testing.T) {
	srv, st, _ := newTestServer(t)

	outside := filepath.Join(t.TempDir(), "secreto.pdf")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))
	rec := record.Build(outside, 1,
		extract.Result{Text: "x", Engine: extract.EngineNative},
		entity.Extract("x"), time.Now())
	require.NoError(t, st.Upsert(context.Background(), rec))

	h := srv.Routes()
	rr, _ := doJSON(t, h, http.MethodGet, "/api/view/"+rec.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCleanupRemovesOrphans(t *testing.T) {
	srv, st, cfg := newTestServer(t)
	rec := seedDocument(t, st, cfg, "gone.pdf", "texto que vai desaparecer")
	seedDocument(t, st, cfg, "kept.pdf", "texto que fica")
	require.NoError(t, os.Remove(filepath.Join(cfg.Paths.DefaultFolder, "gone.pdf")))
	h := srv.Routes()

	rr, out := doJSON(t, h, http.MethodPost, "/api/cleanup", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 2, out["scanned"])
	assert.EqualValues(t, 1, out["removed"])

	exists, err := st.Exists(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

// ===========================================================================
// Folders and settings
// ===========================================================================

func TestFoldersListsTwoLevels(t *testing.T) {
	srv, _, cfg := newTestServer(t)
	base := cfg.Paths.DefaultFolder
	require.NoError(t, os.MkdirAll(filepath.Join(base, "2024", "janeiro"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(base, ".hidden"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(base, "2024", "janeiro", "too-deep"), 0o755))
	h := srv.Routes()

	rr, out := doJSON(t, h, http.MethodGet, "/api/folders", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	var folders []string
	for _, f := range out["folders"].([]any) {
		folders = append(folders, f.(string))
	}
	assert.Contains(t, folders, base)
	assert.Contains(t, folders, filepath.Join(base, "2024"))
	assert.Contains(t, folders, filepath.Join(base, "2024", "janeiro"))
	assert.NotContains(t, folders, filepath.Join(base, ".hidden"))
	assert.NotContains(t, folders, filepath.Join(base, "2024", "janeiro", "too-deep"))
}

func TestSetFolderPersists(t *testing.T) {
	srv, _, cfg := newTestServer(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	srv.cfgPath = cfgPath
	next := t.TempDir()
	h := srv.Routes()

	rr, out := doJSON(t, h, http.MethodPost, "/api/settings/folder", folderRequest{Folder: next})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, next, out["default_folder"])
	assert.Equal(t, next, cfg.Paths.DefaultFolder)
	_, err := os.Stat(cfgPath)
	assert.NoError(t, err)

	rr, out = doJSON(t, h, http.MethodGet, "/api/settings/folder", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, next, out["default_folder"])
}

func TestSetFolderRejectsMissingDir(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Routes()

	rr, _ := doJSON(t, h, http.MethodPost, "/api/settings/folder",
		folderRequest{Folder: "/does/not/exist"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = doJSON(t, h, http.MethodPost, "/api/settings/folder", folderRequest{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// ===========================================================================
// Upload
// ===========================================================================

func multipartUpload(t *testing.T, names map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range names {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadSavesAndIndexes(t *testing.T) {
	srv, st, cfg := newTestServer(t)
	h := srv.Routes()

	body, ctype := multipartUpload(t, map[string]string{
		"fatura.txt": "Fatura FT 2024/055 da Transportes Nunes",
		"notas.docx": "extensao nao suportada",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ctype)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))

	saved := out["saved"].([]any)
	require.Len(t, saved, 1)
	savedName := saved[0].(string)
	assert.True(t, strings.HasPrefix(savedName, "fatura__"))
	assert.True(t, strings.HasSuffix(savedName, ".txt"))
	assert.Len(t, out["rejected"].([]any), 1)

	_, err := os.Stat(filepath.Join(cfg.Paths.DefaultFolder, savedName))
	require.NoError(t, err)

	id := out["task_id"].(string)
	snap := waitForTerminal(t, srv, id)
	assert.Equal(t, task.StateCompleted, snap.State)
	assert.Equal(t, 1, snap.Indexed)

	count, err := st.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestUploadWithoutFiles(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Routes()

	body, ctype := multipartUpload(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ctype)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSafeUploadName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		stem string
		ext  string
	}{
		{name: "plain", in: "fatura.pdf", stem: "fatura", ext: ".pdf"},
		{name: "path stripped", in: "../../etc/passwd.pdf", stem: "passwd", ext: ".pdf"},
		{name: "windows path stripped", in: `C:\docs\fatura.PDF`, stem: "fatura", ext: ".pdf"},
		{name: "long stem capped", in: strings.Repeat("a", 200) + ".pdf", stem: strings.Repeat("a", 80), ext: ".pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := safeUploadName(tt.in)
			require.NotEmpty(t, got)
			assert.True(t, strings.HasPrefix(got, tt.stem+"__"), got)
			assert.True(t, strings.HasSuffix(got, tt.ext), got)
		})
	}

	assert.Empty(t, safeUploadName(""))
	assert.Empty(t, safeUploadName(".."))
}

// ===========================================================================
// Export and history
// ===========================================================================

func TestExportProducesSpreadsheet(t *testing.T) {
	srv, st, cfg := newTestServer(t)
	seedDocument(t, st, cfg, "fatura.pdf", "Fatura da ACME, Total: 99,90 €")
	h := srv.Routes()

	req := httptest.NewRequest(http.MethodGet, "/api/export?universal=ACME", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "documentos_")
	assert.NotZero(t, rr.Body.Len())
}

func TestHistoryWithoutJournal(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Routes()

	rr, out := doJSON(t, h, http.MethodGet, "/api/history", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, out["runs"])
}
