package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/newslinker/internal/app"
	"github.com/JakeFAU/newslinker/internal/linker"
	"github.com/JakeFAU/newslinker/internal/storage/memory"
)

type fakeApp struct {
	runErr    error
	closed    bool
	ran       bool
	ingested  string
	dryRun    bool
	direction string
	result    app.IngestResult
}

func (f *fakeApp) Close()              { f.closed = true }
func (f *fakeApp) Logger() *zap.Logger { return zap.NewNop() }

func (f *fakeApp) Run(context.Context) error {
	f.ran = true
	return f.runErr
}

func (f *fakeApp) Ingest(_ context.Context, r io.Reader, dryRun bool) (app.IngestResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return app.IngestResult{}, err
	}
	f.ingested = string(data)
	f.dryRun = dryRun
	return f.result, nil
}

func (f *fakeApp) Migrate(_ context.Context, direction string) error {
	f.direction = direction
	return nil
}

// execute runs the root command with fake injected; newApp is package state,
// so these tests do not run in parallel.
func execute(t *testing.T, fake *fakeApp, stdin string, args ...string) (string, error) {
	t.Helper()
	orig := newApp
	t.Cleanup(func() { newApp = orig })
	newApp = func(context.Context, string) (App, error) { return fake, nil }

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(bytes.NewBufferString(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunCommandRunsPipeline(t *testing.T) {
	fake := &fakeApp{}
	_, err := execute(t, fake, "", "run")
	require.NoError(t, err)
	require.True(t, fake.ran)
	require.True(t, fake.closed)
}

func TestRunCommandTreatsCancellationAsSuccess(t *testing.T) {
	fake := &fakeApp{runErr: context.Canceled}
	_, err := execute(t, fake, "", "run")
	require.NoError(t, err)
}

func TestRunCommandReportsFailure(t *testing.T) {
	fake := &fakeApp{runErr: errors.New("db down")}
	_, err := execute(t, fake, "", "run")
	require.ErrorContains(t, err, "db down")
}

func TestIngestCommandReadsStdin(t *testing.T) {
	fake := &fakeApp{result: app.IngestResult{Records: 1}}
	out, err := execute(t, fake, `{"text":"x"}`, "ingest")
	require.NoError(t, err)
	require.Equal(t, `{"text":"x"}`, fake.ingested)
	require.False(t, fake.dryRun)
	require.Contains(t, out, "records: 1")
}

func TestIngestCommandDryRunPrintsCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"text":"from file"}`), 0o600))

	cat := memory.NewCatalog()
	cat.AddEntity(linker.Person, linker.CatalogEntity{Name: "Ada Lovelace"})
	fake := &fakeApp{result: app.IngestResult{Records: 1, Catalog: cat}}

	out, err := execute(t, fake, "", "ingest", "--dry-run", path)
	require.NoError(t, err)
	require.True(t, fake.dryRun)
	require.Equal(t, `{"text":"from file"}`, fake.ingested)
	require.Contains(t, out, "people: 1")
	require.Contains(t, out, "links: 0")
}

func TestIngestCommandMissingFile(t *testing.T) {
	_, err := execute(t, &fakeApp{}, "", "ingest", filepath.Join(t.TempDir(), "missing.jsonl"))
	require.ErrorContains(t, err, "open input")
}

func TestMigrateCommandDefaultsToUp(t *testing.T) {
	fake := &fakeApp{}
	_, err := execute(t, fake, "", "migrate")
	require.NoError(t, err)
	require.Equal(t, "up", fake.direction)
}

func TestMigrateCommandRejectsUnknownDirection(t *testing.T) {
	fake := &fakeApp{}
	_, err := execute(t, fake, "", "migrate", "sideways")
	require.Error(t, err)
	require.Empty(t, fake.direction)
}

func TestAppFactoryFailureStopsCommand(t *testing.T) {
	orig := newApp
	t.Cleanup(func() { newApp = orig })
	newApp = func(context.Context, string) (App, error) { return nil, errors.New("bad config") }

	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"run"})
	require.ErrorContains(t, root.ExecuteContext(context.Background()), "bad config")
}

func TestResolveAppWithoutApp(t *testing.T) {
	_, err := resolveApp(context.Background())
	require.Error(t, err)
}
