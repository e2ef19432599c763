package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-catalog/library"
)

// run executes the root command against dataFile and returns its stdout.
func run(t *testing.T, dataFile, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := execute(context.Background(), dataFile, strings.NewReader(stdin), &out, args...)
	return out.String(), err
}

func execute(ctx context.Context, dataFile string, in io.Reader, out io.Writer, args ...string) error {
	root := NewRootCmd()
	root.SetOut(out)
	root.SetErr(io.Discard)
	root.SetIn(in)
	root.SetArgs(append([]string{"--data", dataFile}, args...))
	return root.ExecuteContext(ctx)
}

func mustRun(t *testing.T, dataFile string, args ...string) string {
	t.Helper()
	out, err := run(t, dataFile, "", args...)
	require.NoError(t, err, "library %s", strings.Join(args, " "))
	return out
}

func tempData(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return filepath.Join(dir, "library_data.json")
}

func TestBookAndMemberCommands(t *testing.T) {
	data := tempData(t)

	out := mustRun(t, data, "book", "add", "--isbn", "111", "--title", "Dune", "--author", "Frank Herbert", "--stock", "2")
	assert.Equal(t, "Book 111 added successfully!\n", out)
	mustRun(t, data, "book", "add", "--isbn", "222", "--title", "Emma", "--stock", "0")
	mustRun(t, data, "member", "add", "--id", "M1", "--name", "Alice")

	out = mustRun(t, data, "book", "list")
	assert.Contains(t, out, "Dune")
	assert.Contains(t, out, "Emma")

	out = mustRun(t, data, "book", "list", "--available")
	assert.Contains(t, out, "Dune")
	assert.NotContains(t, out, "Emma")

	out = mustRun(t, data, "member", "list")
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "None")

	out = mustRun(t, data, "book", "delete", "222")
	assert.Equal(t, "Deleted 1 book(s) with ISBN 222.\n", out)
	out = mustRun(t, data, "member", "remove", "nobody")
	assert.Equal(t, "Removed 0 member(s) with ID nobody.\n", out)
}

func TestMemberAddGeneratesID(t *testing.T) {
	data := tempData(t)
	out := mustRun(t, data, "member", "add", "--name", "Bob")
	assert.Regexp(t, `^Member [0-9a-f-]{36} registered successfully!\n$`, out)
}

func TestIssueReturnAndLog(t *testing.T) {
	data := tempData(t)
	mustRun(t, data, "book", "add", "--isbn", "111", "--title", "Dune", "--stock", "1")
	mustRun(t, data, "member", "add", "--id", "M1", "--name", "Alice")

	assert.Equal(t, "Book issued successfully!\n", mustRun(t, data, "issue", "M1", "111"))

	_, err := run(t, data, "", "issue", "M1", "111")
	assert.EqualError(t, err, "Issue failed: no copies left in stock.")
	_, err = run(t, data, "", "issue", "M9", "111")
	assert.EqualError(t, err, "Issue failed: no member with that ID.")

	out := mustRun(t, data, "member", "list")
	assert.Contains(t, out, "111")

	out = mustRun(t, data, "return", "M1", "111")
	assert.Equal(t, "Book returned successfully! Overdue by 0 days.\n", out)

	_, err = run(t, data, "", "return", "M1", "111")
	assert.ErrorIs(t, err, library.ErrLoanNotFound)

	out = mustRun(t, data, "transactions")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Alice borrowed Dune on "))
	assert.True(t, strings.HasPrefix(lines[1], "Alice returned Dune on "))
}

func TestEmptyLibraryListings(t *testing.T) {
	data := tempData(t)
	assert.Equal(t, "No books in library.\n", mustRun(t, data, "book", "list"))
	assert.Equal(t, "No members registered.\n", mustRun(t, data, "member", "list"))
	assert.Equal(t, "No transactions recorded yet.\n", mustRun(t, data, "log"))
}

func TestSQLiteBackend(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	db := filepath.Join(dir, "library.db")

	mustRun(t, db, "--backend", "sqlite", "book", "add", "--isbn", "111", "--title", "Dune")
	mustRun(t, db, "--backend", "sqlite", "member", "add", "--id", "M1", "--name", "Alice")
	mustRun(t, db, "--backend", "sqlite", "issue", "M1", "111")

	out := mustRun(t, db, "--backend", "sqlite", "member", "list")
	assert.Contains(t, out, "111")
}

func TestImportAndExport(t *testing.T) {
	data := tempData(t)
	dir := filepath.Dir(data)

	src := filepath.Join(dir, "incoming.jsonl")
	require.NoError(t, os.WriteFile(src, []byte(`{"isbn": "111", "title": "Dune", "stock": 2}
{"isbn": "", "title": "Nameless", "stock": 1}
{"isbn": "222", "title": "Emma", "stock": 0}
`), 0o644))

	out, err := run(t, data, "", "import", src, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully imported: 2 books")
	_, statErr := os.Stat(data)
	assert.True(t, os.IsNotExist(statErr), "dry run must not write the data file")

	out = mustRun(t, data, "import", src)
	assert.Contains(t, out, "Import complete!")
	assert.Contains(t, out, "Successfully imported: 2 books")
	assert.Contains(t, out, "Errors: 1")

	dst := filepath.Join(dir, "available.parquet")
	out = mustRun(t, data, "export", dst, "--available")
	assert.Equal(t, "Exported 1 books to "+dst+"\n", out)

	books, err := library.ReadBooks(dst)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Dune", books[0].Title)
}

func TestImportNothingFails(t *testing.T) {
	data := tempData(t)
	src := filepath.Join(filepath.Dir(data), "bad.json")
	require.NoError(t, os.WriteFile(src, []byte(`[{"title": "No ISBN"}]`), 0o644))

	_, err := run(t, data, "", "import", src)
	assert.EqualError(t, err, "no books imported")
}

func TestShellSession(t *testing.T) {
	data := tempData(t)
	script := strings.Join([]string{
		"1", "111", "Dune", "Frank Herbert", "SF", "1",
		"3", "M1", "Alice", "alice@example.com", "standard",
		"5", "M1", "111",
		"5", "M1", "111",
		"bogus",
		"8",
		"10",
	}, "\n") + "\n"

	out, err := run(t, data, script, "shell")
	require.NoError(t, err)
	assert.Contains(t, out, "Book added successfully!")
	assert.Contains(t, out, "Member registered successfully!")
	assert.Contains(t, out, "Book issued successfully!")
	assert.Contains(t, out, "Issue failed: no copies left in stock.")
	assert.Contains(t, out, "Unknown choice.")
	assert.Contains(t, out, "Dune")
	assert.True(t, strings.HasSuffix(out, "Data saved. Goodbye!\n"))

	out = mustRun(t, data, "member", "list")
	assert.Contains(t, out, "111")
}

func TestShellSavesOnEndOfInput(t *testing.T) {
	data := tempData(t)
	out, err := run(t, data, "3\nM1\nAlice\n\n\n", "shell")
	require.NoError(t, err)
	assert.Contains(t, out, "Data saved. Goodbye!")

	assert.Contains(t, mustRun(t, data, "member", "list"), "Alice")
}

func TestShellRejectsBadStock(t *testing.T) {
	data := tempData(t)
	out, err := run(t, data, "1\n111\nDune\n\n\nlots\n", "shell")
	require.NoError(t, err)
	assert.Contains(t, out, "Invalid stock: lots")
	assert.Equal(t, "No books in library.\n", mustRun(t, data, "book", "list"))
}

func TestUnknownBackendRejected(t *testing.T) {
	data := tempData(t)
	_, err := run(t, data, "", "--backend", "mongo", "book", "list")
	assert.ErrorContains(t, err, "unknown backend")
}

// idleInput serves lines and then blocks like a terminal nobody is typing at.
type idleInput struct {
	lines   []string
	release <-chan struct{}
}

func (r *idleInput) Read(p []byte) (int, error) {
	if len(r.lines) == 0 {
		<-r.release
		return 0, io.EOF
	}
	n := copy(p, r.lines[0]+"\n")
	r.lines = r.lines[1:]
	return n, nil
}

// cancelOn cancels once the output contains marker.
type cancelOn struct {
	bytes.Buffer
	marker string
	cancel context.CancelFunc
}

func (w *cancelOn) Write(p []byte) (int, error) {
	n, err := w.Buffer.Write(p)
	if strings.Contains(w.String(), w.marker) {
		w.cancel()
	}
	return n, err
}

func TestShellSavesWhenInterrupted(t *testing.T) {
	data := tempData(t)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := &idleInput{lines: []string{"1", "111", "Dune", "Herbert", "SF", "3"}, release: release}
	out := &cancelOn{marker: "Book added successfully!", cancel: cancel}

	err := execute(ctx, data, in, out, "shell")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Data saved. Goodbye!")

	_, statErr := os.Stat(data)
	require.NoError(t, statErr, "interrupted session must still write the data file")
	assert.Contains(t, mustRun(t, data, "book", "list"), "Dune")
}

func TestShellStopsReadingOnceInterrupted(t *testing.T) {
	data := tempData(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	script := "3\nM1\nAlice\n\n\n10\n"
	out := &cancelOn{marker: "Member registered successfully!", cancel: cancel}

	err := execute(ctx, data, strings.NewReader(script), out, "shell")
	require.NoError(t, err)
	assert.Contains(t, mustRun(t, data, "member", "list"), "Alice")
}

func TestFlagsOverrideEnvBeforeValidation(t *testing.T) {
	data := tempData(t)
	t.Setenv("LIBRARY_BACKEND", "bogus")

	out, err := run(t, data, "", "--backend", "json", "book", "list")
	require.NoError(t, err)
	assert.Equal(t, "No books in library.\n", out)
}
