package ssh

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"testing"
	"time"

	apperr "sshDeck/internal/error"
	"sshDeck/internal/models"
	"sshDeck/internal/sshtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInfo struct {
	name string
	dir  bool
	size int64
}

func (f fakeInfo) Name() string       { return f.name }
func (f fakeInfo) Size() int64        { return f.size }
func (f fakeInfo) Mode() os.FileMode  { return 0644 }
func (f fakeInfo) ModTime() time.Time { return time.Time{} }
func (f fakeInfo) IsDir() bool        { return f.dir }
func (f fakeInfo) Sys() any           { return nil }

func TestBuildEntries(t *testing.T) {
	infos := []os.FileInfo{
		fakeInfo{name: "zeta.txt"},
		fakeInfo{name: "."},
		fakeInfo{name: "alpha", dir: true},
		fakeInfo{name: ".."},
		fakeInfo{name: "beta.txt", size: 10},
		fakeInfo{name: "omega", dir: true},
	}

	entries := buildEntries("/", infos)
	var names, paths []string
	for _, e := range entries {
		names = append(names, e.Name)
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"alpha", "omega", "beta.txt", "zeta.txt"}, names)
	assert.Equal(t, []string{"/alpha", "/omega", "/beta.txt", "/zeta.txt"}, paths)

	nested := buildEntries("/home/user/", []os.FileInfo{fakeInfo{name: "f"}})
	assert.Equal(t, "/home/user/f", nested[0].Path)
}

func TestTransferStateFraction(t *testing.T) {
	st := NewTransferState("file.bin", true)
	assert.Equal(t, 0.0, st.Fraction())
	assert.True(t, st.IsUpload())
	assert.Equal(t, "file.bin", st.Name())

	st.total.Store(200)
	st.transferred.Store(50)
	assert.InDelta(t, 0.25, st.Fraction(), 1e-9)

	st.finish(nil)
	assert.True(t, st.Done())
	assert.False(t, st.Failed())

	empty := NewTransferState("empty", false)
	empty.finish(nil)
	assert.Equal(t, 1.0, empty.Fraction())
}

// sftpHarness zbiera odpowiedzi silnika w kolejności
type sftpHarness struct {
	t         *testing.T
	engine    *SftpEngine
	responses []SftpResponse
}

func startSftp(t *testing.T, opts ...Option) (*sftpHarness, *sshtest.Server) {
	t.Helper()
	srv := sshtest.Start(t, nil)
	e := NewSftpEngine(testConnector(), srv.Host(), opts...)
	e.Start(context.Background())
	t.Cleanup(e.Close)
	return &sftpHarness{t: t, engine: e}, srv
}

// next czeka na pierwszą odpowiedź spełniającą warunek i odrzuca wcześniejsze
func (h *sftpHarness) next(match func(SftpResponse) bool) SftpResponse {
	h.t.Helper()
	var found SftpResponse
	require.Eventually(h.t, func() bool {
		h.responses = append(h.responses, h.engine.Responses()...)
		for i, r := range h.responses {
			if match(r) {
				found = r
				h.responses = h.responses[i+1:]
				return true
			}
		}
		return false
	}, waitFor, tick)
	return found
}

func (h *sftpHarness) listing() SftpResponse {
	return h.next(func(r SftpResponse) bool { return r.Kind == ResponseListing })
}

func (h *sftpHarness) success(msg string) {
	h.t.Helper()
	h.next(func(r SftpResponse) bool { return r.Kind == ResponseSuccess && r.Message == msg })
}

func (h *sftpHarness) failure() SftpResponse {
	return h.next(func(r SftpResponse) bool { return r.Kind == ResponseError })
}

func entryNames(entries []models.SftpEntry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names
}

func writeTemp(t *testing.T, name string, size int) (string, []byte) {
	t.Helper()
	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path, data
}

func TestSftpStartsInWorkingDirectory(t *testing.T) {
	h, _ := startSftp(t)

	first := h.listing()
	assert.Equal(t, "/", first.Dir)
	assert.Empty(t, first.Entries)
	assert.Equal(t, "/", h.engine.CurrentDir())
	assert.True(t, h.engine.IsAlive())
}

func TestSftpUploadDownloadRoundTrip(t *testing.T) {
	const chunk = 1024
	h, _ := startSftp(t, WithChunkSize(chunk))
	h.listing()

	for _, size := range []int{100, 5*chunk + 17} {
		local, data := writeTemp(t, "payload.bin", size)
		remote := fmt.Sprintf("/payload-%d.bin", size)

		up := h.engine.Upload(local, remote)
		h.success("OK: put payload.bin")
		assert.True(t, up.Done())
		assert.False(t, up.Failed())
		assert.Equal(t, int64(size), up.Total())
		assert.Equal(t, up.Total(), up.Transferred())

		listing := h.listing()
		var found *models.SftpEntry
		for i := range listing.Entries {
			if listing.Entries[i].Path == remote {
				found = &listing.Entries[i]
			}
		}
		require.NotNil(t, found, "listing %v", entryNames(listing.Entries))
		assert.Equal(t, int64(size), found.Size)

		dest := filepath.Join(t.TempDir(), "nested", "dir", "copy.bin")
		down := h.engine.Download(remote, dest)
		h.success("OK: get " + path.Base(remote))
		h.listing()
		assert.Equal(t, int64(size), down.Total())
		assert.Equal(t, down.Total(), down.Transferred())
		assert.Equal(t, 1.0, down.Fraction())

		got, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(data, got))
	}
}

func TestSftpMutationsRelist(t *testing.T) {
	h, _ := startSftp(t)
	h.listing()

	require.True(t, h.engine.Mkdir("/docs"))
	h.success("OK: mkdir /docs")
	listing := h.listing()
	require.Len(t, listing.Entries, 1)
	assert.True(t, listing.Entries[0].IsDir)
	assert.Equal(t, "/docs", listing.Entries[0].Path)

	local, _ := writeTemp(t, "a.txt", 10)
	h.engine.Upload(local, "/a.txt")
	h.success("OK: put a.txt")
	assert.Equal(t, []string{"docs", "a.txt"}, entryNames(h.listing().Entries))

	require.True(t, h.engine.Rename("/a.txt", "/docs/b.txt"))
	h.success("OK: mv /a.txt -> /docs/b.txt")
	assert.Equal(t, []string{"docs"}, entryNames(h.listing().Entries))

	require.True(t, h.engine.ListDir("/docs"))
	nested := h.listing()
	assert.Equal(t, "/docs", nested.Dir)
	require.Len(t, nested.Entries, 1)
	assert.Equal(t, "/docs/b.txt", nested.Entries[0].Path)

	require.True(t, h.engine.Remove("/docs/b.txt"))
	h.success("OK: rm /docs/b.txt")
	assert.Empty(t, h.listing().Entries)

	// katalog usuwany przez drugą próbę
	require.True(t, h.engine.Remove("/docs"))
	h.success("OK: rm /docs")
	h.listing()
	require.True(t, h.engine.ListDir("/"))
	assert.Empty(t, h.listing().Entries)
}

func TestSftpFailureDoesNotStopWorker(t *testing.T) {
	h, _ := startSftp(t)
	h.listing()

	st := h.engine.Download("/missing.bin", filepath.Join(t.TempDir(), "missing.bin"))
	resp := h.failure()
	assert.True(t, apperr.IsType(resp.Err, apperr.TransferError))
	assert.True(t, st.Failed())
	assert.True(t, st.Done())
	assert.True(t, apperr.IsType(h.engine.TakeError(), apperr.TransferError))
	assert.NoError(t, h.engine.TakeError())

	up := h.engine.Upload(filepath.Join(t.TempDir(), "absent"), "/absent")
	h.failure()
	assert.True(t, up.Failed())

	require.True(t, h.engine.Mkdir("/after"))
	h.success("OK: mkdir /after")
	assert.True(t, h.engine.IsAlive())
}

func TestSftpCloseStopsWorker(t *testing.T) {
	h, _ := startSftp(t)
	h.listing()

	h.engine.Close()
	select {
	case <-h.engine.Done():
	case <-time.After(waitFor):
		t.Fatal("worker did not exit after Close")
	}
	assert.False(t, h.engine.IsAlive())
	assert.False(t, h.engine.Mkdir("/late"))

	st := h.engine.Upload("/dev/null", "/late")
	assert.True(t, st.Failed())
}

func TestSftpConnectFailure(t *testing.T) {
	srv := sshtest.Start(t, nil)
	host := srv.Host()
	host.Password = "wrong"

	e := NewSftpEngine(testConnector(), host)
	e.Start(context.Background())
	<-e.Done()

	assert.True(t, apperr.IsType(e.TakeError(), apperr.AuthError))
	responses := e.Responses()
	require.Len(t, responses, 1)
	assert.Equal(t, ResponseError, responses[0].Kind)
}

func waitDone(t *testing.T, e *SftpEngine) {
	t.Helper()
	select {
	case <-e.Done():
	case <-time.After(waitFor):
		t.Fatal("worker did not exit")
	}
}

func TestSftpCloseFinishesQueuedTransfers(t *testing.T) {
	h, _ := startSftp(t, WithChunkSize(512))
	h.listing()

	local, _ := writeTemp(t, "bulk.bin", 64*1024)
	var states []*TransferState
	for i := 0; i < 5; i++ {
		states = append(states, h.engine.Upload(local, fmt.Sprintf("/bulk-%d.bin", i)))
	}
	h.engine.Close()
	waitDone(t, h.engine)

	for i, st := range states {
		assert.True(t, st.Done(), "transfer %d", i)
		assert.False(t, st.Failed(), "transfer %d", i)
		assert.Equal(t, st.Total(), st.Transferred(), "transfer %d", i)
	}
}

func TestSftpCancelFinishesQueuedTransfers(t *testing.T) {
	srv := sshtest.Start(t, nil)
	e := NewSftpEngine(testConnector(), srv.Host(), WithChunkSize(512))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)

	local, _ := writeTemp(t, "bulk.bin", 512*1024)
	var states []*TransferState
	for i := 0; i < 5; i++ {
		states = append(states, e.Upload(local, fmt.Sprintf("/bulk-%d.bin", i)))
	}
	cancel()
	waitDone(t, e)

	for i, st := range states {
		assert.True(t, st.Done(), "transfer %d", i)
	}
	assert.False(t, e.Mkdir("/late"))
}

func TestSftpCloseBeforeStart(t *testing.T) {
	e := NewSftpEngine(testConnector(), models.NewHost("u", "127.0.0.1", 22))
	st := e.Upload("/dev/null", "/queued")
	require.False(t, st.Done())

	e.Close()
	waitDone(t, e)
	assert.True(t, st.Done())
	assert.True(t, st.Failed())

	e.Start(context.Background())
	assert.False(t, e.IsAlive())
	assert.Empty(t, e.Responses())
}

type closeFailWriter struct {
	bytes.Buffer
	closeErr error
}

func (w *closeFailWriter) Close() error { return w.closeErr }

func TestCopyAndCloseReportsCloseError(t *testing.T) {
	st := NewTransferState("f", true)
	w := &closeFailWriter{closeErr: fmt.Errorf("disk quota exceeded")}
	err := copyAndClose(w, bytes.NewReader([]byte("payload")), 4, st)
	assert.True(t, apperr.IsType(err, apperr.TransferError))
	assert.Equal(t, "payload", w.String())
	assert.Equal(t, int64(7), st.Transferred())

	ok := &closeFailWriter{}
	assert.NoError(t, copyAndClose(ok, bytes.NewReader([]byte("x")), 4, NewTransferState("g", true)))
}

func TestNonPositiveOptionsKeepDefaults(t *testing.T) {
	def := newOptions(nil)
	o := newOptions([]Option{WithChunkSize(0), WithPollInterval(0), WithAcceptTimeout(-time.Second)})
	assert.Equal(t, def.chunkSize, o.chunkSize)
	assert.Equal(t, def.pollInterval, o.pollInterval)
	assert.Equal(t, def.acceptTimeout, o.acceptTimeout)

	assert.Equal(t, 4096, newOptions([]Option{WithChunkSize(4096)}).chunkSize)
}
