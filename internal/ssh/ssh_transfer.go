// internal/ssh/ssh_transfer.go

package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	apperr "sshDeck/internal/error"
	"sshDeck/internal/models"
	"sshDeck/internal/utils"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// TransferState to postęp jednego transferu. Zapisuje tylko wątek SFTP,
// interfejs wyłącznie czyta.
type TransferState struct {
	name   string
	upload bool

	total       atomic.Int64
	transferred atomic.Int64
	done        atomic.Bool
	failed      atomic.Bool
}

func NewTransferState(name string, upload bool) *TransferState {
	return &TransferState{name: name, upload: upload}
}

func (t *TransferState) Name() string       { return t.name }
func (t *TransferState) IsUpload() bool     { return t.upload }
func (t *TransferState) Total() int64       { return t.total.Load() }
func (t *TransferState) Transferred() int64 { return t.transferred.Load() }
func (t *TransferState) Done() bool         { return t.done.Load() }
func (t *TransferState) Failed() bool       { return t.failed.Load() }

// Fraction zwraca postęp w zakresie 0..1; 0 gdy rozmiar nie jest jeszcze znany
func (t *TransferState) Fraction() float64 {
	total := t.total.Load()
	if total <= 0 {
		if t.done.Load() && !t.failed.Load() {
			return 1
		}
		return 0
	}
	f := float64(t.transferred.Load()) / float64(total)
	if f > 1 {
		return 1
	}
	return f
}

func (t *TransferState) finish(err error) {
	if err != nil {
		t.failed.Store(true)
	}
	t.done.Store(true)
}

type RequestKind int

const (
	RequestListDir RequestKind = iota
	RequestDownload
	RequestUpload
	RequestMkdir
	RequestRemove
	RequestRename
)

func (k RequestKind) String() string {
	switch k {
	case RequestListDir:
		return "list"
	case RequestDownload:
		return "download"
	case RequestUpload:
		return "upload"
	case RequestMkdir:
		return "mkdir"
	case RequestRemove:
		return "remove"
	case RequestRename:
		return "rename"
	}
	return fmt.Sprintf("RequestKind(%d)", int(k))
}

// SftpRequest to żądanie dla wątku SFTP. Znaczenie pól zależy od Kind:
// Path dla ListDir/Mkdir/Remove, Remote+Local dla transferów, From+To dla Rename.
type SftpRequest struct {
	Kind     RequestKind
	Path     string
	Remote   string
	Local    string
	From     string
	To       string
	Progress *TransferState
}

type ResponseKind int

const (
	ResponseListing ResponseKind = iota
	ResponseSuccess
	ResponseError
)

type SftpResponse struct {
	Kind    ResponseKind
	Dir     string
	Entries []models.SftpEntry
	Message string
	Err     error
}

// SftpEngine obsługuje kolejkę żądań jednym wątkiem na jednym kanale
// podsystemu sftp. Żądania wykonywane są ściśle w kolejności.
type SftpEngine struct {
	connector *Connector
	host      models.Host
	opts      options
	log       zerolog.Logger

	requests  *Queue[SftpRequest]
	responses *Queue[SftpResponse]

	alive   atomic.Bool
	started atomic.Bool
	errs    errorSlot
	cancel  context.CancelFunc
	done    chan struct{}

	mu  sync.Mutex
	cwd string
}

func NewSftpEngine(connector *Connector, host models.Host, opts ...Option) *SftpEngine {
	o := newOptions(opts)
	return &SftpEngine{
		connector: connector,
		host:      host,
		opts:      o,
		log:       o.logger.With().Str("component", "sftp").Str("host", host.Address).Logger(),
		requests:  NewQueue[SftpRequest](),
		responses: NewQueue[SftpResponse](),
		done:      make(chan struct{}),
	}
}

func (e *SftpEngine) Start(ctx context.Context) {
	if !e.started.CompareAndSwap(false, true) {
		return
	}
	ctx, e.cancel = context.WithCancel(ctx)
	e.alive.Store(true)
	go e.run(ctx)
}

// Submit kolejkuje żądanie; false gdy silnik został zamknięty
func (e *SftpEngine) Submit(req SftpRequest) bool {
	return e.requests.Push(req)
}

func (e *SftpEngine) ListDir(p string) bool {
	return e.Submit(SftpRequest{Kind: RequestListDir, Path: p})
}

// Download kolejkuje pobranie pliku i zwraca uchwyt postępu
func (e *SftpEngine) Download(remote, local string) *TransferState {
	st := NewTransferState(path.Base(remote), false)
	if !e.Submit(SftpRequest{Kind: RequestDownload, Remote: remote, Local: local, Progress: st}) {
		st.finish(errors.New("engine closed"))
	}
	return st
}

// Upload kolejkuje wysłanie pliku i zwraca uchwyt postępu
func (e *SftpEngine) Upload(local, remote string) *TransferState {
	st := NewTransferState(filepath.Base(local), true)
	if !e.Submit(SftpRequest{Kind: RequestUpload, Remote: remote, Local: local, Progress: st}) {
		st.finish(errors.New("engine closed"))
	}
	return st
}

func (e *SftpEngine) Mkdir(p string) bool {
	return e.Submit(SftpRequest{Kind: RequestMkdir, Path: p})
}

func (e *SftpEngine) Remove(p string) bool {
	return e.Submit(SftpRequest{Kind: RequestRemove, Path: p})
}

func (e *SftpEngine) Rename(from, to string) bool {
	return e.Submit(SftpRequest{Kind: RequestRename, From: from, To: to})
}

// Responses zwraca odpowiedzi zebrane od ostatniego wywołania
func (e *SftpEngine) Responses() []SftpResponse {
	return e.responses.Drain()
}

func (e *SftpEngine) ResponsesReady() <-chan struct{} {
	return e.responses.Notify()
}

// CurrentDir zwraca ostatnio wylistowany katalog
func (e *SftpEngine) CurrentDir() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cwd
}

func (e *SftpEngine) IsAlive() bool {
	return e.alive.Load()
}

func (e *SftpEngine) TakeError() error {
	return e.errs.Take()
}

func (e *SftpEngine) Done() <-chan struct{} {
	return e.done
}

// Close zamyka kolejkę żądań. Wątek obsługuje to, co już w niej jest,
// i kończy pracę; przerwanie w trakcie daje anulowanie kontekstu z Start.
func (e *SftpEngine) Close() {
	e.requests.Close()
	if e.started.CompareAndSwap(false, true) {
		// Wątek nigdy nie ruszył
		e.failPending(nil)
		e.responses.Close()
		close(e.done)
	}
}

func (e *SftpEngine) run(ctx context.Context) {
	defer close(e.done)
	defer e.responses.Close()
	defer e.alive.Store(false)
	defer e.cancel()

	var stopErr error
	defer func() { e.failPending(stopErr) }()

	client, err := e.connector.Connect(ctx, &e.host)
	if err != nil {
		stopErr = err
		e.report(err)
		return
	}
	defer client.Close()

	sc, err := openSftp(client)
	if err != nil {
		stopErr = err
		e.report(err)
		return
	}
	defer sc.Close()

	start := e.opts.startDir
	if start == "" {
		if start, err = sc.Getwd(); err != nil || start == "" {
			start = "/"
		}
	}
	e.log.Info().Str("dir", start).Msg("sftp ready")
	e.listDir(sc, start)

	for {
		batch := e.requests.Drain()
		for i, req := range batch {
			if ctx.Err() != nil {
				stopErr = ctx.Err()
				failRequests(batch[i:], stopErr)
				return
			}
			e.handle(sc, req)
		}
		if e.requests.Closed() && e.requests.Len() == 0 {
			e.log.Debug().Msg("sftp queue closed")
			return
		}
		select {
		case <-e.requests.Notify():
		case <-ctx.Done():
			stopErr = ctx.Err()
			return
		}
	}
}

// failPending zamyka kolejkę i kończy uchwyty postępu żądań, których
// wątek już nie obsłuży
func (e *SftpEngine) failPending(cause error) {
	e.requests.Close()
	failRequests(e.requests.Drain(), cause)
}

func failRequests(reqs []SftpRequest, cause error) {
	for _, req := range reqs {
		if req.Progress != nil {
			req.Progress.finish(apperr.New(apperr.TransferError, "sftp engine stopped", cause))
		}
	}
}

// openSftp otwiera kanał sesji z podsystemem sftp i klienta na jego strumieniach
func openSftp(client *ssh.Client) (*sftp.Client, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, apperr.New(apperr.ChannelError, "failed to open session channel", err)
	}
	w, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return nil, apperr.New(apperr.ChannelError, "failed to attach sftp stdin", err)
	}
	r, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, apperr.New(apperr.ChannelError, "failed to attach sftp stdout", err)
	}
	if err := session.RequestSubsystem("sftp"); err != nil {
		session.Close()
		return nil, apperr.New(apperr.ChannelError, "sftp subsystem request failed", err)
	}
	sc, err := sftp.NewClientPipe(r, w)
	if err != nil {
		session.Close()
		return nil, apperr.New(apperr.ChannelError, "failed to create SFTP client", err)
	}
	return sc, nil
}

func (e *SftpEngine) handle(sc *sftp.Client, req SftpRequest) {
	e.log.Debug().Str("kind", req.Kind.String()).Msg("sftp request")
	var (
		msg string
		err error
	)
	switch req.Kind {
	case RequestListDir:
		e.listDir(sc, req.Path)
		return
	case RequestDownload:
		err = e.download(sc, req.Remote, req.Local, req.Progress)
		msg = "OK: get " + path.Base(req.Remote)
	case RequestUpload:
		err = e.upload(sc, req.Local, req.Remote, req.Progress)
		msg = "OK: put " + filepath.Base(req.Local)
	case RequestMkdir:
		if err = sc.Mkdir(req.Path); err != nil {
			err = apperr.New(apperr.TransferError, fmt.Sprintf("mkdir %s failed", req.Path), err)
		}
		msg = "OK: mkdir " + req.Path
	case RequestRemove:
		err = removeRemote(sc, req.Path)
		msg = "OK: rm " + req.Path
	case RequestRename:
		if err = sc.Rename(req.From, req.To); err != nil {
			err = apperr.New(apperr.TransferError, fmt.Sprintf("rename %s failed", req.From), err)
		}
		msg = fmt.Sprintf("OK: mv %s -> %s", req.From, req.To)
	default:
		err = apperr.New(apperr.ValidationError, fmt.Sprintf("unknown sftp request %v", req.Kind), nil)
	}

	if err != nil {
		e.report(err)
		return
	}
	e.log.Info().Str("kind", req.Kind.String()).Msg(msg)
	e.responses.Push(SftpResponse{Kind: ResponseSuccess, Message: msg})
	e.listDir(sc, e.CurrentDir())
}

// report zapisuje błąd; wątek działa dalej
func (e *SftpEngine) report(err error) {
	e.log.Warn().Err(err).Msg("sftp request failed")
	e.errs.Set(err)
	e.responses.Push(SftpResponse{Kind: ResponseError, Message: err.Error(), Err: err})
}

func (e *SftpEngine) listDir(sc *sftp.Client, dir string) {
	infos, err := sc.ReadDir(dir)
	if err != nil {
		e.report(apperr.New(apperr.TransferError, fmt.Sprintf("failed to list %s", dir), err))
		return
	}
	e.mu.Lock()
	e.cwd = dir
	e.mu.Unlock()
	e.responses.Push(SftpResponse{Kind: ResponseListing, Dir: dir, Entries: buildEntries(dir, infos)})
}

// buildEntries pomija "." i "..", katalogi idą przed plikami, dalej po nazwie
func buildEntries(dir string, infos []os.FileInfo) []models.SftpEntry {
	entries := make([]models.SftpEntry, 0, len(infos))
	for _, fi := range infos {
		name := fi.Name()
		if name == "." || name == ".." {
			continue
		}
		entries = append(entries, models.SftpEntry{
			Name:    name,
			Path:    utils.JoinRemote(dir, name),
			IsDir:   fi.IsDir(),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// removeRemote próbuje usunąć plik, a po niepowodzeniu katalog
func removeRemote(sc *sftp.Client, p string) error {
	if err := sc.Remove(p); err == nil {
		return nil
	}
	if err := sc.RemoveDirectory(p); err != nil {
		return apperr.New(apperr.TransferError, fmt.Sprintf("rm %s failed", p), err)
	}
	return nil
}

func (e *SftpEngine) download(sc *sftp.Client, remote, local string, st *TransferState) (err error) {
	if st == nil {
		st = NewTransferState(path.Base(remote), false)
	}
	defer func() { st.finish(err) }()

	src, err := sc.Open(remote)
	if err != nil {
		return apperr.New(apperr.TransferError, fmt.Sprintf("failed to open remote file %s", remote), err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return apperr.New(apperr.TransferError, "failed to get file info", err)
	}
	st.total.Store(info.Size())

	if dir := filepath.Dir(local); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return apperr.New(apperr.TransferError, fmt.Sprintf("failed to create %s", dir), err)
		}
	}
	dst, err := os.Create(local)
	if err != nil {
		return apperr.New(apperr.TransferError, fmt.Sprintf("failed to create local file %s", local), err)
	}
	defer dst.Close()

	if err := copyChunks(dst, src, e.opts.chunkSize, st); err != nil {
		return err
	}
	if err := dst.Sync(); err != nil {
		return apperr.New(apperr.TransferError, "failed to sync local file", err)
	}
	return nil
}

func (e *SftpEngine) upload(sc *sftp.Client, local, remote string, st *TransferState) (err error) {
	if st == nil {
		st = NewTransferState(filepath.Base(local), true)
	}
	defer func() { st.finish(err) }()

	src, err := os.Open(local)
	if err != nil {
		return apperr.New(apperr.TransferError, fmt.Sprintf("failed to open local file %s", local), err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return apperr.New(apperr.TransferError, "failed to get file info", err)
	}
	st.total.Store(info.Size())

	dst, err := sc.Create(remote)
	if err != nil {
		return apperr.New(apperr.TransferError, fmt.Sprintf("failed to create remote file %s", remote), err)
	}

	return copyAndClose(dst, src, e.opts.chunkSize, st)
}

// copyAndClose kopiuje do pliku zdalnego; błąd zamknięcia oznacza, że
// serwer mógł nie zapisać końcówki danych
func copyAndClose(dst io.WriteCloser, src io.Reader, chunkSize int, st *TransferState) error {
	if err := copyChunks(dst, src, chunkSize, st); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return apperr.New(apperr.TransferError, "failed to close remote file", err)
	}
	return nil
}

// copyChunks kopiuje kawałkami i po każdym kawałku aktualizuje postęp
func copyChunks(dst io.Writer, src io.Reader, chunkSize int, st *TransferState) error {
	buf := make([]byte, chunkSize)
	for {
		n, err := io.ReadFull(src, buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return apperr.New(apperr.TransferError, "write failed", werr)
			}
			st.transferred.Add(int64(n))
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return apperr.New(apperr.TransferError, "read failed", err)
		}
	}
}
