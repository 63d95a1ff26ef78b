// internal/ssh/transfer.go

package ssh

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	apperr "sshDeck/internal/error"

	scp "github.com/bramvdbogaerde/go-scp"
	"golang.org/x/crypto/ssh"
)

// progressReader liczy przeczytane bajty w uchwycie postępu
type progressReader struct {
	io.Reader
	state *TransferState
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.Reader.Read(p)
	if n > 0 {
		pr.state.transferred.Add(int64(n))
	}
	return n, err
}

func (st *TransferState) passThru(r io.Reader, total int64) io.Reader {
	if total > 0 {
		st.total.Store(total)
	}
	return &progressReader{Reader: r, state: st}
}

// CopyToRemote wysyła plik protokołem scp; serwer musi mieć polecenie scp
func CopyToRemote(ctx context.Context, client *ssh.Client, local, remote string, st *TransferState) (err error) {
	if st == nil {
		st = NewTransferState(filepath.Base(local), true)
	}
	defer func() { st.finish(err) }()

	f, err := os.Open(local)
	if err != nil {
		return apperr.New(apperr.TransferError, fmt.Sprintf("failed to open local file %s", local), err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return apperr.New(apperr.TransferError, "failed to get file info", err)
	}
	if strings.HasSuffix(remote, "/") {
		remote += filepath.Base(local)
	}

	c, err := scp.NewClientBySSH(client)
	if err != nil {
		return apperr.New(apperr.ChannelError, "failed to create scp client", err)
	}
	perm := fmt.Sprintf("%04o", info.Mode().Perm())
	if err := c.CopyPassThru(ctx, f, remote, perm, info.Size(), st.passThru); err != nil {
		return apperr.New(apperr.TransferError, fmt.Sprintf("scp to %s failed", remote), err)
	}
	return nil
}

// CopyFromRemote pobiera plik protokołem scp, tworząc katalogi docelowe
func CopyFromRemote(ctx context.Context, client *ssh.Client, remote, local string, st *TransferState) (err error) {
	if st == nil {
		st = NewTransferState(path.Base(remote), false)
	}
	defer func() { st.finish(err) }()

	if fi, statErr := os.Stat(local); statErr == nil && fi.IsDir() {
		local = filepath.Join(local, path.Base(remote))
	}
	if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
		return apperr.New(apperr.TransferError, "failed to create local directory", err)
	}
	f, err := os.Create(local)
	if err != nil {
		return apperr.New(apperr.TransferError, fmt.Sprintf("failed to create local file %s", local), err)
	}
	defer f.Close()

	c, err := scp.NewClientBySSH(client)
	if err != nil {
		return apperr.New(apperr.ChannelError, "failed to create scp client", err)
	}
	if err := c.CopyFromRemotePassThru(ctx, f, remote, st.passThru); err != nil {
		return apperr.New(apperr.TransferError, fmt.Sprintf("scp from %s failed", remote), err)
	}
	return nil
}

// ParseCopyArg rozpoznaje zapis [user@]host:ścieżka; inne argumenty są lokalne
func ParseCopyArg(arg string) (target, p string, remote bool) {
	rest := arg
	prefix := ""
	if at := strings.LastIndex(arg, "@"); at >= 0 && !strings.Contains(arg[:at], "/") {
		prefix, rest = arg[:at+1], arg[at+1:]
	}
	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]:")
		if end < 0 {
			return "", arg, false
		}
		return prefix + rest[:end+1], rest[end+2:], true
	}
	i := strings.Index(rest, ":")
	if i <= 0 || strings.Contains(rest[:i], "/") {
		return "", arg, false
	}
	// Litera dysku w Windows
	if i == 1 && prefix == "" {
		return "", arg, false
	}
	return prefix + rest[:i], rest[i+1:], true
}
