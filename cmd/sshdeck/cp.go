// cmd/sshdeck/cp.go

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	apperr "sshDeck/internal/error"
	"sshDeck/internal/logging"
	"sshDeck/internal/ssh"
	"sshDeck/internal/utils"

	"github.com/spf13/cobra"
)

func newCopyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cp SRC DST",
		Short: "Copy a single file over scp",
		Long: `Copy a file to or from a remote host. Exactly one side must be remote,
written as [user@]host:path or NAME:path for a saved host.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCopy(cmd, args[0], args[1])
		},
	}
}

func (a *app) runCopy(cmd *cobra.Command, src, dst string) error {
	srcTarget, srcPath, srcRemote := ssh.ParseCopyArg(src)
	dstTarget, dstPath, dstRemote := ssh.ParseCopyArg(dst)
	if srcRemote == dstRemote {
		return apperr.New(apperr.ValidationError, "exactly one of SRC and DST must be remote", nil)
	}

	target := srcTarget
	if dstRemote {
		target = dstTarget
	}
	host, err := a.prepareHost(target)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	log := logging.Console(a.settings.Log.Level)
	client, err := ssh.NewConnector(sessionOptions(a.settings, host, log)...).Connect(ctx, &host)
	if err != nil {
		return err
	}
	defer client.Close()

	var st *ssh.TransferState
	errCh := make(chan error, 1)
	if dstRemote {
		st = ssh.NewTransferState(src, true)
		go func() { errCh <- ssh.CopyToRemote(ctx, client, utils.ExpandTilde(srcPath), dstPath, st) }()
	} else {
		st = ssh.NewTransferState(srcPath, false)
		go func() { errCh <- ssh.CopyFromRemote(ctx, client, srcPath, utils.ExpandTilde(dstPath), st) }()
	}

	return watchTransfer(cmd.ErrOrStderr(), st, errCh)
}

// watchTransfer wypisuje postęp do zakończenia transferu
func watchTransfer(w io.Writer, st *ssh.TransferState, errCh <-chan error) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case err := <-errCh:
			fmt.Fprintf(w, "\r%s  %s\n", st.Name(), utils.FormatSize(st.Transferred()))
			return err
		case <-ticker.C:
			fmt.Fprintf(w, "\r%s  %s/%s  %3.0f%%", st.Name(),
				utils.FormatSize(st.Transferred()), utils.FormatSize(st.Total()), st.Fraction()*100)
		}
	}
}
