// internal/ssh/relay.go

package ssh

import (
	"context"
	"io"
	"net"
)

// relay przepisuje dane w obu kierunkach. Zakończenie któregokolwiek
// kierunku (albo anulowanie ctx) zamyka oba końce.
func relay(ctx context.Context, a, b net.Conn) {
	done := make(chan struct{}, 2)
	cp := func(dst, src net.Conn) {
		defer func() { done <- struct{}{} }()
		_, _ = io.Copy(dst, src)
	}
	go cp(a, b)
	go cp(b, a)

	select {
	case <-done:
	case <-ctx.Done():
	}
	a.Close()
	b.Close()
	<-done
}
