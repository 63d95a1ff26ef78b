// internal/models/entry.go

package models

import "time"

// SftpEntry to pozycja listingu zdalnego katalogu. Tworzona od nowa przy każdym listowaniu.
type SftpEntry struct {
	Name    string
	Path    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}
