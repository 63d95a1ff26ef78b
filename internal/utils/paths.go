// internal/utils/paths.go

package utils

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ExpandTilde zamienia prefiks "~/" (albo samo "~") na katalog domowy użytkownika
func ExpandTilde(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	return filepath.Join(home, p[2:])
}

// JoinRemote łączy katalog zdalny z nazwą pozycji; katalog "/" nie daje podwójnego separatora
func JoinRemote(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return strings.TrimRight(dir, "/") + "/" + name
}

// RemoteParent zwraca katalog nadrzędny ścieżki zdalnej
func RemoteParent(p string) string {
	if p == "" || p == "/" {
		return "/"
	}
	parent := path.Dir(strings.TrimRight(p, "/"))
	if parent == "." {
		return "/"
	}
	return parent
}

// ToRemotePath normalizuje separatory ścieżki lokalnej do postaci zdalnej
func ToRemotePath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
