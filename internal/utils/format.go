// internal/utils/format.go

package utils

import (
	"fmt"
	"time"
)

// FormatSize zwraca rozmiar w czytelnej postaci (B, K, M, G)
func FormatSize(bytes int64) string {
	const (
		kib = 1024
		mib = kib * 1024
		gib = mib * 1024
	)
	switch {
	case bytes < kib:
		return fmt.Sprintf("%dB", bytes)
	case bytes < mib:
		return fmt.Sprintf("%.1fK", float64(bytes)/kib)
	case bytes < gib:
		return fmt.Sprintf("%.1fM", float64(bytes)/mib)
	default:
		return fmt.Sprintf("%.2fG", float64(bytes)/gib)
	}
}

// FormatTimestamp zwraca datę w formacie RRRR-MM-DD albo "-" dla nieznanego czasu
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02")
}
