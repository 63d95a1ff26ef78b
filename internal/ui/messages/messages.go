// internal/ui/messages/messages.go

package messages

import "time"

// TickMsg wyzwala odpytanie kolejek silnika
type TickMsg time.Time

// ShellExitedMsg oznacza zakończenie wątku sesji powłoki
type ShellExitedMsg struct{}

// StatusMsg ustawia komunikat na pasku statusu
type StatusMsg struct {
	Text    string
	IsError bool
}
