// internal/ui/views/sftp.go

package views

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"sshDeck/internal/models"
	"sshDeck/internal/ssh"
	"sshDeck/internal/ui"
	"sshDeck/internal/ui/components"
	"sshDeck/internal/utils"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

var sftpColumns = []table.Column{
	{Title: "Name", Width: 40},
	{Title: "Size", Width: 10},
	{Title: "Modified", Width: 12},
}

// sftpView pokazuje listing zdalnego katalogu i steruje silnikiem SFTP
type sftpView struct {
	engine   *ssh.SftpEngine
	keys     ui.KeyMap
	table    table.Model
	dir      string
	entries  []models.SftpEntry
	localDir string
	popup    *components.Popup
	transfer *ssh.TransferState
	width    int
	height   int
}

func newSftpView(engine *ssh.SftpEngine, keys ui.KeyMap, localDir string) *sftpView {
	return &sftpView{
		engine:   engine,
		keys:     keys,
		table:    ui.CreateBubbleTable(sftpColumns, nil, 60, 10),
		localDir: localDir,
	}
}

func (v *sftpView) resize(width, height int) {
	v.width, v.height = width, height
	// Nagłówek ze ścieżką i wiersz postępu
	v.table.SetHeight(max(height-2, 3))
	v.table.SetWidth(width)
	cols := append([]table.Column(nil), sftpColumns...)
	cols[0].Width = max(width-cols[1].Width-cols[2].Width-6, 10)
	v.table.SetColumns(cols)
}

// poll pobiera odpowiedzi silnika; zwraca komunikat dla paska statusu
func (v *sftpView) poll() (ui.Status, bool) {
	var status ui.Status
	var changed bool
	for _, resp := range v.engine.Responses() {
		switch resp.Kind {
		case ssh.ResponseListing:
			v.setListing(resp.Dir, resp.Entries)
		case ssh.ResponseSuccess:
			status, changed = ui.Status{Message: resp.Message}, true
		case ssh.ResponseError:
			status, changed = ui.Status{Message: resp.Message, IsError: true}, true
		}
	}
	if err := v.engine.TakeError(); err != nil && !changed {
		status, changed = ui.Status{Message: err.Error(), IsError: true}, true
	}
	return status, changed
}

func (v *sftpView) setListing(dir string, entries []models.SftpEntry) {
	if dir != v.dir {
		v.table.SetCursor(0)
	}
	v.dir = dir
	v.entries = entries

	rows := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		name, size := e.Name, utils.FormatSize(e.Size)
		if e.IsDir {
			name, size = e.Name+"/", "<DIR>"
		}
		rows = append(rows, table.Row{name, size, utils.FormatTimestamp(e.ModTime)})
	}
	v.table.SetRows(rows)
	if c := v.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		v.table.SetCursor(len(rows) - 1)
	}
}

func (v *sftpView) selected() (models.SftpEntry, bool) {
	i := v.table.Cursor()
	if i < 0 || i >= len(v.entries) {
		return models.SftpEntry{}, false
	}
	return v.entries[i], true
}

func (v *sftpView) openPopup(t components.PopupType, title, message, value string) {
	v.popup = components.NewPopup(t, title, message, 50, v.width, v.height)
	v.popup.Input.SetValue(value)
}

func (v *sftpView) handleKey(msg tea.KeyMsg) tea.Cmd {
	if v.popup != nil {
		return v.handlePopup(msg)
	}

	entry, ok := v.selected()
	switch {
	case key.Matches(msg, v.keys.Enter):
		if ok && entry.IsDir {
			v.engine.ListDir(entry.Path)
		}
	case key.Matches(msg, v.keys.Back):
		v.engine.ListDir(utils.RemoteParent(v.dir))
	case key.Matches(msg, v.keys.Refresh):
		v.engine.ListDir(v.dir)
	case key.Matches(msg, v.keys.Download):
		if ok && !entry.IsDir {
			v.transfer = v.engine.Download(entry.Path, filepath.Join(v.localDir, entry.Name))
		}
	case key.Matches(msg, v.keys.Upload):
		v.openPopup(components.PopupUpload, "Upload", fmt.Sprintf("Local file to upload into %s", v.dir), "")
	case key.Matches(msg, v.keys.Mkdir):
		v.openPopup(components.PopupMkdir, "Create directory", fmt.Sprintf("New directory in %s", v.dir), "")
	case key.Matches(msg, v.keys.Rename):
		if ok {
			v.openPopup(components.PopupRename, "Rename", fmt.Sprintf("New name for %s", entry.Name), entry.Name)
		}
	case key.Matches(msg, v.keys.Remove):
		if ok {
			v.openPopup(components.PopupDelete, "Delete", fmt.Sprintf("Delete %s?", entry.Path), "")
		}
	default:
		var cmd tea.Cmd
		v.table, cmd = v.table.Update(msg)
		return cmd
	}
	return nil
}

func (v *sftpView) handlePopup(msg tea.KeyMsg) tea.Cmd {
	result, cmd := v.popup.Update(msg)
	switch result {
	case components.PopupPending:
		return cmd
	case components.PopupCancelled:
		v.popup = nil
		return nil
	}

	popup := v.popup
	v.popup = nil
	value := popup.Value()
	entry, ok := v.selected()

	switch popup.Type {
	case components.PopupUpload:
		local := utils.ExpandTilde(value)
		if !filepath.IsAbs(local) {
			local = filepath.Join(v.localDir, local)
		}
		v.transfer = v.engine.Upload(local, utils.JoinRemote(v.dir, filepath.Base(local)))
	case components.PopupMkdir:
		v.engine.Mkdir(remoteTarget(v.dir, value))
	case components.PopupRename:
		if ok {
			v.engine.Rename(entry.Path, remoteTarget(v.dir, value))
		}
	case components.PopupDelete:
		if ok {
			v.engine.Remove(entry.Path)
		}
	}
	return nil
}

// remoteTarget traktuje nazwę bez ukośnika jako względną wobec bieżącego katalogu
func remoteTarget(dir, name string) string {
	if strings.HasPrefix(name, "/") {
		return path.Clean(name)
	}
	return utils.JoinRemote(dir, name)
}

// progressLine opisuje ostatni transfer
func progressLine(st *ssh.TransferState, width int) string {
	if st == nil {
		return ""
	}
	arrow := "↓"
	if st.IsUpload() {
		arrow = "↑"
	}
	switch {
	case st.Failed():
		return ui.ErrorStyle.Render(fmt.Sprintf("%s %s failed", arrow, st.Name()))
	case st.Done():
		return ui.SuccessStyle.Render(fmt.Sprintf("%s %s done (%s)", arrow, st.Name(), utils.FormatSize(st.Transferred())))
	}

	label := fmt.Sprintf("%s %s ", arrow, st.Name())
	counts := fmt.Sprintf(" %3.0f%% %s/%s", st.Fraction()*100, utils.FormatSize(st.Transferred()), utils.FormatSize(st.Total()))
	barWidth := max(width-len([]rune(label))-len(counts)-2, 10)
	filled := min(int(float64(barWidth)*st.Fraction()), barWidth)
	bar := "[" + strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled) + "]"
	return ui.ProgressStyle.Render(label + bar + counts)
}

func (v *sftpView) View() string {
	if v.popup != nil {
		return v.popup.Render()
	}
	var b strings.Builder
	header := ui.DirectoryStyle.Render(ui.Truncate(v.dir, v.width/2)) +
		ui.DescriptionStyle.Render("  local: "+ui.Truncate(v.localDir, v.width/3))
	if !v.engine.IsAlive() {
		header += ui.ErrorStyle.Render("  [disconnected]")
	}
	b.WriteString(header + "\n")
	b.WriteString(v.table.View() + "\n")
	b.WriteString(progressLine(v.transfer, v.width))
	return b.String()
}
