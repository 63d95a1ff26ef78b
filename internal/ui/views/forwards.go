// internal/ui/views/forwards.go

package views

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	apperr "sshDeck/internal/error"
	"sshDeck/internal/models"
	"sshDeck/internal/ssh"
	"sshDeck/internal/ui"
	"sshDeck/internal/ui/components"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// parseRuleInput rozkłada zapis "-L 8080:host:80", "-R ..." albo "-D 1080"
func parseRuleInput(input string) (models.ForwardRule, error) {
	fields := strings.Fields(input)
	if len(fields) != 2 {
		return models.ForwardRule{}, apperr.New(apperr.ValidationError, "expected: -L|-R|-D SPEC", nil)
	}
	var t models.ForwardType
	switch fields[0] {
	case "-L", "L":
		t = models.ForwardLocal
	case "-R", "R":
		t = models.ForwardRemote
	case "-D", "D":
		t = models.ForwardDynamic
	default:
		return models.ForwardRule{}, apperr.New(apperr.ValidationError, fmt.Sprintf("unknown forward type %q", fields[0]), nil)
	}
	return models.ParseForwardRule(t, fields[1])
}

// forwardsView zarządza regułami przekierowania jednego połączenia
type forwardsView struct {
	ctx      context.Context
	engine   *ssh.ForwardEngine
	keys     ui.KeyMap
	rules    []ssh.RuleStatus
	selected int
	popup    *components.Popup
	width    int
	height   int
}

func newForwardsView(ctx context.Context, engine *ssh.ForwardEngine, keys ui.KeyMap) *forwardsView {
	return &forwardsView{ctx: ctx, engine: engine, keys: keys}
}

func (v *forwardsView) resize(width, height int) {
	v.width, v.height = width, height
}

func (v *forwardsView) add(rule models.ForwardRule) error {
	_, err := v.engine.Add(v.ctx, rule)
	return err
}

// poll odświeża migawkę reguł i zbiera ostatni błąd którejkolwiek z nich
func (v *forwardsView) poll() (ui.Status, bool) {
	v.rules = v.engine.Rules()
	if v.selected >= len(v.rules) {
		v.selected = max(len(v.rules)-1, 0)
	}
	var status ui.Status
	var changed bool
	for _, r := range v.rules {
		if err := v.engine.TakeError(r.Index); err != nil {
			status = ui.Status{Message: fmt.Sprintf("%s: %v", r.Rule, err), IsError: true}
			changed = true
		}
	}
	return status, changed
}

func (v *forwardsView) handleKey(msg tea.KeyMsg) (tea.Cmd, *ui.Status) {
	if v.popup != nil {
		result, cmd := v.popup.Update(msg)
		switch result {
		case components.PopupPending:
			return cmd, nil
		case components.PopupCancelled:
			v.popup = nil
			return nil, nil
		}
		value := v.popup.Value()
		v.popup = nil
		rule, err := parseRuleInput(value)
		if err == nil {
			err = v.add(rule)
		}
		if err != nil {
			return nil, &ui.Status{Message: err.Error(), IsError: true}
		}
		return nil, &ui.Status{Message: "added " + rule.String()}
	}

	switch {
	case key.Matches(msg, v.keys.Up):
		if v.selected > 0 {
			v.selected--
		}
	case key.Matches(msg, v.keys.Down):
		if v.selected < len(v.rules)-1 {
			v.selected++
		}
	case key.Matches(msg, v.keys.AddRule):
		v.popup = components.NewPopup(components.PopupAddRule, "Add forward",
			"-L [bind:]port:host:port | -R [bind:]port:host:port | -D [bind:]port", 60, v.width, v.height)
	case key.Matches(msg, v.keys.StopRule):
		if v.selected < len(v.rules) {
			if err := v.engine.Stop(v.rules[v.selected].Index); err != nil {
				return nil, &ui.Status{Message: err.Error(), IsError: true}
			}
		}
	}
	return nil, nil
}

func (v *forwardsView) View() string {
	if v.popup != nil {
		return v.popup.Render()
	}
	if len(v.rules) == 0 {
		return ui.DescriptionStyle.Render("No forwarding rules. Press a to add one.")
	}

	headers := []string{"#", "Type", "Rule", "Listening", "State", "Conns"}
	rows := make([][]string, 0, len(v.rules))
	for _, r := range v.rules {
		rows = append(rows, []string{
			strconv.Itoa(r.Index),
			r.Rule.Type.String(),
			r.Rule.String(),
			r.Bound,
			r.State.String(),
			strconv.FormatUint(r.Connections, 10),
		})
	}

	var b strings.Builder
	b.WriteString(ui.CreateLipglossTable(headers, rows, v.selected))
	if proxies := v.engine.ActiveSocks5Proxies(); len(proxies) > 0 {
		addrs := make([]string, 0, len(proxies))
		for _, p := range proxies {
			addrs = append(addrs, fmt.Sprintf("%s:%d", p.Host, p.Port))
		}
		b.WriteString("\n" + ui.SuccessStyle.Render("SOCKS5: "+strings.Join(addrs, ", ")))
	}
	return b.String()
}
