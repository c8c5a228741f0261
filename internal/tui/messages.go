package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rbright/lingua/internal/session"
)

// viewMsg carries a fresh controller snapshot.
type viewMsg session.View

// viewsClosedMsg reports that the controller closed its subscription.
type viewsClosedMsg struct{}

// actionDoneMsg reports the outcome of a key-triggered controller call.
type actionDoneMsg struct {
	action string
	err    error
}

func waitForView(views <-chan session.View) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-views
		if !ok {
			return viewsClosedMsg{}
		}
		return viewMsg(v)
	}
}
