// Package tui renders the interactive voice tutor on top of session.Controller.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rbright/lingua/internal/fsm"
	"github.com/rbright/lingua/internal/output"
	"github.com/rbright/lingua/internal/session"
)

// Controller is the subset of session.Controller the UI drives.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Retry() error
	Acknowledge() error
	Play(ctx context.Context) error
	NewConversation()
	Subscribe() <-chan session.View
}

// Copier receives text for the clipboard.
type Copier interface {
	Copy(ctx context.Context, text string) error
}

// Options tune what the UI shows.
type Options struct {
	DebugPanel bool
	MaxSeconds int
	// Clipboard enables the copy key when set.
	Clipboard Copier
}

// Model is the bubbletea model for `lingua talk`.
type Model struct {
	ctx   context.Context
	ctl   Controller
	opts  Options
	views <-chan session.View

	view      session.View
	spinner   spinner.Model
	showDebug bool
	notice    string
	width     int
}

// New subscribes to ctl and returns the initial model.
func New(ctx context.Context, ctl Controller, opts Options) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = titleStyle

	return Model{
		ctx:       ctx,
		ctl:       ctl,
		opts:      opts,
		views:     ctl.Subscribe(),
		view:      session.View{State: fsm.StateIdle},
		spinner:   sp,
		showDebug: opts.DebugPanel,
	}
}

// Run blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, ctl Controller, opts Options) error {
	program := tea.NewProgram(New(ctx, ctl, opts), tea.WithContext(ctx), tea.WithAltScreen())
	_, err := program.Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForView(m.views), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case viewMsg:
		m.view = session.View(msg)
		return m, waitForView(m.views)

	case viewsClosedMsg:
		return m, tea.Quit

	case actionDoneMsg:
		switch {
		case msg.err != nil:
			m.notice = noticeFor(msg.action, msg.err)
		case msg.action == "copy":
			m.notice = "Copied to clipboard."
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""

	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit

	case " ", "enter":
		switch m.view.State {
		case fsm.StateIdle:
			return m, m.run("start", func() error { return m.ctl.Start(m.ctx) })
		case fsm.StateRecording:
			return m, m.run("stop", func() error { return m.ctl.Stop(m.ctx) })
		case fsm.StateComplete:
			return m, m.run("start", func() error {
				if err := m.ctl.Retry(); err != nil {
					return err
				}
				return m.ctl.Start(m.ctx)
			})
		case fsm.StateError:
			m.notice = "Press a to dismiss the error first."
		}
		return m, nil

	case "p":
		if m.view.Turn == nil {
			return m, nil
		}
		return m, m.run("play", func() error { return m.ctl.Play(m.ctx) })

	case "c":
		if m.view.Turn == nil || m.opts.Clipboard == nil {
			return m, nil
		}
		text := output.ReplyText(m.view.Turn.Result)
		return m, m.run("copy", func() error { return m.opts.Clipboard.Copy(m.ctx, text) })

	case "r":
		return m, m.run("retry", m.ctl.Retry)

	case "a":
		return m, m.run("ack", m.ctl.Acknowledge)

	case "n":
		m.ctl.NewConversation()
		m.notice = "Started a new conversation."
		return m, nil

	case "d":
		m.showDebug = !m.showDebug
		return m, nil
	}

	return m, nil
}

func (m Model) run(action string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{action: action, err: fn()}
	}
}

// noticeFor returns transient copy for action failures the view does not
// already show as a Problem.
func noticeFor(action string, err error) string {
	switch {
	case errors.Is(err, session.ErrStarting):
		return "Still opening the microphone…"
	case errors.Is(err, session.ErrNoAudio):
		return "This reply has no audio."
	case errors.Is(err, session.ErrUnknownTurn):
		return "There is no reply to play yet."
	case errors.Is(err, fsm.ErrInvalidTransition):
		return fmt.Sprintf("Cannot %s right now.", action)
	case action == "copy":
		return "Couldn't copy to the clipboard."
	case action == "start" || action == "play":
		return ""
	default:
		return session.UserMessage(err)
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("lingua"))
	b.WriteString("  ")
	b.WriteString(statsStyle.Render(fmt.Sprintf("%d XP · streak %d", m.view.XP, m.view.Streak)))
	if m.view.ThreadID != "" {
		b.WriteString(statsStyle.Render(" · continuing conversation"))
	}
	b.WriteString("\n\n")

	switch m.view.State {
	case fsm.StateIdle:
		m.renderIdle(&b)
	case fsm.StateRecording:
		b.WriteString(recordingStyle.Render("● Recording " + formatElapsed(m.view.ElapsedSeconds, m.opts.MaxSeconds)))
		b.WriteString("\n")
	case fsm.StateProcessing:
		b.WriteString(m.spinner.View() + " Your tutor is thinking…\n")
	case fsm.StateComplete:
		m.renderTurn(&b)
	case fsm.StateError:
		m.renderProblem(&b)
	}

	if m.notice != "" {
		b.WriteString("\n" + noticeStyle.Render(m.notice) + "\n")
	}

	if m.showDebug {
		b.WriteString("\n" + m.renderDebug() + "\n")
	}

	b.WriteString("\n" + helpStyle.Render(m.helpLine()))
	return b.String()
}

func (m Model) renderIdle(b *strings.Builder) {
	if !m.view.Supported {
		b.WriteString(errorStyle.Render("Voice recording is unavailable."))
		b.WriteString("\n")
		if m.view.Problem != nil {
			b.WriteString(m.view.Problem.Message + "\n")
		}
		return
	}
	if m.view.Problem != nil {
		b.WriteString(errorStyle.Render(m.view.Problem.Message) + "\n\n")
	}
	b.WriteString("Press space and start speaking.\n")
}

func (m Model) renderTurn(b *strings.Builder) {
	turn := m.view.Turn
	if turn == nil {
		return
	}
	result := turn.Result

	b.WriteString(labelStyle.Render("You said") + "\n")
	b.WriteString(result.Transcript + "\n\n")

	b.WriteString(labelStyle.Render("Tutor") + "\n")
	message := tutorStyle
	if m.width > 4 {
		message = message.Width(m.width - 2)
	}
	b.WriteString(message.Render(result.TutorMessage) + "\n")

	if len(result.Corrections) > 0 {
		b.WriteString("\n" + labelStyle.Render(fmt.Sprintf("Corrections (%d)", len(result.Corrections))) + "\n")
		for _, c := range result.Corrections {
			b.WriteString(fmt.Sprintf("  %s → %s", correctionStyle.Render(c.UserSentence), fixedStyle.Render(c.CorrectedSentence)))
			if c.Type != "" {
				b.WriteString(statsStyle.Render(" [" + c.Type + "]"))
			}
			b.WriteString("\n")
			if c.Explanation != "" {
				b.WriteString("    " + c.Explanation + "\n")
			}
		}
	}

	if result.MicroTask != "" {
		b.WriteString("\n" + labelStyle.Render("Try next") + "\n" + result.MicroTask + "\n")
	}

	if result.HasAudio() {
		if m.view.Playing {
			b.WriteString("\n♪ Playing reply (p to stop)\n")
		} else {
			b.WriteString("\n♪ Reply audio available (p to play)\n")
		}
	}
	if m.view.PlaybackProblem != nil {
		b.WriteString(errorStyle.Render(m.view.PlaybackProblem.Message) + "\n")
	}
}

func (m Model) renderProblem(b *strings.Builder) {
	message := "Something went wrong."
	if m.view.Problem != nil {
		message = m.view.Problem.Message
	}
	b.WriteString(errorStyle.Render(message) + "\n")
	if m.view.Problem != nil && m.view.Problem.Reauth {
		b.WriteString("Update your token, then press a to continue.\n")
	}
}

func (m Model) renderDebug() string {
	d := m.view.Debug
	lines := []string{
		fmt.Sprintf("state:       %s", m.view.State),
		fmt.Sprintf("audio bytes: %d", d.AudioBytes),
		fmt.Sprintf("mime type:   %s", valueOrDash(d.MIMEType)),
		fmt.Sprintf("status:      %s", statusOrDash(d.StatusCode)),
		fmt.Sprintf("transcript:  %s", valueOrDash(d.Transcript)),
		fmt.Sprintf("last error:  %s", valueOrDash(d.LastError)),
		fmt.Sprintf("thread:      %s", valueOrDash(m.view.ThreadID)),
	}
	return debugPanelStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) helpLine() string {
	switch m.view.State {
	case fsm.StateRecording:
		return "space stop · q quit"
	case fsm.StateProcessing:
		return "q quit"
	case fsm.StateComplete:
		return "space next turn · p play · c copy · r retry · n new conversation · d debug · q quit"
	case fsm.StateError:
		return "a dismiss · d debug · q quit"
	default:
		return "space record · n new conversation · d debug · q quit"
	}
}

func formatElapsed(seconds int, limit int) string {
	elapsed := fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
	if limit <= 0 {
		return elapsed
	}
	return fmt.Sprintf("%s / %d:%02d", elapsed, limit/60, limit%60)
}

func valueOrDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

func statusOrDash(code int) string {
	if code == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", code)
}
