package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"
	"github.com/vctt94/tablegames/pkg/bot"
	"github.com/vctt94/tablegames/pkg/game"
	"github.com/vctt94/tablegames/pkg/render"
)

var (
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	blurredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	inputStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Bold(true)
)

const maxLogLines = 8

// menuOption is a command offered for the current room state.
type menuOption string

func menuFor(v *render.TableView, playerID string) []menuOption {
	if v == nil {
		return []menuOption{"sd create 100", "bk create 100", "balance", "daily", "rooms", "help"}
	}
	seated := v.Seat(playerID) != nil
	if !seated {
		if v.Game == game.KindShowdown {
			return []menuOption{"sd join", "sd status", "balance"}
		}
		return []menuOption{"bk join", "bk status", "balance"}
	}

	switch {
	case v.Game == game.KindShowdown && v.Status == "waiting":
		return []menuOption{"sd ready", "sd start", "sd leave", "sd end"}
	case v.Game == game.KindShowdown && v.Status == "playing":
		opts := []menuOption{"sd call", "sd reveal", "sd fold"}
		if v.CurrentRaise < v.MaxRaise {
			next := min(v.CurrentRaise+v.Stake, v.MaxRaise)
			opts = append(opts, menuOption(fmt.Sprintf("sd raise %d", next)))
		}
		return opts
	case v.Game == game.KindShowdown:
		return []menuOption{"sd restart", "sd end", "stats sd"}
	case v.Status == "waiting":
		return []menuOption{"bk start", "bk leave", "bk end"}
	case v.Status == "playing":
		return []menuOption{"bk hit", "bk stand", "bk double"}
	case v.Status == "dealer_turn":
		var opts []menuOption
		for _, s := range v.Seats {
			if !s.Banker && s.Outcome == "" {
				opts = append(opts, menuOption("bk reveal "+s.ID))
			}
		}
		return append(opts, "bk hit", "bk stand")
	}
	return []menuOption{"bk restart", "bk end", "stats bk"}
}

// envelopeMsg carries one gateway message into the update loop.
type envelopeMsg bot.Envelope

// errorMsg reports a transport failure.
type errorMsg struct{ err error }

// Model contains all the state of the console.
type Model struct {
	conn     *websocket.Conn
	playerID string
	scope    game.Scope

	view         *render.TableView
	menuOptions  []menuOption
	selectedItem int
	input        string
	log          []string
	err          error
}

func initialModel(conn *websocket.Conn, scope game.Scope, playerID string) Model {
	return Model{
		conn:        conn,
		playerID:    playerID,
		scope:       scope,
		menuOptions: menuFor(nil, playerID),
	}
}

func (m Model) Init() tea.Cmd {
	return sendCmd(m.conn, "sd status")
}

func sendCmd(conn *websocket.Conn, text string) tea.Cmd {
	return func() tea.Msg {
		if err := conn.WriteJSON(bot.Command{Text: text}); err != nil {
			return errorMsg{err}
		}
		return nil
	}
}

func (m *Model) addLog(text string) {
	for _, line := range strings.Split(text, "\n") {
		m.log = append(m.log, line)
	}
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyUp:
			m.selectedItem = max(0, m.selectedItem-1)
		case tea.KeyDown:
			m.selectedItem = min(len(m.menuOptions)-1, m.selectedItem+1)
		case tea.KeyBackspace:
			if len(m.input) > 0 {
				r := []rune(m.input)
				m.input = string(r[:len(r)-1])
			}
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input)
			if text == "" && len(m.menuOptions) > 0 {
				text = string(m.menuOptions[m.selectedItem])
			}
			m.input = ""
			if text == "" {
				return m, nil
			}
			m.addLog("> " + text)
			return m, sendCmd(m.conn, text)
		case tea.KeySpace:
			m.input += " "
		case tea.KeyRunes:
			m.input += string(msg.Runes)
		}

	case envelopeMsg:
		switch {
		case msg.View != nil:
			m.view = msg.View
			m.addLog(strings.SplitN(msg.Text, "\n", 2)[0])
		case msg.Type == bot.EnvelopeEvent:
			// The room is gone.
			m.view = nil
			m.addLog(msg.Text)
		default:
			m.addLog(msg.Text)
		}
		m.menuOptions = menuFor(m.view, m.playerID)
		m.selectedItem = min(m.selectedItem, len(m.menuOptions)-1)

	case errorMsg:
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(render.TitleStyle.Render(fmt.Sprintf("Tables in #%s as %s", m.scope.ChannelID, m.playerID)))
	b.WriteString("\n\n")

	if m.view != nil {
		b.WriteString(render.Styled(m.view))
	} else {
		b.WriteString(render.InfoStyle.Render("No room in this channel. Create one below."))
	}
	b.WriteString("\n\n")

	for i, opt := range m.menuOptions {
		if i == m.selectedItem {
			b.WriteString(focusedStyle.Render("> " + string(opt)))
		} else {
			b.WriteString(blurredStyle.Render("  " + string(opt)))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	for _, line := range m.log {
		b.WriteString(line + "\n")
	}
	if m.err != nil {
		b.WriteString(render.ErrorStyle.Render("Error: "+m.err.Error()) + "\n")
	}
	b.WriteString(inputStyle.Render("command: "+m.input) + "\n")
	b.WriteString(render.HelpStyle.Render("up/down: choose • enter: run choice or typed command • esc: quit"))
	return b.String()
}
