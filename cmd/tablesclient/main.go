package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/vctt94/tablegames/pkg/bot"
	"github.com/vctt94/tablegames/pkg/game"
)

func main() {
	var (
		addr    string
		guild   string
		channel string
		player  string
		name    string
	)
	flag.StringVar(&addr, "addr", "127.0.0.1:7878", "Address of the table server")
	flag.StringVar(&guild, "guild", "local", "Guild to play in")
	flag.StringVar(&channel, "channel", "tables", "Channel to play in")
	flag.StringVar(&player, "player", "", "Player id (defaults to $USER)")
	flag.StringVar(&name, "name", "", "Display name (defaults to the player id)")
	flag.Parse()

	if player == "" {
		player = os.Getenv("USER")
	}
	if player == "" {
		player = fmt.Sprintf("player-%d", os.Getpid())
	}

	q := url.Values{}
	q.Set("guild", guild)
	q.Set("channel", channel)
	q.Set("player", player)
	q.Set("name", name)
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws", RawQuery: q.Encode()}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to %s: %v\n", addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	scope := game.Scope{GuildID: guild, ChannelID: channel}
	p := tea.NewProgram(initialModel(conn, scope, player), tea.WithAltScreen())

	// Feed gateway messages into the program until the connection drops.
	go func() {
		for {
			var env bot.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				p.Send(errorMsg{err})
				return
			}
			p.Send(envelopeMsg(env))
		}
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
