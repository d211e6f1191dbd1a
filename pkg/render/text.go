package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/vctt94/tablegames/pkg/cards"
	"github.com/vctt94/tablegames/pkg/game"
)

// hiddenCard stands in for a card the viewer may not see.
const hiddenCard = "🂠"

// GameTitle returns the display name of a game.
func GameTitle(kind game.Kind) string {
	switch kind {
	case game.KindShowdown:
		return "Showdown"
	case game.KindBanker:
		return "Banker Game"
	}
	return string(kind)
}

// Cards formats cards for chat, hidden ones as card backs.
func Cards(s SeatView) string {
	if s.Hidden() {
		return strings.TrimSpace(strings.Repeat(hiddenCard+" ", s.CardCount))
	}
	if len(s.Cards) == 0 {
		return "-"
	}
	return cards.Format(s.Cards)
}

func seatTags(s SeatView) string {
	var tags []string
	if s.Banker {
		tags = append(tags, "bank")
	}
	if s.Host {
		tags = append(tags, "host")
	}
	if s.Viewer {
		tags = append(tags, "you")
	}
	if len(tags) == 0 {
		return ""
	}
	return " [" + strings.Join(tags, ", ") + "]"
}

func seatStatus(s SeatView) string {
	parts := make([]string, 0, 3)
	if s.Hand != "" {
		parts = append(parts, s.Hand)
	}
	if s.State != "" {
		parts = append(parts, s.State)
	}
	if s.Outcome != "" {
		parts = append(parts, s.Outcome)
	}
	return strings.Join(parts, ", ")
}

func header(v *TableView) string {
	h := fmt.Sprintf("%s in #%s | %s | stake %d", GameTitle(v.Game), v.Scope.ChannelID, v.Status, v.Stake)
	if v.Game == game.KindShowdown && v.Status != "waiting" {
		h += fmt.Sprintf(" | pot %d | bet to match %d (max %d)", v.Pot, v.CurrentRaise, v.MaxRaise)
	}
	if v.Game == game.KindBanker {
		h += fmt.Sprintf(" | games %d", v.GamesPlayed)
	}
	return h
}

// Text renders the view as plain chat text, one line per seat.
func Text(v *TableView) string {
	var b strings.Builder
	b.WriteString(header(v))
	b.WriteByte('\n')
	for _, s := range v.Seats {
		marker := "  "
		if s.Turn {
			marker = "> "
		}
		fmt.Fprintf(&b, "%s%s%s | bet %d | %s", marker, s.Name, seatTags(s), s.Bet, Cards(s))
		if st := seatStatus(s); st != "" {
			fmt.Fprintf(&b, " | %s", st)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func styledCards(s SeatView) string {
	if s.Hidden() {
		backs := make([]string, s.CardCount)
		for i := range backs {
			backs[i] = HiddenCardStyle.Render("??")
		}
		return strings.Join(backs, " ")
	}
	out := make([]string, len(s.Cards))
	for i, c := range s.Cards {
		style := CardStyle
		if c.IsRed() {
			style = RedCardStyle
		}
		out[i] = style.Render(c.String())
	}
	return strings.Join(out, " ")
}

// Styled renders the view for a terminal, seats side by side.
func Styled(v *TableView) string {
	boxes := make([]string, 0, len(v.Seats))
	for _, s := range v.Seats {
		style := SeatStyle
		switch {
		case s.State == "folded" || s.State == "busted":
			style = OutSeatStyle
		case s.Turn:
			style = TurnSeatStyle
		case s.Viewer:
			style = ViewerSeatStyle
		}
		body := []string{TitleStyle.Render(s.Name + seatTags(s)), fmt.Sprintf("bet %d", s.Bet)}
		if cs := styledCards(s); cs != "" {
			body = append(body, cs)
		}
		if st := seatStatus(s); st != "" {
			body = append(body, InfoStyle.Render(st))
		}
		boxes = append(boxes, style.Render(lipgloss.JoinVertical(lipgloss.Left, body...)))
	}

	parts := []string{TitleStyle.Render(header(v))}
	if v.Pot > 0 {
		parts = append(parts, PotStyle.Render(fmt.Sprintf("POT %d", v.Pot)))
	}
	parts = append(parts, lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
