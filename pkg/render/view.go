// Package render projects room snapshots into what one viewer may see and
// formats them for chat replies and the terminal client.
package render

import (
	"github.com/vctt94/tablegames/pkg/banker"
	"github.com/vctt94/tablegames/pkg/cards"
	"github.com/vctt94/tablegames/pkg/game"
	"github.com/vctt94/tablegames/pkg/showdown"
)

// SeatView is one player as seen by the viewer. Cards is nil when the hand
// is hidden from them.
type SeatView struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Bet       int64        `json:"bet"`
	Cards     []cards.Card `json:"cards,omitempty"`
	CardCount int          `json:"card_count"`
	Hand      string       `json:"hand,omitempty"`
	State     string       `json:"state,omitempty"`
	Outcome   string       `json:"outcome,omitempty"`
	Host      bool         `json:"host,omitempty"`
	Banker    bool         `json:"banker,omitempty"`
	Turn      bool         `json:"turn,omitempty"`
	Viewer    bool         `json:"viewer,omitempty"`
}

// Hidden reports whether the seat holds cards the viewer cannot see.
func (s SeatView) Hidden() bool {
	return s.CardCount > 0 && s.Cards == nil
}

// TableView is a room as seen by one viewer.
type TableView struct {
	Game         game.Kind  `json:"game"`
	Scope        game.Scope `json:"scope"`
	Status       string     `json:"status"`
	Stake        int64      `json:"stake"`
	Pot          int64      `json:"pot,omitempty"`
	CurrentRaise int64      `json:"current_raise,omitempty"`
	MaxRaise     int64      `json:"max_raise,omitempty"`
	WinnerID     string     `json:"winner_id,omitempty"`
	GamesPlayed  int        `json:"games_played"`
	Seats        []SeatView `json:"seats"`
}

// Seat returns the view of a seated player, or nil.
func (v *TableView) Seat(id string) *SeatView {
	for i := range v.Seats {
		if v.Seats[i].ID == id {
			return &v.Seats[i]
		}
	}
	return nil
}

// ShowdownView projects a showdown snapshot for viewerID. A hand is shown
// to its owner, and to everyone once revealed. An empty viewerID sees only
// revealed hands.
func ShowdownView(s *showdown.Snapshot, viewerID string) *TableView {
	v := &TableView{
		Game:         game.KindShowdown,
		Scope:        s.Scope,
		Status:       s.Status,
		Stake:        s.Stake,
		Pot:          s.Pot,
		CurrentRaise: s.CurrentRaise,
		MaxRaise:     s.MaxRaise,
		WinnerID:     s.WinnerID,
		GamesPlayed:  s.GamesPlayed,
		Seats:        make([]SeatView, 0, len(s.Players)),
	}
	for _, p := range s.Players {
		seat := SeatView{
			ID:     p.ID,
			Name:   p.Name,
			Bet:    p.Bet,
			State:  showdownState(s, p),
			Host:   p.ID == s.HostID,
			Viewer: p.ID == viewerID,
		}
		if p.Hand != nil {
			seat.CardCount = len(p.Hand.Cards)
			if seat.Viewer || p.Revealed {
				seat.Cards = append([]cards.Card(nil), p.Hand.Cards...)
				seat.Hand = p.Hand.Description()
			}
		}
		v.Seats = append(v.Seats, seat)
	}
	return v
}

func showdownState(s *showdown.Snapshot, p showdown.PlayerSnapshot) string {
	switch {
	case s.Status == showdown.StateFinished && p.ID == s.WinnerID:
		return "winner"
	case p.Folded:
		return "folded"
	case p.Revealed:
		return "revealed"
	case p.OwesCall:
		return "to call"
	case s.Status == showdown.StateWaiting && p.Ready:
		return "ready"
	case s.Status == showdown.StateWaiting:
		return "not ready"
	}
	return ""
}

// BankerView projects a banker snapshot for viewerID. A hand is shown to
// its owner, to everyone once settled, and every hand is shown when the
// game is over.
func BankerView(s *banker.Snapshot, viewerID string) *TableView {
	v := &TableView{
		Game:        game.KindBanker,
		Scope:       s.Scope,
		Status:      s.Status,
		Stake:       s.Stake,
		GamesPlayed: s.GamesPlayed,
		Seats:       make([]SeatView, 0, len(s.Players)),
	}
	over := s.Status == banker.StateFinished
	for _, p := range s.Players {
		v.Pot += p.Bet
		seat := SeatView{
			ID:        p.ID,
			Name:      p.Name,
			Bet:       p.Bet,
			CardCount: p.CardCount,
			State:     bankerState(p),
			Outcome:   string(p.Outcome),
			Host:      p.ID == s.HostID,
			Banker:    p.Banker,
			Turn:      p.ID == s.TurnID,
			Viewer:    p.ID == viewerID,
		}
		if p.Hand != nil && (seat.Viewer || p.Revealed || over) {
			seat.Cards = append([]cards.Card(nil), p.Hand.Cards...)
			seat.Hand = p.Hand.Description()
		}
		v.Seats = append(v.Seats, seat)
	}
	return v
}

func bankerState(p banker.PlayerSnapshot) string {
	switch {
	case p.Busted:
		return "busted"
	case p.Doubled:
		return "doubled"
	case p.Standing:
		return "standing"
	}
	return ""
}
