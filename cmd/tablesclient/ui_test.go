package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vctt94/tablegames/pkg/game"
	"github.com/vctt94/tablegames/pkg/render"
)

func playingShowdown(current int64) *render.TableView {
	return &render.TableView{
		Game:         game.KindShowdown,
		Status:       "playing",
		Stake:        100,
		CurrentRaise: current,
		MaxRaise:     1000,
		Seats:        []render.SeatView{{ID: "ann"}, {ID: "bob"}},
	}
}

func TestMenuRaiseStaysUnderCap(t *testing.T) {
	tests := []struct {
		name    string
		current int64
		want    menuOption
	}{
		{"one stake above the bet", 100, "sd raise 200"},
		{"clamped to the cap", 950, "sd raise 1000"},
		{"hidden at the cap", 1000, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := menuFor(playingShowdown(tc.current), "ann")
			assert.Subset(t, opts, []menuOption{"sd call", "sd reveal", "sd fold"})
			if tc.want == "" {
				assert.Len(t, opts, 3)
				return
			}
			assert.Contains(t, opts, tc.want)
		})
	}
}

func TestMenuForSpectator(t *testing.T) {
	opts := menuFor(playingShowdown(100), "cy")
	assert.Equal(t, []menuOption{"sd join", "sd status", "balance"}, opts)

	assert.Contains(t, menuFor(nil, "cy"), menuOption("sd create 100"))
}
