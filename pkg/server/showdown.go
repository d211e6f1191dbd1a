package server

import (
	"context"

	"github.com/vctt94/tablegames/pkg/game"
	"github.com/vctt94/tablegames/pkg/settlement"
	"github.com/vctt94/tablegames/pkg/showdown"
)

// ShowdownCreate opens a showdown room in scope with host seated. The host
// must be able to cover the stake.
func (s *Server) ShowdownCreate(ctx context.Context, scope game.Scope, host game.Seat, stake int64) (*showdown.Snapshot, error) {
	if err := s.requireFunds(ctx, scope.GuildID, host, stake); err != nil {
		return nil, err
	}
	if _, err := s.showdown.Create(scope, host, stake); err != nil {
		return nil, err
	}
	return s.showdownAction(ctx, scope, func(*showdown.Room, game.PayFunc) (EventPayload, error) {
		return RoomCreatedPayload{HostID: host.ID, Stake: stake}, nil
	})
}

// ShowdownJoin seats a player in the channel's waiting room.
func (s *Server) ShowdownJoin(ctx context.Context, scope game.Scope, seat game.Seat) (*showdown.Snapshot, error) {
	room, err := s.showdown.Get(scope)
	if err != nil {
		return nil, err
	}
	if err := s.requireFunds(ctx, scope.GuildID, seat, room.Stake()); err != nil {
		return nil, err
	}
	if _, err := s.showdown.Join(scope, seat); err != nil {
		return nil, err
	}
	return s.showdownAction(ctx, scope, func(*showdown.Room, game.PayFunc) (EventPayload, error) {
		return PlayerJoinedPayload{PlayerID: seat.ID}, nil
	})
}

// ShowdownLeave unseats a player. closed reports that the room emptied and
// was removed, in which case no snapshot is returned.
func (s *Server) ShowdownLeave(ctx context.Context, scope game.Scope, playerID string) (*showdown.Snapshot, bool, error) {
	_, closed, err := s.showdown.Leave(scope, playerID)
	if err != nil {
		return nil, false, err
	}
	if closed {
		s.publish(closedEvent(game.KindShowdown, scope, PlayerLeftPayload{PlayerID: playerID, Closed: true}))
		return nil, true, nil
	}
	snap, err := s.showdownAction(ctx, scope, func(*showdown.Room, game.PayFunc) (EventPayload, error) {
		return PlayerLeftPayload{PlayerID: playerID}, nil
	})
	return snap, false, err
}

// ShowdownReady toggles the player's ready flag.
func (s *Server) ShowdownReady(ctx context.Context, scope game.Scope, playerID string) (bool, *showdown.Snapshot, error) {
	var ready bool
	snap, err := s.showdownAction(ctx, scope, func(room *showdown.Room, _ game.PayFunc) (EventPayload, error) {
		var err error
		ready, err = room.ToggleReady(playerID)
		return PlayerReadyPayload{PlayerID: playerID, Ready: ready}, err
	})
	return ready, snap, err
}

// ShowdownStart deals a new game, taking every player's ante.
func (s *Server) ShowdownStart(ctx context.Context, scope game.Scope, playerID string) (*showdown.Snapshot, error) {
	return s.showdownAction(ctx, scope, func(room *showdown.Room, pay game.PayFunc) (EventPayload, error) {
		if err := room.Start(playerID, pay); err != nil {
			return nil, err
		}
		return GameStartedPayload{PlayerIDs: showdownPlayerIDs(room), Pot: room.Pot()}, nil
	})
}

// ShowdownRaise raises the required bet to amount.
func (s *Server) ShowdownRaise(ctx context.Context, scope game.Scope, playerID string, amount int64) (*showdown.Snapshot, error) {
	return s.showdownAction(ctx, scope, func(room *showdown.Room, pay game.PayFunc) (EventPayload, error) {
		added, err := room.Raise(playerID, amount, pay)
		if err != nil {
			return nil, err
		}
		return BetMadePayload{PlayerID: playerID, RaiseTo: amount, Amount: added}, nil
	})
}

// ShowdownCall matches the required bet.
func (s *Server) ShowdownCall(ctx context.Context, scope game.Scope, playerID string) (*showdown.Snapshot, error) {
	return s.showdownAction(ctx, scope, func(room *showdown.Room, pay game.PayFunc) (EventPayload, error) {
		added, err := room.Call(playerID, pay)
		if err != nil {
			return nil, err
		}
		return CallMadePayload{PlayerID: playerID, Amount: added}, nil
	})
}

// ShowdownFold folds the player's hand.
func (s *Server) ShowdownFold(ctx context.Context, scope game.Scope, playerID string) (*showdown.Snapshot, error) {
	return s.showdownAction(ctx, scope, func(room *showdown.Room, _ game.PayFunc) (EventPayload, error) {
		if _, err := room.Fold(playerID); err != nil {
			return nil, err
		}
		return PlayerFoldedPayload{PlayerID: playerID}, nil
	})
}

// ShowdownReveal shows the player's hand.
func (s *Server) ShowdownReveal(ctx context.Context, scope game.Scope, playerID string) (*showdown.Snapshot, error) {
	return s.showdownAction(ctx, scope, func(room *showdown.Room, _ game.PayFunc) (EventPayload, error) {
		if _, err := room.Reveal(playerID); err != nil {
			return nil, err
		}
		return HandRevealedPayload{PlayerID: playerID}, nil
	})
}

// ShowdownRestart returns a finished room to waiting.
func (s *Server) ShowdownRestart(ctx context.Context, scope game.Scope, playerID string) (*showdown.Snapshot, error) {
	return s.showdownAction(ctx, scope, func(room *showdown.Room, _ game.PayFunc) (EventPayload, error) {
		if err := room.Restart(playerID); err != nil {
			return nil, err
		}
		return RoomRestartedPayload{}, nil
	})
}

// ShowdownEnd closes the room on the host's request. Stakes of an
// unfinished game are refunded; the amount returned is reported.
func (s *Server) ShowdownEnd(ctx context.Context, scope game.Scope, playerID string) (int64, error) {
	var refunds []game.Charge
	err := s.showdown.Close(scope, func(room *showdown.Room) error {
		if room.HostID() != playerID {
			return game.ErrNotHost
		}
		refunds = room.Abort()
		return nil
	})
	if err != nil {
		return 0, err
	}
	total := s.refund(ctx, scope.GuildID, refunds)
	s.log.Infof("Showdown room %s ended by %s, %d refunded", scope, playerID, total)
	s.publish(closedEvent(game.KindShowdown, scope, RoomClosedPayload{ClosedBy: playerID, Refunded: total}))
	return total, nil
}

// ShowdownStatus returns the current state of the channel's room.
func (s *Server) ShowdownStatus(scope game.Scope) (*showdown.Snapshot, error) {
	var snap *showdown.Snapshot
	err := s.showdown.WithRoom(scope, func(room *showdown.Room) error {
		snap = room.Snapshot()
		return nil
	})
	return snap, err
}

// showdownAction runs act under the room lock, publishes its event and
// settles the game if act finished it.
func (s *Server) showdownAction(ctx context.Context, scope game.Scope,
	act func(*showdown.Room, game.PayFunc) (EventPayload, error)) (*showdown.Snapshot, error) {

	var snap *showdown.Snapshot
	err := s.showdown.WithRoom(scope, func(room *showdown.Room) error {
		wasFinished := room.Status() == showdown.StateFinished
		payload, err := act(room, s.payFunc(ctx, scope.GuildID))
		if err != nil {
			return err
		}
		s.publish(showdownEvent(room, payload))
		if !wasFinished && room.Status() == showdown.StateFinished {
			s.settleShowdown(ctx, room)
		}
		snap = room.Snapshot()
		return nil
	})
	return snap, err
}

// settleShowdown pays the pot of a finished game and records stats. Ledger
// failures are logged and published; the result stands.
func (s *Server) settleShowdown(ctx context.Context, room *showdown.Room) {
	scope := room.Scope()
	res, err := room.Result()
	if err != nil {
		s.log.Errorf("Showdown %s finished without a result: %v", scope, err)
		return
	}
	plan, err := settlement.Showdown(res)
	if err != nil {
		s.showdownSettlementFailed(room, err)
		return
	}
	if err := settlement.Apply(ctx, s.db, scope.GuildID, plan); err != nil {
		s.showdownSettlementFailed(room, err)
	}
	id, err := settlement.RecordShowdown(ctx, s.db, res, plan)
	if err != nil {
		s.log.Warnf("Recording showdown %s: %v", scope, err)
	}

	payload := ShowdownPayload{WinnerID: res.WinnerID, Pot: res.Pot, GameID: id}
	for _, e := range res.Entries {
		if e.Seat.ID == res.WinnerID {
			payload.Tier = e.Hand.Tier.String()
		}
	}
	s.log.Infof("Showdown %s settled: %s takes %d", scope, res.WinnerID, res.Pot)
	s.publish(showdownEvent(room, payload))
}

// showdownSettlementFailed logs a settlement error and publishes it to the
// room.
func (s *Server) showdownSettlementFailed(room *showdown.Room, err error) {
	s.log.Errorf("Settlement in %s failed: %v", room.Scope(), err)
	s.publish(showdownEvent(room, SettlementFailedPayload{Error: err.Error()}))
}
