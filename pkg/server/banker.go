package server

import (
	"context"

	"github.com/vctt94/tablegames/pkg/banker"
	"github.com/vctt94/tablegames/pkg/game"
	"github.com/vctt94/tablegames/pkg/settlement"
)

// BankerCreate opens a banker room in scope. The host holds the first bank.
func (s *Server) BankerCreate(ctx context.Context, scope game.Scope, host game.Seat, stake int64) (*banker.Snapshot, error) {
	if err := s.requireFunds(ctx, scope.GuildID, host, stake); err != nil {
		return nil, err
	}
	if _, err := s.banker.Create(scope, host, stake); err != nil {
		return nil, err
	}
	return s.bankerAction(ctx, scope, func(*banker.Room, game.PayFunc) (EventPayload, error) {
		return RoomCreatedPayload{HostID: host.ID, Stake: stake}, nil
	})
}

// BankerJoin seats a challenger in the channel's waiting room.
func (s *Server) BankerJoin(ctx context.Context, scope game.Scope, seat game.Seat) (*banker.Snapshot, error) {
	room, err := s.banker.Get(scope)
	if err != nil {
		return nil, err
	}
	if err := s.requireFunds(ctx, scope.GuildID, seat, room.Stake()); err != nil {
		return nil, err
	}
	if _, err := s.banker.Join(scope, seat); err != nil {
		return nil, err
	}
	return s.bankerAction(ctx, scope, func(*banker.Room, game.PayFunc) (EventPayload, error) {
		return PlayerJoinedPayload{PlayerID: seat.ID}, nil
	})
}

// BankerLeave unseats a player while the room waits. The host leaving
// closes the room.
func (s *Server) BankerLeave(ctx context.Context, scope game.Scope, playerID string) (*banker.Snapshot, bool, error) {
	_, closed, err := s.banker.Leave(scope, playerID)
	if err != nil {
		return nil, false, err
	}
	if closed {
		s.publish(closedEvent(game.KindBanker, scope, PlayerLeftPayload{PlayerID: playerID, Closed: true}))
		return nil, true, nil
	}
	snap, err := s.bankerAction(ctx, scope, func(*banker.Room, game.PayFunc) (EventPayload, error) {
		return PlayerLeftPayload{PlayerID: playerID}, nil
	})
	return snap, false, err
}

// BankerStart deals a new game, taking the challengers' antes.
func (s *Server) BankerStart(ctx context.Context, scope game.Scope, playerID string) (*banker.Snapshot, error) {
	return s.bankerAction(ctx, scope, func(room *banker.Room, pay game.PayFunc) (EventPayload, error) {
		if err := room.Start(playerID, pay); err != nil {
			return nil, err
		}
		var antes int64
		for _, p := range room.Players() {
			antes += p.CurrentBet()
		}
		return GameStartedPayload{PlayerIDs: bankerPlayerIDs(room), Pot: antes}, nil
	})
}

// BankerHit draws a card for the player on turn.
func (s *Server) BankerHit(ctx context.Context, scope game.Scope, playerID string) (*banker.Snapshot, error) {
	return s.bankerAction(ctx, scope, func(room *banker.Room, _ game.PayFunc) (EventPayload, error) {
		if err := room.Hit(playerID); err != nil {
			return nil, err
		}
		return CardDrawnPayload{PlayerID: playerID}, nil
	})
}

// BankerStand ends the turn of the player on turn.
func (s *Server) BankerStand(ctx context.Context, scope game.Scope, playerID string) (*banker.Snapshot, error) {
	return s.bankerAction(ctx, scope, func(room *banker.Room, _ game.PayFunc) (EventPayload, error) {
		if err := room.Stand(playerID); err != nil {
			return nil, err
		}
		return PlayerStoodPayload{PlayerID: playerID}, nil
	})
}

// BankerDouble doubles the bet of the player on turn and draws their last
// card.
func (s *Server) BankerDouble(ctx context.Context, scope game.Scope, playerID string) (*banker.Snapshot, error) {
	return s.bankerAction(ctx, scope, func(room *banker.Room, pay game.PayFunc) (EventPayload, error) {
		if err := room.Double(playerID, pay); err != nil {
			return nil, err
		}
		return CardDrawnPayload{PlayerID: playerID, Doubled: true}, nil
	})
}

// BankerReveal settles one challenger against the banker's current hand.
func (s *Server) BankerReveal(ctx context.Context, scope game.Scope, bankerID, targetID string) (banker.Outcome, *banker.Snapshot, error) {
	var outcome banker.Outcome
	snap, err := s.bankerAction(ctx, scope, func(room *banker.Room, _ game.PayFunc) (EventPayload, error) {
		var err error
		outcome, err = room.RevealPlayer(bankerID, targetID)
		if err != nil {
			return nil, err
		}
		return HandRevealedPayload{PlayerID: targetID}, nil
	})
	return outcome, snap, err
}

// BankerRestart returns a finished room to waiting, rotating the bank when
// due.
func (s *Server) BankerRestart(ctx context.Context, scope game.Scope, playerID string) (*banker.Snapshot, error) {
	return s.bankerAction(ctx, scope, func(room *banker.Room, _ game.PayFunc) (EventPayload, error) {
		if err := room.Restart(playerID); err != nil {
			return nil, err
		}
		return RoomRestartedPayload{BankerID: room.Banker().ID()}, nil
	})
}

// BankerEnd closes the room on the host's request, refunding challengers
// not settled yet.
func (s *Server) BankerEnd(ctx context.Context, scope game.Scope, playerID string) (int64, error) {
	var refunds []game.Charge
	err := s.banker.Close(scope, func(room *banker.Room) error {
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
	s.log.Infof("Banker room %s ended by %s, %d refunded", scope, playerID, total)
	s.publish(closedEvent(game.KindBanker, scope, RoomClosedPayload{ClosedBy: playerID, Refunded: total}))
	return total, nil
}

// BankerStatus returns the current state of the channel's room.
func (s *Server) BankerStatus(scope game.Scope) (*banker.Snapshot, error) {
	var snap *banker.Snapshot
	err := s.banker.WithRoom(scope, func(room *banker.Room) error {
		snap = room.Snapshot()
		return nil
	})
	return snap, err
}

// bankerAction runs act under the room lock, publishes its event and pays
// out every challenger the action settled.
func (s *Server) bankerAction(ctx context.Context, scope game.Scope,
	act func(*banker.Room, game.PayFunc) (EventPayload, error)) (*banker.Snapshot, error) {

	var snap *banker.Snapshot
	err := s.banker.WithRoom(scope, func(room *banker.Room) error {
		wasFinished := room.Status() == banker.StateFinished
		payload, err := act(room, s.payFunc(ctx, scope.GuildID))
		if err != nil {
			return err
		}
		s.publish(bankerEvent(room, payload))
		s.settleBanker(ctx, room)
		if !wasFinished && room.Status() == banker.StateFinished {
			s.finishBanker(ctx, room)
		}
		snap = room.Snapshot()
		return nil
	})
	return snap, err
}

// settleBanker applies the payouts of challengers settled since the last
// action. Ledger failures are logged and published; results stand.
func (s *Server) settleBanker(ctx context.Context, room *banker.Room) {
	for _, st := range room.DrainSettled() {
		plan, err := settlement.Banker(st)
		if err != nil {
			s.bankerSettlementFailed(room, err)
			continue
		}
		if err := settlement.Apply(ctx, s.db, st.Scope.GuildID, plan); err != nil {
			s.bankerSettlementFailed(room, err)
		}
		if err := settlement.RecordBanker(ctx, s.db, st); err != nil {
			s.log.Warnf("Recording banker result of %s in %s: %v", st.Challenger.ID, st.Scope, err)
		}
		s.log.Debugf("Settled %s vs %s in %s: %s (%+d)", st.Challenger.ID, st.Banker.ID, st.Scope,
			st.Outcome, plan.Delta(st.Challenger.ID))
		s.publish(bankerEvent(room, ChallengerSettledPayload{
			ChallengerID: st.Challenger.ID,
			BankerID:     st.Banker.ID,
			Outcome:      st.Outcome,
			Delta:        plan.Delta(st.Challenger.ID),
		}))
	}
}

// finishBanker stores the history entry of a finished game.
func (s *Server) finishBanker(ctx context.Context, room *banker.Room) {
	res, err := room.Result()
	if err != nil {
		s.log.Errorf("Banker game %s finished without a result: %v", room.Scope(), err)
		return
	}
	id, err := s.db.SaveGame(ctx, settlement.BankerRecord(res))
	if err != nil {
		s.log.Warnf("Saving banker game %s: %v", room.Scope(), err)
	}
	s.publish(bankerEvent(room, BankerFinishedPayload{BankerID: res.Banker.ID, GameID: id}))
}

// bankerSettlementFailed logs a settlement error and publishes it to the
// room.
func (s *Server) bankerSettlementFailed(room *banker.Room, err error) {
	s.log.Errorf("Settlement in %s failed: %v", room.Scope(), err)
	s.publish(bankerEvent(room, SettlementFailedPayload{Error: err.Error()}))
}
