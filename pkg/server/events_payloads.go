package server

import "github.com/vctt94/tablegames/pkg/banker"

// Each event carries exactly one payload implementing this interface.
type EventPayload interface {
	Kind() GameEventType
}

// ---------- Room lifecycle payloads ----------

type RoomCreatedPayload struct {
	HostID string
	Stake  int64
}

func (RoomCreatedPayload) Kind() GameEventType { return GameEventTypeRoomCreated }

type PlayerJoinedPayload struct {
	PlayerID string
}

func (PlayerJoinedPayload) Kind() GameEventType { return GameEventTypePlayerJoined }

type PlayerLeftPayload struct {
	PlayerID string
	Closed   bool // the room was removed
}

func (PlayerLeftPayload) Kind() GameEventType { return GameEventTypePlayerLeft }

type PlayerReadyPayload struct {
	PlayerID string
	Ready    bool
}

func (PlayerReadyPayload) Kind() GameEventType { return GameEventTypePlayerReady }

type GameStartedPayload struct {
	PlayerIDs []string
	Pot       int64 // antes collected
}

func (GameStartedPayload) Kind() GameEventType { return GameEventTypeGameStarted }

type RoomRestartedPayload struct {
	BankerID string // banker game only
}

func (RoomRestartedPayload) Kind() GameEventType { return GameEventTypeRoomRestarted }

type RoomClosedPayload struct {
	ClosedBy string
	Refunded int64 // stakes returned from an unfinished game
}

func (RoomClosedPayload) Kind() GameEventType { return GameEventTypeRoomClosed }

// ---------- Showdown payloads ----------

type BetMadePayload struct {
	PlayerID string
	RaiseTo  int64
	Amount   int64 // chips added
}

func (BetMadePayload) Kind() GameEventType { return GameEventTypeBetMade }

type CallMadePayload struct {
	PlayerID string
	Amount   int64
}

func (CallMadePayload) Kind() GameEventType { return GameEventTypeCallMade }

type PlayerFoldedPayload struct {
	PlayerID string
}

func (PlayerFoldedPayload) Kind() GameEventType { return GameEventTypePlayerFolded }

type HandRevealedPayload struct {
	PlayerID string
}

func (HandRevealedPayload) Kind() GameEventType { return GameEventTypeHandRevealed }

type ShowdownPayload struct {
	WinnerID string
	Tier     string
	Pot      int64
	GameID   string // history id, empty if saving failed
}

func (ShowdownPayload) Kind() GameEventType { return GameEventTypeShowdownResult }

// ---------- Banker game payloads ----------

type CardDrawnPayload struct {
	PlayerID string
	Doubled  bool
}

func (CardDrawnPayload) Kind() GameEventType { return GameEventTypeCardDrawn }

type PlayerStoodPayload struct {
	PlayerID string
}

func (PlayerStoodPayload) Kind() GameEventType { return GameEventTypePlayerStood }

type ChallengerSettledPayload struct {
	ChallengerID string
	BankerID     string
	Outcome      banker.Outcome
	Delta        int64 // challenger's net for the game
}

func (ChallengerSettledPayload) Kind() GameEventType { return GameEventTypeChallengerSettled }

type BankerFinishedPayload struct {
	BankerID string
	GameID   string
}

func (BankerFinishedPayload) Kind() GameEventType { return GameEventTypeBankerFinished }

// ---------- Failures ----------

type SettlementFailedPayload struct {
	Error string
}

func (SettlementFailedPayload) Kind() GameEventType { return GameEventTypeSettlementFailed }
