package server

import (
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/vctt94/tablegames/pkg/banker"
	"github.com/vctt94/tablegames/pkg/game"
	"github.com/vctt94/tablegames/pkg/showdown"
)

// GameEventType represents the type of game event
type GameEventType string

const (
	GameEventTypeRoomCreated       GameEventType = "room_created"
	GameEventTypePlayerJoined      GameEventType = "player_joined"
	GameEventTypePlayerLeft        GameEventType = "player_left"
	GameEventTypePlayerReady       GameEventType = "player_ready"
	GameEventTypeGameStarted       GameEventType = "game_started"
	GameEventTypeRoomRestarted     GameEventType = "room_restarted"
	GameEventTypeRoomClosed        GameEventType = "room_closed"
	GameEventTypeBetMade           GameEventType = "bet_made"
	GameEventTypeCallMade          GameEventType = "call_made"
	GameEventTypePlayerFolded      GameEventType = "player_folded"
	GameEventTypeHandRevealed      GameEventType = "hand_revealed"
	GameEventTypeShowdownResult    GameEventType = "showdown_result"
	GameEventTypeCardDrawn         GameEventType = "card_drawn"
	GameEventTypePlayerStood       GameEventType = "player_stood"
	GameEventTypeChallengerSettled GameEventType = "challenger_settled"
	GameEventTypeBankerFinished    GameEventType = "banker_finished"
	GameEventTypeSettlementFailed  GameEventType = "settlement_failed"
)

// GameEvent is an immutable record of something that happened in a room.
// Exactly one of Showdown and Banker is set, except for events of a room
// that no longer exists.
type GameEvent struct {
	Type      GameEventType
	Game      game.Kind
	Scope     game.Scope
	Payload   EventPayload
	Showdown  *showdown.Snapshot
	Banker    *banker.Snapshot
	Timestamp time.Time
}

// EventProcessor manages the processing of game events
type EventProcessor struct {
	log      slog.Logger
	handlers []EventHandler
	queue    chan *GameEvent
	workers  []*eventWorker
	stopChan chan struct{}
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex
}

// eventWorker processes events from the queue
type eventWorker struct {
	id        int
	processor *EventProcessor
	wg        *sync.WaitGroup
}

// NewEventProcessor creates a new event processor. Events of one channel
// are only delivered in order when workerCount is 1.
func NewEventProcessor(log slog.Logger, queueSize, workerCount int, handlers ...EventHandler) *EventProcessor {
	processor := &EventProcessor{
		log:      log,
		handlers: handlers,
		queue:    make(chan *GameEvent, queueSize),
		stopChan: make(chan struct{}),
	}

	processor.workers = make([]*eventWorker, workerCount)
	for i := 0; i < workerCount; i++ {
		processor.workers[i] = &eventWorker{
			id:        i,
			processor: processor,
			wg:        &processor.wg,
		}
	}

	return processor
}

// Start begins processing events
func (ep *EventProcessor) Start() {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	if ep.started {
		return
	}

	ep.started = true
	ep.stopChan = make(chan struct{})
	ep.log.Infof("Starting event processor with %d workers", len(ep.workers))

	for _, worker := range ep.workers {
		ep.wg.Add(1)
		go worker.run()
	}
}

// Stop gracefully stops the event processor. Queued events not yet picked
// up by a worker are dropped.
func (ep *EventProcessor) Stop() {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	if !ep.started {
		return
	}

	ep.log.Infof("Stopping event processor...")
	close(ep.stopChan)
	ep.wg.Wait()

	ep.started = false
	ep.log.Infof("Event processor stopped")
}

// PublishEvent queues an event for processing. It never blocks: when the
// queue is full the event is dropped.
func (ep *EventProcessor) PublishEvent(event *GameEvent) {
	ep.mu.Lock()
	started := ep.started
	ep.mu.Unlock()

	if !started {
		ep.log.Warnf("Event processor not started, dropping event: %v", event.Type)
		return
	}

	select {
	case ep.queue <- event:
		ep.log.Debugf("Published event: %s for room %s", event.Type, event.Scope)
	default:
		ep.log.Errorf("Event queue full, dropping event: %s for room %s", event.Type, event.Scope)
	}
}

// run executes the worker loop
func (w *eventWorker) run() {
	defer w.wg.Done()
	w.processor.log.Debugf("Event worker %d started", w.id)

	for {
		select {
		case <-w.processor.stopChan:
			w.processor.log.Debugf("Event worker %d stopping", w.id)
			return

		case event := <-w.processor.queue:
			if event != nil {
				w.processEvent(event)
			}
		}
	}
}

// processEvent processes a single event using all registered handlers
func (w *eventWorker) processEvent(event *GameEvent) {
	w.processor.log.Tracef("Worker %d processing event: %s for room %s", w.id, event.Type, event.Scope)
	for _, h := range w.processor.handlers {
		h.HandleEvent(event)
	}
}
