package server

// Subscriber receives every processed event. It runs on an event worker
// and must not block.
type Subscriber func(event *GameEvent)

// Subscribe registers fn and returns a function removing it.
func (s *Server) Subscribe(fn Subscriber) (unsubscribe func()) {
	s.notificationMu.Lock()
	id := s.nextSubscriber
	s.nextSubscriber++
	s.subscribers[id] = fn
	s.notificationMu.Unlock()

	return func() {
		s.notificationMu.Lock()
		delete(s.subscribers, id)
		s.notificationMu.Unlock()
	}
}

// notifySubscribers delivers an event to all current subscribers.
func (s *Server) notifySubscribers(event *GameEvent) {
	s.notificationMu.RLock()
	subs := make([]Subscriber, 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.notificationMu.RUnlock()

	for _, fn := range subs {
		fn(event)
	}
}

// publish hands an event to the processor.
func (s *Server) publish(event *GameEvent) {
	if event == nil {
		return
	}
	s.eventProcessor.PublishEvent(event)
}
