package store

import (
	"sort"

	"github.com/goliatone/go-restcache/cache"
)

// Subscribe registers fn on channel and returns a function removing it.
func (s *Store) Subscribe(channel string, fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	if channel == "" {
		channel = ChannelChange
	}

	s.subsMu.Lock()
	s.nextSub++
	id := s.nextSub
	if s.subs[channel] == nil {
		s.subs[channel] = map[uint64]Listener{}
	}
	s.subs[channel][id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs[channel], id)
		if len(s.subs[channel]) == 0 {
			delete(s.subs, channel)
		}
	}
}

// Flush delivers pending notifications on the calling goroutine. Called
// from a listener, or while another goroutine is delivering, it returns at
// once and the active delivery picks up whatever is pending.
func (s *Store) Flush() {
	s.drain()
}

func (s *Store) notify(addr *cache.Address) {
	channels := []string{ChannelChange}
	if addr != nil {
		switch {
		case addr.ID != "":
			channels = append(channels, ChannelFor(addr.ID))
		case addr.BasePath != "":
			channels = append(channels, ChannelFor(addr.BasePath))
		}
	}

	s.subsMu.Lock()
	for _, channel := range channels {
		if _, ok := s.queued[channel]; ok {
			continue
		}
		s.queued[channel] = struct{}{}
		s.pending = append(s.pending, channel)
	}
	schedule := !s.scheduled
	s.scheduled = true
	s.subsMu.Unlock()

	if schedule {
		s.cfg.scheduler(s.drain)
	}
}

func (s *Store) drain() {
	s.subsMu.Lock()
	if s.delivering {
		s.subsMu.Unlock()
		return
	}
	s.delivering = true
	s.subsMu.Unlock()

	defer func() {
		s.subsMu.Lock()
		s.delivering = false
		s.subsMu.Unlock()
	}()
	for s.deliverPending() {
	}
}

// deliverPending runs listeners for the queued channels and reports whether
// there was anything to deliver.
func (s *Store) deliverPending() bool {
	s.subsMu.Lock()
	channels := s.pending
	s.pending = nil
	s.queued = map[string]struct{}{}
	s.scheduled = false
	batches := make([][]Listener, len(channels))
	for i, channel := range channels {
		batches[i] = listeners(s.subs[channel])
	}
	s.subsMu.Unlock()

	for i, channel := range channels {
		change := Change{Type: s.def.Type, Channel: channel}
		for _, fn := range batches[i] {
			fn(change)
		}
	}
	return len(channels) > 0
}

func listeners(set map[uint64]Listener) []Listener {
	if len(set) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]Listener, len(ids))
	for i, id := range ids {
		out[i] = set[id]
	}
	return out
}
