package store

import (
	"sort"
	"sync"

	"github.com/goliatone/go-formstate/pkg/path"
)

// Kind classifies a change.
type Kind uint8

const (
	KindData Kind = 1 << iota
	KindError
	KindTouched
	KindStatus

	KindAll = KindData | KindError | KindTouched | KindStatus

	kindsDefault = KindData | KindError | KindTouched
)

// Change is one (kind, path) pair produced by a mutation. Status changes use
// the root path.
type Change struct {
	Kind Kind
	Path path.Path
}

// Subscription selects the changes a listener cares about. Zero Kinds means
// data, error and touched changes; status changes must be asked for
// explicitly. No Paths means every path.
type Subscription struct {
	Kinds Kind
	Paths []path.Path
}

func (s Subscription) matches(c Change) bool {
	kinds := s.Kinds
	if kinds == 0 {
		kinds = kindsDefault
	}
	if kinds&c.Kind == 0 {
		return false
	}
	if len(s.Paths) == 0 {
		return true
	}
	for _, p := range s.Paths {
		if p.Overlaps(c.Path) {
			return true
		}
	}
	return false
}

// Listener receives the changes of one mutation that matched its
// subscription. It runs after the instance lock is released and may read
// from or update the registry.
type Listener func(formID string, changes []Change)

type subscriber struct {
	sub      Subscription
	listener Listener
}

// Subscribe registers listener for changes on formID. The returned cancel
// func is idempotent. Subscriptions are dropped when the form is removed.
func (r *Registry) Subscribe(formID string, sub Subscription, listener Listener) (func(), error) {
	if listener == nil {
		return func() {}, nil
	}
	r.mu.Lock()
	if _, ok := r.forms[formID]; !ok {
		r.mu.Unlock()
		return nil, notFound(formID)
	}
	r.nextSub++
	id := r.nextSub
	set := r.subs[formID]
	if set == nil {
		set = make(map[uint64]*subscriber)
		r.subs[formID] = set
	}
	set[id] = &subscriber{sub: sub, listener: listener}
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if set := r.subs[formID]; set != nil {
				delete(set, id)
			}
		})
	}, nil
}

func (r *Registry) notify(formID string, changes []Change) {
	if len(changes) == 0 {
		return
	}

	type delivery struct {
		id       uint64
		listener Listener
		changes  []Change
	}

	r.mu.RLock()
	var out []delivery
	for id, s := range r.subs[formID] {
		var matched []Change
		for _, c := range changes {
			if s.sub.matches(c) {
				matched = append(matched, c)
			}
		}
		if len(matched) > 0 {
			out = append(out, delivery{id: id, listener: s.listener, changes: matched})
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	for _, d := range out {
		d.listener(formID, d.changes)
	}
}
