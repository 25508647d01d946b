// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/bureau-foundation/logd/lib/wire"
)

// Registry owns the live sessions and enforces max_clients. A slot is
// reserved when a connection is accepted, before the handshake, so a
// burst of connections cannot overshoot the limit while handshakes are
// in flight.
type Registry struct {
	mutex      sync.RWMutex
	sessions   map[string]*Session
	reserved   int
	maxClients int
}

func NewRegistry(maxClients int) *Registry {
	return &Registry{
		sessions:   make(map[string]*Session),
		maxClients: maxClients,
	}
}

// Reserve claims a slot for a connection about to handshake. Fails
// with an *wire.IPCError matching wire.ErrSessionLimit when every slot
// is taken.
func (r *Registry) Reserve() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if len(r.sessions)+r.reserved >= r.maxClients {
		return &wire.IPCError{
			Kind: wire.ErrSessionLimit,
			Err:  fmt.Errorf("%d of %d sessions in use", len(r.sessions)+r.reserved, r.maxClients),
		}
	}
	r.reserved++
	return nil
}

// Release returns a reserved slot whose handshake failed.
func (r *Registry) Release() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.reserved > 0 {
		r.reserved--
	}
}

// Add turns a reserved slot into a live session.
func (r *Registry) Add(session *Session) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.reserved > 0 {
		r.reserved--
	}
	r.sessions[session.ID] = session
}

// Remove deletes a session and frees its slot. Returns nil if the
// session was already gone.
func (r *Registry) Remove(id string) *Session {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil
	}
	delete(r.sessions, id)
	return session
}

// Len returns the number of live sessions, excluding reservations.
func (r *Registry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.sessions)
}

// Snapshot returns the live sessions ordered by creation time. The
// drain loop visits them in this order.
func (r *Registry) Snapshot() []*Session {
	r.mutex.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	r.mutex.RUnlock()

	slices.SortFunc(sessions, func(a, b *Session) int {
		return a.createdAt.Compare(b.createdAt)
	})
	return sessions
}

// Idle returns sessions with no frame for at least timeout.
func (r *Registry) Idle(now time.Time, timeout time.Duration) []*Session {
	var idle []*Session
	for _, session := range r.Snapshot() {
		if now.Sub(session.LastActivity()) >= timeout {
			idle = append(idle, session)
		}
	}
	return idle
}
