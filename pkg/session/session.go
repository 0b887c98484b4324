// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package session provides session management.
//
// A session is a series of interactions between a user and agents. It owns
// the shared state (the data bag agents publish their output keys into) and
// the event history. Appending an event applies its state delta.
package session

import (
	"context"
	"errors"
	"iter"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/toddleops/pkg/agent"
)

// Session represents a conversation session between user and agents.
type Session interface {
	agent.Session

	// LastUpdateTime returns when the session was last modified.
	LastUpdateTime() time.Time
}

// Service manages session lifecycle.
type Service interface {
	Get(ctx context.Context, req *GetRequest) (*GetResponse, error)
	Create(ctx context.Context, req *CreateRequest) (*CreateResponse, error)

	// AppendEvent adds an event to the session history and applies its
	// state delta.
	AppendEvent(ctx context.Context, session agent.Session, event *agent.Event) error

	Delete(ctx context.Context, req *DeleteRequest) error
}

// GetRequest contains parameters for retrieving a session.
type GetRequest struct {
	AppName   string
	UserID    string
	SessionID string
}

// GetResponse contains the retrieved session.
type GetResponse struct {
	Session Session
}

// CreateRequest contains parameters for creating a session.
type CreateRequest struct {
	AppName   string
	UserID    string
	SessionID string // generated if empty
	State     map[string]any
}

// CreateResponse contains the created session.
type CreateResponse struct {
	Session Session
}

// DeleteRequest contains parameters for deleting a session.
type DeleteRequest struct {
	AppName   string
	UserID    string
	SessionID string
}

// KeyPrefixTemp marks state that is discarded after each invocation.
const KeyPrefixTemp = "temp:"

var (
	// ErrStateKeyNotExist is returned when a state key doesn't exist.
	ErrStateKeyNotExist = errors.New("state key does not exist")

	// ErrSessionNotFound is returned when a session doesn't exist.
	ErrSessionNotFound = errors.New("session not found")
)

type memorySession struct {
	id             string
	appName        string
	userID         string
	state          *memoryState
	events         *memoryEvents
	lastUpdateTime time.Time
	mu             sync.RWMutex
}

func (s *memorySession) ID() string           { return s.id }
func (s *memorySession) AppName() string      { return s.appName }
func (s *memorySession) UserID() string       { return s.userID }
func (s *memorySession) State() agent.State   { return s.state }
func (s *memorySession) Events() agent.Events { return s.events }

func (s *memorySession) LastUpdateTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdateTime
}

func (s *memorySession) appendEvent(event *agent.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !event.Partial {
		for k, v := range event.Actions.StateDelta {
			_ = s.state.Set(k, v)
		}
	}
	s.events.append(event)
	s.lastUpdateTime = time.Now()
}

// NewState returns a standalone in-memory State seeded with initial.
func NewState(initial map[string]any) agent.State {
	return newMemoryState(initial)
}

type memoryState struct {
	data map[string]any
	mu   sync.RWMutex
}

func newMemoryState(initial map[string]any) *memoryState {
	data := make(map[string]any, len(initial))
	maps.Copy(data, initial)
	return &memoryState{data: data}
}

func (s *memoryState) Get(key string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	if !ok {
		return nil, ErrStateKeyNotExist
	}
	return val, nil
}

func (s *memoryState) Set(key string, val any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = val
	return nil
}

func (s *memoryState) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// All iterates over a snapshot, so callers may modify state while ranging.
func (s *memoryState) All() iter.Seq2[string, any] {
	s.mu.RLock()
	snapshot := maps.Clone(s.data)
	s.mu.RUnlock()
	return maps.All(snapshot)
}

// ClearTempKeys removes all keys with the temp: prefix.
func (s *memoryState) ClearTempKeys() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.data {
		if strings.HasPrefix(key, KeyPrefixTemp) {
			delete(s.data, key)
		}
	}
}

type memoryEvents struct {
	events []*agent.Event
	mu     sync.RWMutex
}

func (e *memoryEvents) All() iter.Seq[*agent.Event] {
	return func(yield func(*agent.Event) bool) {
		e.mu.RLock()
		events := append([]*agent.Event(nil), e.events...)
		e.mu.RUnlock()
		for _, ev := range events {
			if !yield(ev) {
				return
			}
		}
	}
}

func (e *memoryEvents) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.events)
}

func (e *memoryEvents) At(i int) *agent.Event {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if i < 0 || i >= len(e.events) {
		return nil
	}
	return e.events[i]
}

func (e *memoryEvents) append(event *agent.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

// InMemoryService returns an in-memory session service.
func InMemoryService() Service {
	return &inMemoryService{
		sessions: make(map[string]*memorySession),
	}
}

type inMemoryService struct {
	sessions map[string]*memorySession
	mu       sync.RWMutex
}

func sessionKey(appName, userID, sessionID string) string {
	return appName + ":" + userID + ":" + sessionID
}

func (s *inMemoryService) Get(ctx context.Context, req *GetRequest) (*GetResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionKey(req.AppName, req.UserID, req.SessionID)]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &GetResponse{Session: sess}, nil
}

func (s *inMemoryService) Create(ctx context.Context, req *CreateRequest) (*CreateResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	sess := &memorySession{
		id:             sessionID,
		appName:        req.AppName,
		userID:         req.UserID,
		state:          newMemoryState(req.State),
		events:         &memoryEvents{},
		lastUpdateTime: time.Now(),
	}
	s.sessions[sessionKey(req.AppName, req.UserID, sessionID)] = sess

	return &CreateResponse{Session: sess}, nil
}

func (s *inMemoryService) AppendEvent(ctx context.Context, sess agent.Session, event *agent.Event) error {
	s.mu.RLock()
	ms, ok := s.sessions[sessionKey(sess.AppName(), sess.UserID(), sess.ID())]
	s.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}

	ms.appendEvent(event)
	return nil
}

func (s *inMemoryService) Delete(ctx context.Context, req *DeleteRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionKey(req.AppName, req.UserID, req.SessionID))
	return nil
}

var (
	_ Session      = (*memorySession)(nil)
	_ agent.State  = (*memoryState)(nil)
	_ agent.Events = (*memoryEvents)(nil)
	_ Service      = (*inMemoryService)(nil)
)
