/*
Package memstore keeps identities, profiles, messages and uploaded objects in
process memory. It backs STORE_DRIVER=memory in development and is the
fixture used by service and handler tests.
*/
package memstore

import (
	"bytes"
	"context"
	"io"
	"slices"
	"strings"
	"sync"

	"chatroom/internal/app/chat"
	"chatroom/internal/app/user"
)

// Store implements the account, profile and message stores in one value so
// the sender-has-profile invariant can be checked on append.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]user.Account
	profiles map[string]user.Profile
	messages []chat.Message
	seq      int64
}

func New() *Store {
	return &Store{
		accounts: make(map[string]user.Account),
		profiles: make(map[string]user.Profile),
	}
}

func (s *Store) CreateAccount(_ context.Context, acc user.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.Provider != acc.Provider {
			continue
		}
		if acc.Provider == user.ProviderPassword && strings.EqualFold(existing.Email, acc.Email) {
			return user.ErrAccountExists
		}
		if acc.Provider != user.ProviderPassword && existing.Subject == acc.Subject {
			return user.ErrAccountExists
		}
	}
	if _, ok := s.accounts[acc.ID]; ok {
		return user.ErrAccountExists
	}

	s.accounts[acc.ID] = acc
	return nil
}

func (s *Store) AccountByEmail(_ context.Context, email string) (user.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, acc := range s.accounts {
		if acc.Provider == user.ProviderPassword && strings.EqualFold(acc.Email, email) {
			return acc, nil
		}
	}
	return user.Account{}, user.ErrNotFound
}

func (s *Store) AccountBySubject(_ context.Context, provider, subject string) (user.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, acc := range s.accounts {
		if acc.Provider == provider && acc.Subject == subject {
			return acc, nil
		}
	}
	return user.Account{}, user.ErrNotFound
}

// DeleteAccount removes the account and its profile.
func (s *Store) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; !ok {
		return user.ErrNotFound
	}
	delete(s.accounts, id)
	delete(s.profiles, id)
	return nil
}

func (s *Store) CreateProfile(_ context.Context, p user.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[p.ID]; !ok {
		return user.ErrNotFound
	}
	if _, ok := s.profiles[p.ID]; ok {
		return user.ErrProfileExists
	}
	s.profiles[p.ID] = p
	return nil
}

func (s *Store) Profile(_ context.Context, id string) (user.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return user.Profile{}, user.ErrNotFound
	}
	return p, nil
}

// Append stores msg with the next sequence number.
func (s *Store) Append(_ context.Context, msg chat.Message) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[msg.SenderID]; !ok {
		return chat.Message{}, user.ErrUnknownSender
	}

	s.seq++
	msg.Seq = s.seq
	s.messages = append(s.messages, msg)
	return msg, nil
}

// List returns a copy of all messages ordered by SentAt, then Seq.
func (s *Store) List(_ context.Context) ([]chat.Message, error) {
	s.mu.RLock()
	out := slices.Clone(s.messages)
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b chat.Message) int {
		if c := a.SentAt.Compare(b.SentAt); c != 0 {
			return c
		}
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})
	return out, nil
}

// Objects is an in-memory object store for avatars.
type Objects struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]Object
}

// Object is a stored blob.
type Object struct {
	ContentType string
	Data        []byte
}

// NewObjects returns an object store whose public URLs start with baseURL.
func NewObjects(baseURL string) *Objects {
	return &Objects{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]Object),
	}
}

func (o *Objects) Upload(_ context.Context, key, contentType string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[key] = Object{ContentType: contentType, Data: data}
	return nil
}

func (o *Objects) PublicURL(key string) string {
	return o.baseURL + "/" + key
}

func (o *Objects) Delete(_ context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.objects, key)
	return nil
}

// Get returns the object stored under key.
func (o *Objects) Get(key string) (Object, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	obj, ok := o.objects[key]
	if !ok {
		return Object{}, false
	}
	obj.Data = bytes.Clone(obj.Data)
	return obj, true
}

// Len returns the number of stored objects.
func (o *Objects) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.objects)
}
