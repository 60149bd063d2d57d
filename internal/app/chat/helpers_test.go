package chat

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"floritechat/internal/app/user"
)

const testPassword = "secret-1"

// fakeTransport records every frame it accepts. Setting fail makes Send error.
type fakeTransport struct {
	mu     sync.Mutex
	frames [][]byte
	fail   bool
	closed bool
}

func (f *fakeTransport) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail || f.closed {
		return ErrTransportClosed
	}
	f.frames = append(f.frames, append([]byte(nil), data...))
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) setFail() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = true
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

// envelopes decodes every recorded frame.
func (f *fakeTransport) envelopes(t *testing.T) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]map[string]any, 0, len(f.frames))
	for _, frame := range f.frames {
		var env map[string]any
		require.NoError(t, json.Unmarshal(frame, &env), string(frame))
		out = append(out, env)
	}
	return out
}

// ofType returns the recorded envelopes of one wire type.
func (f *fakeTransport) ofType(t *testing.T, typ MessageType) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, env := range f.envelopes(t) {
		if env["type"] == string(typ) {
			out = append(out, env)
		}
	}
	return out
}

// memUsers is an in-memory user.Store.
type memUsers struct {
	mu       sync.Mutex
	accounts map[string]user.User
	secrets  map[string]string
	failWith error
}

func newMemUsers() *memUsers {
	return &memUsers{accounts: make(map[string]user.User), secrets: make(map[string]string)}
}

func (m *memUsers) Register(_ context.Context, username, password string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return "", m.failWith
	}
	if _, ok := m.accounts[username]; ok {
		return "", user.ErrAlreadyExists
	}
	id := "id-" + username
	m.accounts[username] = user.User{ID: id, Username: username, CreatedAt: time.Now()}
	m.secrets[username] = password
	return id, nil
}

func (m *memUsers) Verify(_ context.Context, username, password string) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.accounts[username]
	if !ok || m.secrets[username] != password {
		return user.User{}, user.ErrInvalidCredentials
	}
	return u, nil
}

func (m *memUsers) Get(_ context.Context, id string) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.accounts {
		if u.ID == id {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

type testHub struct {
	*Hub
	users *memUsers
	clock *clockwork.FakeClock
}

func newTestHub(t *testing.T, collab Collaborators) *testHub {
	t.Helper()

	users := newMemUsers()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))

	h := NewHub(Options{
		Users:         users,
		Collaborators: collab,
		Clock:         clock,
		JWTSecret:     "test-secret",
		MessageRate:   1000,
		MessageBurst:  1000,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = h.Shutdown(ctx)
	})

	return &testHub{Hub: h, users: users, clock: clock}
}

// connect attaches a session and drops the welcome notice.
func (th *testHub) connect() (*Session, *fakeTransport) {
	ft := &fakeTransport{}
	s := th.Attach(ft)
	ft.reset()
	return s, ft
}

func (th *testHub) frame(s *Session, raw string) {
	th.HandleFrame(context.Background(), s, []byte(raw))
}

// loginAs registers name if needed and logs s in.
func (th *testHub) loginAs(t *testing.T, s *Session, name string) {
	t.Helper()
	_, _ = th.users.Register(context.Background(), name, testPassword)
	th.frame(s, `{"type":"login","username":"`+name+`","password":"`+testPassword+`"}`)
	require.True(t, s.Authenticated(), "login of %s failed", name)
}

// recordingResponder captures command output without a hub.
type recordingResponder struct {
	mu         sync.Mutex
	replies    []Envelope
	broadcasts []Envelope
}

func (r *recordingResponder) Reply(env Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, env)
}

func (r *recordingResponder) Broadcast(env Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, env)
}

func (r *recordingResponder) OpenStream(speaker string) *StreamSession {
	return newStreamSession(roomRecorder{r}, DefaultRoom, speaker)
}

type roomRecorder struct {
	r *recordingResponder
}

func (rr roomRecorder) Broadcast(env Envelope, _ Audience) int {
	rr.r.Broadcast(env)
	return 1
}

func namedSession(name string) *Session {
	s := newSession(context.Background(), &fakeTransport{}, nil, zerolog.Nop(), time.Now())
	s.name = name
	return s
}
