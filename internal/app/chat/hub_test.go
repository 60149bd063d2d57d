package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floritechat/internal/pkg/auth/jwt"
	"floritechat/internal/pkg/errs"
)

func TestAttachSendsWelcome(t *testing.T) {
	th := newTestHub(t, Collaborators{})
	ft := &fakeTransport{}
	s := th.Attach(ft)

	notices := ft.ofType(t, TypeSystem)
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0]["message"], s.ID)
	assert.Equal(t, "Guest_"+s.ID, s.Name())
	assert.Equal(t, DefaultRoom, s.Room())
	assert.False(t, s.Authenticated())
}

func TestUnauthenticatedMessageIsRejected(t *testing.T) {
	th := newTestHub(t, Collaborators{})
	guest, fg := th.connect()
	_, fw := th.connect()

	th.frame(guest, `{"type":"message","message":"hi"}`)
	th.frame(guest, `plain text`)
	th.frame(guest, `{"type":"join_room","room":"games"}`)

	rejections := fg.ofType(t, TypeError)
	require.Len(t, rejections, 3)
	for _, e := range rejections {
		assert.Equal(t, string(errs.KindAuth), e["kind"])
		assert.EqualValues(t, errs.ErrNotLoggedIn, e["code"])
	}
	assert.Empty(t, fw.envelopes(t))
	assert.Equal(t, DefaultRoom, guest.Room())
}

func TestPingIsAnsweredBeforeLogin(t *testing.T) {
	th := newTestHub(t, Collaborators{})
	s, ft := th.connect()

	th.frame(s, "ping")
	th.frame(s, ` {"type":"ping"} `)
	th.clock.Advance(5 * time.Second)
	th.frame(s, "pong")

	assert.Len(t, ft.ofType(t, TypePong), 2)
	assert.Equal(t, th.clock.Now(), s.LastActivity())
	assert.Len(t, ft.envelopes(t), 2)
}

func TestLoginFlow(t *testing.T) {
	th := newTestHub(t, Collaborators{})
	alice, fa := th.connect()
	_, fw := th.connect()
	_, err := th.users.Register(context.Background(), "alice", testPassword)
	require.NoError(t, err)

	th.frame(alice, `{"type":"login","username":"alice","password":"wrong-pass"}`)
	resp := fa.ofType(t, TypeLoginResponse)
	require.Len(t, resp, 1)
	assert.Equal(t, false, resp[0]["success"])
	assert.EqualValues(t, errs.ErrInvalidCredentials, resp[0]["code"])

	th.frame(alice, `{"type":"login","username":"alice"}`)
	resp = fa.ofType(t, TypeLoginResponse)
	require.Len(t, resp, 2)
	assert.EqualValues(t, errs.ErrMissingCredentials, resp[1]["code"])

	fa.reset()
	th.frame(alice, `{"type":"login","username":"alice","password":"`+testPassword+`"}`)
	resp = fa.ofType(t, TypeLoginResponse)
	require.Len(t, resp, 1)
	assert.Equal(t, true, resp[0]["success"])
	assert.Equal(t, "alice", alice.Name())

	userData := resp[0]["user_data"].(map[string]any)
	assert.Equal(t, "id-alice", userData["id"])
	assert.Equal(t, "👤", userData["avatar"])

	payload, err := jwt.ParseToken(resp[0]["token"].(string), "test-secret")
	require.NoError(t, err)
	assert.Equal(t, "id-alice", payload.ID)

	// the room hears about it, the new user does not get their own join notice
	joins := fw.ofType(t, TypeSystem)
	require.Len(t, joins, 1)
	assert.Equal(t, "alice joined the chat", joins[0]["message"])
	assert.Empty(t, fa.ofType(t, TypeSystem))

	for _, ft := range []*fakeTransport{fa, fw} {
		updates := ft.ofType(t, TypeOnlineUsersUpdate)
		require.Len(t, updates, 1)
		assert.Equal(t, []any{"alice"}, updates[0]["online_users"])
	}

	th.frame(alice, `{"type":"login","username":"alice","password":"`+testPassword+`"}`)
	resp = fa.ofType(t, TypeLoginResponse)
	assert.EqualValues(t, errs.ErrAlreadyLoggedIn, resp[len(resp)-1]["code"])
}

func TestConcurrentLoginSameName(t *testing.T) {
	th := newTestHub(t, Collaborators{})
	_, err := th.users.Register(context.Background(), "alice", testPassword)
	require.NoError(t, err)

	s1, f1 := th.connect()
	s2, f2 := th.connect()

	var wg sync.WaitGroup
	for _, s := range []*Session{s1, s2} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			th.frame(s, `{"type":"login","username":"alice","password":"`+testPassword+`"}`)
		}()
	}
	wg.Wait()

	assert.NotEqual(t, s1.Authenticated(), s2.Authenticated())

	loser := f2
	if s2.Authenticated() {
		loser = f1
	}
	resp := loser.ofType(t, TypeLoginResponse)
	require.Len(t, resp, 1)
	assert.Equal(t, false, resp[0]["success"])
	assert.EqualValues(t, errs.ErrDuplicateSession, resp[0]["code"])
	assert.Equal(t, []string{"alice"}, th.OnlineNames())
}

func TestRegisterFlow(t *testing.T) {
	th := newTestHub(t, Collaborators{})
	s, ft := th.connect()

	cases := []struct {
		frame string
		code  int
	}{
		{`{"type":"register","username":"ab","password":"longenough"}`, errs.ErrInvalidUsername},
		{`{"type":"register","username":"has space","password":"longenough"}`, errs.ErrInvalidUsername},
		{`{"type":"register","username":"@alice","password":"longenough"}`, errs.ErrInvalidUsername},
		{`{"type":"register","username":"guest_007","password":"longenough"}`, errs.ErrInvalidUsername},
		{`{"type":"register","username":"Weather","password":"longenough"}`, errs.ErrInvalidUsername},
		{`{"type":"register","username":"天气","password":"longenough"}`, errs.ErrInvalidUsername},
		{`{"type":"register","username":"alice","password":"short"}`, errs.ErrInvalidPassword},
	}
	for _, tc := range cases {
		ft.reset()
		th.frame(s, tc.frame)
		resp := ft.ofType(t, TypeRegisterResponse)
		require.Len(t, resp, 1, tc.frame)
		assert.Equal(t, false, resp[0]["success"], tc.frame)
		assert.EqualValues(t, tc.code, resp[0]["code"], tc.frame)
	}

	ft.reset()
	th.frame(s, `{"type":"register","username":"alice","password":"longenough"}`)
	resp := ft.ofType(t, TypeRegisterResponse)
	require.Len(t, resp, 1)
	assert.Equal(t, true, resp[0]["success"])
	assert.False(t, s.Authenticated())

	ft.reset()
	th.frame(s, `{"type":"register","username":"alice","password":"longenough"}`)
	resp = ft.ofType(t, TypeRegisterResponse)
	assert.EqualValues(t, errs.ErrUserAlreadyExists, resp[0]["code"])

	th.users.failWith = errors.New("user: connection refused")
	ft.reset()
	th.frame(s, `{"type":"register","username":"bob","password":"longenough"}`)
	resp = ft.ofType(t, TypeRegisterResponse)
	assert.EqualValues(t, errs.ErrRegisterFailed, resp[0]["code"])
	assert.Equal(t, "Registration failed: connection refused", resp[0]["message"])
}

func TestChatRelayAndLimits(t *testing.T) {
	th := newTestHub(t, Collaborators{})
	alice, fa := th.connect()
	bob, fb := th.connect()
	th.loginAs(t, alice, "alice")
	th.loginAs(t, bob, "bob")
	fa.reset()
	fb.reset()

	th.frame(alice, `{"type":"message","message":"  hello  "}`)
	for _, ft := range []*fakeTransport{fa, fb} {
		msgs := ft.ofType(t, TypeMessage)
		require.Len(t, msgs, 1)
		assert.Equal(t, "hello", msgs[0]["message"])
		assert.Equal(t, "alice", msgs[0]["sender"])
	}

	th.frame(alice, `{"type":"message","message":"   "}`)
	th.frame(alice, `{"type":"message","message":"`+strings.Repeat("x", MaxContentBytes+1)+`"}`)
	th.frame(alice, `{"type":"dance"}`)

	rejections := fa.ofType(t, TypeError)
	require.Len(t, rejections, 3)
	assert.Equal(t, "Message must not be empty.", rejections[0]["message"])
	assert.Equal(t, "Message is too long.", rejections[1]["message"])
	assert.Equal(t, "Unknown message type: dance", rejections[2]["message"])
	assert.Len(t, fb.ofType(t, TypeMessage), 1)
}

func TestMessageRateLimit(t *testing.T) {
	th := newTestHub(t, Collaborators{})
	th.messageRate, th.messageBurst = 0.001, 2

	alice, fa := th.connect()
	th.loginAs(t, alice, "alice")
	fa.reset()

	for range 3 {
		th.frame(alice, "spam")
	}

	assert.Len(t, fa.ofType(t, TypeMessage), 2)
	rejections := fa.ofType(t, TypeError)
	require.Len(t, rejections, 1)
	assert.Equal(t, "validation", rejections[0]["kind"])
}

func TestInvalidJSONIsChatText(t *testing.T) {
	th := newTestHub(t, Collaborators{})
	alice, fa := th.connect()
	th.loginAs(t, alice, "alice")
	fa.reset()

	for _, raw := range []string{`{"type":`, `[1,2,3]`, `42`, `null`} {
		th.frame(alice, raw)
	}

	msgs := fa.ofType(t, TypeMessage)
	require.Len(t, msgs, 4)
	assert.Equal(t, `{"type":`, msgs[0]["message"])
	assert.Equal(t, `null`, msgs[3]["message"])
}

func TestPrivateMessage(t *testing.T) {
	th := newTestHub(t, Collaborators{})
	alice, fa := th.connect()
	bob, fb := th.connect()
	_, fw := th.connect()
	th.loginAs(t, alice, "alice")
	th.loginAs(t, bob, "bob")
	th.registry.MoveRoom(bob, "elsewhere")
	fa.reset()
	fb.reset()
	fw.reset()

	th.frame(alice, `{"type":"message","message":"@bob meet at noon"}`)

	got := fb.ofType(t, TypePrivateMessage)
	require.Len(t, got, 1)
	assert.Equal(t, "meet at noon", got[0]["message"])
	assert.Equal(t, "alice", got[0]["from"])

	sent := fa.ofType(t, TypePrivateMessageSent)
	require.Len(t, sent, 1)
	assert.Equal(t, "meet at noon", sent[0]["message"])
	assert.Equal(t, "bob", sent[0]["to"])

	assert.Empty(t, fw.envelopes(t))
	assert.Empty(t, fa.ofType(t, TypeMessage))

	th.frame(alice, `@carol are you there`)
	rejections := fa.ofType(t, TypeError)
	require.Len(t, rejections, 1)
	assert.Equal(t, "not_found", rejections[0]["kind"])
	assert.Equal(t, "User carol is not online.", rejections[0]["message"])
	assert.Empty(t, fw.envelopes(t))
}

func TestCommandsAreRelayedFirst(t *testing.T) {
	th := newTestHub(t, Collaborators{})
	alice, fa := th.connect()
	_, fw := th.connect()
	th.loginAs(t, alice, "alice")
	fa.reset()
	fw.reset()

	th.frame(alice, `@运势`)

	envs := fa.envelopes(t)
	require.Len(t, envs, 2)
	assert.Equal(t, "message", envs[0]["type"])
	assert.Equal(t, "@运势", envs[0]["message"])
	assert.Equal(t, "command", envs[1]["type"])
	assert.Contains(t, envs[1]["message"], "alice's fortune today")

	// the fortune is private to the sender
	watcher := fw.envelopes(t)
	require.Len(t, watcher, 1)
	assert.Equal(t, "message", watcher[0]["type"])
}

func TestUnknownCommandSuggests(t *testing.T) {
	th := newTestHub(t, Collaborators{})
	alice, fa := th.connect()
	th.loginAs(t, alice, "alice")
	fa.reset()

	th.frame(alice, `@wether`)
	th.frame(alice, `@zzzzzzzz`)
	th.frame(alice, `@news`)

	rejections := fa.ofType(t, TypeError)
	require.Len(t, rejections, 3)
	assert.Equal(t, "Unknown command @wether. Did you mean @weather?", rejections[0]["message"])
	assert.Equal(t, "Unknown command @zzzzzzzz.", rejections[1]["message"])
	assert.Equal(t, "upstream", rejections[2]["kind"], "news has no provider in this hub")
	assert.Len(t, fa.ofType(t, TypeMessage), 3)
}

func TestMistypedCommandWithArgsSuggests(t *testing.T) {
	th := newTestHub(t, Collaborators{})
	alice, fa := th.connect()
	movi, fm := th.connect()
	_, fw := th.connect()
	th.loginAs(t, alice, "alice")
	fa.reset()
	fw.reset()

	th.frame(alice, `@moive https://movie.example/watch/42`)

	rejections := fa.ofType(t, TypeError)
	require.Len(t, rejections, 1)
	assert.Equal(t, "Unknown command @moive. Did you mean @movie?", rejections[0]["message"])
	assert.Empty(t, fw.envelopes(t), "neither relayed nor delivered privately")

	// an online user whose name is close to a command still gets the message
	th.loginAs(t, movi, "movi")
	fa.reset()
	fm.reset()

	th.frame(alice, `@movi see you later`)

	assert.Empty(t, fa.ofType(t, TypeError))
	got := fm.ofType(t, TypePrivateMessage)
	require.Len(t, got, 1)
	assert.Equal(t, "see you later", got[0]["message"])
}

func TestJoinRoom(t *testing.T) {
	th := newTestHub(t, Collaborators{})
	alice, fa := th.connect()
	_, fl := th.connect()
	gamer, fg := th.connect()
	th.loginAs(t, alice, "alice")
	th.registry.MoveRoom(gamer, "games")
	fa.reset()
	fl.reset()
	fg.reset()

	th.frame(alice, `{"type":"join_room","room":" "}`)
	require.Len(t, fa.ofType(t, TypeError), 1)

	th.frame(alice, `{"type":"join_room","room":"lobby"}`)
	assert.Empty(t, fa.ofType(t, TypeRoomJoined))

	th.frame(alice, `{"type":"join_room","room":"games"}`)
	assert.Equal(t, "games", alice.Room())

	joined := fa.ofType(t, TypeRoomJoined)
	require.Len(t, joined, 1)
	assert.Equal(t, "games", joined[0]["room"])

	left := fl.ofType(t, TypeSystem)
	require.Len(t, left, 1)
	assert.Equal(t, "alice left room lobby", left[0]["message"])

	arrived := fg.ofType(t, TypeSystem)
	require.Len(t, arrived, 1)
	assert.Equal(t, "alice joined room games", arrived[0]["message"])

	fl.reset()
	th.frame(alice, "now in games")
	assert.Len(t, fg.ofType(t, TypeMessage), 1)
	assert.Empty(t, fl.envelopes(t))
}

func TestShutdownClosesSessionsQuietly(t *testing.T) {
	th := newTestHub(t, Collaborators{})
	a, fa := th.connect()
	_, fb := th.connect()
	th.loginAs(t, a, "alice")
	fb.reset()

	require.NoError(t, th.Shutdown(context.Background()))

	assert.True(t, fa.isClosed())
	assert.True(t, fb.isClosed())
	assert.Zero(t, th.Connections())
	assert.Empty(t, fb.envelopes(t))
	assert.ErrorIs(t, a.Context().Err(), context.Canceled)
}
