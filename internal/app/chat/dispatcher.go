package chat

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/rs/zerolog"

	"floritechat/internal/pkg/errs"
	"floritechat/internal/pkg/metrics"
)

// CommandMarker starts every command and private address.
const CommandMarker = "@"

// maxSuggestionDistance is the largest edit distance offered as a did-you-mean hint.
const maxSuggestionDistance = 2

// CommandName is the canonical lower-case name of a command.
type CommandName string

const (
	CmdFortune   CommandName = "fortune"
	CmdMovie     CommandName = "movie"
	CmdHotSearch CommandName = "hot-search"
	CmdMusic     CommandName = "music"
	CmdNews      CommandName = "news"
	CmdAIChat    CommandName = "ai-chat"
	CmdWeather   CommandName = "weather"
)

var commandNames = []CommandName{CmdFortune, CmdMovie, CmdHotSearch, CmdMusic, CmdNews, CmdAIChat, CmdWeather}

var commandAliases = map[string]CommandName{
	"运势":  CmdFortune,
	"电影":  CmdMovie,
	"热搜":  CmdHotSearch,
	"音乐":  CmdMusic,
	"新闻":  CmdNews,
	"苹果派": CmdAIChat,
	"天气":  CmdWeather,
}

// lookupCommand resolves a command word or alias, ignoring case.
func lookupCommand(word string) (CommandName, bool) {
	word = strings.ToLower(word)
	for _, name := range commandNames {
		if string(name) == word {
			return name, true
		}
	}
	name, ok := commandAliases[word]
	return name, ok
}

// suggestCommand returns the closest command name within maxSuggestionDistance.
func suggestCommand(word string) (CommandName, bool) {
	word = strings.ToLower(word)

	best, bestDist := CommandName(""), maxSuggestionDistance+1
	for _, name := range commandNames {
		if d := levenshtein.ComputeDistance(word, string(name)); d < bestDist {
			best, bestDist = name, d
		}
	}
	return best, bestDist <= maxSuggestionDistance
}

// Responder is how a command talks back.
type Responder interface {
	// Reply sends env to the invoking session only.
	Reply(env Envelope)

	// Broadcast sends env to the invoking session's room.
	Broadcast(env Envelope)

	// OpenStream starts a streamed reply in the invoking session's room.
	OpenStream(speaker string) *StreamSession
}

// CommandHandler runs one command. Returned errors are reported to the sender only.
type CommandHandler interface {
	Handle(ctx context.Context, args string, sender *Session, out Responder) error
}

// CommandFunc adapts a function to CommandHandler.
type CommandFunc func(ctx context.Context, args string, sender *Session, out Responder) error

func (f CommandFunc) Handle(ctx context.Context, args string, sender *Session, out Responder) error {
	return f(ctx, args, sender, out)
}

type responder struct {
	out    *Broadcaster
	sender *Session
}

func (r responder) Reply(env Envelope) {
	r.out.SendTo(r.sender, env)
}

func (r responder) Broadcast(env Envelope) {
	r.out.Broadcast(env, Audience{Room: r.sender.Room()})
}

func (r responder) OpenStream(speaker string) *StreamSession {
	return newStreamSession(r.out, r.sender.Room(), speaker)
}

// Dispatcher relays authenticated chat text and runs @commands found in it.
type Dispatcher struct {
	registry *Registry
	out      *Broadcaster
	handlers map[CommandName]CommandHandler
	logger   zerolog.Logger
}

func NewDispatcher(registry *Registry, out *Broadcaster, handlers map[CommandName]CommandHandler, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		out:      out,
		handlers: handlers,
		logger:   logger.With().Str("component", "Dispatcher").Logger(),
	}
}

// Dispatch handles one chat text from an authenticated session. Plain text and commands
// are relayed to the sender's room first; private messages are never relayed.
func (d *Dispatcher) Dispatch(ctx context.Context, s *Session, text string) {
	if !strings.HasPrefix(text, CommandMarker) {
		d.relay(s, text)
		return
	}

	word, args := splitCommand(text)

	name, isCommand := lookupCommand(word)
	if !isCommand && word != "" && args != "" {
		d.private(s, word, args)
		return
	}

	d.relay(s, text)

	if !isCommand {
		d.unknownCommand(s, word)
		return
	}

	handler, ok := d.handlers[name]
	if !ok {
		d.out.SendTo(s, errorNotice(errs.NewError(errs.ErrUpstreamNotConfigured, "@"+string(name))))
		return
	}

	d.logger.Debug().Str("command", string(name)).Str("sender", s.Name()).Msg("Running command")

	if err := handler.Handle(ctx, args, s, responder{out: d.out, sender: s}); err != nil {
		if errors.Is(err, context.Canceled) {
			metrics.CommandsTotal.WithLabelValues(string(name), "cancelled").Inc()
			return
		}
		metrics.CommandsTotal.WithLabelValues(string(name), "failed").Inc()
		s.logger.Warn().Err(err).Str("command", string(name)).Msg("Command failed")
		d.out.SendTo(s, errorNotice(err))
		return
	}
	metrics.CommandsTotal.WithLabelValues(string(name), "ok").Inc()
}

func (d *Dispatcher) relay(s *Session, text string) {
	d.out.Broadcast(ChatMessage{Message: text, Sender: s.Name(), Avatar: s.Avatar()}, Audience{Room: s.Room()})
}

func (d *Dispatcher) private(s *Session, target, text string) {
	peer, ok := d.registry.FindOnline(target)
	if !ok {
		// "@moive https://..." is a mistyped command, not a message for user "moive".
		if _, near := suggestCommand(target); near {
			d.unknownCommand(s, target)
			return
		}
		d.out.SendTo(s, errorNotice(errs.NewError(errs.ErrUserNotOnline, target)))
		return
	}

	if !d.out.SendTo(peer, PrivateMessage{Message: text, From: s.Name()}) {
		d.out.SendTo(s, errorNotice(errs.NewError(errs.ErrUserNotOnline, target)))
		return
	}
	d.out.SendTo(s, PrivateMessageSent{Message: text, To: target})
}

func (d *Dispatcher) unknownCommand(s *Session, word string) {
	hint := ""
	if suggestion, ok := suggestCommand(word); ok {
		hint = " Did you mean @" + string(suggestion) + "?"
	}
	metrics.CommandsTotal.WithLabelValues("unknown", "rejected").Inc()
	d.out.SendTo(s, errorNotice(errs.NewError(errs.ErrUnknownCommand, word, hint)))
}

// splitCommand splits "@word rest" into word and the trimmed rest.
func splitCommand(text string) (word, args string) {
	body := strings.TrimPrefix(text, CommandMarker)
	if i := strings.IndexFunc(body, unicode.IsSpace); i >= 0 {
		return body[:i], strings.TrimSpace(body[i:])
	}
	return body, ""
}
