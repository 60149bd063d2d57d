package chat

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"

	"floritechat/internal/app/chatbot"
	"floritechat/internal/app/fortune"
	"floritechat/internal/app/music"
	"floritechat/internal/app/news"
	"floritechat/internal/app/weather"
	"floritechat/internal/pkg/errs"
)

const (
	hotSearchSize = 10

	// DefaultNewsSettle gives clients time to preload the edition image before the news
	// message that references it arrives.
	DefaultNewsSettle = time.Second

	AssistantName   = "Apple Pie"
	assistantAvatar = "🥧"
	hotSearchSender = "Hot Search"
	hotSearchAvatar = "🔥"
	newsSender      = "News"
	newsAvatar      = "📰"
	newsContent     = "The world in 60 seconds, every day."
)

var rankMarkers = []string{"🥇", "🥈", "🥉", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣", "🔟"}

type FortuneTeller interface {
	Today(username string) string
}

type WeatherProvider interface {
	Lookup(ctx context.Context, city string) (weather.Snapshot, error)
}

type HotSearchProvider interface {
	FetchTop(ctx context.Context, n int) ([]string, error)
}

type MusicResolver interface {
	Resolve(link string) (apiURL, trackID string, err error)
}

type NewsDigestProvider interface {
	RefreshIfStale(ctx context.Context) (bool, error)
	ImageAsset(ctx context.Context) (news.Asset, bool)
}

type ConversationProvider interface {
	Enabled() bool
	Streaming() bool
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteStreaming(ctx context.Context, prompt string, onChunk func(string) error) (string, error)
}

// Collaborators are the services behind the commands. A nil collaborator leaves its
// command unregistered; invoking it reports the service as not configured.
type Collaborators struct {
	Fortune   FortuneTeller
	Weather   WeatherProvider
	HotSearch HotSearchProvider
	Music     MusicResolver
	News      NewsDigestProvider
	Assistant ConversationProvider
}

// NewCommandTable builds the finite command table from the available collaborators.
func NewCommandTable(c Collaborators, clock clockwork.Clock, newsSettle time.Duration) map[CommandName]CommandHandler {
	if newsSettle <= 0 {
		newsSettle = DefaultNewsSettle
	}
	if c.Fortune == nil {
		c.Fortune = fortune.NewTeller(clock)
	}

	table := map[CommandName]CommandHandler{
		CmdFortune: fortuneCommand{teller: c.Fortune},
		CmdMovie:   CommandFunc(movieCommand),
	}
	if c.HotSearch != nil {
		table[CmdHotSearch] = hotSearchCommand{provider: c.HotSearch}
	}
	if c.Music != nil {
		table[CmdMusic] = musicCommand{resolver: c.Music}
	}
	if c.News != nil {
		table[CmdNews] = newsCommand{provider: c.News, clock: clock, settle: newsSettle}
	}
	if c.Assistant != nil {
		table[CmdAIChat] = aiChatCommand{assistant: c.Assistant}
	}
	if c.Weather != nil {
		table[CmdWeather] = weatherCommand{provider: c.Weather}
	}
	return table
}

type fortuneCommand struct {
	teller FortuneTeller
}

func (c fortuneCommand) Handle(_ context.Context, _ string, sender *Session, out Responder) error {
	name := sender.Name()
	out.Reply(CommandReply{Message: fortune.Format(name, c.teller.Today(name))})
	return nil
}

func movieCommand(_ context.Context, args string, sender *Session, out Responder) error {
	if args == "" {
		return errs.NewError(errs.ErrCommandUsage, "@movie <url>")
	}

	u, err := url.Parse(args)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errs.NewError(errs.ErrInvalidMovieURL)
	}

	out.Broadcast(MovieCard{URL: args, Sender: sender.Name()})
	return nil
}

type hotSearchCommand struct {
	provider HotSearchProvider
}

func (c hotSearchCommand) Handle(ctx context.Context, _ string, _ *Session, out Responder) error {
	out.Reply(CommandReply{Message: "Fetching the hot search list..."})

	titles, err := c.provider.FetchTop(ctx, hotSearchSize)
	if err != nil {
		return upstreamError("Hot search", err)
	}

	items := make([]string, len(titles))
	for i, title := range titles {
		items[i] = rankMarkers[i%len(rankMarkers)] + " " + title
	}

	out.Broadcast(HotSearchCard{
		Message: fmt.Sprintf("Top %d hot searches right now", len(items)),
		Items:   items,
		Sender:  hotSearchSender,
		Avatar:  hotSearchAvatar,
	})
	return nil
}

type musicCommand struct {
	resolver MusicResolver
}

func (c musicCommand) Handle(_ context.Context, args string, sender *Session, out Responder) error {
	if args == "" {
		return errs.NewError(errs.ErrCommandUsage, "@music <track url>")
	}

	apiURL, trackID, err := c.resolver.Resolve(args)
	switch {
	case errors.Is(err, music.ErrUnsupportedURL):
		return errs.NewError(errs.ErrInvalidMusicURL)
	case err != nil:
		return upstreamError("Music", err)
	}

	out.Broadcast(MusicCard{APIURL: apiURL, SongID: trackID, Sender: sender.Name()})
	return nil
}

type newsCommand struct {
	provider NewsDigestProvider
	clock    clockwork.Clock
	settle   time.Duration
}

func (c newsCommand) Handle(ctx context.Context, _ string, _ *Session, out Responder) error {
	out.Reply(CommandReply{Message: "Fetching today's news..."})

	fresh, err := c.provider.RefreshIfStale(ctx)
	if err != nil {
		return upstreamError("News", err)
	}

	msg := NewsMessage{
		Content:  newsContent,
		Message:  newsContent,
		Sender:   newsSender,
		Avatar:   newsAvatar,
		NewsType: "daily",
	}

	if fresh {
		if asset, ok := c.provider.ImageAsset(ctx); ok {
			out.Broadcast(ImagePreload{ImageID: asset.ID, ImagePath: asset.Path})

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.clock.After(c.settle):
			}

			msg.HasImage = true
			msg.ImageID = asset.ID
			msg.ImagePath = asset.Path
		}
	}

	out.Broadcast(msg)
	return nil
}

type aiChatCommand struct {
	assistant ConversationProvider
}

func (c aiChatCommand) Handle(ctx context.Context, prompt string, _ *Session, out Responder) error {
	if !c.assistant.Enabled() {
		out.Reply(CommandReply{Message: chatbot.DisabledReply})
		return nil
	}
	if prompt == "" {
		out.Reply(CommandReply{Message: "Usage: @ai-chat <question>"})
		return nil
	}

	if !c.assistant.Streaming() {
		answer, err := c.assistant.Complete(ctx, prompt)
		if err != nil {
			return upstreamError(AssistantName, err)
		}
		out.Broadcast(ChatMessage{Message: answer, Sender: AssistantName, Avatar: assistantAvatar})
		return nil
	}

	stream := out.OpenStream(AssistantName)
	stream.Start()
	_, err := c.assistant.CompleteStreaming(ctx, prompt, stream.Chunk)
	stream.End()
	if err != nil {
		return upstreamError(AssistantName, err)
	}
	return nil
}

type weatherCommand struct {
	provider WeatherProvider
}

func (c weatherCommand) Handle(ctx context.Context, city string, sender *Session, out Responder) error {
	if city == "" {
		return errs.NewError(errs.ErrCommandUsage, "@weather <city>")
	}

	out.Reply(CommandReply{Message: fmt.Sprintf("Looking up the weather in %s...", city)})

	snapshot, err := c.provider.Lookup(ctx, city)
	if err != nil {
		return upstreamError("Weather", err)
	}

	out.Broadcast(WeatherCard{City: city, WeatherData: snapshot, RequestUser: sender.Name()})
	return nil
}

// upstreamError maps collaborator failures onto client-facing errors. Context
// cancellation passes through so a departing session is not sent anything.
func upstreamError(service string, err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, music.ErrNotConfigured), errors.Is(err, weather.ErrNotConfigured):
		return errs.NewError(errs.ErrUpstreamNotConfigured, service)
	default:
		return errs.NewError(errs.ErrUpstreamUnavailable, service)
	}
}
