package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"floritechat/internal/app/weather"
	"floritechat/internal/pkg/errs"
)

// MessageType is the wire discriminator of an envelope.
type MessageType string

// Server-to-client types.
const (
	TypeSystem             MessageType = "system"
	TypeError              MessageType = "error"
	TypeCommand            MessageType = "command"
	TypeMessage            MessageType = "message"
	TypePrivateMessage     MessageType = "private_message"
	TypePrivateMessageSent MessageType = "private_message_sent"
	TypeStream             MessageType = "sse_stream"
	TypeRoomJoined         MessageType = "room_joined"
	TypePong               MessageType = "pong"
	TypeOnlineUsersUpdate  MessageType = "online_users_update"
	TypeLoginResponse      MessageType = "login_response"
	TypeRegisterResponse   MessageType = "register_response"
	TypeMovie              MessageType = "movie"
	TypeWeatherCard        MessageType = "weather_card"
	TypeMusic              MessageType = "music"
	TypeHotSearch          MessageType = "hot_search"
	TypeImagePreload       MessageType = "image_preload"
)

// Client-to-server types.
const (
	TypeRegister             MessageType = "register"
	TypeLogin                MessageType = "login"
	TypePing                 MessageType = "ping"
	TypeJoinRoom             MessageType = "join_room"
	TypeImagePreloadComplete MessageType = "image_preload_complete"
)

// TimeLayout is the format of the time field of every envelope.
const TimeLayout = "15:04:05"

// SystemSender is the sender name of notices generated by the server.
const SystemSender = "System"

// Envelope is one server-to-client message. Each variant carries only its own fields;
// Encode adds the type and time.
type Envelope interface {
	Kind() MessageType
}

// Encode serializes env as a JSON object whose first two keys are type and time.
func Encode(env Envelope, at time.Time) ([]byte, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", env.Kind(), err)
	}

	head := fmt.Sprintf(`{"type":%q,"time":%q`, env.Kind(), at.Format(TimeLayout))
	if len(body) <= 2 {
		return []byte(head + "}"), nil
	}

	out := make([]byte, 0, len(head)+len(body))
	out = append(out, head...)
	out = append(out, ',')
	return append(out, body[1:]...), nil
}

type SystemNotice struct {
	Message     string   `json:"message"`
	Sender      string   `json:"sender"`
	OnlineUsers []string `json:"online_users,omitempty"`
}

func (SystemNotice) Kind() MessageType { return TypeSystem }

func systemNotice(msg string) SystemNotice {
	return SystemNotice{Message: msg, Sender: SystemSender}
}

type ErrorNotice struct {
	Message   string    `json:"message"`
	Code      int       `json:"code"`
	ErrorKind errs.Kind `json:"kind"`
}

func (ErrorNotice) Kind() MessageType { return TypeError }

// errorNotice converts any error into the envelope sent to the offending session.
// Errors that are not *errs.CustomError are reported as ErrUnknown without leaking details.
func errorNotice(err error) ErrorNotice {
	var customErr *errs.CustomError
	if !errors.As(err, &customErr) {
		customErr = errs.NewError(errs.ErrUnknown, err)
	}
	return ErrorNotice{Message: customErr.Message, Code: customErr.Code, ErrorKind: customErr.Kind}
}

type CommandReply struct {
	Message string `json:"message"`
}

func (CommandReply) Kind() MessageType { return TypeCommand }

type ChatMessage struct {
	Message string `json:"message"`
	Sender  string `json:"sender"`
	Avatar  string `json:"avatar,omitempty"`
}

func (ChatMessage) Kind() MessageType { return TypeMessage }

// NewsMessage is the daily digest. It shares the message type with ChatMessage so
// clients render it in the normal timeline.
type NewsMessage struct {
	Content   string `json:"content"`
	Message   string `json:"message"`
	Sender    string `json:"sender"`
	Avatar    string `json:"avatar"`
	NewsType  string `json:"news_type"`
	HasImage  bool   `json:"has_image"`
	ImageID   string `json:"image_id,omitempty"`
	ImagePath string `json:"image_path,omitempty"`
}

func (NewsMessage) Kind() MessageType { return TypeMessage }

type PrivateMessage struct {
	Message string `json:"message"`
	From    string `json:"from"`
}

func (PrivateMessage) Kind() MessageType { return TypePrivateMessage }

type PrivateMessageSent struct {
	Message string `json:"message"`
	To      string `json:"to"`
}

func (PrivateMessageSent) Kind() MessageType { return TypePrivateMessageSent }

// StreamEventType is the phase of a streamed reply.
type StreamEventType string

const (
	StreamStart StreamEventType = "start"
	StreamChunk StreamEventType = "chunk"
	StreamEnd   StreamEventType = "end"
)

type StreamEvent struct {
	StreamID  string          `json:"stream_id"`
	EventType StreamEventType `json:"event_type"`
	Message   string          `json:"message"`
	Sender    string          `json:"sender"`
}

func (StreamEvent) Kind() MessageType { return TypeStream }

type RoomJoined struct {
	Message string `json:"message"`
	Room    string `json:"room"`
}

func (RoomJoined) Kind() MessageType { return TypeRoomJoined }

type Pong struct{}

func (Pong) Kind() MessageType { return TypePong }

type OnlineUsersUpdate struct {
	OnlineUsers []string `json:"online_users"`
}

func (OnlineUsersUpdate) Kind() MessageType { return TypeOnlineUsersUpdate }

type LoginUserData struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type LoginResponse struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message"`
	Code     int            `json:"code,omitempty"`
	UserData *LoginUserData `json:"user_data,omitempty"`
	Token    string         `json:"token,omitempty"`
}

func (LoginResponse) Kind() MessageType { return TypeLoginResponse }

type RegisterResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}

func (RegisterResponse) Kind() MessageType { return TypeRegisterResponse }

type MovieCard struct {
	URL    string `json:"url"`
	Sender string `json:"sender"`
}

func (MovieCard) Kind() MessageType { return TypeMovie }

type WeatherCard struct {
	City        string           `json:"city"`
	WeatherData weather.Snapshot `json:"weather_data"`
	RequestUser string           `json:"request_user"`
}

func (WeatherCard) Kind() MessageType { return TypeWeatherCard }

type MusicCard struct {
	APIURL string `json:"api_url"`
	SongID string `json:"song_id"`
	Sender string `json:"sender"`
}

func (MusicCard) Kind() MessageType { return TypeMusic }

type HotSearchCard struct {
	Message string   `json:"message"`
	Items   []string `json:"items"`
	Sender  string   `json:"sender"`
	Avatar  string   `json:"avatar"`
}

func (HotSearchCard) Kind() MessageType { return TypeHotSearch }

type ImagePreload struct {
	ImageID   string `json:"image_id"`
	ImagePath string `json:"image_path"`
}

func (ImagePreload) Kind() MessageType { return TypeImagePreload }
