/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific chat, account or upstream failures both inside the
server and in the error envelopes delivered to clients. The thousands digit decides the
error kind reported to the client.
*/
package errs

// 1xxx: Validation Errors (malformed frames, commands or arguments)
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnknownMessageType indicates that the inbound frame carried a type the server does not handle.
	ErrUnknownMessageType = 1002

	// ErrMessageEmpty indicates that a chat message had no text.
	ErrMessageEmpty = 1003

	// ErrMessageContentTooLong indicates that the message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 1004

	// ErrRoomRequired indicates that a join_room frame did not name a room.
	ErrRoomRequired = 1005

	// ErrRateLimitExceeded indicates that the request or message rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrInvalidUsername indicates that a username does not satisfy the account policy.
	ErrInvalidUsername = 1101

	// ErrInvalidPassword indicates that a password does not satisfy the account policy.
	ErrInvalidPassword = 1102

	// ErrMissingCredentials indicates that username or password was absent.
	ErrMissingCredentials = 1103

	// ErrUnknownCommand indicates an @command that is neither a known command nor an addressed user.
	ErrUnknownCommand = 1201

	// ErrCommandUsage indicates that a command was called without its required argument.
	ErrCommandUsage = 1202

	// ErrInvalidMovieURL indicates that the movie link is not an http(s) URL with a host.
	ErrInvalidMovieURL = 1203

	// ErrInvalidMusicURL indicates that the music link does not match a supported track URL.
	ErrInvalidMusicURL = 1204
)

// 3xxx: Authentication and Session Errors
const (
	// ErrNotLoggedIn indicates that an unauthenticated session attempted a gated action.
	ErrNotLoggedIn = 3001

	// ErrDuplicateSession indicates that the name is already held by another live session.
	ErrDuplicateSession = 3002

	// ErrInvalidCredentials indicates that the username or password was wrong.
	ErrInvalidCredentials = 3003

	// ErrUserAlreadyExists indicates that registration used a taken username.
	ErrUserAlreadyExists = 3004

	// ErrRegisterFailed indicates that the user store rejected registration for another reason.
	ErrRegisterFailed = 3005

	// ErrAlreadyLoggedIn indicates a login attempt on an already authenticated session.
	ErrAlreadyLoggedIn = 3006

	// ErrUnauthorized indicates that an HTTP request lacked a valid identity token.
	ErrUnauthorized = 3007
)

// 4xxx: Not Found Errors
const (
	// ErrUserNotOnline indicates that a private message target holds no live session.
	ErrUserNotOnline = 4001

	// ErrUserNotFound indicates that the account does not exist.
	ErrUserNotFound = 4002
)

// 5xxx: Upstream and Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrUpstreamUnavailable indicates that a collaborator service failed or timed out.
	ErrUpstreamUnavailable = 5101

	// ErrUpstreamNotConfigured indicates that a collaborator is missing required configuration.
	ErrUpstreamNotConfigured = 5102
)
