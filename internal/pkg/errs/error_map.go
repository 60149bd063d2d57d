/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
error envelopes and HTTP responses.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: Validation Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnknownMessageType:    {Code: ErrUnknownMessageType, Message: "Unknown message type: %s"},
	ErrMessageEmpty:          {Code: ErrMessageEmpty, Message: "Message must not be empty."},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},
	ErrRoomRequired:          {Code: ErrRoomRequired, Message: "Please specify a room to join."},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please slow down.", Status: http.StatusTooManyRequests},
	ErrInvalidUsername:       {Code: ErrInvalidUsername, Message: "Username must be 3-20 characters without spaces and must not be reserved."},
	ErrInvalidPassword:       {Code: ErrInvalidPassword, Message: "Password must be 6-64 characters."},
	ErrMissingCredentials:    {Code: ErrMissingCredentials, Message: "Username and password are required."},
	ErrUnknownCommand:        {Code: ErrUnknownCommand, Message: "Unknown command @%s.%s"},
	ErrCommandUsage:          {Code: ErrCommandUsage, Message: "Usage: %s"},
	ErrInvalidMovieURL:       {Code: ErrInvalidMovieURL, Message: "Please provide a valid http or https movie link."},
	ErrInvalidMusicURL:       {Code: ErrInvalidMusicURL, Message: "Unsupported music link. Use https://music.163.com/#/song?id=<id>."},

	// 3xxx: Authentication and Session Errors
	ErrNotLoggedIn:        {Code: ErrNotLoggedIn, Message: "Please log in first."},
	ErrDuplicateSession:   {Code: ErrDuplicateSession, Message: "This account is already online in another session."},
	ErrInvalidCredentials: {Code: ErrInvalidCredentials, Message: "Incorrect username or password."},
	ErrUserAlreadyExists:  {Code: ErrUserAlreadyExists, Message: "Username is already taken."},
	ErrRegisterFailed:     {Code: ErrRegisterFailed, Message: "Registration failed: %s"},
	ErrAlreadyLoggedIn:    {Code: ErrAlreadyLoggedIn, Message: "You are already logged in."},
	ErrUnauthorized:       {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},

	// 4xxx: Not Found Errors
	ErrUserNotOnline: {Code: ErrUserNotOnline, Message: "User %s is not online."},
	ErrUserNotFound:  {Code: ErrUserNotFound, Message: "Account not found.", Status: http.StatusNotFound},

	// 5xxx: Upstream and Internal System Errors
	ErrUnknown:               {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrUpstreamUnavailable:   {Code: ErrUpstreamUnavailable, Message: "%s is unavailable right now. Please try again later.", Status: http.StatusBadGateway},
	ErrUpstreamNotConfigured: {Code: ErrUpstreamNotConfigured, Message: "%s is not configured on this server.", Status: http.StatusServiceUnavailable},
}
