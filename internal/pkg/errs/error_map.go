package errs

import "net/http"

// errorMap holds the user-facing message and HTTP status for every code.
// A zero Status means 200; the business code carries the failure.
var errorMap = map[int]CustomError{
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format."},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrFormParseFailed:       {Code: ErrFormParseFailed, Message: "Failed to process uploaded data."},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large."},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	ErrMessageEmpty:          {Code: ErrMessageEmpty, Message: "Message is empty."},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long (max %d bytes)."},
	ErrMessageSendFailed:     {Code: ErrMessageSendFailed, Message: "Message could not be sent. Please try again."},
	ErrSubscriptionLost:      {Code: ErrSubscriptionLost, Message: "Live updates stopped. Reload to reconnect."},
	ErrFileSizeTooLarge:      {Code: ErrFileSizeTooLarge, Message: "File is too large (max %d MB)."},
	ErrFileTypeInvalid:       {Code: ErrFileTypeInvalid, Message: "Profile photo must be a JPEG, PNG, WebP or GIF image."},

	ErrPowChallengeRequired:  {Code: ErrPowChallengeRequired, Message: "Verification required. Please try again."},
	ErrPowChallengeInvalid:   {Code: ErrPowChallengeInvalid, Message: "Verification failed. Please try again."},
	ErrSessionRevoked:        {Code: ErrSessionRevoked, Message: "You have been signed out."},
	ErrAlreadyLoggedIn:       {Code: ErrAlreadyLoggedIn, Message: "You are already signed in."},
	ErrInvalidEmail:          {Code: ErrInvalidEmail, Message: "Error: Please enter a valid email address."},
	ErrInvalidPassword:       {Code: ErrInvalidPassword, Message: "Error: Password must be 6 to 50 characters."},
	ErrInvalidDisplayName:    {Code: ErrInvalidDisplayName, Message: "Error: Username must be 1 to 40 characters."},
	ErrUserAlreadyExists:     {Code: ErrUserAlreadyExists, Message: "Error: An account with this email already exists."},
	ErrInvalidCredentials:    {Code: ErrInvalidCredentials, Message: "Error: Incorrect email or password."},
	ErrProfileNotFound:       {Code: ErrProfileNotFound, Message: "No user data found."},
	ErrFederatedTokenInvalid: {Code: ErrFederatedTokenInvalid, Message: "Error: Sign-in with the external provider failed."},
	ErrFederatedDisabled:     {Code: ErrFederatedDisabled, Message: "Error: External sign-in is not available."},
	ErrUnauthorized:          {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},

	ErrUnknown:            {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrAuthUnavailable:    {Code: ErrAuthUnavailable, Message: "Error: Sign-in service is unavailable. Please try again later.", Status: http.StatusServiceUnavailable},
	ErrProfileWriteFailed: {Code: ErrProfileWriteFailed, Message: "Error saving user profile. Please try again later."},
	ErrFileStorageFailed:  {Code: ErrFileStorageFailed, Message: "Profile photo upload failed. Please try again."},
}
