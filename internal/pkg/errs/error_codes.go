/*
Package errs defines the application error codes shared by the HTTP API,
the WebSocket feed, and the service layer.
*/
package errs

// 1xxx: General request handling errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates a malformed JSON body.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing data after the JSON document.
	ErrExtraContentInBody = 1004

	// ErrFormParseFailed indicates a multipart or URL-encoded form could not be parsed.
	ErrFormParseFailed = 1005

	// ErrRequestEntityTooLarge indicates the request body exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates the caller exceeded its request rate.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Chat feed and message errors
const (
	// ErrMessageEmpty indicates a blank or whitespace-only message.
	ErrMessageEmpty = 2201

	// ErrMessageContentTooLong indicates the message exceeded the maximum length.
	ErrMessageContentTooLong = 2202

	// ErrMessageSendFailed indicates the message could not be persisted.
	ErrMessageSendFailed = 2203

	// ErrSubscriptionLost indicates the live feed stopped and will not resume on its own.
	ErrSubscriptionLost = 2301

	// ErrFileSizeTooLarge indicates the uploaded avatar exceeds the size limit.
	ErrFileSizeTooLarge = 2401

	// ErrFileTypeInvalid indicates the uploaded avatar is not an accepted image type.
	ErrFileTypeInvalid = 2402
)

// 3xxx: Identity, session and security errors
const (
	// ErrPowChallengeRequired indicates the client must complete a proof-of-work challenge first.
	ErrPowChallengeRequired = 3001

	// ErrPowChallengeInvalid indicates the submitted proof-of-work is wrong or expired.
	ErrPowChallengeInvalid = 3002

	// ErrSessionRevoked indicates the session was signed out while a connection was open.
	ErrSessionRevoked = 3004

	// ErrAlreadyLoggedIn indicates an auth request from a caller that already holds a session.
	ErrAlreadyLoggedIn = 3101

	// ErrInvalidEmail indicates a malformed email address.
	ErrInvalidEmail = 3102

	// ErrInvalidPassword indicates a password outside the accepted length.
	ErrInvalidPassword = 3103

	// ErrInvalidDisplayName indicates a missing or overly long display name.
	ErrInvalidDisplayName = 3104

	// ErrUserAlreadyExists indicates the email is already registered.
	ErrUserAlreadyExists = 3105

	// ErrInvalidCredentials indicates an unknown email or a wrong password.
	ErrInvalidCredentials = 3106

	// ErrProfileNotFound indicates the identity exists but has no profile record.
	ErrProfileNotFound = 3107

	// ErrFederatedTokenInvalid indicates the federated provider token failed verification.
	ErrFederatedTokenInvalid = 3108

	// ErrFederatedDisabled indicates federated sign-in is not configured.
	ErrFederatedDisabled = 3109

	// ErrUnauthorized indicates the request has no live session.
	ErrUnauthorized = 3401
)

// 5xxx: Internal and backend errors
const (
	// ErrUnknown represents an unclassified internal error.
	ErrUnknown = 5000

	// ErrAuthUnavailable indicates the identity backend could not be reached.
	ErrAuthUnavailable = 5001

	// ErrProfileWriteFailed indicates the profile record could not be written during sign-up.
	ErrProfileWriteFailed = 5002

	// ErrFileStorageFailed indicates the object store rejected an upload.
	ErrFileStorageFailed = 5003
)
