package errors

var (
	ErrDuplicateEmail     = AlreadyExists("email is already registered")
	ErrDuplicateFollow    = AlreadyExists("already following or request pending")
	ErrDuplicateLike      = AlreadyExists("already liked this user today")
	ErrAlreadyResponded   = FailedPrecondition("follow request was already answered")
	ErrInvalidCredentials = Unauthorized("email or password is incorrect")
	ErrUnauthenticated    = Unauthorized("login required")
	ErrSelfAction         = InvalidArg("cannot target yourself")
	ErrUserNotFound       = NotFound("user not found")
	ErrFollowNotFound     = NotFound("follow not found")
	ErrNotMatched         = FailedPrecondition("no match with this user today")
	ErrNotificationGone   = NotFound("notification not found")
)

func ErrInternal(cause error) error {
	return Wrap(CodeInternal, "internal error", cause)
}
