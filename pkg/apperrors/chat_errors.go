package apperrors

var (
	ErrRoomNotFound     = NotFound("room not found")
	ErrUserNotFound     = NotFound("user not found")
	ErrRoomIDCollision  = Conflict("room id already taken")
	ErrOwnerCannotLeave = FailedPrecondition("room owner cannot leave the room")
	ErrSelfMessage      = InvalidArg("direct message needs two distinct users")
	ErrEmptyMessage     = InvalidArg("message is empty")
	ErrUsernameTaken    = Conflict("username or email already registered")
	ErrNotParticipant   = Forbidden("you can only read your own conversations")
)
