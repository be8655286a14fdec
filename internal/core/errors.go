package core

import "errors"

// Error codes reported in-band to the offending sender.
const (
	ErrCodeValidation    = "validation_error"
	ErrCodeRoomNotFound  = "room_not_found"
	ErrCodeRoomFull      = "room_full"
	ErrCodeAlreadyMember = "already_member"
	ErrCodeNoSuchTarget  = "no_such_target"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room full")
	ErrAlreadyMember = errors.New("already a member")
	ErrNoSuchTarget  = errors.New("no such target")
)

// SignalError wraps a code and human-readable message.
type SignalError struct {
	Code    string
	Message string
}

func (e *SignalError) Error() string {
	return e.Message
}

// CodeOf maps a registry error to its wire error code.
func CodeOf(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return ErrCodeRoomNotFound
	case errors.Is(err, ErrRoomFull):
		return ErrCodeRoomFull
	case errors.Is(err, ErrAlreadyMember):
		return ErrCodeAlreadyMember
	case errors.Is(err, ErrNoSuchTarget):
		return ErrCodeNoSuchTarget
	default:
		return ErrCodeValidation
	}
}
