package chat

import "errors"

// Domain-level errors for chat behaviors. Callers wrap these with
// fmt.Errorf("%w: ...") to attach detail while keeping errors.Is working.
var (
	ErrValidation = errors.New("chat: validation failed")
	ErrForbidden  = errors.New("chat: user is not a member of the conversation")
	ErrNotFound   = errors.New("chat: not found")
	ErrConflict   = errors.New("chat: conflicting write")

	ErrInvalidConversation = errors.New("chat: conversation/message mismatch")
	ErrEmptyMessage        = errors.New("chat: empty message (no body or image)")
)
