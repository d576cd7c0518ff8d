package room

import "errors"

// Load/save failures split into kinds the caller can act on: a missing
// room is the client's problem, corrupt state is ours, a backend error
// is retryable.
var (
	ErrRoomNotFound = errors.New("room not found")
	ErrCorruptState = errors.New("stored game state is corrupt")
	ErrBackend      = errors.New("storage backend unavailable")
)
