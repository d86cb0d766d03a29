package routing

import "errors"

var (
	// ErrUnknownCommand is returned for a command type the router does not handle
	ErrUnknownCommand = errors.New("unknown command type")
	// ErrDecode is returned when a wire message cannot be decoded
	ErrDecode = errors.New("failed to decode message")
)
