package routing

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// wire is std-compatible so byte payloads travel base64-encoded and map keys
// are sorted, matching encoding/json output byte for byte.
var wire = sonic.ConfigStd

// Marshal encodes any protocol value for the wire
func Marshal(v any) ([]byte, error) {
	return wire.Marshal(v)
}

// Unmarshal decodes a wire message into v
func Unmarshal(data []byte, v any) error {
	if err := wire.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

// DecodeCommand decodes a single command
func DecodeCommand(data []byte) (Command, error) {
	var cmd Command
	if err := Unmarshal(data, &cmd); err != nil {
		return Command{}, err
	}
	return cmd, nil
}

// EncodeEvent encodes a single event
func EncodeEvent(ev Event) ([]byte, error) {
	return Marshal(ev)
}
