package routing

import (
	"testing"

	"github.com/GriffinCanCode/termplex/internal/shared/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Command
	}{
		{
			name: "create with cwd",
			in:   `{"type":"create","cwd":"/tmp","request_id":"7"}`,
			want: Command{Type: CommandCreate, Cwd: "/tmp", RequestID: "7"},
		},
		{
			name: "input payload is base64",
			in:   `{"type":"input","session":3,"data":"bHMK"}`,
			want: Command{Type: CommandInput, Session: id.SessionID(3), Data: []byte("ls\n")},
		},
		{
			name: "resize",
			in:   `{"type":"resize","session":3,"cols":100,"rows":30}`,
			want: Command{Type: CommandResize, Session: id.SessionID(3), Cols: 100, Rows: 30},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCommand([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeCommandRejectsGarbage(t *testing.T) {
	_, err := DecodeCommand([]byte(`{"type":`))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestEncodeEvent(t *testing.T) {
	data, err := EncodeEvent(Event{Type: EventData, Session: 2, Data: []byte("hi")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"data","session":2,"data":"aGk=","code":0}`, string(data))

	data, err = EncodeEvent(Event{Type: EventExit, Session: 2, Code: 130})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"exit","session":2,"code":130}`, string(data))
}

func TestReplyCwdNull(t *testing.T) {
	data, err := Marshal(Reply{Type: CommandGetCwd, Session: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"get_cwd","session":1,"cwd":null}`, string(data))
}
