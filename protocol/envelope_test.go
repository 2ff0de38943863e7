package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestEnvelope(t *testing.T) {
	t.Parallel()
	e := Envelope{Kind: KindMoveCard, SessionID: "abc", Seq: 42, Payload: []byte(`{"cardId":"x"}`)}

	data := e.Marshal()
	// a newer client may add fields
	data = protowire.AppendTag(data, 9, protowire.BytesType)
	data = protowire.AppendString(data, "ignored")

	got, err := UnmarshalEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestUnmarshalEnvelope_Errors(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		desc string
		data []byte
		err  error
	}{
		{desc: "empty", data: nil, err: ErrMissingKind},
		{desc: "no kind", data: Envelope{SessionID: "abc"}.Marshal()[2:], err: ErrMissingKind},
		{desc: "truncated tag", data: []byte{0x80}, err: ErrMalformedEnvelope},
		{desc: "truncated payload", data: Envelope{Kind: KindJoin, Payload: []byte("abcdef")}.Marshal()[:5], err: ErrMalformedEnvelope},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := UnmarshalEnvelope(tc.data)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "toggleActivePlayer", KindToggleActivePlayer.String())
	assert.Equal(t, "kind(77)", Kind(77).String())
	assert.True(t, KindListSessions.Inbound())
	assert.False(t, KindState.Inbound())
}

func TestDecode(t *testing.T) {
	t.Parallel()
	u, err := Decode[UpdatePlayer]([]byte(`{"playerId":2,"score":0}`))
	require.NoError(t, err)
	assert.Equal(t, 2, u.PlayerID)
	require.NotNil(t, u.Score)
	assert.Equal(t, 0, *u.Score)
	assert.Nil(t, u.DisplayName)

	_, err = Decode[SetPhase]([]byte(`{"phaseIndex":`))
	assert.ErrorIs(t, err, ErrMalformedPayload)

	empty, err := Decode[SetStandIns](nil)
	require.NoError(t, err)
	assert.Zero(t, empty.Count)
}

func TestEncodeError(t *testing.T) {
	t.Parallel()
	data := EncodeError("s", 3, KindForceSync, assert.AnError)

	e, err := UnmarshalEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, KindError, e.Kind)
	assert.Equal(t, uint64(3), e.Seq)

	payload, err := Decode[Error](e.Payload)
	require.NoError(t, err)
	assert.Equal(t, Error{Command: "forceSync", Code: assert.AnError.Error()}, payload)
}
