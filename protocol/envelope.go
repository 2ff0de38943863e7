package protocol

import (
	"fmt"
	"slices"

	"google.golang.org/protobuf/encoding/protowire"
)

type Kind uint32

// Client to server
const (
	KindSubmitState Kind = iota + 1
	KindJoin
	KindJoinInvite
	KindExit
	KindForceSync
	KindNextPhase
	KindPrevPhase
	KindSetPhase
	KindToggleActivePlayer
	KindUpdatePlayer
	KindSetStandIns
	KindMoveCard
	KindStartGame
	KindStartNextRound
	KindListSessions
)

// Server to client
const (
	KindState Kind = iota + 100
	KindJoined
	KindError
	KindSessions
)

var kindNames = map[Kind]string{
	KindSubmitState:        "submitState",
	KindJoin:               "join",
	KindJoinInvite:         "joinInvite",
	KindExit:               "exit",
	KindForceSync:          "forceSync",
	KindNextPhase:          "nextPhase",
	KindPrevPhase:          "prevPhase",
	KindSetPhase:           "setPhase",
	KindToggleActivePlayer: "toggleActivePlayer",
	KindUpdatePlayer:       "updatePlayer",
	KindSetStandIns:        "setStandIns",
	KindMoveCard:           "moveCard",
	KindStartGame:          "startGame",
	KindStartNextRound:     "startNextRound",
	KindListSessions:       "listSessions",
	KindState:              "state",
	KindJoined:             "joined",
	KindError:              "error",
	KindSessions:           "sessions",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint32(k))
}

func (k Kind) Inbound() bool {
	return k >= KindSubmitState && k <= KindListSessions
}

// Envelope field numbers
const (
	fieldKind      protowire.Number = 1
	fieldSessionID protowire.Number = 2
	fieldSeq       protowire.Number = 3
	fieldPayload   protowire.Number = 4
)

// Envelope frames every websocket message. The payload is JSON.
type Envelope struct {
	Kind      Kind
	SessionID string
	Seq       uint64
	Payload   []byte
}

func (e Envelope) Marshal() []byte {
	b := make([]byte, 0, 16+len(e.SessionID)+len(e.Payload))
	b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Kind))
	if e.SessionID != "" {
		b = protowire.AppendTag(b, fieldSessionID, protowire.BytesType)
		b = protowire.AppendString(b, e.SessionID)
	}
	if e.Seq != 0 {
		b = protowire.AppendTag(b, fieldSeq, protowire.VarintType)
		b = protowire.AppendVarint(b, e.Seq)
	}
	if len(e.Payload) > 0 {
		b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
		b = protowire.AppendBytes(b, e.Payload)
	}
	return b
}

// UnmarshalEnvelope parses a frame. Unknown fields are skipped.
func UnmarshalEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return Envelope{}, fmt.Errorf("%w: %w", ErrMalformedEnvelope, protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldKind && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(data)
			e.Kind = Kind(v)
		case num == fieldSessionID && typ == protowire.BytesType:
			e.SessionID, n = protowire.ConsumeString(data)
		case num == fieldSeq && typ == protowire.VarintType:
			e.Seq, n = protowire.ConsumeVarint(data)
		case num == fieldPayload && typ == protowire.BytesType:
			var v []byte
			v, n = protowire.ConsumeBytes(data)
			e.Payload = slices.Clone(v)
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return Envelope{}, fmt.Errorf("%w: %w", ErrMalformedEnvelope, protowire.ParseError(n))
		}
		data = data[n:]
	}
	if e.Kind == 0 {
		return Envelope{}, ErrMissingKind
	}
	return e, nil
}
