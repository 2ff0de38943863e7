package game

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"newavalon/domain"
	"newavalon/protocol"
)

// --- NetworkSession ---

type MockNetworkSession struct {
	mock.Mock
}

func (m *MockNetworkSession) Close(errCode string) {
	m.Called(errCode)
}

func (m *MockNetworkSession) Write(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *MockNetworkSession) Read() ([]byte, error) {
	args := m.Called()
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockNetworkSession) Ping() error {
	args := m.Called()
	return args.Error(0)
}

// --- PeriodicTickerChannelCreator ---

type MockPeriodicTickerChannelCreator struct {
	mock.Mock
}

func (m *MockPeriodicTickerChannelCreator) Create(duration time.Duration) <-chan time.Time {
	args := m.Called(duration)
	return args.Get(0).(chan time.Time)
}

// --- Lobby ---

type MockLobby struct {
	mock.Mock
}

func (m *MockLobby) RequestUpdateDescription(desc roomDescription) {
	m.Called(desc)
}

func (m *MockLobby) RemoveRoom(r Room) {
	m.Called(r)
}

// --- Router ---

type MockRouter struct {
	mock.Mock
}

func (m *MockRouter) Route(ctx context.Context, sessionID string, create bool) (Room, error) {
	args := m.Called(ctx, sessionID, create)
	r, _ := args.Get(0).(Room)
	return r, args.Error(1)
}

func (m *MockRouter) PublicSessions(ctx context.Context) []protocol.SessionSummary {
	args := m.Called(ctx)
	return args.Get(0).([]protocol.SessionSummary)
}

// --- Room ---

type MockRoom struct {
	mock.Mock
}

func (m *MockRoom) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockRoom) Enqueue(ev roomEvent) bool {
	args := m.Called(ev)
	return args.Bool(0)
}

func (m *MockRoom) Tick(now time.Time) {
	m.Called(now)
}

func (m *MockRoom) PingClients() {
	m.Called()
}

func (m *MockRoom) GameLoop() {
	m.Called()
}

func (m *MockRoom) CloseAndRelease() {
	m.Called()
}

// --- ActionRecorder ---

type MockActionRecorder struct {
	mock.Mock
}

func (m *MockActionRecorder) Record(a domain.Action) {
	m.Called(a)
}

// --- Client ---

// fakeClient records every packet a room sends to it.
type fakeClient struct {
	id string

	mu         sync.Mutex
	sent       [][]byte
	full       bool
	closed     bool
	closedWith string
	pings      int
}

func newFakeClient(id string) *fakeClient {
	return &fakeClient{id: id}
}

func (c *fakeClient) ID() string {
	return c.id
}

func (c *fakeClient) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full || c.closed {
		return false
	}
	c.sent = append(c.sent, data)
	return true
}

func (c *fakeClient) Ping() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pings++
}

func (c *fakeClient) Close(errCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.closedWith = errCode
	}
}

func (c *fakeClient) packets(t *testing.T, kind protocol.Kind) []protocol.Envelope {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []protocol.Envelope
	for _, data := range c.sent {
		env, err := protocol.UnmarshalEnvelope(data)
		require.NoError(t, err)
		if env.Kind == kind {
			out = append(out, env)
		}
	}
	return out
}

func (c *fakeClient) lastState(t *testing.T) domain.Session {
	t.Helper()
	states := c.packets(t, protocol.KindState)
	require.NotEmpty(t, states, "no state packet received by %s", c.id)
	s, err := protocol.Decode[domain.Session](states[len(states)-1].Payload)
	require.NoError(t, err)
	return s
}

func (c *fakeClient) lastJoined(t *testing.T) protocol.Joined {
	t.Helper()
	joined := c.packets(t, protocol.KindJoined)
	require.NotEmpty(t, joined, "no joined packet received by %s", c.id)
	j, err := protocol.Decode[protocol.Joined](joined[len(joined)-1].Payload)
	require.NoError(t, err)
	return j
}

func (c *fakeClient) errorCodes(t *testing.T) []string {
	t.Helper()
	var codes []string
	for _, env := range c.packets(t, protocol.KindError) {
		e, err := protocol.Decode[protocol.Error](env.Payload)
		require.NoError(t, err)
		codes = append(codes, e.Code)
	}
	return codes
}

func (c *fakeClient) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = nil
}

// --- TokenIssuer ---

type fakeTokens struct {
	mu     sync.Mutex
	n      int
	issued map[string][2]any
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{issued: map[string][2]any{}}
}

func (f *fakeTokens) Issue(sessionID string, playerID int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	token := fmt.Sprintf("tok-%d", f.n)
	f.issued[token] = [2]any{sessionID, playerID}
	return token, nil
}

func (f *fakeTokens) Verify(token string) (string, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claims, ok := f.issued[token]
	if !ok {
		return "", 0, ErrInvalidToken
	}
	return claims[0].(string), claims[1].(int), nil
}

// --- DeckSource ---

type fakeDecks struct{}

var errFakeUnknownDeck = fmt.Errorf("unknown-deck")

func (fakeDecks) Build(deckID string, ownerID int) ([]domain.Card, error) {
	if deckID != "starter" {
		return nil, errFakeUnknownDeck
	}
	return []domain.Card{
		{ID: fmt.Sprintf("starter-%d-1", ownerID), BaseID: "scout", OwnerID: ownerID, Power: 1},
		{ID: fmt.Sprintf("starter-%d-2", ownerID), BaseID: "raider", OwnerID: ownerID, Power: 3},
	}, nil
}
