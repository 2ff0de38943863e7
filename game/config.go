package game

import (
	"time"

	"newavalon/rules"
)

type DisconnectPolicy string

const (
	PolicyRemove  DisconnectPolicy = "remove"
	PolicyStandIn DisconnectPolicy = "standin"
)

func (p DisconnectPolicy) Valid() bool {
	return p == PolicyRemove || p == PolicyStandIn
}

type RoomConfig struct {
	GracePeriod       time.Duration
	RemovalTimeout    time.Duration
	InactivityTimeout time.Duration
	EmptyTimeout      time.Duration
	Policy            DisconnectPolicy
	MaxPlayers        int
	Rules             rules.Config
}

func DefaultRoomConfig() RoomConfig {
	return RoomConfig{
		GracePeriod:       5 * time.Second,
		RemovalTimeout:    3 * time.Minute,
		InactivityTimeout: 30 * time.Minute,
		EmptyTimeout:      60 * time.Second,
		Policy:            PolicyRemove,
		MaxPlayers:        4,
		Rules:             rules.DefaultConfig(),
	}
}
