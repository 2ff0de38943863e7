package game

import (
	"sync"
	"time"
)

// tickerGen hands out wall-clock tickers and stops all of them on Stop.
type tickerGen struct {
	mu      sync.Mutex
	tickers []*time.Ticker
}

func NewTickerGen() *tickerGen {
	return &tickerGen{}
}

func (g *tickerGen) Create(duration time.Duration) <-chan time.Time {
	t := time.NewTicker(duration)
	g.mu.Lock()
	g.tickers = append(g.tickers, t)
	g.mu.Unlock()
	return t.C
}

func (g *tickerGen) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, t := range g.tickers {
		t.Stop()
	}
	g.tickers = nil
}
