package decks

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"slices"

	"github.com/google/uuid"

	"newavalon/domain"
)

var (
	ErrUnknownDeck    = errors.New("unknown-deck")
	ErrInvalidCatalog = errors.New("invalid-catalog")
)

//go:embed catalog.json
var embedded embed.FS

type Entry struct {
	BaseID string `json:"baseId"`
	Power  int    `json:"power"`
	Count  int    `json:"count"`
}

type Deck struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Cards []Entry `json:"cards"`
}

// Catalog maps deck ids to their card lists. It is read-only after load.
type Catalog struct {
	decks map[string]Deck
	newID func() string
}

func Default() (*Catalog, error) {
	return Open(embedded, "catalog.json")
}

func Open(fsys fs.FS, name string) (*Catalog, error) {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	var list []Deck
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}

	c := &Catalog{decks: make(map[string]Deck, len(list)), newID: uuid.NewString}
	for _, d := range list {
		if d.ID == "" {
			return nil, fmt.Errorf("%w: deck without id", ErrInvalidCatalog)
		}
		if _, dup := c.decks[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate deck %q", ErrInvalidCatalog, d.ID)
		}
		for _, e := range d.Cards {
			if e.BaseID == "" || e.Count < 0 {
				return nil, fmt.Errorf("%w: bad entry in deck %q", ErrInvalidCatalog, d.ID)
			}
		}
		c.decks[d.ID] = d
	}
	return c, nil
}

func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.decks))
	for id := range c.decks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Build returns fresh card instances for deckID, in catalog order, owned by
// ownerID. Every call mints new card ids.
func (c *Catalog) Build(deckID string, ownerID int) ([]domain.Card, error) {
	d, ok := c.decks[deckID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDeck, deckID)
	}

	var cards []domain.Card
	for _, e := range d.Cards {
		for range e.Count {
			cards = append(cards, domain.Card{
				ID:      c.newID(),
				BaseID:  e.BaseID,
				OwnerID: ownerID,
				Power:   e.Power,
			})
		}
	}
	return cards, nil
}
