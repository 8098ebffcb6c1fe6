// Package snapshot bundles a static producer list into the binary. It is the
// always-available, zero-latency fallback for single-producer lookups and the
// seed the snapshot generator refreshes.
package snapshot

import (
	"context"
	_ "embed"
	"encoding/json"
	"strings"
	"sync"

	"github.com/andyarntsen-alt/kortreist/engine/domain"
	"github.com/andyarntsen-alt/kortreist/pkg/fn"
)

//go:embed farmers.json
var raw []byte

// file is the snapshot serialization shape, shared with the generator.
type file struct {
	Producers []domain.Producer `json:"farmers"`
}

var (
	once      sync.Once
	producers []domain.Producer
)

// Producers returns the bundled static list. Parsed once; a malformed bundle
// yields an empty list rather than a panic.
func Producers() []domain.Producer {
	once.Do(func() {
		var f file
		if err := json.Unmarshal(raw, &f); err == nil {
			producers = f.Producers
		}
	})
	return producers
}

// Lookup resolves one producer id: the bundled snapshot first, then the live
// merged list, else domain.ErrNotFound. live may be nil.
func Lookup(ctx context.Context, id string, live func(context.Context) []domain.Producer) (domain.Producer, error) {
	if p, ok := find(Producers(), id); ok {
		return p, nil
	}
	if live != nil {
		if p, ok := find(live(ctx), id); ok {
			return p, nil
		}
	}
	return domain.Producer{}, domain.ErrNotFound
}

func find(list []domain.Producer, id string) (domain.Producer, bool) {
	for _, p := range list {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Producer{}, false
}

// Refresh rebuilds a snapshot list from an existing one plus a fresh scrape:
// stale scraped entries are replaced wholesale, everything else is kept, and
// the union is deduplicated by normalized name with kept entries winning.
func Refresh(existing, scraped []domain.Producer) []domain.Producer {
	kept := fn.Filter(existing, func(p domain.Producer) bool {
		return !strings.HasPrefix(p.ID, domain.SourceBondensMarked.IDPrefix())
	})
	return fn.UniqueBy(append(kept, scraped...), func(p domain.Producer) string {
		return domain.NameKey(p.Name)
	})
}

// Encode renders a producer list in the snapshot file shape.
func Encode(producers []domain.Producer) ([]byte, error) {
	return json.MarshalIndent(file{Producers: producers}, "", "  ")
}

// Decode parses snapshot file bytes.
func Decode(data []byte) ([]domain.Producer, error) {
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return f.Producers, nil
}
