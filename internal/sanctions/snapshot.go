package sanctions

import (
	"strings"
	"sync/atomic"
	"time"

	"txguard/internal/compliance/models"
	dedupe "txguard/pkg/platform/strings"
)

// Snapshot is an immutable, versioned copy of the sanctions list. Screenings
// hold one snapshot for their whole comparison.
type Snapshot struct {
	Version  uint64
	LoadedAt time.Time
	entries  []compiledEntry
	byIdent  map[string]int
	byAddr   map[string]int
}

type compiledName struct {
	normalized string
	tokens     string
}

type compiledEntry struct {
	entry models.SanctionsEntry
	names []compiledName
}

// NewSnapshot precomputes normalized names and the identifier index.
func NewSnapshot(version uint64, entries []models.SanctionsEntry, loadedAt time.Time) *Snapshot {
	s := &Snapshot{
		Version:  version,
		LoadedAt: loadedAt,
		entries:  make([]compiledEntry, 0, len(entries)),
		byIdent:  make(map[string]int),
		byAddr:   make(map[string]int),
	}
	for _, e := range entries {
		ce := compiledEntry{entry: e}
		for _, norm := range dedupe.UniqueBy(append([]string{e.Name}, e.Aliases...), Normalize) {
			ce.names = append(ce.names, compiledName{normalized: norm, tokens: sortedTokens(norm)})
		}
		idx := len(s.entries)
		s.entries = append(s.entries, ce)
		for _, ident := range e.Identifiers {
			s.byIdent[identKey(ident.Type, ident.Value)] = idx
			if strings.EqualFold(ident.Type, models.IdentifierTypeAddress) {
				s.byAddr[foldValue(ident.Value)] = idx
			}
		}
	}
	return s
}

// Len returns the number of listed entities.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

func identKey(typ, value string) string {
	return foldValue(typ) + "\x00" + foldValue(value)
}

func foldValue(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// Holder publishes the current snapshot. Readers never block writers.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

func NewHolder() *Holder {
	return &Holder{}
}

// Current returns the active snapshot, or nil before the first load.
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// Swap installs next if its version is strictly greater than the active one.
// It reports whether the swap happened.
func (h *Holder) Swap(next *Snapshot) bool {
	if next == nil {
		return false
	}
	for {
		cur := h.current.Load()
		if cur != nil && next.Version <= cur.Version {
			return false
		}
		if h.current.CompareAndSwap(cur, next) {
			return true
		}
	}
}
