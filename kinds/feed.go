package kinds

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/providenetwork/merkletree"

	scaffold "github.com/nemonical/freenet-scaffold"
)

// Feed is an append-only entry log. The summary carries the length and
// a merkle root over the entries, the delta carries the suffix past
// the peer's length with the peer's root as precondition, and apply
// rejects histories that disagree on the shared prefix. Entries are
// compared byte-for-byte.
type Feed struct {
	Entries []FeedEntry `json:"entries"`
}

type FeedEntry struct {
	Author string          `json:"author"`
	At     uint64          `json:"at"`
	Body   json.RawMessage `json:"body"`
}

type FeedParams struct {
	// MaxEntries caps the log; zero means unbounded.
	MaxEntries int `json:"max_entries,omitempty"`
}

type FeedSummary struct {
	Size int    `json:"size"`
	Root []byte `json:"root,omitempty"`
}

// FeedDelta appends Entries after position Since; Root is the expected
// merkle root of the receiver's first Since entries. A zero delta is a
// no-op.
type FeedDelta struct {
	Since   int         `json:"since"`
	Root    []byte      `json:"root,omitempty"`
	Entries []FeedEntry `json:"entries,omitempty"`
}

func (f *Feed) Verify(p *FeedParams) error {
	if p.MaxEntries > 0 && len(f.Entries) > p.MaxEntries {
		return fmt.Errorf("%d entries over cap %d", len(f.Entries), p.MaxEntries)
	}
	for i, e := range f.Entries {
		if e.Author == "" {
			return fmt.Errorf("entry %d without an author", i)
		}
	}
	return nil
}

func (f *Feed) Summarize(p *FeedParams) FeedSummary {
	root, _ := feedRoot(f.Entries)
	return FeedSummary{Size: len(f.Entries), Root: root}
}

func (f *Feed) Delta(p *FeedParams, su *FeedSummary) FeedDelta {
	if su.Size > len(f.Entries) {
		// peer is ahead; nothing to send
		return FeedDelta{}
	}
	if su.Size < 0 {
		// nonsense summary: offer the whole log, apply arbitrates
		return FeedDelta{Entries: f.Entries}
	}
	prefix, err := feedRoot(f.Entries[:su.Size])
	if err != nil || !bytes.Equal(prefix, su.Root) {
		// diverged peer: offer the whole log, apply arbitrates
		return FeedDelta{Entries: f.Entries}
	}
	return FeedDelta{Since: su.Size, Root: su.Root, Entries: f.Entries[su.Size:]}
}

func (f *Feed) Apply(p *FeedParams, d *FeedDelta) error {
	if d.Since < 0 || d.Since > len(f.Entries) {
		return fmt.Errorf("delta starts at %d, have %d entries", d.Since, len(f.Entries))
	}
	if len(d.Root) > 0 {
		prefix, err := feedRoot(f.Entries[:d.Since])
		if err != nil {
			return err
		}
		if !bytes.Equal(prefix, d.Root) {
			return errors.New("prefix root mismatch: histories diverged")
		}
	}
	var tail []FeedEntry
	for i, e := range d.Entries {
		at := d.Since + i
		if at < len(f.Entries) {
			if !entryEqual(f.Entries[at], e) {
				return fmt.Errorf("entry %d mismatch: histories diverged", at)
			}
			continue
		}
		tail = append(tail, e)
	}
	if p.MaxEntries > 0 && len(f.Entries)+len(tail) > p.MaxEntries {
		return fmt.Errorf("%d entries over cap %d", len(f.Entries)+len(tail), p.MaxEntries)
	}
	f.Entries = append(f.Entries, tail...)
	return nil
}

func entryEqual(a, b FeedEntry) bool {
	return a.Author == b.Author && a.At == b.At && bytes.Equal(a.Body, b.Body)
}

// feedLeaf adapts an entry to merkle tree content; the hash covers the
// canonical JSON encoding.
type feedLeaf struct {
	e FeedEntry
}

func (l feedLeaf) CalculateHash() ([]byte, error) {
	raw, err := json.Marshal(l.e)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(raw)
	return sum[:], nil
}

func (l feedLeaf) Equals(other merkletree.Content) (bool, error) {
	o, ok := other.(feedLeaf)
	if !ok {
		return false, errors.New("mismatched content type")
	}
	return entryEqual(l.e, o.e), nil
}

// feedRoot is nil for the empty log.
func feedRoot(entries []FeedEntry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	leaves := make([]merkletree.Content, len(entries))
	for i, e := range entries {
		leaves[i] = feedLeaf{e: e}
	}
	t, err := merkletree.NewTreeWithHashStrategy(leaves, sha256.New)
	if err != nil {
		return nil, err
	}
	return t.MerkleRoot(), nil
}

func FeedOps(opts ...scaffold.Option) scaffold.Ops {
	return scaffold.New[Feed, FeedParams, FeedSummary, FeedDelta](opts...)
}
