package allowlist

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"shirtdrop/internal/domain/value"
)

// Entry is a shirt minted outside of the admin flow (e.g. the pilot run).
// DropID is optional; when set, claims are recorded against that drop.
type Entry struct {
	ShirtID  uuid.UUID
	DropID   uuid.UUID
	ObjectID value.ObjectID
	Name     string
	Attrs    value.ShirtAttributes
}

type file struct {
	Shirts []struct {
		ShirtID  string            `yaml:"shirt_id"`
		DropID   string            `yaml:"drop_id"`
		ObjectID string            `yaml:"object_id"`
		Name     string            `yaml:"name"`
		Size     string            `yaml:"size"`
		Color    string            `yaml:"color"`
		Edition  string            `yaml:"edition"`
		Extra    map[string]string `yaml:"extra"`
	} `yaml:"shirts"`
}

// Allowlist maps shirt ids to chain object ids. The zero value is empty.
type Allowlist struct {
	entries map[uuid.UUID]Entry
}

// Load reads the allowlist file. An empty path or a missing file yields an
// empty allowlist.
func Load(path string) (*Allowlist, error) {
	if path == "" {
		return &Allowlist{}, nil
	}

	fh, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Allowlist{}, nil
		}

		return nil, fmt.Errorf("os.Open: %w", err)
	}
	defer fh.Close()

	return Parse(fh)
}

func Parse(r io.Reader) (*Allowlist, error) {
	var f file
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("yaml.Decode: %w", err)
	}

	entries := make(map[uuid.UUID]Entry, len(f.Shirts))

	for i, s := range f.Shirts {
		shirtID, err := uuid.Parse(s.ShirtID)
		if err != nil {
			return nil, fmt.Errorf("shirts[%d].shirt_id: %w", i, err)
		}

		objectID, err := value.ParseObjectID(s.ObjectID)
		if err != nil {
			return nil, fmt.Errorf("shirts[%d].object_id: %w", i, err)
		}

		var dropID uuid.UUID
		if s.DropID != "" {
			if dropID, err = uuid.Parse(s.DropID); err != nil {
				return nil, fmt.Errorf("shirts[%d].drop_id: %w", i, err)
			}
		}

		if _, dup := entries[shirtID]; dup {
			return nil, fmt.Errorf("shirts[%d]: duplicate shirt_id %s", i, shirtID)
		}

		entries[shirtID] = Entry{
			ShirtID:  shirtID,
			DropID:   dropID,
			ObjectID: objectID,
			Name:     s.Name,
			Attrs: value.ShirtAttributes{
				Size:    s.Size,
				Color:   s.Color,
				Edition: s.Edition,
				Extra:   s.Extra,
			},
		}
	}

	return &Allowlist{entries: entries}, nil
}

func (a *Allowlist) Lookup(shirtID uuid.UUID) (Entry, bool) {
	entry, ok := a.entries[shirtID]
	return entry, ok
}

func (a *Allowlist) Len() int {
	return len(a.entries)
}
