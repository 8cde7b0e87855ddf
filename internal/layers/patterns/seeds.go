package patterns

import (
	"context"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// seedFile is the TOML shape of .strata/patterns.toml: declared
// rewrites that prime the store before any rename has been observed.
type seedFile struct {
	Patterns []seedPattern `toml:"patterns"`
}

type seedPattern struct {
	From    string `toml:"from"`
	To      string `toml:"to"`
	Kind    string `toml:"kind,omitempty"`
	Support int    `toml:"support,omitempty"`
}

// LoadSeeds reads declared patterns from a TOML file and upserts them
// into the store. A missing file is not an error. Returns the number of
// seeds loaded.
func (s *Store) LoadSeeds(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	var sf seedFile
	if err := toml.Unmarshal(data, &sf); err != nil {
		return 0, err
	}

	loaded := 0
	for _, sp := range sf.Patterns {
		if sp.From == "" || sp.To == "" {
			continue
		}
		kind := RewriteKind(sp.Kind)
		switch kind {
		case RewritePrefix, RewriteSuffix, RewriteWhole:
		default:
			kind = RewritePrefix
		}
		support := sp.Support
		if support < 1 {
			support = 1
		}
		if err := s.Upsert(ctx, Pattern{FromToken: sp.From, ToToken: sp.To, Kind: kind, Support: support}); err != nil {
			return loaded, err
		}
		loaded++
	}
	return loaded, nil
}
