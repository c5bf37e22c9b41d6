package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// ProfileStore is a named collection of profiles as stored by Nightscout
type ProfileStore struct {
	DefaultProfile string              `json:"defaultProfile"`
	Store          map[string]*Profile `json:"store"`
	StartDate      string              `json:"startDate"` // ISO-8601 UTC
	Units          string              `json:"units,omitempty"`
}

// ParseProfileStore parses a profile store document. It also accepts the array
// returned by /api/v1/profile (first element wins) and a bare profile, which
// is wrapped into a store under defaultName.
func ParseProfileStore(data []byte, defaultName string) (*ProfileStore, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("parsing profile store: empty document")
	}

	if data[0] == '[' {
		var stores []json.RawMessage
		if err := json.Unmarshal(data, &stores); err != nil {
			return nil, fmt.Errorf("parsing profile store: %w", err)
		}
		if len(stores) == 0 {
			return nil, fmt.Errorf("parsing profile store: no profiles returned")
		}
		data = stores[0]
	}

	var head struct {
		Store json.RawMessage `json:"store"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("parsing profile store: %w", err)
	}

	if len(head.Store) == 0 {
		p, err := ParseProfile(data)
		if err != nil {
			return nil, err
		}
		p.ProfileName = defaultName
		return &ProfileStore{
			DefaultProfile: defaultName,
			Store:          map[string]*Profile{defaultName: p},
			Units:          p.Units,
		}, nil
	}

	var store ProfileStore
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("parsing profile store: %w", err)
	}
	for name, p := range store.Store {
		if p == nil {
			delete(store.Store, name)
			continue
		}
		p.ProfileName = name
		if u := NormalizeUnits(p.Units); u != "" {
			p.Units = u
		} else if p.Units == "" {
			p.Units = NormalizeUnits(store.Units)
		}
	}
	return &store, nil
}

// Names returns the profile names in sorted order
func (s *ProfileStore) Names() []string {
	names := make([]string, 0, len(s.Store))
	for name := range s.Store {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Profile returns the named profile, or the default profile when name is empty
func (s *ProfileStore) Profile(name string) (*Profile, error) {
	if name == "" {
		name = s.DefaultProfile
	}
	p, ok := s.Store[name]
	if !ok {
		return nil, fmt.Errorf("profile %q not found in store", name)
	}
	return p, nil
}
