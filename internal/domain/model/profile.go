package model

import "time"

// AuthorizationRecord is the server-owned cooldown state of one identity.
// It is created on the first grant and overwritten on every later grant.
type AuthorizationRecord struct {
	Identity         string
	LastAuthorizedAt time.Time
}

// Preferences holds cosmetic, client-chosen settings.
type Preferences struct {
	AccentColor string `json:"accentColor,omitempty"`
	CardStyle   string `json:"cardStyle,omitempty"`
}

// Profile is the persisted per-identity record replaced on every save.
type Profile struct {
	Username    string        `json:"username"`
	Won         WonCollection `json:"wonGames"`
	Preferences Preferences   `json:"preferences"`
	UpdatedAt   time.Time     `json:"updatedAt,omitempty"`
}

// WonCollection is an ordered set of entry IDs. An ID appears at most once.
type WonCollection []string

// Contains reports whether id is already in the collection.
func (w WonCollection) Contains(id string) bool {
	for _, v := range w {
		if v == id {
			return true
		}
	}
	return false
}

// Add appends id if it is not present and reports whether it was added.
func (w *WonCollection) Add(id string) bool {
	if id == "" || w.Contains(id) {
		return false
	}
	*w = append(*w, id)
	return true
}

// Normalize returns a copy without empty or repeated IDs, keeping the
// order of first appearance.
func (w WonCollection) Normalize() WonCollection {
	out := make(WonCollection, 0, len(w))
	seen := make(map[string]struct{}, len(w))
	for _, id := range w {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Clone returns a deep copy of the profile.
func (p Profile) Clone() Profile {
	c := p
	c.Won = append(WonCollection(nil), p.Won...)
	return c
}
