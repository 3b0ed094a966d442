// Package pagination encodes keyset positions for newest-first listings
// as opaque page tokens.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// ErrInvalidToken is returned for tokens that do not decode to a cursor.
var ErrInvalidToken = errors.New("invalid pagination token")

// Cursor is the last item of the previous page. Owner scopes a token to one
// listing so it cannot be replayed against another user's inbox.
type Cursor struct {
	Owner       string `json:"o,omitempty"`
	ID          string `json:"id"`
	CreatedUnix int64  `json:"t"` // millis
}

// IsZero reports whether c points at the first page.
func (c Cursor) IsZero() bool { return c.ID == "" && c.CreatedUnix == 0 }

// After reports whether an item sorted by (created desc, id desc) lies past
// the cursor.
func (c Cursor) After(createdUnix int64, id string) bool {
	if c.IsZero() {
		return true
	}
	if createdUnix != c.CreatedUnix {
		return createdUnix < c.CreatedUnix
	}
	return id < c.ID
}

// Token returns the opaque form of c.
func (c Cursor) Token() string {
	b, _ := json.Marshal(c) // plain strings and ints always marshal
	return base64.RawURLEncoding.EncodeToString(b)
}

// Parse decodes a token produced by Token for the listing owned by owner.
// An empty token is the first page.
func Parse(token, owner string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, ErrInvalidToken
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil || c.ID == "" || c.Owner != owner {
		return Cursor{}, ErrInvalidToken
	}
	return c, nil
}
