package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UserID is a Telegram user identifier.
type UserID int64

// UnmarshalJSON accepts either a JSON number or a string holding a base-10
// integer. Web clients usually forward the id from a query string.
func (id *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}

	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("user_id: %w", err)
		}
		raw = s
	}

	return id.parse(raw)
}

// UnmarshalText supports form-encoded payloads.
func (id *UserID) UnmarshalText(text []byte) error {
	return id.parse(string(text))
}

func (id *UserID) parse(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*id = 0
		return nil
	}

	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("user_id must be an integer: %w", err)
	}

	*id = UserID(parsed)
	return nil
}

// String renders the id in base 10.
func (id UserID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// User represents a panel user registered through the web app.
type User struct {
	UserID    UserID    `bson:"user_id" json:"user_id"`
	Name      string    `bson:"name" json:"name"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	Balance   float64   `bson:"balance" json:"balance"`
}

// timestampLayout always carries milliseconds so panel timestamps line up.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// MarshalJSON writes createdAt with millisecond precision in UTC.
func (u User) MarshalJSON() ([]byte, error) {
	type plain User
	return json.Marshal(struct {
		plain
		CreatedAt string `json:"createdAt"`
	}{
		plain:     plain(u),
		CreatedAt: u.CreatedAt.UTC().Format(timestampLayout),
	})
}
