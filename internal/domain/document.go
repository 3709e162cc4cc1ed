// Package domain defines the aggregate document persisted by the store and the
// records it holds.
package domain

import (
	"fmt"

	"panelbot/internal/apperrors"
)

// Collection names recognized inside the aggregate document.
const (
	CollectionUsers     = "users"
	CollectionAdmins    = "admins"
	CollectionTasks     = "tasks"
	CollectionAds       = "ads"
	CollectionWithdraws = "withdraws"
)

// CollectionNames lists every collection in persisted order.
var CollectionNames = []string{
	CollectionUsers,
	CollectionAdmins,
	CollectionTasks,
	CollectionAds,
	CollectionWithdraws,
}

// Record is a free-form entry of a reserved collection.
type Record map[string]interface{}

// Document is the single persisted aggregate holding every collection.
type Document struct {
	Users     []User   `bson:"users" json:"users"`
	Admins    []UserID `bson:"admins" json:"admins"`
	Tasks     []Record `bson:"tasks" json:"tasks"`
	Ads       []Record `bson:"ads" json:"ads"`
	Withdraws []Record `bson:"withdraws" json:"withdraws"`
}

// NewDocument returns an aggregate with all five collections empty.
func NewDocument() Document {
	return Document{
		Users:     []User{},
		Admins:    []UserID{},
		Tasks:     []Record{},
		Ads:       []Record{},
		Withdraws: []Record{},
	}
}

// Normalize replaces absent collections with empty ones.
func (d *Document) Normalize() {
	if d.Users == nil {
		d.Users = []User{}
	}
	if d.Admins == nil {
		d.Admins = []UserID{}
	}
	if d.Tasks == nil {
		d.Tasks = []Record{}
	}
	if d.Ads == nil {
		d.Ads = []Record{}
	}
	if d.Withdraws == nil {
		d.Withdraws = []Record{}
	}
}

// Collection returns the named collection. Unknown names yield an error
// wrapping apperrors.ErrNotFound.
func (d Document) Collection(name string) (interface{}, error) {
	switch name {
	case CollectionUsers:
		return d.Users, nil
	case CollectionAdmins:
		return d.Admins, nil
	case CollectionTasks:
		return d.Tasks, nil
	case CollectionAds:
		return d.Ads, nil
	case CollectionWithdraws:
		return d.Withdraws, nil
	default:
		return nil, fmt.Errorf("collection %q: %w", name, apperrors.ErrNotFound)
	}
}

// Len reports the number of entries in the named collection.
func (d Document) Len(name string) (int, error) {
	switch name {
	case CollectionUsers:
		return len(d.Users), nil
	case CollectionAdmins:
		return len(d.Admins), nil
	case CollectionTasks:
		return len(d.Tasks), nil
	case CollectionAds:
		return len(d.Ads), nil
	case CollectionWithdraws:
		return len(d.Withdraws), nil
	default:
		return 0, fmt.Errorf("collection %q: %w", name, apperrors.ErrNotFound)
	}
}

// FindUser returns the user with the given id, if present.
func (d Document) FindUser(id UserID) (User, bool) {
	for _, u := range d.Users {
		if u.UserID == id {
			return u, true
		}
	}
	return User{}, false
}

// IsAdmin reports whether id is listed in the admins collection.
func (d Document) IsAdmin(id UserID) bool {
	for _, admin := range d.Admins {
		if admin == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers never alias a working copy.
func (d Document) Clone() Document {
	out := Document{
		Users:     append([]User{}, d.Users...),
		Admins:    append([]UserID{}, d.Admins...),
		Tasks:     cloneRecords(d.Tasks),
		Ads:       cloneRecords(d.Ads),
		Withdraws: cloneRecords(d.Withdraws),
	}
	return out
}

func cloneRecords(in []Record) []Record {
	out := make([]Record, 0, len(in))
	for _, rec := range in {
		cp := make(Record, len(rec))
		for k, v := range rec {
			cp[k] = v
		}
		out = append(out, cp)
	}
	return out
}
