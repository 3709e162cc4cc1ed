package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"panelbot/internal/apperrors"
)

func TestNewDocumentHasEmptyCollections(t *testing.T) {
	doc := NewDocument()

	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	want := `{"users":[],"admins":[],"tasks":[],"ads":[],"withdraws":[]}`
	if string(raw) != want {
		t.Fatalf("expected %s, got %s", want, raw)
	}
}

func TestCollectionRejectsUnknownName(t *testing.T) {
	doc := NewDocument()

	for _, name := range CollectionNames {
		if _, err := doc.Collection(name); err != nil {
			t.Fatalf("expected collection %s to resolve, got %v", name, err)
		}
	}

	_, err := doc.Collection("payments")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := doc.Len("payments"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Len, got %v", err)
	}
}

func TestNormalizeFillsMissingCollections(t *testing.T) {
	var doc Document
	if err := json.Unmarshal([]byte(`{"users":[{"user_id":1,"name":"a"}]}`), &doc); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}

	doc.Normalize()

	if len(doc.Users) != 1 {
		t.Fatalf("expected existing users to survive, got %d", len(doc.Users))
	}
	if doc.Admins == nil || doc.Tasks == nil || doc.Ads == nil || doc.Withdraws == nil {
		t.Fatalf("expected all collections to be non-nil, got %+v", doc)
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	doc := NewDocument()
	doc.Users = append(doc.Users, User{UserID: 1, Name: "Ann"})
	doc.Tasks = append(doc.Tasks, Record{"title": "follow"})

	cp := doc.Clone()
	cp.Users[0].Name = "Bob"
	cp.Tasks[0]["title"] = "changed"
	cp.Admins = append(cp.Admins, 5)

	if doc.Users[0].Name != "Ann" {
		t.Fatalf("expected original user untouched, got %s", doc.Users[0].Name)
	}
	if doc.Tasks[0]["title"] != "follow" {
		t.Fatalf("expected original record untouched, got %v", doc.Tasks[0]["title"])
	}
	if len(doc.Admins) != 0 {
		t.Fatalf("expected original admins untouched, got %v", doc.Admins)
	}
}

func TestFindUserAndIsAdmin(t *testing.T) {
	doc := NewDocument()
	doc.Users = []User{{UserID: 7, Name: "Ann"}}
	doc.Admins = []UserID{99}

	if u, ok := doc.FindUser(7); !ok || u.Name != "Ann" {
		t.Fatalf("expected to find user 7, got %+v ok=%v", u, ok)
	}
	if _, ok := doc.FindUser(8); ok {
		t.Fatalf("expected user 8 to be absent")
	}
	if !doc.IsAdmin(99) || doc.IsAdmin(7) {
		t.Fatalf("unexpected admin membership for %v", doc.Admins)
	}
}

func TestUserIDUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    UserID
		wantErr bool
	}{
		{name: "number", input: `42`, want: 42},
		{name: "string", input: `"42"`, want: 42},
		{name: "padded string", input: `" 1001 "`, want: 1001},
		{name: "empty string", input: `""`, want: 0},
		{name: "null", input: `null`, want: 0},
		{name: "negative", input: `-100200`, want: -100200},
		{name: "not a number", input: `"abc"`, wantErr: true},
		{name: "fraction", input: `4.2`, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			var got UserID
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestUserSerializesWithPanelFieldNames(t *testing.T) {
	raw, err := json.Marshal(User{UserID: 42, Name: "Ann"})
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}

	for _, key := range []string{"user_id", "name", "createdAt", "balance"} {
		if _, ok := fields[key]; !ok {
			t.Fatalf("expected key %s in %s", key, raw)
		}
	}
	if fields["user_id"] != float64(42) {
		t.Fatalf("expected numeric user_id, got %v", fields["user_id"])
	}
}

func TestUserCreatedAtAlwaysHasMilliseconds(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	raw, err := json.Marshal(User{UserID: 1, CreatedAt: created})
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if fields["createdAt"] != "2024-05-01T12:30:00.000Z" {
		t.Fatalf("expected millisecond timestamp, got %v", fields["createdAt"])
	}

	var back User
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("round trip error: %v", err)
	}
	if !back.CreatedAt.Equal(created) {
		t.Fatalf("expected %s after round trip, got %s", created, back.CreatedAt)
	}
}
