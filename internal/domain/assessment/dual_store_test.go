package assessment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wellcheck/wellcheck/internal/platform/auth"
)

func TestDualStore_RoutesByKind(t *testing.T) {
	ctx := context.Background()
	users, guests := newMemStore(), newMemStore()
	d := &DualStore{Users: users, Guests: guests}

	u := auth.User(uuid.NewString())
	g := auth.Guest(uuid.NewString())

	if err := d.Save(ctx, u, result("phq9", time.Now())); err != nil {
		t.Fatalf("user save: %v", err)
	}
	if err := d.Save(ctx, g, result("gad7", time.Now())); err != nil {
		t.Fatalf("guest save: %v", err)
	}
	if users.count(u) != 1 || guests.count(g) != 1 {
		t.Error("saves went to the wrong store")
	}
	if users.count(g) != 0 || guests.count(u) != 0 {
		t.Error("stores must not share identities")
	}
}

func TestDualStore_Errors(t *testing.T) {
	ctx := context.Background()
	d := &DualStore{Guests: newMemStore()}

	_, err := d.GetAll(ctx, auth.User(uuid.NewString()))
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("user without database: expected ErrStoreUnavailable, got %v", err)
	}
	_, err = d.GetAll(ctx, auth.Identity{})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("anonymous: expected ErrForbidden, got %v", err)
	}
	if _, err := d.GetAll(ctx, auth.Guest(uuid.NewString())); err != nil {
		t.Errorf("guest should still work: %v", err)
	}
}
