package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/pawtrack/internal/model"
	"github.com/dukerupert/pawtrack/internal/persist"
)

func saveSession(t *testing.T, r *Repository, token string, remember bool, expires time.Time) {
	t.Helper()
	snap := model.SessionSnapshot{Token: token, HouseholdID: "h1", Data: []byte(`{"household_id":"h1"}`), Remember: remember, ExpiresAt: expires, UpdatedAt: testNow}
	if err := r.Sessions.Save(snap); err != nil {
		t.Fatalf("save session: %v", err)
	}
}

func TestSessionSaveAndGet(t *testing.T) {
	r := setupRepoTestDB(t)
	seedHousehold(t, r)
	saveSession(t, r, "tok", true, testNow.Add(time.Hour))

	got, err := r.Sessions.Get("tok")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || string(got.Data) != `{"household_id":"h1"}` || !got.Remember {
		t.Fatalf("session = %+v", got)
	}
	if !got.ExpiresAt.Equal(testNow.Add(time.Hour)) {
		t.Errorf("expires = %v", got.ExpiresAt)
	}

	missing, err := r.Sessions.Get("nope")
	if err != nil || missing != nil {
		t.Errorf("missing = %+v, %v", missing, err)
	}
}

func TestSessionSaveOverwrites(t *testing.T) {
	r := setupRepoTestDB(t)
	seedHousehold(t, r)
	saveSession(t, r, "tok", false, testNow.Add(time.Hour))
	saveSession(t, r, "tok", true, testNow.Add(2*time.Hour))

	got, _ := r.Sessions.Get("tok")
	if !got.Remember || !got.ExpiresAt.Equal(testNow.Add(2*time.Hour)) {
		t.Errorf("session = %+v", got)
	}
}

func TestSessionPrune(t *testing.T) {
	r := setupRepoTestDB(t)
	seedHousehold(t, r)
	saveSession(t, r, "keep", true, testNow.Add(time.Hour))
	saveSession(t, r, "transient", false, testNow.Add(time.Hour))
	saveSession(t, r, "expired", true, testNow.Add(-time.Hour))

	n, err := r.Sessions.Prune(testNow)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned = %d, want 2", n)
	}
	list, err := r.Sessions.ListRemembered(testNow)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Token != "keep" {
		t.Errorf("remembered = %+v", list)
	}
}

func TestSessionDeleteExpiredKeepsTransient(t *testing.T) {
	r := setupRepoTestDB(t)
	seedHousehold(t, r)
	saveSession(t, r, "transient", false, testNow.Add(time.Hour))
	saveSession(t, r, "expired", true, testNow.Add(-time.Hour))

	n, err := r.Sessions.DeleteExpired(testNow)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	if got, _ := r.Sessions.Get("transient"); got == nil {
		t.Error("transient session was deleted")
	}
}

func TestSessionEffects(t *testing.T) {
	r := setupRepoTestDB(t)
	seedHousehold(t, r)
	ctx := context.Background()

	snap := model.SessionSnapshot{Token: "tok", HouseholdID: "h1", Data: []byte("{}"), ExpiresAt: testNow.Add(time.Hour), UpdatedAt: testNow}
	if err := r.Write(ctx, persist.Effect{Kind: persist.KindSaveSession, HouseholdID: "h1", Session: &snap}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := r.Write(ctx, persist.Effect{Kind: persist.KindDeleteSession, HouseholdID: "h1", IDs: []string{"tok"}}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := r.Sessions.Get("tok"); got != nil {
		t.Error("session still present after delete effect")
	}
}
