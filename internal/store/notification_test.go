package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/pawtrack/internal/model"
	"github.com/dukerupert/pawtrack/internal/persist"
)

func TestNotificationInsertIsIdempotent(t *testing.T) {
	r := setupRepoTestDB(t)
	seedHousehold(t, r)

	n := model.Notification{ID: "n1", Type: model.NotifSystem, Title: "Changed", Message: "again", Time: testNow}
	if err := r.Notifications.Insert("h1", n); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := r.Notifications.GetByID("h1", "n1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Welcome" {
		t.Errorf("title = %q, want original Welcome", got.Title)
	}
	items, _ := r.Notifications.ListByHousehold("h1")
	if len(items) != 2 {
		t.Errorf("notifications = %d, want 2", len(items))
	}
}

func TestNotificationGetMissing(t *testing.T) {
	r := setupRepoTestDB(t)
	seedHousehold(t, r)
	got, err := r.Notifications.GetByID("h1", "missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestNotificationMarkRead(t *testing.T) {
	r := setupRepoTestDB(t)
	seedHousehold(t, r)

	if err := r.Notifications.MarkRead("h1", "n1", "n2"); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	items, _ := r.Notifications.ListByHousehold("h1")
	for _, n := range items {
		if !n.Read {
			t.Errorf("notification %s not read", n.ID)
		}
	}
	if err := r.Notifications.MarkRead("h1"); err != nil {
		t.Errorf("mark read with no ids: %v", err)
	}
}

func TestNotificationDeleteReadBefore(t *testing.T) {
	r := setupRepoTestDB(t)
	seedHousehold(t, r)

	old := model.Notification{ID: "n3", Type: model.NotifSystem, Title: "Old", Message: "old", Time: testNow.Add(-10 * 24 * time.Hour)}
	r.Notifications.Insert("h1", old)
	oldUnread := model.Notification{ID: "n4", Type: model.NotifSystem, Title: "Old unread", Message: "old", Time: testNow.Add(-10 * 24 * time.Hour)}
	r.Notifications.Insert("h1", oldUnread)
	r.Notifications.MarkRead("h1", "n1", "n3")

	n, err := r.Notifications.DeleteReadBefore(testNow.Add(-7 * 24 * time.Hour))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	if got, _ := r.Notifications.GetByID("h1", "n3"); got != nil {
		t.Error("old read notification still present")
	}
	if got, _ := r.Notifications.GetByID("h1", "n4"); got == nil {
		t.Error("old unread notification was deleted")
	}
}

func acceptedWalk(by string) model.Walk {
	return model.Walk{ID: "w2", Date: testNow.Add(11 * time.Hour), AssignedTo: by, Status: model.WalkNotStarted}
}

func acceptedNotice(id, by string) model.Notification {
	return model.Notification{ID: id, Type: model.NotifSwapAccepted, Title: "Swap Accepted", Message: "done", Time: testNow, RelatedID: "w2", RecipientID: "bob", CreatedBy: by}
}

func TestAcceptSwapFirstWins(t *testing.T) {
	r := setupRepoTestDB(t)
	seedHousehold(t, r)
	r.Members.Upsert("h1", model.Member{ID: "carol", Name: "Carol", Role: model.RoleSecondary})
	ctx := context.Background()

	if err := r.AcceptSwap(ctx, "h1", "n2", "alice", acceptedWalk("alice"), acceptedNotice("a1", "alice")); err != nil {
		t.Fatalf("first accept: %v", err)
	}

	err := r.AcceptSwap(ctx, "h1", "n2", "carol", acceptedWalk("carol"), acceptedNotice("a2", "carol"))
	var ce *persist.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("second accept err = %v, want ConflictError", err)
	}
	if ce.Winner != "alice" {
		t.Errorf("winner = %q, want alice", ce.Winner)
	}
	if ce.Walk == nil || ce.Walk.AssignedTo != "alice" {
		t.Errorf("conflict walk = %+v, want assigned to alice", ce.Walk)
	}
	if !errors.Is(err, model.ErrAlreadyAccepted) {
		t.Error("conflict should unwrap to ErrAlreadyAccepted")
	}

	w, _ := r.Walks.GetByID("h1", "w2")
	if w.AssignedTo != "alice" || w.Status != model.WalkNotStarted {
		t.Errorf("stored walk = %+v", w)
	}
	if got, _ := r.Notifications.GetByID("h1", "a2"); got != nil {
		t.Error("losing acceptance notice was stored")
	}
	req, _ := r.Notifications.GetByID("h1", "n2")
	if req.AcceptedBy != "alice" || !req.Read {
		t.Errorf("request = %+v", req)
	}
}

func TestAcceptSwapWalkNoLongerPending(t *testing.T) {
	r := setupRepoTestDB(t)
	seedHousehold(t, r)

	w, _ := r.Walks.GetByID("h1", "w2")
	w.Status = model.WalkNotStarted
	w.SwapRequestedBy = ""
	if err := r.Walks.Upsert("h1", *w); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	err := r.AcceptSwap(context.Background(), "h1", "n2", "alice", acceptedWalk("alice"), acceptedNotice("a1", "alice"))
	ce, ok := persist.AsConflict(err)
	if !ok {
		t.Fatalf("err = %v, want conflict", err)
	}
	if ce.Winner != "" {
		t.Errorf("winner = %q, want empty", ce.Winner)
	}
}

func TestRepositoryWriteEffects(t *testing.T) {
	r := setupRepoTestDB(t)
	seedHousehold(t, r)
	ctx := context.Background()

	dog := model.Dog{Name: "Rex", Breed: "Beagle", Age: 5, Weight: 12, EnergyLevel: model.EnergyMedium}
	w := model.Walk{ID: "w3", Date: testNow.Add(24 * time.Hour), AssignedTo: "alice", Status: model.WalkNotStarted}
	n := model.Notification{ID: "n9", Type: model.NotifSystem, Title: "Hi", Message: "m", Time: testNow}
	effects := []persist.Effect{
		{Kind: persist.KindSaveDog, HouseholdID: "h1", Dog: &dog},
		{Kind: persist.KindUpsertWalk, HouseholdID: "h1", Walk: &w},
		{Kind: persist.KindDeleteWalk, HouseholdID: "h1", IDs: []string{"w1"}},
		{Kind: persist.KindInsertNotification, HouseholdID: "h1", Notification: &n},
		{Kind: persist.KindMarkRead, HouseholdID: "h1", IDs: []string{"n9"}},
		{Kind: persist.KindDeleteMember, HouseholdID: "h1", IDs: []string{"bob"}},
	}
	for _, e := range effects {
		if err := r.Write(ctx, e); err != nil {
			t.Fatalf("write %s: %v", e.Kind, err)
		}
	}

	s, err := r.LoadHousehold(ctx, "h1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Dog.Age != 5 || s.Dog.EnergyLevel != model.EnergyMedium {
		t.Errorf("dog = %+v", s.Dog)
	}
	if len(s.Walks) != 2 || s.Walks[0].ID != "w2" || s.Walks[1].ID != "w3" {
		t.Errorf("walks = %+v", s.Walks)
	}
	if len(s.Members) != 1 {
		t.Errorf("members = %d, want 1", len(s.Members))
	}
	last := s.Notifications[len(s.Notifications)-1]
	if last.ID != "n9" || !last.Read {
		t.Errorf("last notification = %+v", last)
	}

	if err := r.Write(ctx, persist.Effect{Kind: "bogus"}); err == nil {
		t.Error("expected error for unknown kind")
	}
}
