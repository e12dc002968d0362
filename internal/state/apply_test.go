package state

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/pawtrack/internal/model"
	"github.com/dukerupert/pawtrack/internal/persist"
	"github.com/dukerupert/pawtrack/internal/schedule"
	"github.com/dukerupert/pawtrack/internal/walk"
)

var registeredAt = time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)

type fixture struct {
	t   *testing.T
	n   int
	now time.Time
	s   model.HouseholdState
}

func (f *fixture) env() Env {
	return Env{Now: f.now, NewID: func() string {
		f.n++
		return fmt.Sprintf("id-%d", f.n)
	}}
}

func (f *fixture) apply(a Action) Result {
	f.t.Helper()
	res, err := Apply(f.env(), f.s, a)
	require.NoError(f.t, err, "apply %s", a.Name())
	f.s = res.State
	return res
}

func (f *fixture) reject(a Action) error {
	f.t.Helper()
	before := f.s.Clone()
	res, err := Apply(f.env(), f.s, a)
	require.Error(f.t, err, "apply %s", a.Name())
	assert.Equal(f.t, before, res.State, "state must be unchanged on failure")
	return err
}

func (f *fixture) member(name string) string {
	f.t.Helper()
	for _, m := range f.s.Members {
		if m.Name == name {
			return m.ID
		}
	}
	f.t.Fatalf("no member named %s", name)
	return ""
}

func (f *fixture) walk(id string) model.Walk {
	f.t.Helper()
	i := f.s.WalkIndex(id)
	require.GreaterOrEqual(f.t, i, 0, "walk %s", id)
	return f.s.Walks[i]
}

func (f *fixture) as(name string) {
	f.t.Helper()
	f.apply(SwitchUser{MemberID: f.member(name)})
}

func ofType(items []model.Notification, t model.NotificationType) []model.Notification {
	var out []model.Notification
	for _, n := range items {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// smiths registers Alice (Primary) and Bob (Secondary) with their dog Rex.
func smiths(t *testing.T, extra ...string) *fixture {
	t.Helper()
	f := &fixture{t: t, now: registeredAt}
	r := Registration{
		HouseholdName: "Smiths",
		Dog:           model.Dog{Name: "Rex", Breed: "Beagle", Age: 4, Weight: 11.5, EnergyLevel: model.EnergyHigh},
		Members:       []MemberDraft{{Name: "Alice"}, {Name: "Bob", Role: model.RoleSecondary}},
	}
	for _, name := range extra {
		r.Members = append(r.Members, MemberDraft{Name: name, Role: model.RoleOccasional})
	}
	res, err := NewHousehold(f.env(), r)
	require.NoError(t, err)
	f.s = res.State
	return f
}

func TestRegistration(t *testing.T) {
	f := smiths(t)
	s := f.s

	assert.True(t, s.IsRegistered)
	assert.Equal(t, "Smiths", s.HouseholdName)
	require.Len(t, s.Members, 2)
	assert.Equal(t, model.RolePrimary, s.Members[0].Role)
	assert.Equal(t, model.RoleSecondary, s.Members[1].Role)
	assert.Equal(t, s.Members[0].ID, s.CurrentUser)

	require.Len(t, s.Walks, 28)
	for i := 0; i < 14; i++ {
		assert.Equal(t, s.Members[i%2].ID, s.Walks[2*i].AssignedTo)
		assert.Equal(t, s.Members[(i+1)%2].ID, s.Walks[2*i+1].AssignedTo)
	}

	require.Len(t, s.Notifications, 1)
	assert.Equal(t, model.NotifSystem, s.Notifications[0].Type)
	assert.Empty(t, s.CurrentWalkID)
}

func TestRegistrationRequiresMembers(t *testing.T) {
	f := &fixture{t: t, now: registeredAt}
	_, err := NewHousehold(f.env(), Registration{HouseholdName: "Empty"})
	assert.ErrorIs(t, err, model.ErrInvalidState)

	_, err = NewHousehold(f.env(), Registration{Members: []MemberDraft{{Name: "A"}}})
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestUnregisteredRejectsActions(t *testing.T) {
	_, err := Apply(Env{Now: registeredAt}, Fresh(), MarkAllRead{})
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestAliceWalksRex(t *testing.T) {
	f := smiths(t)
	morning := f.s.Walks[0]
	alice := f.member("Alice")
	require.Equal(t, alice, morning.AssignedTo)

	f.now = morning.Date
	f.apply(StartWalk{WalkID: morning.ID})
	assert.Equal(t, model.WalkInProgress, f.walk(morning.ID).Status)
	assert.Equal(t, morning.ID, f.s.CurrentWalkID)

	f.now = morning.Date.Add(27*time.Minute + 50*time.Second)
	res := f.apply(EndWalk{Completion: walk.Completion{
		Activity: model.Activity{Peed: true, Pooped: false},
		DogMood:  model.MoodHappy,
	}})

	done := f.walk(morning.ID)
	assert.Equal(t, model.WalkCompleted, done.Status)
	require.NotNil(t, done.Duration)
	assert.Equal(t, 28, *done.Duration)
	assert.Equal(t, model.MoodHappy, done.DogMood)
	assert.Empty(t, f.s.CurrentWalkID)

	assert.Equal(t, 1, f.s.Members[0].WalkCount)
	assert.Equal(t, 28, f.s.Members[0].TotalWalkDuration)
	assert.Equal(t, 0, f.s.Members[1].WalkCount)
	assert.Equal(t, 0, f.s.Members[1].TotalWalkDuration)

	completed := ofType(f.s.Notifications, model.NotifWalkCompleted)
	require.Len(t, completed, 1)
	assert.False(t, completed[0].Read)
	assert.Equal(t, "Alice completed a 28 minute walk with Rex", completed[0].Message)

	// first completion makes Alice both the champion and the longest walker
	assert.Len(t, ofType(res.Notifications, model.NotifAchievement), 2)

	kinds := map[persist.Kind]int{}
	for _, e := range res.Effects {
		kinds[e.Kind]++
		assert.Equal(t, f.s.HouseholdID, e.HouseholdID)
	}
	assert.Equal(t, 1, kinds[persist.KindUpsertWalk])
	assert.Equal(t, 1, kinds[persist.KindUpsertMember])
	assert.Equal(t, 3, kinds[persist.KindInsertNotification])
}

func TestBobSwapsWithAlice(t *testing.T) {
	f := smiths(t)
	evening := f.s.Walks[1]
	alice, bob := f.member("Alice"), f.member("Bob")
	require.Equal(t, bob, evening.AssignedTo)

	f.as("Bob")
	res := f.apply(RequestSwap{WalkID: evening.ID})
	assert.Equal(t, model.WalkSwapRequested, f.walk(evening.ID).Status)
	assert.Equal(t, bob, f.walk(evening.ID).SwapRequestedBy)
	requestID := res.Subject

	f.as("Alice")
	res = f.apply(AcceptSwap{NotificationID: requestID})
	created := ofType(res.Notifications, model.NotifSwapAccepted)
	require.Len(t, created, 1)
	assert.Equal(t, []string{created[0].ID}, res.Withheld)
	assert.Empty(t, res.Published())

	w := f.walk(evening.ID)
	assert.Equal(t, alice, w.AssignedTo)
	assert.Equal(t, model.WalkNotStarted, w.Status)
	assert.Empty(t, w.SwapRequestedBy)

	original := f.s.Notifications[f.s.NotificationIndex(requestID)]
	assert.True(t, original.Read)
	assert.Equal(t, alice, original.AcceptedBy)

	accepted := ofType(f.s.Notifications, model.NotifSwapAccepted)
	require.Len(t, accepted, 1)
	assert.Equal(t, bob, accepted[0].RecipientID)
	assert.False(t, accepted[0].Read)

	require.Len(t, res.Effects, 1)
	e := res.Effects[0]
	assert.Equal(t, persist.KindAcceptSwap, e.Kind)
	assert.Equal(t, requestID, e.RequestID)
	assert.Equal(t, alice, e.AcceptedBy)
}

func TestSwapHasOneWinner(t *testing.T) {
	f := smiths(t, "Carol")
	evening := f.s.Walks[1]

	f.as("Bob")
	requestID := f.apply(RequestSwap{WalkID: evening.ID}).Subject

	f.as("Alice")
	f.apply(AcceptSwap{NotificationID: requestID})

	f.as("Carol")
	err := f.reject(AcceptSwap{NotificationID: requestID})
	assert.ErrorIs(t, err, model.ErrAlreadyAccepted)
	assert.Equal(t, f.member("Alice"), f.walk(evening.ID).AssignedTo)
	assert.Len(t, ofType(f.s.Notifications, model.NotifSwapAccepted), 1)
}

func TestRequesterCannotAcceptOwnSwap(t *testing.T) {
	f := smiths(t)
	evening := f.s.Walks[1]

	f.as("Bob")
	requestID := f.apply(RequestSwap{WalkID: evening.ID}).Subject
	assert.ErrorIs(t, f.reject(AcceptSwap{NotificationID: requestID}), model.ErrSelfAcceptNotAllowed)

	f.as("Alice")
	f.apply(AcceptSwap{NotificationID: requestID})
	f.as("Bob")
	assert.ErrorIs(t, f.reject(AcceptSwap{NotificationID: requestID}), model.ErrSelfAcceptNotAllowed)
}

func TestAcceptUnknownNotification(t *testing.T) {
	f := smiths(t)
	assert.ErrorIs(t, f.reject(AcceptSwap{NotificationID: "nope"}), model.ErrNotFound)
}

func TestStartSomeoneElsesWalk(t *testing.T) {
	f := smiths(t)
	err := f.reject(StartWalk{WalkID: f.s.Walks[1].ID})
	assert.ErrorIs(t, err, model.ErrNotAuthorized)
	assert.ErrorIs(t, f.reject(StartWalk{WalkID: "missing"}), model.ErrNotFound)
}

func TestOnlyOneWalkInProgress(t *testing.T) {
	f := smiths(t)
	f.apply(StartWalk{WalkID: f.s.Walks[0].ID})
	// day 1 evening is Alice's too
	err := f.reject(StartWalk{WalkID: f.s.Walks[3].ID})
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestEndWithoutActiveWalk(t *testing.T) {
	f := smiths(t)
	assert.ErrorIs(t, f.reject(EndWalk{}), model.ErrNoActiveWalk)
}

func TestConfirmLocksWalk(t *testing.T) {
	f := smiths(t)
	id := f.s.Walks[0].ID
	f.apply(ConfirmWalk{WalkID: id})
	assert.Equal(t, model.WalkConfirmed, f.walk(id).Status)

	assert.ErrorIs(t, f.reject(RemoveWalk{WalkID: id}), model.ErrInvalidState)
	assert.ErrorIs(t, f.reject(RescheduleWalk{WalkID: id, Date: registeredAt}), model.ErrInvalidState)
	assert.ErrorIs(t, f.reject(ReassignWalk{WalkID: id, MemberID: f.member("Bob")}), model.ErrInvalidState)
	assert.ErrorIs(t, f.reject(RequestSwap{WalkID: id}), model.ErrInvalidState)

	// a confirmed walk can still be started and can ask for cover
	f.apply(RequestCover{WalkID: id})
	f.apply(StartWalk{WalkID: id})
}

func TestCoverRequestIsInformational(t *testing.T) {
	f := smiths(t)
	w := f.s.Walks[0]
	res := f.apply(RequestCover{WalkID: w.ID})
	assert.Equal(t, w, f.walk(w.ID))
	require.Len(t, res.Notifications, 1)
	assert.Equal(t, model.NotifCoverRequest, res.Notifications[0].Type)

	assert.ErrorIs(t, f.reject(AcceptSwap{NotificationID: res.Subject}), model.ErrNotFound)
}

func TestMarkAllReadIdempotent(t *testing.T) {
	f := smiths(t)
	f.apply(RequestCover{WalkID: f.s.Walks[0].ID})

	res := f.apply(MarkAllRead{})
	require.Len(t, res.Effects, 1)
	assert.Len(t, res.Effects[0].IDs, 2)
	for _, n := range f.s.Notifications {
		assert.True(t, n.Read)
	}

	res = f.apply(MarkAllRead{})
	assert.Empty(t, res.Effects)
}

func TestMarkRead(t *testing.T) {
	f := smiths(t)
	id := f.s.Notifications[0].ID
	f.apply(MarkRead{NotificationID: id})
	assert.True(t, f.s.Notifications[0].Read)
	assert.ErrorIs(t, f.reject(MarkRead{NotificationID: "x"}), model.ErrNotFound)
}

func TestRemoveMemberReassignsWalks(t *testing.T) {
	f := smiths(t, "Carol")
	carol := f.member("Carol")
	alice := f.member("Alice")

	res := f.apply(RemoveMember{MemberID: carol})
	assert.Equal(t, alice, res.Subject)
	assert.Equal(t, -1, f.s.MemberIndex(carol))
	for _, w := range f.s.Walks {
		assert.GreaterOrEqual(t, f.s.MemberIndex(w.AssignedTo), 0, "walk %s has orphan assignee", w.ID)
	}

	assert.ErrorIs(t, f.reject(RemoveMember{MemberID: alice}), model.ErrNotAuthorized)
	assert.ErrorIs(t, f.reject(RemoveMember{MemberID: carol}), model.ErrNotFound)
}

func TestRemoveFirstMemberFallsBackToNext(t *testing.T) {
	f := smiths(t)
	alice := f.member("Alice")
	f.as("Bob")
	f.apply(RemoveMember{MemberID: alice})
	for _, w := range f.s.Walks {
		assert.Equal(t, f.member("Bob"), w.AssignedTo)
	}
}

func TestRemoveMemberMidWalk(t *testing.T) {
	f := smiths(t)
	morning := f.s.Walks[0]
	alice := f.member("Alice")
	bob := f.member("Bob")
	f.now = morning.Date
	f.apply(StartWalk{WalkID: morning.ID})

	f.as("Bob")
	res := f.apply(RemoveMember{MemberID: alice})

	w := f.walk(morning.ID)
	assert.Equal(t, bob, w.AssignedTo)
	assert.Equal(t, model.WalkNotStarted, w.Status)
	assert.Nil(t, w.StartTime)
	assert.Empty(t, f.s.CurrentWalkID)
	for _, e := range res.Effects {
		if e.Walk != nil && e.Walk.ID == morning.ID {
			assert.Equal(t, model.WalkNotStarted, e.Walk.Status)
		}
	}

	f.apply(StartWalk{WalkID: morning.ID})
	assert.Equal(t, morning.ID, f.s.CurrentWalkID)
}

func TestSwitchUserFollowsCurrentWalk(t *testing.T) {
	f := smiths(t)
	morning := f.s.Walks[0]
	f.apply(StartWalk{WalkID: morning.ID})

	f.as("Bob")
	assert.Empty(t, f.s.CurrentWalkID)
	f.as("Alice")
	assert.Equal(t, morning.ID, f.s.CurrentWalkID)

	assert.ErrorIs(t, f.reject(SwitchUser{MemberID: "ghost"}), model.ErrNotFound)
}

func TestAddMember(t *testing.T) {
	f := smiths(t)
	res := f.apply(AddMember{MemberName: "  Dana ", Email: "dana@example.com"})
	m := f.s.Members[f.s.MemberIndex(res.Subject)]
	assert.Equal(t, "Dana", m.Name)
	assert.Equal(t, model.RoleSecondary, m.Role)

	assert.ErrorIs(t, f.reject(AddMember{MemberName: ""}), model.ErrInvalidState)
	assert.ErrorIs(t, f.reject(AddMember{MemberName: "Eve", Role: "Boss"}), model.ErrInvalidState)
}

func TestUpdateDog(t *testing.T) {
	f := smiths(t)
	f.apply(UpdateDog{Dog: model.Dog{Name: "Rex", Breed: "Beagle", Age: 5, EnergyLevel: model.EnergyMedium, SpecialNeeds: "hip"}})
	assert.Equal(t, 5, f.s.Dog.Age)
	assert.ErrorIs(t, f.reject(UpdateDog{Dog: model.Dog{Name: "Rex", EnergyLevel: "Hyper"}}), model.ErrInvalidState)
}

func TestScheduleEditor(t *testing.T) {
	f := smiths(t)
	day := registeredAt.AddDate(0, 0, 20)

	res := f.apply(AddWalk{Draft: schedule.Draft{Date: schedule.AtDefaultTime(day)}})
	w := f.walk(res.Subject)
	assert.Equal(t, f.member("Alice"), w.AssignedTo)
	assert.Equal(t, 12, w.Date.Hour())
	assert.Len(t, f.s.Walks, 29)

	later := w.Date.Add(2 * time.Hour)
	f.apply(RescheduleWalk{WalkID: w.ID, Date: later})
	assert.True(t, f.walk(w.ID).Date.Equal(later))

	f.apply(ReassignWalk{WalkID: w.ID, MemberID: f.member("Bob")})
	assert.Equal(t, f.member("Bob"), f.walk(w.ID).AssignedTo)

	f.apply(RemoveWalk{WalkID: w.ID})
	assert.Equal(t, -1, f.s.WalkIndex(w.ID))

	assert.ErrorIs(t, f.reject(ReassignWalk{WalkID: f.s.Walks[0].ID, MemberID: "ghost"}), model.ErrNotFound)
	assert.ErrorIs(t, f.reject(AddWalk{Draft: schedule.Draft{Date: day, AssignedTo: "ghost"}}), model.ErrNotFound)
}

func TestGrantAchievement(t *testing.T) {
	f := smiths(t)
	bob := f.member("Bob")
	res := f.apply(GrantAchievement{MemberID: bob, Label: "Rain Walker"})
	require.Len(t, res.Notifications, 1)
	assert.Equal(t, model.NotifAchievement, res.Notifications[0].Type)
	assert.Equal(t, []string{"Rain Walker"}, f.s.Members[1].Achievements)

	res = f.apply(GrantAchievement{MemberID: bob, Label: "Rain Walker"})
	assert.Empty(t, res.Notifications)
}

func TestCheckRemindersOncePerWalk(t *testing.T) {
	f := smiths(t)
	morning := f.s.Walks[0]
	f.now = morning.Date.Add(-10 * time.Minute)

	res := f.apply(CheckReminders{Lead: 30 * time.Minute, Grace: 2 * time.Hour})
	require.Len(t, res.Notifications, 1)
	assert.Equal(t, model.NotifWalkReminder, res.Notifications[0].Type)
	assert.Equal(t, morning.ID, res.Notifications[0].RelatedID)

	res = f.apply(CheckReminders{Lead: 30 * time.Minute, Grace: 2 * time.Hour})
	assert.Empty(t, res.Notifications)

	f.now = morning.Date.Add(3 * time.Hour)
	res = f.apply(CheckReminders{Lead: 30 * time.Minute, Grace: 2 * time.Hour})
	missed := ofType(res.Notifications, model.NotifWalkMissed)
	require.Len(t, missed, 1)
	assert.Equal(t, model.WalkNotStarted, f.walk(morning.ID).Status)
}

func TestReceiveNotificationSyncsSwap(t *testing.T) {
	f := smiths(t)
	evening := f.s.Walks[1]
	alice, bob := f.member("Alice"), f.member("Bob")

	req := model.Notification{ID: "remote-1", Type: model.NotifSwapRequest, Time: registeredAt, RelatedID: evening.ID, CreatedBy: bob}
	res := f.apply(ReceiveNotification{Notification: req})
	assert.Empty(t, res.Effects)
	assert.Equal(t, model.WalkSwapRequested, f.walk(evening.ID).Status)

	// a replay is ignored
	res = f.apply(ReceiveNotification{Notification: req})
	assert.Empty(t, res.Subject)
	assert.Len(t, ofType(f.s.Notifications, model.NotifSwapRequest), 1)

	acc := model.Notification{ID: "remote-2", Type: model.NotifSwapAccepted, Time: registeredAt, RelatedID: evening.ID, CreatedBy: alice, RecipientID: bob}
	f.apply(ReceiveNotification{Notification: acc})
	assert.Equal(t, alice, f.walk(evening.ID).AssignedTo)
	assert.Equal(t, model.WalkNotStarted, f.walk(evening.ID).Status)
	assert.Equal(t, alice, f.s.Notifications[f.s.NotificationIndex("remote-1")].AcceptedBy)
}

func TestSwapConflictReconciles(t *testing.T) {
	f := smiths(t, "Carol")
	evening := f.s.Walks[1]
	carol := f.member("Carol")

	f.as("Bob")
	requestID := f.apply(RequestSwap{WalkID: evening.ID}).Subject
	f.as("Alice")
	res := f.apply(AcceptSwap{NotificationID: requestID})
	acceptedID := res.Effects[0].Notification.ID

	stored := evening
	stored.AssignedTo = carol
	res = f.apply(SwapConflict{RequestID: requestID, AcceptedID: acceptedID, Winner: carol, Walk: &stored})

	assert.Equal(t, carol, f.walk(evening.ID).AssignedTo)
	assert.Equal(t, carol, f.s.Notifications[f.s.NotificationIndex(requestID)].AcceptedBy)
	assert.Equal(t, -1, f.s.NotificationIndex(acceptedID))
	require.Len(t, res.Notifications, 1)
	assert.Equal(t, "Carol accepted this walk swap first.", res.Notifications[0].Message)
	assert.Equal(t, f.member("Alice"), res.Notifications[0].RecipientID)
	assert.Empty(t, res.Published(), "conflict notice stays with the losing session")
}

func TestDurationInvariantHoldsThroughout(t *testing.T) {
	f := smiths(t)
	check := func() {
		for _, w := range f.s.Walks {
			assert.Equal(t, w.Status == model.WalkCompleted, w.Duration != nil, "walk %s", w.ID)
			assert.Equal(t, w.Status == model.WalkSwapRequested, w.SwapRequestedBy != "", "walk %s", w.ID)
		}
	}
	f.apply(StartWalk{WalkID: f.s.Walks[0].ID})
	check()
	f.now = f.now.Add(20 * time.Minute)
	f.apply(EndWalk{})
	check()
	f.as("Bob")
	f.apply(RequestSwap{WalkID: f.s.Walks[1].ID})
	check()
}
