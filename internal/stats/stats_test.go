package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/pawtrack/internal/model"
)

func roster() []model.Member {
	return []model.Member{
		{ID: "alice", Name: "Alice", Role: model.RolePrimary},
		{ID: "bob", Name: "Bob", Role: model.RoleSecondary, WalkCount: 2, TotalWalkDuration: 50},
	}
}

func completed(id, who string, d int) model.Walk {
	return model.Walk{ID: id, AssignedTo: who, Status: model.WalkCompleted, Duration: &d}
}

func TestRecordCompletionOnlyTouchesCompleter(t *testing.T) {
	before := roster()
	after, err := RecordCompletion(before, "alice", 31)
	require.NoError(t, err)

	assert.Equal(t, 1, after[0].WalkCount)
	assert.Equal(t, 31, after[0].TotalWalkDuration)
	assert.Equal(t, before[1], after[1])
	assert.Equal(t, 0, before[0].WalkCount, "input must not be mutated")

	_, err = RecordCompletion(before, "nobody", 5)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestWalkChampion(t *testing.T) {
	b := WalkChampion(roster())
	assert.Equal(t, "bob", b.MemberID)
	assert.Equal(t, 2, b.Value)

	tied := roster()
	tied[0].WalkCount = 2
	assert.Equal(t, "alice", WalkChampion(tied).MemberID)

	assert.Empty(t, WalkChampion([]model.Member{{ID: "x"}}).MemberID)
}

func TestLongestWalkIndependentOfChampion(t *testing.T) {
	walks := []model.Walk{
		completed("w1", "bob", 20),
		completed("w2", "alice", 45),
		completed("w3", "bob", 45),
		{ID: "w4", AssignedTo: "bob", Status: model.WalkNotStarted},
	}
	b := LongestWalk(roster(), walks)
	assert.Equal(t, "alice", b.MemberID)
	assert.Equal(t, "Alice", b.MemberName)
	assert.Equal(t, 45, b.Value)
	assert.Equal(t, "bob", WalkChampion(roster()).MemberID)
}

func TestChanged(t *testing.T) {
	before := []Badge{{Title: BadgeWalkChampion, MemberID: "bob"}, {Title: BadgeLongestWalk}}
	after := []Badge{{Title: BadgeWalkChampion, MemberID: "bob"}, {Title: BadgeLongestWalk, MemberID: "alice"}}
	got := Changed(before, after)
	require.Len(t, got, 1)
	assert.Equal(t, BadgeLongestWalk, got[0].Title)
}

func TestGrantIsIdempotent(t *testing.T) {
	m, added, err := Grant(roster(), "alice", "Early Bird")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, []string{"Early Bird"}, m[0].Achievements)

	m2, added, err := Grant(m, "alice", "Early Bird")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, m, m2)

	_, _, err = Grant(m, "zed", "Early Bird")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestManualBadgesNotConflatedWithDerived(t *testing.T) {
	m, _, _ := Grant(roster(), "alice", BadgeWalkChampion)
	assert.Equal(t, "bob", WalkChampion(m).MemberID)
}

func TestSummarize(t *testing.T) {
	walks := []model.Walk{
		{ID: "w1", AssignedTo: "bob", Status: model.WalkNotStarted},
		{ID: "w2", AssignedTo: "bob", Status: model.WalkSwapRequested, SwapRequestedBy: "bob"},
	}
	s := Summarize(roster(), walks)
	require.Len(t, s, 2)
	assert.Equal(t, 25, s[1].AverageMinutes)
	assert.Equal(t, 1, s[1].UpcomingWalks)
	assert.Equal(t, 1, s[1].SwapRequestsOut)
	assert.Equal(t, 0, s[0].AverageMinutes)
}
