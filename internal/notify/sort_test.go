package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rkalmar/fleetmate/internal/model"
)

func TestSortByPriority(t *testing.T) {
	input := []model.Notification{
		{ID: "a", Type: model.NotificationInfo, Read: true},
		{ID: "b", Type: model.NotificationOverdue, Read: false},
		{ID: "c", Type: model.NotificationWarning, Read: true},
		{ID: "d", Type: model.NotificationInfo, Read: false},
	}

	got := Sort(input, model.SortByPriority)

	ids := make([]string, len(got))
	for i, n := range got {
		ids[i] = n.ID
	}
	assert.Equal(t, []string{"b", "c", "d", "a"}, ids,
		"overdue, then warning, then unread info, then read info")
}

func TestSortByPriorityIsStable(t *testing.T) {
	input := []model.Notification{
		{ID: "w1", Type: model.NotificationWarning},
		{ID: "w2", Type: model.NotificationWarning},
		{ID: "o1", Type: model.NotificationOverdue},
		{ID: "o2", Type: model.NotificationOverdue},
	}

	got := Sort(input, model.SortByPriority)

	assert.Equal(t, "o1", got[0].ID)
	assert.Equal(t, "o2", got[1].ID)
	assert.Equal(t, "w1", got[2].ID)
	assert.Equal(t, "w2", got[3].ID)
}

func TestSortByDateNewestFirst(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	input := []model.Notification{
		{ID: "old", CreatedAt: base},
		{ID: "new", CreatedAt: base.AddDate(0, 0, 10)},
		{ID: "mid", CreatedAt: base.AddDate(0, 0, 5)},
	}

	got := Sort(input, model.SortByDate)

	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "mid", got[1].ID)
	assert.Equal(t, "old", got[2].ID)
}

func TestSortByKmNilLast(t *testing.T) {
	km := func(v int) *int { return &v }
	input := []model.Notification{
		{ID: "none"},
		{ID: "far", KmToNextService: km(5000)},
		{ID: "overdue", KmToNextService: km(-200)},
		{ID: "near", KmToNextService: km(300)},
	}

	got := Sort(input, model.SortByKm)

	assert.Equal(t, "overdue", got[0].ID)
	assert.Equal(t, "near", got[1].ID)
	assert.Equal(t, "far", got[2].ID)
	assert.Equal(t, "none", got[3].ID, "records without a distance sort last")
}

func TestSortByCarLexicographic(t *testing.T) {
	input := []model.Notification{
		{ID: "v", CarDetails: "Volvo FH"},
		{ID: "d", CarDetails: "DAF XF"},
		{ID: "m", CarDetails: "MAN TGX"},
	}

	got := Sort(input, model.SortByCar)

	assert.Equal(t, "d", got[0].ID)
	assert.Equal(t, "m", got[1].ID)
	assert.Equal(t, "v", got[2].ID)
}

func TestSortDoesNotMutateInput(t *testing.T) {
	input := []model.Notification{
		{ID: "b", Type: model.NotificationInfo},
		{ID: "a", Type: model.NotificationOverdue},
	}

	Sort(input, model.SortByPriority)

	assert.Equal(t, "b", input[0].ID)
	assert.Equal(t, "a", input[1].ID)
}

func TestSortUnknownKeyKeepsOrder(t *testing.T) {
	input := []model.Notification{{ID: "x"}, {ID: "y"}}
	got := Sort(input, "bogus")
	assert.Equal(t, input, got)
}
