package notify

import (
	"sort"

	"github.com/rkalmar/fleetmate/internal/model"
)

// Sort orders a copy of the given notifications by the requested key and
// returns it. It operates purely on the slice it is given and never
// triggers a re-fetch; ties keep their original order.
func Sort(notifications []model.Notification, sortBy string) []model.Notification {
	out := copyNotifications(notifications)

	switch sortBy {
	case model.SortByPriority:
		sort.SliceStable(out, func(i, j int) bool {
			return priorityRank(out[i]) < priorityRank(out[j])
		})
	case model.SortByDate:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	case model.SortByKm:
		sort.SliceStable(out, func(i, j int) bool {
			return kmLess(out[i], out[j])
		})
	case model.SortByCar:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CarDetails < out[j].CarDetails
		})
	}

	return out
}

// priorityRank orders overdue first, then warnings, then anything still
// unread, then the rest.
func priorityRank(n model.Notification) int {
	switch {
	case n.Type == model.NotificationOverdue:
		return 0
	case n.Type == model.NotificationWarning:
		return 1
	case !n.Read:
		return 2
	default:
		return 3
	}
}

// kmLess orders by remaining distance ascending, records without a
// distance last.
func kmLess(a, b model.Notification) bool {
	switch {
	case a.KmToNextService == nil:
		return false
	case b.KmToNextService == nil:
		return true
	default:
		return *a.KmToNextService < *b.KmToNextService
	}
}
