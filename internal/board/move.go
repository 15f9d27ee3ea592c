package board

import "daily-planner/internal/model"

// PlanMove moves the entry at from so that it ends up at index to, then numbers
// the whole list 1..N. The input slice is not modified. Out of range indexes are
// clamped.
func PlanMove(list []model.Task, from, to int) ([]model.Task, []model.PositionUpdate) {
	out := make([]model.Task, 0, len(list))
	if from < 0 || from >= len(list) {
		out = append(out, list...)
		return out, Renumber(out)
	}
	moved := list[from]
	for i := range list {
		if i != from {
			out = append(out, list[i])
		}
	}

	if to < 0 {
		to = 0
	}
	if to > len(out) {
		to = len(out)
	}
	out = append(out, model.Task{})
	copy(out[to+1:], out[to:])
	out[to] = moved

	return out, Renumber(out)
}

// Renumber assigns positions 1..N in list order and returns the matching
// reorder payload.
func Renumber(list []model.Task) []model.PositionUpdate {
	items := make([]model.PositionUpdate, 0, len(list))
	for i := range list {
		list[i].Position = i + 1
		items = append(items, model.PositionUpdate{ID: list[i].ID, Position: i + 1})
	}
	return items
}
