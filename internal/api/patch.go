package api

import (
	"bytes"
	"encoding/json"
	"sort"

	"daily-planner/internal/model"
	"daily-planner/internal/timeutil"
)

// DecodePatch turns a partial update body into typed updates. Fields may be
// title, status, dueDate (string or null) and position. Unknown fields and
// wrongly typed values are validation errors.
func DecodePatch(body []byte) ([]model.Update, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, model.Invalid("", "body must be a JSON object")
	}
	if len(fields) == 0 {
		return nil, model.Invalid("", "no fields to update")
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	updates := make([]model.Update, 0, len(fields))
	for _, name := range names {
		raw := fields[name]
		isNull := bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
		if isNull && name != "dueDate" {
			return nil, model.Invalid(name, "must not be null")
		}
		switch name {
		case "title":
			var title string
			if err := json.Unmarshal(raw, &title); err != nil {
				return nil, model.Invalid("title", "must be a string")
			}
			updates = append(updates, model.Rename{Title: title})
		case "status":
			var status string
			if err := json.Unmarshal(raw, &status); err != nil {
				return nil, model.Invalid("status", "must be a string")
			}
			updates = append(updates, model.SetStatus{Status: model.Status(status)})
		case "dueDate":
			if isNull {
				updates = append(updates, model.Reschedule{DueDate: nil})
				continue
			}
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, model.Invalid("dueDate", "must be a date string or null")
			}
			due, err := timeutil.ParseDueDate(s)
			if err != nil {
				return nil, err
			}
			updates = append(updates, model.Reschedule{DueDate: &due})
		case "position":
			var pos int
			if err := json.Unmarshal(raw, &pos); err != nil {
				return nil, model.Invalid("position", "must be an integer")
			}
			updates = append(updates, model.Reposition{Position: pos})
		default:
			return nil, model.Invalid(name, "unknown field")
		}
	}

	for _, u := range updates {
		if err := u.Validate(); err != nil {
			return nil, err
		}
	}
	return updates, nil
}

// EncodePatch is the inverse of DecodePatch, used by clients.
func EncodePatch(updates []model.Update) ([]byte, error) {
	body := make(map[string]any, len(updates))
	for _, u := range updates {
		switch u := u.(type) {
		case model.Rename:
			body["title"] = u.Title
		case model.SetStatus:
			body["status"] = u.Status
		case model.Reschedule:
			if u.DueDate == nil {
				body["dueDate"] = nil
			} else {
				body["dueDate"] = timeutil.FormatDate(*u.DueDate)
			}
		case model.Reposition:
			body["position"] = u.Position
		}
	}
	return json.Marshal(body)
}
