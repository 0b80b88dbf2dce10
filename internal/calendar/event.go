// Package calendar renders event descriptions into .ics calendar files and
// packages them as base64 mail attachments.
package calendar

import (
	"encoding/json"
	"fmt"
)

// EventPayload is the event description carried in the content of an event
// mail. Organizer, Attendee and Sequence are optional.
type EventPayload struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Organizer   string `json:"organizer"`
	Attendee    string `json:"attendee"`
	Sequence    int    `json:"sequence"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Status      string `json:"status"`
	Method      string `json:"method"`
}

// MalformedEventError reports event content that does not decode into an
// EventPayload.
type MalformedEventError struct {
	// Field is the missing required field, empty when the JSON itself is invalid.
	Field string
	Err   error
}

func (e *MalformedEventError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("malformed event: missing required field %q", e.Field)
	}
	return fmt.Sprintf("malformed event: %v", e.Err)
}

func (e *MalformedEventError) Unwrap() error {
	return e.Err
}

// wireEvent tracks presence of the required keys.
type wireEvent struct {
	ID          *string `json:"id"`
	Description *string `json:"description"`
	Organizer   string  `json:"organizer"`
	Attendee    string  `json:"attendee"`
	Sequence    int     `json:"sequence"`
	StartDate   *string `json:"startDate"`
	EndDate     *string `json:"endDate"`
	Status      *string `json:"status"`
	Method      *string `json:"method"`
}

// ParseEvent decodes the JSON content of an event mail. Unknown keys are
// ignored; a missing or null required key is a MalformedEventError.
func ParseEvent(content string) (EventPayload, error) {
	var w wireEvent
	if err := json.Unmarshal([]byte(content), &w); err != nil {
		return EventPayload{}, &MalformedEventError{Err: err}
	}

	required := []struct {
		name  string
		value *string
	}{
		{"id", w.ID},
		{"description", w.Description},
		{"startDate", w.StartDate},
		{"endDate", w.EndDate},
		{"status", w.Status},
		{"method", w.Method},
	}
	for _, f := range required {
		if f.value == nil {
			return EventPayload{}, &MalformedEventError{Field: f.name}
		}
	}

	return EventPayload{
		ID:          *w.ID,
		Description: *w.Description,
		Organizer:   w.Organizer,
		Attendee:    w.Attendee,
		Sequence:    w.Sequence,
		StartDate:   *w.StartDate,
		EndDate:     *w.EndDate,
		Status:      *w.Status,
		Method:      *w.Method,
	}, nil
}
