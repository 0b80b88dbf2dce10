package calendar

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullEvent = `{"id":"r1-r2-r3","description":"test_desc","organizer":"raja","attendee":"krs@krscode.com","sequence":2,"startDate":"20201020T161500Z","endDate":"20201020T163000Z","status":"CONFIRMED","method":"REQUEST"}`

func TestParseEvent_AllFields(t *testing.T) {
	t.Parallel()

	ev, err := ParseEvent(fullEvent)
	require.NoError(t, err)

	assert.Equal(t, EventPayload{
		ID:          "r1-r2-r3",
		Description: "test_desc",
		Organizer:   "raja",
		Attendee:    "krs@krscode.com",
		Sequence:    2,
		StartDate:   "20201020T161500Z",
		EndDate:     "20201020T163000Z",
		Status:      "CONFIRMED",
		Method:      "REQUEST",
	}, ev)
}

func TestParseEvent_OptionalFieldsDefault(t *testing.T) {
	t.Parallel()

	ev, err := ParseEvent(`{"id":"e1","description":"d","startDate":"s","endDate":"e","status":"CONFIRMED","method":"CONFIRMED"}`)
	require.NoError(t, err)

	assert.Equal(t, "", ev.Organizer)
	assert.Equal(t, "", ev.Attendee)
	assert.Equal(t, 0, ev.Sequence)
}

func TestParseEvent_IgnoresUnknownKeys(t *testing.T) {
	t.Parallel()

	ev, err := ParseEvent(`{"id":"e1","description":"d","startDate":"s","endDate":"e","status":"x","method":"y","location":"room 4"}`)
	require.NoError(t, err)
	assert.Equal(t, "e1", ev.ID)
}

func TestParseEvent_MissingRequiredField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"id", `{"description":"d","startDate":"s","endDate":"e","status":"x","method":"y"}`, "id"},
		{"description", `{"id":"1","startDate":"s","endDate":"e","status":"x","method":"y"}`, "description"},
		{"startDate", `{"id":"1","description":"d","endDate":"e","status":"x","method":"y"}`, "startDate"},
		{"endDate", `{"id":"1","description":"d","startDate":"s","status":"x","method":"y"}`, "endDate"},
		{"status", `{"id":"1","description":"d","startDate":"s","endDate":"e","method":"y"}`, "status"},
		{"method", `{"id":"1","description":"d","startDate":"s","endDate":"e","status":"x"}`, "method"},
		{"null id", `{"id":null,"description":"d","startDate":"s","endDate":"e","status":"x","method":"y"}`, "id"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseEvent(tt.content)

			var malformed *MalformedEventError
			require.True(t, errors.As(err, &malformed), "expected MalformedEventError, got %v", err)
			assert.Equal(t, tt.field, malformed.Field)
		})
	}
}

func TestParseEvent_InvalidJSON(t *testing.T) {
	t.Parallel()

	for _, content := range []string{"", "plain text body", `{"id":1}`, `[]`} {
		_, err := ParseEvent(content)

		var malformed *MalformedEventError
		assert.True(t, errors.As(err, &malformed), "content %q: expected MalformedEventError, got %v", content, err)
	}
}
