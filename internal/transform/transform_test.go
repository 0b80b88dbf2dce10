package transform

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krscode/mail-monit/internal/calendar"
	"github.com/krscode/mail-monit/internal/email"
	"github.com/krscode/mail-monit/internal/mail"
)

const eventContent = `{"id":"r1-r2-r3","description":"test_desc","organizer":"raja","startDate":"20201020T161500Z","endDate":"20201020T163000Z","status":"CONFIRMED","method":"CONFIRMED"}`

// failingBuilder is an ArtifactBuilder that always fails.
type failingBuilder struct {
	err error
}

func (f failingBuilder) Build(calendar.EventPayload, string) (email.Attachment, error) {
	return email.Attachment{}, f.err
}

func newTransformer(t *testing.T) *Transformer {
	t.Helper()
	clock := func() time.Time { return time.Date(2020, 10, 18, 19, 0, 0, 0, time.UTC) }
	return New(calendar.NewBuilder(t.TempDir(), calendar.WithClock(clock)))
}

func recipients() []mail.Recipient {
	return []mail.Recipient{
		{Address: "addr1@example.com", Role: mail.ParseRole("To")},
		{Address: "addr2@example.com", Role: mail.ParseRole("cc")},
		{Address: "addr3@example.com", Role: mail.ParseRole("BCC")},
	}
}

func TestTransform_PlainMail(t *testing.T) {
	t.Parallel()

	tr := newTransformer(t)

	out, err := tr.Transform(mail.UpstreamMail{
		ID:         "12-12-12",
		From:       "krs@krscode.com",
		Subject:    "Welcome",
		Content:    "<p>Hello</p>",
		Type:       mail.Plain,
		Recipients: recipients(),
	})
	require.NoError(t, err)

	assert.Equal(t, "krs@krscode.com", out.From)
	assert.Equal(t, "Welcome", out.Subject)
	assert.Equal(t, "<p>Hello</p>", out.Body)
	assert.Equal(t, []string{"addr1@example.com"}, out.To)
	assert.Equal(t, []string{"addr2@example.com"}, out.Cc)
	assert.Equal(t, []string{"addr3@example.com"}, out.Bcc)
	assert.Empty(t, out.Attachments)
}

func TestTransform_PlainMailContentIsNotParsed(t *testing.T) {
	t.Parallel()

	tr := New(failingBuilder{err: errors.New("must not be called")})

	out, err := tr.Transform(mail.UpstreamMail{
		ID:      "1",
		Content: eventContent,
		Type:    mail.Plain,
	})
	require.NoError(t, err)
	assert.Equal(t, eventContent, out.Body)
	assert.Empty(t, out.Attachments)
}

func TestTransform_EventMail(t *testing.T) {
	t.Parallel()

	tr := newTransformer(t)

	out, err := tr.Transform(mail.UpstreamMail{
		ID:         "12-12-12",
		From:       "krs@krscode.com",
		Subject:    "subject-1",
		Content:    eventContent,
		Type:       mail.Event,
		Recipients: recipients(),
	})
	require.NoError(t, err)

	assert.Equal(t, "subject-1", out.Subject)
	assert.Equal(t, "test_desc", out.Body)
	assert.Equal(t, []string{"addr1@example.com"}, out.To)

	require.Len(t, out.Attachments, 1)
	att := out.Attachments[0]
	assert.Equal(t, "r1-r2-r3.ics", att.Filename)
	assert.Equal(t, email.TypeCalendar, att.Type)
	assert.Equal(t, email.DispositionAttachment, att.Disposition)

	decoded, err := base64.StdEncoding.DecodeString(att.Content)
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "SUMMARY:subject-1")
	assert.Contains(t, string(decoded), "DESCRIPTION:test_desc")
}

func TestTransform_MalformedEvent(t *testing.T) {
	t.Parallel()

	tr := newTransformer(t)

	_, err := tr.Transform(mail.UpstreamMail{
		ID:      "bad-1",
		Subject: "s",
		Content: `{"id":"x","description":"d"}`,
		Type:    mail.Event,
	})

	var malformed *calendar.MalformedEventError
	require.True(t, errors.As(err, &malformed), "expected MalformedEventError, got %v", err)
	assert.Contains(t, err.Error(), "bad-1")
}

func TestTransform_ArtifactFailure(t *testing.T) {
	t.Parallel()

	ioErr := &calendar.IOError{Path: "/nope/x.ics", Err: errors.New("read-only file system")}
	tr := New(failingBuilder{err: ioErr})

	_, err := tr.Transform(mail.UpstreamMail{
		ID:      "m-1",
		Content: eventContent,
		Type:    mail.Event,
	})

	var got *calendar.IOError
	require.True(t, errors.As(err, &got))
	assert.Same(t, ioErr, got)
}

func TestTransform_Idempotent(t *testing.T) {
	t.Parallel()

	tr := newTransformer(t)
	m := mail.UpstreamMail{
		ID:         "12-12-12",
		From:       "krs@krscode.com",
		Subject:    "subject-1",
		Content:    eventContent,
		Type:       mail.Event,
		Recipients: recipients(),
	}

	first, err := tr.Transform(m)
	require.NoError(t, err)
	second, err := tr.Transform(m)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
