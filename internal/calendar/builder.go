package calendar

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/krscode/mail-monit/internal/email"
)

// DefaultURL is the informational URL stamped on every generated event.
const DefaultURL = "https://krscode.com"

// DefaultProductID is the PRODID of generated calendars.
const DefaultProductID = "-//krscode//mail-monit//EN"

// eventPropertyMethod carries METHOD on the VEVENT for legacy readers.
const eventPropertyMethod = ics.ComponentProperty("METHOD")

// timestampLayout is the UTC basic format used for DTSTAMP.
const timestampLayout = "20060102T150405Z"

// IOError reports a failure persisting or re-reading a calendar file.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("calendar file %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Builder renders EventPayloads into .ics files under a fixed directory and
// returns them as mail attachments.
type Builder struct {
	dir       string
	url       string
	productID string
	now       func() time.Time
	logger    *zap.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock overrides the time source used for DTSTAMP.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithURL overrides the URL property of generated events.
func WithURL(url string) Option {
	return func(b *Builder) { b.url = url }
}

// WithProductID overrides the PRODID of generated calendars.
func WithProductID(id string) Option {
	return func(b *Builder) { b.productID = id }
}

// WithLogger sets the logger used to record written files.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder creates a Builder that persists calendar files in dir.
func NewBuilder(dir string, opts ...Option) *Builder {
	b := &Builder{
		dir:       dir,
		url:       DefaultURL,
		productID: DefaultProductID,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Dir returns the directory calendar files are written to.
func (b *Builder) Dir() string {
	return b.dir
}

// Build renders ev as a single-event calendar with subject as its summary,
// writes it to {dir}/{ev.ID}.ics, reads it back and returns the base64
// encoded content as an attachment.
func (b *Builder) Build(ev EventPayload, subject string) (email.Attachment, error) {
	filename := ev.ID + ".ics"
	path := filepath.Join(b.dir, filename)

	if ev.ID == "" || ev.ID == "." || ev.ID == ".." || filepath.Base(filename) != filename {
		return email.Attachment{}, &IOError{Path: path, Err: fmt.Errorf("invalid event id %q", ev.ID)}
	}

	text := b.Render(ev, subject)

	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return email.Attachment{}, &IOError{Path: path, Err: err}
	}

	stored, err := os.ReadFile(path)
	if err != nil {
		return email.Attachment{}, &IOError{Path: path, Err: err}
	}

	b.logger.Debug("calendar file written",
		zap.String("event_id", ev.ID),
		zap.String("path", path),
		zap.Int("bytes", len(stored)),
	)

	return email.Attachment{
		Filename:    filename,
		Content:     base64.StdEncoding.EncodeToString(stored),
		Type:        email.TypeCalendar,
		Disposition: email.DispositionAttachment,
	}, nil
}

// Render serializes ev into calendar text without touching the filesystem.
//
// METHOD is written on the VCALENDAR, where iCalendar defines it, and is
// repeated on the VEVENT because files produced by the legacy sender carried
// it there and downstream readers may still look for it. Text values such as
// SUMMARY and DESCRIPTION are escaped and folded per RFC 5545.
func (b *Builder) Render(ev EventPayload, subject string) string {
	cal := ics.NewCalendar()
	cal.SetProductId(b.productID)
	cal.SetMethod(ics.Method(ev.Method))

	event := cal.AddEvent(ev.ID)
	event.SetProperty(ics.ComponentPropertyDtstamp, b.now().UTC().Format(timestampLayout))
	event.SetProperty(ics.ComponentPropertySummary, subject)
	event.SetProperty(ics.ComponentPropertyDescription, ev.Description)
	event.SetProperty(ics.ComponentPropertyOrganizer, ev.Organizer)
	event.SetProperty(ics.ComponentPropertyAttendee, ev.Attendee)
	event.SetProperty(ics.ComponentPropertySequence, strconv.Itoa(ev.Sequence))
	event.SetProperty(ics.ComponentPropertyDtStart, ev.StartDate)
	event.SetProperty(ics.ComponentPropertyDtEnd, ev.EndDate)
	event.SetProperty(ics.ComponentPropertyStatus, ev.Status)
	event.SetProperty(ics.ComponentPropertyUrl, b.url)
	event.SetProperty(eventPropertyMethod, ev.Method)

	return cal.Serialize()
}
