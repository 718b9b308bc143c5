package ytmusic

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSource marks a raw string that is neither a recognized
	// catalog URL nor a bare catalog id.
	ErrInvalidSource = errors.New("invalid source")

	// ErrSourceTypeMismatch marks a source whose resolved type differs
	// from the type the caller required.
	ErrSourceTypeMismatch = errors.New("source type mismatch")

	// ErrSongNotFound marks a title-match miss against an album song list.
	ErrSongNotFound = errors.New("song not found in album")
)

// MalformedRecordError reports a catalog record that is missing a required
// field. It carries whatever identifying context the record did contain so
// the offending item can be logged and skipped.
type MalformedRecordError struct {
	Field string
	Title string
	ID    string
}

func (e *MalformedRecordError) Error() string {
	subject := "record"
	switch {
	case e.Title != "" && e.ID != "":
		subject = fmt.Sprintf("record '%s' (%s)", e.Title, e.ID)
	case e.Title != "":
		subject = fmt.Sprintf("record '%s'", e.Title)
	case e.ID != "":
		subject = fmt.Sprintf("record (%s)", e.ID)
	}
	return fmt.Sprintf("malformed catalog %s: missing or invalid field %q", subject, e.Field)
}
