package syntax

import (
	"fmt"

	"github.com/google/uuid"
)

// Represents a record primary key (a GUID), in canonical lower-case hyphenated form.
//
// Always use [ParseRecordID] instead of wrapping strings directly, especially when working with input. Parsing accepts the braced and upper-case forms the platform sometimes returns in the 'entityid' header.
type RecordID string

func ParseRecordID(raw string) (RecordID, error) {
	if raw == "" {
		return "", fmt.Errorf("expected record ID, got empty string")
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("record ID is not a GUID: %w", err)
	}
	return RecordID(u.String()), nil
}

func (r RecordID) String() string {
	return string(r)
}

func (r RecordID) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *RecordID) UnmarshalText(text []byte) error {
	id, err := ParseRecordID(string(text))
	if err != nil {
		return err
	}
	*r = id
	return nil
}
