package syntax

import (
	"errors"
	"regexp"
)

var logicalNameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// String type which represents a syntactically valid entity set name: the plural, addressable collection name for a table (eg, "contacts").
//
// Always use [ParseEntitySet] instead of wrapping strings directly, especially when working with input.
type EntitySet string

func ParseEntitySet(raw string) (EntitySet, error) {
	if raw == "" {
		return "", errors.New("expected entity set name, got empty string")
	}
	if len(raw) > 128 {
		return "", errors.New("entity set name is too long (128 chars max)")
	}
	if !logicalNameRegex.MatchString(raw) {
		return "", errors.New("entity set name syntax didn't validate via regex")
	}
	return EntitySet(raw), nil
}

func (s EntitySet) String() string {
	return string(s)
}

func (s EntitySet) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *EntitySet) UnmarshalText(text []byte) error {
	set, err := ParseEntitySet(string(text))
	if err != nil {
		return err
	}
	*s = set
	return nil
}

// Logical name of a column (attribute) or relationship, as used in path segments after a record (eg, "fullname", "contact_customer_accounts").
type LogicalName string

func ParseLogicalName(raw string) (LogicalName, error) {
	if raw == "" {
		return "", errors.New("expected logical name, got empty string")
	}
	if len(raw) > 128 {
		return "", errors.New("logical name is too long (128 chars max)")
	}
	if !logicalNameRegex.MatchString(raw) {
		return "", errors.New("logical name syntax didn't validate via regex")
	}
	return LogicalName(raw), nil
}

func (n LogicalName) String() string {
	return string(n)
}

func (n LogicalName) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

func (n *LogicalName) UnmarshalText(text []byte) error {
	name, err := ParseLogicalName(string(text))
	if err != nil {
		return err
	}
	*n = name
	return nil
}
