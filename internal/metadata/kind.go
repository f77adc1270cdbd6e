package metadata

import (
	"strings"

	"go.yaml.in/yaml/v3"
)

// Kind is the closed set of association kinds the ERD core understands.
type Kind int

const (
	KindUnknown Kind = iota
	BelongsTo
	HasMany
	HasOne
	ManyToMany
)

var kindNames = map[Kind]string{
	BelongsTo:  "belongs_to",
	HasMany:    "has_many",
	HasOne:     "has_one",
	ManyToMany: "has_and_belongs_to_many",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKind maps a macro name to a Kind. Unrecognised names yield KindUnknown.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "belongs_to":
		return BelongsTo
	case "has_many":
		return HasMany
	case "has_one":
		return HasOne
	case "has_and_belongs_to_many", "habtm", "many_to_many":
		return ManyToMany
	default:
		return KindUnknown
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	*k = ParseKind(string(b))
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (k *Kind) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	*k = ParseKind(s)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (k Kind) MarshalYAML() (any, error) {
	return k.String(), nil
}
