package lifecycle

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Intent distinguishes creating a session from joining one. Both take the same path.
type Intent int

const (
	Create Intent = iota
	Join
)

func (i Intent) String() string {
	if i == Create {
		return "create"
	}

	return "join"
}

func ParseIntent(s string) (Intent, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "create":
		return Create, nil
	case "join":
		return Join, nil
	default:
		return Join, ErrUnknownIntent
	}
}

var (
	ErrUnknownIntent = errors.New("unknown connect intent")
	errBlank         = validation.NewError("validation_blank", "cannot be blank")
)

var notBlank = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errBlank
	}

	return nil
})

// NameRule only requires a name; longer names are truncated for display.
var NameRule = []validation.Rule{
	notBlank,
}

var RoomRule = []validation.Rule{
	notBlank,
	validation.Match(regexp.MustCompile(`^\s*[a-zA-Z0-9_.-]{1,64}\s*$`)),
}

// Request is what the connection form submits.
type Request struct {
	Name   string
	Room   string
	Intent Intent
}

func (r Request) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, NameRule...),
		validation.Field(&r.Room, RoomRule...),
	)
}

// Normalized returns the request with surrounding whitespace removed.
func (r Request) Normalized() Request {
	r.Name = strings.TrimSpace(r.Name)
	r.Room = strings.TrimSpace(r.Room)
	return r
}

// CanProceed reports whether the create and join buttons should be enabled.
func CanProceed(name, room string) bool {
	return Request{Name: name, Room: room}.Validate() == nil
}
