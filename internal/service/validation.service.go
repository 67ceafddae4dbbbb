package service

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sharetube/watchparty/internal/roster"
)

var SessionRule = []validation.Rule{
	validation.Required,
	validation.Match(regexp.MustCompile("^[a-zA-Z0-9_.-]{1,64}$")),
}

var NameRule = []validation.Rule{
	validation.Required,
	validation.RuneLength(1, roster.MaxNameLength),
}

var PositionRule = []validation.Rule{
	validation.Min(0.0),
}
