package roster

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxNameLength is the longest display name a participant can carry, in runes.
const MaxNameLength = 16

// ParticipantID is the stable per-session identity assigned by the session substrate.
// Valid ids are positive.
type ParticipantID int

const NoParticipant ParticipantID = 0

type Metadata struct {
	Name       string
	IsLocal    bool
	MicEnabled bool
	IsSpeaking bool
}

type Participant struct {
	ID ParticipantID
	Metadata
}

// DisplayName falls back to a generated name while the real one has not arrived yet.
func (p Participant) DisplayName() string {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Sprintf("Player %d", p.ID)
	}

	return p.Name
}

func (p Participant) Label() string {
	if p.IsLocal {
		return p.DisplayName() + " (You)"
	}

	return p.DisplayName()
}

func (p Participant) Initial() string {
	r, _ := utf8.DecodeRuneInString(p.Label())
	if r == utf8.RuneError {
		return ""
	}

	return string(unicode.ToUpper(r))
}

// TruncateName cuts name to MaxNameLength runes.
func TruncateName(name string) string {
	if utf8.RuneCountInString(name) <= MaxNameLength {
		return name
	}

	return string([]rune(name)[:MaxNameLength])
}

// AvatarColor returns a dark pale color seeded by id, so every peer paints the
// same participant in the same color.
func AvatarColor(id ParticipantID) string {
	rnd := rand.New(rand.NewSource(int64(id)))
	hue := rnd.Float64()
	saturation := 0.4 + 0.3*rnd.Float64()
	value := 0.45 + 0.25*rnd.Float64()

	r, g, b := hsvToRGB(hue, saturation, value)
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

func hsvToRGB(h, s, v float64) (uint8, uint8, uint8) {
	h = math.Mod(h, 1) * 6
	i := math.Floor(h)
	f := h - i
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	var r, g, b float64
	switch int(i) {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}

	return toByte(r), toByte(g), toByte(b)
}

func toByte(c float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, c)) * 255))
}
