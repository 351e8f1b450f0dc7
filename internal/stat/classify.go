package stat

// Kind is the inferred type of a cell value.
type Kind int

const (
	Text Kind = iota
	Integer
	Float
)

func (k Kind) String() string {
	switch k {
	case Integer:
		return "integer"
	case Float:
		return "float"
	default:
		return "text"
	}
}

// Classify reports whether s is an unsigned decimal integer, an unsigned
// decimal with a single point, or anything else. Signs, exponents and
// thousands separators make a value Text.
func Classify(s string) Kind {
	if s == "" {
		return Text
	}
	digits, points := 0, 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			points++
			if points > 1 {
				return Text
			}
		default:
			return Text
		}
	}
	if digits == 0 {
		return Text
	}
	if points == 0 {
		return Integer
	}
	return Float
}
