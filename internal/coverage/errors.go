package coverage

import "github.com/rotisserie/eris"

// Sentinel errors returned by the engine. Callers match them with eris.Is or
// errors.Is; the wrapped message carries the offending value.
var (
	ErrInvalidParameter = eris.New("invalid parameter")
	ErrNotFound         = eris.New("not found")
	ErrNoInfrastructure = eris.New("no infrastructure available")
)

func invalidf(format string, args ...any) error {
	return eris.Wrapf(ErrInvalidParameter, format, args...)
}
