package seal

import (
	"fmt"
	"strings"

	"github.com/iotaledger/seals.go/dbc"
	"golang.org/x/xerrors"
)

// CloseMethod is the way the seal must be closed: the kind of the container and the rule locating it
// in the witness transaction
type CloseMethod byte

const (
	// OpretFirst closes over the first OP_RETURN output
	OpretFirst = CloseMethod(0x00)
	// TapretFirst closes over the first Taproot output
	TapretFirst = CloseMethod(0x01)
	// P2CFirst closes over the first P2WPKH output paying to the tweaked key
	P2CFirst = CloseMethod(0x02)
)

var closeMethodNames = map[CloseMethod]string{
	OpretFirst:  "opret1st",
	TapretFirst: "tapret1st",
	P2CFirst:    "p2c1st",
}

func (m CloseMethod) String() string {
	if ret, ok := closeMethodNames[m]; ok {
		return ret
	}
	return fmt.Sprintf("CloseMethod(%d)", byte(m))
}

func (m CloseMethod) IsValid() bool {
	_, ok := closeMethodNames[m]
	return ok
}

// Container returns the container method used by the close method
func (m CloseMethod) Container() dbc.Method {
	switch m {
	case OpretFirst:
		return dbc.MethodOpret
	case TapretFirst:
		return dbc.MethodTapret
	case P2CFirst:
		return dbc.MethodP2C
	}
	panic(xerrors.Errorf("seal: %s has no container", m))
}

// ParseCloseMethod is case insensitive
func ParseCloseMethod(s string) (CloseMethod, error) {
	lower := strings.ToLower(s)
	for m, name := range closeMethodNames {
		if name == lower {
			return m, nil
		}
	}
	return 0, xerrors.Errorf("'%s': %w", s, ErrWrongMethod)
}

func (m CloseMethod) MarshalText() ([]byte, error) {
	if !m.IsValid() {
		return nil, xerrors.Errorf("%s: %w", m, ErrWrongMethod)
	}
	return []byte(m.String()), nil
}

func (m *CloseMethod) UnmarshalText(text []byte) error {
	ret, err := ParseCloseMethod(string(text))
	if err != nil {
		return err
	}
	*m = ret
	return nil
}
