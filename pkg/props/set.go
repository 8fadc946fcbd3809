package props

import (
	"github.com/platinummonkey/ofxhost/pkg/ofx"
)

// Set binds a property suite to one handle. Both the host and plugins built
// on pkg/support read and write property sets through it.
type Set struct {
	Suite  ofx.PropertySuite
	Handle ofx.Handle
}

// NewSet wraps handle h of suite
func NewSet(suite ofx.PropertySuite, h ofx.Handle) Set {
	return Set{Suite: suite, Handle: h}
}

func (s Set) IsNull() bool {
	return s.Suite == nil || s.Handle.IsNull()
}

func (s Set) GetString(name string) (string, error) {
	return s.Suite.GetString(s.Handle, name, 0)
}

func (s Set) GetStringN(name string, index int) (string, error) {
	return s.Suite.GetString(s.Handle, name, index)
}

func (s Set) GetInt(name string) (int, error) {
	return s.Suite.GetInt(s.Handle, name, 0)
}

func (s Set) GetIntN(name string, index int) (int, error) {
	return s.Suite.GetInt(s.Handle, name, index)
}

func (s Set) GetDouble(name string) (float64, error) {
	return s.Suite.GetDouble(s.Handle, name, 0)
}

func (s Set) GetPointer(name string) (any, error) {
	return s.Suite.GetPointer(s.Handle, name, 0)
}

func (s Set) GetBool(name string) (bool, error) {
	v, err := s.GetInt(name)
	return v != 0, err
}

// GetStrings reads every value of a string property
func (s Set) GetStrings(name string) ([]string, error) {
	n, err := s.Suite.GetDimension(s.Handle, name)
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, n)
	for i := 0; i < n; i++ {
		v, err := s.Suite.GetString(s.Handle, name, i)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func (s Set) Dimension(name string) (int, error) {
	return s.Suite.GetDimension(s.Handle, name)
}

func (s Set) SetString(name, value string) error {
	return s.Suite.SetString(s.Handle, name, 0, value)
}

func (s Set) SetStringN(name string, index int, value string) error {
	return s.Suite.SetString(s.Handle, name, index, value)
}

func (s Set) SetInt(name string, value int) error {
	return s.Suite.SetInt(s.Handle, name, 0, value)
}

func (s Set) SetIntN(name string, index, value int) error {
	return s.Suite.SetInt(s.Handle, name, index, value)
}

func (s Set) SetDouble(name string, value float64) error {
	return s.Suite.SetDouble(s.Handle, name, 0, value)
}

func (s Set) SetPointer(name string, value any) error {
	return s.Suite.SetPointer(s.Handle, name, 0, value)
}

func (s Set) SetBool(name string, value bool) error {
	v := 0
	if value {
		v = 1
	}
	return s.SetInt(name, v)
}

// AppendString adds a value at the end of a variable-length string property
func (s Set) AppendString(name, value string) error {
	n, err := s.Suite.GetDimension(s.Handle, name)
	if err != nil {
		n = 0
	}
	return s.Suite.SetString(s.Handle, name, n, value)
}

// AppendInt adds a value at the end of a variable-length int property
func (s Set) AppendInt(name string, value int) error {
	n, err := s.Suite.GetDimension(s.Handle, name)
	if err != nil {
		n = 0
	}
	return s.Suite.SetInt(s.Handle, name, n, value)
}
