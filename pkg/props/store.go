package props

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/ofxhost/pkg/ofx"
)

type property struct {
	spec   Spec
	custom bool
	values []any
}

type set struct {
	kind  Kind
	props map[string]*property
}

// Store owns every property set the host hands out. It implements
// ofx.PropertySuite and is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	next ofx.Handle
	sets map[ofx.Handle]*set
	log  *logrus.Logger
}

var _ ofx.PropertySuite = (*Store)(nil)

// NewStore creates an empty store
func NewStore(log *logrus.Logger) *Store {
	if log == nil {
		log = logrus.New()
	}
	return &Store{
		sets: make(map[ofx.Handle]*set),
		log:  log,
	}
}

// Create allocates a property set of the given kind with every declared
// property at its default value.
func (s *Store) Create(kind Kind) (ofx.Handle, error) {
	schema, ok := schemas[kind]
	if !ok {
		return ofx.NullHandle, ofx.WrapError(ofx.BadValue, "props.Create", string(kind), fmt.Errorf("unknown property set kind"))
	}

	ps := &set{kind: kind, props: make(map[string]*property, len(schema))}
	for name, spec := range schema {
		ps.props[name] = &property{spec: spec, values: spec.initialValues()}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.sets[s.next] = ps
	return s.next, nil
}

// MustCreate is Create for the built-in kinds, which cannot fail
func (s *Store) MustCreate(kind Kind) ofx.Handle {
	h, err := s.Create(kind)
	if err != nil {
		panic(err)
	}
	return h
}

// Release frees a property set. Its handle becomes invalid.
func (s *Store) Release(h ofx.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sets[h]; !ok || h.IsNull() {
		return ofx.NewError(ofx.BadHandle, "props.Release", "")
	}
	delete(s.sets, h)
	return nil
}

// Len returns the number of live property sets
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sets)
}

// KindOf returns the kind a set was created with
func (s *Store) KindOf(h ofx.Handle) (Kind, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ps, err := s.lookup("props.KindOf", h)
	if err != nil {
		return "", err
	}
	return ps.kind, nil
}

// Names lists the properties present in a set, sorted
func (s *Store) Names(h ofx.Handle) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ps, err := s.lookup("props.Names", h)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ps.props))
	for name := range ps.props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) lookup(op string, h ofx.Handle) (*set, error) {
	if h.IsNull() {
		return nil, ofx.NewError(ofx.BadHandle, op, "")
	}
	ps, ok := s.sets[h]
	if !ok {
		return nil, ofx.NewError(ofx.BadHandle, op, "")
	}
	return ps, nil
}

func (s *Store) get(op string, h ofx.Handle, name string, t Type, index int) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ps, err := s.lookup(op, h)
	if err != nil {
		return nil, err
	}
	p, ok := ps.props[name]
	if !ok {
		return nil, ofx.NewError(ofx.UnknownProperty, op, name)
	}
	if p.spec.Type != t {
		return nil, ofx.WrapError(ofx.TypeMismatch, op, name, fmt.Errorf("property is %s, not %s", p.spec.Type, t))
	}
	if index < 0 || index >= len(p.values) {
		return nil, ofx.WrapError(ofx.BadIndex, op, name, fmt.Errorf("index %d out of range [0,%d)", index, len(p.values)))
	}
	return p.values[index], nil
}

func (s *Store) set(op string, h ofx.Handle, name string, t Type, index int, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, err := s.lookup(op, h)
	if err != nil {
		return err
	}

	p, ok := ps.props[name]
	if !ok {
		// undeclared names are pass-through custom properties
		if index != 0 {
			return ofx.WrapError(ofx.BadIndex, op, name, fmt.Errorf("custom property must start at index 0, got %d", index))
		}
		s.log.Debugf("Creating custom %s property %s on %s set", t, name, ps.kind)
		ps.props[name] = &property{spec: Spec{Type: t}, custom: true, values: []any{value}}
		return nil
	}

	if p.spec.Type != t {
		return ofx.WrapError(ofx.TypeMismatch, op, name, fmt.Errorf("property is %s, not %s", p.spec.Type, t))
	}

	if p.spec.Dimension > 0 {
		if index < 0 || index >= p.spec.Dimension {
			return ofx.WrapError(ofx.BadIndex, op, name, fmt.Errorf("index %d out of range [0,%d)", index, p.spec.Dimension))
		}
		p.values[index] = value
		return nil
	}

	switch {
	case index < 0 || index > len(p.values):
		return ofx.WrapError(ofx.BadIndex, op, name, fmt.Errorf("index %d beyond length %d", index, len(p.values)))
	case index == len(p.values):
		p.values = append(p.values, value)
	default:
		p.values[index] = value
	}
	return nil
}

func (s *Store) GetString(h ofx.Handle, name string, index int) (string, error) {
	v, err := s.get("props.GetString", h, name, TypeString, index)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *Store) GetInt(h ofx.Handle, name string, index int) (int, error) {
	v, err := s.get("props.GetInt", h, name, TypeInt, index)
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (s *Store) GetDouble(h ofx.Handle, name string, index int) (float64, error) {
	v, err := s.get("props.GetDouble", h, name, TypeDouble, index)
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

func (s *Store) GetPointer(h ofx.Handle, name string, index int) (any, error) {
	return s.get("props.GetPointer", h, name, TypePointer, index)
}

func (s *Store) SetString(h ofx.Handle, name string, index int, value string) error {
	return s.set("props.SetString", h, name, TypeString, index, value)
}

func (s *Store) SetInt(h ofx.Handle, name string, index int, value int) error {
	return s.set("props.SetInt", h, name, TypeInt, index, value)
}

func (s *Store) SetDouble(h ofx.Handle, name string, index int, value float64) error {
	return s.set("props.SetDouble", h, name, TypeDouble, index, value)
}

func (s *Store) SetPointer(h ofx.Handle, name string, index int, value any) error {
	return s.set("props.SetPointer", h, name, TypePointer, index, value)
}

// GetDimension returns the current number of values of a property
func (s *Store) GetDimension(h ofx.Handle, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ps, err := s.lookup("props.GetDimension", h)
	if err != nil {
		return 0, err
	}
	p, ok := ps.props[name]
	if !ok {
		return 0, ofx.NewError(ofx.UnknownProperty, "props.GetDimension", name)
	}
	return len(p.values), nil
}
