package dataflow

import (
	"fmt"
	"sort"
	"sync"

	"mec/pkg/logging"
)

// Role is what is currently plugged into an Outlet.
type Role int

const (
	RoleNone Role = iota
	RoleProducer
	RoleConsumer
	RoleProc
)

func (r Role) String() string {
	switch r {
	case RoleProducer:
		return "producer"
	case RoleConsumer:
		return "consumer"
	case RoleProc:
		return "proc"
	default:
		return "none"
	}
}

// Outlet is a named slot holding at most one producer, consumer or proc.
// It presents a uniform Producer+Consumer façade: operations for a direction
// the plugged role does not support are routed to a dummy that always fails,
// so callers only interpret boolean outcomes and never nil-check.
type Outlet struct {
	name string

	mu       sync.RWMutex
	role     Role
	producer Producer
	consumer Consumer
}

// NewOutlet returns an unplugged outlet.
func NewOutlet(name string) *Outlet {
	return &Outlet{name: name}
}

// Name returns the outlet name.
func (o *Outlet) Name() string { return o.name }

// Role returns the currently plugged role.
func (o *Outlet) Role() Role {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.role
}

// PlugProducer plugs a producer.
func (o *Outlet) PlugProducer(p Producer) error {
	return o.plug(RoleProducer, p, nil)
}

// PlugConsumer plugs a consumer.
func (o *Outlet) PlugConsumer(c Consumer) error {
	return o.plug(RoleConsumer, nil, c)
}

// PlugProc plugs a proc, serving both directions.
func (o *Outlet) PlugProc(p Proc) error {
	return o.plug(RoleProc, p, p)
}

func (o *Outlet) plug(role Role, p Producer, c Consumer) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.role != RoleNone {
		return fmt.Errorf("%w: %s holds a %s", ErrAlreadyPlugged, o.name, o.role)
	}
	o.role, o.producer, o.consumer = role, p, c
	logging.Debug("Outlet", "Plugged %s into outlet %s", role, o.name)
	return nil
}

// Unplug empties the outlet without closing the transport and returns the
// role that was plugged.
func (o *Outlet) Unplug() (Role, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.role == RoleNone {
		return RoleNone, fmt.Errorf("%w: %s", ErrNotPlugged, o.name)
	}
	prev := o.role
	o.role, o.producer, o.consumer = RoleNone, nil, nil
	logging.Debug("Outlet", "Unplugged %s from outlet %s", prev, o.name)
	return prev, nil
}

// Close closes the plugged transport and unplugs it. Closing an empty outlet
// is a no-op.
func (o *Outlet) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var err error
	switch o.role {
	case RoleProducer:
		err = o.producer.Close()
	case RoleConsumer, RoleProc:
		err = o.consumer.Close()
	}
	o.role, o.producer, o.consumer = RoleNone, nil, nil
	return err
}

func (o *Outlet) asProducer() Producer {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.producer == nil {
		return dummy{}
	}
	return o.producer
}

func (o *Outlet) asConsumer() Consumer {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.consumer == nil {
		return dummy{}
	}
	return o.consumer
}

// HasData implements Producer.
func (o *Outlet) HasData() bool { return o.asProducer().HasData() }

// Read implements Producer.
func (o *Outlet) Read() (Payload, bool) { return o.asProducer().Read() }

// CanAcceptData implements Consumer.
func (o *Outlet) CanAcceptData() bool { return o.asConsumer().CanAcceptData() }

// Write implements Consumer.
func (o *Outlet) Write(p Payload) bool { return o.asConsumer().Write(p) }

// OutletSet is the registry of named outlets on a run context.
type OutletSet struct {
	mu      sync.RWMutex
	outlets map[string]*Outlet
}

// NewOutletSet returns an empty set.
func NewOutletSet() *OutletSet {
	return &OutletSet{outlets: make(map[string]*Outlet)}
}

// Register adds an outlet; names are unique within a set. A nil set refuses
// every outlet.
func (s *OutletSet) Register(o *Outlet) error {
	if s == nil {
		return fmt.Errorf("%w: %s", ErrNoOutletSet, o.Name())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.outlets[o.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrOutletExists, o.Name())
	}
	if s.outlets == nil {
		s.outlets = make(map[string]*Outlet)
	}
	s.outlets[o.Name()] = o
	return nil
}

// Ensure returns the named outlet, registering an empty one if needed. A nil
// set returns a detached outlet.
func (s *OutletSet) Ensure(name string) *Outlet {
	if s == nil {
		return NewOutlet(name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.outlets[name]; ok {
		return o
	}
	if s.outlets == nil {
		s.outlets = make(map[string]*Outlet)
	}
	o := NewOutlet(name)
	s.outlets[name] = o
	return o
}

// Get returns the named outlet. A missing name yields a detached, unplugged
// outlet so the result can be used without a nil check.
func (s *OutletSet) Get(name string) *Outlet {
	if o, ok := s.Lookup(name); ok {
		return o
	}
	return NewOutlet(name)
}

// Lookup returns the named outlet and whether it is registered.
func (s *OutletSet) Lookup(name string) (*Outlet, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.outlets[name]
	return o, ok
}

// Remove closes and unregisters the named outlet.
func (s *OutletSet) Remove(name string) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	o, ok := s.outlets[name]
	delete(s.outlets, name)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return o.Close()
}

// Names returns the registered names, sorted.
func (s *OutletSet) Names() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.outlets))
	for n := range s.outlets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// CloseAll closes every outlet and empties the set. The first error is returned.
func (s *OutletSet) CloseAll() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	outlets := s.outlets
	s.outlets = make(map[string]*Outlet)
	s.mu.Unlock()

	var first error
	for _, o := range outlets {
		if err := o.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
