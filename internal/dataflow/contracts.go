// Package dataflow defines the roles used by steps to move data: producers,
// consumers, procs (both at once) and outlets, the named late-binding slots
// that decouple a step's verb from the transport plugged in at run time.
//
// None of the operations block. CanAcceptData and HasData are readiness
// probes, not guarantees; Write and Read report success per call.
package dataflow

import "errors"

var (
	// ErrAlreadyPlugged is returned when plugging an outlet that already holds a role.
	ErrAlreadyPlugged = errors.New("outlet is already plugged")
	// ErrNotPlugged is returned when unplugging an empty outlet.
	ErrNotPlugged = errors.New("outlet is not plugged")
	// ErrOutletExists is returned when registering a duplicate outlet name.
	ErrOutletExists = errors.New("outlet already registered")
	// ErrNoOutletSet is returned when registering on a nil outlet set.
	ErrNoOutletSet = errors.New("no outlet set")
	// ErrUnknownTransport is returned by an Opener for unsupported targets.
	ErrUnknownTransport = errors.New("unknown transport")
)

// Consumer receives payloads.
type Consumer interface {
	// CanAcceptData reports whether a Write is expected to succeed now.
	CanAcceptData() bool
	// Write delivers one payload.
	Write(p Payload) bool
	// Close releases the underlying transport.
	Close() error
}

// Producer emits payloads.
type Producer interface {
	// HasData reports whether a Read is expected to return a payload now.
	HasData() bool
	// Read returns the next payload.
	Read() (Payload, bool)
	// Close releases the underlying transport.
	Close() error
}

// Proc is both a producer and a consumer.
type Proc interface {
	Producer
	Consumer
}

// Opener resolves a transport target ("path", "mem:name", "queue:dir", ...)
// into a concrete producer or consumer.
type Opener interface {
	OpenProducer(target string) (Producer, error)
	OpenConsumer(target string, appendMode bool) (Consumer, error)
}
