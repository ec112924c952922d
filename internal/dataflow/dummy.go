package dataflow

// dummy is the role behind every unplugged or wrong-direction outlet
// operation. Every call fails.
type dummy struct{}

func (dummy) CanAcceptData() bool   { return false }
func (dummy) Write(Payload) bool    { return false }
func (dummy) HasData() bool         { return false }
func (dummy) Read() (Payload, bool) { return Payload{}, false }
func (dummy) Close() error          { return nil }

// Dummy returns a Proc whose operations always fail.
func Dummy() Proc { return dummy{} }
