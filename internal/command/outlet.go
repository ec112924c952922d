package command

import (
	"strings"

	"mec/internal/blob"
	"mec/internal/dataflow"
	"mec/internal/result"
	"mec/internal/tobject"
	"mec/pkg/logging"
)

// Consumer verbs.
const (
	VerbOpenWrite  = "openw"
	VerbOpenAppend = "opena"
	VerbWrite      = "write"
	VerbWriteLine  = "writeln"
	VerbClose      = "close"
)

// Producer verbs.
const (
	VerbOpen    = "open"
	VerbRead    = "read"
	VerbReadAll = "readall"
)

// Cons drives the writing side of an outlet:
//
//	openw  <target> [outlet]   plug a truncating consumer on target
//	opena  <target> [outlet]   plug an appending consumer on target
//	write  <outlet> <data...>  write data, parameters joined by spaces
//	writeln <outlet> <data...> write data followed by a newline
//	close  <outlet>            close and unplug the outlet
//
// The outlet name defaults to the target.
type Cons struct {
	Base
}

// NewCons creates a consumer command for one of the consumer verbs.
func NewCons(verb string, params ...string) *Cons {
	c := &Cons{}
	c.initCommand(c, verb, TypeCons, params)
	return c
}

func (c *Cons) Process(ctx *tobject.RunContext) result.Result {
	params, ok := c.Params(ctx)
	if !ok || len(params) == 0 || ctx == nil {
		return result.Fatal()
	}

	switch c.Name() {
	case VerbOpenWrite, VerbOpenAppend:
		return plugConsumer(ctx, params, c.Name() == VerbOpenAppend)
	case VerbWrite, VerbWriteLine:
		o, ok := ctx.OutletSet().Lookup(params[0])
		if !ok {
			logging.Warn("Command", "%s: outlet %s is not open", c.Name(), params[0])
			return result.False
		}
		data := strings.Join(params[1:], " ")
		if c.Name() == VerbWriteLine {
			data += "\n"
		}
		return result.Bool(o.Write(dataflow.BlobPayload(blob.FromString(data))))
	case VerbClose:
		return closeOutlet(ctx, params[0])
	default:
		logging.Warn("Command", "Unknown consumer verb %s", c.Name())
		return result.Fatal()
	}
}

// Prod drives the reading side of an outlet:
//
//	open    <target> [outlet]  plug a producer on target
//	read    <outlet>           read the next payload
//	readall <outlet>           read until the producer has no more data
//	close   <outlet>           close and unplug the outlet
//
// Reads return the data as a string result, or false when nothing could be
// read.
type Prod struct {
	Base
}

// NewProd creates a producer command for one of the producer verbs.
func NewProd(verb string, params ...string) *Prod {
	p := &Prod{}
	p.initCommand(p, verb, TypeProd, params)
	return p
}

func (p *Prod) Process(ctx *tobject.RunContext) result.Result {
	params, ok := p.Params(ctx)
	if !ok || len(params) == 0 || ctx == nil {
		return result.Fatal()
	}

	switch p.Name() {
	case VerbOpen:
		return plugProducer(ctx, params)
	case VerbRead:
		payload, ok := ctx.OutletSet().Get(params[0]).Read()
		if !ok {
			return result.False
		}
		return payload.AsResult()
	case VerbReadAll:
		text, ok := readAll(ctx.OutletSet().Get(params[0]))
		if !ok {
			return result.False
		}
		return result.String(text)
	case VerbClose:
		return closeOutlet(ctx, params[0])
	default:
		logging.Warn("Command", "Unknown producer verb %s", p.Name())
		return result.Fatal()
	}
}

func outletName(params []string) string {
	if len(params) > 1 && params[1] != "" {
		return params[1]
	}
	return params[0]
}

func plugConsumer(ctx *tobject.RunContext, params []string, appendMode bool) result.Result {
	if ctx.Transports == nil {
		logging.Warn("Command", "No transports available to open %s", params[0])
		return result.False
	}
	o := ctx.OutletSet().Ensure(outletName(params))
	if o.Role() != dataflow.RoleNone {
		logging.Warn("Command", "Outlet %s is already plugged with a %s", o.Name(), o.Role())
		return result.False
	}
	c, err := ctx.Transports.OpenConsumer(params[0], appendMode)
	if err != nil {
		logging.Error("Command", err, "Failed to open %s for writing", params[0])
		return result.False
	}
	if err := o.PlugConsumer(c); err != nil {
		c.Close()
		logging.Error("Command", err, "Failed to plug %s", o.Name())
		return result.False
	}
	return result.True
}

func plugProducer(ctx *tobject.RunContext, params []string) result.Result {
	if ctx.Transports == nil {
		logging.Warn("Command", "No transports available to open %s", params[0])
		return result.False
	}
	o := ctx.OutletSet().Ensure(outletName(params))
	if o.Role() != dataflow.RoleNone {
		logging.Warn("Command", "Outlet %s is already plugged with a %s", o.Name(), o.Role())
		return result.False
	}
	p, err := ctx.Transports.OpenProducer(params[0])
	if err != nil {
		logging.Error("Command", err, "Failed to open %s for reading", params[0])
		return result.False
	}
	if err := o.PlugProducer(p); err != nil {
		p.Close()
		logging.Error("Command", err, "Failed to plug %s", o.Name())
		return result.False
	}
	return result.True
}

func closeOutlet(ctx *tobject.RunContext, name string) result.Result {
	o, ok := ctx.OutletSet().Lookup(name)
	if !ok || o.Role() == dataflow.RoleNone {
		logging.Warn("Command", "close: outlet %s is not open", name)
		return result.False
	}
	if err := o.Close(); err != nil {
		logging.Error("Command", err, "Failed to close outlet %s", name)
		return result.False
	}
	return result.True
}

func readAll(p dataflow.Producer) (string, bool) {
	var sb strings.Builder
	read := false
	for p.HasData() {
		payload, ok := p.Read()
		if !ok {
			break
		}
		data, ok := payload.Bytes()
		if !ok {
			continue
		}
		sb.Write(data)
		read = true
	}
	return sb.String(), read
}
