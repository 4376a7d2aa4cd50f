// Package cheats runs Lua scripts against guest RAM, exposing peek/poke
// host functions the way a cheat-code engine would.
//
// Grounded on the teacher's debug_commands.go dispatch style (a small
// command vocabulary parsed and routed to typed handlers); here the
// vocabulary is a fixed set of Lua-callable host functions instead of a
// monitor command line, bound with gopher-lua.
package cheats

import (
	lua "github.com/yuin/gopher-lua"
)

// Memory is the narrow read/write surface a cheat script needs, kept
// separate from the core's Memory type so this package has no dependency
// on it.
type Memory interface {
	PeekByte(addr uint32) byte
	PokeByte(addr uint32, v byte)
}

// Engine runs one or more Lua cheat scripts against an attached Memory:
// each script's top-level body runs once at Load, and its on_tick handler
// runs once per call to Tick.
type Engine struct {
	mem   Memory
	state *lua.LState
	ticks []*lua.LFunction
}

// New builds an Engine bound to mem, registering the peek8/poke8/peek32/
// poke32 host functions every loaded script can call.
func New(mem Memory) *Engine {
	e := &Engine{mem: mem, state: lua.NewState()}
	e.state.SetGlobal("peek8", e.state.NewFunction(e.luaPeek8))
	e.state.SetGlobal("poke8", e.state.NewFunction(e.luaPoke8))
	e.state.SetGlobal("peek32", e.state.NewFunction(e.luaPeek32))
	e.state.SetGlobal("poke32", e.state.NewFunction(e.luaPoke32))
	return e
}

// Load compiles a cheat script's source and registers its on_tick function
// (if defined) to run on every Tick call.
func (e *Engine) Load(name, source string) error {
	fn, err := e.state.LoadString(source)
	if err != nil {
		return err
	}
	e.state.SetGlobal("on_tick", lua.LNil) // so an earlier script's handler is not picked up again
	e.state.Push(fn)
	if err := e.state.PCall(0, lua.MultRet, nil); err != nil {
		return err
	}
	if onTick, ok := e.state.GetGlobal("on_tick").(*lua.LFunction); ok {
		e.ticks = append(e.ticks, onTick)
	}
	return nil
}

// Tick invokes every loaded script's on_tick handler once per call, so a
// caller that ticks once per video field applies cheats at a steady cadence
// rather than per guest instruction. Nothing in this module calls it.
func (e *Engine) Tick() error {
	for _, fn := range e.ticks {
		e.state.Push(fn)
		if err := e.state.PCall(0, 0, nil); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) Close() {
	e.state.Close()
}

func (e *Engine) luaPeek8(L *lua.LState) int {
	addr := uint32(L.CheckInt64(1))
	L.Push(lua.LNumber(e.mem.PeekByte(addr)))
	return 1
}

func (e *Engine) luaPoke8(L *lua.LState) int {
	addr := uint32(L.CheckInt64(1))
	v := byte(L.CheckInt(2))
	e.mem.PokeByte(addr, v)
	return 0
}

func (e *Engine) luaPeek32(L *lua.LState) int {
	addr := uint32(L.CheckInt64(1))
	var v uint32
	for i := uint32(0); i < 4; i++ {
		v |= uint32(e.mem.PeekByte(addr+i)) << (8 * i)
	}
	L.Push(lua.LNumber(v))
	return 1
}

func (e *Engine) luaPoke32(L *lua.LState) int {
	addr := uint32(L.CheckInt64(1))
	v := uint32(L.CheckInt64(2))
	for i := uint32(0); i < 4; i++ {
		e.mem.PokeByte(addr+i, byte(v>>(8*i)))
	}
	return 0
}
