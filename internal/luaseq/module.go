package luaseq

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/ledseqd/internal/color"
	"github.com/dokzlo13/ledseqd/internal/sequence"
)

// callTimeout bounds how long an evaluation waits for the VM goroutine.
// When it expires the sequence falls back to its base color so the service
// loop never wedges on a busy script.
const callTimeout = 500 * time.Millisecond

// SeqModule provides ledseq.rgb/hsv/steps/dynamic to Lua.
//
// ERROR HANDLING CONVENTION:
//   - steps(), dynamic(): Use L.RaiseError() so a broken definition fails
//     the script load instead of surfacing at service time
//   - dynamic callbacks: log and fall back, evaluation cannot error
type SeqModule struct {
	rt *Runtime
}

// NewSeqModule creates the sequence definition module.
func NewSeqModule(rt *Runtime) *SeqModule {
	return &SeqModule{rt: rt}
}

// Loader is the module loader for Lua
func (m *SeqModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "rgb", L.NewFunction(m.rgb))
	L.SetField(mod, "hsv", L.NewFunction(m.hsv))
	L.SetField(mod, "steps", L.NewFunction(m.steps))
	L.SetField(mod, "dynamic", L.NewFunction(m.dynamic))

	L.Push(mod)
	return 1
}

// rgb(r, g, b) -> color table
func (m *SeqModule) rgb(L *lua.LState) int {
	c := color.RGB{
		R: float64(L.CheckNumber(1)),
		G: float64(L.CheckNumber(2)),
		B: float64(L.CheckNumber(3)),
	}
	L.Push(colorToLua(L, c))
	return 1
}

// hsv(h, s, v) -> color table
func (m *SeqModule) hsv(L *lua.LState) int {
	c := color.HSV(
		float64(L.CheckNumber(1)),
		float64(L.CheckNumber(2)),
		float64(L.CheckNumber(3)),
	)
	L.Push(colorToLua(L, c))
	return 1
}

// steps(name, def) - Register a step sequence
//
//	ledseq.steps("alarm", {
//	    loop = "forever",
//	    steps = {
//	        { color = ledseq.rgb(1, 0, 0), ms = 250 },
//	        { color = "#000000", ms = 250, transition = "linear" },
//	    },
//	})
func (m *SeqModule) steps(L *lua.LState) int {
	name := L.CheckString(1)
	def := L.CheckTable(2)

	b := sequence.NewBuilder()
	if capacity := m.rt.lib.Capacity(); capacity > 0 {
		b.Capacity(capacity)
	}

	if lv := def.RawGetString("loop"); lv != lua.LNil {
		lc, err := luaToLoop(lv)
		if err != nil {
			L.RaiseError("sequence %q: %s", name, err.Error())
			return 0
		}
		b.LoopCount(lc)
	}
	if sv := def.RawGetString("start_color"); sv != lua.LNil {
		c, err := luaToColor(sv)
		if err != nil {
			L.RaiseError("sequence %q: start_color: %s", name, err.Error())
			return 0
		}
		b.StartColor(c)
	}
	if lv := def.RawGetString("landing_color"); lv != lua.LNil {
		c, err := luaToColor(lv)
		if err != nil {
			L.RaiseError("sequence %q: landing_color: %s", name, err.Error())
			return 0
		}
		b.LandingColor(c)
	}

	stepsVal := def.RawGetString("steps")
	stepsTbl, ok := stepsVal.(*lua.LTable)
	if !ok {
		L.RaiseError("sequence %q: 'steps' must be a table", name)
		return 0
	}
	for i := 1; ; i++ {
		entry := stepsTbl.RawGetInt(i)
		if entry == lua.LNil {
			break
		}
		st, ok := entry.(*lua.LTable)
		if !ok {
			L.RaiseError("sequence %q: step %d must be a table", name, i)
			return 0
		}

		c, err := luaToColor(st.RawGetString("color"))
		if err != nil {
			L.RaiseError("sequence %q: step %d: %s", name, i, err.Error())
			return 0
		}

		var dur time.Duration
		if ms := st.RawGetString("ms"); ms != lua.LNil {
			n, ok := ms.(lua.LNumber)
			if !ok {
				L.RaiseError("sequence %q: step %d: 'ms' must be a number", name, i)
				return 0
			}
			dur = time.Duration(float64(n) * float64(time.Millisecond))
		}

		tr := sequence.TransitionStep
		if tv := st.RawGetString("transition"); tv != lua.LNil {
			parsed, err := sequence.ParseTransition(tv.String())
			if err != nil {
				L.RaiseError("sequence %q: step %d: %s", name, i, err.Error())
				return 0
			}
			tr = parsed
		}

		b.Step(c, dur, tr)
	}

	seq, err := b.Build()
	if err != nil {
		L.RaiseError("sequence %q: %s", name, err.Error())
		return 0
	}

	m.rt.lib.Put(name, seq)
	log.Debug().Str("sequence", name).Int("steps", seq.Len()).Msg("Lua sequence registered")
	return 0
}

// dynamic(name, color_fn, timing_fn [, base_color]) - Register a sequence
// computed by script. color_fn(base, elapsed_ms) returns a color;
// timing_fn(elapsed_ms) returns the next delay in ms, 0 for continuous
// servicing, or nil when the sequence is complete.
func (m *SeqModule) dynamic(L *lua.LState) int {
	name := L.CheckString(1)
	colorFn := L.CheckFunction(2)
	timingFn := L.CheckFunction(3)

	base := color.RGB{}
	if bv := L.Get(4); bv != lua.LNil {
		c, err := luaToColor(bv)
		if err != nil {
			L.RaiseError("sequence %q: base color: %s", name, err.Error())
			return 0
		}
		base = c
	}

	seq, err := sequence.FromFunction(base,
		func(base color.RGB, elapsed time.Duration) color.RGB {
			return m.callColor(colorFn, base, elapsed)
		},
		func(elapsed time.Duration) sequence.Timing {
			return m.callTiming(timingFn, elapsed)
		},
	)
	if err != nil {
		L.RaiseError("sequence %q: %s", name, err.Error())
		return 0
	}

	m.rt.lib.Put(name, seq)
	log.Debug().Str("sequence", name).Msg("Lua dynamic sequence registered")
	return 0
}

// callColor round-trips a color callback through the VM goroutine. Any
// failure falls back to the base color.
func (m *SeqModule) callColor(fn *lua.LFunction, base color.RGB, elapsed time.Duration) color.RGB {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	res := make(chan color.RGB, 1)
	err := m.rt.DoSync(ctx, func(context.Context) {
		res <- m.evalColor(fn, base, elapsed)
	})
	if err != nil {
		log.Warn().Err(err).Msg("Lua color callback not queued")
		return base
	}

	select {
	case c := <-res:
		return c
	case <-ctx.Done():
		log.Warn().Msg("Lua color callback timed out")
		return base
	}
}

// callTiming round-trips a timing callback through the VM goroutine. Any
// failure completes the sequence so the service loop does not spin on a
// broken script.
func (m *SeqModule) callTiming(fn *lua.LFunction, elapsed time.Duration) sequence.Timing {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	res := make(chan sequence.Timing, 1)
	err := m.rt.DoSync(ctx, func(context.Context) {
		res <- m.evalTiming(fn, elapsed)
	})
	if err != nil {
		log.Warn().Err(err).Msg("Lua timing callback not queued")
		return sequence.Complete()
	}

	select {
	case t := <-res:
		return t
	case <-ctx.Done():
		log.Warn().Msg("Lua timing callback timed out")
		return sequence.Complete()
	}
}

// evalColor runs on the VM goroutine.
func (m *SeqModule) evalColor(fn *lua.LFunction, base color.RGB, elapsed time.Duration) color.RGB {
	L := m.rt.L
	L.Push(fn)
	L.Push(colorToLua(L, base))
	L.Push(lua.LNumber(elapsed.Milliseconds()))

	if err := L.PCall(2, 1, nil); err != nil {
		log.Error().Err(err).Msg("Lua color function failed")
		return base
	}

	ret := L.Get(-1)
	L.Pop(1)

	c, err := luaToColor(ret)
	if err != nil {
		log.Error().Err(err).Msg("Lua color function returned a bad color")
		return base
	}
	return c
}

// evalTiming runs on the VM goroutine.
func (m *SeqModule) evalTiming(fn *lua.LFunction, elapsed time.Duration) sequence.Timing {
	L := m.rt.L
	L.Push(fn)
	L.Push(lua.LNumber(elapsed.Milliseconds()))

	if err := L.PCall(1, 1, nil); err != nil {
		log.Error().Err(err).Msg("Lua timing function failed")
		return sequence.Complete()
	}

	ret := L.Get(-1)
	L.Pop(1)

	switch v := ret.(type) {
	case *lua.LNilType:
		return sequence.Complete()
	case lua.LNumber:
		ms := float64(v)
		if ms <= 0 {
			return sequence.Continuous()
		}
		return sequence.DelayFor(time.Duration(ms * float64(time.Millisecond)))
	default:
		log.Error().Str("type", ret.Type().String()).Msg("Lua timing function returned a bad value")
		return sequence.Complete()
	}
}

// colorToLua converts a color to an {r, g, b} table.
func colorToLua(L *lua.LState, c color.RGB) *lua.LTable {
	tbl := L.NewTable()
	tbl.RawSetString("r", lua.LNumber(c.R))
	tbl.RawSetString("g", lua.LNumber(c.G))
	tbl.RawSetString("b", lua.LNumber(c.B))
	return tbl
}

// luaToColor accepts an {r, g, b} table or a "#RRGGBB" hex string.
func luaToColor(v lua.LValue) (color.RGB, error) {
	switch val := v.(type) {
	case lua.LString:
		return color.ParseHex(string(val))
	case *lua.LTable:
		var c color.RGB
		found := false
		for _, ch := range []struct {
			key string
			dst *float64
		}{{"r", &c.R}, {"g", &c.G}, {"b", &c.B}} {
			f := val.RawGetString(ch.key)
			if f == lua.LNil {
				continue
			}
			n, ok := f.(lua.LNumber)
			if !ok {
				return color.RGB{}, errors.New("color channels must be numbers")
			}
			*ch.dst = float64(n)
			found = true
		}
		if !found {
			return color.RGB{}, errors.New("color table needs r, g or b fields")
		}
		return c, nil
	default:
		return color.RGB{}, errors.New("color must be a table or a hex string")
	}
}

// luaToLoop accepts "forever" or a loop count.
func luaToLoop(v lua.LValue) (sequence.LoopCount, error) {
	switch val := v.(type) {
	case lua.LString:
		if string(val) != "forever" {
			return sequence.LoopCount{}, errors.New(`loop must be "forever" or a count`)
		}
		return sequence.Forever(), nil
	case lua.LNumber:
		if val < 0 {
			return sequence.LoopCount{}, errors.New("loop count cannot be negative")
		}
		return sequence.Loops(uint32(val)), nil
	default:
		return sequence.LoopCount{}, errors.New(`loop must be "forever" or a count`)
	}
}
