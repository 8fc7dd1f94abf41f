package luascript

import (
	"regexp"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

var shortIDs = regexp.MustCompile(`\(([0-9a-f]{8})\)`)

// registerModules installs the prompt helper table and sleep into L.
//
// prompt.field(p, label) returns the text after "label:" on its line, or nil.
// prompt.ids(p) returns the parenthesized short ids on the "Enemies:" line.
// sleep(ms) blocks for ms milliseconds or until the call's context ends.
func registerModules(L *lua.LState) {
	mod := L.NewTable()
	L.SetField(mod, "field", L.NewFunction(luaField))
	L.SetField(mod, "ids", L.NewFunction(luaIDs))
	L.SetGlobal("prompt", mod)
	L.SetGlobal("sleep", L.NewFunction(luaSleep))
}

func promptField(p, label string) (string, bool) {
	want := strings.ToLower(label) + ":"
	for _, line := range strings.Split(p, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(trimmed), want) {
			return strings.TrimSpace(trimmed[len(want):]), true
		}
	}
	return "", false
}

func luaField(L *lua.LState) int {
	v, ok := promptField(L.CheckString(1), L.CheckString(2))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(v))
	return 1
}

func luaIDs(L *lua.LState) int {
	out := L.NewTable()
	if line, ok := promptField(L.CheckString(1), "Enemies"); ok {
		for _, m := range shortIDs.FindAllStringSubmatch(line, -1) {
			out.Append(lua.LString(m[1]))
		}
	}
	L.Push(out)
	return 1
}

func luaSleep(L *lua.LState) int {
	ms := float64(L.CheckNumber(1))
	if ms <= 0 {
		return 0
	}
	t := time.NewTimer(time.Duration(ms * float64(time.Millisecond)))
	defer t.Stop()

	ctx := L.Context()
	if ctx == nil {
		<-t.C
		return 0
	}
	select {
	case <-t.C:
	case <-ctx.Done():
		L.RaiseError("sleep interrupted: %v", ctx.Err())
	}
	return 0
}
