package script

import (
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func TestBridge_ToGoValue(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	b := NewBridge(L)

	if err := L.DoString(`
		seq = {1, 2, 3}
		rec = {name = "x", n = 1.5}
		cyc = {}
		cyc.self = cyc
		shared = {1, 2}
		twice = {a = shared, b = shared}
	`); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		in   lua.LValue
		want any
	}{
		{"nil", lua.LNil, nil},
		{"bool", lua.LTrue, true},
		{"int", lua.LNumber(3), int64(3)},
		{"float", lua.LNumber(1.5), 1.5},
		{"string", lua.LString("s"), "s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.ToGoValue(tt.in); got != tt.want {
				t.Errorf("ToGoValue() = %#v, want %#v", got, tt.want)
			}
		})
	}

	seq, ok := b.ToGoValue(L.GetGlobal("seq")).([]any)
	if !ok || len(seq) != 3 || seq[2] != int64(3) {
		t.Errorf("sequence = %#v", b.ToGoValue(L.GetGlobal("seq")))
	}

	rec, ok := b.ToGoValue(L.GetGlobal("rec")).(map[string]any)
	if !ok || rec["name"] != "x" || rec["n"] != 1.5 {
		t.Errorf("record = %#v", b.ToGoValue(L.GetGlobal("rec")))
	}

	cyc, ok := b.ToGoValue(L.GetGlobal("cyc")).(map[string]any)
	if !ok || cyc["self"] != nil {
		t.Errorf("circular reference should be cut, got %#v", cyc)
	}

	twice, ok := b.ToGoValue(L.GetGlobal("twice")).(map[string]any)
	if !ok {
		t.Fatalf("twice = %#v", b.ToGoValue(L.GetGlobal("twice")))
	}
	for _, key := range []string{"a", "b"} {
		list, ok := twice[key].([]any)
		if !ok || len(list) != 2 || list[1] != int64(2) {
			t.Errorf("twice[%q] = %#v, want [1 2]", key, twice[key])
		}
	}
}

type keyInfo struct {
	Rune   string `lua:"rune"`
	Ctrl   bool
	Hidden string `lua:"-"`
	secret int
}

func TestBridge_ToLuaValue(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	b := NewBridge(L)

	if v := b.ToLuaValue(nil); v != lua.LNil {
		t.Errorf("nil -> %v", v)
	}
	if v := b.ToLuaValue(7); v != lua.LNumber(7) {
		t.Errorf("int -> %v", v)
	}
	if v := b.ToLuaValue(uint8(7)); v != lua.LNumber(7) {
		t.Errorf("uint8 -> %v", v)
	}
	if v := b.ToLuaValue("s"); v != lua.LString("s") {
		t.Errorf("string -> %v", v)
	}

	tbl, ok := b.ToLuaValue(keyInfo{Rune: "a", Ctrl: true, Hidden: "h", secret: 1}).(*lua.LTable)
	if !ok {
		t.Fatal("struct should convert to a table")
	}
	if tbl.RawGetString("rune") != lua.LString("a") {
		t.Errorf("rune = %v", tbl.RawGetString("rune"))
	}
	if tbl.RawGetString("ctrl") != lua.LTrue {
		t.Errorf("ctrl = %v", tbl.RawGetString("ctrl"))
	}
	if tbl.RawGetString("hidden") != lua.LNil || tbl.RawGetString("secret") != lua.LNil {
		t.Error("skipped fields should be absent")
	}

	list, ok := b.ToLuaValue([]string{"a", "b"}).(*lua.LTable)
	if !ok || list.Len() != 2 || list.RawGetInt(2) != lua.LString("b") {
		t.Errorf("slice -> %v", list)
	}

	m, ok := b.ToLuaValue(map[string]int{"k": 1}).(*lua.LTable)
	if !ok || m.RawGetString("k") != lua.LNumber(1) {
		t.Errorf("map -> %v", m)
	}
}
