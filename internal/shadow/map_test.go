package shadow

import (
	"testing"

	"kanso/internal/ir"
)

func TestAddAndGet(t *testing.T) {
	m := New()
	orig := &ir.Value{ID: 1, Typ: ir.I32, Kind: ir.ValInstrResult}
	sh := &ir.Value{ID: 2, Typ: ir.I32, Kind: ir.ValInstrResult}

	if err := m.Add(orig, sh); err != nil {
		t.Fatalf("Add: %v", err)
	}
	got, err := m.Get(orig)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != sh {
		t.Errorf("Get returned wrong value")
	}
}

func TestAddCollisionIsBug(t *testing.T) {
	m := New()
	orig := &ir.Value{ID: 1, Typ: ir.I32, Kind: ir.ValInstrResult}
	sh1 := &ir.Value{ID: 2, Typ: ir.I32, Kind: ir.ValInstrResult}
	sh2 := &ir.Value{ID: 3, Typ: ir.I32, Kind: ir.ValInstrResult}

	if err := m.Add(orig, sh1); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	if err := m.Add(orig, sh2); err == nil {
		t.Fatal("expected collision error on second Add")
	}
}

func TestGetOnConstantReturnsItself(t *testing.T) {
	m := New()
	c := ir.NewConstInt(ir.I32, 42)
	got, err := m.Get(c)
	if err != nil {
		t.Fatalf("Get on constant should not error: %v", err)
	}
	if got != c {
		t.Error("shadow of a constant should be the constant itself")
	}
}

func TestGetWithoutAddIsBug(t *testing.T) {
	m := New()
	orig := &ir.Value{ID: 1, Typ: ir.I32, Kind: ir.ValInstrResult}
	if _, err := m.Get(orig); err == nil {
		t.Fatal("expected bug error for unshadowed non-constant value")
	}
}

func TestHasNonAborting(t *testing.T) {
	m := New()
	orig := &ir.Value{ID: 1, Typ: ir.I32, Kind: ir.ValInstrResult}
	if m.Has(orig) {
		t.Error("Has should be false before Add")
	}
	_ = m.Add(orig, &ir.Value{ID: 2, Typ: ir.I32})
	if !m.Has(orig) {
		t.Error("Has should be true after Add")
	}
}

func TestInjective(t *testing.T) {
	m := New()
	a := &ir.Value{ID: 1, Kind: ir.ValInstrResult}
	b := &ir.Value{ID: 2, Kind: ir.ValInstrResult}
	shared := &ir.Value{ID: 3, Kind: ir.ValInstrResult}
	_ = m.Add(a, shared)
	_ = m.Add(b, shared)
	if m.Injective() {
		t.Error("map sharing one shadow between two originals should not be injective")
	}
}
