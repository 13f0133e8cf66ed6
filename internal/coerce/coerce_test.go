package coerce

import (
	"testing"

	"kanso/internal/ir"
)

func TestPlanForSmallIntZeroExtends(t *testing.T) {
	p, err := PlanFor(&ir.IntType{Bits: 7})
	if err != nil {
		t.Fatalf("PlanFor: %v", err)
	}
	if p.Tag != "i8" {
		t.Errorf("tag = %s, want i8", p.Tag)
	}
	if len(p.Casts) != 1 || p.Casts[0].Op != ir.OpZExt || p.Casts[0].Inverse != ir.OpTrunc {
		t.Errorf("casts = %+v, want one ZExt/Trunc pair", p.Casts)
	}
}

func TestPlanForExactCanonicalWidthNoCast(t *testing.T) {
	p, err := PlanFor(ir.I32)
	if err != nil {
		t.Fatalf("PlanFor: %v", err)
	}
	if p.Tag != "i32" || len(p.Casts) != 0 {
		t.Errorf("expected no-op coercion for already-canonical i32, got %+v", p)
	}
}

func TestPlanForOversizedIntIsFatal(t *testing.T) {
	if _, err := PlanFor(&ir.IntType{Bits: 128}); err == nil {
		t.Fatal("expected fatal error for i128 (no canonical checker type)")
	}
}

func TestPlanForPointerBitcasts(t *testing.T) {
	p, err := PlanFor(&ir.PointerType{})
	if err != nil {
		t.Fatalf("PlanFor: %v", err)
	}
	if p.Tag != "ptr" || len(p.Casts) != 1 || p.Casts[0].Op != ir.OpBitCast {
		t.Errorf("pointer coercion should bitcast to i8*, got %+v", p)
	}
}

func TestPlanForHalfExtendsToFloat(t *testing.T) {
	p, err := PlanFor(&ir.FloatType{Kind: ir.FloatHalf})
	if err != nil {
		t.Fatalf("PlanFor: %v", err)
	}
	if p.Tag != "float" || p.Casts[0].Op != ir.OpFPExt {
		t.Errorf("half should fpext to float, got %+v", p)
	}
}

func TestPlanForX87TruncatesToDouble(t *testing.T) {
	p, err := PlanFor(&ir.FloatType{Kind: ir.FloatX87Extended})
	if err != nil {
		t.Fatalf("PlanFor: %v", err)
	}
	if p.Tag != "double" || p.Casts[0].Op != ir.OpFPTrunc {
		t.Errorf("fp80 should fptrunc to double, got %+v", p)
	}
}

func TestPlanForIntVectorWidensThenBitcasts(t *testing.T) {
	p, err := PlanFor(&ir.VectorType{Elem: ir.I32, Lanes: 4})
	if err != nil {
		t.Fatalf("PlanFor: %v", err)
	}
	if p.Tag != "dq" || len(p.Casts) != 2 {
		t.Fatalf("4xi32 vector should widen lanes to i32(self) then bitcast to dq, got %+v", p)
	}
	if p.Casts[1].To != ir.DQ {
		t.Errorf("final cast should target dq (<2 x i64>), got %s", p.Casts[1].To)
	}
}

func TestPlanForPointerVectorRejectsWrongLaneCount(t *testing.T) {
	if _, err := PlanFor(&ir.VectorType{Elem: &ir.PointerType{}, Lanes: 4}); err == nil {
		t.Fatal("expected fatal error for <4 x ptr>, only <2 x ptr> is supported")
	}
}

func TestPlanForFourFloatVectorIsLeftAsIs(t *testing.T) {
	p, err := PlanFor(&ir.VectorType{Elem: ir.Float, Lanes: 4})
	if err != nil {
		t.Fatalf("PlanFor: %v", err)
	}
	if p.Tag != "ps" || len(p.Casts) != 0 {
		t.Errorf("<4 x float> should route to ps with no cast, got %+v", p)
	}
}

func TestPlanForTwoFloatVectorExtendsToDouble(t *testing.T) {
	p, err := PlanFor(&ir.VectorType{Elem: ir.Float, Lanes: 2})
	if err != nil {
		t.Fatalf("PlanFor: %v", err)
	}
	if p.Tag != "pd" || len(p.Casts) != 1 || p.Casts[0].Op != ir.OpFPExt {
		t.Errorf("<2 x float> should fpext lanes to pd, got %+v", p)
	}
}

func TestPlanForDoubleVectorNoCast(t *testing.T) {
	p, err := PlanFor(&ir.VectorType{Elem: ir.Double, Lanes: 2})
	if err != nil {
		t.Fatalf("PlanFor: %v", err)
	}
	if p.Tag != "pd" || len(p.Casts) != 0 {
		t.Errorf("<2 x double> is already canonical pd, got %+v", p)
	}
}

func TestPlanForStructRecursesPerField(t *testing.T) {
	st := &ir.StructType{Fields: []ir.Type{ir.I8, &ir.PointerType{}}}
	p, err := PlanFor(st)
	if err != nil {
		t.Fatalf("PlanFor: %v", err)
	}
	if !p.IsStruct() || len(p.Fields) != 2 {
		t.Fatalf("expected per-field plan, got %+v", p)
	}
	if p.Fields[0].Tag != "i8" || p.Fields[1].Tag != "ptr" {
		t.Errorf("field plans = %+v", p.Fields)
	}
}

func TestPlanForUnsupportedTypeIsFatal(t *testing.T) {
	if _, err := PlanFor(&ir.VoidType{}); err == nil {
		t.Fatal("expected fatal error for void type")
	}
}
