// Package coerce implements Type Coercion (spec §4.3): casting an
// arbitrary IR value to one of the ten canonical helper-supported
// types before a check_*/move_* call, and inverting a mover's cast
// afterward so shadowed uses stay type-correct.
//
// Grounded on original_source/src/ilr/pass/ilr.cpp's
// SwiftTransformer::castToSupportedType (the exact switch over
// Type::TypeID) and createMoveCall's inverse-cast-back logic.
package coerce

import (
	"kanso/internal/ir"
)

// Plan is the coercion recipe for one value: which canonical type tag
// to call the helper with, and how to get there and back.
type Plan struct {
	Tag          string  // one of helpers.CanonicalTypeTags
	CanonicalType ir.Type
	// Casts, in order, to apply to the original value before the
	// helper call. Struct types recurse field-by-field instead and
	// leave Casts empty (see Fields).
	Casts []CastStep
	// Fields is non-nil for StructType: one sub-Plan per field,
	// applied via extractvalue/insertvalue (spec §4.3: "check/move
	// each field individually").
	Fields []*Plan
}

// CastStep is one coercion cast to insert before the helper call,
// and (for Inverse) the step to reverse it after a move call.
type CastStep struct {
	Op   ir.Opcode
	To   ir.Type
	// Inverse is the opcode to invert this cast after move_<T>
	// returns (e.g. ZExt -> Trunc, BitCast -> BitCast, FPExt -> FPTrunc).
	Inverse ir.Opcode
}

// PlanFor computes the coercion recipe for t, or a Bug error if t is not
// among the types §4.3 knows how to coerce ("Any other type: fatal").
func PlanFor(t ir.Type) (*Plan, error) {
	switch x := t.(type) {
	case *ir.IntType:
		return planInt(x)
	case *ir.PointerType:
		return &Plan{
			Tag: "ptr", CanonicalType: ir.Ptr,
			Casts: []CastStep{{Op: ir.OpBitCast, To: ir.Ptr, Inverse: ir.OpBitCast}},
		}, nil
	case *ir.FloatType:
		return planFloat(x)
	case *ir.VectorType:
		return planVector(x)
	case *ir.StructType:
		return planStruct(x)
	default:
		return nil, ir.Bug("unhandled-coercion-type", "type %s has no canonical coercion", t)
	}
}

func planInt(t *ir.IntType) (*Plan, error) {
	var tag string
	var canon ir.Type
	switch {
	case t.Bits <= 8:
		tag, canon = "i8", ir.I8
	case t.Bits <= 16:
		tag, canon = "i16", ir.I16
	case t.Bits <= 32:
		tag, canon = "i32", ir.I32
	case t.Bits <= 64:
		tag, canon = "i64", ir.I64
	default:
		return nil, ir.Bug("unhandled-coercion-type", "integer width %d exceeds the widest canonical checker type (i64)", t.Bits)
	}
	if t.Bits == canon.(*ir.IntType).Bits {
		return &Plan{Tag: tag, CanonicalType: canon}, nil
	}
	return &Plan{
		Tag: tag, CanonicalType: canon,
		Casts: []CastStep{{Op: ir.OpZExt, To: canon, Inverse: ir.OpTrunc}},
	}, nil
}

func planFloat(t *ir.FloatType) (*Plan, error) {
	switch t.Kind {
	case ir.FloatSingle:
		return &Plan{Tag: "float", CanonicalType: ir.Float}, nil
	case ir.FloatDouble:
		return &Plan{Tag: "double", CanonicalType: ir.Double}, nil
	case ir.FloatHalf:
		// "Half: extend to float" (spec §4.3); precision-altering, documented.
		return &Plan{
			Tag: "float", CanonicalType: ir.Float,
			Casts: []CastStep{{Op: ir.OpFPExt, To: ir.Float, Inverse: ir.OpFPTrunc}},
		}, nil
	case ir.FloatX87Extended:
		// "x86-fp80: truncate to double" (spec §4.3); precision-altering.
		return &Plan{
			Tag: "double", CanonicalType: ir.Double,
			Casts: []CastStep{{Op: ir.OpFPTrunc, To: ir.Double, Inverse: ir.OpFPExt}},
		}, nil
	default:
		return nil, ir.Bug("unhandled-coercion-type", "unknown float kind %d", t.Kind)
	}
}

func planVector(t *ir.VectorType) (*Plan, error) {
	if _, ok := t.Elem.(*ir.PointerType); ok {
		if t.Lanes != 2 {
			return nil, ir.Bug("unhandled-coercion-type", "only <2 x ptr> vectors are supported, got <%d x ptr>", t.Lanes)
		}
		return &Plan{
			Tag: "dq", CanonicalType: ir.DQ,
			Casts: []CastStep{{Op: ir.OpBitCast, To: ir.DQ, Inverse: ir.OpBitCast}},
		}, nil
	}
	if ft, ok := t.Elem.(*ir.FloatType); ok {
		if ft.Kind == ir.FloatSingle && t.Lanes == 4 {
			// "<4 x float> is already the canonical ps shape: left as is."
			return &Plan{Tag: "ps", CanonicalType: ir.PS}, nil
		}
		if ft.Kind == ir.FloatDouble && t.Lanes == 2 {
			return &Plan{Tag: "pd", CanonicalType: ir.PD}, nil
		}
		// "Vector of float: extend lanes to double (<2 x double>)."
		return &Plan{
			Tag: "pd", CanonicalType: ir.PD,
			Casts: []CastStep{{Op: ir.OpFPExt, To: ir.PD, Inverse: ir.OpFPTrunc}},
		}, nil
	}
	if it, ok := t.Elem.(*ir.IntType); ok {
		_ = it
		// "Vector of integers: zero-extend lanes to the canonical lane
		// width for that lane count (2->i64,4->i32,8->i16,16->i8), then
		// bit-cast to <2 x i64>."
		var laneTarget *ir.IntType
		switch t.Lanes {
		case 2:
			laneTarget = ir.I64
		case 4:
			laneTarget = ir.I32
		case 8:
			laneTarget = ir.I16
		case 16:
			laneTarget = ir.I8
		default:
			return nil, ir.Bug("unhandled-coercion-type", "unsupported integer vector lane count %d", t.Lanes)
		}
		widened := &ir.VectorType{Elem: laneTarget, Lanes: t.Lanes}
		return &Plan{
			Tag: "dq", CanonicalType: ir.DQ,
			Casts: []CastStep{
				{Op: ir.OpZExt, To: widened, Inverse: ir.OpTrunc},
				{Op: ir.OpBitCast, To: ir.DQ, Inverse: ir.OpBitCast},
			},
		}, nil
	}
	return nil, ir.Bug("unhandled-coercion-type", "vector element type %s has no canonical coercion", t.Elem)
}

func planStruct(t *ir.StructType) (*Plan, error) {
	fields := make([]*Plan, len(t.Fields))
	for i, ft := range t.Fields {
		fp, err := PlanFor(ft)
		if err != nil {
			return nil, ir.WrapBug("unhandled-coercion-type", err, "struct field %d of %s", i, t)
		}
		fields[i] = fp
	}
	return &Plan{Fields: fields}, nil
}

// IsStruct reports whether the plan recurses field-wise rather than
// naming one canonical type/tag.
func (p *Plan) IsStruct() bool { return p.Fields != nil }
