package mongo

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"entityapi/internal/model"
	"entityapi/internal/query"
	"entityapi/internal/repository"
)

// toBSON converts a document value into the driver's representation.
// Object keys are emitted in sorted order.
func toBSON(v model.Value) any {
	switch v.Kind() {
	case model.KindBool:
		return v.Bool()
	case model.KindInt:
		return v.Int()
	case model.KindFloat:
		return v.Float()
	case model.KindString:
		return v.Str()
	case model.KindArray:
		arr := make(bson.A, len(v.Items()))
		for i, item := range v.Items() {
			arr[i] = toBSON(item)
		}
		return arr
	case model.KindObject:
		return documentToBSON(v.Object())
	default:
		return nil
	}
}

func documentToBSON(d model.Document) bson.D {
	out := make(bson.D, 0, len(d))
	for _, k := range d.Keys() {
		out = append(out, bson.E{Key: k, Value: toBSON(d[k])})
	}
	return out
}

// filterToBSON converts a validated filter. String values compared against
// the identifier field are converted to ObjectIDs when they parse as one.
func filterToBSON(f model.Filter) bson.D {
	out := make(bson.D, 0, len(f))
	for _, k := range f.Keys() {
		v := f[k]
		switch {
		case query.IsLogicalOperator(k):
			clauses := make(bson.A, 0, len(v.Items()))
			for _, c := range v.Items() {
				clauses = append(clauses, filterToBSON(c.Object()))
			}
			out = append(out, bson.E{Key: k, Value: clauses})
		case k == model.IDField:
			out = append(out, bson.E{Key: k, Value: idCondition(v)})
		default:
			out = append(out, bson.E{Key: k, Value: toBSON(v)})
		}
	}
	return out
}

func idCondition(v model.Value) any {
	if !query.IsOperatorDocument(v) {
		return idValue(v)
	}
	ops := v.Object()
	out := make(bson.D, 0, len(ops))
	for _, op := range ops.Keys() {
		arg := ops[op]
		switch op {
		case query.OpIn, query.OpNin:
			arr := make(bson.A, len(arg.Items()))
			for i, item := range arg.Items() {
				arr[i] = idValue(item)
			}
			out = append(out, bson.E{Key: op, Value: arr})
		case query.OpExists:
			out = append(out, bson.E{Key: op, Value: arg.Bool()})
		default:
			out = append(out, bson.E{Key: op, Value: idValue(arg)})
		}
	}
	return out
}

func idValue(v model.Value) any {
	if v.Kind() == model.KindString {
		if oid, err := repository.ParseIdentifier(v.Str()); err == nil {
			return oid
		}
	}
	return toBSON(v)
}

func projectionToBSON(p model.Projection) bson.D {
	if p == nil {
		return nil
	}
	out := make(bson.D, 0, len(p))
	for _, f := range p {
		out = append(out, bson.E{Key: f, Value: 1})
	}
	return out
}

// fromBSON converts a decoded driver value into a document value. ObjectIDs
// become their hex display form and dates RFC 3339 strings; other BSON
// specific types fall back to their string form. Plain scalars go through
// model.FromInterface.
func fromBSON(in any) (model.Value, error) {
	switch t := in.(type) {
	case primitive.ObjectID:
		return model.String(t.Hex()), nil
	case primitive.DateTime:
		return model.String(t.Time().UTC().Format(time.RFC3339Nano)), nil
	case primitive.Null, primitive.Undefined:
		return model.Null(), nil
	case primitive.A:
		items := make([]model.Value, len(t))
		for i, item := range t {
			v, err := fromBSON(item)
			if err != nil {
				return model.Value{}, err
			}
			items[i] = v
		}
		return model.Array(items...), nil
	case primitive.D:
		doc, err := documentFromD(t)
		if err != nil {
			return model.Value{}, err
		}
		return model.Object(doc), nil
	case primitive.M:
		doc, err := documentFromM(t)
		if err != nil {
			return model.Value{}, err
		}
		return model.Object(doc), nil
	case fmt.Stringer:
		return model.String(t.String()), nil
	}
	v, err := model.FromInterface(in)
	if err != nil {
		return model.Value{}, fmt.Errorf("unsupported BSON value of type %T", in)
	}
	return v, nil
}

func documentFromD(d primitive.D) (model.Document, error) {
	out := make(model.Document, len(d))
	for _, e := range d {
		v, err := fromBSON(e.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", e.Key, err)
		}
		out[e.Key] = v
	}
	return out, nil
}

func documentFromM(m primitive.M) (model.Document, error) {
	out := make(model.Document, len(m))
	for k, raw := range m {
		v, err := fromBSON(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}
