package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeOrderedJSON parses JSON into a Value tree while preserving source
// object key order — encoding/json's map[string]any decoding does not, and
// the data model specifies context maps are ordered. Used when
// parsing staticVars and request-step bodies; the preserved order is what
// OrderedMap.Keys reports. compactJSON output does not depend on it, since
// it marshals through map[string]any and so emits keys in sorted order.
func DecodeOrderedJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := NewOrderedMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("engine: expected object key, got %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				m.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return Value{}, err
			}
			return Value{Kind: KindMap, Map: m}, nil
		case '[':
			var items []Value
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, val)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Value{}, err
			}
			return Value{Kind: KindList, List: items}, nil
		default:
			return Value{}, fmt.Errorf("engine: unexpected delimiter %v", t)
		}
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return Number(f), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null, nil
	default:
		return Value{}, fmt.Errorf("engine: unexpected token %v (%T)", tok, tok)
	}
}

// compactJSON renders v as compact JSON, used by AsString for complex values
// substituted into `##VAR:string:name##` markers.
func compactJSON(v Value) (string, error) {
	b, err := json.Marshal(v.ToAny())
	if err != nil {
		return "", err
	}
	return string(b), nil
}
