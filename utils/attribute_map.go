package utils

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// AttributeMap is a free-form set of configuration attributes, typically decoded from JSON.
type AttributeMap map[string]interface{}

// Has reports whether the attribute is present, even if its value is nil.
func (am AttributeMap) Has(name string) bool {
	_, has := am[name]
	return has
}

// Missing returns the names from required that are absent from the map, in the order given.
func (am AttributeMap) Missing(required ...string) []string {
	var missing []string
	for _, name := range required {
		if !am.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Float64Slice returns the named attribute as a slice of floats. JSON numbers decode as float64,
// integers are accepted too.
func (am AttributeMap) Float64Slice(name string) ([]float64, error) {
	raw, ok := am[name]
	if !ok {
		return nil, errors.Errorf("attribute %q not found", name)
	}
	switch v := raw.(type) {
	case []float64:
		return v, nil
	case []interface{}:
		out := make([]float64, 0, len(v))
		for i, elem := range v {
			switch num := elem.(type) {
			case float64:
				out = append(out, num)
			case int:
				out = append(out, float64(num))
			default:
				return nil, errors.Errorf("attribute %q element %d: expected a number but got %T", name, i, elem)
			}
		}
		return out, nil
	default:
		return nil, NewUnexpectedTypeError([]float64{}, raw)
	}
}

// Int returns the named attribute as an int, falling back to def when absent.
func (am AttributeMap) Int(name string, def int) (int, error) {
	raw, ok := am[name]
	if !ok {
		return def, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return def, errors.Errorf("wanted an int for %q but got (%v) %T", name, raw, raw)
	}
}

// TransformAttributeMapToStruct decodes the attributes into target using its json tags. Unknown
// attributes are an error so that typos in config files are reported.
func TransformAttributeMapToStruct(target interface{}, attributes AttributeMap) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           target,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return errors.Wrap(err, "error creating attribute decoder")
	}
	if err := decoder.Decode(map[string]interface{}(attributes)); err != nil {
		return errors.Wrap(err, "error decoding attributes")
	}
	return nil
}
