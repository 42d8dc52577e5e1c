package agent

import (
	"encoding/json"
	"reflect"
	"sort"

	"github.com/pkg/errors"
)

// Type represents a specific type of a policy Config.
// Config's with this type can create policies of the corresponding type.
type Type string

const (
	// GnnFwd is the graph network actor-critic policy
	GnnFwd Type = "gnnfwd"

	// OneNode is the centralized single node baseline policy
	OneNode Type = "onenode"

	// MLP is the centralized feed forward baseline policy
	MLP Type = "mlp"
)

// Registered types with the package. Once a Type has been registered
// with this map, a Config of that type can be created by name.
//
// No Type's are registered with this package upon initialization.
// Each separate package is in charge of registering its Type with
// the package separately to avoid circular imports.
var registeredTypes = make(map[Type]reflect.Type)

// Register registers a policy Type with a concrete Config type so
// that configurations of that type can be decoded by name.
func Register(policyType Type, config Config) {
	ty := reflect.TypeOf(config)
	if ty.Kind() == reflect.Ptr {
		ty = ty.Elem()
	}
	registeredTypes[policyType] = ty
}

// NewConfig returns a pointer to a new, zero Config of the registered
// type, ready to be decoded into
func NewConfig(policyType Type) (Config, error) {
	ty, ok := registeredTypes[policyType]
	if !ok {
		return nil, errors.Errorf("newConfig: unknown policy type %q "+
			"(registered: %v)", policyType, Registered())
	}
	return reflect.New(ty).Interface().(Config), nil
}

// Registered returns the registered Types in sorted order
func Registered() []Type {
	types := make([]Type, 0, len(registeredTypes))
	for ty := range registeredTypes {
		types = append(types, ty)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// TypedConfig implements functionality for typing a Config. In this
// way, a Config can explicitly have its type stored so that when
// deserializing the Config, we can deserialize it into its concrete
// type without knowing beforehand its concrete type.
type TypedConfig struct {
	Type
	Config
}

// NewTypedConfig types the argument Config
func NewTypedConfig(c Config) TypedConfig {
	return TypedConfig{Type: c.Type(), Config: c}
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (t *TypedConfig) UnmarshalJSON(data []byte) error {
	m := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	var typeName Type
	if err := json.Unmarshal(m["Type"], &typeName); err != nil {
		return errors.Wrap(err, "unmarshalJSON: missing policy type")
	}
	config, err := NewConfig(typeName)
	if err != nil {
		return err
	}
	if raw, ok := m["Config"]; ok {
		if err := json.Unmarshal(raw, config); err != nil {
			return errors.Wrapf(err, "unmarshalJSON: %v config", typeName)
		}
	}

	t.Type = typeName
	t.Config = config
	return nil
}
