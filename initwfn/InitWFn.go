// Package initwfn implements functionality to wrap Gorgonia InitWFn
// so that they can be JSON serialized into configuraiton files.
//
// Unlike the initializers bundled with Gorgonia, every initializer of
// this package draws from an explicit random source, so that two
// networks created from the same seed have identical parameters.
package initwfn

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
)

// Type describes different types of InitWFn that are available.
// Type is used to implement a basic type system of InitWFn's.
type Type string

// Available InitWFn types
const (
	GlorotU    Type = "GlorotU"
	GlorotN    Type = "GlorotN"
	HeU        Type = "HeU"
	HeN        Type = "HeN"
	Zeroes     Type = "Zeroes"
	Ones       Type = "Ones"
	Constant   Type = "Constant"
	Gaussian   Type = "Gaussian"
	Uniform    Type = "Uniform"
	Orthogonal Type = "Orthogonal"
)

// registered maps each Type to the concrete Config it unmarshals into
var registered = map[string]reflect.Type{
	string(GlorotU):    reflect.TypeOf(GlorotUConfig{}),
	string(GlorotN):    reflect.TypeOf(GlorotNConfig{}),
	string(HeU):        reflect.TypeOf(HeUConfig{}),
	string(HeN):        reflect.TypeOf(HeNConfig{}),
	string(Zeroes):     reflect.TypeOf(ZeroesConfig{}),
	string(Ones):       reflect.TypeOf(OnesConfig{}),
	string(Constant):   reflect.TypeOf(ConstantConfig{}),
	string(Gaussian):   reflect.TypeOf(GaussianConfig{}),
	string(Uniform):    reflect.TypeOf(UniformConfig{}),
	string(Orthogonal): reflect.TypeOf(OrthogonalConfig{}),
}

// InitWFn wraps a weight initializer configuration so that it can be
// JSON marshalled and unmarshalled.
type InitWFn struct {
	Type
	Config
}

// newInitWFn returns a new InitWFn
func newInitWFn(c Config) *InitWFn {
	return &InitWFn{Type: c.Type(), Config: c}
}

// InitWFn returns the Gorgonia InitWFn drawing from src
func (w *InitWFn) InitWFn(src rand.Source) G.InitWFn {
	return w.Config.Create(src)
}

// String implements the fmt.Stringer interface
func (w *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %v}", w.Type, w.Config)
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (w *InitWFn) UnmarshalJSON(data []byte) error {
	config, typeName, err := unmarshalConfig(data, "Type", "Config",
		registered)
	if err != nil {
		return err
	}

	w.Type = typeName
	w.Config = config
	return nil
}

// unmarshalConfig uses reflection to unmarshall a Config into its
// concrete type. Both the Config and its Type are returned.
func unmarshalConfig(data []byte, typeJsonField, valueJsonField string,
	customTypes map[string]reflect.Type) (Config, Type, error) {
	m := map[string]interface{}{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, "", err
	}

	typeName, ok := m[typeJsonField].(string)
	if !ok {
		return nil, "", errors.Errorf("unmarshalConfig: missing %q field",
			typeJsonField)
	}
	ty, found := customTypes[typeName]
	if !found {
		return nil, "", errors.Errorf("unmarshalConfig: unknown InitWFn "+
			"type %q", typeName)
	}
	value := reflect.New(ty).Interface()

	if raw, ok := m[valueJsonField]; ok && raw != nil {
		valueBytes, err := json.Marshal(raw)
		if err != nil {
			return nil, "", err
		}
		if err = json.Unmarshal(valueBytes, value); err != nil {
			return nil, "", err
		}
	}
	concreteValue := reflect.ValueOf(value).Elem().Interface().(Config)

	return concreteValue, Type(typeName), nil
}

// Config implements a Gorgonia InitWFn configuration and can be used to
// create the described Gorgonia InitWFn's.
type Config interface {
	// Create returns the Gorgonia InitWFn that the Config describes,
	// drawing random numbers from src
	Create(src rand.Source) G.InitWFn

	// Type returns the type of Gorgonia InitWFn that is returned
	Type() Type
}

// fans returns the fan in and fan out of a weight tensor of shape s,
// whose first dimension indexes inputs
func fans(s ...int) (fanIn, fanOut float64) {
	if len(s) == 0 {
		return 1, 1
	}
	fanIn = float64(s[0])
	fanOut = 1
	for _, d := range s[1:] {
		fanOut *= float64(d)
	}
	if len(s) == 1 {
		fanOut = fanIn
	}
	return fanIn, fanOut
}

// size returns the number of elements in a tensor of shape s
func size(s ...int) int {
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}
