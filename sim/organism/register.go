// Package organism implements the organism kinds that run on the simulation
// core, together with the registry used to decode persisted organisms back
// into live behaviours.
package organism

import (
	"fmt"

	"github.com/phlipsje/continuum/sim/world"
)

// Decoder decodes the string produced by Behaviour.EncodeBehaviour of one
// organism kind back into a Behaviour.
type Decoder func(data string) (world.Behaviour, error)

// Registry maps organism kind keys to the Decoder of that kind.
type Registry struct {
	decoders map[string]Decoder
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// Register registers a Decoder for the kind key passed, replacing any decoder
// previously registered for the key.
func (reg *Registry) Register(key string, d Decoder) {
	reg.decoders[key] = d
}

// Decode decodes the behaviour of the kind and payload passed. An error is
// returned if no decoder is registered for the key or the payload does not
// parse.
func (reg *Registry) Decode(key, data string) (world.Behaviour, error) {
	d, ok := reg.decoders[key]
	if !ok {
		return nil, fmt.Errorf("decode organism: unknown kind %q", key)
	}
	b, err := d(data)
	if err != nil {
		return nil, fmt.Errorf("decode organism %q: %w", key, err)
	}
	return b, nil
}

// DefaultRegistry is a Registry holding all organism kinds implemented by
// this package.
var DefaultRegistry = NewRegistry()

func init() {
	DefaultRegistry.Register(cellKey, decodeCell)
	DefaultRegistry.Register(drifterKey, decodeDrifter)
}
