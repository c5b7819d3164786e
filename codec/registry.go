package codec

import (
	"fmt"
	"sync"

	"github.com/cocosip/go-raw-codec/raw"
)

// Registry manages the available codecs. Detection tries codecs in the order
// they were registered.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
	order  []Codec
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Codec)}
}

var defaultRegistry = NewRegistry()

// Register registers a codec in the default registry
func Register(codec Codec) {
	defaultRegistry.Register(codec)
}

// Get retrieves a codec by name from the default registry
func Get(name string) (Codec, error) {
	return defaultRegistry.Get(name)
}

// List returns all codecs of the default registry in detection order
func List() []Codec {
	return defaultRegistry.List()
}

// Detect returns the first codec of the default registry accepting header
func Detect(header []byte) (Codec, error) {
	return defaultRegistry.Detect(header)
}

// Decode detects the container format of data and decodes it with the
// default registry
func Decode(data []byte, opts DecodeOptions) (*raw.DecodedResult, error) {
	return defaultRegistry.Decode(data, opts)
}

// Register adds codec. A codec with the same name is replaced in place, so
// re-registering does not change the detection order.
func (r *Registry) Register(codec Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := codec.Name()
	if old, ok := r.codecs[name]; ok {
		for i, c := range r.order {
			if c == old {
				r.order[i] = codec
				break
			}
		}
	} else {
		r.order = append(r.order, codec)
	}
	r.codecs[name] = codec
}

// Get retrieves a codec by name
func (r *Registry) Get(name string) (Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codec, ok := r.codecs[name]
	if !ok {
		return nil, ErrCodecNotFound
	}
	return codec, nil
}

// List returns all registered codecs in detection order
func (r *Registry) List() []Codec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]Codec(nil), r.order...)
}

// Detect returns the first codec accepting header
func (r *Registry) Detect(header []byte) (Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.order {
		if c.CanDecode(header) {
			return c, nil
		}
	}
	return nil, ErrUnsupportedFormat
}

// Decode detects the container format of data and decodes it
func (r *Registry) Decode(data []byte, opts DecodeOptions) (*raw.DecodedResult, error) {
	header := data
	if len(header) > HeaderSize {
		header = header[:HeaderSize]
	}
	c, err := r.Detect(header)
	if err != nil {
		return nil, fmt.Errorf("%w (%d byte input)", err, len(data))
	}
	raw.Logger().Debug("format detected", "codec", c.Name(), "size", len(data))
	return c.Decode(data, opts)
}
