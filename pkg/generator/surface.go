package generator

import (
	"fmt"

	"github.com/chazu/chisel/pkg/brush"
)

// Surface is one slot of a SurfaceDefinition: the opaque layer id handed
// out by the material manager plus its texturing parameters.
type Surface struct {
	LayerID     int32                    `yaml:"layer,omitempty"`
	Description brush.SurfaceDescription `yaml:"description,omitempty"`
}

// SurfaceDefinition assigns surfaces to the slots of a shape.
type SurfaceDefinition struct {
	Surfaces []Surface `yaml:"surfaces,omitempty"`
}

// EnsureSize grows the definition to n slots, filling new slots with
// defaults. It reports whether the definition changed.
func (s *SurfaceDefinition) EnsureSize(n int) bool {
	if len(s.Surfaces) >= n {
		return false
	}
	for len(s.Surfaces) < n {
		s.Surfaces = append(s.Surfaces, Surface{Description: brush.DefaultSurfaceDescription()})
	}
	return true
}

// Get returns slot i, or a default surface when i is out of range.
func (s *SurfaceDefinition) Get(i int) Surface {
	if s == nil || i < 0 || i >= len(s.Surfaces) {
		return Surface{Description: brush.DefaultSurfaceDescription()}
	}
	return s.Surfaces[i]
}

// loop builds a polygon loop for slot i.
func (s *SurfaceDefinition) loop(i int, vertices ...int32) brush.PolygonLoop {
	sf := s.Get(i)
	return brush.PolygonLoop{
		Vertices:  vertices,
		SurfaceID: int32(i),
		LayerID:   sf.LayerID,
		Surface:   sf.Description,
	}
}

// Severity classifies a Message.
type Severity uint8

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Message is a one-line note about a shape, e.g. a clamped parameter.
type Message struct {
	Severity Severity
	Text     string
}

func (m Message) String() string {
	return m.Severity.String() + ": " + m.Text
}

// MessageHandler receives shape messages.
type MessageHandler func(Message)

// messages collects warnings raised while clamping parameters.
type messages []Message

func (m *messages) warnf(format string, args ...any) {
	*m = append(*m, Message{Severity: SeverityWarning, Text: fmt.Sprintf(format, args...)})
}

func (m *messages) reset() {
	*m = (*m)[:0]
}

func (m messages) report(h MessageHandler) {
	if h == nil {
		return
	}
	for _, msg := range m {
		h(msg)
	}
}
