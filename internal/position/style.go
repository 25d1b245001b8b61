// internal/position/style.go
package position

import "fmt"

// StyleProbe tries one way of reading a style property. ok is false when the
// capability is missing or the property is not set. A set but empty value is
// still ok.
type StyleProbe func(el Element, prop string) (value string, ok bool)

// Probe names accepted by ProbesByName.
const (
	ProbeComputed = "computed"
	ProbeCurrent  = "current"
	ProbeInline   = "inline"
)

// DefaultProbeOrder is the order used when none is configured.
var DefaultProbeOrder = []string{ProbeComputed, ProbeCurrent, ProbeInline}

// computedStyleProbe reads the live computed style through the window.
func computedStyleProbe(win Window) StyleProbe {
	return func(el Element, prop string) (string, bool) {
		cs, ok := win.(ComputedStyler)
		if !ok {
			return "", false
		}
		return cs.ComputedStyle(el, prop)
	}
}

func currentStyleProbe(el Element, prop string) (string, bool) {
	cs, ok := el.(CurrentStyler)
	if !ok {
		return "", false
	}
	return cs.CurrentStyle(prop)
}

func inlineStyleProbe(el Element, prop string) (string, bool) {
	is, ok := el.(InlineStyler)
	if !ok {
		return "", false
	}
	return is.InlineStyle(prop)
}

// ProbesByName builds a probe chain from names, in order.
func ProbesByName(win Window, names []string) ([]StyleProbe, error) {
	probes := make([]StyleProbe, 0, len(names))
	for _, name := range names {
		switch name {
		case ProbeComputed:
			probes = append(probes, computedStyleProbe(win))
		case ProbeCurrent:
			probes = append(probes, currentStyleProbe)
		case ProbeInline:
			probes = append(probes, inlineStyleProbe)
		default:
			return nil, fmt.Errorf("unknown style probe %q", name)
		}
	}
	return probes, nil
}

// readStyle returns the value of the first probe that yields one, even when
// that value is empty.
func readStyle(probes []StyleProbe, el Element, prop string) (string, bool) {
	for _, probe := range probes {
		if v, ok := probe(el, prop); ok {
			return v, true
		}
	}
	return "", false
}

// Style reads prop from el through the positioner's probe chain.
func (p *Positioner) Style(el Element, prop string) (string, bool) {
	return readStyle(p.probes, el, prop)
}

// IsStaticPositioned reports whether el's position resolves to static.
// Unreadable and empty styles count as static.
func (p *Positioner) IsStaticPositioned(el Element) bool {
	v, ok := p.Style(el, "position")
	return !ok || v == "" || v == "static"
}
