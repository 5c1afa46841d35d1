package pkg

import (
	"fmt"
	"strings"
)

// ObfuscationMode controls what happens when a configured property turns out
// to hold an object or array instead of a scalar.
type ObfuscationMode int

const (
	// ModeObfuscate treats the whole nested structure as one opaque span.
	ModeObfuscate ObfuscationMode = iota
	// ModeExclude leaves the structure alone, as if the property had no
	// obfuscator at all.
	ModeExclude
	// ModeInherit keeps the structure intact but obfuscates every scalar
	// found anywhere inside it, even under properties with their own
	// configuration.
	ModeInherit
	// ModeInheritOverridable is ModeInherit, except that a nested property
	// with its own configuration takes precedence for its subtree.
	ModeInheritOverridable
)

func (m ObfuscationMode) String() string {
	switch m {
	case ModeObfuscate:
		return "obfuscate"
	case ModeExclude:
		return "exclude"
	case ModeInherit:
		return "inherit"
	case ModeInheritOverridable:
		return "inherit-overridable"
	default:
		return fmt.Sprintf("ObfuscationMode(%d)", int(m))
	}
}

func (m ObfuscationMode) valid() bool {
	return m >= ModeObfuscate && m <= ModeInheritOverridable
}

// PropertyConfig is the immutable per-property configuration: the obfuscator
// plus the handling modes for nested objects and arrays.
type PropertyConfig struct {
	Obfuscator Obfuscator
	ObjectMode ObfuscationMode
	ArrayMode  ObfuscationMode
}

// Equal reports structural equality: same obfuscator and same modes.
func (c *PropertyConfig) Equal(other *PropertyConfig) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.Obfuscator == other.Obfuscator &&
		c.ObjectMode == other.ObjectMode &&
		c.ArrayMode == other.ArrayMode
}

func (c *PropertyConfig) mode(array bool) ObfuscationMode {
	if array {
		return c.ArrayMode
	}
	return c.ObjectMode
}

// propertyEntry is one registration in builder order.
type propertyEntry struct {
	name          string
	caseSensitive bool
	config        PropertyConfig
}

// propertyTable is the built lookup structure. Exact-case entries win over
// case-insensitive ones.
type propertyTable struct {
	exact  map[string]*PropertyConfig
	folded map[string]*PropertyConfig
}

func buildPropertyTable(entries []propertyEntry) (*propertyTable, error) {
	t := &propertyTable{
		exact:  make(map[string]*PropertyConfig, len(entries)),
		folded: make(map[string]*PropertyConfig),
	}
	for i := range entries {
		e := &entries[i]
		if e.name == "" {
			return nil, fmt.Errorf("property name cannot be empty")
		}
		if e.config.Obfuscator == nil {
			return nil, fmt.Errorf("property %q has no obfuscator", e.name)
		}
		if !e.config.ObjectMode.valid() || !e.config.ArrayMode.valid() {
			return nil, fmt.Errorf("property %q has an invalid obfuscation mode", e.name)
		}
		if e.caseSensitive {
			if _, ok := t.exact[e.name]; ok {
				return nil, fmt.Errorf("property %q is registered twice", e.name)
			}
			t.exact[e.name] = &e.config
		} else {
			key := strings.ToLower(e.name)
			if _, ok := t.folded[key]; ok {
				return nil, fmt.Errorf("property %q is registered twice case-insensitively", e.name)
			}
			t.folded[key] = &e.config
		}
	}
	return t, nil
}

func (t *propertyTable) lookup(name string) *PropertyConfig {
	if c, ok := t.exact[name]; ok {
		return c
	}
	if c, ok := t.folded[strings.ToLower(name)]; ok {
		return c
	}
	return nil
}
