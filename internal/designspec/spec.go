// Package designspec scrapes design tokens out of code generated by Figma and
// out of Figma variable definitions.
package designspec

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Token is one distinct value and how often it was seen.
type Token struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

type Typography struct {
	FontFamilies   []Token `json:"fontFamilies"`
	FontSizes      []Token `json:"fontSizes"`
	FontWeights    []Token `json:"fontWeights"`
	LineHeights    []Token `json:"lineHeights"`
	LetterSpacings []Token `json:"letterSpacings"`
}

// Spec is the extracted design specification. Token lists are deduplicated
// and ordered by descending count, then by value.
type Spec struct {
	NodeID     string            `json:"nodeId,omitempty"`
	Colors     []Token           `json:"colors"`
	Typography Typography        `json:"typography"`
	Spacing    []Token           `json:"spacing"`
	Radii      []Token           `json:"radii"`
	Shadows    []Token           `json:"shadows"`
	Variables  map[string]string `json:"variables"`
}

// IsEmpty reports whether nothing was extracted.
func (s *Spec) IsEmpty() bool {
	t := s.Typography
	return len(s.Colors)+len(s.Spacing)+len(s.Radii)+len(s.Shadows)+len(s.Variables)+
		len(t.FontFamilies)+len(t.FontSizes)+len(t.FontWeights)+len(t.LineHeights)+len(t.LetterSpacings) == 0
}

// WriteJSON writes spec as indented JSON.
func WriteJSON(w io.Writer, spec *Spec) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(spec); err != nil {
		return fmt.Errorf("failed to encode design spec: %w", err)
	}
	return nil
}

// Merge combines specs, summing counts. Later variables win on name clashes.
func Merge(specs ...*Spec) *Spec {
	c := newCollector()
	nodeID := ""
	for _, s := range specs {
		if s == nil {
			continue
		}
		if nodeID == "" {
			nodeID = s.NodeID
		}
		c.addTokens(&c.colors, s.Colors)
		c.addTokens(&c.families, s.Typography.FontFamilies)
		c.addTokens(&c.sizes, s.Typography.FontSizes)
		c.addTokens(&c.weights, s.Typography.FontWeights)
		c.addTokens(&c.lineHeights, s.Typography.LineHeights)
		c.addTokens(&c.letterSpacings, s.Typography.LetterSpacings)
		c.addTokens(&c.spacing, s.Spacing)
		c.addTokens(&c.radii, s.Radii)
		c.addTokens(&c.shadows, s.Shadows)
		for k, v := range s.Variables {
			c.variables[k] = v
		}
	}
	out := c.spec()
	out.NodeID = nodeID
	return out
}

// counter counts normalized values.
type counter map[string]int

func (c counter) add(v string) {
	if v != "" {
		c[v]++
	}
}

func (c counter) tokens() []Token {
	out := make([]Token, 0, len(c))
	for v, n := range c {
		out = append(out, Token{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

type collector struct {
	colors, families, sizes, weights, lineHeights, letterSpacings counter
	spacing, radii, shadows                                        counter
	variables                                                      map[string]string
}

func newCollector() *collector {
	return &collector{
		colors: counter{}, families: counter{}, sizes: counter{}, weights: counter{},
		lineHeights: counter{}, letterSpacings: counter{},
		spacing: counter{}, radii: counter{}, shadows: counter{},
		variables: map[string]string{},
	}
}

func (c *collector) addTokens(dst *counter, tokens []Token) {
	for _, t := range tokens {
		(*dst)[t.Value] += t.Count
	}
}

func (c *collector) spec() *Spec {
	return &Spec{
		Colors: c.colors.tokens(),
		Typography: Typography{
			FontFamilies:   c.families.tokens(),
			FontSizes:      c.sizes.tokens(),
			FontWeights:    c.weights.tokens(),
			LineHeights:    c.lineHeights.tokens(),
			LetterSpacings: c.letterSpacings.tokens(),
		},
		Spacing:   c.spacing.tokens(),
		Radii:     c.radii.tokens(),
		Shadows:   c.shadows.tokens(),
		Variables: c.variables,
	}
}
