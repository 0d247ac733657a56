package designspec

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	fontDef   = regexp.MustCompile(`^Font\((.*)\)$`)
	effectDef = regexp.MustCompile(`^Effect\((.*)\)$`)
	defField  = regexp.MustCompile(`(\w+)\s*:\s*("[^"]*"|\([^)]*\)|[^,]+)`)
)

// ExtractVariables normalizes the output of get_variable_defs into a Spec.
// Values are classified by shape: colors, Font(...) and Effect(...)
// descriptors, then numbers, which count as radii when the variable name
// mentions a radius and as spacing otherwise.
func ExtractVariables(defs map[string]any) *Spec {
	c := newCollector()

	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := strings.TrimSpace(fmt.Sprint(defs[name]))
		c.variables[name] = value

		switch {
		case hexColor.MatchString(value) && hexColor.FindString(value) == value:
			c.colors.add(normalizeHex(value))
		case funcColor.FindString(value) == value && value != "":
			c.colors.add(normalizeFunc(value))
		case fontDef.MatchString(value):
			addFont(c, fontDef.FindStringSubmatch(value)[1])
		case effectDef.MatchString(value):
			c.shadows.add(effectShadow(effectDef.FindStringSubmatch(value)[1]))
			for _, h := range hexColor.FindAllString(value, -1) {
				c.colors.add(normalizeHex(h))
			}
		case isNumber(value):
			lower := strings.ToLower(name)
			if strings.Contains(lower, "radius") || strings.Contains(lower, "corner") || strings.Contains(lower, "rounded") {
				c.radii.add(withUnit(value))
			} else {
				c.spacing.add(withUnit(value))
			}
		}
	}
	return c.spec()
}

func fields(s string) map[string]string {
	out := map[string]string{}
	for _, m := range defField.FindAllStringSubmatch(s, -1) {
		out[m[1]] = strings.Trim(strings.TrimSpace(m[2]), `"`)
	}
	return out
}

func addFont(c *collector, body string) {
	f := fields(body)
	c.families.add(f["family"])
	if v := f["size"]; v != "" {
		c.sizes.add(withUnit(v))
	}
	if v := f["weight"]; v != "" {
		c.weights.add(normalizeWeight(v))
	}
	if v := f["lineHeight"]; v != "" {
		c.lineHeights.add(withUnit(v))
	}
	if v := f["letterSpacing"]; v != "" {
		c.letterSpacings.add(withUnit(v))
	}
}

// effectShadow renders a DROP_SHADOW/INNER_SHADOW descriptor as box-shadow.
func effectShadow(body string) string {
	f := fields(body)
	x, y := "0", "0"
	if off := strings.Trim(f["offset"], "()"); off != "" {
		parts := strings.Split(off, ",")
		if len(parts) == 2 {
			x, y = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		}
	}
	shadow := fmt.Sprintf("%s %s %s %s %s",
		withUnit(x), withUnit(y), withUnit(orZero(f["radius"])), withUnit(orZero(f["spread"])),
		normalizeHex(f["color"]))
	if f["type"] == "INNER_SHADOW" {
		shadow = "inset " + shadow
	}
	return strings.TrimSpace(shadow)
}

func orZero(v string) string {
	if v == "" {
		return "0"
	}
	return v
}

func isNumber(v string) bool {
	_, err := strconv.ParseFloat(v, 64)
	return err == nil
}
