package designspec

import (
	"regexp"
	"strings"
)

var (
	hexColor  = regexp.MustCompile(`#(?:[0-9a-fA-F]{8}|[0-9a-fA-F]{6}|[0-9a-fA-F]{3,4})\b`)
	funcColor = regexp.MustCompile(`(?i)\b(?:rgba?|hsla?)\([^()]*\)`)

	cssVarDecl     = regexp.MustCompile(`(?m)(?:^|[\s{;\[])(--[A-Za-z0-9_-]+)\s*:\s*([^;}\]\n]+)`)
	cssVarFallback = regexp.MustCompile(`var\(\s*(--[A-Za-z0-9_-]+)\s*,\s*((?:[^()]|\([^()]*\))+)\)`)

	fontFamilyCSS = regexp.MustCompile(`(?i)font-family\s*:\s*([^;}\n]+)`)
	fontFamilyJSX = regexp.MustCompile(`fontFamily\s*:\s*["'\x60]([^"'\x60]+)["'\x60]`)
	fontTW        = regexp.MustCompile(`\bfont-\[([^\]]+)\]`)
	fontWeightTW  = regexp.MustCompile(`\bfont-(thin|extralight|light|normal|medium|semibold|bold|extrabold|black)\b`)

	fontSizeCSS = regexp.MustCompile(`(?i)font-size\s*:\s*([\d.]+(?:px|rem|em|%))`)
	fontSizeJSX = regexp.MustCompile(`fontSize\s*:\s*["']?([\d.]+(?:px|rem|em)?)`)
	fontSizeTW  = regexp.MustCompile(`\btext-\[([\d.]+(?:px|rem|em))\]`)

	fontWeightCSS = regexp.MustCompile(`(?i)font-weight\s*:\s*(\d{3}|bold|normal|lighter|bolder)`)
	fontWeightJSX = regexp.MustCompile(`fontWeight\s*:\s*["']?(\d{3}|bold|normal)`)

	lineHeightCSS = regexp.MustCompile(`(?i)line-height\s*:\s*([\d.]+(?:px|rem|em|%)?|normal)`)
	lineHeightJSX = regexp.MustCompile(`lineHeight\s*:\s*["']?([\d.]+(?:px|rem|em|%)?)`)
	lineHeightTW  = regexp.MustCompile(`\bleading-\[([^\]]+)\]`)

	letterSpacingCSS = regexp.MustCompile(`(?i)letter-spacing\s*:\s*(-?[\d.]+(?:px|rem|em|%)?|normal)`)
	letterSpacingJSX = regexp.MustCompile(`letterSpacing\s*:\s*["']?(-?[\d.]+(?:px|rem|em|%)?)`)
	letterSpacingTW  = regexp.MustCompile(`\btracking-\[([^\]]+)\]`)

	spacingCSS = regexp.MustCompile(`(?i)(?:^|[^-\w])(?:padding|margin|gap|row-gap|column-gap)(?:-(?:top|right|bottom|left|inline|block))?\s*:\s*([^;}\n"']+)`)
	spacingJSX = regexp.MustCompile(`\b(?:padding|margin|gap|rowGap|columnGap)(?:Top|Right|Bottom|Left|Inline|Block)?\s*:\s*["']?(-?[\d.]+(?:px)?)`)
	spacingTW  = regexp.MustCompile(`(?:^|[\s"'\x60:])-?(?:p|px|py|pt|pr|pb|pl|ps|pe|m|mx|my|mt|mr|mb|ml|ms|me|gap|gap-x|gap-y|space-x|space-y|inset|top|right|bottom|left)-\[(-?[\d.]+px)\]`)
	sizeCSS    = regexp.MustCompile(`(?i)(?:^|[^-\w])(?:min-|max-)?(?:width|height)\s*:\s*([\d.]+px)`)
	sizeTW     = regexp.MustCompile(`(?:^|[\s"'\x60:])(?:w|h|size|min-w|min-h|max-w|max-h)-\[([\d.]+px)\]`)
	pxValue    = regexp.MustCompile(`-?[\d.]+px`)

	radiusCSS = regexp.MustCompile(`(?i)border(?:-(?:top|bottom)-(?:left|right))?-radius\s*:\s*([^;}\n"]+)`)
	radiusJSX = regexp.MustCompile(`borderRadius\s*:\s*["']?([\d.]+(?:px|rem|%)?)`)
	radiusTW  = regexp.MustCompile(`\brounded(?:-(?:t|r|b|l|tl|tr|bl|br|s|e|ss|se|es|ee))?-\[([^\]]+)\]`)

	shadowCSS = regexp.MustCompile(`(?i)box-shadow\s*:\s*([^;}\n]+)`)
	shadowJSX = regexp.MustCompile(`boxShadow\s*:\s*["'\x60]([^"'\x60]+)["'\x60]`)
	shadowTW  = regexp.MustCompile(`\bshadow-\[([^\]]+)\]`)

	numericOnly = regexp.MustCompile(`^\d{3}$`)
	spaceRun    = regexp.MustCompile(`\s+`)
)

var namedWeights = map[string]string{
	"thin": "100", "extralight": "200", "light": "300", "normal": "400", "medium": "500",
	"semibold": "600", "bold": "700", "extrabold": "800", "black": "900",
}

// Extract scrapes colors, typography, spacing, radii, shadows and CSS
// variables from generated code. It understands plain CSS, React inline style
// objects and Tailwind arbitrary values.
func Extract(code string) *Spec {
	c := newCollector()

	for _, m := range hexColor.FindAllString(code, -1) {
		c.colors.add(normalizeHex(m))
	}
	for _, m := range funcColor.FindAllString(code, -1) {
		c.colors.add(normalizeFunc(m))
	}

	for _, m := range cssVarDecl.FindAllStringSubmatch(code, -1) {
		c.variables[m[1]] = cleanValue(m[2])
	}
	for _, m := range cssVarFallback.FindAllStringSubmatch(code, -1) {
		if _, declared := c.variables[m[1]]; !declared {
			c.variables[m[1]] = cleanValue(m[2])
		}
	}

	collectFamilies(c, code)
	collectAll(c.sizes, code, true, fontSizeCSS, fontSizeJSX, fontSizeTW)
	collectWeights(c, code)
	collectAll(c.lineHeights, code, false, lineHeightCSS, lineHeightJSX, lineHeightTW)
	collectAll(c.letterSpacings, code, true, letterSpacingCSS, letterSpacingJSX, letterSpacingTW)

	for _, m := range spacingCSS.FindAllStringSubmatch(code, -1) {
		for _, px := range pxValue.FindAllString(m[1], -1) {
			c.spacing.add(px)
		}
	}
	collectAll(c.spacing, code, true, spacingJSX, spacingTW, sizeCSS, sizeTW)

	collectAll(c.radii, code, true, radiusCSS, radiusJSX, radiusTW)
	collectAll(c.shadows, code, false, shadowCSS, shadowJSX, shadowTW)

	return c.spec()
}

// collectAll adds the first group of every match. With px set, bare numbers
// from React style objects get a px unit.
func collectAll(dst counter, code string, px bool, patterns ...*regexp.Regexp) {
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(code, -1) {
			v := cleanValue(m[1])
			if px {
				v = withUnit(v)
			}
			dst.add(v)
		}
	}
}

func collectFamilies(c *collector, code string) {
	for _, re := range []*regexp.Regexp{fontFamilyCSS, fontFamilyJSX} {
		for _, m := range re.FindAllStringSubmatch(code, -1) {
			c.families.add(primaryFamily(m[1]))
		}
	}
	// font-[...] holds a family, a weight, or Figma's 'Family:Style' form.
	for _, m := range fontTW.FindAllStringSubmatch(code, -1) {
		v := cleanValue(m[1])
		if numericOnly.MatchString(v) {
			c.weights.add(v)
			continue
		}
		if strings.Contains(v, "var(") {
			continue
		}
		c.families.add(primaryFamily(v))
	}
}

func collectWeights(c *collector, code string) {
	for _, re := range []*regexp.Regexp{fontWeightCSS, fontWeightJSX} {
		for _, m := range re.FindAllStringSubmatch(code, -1) {
			c.weights.add(normalizeWeight(m[1]))
		}
	}
	for _, m := range fontWeightTW.FindAllStringSubmatch(code, -1) {
		c.weights.add(namedWeights[m[1]])
	}
}

// cleanValue turns Tailwind underscores back into spaces and trims quotes,
// trailing "!important" and whitespace.
func cleanValue(v string) string {
	v = strings.ReplaceAll(v, "_", " ")
	v = strings.TrimSpace(v)
	v = strings.TrimSuffix(v, "!important")
	v = strings.Trim(strings.TrimSpace(v), `"',`)
	return spaceRun.ReplaceAllString(strings.TrimSpace(v), " ")
}

func withUnit(v string) string {
	if v == "" || v == "0" {
		return v
	}
	if strings.Trim(v, "-0123456789.") == "" && strings.ContainsAny(v, "123456789") {
		return v + "px"
	}
	return v
}

func primaryFamily(v string) string {
	v = cleanValue(v)
	if i := strings.Index(v, ","); i >= 0 {
		v = v[:i]
	}
	v = strings.Trim(strings.TrimSpace(v), `"'`)
	// Figma emits 'Inter:Semi_Bold'.
	if i := strings.Index(v, ":"); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

func normalizeWeight(v string) string {
	switch strings.ToLower(v) {
	case "normal":
		return "400"
	case "bold":
		return "700"
	}
	return strings.ToLower(v)
}

// normalizeHex lowercases and expands #abc/#abcd to six/eight digits.
func normalizeHex(h string) string {
	h = strings.ToLower(h)
	if len(h) == 4 || len(h) == 5 {
		var b strings.Builder
		b.WriteByte('#')
		for _, r := range h[1:] {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		return b.String()
	}
	return h
}

func normalizeFunc(f string) string {
	f = strings.ToLower(f)
	f = strings.ReplaceAll(f, "_", " ")
	f = spaceRun.ReplaceAllString(f, "")
	return f
}
