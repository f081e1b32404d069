package mapping

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/spf13/cast"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/syncline/syncline/internal/domain"
	"github.com/syncline/syncline/internal/logger"
	"github.com/syncline/syncline/internal/pathutil"
)

// castFunc transforms one value. data is the whole accumulator, for casts
// that reference sibling paths. Returning unset=true removes the key; a
// removed key is never re-written by later casts.
type castFunc func(value any, arg string, data map[string]any) (result any, unset bool, err error)

// castRegistry maps cast operator names to handlers. Built once at package
// init so dispatch stays a table lookup, not string matching per call.
var castRegistry = map[string]castFunc{
	"string":                  castString,
	"bool":                    castBool,
	"boolean":                 castBool,
	"int":                     castInt,
	"integer":                 castInt,
	"float":                   castFloat,
	"array":                   castArray,
	"urlEncode":               castURLEncode,
	"urlDecode":               castURLDecode,
	"base64Encode":            castBase64Encode,
	"base64Decode":            castBase64Decode,
	"htmlEncode":              castHTMLEncode,
	"htmlDecode":              castHTMLDecode,
	"jsonEncode":              castJSONEncode,
	"jsonDecode":              castJSONDecode,
	"transliterate":           castTransliterate,
	"nullStringToNull":        castNullStringToNull,
	"unsetIfValue":            castUnsetIfValue,
	"unsetIfEmpty":            castUnsetIfEmpty,
	"unsetIfNull":             castUnsetIfEmpty,
	"setNullIfValue":          castSetNullIfValue,
	"countValue":              castCountValue,
	"coordinateStringToArray": castCoordinates,
	"moneyStringToInt":        castMoneyStringToInt,
	"intToMoneyString":        castIntToMoneyString,
}

// applyCasts runs the cast list of one path in order. The path must exist;
// casting an absent path is a no-op. An unknown cast is logged and skipped,
// never fatal.
func (e *Engine) applyCasts(ctx context.Context, data map[string]any, fc domain.FieldCast) {
	value, ok := pathutil.Get(data, fc.Path)
	if !ok {
		return
	}

	for _, spec := range fc.Casts {
		name, arg := parseCastSpec(spec)
		fn, known := castRegistry[name]
		if !known {
			logger.FromContext(ctx).Warn("Unknown cast operator, skipping", "cast", name, "path", fc.Path)
			continue
		}

		result, unset, err := fn(value, arg, data)
		if err != nil {
			logger.FromContext(ctx).Warn("Cast failed, keeping value", "cast", name, "path", fc.Path, "error", err)
			continue
		}
		if unset {
			pathutil.Delete(data, fc.Path)
			return
		}
		value = result
		pathutil.Set(data, fc.Path, value)
	}
}

// parseCastSpec splits "unsetIfValue==x" and "countValue:path" style specs
// into operator name and argument.
func parseCastSpec(spec string) (name, arg string) {
	if i := strings.Index(spec, "=="); i >= 0 {
		return spec[:i], spec[i+2:]
	}
	if i := strings.Index(spec, ":"); i >= 0 {
		return spec[:i], spec[i+1:]
	}
	return spec, ""
}

func castString(value any, _ string, _ map[string]any) (any, bool, error) {
	s, err := cast.ToStringE(value)
	return s, false, err
}

func castBool(value any, _ string, _ map[string]any) (any, bool, error) {
	b, err := cast.ToBoolE(value)
	return b, false, err
}

func castInt(value any, _ string, _ map[string]any) (any, bool, error) {
	i, err := cast.ToIntE(value)
	return i, false, err
}

func castFloat(value any, _ string, _ map[string]any) (any, bool, error) {
	f, err := cast.ToFloat64E(value)
	return f, false, err
}

func castArray(value any, _ string, _ map[string]any) (any, bool, error) {
	if list, ok := value.([]any); ok {
		return list, false, nil
	}
	return []any{value}, false, nil
}

func castURLEncode(value any, _ string, _ map[string]any) (any, bool, error) {
	s, err := cast.ToStringE(value)
	if err != nil {
		return nil, false, err
	}
	return url.QueryEscape(s), false, nil
}

func castURLDecode(value any, _ string, _ map[string]any) (any, bool, error) {
	s, err := cast.ToStringE(value)
	if err != nil {
		return nil, false, err
	}
	decoded, err := url.QueryUnescape(s)
	return decoded, false, err
}

func castBase64Encode(value any, _ string, _ map[string]any) (any, bool, error) {
	s, err := cast.ToStringE(value)
	if err != nil {
		return nil, false, err
	}
	return base64.StdEncoding.EncodeToString([]byte(s)), false, nil
}

func castBase64Decode(value any, _ string, _ map[string]any) (any, bool, error) {
	s, err := cast.ToStringE(value)
	if err != nil {
		return nil, false, err
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, false, err
	}
	return string(decoded), false, nil
}

func castHTMLEncode(value any, _ string, _ map[string]any) (any, bool, error) {
	s, err := cast.ToStringE(value)
	if err != nil {
		return nil, false, err
	}
	return html.EscapeString(s), false, nil
}

func castHTMLDecode(value any, _ string, _ map[string]any) (any, bool, error) {
	s, err := cast.ToStringE(value)
	if err != nil {
		return nil, false, err
	}
	return html.UnescapeString(s), false, nil
}

func castJSONEncode(value any, _ string, _ map[string]any) (any, bool, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, false, err
	}
	return string(encoded), false, nil
}

func castJSONDecode(value any, _ string, _ map[string]any) (any, bool, error) {
	s, err := cast.ToStringE(value)
	if err != nil {
		return nil, false, err
	}
	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return nil, false, err
	}
	return decoded, false, nil
}

// castTransliterate strips diacritics down to ASCII (é -> e, ß stays)
func castTransliterate(value any, _ string, _ map[string]any) (any, bool, error) {
	s, err := cast.ToStringE(value)
	if err != nil {
		return nil, false, err
	}
	chain := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(chain, s)
	return out, false, err
}

func castNullStringToNull(value any, _ string, _ map[string]any) (any, bool, error) {
	if s, ok := value.(string); ok && (s == "null" || s == "NULL") {
		return nil, false, nil
	}
	return value, false, nil
}

func castUnsetIfValue(value any, arg string, _ map[string]any) (any, bool, error) {
	if cast.ToString(value) == arg {
		return nil, true, nil
	}
	return value, false, nil
}

func castUnsetIfEmpty(value any, _ string, _ map[string]any) (any, bool, error) {
	if isEmptyValue(value) {
		return nil, true, nil
	}
	return value, false, nil
}

func castSetNullIfValue(value any, arg string, _ map[string]any) (any, bool, error) {
	if cast.ToString(value) == arg {
		return nil, false, nil
	}
	return value, false, nil
}

// castCountValue replaces the value with the element count of the
// collection found at the argument path.
func castCountValue(value any, arg string, data map[string]any) (any, bool, error) {
	target, ok := pathutil.Get(data, arg)
	if !ok {
		return 0, false, nil
	}
	switch node := target.(type) {
	case []any:
		return len(node), false, nil
	case map[string]any:
		return len(node), false, nil
	default:
		return 0, false, fmt.Errorf("countValue path %q does not hold a collection", arg)
	}
}

// castCoordinates parses "52.37, 4.89" into a two-element float list
func castCoordinates(value any, _ string, _ map[string]any) (any, bool, error) {
	s, err := cast.ToStringE(value)
	if err != nil {
		return nil, false, err
	}
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	coords := make([]any, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, false, fmt.Errorf("invalid coordinate component %q: %w", p, err)
		}
		coords = append(coords, f)
	}
	if len(coords) == 0 {
		return nil, false, fmt.Errorf("no coordinates in %q", s)
	}
	return coords, false, nil
}

// castMoneyStringToInt parses a money string like "€ 1.234,56" into cents
func castMoneyStringToInt(value any, _ string, _ map[string]any) (any, bool, error) {
	s, err := cast.ToStringE(value)
	if err != nil {
		return nil, false, err
	}

	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) || r == ',' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return nil, false, fmt.Errorf("no numeric content in %q", s)
	}

	// The right-most separator is the decimal separator; the other one is
	// a thousands separator.
	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	if lastComma > lastDot {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	} else if lastDot > lastComma {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil, false, fmt.Errorf("invalid money string %q: %w", s, err)
	}
	return int(math.Round(f * 100)), false, nil
}

// castIntToMoneyString renders cents as a decimal money string
func castIntToMoneyString(value any, _ string, _ map[string]any) (any, bool, error) {
	cents, err := cast.ToIntE(value)
	if err != nil {
		return nil, false, err
	}
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100), false, nil
}

func isEmptyValue(value any) bool {
	switch node := value.(type) {
	case nil:
		return true
	case string:
		return node == ""
	case []any:
		return len(node) == 0
	case map[string]any:
		return len(node) == 0
	}
	return false
}
