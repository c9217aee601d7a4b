// Builtin scalar function library.
//
// Builtins resolve by upper-cased name after user-defined functions and host
// add-ins, so a host may shadow any of them. Most functions follow the
// null-in/null-out convention; COALESCE and friends are the deliberate
// exceptions.
package engine

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SimonWaldherr/slimSQL/internal/storage"
)

type builtinFunc func(ec *evalContext, args []any) (any, error)

var builtins map[string]builtinFunc

func init() {
	builtins = map[string]builtinFunc{}
	reg := func(fn builtinFunc, names ...string) {
		for _, n := range names {
			builtins[n] = fn
		}
	}

	// string
	reg(fnUpper, "UPPER", "UCASE")
	reg(fnLower, "LOWER", "LCASE")
	reg(fnLen, "LEN", "LENGTH")
	reg(fnTrim, "TRIM")
	reg(fnLTrim, "LTRIM")
	reg(fnRTrim, "RTRIM")
	reg(fnReverse, "REVERSE")
	reg(fnConcat, "CONCAT")
	reg(fnConcatWS, "CONCAT_WS")
	reg(fnReplace, "REPLACE")
	reg(fnSubstring, "SUBSTRING", "SUBSTR", "MID")
	reg(fnLeft, "LEFT")
	reg(fnRight, "RIGHT")
	reg(fnCharIndex, "CHARINDEX", "LOCATE", "INSTR")
	reg(fnPatIndex, "PATINDEX")
	reg(fnReplicate, "REPLICATE", "REPEAT")
	reg(fnSpace, "SPACE")
	reg(fnStr, "STR", "TOSTRING", "TO_CHAR")
	reg(fnAscii, "ASCII")
	reg(fnChar, "CHAR")

	// numeric
	reg(fnAbs, "ABS")
	reg(fnRound, "ROUND")
	reg(fnFloor, "FLOOR")
	reg(fnCeiling, "CEILING", "CEIL")
	reg(fnPower, "POWER", "POW")
	reg(fnSqrt, "SQRT")
	reg(fnExp, "EXP")
	reg(fnLog, "LOG", "LN")
	reg(fnLog10, "LOG10")
	reg(fnSign, "SIGN")
	reg(fnMod, "MOD")
	reg(fnRand, "RAND", "RANDOM")
	reg(fnPi, "PI")

	// null handling
	reg(fnCoalesce, "COALESCE", "NVL", "IFNULL", "ISNULL")
	reg(fnNullIf, "NULLIF")

	// date
	reg(fnNow, "NOW", "GETDATE", "CURRENT_TIMESTAMP")
	reg(fnUTCNow, "GETUTCDATE", "UTC_TIMESTAMP")
	reg(fnYear, "YEAR")
	reg(fnMonth, "MONTH")
	reg(fnDay, "DAY")
	reg(fnDateDiff, "DATEDIFF")

	// flow
	reg(fnIif, "IIF", "IF")
	reg(fnNewID, "NEWID", "UUID", "NEWGUID")
}

func wantArgs(name string, args []any, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		if min == max {
			return fmt.Errorf("%s expects %d argument(s)", name, min)
		}
		return fmt.Errorf("%s expects %d to %d arguments", name, min, max)
	}
	return nil
}

func argText(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	return storage.Text(v), true
}

func argFloat(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return storage.ToFloat(v)
}

func argInt(v any) (int64, bool) {
	if v == nil {
		return 0, false
	}
	return storage.ToInt64(v)
}

func argTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		if t, err := storage.ParseTime(x); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ------------------------------- string -------------------------------

func fnUpper(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("UPPER", args, 1, 1); err != nil {
		return nil, err
	}
	s, ok := argText(args[0])
	if !ok {
		return nil, nil
	}
	return strings.ToUpper(s), nil
}

func fnLower(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("LOWER", args, 1, 1); err != nil {
		return nil, err
	}
	s, ok := argText(args[0])
	if !ok {
		return nil, nil
	}
	return strings.ToLower(s), nil
}

func fnLen(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("LEN", args, 1, 1); err != nil {
		return nil, err
	}
	s, ok := argText(args[0])
	if !ok {
		return nil, nil
	}
	return int64(len([]rune(s))), nil
}

func fnTrim(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("TRIM", args, 1, 1); err != nil {
		return nil, err
	}
	s, ok := argText(args[0])
	if !ok {
		return nil, nil
	}
	return strings.TrimSpace(s), nil
}

func fnLTrim(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("LTRIM", args, 1, 1); err != nil {
		return nil, err
	}
	s, ok := argText(args[0])
	if !ok {
		return nil, nil
	}
	return strings.TrimLeft(s, " \t\n\r"), nil
}

func fnRTrim(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("RTRIM", args, 1, 1); err != nil {
		return nil, err
	}
	s, ok := argText(args[0])
	if !ok {
		return nil, nil
	}
	return strings.TrimRight(s, " \t\n\r"), nil
}

func fnReverse(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("REVERSE", args, 1, 1); err != nil {
		return nil, err
	}
	s, ok := argText(args[0])
	if !ok {
		return nil, nil
	}
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r), nil
}

func fnConcat(_ *evalContext, args []any) (any, error) {
	var b strings.Builder
	for _, a := range args {
		b.WriteString(storage.Text(a))
	}
	return b.String(), nil
}

// fnConcatWS joins all non-null arguments after the first with the first as
// separator; null parts are skipped, not rendered empty.
func fnConcatWS(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("CONCAT_WS", args, 1, -1); err != nil {
		return nil, err
	}
	sep, ok := argText(args[0])
	if !ok {
		return nil, nil
	}
	parts := make([]string, 0, len(args)-1)
	for _, a := range args[1:] {
		if a == nil {
			continue
		}
		parts = append(parts, storage.Text(a))
	}
	return strings.Join(parts, sep), nil
}

func fnReplace(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("REPLACE", args, 3, 3); err != nil {
		return nil, err
	}
	s, ok := argText(args[0])
	if !ok {
		return nil, nil
	}
	from, _ := argText(args[1])
	to, _ := argText(args[2])
	return strings.ReplaceAll(s, from, to), nil
}

// fnSubstring implements SUBSTRING(s, start[, length]) with 1-based start.
func fnSubstring(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("SUBSTRING", args, 2, 3); err != nil {
		return nil, err
	}
	s, ok := argText(args[0])
	if !ok {
		return nil, nil
	}
	start, ok := argInt(args[1])
	if !ok {
		return nil, nil
	}
	r := []rune(s)
	i := int(start) - 1
	if i < 0 {
		i = 0
	}
	if i >= len(r) {
		return "", nil
	}
	j := len(r)
	if len(args) == 3 {
		n, ok := argInt(args[2])
		if !ok {
			return nil, nil
		}
		if n < 0 {
			n = 0
		}
		if i+int(n) < j {
			j = i + int(n)
		}
	}
	return string(r[i:j]), nil
}

func fnLeft(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("LEFT", args, 2, 2); err != nil {
		return nil, err
	}
	s, ok := argText(args[0])
	if !ok {
		return nil, nil
	}
	n, ok := argInt(args[1])
	if !ok {
		return nil, nil
	}
	r := []rune(s)
	if n < 0 {
		n = 0
	}
	if int(n) > len(r) {
		n = int64(len(r))
	}
	return string(r[:n]), nil
}

func fnRight(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("RIGHT", args, 2, 2); err != nil {
		return nil, err
	}
	s, ok := argText(args[0])
	if !ok {
		return nil, nil
	}
	n, ok := argInt(args[1])
	if !ok {
		return nil, nil
	}
	r := []rune(s)
	if n < 0 {
		n = 0
	}
	if int(n) > len(r) {
		n = int64(len(r))
	}
	return string(r[len(r)-int(n):]), nil
}

// fnCharIndex returns the 1-based position of needle in haystack, 0 when
// absent; matching ignores case.
func fnCharIndex(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("CHARINDEX", args, 2, 2); err != nil {
		return nil, err
	}
	needle, ok := argText(args[0])
	if !ok {
		return nil, nil
	}
	hay, ok := argText(args[1])
	if !ok {
		return nil, nil
	}
	idx := strings.Index(strings.ToLower(hay), strings.ToLower(needle))
	if idx < 0 {
		return int64(0), nil
	}
	return int64(len([]rune(hay[:idx])) + 1), nil
}

// fnPatIndex is CHARINDEX with a LIKE pattern instead of a literal needle.
func fnPatIndex(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("PATINDEX", args, 2, 2); err != nil {
		return nil, err
	}
	pattern, ok := argText(args[0])
	if !ok {
		return nil, nil
	}
	s, ok := argText(args[1])
	if !ok {
		return nil, nil
	}
	re, err := likePatternRegexp(pattern)
	if err != nil {
		return int64(0), nil
	}
	loc := re.FindStringIndex(s)
	if loc == nil {
		return int64(0), nil
	}
	return int64(len([]rune(s[:loc[0]])) + 1), nil
}

func fnReplicate(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("REPLICATE", args, 2, 2); err != nil {
		return nil, err
	}
	s, ok := argText(args[0])
	if !ok {
		return nil, nil
	}
	n, ok := argInt(args[1])
	if !ok {
		return nil, nil
	}
	if n < 0 {
		n = 0
	}
	return strings.Repeat(s, int(n)), nil
}

func fnSpace(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("SPACE", args, 1, 1); err != nil {
		return nil, err
	}
	n, ok := argInt(args[0])
	if !ok {
		return nil, nil
	}
	if n < 0 {
		n = 0
	}
	return strings.Repeat(" ", int(n)), nil
}

func fnStr(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("STR", args, 1, 1); err != nil {
		return nil, err
	}
	if args[0] == nil {
		return nil, nil
	}
	return storage.Text(args[0]), nil
}

func fnAscii(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("ASCII", args, 1, 1); err != nil {
		return nil, err
	}
	s, ok := argText(args[0])
	if !ok || s == "" {
		return nil, nil
	}
	return int64([]rune(s)[0]), nil
}

func fnChar(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("CHAR", args, 1, 1); err != nil {
		return nil, err
	}
	n, ok := argInt(args[0])
	if !ok {
		return nil, nil
	}
	return string(rune(n)), nil
}

// ------------------------------- numeric -------------------------------

func fnAbs(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("ABS", args, 1, 1); err != nil {
		return nil, err
	}
	if args[0] == nil {
		return nil, nil
	}
	if n, ok := storage.AsInt64(args[0]); ok {
		if n < 0 {
			return -n, nil
		}
		return n, nil
	}
	f, ok := argFloat(args[0])
	if !ok {
		return nil, fmt.Errorf("ABS expects a number")
	}
	return math.Abs(f), nil
}

// fnRound rounds half away from zero, optionally to a digit count.
func fnRound(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("ROUND", args, 1, 2); err != nil {
		return nil, err
	}
	f, ok := argFloat(args[0])
	if !ok {
		return nil, nil
	}
	digits := int64(0)
	if len(args) == 2 {
		d, ok := argInt(args[1])
		if !ok {
			return nil, nil
		}
		digits = d
	}
	scale := math.Pow(10, float64(digits))
	return math.Round(f*scale) / scale, nil
}

func fnFloor(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("FLOOR", args, 1, 1); err != nil {
		return nil, err
	}
	f, ok := argFloat(args[0])
	if !ok {
		return nil, nil
	}
	return math.Floor(f), nil
}

func fnCeiling(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("CEILING", args, 1, 1); err != nil {
		return nil, err
	}
	f, ok := argFloat(args[0])
	if !ok {
		return nil, nil
	}
	return math.Ceil(f), nil
}

func fnPower(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("POWER", args, 2, 2); err != nil {
		return nil, err
	}
	base, ok := argFloat(args[0])
	if !ok {
		return nil, nil
	}
	exp, ok := argFloat(args[1])
	if !ok {
		return nil, nil
	}
	return math.Pow(base, exp), nil
}

func fnSqrt(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("SQRT", args, 1, 1); err != nil {
		return nil, err
	}
	f, ok := argFloat(args[0])
	if !ok {
		return nil, nil
	}
	return math.Sqrt(f), nil
}

func fnExp(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("EXP", args, 1, 1); err != nil {
		return nil, err
	}
	f, ok := argFloat(args[0])
	if !ok {
		return nil, nil
	}
	return math.Exp(f), nil
}

// fnLog is the natural logarithm; with two arguments it is LOG(x, base).
func fnLog(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("LOG", args, 1, 2); err != nil {
		return nil, err
	}
	x, ok := argFloat(args[0])
	if !ok {
		return nil, nil
	}
	if len(args) == 2 {
		base, ok := argFloat(args[1])
		if !ok {
			return nil, nil
		}
		return math.Log(x) / math.Log(base), nil
	}
	return math.Log(x), nil
}

func fnLog10(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("LOG10", args, 1, 1); err != nil {
		return nil, err
	}
	f, ok := argFloat(args[0])
	if !ok {
		return nil, nil
	}
	return math.Log10(f), nil
}

func fnSign(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("SIGN", args, 1, 1); err != nil {
		return nil, err
	}
	f, ok := argFloat(args[0])
	if !ok {
		return nil, nil
	}
	switch {
	case f > 0:
		return int64(1), nil
	case f < 0:
		return int64(-1), nil
	}
	return int64(0), nil
}

func fnMod(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("MOD", args, 2, 2); err != nil {
		return nil, err
	}
	if args[0] == nil || args[1] == nil {
		return nil, nil
	}
	return arith("%", args[0], args[1])
}

func fnRand(_ *evalContext, args []any) (any, error) {
	return rand.Float64(), nil
}

func fnPi(_ *evalContext, args []any) (any, error) {
	return math.Pi, nil
}

// ---------------------------- null handling ----------------------------

func fnCoalesce(_ *evalContext, args []any) (any, error) {
	for _, a := range args {
		if a != nil {
			return a, nil
		}
	}
	return nil, nil
}

func fnNullIf(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("NULLIF", args, 2, 2); err != nil {
		return nil, err
	}
	if args[0] == nil {
		return nil, nil
	}
	if storage.Equal(args[0], args[1]) {
		return nil, nil
	}
	return args[0], nil
}

// -------------------------------- date --------------------------------

func fnNow(_ *evalContext, args []any) (any, error) {
	return time.Now(), nil
}

func fnUTCNow(_ *evalContext, args []any) (any, error) {
	return time.Now().UTC(), nil
}

func fnYear(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("YEAR", args, 1, 1); err != nil {
		return nil, err
	}
	t, ok := argTime(args[0])
	if !ok {
		return nil, nil
	}
	return int64(t.Year()), nil
}

func fnMonth(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("MONTH", args, 1, 1); err != nil {
		return nil, err
	}
	t, ok := argTime(args[0])
	if !ok {
		return nil, nil
	}
	return int64(t.Month()), nil
}

func fnDay(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("DAY", args, 1, 1); err != nil {
		return nil, err
	}
	t, ok := argTime(args[0])
	if !ok {
		return nil, nil
	}
	return int64(t.Day()), nil
}

// fnDateDiff computes d2 - d1 in the given calendar or clock unit.
func fnDateDiff(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("DATEDIFF", args, 3, 3); err != nil {
		return nil, err
	}
	part, ok := argText(args[0])
	if !ok {
		return nil, fmt.Errorf("DATEDIFF part must be a string")
	}
	d1, ok := argTime(args[1])
	if !ok {
		return nil, nil
	}
	d2, ok := argTime(args[2])
	if !ok {
		return nil, nil
	}
	switch strings.ToUpper(part) {
	case "YEAR":
		return int64(d2.Year() - d1.Year()), nil
	case "MONTH":
		return int64((d2.Year()-d1.Year())*12 + int(d2.Month()) - int(d1.Month())), nil
	case "DAY":
		return int64(d2.Sub(d1).Hours() / 24), nil
	case "HOUR":
		return int64(d2.Sub(d1).Hours()), nil
	case "MINUTE":
		return int64(d2.Sub(d1).Minutes()), nil
	case "SECOND":
		return int64(d2.Sub(d1).Seconds()), nil
	}
	return nil, fmt.Errorf("unsupported DATEDIFF part %q", part)
}

// -------------------------------- flow --------------------------------

func fnIif(_ *evalContext, args []any) (any, error) {
	if err := wantArgs("IIF", args, 3, 3); err != nil {
		return nil, err
	}
	if storage.Truthy(args[0]) {
		return args[1], nil
	}
	return args[2], nil
}

func fnNewID(_ *evalContext, args []any) (any, error) {
	return uuid.New(), nil
}
