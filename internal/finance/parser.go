package finance

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"quantDashboard/internal/analytics"
)

// ErrUsage marks malformed command arguments.
var ErrUsage = errors.New("bad arguments")

var reSymbol = regexp.MustCompile(`^[A-Z0-9]{2,20}$`)

// Gross exposure above this is rejected as a typo rather than a portfolio.
const maxGrossExposure = 3.0

// Usagef builds an ErrUsage error.
func Usagef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

// ParseAssetArgs parses `SYMBOL [interval] [window]`.
func ParseAssetArgs(args []string) (AssetRequest, error) {
	if len(args) == 0 {
		return AssetRequest{}, Usagef("missing symbol")
	}
	sym, err := parseSymbol(args[0])
	if err != nil {
		return AssetRequest{}, err
	}
	req := AssetRequest{Symbol: sym}
	req.Interval, req.Window, err = parseTail(args[1:])
	return req, err
}

// ParseStrategyArgs parses `SYMBOL SHORT LONG [interval] [window]` into a
// moving-average crossover request. Window ordering is validated later by
// the strategy itself.
func ParseStrategyArgs(args []string) (AssetRequest, error) {
	if len(args) < 3 {
		return AssetRequest{}, Usagef("need SYMBOL SHORT LONG")
	}
	req, err := ParseAssetArgs(append([]string{args[0]}, args[3:]...))
	if err != nil {
		return AssetRequest{}, err
	}
	if req.Short, err = strconv.Atoi(args[1]); err != nil {
		return AssetRequest{}, Usagef("short window %q is not an integer", args[1])
	}
	if req.Long, err = strconv.Atoi(args[2]); err != nil {
		return AssetRequest{}, Usagef("long window %q is not an integer", args[2])
	}
	req.Strategy = "ma"
	return req, nil
}

// ParsePortfolioArgs parses `S1 S2 ... [w1,w2,...] [interval] [window]`.
// Repeated symbols are dropped. Weights are kept as given; a count that does
// not match the symbols is resolved later with a warning.
func ParsePortfolioArgs(args []string) (PortfolioRequest, error) {
	var req PortfolioRequest
	seen := map[string]struct{}{}
	i := 0
	for ; i < len(args); i++ {
		tok := strings.ToUpper(strings.TrimSpace(args[i]))
		if isWeights(tok) || isInterval(tok) {
			break
		}
		sym, err := parseSymbol(tok)
		if err != nil {
			return PortfolioRequest{}, err
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		req.Symbols = append(req.Symbols, sym)
	}
	if len(req.Symbols) == 0 {
		return PortfolioRequest{}, Usagef("missing symbols")
	}
	if i < len(args) && isWeights(args[i]) {
		w, err := parseWeights(args[i])
		if err != nil {
			return PortfolioRequest{}, err
		}
		req.Weights = w
		i++
	}
	var err error
	req.Interval, req.Window, err = parseTail(args[i:])
	return req, err
}

func parseSymbol(s string) (string, error) {
	sym := strings.ToUpper(strings.TrimSpace(s))
	if !reSymbol.MatchString(sym) {
		return "", Usagef("invalid symbol %q", s)
	}
	return sym, nil
}

// parseTail reads the optional `[interval] [window]` suffix. A lone token
// that is a valid interval code is taken as the interval.
func parseTail(args []string) (string, string, error) {
	var interval, window string
	switch len(args) {
	case 0:
	case 1:
		if isInterval(args[0]) {
			interval = strings.ToLower(args[0])
		} else {
			window = args[0]
		}
	case 2:
		interval, window = strings.ToLower(args[0]), args[1]
	default:
		return "", "", Usagef("unexpected arguments %q", strings.Join(args[2:], " "))
	}
	if interval != "" {
		if _, err := analytics.ParseInterval(interval); err != nil {
			return "", "", Usagef("%v", err)
		}
	}
	if window != "" {
		if _, err := ParseWindow(window, 0); err != nil {
			return "", "", Usagef("%v", err)
		}
	}
	return interval, strings.ToLower(window), nil
}

func isInterval(s string) bool {
	_, err := analytics.ParseInterval(strings.ToLower(s))
	return err == nil
}

// isWeights reports a comma separated list of numbers, or a single number.
func isWeights(s string) bool {
	for _, p := range strings.Split(s, ",") {
		if _, err := strconv.ParseFloat(strings.TrimSpace(p), 64); err != nil {
			return false
		}
	}
	return true
}

func parseWeights(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	gross := 0.0
	for _, p := range parts {
		w, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, Usagef("invalid weight %q", p)
		}
		if w < 0 {
			gross -= w
		} else {
			gross += w
		}
		out = append(out, w)
	}
	if gross > maxGrossExposure {
		return nil, Usagef("total gross exposure %.3f exceeds %.1f", gross, maxGrossExposure)
	}
	return out, nil
}

// ParseWeightsParam parses the weights query parameter of the HTTP API.
func ParseWeightsParam(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	return parseWeights(s)
}
