package engine

import (
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/Jeffail/gabs/v2"
)

// Response is the minimal shape of an HTTP response the Extractor needs,
// decoupled from the Request Executor's HTTP client so extraction tests
// don't need a live resty response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

var bracketToDotRe = regexp.MustCompile(`\[(\d+)\]`)

// ExtractAll applies every {targetVar: pathExpr} rule in rules against resp,
// writing results into ctx.
func ExtractAll(resp Response, rules map[string]string, ctx *Value, logger *slog.Logger) {
	for target, pathExpr := range rules {
		Extract(resp, target, pathExpr, ctx, logger)
	}
}

// Extract applies a single extraction rule. Empty target or path expressions
// are skipped with a warning; any other failure assigns null and warns,
// tagged with the variable name and reason.
func Extract(resp Response, target, pathExpr string, ctx *Value, logger *slog.Logger) {
	if target == "" || pathExpr == "" {
		logger.Warn("extractor: empty target or path expression", "target", target, "path", pathExpr)
		return
	}

	val := extractValue(resp, pathExpr, target, logger)
	if err := SetPath(ctx, target, val); err != nil {
		logger.Warn("extractor: failed to write extracted value", "target", target, "error", err)
	}
}

func extractValue(resp Response, pathExpr, target string, logger *slog.Logger) Value {
	switch {
	case pathExpr == ".status":
		return Number(float64(resp.Status))

	case strings.HasPrefix(pathExpr, "headers."):
		name := pathExpr[len("headers."):]
		values := resp.Header.Values(name)
		if len(values) == 0 {
			logger.Warn("extractor: header not found", "variable", target, "header", name)
			return Null
		}
		return String(strings.Join(values, ", "))

	case pathExpr == "body":
		return extractBody(resp, "", target, true, logger)

	case strings.HasPrefix(pathExpr, "body."):
		return extractBody(resp, pathExpr[len("body."):], target, false, logger)

	default:
		return extractBody(resp, pathExpr, target, false, logger)
	}
}

func extractBody(resp Response, subPath, target string, wholeBody bool, logger *slog.Logger) Value {
	if !isJSONContentType(resp.Header.Get("Content-Type")) {
		if wholeBody {
			return String(string(resp.Body))
		}
		logger.Warn("extractor: body path requested on non-JSON response", "variable", target, "path", subPath, "content_type", resp.Header.Get("Content-Type"))
		return Null
	}

	parsed, err := gabs.ParseJSON(resp.Body)
	if err != nil {
		logger.Warn("extractor: failed to parse JSON body", "variable", target, "error", err)
		return Null
	}

	if wholeBody {
		return FromAny(parsed.Data())
	}

	gabsPath := bracketToDotRe.ReplaceAllString(subPath, ".$1")
	if !parsed.ExistsP(gabsPath) {
		logger.Warn("extractor: path not found in body", "variable", target, "path", subPath)
		return Null
	}
	return FromAny(parsed.Path(gabsPath).Data())
}

func isJSONContentType(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "json")
}
