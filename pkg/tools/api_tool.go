package tools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// executeAPI performs the HTTP round trip of a generic API tool.
// GET sends the arguments as query parameters, POST as a JSON body.
// The upstream status code is reported inside the output, never as an
// execution error; only transport failures produce an error result.
func executeAPI(ctx context.Context, client *http.Client, cfg *APIConfig, rawArgs string) Result {
	if cfg == nil || cfg.URL == "" {
		return Result{Err: "api tool has no endpoint configured"}
	}

	args := map[string]any{}
	if strings.TrimSpace(rawArgs) != "" {
		if err := json.UnmarshalFromString(rawArgs, &args); err != nil {
			return Result{Err: fmt.Sprintf("invalid arguments: %v", err)}
		}
	}

	method := strings.ToUpper(cfg.Method)
	var req *http.Request
	var err error

	switch method {
	case http.MethodGet, "":
		u, parseErr := url.Parse(cfg.URL)
		if parseErr != nil {
			return Result{Err: fmt.Sprintf("invalid endpoint url: %v", parseErr)}
		}
		q := u.Query()
		for k, v := range args {
			if v == nil {
				continue
			}
			q.Set(k, fmt.Sprintf("%v", v))
		}
		u.RawQuery = q.Encode()
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)

	case http.MethodPost:
		body, marshalErr := json.Marshal(args)
		if marshalErr != nil {
			return Result{Err: fmt.Sprintf("failed to encode request body: %v", marshalErr)}
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
		if req != nil {
			req.Header.Set("Content-Type", "application/json")
		}

	default:
		return Result{Err: fmt.Sprintf("unsupported http method: %s", cfg.Method)}
	}

	if err != nil {
		return Result{Err: fmt.Sprintf("failed to build request: %v", err)}
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Err: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Err: fmt.Sprintf("failed to read response: %v", err)}
	}

	// Keep JSON payloads structured in the wrapper; anything else is
	// passed through as a string.
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		data = string(raw)
	}

	out, err := json.MarshalToString(map[string]any{
		"status": resp.StatusCode,
		"data":   data,
	})
	if err != nil {
		return Result{Err: fmt.Sprintf("failed to encode response: %v", err)}
	}
	return Result{Output: out}
}
