// Package shoptalkctl implements the command line client for the shoptalk
// API: ask questions from the terminal and save charts to disk.
package shoptalkctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("shoptalkctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "shoptalk API base URL")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 60*time.Second), "HTTP timeout (e.g. 30s)")
	outPath := fs.String("out", "chart.png", "output file for the chart command")
	answerDate := fs.String("date", "", "answer date (YYYY-MM-DD) for the replay command; defaults to today")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	command := strings.TrimSpace(fs.Arg(0))
	base := strings.TrimRight(*baseURL, "/")

	switch command {
	case "health":
		return printJSONEndpoint(ctx, client, base+"/healthz", stdout, stderr)
	case "ready":
		return printJSONEndpoint(ctx, client, base+"/readyz", stdout, stderr)
	case "replay":
		traceID := strings.TrimSpace(fs.Arg(1))
		if traceID == "" {
			_, _ = fmt.Fprintln(stderr, "a trace id is required")
			writeUsage(stderr)
			return 2
		}
		day := strings.TrimSpace(*answerDate)
		if day == "" {
			day = time.Now().UTC().Format("2006-01-02")
		}
		return printJSONEndpoint(ctx, client, base+"/answers/"+url.PathEscape(day)+"/"+url.PathEscape(traceID), stdout, stderr)
	case "raw", "ask", "stream", "chart":
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}

	question := strings.TrimSpace(strings.Join(fs.Args()[1:], " "))
	if question == "" {
		_, _ = fmt.Fprintln(stderr, "a question is required")
		writeUsage(stderr)
		return 2
	}

	endpoint := base + map[string]string{
		"raw":    "/query",
		"ask":    "/query/clean",
		"stream": "/query/stream",
		"chart":  "/query/visualize",
	}[command] + "?question=" + url.QueryEscape(question)

	resp, err := get(ctx, client, endpoint)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", resp.StatusCode, strings.TrimSpace(string(body)))
		return 1
	}

	switch command {
	case "stream":
		if _, err := io.Copy(stdout, resp.Body); err != nil {
			_, _ = fmt.Fprintf(stderr, "read stream: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintln(stdout)
		return 0
	case "chart":
		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "read chart: %v\n", err)
			return 1
		}
		if err := os.WriteFile(*outPath, payload, 0o644); err != nil {
			_, _ = fmt.Fprintf(stderr, "write chart: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(stdout, "wrote %s (%d bytes, shape=%s)\n", *outPath, len(payload), resp.Header.Get("X-Chart-Shape"))
		return 0
	default:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "read response: %v\n", err)
			return 1
		}
		printBody(stdout, body)
		return 0
	}
}

func printJSONEndpoint(ctx context.Context, client *http.Client, endpoint string, stdout, stderr io.Writer) int {
	resp, err := get(ctx, client, endpoint)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "read response: %v\n", err)
		return 1
	}
	if resp.StatusCode >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", resp.StatusCode, strings.TrimSpace(string(body)))
		return 1
	}
	printBody(stdout, body)
	return 0
}

func get(ctx context.Context, client *http.Client, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return client.Do(req)
}

func printBody(stdout io.Writer, body []byte) {
	if pretty, ok := prettyJSON(body); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return
	}
	if len(body) > 0 {
		_, _ = fmt.Fprintln(stdout, string(body))
	}
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: shoptalkctl [flags] <command> [question...]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health             GET /healthz")
	_, _ = fmt.Fprintln(w, "  ready              GET /readyz")
	_, _ = fmt.Fprintln(w, "  raw <question>     GET /query")
	_, _ = fmt.Fprintln(w, "  ask <question>     GET /query/clean")
	_, _ = fmt.Fprintln(w, "  stream <question>  GET /query/stream")
	_, _ = fmt.Fprintln(w, "  chart <question>   GET /query/visualize, saved to -out")
	_, _ = fmt.Fprintln(w, "  replay <trace-id>  GET /answers/{date}/{trace-id}, date from -date")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
