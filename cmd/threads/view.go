package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// HTTPClient is the subset of *http.Client used by the view command.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

var newHTTPClient = func() HTTPClient {
	return &http.Client{Timeout: 30 * time.Second}
}

func newViewCmd() *cobra.Command {
	var subject, apiURL, token string

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Print a subject's thread fetched from the API",
		RunE: func(_ *cobra.Command, _ []string) error {
			return viewThread(apiURL, subject, token)
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Subject key")
	cmd.Flags().StringVar(&apiURL, "api-url", "http://localhost:8223", "Threads API base URL")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

func viewThread(apiURL, subject, token string) error {
	endpoint := strings.TrimRight(apiURL, "/") + "/api/subjects/" + url.PathEscape(subject) + "/thread"
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := newHTTPClient().Do(req)
	if err != nil {
		return fmt.Errorf("calling threads API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("threads API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out bytes.Buffer
	if err := json.Indent(&out, body, "", "  "); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	out.WriteByte('\n')
	_, err = stdout.Write(out.Bytes())
	return err
}
