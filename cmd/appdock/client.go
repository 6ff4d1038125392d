package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"
)

// envelope mirrors the daemon's standard response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func apiClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

func call(method, path string, body any) (json.RawMessage, error) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, CLI.Server+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := apiClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("is the daemon running at %s? %w", CLI.Server, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("unexpected response from daemon: %w", err)
	}
	if !env.Success {
		return nil, fmt.Errorf("%s (HTTP %d)", env.Error, resp.StatusCode)
	}
	return env.Data, nil
}

// runSubmit posts a job and prints the assigned id.
func runSubmit(kind, appID, scriptPath string, targetJobID uint64) error {
	req := map[string]any{"kind": kind}
	if appID != "" {
		req["app_id"] = appID
	}
	if scriptPath != "" {
		script, err := os.ReadFile(scriptPath)
		if err != nil {
			return fmt.Errorf("read installer script: %w", err)
		}
		req["script"] = string(script)
	}
	if targetJobID != 0 {
		req["target_job_id"] = targetJobID
	}

	data, err := call(http.MethodPost, "/jobs", req)
	if err != nil {
		return err
	}

	var accepted struct {
		ID uint64 `json:"id"`
	}
	if err := json.Unmarshal(data, &accepted); err != nil {
		return err
	}
	fmt.Printf("job %d accepted (%s)\n", accepted.ID, kind)
	return nil
}

// runStatus prints one job's record, or the full snapshot when no id given.
func runStatus(jobID uint64) error {
	path := "/snapshot"
	if jobID != 0 {
		path = fmt.Sprintf("/jobs/%d", jobID)
	}
	data, err := call(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return printJSON(data)
}

// runCatalog searches the catalog and prints matching entries.
func runCatalog(query string) error {
	path := "/catalog"
	if query != "" {
		path += "?q=" + url.QueryEscape(query)
	}
	data, err := call(http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	var items []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("no catalog entries match")
		return nil
	}
	for _, item := range items {
		fmt.Printf("%-20s %s\n", item.ID, item.Name)
		if item.Description != "" {
			fmt.Printf("%-20s %s\n", "", item.Description)
		}
	}
	return nil
}

func printJSON(data json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return err
	}
	fmt.Println(buf.String())
	return nil
}
