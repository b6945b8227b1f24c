package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func main() {
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	c := &client{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}

	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting Integration Test...")
	answerID := fmt.Sprintf("smoke-%d", time.Now().Unix())

	steps := []struct {
		name     string
		method   string
		endpoint string
		payload  any
		check    func(map[string]any) error
	}{
		{"Health", http.MethodGet, "/healthz", nil, nil},
		{"Similarity", http.MethodPost, "/fuzzy/similarity", map[string]string{"str1": "หอพัก", "str2": "หอพก"},
			func(r map[string]any) error { return expect(r["percentage"] == "80.00%", "percentage %v", r["percentage"]) }},
		{"Attach parent", http.MethodPost, "/admin/answers/" + answerID + "/keywords", map[string]string{"text": "ทุนเรียนดี"}, nil},
		{"Attach child", http.MethodPost, "/admin/answers/" + answerID + "/keywords", map[string]string{"text": "เรียนดี"},
			func(r map[string]any) error {
				removed, _ := r["removed"].([]any)
				return expect(len(removed) == 1, "expected 1 removal, got %d", len(removed))
			}},
		{"Answer keywords", http.MethodGet, "/admin/answers/" + answerID + "/keywords", nil,
			func(r map[string]any) error {
				keywords, _ := r["keywords"].([]any)
				return expect(len(keywords) == 1, "expected 1 keyword, got %d", len(keywords))
			}},
		{"Vocabulary", http.MethodPost, "/fuzzy/test", map[string]any{"input": "ทุนเรียนดี", "threshold": 0.9},
			func(r map[string]any) error {
				matches, _ := r["matches"].([]any)
				return expect(len(matches) > 0, "no vocabulary match")
			}},
		{"Suggest merges", http.MethodGet, "/admin/keywords/suggest-merges", nil, nil},
		{"Families", http.MethodGet, "/admin/keywords/families", nil, nil},
		{"Stats", http.MethodGet, "/admin/keywords/stats", nil, nil},
	}

	for i, step := range steps {
		fmt.Printf("%d. %s...\n", i+1, step.name)
		resp, err := c.send(step.method, step.endpoint, step.payload)
		if err == nil && step.check != nil {
			err = step.check(resp)
		}
		if err != nil {
			fmt.Printf("FAILED: %s: %v\n", step.name, err)
			os.Exit(1)
		}
		fmt.Printf("PASSED: %s\n", step.name)
	}
}

func expect(ok bool, format string, args ...any) error {
	if ok {
		return nil
	}
	return fmt.Errorf(format, args...)
}

type client struct {
	baseURL string
	http    *http.Client
}

func (c *client) send(method, endpoint string, payload any) (map[string]any, error) {
	var body io.Reader
	if payload != nil {
		jsonBytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
	}
	fmt.Printf("Response: %s\n", string(respBody))

	var decoded map[string]any
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	return decoded, nil
}
