// Command test_integration smoke-tests a running server: health, catalog,
// an optional verification and the history views.
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

type step struct {
	name     string
	method   string
	endpoint string
	payload  interface{}
}

func main() {
	baseURL := os.Getenv("SHELFCHECK_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting smoke test against", baseURL)

	steps := []step{
		{"Health", "GET", "/health", nil},
		{"Categories", "GET", "/catalog?type=categories", nil},
	}

	// A verification runs only when sample photos are provided.
	if payload, ok := verificationPayload(); ok {
		steps = append(steps, step{"Validate", "POST", "/validate", payload})
	}
	steps = append(steps, []step{
		{"History list", "GET", "/history?view=list&pageSize=5", nil},
		{"History summary", "GET", "/history?view=summary", nil},
	}...)

	for i, step := range steps {
		fmt.Printf("%d. %s...\n", i+1, step.name)
		if !sendRequest(baseURL, step.method, step.endpoint, step.payload) {
			fmt.Printf("FAILED: %s\n", step.name)
			os.Exit(1)
		}
		fmt.Printf("PASSED: %s\n", step.name)
	}
}

func verificationPayload() (map[string]string, bool) {
	productID := os.Getenv("SMOKE_PRODUCT_ID")
	category := os.Getenv("SMOKE_CATEGORY")
	labelPath := os.Getenv("SMOKE_LABEL_IMAGE")
	overviewPath := os.Getenv("SMOKE_OVERVIEW_IMAGE")
	if productID == "" || category == "" || labelPath == "" || overviewPath == "" {
		return nil, false
	}

	label, err := os.ReadFile(labelPath)
	if err != nil {
		fmt.Printf("Error reading %s: %v\n", labelPath, err)
		return nil, false
	}
	overview, err := os.ReadFile(overviewPath)
	if err != nil {
		fmt.Printf("Error reading %s: %v\n", overviewPath, err)
		return nil, false
	}

	return map[string]string{
		"product_id":       productID,
		"product_category": category,
		"labelImage":       base64.StdEncoding.EncodeToString(label),
		"overviewImage":    base64.StdEncoding.EncodeToString(overview),
	}, true
}

func sendRequest(baseURL, method, endpoint string, payload interface{}) bool {
	var body io.Reader
	if payload != nil {
		jsonBytes, _ := json.Marshal(payload)
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL+endpoint, body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Request failed with status %d: %s\n", resp.StatusCode, string(respBody))
		return false
	}

	if len(respBody) > 512 {
		respBody = append(respBody[:512], "..."...)
	}
	fmt.Printf("Response: %s\n", string(respBody))
	return true
}
