package support

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/notecrop/internal/server"
	"github.com/cucumber/godog"
	"github.com/gorilla/websocket"
)

func (testCtx *TestContext) theDetectionServerIsRunning() error {
	return testCtx.createTestHTTPServer(server.RateLimitConfig{})
}

func (testCtx *TestContext) theDetectionServerIsRunningWithALimitOf(perMinute int) error {
	return testCtx.createTestHTTPServer(server.RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: perMinute,
	})
}

func (testCtx *TestContext) serverURL(path string) (string, error) {
	if testCtx.HTTPTestServer == nil {
		return "", errors.New("server is not running")
	}
	return testCtx.HTTPTestServer.URL() + path, nil
}

// do sends req and records status, body and headers.
func (testCtx *TestContext) do(req *http.Request) error {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	testCtx.LastHTTPHeaders = make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) iSendAGETRequestTo(path string) error {
	url, err := testCtx.serverURL(path)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return testCtx.do(req)
}

func (testCtx *TestContext) encodedPhoto(name string) (string, error) {
	data, err := os.ReadFile(testCtx.path(name))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (testCtx *TestContext) iPostThePhotoAsJSONTo(name, path string) error {
	return testCtx.postJSONPhoto(name, path, "")
}

func (testCtx *TestContext) iPostThePhotoAsJSONWithOptions(name, path, options string) error {
	return testCtx.postJSONPhoto(name, path, options)
}

// postJSONPhoto sends a detect request. options is a comma-free JSON
// fragment such as `"debug": true` merged into the body.
func (testCtx *TestContext) postJSONPhoto(name, path, options string) error {
	url, err := testCtx.serverURL(path)
	if err != nil {
		return err
	}
	encoded, err := testCtx.encodedPhoto(name)
	if err != nil {
		return err
	}
	body := fmt.Sprintf(`{"image": %q`, encoded)
	if options != "" {
		body += ", " + options
	}
	body += "}"

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return testCtx.do(req)
}

func (testCtx *TestContext) iUploadThePhotoTo(name, path string) error {
	url, err := testCtx.serverURL(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(testCtx.path(name))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filepath.Base(name))
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return testCtx.do(req)
}

func (testCtx *TestContext) iSendThePhotoOverTheWebSocket(name string) error {
	url, err := testCtx.serverURL("/ws/detect")
	if err != nil {
		return err
	}
	encoded, err := testCtx.encodedPhoto(name)
	if err != nil {
		return err
	}

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http"), nil)
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	if err := conn.WriteJSON(map[string]string{"image": encoded}); err != nil {
		return fmt.Errorf("websocket write failed: %w", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("websocket read failed: %w", err)
	}
	testCtx.LastHTTPStatusCode = http.StatusOK
	testCtx.LastHTTPResponse = string(msg)
	testCtx.LastHTTPHeaders = map[string]string{}
	return nil
}

func (testCtx *TestContext) theResponseStatusShouldBe(status int) error {
	if testCtx.LastHTTPStatusCode != status {
		return fmt.Errorf("expected status %d, got %d\nBody: %s", status, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response does not contain '%s'\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, value string) error {
	if got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]; got != value {
		return fmt.Errorf("header %s is %q, expected %q", name, got, value)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBePresent(name string) error {
	if testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)] == "" {
		return fmt.Errorf("header %s missing", name)
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONFieldShouldBe(field, expected string) error {
	var data map[string]any
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &data); err != nil {
		return fmt.Errorf("response is not JSON: %w\nBody: %s", err, testCtx.LastHTTPResponse)
	}
	val, ok := data[field]
	if !ok {
		return fmt.Errorf("field '%s' not found in response", field)
	}
	if got := fmt.Sprint(val); got != expected {
		return fmt.Errorf("field '%s' is %s, expected %s", field, got, expected)
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONFieldShouldBePresent(field string) error {
	var data map[string]any
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &data); err != nil {
		return fmt.Errorf("response is not JSON: %w", err)
	}
	if v, ok := data[field]; !ok || v == nil || v == "" {
		return fmt.Errorf("field '%s' missing or empty in response", field)
	}
	return nil
}

func (testCtx *TestContext) iPostThePhotoTimes(name, path string, times int) error {
	for range times {
		if err := testCtx.postJSONPhoto(name, path, ""); err != nil {
			return err
		}
	}
	return nil
}

// RegisterServerSteps registers HTTP and WebSocket steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the detection server is running$`, testCtx.theDetectionServerIsRunning)
	sc.Step(`^the detection server is running with a limit of (\d+) requests? per minute$`,
		testCtx.theDetectionServerIsRunningWithALimitOf)

	sc.Step(`^I send a GET request to "([^"]*)"$`, testCtx.iSendAGETRequestTo)
	sc.Step(`^I post the photo "([^"]*)" as JSON to "([^"]*)"$`, testCtx.iPostThePhotoAsJSONTo)
	sc.Step(`^I post the photo "([^"]*)" as JSON to "([^"]*)" with (.+)$`, testCtx.iPostThePhotoAsJSONWithOptions)
	sc.Step(`^I post the photo "([^"]*)" to "([^"]*)" (\d+) times$`, testCtx.iPostThePhotoTimes)
	sc.Step(`^I upload the photo "([^"]*)" to "([^"]*)"$`, testCtx.iUploadThePhotoTo)
	sc.Step(`^I send the photo "([^"]*)" over the websocket$`, testCtx.iSendThePhotoOverTheWebSocket)

	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response header "([^"]*)" should be present$`, testCtx.theResponseHeaderShouldBePresent)
	sc.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
	sc.Step(`^the response field "([^"]*)" should be present$`, testCtx.theResponseJSONFieldShouldBePresent)
}
