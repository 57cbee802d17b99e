package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(srv.URL, 5*time.Second)
}

func TestClientAsk(t *testing.T) {
	t.Parallel()

	var got ChatRequest
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"response":"4 modules planned"}`)
	}))

	req := ChatRequest{Message: "plan a course", UserID: "alice", SessionID: "s1"}
	answer, err := client.Ask(context.Background(), req)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}

	if answer != "4 modules planned" {
		t.Errorf("expected reply text, got %q", answer)
	}
	if got != req {
		t.Errorf("expected request %+v on the wire, got %+v", req, got)
	}
}

func TestClientAskServerError(t *testing.T) {
	t.Parallel()

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"agent run failed"}`, http.StatusInternalServerError)
	}))

	_, err := client.Ask(context.Background(), ChatRequest{Message: "hi"})
	if err == nil {
		t.Fatal("expected an error for a 500 response")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("expected the status code in the error, got %v", err)
	}
}

func TestClientStream(t *testing.T) {
	t.Parallel()

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat_stream" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher := w.(http.Flusher)
		for _, line := range []string{
			`{"type":"progress","text":"researching"}`,
			`{"type":"progress","text":"writing"}`,
			`{"type":"result","text":"the course"}`,
		} {
			fmt.Fprintln(w, line)
			flusher.Flush()
		}
	}))

	var records []StreamRecord
	err := client.Stream(context.Background(), ChatRequest{Message: "go"}, func(rec StreamRecord) {
		records = append(records, rec)
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d: %+v", len(records), records)
	}
	if records[0].Type != "progress" || records[0].Text != "researching" {
		t.Errorf("unexpected first record %+v", records[0])
	}
	last := records[len(records)-1]
	if last.Type != "result" || last.Text != "the course" {
		t.Errorf("expected the result record last, got %+v", last)
	}
}

func TestClientStreamServerError(t *testing.T) {
	t.Parallel()

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"agent run failed"}`, http.StatusInternalServerError)
	}))

	err := client.Stream(context.Background(), ChatRequest{Message: "go"}, func(StreamRecord) {
		t.Error("no records expected on a failed stream")
	})
	if err == nil {
		t.Fatal("expected an error for a 500 response")
	}
	if !strings.Contains(err.Error(), "agent run failed") {
		t.Errorf("expected the server body in the error, got %v", err)
	}
}

func TestClientSendFeedback(t *testing.T) {
	t.Parallel()

	var got map[string]interface{}
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feedback" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"success"}`)
	}))

	fb := Feedback{Score: 4.5, Text: "solid course", RunID: "run-7", UserID: "alice"}
	if err := client.SendFeedback(context.Background(), fb); err != nil {
		t.Fatalf("send feedback: %v", err)
	}

	if got["score"] != 4.5 {
		t.Errorf("expected score 4.5 on the wire, got %v", got["score"])
	}
	if got["run_id"] != "run-7" || got["user_id"] != "alice" {
		t.Errorf("unexpected identity fields: %v", got)
	}
}

func TestAskCommand(t *testing.T) {
	t.Parallel()

	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"response":"done"}`)
	}))
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"ask", "--addr", srv.URL, "--user", "alice", "plan", "a", "course"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if got.Message != "plan a course" {
		t.Errorf("expected args joined into one message, got %q", got.Message)
	}
	if got.UserID != "alice" {
		t.Errorf("expected the --user flag on the wire, got %q", got.UserID)
	}
	if !strings.Contains(out.String(), "done") {
		t.Errorf("expected the reply on stdout, got %q", out.String())
	}
}

func TestStreamCommandPrintsRecords(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"type":"progress","text":"researching"}`)
		fmt.Fprintln(w, `{"type":"result","text":"the course"}`)
	}))
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"stream", "--addr", srv.URL, "build it"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "researching") {
		t.Errorf("expected progress text in output, got %q", text)
	}
	if !strings.Contains(text, "the course") {
		t.Errorf("expected result text in output, got %q", text)
	}
	if strings.Index(text, "researching") > strings.Index(text, "the course") {
		t.Errorf("expected progress before result, got %q", text)
	}
}

func TestFeedbackCommand(t *testing.T) {
	t.Parallel()

	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"success"}`)
	}))
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"feedback", "--addr", srv.URL, "--score", "5", "--run-id", "run-9"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if got["score"] != 5.0 {
		t.Errorf("expected score 5 on the wire, got %v", got["score"])
	}
	if !strings.Contains(out.String(), "feedback recorded") {
		t.Errorf("expected confirmation on stdout, got %q", out.String())
	}
}

func TestFeedbackCommandRequiresScore(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"feedback"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error when --score is missing")
	}
}
