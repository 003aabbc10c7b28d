package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestNotifier(srv *httptest.Server) *TelegramNotifier {
	tn := NewTelegramNotifier("TOKEN", "42", "")
	tn.BaseURL = srv.URL
	tn.Client = srv.Client()
	return tn
}

func TestSend(t *testing.T) {
	var got sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	if err := newTestNotifier(srv).Send(context.Background(), "<b>hi</b>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ChatID != "42" || got.Text != "<b>hi</b>" || got.ParseMode != "HTML" || !got.DisableWebPagePreview {
		t.Errorf("unexpected payload: %v", got)
	}
}

func TestSend_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	err := newTestNotifier(srv).Send(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "status 400") {
		t.Errorf("expected status 400 error, got %v", err)
	}
}

func TestSendWithRetry_NoRetryOnSuccess(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	if err := newTestNotifier(srv).SendWithRetry(context.Background(), "x", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestSendWithRetry_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := newTestNotifier(srv).SendWithRetry(ctx, "x", 3); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSendWithRetry_Exhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := newTestNotifier(srv).SendWithRetry(context.Background(), "x", 0)
	if err == nil || !strings.Contains(err.Error(), "all 1 retries exhausted") {
		t.Errorf("expected exhausted error, got %v", err)
	}
}

func TestSendPhoto(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendPhoto" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if r.FormValue("chat_id") != "42" || r.FormValue("caption") != "weights" {
			t.Errorf("unexpected fields: %v", r.MultipartForm.Value)
		}
		f, _, err := r.FormFile("photo")
		if err != nil {
			t.Fatalf("missing photo: %v", err)
		}
		data, _ := io.ReadAll(f)
		if string(data) != "PNGDATA" {
			t.Errorf("unexpected photo body %q", data)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	if err := newTestNotifier(srv).SendPhoto(context.Background(), "weights", []byte("PNGDATA")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStartPolling(t *testing.T) {
	var mu sync.Mutex
	var replies []string
	served := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.URL.Path {
		case "/botTOKEN/getUpdates":
			if served {
				w.Write([]byte(`{"ok":true,"result":[]}`))
				return
			}
			served = true
			fmt.Fprint(w, `{"ok":true,"result":[`+
				`{"update_id":6,"message":{"text":"/var","chat":{"id":99}}},`+
				`{"update_id":7,"message":{"text":" /help ","chat":{"id":42}}}]}`)
		case "/botTOKEN/sendMessage":
			var p map[string]string
			json.NewDecoder(r.Body).Decode(&p)
			replies = append(replies, p["text"])
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	tn := newTestNotifier(srv)
	tn.PollTimeout = 1
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var gotCommand string
	go func() {
		tn.StartPolling(ctx, func(cmd string) string {
			gotCommand = cmd
			cancel()
			return "commands: /help"
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("polling did not stop")
	}
	if gotCommand != "/help" {
		t.Errorf("expected trimmed command /help, got %q", gotCommand)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(replies) != 1 || replies[0] != "commands: /help" {
		t.Errorf("unexpected replies: %v", replies)
	}
}
