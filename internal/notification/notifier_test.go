package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFormatPrice(t *testing.T) {
	cases := []struct {
		price float64
		want  string
	}{
		{50000, "50,000.00"},
		{1234567.891, "1,234,567.89"},
		{999.9999, "999.9999"},
		{1.23456, "1.2346"},
		{0.00001234, "0.00001234"},
	}
	for _, c := range cases {
		if got := FormatPrice(c.price); got != c.want {
			t.Errorf("FormatPrice(%v) = %q, want %q", c.price, got, c.want)
		}
	}
}

func TestFormatPercentage(t *testing.T) {
	if got := FormatPercentage(2.5); got != "🟢 +2.50%" {
		t.Errorf("positive: got %q", got)
	}
	if got := FormatPercentage(-1.234); got != "🔴 -1.23%" {
		t.Errorf("negative: got %q", got)
	}
	if got := FormatPercentage(0); got != "🟢 +0.00%" {
		t.Errorf("zero: got %q", got)
	}
}

func TestTelegramSendText(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram("test-token")
	tg.baseURL = srv.URL

	if err := tg.SendText(context.Background(), 12345, "hello"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if gotPath != "/bottest-token/sendMessage" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody["text"] != "hello" {
		t.Errorf("text = %v", gotBody["text"])
	}
	if gotBody["chat_id"] != float64(12345) {
		t.Errorf("chat_id = %v", gotBody["chat_id"])
	}
}

func TestTelegramSendPhotoCaption(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram("tok")
	tg.baseURL = srv.URL

	if err := tg.SendPhoto(context.Background(), 7, "https://example.com/c.png", "BTC/USDT"); err != nil {
		t.Fatalf("SendPhoto: %v", err)
	}
	if gotBody["photo"] != "https://example.com/c.png" {
		t.Errorf("photo = %v", gotBody["photo"])
	}
	if gotBody["caption"] != "BTC/USDT" {
		t.Errorf("caption = %v", gotBody["caption"])
	}
}

func TestTelegramRetriesOnce(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Write([]byte(`{"ok":false,"description":"Too Many Requests"}`))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram("tok")
	tg.baseURL = srv.URL

	if err := tg.SendText(context.Background(), 1, "retry me"); err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}
