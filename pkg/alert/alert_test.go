package alert

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/elonfeng/dailygarden/pkg/corpus"
)

func sampleNotification() *Notification {
	return &Notification{
		Title:   "Daily wrap-up — 2025-03-14 (Daily Knowledge Garden)",
		Date:    "2025-03-14",
		Summary: "Rust ships a release. Garden grows.",
		HTML:    "<h2>Daily Knowledge Garden — 2025-03-14</h2>",
		Stories: []corpus.Story{
			{Title: "Rust 2.0", URL: "https://rust.example", Points: 500, NumComments: 120, ObjectID: "1"},
			{Title: "Ask HN: Gardens?", Points: 12, NumComments: 3, ObjectID: "2"},
		},
	}
}

type captured struct {
	header http.Header
	body   []byte
}

func captureServer(t *testing.T, status int) (*httptest.Server, <-chan captured) {
	t.Helper()
	ch := make(chan captured, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ch <- captured{header: r.Header.Clone(), body: body}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, ch
}

func TestSlackSend(t *testing.T) {
	srv, ch := captureServer(t, http.StatusOK)

	if err := NewSlack(srv.URL).Send(context.Background(), sampleNotification()); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	got := <-ch
	var payload struct {
		Text   string           `json:"text"`
		Blocks []map[string]any `json:"blocks"`
	}
	if err := json.Unmarshal(got.body, &payload); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if len(payload.Blocks) != 3 {
		t.Fatalf("expected header, summary and context blocks, got %d", len(payload.Blocks))
	}
	if !strings.Contains(string(got.body), "news.ycombinator.com/item?id=2") {
		t.Errorf("stories without a URL should link to the discussion: %s", got.body)
	}
}

func TestSlackSendStatusError(t *testing.T) {
	srv, _ := captureServer(t, http.StatusForbidden)
	err := NewSlack(srv.URL).Send(context.Background(), sampleNotification())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestDiscordSend(t *testing.T) {
	srv, ch := captureServer(t, http.StatusNoContent)
	d := NewDiscord(srv.URL)
	d.now = func() time.Time { return time.Date(2025, 3, 14, 22, 0, 0, 0, time.UTC) }

	if err := d.Send(context.Background(), sampleNotification()); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	got := <-ch
	var payload struct {
		Embeds []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Timestamp   string `json:"timestamp"`
		} `json:"embeds"`
	}
	if err := json.Unmarshal(got.body, &payload); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if len(payload.Embeds) != 1 {
		t.Fatalf("expected one embed, got %d", len(payload.Embeds))
	}
	e := payload.Embeds[0]
	if e.Timestamp != "2025-03-14T22:00:00Z" {
		t.Errorf("timestamp = %q", e.Timestamp)
	}
	if !strings.HasPrefix(e.Description, "Rust ships a release.") || !strings.Contains(e.Description, "1. [Rust 2.0](https://rust.example)") {
		t.Errorf("unexpected description: %q", e.Description)
	}
}

func TestDiscordTruncatesLongDescriptions(t *testing.T) {
	srv, ch := captureServer(t, http.StatusNoContent)
	n := sampleNotification()
	n.Summary = strings.Repeat("é", discordDescriptionLimit+100)

	if err := NewDiscord(srv.URL).Send(context.Background(), n); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	var payload struct {
		Embeds []struct {
			Description string `json:"description"`
		} `json:"embeds"`
	}
	got := <-ch
	if err := json.Unmarshal(got.body, &payload); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if n := len([]rune(payload.Embeds[0].Description)); n != discordDescriptionLimit {
		t.Errorf("description has %d runes, want %d", n, discordDescriptionLimit)
	}
}

func TestWebhookSignsBody(t *testing.T) {
	srv, ch := captureServer(t, http.StatusAccepted)

	if err := NewWebhook(srv.URL, "s3cret").Send(context.Background(), sampleNotification()); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	got := <-ch
	if sig := got.header.Get(SignatureHeader); sig != Sign("s3cret", got.body) {
		t.Errorf("signature %q does not match body", sig)
	}
	var payload map[string]any
	if err := json.Unmarshal(got.body, &payload); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if payload["event"] != "wrapup" || payload["date"] != "2025-03-14" {
		t.Errorf("unexpected payload: %v", payload)
	}
}

func TestWebhookWithoutSecret(t *testing.T) {
	srv, ch := captureServer(t, http.StatusOK)
	if err := NewWebhook(srv.URL, "").Send(context.Background(), sampleNotification()); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if got := <-ch; got.header.Get(SignatureHeader) != "" {
		t.Error("no signature expected without a secret")
	}
}

func TestEmailSend(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	e := NewEmail(EmailConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "me@example.com",
		Password: "pw",
		From:     "me@example.com",
		FromName: "Daily Knowledge Garden",
		To:       []string{"you@example.com"},
	})
	e.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, string(msg)
		return nil
	}

	if err := e.Send(context.Background(), sampleNotification()); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	if gotAddr != "smtp.example.com:587" || gotFrom != "me@example.com" || len(gotTo) != 1 || gotAuth == nil {
		t.Errorf("unexpected envelope: addr=%s from=%s to=%v auth=%v", gotAddr, gotFrom, gotTo, gotAuth)
	}
	for _, want := range []string{
		`From: "Daily Knowledge Garden" <me@example.com>`,
		"To: you@example.com",
		"Subject: =?utf-8?q?",
		"Content-Type: text/html",
		"\r\n\r\n<h2>Daily Knowledge Garden — 2025-03-14</h2>",
	} {
		if !strings.Contains(gotMsg, want) {
			t.Errorf("message missing %q:\n%s", want, gotMsg)
		}
	}
}

func TestEmailSendError(t *testing.T) {
	e := NewEmail(EmailConfig{Host: "h", Port: 25, From: "a@example.com", To: []string{"b@example.com"}})
	e.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}
	if err := e.Send(context.Background(), sampleNotification()); err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected wrapped send error, got %v", err)
	}

	e = NewEmail(EmailConfig{Host: "h", Port: 25, From: "a@example.com"})
	if err := e.Send(context.Background(), sampleNotification()); err == nil {
		t.Fatal("expected error without recipients")
	}
}

type mockNotifier struct {
	name string
	err  error
	sent []*Notification
}

func (m *mockNotifier) Name() string { return m.name }

func (m *mockNotifier) Send(_ context.Context, n *Notification) error {
	m.sent = append(m.sent, n)
	return m.err
}

func TestManagerBroadcast(t *testing.T) {
	ok := &mockNotifier{name: "ok"}
	bad := &mockNotifier{name: "bad", err: errors.New("boom")}
	last := &mockNotifier{name: "last"}

	m := NewManager([]Notifier{ok, bad, last})
	if !m.HasNotifiers() {
		t.Fatal("expected notifiers")
	}
	if names := m.Names(); strings.Join(names, ",") != "ok,bad,last" {
		t.Errorf("Names() = %v", names)
	}

	err := m.Broadcast(context.Background(), sampleNotification())
	if err == nil || !strings.Contains(err.Error(), "bad: boom") {
		t.Fatalf("expected joined error naming the notifier, got %v", err)
	}
	if len(ok.sent) != 1 || len(last.sent) != 1 {
		t.Error("a failing notifier must not stop the others")
	}

	if NewManager(nil).HasNotifiers() {
		t.Error("empty manager should report no notifiers")
	}
}
