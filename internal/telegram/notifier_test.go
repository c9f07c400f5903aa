package telegram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/njoerd114/placereminder/internal/model"
	"github.com/njoerd114/placereminder/internal/notify"
)

type fakeSender struct {
	sent    []tgbotapi.Chattable
	failMsg bool
	failPin bool
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	switch c.(type) {
	case tgbotapi.MessageConfig:
		if f.failMsg {
			return tgbotapi.Message{}, errors.New("Forbidden: bot was blocked by the user")
		}
	case tgbotapi.LocationConfig:
		if f.failPin {
			return tgbotapi.Message{}, errors.New("Bad Request")
		}
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotify_SendsMessageAndPin(t *testing.T) {
	s := &fakeSender{}
	n := NewWithSender(s, 42, discardLogger())

	err := n.Notify(context.Background(), notify.Notification{
		ReminderID: "r1",
		Title:      "Buy milk",
		Latitude:   model.Float(52.5),
		Longitude:  model.Float(13.4),
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(s.sent) != 2 {
		t.Fatalf("sent %d items, want message and location", len(s.sent))
	}
	msg, ok := s.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("first item is %T, want MessageConfig", s.sent[0])
	}
	if msg.ChatID != 42 || msg.ParseMode != tgbotapi.ModeHTML {
		t.Errorf("message config = %+v", msg)
	}
	pin, ok := s.sent[1].(tgbotapi.LocationConfig)
	if !ok || pin.Latitude != 52.5 || pin.Longitude != 13.4 {
		t.Errorf("location = %+v", s.sent[1])
	}
}

func TestNotify_NoPinWithoutPoint(t *testing.T) {
	s := &fakeSender{}
	n := NewWithSender(s, 1, discardLogger())
	if err := n.Notify(context.Background(), notify.Notification{Title: "t"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(s.sent) != 1 {
		t.Errorf("sent %d items, want only the message", len(s.sent))
	}
}

func TestNotify_MessageFailure(t *testing.T) {
	n := NewWithSender(&fakeSender{failMsg: true}, 1, discardLogger())
	if err := n.Notify(context.Background(), notify.Notification{Title: "t"}); err == nil {
		t.Error("expected error when the message fails")
	}
}

func TestNotify_PinFailureIsNotFatal(t *testing.T) {
	n := NewWithSender(&fakeSender{failPin: true}, 1, discardLogger())
	err := n.Notify(context.Background(), notify.Notification{Title: "t", Latitude: model.Float(1), Longitude: model.Float(2)})
	if err != nil {
		t.Errorf("pin failure should not fail Notify: %v", err)
	}
}

func TestFormatMessage_EscapesHTML(t *testing.T) {
	got := formatMessage(notify.Notification{
		Title:       "Fish & <chips>",
		Description: "a < b",
		Location:    "Pier",
		Transition:  "enter",
		Link:        "placereminder://reminders/x",
	})
	for _, want := range []string{
		"<b>Fish &amp; &lt;chips&gt;</b> (arrived)",
		"a &lt; b",
		"📍 <i>Pier</i>",
		"<code>placereminder://reminders/x</code>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("message %q missing %q", got, want)
		}
	}
}

func TestName(t *testing.T) {
	if NewWithSender(&fakeSender{}, 1, discardLogger()).Name() != "telegram" {
		t.Error("unexpected name")
	}
}
