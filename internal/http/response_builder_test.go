package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"budget/internal/services"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusOK).
		BodyString("test").
		Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "test" {
		t.Errorf("Body = %q, want %q", w.Body.String(), "test")
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerFormReset().
		TriggerSuccessNotification("Test message").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	if trigger == "" {
		t.Fatal("HX-Trigger header not set")
	}

	expectedParts := []string{
		`"form:reset"`,
		`"show-notification"`,
		`"type":"success"`,
		`"message":"Test message"`,
	}
	for _, part := range expectedParts {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %q: %s", part, trigger)
		}
	}
}

func TestHTMXResponseBuilder_TriggerNotices(t *testing.T) {
	tests := []struct {
		name     string
		notices  []services.Notice
		wantType string
		wantMsg  string
	}{
		{
			name:    "none",
			notices: nil,
		},
		{
			name: "latest wins without errors",
			notices: []services.Notice{
				{Level: services.NoticeInfo, Message: "first"},
				{Level: services.NoticeSuccess, Message: "saved"},
			},
			wantType: "success",
			wantMsg:  "saved",
		},
		{
			name: "first error wins",
			notices: []services.Notice{
				{Level: services.NoticeError, Message: "create failed"},
				{Level: services.NoticeError, Message: "load failed"},
				{Level: services.NoticeSuccess, Message: "ignored"},
			},
			wantType: "error",
			wantMsg:  "create failed",
		},
		{
			name:     "warning",
			notices:  []services.Notice{{Level: services.NoticeWarning, Message: "careful"}},
			wantType: "warning",
			wantMsg:  "careful",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewHTMXResponse().TriggerNotices(tt.notices).Write(w)

			trigger := w.Header().Get("HX-Trigger")
			if tt.wantType == "" {
				if trigger != "" {
					t.Errorf("HX-Trigger = %q, want none", trigger)
				}
				return
			}
			if !strings.Contains(trigger, `"type":"`+tt.wantType+`"`) {
				t.Errorf("HX-Trigger missing type %q: %s", tt.wantType, trigger)
			}
			if !strings.Contains(trigger, `"message":"`+tt.wantMsg+`"`) {
				t.Errorf("HX-Trigger missing message %q: %s", tt.wantMsg, trigger)
			}
		})
	}
}

func TestHTMXResponseBuilder_Reswap(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().Reswap("none").Write(w)

	if got := w.Header().Get("HX-Reswap"); got != "none" {
		t.Errorf("HX-Reswap = %q, want none", got)
	}
}

func TestHTMXResponseBuilder_CustomHeader(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Header("X-Custom", "value").
		Status(http.StatusCreated).
		Write(w)

	if w.Header().Get("X-Custom") != "value" {
		t.Errorf("Custom header not set")
	}
	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		builder    *HTMXResponseBuilder
		wantStatus int
		wantBody   string
	}{
		{
			name:       "bad request",
			builder:    BadRequestError("Invalid input"),
			wantStatus: http.StatusBadRequest,
			wantBody:   `<div class="error">Invalid input</div>`,
		},
		{
			name:       "internal server error",
			builder:    InternalServerError("Something broke"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `<div class="error">Something broke</div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("Body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestErrorResponse_EscapesHTML(t *testing.T) {
	w := httptest.NewRecorder()

	BadRequestError("<script>alert('xss')</script>").Write(w)

	body := w.Body.String()
	if strings.Contains(body, "<script>") {
		t.Error("Error response did not escape HTML")
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Error("Error response did not properly escape HTML entities")
	}
}

func TestConflictError(t *testing.T) {
	w := httptest.NewRecorder()

	ConflictError("busy").Write(w)

	if w.Code != http.StatusConflict {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusConflict)
	}
	if got := w.Header().Get("HX-Reswap"); got != "none" {
		t.Errorf("HX-Reswap = %q, want none", got)
	}
	trigger := w.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, `"type":"warning"`) || !strings.Contains(trigger, `"message":"busy"`) {
		t.Errorf("HX-Trigger = %s, want warning notification", trigger)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Body = %q, want empty", w.Body.String())
	}
}

func TestNotificationTypes(t *testing.T) {
	tests := []struct {
		notifType NotificationType
		want      string
	}{
		{NotificationSuccess, "success"},
		{NotificationError, "error"},
		{NotificationWarning, "warning"},
		{NotificationInfo, "info"},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		NewHTMXResponse().
			TriggerNotification(tt.notifType, "test", 1000).
			Write(w)

		trigger := w.Header().Get("HX-Trigger")
		if !strings.Contains(trigger, `"type":"`+tt.want+`"`) {
			t.Errorf("Notification type %q not found in trigger: %s", tt.want, trigger)
		}
	}
}
