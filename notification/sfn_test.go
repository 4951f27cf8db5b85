package notification

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gmLucario/pet-info-sub000/models"
)

func TestExecutionNameCarriesReminderPrefix(t *testing.T) {
	name := executionName(42)
	if !strings.HasPrefix(name, executionNamePrefix(42)) {
		t.Fatalf("execution name %q lacks its cancellation prefix", name)
	}

	second := executionName(42)
	if name == second {
		time.Sleep(2 * time.Millisecond)
		second = executionName(42)
	}
	if name == second {
		t.Fatalf("execution names must differ across starts")
	}
}

func TestSchedulePayloadShape(t *testing.T) {
	payload := SchedulePayload{
		When:         "2025-03-01T21:00:00Z",
		Reminder:     ReminderPayload{Phone: "5215512345678", Body: "vacuna"},
		ReminderID:   42,
		UserTimezone: "America/Mexico_City",
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"when", "reminder", "reminder_id", "user_timezone"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("payload missing %q: %s", key, raw)
		}
	}
	if _, ok := decoded["repeat_config"]; ok {
		t.Fatalf("one-shot payload must omit repeat_config: %s", raw)
	}

	payload.RepeatConfig = &models.RepeatConfig{RepeatType: models.RepeatTypeDaily, RepeatInterval: 1}
	raw, err = json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal recurring: %v", err)
	}
	if !strings.Contains(string(raw), `"repeat_type":"daily"`) {
		t.Fatalf("recurring payload missing repeat_type: %s", raw)
	}
}
