package service

import (
	"errors"
	"testing"
	"time"

	"shopify_vendor_hub/internal/model"
)

func TestParseSpecificTime(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"8 AM", 8, false},
		{"8am", 8, false},
		{"12 AM", 0, false},
		{"12 PM", 12, false},
		{"1 PM", 13, false},
		{"11:00 pm", 23, false},
		{" 9 PM ", 21, false},
		{"13 PM", 0, true},
		{"0 AM", 0, true},
		{"8:30 AM", 0, true},
		{"08:00", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseSpecificTime(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSpecificTime(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("ParseSpecificTime(%q) 应返回 ErrInvalidArgument: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseSpecificTime(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestValidateNotifySetting(t *testing.T) {
	if err := ValidateNotifySetting(model.NotifyModeEveryXHours, "3"); err != nil {
		t.Errorf("合法间隔被拒绝: %v", err)
	}
	if err := ValidateNotifySetting(model.NotifyModeEveryXHours, "0"); err == nil {
		t.Error("间隔为 0 应被拒绝")
	}
	if err := ValidateNotifySetting(model.NotifyModeSpecificTime, "7 PM"); err != nil {
		t.Errorf("合法时刻被拒绝: %v", err)
	}
	if err := ValidateNotifySetting("weekly", "1"); err == nil {
		t.Error("未知模式应被拒绝")
	}
}

func notifyUser(mode, value string, last *time.Time) *model.User {
	return &model.User{
		Role:           model.RoleStoreOwner,
		NotifyMode:     &mode,
		NotifyValue:    &value,
		LastNotifiedAt: last,
	}
}

func TestShouldNotify(t *testing.T) {
	loc := time.UTC
	at := func(day, hour, min int) time.Time { return time.Date(2026, 3, day, hour, min, 0, 0, loc) }
	ptr := func(t time.Time) *time.Time { return &t }

	tests := []struct {
		name   string
		user   *model.User
		now    time.Time
		want   bool
		reason string
	}{
		{"每日时刻首次命中", notifyUser(model.NotifyModeSpecificTime, "8 AM", nil), at(1, 8, 0), true, ReasonDue},
		{"同一小时内任意分钟都命中", notifyUser(model.NotifyModeSpecificTime, "8 AM", nil), at(1, 8, 59), true, ReasonDue},
		{"未到时刻", notifyUser(model.NotifyModeSpecificTime, "8 AM", nil), at(1, 7, 59), false, ReasonNotYet},
		{"当天已通知", notifyUser(model.NotifyModeSpecificTime, "8 AM", ptr(at(1, 8, 0))), at(1, 8, 30), false, ReasonAlreadyToday},
		{"昨天通知过", notifyUser(model.NotifyModeSpecificTime, "8 AM", ptr(at(1, 8, 0))), at(2, 8, 0), true, ReasonDue},
		{"时刻配置无效", notifyUser(model.NotifyModeSpecificTime, "noon", nil), at(1, 12, 0), false, ReasonInvalidConfig},
		{"上次通知在未来", notifyUser(model.NotifyModeSpecificTime, "8 AM", ptr(at(5, 8, 0))), at(1, 8, 0), false, ReasonInvalidState},
		{"间隔首次立即触发", notifyUser(model.NotifyModeEveryXHours, "3", nil), at(1, 2, 0), true, ReasonBootstrap},
		{"间隔已到", notifyUser(model.NotifyModeEveryXHours, "3", ptr(at(1, 5, 0))), at(1, 8, 0), true, ReasonDue},
		{"间隔未到", notifyUser(model.NotifyModeEveryXHours, "3", ptr(at(1, 5, 1))), at(1, 8, 0), false, ReasonNotYet},
		{"间隔配置无效", notifyUser(model.NotifyModeEveryXHours, "-1", nil), at(1, 8, 0), false, ReasonInvalidConfig},
		{"间隔上次通知在未来", notifyUser(model.NotifyModeEveryXHours, "1", ptr(at(3, 0, 0))), at(1, 8, 0), false, ReasonInvalidState},
		{"未配置模式", &model.User{Role: model.RoleStoreOwner}, at(1, 8, 0), false, ReasonDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShouldNotify(tt.user, tt.now, loc)
			if got.Trigger != tt.want || got.Reason != tt.reason {
				t.Errorf("ShouldNotify() = %+v, want trigger=%v reason=%s", got, tt.want, tt.reason)
			}
		})
	}
}

func TestShouldNotify_UsesLocation(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)
	u := notifyUser(model.NotifyModeSpecificTime, "8 AM", nil)

	// UTC 00:00 即上海 08:00
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if got := ShouldNotify(u, now, shanghai); !got.Trigger {
		t.Errorf("应按店铺时区判定: %+v", got)
	}
	if got := ShouldNotify(u, now, time.UTC); got.Trigger {
		t.Errorf("UTC 下不应触发: %+v", got)
	}
}
