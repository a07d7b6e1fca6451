package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"shopify_vendor_hub/internal/model"
)

// 调度判定原因
const (
	ReasonDue           = "due"
	ReasonBootstrap     = "bootstrap"
	ReasonNotYet        = "not_yet"
	ReasonAlreadyToday  = "already_notified_today"
	ReasonInvalidConfig = "invalid_config"
	ReasonInvalidState  = "invalid_last_notified_at"
	ReasonDisabled      = "disabled"
)

var specificTimeRe = regexp.MustCompile(`^(\d{1,2})(?::00)?\s*([AaPp][Mm])$`)

// NotifyDecision 调度判定结果
type NotifyDecision struct {
	Trigger bool
	Reason  string
}

// ParseSpecificTime 解析 "8 AM" / "12 PM" / "8:00 pm"，返回 0-23 的小时
func ParseSpecificTime(v string) (int, error) {
	m := specificTimeRe.FindStringSubmatch(strings.TrimSpace(v))
	if m == nil {
		return 0, invalidArg("无法解析的时间 %q，应为类似 \"8 AM\" 的格式", v)
	}

	hour, _ := strconv.Atoi(m[1])
	if hour < 1 || hour > 12 {
		return 0, invalidArg("小时超出范围: %d", hour)
	}

	pm := strings.EqualFold(m[2], "pm")
	switch {
	case hour == 12 && !pm:
		hour = 0
	case hour != 12 && pm:
		hour += 12
	}
	return hour, nil
}

// ParseIntervalHours 解析间隔小时数（正整数）
func ParseIntervalHours(v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return 0, invalidArg("无效的间隔小时数 %q", v)
	}
	return n, nil
}

// ValidateNotifySetting 校验通知模式与参数组合
func ValidateNotifySetting(mode, value string) error {
	switch mode {
	case model.NotifyModeSpecificTime:
		_, err := ParseSpecificTime(value)
		return err
	case model.NotifyModeEveryXHours:
		_, err := ParseIntervalHours(value)
		return err
	default:
		return invalidArg("未知的通知模式 %q", mode)
	}
}

// ShouldNotify 判断店主在 now 这一刻是否应触发通知
// specific_time 按小时粒度匹配且每个自然日只触发一次；every_x_hours 首次立即触发
func ShouldNotify(u *model.User, now time.Time, loc *time.Location) NotifyDecision {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)

	switch u.Mode() {
	case model.NotifyModeSpecificTime:
		hour, err := ParseSpecificTime(u.ModeValue())
		if err != nil {
			return NotifyDecision{Reason: ReasonInvalidConfig}
		}
		if now.Hour() != hour {
			return NotifyDecision{Reason: ReasonNotYet}
		}
		if u.LastNotifiedAt != nil {
			last := u.LastNotifiedAt.In(loc)
			if last.After(now) {
				return NotifyDecision{Reason: ReasonInvalidState}
			}
			if sameDay(last, now) {
				return NotifyDecision{Reason: ReasonAlreadyToday}
			}
		}
		return NotifyDecision{Trigger: true, Reason: ReasonDue}

	case model.NotifyModeEveryXHours:
		hours, err := ParseIntervalHours(u.ModeValue())
		if err != nil {
			return NotifyDecision{Reason: ReasonInvalidConfig}
		}
		if u.LastNotifiedAt == nil {
			return NotifyDecision{Trigger: true, Reason: ReasonBootstrap}
		}
		last := *u.LastNotifiedAt
		if last.After(now) {
			return NotifyDecision{Reason: ReasonInvalidState}
		}
		if now.Sub(last) >= time.Duration(hours)*time.Hour {
			return NotifyDecision{Trigger: true, Reason: ReasonDue}
		}
		return NotifyDecision{Reason: ReasonNotYet}
	}

	return NotifyDecision{Reason: ReasonDisabled}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
