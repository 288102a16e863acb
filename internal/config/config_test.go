package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/leave"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/calendar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("JWT_SECRET_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, 9*time.Hour, cfg.Attendance.LateAfter)
	assert.Equal(t, "8", cfg.Attendance.StandardHours.String())
	assert.Equal(t, 12, cfg.Leave.DefaultAnnualDays)
	assert.Equal(t, time.Hour, cfg.Cron.FinalizeInterval)
	assert.Equal(t, 24*time.Hour, cfg.Cron.FinalizeAfter)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())

	policy := cfg.LeavePolicy()
	assert.Equal(t, calendar.CountBusinessDays, policy.RuleFor(leave.TypeAnnual))
	assert.Equal(t, calendar.CountCalendarDays, policy.RuleFor(leave.TypeSick))
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("APP_TIMEZONE", "Asia/Jakarta")
	t.Setenv("LEAVE_BUSINESS_DAY_TYPES", "annual, sick")
	t.Setenv("HOLIDAYS", "2024-03-11")
	t.Setenv("PAYROLL_DEFAULT_OVERTIME_RATE", "2000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, "Asia/Jakarta", cfg.AttendancePolicy().Location.String())
	assert.Equal(t, "2000", cfg.PayrollPolicy().DefaultOvertimeRate.String())

	policy := cfg.LeavePolicy()
	assert.Equal(t, calendar.CountBusinessDays, policy.RuleFor(leave.TypeSick))
	assert.False(t, policy.Calendar.IsBusinessDay(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)))
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing jwt secret":   {"STORAGE_DRIVER": "memory"},
		"postgres without pwd": {"JWT_SECRET_KEY": "secret", "STORAGE_DRIVER": "postgres"},
		"unknown driver":       {"JWT_SECRET_KEY": "secret", "STORAGE_DRIVER": "sqlite"},
		"unknown leave type":   {"JWT_SECRET_KEY": "secret", "STORAGE_DRIVER": "memory", "LEAVE_BUSINESS_DAY_TYPES": "vacation"},
		"bad late after":       {"JWT_SECRET_KEY": "secret", "STORAGE_DRIVER": "memory", "ATTENDANCE_LATE_AFTER": "nine"},
		"bad holiday":          {"JWT_SECRET_KEY": "secret", "STORAGE_DRIVER": "memory", "HOLIDAYS": "11/03/2024"},
		"short finalize grace": {"JWT_SECRET_KEY": "secret", "STORAGE_DRIVER": "memory", "ATTENDANCE_FINALIZE_AFTER": "2h"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("JWT_SECRET_KEY", "")
			t.Setenv("DB_PASSWORD", "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
