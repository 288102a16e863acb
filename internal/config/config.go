package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/workforce-engine/internal/domain/leave"
	"github.com/cmlabs-hris/workforce-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/calendar"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Database   DatabaseConfig
	JWT        JWTConfig
	App        AppConfig
	Attendance AttendanceConfig
	Leave      LeaveConfig
	Payroll    PayrollConfig
	Cron       CronConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
	MinConns int
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
	SSEExpiration    string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port               int
	Env                string
	LogLevel           string
	Timezone           string
	StorageDriver      string
	CORSAllowedOrigins []string
}

type AttendanceConfig struct {
	LateAfter       time.Duration
	StandardHours   decimal.Decimal
	HalfDayFraction decimal.Decimal
}

type LeaveConfig struct {
	DefaultAnnualDays int
	BusinessDayTypes  []string
	Holidays          []time.Time
}

type PayrollConfig struct {
	DefaultOvertimeRate decimal.Decimal
}

type CronConfig struct {
	FinalizeInterval time.Duration
	// FinalizeAfter is how long an open record is kept for a late check-out
	// before the job marks it absent.
	FinalizeAfter time.Duration
}

func Load() (*Config, error) {
	// .env is optional; the environment wins either way.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	} else if err != nil {
		slog.Debug("No .env file found, using process environment")
	}

	config := &Config{}
	var err error

	// Database configuration
	if config.Database.Port, err = getEnvInt("DB_PORT", 5432); err != nil {
		return nil, err
	}
	if config.Database.MaxConns, err = getEnvInt("DB_MAX_CONNS", 25); err != nil {
		return nil, err
	}
	if config.Database.MinConns, err = getEnvInt("DB_MIN_CONNS", 5); err != nil {
		return nil, err
	}
	config.Database.Host = getEnv("DB_HOST", "localhost")
	config.Database.User = getEnv("DB_USER", "postgres")
	config.Database.Password = getEnv("DB_PASSWORD", "")
	config.Database.Name = getEnv("DB_NAME", "workforce")
	config.Database.SSLMode = getEnv("DB_SSL_MODE", "disable")

	// Application configuration
	if config.App.Port, err = getEnvInt("APP_PORT", 8080); err != nil {
		return nil, err
	}
	config.App.Env = getEnv("APP_ENV", "development")
	config.App.LogLevel = getEnv("LOG_LEVEL", "info")
	config.App.Timezone = getEnv("APP_TIMEZONE", "UTC")
	config.App.StorageDriver = getEnv("STORAGE_DRIVER", StorageDriverPostgres)
	config.App.CORSAllowedOrigins = getEnvSlice("CORS_ALLOWED_ORIGINS")

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
		SSEExpiration:    getEnv("JWT_SSE_EXPIRATION_TIME", "5m"),
	}

	// Attendance policy
	if config.Attendance.LateAfter, err = getEnvDuration("ATTENDANCE_LATE_AFTER", 9*time.Hour); err != nil {
		return nil, err
	}
	if config.Attendance.StandardHours, err = getEnvDecimal("ATTENDANCE_STANDARD_HOURS", "8"); err != nil {
		return nil, err
	}
	if config.Attendance.HalfDayFraction, err = getEnvDecimal("ATTENDANCE_HALF_DAY_FRACTION", "0.5"); err != nil {
		return nil, err
	}

	// Leave policy
	if config.Leave.DefaultAnnualDays, err = getEnvInt("LEAVE_DEFAULT_ANNUAL_DAYS", 12); err != nil {
		return nil, err
	}
	config.Leave.BusinessDayTypes = getEnvSlice("LEAVE_BUSINESS_DAY_TYPES")
	if len(config.Leave.BusinessDayTypes) == 0 {
		config.Leave.BusinessDayTypes = []string{string(leave.TypeAnnual)}
	}
	for _, raw := range getEnvSlice("HOLIDAYS") {
		day, err := time.Parse(calendar.DateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid HOLIDAYS entry %q: %w", raw, err)
		}
		config.Leave.Holidays = append(config.Leave.Holidays, day)
	}

	// Payroll policy
	if config.Payroll.DefaultOvertimeRate, err = getEnvDecimal("PAYROLL_DEFAULT_OVERTIME_RATE", "0"); err != nil {
		return nil, err
	}

	// Scheduled jobs
	if config.Cron.FinalizeInterval, err = getEnvDuration("CRON_FINALIZE_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if config.Cron.FinalizeAfter, err = getEnvDuration("ATTENDANCE_FINALIZE_AFTER", 24*time.Hour); err != nil {
		return nil, err
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.App.StorageDriver {
	case StorageDriverPostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q", StorageDriverPostgres, StorageDriverMemory)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if _, err := time.ParseDuration(c.JWT.AccessExpiration); err != nil {
		return fmt.Errorf("invalid JWT_ACCESS_EXPIRATION_TIME: %w", err)
	}
	if _, err := time.ParseDuration(c.JWT.SSEExpiration); err != nil {
		return fmt.Errorf("invalid JWT_SSE_EXPIRATION_TIME: %w", err)
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}
	if c.Attendance.LateAfter < 0 || c.Attendance.LateAfter >= 24*time.Hour {
		return fmt.Errorf("ATTENDANCE_LATE_AFTER must be within a day")
	}
	if !c.Attendance.StandardHours.IsPositive() {
		return fmt.Errorf("ATTENDANCE_STANDARD_HOURS must be positive")
	}
	if c.Attendance.HalfDayFraction.IsNegative() || c.Attendance.HalfDayFraction.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("ATTENDANCE_HALF_DAY_FRACTION must be between 0 and 1")
	}
	if c.Leave.DefaultAnnualDays < 0 {
		return fmt.Errorf("LEAVE_DEFAULT_ANNUAL_DAYS must not be negative")
	}
	for _, t := range c.Leave.BusinessDayTypes {
		if !leave.Type(t).Valid() {
			return fmt.Errorf("LEAVE_BUSINESS_DAY_TYPES contains unknown leave type %q", t)
		}
	}
	if c.Payroll.DefaultOvertimeRate.IsNegative() {
		return fmt.Errorf("PAYROLL_DEFAULT_OVERTIME_RATE must not be negative")
	}
	if c.Cron.FinalizeInterval <= 0 {
		return fmt.Errorf("CRON_FINALIZE_INTERVAL must be positive")
	}
	if c.Cron.FinalizeAfter < 24*time.Hour {
		return fmt.Errorf("ATTENDANCE_FINALIZE_AFTER must be at least 24h so overnight shifts can check out")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Location returns the business timezone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) workCalendar() calendar.WeekendPolicy {
	return calendar.DefaultWeekendPolicy().WithHolidays(c.Leave.Holidays...)
}

func (c *Config) AttendancePolicy() attendance.Policy {
	return attendance.Policy{
		Location:        c.Location(),
		LateAfter:       c.Attendance.LateAfter,
		StandardHours:   c.Attendance.StandardHours,
		HalfDayFraction: c.Attendance.HalfDayFraction,
		Calendar:        c.workCalendar(),
	}
}

// LeavePolicy counts the configured types in business days and every other
// type in calendar days.
func (c *Config) LeavePolicy() leave.Policy {
	counting := make(map[leave.Type]calendar.CountingRule, len(leave.AllTypes()))
	for _, t := range leave.AllTypes() {
		counting[t] = calendar.CountCalendarDays
	}
	for _, t := range c.Leave.BusinessDayTypes {
		counting[leave.Type(t)] = calendar.CountBusinessDays
	}
	return leave.Policy{
		DefaultAnnualDays: c.Leave.DefaultAnnualDays,
		Counting:          counting,
		Calendar:          c.workCalendar(),
	}
}

func (c *Config) PayrollPolicy() payroll.Policy {
	return payroll.Policy{DefaultOvertimeRate: c.Payroll.DefaultOvertimeRate}
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, err := time.ParseDuration(getEnv(key, fallback.String()))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func getEnvDecimal(key, fallback string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(getEnv(key, fallback))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
