package mockapi

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jrsteele09/go-log-dashboard/internal/errors"
	"github.com/jrsteele09/go-log-dashboard/logs"
	"github.com/jrsteele09/go-log-dashboard/users"
)

const (
	DemoPassword     = "demo123"
	DefaultDemoLogs  = 1000
	demoHistoryDays  = 30
	demoContextRatio = 0.3
)

var demoUsers = []users.User{
	{Username: "admin", Email: "admin@logsdashboard.com", FirstName: "Admin", LastName: "User"},
	{Username: "developer", Email: "dev@logsdashboard.com", FirstName: "John", LastName: "Developer"},
	{Username: "analyst", Email: "analyst@logsdashboard.com", FirstName: "Jane", LastName: "Analyst"},
	{Username: "operator", Email: "ops@logsdashboard.com", FirstName: "Mike", LastName: "Operations"},
	{Username: "tester", Email: "test@logsdashboard.com", FirstName: "Sarah", LastName: "Tester"},
}

// DemoSources are the services demo logs are attributed to.
var DemoSources = []string{
	"auth_service", "user_management", "api_gateway", "database_service",
	"payment_processor", "email_service", "file_storage", "notification_service",
	"analytics_engine", "security_monitor", "web_server", "background_worker",
	"cache_service", "search_engine", "reporting_service", "backup_service",
	"monitoring_agent", "load_balancer", "cdn_service", "message_queue",
}

// severity weights out of 100
var demoSeverityWeights = []struct {
	severity logs.Severity
	weight   int
}{
	{logs.SeverityDebug, 20},
	{logs.SeverityInfo, 40},
	{logs.SeverityWarning, 25},
	{logs.SeverityError, 12},
	{logs.SeverityCritical, 3},
}

var demoMessages = map[logs.Severity][]string{
	logs.SeverityDebug: {
		"Database query executed successfully", "User session initialized",
		"Cache hit for user preferences", "Processing request parameters",
		"Validating input data", "Loading configuration settings",
		"Establishing database connection", "Parsing request headers",
		"Initializing security context", "Starting background task",
	},
	logs.SeverityInfo: {
		"User login successful", "New user registration completed",
		"File upload completed", "Data export initiated",
		"System health check passed", "Scheduled task completed",
		"User logout processed", "Configuration updated",
		"Cache refresh completed", "Service started successfully",
		"API request processed", "Email notification sent",
		"Password reset requested", "User profile updated",
		"Search query executed",
	},
	logs.SeverityWarning: {
		"High memory usage detected", "Slow database query performance",
		"API rate limit approaching", "Deprecated feature usage detected",
		"Unusual login pattern detected", "Cache miss rate increasing",
		"Disk space running low", "Connection timeout occurred",
		"Invalid request parameters", "Session expiring soon",
		"Retry attempt after failure", "Performance threshold exceeded",
	},
	logs.SeverityError: {
		"Database connection failed", "Authentication failed for user",
		"File upload error occurred", "Payment processing failed",
		"API request timeout", "Invalid credentials provided",
		"Service unavailable", "Data validation failed",
		"Network connection error", "Permission denied for operation",
		"Resource not found", "Configuration file missing",
		"Third-party service error", "Email delivery failed",
	},
	logs.SeverityCritical: {
		"System out of memory", "Database server unresponsive",
		"Security breach detected", "Service completely down",
		"Data corruption detected", "Critical security vulnerability",
		"System overload - shutting down", "Hardware failure detected",
		"Backup system failure", "Critical configuration error",
	},
}

var demoPresets = []logs.FilterPreference{
	{Name: "Critical Issues", Severity: logs.SeverityCritical},
	{Name: "Auth Service Errors", Severity: logs.SeverityError, Source: "auth_service"},
	{Name: "Database Problems", Severity: logs.SeverityWarning, Source: "database_service"},
	{Name: "All Warnings", Severity: logs.SeverityWarning},
	{Name: "Payment Issues", Source: "payment_processor"},
	{Name: "Recent Errors", Severity: logs.SeverityError},
}

// DemoSummary counts what SeedDemo created.
type DemoSummary struct {
	Users       int
	Logs        int
	Preferences int
}

// SeedDemo fills the server with demo accounts, logs spread over the last
// 30 days and a few saved filters per account. Every demo account uses
// DemoPassword. Existing accounts are reused. A nil rng seeds from the clock.
func (s *Server) SeedDemo(count int, rng *rand.Rand) (DemoSummary, error) {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	var summary DemoSummary

	// Step 1: accounts
	hash, err := users.HashPassword(DemoPassword)
	if err != nil {
		return summary, fmt.Errorf("[Server SeedDemo] hash password: %w", err)
	}
	seeded := make([]*users.User, 0, len(demoUsers))
	for _, du := range demoUsers {
		if existing, err := s.users.GetByUsername(du.Username); err == nil {
			seeded = append(seeded, existing)
			continue
		}
		u := du
		u.PasswordHash = hash
		u.DateJoined = time.Now().UTC()
		u.IsActive = true
		if err := s.users.Create(&u); err != nil {
			return summary, fmt.Errorf("[Server SeedDemo] create user %s: %w", u.Username, err)
		}
		seeded = append(seeded, &u)
		summary.Users++
	}

	// Step 2: logs, skewed towards recent days
	now := time.Now().UTC()
	for range count {
		s.logs.Create(demoLog(rng, now))
		summary.Logs++
	}

	// Step 3: two to four presets per account
	for _, u := range seeded {
		n := 2 + rng.IntN(3)
		for _, i := range rng.Perm(len(demoPresets))[:n] {
			p := demoPresets[i]
			p.User = u.ID
			if rng.Float64() < 0.4 {
				d := logs.NewDate(now.AddDate(0, 0, -(1 + rng.IntN(14))).Date())
				p.DateFrom = &d
			}
			if rng.Float64() < 0.2 {
				d := logs.NewDate(now.Date())
				p.DateTo = &d
			}
			if _, err := s.prefs.Create(p); err != nil {
				if errors.Is(err, errors.ErrConflict) {
					continue
				}
				return summary, fmt.Errorf("[Server SeedDemo] create preset %q: %w", p.Name, err)
			}
			summary.Preferences++
		}
	}

	s.log.Info().
		Int("users", summary.Users).
		Int("logs", summary.Logs).
		Int("preferences", summary.Preferences).
		Msg("mockapi.demo.seeded")
	return summary, nil
}

func demoLog(rng *rand.Rand, now time.Time) logs.Log {
	ago := time.Duration(demoDaysAgo(rng))*24*time.Hour +
		time.Duration(rng.IntN(24))*time.Hour +
		time.Duration(rng.IntN(60))*time.Minute +
		time.Duration(rng.IntN(60))*time.Second

	severity := demoSeverity(rng)
	messages := demoMessages[severity]
	message := messages[rng.IntN(len(messages))]
	if rng.Float64() < demoContextRatio {
		message += " - " + demoContext(rng)
	}

	return logs.Log{
		Timestamp: now.Add(-ago),
		Message:   message,
		Severity:  severity,
		Source:    DemoSources[rng.IntN(len(DemoSources))],
	}
}

// demoDaysAgo picks a day in [0, 30) weighted 30, 29, ... 1 so recent days
// are the most likely.
func demoDaysAgo(rng *rand.Rand) int {
	total := demoHistoryDays * (demoHistoryDays + 1) / 2
	n := rng.IntN(total)
	for day := range demoHistoryDays {
		n -= demoHistoryDays - day
		if n < 0 {
			return day
		}
	}
	return demoHistoryDays - 1
}

func demoSeverity(rng *rand.Rand) logs.Severity {
	n := rng.IntN(100)
	for _, w := range demoSeverityWeights {
		n -= w.weight
		if n < 0 {
			return w.severity
		}
	}
	return logs.SeverityInfo
}

func demoContext(rng *rand.Rand) string {
	switch rng.IntN(6) {
	case 0:
		return fmt.Sprintf("User ID: %d", 1+rng.IntN(1000))
	case 1:
		return fmt.Sprintf("Session: %d", 10000+rng.IntN(90000))
	case 2:
		return fmt.Sprintf("Request ID: %d", 100000+rng.IntN(900000))
	case 3:
		return fmt.Sprintf("Duration: %dms", 50+rng.IntN(4951))
	case 4:
		return fmt.Sprintf("Memory: %dMB", 64+rng.IntN(449))
	default:
		return fmt.Sprintf("CPU: %d%%", 10+rng.IntN(86))
	}
}
