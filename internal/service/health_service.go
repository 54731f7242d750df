package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/sirupsen/logrus"
)

const (
	HealthUp       = "UP"
	HealthDegraded = "DEGRADED"

	DatabaseConnected    = "Connected"
	DatabaseDisconnected = "Disconnected"
)

// HealthService reports process and database status. A database failure
// degrades the report; it never fails the check.
type HealthService struct {
	db      *sql.DB
	started time.Time
	log     logrus.FieldLogger
}

func NewHealthService(db *sql.DB, log logrus.FieldLogger) *HealthService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &HealthService{
		db:      db,
		started: time.Now(),
		log:     log.WithField("component", "health"),
	}
}

type HealthReport struct {
	Status    string     `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
	Database  string     `json:"database"`
	Error     string     `json:"error,omitempty"`
	System    SystemInfo `json:"system"`
}

type SystemInfo struct {
	Uptime    int64       `json:"uptime"`
	Memory    *MemoryInfo `json:"memory,omitempty"`
	CPU       int         `json:"cpu,omitempty"`
	Hostname  string      `json:"hostname,omitempty"`
	Platform  string      `json:"platform,omitempty"`
	GoVersion string      `json:"goVersion"`
}

type MemoryInfo struct {
	Free  uint64 `json:"free"`
	Total uint64 `json:"total"`
}

func (s *HealthService) Check(ctx context.Context) HealthReport {
	uptime := int64(time.Since(s.started).Seconds())

	if err := s.pingDatabase(ctx); err != nil {
		s.log.WithError(err).Warn("database health check failed")
		return HealthReport{
			Status:    HealthDegraded,
			Timestamp: time.Now(),
			Database:  DatabaseDisconnected,
			Error:     err.Error(),
			System: SystemInfo{
				Uptime:    uptime,
				GoVersion: runtime.Version(),
			},
		}
	}

	hostname, _ := os.Hostname()
	info := SystemInfo{
		Uptime:    uptime,
		CPU:       runtime.NumCPU(),
		Hostname:  hostname,
		Platform:  runtime.GOOS,
		GoVersion: runtime.Version(),
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.Memory = &MemoryInfo{Free: vm.Free, Total: vm.Total}
	} else {
		s.log.WithError(err).Debug("memory stats unavailable")
	}

	return HealthReport{
		Status:    HealthUp,
		Timestamp: time.Now(),
		Database:  DatabaseConnected,
		System:    info,
	}
}

func (s *HealthService) pingDatabase(ctx context.Context) error {
	if s.db == nil {
		return errors.New("database not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return err
	}
	var one int
	return s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}
