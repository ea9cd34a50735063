// Package alarm keeps the table of active faults reported by check modules
// and tells subscribers the most severe level after every report.
package alarm

import (
	"errors"
	"fmt"
	"time"
)

// Module and capability names.
const (
	Name          = "alarm_process"
	CapReport     = "alarm_report"
	CapSubscribe  = "subscribe_alarm_event"
	MaxSubscriber = 32
)

var (
	ErrNoOwner         = errors.New("report has no owner")
	ErrTooManyHandlers = errors.New("subscriber limit reached")
)

// Level is an alarm severity. Lower is more severe.
type Level int

const (
	LevelCritical Level = 1
	LevelMajor    Level = 2
	LevelMinor    Level = 3
	// LevelNone means no fault is active.
	LevelNone Level = 4
)

func (l Level) String() string {
	switch l {
	case LevelCritical:
		return "critical"
	case LevelMajor:
		return "major"
	case LevelMinor:
		return "minor"
	case LevelNone:
		return "none"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Fault is one raised alarm. ID and SubID together with Resource identify it.
type Fault struct {
	ID       uint16    `json:"id"`
	SubID    uint16    `json:"subId"`
	Name     string    `json:"name"`
	Resource string    `json:"resource"`
	Level    Level     `json:"level"`
	Raised   time.Time `json:"raised"`
}

// Code packs ID and SubID the way the active-alarm file prints them.
func (f Fault) Code() uint32 { return uint32(f.ID)<<16 | uint32(f.SubID) }

// Report carries every fault its owner currently sees. Faults the owner
// raised before and omits now are cleared.
type Report struct {
	Owner  string
	Faults []Fault
}

// ReportFunc is the value exported as alarm_report.
type ReportFunc func(Report) error

// EventFunc receives the most severe active level after each report.
type EventFunc func(Level)

// SubscribeFunc is the value exported as subscribe_alarm_event.
type SubscribeFunc func(EventFunc) error
