package model

import "time"

// Beacon is the physical checkpoint marker a guard's device detects.
type Beacon struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	MacAddress      string    `json:"macAddress,omitempty"`
	Location        string    `json:"location,omitempty"`
	AvailableStatus bool      `json:"availableStatus"`
	FailedCount     int       `json:"failedCount"`
	UUID            string    `json:"uuid,omitempty"`
	Major           string    `json:"major,omitempty"`
	Minor           string    `json:"minor,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Employee is a staff member assigned to a patrol.
type Employee struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	Name     string  `json:"name"`
	Email    string  `json:"email,omitempty"`
	Phone    *string `json:"phone"`
	IsLocked bool    `json:"isLocked"`
}

// PatrolLog records whether one checkpoint was checked during a session.
type PatrolLog struct {
	ID                int64      `json:"id"`
	PatrolSessionID   int64      `json:"patrolSessionId"`
	BeaconID          int64      `json:"beaconId"`
	IsChecked         bool       `json:"isChecked"`
	CheckinTime       *time.Time `json:"checkinTime"`
	RSSI              *float64   `json:"rssi"`
	DistanceEstimated *float64   `json:"distanceEstimated"`
	Index             int        `json:"index"`
	Beacon            Beacon     `json:"beacon"`
}

// Session is one scheduled patrol as served by the remote API.
type Session struct {
	ID                    int64      `json:"id"`
	Name                  string     `json:"name"`
	Status                string     `json:"status"`
	Comments              string     `json:"comments"`
	StartDate             *time.Time `json:"startDate"`
	PlanStartTime         time.Time  `json:"planStartTime"`
	PlanEndTime           time.Time  `json:"planEndTime"`
	ActualStartTime       *time.Time `json:"actualStartTime"`
	ActualEndTime         *time.Time `json:"actualEndTime"`
	NumberOfPoints        int        `json:"numberOfPoints"`
	NumberOfCheckedPoints int        `json:"numberOfCheckedPoints"`
	AutomaticScheduling   bool       `json:"automaticScheduling"`

	Employees  []Employee  `json:"employees"`
	PatrolLogs []PatrolLog `json:"patrolLogs"`
}

// EffectiveStart is StartDate when set, PlanStartTime otherwise.
func (s Session) EffectiveStart() time.Time {
	if s.StartDate != nil {
		return *s.StartDate
	}
	return s.PlanStartTime
}

// APIResponse is the envelope returned by the session endpoint.
type APIResponse struct {
	Data []Session `json:"data"`
}

// CalendarEvent is the part of a Session that falls on a single calendar day.
type CalendarEvent struct {
	// ID is "<sessionID>_<DayKey>", unique per session and day.
	ID        string `json:"id"`
	SessionID int64  `json:"sessionId"`
	DayKey    string `json:"dayKey"`

	// LayoutTime is the "HH:mm - HH:mm" slice of the day this event covers.
	LayoutTime string `json:"layoutTime"`
	// SpanTime is the session's own "HH:mm - HH:mm", not clipped to the day.
	SpanTime string `json:"spanTime"`
	// DisplayTime is the full "DD/MM HH:mm - DD/MM HH:mm" range.
	DisplayTime string `json:"displayTime"`

	Title    string `json:"title"`
	Location string `json:"location"`

	Session *Session `json:"originalSession,omitempty"`
}
