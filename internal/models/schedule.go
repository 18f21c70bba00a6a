package models

import "time"

// ScheduleTemplate is a recurring weekly availability rule. DayOfWeek follows
// time.Weekday (0 = Sunday). StartTime/EndTime are clock times in "HH:MM" and
// half-open: a template owns [StartTime, EndTime).
type ScheduleTemplate struct {
	ID                int64     `json:"id"`
	DayOfWeek         int       `json:"day_of_week"`
	StartTime         string    `json:"start_time"`
	EndTime           string    `json:"end_time"`
	Capacity          int       `json:"capacity"`
	SessionDurationID *int64    `json:"session_duration_id"`
	IsAvailable       bool      `json:"is_available"`
	AutoAvailable     bool      `json:"auto_available"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ScheduleSlot is a dated, capacity-bounded bookable interval expanded from a
// template. BookedCount is mutated only by the booking lifecycle and never
// exceeds Capacity.
type ScheduleSlot struct {
	ID                 int64     `json:"id"`
	ScheduleTemplateID int64     `json:"schedule_template_id"`
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time"`
	Capacity           int       `json:"capacity"`
	BookedCount        int       `json:"booked_count"`
	IsAvailable        bool      `json:"is_available"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
