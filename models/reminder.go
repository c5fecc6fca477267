package models

import "time"

// ReminderPayload is the asynq task body of an appointment reminder.
type ReminderPayload struct {
	AppointmentID AppointmentID `json:"appointmentId"`
	CustomerName  string        `json:"customerName"`
	CustomerPhone string        `json:"customerPhone"`
	CustomerEmail string        `json:"customerEmail,omitempty"`
	ServiceType   string        `json:"serviceType"`
	StartsAt      time.Time     `json:"startsAt"`
	FireAt        time.Time     `json:"fireAt"`
}
