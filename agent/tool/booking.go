package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	contractx "github.com/naruemon-s/glowdesk/agent/contract"
	"github.com/naruemon-s/glowdesk/db"
)

const (
	ToolCheckConflicts  = "booking.check_conflicts"
	ToolSaveAppointment = "booking.save_appointment"
)

// BookingStore is the slice of the relational layer the booking tools
// touch. *db.Store satisfies it; tests use fakes.
type BookingStore interface {
	CountConfirmedBookingsAt(ctx context.Context, appointmentTime string) (int, error)
	InsertBooking(ctx context.Context, booking db.Booking) error
}

type ConflictOutput struct {
	HasConflicts  bool   `json:"has_conflicts"`
	ConflictCount int    `json:"conflict_count"`
	Message       string `json:"message"`
}

type SaveOutput struct {
	AppointmentID string `json:"appointment_id"`
	Confirmation  string `json:"confirmation"`
}

// BookingTools executes the two side-effecting booking operations. NewID is
// injectable so tests get stable identifiers.
type BookingTools struct {
	Store BookingStore
	NewID func() string
}

func NewBookingTools(store BookingStore) *BookingTools {
	return &BookingTools{Store: store, NewID: uuid.NewString}
}

// CheckConflicts reports confirmed bookings at the exact (date, time) pair.
// Overlap beyond exact timestamp equality is not detected.
func (t *BookingTools) CheckConflicts(ctx context.Context, date, timeOfDay string) contractx.ToolResult {
	appointmentTime := combineTimestamp(date, timeOfDay)
	if appointmentTime == "" {
		return contractx.ToolResult{Tool: ToolCheckConflicts, Error: "date and time are required"}
	}

	count, err := t.Store.CountConfirmedBookingsAt(ctx, appointmentTime)
	if err != nil {
		return contractx.ToolResult{Tool: ToolCheckConflicts, Error: fmt.Sprintf("database error: %v", err)}
	}

	msg := "Time slot is available"
	if count > 0 {
		msg = fmt.Sprintf("Found %d existing appointments at this time", count)
	}
	return contractx.ToolResult{
		Tool: ToolCheckConflicts,
		Result: ConflictOutput{
			HasConflicts:  count > 0,
			ConflictCount: count,
			Message:       msg,
		},
	}
}

// SaveAppointment persists one confirmed booking with a fresh identifier.
// Callers are expected to have run CheckConflicts for the same (date, time)
// pair first.
func (t *BookingTools) SaveAppointment(ctx context.Context, date, timeOfDay, service, customerName string) contractx.ToolResult {
	appointmentTime := combineTimestamp(date, timeOfDay)
	if appointmentTime == "" {
		return contractx.ToolResult{Tool: ToolSaveAppointment, Error: "date and time are required"}
	}
	service = strings.TrimSpace(service)
	if service == "" {
		return contractx.ToolResult{Tool: ToolSaveAppointment, Error: "service is required"}
	}

	newID := t.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	id := newID()

	booking := db.Booking{
		ID:              id,
		Title:           fmt.Sprintf("%s for %s", service, customerName),
		Service:         service,
		Date:            date,
		TimeOfDay:       timeOfDay,
		AppointmentTime: appointmentTime,
		CustomerName:    customerName,
		Status:          db.BookingStatusConfirmed,
	}
	if err := t.Store.InsertBooking(ctx, booking); err != nil {
		return contractx.ToolResult{Tool: ToolSaveAppointment, Error: fmt.Sprintf("database error: %v", err)}
	}

	return contractx.ToolResult{
		Tool: ToolSaveAppointment,
		Result: SaveOutput{
			AppointmentID: id,
			Confirmation:  fmt.Sprintf("Your appointment for %s on %s at %s has been saved!", service, date, timeOfDay),
		},
	}
}

// combineTimestamp joins normalized date and time into the exact-match key
// used by both the conflict check and the save path.
func combineTimestamp(date, timeOfDay string) string {
	date = strings.TrimSpace(date)
	timeOfDay = strings.TrimSpace(timeOfDay)
	if date == "" || timeOfDay == "" {
		return ""
	}
	return date + "T" + timeOfDay
}
