package db

import (
	"context"
	"fmt"
)

// CountConfirmedBookingsAt counts confirmed bookings at the exact combined
// timestamp ("YYYY-MM-DDTHH:MM"). Exact-match only: overlapping durations
// are not considered.
func (s *Store) CountConfirmedBookingsAt(ctx context.Context, appointmentTime string) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	count, err := s.db.NewSelect().Model((*Booking)(nil)).
		Where("status = ?", BookingStatusConfirmed).
		Where("appointment_time = ?", appointmentTime).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return count, nil
}

func (s *Store) InsertBooking(ctx context.Context, booking Booking) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.db.NewInsert().Model(&booking).Exec(ctx); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// AppointmentView is the calendar listing shape consumed by the dashboard.
type AppointmentView struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Start         string `json:"start"`
	Status        string `json:"status"`
	User          string `json:"user"`
	CustomerPhone string `json:"customerPhone"`
	ServiceType   string `json:"serviceType"`
	Color         string `json:"color"`
}

func (s *Store) ListAppointments(ctx context.Context) ([]AppointmentView, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var bookings []Booking
	err := s.db.NewSelect().Model(&bookings).
		Order("appointment_time DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	views := make([]AppointmentView, 0, len(bookings))
	for _, b := range bookings {
		color := "bg-blue-500"
		switch b.Status {
		case BookingStatusConfirmed:
			color = "bg-green-500"
		case BookingStatusCancelled:
			color = "bg-red-500"
		}
		views = append(views, AppointmentView{
			ID:          b.ID,
			Title:       b.Title,
			Start:       b.AppointmentTime,
			Status:      b.Status,
			User:        b.CustomerName,
			ServiceType: b.Service,
			Color:       color,
		})
	}
	return views, nil
}
