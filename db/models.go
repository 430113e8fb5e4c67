package db

import (
	"time"

	"github.com/uptrace/bun"
)

type Merchant struct {
	bun.BaseModel `bun:"table:merchants"`

	ID           string    `bun:"id,pk" json:"id"`
	BusinessName string    `bun:"business_name" json:"business_name"`
	Address      string    `bun:"address" json:"address"`
	WorkingHours string    `bun:"working_hours" json:"working_hours"`
	PhoneNumber  string    `bun:"phone_number" json:"phone_number"`
	ContactEmail string    `bun:"contact_email,unique" json:"contact_email"`
	CreatedAt    time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
}

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID          string    `bun:"id,pk" json:"id"`
	FullName    string    `bun:"full_name" json:"full_name"`
	Platform    string    `bun:"platform" json:"platform"`
	PhoneNumber string    `bun:"phone_number" json:"phone_number"`
	Email       string    `bun:"email" json:"email"`
	CreatedAt   time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
}

type Conversation struct {
	bun.BaseModel `bun:"table:conversations"`

	ID            string    `bun:"id,pk" json:"id"`
	UserID        string    `bun:"user_id" json:"user_id"`
	MerchantID    string    `bun:"merchant_id" json:"merchant_id"`
	SessionStatus string    `bun:"session_status" json:"session_status"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
}

type Message struct {
	bun.BaseModel `bun:"table:messages"`

	ID             string    `bun:"id,pk" json:"id"`
	ConversationID string    `bun:"conversation_id" json:"conversation_id"`
	Sender         string    `bun:"sender" json:"sender"`
	Content        string    `bun:"content" json:"content"`
	CreatedAt      time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
}

// Booking is a confirmed (or later cancelled) appointment. AppointmentTime
// is the combined "DATE+TIME" timestamp the conflict check keys on; Date
// and TimeOfDay keep the normalized components for display.
type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID              string    `bun:"id,pk" json:"id"`
	Title           string    `bun:"title" json:"title"`
	Service         string    `bun:"service" json:"service"`
	Date            string    `bun:"date" json:"date"`
	TimeOfDay       string    `bun:"time_of_day" json:"time"`
	AppointmentTime string    `bun:"appointment_time" json:"appointment_time"`
	CustomerName    string    `bun:"customer_name" json:"customer_name"`
	Status          string    `bun:"status" json:"status"`
	CreatedAt       time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
}

const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

type Portfolio struct {
	bun.BaseModel `bun:"table:portfolios,alias:portfolio"`

	ID          string    `bun:"id,pk" json:"id"`
	MerchantID  string    `bun:"merchant_id" json:"merchant_id"`
	Description string    `bun:"description" json:"description"`
	Tags        []string  `bun:"tags,array" json:"tags"`
	Price       float64   `bun:"price" json:"price"`
	ImageURL    string    `bun:"image_url" json:"image_url"`
	CreatedAt   time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
}

type MerchantDocument struct {
	bun.BaseModel `bun:"table:merchant_documents"`

	ID               string    `bun:"id,pk" json:"id"`
	MerchantID       string    `bun:"merchant_id" json:"merchant_id"`
	FileName         string    `bun:"file_name" json:"file_name"`
	FileURL          string    `bun:"file_url" json:"file_url"`
	FileType         string    `bun:"file_type" json:"file_type"`
	ProcessingStatus string    `bun:"processing_status" json:"processing_status"`
	CreatedAt        time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
}

const (
	DocumentStatusProcessing = "processing"
	DocumentStatusIndexed    = "indexed"
	DocumentStatusError      = "error"
)
