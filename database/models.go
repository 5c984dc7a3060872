package database

import (
	"time"

	"gorm.io/datatypes"
)

// User represents an account; primary accounts (admin, user) may own secondary users
type User struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Name           string         `gorm:"size:255;not null" json:"name"`
	Email          string         `gorm:"size:255;not null;uniqueIndex:idx_users_email" json:"email"`
	Phone          string         `gorm:"size:10;not null" json:"phone"`
	Password       string         `gorm:"size:255;not null" json:"-"`
	Role           string         `gorm:"size:50;not null;default:user;index" json:"role"`
	AccessLevel    string         `gorm:"size:50;not null;default:limited" json:"access_level"`
	Status         string         `gorm:"size:20;not null;default:active" json:"status"`
	NoOfSecUser    int            `gorm:"column:noofsecuser;not null;default:0" json:"noofsecuser"`
	Address        *string        `gorm:"type:text" json:"address"`
	AddressDetails datatypes.JSON `json:"addressDetails,omitempty"`
	CreatedBy      *uint          `gorm:"index" json:"created_by"`
	LastLoginDate  *time.Time     `json:"last_login_date"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	Devices []UserDevice `gorm:"foreignKey:UserID" json:"devices,omitempty"`
}

// UserDevice is a device registered to a user; device_id is unique per user
type UserDevice struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;uniqueIndex:idx_user_device_user_device;index" json:"user_id"`
	DeviceID        string    `gorm:"size:255;not null;uniqueIndex:idx_user_device_user_device;index" json:"device_id"`
	Saviour         *string   `gorm:"size:50" json:"saviour"`
	DeviceSimNo     *string   `gorm:"size:20" json:"device_sim_no"`
	HouseType       *string   `gorm:"size:50" json:"house_type"`
	SensorType      *string   `gorm:"size:50" json:"sensor_type"`
	LastLoginDevice *string   `gorm:"size:255" json:"last_login_device"`
	OS              *string   `gorm:"column:os;size:100" json:"os"`
	Browser         *string   `gorm:"size:100" json:"browser"`
	IsPrimary       bool      `gorm:"not null;default:false" json:"is_primary"`
	Status          string    `gorm:"size:20;not null;default:active" json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (UserDevice) TableName() string { return "user_device" }

// Tank stores the level thresholds for the tank a device monitors
type Tank struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;index;uniqueIndex:idx_tanks_device_user;uniqueIndex:idx_tanks_user_saviour" json:"user_id"`
	DeviceID        string    `gorm:"size:255;not null;index;uniqueIndex:idx_tanks_device_user" json:"device_id"`
	SaviourName     string    `gorm:"size:100;not null" json:"saviour_name"`
	SaviourID       int       `gorm:"not null;uniqueIndex:idx_tanks_user_saviour" json:"saviour_id"`
	SaviourCapacity float64   `gorm:"type:decimal(10,2);not null" json:"saviour_capacity"`
	UpperThreshold  float64   `gorm:"type:decimal(10,2);not null" json:"upper_threshold"`
	LowerThreshold  float64   `gorm:"type:decimal(10,2);not null" json:"lower_threshold"`
	SaviourHeight   float64   `gorm:"type:decimal(10,2);not null" json:"saviour_height"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Plan is a billing plan for one product profile and period
type Plan struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Plan      string    `gorm:"size:100;not null;uniqueIndex:idx_plans_plan_profile_period" json:"plan"`
	Profile   string    `gorm:"size:50;not null;index;uniqueIndex:idx_plans_plan_profile_period" json:"profile"`
	Period    string    `gorm:"size:50;not null;index;uniqueIndex:idx_plans_plan_profile_period" json:"period"`
	Amount    float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Subscription links a user's device to a plan for a period
type Subscription struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	DeviceID       string    `gorm:"size:255;not null;index" json:"device_id"`
	PlanID         uint      `gorm:"not null;index" json:"plan_id"`
	Period         string    `gorm:"size:50;not null" json:"period"`
	Quantity       int       `gorm:"not null;default:1" json:"quantity"`
	StartDate      time.Time `gorm:"not null" json:"start_date"`
	EndDate        time.Time `gorm:"not null;index" json:"end_date"`
	Amount         float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	Status         string    `gorm:"size:20;not null;default:active;index" json:"status"`
	PaymentStatus  string    `gorm:"size:20;not null;default:unpaid" json:"payment_status"`
	PaymentOrderID *string   `gorm:"size:100" json:"payment_order_id"`
	PaymentID      *string   `gorm:"size:100" json:"payment_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// City is a serviceable city, unique per state
type City struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null;index;uniqueIndex:idx_cities_name_state" json:"name"`
	State     string    `gorm:"size:100;not null;index;uniqueIndex:idx_cities_name_state" json:"state"`
	Status    string    `gorm:"size:20;not null;default:active;index" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Complaint is a free-text issue raised by a user
type Complaint struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Comment   string    `gorm:"type:text;not null" json:"comment"`
	Status    string    `gorm:"size:20;not null;default:pending;index" json:"status"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ServiceEngineer is a field engineer contact, searchable by pincode
type ServiceEngineer struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"size:100;not null" json:"name"`
	Email         string    `gorm:"size:255;not null;uniqueIndex:idx_service_engineers_email" json:"email"`
	ContactNumber string    `gorm:"size:10;not null" json:"contact_number"`
	Pincode       string    `gorm:"size:6;not null;index" json:"pincode"`
	Address       string    `gorm:"type:text;not null" json:"address"`
	Status        string    `gorm:"size:20;not null;default:active;index" json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PasswordReset holds a one-time code for resetting a password
type PasswordReset struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Email     string    `gorm:"size:255;not null;index" json:"email"`
	OTP       string    `gorm:"column:otp;size:6;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Used      bool      `gorm:"not null;default:false" json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

// User roles
const (
	RoleAdmin         = "admin"
	RoleUser          = "user"
	RoleSecondaryUser = "secondary_user"
)

// Access levels
const (
	AccessFull     = "full"
	AccessLimited  = "limited"
	AccessViewOnly = "view_only"
)

// Shared active/inactive status used by users, devices, cities and engineers
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Subscription status constants
const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusExpired   = "expired"
	SubscriptionStatusCancelled = "cancelled"
)

// Payment status constants
const (
	PaymentStatusUnpaid = "unpaid"
	PaymentStatusPaid   = "paid"
)

// Complaint status constants
const (
	ComplaintStatusPending    = "pending"
	ComplaintStatusInProgress = "in_progress"
	ComplaintStatusResolved   = "resolved"
	ComplaintStatusClosed     = "closed"
)

// Plan profiles
const (
	ProfileSaviour  = "Saviour"
	ProfileNiSensu  = "Ni-Sensu"
	ProfileSmartJar = "Smart Jar"
)

// Billing periods
const (
	PeriodMonthly    = "Monthly"
	PeriodQuarterly  = "Quarterly"
	PeriodHalfYearly = "Half Yearly"
	PeriodYearly     = "Yearly"
)
