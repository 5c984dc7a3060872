package controllers

import (
	"nimblevision/database"
)

// User role constants
const (
	RoleAdmin         = database.RoleAdmin
	RoleUser          = database.RoleUser
	RoleSecondaryUser = database.RoleSecondaryUser
)

// Subscription status constants
const (
	SubscriptionStatusActive    = database.SubscriptionStatusActive
	SubscriptionStatusExpired   = database.SubscriptionStatusExpired
	SubscriptionStatusCancelled = database.SubscriptionStatusCancelled
)

// Complaint status constants
const (
	ComplaintStatusPending    = database.ComplaintStatusPending
	ComplaintStatusInProgress = database.ComplaintStatusInProgress
	ComplaintStatusResolved   = database.ComplaintStatusResolved
	ComplaintStatusClosed     = database.ComplaintStatusClosed
)

// Generated credentials and list limits
const (
	generatedPasswordLength = 10
	defaultAuditLimit       = 50
	maxAuditLimit           = 200
	defaultSecondaryQuota   = 3
	maxSaviourIDAttempts    = 3
)

var validComplaintStatuses = map[string]bool{
	ComplaintStatusPending:    true,
	ComplaintStatusInProgress: true,
	ComplaintStatusResolved:   true,
	ComplaintStatusClosed:     true,
}

var validProfiles = map[string]bool{
	database.ProfileSaviour:  true,
	database.ProfileNiSensu:  true,
	database.ProfileSmartJar: true,
}
