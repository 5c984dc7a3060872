package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// DashboardStats is the admin overview, computed in one round trip
type DashboardStats struct {
	TotalUsers             int64   `db:"total_users" json:"totalUsers"`
	Admins                 int64   `db:"admins" json:"admins"`
	PrimaryUsers           int64   `db:"primary_users" json:"primaryUsers"`
	SecondaryUsers         int64   `db:"secondary_users" json:"secondaryUsers"`
	ActiveUsers            int64   `db:"active_users" json:"activeUsers"`
	InactiveUsers          int64   `db:"inactive_users" json:"inactiveUsers"`
	Devices                int64   `db:"devices" json:"devices"`
	Tanks                  int64   `db:"tanks" json:"tanks"`
	Plans                  int64   `db:"plans" json:"plans"`
	Cities                 int64   `db:"cities" json:"cities"`
	ServiceEngineers       int64   `db:"service_engineers" json:"serviceEngineers"`
	ActiveSubscriptions    int64   `db:"active_subscriptions" json:"activeSubscriptions"`
	ExpiredSubscriptions   int64   `db:"expired_subscriptions" json:"expiredSubscriptions"`
	CancelledSubscriptions int64   `db:"cancelled_subscriptions" json:"cancelledSubscriptions"`
	PendingComplaints      int64   `db:"pending_complaints" json:"pendingComplaints"`
	InProgressComplaints   int64   `db:"in_progress_complaints" json:"inProgressComplaints"`
	ResolvedComplaints     int64   `db:"resolved_complaints" json:"resolvedComplaints"`
	ClosedComplaints       int64   `db:"closed_complaints" json:"closedComplaints"`
	ActiveRevenue          float64 `db:"active_revenue" json:"activeRevenue"`
}

const dashboardStatsQuery = `
SELECT
	(SELECT COUNT(*) FROM users) AS total_users,
	(SELECT COUNT(*) FROM users WHERE role = 'admin') AS admins,
	(SELECT COUNT(*) FROM users WHERE role = 'user') AS primary_users,
	(SELECT COUNT(*) FROM users WHERE role = 'secondary_user') AS secondary_users,
	(SELECT COUNT(*) FROM users WHERE status = 'active') AS active_users,
	(SELECT COUNT(*) FROM users WHERE status = 'inactive') AS inactive_users,
	(SELECT COUNT(*) FROM user_device) AS devices,
	(SELECT COUNT(*) FROM tanks) AS tanks,
	(SELECT COUNT(*) FROM plans) AS plans,
	(SELECT COUNT(*) FROM cities) AS cities,
	(SELECT COUNT(*) FROM service_engineers) AS service_engineers,
	(SELECT COUNT(*) FROM subscriptions WHERE status = 'active') AS active_subscriptions,
	(SELECT COUNT(*) FROM subscriptions WHERE status = 'expired') AS expired_subscriptions,
	(SELECT COUNT(*) FROM subscriptions WHERE status = 'cancelled') AS cancelled_subscriptions,
	(SELECT COUNT(*) FROM complaints WHERE status = 'pending') AS pending_complaints,
	(SELECT COUNT(*) FROM complaints WHERE status = 'in_progress') AS in_progress_complaints,
	(SELECT COUNT(*) FROM complaints WHERE status = 'resolved') AS resolved_complaints,
	(SELECT COUNT(*) FROM complaints WHERE status = 'closed') AS closed_complaints,
	(SELECT COALESCE(SUM(amount), 0) FROM subscriptions WHERE status = 'active') AS active_revenue
`

// LoadDashboardStats runs the aggregate query against db
func LoadDashboardStats(ctx context.Context, db *sqlx.DB) (DashboardStats, error) {
	var stats DashboardStats
	if db == nil {
		return stats, fmt.Errorf("legacy database not initialized")
	}
	if err := db.GetContext(ctx, &stats, dashboardStatsQuery); err != nil {
		return stats, fmt.Errorf("load dashboard stats: %w", err)
	}
	return stats, nil
}
