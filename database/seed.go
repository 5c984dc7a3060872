package database

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nimblevision/utils"
)

type seedAccount struct {
	user     User
	password string
	device   UserDevice
}

func strPtr(s string) *string { return &s }

var seedAccounts = []seedAccount{
	{
		user: User{
			Name: "Admin User", Email: "admin@gmail.com", Phone: "9999999999",
			Role: RoleAdmin, AccessLevel: AccessFull, Status: StatusActive, NoOfSecUser: 5,
		},
		password: "admin123",
		device: UserDevice{
			DeviceID: "ADMIN-DEVICE-001", Saviour: strPtr("saviour"),
			HouseType: strPtr("apartment"), SensorType: strPtr("sensortype1"), IsPrimary: true,
		},
	},
	{
		user: User{
			Name: "Regular User", Email: "user@gmail.com", Phone: "8888888888",
			Role: RoleUser, AccessLevel: AccessLimited, Status: StatusActive, NoOfSecUser: 3,
		},
		password: "user123",
		device: UserDevice{
			DeviceID: "USER-DEVICE-001", Saviour: strPtr("ni-sensu"),
			HouseType: strPtr("villa"), SensorType: strPtr("sensortype2"), IsPrimary: true,
		},
	},
}

var seedPlans = []Plan{
	{Plan: "Premium", Profile: ProfileSaviour, Period: PeriodMonthly, Amount: 100},
	{Plan: "Premium", Profile: ProfileSaviour, Period: PeriodQuarterly, Amount: 280},
	{Plan: "Premium", Profile: ProfileSaviour, Period: PeriodHalfYearly, Amount: 550},
	{Plan: "Premium", Profile: ProfileSaviour, Period: PeriodYearly, Amount: 1000},
	{Plan: "Premium", Profile: ProfileNiSensu, Period: PeriodMonthly, Amount: 50},
	{Plan: "Premium", Profile: ProfileNiSensu, Period: PeriodQuarterly, Amount: 140},
	{Plan: "Premium", Profile: ProfileNiSensu, Period: PeriodHalfYearly, Amount: 270},
	{Plan: "Premium", Profile: ProfileNiSensu, Period: PeriodYearly, Amount: 500},
	{Plan: "Premium", Profile: ProfileSmartJar, Period: PeriodMonthly, Amount: 150},
	{Plan: "Premium", Profile: ProfileSmartJar, Period: PeriodQuarterly, Amount: 420},
	{Plan: "Premium", Profile: ProfileSmartJar, Period: PeriodHalfYearly, Amount: 800},
	{Plan: "Premium", Profile: ProfileSmartJar, Period: PeriodYearly, Amount: 1500},
}

var seedCities = []City{
	{Name: "Mumbai", State: "Maharashtra"},
	{Name: "Delhi", State: "Delhi"},
	{Name: "Bangalore", State: "Karnataka"},
	{Name: "Chennai", State: "Tamil Nadu"},
	{Name: "Kolkata", State: "West Bengal"},
	{Name: "Hyderabad", State: "Telangana"},
	{Name: "Pune", State: "Maharashtra"},
	{Name: "Ahmedabad", State: "Gujarat"},
	{Name: "Jaipur", State: "Rajasthan"},
	{Name: "Lucknow", State: "Uttar Pradesh"},
}

// Seed inserts the sample accounts, plans and cities. Existing rows are left alone.
func Seed(db *gorm.DB) error {
	for _, acc := range seedAccounts {
		if err := seedUser(db, acc); err != nil {
			return err
		}
	}

	for _, p := range seedPlans {
		plan := p
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&plan).Error; err != nil {
			return fmt.Errorf("seed plan %s/%s: %w", p.Profile, p.Period, err)
		}
	}
	log.Info().Int("count", len(seedPlans)).Msg("Sample plans ensured")

	for _, c := range seedCities {
		city := c
		city.Status = StatusActive
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&city).Error; err != nil {
			return fmt.Errorf("seed city %s: %w", c.Name, err)
		}
	}
	log.Info().Int("count", len(seedCities)).Msg("Sample cities ensured")

	return nil
}

func seedUser(db *gorm.DB, acc seedAccount) error {
	var existing User
	err := db.Where("email = ?", acc.user.Email).First(&existing).Error
	if err == nil {
		log.Info().Str("email", acc.user.Email).Msg("Sample user already exists")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := utils.HashPassword(acc.password)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		user := acc.user
		user.Password = hash
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("seed user %s: %w", user.Email, err)
		}

		device := acc.device
		device.UserID = user.ID
		device.Status = StatusActive
		if err := tx.Create(&device).Error; err != nil {
			return fmt.Errorf("seed device %s: %w", device.DeviceID, err)
		}

		log.Info().Str("email", user.Email).Str("role", user.Role).Msg("Sample user created")
		return nil
	})
}
