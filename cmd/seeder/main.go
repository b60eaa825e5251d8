package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aeroguard/aeroguard-api/internal/config"
	"github.com/aeroguard/aeroguard-api/internal/model"
	"github.com/aeroguard/aeroguard-api/pkg/aqi"
)

func main() {
	// Load config
	cfg := config.Load()

	// Force DB logging off to avoid noise
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Connected to Database")

	log.Println("🌱 Seeding demo devices...")
	devices := seedDevices(db)

	log.Println("🌱 Seeding 24h of simulated readings per device...")
	for _, d := range devices {
		seedReadings(db, d)
	}

	log.Println("🎉 Seeding completed!")
}

type demoDevice struct {
	id       string
	name     string
	area     string
	lat, lon float64
	baseIAQ  float64
}

var demoDevices = []demoDevice{
	{"AERO-NODE-001", "AeroGuard Node 001", "Riverside Park", 47.4979, 19.0402, 80},
	{"AERO-NODE-002", "AeroGuard Node 002", "Main Street Crossing", 47.5003, 19.0521, 160},
	{"AERO-NODE-003", "AeroGuard Node 003", "Industrial East", 47.4898, 19.0810, 260},
}

func seedDevices(db *gorm.DB) []demoDevice {
	for _, d := range demoDevices {
		var existing model.Device
		if err := db.Where("id = ?", d.id).First(&existing).Error; err == nil {
			log.Printf("🔄 Device already exists: %s", d.id)
			continue
		}

		lat, lon := d.lat, d.lon
		device := model.Device{
			ID:              d.id,
			Name:            d.name,
			SecretKey:       d.id, // matches the firmware's provisioning default
			Latitude:        &lat,
			Longitude:       &lon,
			AreaName:        d.area,
			Active:          true,
			FirmwareVersion: "1.4.2",
		}

		if err := db.Create(&device).Error; err != nil {
			log.Printf("❌ Failed to create device %s: %v", d.id, err)
		} else {
			log.Printf("✅ Created device: %s | Area: %s", d.id, d.area)
		}
	}
	return demoDevices
}

// seedReadings writes one reading per 10 minutes for the last 24 hours,
// wobbling each sensor around the device's baseline the way the real MQ135
// nodes drift.
func seedReadings(db *gorm.DB, d demoDevice) {
	rng := rand.New(rand.NewSource(42))
	now := time.Now().Truncate(10 * time.Minute)

	created := 0
	for i := 144; i >= 0; i-- {
		measuredAt := now.Add(-time.Duration(i) * 10 * time.Minute)

		// Diurnal swing: worst air around the evening commute.
		hour := float64(measuredAt.Hour())
		swing := 30 * math.Sin((hour-6)*math.Pi/12)
		iaqVal := d.baseIAQ + swing + rng.Float64()*20 - 10
		if iaqVal < 10 {
			iaqVal = 10
		}

		pm25 := aqi.PM25FromIAQ(iaqVal)
		index := aqi.FromConcentration(pm25, aqi.PM25)
		category := aqi.CategoryFromAQI(index)

		temp := 22 + rng.Float64()*6 - 3
		hum := 55 + rng.Float64()*20 - 10
		pressure := 1013 + rng.Float64()*8 - 4
		co2 := 400 + iaqVal*2
		raw := 120 + iaqVal/2
		rssi := -55 - rng.Intn(25)
		uptime := int64((144 - i)) * 10 * 60 * 1000

		flags, _ := json.Marshal(map[string]bool{
			"temp_humidity_present": true,
			"pressure_present":      true,
			"iaq_in_range":          true,
			"valid":                 true,
		})
		external, _ := json.Marshal(map[string]interface{}{
			"aqi_source": model.AQISourceIAQEstimate,
			"advisory": map[string]string{
				"name":  category.Name,
				"color": category.ColorHex,
			},
		})

		slug := category.Slug
		m := model.Measurement{
			ID:            uuid.NewString(),
			DeviceID:      d.id,
			MeasuredAt:    measuredAt,
			MQ135Raw:      &raw,
			IAQScore:      &iaqVal,
			CO2Equivalent: &co2,
			Temperature:   &temp,
			Humidity:      &hum,
			Pressure:      &pressure,
			PM25:          &pm25,
			AQI:           &index,
			AQICategory:   &slug,
			QualityFlags:  datatypes.JSON(flags),
			ExternalData:  datatypes.JSON(external),
			RSSI:          &rssi,
			UptimeMs:      &uptime,
		}

		// Skip duplicates on re-run; the unique (device_id, measured_at)
		// index rejects them.
		if err := db.Create(&m).Error; err == nil {
			created++
		}
	}

	log.Printf("✅ Seeded %d readings for %s", created, fmt.Sprintf("%s (%s)", d.id, d.area))
}
