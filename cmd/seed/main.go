// Command seed populates a development database with demo staff, patients
// and appointments. Never run against production.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicflow/clinicflow/internal/config"
	"github.com/clinicflow/clinicflow/internal/domain"
	"github.com/clinicflow/clinicflow/internal/domain/appointment"
	"github.com/clinicflow/clinicflow/internal/domain/patient"
	"github.com/clinicflow/clinicflow/pkg/database"
	"github.com/clinicflow/clinicflow/pkg/logger"
)

const (
	numDoctors  = 4
	numPatients = 30
	seedPass    = "changeme123!"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}
	if cfg.App.Environment == "production" {
		os.Stderr.WriteString("refusing to seed a production environment\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db, log); err != nil {
		log.Fatal("database migration failed", zap.Error(err))
	}

	gofakeit.Seed(42)

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPass), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("hashing seed password", zap.Error(err))
	}

	admin := &domain.Staff{
		Email:        "admin@clinicflow.local",
		PasswordHash: string(hash),
		FirstName:    "System",
		LastName:     "Admin",
		Role:         domain.RoleAdmin,
		IsActive:     true,
	}
	if err := db.Create(admin).Error; err != nil {
		log.Fatal("seeding admin", zap.Error(err))
	}

	receptionist := &domain.Staff{
		Email:        "frontdesk@clinicflow.local",
		PasswordHash: string(hash),
		FirstName:    gofakeit.FirstName(),
		LastName:     gofakeit.LastName(),
		Role:         domain.RoleReceptionist,
		IsActive:     true,
	}
	if err := db.Create(receptionist).Error; err != nil {
		log.Fatal("seeding receptionist", zap.Error(err))
	}

	doctors := make([]*domain.Staff, 0, numDoctors)
	for i := 0; i < numDoctors; i++ {
		d := &domain.Staff{
			Email:          fmt.Sprintf("doctor%d@clinicflow.local", i+1),
			PasswordHash:   string(hash),
			FirstName:      gofakeit.FirstName(),
			LastName:       gofakeit.LastName(),
			Role:           domain.RoleDoctor,
			Specialization: gofakeit.RandomString([]string{"general practice", "pediatrics", "internal medicine", "orthopedics"}),
			Room:           fmt.Sprintf("R%02d", i+1),
			IsActive:       true,
		}
		if err := db.Create(d).Error; err != nil {
			log.Fatal("seeding doctor", zap.Error(err))
		}
		doctors = append(doctors, d)
	}

	patients := make([]*patient.Patient, 0, numPatients)
	for i := 0; i < numPatients; i++ {
		p := &patient.Patient{
			FirstName:   gofakeit.FirstName(),
			LastName:    gofakeit.LastName(),
			DateOfBirth: gofakeit.DateRange(time.Now().AddDate(-90, 0, 0), time.Now().AddDate(-1, 0, 0)),
			Gender:      patient.Gender(gofakeit.RandomString([]string{"male", "female", "other"})),
			NationalID:  fmt.Sprintf("NID-%08d", gofakeit.Number(10_000_000, 99_999_999)),
			Phone:       gofakeit.Phone(),
			Email:       gofakeit.Email(),
			Status:      patient.StatusActive,
			CreatedBy:   receptionist.ID,
		}
		if gofakeit.Bool() {
			p.Allergies = []string{gofakeit.RandomString([]string{"penicillin", "latex", "peanuts", "sulfa"})}
		}
		if err := db.Create(p).Error; err != nil {
			log.Fatal("seeding patient", zap.Error(err))
		}
		patients = append(patients, p)
	}

	// Tomorrow's calendar: a handful of bookings per doctor on the half hour.
	day := time.Now().AddDate(0, 0, 1)
	created := 0
	for _, d := range doctors {
		slot := time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, time.Local)
		for i := 0; i < 5; i++ {
			p := patients[gofakeit.Number(0, len(patients)-1)]
			a := &appointment.Appointment{
				PatientID:    p.ID,
				DoctorID:     d.ID,
				ScheduledAt:  slot,
				DurationMins: 30,
				Type:         appointment.TypeConsultation,
				Status:       appointment.StatusScheduled,
				Reason:       gofakeit.RandomString([]string{"follow-up", "annual physical", "persistent cough", "back pain"}),
				CreatedBy:    receptionist.ID,
			}
			if err := db.Create(a).Error; err != nil {
				log.Fatal("seeding appointment", zap.Error(err))
			}
			created++
			slot = slot.Add(time.Duration(gofakeit.Number(2, 4)) * 30 * time.Minute)
		}
	}

	log.Info("seed complete",
		zap.Int("staff", numDoctors+2),
		zap.Int("patients", numPatients),
		zap.Int("appointments", created),
		zap.String("password", seedPass),
	)
}
