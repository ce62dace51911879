package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tripdesk/internal/database"
	"tripdesk/internal/domain"
	"tripdesk/internal/repository"
)

func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := database.Connect(databaseURL)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running migrations...")
	if err := repository.Migrate(db); err != nil {
		log.Fatal("Migrate failed:", err)
	}

	// Cleanup old data (in safe order to avoid foreign key errors)
	log.Println("Cleaning old data...")
	db.Exec("DELETE FROM workflow_progress")
	db.Exec("DELETE FROM notifications")
	db.Exec("DELETE FROM negotiations")
	db.Exec("DELETE FROM itinerary_items")
	db.Exec("DELETE FROM itineraries")
	db.Exec("DELETE FROM vendor_services")
	db.Exec("DELETE FROM vendor_profiles")
	db.Exec("DELETE FROM market_intelligence")
	db.Exec("DELETE FROM users")

	ctx := context.Background()
	users := repository.NewUserRepository(db)
	vendors := repository.NewVendorRepository(db)
	itineraries := repository.NewItineraryRepository(db)
	market := repository.NewMarketRepository(db)

	// ================== USERS ==================
	log.Println("Creating users...")

	agentHash, _ := bcrypt.GenerateFromPassword([]byte("agent123"), bcrypt.DefaultCost)
	agent := &domain.User{
		Email:        "agent@tripdesk.io",
		PasswordHash: string(agentHash),
		Name:         "Demo Agent",
		Role:         domain.RoleAgent,
	}
	if err := users.Create(ctx, agent); err != nil {
		log.Fatal("seed agent failed:", err)
	}
	log.Println("Agent created: agent@tripdesk.io / agent123")

	travelerHash, _ := bcrypt.GenerateFromPassword([]byte("traveler123"), bcrypt.DefaultCost)
	traveler := &domain.User{
		Email:        "traveler@tripdesk.io",
		PasswordHash: string(travelerHash),
		Name:         "Demo Traveler",
		Role:         domain.RoleTraveler,
	}
	if err := users.Create(ctx, traveler); err != nil {
		log.Fatal("seed traveler failed:", err)
	}

	// ================== VENDORS ==================
	log.Println("Creating vendors...")

	type vendorSeed struct {
		company     string
		types       []domain.ServiceType
		areas       []string
		response    float64
		successRate float64
		preferred   bool
	}
	seeds := []vendorSeed{
		{"Island Hoppers Co", []domain.ServiceType{domain.ServiceTours, domain.ServiceActivities}, []string{"Phuket", "Krabi"}, 1.5, 92, true},
		{"Andaman Transfers", []domain.ServiceType{domain.ServiceTransportation}, []string{"Phuket"}, 0.8, 88, true},
		{"Coral Bay Resorts", []domain.ServiceType{domain.ServiceAccommodation}, []string{"Phuket", "Phi Phi"}, 6, 81, false},
		{"Siam Street Eats", []domain.ServiceType{domain.ServiceDining}, []string{"Phuket", "Bangkok"}, 3, 76, false},
		{"Blue Lagoon Adventures", []domain.ServiceType{domain.ServiceTours, domain.ServiceActivities}, []string{"Phuket"}, 4, 69, false},
	}
	for i, s := range seeds {
		hash, _ := bcrypt.GenerateFromPassword([]byte("vendor123"), bcrypt.DefaultCost)
		u := &domain.User{
			Email:        fmt.Sprintf("vendor%d@tripdesk.io", i+1),
			PasswordHash: string(hash),
			Name:         s.company,
			Role:         domain.RoleVendor,
		}
		if err := users.Create(ctx, u); err != nil {
			log.Fatal("seed vendor user failed:", err)
		}
		v := &domain.VendorProfile{
			UserID:           u.ID,
			CompanyName:      s.company,
			Specializations:  s.types,
			CoverageAreas:    s.areas,
			AvgResponseHours: s.response,
			SuccessRate:      s.successRate,
			PreferredPartner: s.preferred,
		}
		if err := vendors.Create(ctx, v); err != nil {
			log.Fatal("seed vendor profile failed:", err)
		}
	}

	// ================== MARKET RATES ==================
	log.Println("Creating market rates...")
	rates := []domain.MarketIntelligence{
		{ServiceType: domain.ServiceTours, Location: "Phuket", MedianRate: 110, SampleSize: 42},
		{ServiceType: domain.ServiceTransportation, Location: "Phuket", MedianRate: 45, SampleSize: 63},
		{ServiceType: domain.ServiceAccommodation, Location: "Phuket", MedianRate: 185, SampleSize: 28},
		{ServiceType: domain.ServiceDining, Location: "Phuket", MedianRate: 38, SampleSize: 55},
	}
	for i := range rates {
		if err := market.Upsert(ctx, &rates[i]); err != nil {
			log.Fatal("seed market rate failed:", err)
		}
	}

	// ================== ITINERARY ==================
	log.Println("Creating demo itinerary...")
	start := time.Now().AddDate(0, 1, 0)
	it := &domain.Itinerary{
		AgentID:        agent.ID,
		TravelerID:     traveler.ID,
		Destination:    "Phuket",
		StartDate:      start,
		EndDate:        start.AddDate(0, 0, 5),
		TravelerCount:  4,
		Status:         domain.ItineraryDraft,
		ApprovalStatus: domain.ApprovalPending,
		Days: []domain.Day{
			{
				DayNumber: 1,
				Title:     "Arrival",
				Activities: []string{
					"Airport transfer to resort",
					"Hotel check-in",
					"Welcome dinner at beachfront restaurant",
				},
			},
			{
				DayNumber: 2,
				Title:     "Islands",
				Activities: []string{
					"Phi Phi Islands tour",
					"Snorkeling at Maya Bay",
					"Free time in the evening",
				},
			},
		},
	}
	if err := itineraries.Create(ctx, it); err != nil {
		log.Fatal("seed itinerary failed:", err)
	}

	log.Println("Seed completed")
}
