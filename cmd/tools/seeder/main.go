package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/alexedwards/argon2id"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedAgents(db)
	seedCustomers(db)
	seedTemplates(db)
	seedSampleQuote(db)

	log.Println("Seeding completed successfully!")
}

func seedAgents(db *sql.DB) {
	agents := []struct {
		Name  string
		Email string
	}{
		{"Olivia Park", "olivia@bookinggpt.com"},
		{"Marcus Webb", "marcus@bookinggpt.com"},
	}

	hash, err := argon2id.CreateHash("password123", argon2id.DefaultParams)
	if err != nil {
		log.Fatalf("Failed to hash seed password: %v", err)
	}

	fmt.Println("Seeding Agents...")
	for _, a := range agents {
		_, err := db.Exec(`
			INSERT INTO agents (name, email, password_hash)
			VALUES ($1, $2, $3)
			ON CONFLICT (email) DO NOTHING;
		`, a.Name, a.Email, hash)
		if err != nil {
			log.Printf("Failed to seed agent %s: %v", a.Email, err)
		}
	}
}

func seedCustomers(db *sql.DB) {
	customers := []struct {
		First string
		Last  string
		Email string
		Phone string
	}{
		{"Maya", "Chen", "maya.chen@example.com", "+1-604-555-0101"},
		{"Daniel", "Osei", "daniel.osei@example.com", "+1-604-555-0102"},
		{"Sofia", "Moreno", "sofia.moreno@example.com", "+34-91-555-0103"},
		{"Liam", "Byrne", "liam.byrne@example.com", "+353-1-555-0104"},
		{"Amara", "Nwosu", "amara.nwosu@example.com", "+44-20-555-0105"},
		{"Kenji", "Tanaka", "kenji.tanaka@example.com", "+81-3-555-0106"},
		{"Elena", "Vasquez", "elena.vasquez@example.com", "+1-415-555-0107"},
		{"Noor", "Haddad", "noor.haddad@example.com", "+971-4-555-0108"},
	}

	fmt.Println("Seeding Customers...")
	for _, c := range customers {
		_, err := db.Exec(`
			INSERT INTO customers (first_name, last_name, email, phone)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (email) DO NOTHING;
		`, c.First, c.Last, c.Email, c.Phone)
		if err != nil {
			log.Printf("Failed to seed customer %s: %v", c.Email, err)
		}
	}
}

func seedTemplates(db *sql.DB) {
	templates := []struct {
		Name     string
		Category string
		Subject  string
		Body     string
	}{
		{
			"quote-send", "quote",
			"Your travel quote {{reference}}",
			"Hi {{first_name}},\n\nYour itinerary is ready. The total for quote {{reference}} comes to {{total}}.\n\nYou can review the full day-by-day plan through your portal link.\n\nSafe travels,\nThe BookingGPT team",
		},
		{
			"quote-reminder", "quote",
			"Reminder: quote {{reference}} is waiting",
			"Hi {{first_name}},\n\nJust a nudge that your quote {{reference}} ({{total}}) is still open. Let us know if you would like any changes.\n\nThe BookingGPT team",
		},
		{
			"booking-confirmed", "booking",
			"Booking {{reference}} confirmed",
			"Hi {{first_name}},\n\nGreat news: your booking {{reference}} is confirmed. We will follow up with travel documents shortly.\n\nThe BookingGPT team",
		},
	}

	fmt.Println("Seeding Templates...")
	for _, t := range templates {
		_, err := db.Exec(`
			INSERT INTO templates (name, category, subject, body)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (name) DO UPDATE SET category = EXCLUDED.category, subject = EXCLUDED.subject, body = EXCLUDED.body;
		`, t.Name, t.Category, t.Subject, t.Body)
		if err != nil {
			log.Printf("Failed to seed template %s: %v", t.Name, err)
		}
	}
}

func seedSampleQuote(db *sql.DB) {
	var customerID string
	if err := db.QueryRow(`SELECT id FROM customers WHERE email = 'maya.chen@example.com'`).Scan(&customerID); err != nil {
		log.Printf("Failed to find seed customer: %v", err)
		return
	}

	fmt.Println("Seeding Sample Quote...")
	var quoteID string
	err := db.QueryRow(`
		INSERT INTO quotes (customer_id, reference, status, markup, discount, trip_start, trip_days, currency)
		VALUES ($1, 'Q-2026-SAMPLE01', 'draft', 10, 0, '2026-09-14', 5, 'USD')
		ON CONFLICT (reference) DO UPDATE SET customer_id = EXCLUDED.customer_id
		RETURNING id;
	`, customerID).Scan(&quoteID)
	if err != nil {
		log.Printf("Failed to seed quote: %v", err)
		return
	}

	items := []struct {
		Type     string
		Name     string
		Cost     float64
		Markup   float64
		Type2    string
		Quantity int
		Day      int
	}{
		{"flight", "YVR to Lisbon round trip", 850, 8, "percentage", 2, 0},
		{"hotel", "Bairro Alto boutique stay", 140, 0, "percentage", 4, 0},
		{"tour", "Sintra day trip with lunch", 95, 15, "percentage", 2, 1},
		{"transfer", "Airport pickup", 45, 10, "fixed", 1, 0},
	}

	for i, it := range items {
		_, err := db.Exec(`
			INSERT INTO quote_items (quote_id, item_type, name, cost, markup, markup_type, quantity, day_index, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT DO NOTHING;
		`, quoteID, it.Type, it.Name, it.Cost, it.Markup, it.Type2, it.Quantity, it.Day, i)
		if err != nil {
			log.Printf("Failed to seed quote item %s: %v", it.Name, err)
		}
	}
}
