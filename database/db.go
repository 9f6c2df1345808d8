package database

import (
	"database/sql"
	"log"
	"sync"

	"github.com/hookguard/hookguard/internal/cache"

	"github.com/hookguard/hookguard/config"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn  *sql.DB
	Cache cache.Cache
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		newCache, errCache := cache.NewCache()
		if errCache != nil {
			log.Printf("attempt cache unavailable, reads go straight to postgres: %v", errCache)
		}
		instance = &Datasource{Conn: con, Cache: newCache}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		return nil, err
	}
	err = createAttemptTable(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// createAttemptTable creates the PostgreSQL table for webhook attempt
// records. The partial unique index is the authoritative duplicate signal
// for the idempotency guard: it only covers first attempts, because retries
// and replays legitimately share the delivery's external id.
func createAttemptTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS webhook_attempts (
			id SERIAL PRIMARY KEY,
			attempt_id TEXT NOT NULL UNIQUE,
			service TEXT NOT NULL,
			external_id TEXT,
			event TEXT NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('success', 'failed')),
			payload JSONB,
			error_message TEXT,
			attempt INT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Printf("Error creating webhook_attempts table: %v", err)
		return err
	}

	_, err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_webhook_attempts_dedup
		ON webhook_attempts (service, external_id)
		WHERE external_id IS NOT NULL AND attempt = 0
	`)
	if err != nil {
		log.Printf("Error creating dedup index: %v", err)
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_webhook_attempts_failures
		ON webhook_attempts (service, event, status, created_at)
	`)
	log.Println(err)
	return err
}
