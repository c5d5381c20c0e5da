package main

import (
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"run-dispatch-service/internal/adapters/cache"
	"run-dispatch-service/internal/adapters/repositories"
	"run-dispatch-service/internal/api"
	"run-dispatch-service/internal/config"
	"run-dispatch-service/internal/domain"
	"run-dispatch-service/internal/platform/db"
	"run-dispatch-service/internal/ports"
	"run-dispatch-service/internal/services"
)

// main is the application composition root.
// It wires concrete adapters (Postgres, Redis) behind ports and starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	port := config.Get("PORT", "8080")
	apiToken := config.Get("API_TOKEN", "")
	if apiToken == "" {
		log.Println("API_TOKEN not set: authentication disabled")
	}

	// Pizzeria location; every route starts here.
	originLat, err := config.GetFloat("PIZZERIA_LAT", -23.2657)
	if err != nil {
		log.Fatal(err)
	}
	originLng, err := config.GetFloat("PIZZERIA_LNG", -51.0528)
	if err != nil {
		log.Fatal(err)
	}
	origin := domain.Coordinates{Lat: originLat, Lng: originLng}
	if !origin.Valid() {
		log.Fatalf("invalid pizzeria origin: lat=%f lng=%f", originLat, originLng)
	}

	database, err := db.Open(databaseURL, config.GetInt("DB_MAX_CONNS", 10))
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	orders := repositories.NewPostgresOrderRepository(database)
	drivers := repositories.NewPostgresDriverRepository(database)
	runs := repositories.NewPostgresRunRepository(database)

	// Redis is optional; without it driver feeds are served straight from
	// Postgres on every poll.
	var runCache ports.RunCache
	if addr := config.Get("REDIS_ADDR", ""); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		runCache = cache.NewRedisRunCache(client, 30*time.Second)
		log.Printf("Run cache enabled addr=%s", addr)
	}

	dispatcher := &services.Dispatcher{
		Orders:  orders,
		Drivers: drivers,
		Runs:    runs,
		Cache:   runCache,
		Origin:  origin,
	}
	executor := &services.Executor{
		Runs:             runs,
		Cache:            runCache,
		StrictSequential: config.GetBool("STRICT_SEQUENTIAL", false),
	}

	router := api.NewRouter(api.Deps{
		Dispatcher: dispatcher,
		Executor:   executor,
		Orders:     orders,
		Drivers:    drivers,
		Runs:       runs,
		Cache:      runCache,
		APIToken:   apiToken,
	})

	log.Printf("Server listening addr=:%s", port)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	log.Fatal(srv.ListenAndServe())
}
