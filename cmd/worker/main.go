package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"train-booking-system/internal/captcha"
	"train-booking-system/internal/config"
	"train-booking-system/internal/database"
	"train-booking-system/internal/railclient"
	"train-booking-system/internal/temporal/activities"
	"train-booking-system/internal/temporal/workflows"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	// Load configuration
	cfg := config.Load()

	if cfg.Username == "" || cfg.Password == "" {
		log.Fatal("RAIL_USERNAME and RAIL_PASSWORD must be set")
	}

	// Connect to database
	db, err := database.NewDB(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("Connected to database")

	// Connect to Temporal
	temporalClient, err := client.Dial(client.Options{
		HostPort: cfg.TemporalAddress,
	})
	if err != nil {
		log.Fatalf("Failed to create Temporal client: %v", err)
	}
	defer temporalClient.Close()

	log.Println("Connected to Temporal")

	// Collaborators
	rail := railclient.New(cfg.RailBaseURL)
	recognizer := captcha.NewOCRClient(cfg.OCRAddress)

	// Create worker
	w := worker.New(temporalClient, workflows.TaskQueue, worker.Options{})

	// Register workflows
	w.RegisterWorkflow(workflows.BookingWorkflow)

	// Register activities
	sessionActivities := activities.NewSessionActivities(rail, db, recognizer, cfg.Username, cfg.Password)
	w.RegisterActivity(sessionActivities.CheckCachedSession)
	w.RegisterActivity(sessionActivities.InitSession)
	w.RegisterActivity(sessionActivities.FetchLoginCaptcha)
	w.RegisterActivity(sessionActivities.ResolveCaptcha)
	w.RegisterActivity(sessionActivities.Login)
	w.RegisterActivity(sessionActivities.PersistSession)
	w.RegisterActivity(sessionActivities.QueryAuthorizedPassengers)

	ticketActivities := activities.NewTicketActivities(rail)
	w.RegisterActivity(ticketActivities.QueryAvailability)

	orderActivities := activities.NewOrderActivities(rail)
	w.RegisterActivity(orderActivities.Submit)
	w.RegisterActivity(orderActivities.FetchToken)
	w.RegisterActivity(orderActivities.FetchOrderCaptcha)
	w.RegisterActivity(orderActivities.CheckOrderInfo)
	w.RegisterActivity(orderActivities.Confirm)
	w.RegisterActivity(orderActivities.QueryWaitTime)
	w.RegisterActivity(orderActivities.QueryIncompleteOrders)

	reportActivities := activities.NewReportActivities(db)
	w.RegisterActivity(reportActivities.RecordOutcome)
	w.RegisterActivity(reportActivities.WriteReport)

	// Start worker
	err = w.Start()
	if err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}

	log.Println("Worker started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker...")
	w.Stop()
	log.Println("Worker stopped")
}
