package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"attendgw/internal/cloudinary"
	"attendgw/internal/config"
	"attendgw/internal/geocode"
	"attendgw/internal/history"
	"attendgw/internal/metrics"
	"attendgw/internal/queue"
	"attendgw/internal/store"
)

// Worker consumes queued event jobs, uploads face photos to Cloudinary,
// reverse-geocodes coordinates, and stamps the mirrored event rows.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "attendgw:events")
	}

	repo := history.NewRepository(db.Client)
	geocoder := geocode.New(cfg.GeocodeURL, cfg.GeocodeSkip)

	var cdn *cloudinary.Client
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		cdn = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Println("Cloudinary configured:", cfg.CloudinaryCloudName)
	} else {
		log.Println("Cloudinary not configured, photos will be dropped")
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != "event" {
			continue
		}
		job, err := msg.Job()
		if err != nil {
			log.Printf("bad event job: %v", err)
			continue
		}
		process(ctx, repo, cdn, geocoder, job)
	}

	log.Println("worker stopped")
}

func process(ctx context.Context, repo *history.Repository, cdn *cloudinary.Client, geocoder *geocode.Client, job queue.EventJob) {
	log.Printf("processing event %s", job.EventID)

	evt, err := repo.GetEvent(ctx, job.EventID)
	if err != nil || evt == nil {
		log.Printf("fetch event %s failed: %v", job.EventID, err)
		return
	}

	if job.Latitude != nil && job.Longitude != nil {
		addr, err := geocoder.Reverse(ctx, *job.Latitude, *job.Longitude)
		if err != nil {
			log.Printf("geocode failed for %s: %v", job.EventID, err)
		} else if err := repo.SetAddress(ctx, job.EventID, addr); err != nil {
			log.Printf("address update failed for %s: %v", job.EventID, err)
		}
	}

	if job.Photo == "" {
		_ = repo.SetStatus(ctx, job.EventID, history.StatusComplete)
		return
	}
	if cdn == nil {
		log.Printf("event %s has a photo but no photo storage is configured", job.EventID)
		_ = repo.SetStatus(ctx, job.EventID, history.StatusFailed)
		metrics.PhotoUploads.WithLabelValues("dropped").Inc()
		return
	}

	result, err := cdn.UploadBase64(ctx, job.Photo)
	if err != nil {
		log.Printf("photo upload failed for %s: %v", job.EventID, err)
		_ = repo.SetStatus(ctx, job.EventID, history.StatusFailed)
		metrics.PhotoUploads.WithLabelValues("failure").Inc()
		return
	}

	if err := repo.SetPhotoURL(ctx, job.EventID, result.SecureURL); err != nil {
		log.Printf("photo url update failed for %s: %v", job.EventID, err)
		return
	}
	metrics.PhotoUploads.WithLabelValues("success").Inc()
	log.Printf("event %s processed successfully", job.EventID)
}
