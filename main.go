// main.go
// Odyssea headless sync client
// Wires the stores against live Firebase services: signs in, binds the
// owner's trip subscription and logs snapshot arrivals until interrupted.

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"odyssea/cache"
	"odyssea/config"
	"odyssea/models"
	"odyssea/remote"
	"odyssea/stores"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using system environment variables")
	}

	cfg := config.Load()
	cfg.Validate()

	log.Printf("🚀 Starting Odyssea sync client")
	log.Printf("📍 Project: %s", cfg.Firebase.ProjectID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Remote clients
	firestoreClient, err := remote.NewFirestoreClient(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsPath)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Firestore: %v", err)
	}
	defer firestoreClient.Close()

	storageClient, err := remote.NewStorageClient(ctx, cfg.Firebase.StorageBucket, cfg.Firebase.CredentialsPath)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Storage: %v", err)
	}
	defer storageClient.Close()

	identity := remote.NewFirebaseIdentity(cfg.Firebase.APIKey)

	// Local cache
	cacheStore, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		log.Fatalf("❌ Failed to open cache: %v", err)
	}
	defer cacheStore.Close()
	log.Printf("💾 Cache open at %s", cfg.Cache.Path)

	// Stores
	profileStore := stores.NewProfileStore(firestoreClient, storageClient, cacheStore)
	authStore := stores.NewAuthStore(identity, profileStore, cacheStore)
	tripStore := stores.NewTripStore(firestoreClient, storageClient, cacheStore)
	placesStore := stores.NewPlacesStore(firestoreClient)
	themeStore := stores.NewThemeStore(cacheStore)
	log.Printf("✅ Stores initialized (theme: %s)", themeStore.Mode())

	// Bind the trip subscription to the session lifecycle.
	unwatchAuth := authStore.Watch(func() {
		switch authStore.Status() {
		case models.AuthAuthenticated:
			user := authStore.User()
			if user == nil {
				return
			}
			log.Printf("🔐 Signed in as %s", user.Email)
			if err := tripStore.InitUserTrips(ctx, user.UID); err != nil {
				log.Printf("❌ Failed to bind trips: %v", err)
			}
		case models.AuthUnauthenticated:
			if msg := authStore.Err(); msg != "" {
				log.Printf("⚠️  Auth: %s", msg)
			}
			tripStore.Teardown()
			placesStore.ClearAll()
		}
	})
	defer unwatchAuth()

	unwatchTrips := tripStore.Watch(func() {
		log.Printf("🧳 Trips snapshot: %d trip(s)", len(tripStore.Trips()))
	})
	defer unwatchTrips()

	authStore.InitListener(ctx)

	if cfg.Sync.Email != "" {
		authStore.SignIn(ctx, cfg.Sync.Email, cfg.Sync.Password)
	} else {
		log.Println("⚠️  SYNC_EMAIL not set; waiting for a persisted session")
	}

	// Run until interrupted
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down...")
	tripStore.Teardown()
	placesStore.ClearAll()
	authStore.StopListener()
	log.Println("✅ Stopped gracefully")
}
