package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/application/flow"
	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/application/profile"
	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/config"
	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/infrastructure/challenge"
	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/infrastructure/directory"
	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/infrastructure/identity"
	"github.com/gorantiwarrohan3-stack/prasadamConnect/internal/transport/term"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	gateway := identity.New(cfg)
	dir := directory.New(cfg)
	challenges := challenge.NewManager(cfg)
	challenges.SetMount(term.Mount{})
	defer challenges.Release()

	profiles := profile.NewService(dir, gateway)

	var view *term.View
	coord := flow.New(flow.Deps{
		Gateway:    gateway,
		Directory:  dir,
		Challenges: challenges,
		Notify: func(n flow.Notice) {
			view.Notify(n)
		},
	})
	view = term.New(coord, profiles, os.Stdin, os.Stdout, cfg.DefaultCountry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		cancel()
	}()

	if err := dir.Health(ctx); err != nil {
		log.Printf("WARN: account directory not reachable at %s: %v", cfg.DirectoryBaseURL, err)
	}

	fmt.Println("Supported countries:")
	fmt.Print(term.CountryList())

	if err := view.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("session ended: %v", err)
	}
}
