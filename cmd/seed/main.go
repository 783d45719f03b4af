// Command seed populates a development database with demo accounts, posts,
// comments and likes.
package main

import (
	"flag"
	"log"

	"photostream/internal/config"
	"photostream/internal/database"
	"photostream/internal/seed"
)

func main() {
	opts := seed.DefaultOptions()
	flag.IntVar(&opts.Creators, "creators", opts.Creators, "number of creator accounts")
	flag.IntVar(&opts.Viewers, "viewers", opts.Viewers, "number of viewer accounts")
	flag.IntVar(&opts.PostsPerCreator, "posts", opts.PostsPerCreator, "posts per creator")
	flag.IntVar(&opts.CommentsPerPost, "comments", opts.CommentsPerPost, "comments per post")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Run(db, opts); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
