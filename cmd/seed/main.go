// Command main runs the database seeder for Tourbook.
package main

import (
	"flag"
	"log"

	"tourbook/internal/config"
	"tourbook/internal/database"
	"tourbook/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.NumUsers, "Number of users to create")
	numPosts := flag.Int("posts", defaults.NumPosts, "Number of posts to create")
	comments := flag.Int("comments", defaults.CommentsPerPost, "Comments per post")
	maxDepth := flag.Int("depth", defaults.MaxDepth, "Deepest reply level")
	shouldClean := flag.Bool("clean", defaults.ShouldClean, "Clean database before seeding")
	randSeed := flag.Int64("seed", defaults.Seed, "Random seed for reproducible data")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	opts := defaults
	opts.NumUsers = *numUsers
	opts.NumPosts = *numPosts
	opts.CommentsPerPost = *comments
	opts.MaxDepth = *maxDepth
	opts.ShouldClean = *shouldClean
	opts.Seed = *randSeed

	summary, err := seed.Seed(db, opts)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Seeded %d users, %d posts, %d comments, %d reactions",
		summary.Users, summary.Posts, summary.Comments, summary.Reactions)
}
