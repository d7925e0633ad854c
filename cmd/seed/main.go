// Command main runs the database seeder for Pariposhan.
package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"pariposhan/internal/config"
	"pariposhan/internal/database"
	"pariposhan/internal/seed"
)

func main() {
	numMembers := flag.Int("members", 50, "Number of community members to generate")
	numItems := flag.Int("items", 200, "Number of posts and articles to create")
	numProducts := flag.Int("products", 20, "Number of community product submissions")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	catalogOnly := flag.Bool("catalog-only", false, "Only ensure the built-in catalog")
	preset := flag.String("preset", "", "Apply a seeder preset ("+strings.Join(seed.PresetNames(), ", ")+")")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible output")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	if *preset != "" {
		log.Printf("Applying preset: %s (ignoring other flags)\n", *preset)
	} else if !*catalogOnly {
		log.Printf("Target: %d members, %d items, %d products, clean=%v\n", *numMembers, *numItems, *numProducts, *shouldClean)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db, seed.FactoryOptions{Seed: *randSeed})

	if *shouldClean && !*catalogOnly {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	if err := seed.Products(db); err != nil {
		log.Fatalf("❌ Built-in catalog seeding failed: %v", err)
	}
	if *catalogOnly {
		log.Println("✨ Built-in catalog ensured.")
		return
	}

	ctx := context.Background()
	var res *seed.Result
	if *preset != "" {
		res, err = s.ApplyPreset(ctx, *preset)
	} else {
		res, err = s.Seed(ctx, seed.Options{
			NumMembers:   *numMembers,
			NumItems:     *numItems,
			NumProducts:  *numProducts,
			ArticleShare: 0.2,
			MaxLikes:     30,
			MaxComments:  6,
			MaxReviews:   10,
			NumReports:   *numItems / 20,
		})
	}
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ All done! %d items, %d products, %d reactions, %d comments, %d reviews, %d reports.",
		res.Items, res.Products, res.Reactions, res.Comments, res.Reviews, res.Reports)
	log.Println("👤 Generated members start at user ID 1000; mint tokens with those IDs to act as them.")
}
