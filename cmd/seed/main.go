package main

import (
	"context"
	"log"
	"os"
	"strconv"

	"github.com/akarpov/go-shop/internal/domain"
	"github.com/akarpov/go-shop/internal/repository"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		log.Fatalf("Invalid DB_PORT: %v", err)
	}

	creds := &repository.Credentials{
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              dbPort,
		User:              getEnv("DB_USER", "postgres"),
		Password:          getEnv("DB_PASSWORD", "postgres"),
		DBName:            getEnv("DB_NAME", "shop"),
		MigrationsDirPath: getEnv("MIGRATIONS_PATH", "./internal/repository/migrations"),
	}

	repo, err := repository.NewRepository(creds)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(creds); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx := context.Background()
	log.Println("Seeding database...")

	categories := []struct {
		name, description string
	}{
		{"Electronics", "Electronic devices and gadgets"},
		{"Clothing", "Fashion and apparel"},
		{"Books", "Books and literature"},
	}

	categoryIDs := make(map[string]int64, len(categories))
	for _, c := range categories {
		created, err := repo.CreateCategory(ctx, &domain.Category{Name: c.name, Description: c.description})
		if err != nil {
			log.Fatalf("Failed to seed category %s: %v", c.name, err)
		}
		categoryIDs[c.name] = created.ID
		log.Printf("Added category: %s", c.name)
	}

	products := []struct {
		name, description string
		price             float64
		stock             int
		category          string
	}{
		{"Laptop", "High-performance laptop", 999.99, 10, "Electronics"},
		{"Smartphone", "Latest smartphone model", 699.99, 15, "Electronics"},
		{"Headphones", "Wireless noise-canceling headphones", 199.99, 20, "Electronics"},
		{"T-Shirt", "Comfortable cotton t-shirt", 29.99, 50, "Clothing"},
		{"Jeans", "Classic denim jeans", 79.99, 30, "Clothing"},
		{"Sneakers", "Comfortable running shoes", 89.99, 25, "Clothing"},
		{"Programming Book", "Learn Go programming", 49.99, 40, "Books"},
		{"Novel", "Bestselling fiction novel", 24.99, 35, "Books"},
		{"Cookbook", "Delicious recipes from around the world", 34.99, 20, "Books"},
	}

	for _, p := range products {
		categoryID := categoryIDs[p.category]
		_, err := repo.CreateProduct(ctx, &domain.Product{
			Name:          p.name,
			Description:   p.description,
			Price:         p.price,
			StockQuantity: p.stock,
			CategoryID:    &categoryID,
		})
		if err != nil {
			log.Fatalf("Failed to seed product %s: %v", p.name, err)
		}
		log.Printf("Added product: %s", p.name)
	}

	log.Println("Database seeded successfully!")
}
