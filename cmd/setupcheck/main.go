// main.go - Checks API keys and pings every enabled answer model once.

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/bosocmputer/ocr_answer_compare/configs"
	"github.com/bosocmputer/ocr_answer_compare/internal/ai"
	"github.com/bosocmputer/ocr_answer_compare/internal/storage"
)

const pingTimeout = 10 * time.Second

func main() {
	configs.LoadConfig()

	fmt.Printf("🔍 %s v%s setup check\n\n", configs.APP_NAME, configs.APP_VERSION)

	// Step 1: Key status
	fmt.Println("🔑 API keys:")
	status := configs.ValidateConfig()
	keys := make([]string, 0, len(status))
	for key := range status {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		mark := "❌ missing or placeholder"
		if status[key] {
			mark = "✅ present"
		}
		fmt.Printf("  %-20s %s\n", key, mark)
	}

	// Step 2: OCR provider
	fmt.Printf("\n🖼️  OCR provider: %s\n", configs.OCR_PROVIDER)
	if _, _, err := ai.CreateOCRProviderWithFallback(); err != nil {
		fmt.Printf("  ❌ %v\n", err)
	}

	// Step 3: Optional MongoDB
	if configs.MONGO_URI != "" {
		fmt.Println("\n🗄️  MongoDB:")
		store, err := storage.InitMongoDB(configs.MONGO_URI, configs.MONGO_DB_NAME)
		if err != nil {
			fmt.Printf("  ❌ %v\n", err)
		} else {
			fmt.Println("  ✅ reachable")
			store.Close()
		}
	}

	// Step 4: Ping each enabled model
	fmt.Println("\n🤖 Answer models:")
	providers, err := ai.CreateAnswerProviders(configs.EnabledModels())
	if err != nil {
		log.Fatalf("Failed to create answer providers: %v", err)
	}
	if len(providers) == 0 {
		fmt.Println("  ❌ no model has a usable API key")
		os.Exit(1)
	}

	working := 0
	for _, provider := range providers {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		start := time.Now()
		_, _, err := provider.Answer(ctx, "Hello")
		cancel()

		if err != nil {
			fmt.Printf("  ❌ %-12s %s\n", provider.Name(), ai.UserMessage(ai.CategorizeError(provider.Name(), err)))
			continue
		}
		working++
		fmt.Printf("  ✅ %-12s %s (%.1fs)\n", provider.Name(), provider.Model(), time.Since(start).Seconds())
	}

	fmt.Printf("\n📊 %d/%d models working\n", working, len(providers))
	if working == 0 {
		os.Exit(1)
	}
}
