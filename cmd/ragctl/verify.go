package main

import (
	"fmt"
	"sort"

	"github.com/bull/careerconnect-rag/internal/indexer"
	"github.com/bull/careerconnect-rag/internal/storage"
)

func printStats(stats *storage.IndexStats) {
	fmt.Println()
	fmt.Println("=== Index Statistics ===")
	fmt.Printf("Total vectors: %d\n", stats.TotalVectors)
	fmt.Printf("Dimension:     %d\n", stats.Dimension)
	fmt.Printf("Fullness:      %.2f%%\n", stats.FullnessRatio*100)

	if len(stats.CategoryCounts) > 0 {
		categories := make([]string, 0, len(stats.CategoryCounts))
		for c := range stats.CategoryCounts {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		fmt.Println("Categories:")
		for _, c := range categories {
			fmt.Printf("  %-30s %d\n", c, stats.CategoryCounts[c])
		}
	}
}

func printMatches(query string, matches []storage.Match) {
	fmt.Println()
	fmt.Printf("=== Smoke Query: %q ===\n", query)
	if len(matches) == 0 {
		fmt.Println("No matches returned.")
		return
	}
	for i, m := range matches {
		category, text := "Unknown", ""
		if m.Metadata != nil {
			category, text = m.Metadata.Category, m.Metadata.Text
		}
		if r := []rune(text); len(r) > 100 {
			text = string(r[:100]) + "..."
		}
		fmt.Printf("%d. [%s] score %.4f\n   %s\n", i+1, category, m.Score, text)
	}
}

func printVerification(v *indexer.Verification) {
	printStats(v.Stats)
	if v.SmokeQuery != "" {
		printMatches(v.SmokeQuery, v.SmokeMatches)
	}
}
