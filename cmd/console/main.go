package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/contractqa/backend-go/app/bootstrap"
	"github.com/contractqa/backend-go/internal/config"
	apperrors "github.com/contractqa/backend-go/internal/errors"
)

// 交互式问答入口：本地终端里直接对合同库提问，不经过HTTP层
func main() {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("CONTRACT QA CONSOLE")
	fmt.Println(strings.Repeat("=", 60))

	app, err := bootstrap.Init()
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer app.Shutdown()
	bootstrap.SetGlobalApp(app)

	svc := app.QAService()
	reader := bufio.NewScanner(os.Stdin)
	ctx := context.Background()

	// bootstrap已尝试加载持久化索引，没有就问用户要不要现场构建
	if svc.KnowledgeBaseSize() == 0 {
		fmt.Println("\nNo knowledge base found.")
		fmt.Print("Would you like to build it now? (yes/no): ")
		if !reader.Scan() {
			return
		}
		answer := strings.ToLower(strings.TrimSpace(reader.Text()))
		if answer != "yes" && answer != "y" {
			fmt.Println("Cannot proceed without knowledge base.")
			return
		}

		dir := config.AppConfig.Data.RawDataPath
		count, err := svc.BuildKnowledgeBase(ctx, dir)
		if err != nil {
			if apperrors.IsNotFound(err) {
				fmt.Printf("No contract documents found in %s\n", dir)
			} else {
				fmt.Printf("Failed to build knowledge base: %v\n", err)
			}
			os.Exit(1)
		}
		fmt.Printf("Knowledge base built: %d chunks\n", count)
	}

	fmt.Println()
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("INTERACTIVE Q&A SESSION")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("Ask questions about the contracts (type 'exit' to quit)")
	fmt.Println()

	for {
		fmt.Print("Question: ")
		if !reader.Scan() {
			break
		}
		question := strings.TrimSpace(reader.Text())

		lowered := strings.ToLower(question)
		if lowered == "exit" || lowered == "quit" {
			fmt.Println("Goodbye!")
			break
		}
		if question == "" {
			continue
		}

		fmt.Println("\nSearching contracts...")
		result := svc.AnswerQuestion(ctx, question, 0)

		fmt.Printf("\nAnswer: %s\n", result.Answer)
		fmt.Printf("Confidence: %.2f%%\n", result.Confidence*100)

		if len(result.Context) > 0 {
			fmt.Println("\nContext from:")
			for i, chunk := range result.Context {
				fmt.Printf("  %d. %s (similarity: %.2f%%)\n", i+1, chunk.Source, chunk.Similarity*100)
			}
		}
		fmt.Println(strings.Repeat("-", 50))
		fmt.Println()
	}
}
