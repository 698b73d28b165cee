// Command ingest pushes one local file through the chunk/embed/upsert
// pipeline without going through the HTTP server. Useful for seeding an
// index from the shell.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/recallhq/recall/internal/clients/openai"
	"github.com/recallhq/recall/internal/clients/pinecone"
	"github.com/recallhq/recall/internal/ingest"
	"github.com/recallhq/recall/internal/platform/logger"
	"github.com/recallhq/recall/internal/services"
	"github.com/recallhq/recall/internal/types"
	"github.com/recallhq/recall/internal/utils"
	"github.com/recallhq/recall/internal/vector"
)

func main() {
	docID := flag.String("doc-id", "", "document id (defaults to the file name)")
	path := flag.String("file", "", "path of the text file to ingest")
	flag.Parse()

	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *path == "" {
		fmt.Println("usage: ingest -file <path> [-doc-id <id>]")
		os.Exit(2)
	}
	raw, err := os.ReadFile(*path)
	if err != nil {
		log.Error("Could not read input file", "file", *path, "error", err)
		os.Exit(1)
	}
	id := strings.TrimSpace(*docID)
	if id == "" {
		id = filepath.Base(*path)
	}

	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAI client", "error", err)
		os.Exit(1)
	}
	pineconeClient, err := pinecone.NewFromEnv(log)
	if err != nil {
		log.Error("Could not init Pinecone client", "error", err)
		os.Exit(1)
	}
	vectorStore, err := vector.NewStore(log, pineconeClient)
	if err != nil {
		log.Error("Could not init vector store", "error", err)
		os.Exit(1)
	}

	chunkSize := utils.GetEnvAsInt("CHUNK_SIZE", ingest.DefaultChunkSize, log)
	steps := &ingest.Steps{AI: openaiClient, Store: vectorStore}
	svc := services.NewIngestService(log, nil, "", steps, chunkSize)

	accepted, err := svc.Ingest(context.Background(), types.Document{ID: id, Text: string(raw)})
	if err != nil {
		log.Error("Ingest failed", "doc_id", id, "error", err)
		os.Exit(1)
	}
	svc.Wait()
	log.Info("Ingest finished", "doc_id", accepted.DocID, "file", *path)
}
