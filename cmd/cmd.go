package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/xhad/mercury/internal/types"
	"github.com/xhad/mercury/pkg/align"
	"github.com/xhad/mercury/pkg/annotations"
	"github.com/xhad/mercury/pkg/chunker"
	cfgPkg "github.com/xhad/mercury/pkg/config"
	"github.com/xhad/mercury/pkg/embed"
	"github.com/xhad/mercury/pkg/ingest"
	"github.com/xhad/mercury/pkg/loader"
	"github.com/xhad/mercury/pkg/store"
	"github.com/xhad/mercury/server"
)

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("samples"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(config *cfgPkg.Config, flags Flags) error {
	embedder, err := embed.New(types.EmbedderConfig{
		Backend:   config.Embedding.Backend,
		Model:     config.Embedding.Model,
		BaseURL:   config.Embedding.BaseURL,
		Dimension: config.Embedding.Dimension,
		RateLimit: config.Embedding.RateLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	chunkStore, err := store.New(types.StoreConfig{
		Backend:     config.Database.Backend,
		URL:         config.Database.URL,
		TablePrefix: config.Database.TablePrefix,
		VectorDim:   config.Embedding.Dimension,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize chunk store: %v", err)
	}
	defer chunkStore.Close()

	c := chunker.NewWithConfig(chunker.ChunkerConfig{
		Delimiter: config.Chunker.Delimiter,
	})

	if config.Dataset.File != "" && !flags.SkipIngest {
		if err := ingestDataset(config, flags, c, embedder, chunkStore); err != nil {
			return err
		}
	}

	engine := align.NewWithConfig(align.EngineConfig{
		TopK:         config.Search.Results,
		EmbedTimeout: time.Duration(config.Search.EmbedTimeoutSeconds) * time.Second,
	}, chunkStore, embedder)

	srv := server.New(server.Config{
		Port: config.Server.Port,
	}, chunkStore, engine, annotations.New())

	return srv.ListenAndServe()
}

func ingestDataset(config *cfgPkg.Config, flags Flags, c chunker.Chunker, embedder types.Embedder, chunkStore types.ChunkStore) error {
	pairs, err := loader.LoadFile(config.Dataset.File)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %v", err)
	}
	color.Cyan("Ingesting %d samples from %s (model %s)", len(pairs), config.Dataset.File, embedder.ModelInfo())

	bar := getProgressBar(len(pairs), " Embedding and storing samples")
	pipeline := ingest.NewWithConfig(ingest.PipelineConfig{
		OnProgress: func(int64) {
			bar.Add(1)
		},
	}, c, embedder, chunkStore)

	count, err := pipeline.Ingest(context.Background(), pairs, !flags.Append)
	bar.Finish()
	if err != nil {
		return fmt.Errorf("ingestion failed after %d chunks: %v", count, err)
	}
	color.Green("✓ Ingested %d chunks from %d samples\n", count, len(pairs))
	return nil
}
