package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shelfwise/receiptscan/internal/config"
	"github.com/shelfwise/receiptscan/internal/models"
	"github.com/shelfwise/receiptscan/internal/services"
)

func main() {
	// Command line flags
	imagePath := flag.String("file", "", "Receipt image to process (JPEG, PNG, WebP, GIF, HEIC or PDF)")
	level := flag.String("level", "", "Preprocessing level: none, quick, standard or full")
	timeout := flag.Duration("timeout", 0, "OCR timeout, e.g. 45s (default from config)")
	noValidate := flag.Bool("no-validate", false, "Skip image quality validation")
	pretty := flag.Bool("pretty", false, "Indent the JSON output")
	psm := flag.String("psm", "", "Page segmentation mode: single_block, sparse_text or auto")
	language := flag.String("language", "", "OCR language (default from config)")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *imagePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	// Load .env
	godotenv.Load()

	// Load config
	cfg := config.Load()

	imageBytes, err := os.ReadFile(*imagePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read image")
	}

	engine, err := services.NewTesseractEngine(1, cfg.OcrLanguage)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize OCR engine")
	}
	defer engine.Close()

	opts := services.DefaultOptions()
	opts.OcrTimeout = cfg.OcrTimeout
	opts.Validate = cfg.ValidateUploads && !*noValidate
	opts.Constraints = cfg.Constraints()
	opts.Ocr.Language = cfg.OcrLanguage
	if parsed, err := models.ParsePreprocessLevel(cfg.PreprocessLevel); err == nil {
		opts.PreprocessLevel = parsed
	}
	if *level != "" {
		parsed, err := models.ParsePreprocessLevel(*level)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid preprocess level")
		}
		opts.PreprocessLevel = parsed
	}
	if *timeout > 0 {
		opts.OcrTimeout = *timeout
	}
	if *psm != "" {
		mode, err := models.ParsePageSegMode(*psm)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid page segmentation mode")
		}
		opts.Ocr.PageSegMode = mode
	}
	if *language != "" {
		opts.Ocr.Language = *language
	}

	pipeline := services.NewPipeline(engine)
	receipt, err := pipeline.ProcessReceiptImage(context.Background(), imageBytes, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to process receipt")
	}

	encoder := json.NewEncoder(os.Stdout)
	if *pretty {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(receipt); err != nil {
		log.Fatal().Err(err).Msg("failed to encode result")
	}
}
