package handlers

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/shelfwise/receiptscan/internal/config"
	"github.com/shelfwise/receiptscan/internal/models"
	"github.com/shelfwise/receiptscan/internal/services"
)

// ReceiptHandler handles receipt scanning endpoints
type ReceiptHandler struct {
	cfg      *config.Config
	pipeline *services.Pipeline
	engine   services.Engine
}

// NewReceiptHandler creates a new receipt handler
func NewReceiptHandler(cfg *config.Config, pipeline *services.Pipeline, engine services.Engine) *ReceiptHandler {
	return &ReceiptHandler{
		cfg:      cfg,
		pipeline: pipeline,
		engine:   engine,
	}
}

// ScanReceipt accepts a multipart image upload, runs the processing
// pipeline and returns the scored receipt for review
func (h *ReceiptHandler) ScanReceipt(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "image file is required")
	}

	contentType := file.Header.Get("Content-Type")
	if !isValidImageType(contentType) {
		return Error(c, fiber.StatusBadRequest, "invalid image type. Supported: JPEG, PNG, WebP, GIF, HEIC, PDF")
	}

	if file.Size > h.cfg.MaxUploadBytes {
		return Error(c, fiber.StatusBadRequest,
			fmt.Sprintf("file too large. Maximum size is %dMB", h.cfg.MaxUploadBytes/(1024*1024)))
	}

	src, err := file.Open()
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to read file")
	}
	defer src.Close()

	imageBytes, err := io.ReadAll(src)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to read file")
	}

	opts, err := h.scanOptions(c)
	if err != nil {
		return Error(c, fiber.StatusBadRequest, err.Error())
	}

	start := time.Now()
	receipt, err := h.pipeline.ProcessReceiptImage(c.Context(), imageBytes, opts)
	if err != nil {
		return h.scanError(c, err)
	}

	log.Info().
		Int("items", len(receipt.Items)).
		Float64("confidence", receipt.Confidence).
		Dur("elapsed", time.Since(start)).
		Msg("receipt scanned")

	return SuccessWithMeta(c, receipt, &Meta{
		ElapsedMs: time.Since(start).Milliseconds(),
		Engine:    h.engine.Name(),
	})
}

// scanOptions builds pipeline options from the configured defaults and
// any per-request form overrides.
func (h *ReceiptHandler) scanOptions(c *fiber.Ctx) (services.Options, error) {
	opts := services.DefaultOptions()
	opts.OcrTimeout = h.cfg.OcrTimeout
	opts.Validate = h.cfg.ValidateUploads
	opts.Constraints = h.cfg.Constraints()
	opts.Ocr.Language = h.cfg.OcrLanguage
	if level, err := models.ParsePreprocessLevel(h.cfg.PreprocessLevel); err == nil {
		opts.PreprocessLevel = level
	}

	if v := c.FormValue("preprocess_level"); v != "" {
		level, err := models.ParsePreprocessLevel(v)
		if err != nil {
			return opts, err
		}
		opts.PreprocessLevel = level
	}
	if v := c.FormValue("validate"); v != "" {
		validate, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("invalid validate flag: %q", v)
		}
		opts.Validate = validate
	}
	if v := c.FormValue("psm"); v != "" {
		mode, err := models.ParsePageSegMode(v)
		if err != nil {
			return opts, err
		}
		opts.Ocr.PageSegMode = mode
	}
	if v := c.FormValue("engine_mode"); v != "" {
		mode, err := models.ParseEngineMode(v)
		if err != nil {
			return opts, err
		}
		opts.Ocr.EngineMode = mode
	}
	if v := c.FormValue("language"); v != "" {
		opts.Ocr.Language = v
	}

	return opts, nil
}

// scanError maps pipeline failures onto HTTP statuses: bad input is the
// client's fault, engine trouble is a gateway problem.
func (h *ReceiptHandler) scanError(c *fiber.Ctx, err error) error {
	var validationErr *services.ValidationFailedError
	switch {
	case errors.As(err, &validationErr):
		return ErrorWithDetails(c, fiber.StatusUnprocessableEntity,
			"image failed quality validation", validationErr.Issues)
	case errors.Is(err, services.ErrInvalidImage):
		return Error(c, fiber.StatusBadRequest, "image could not be decoded")
	case errors.Is(err, services.ErrOcrTimeout):
		return Error(c, fiber.StatusGatewayTimeout, "text recognition timed out")
	case errors.Is(err, services.ErrOcrFailure):
		return Error(c, fiber.StatusBadGateway, "text recognition failed")
	default:
		log.Error().Err(err).Msg("receipt scan failed")
		return Error(c, fiber.StatusInternalServerError, "failed to process receipt")
	}
}

// isValidImageType checks if the content type is a valid image
func isValidImageType(contentType string) bool {
	validTypes := []string{
		"image/jpeg",
		"image/jpg",
		"image/png",
		"image/webp",
		"image/gif",
		"image/heic",
		"image/heif",
		"application/pdf",
	}

	for _, t := range validTypes {
		if strings.EqualFold(contentType, t) {
			return true
		}
	}
	return false
}
