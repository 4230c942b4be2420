package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"iracgo/internal/cache"
	"iracgo/internal/config"
	"iracgo/internal/extract"
	"iracgo/internal/middleware"
	"iracgo/internal/models"
	"iracgo/internal/prompt"
	"iracgo/internal/service/ai"
)

// multipart framing allowance on top of the file size limit
const formOverheadBytes = 1 << 20

// TextExtractor turns uploaded bytes into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}

// PromptBuilder renders the chat messages for one case.
type PromptBuilder interface {
	Messages(ctx context.Context, req models.CaseRequest, text string) ([]*schema.Message, error)
}

// CompletionClient sends rendered messages to the language model.
type CompletionClient interface {
	Complete(ctx context.Context, messages []*schema.Message) (*models.Summary, error)
}

// Handler wires HTTP routes to the IRAC generation pipeline.
type Handler struct {
	extractor  TextExtractor
	prompts    PromptBuilder
	completer  CompletionClient
	cache      cache.Cache
	keys       *cache.KeyBuilder
	limiter    *middleware.RateLimiter
	logger     *zap.Logger
	maxUpload  int64
	extensions []string
	staticDir  string
	now        func() time.Time
}

// NewHandler constructs a Handler instance.
func NewHandler(cfg *config.Config, logger *zap.Logger, extractor TextExtractor, prompts PromptBuilder, completer CompletionClient, store cache.Cache) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		extractor: extractor,
		prompts:   prompts,
		completer: completer,
		cache:     store,
		keys:      cache.NewKeyBuilder(cfg.BasicConfig.SecretKey),
		limiter: middleware.NewRateLimiter(
			middleware.Window{Limit: cfg.RateLimit.PerHour, Period: time.Hour},
			middleware.Window{Limit: cfg.RateLimit.PerDay, Period: 24 * time.Hour},
		),
		logger:     logger,
		maxUpload:  cfg.BasicConfig.MaxUploadBytes,
		extensions: cfg.BasicConfig.AllowedExtensions,
		staticDir:  cfg.BasicConfig.StaticDir,
		now:        time.Now,
	}
}

// NewRouter builds the gin engine with the shared middleware chain and every route registered.
func NewRouter(h *Handler, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.AccessLog(h.logger),
		middleware.Recovery(h.logger),
		middleware.CORS(allowedOrigins),
	)
	h.RegisterRoutes(router)
	return router
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.GET("/health", h.health)
	api.POST("/generate_irac", h.limiter.Limit(), h.generateIRAC)

	router.GET("/", h.index)
	router.NoRoute(h.static)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) generateIRAC(c *gin.Context) {
	doc, ok := h.readUpload(c)
	if !ok {
		return
	}
	req := caseRequestFromForm(c)
	ctx := c.Request.Context()
	requestID := middleware.RequestIDFromContext(c)

	text, err := h.extractor.Extract(ctx, doc.FileName, doc.Data)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrNoText):
			middleware.AbortWithError(c, http.StatusBadRequest, "empty_document",
				"The uploaded PDF appears to be empty or could not be read")
		case errors.Is(err, extract.ErrUnreadable):
			h.logger.Info("pdf extraction failed", zap.String("request_id", requestID), zap.Error(err))
			middleware.AbortWithError(c, http.StatusBadRequest, "unreadable_document", "Could not read file content")
		default:
			h.logger.Error("pdf extraction aborted", zap.String("request_id", requestID), zap.Error(err))
			middleware.AbortWithError(c, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		}
		return
	}

	key := h.keys.Fingerprint(doc.FileName, req, doc.Data)
	if summary, hit := h.lookup(ctx, key, requestID); hit {
		h.respond(c, summary, true)
		return
	}

	messages, err := h.prompts.Messages(ctx, req, text)
	if err != nil {
		h.logger.Error("render prompt", zap.String("request_id", requestID), zap.Error(err))
		middleware.AbortWithError(c, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}
	h.logger.Debug("prompt rendered",
		zap.String("request_id", requestID),
		zap.String("variant", prompt.VariantFor(req.Role).String()),
		zap.Int("prompt_chars", promptChars(messages)),
	)

	summary, err := h.completer.Complete(ctx, messages)
	if err != nil {
		h.completionFailed(c, requestID, err)
		return
	}

	if err := h.cache.Put(context.WithoutCancel(ctx), key, *summary); err != nil {
		h.logger.Warn("cache put failed", zap.String("request_id", requestID), zap.Error(err))
	}
	h.respond(c, *summary, false)
}

// readUpload validates the upload before any of its bytes reach the extractor.
func (h *Handler) readUpload(c *gin.Context) (models.UploadedDocument, bool) {
	limit := h.maxUpload + formOverheadBytes
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	if err := c.Request.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.abortTooLarge(c)
			return models.UploadedDocument{}, false
		}
		middleware.AbortWithError(c, http.StatusBadRequest, "missing_file", "No file part")
		return models.UploadedDocument{}, false
	}

	file, err := c.FormFile("file")
	if err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "missing_file", "No file part")
		return models.UploadedDocument{}, false
	}
	filename := filepath.Base(strings.ReplaceAll(file.Filename, `\`, "/"))
	if filename == "" || filename == "." || filename == "/" {
		middleware.AbortWithError(c, http.StatusBadRequest, "missing_file", "No selected file")
		return models.UploadedDocument{}, false
	}
	if !h.allowedExtension(filename) {
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid_file_type", "Invalid file type. Only PDF files are allowed.")
		return models.UploadedDocument{}, false
	}
	if file.Size > h.maxUpload {
		h.abortTooLarge(c)
		return models.UploadedDocument{}, false
	}

	f, err := file.Open()
	if err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "unreadable_document", "Could not read file content")
		return models.UploadedDocument{}, false
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	if err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "unreadable_document", "Could not read file content")
		return models.UploadedDocument{}, false
	}
	if int64(len(data)) > h.maxUpload {
		h.abortTooLarge(c)
		return models.UploadedDocument{}, false
	}
	return models.UploadedDocument{FileName: filename, Data: data}, true
}

func (h *Handler) abortTooLarge(c *gin.Context) {
	middleware.AbortWithError(c, http.StatusRequestEntityTooLarge, "file_too_large",
		fmt.Sprintf("File size exceeds %dMB limit", h.maxUpload>>20))
}

func (h *Handler) allowedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range h.extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func caseRequestFromForm(c *gin.Context) models.CaseRequest {
	return prompt.NewCaseRequest(c.PostForm("role"), c.PostForm("case_name"), c.PostForm("docket_number"))
}

// lookup treats cache backend errors as a miss.
func (h *Handler) lookup(ctx context.Context, key, requestID string) (models.Summary, bool) {
	summary, hit, err := h.cache.Get(ctx, key)
	if err != nil {
		h.logger.Warn("cache get failed", zap.String("request_id", requestID), zap.Error(err))
		return models.Summary{}, false
	}
	return summary, hit
}

func (h *Handler) completionFailed(c *gin.Context, requestID string, err error) {
	fields := []zap.Field{zap.String("request_id", requestID), zap.Error(err)}
	switch {
	case errors.Is(err, ai.ErrAuthentication):
		h.logger.Error("completion rejected credentials", fields...)
		middleware.AbortWithError(c, http.StatusUnauthorized, "authentication_failed",
			"Authentication with the analysis service failed. Please contact the administrator.")
	case errors.Is(err, ai.ErrRateLimited):
		h.logger.Warn("completion rate limited", fields...)
		middleware.AbortWithError(c, http.StatusTooManyRequests, "rate_limited",
			"The analysis service is busy. Please try again later.")
	default:
		kind := "service"
		switch {
		case errors.Is(err, ai.ErrTimeout):
			kind = "timeout"
		case errors.Is(err, ai.ErrEmptyResponse):
			kind = "empty_response"
		}
		h.logger.Error("completion failed", append(fields, zap.String("kind", kind))...)
		middleware.AbortWithError(c, http.StatusInternalServerError, "service_error",
			"Error generating analysis. Please try again later.")
	}
}

func (h *Handler) respond(c *gin.Context, summary models.Summary, cached bool) {
	body := gin.H{
		"analysis":   summary.Analysis,
		"model":      summary.Model,
		"cached":     cached,
		"request_id": middleware.RequestIDFromContext(c),
	}
	if summary.Usage != nil {
		body["usage"] = summary.Usage
	}
	c.JSON(http.StatusOK, body)
}

// promptChars counts runes across all messages; only the length is logged, never the text.
func promptChars(messages []*schema.Message) int {
	n := 0
	for _, m := range messages {
		n += utf8.RuneCountInString(m.Content)
	}
	return n
}
