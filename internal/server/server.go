package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agenthands/shelfcheck/internal/catalog"
	"github.com/agenthands/shelfcheck/internal/config"
	"github.com/agenthands/shelfcheck/internal/core"
	"github.com/agenthands/shelfcheck/internal/core/history"
	"github.com/agenthands/shelfcheck/internal/core/model"
	"github.com/agenthands/shelfcheck/internal/store"
)

// Verifier runs one verification. *core.Verifier implements it.
type Verifier interface {
	Verify(ctx context.Context, req model.VerificationRequest) (*core.Result, error)
}

type Server struct {
	Verifier Verifier
	Catalog  *catalog.Catalog
	Uploads  catalog.ObjectStore
	Records  store.RecordStore
	Config   config.ServerConfig
	Region   string
	Logger   *zap.Logger
	Now      func() time.Time
}

func NewServer(v Verifier, cat *catalog.Catalog, records store.RecordStore, cfg config.ServerConfig, region string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		Verifier: v,
		Catalog:  cat,
		Records:  records,
		Config:   cfg,
		Region:   region,
		Logger:   logger,
		Now:      time.Now,
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), cors.New(corsConfig(s.Config.AllowOrigins)))

	r.GET("/health", s.Health)
	r.POST("/validate", s.Validate)
	r.GET("/catalog", s.BrowseCatalog)
	r.GET("/history", s.History)
	r.GET("/transaction/:id", s.Transaction)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", "Authorization", "X-Amz-Date", "X-Api-Key", "X-Amz-Security-Token"},
		MaxAge:       12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	}
	return cfg
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": s.Now().UTC().Format(time.RFC3339),
		"version":   s.Config.Version,
		"service":   s.Config.Service,
		"region":    s.Region,
	})
}

// Validate handles POST /validate. ?shape=legacy selects the
// result/transactionId response.
func (s *Server) Validate(c *gin.Context) {
	var req model.VerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	res, err := s.Verifier.Verify(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}

	if c.Query("shape") == "legacy" {
		c.JSON(http.StatusOK, res.Legacy)
		return
	}
	c.JSON(http.StatusOK, res.Client)
}

// writeError maps error kinds to status codes. Internal detail is logged,
// never returned.
func (s *Server) writeError(c *gin.Context, err error) {
	var dup *core.DuplicateError
	switch {
	case errors.As(err, &dup):
		body := gin.H{"error": dup.Error()}
		if dup.TransactionID != "" {
			body["transactionId"] = dup.TransactionID
		}
		c.JSON(http.StatusConflict, body)
	case errors.Is(err, core.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		s.Logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// BrowseCatalog handles GET /catalog?type=categories|products|images.
func (s *Server) BrowseCatalog(c *gin.Context) {
	ctx := c.Request.Context()
	category := strings.TrimSpace(c.Query("category"))
	productID := strings.TrimSpace(c.Query("productId"))
	if (category != "" && !catalog.IsPathSegment(category)) || (productID != "" && !catalog.IsPathSegment(productID)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category and productId must not contain path separators"})
		return
	}

	switch c.DefaultQuery("type", "categories") {
	case "categories":
		c.JSON(http.StatusOK, gin.H{"categories": s.Catalog.Categories(ctx)})

	case "products":
		if category == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "category is required"})
			return
		}
		products, err := s.Catalog.Products(ctx, category)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"category":   strings.ToUpper(category),
			"products":   products,
			"totalCount": len(products),
		})

	case "images":
		if category == "" || productID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "category and productId are required"})
			return
		}
		images, err := s.Catalog.Images(ctx, category, productID)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"productId": productID,
			"category":  strings.ToUpper(category),
			"images":    images,
		})

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be one of categories, products, images"})
	}
}

// History handles GET /history?view=list|summary|export.
func (s *Server) History(c *gin.Context) {
	from, to := history.DateRange(s.Now(), c.Query("dateRange"), c.Query("dateFrom"), c.Query("dateTo"))
	filter := store.Filter{
		ProductID: strings.TrimSpace(c.Query("productId")),
		Category:  strings.TrimSpace(c.Query("category")),
		From:      from,
		To:        to,
	}

	records, err := s.Records.List(c.Request.Context(), filter)
	if err != nil {
		s.writeError(c, err)
		return
	}
	items := history.Items(records)

	filters := gin.H{
		"productId": filter.ProductID,
		"category":  strings.ToUpper(filter.Category),
		"dateFrom":  from.UTC().Format(time.RFC3339),
		"dateTo":    to.UTC().Format(time.RFC3339),
	}

	switch c.DefaultQuery("view", "list") {
	case "summary":
		c.JSON(http.StatusOK, gin.H{"summary": history.Summarize(items), "filters": filters})
	case "list":
		page, _ := strconv.Atoi(c.Query("page"))
		pageSize, _ := strconv.Atoi(c.Query("pageSize"))
		pageItems, pagination := history.Paginate(items, page, pageSize)
		c.JSON(http.StatusOK, gin.H{"items": pageItems, "pagination": pagination, "filters": filters})
	case "export":
		s.export(c, items)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "view must be list, summary or export"})
	}
}

// export writes every matching item as a CSV or JSON attachment.
func (s *Server) export(c *gin.Context, items []history.Item) {
	now := s.Now()
	format := strings.ToLower(c.Query("format"))

	switch format {
	case history.FormatCSV:
		var buf bytes.Buffer
		if err := history.WriteCSV(&buf, items); err != nil {
			s.writeError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+history.ExportFilename(now, format)+`"`)
		c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
	case history.FormatJSON:
		c.Header("Content-Disposition", `attachment; filename="`+history.ExportFilename(now, format)+`"`)
		c.JSON(http.StatusOK, history.NewExport(items, now))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or json"})
	}
}

// Transaction handles GET /transaction/:id.
func (s *Server) Transaction(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Transaction ID must be a valid UUID", "code": "INVALID_TRANSACTION_ID"})
		return
	}

	ctx := c.Request.Context()
	rec, err := s.Records.Get(ctx, id)
	if errors.Is(err, store.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction with ID '" + id + "' was not found", "code": "TRANSACTION_NOT_FOUND"})
		return
	}
	if err != nil {
		s.writeError(c, err)
		return
	}

	detail := history.Detail(rec, s.Now())
	detail.Metadata.PresignedURLExpiry = s.Catalog.PresignTTL().String()
	detail.ImageAccess.UploadedLabelImage = s.access(ctx, rec.UploadedLabelImageKey)
	detail.ImageAccess.UploadedOverviewImage = s.access(ctx, rec.UploadedOverviewImageKey)
	detail.ImageAccess.ReferenceImages = s.Catalog.AccessAll(ctx, s.Uploads, detail.ReferenceImageKeys)

	c.JSON(http.StatusOK, detail)
}

// access presigns one key; a failure is logged and leaves the link out.
func (s *Server) access(ctx context.Context, key string) *catalog.ImageAccess {
	access, err := s.Catalog.Access(ctx, s.Uploads, key)
	if err != nil {
		s.Logger.Warn("failed to presign image", zap.String("key", key), zap.Error(err))
		return nil
	}
	return access
}
