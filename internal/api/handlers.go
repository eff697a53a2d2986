package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"compset/server/internal/analysis"
	"compset/server/internal/errs"
	"compset/server/internal/metrics"
	"compset/server/internal/models"
	"compset/server/internal/optimization"
	"compset/server/internal/relationship"
)

// PropertyStore is the property and unit persistence the handlers need
type PropertyStore interface {
	CreateProperty(ctx context.Context, p *models.PropertyProfile) error
	GetProperty(ctx context.Context, id int64) (*models.PropertyProfile, error)
	ListProperties(ctx context.Context, portfolioID int64) ([]models.PropertyProfile, error)
	ListUnits(ctx context.Context, propertyID int64) ([]models.PropertyUnit, error)
}

// Geocoder resolves a free-form address to latitude and longitude
type Geocoder interface {
	Geocode(ctx context.Context, address string) (float64, float64, error)
}

// UnitPublisher accepts unit import batches for asynchronous processing
type UnitPublisher interface {
	Push(batch *models.UnitImportBatch) error
}

type Handler struct {
	properties    PropertyStore
	relationships relationship.Store
	analyzer      *analysis.Analyzer
	units         UnitPublisher
	geocoder      Geocoder
	metrics       *metrics.Metrics
	logger        *logrus.Logger
	maxBatchSize  int

	mu          sync.Mutex
	controllers map[int64]*optimization.Controller
}

type Options struct {
	Properties    PropertyStore
	Relationships relationship.Store
	Analyzer      *analysis.Analyzer
	Units         UnitPublisher
	Geocoder      Geocoder
	Metrics       *metrics.Metrics
	Logger        *logrus.Logger
	MaxBatchSize  int
}

func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	maxBatch := opts.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = 100
	}

	return &Handler{
		properties:    opts.Properties,
		relationships: opts.Relationships,
		analyzer:      opts.Analyzer,
		units:         opts.Units,
		geocoder:      opts.Geocoder,
		metrics:       m,
		logger:        logger,
		maxBatchSize:  maxBatch,
		controllers:   make(map[int64]*optimization.Controller),
	}
}

// statusFor maps the error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errs.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error body. Internal failures are logged and
// reported with the generic message instead of the error text.
func (h *Handler) respondError(c *gin.Context, err error, internalMessage string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", c.FullPath()).Error(internalMessage)
		c.JSON(status, gin.H{"error": internalMessage})
		return
	}

	body := gin.H{"error": err.Error()}
	var v *errs.ValidationError
	if errors.As(err, &v) {
		body["field"] = v.Field
	}
	c.JSON(status, body)
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case statusFor(err) == http.StatusInternalServerError:
		return metrics.OutcomeError
	default:
		return metrics.OutcomeInvalid
	}
}

func parseID(c *gin.Context, param string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.Invalid(param, "must be a positive integer")
	}
	return id, nil
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
