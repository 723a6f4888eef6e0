package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/tapestry/internal/config"
	"github.com/agenthands/tapestry/internal/core/common"
	"github.com/agenthands/tapestry/internal/core/ledger"
	"github.com/agenthands/tapestry/internal/core/temporal"
	"github.com/agenthands/tapestry/internal/core/timeline"
	"github.com/agenthands/tapestry/internal/driver"
)

// DatabaseHeader selects the caller's logical database. Its value is
// opaque here; it is threaded straight through to the store session.
const DatabaseHeader = "X-Database"

type Server struct {
	Timeline *timeline.Store
	Ledger   *ledger.Ledger
	Temporal *temporal.Service
	Config   *config.Config
}

func NewServer(d driver.GraphDriver, cfg *config.Config) *Server {
	tl := timeline.NewStore(d)
	lg := ledger.NewLedger(d, tl)
	return &Server{
		Timeline: tl,
		Ledger:   lg,
		Temporal: temporal.NewService(lg, tl),
		Config:   cfg,
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/timeline-axes", s.CreateAxis)
	r.GET("/timeline-axes", s.ListAxes)
	r.GET("/timeline-axes/:id", s.GetAxis)
	r.PUT("/timeline-axes/:id", s.UpdateAxis)
	r.DELETE("/timeline-axes/:id", s.DeleteAxis)

	r.POST("/timeline-eras", s.CreateEra)
	r.GET("/timeline-eras", s.ListEras)
	r.GET("/timeline-eras/:id", s.GetEra)
	r.PUT("/timeline-eras/:id", s.UpdateEra)
	r.DELETE("/timeline-eras/:id", s.DeleteEra)

	r.POST("/timeline-segments", s.CreateSegment)
	r.GET("/timeline-segments", s.ListSegments)
	r.GET("/timeline-segments/:id", s.GetSegment)
	r.PUT("/timeline-segments/:id", s.UpdateSegment)
	r.DELETE("/timeline-segments/:id", s.DeleteSegment)

	r.POST("/timeline-markers", s.CreateMarker)
	r.GET("/timeline-markers", s.ListMarkers)
	r.GET("/timeline-markers/:id", s.GetMarker)
	r.PUT("/timeline-markers/:id", s.UpdateMarker)
	r.DELETE("/timeline-markers/:id", s.DeleteMarker)

	r.POST("/timeline-state-changes", s.CreateStateChange)
	r.GET("/timeline-state-changes", s.ListStateChanges)
	r.GET("/timeline-state-changes/snapshot", s.Snapshot)
	r.GET("/timeline-state-changes/projection", s.Projection)
	r.GET("/timeline-state-changes/history", s.History)
	r.GET("/timeline-state-changes/diff", s.Diff)
	r.GET("/timeline-state-changes/:id", s.GetStateChange)
	r.PUT("/timeline-state-changes/:id", s.UpdateStateChange)
	r.DELETE("/timeline-state-changes/:id", s.DeleteStateChange)

	return r
}

// database returns the logical database for read requests; empty means
// the driver default.
func database(c *gin.Context) string {
	return c.GetHeader(DatabaseHeader)
}

// requireDatabase enforces the header on mutating requests.
func requireDatabase(c *gin.Context) (string, bool) {
	db := c.GetHeader(DatabaseHeader)
	if db == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": DatabaseHeader + " header is required"})
		return "", false
	}
	return db, true
}

func writeError(c *gin.Context, err error) {
	var validation *common.ValidationError
	var notFound *common.NotFoundError
	var conflict *common.ConflictError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"message": validation.Msg})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"message": notFound.Msg})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"message": conflict.Msg})
	default:
		log.Printf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}

func writeData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"data": data})
}

func writeList(c *gin.Context, data interface{}, total int64, limit, offset int) {
	c.JSON(http.StatusOK, gin.H{
		"data": data,
		"meta": gin.H{"total": total, "limit": limit, "offset": offset},
	})
}

func (s *Server) pagination(c *gin.Context) (int, int) {
	limit := s.Config.Pagination.DefaultLimit
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > s.Config.Pagination.MaxLimit {
		limit = s.Config.Pagination.MaxLimit
	}

	offset := 0
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// floatQuery parses an optional numeric query parameter; a malformed
// value is a validation error, rejected before any fetch.
func floatQuery(c *gin.Context, name string) (*float64, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, common.Invalidf("invalid %s '%s'", name, v)
	}
	return &f, nil
}

func requiredFloatQuery(c *gin.Context, name string) (float64, error) {
	v := c.Query(name)
	if v == "" {
		return 0, common.Invalidf("%s is required", name)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, common.Invalidf("invalid %s '%s'", name, v)
	}
	return f, nil
}
