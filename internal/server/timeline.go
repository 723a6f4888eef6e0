package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/tapestry/internal/core/model"
	"github.com/agenthands/tapestry/internal/core/timeline"
)

// Axes

func (s *Server) CreateAxis(c *gin.Context) {
	db, ok := requireDatabase(c)
	if !ok {
		return
	}
	var in timeline.AxisInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	axis, err := s.Timeline.CreateAxis(c.Request.Context(), db, in)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusCreated, axis)
}

func (s *Server) GetAxis(c *gin.Context) {
	axis, err := s.Timeline.GetAxis(c.Request.Context(), database(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, axis)
}

func (s *Server) UpdateAxis(c *gin.Context) {
	db, ok := requireDatabase(c)
	if !ok {
		return
	}
	var in timeline.AxisInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	axis, err := s.Timeline.UpdateAxis(c.Request.Context(), db, c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, axis)
}

func (s *Server) DeleteAxis(c *gin.Context) {
	db, ok := requireDatabase(c)
	if !ok {
		return
	}
	if err := s.Timeline.DeleteAxis(c.Request.Context(), db, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ListAxes(c *gin.Context) {
	limit, offset := s.pagination(c)
	tickFrom, err := floatQuery(c, "tickFrom")
	if err != nil {
		writeError(c, err)
		return
	}
	tickTo, err := floatQuery(c, "tickTo")
	if err != nil {
		writeError(c, err)
		return
	}

	axes, total, err := s.Timeline.ListAxes(c.Request.Context(), database(c), model.AxisFilter{
		Query:        c.Query("q"),
		AxisType:     c.Query("axisType"),
		Status:       c.Query("status"),
		ParentAxisID: c.Query("parentAxisId"),
		TickFrom:     tickFrom,
		TickTo:       tickTo,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeList(c, axes, total, limit, offset)
}

// Eras

func (s *Server) CreateEra(c *gin.Context) {
	db, ok := requireDatabase(c)
	if !ok {
		return
	}
	var in timeline.EraInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	era, err := s.Timeline.CreateEra(c.Request.Context(), db, in)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusCreated, era)
}

func (s *Server) GetEra(c *gin.Context) {
	era, err := s.Timeline.GetEra(c.Request.Context(), database(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, era)
}

func (s *Server) UpdateEra(c *gin.Context) {
	db, ok := requireDatabase(c)
	if !ok {
		return
	}
	var in timeline.EraInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	era, err := s.Timeline.UpdateEra(c.Request.Context(), db, c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, era)
}

func (s *Server) DeleteEra(c *gin.Context) {
	db, ok := requireDatabase(c)
	if !ok {
		return
	}
	if err := s.Timeline.DeleteEra(c.Request.Context(), db, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ListEras(c *gin.Context) {
	limit, offset := s.pagination(c)
	tickFrom, err := floatQuery(c, "tickFrom")
	if err != nil {
		writeError(c, err)
		return
	}
	tickTo, err := floatQuery(c, "tickTo")
	if err != nil {
		writeError(c, err)
		return
	}

	eras, total, err := s.Timeline.ListEras(c.Request.Context(), database(c), model.EraFilter{
		Query:    c.Query("q"),
		AxisID:   c.Query("axisId"),
		Status:   c.Query("status"),
		TickFrom: tickFrom,
		TickTo:   tickTo,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeList(c, eras, total, limit, offset)
}

// Segments

func (s *Server) CreateSegment(c *gin.Context) {
	db, ok := requireDatabase(c)
	if !ok {
		return
	}
	var in timeline.SegmentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	segment, err := s.Timeline.CreateSegment(c.Request.Context(), db, in)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusCreated, segment)
}

func (s *Server) GetSegment(c *gin.Context) {
	segment, err := s.Timeline.GetSegment(c.Request.Context(), database(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, segment)
}

func (s *Server) UpdateSegment(c *gin.Context) {
	db, ok := requireDatabase(c)
	if !ok {
		return
	}
	var in timeline.SegmentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	segment, err := s.Timeline.UpdateSegment(c.Request.Context(), db, c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, segment)
}

func (s *Server) DeleteSegment(c *gin.Context) {
	db, ok := requireDatabase(c)
	if !ok {
		return
	}
	if err := s.Timeline.DeleteSegment(c.Request.Context(), db, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ListSegments(c *gin.Context) {
	limit, offset := s.pagination(c)
	tickFrom, err := floatQuery(c, "tickFrom")
	if err != nil {
		writeError(c, err)
		return
	}
	tickTo, err := floatQuery(c, "tickTo")
	if err != nil {
		writeError(c, err)
		return
	}

	segments, total, err := s.Timeline.ListSegments(c.Request.Context(), database(c), model.SegmentFilter{
		Query:    c.Query("q"),
		AxisID:   c.Query("axisId"),
		EraID:    c.Query("eraId"),
		Status:   c.Query("status"),
		TickFrom: tickFrom,
		TickTo:   tickTo,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeList(c, segments, total, limit, offset)
}

// Markers

func (s *Server) CreateMarker(c *gin.Context) {
	db, ok := requireDatabase(c)
	if !ok {
		return
	}
	var in timeline.MarkerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	marker, err := s.Timeline.CreateMarker(c.Request.Context(), db, in)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusCreated, marker)
}

func (s *Server) GetMarker(c *gin.Context) {
	marker, err := s.Timeline.GetMarker(c.Request.Context(), database(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, marker)
}

func (s *Server) UpdateMarker(c *gin.Context) {
	db, ok := requireDatabase(c)
	if !ok {
		return
	}
	var in timeline.MarkerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	marker, err := s.Timeline.UpdateMarker(c.Request.Context(), db, c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, marker)
}

func (s *Server) DeleteMarker(c *gin.Context) {
	db, ok := requireDatabase(c)
	if !ok {
		return
	}
	if err := s.Timeline.DeleteMarker(c.Request.Context(), db, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ListMarkers(c *gin.Context) {
	limit, offset := s.pagination(c)
	tickFrom, err := floatQuery(c, "tickFrom")
	if err != nil {
		writeError(c, err)
		return
	}
	tickTo, err := floatQuery(c, "tickTo")
	if err != nil {
		writeError(c, err)
		return
	}

	markers, total, err := s.Timeline.ListMarkers(c.Request.Context(), database(c), model.MarkerFilter{
		Query:      c.Query("q"),
		AxisID:     c.Query("axisId"),
		EraID:      c.Query("eraId"),
		SegmentID:  c.Query("segmentId"),
		MarkerType: c.Query("markerType"),
		TickFrom:   tickFrom,
		TickTo:     tickTo,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeList(c, markers, total, limit, offset)
}
