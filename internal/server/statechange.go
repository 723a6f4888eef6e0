package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/tapestry/internal/core/ledger"
	"github.com/agenthands/tapestry/internal/core/model"
)

func (s *Server) CreateStateChange(c *gin.Context) {
	db, ok := requireDatabase(c)
	if !ok {
		return
	}
	var in ledger.ChangeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	change, err := s.Ledger.Create(c.Request.Context(), db, in)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusCreated, change)
}

func (s *Server) GetStateChange(c *gin.Context) {
	change, err := s.Ledger.Get(c.Request.Context(), database(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, change)
}

func (s *Server) UpdateStateChange(c *gin.Context) {
	db, ok := requireDatabase(c)
	if !ok {
		return
	}
	var in ledger.ChangeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	change, err := s.Ledger.Update(c.Request.Context(), db, c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, change)
}

func (s *Server) DeleteStateChange(c *gin.Context) {
	db, ok := requireDatabase(c)
	if !ok {
		return
	}
	if err := s.Ledger.Delete(c.Request.Context(), db, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ListStateChanges(c *gin.Context) {
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

	changes, total, err := s.Ledger.List(c.Request.Context(), database(c), model.ChangeFilter{
		Query:       c.Query("q"),
		AxisID:      c.Query("axisId"),
		EraID:       c.Query("eraId"),
		SegmentID:   c.Query("segmentId"),
		MarkerID:    c.Query("markerId"),
		EventID:     c.Query("eventId"),
		SubjectType: c.Query("subjectType"),
		SubjectID:   c.Query("subjectId"),
		FieldPath:   c.Query("fieldPath"),
		Status:      c.Query("status"),
		TickFrom:    tickFrom,
		TickTo:      tickTo,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeList(c, changes, total, limit, offset)
}

// Temporal read endpoints.

func (s *Server) Snapshot(c *gin.Context) {
	tick, err := requiredFloatQuery(c, "tick")
	if err != nil {
		writeError(c, err)
		return
	}
	rows, err := s.Temporal.Snapshot(c.Request.Context(), database(c),
		c.Query("axisId"), tick, c.Query("subjectType"), c.Query("subjectId"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, rows)
}

func (s *Server) Projection(c *gin.Context) {
	tick, err := requiredFloatQuery(c, "tick")
	if err != nil {
		writeError(c, err)
		return
	}
	projections, err := s.Temporal.Projection(c.Request.Context(), database(c),
		c.Query("axisId"), tick, c.Query("subjectType"), c.Query("subjectId"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, projections)
}

func (s *Server) History(c *gin.Context) {
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

	// Absent status defaults to active; "all" disables the filter.
	// Replay itself never filters on status.
	status := c.DefaultQuery("status", model.ChangeStatusActive)
	if status == "all" {
		status = ""
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid limit '" + v + "'"})
			return
		}
		limit = n
	}

	result, err := s.Temporal.History(c.Request.Context(), database(c),
		c.Query("axisId"), c.Query("subjectType"), c.Query("subjectId"),
		c.Query("fieldPath"), status, tickFrom, tickTo, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, result)
}

func (s *Server) Diff(c *gin.Context) {
	fromTick, err := requiredFloatQuery(c, "fromTick")
	if err != nil {
		writeError(c, err)
		return
	}
	toTick, err := requiredFloatQuery(c, "toTick")
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := s.Temporal.Diff(c.Request.Context(), database(c),
		c.Query("axisId"), c.Query("subjectType"), c.Query("subjectId"), fromTick, toTick)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, result)
}
