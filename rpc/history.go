package rpc

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/techidsk/prompts/db"
)

const DefaultHistoryLimit = 50

// HandleSaveHistory appends one completed exchange to the history store.
func (s *Service) HandleSaveHistory(c *gin.Context) {
	var input db.ChatRecordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		writeJSON(c, http.StatusBadRequest, gin.H{"error": "Failed to save history"})
		return
	}
	id, err := s.store.Insert(input)
	s.metrics.StoreOp("insert", err)
	if err != nil {
		log.Error().Err(err).Msg("save history")
		writeJSON(c, http.StatusInternalServerError, gin.H{"error": "Failed to save history"})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"id": id, "success": true})
}

// HandleListHistory returns a page of records, newest first, plus the
// total unfiltered record count.
func (s *Service) HandleListHistory(c *gin.Context) {
	limit := parseNonNegative(c.Query("limit"), DefaultHistoryLimit)
	offset := parseNonNegative(c.Query("offset"), 0)

	records, total, err := s.store.List(limit, offset)
	s.metrics.StoreOp("list", err)
	if err != nil {
		log.Error().Err(err).Msg("list history")
		writeJSON(c, http.StatusInternalServerError, gin.H{"error": "Failed to get history"})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"records": records, "total": total})
}

func (s *Service) HandleGetHistory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeJSON(c, http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}
	record, err := s.store.Get(id)
	if err == db.ErrNotFound {
		// a miss is not a store failure
		s.metrics.StoreOp("get", nil)
		writeJSON(c, http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}
	s.metrics.StoreOp("get", err)
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("get history record")
		writeJSON(c, http.StatusInternalServerError, gin.H{"error": "Failed to get record"})
		return
	}
	writeJSON(c, http.StatusOK, record)
}

// HandleDeleteHistory removes a record by id. Deleting an unknown id still
// succeeds.
func (s *Service) HandleDeleteHistory(c *gin.Context) {
	id, parseErr := strconv.ParseInt(c.Param("id"), 10, 64)
	if parseErr == nil {
		err := s.store.Delete(id)
		s.metrics.StoreOp("delete", err)
		if err != nil {
			log.Error().Err(err).Int64("id", id).Msg("delete history record")
			writeJSON(c, http.StatusInternalServerError, gin.H{"error": "Failed to delete record"})
			return
		}
	}
	writeJSON(c, http.StatusOK, gin.H{"success": true})
}

func parseNonNegative(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
