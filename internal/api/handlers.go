package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleHealth(c *gin.Context) {
	last := s.scanner.LastResult()

	status := gin.H{
		"status": "ok",
		"uptime": time.Since(s.startedAt).String(),
	}
	if last != nil {
		status["last_scan"] = last.EndTime
		status["last_scan_id"] = last.ScanID
	}

	c.JSON(http.StatusOK, status)
}

// handleAnalysis returns the full detection result for one symbol
func (s *Server) handleAnalysis(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	scan, err := s.scanner.LatestScan(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, scan)
}

// handleBias returns only the consolidated higher timeframe bias
func (s *Server) handleBias(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	scan, err := s.scanner.LatestScan(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":    scan.Symbol,
		"htfBias":   scan.HTFBias,
		"scannedAt": scan.ScannedAt,
	})
}

// handlePrice returns the latest traded price from the exchange
func (s *Server) handlePrice(c *gin.Context) {
	if s.prices == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "price source is not configured"})
		return
	}

	symbol := strings.ToUpper(c.Param("symbol"))
	price, err := s.prices.GetCurrentPrice(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol": symbol,
		"price":  price,
	})
}

// handleLastScan returns the most recent full scan cycle
func (s *Server) handleLastScan(c *gin.Context) {
	last := s.scanner.LastResult()
	if last == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no scan has completed yet"})
		return
	}

	c.JSON(http.StatusOK, last)
}

// handleTriggerScan runs a scan cycle synchronously
func (s *Server) handleTriggerScan(c *gin.Context) {
	result := s.scanner.Scan()
	c.JSON(http.StatusOK, result)
}
