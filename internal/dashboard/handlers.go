package dashboard

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"contextgate/internal/app"
	"contextgate/internal/journal"
	"contextgate/internal/labels"
	"contextgate/internal/models"
	"contextgate/internal/trade"
	"contextgate/logger"
)

// pinHeader carries the shared secret for trade mutations.
const pinHeader = "X-ContextGate-PIN"

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrTradeNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrTradeClosed), errors.Is(err, models.ErrTradeNotClosed):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidPair), errors.Is(err, models.ErrInvalidRiskInput), errors.Is(err, models.ErrBiasTooLow):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.WithComponent("dashboard").WithError(err).WithFields(logger.Fields{
			"path": c.FullPath(),
		}).Error("request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func (s *Server) requirePIN() gin.HandlerFunc {
	return func(c *gin.Context) {
		want := s.cfg.PIN
		if want == "" {
			c.Next()
			return
		}
		got := c.GetHeader(pinHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			s.fail(c, models.ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func (s *Server) handleReference(c *gin.Context) {
	lang := s.app.Language()
	if q := c.Query("lang"); q != "" {
		if l, err := labels.ParseLanguage(q); err == nil {
			lang = l
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"language":         lang,
		"bias_checklist":   trade.BiasChecklist,
		"min_bias_score":   s.app.Config().Trade.MinBiasScore,
		"result_options":   trade.ResultOptions,
		"glossary":         labels.Glossary(lang),
		"refresh_interval": s.cfg.RefreshInterval.String(),
	})
}

func (s *Server) handleActivity(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"gauges":  s.activity.gauges.snapshot(),
		"notices": s.activity.notices.snapshot(),
	})
}

func (s *Server) handleEvaluate(c *gin.Context) {
	ev, err := s.app.Evaluate(c.Request.Context(), c.Param("pair"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

type saveContextRequest struct {
	Pair     string `json:"pair" binding:"required"`
	Decision string `json:"decision" binding:"required"`
	Note     string `json:"note"`
}

// handleSaveContext journals the last evaluation shown for the pair.
func (s *Server) handleSaveContext(c *gin.Context) {
	var req saveContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	decision, err := models.ParseDecision(strings.ToUpper(strings.TrimSpace(req.Decision)))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ev, ok := s.app.Latest(req.Pair)
	if !ok {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("no evaluation of %s to save", req.Pair)})
		return
	}
	rec, err := s.app.SaveContext(c.Request.Context(), ev, decision, req.Note)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) handleListContexts(c *gin.Context) {
	f := journal.Filter{Pair: strings.ToUpper(strings.TrimSpace(c.Query("pair")))}
	if until := c.Query("until"); until != "" {
		t, err := time.ParseInLocation(models.TimestampLayout, until, s.app.Location())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("until: %v", err)})
			return
		}
		f.Until = t
	}
	records, err := s.app.Contexts(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	if records == nil {
		records = []models.ContextRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"contexts": records})
}

func (s *Server) handleRisk(c *gin.Context) {
	var req app.TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sizing, err := s.app.SizeTrade(req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sizing":     sizing,
		"bias_score": trade.BiasScore(req.Checks),
	})
}

func (s *Server) handleListTrades(c *gin.Context) {
	c.JSON(http.StatusOK, s.app.Trades())
}

func (s *Server) handleConfirmTrade(c *gin.Context) {
	var req app.TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	conf, err := s.app.ConfirmTrade(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, conf)
}

func (s *Server) handleCloseTrade(c *gin.Context) {
	rec, err := s.app.CloseTrade(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type resultRequest struct {
	ResultR    *float64 `json:"result_r" binding:"required"`
	ExitReason string   `json:"exit_reason"`
}

func (s *Server) handleAttachResult(c *gin.Context) {
	var req resultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, err := s.app.AttachResult(c.Request.Context(), c.Param("id"), *req.ResultR, req.ExitReason)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleDownload(path func() string, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := path()
		if _, err := os.Stat(p); err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "journal not found"})
			return
		}
		c.FileAttachment(p, name)
	}
}
