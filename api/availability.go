package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sailingloc/boatbooking/internal/availability"
	"github.com/sailingloc/boatbooking/internal/domain"
	"github.com/sailingloc/boatbooking/internal/service/periods"
)

type AvailabilityHandler struct {
	service periods.PeriodsUseCase
}

func NewAvailabilityHandler(service periods.PeriodsUseCase) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

func (h *AvailabilityHandler) Register(router *gin.RouterGroup, auth gin.HandlerFunc) {
	router.GET("/:id/availability", h.availability)
	router.GET("/:id/calendar", h.calendar)
	router.POST("/:id/blocks", auth, h.addBlock)
	router.DELETE("/:id/blocks/:blockID", auth, h.removeBlock)
}

// availability returns the period list and, when ?start=&end= are given,
// the advisory result for that candidate range.
func (h *AvailabilityHandler) availability(c *gin.Context) {
	boatID := c.Param("id")
	periods, err := h.service.ListPeriods(c.Request.Context(), boatID)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := gin.H{"periods": periods}

	start, end := c.Query("start"), c.Query("end")
	if start != "" || end != "" {
		candidate, err := domain.ParseDateRange(start, end)
		if err != nil {
			writeError(c, err)
			return
		}
		if err := h.service.CheckRange(c.Request.Context(), boatID, candidate); err != nil {
			// Advisory only: report the problem inline instead of failing
			// the whole response.
			resp["available"] = false
			resp["reason"] = err.Error()
		} else {
			resp["available"] = true
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AvailabilityHandler) calendar(c *gin.Context) {
	year, err := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(time.Now().UTC().Year())))
	if err != nil {
		writeError(c, &domain.ValidationError{Field: "year", Reason: "must be a number"})
		return
	}
	monthNum, err := strconv.Atoi(c.DefaultQuery("month", strconv.Itoa(int(time.Now().UTC().Month()))))
	if err != nil || monthNum < 1 || monthNum > 12 {
		writeError(c, &domain.ValidationError{Field: "month", Reason: "must be 1..12"})
		return
	}

	sel, err := selectionFromQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}

	cells, err := h.service.MonthGrid(c.Request.Context(), c.Param("id"), year, time.Month(monthNum), sel)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"year": year, "month": monthNum, "cells": cells})
}

func selectionFromQuery(c *gin.Context) (*availability.Selection, error) {
	start, end := c.Query("selected_start"), c.Query("selected_end")
	if start == "" && end == "" {
		return nil, nil
	}

	sel := availability.NewSelection(availability.ModeBlock)
	if end == "" {
		day, err := time.ParseInLocation(domain.DateFormat, start, time.UTC)
		if err != nil {
			return nil, &domain.ValidationError{Field: "selected_start", Reason: "expected YYYY-MM-DD"}
		}
		sel.PendingStart = &day
		return sel, nil
	}

	r, err := domain.ParseDateRange(start, end)
	if err != nil {
		return nil, err
	}
	sel.Range = &r
	return sel, nil
}

type addBlockRequest struct {
	Start  string `json:"start" binding:"required"`
	End    string `json:"end" binding:"required"`
	Reason string `json:"reason"`
}

func (h *AvailabilityHandler) addBlock(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req addBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r, err := domain.ParseDateRange(req.Start, req.End)
	if err != nil {
		writeError(c, err)
		return
	}

	period, err := h.service.AddManualBlock(c.Request.Context(), actor, c.Param("id"), r, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, period)
}

func (h *AvailabilityHandler) removeBlock(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	if err := h.service.RemoveManualBlock(c.Request.Context(), actor, c.Param("id"), c.Param("blockID")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": true})
}
