// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package status serves the health and the counters of a running transport
// over HTTP.
package status

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/someonegg/msgdeliver"
	"github.com/someonegg/msgdeliver/logger"
)

// Source is what the status server reports on, *msgdeliver.Transport
// implements it.
type Source interface {
	Role() msgdeliver.Role
	Statistics() msgdeliver.TransportStatistics
}

type HealthResponse struct {
	Status string `json:"status"`
	Role   string `json:"role"`
}

type StatsResponse struct {
	Role string `json:"role"`

	ReadCount     int64 `json:"read_count"`
	ReadBytes     int64 `json:"read_bytes"`
	WrittenCount  int64 `json:"written_count"`
	WrittenBytes  int64 `json:"written_bytes"`
	RequeuedCount int64 `json:"requeued_count"`
	DroppedCount  int64 `json:"dropped_count"`

	OutputCount     int64 `json:"output_count"`
	AcceptedCount   int64 `json:"accepted_count"`
	ActiveConns     int   `json:"active_connections"`
	FaultCount      int64 `json:"fault_count"`
	OutboundPending int   `json:"outbound_pending"`
	InboundPending  int   `json:"inbound_pending"`
}

// Server is the HTTP status server of one transport.
type Server struct {
	src        Source
	router     *gin.Engine
	httpServer *http.Server
}

func NewServer(src Source) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		src:    src,
		router: router,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/stats", s.handleStats)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on addr and serves in the background. It returns the bound
// address, useful when addr asks for an ephemeral port.
func (s *Server) Start(addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		err := s.httpServer.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("status server: %v", err)
		}
	}()

	logger.Printf("status server listening on %v", ln.Addr())
	return ln.Addr(), nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
		Role:   string(s.src.Role()),
	})
}

func (s *Server) handleStats(c *gin.Context) {
	stat := s.src.Statistics()
	c.JSON(http.StatusOK, StatsResponse{
		Role: string(s.src.Role()),

		ReadCount:     stat.ReadedCount,
		ReadBytes:     stat.ReadedBytes,
		WrittenCount:  stat.WrittenCount,
		WrittenBytes:  stat.WrittenBytes,
		RequeuedCount: stat.RequeuedCount,
		DroppedCount:  stat.DroppedCount,

		OutputCount:     stat.OutputCount,
		AcceptedCount:   stat.AcceptedCount,
		ActiveConns:     stat.ActiveConns,
		FaultCount:      stat.FaultCount,
		OutboundPending: stat.OutboundPending,
		InboundPending:  stat.InboundPending,
	})
}
