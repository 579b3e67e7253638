// Package grpc exposes the standard gRPC health service for the API
// process, reporting the state of its backing stores.
package grpc

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/example/bakery/pkg/config"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Pinger is a dependency whose reachability decides health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthServer struct {
	srv    *grpc.Server
	health *health.Server
	checks map[string]Pinger
	config *config.GRPCConfig
	logger *zap.Logger

	interval time.Duration
	stopOnce sync.Once
	done     chan struct{}
}

// NewHealthServer registers one health entry per check plus the overall
// "" entry, which is SERVING only while every check passes.
func NewHealthServer(cfg *config.GRPCConfig, checks map[string]Pinger, logger *zap.Logger) *HealthServer {
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &HealthServer{
		srv:      srv,
		health:   hs,
		checks:   checks,
		config:   cfg,
		logger:   logger,
		interval: 10 * time.Second,
		done:     make(chan struct{}),
	}
}

// Refresh pings every dependency once and publishes the result.
func (s *HealthServer) Refresh(ctx context.Context) map[string]error {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]error, len(names))
	overall := healthpb.HealthCheckResponse_SERVING
	for _, name := range names {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := s.checks[name].Ping(pingCtx)
		cancel()

		results[name] = err
		st := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			st = healthpb.HealthCheckResponse_NOT_SERVING
			overall = healthpb.HealthCheckResponse_NOT_SERVING
			s.logger.Warn("Dependency unhealthy", zap.String("dependency", name), zap.Error(err))
		}
		s.health.SetServingStatus(name, st)
	}
	s.health.SetServingStatus("", overall)
	return results
}

// Serve refreshes health on an interval and serves on lis until Stop.
func (s *HealthServer) Serve(lis net.Listener) error {
	s.Refresh(context.Background())
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Refresh(context.Background())
			case <-s.done:
				return
			}
		}
	}()

	s.logger.Info("gRPC health service started", zap.String("address", lis.Addr().String()))
	return s.srv.Serve(lis)
}

func (s *HealthServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(lis)
}

func (s *HealthServer) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.health.Shutdown()
		s.srv.GracefulStop()
	})
}
