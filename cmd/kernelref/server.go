package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"io"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"

	"github.com/born-ml/kernelref/internal/ops"
	"github.com/born-ml/kernelref/internal/tensor"
	"github.com/born-ml/kernelref/internal/wire"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kernelref_http_requests_total",
		Help: "The total number of run requests by status code",
	}, []string{"code"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kernelref_http_request_duration_seconds",
		Help:    "Time spent processing run requests",
		Buckets: prometheus.DefBuckets,
	})
)

var tracer = otel.Tracer("kernelref-server")

// Server answers operator requests over HTTP.
type Server struct {
	registry  *ops.Registry
	sem       *semaphore.Weighted
	maxWeight int64
	maxBody   int64
}

// NewServer bounds in-flight work to maxInflight input elements and request
// bodies to maxBody bytes.
func NewServer(registry *ops.Registry, maxInflight, maxBody int64) *Server {
	return &Server{
		registry:  registry,
		sem:       semaphore.NewWeighted(maxInflight),
		maxWeight: maxInflight,
		maxBody:   maxBody,
	}
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/v1/run", s.handleRun)
	mux.HandleFunc("/v1/ops", s.handleOps)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

func serveCommand(ctx context.Context, args []string, backend ops.Backend) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	listenAddr := fs.String("listen", ":8080", "Address to listen on")
	maxInflight := fs.Int64("max-inflight", 1<<24, "Maximum number of input elements processed concurrently")
	maxBody := fs.Int64("max-body", 1<<30, "Maximum request body in bytes")
	enableOTel := fs.Bool("otel", false, "Enable OpenTelemetry tracing (stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *maxInflight < 1 {
		return errors.Errorf("max-inflight must be positive, got %d", *maxInflight)
	}

	if *enableOTel {
		shutdown, err := initTracer()
		if err != nil {
			return errors.Wrap(err, "initialize tracer")
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("Failed to flush traces")
			}
		}()
	}

	registry := ops.NewRegistry(backend,
		ops.WithLogger(log.Logger),
		ops.WithMetrics(ops.NewMetrics(prometheus.DefaultRegisterer)),
	)
	srv := &http.Server{
		Addr:              *listenAddr,
		Handler:           NewServer(registry, *maxInflight, *maxBody).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	log.Info().Str("addr", *listenAddr).Int64("max_inflight", *maxInflight).Msg("Starting kernelref server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serve")
	}
	return nil
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "handleRun")
	defer span.End()

	start := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(start).Seconds())
	}()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	format := wire.FormatForContentType(r.Header.Get("Content-Type"))
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		span.RecordError(err)
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		err = errors.Wrapf(wire.ErrMalformed, "reading body: %v", err)
		s.writeResponse(w, format, status, &wire.Response{Error: err.Error(), Kind: kindOf(err)})
		return
	}
	req, err := wire.DecodeRequest(format, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		s.writeResponse(w, format, http.StatusBadRequest, &wire.Response{Error: err.Error(), Kind: kindOf(err)})
		return
	}
	span.SetAttributes(
		attribute.String("op", req.Op),
		attribute.Int("input_count", len(req.Inputs)),
	)

	// Admission Control
	weight := s.weight(req)
	if err := s.sem.Acquire(ctx, weight); err != nil {
		log.Error().Err(err).Msg("Failed to acquire semaphore")
		http.Error(w, "Server busy", http.StatusServiceUnavailable)
		requestsTotal.WithLabelValues(strconv.Itoa(http.StatusServiceUnavailable)).Inc()
		return
	}
	defer s.sem.Release(weight)

	resp, err := dispatch(ctx, s.registry, req)
	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, resp.Kind)
		log.Warn().Err(err).Str("op", req.Op).Str("kind", resp.Kind).Int("status", status).Msg("Run failed")
	}
	s.writeResponse(w, format, status, resp)
}

// weight is the total input element count, clamped to [1, maxWeight] so a
// single oversized request can still be admitted alone. Shapes that fail
// validation weigh maxWeight.
func (s *Server) weight(req *wire.Request) int64 {
	var n int64
	for _, t := range req.Inputs {
		shape := tensor.Shape(t.Shape)
		if err := shape.Validate(); err != nil {
			return s.maxWeight
		}
		n += int64(shape.NumElements())
		if n >= s.maxWeight {
			return s.maxWeight
		}
	}
	return max(n, 1)
}

func (s *Server) writeResponse(w http.ResponseWriter, format wire.Format, status int, resp *wire.Response) {
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(status)
	requestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	if err := format.Encode(w, resp); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch kindOf(err) {
	case ops.KindUnknownOp:
		return http.StatusNotFound
	case "malformed", ops.KindShapeMismatch, ops.KindIndexOutOfRange, ops.KindInvalidAxis,
		ops.KindUnsupportedDType, ops.KindMissingInput, ops.KindInvalidAttr:
		return http.StatusBadRequest
	case ops.KindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// opInfo describes one operator in the /v1/ops listing.
type opInfo struct {
	Type    string   `json:"type"`
	Inputs  []string `json:"inputs"`
	Outputs []string `json:"outputs"`
}

func (s *Server) handleOps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var infos []opInfo
	for _, typ := range s.registry.Types() {
		op, err := s.registry.Lookup(typ)
		if err != nil {
			continue
		}
		infos = append(infos, opInfo{Type: typ, Inputs: op.Inputs(), Outputs: op.Outputs()})
	}
	w.Header().Set("Content-Type", wire.ContentTypeJSON)
	if err := json.NewEncoder(w).Encode(infos); err != nil {
		log.Error().Err(err).Msg("Failed to write operator list")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
