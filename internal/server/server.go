package server

import (
	"errors"
	"net/http"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yiya1989/netlink/internal/ethtool"
	"github.com/yiya1989/netlink/internal/observability"
)

const defaultRequestTimeout = 5 * time.Second

// Server exposes ethtool reads and channel changes over HTTP.
type Server struct {
	Addr     string
	Appeared time.Time

	handle  ethtool.Handle
	router  *gin.Engine
	log     zerolog.Logger
	timeout time.Duration
}

func New(addr string, handle ethtool.Handle, corsOrigins []string) *Server {
	observability.RegisterMetrics()
	logger := log.Logger.With().Str("component", "http").Logger()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.Instrument(logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET", "PUT"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	return &Server{
		Addr:     addr,
		Appeared: time.Now(),
		handle:   handle,
		router:   r,
		log:      logger,
		timeout:  defaultRequestTimeout,
	}
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

func (s *Server) Serve() error {
	s.RegisterRoutes()
	s.log.Info().Str("addr", s.Addr).Msg("http listening")
	return s.router.Run(s.Addr)
}

// statusFor maps a stream error to an HTTP status.
func statusFor(err error) int {
	var perr *ethtool.ProtocolError
	if errors.As(err, &perr) {
		switch perr.Errno {
		case syscall.ENODEV, syscall.ENOENT:
			return http.StatusNotFound
		case syscall.EOPNOTSUPP:
			return http.StatusNotImplemented
		case syscall.EPERM, syscall.EACCES:
			return http.StatusForbidden
		case syscall.EINVAL, syscall.ERANGE:
			return http.StatusBadRequest
		case syscall.EBUSY:
			return http.StatusConflict
		}
		return http.StatusInternalServerError
	}
	if errors.Is(err, ethtool.ErrRequestFailed) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
