package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yiya1989/netlink/internal/ethtool"
)

type channelsUpdate struct {
	Combined *uint32 `json:"combined" binding:"required"`
}

func (s *Server) RegisterRoutes() {
	r := s.router
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": "ethtoolctl",
			"family":  s.handle.Family().ID,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/interfaces/channels", func(c *gin.Context) {
		ctx, cancel := s.requestContext(c)
		defer cancel()

		list := []ethtool.Channels{}
		var failures []string
		for msg, err := range s.handle.Channel().Get("").Execute(ctx).All(ctx) {
			if err != nil {
				failures = append(failures, err.Error())
				_ = c.Error(err)
				continue
			}
			list = append(list, ethtool.ChannelsFromMessage(msg))
		}
		c.JSON(http.StatusOK, gin.H{"interfaces": list, "errors": failures})
	})

	r.GET("/interfaces/:name/channels", func(c *gin.Context) {
		ctx, cancel := s.requestContext(c)
		defer cancel()
		respondOne(ctx, c, s.handle.Channel().Get(c.Param("name")).Execute(ctx), ethtool.ChannelsFromMessage)
	})

	r.PUT("/interfaces/:name/channels", func(c *gin.Context) {
		var body channelsUpdate
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ctx, cancel := s.requestContext(c)
		defer cancel()

		name := c.Param("name")
		if _, err := s.handle.Channel().Set(name, *body.Combined).Execute(ctx).Collect(ctx); err != nil {
			_ = c.Error(err)
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		s.log.Info().Str("iface", name).Uint32("combined", *body.Combined).Msg("channels updated")
		c.JSON(http.StatusOK, gin.H{"status": "ok", "interface": name, "combined": *body.Combined})
	})

	r.GET("/interfaces/:name/rings", func(c *gin.Context) {
		ctx, cancel := s.requestContext(c)
		defer cancel()
		respondOne(ctx, c, s.handle.Ring().Get(c.Param("name")).Execute(ctx), ethtool.RingsFromMessage)
	})

	r.GET("/interfaces/:name/pause", func(c *gin.Context) {
		ctx, cancel := s.requestContext(c)
		defer cancel()
		respondOne(ctx, c, s.handle.Pause().Get(c.Param("name")).Execute(ctx), ethtool.PauseFromMessage)
	})
}

func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), s.timeout)
}

// respondOne writes the view of the single reply a targeted get produces.
func respondOne[T any](ctx context.Context, c *gin.Context, stream *ethtool.Stream, view func(ethtool.Message) T) {
	msgs, err := stream.Collect(ctx)
	if err != nil {
		_ = c.Error(err)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	if len(msgs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no reply for " + c.Param("name")})
		return
	}
	c.JSON(http.StatusOK, view(msgs[0]))
}
