// Package introspect serves the command table and live link state over HTTP.
package introspect

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/Parrot-Developers/libARCommands-sub002/internal/auth"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/monitor"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/observability"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol/frame"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol/schema"
)

const Version = "0.1.0"

type Server struct {
	ID      string
	Addr    string
	Started time.Time

	table   *schema.Table
	tracker *monitor.Tracker
	router  *gin.Engine
	auth    auth.Validator
}

type Option func(*Server)

// WithAuth requires a bearer token on the POST routes.
func WithAuth(v auth.Validator) Option {
	return func(s *Server) { s.auth = v }
}

// New builds the router. tracker may be nil when no link is attached.
func New(id, addr string, corsOrigins []string, table *schema.Table, tracker *monitor.Tracker, opts ...Option) *Server {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(id))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	if table == nil {
		table = schema.Default()
	}
	s := &Server{
		ID:      id,
		Addr:    addr,
		Started: time.Now(),
		table:   table,
		tracker: tracker,
		router:  r,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

// Serve listens on Addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{Addr: s.Addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.Addr).Msg("introspect listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type argView struct {
	Name string   `json:"name"`
	Type string   `json:"type"`
	Enum []string `json:"enum,omitempty"`
}

type commandView struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Args   []argView `json:"args"`
	List   bool      `json:"list"`
	Buffer string    `json:"buffer"`
}

func viewOf(spec *protocol.CommandSpec) commandView {
	v := commandView{
		ID:     spec.ID.String(),
		Name:   spec.FullName(),
		Args:   make([]argView, 0, len(spec.Args)),
		List:   spec.List,
		Buffer: spec.Buffer.String(),
	}
	for _, a := range spec.Args {
		av := argView{Name: a.Name, Type: a.Type.String()}
		if a.Enum != nil {
			for _, m := range a.Enum.Values {
				av.Enum = append(av.Enum, m.Name)
			}
		}
		v.Args = append(v.Args, av)
	}
	return v
}

func (s *Server) registerRoutes() {
	r := s.router
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"uptime":   time.Since(s.Started).String(),
			"server":   s.ID,
			"commands": s.table.Len(),
			"version":  Version,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/commands", func(c *gin.Context) {
		project := strings.ToLower(c.Query("project"))
		out := make([]commandView, 0, s.table.Len())
		for _, spec := range s.table.Specs() {
			if project != "" && strings.ToLower(spec.Project) != project {
				continue
			}
			out = append(out, viewOf(spec))
		}
		c.JSON(http.StatusOK, gin.H{"commands": out})
	})

	r.GET("/commands/:project/:class/:command", func(c *gin.Context) {
		spec, ok := s.resolve(c.Param("project"), c.Param("class"), c.Param("command"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": protocol.ErrUnknownCommand.Error()})
			return
		}
		body := gin.H{"command": viewOf(spec)}
		if s.tracker != nil {
			if e, seen := s.tracker.Get(spec.ID); seen {
				body["last"] = e
			}
		}
		c.JSON(http.StatusOK, body)
	})

	r.GET("/state", func(c *gin.Context) {
		if s.tracker == nil {
			c.JSON(http.StatusOK, gin.H{"commands": []monitor.Entry{}, "errors": 0})
			return
		}
		c.JSON(http.StatusOK, gin.H{"commands": s.tracker.Entries(), "errors": s.tracker.Errors()})
	})

	guarded := r.Group("/", auth.Middleware(s.auth))
	guarded.POST("/decode", func(c *gin.Context) {
		var req struct {
			Hex string `json:"hex"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		raw, err := hex.DecodeString(strings.ReplaceAll(req.Hex, " ", ""))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		cmd, err := frame.DecodePayload(s.table, raw)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": err.Error(),
				"kind":  protocol.KindOf(err).String(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":   cmd.ID.String(),
			"name": cmd.Name(),
			"args": monitor.Args(cmd),
			"text": cmd.String(),
		})
	})

	guarded.POST("/encode", func(c *gin.Context) {
		var req struct {
			Command string   `json:"command"`
			Args    []string `json:"args"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		cmd, err := frame.BuildFromText(s.table, req.Command, req.Args)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, protocol.ErrUnknownCommand) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		raw, err := frame.Encode(cmd)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"hex": hex.EncodeToString(raw), "text": cmd.String()})
	})
}

// resolve accepts either numeric ids or names for the three path segments.
func (s *Server) resolve(project, class, command string) (*protocol.CommandSpec, bool) {
	p, perr := strconv.ParseUint(project, 10, 8)
	k, kerr := strconv.ParseUint(class, 10, 8)
	n, nerr := strconv.ParseUint(command, 10, 16)
	if perr == nil && kerr == nil && nerr == nil {
		return s.table.Lookup(protocol.CommandID{Project: uint8(p), Class: uint8(k), Command: uint16(n)})
	}
	id, ok := s.table.LookupByName(project, class, command)
	if !ok {
		return nil, false
	}
	return s.table.Lookup(id)
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
