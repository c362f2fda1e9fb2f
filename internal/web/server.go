// Package web serves the single-page uploader that feeds the batch command.
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leonardotrapani/diarscribe/internal/config"
	"github.com/leonardotrapani/diarscribe/internal/logger"
	"github.com/leonardotrapani/diarscribe/internal/process"
	"github.com/leonardotrapani/diarscribe/internal/results"
)

//go:embed templates/index.html
var templatesFS embed.FS

// Options wires the server. Config is called per request so hot-reloaded
// settings apply without restart.
type Options struct {
	Config     func() *config.Config
	ConfigPath string
	// Executable runs the batch; defaults to the current binary.
	Executable string
	Run        process.Runner
}

var templateFuncs = template.FuncMap{
	"archLabel": func(arch string) string {
		if arch == "ctc" {
			return "CTC"
		}
		return "Transducer"
	},
}

type Server struct {
	opts   Options
	engine *gin.Engine
	http   *http.Server
	log    *logger.Logger
	hub    *progressHub

	// busy serializes upload and process calls
	busy sync.Mutex
}

func New(opts Options, log *logger.Logger) (*Server, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("web: config provider is required")
	}
	if opts.Run == nil {
		opts.Run = process.Run
	}
	if opts.Executable == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve executable: %w", err)
		}
		opts.Executable = exe
	}

	tmpl, err := template.New("index.html").Funcs(templateFuncs).ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.SetHTMLTemplate(tmpl)

	s := &Server{
		opts:   opts,
		engine: engine,
		log:    log.WithComponent("web"),
		hub:    newProgressHub(),
	}

	cfg := opts.Config()
	engine.Use(recovery(s.log), requestID(), requestLogger(s.log))
	engine.MaxMultipartMemory = 32 << 20

	engine.GET("/", s.index)
	engine.POST("/upload", bodyLimit(cfg.Server.MaxUploadMB<<20), s.upload)
	engine.POST("/process", s.process)
	engine.GET("/download/:filename", s.download)
	engine.GET("/ws/progress", s.progress)

	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) Addr() string { return s.http.Addr }

// Start binds the port and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.http.Addr, err)
	}

	go func() {
		if err := s.http.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("server error", logger.ErrorFields("serve", err))
		}
	}()

	s.log.Info("web server started", logger.Fields("addr", s.http.Addr))
	return nil
}

// Stop shuts the server down with a 5-second deadline.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	s.hub.closeAll()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.log.Info("web server stopped")
	return nil
}

func (s *Server) stores() (audioStore, resultStore *results.Store) {
	cfg := s.opts.Config()
	return results.NewStore(cfg.Paths.AudioDir), results.NewStore(cfg.Paths.ResultsDir)
}
