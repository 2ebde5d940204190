package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/flowrunner-dev/flowrunner/engine"
)

var (
	serveConfigPath string
	serveAddr       string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the FlowRunner control API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "flowrunnerd.toml", "path to the daemon TOML config file")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "override the listen address from config")
}

func runServe(_ *cobra.Command, _ []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	daemonCfg, err := LoadDaemonConfig(serveConfigPath)
	if err != nil {
		return err
	}

	addr := daemonCfg.ListenAddr
	if serveAddr != "" {
		addr = serveAddr
	}
	if addr == "" {
		addr = ":8080"
	}

	eng := engine.NewEngine(logger)
	defer eng.Close()

	srv := &controlServer{engine: eng, daemonCfg: daemonCfg, logger: logger}

	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	srv.registerRoutes(router)

	logger.Info("flowrunnerd: listening", "addr", addr)
	if err := router.Run(addr); err != nil {
		return fmt.Errorf("flowrunnerd: server error: %w", err)
	}
	return nil
}

// controlServer adapts the engine's Start/Stop/Status/Snapshot surface to
// HTTP.
type controlServer struct {
	engine    *engine.Engine
	daemonCfg *DaemonConfig
	logger    *slog.Logger
}

func (s *controlServer) registerRoutes(r *gin.Engine) {
	r.GET("/healthz", s.handleHealth)
	r.POST("/start", s.handleStart)
	r.POST("/stop", s.handleStop)
	r.GET("/status", s.handleStatus)
	r.GET("/metrics", s.handleMetrics)
}

func (s *controlServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// startRequest mirrors the /start payload shape: { config, flowmap }.
type startRequest struct {
	Config  map[string]any  `json:"config"`
	Flowmap json.RawMessage `json:"flowmap"`
}

func (s *controlServer) handleStart(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg, err := engine.ParseConfig(req.Config)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	flow, err := engine.ParseFlow(req.Flowmap)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.Start(cfg, flow); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *controlServer) handleStop(c *gin.Context) {
	s.engine.Stop()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *controlServer) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": string(s.engine.Status())})
}

func (s *controlServer) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Snapshot())
}
