package server

import (
	"context"
	"net/http"
	"time"

	"github.com/Luismorlan/postsync/server/middlewares"
	Logger "github.com/Luismorlan/postsync/utils/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	gintrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/gin-gonic/gin"
)

const (
	shutdownTimeout = 5 * time.Second
)

// NewRouter wires h into a gin engine. serviceName tags the traces.
func NewRouter(h *Handlers, serviceName string) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middlewares.RequestLogger())
	router.Use(cors.Default())
	router.Use(gintrace.Middleware(serviceName))

	router.GET("/posts", h.ListPosts)
	router.GET("/posts/:id", h.GetPost)
	router.POST("/posts/:id/read", h.MarkRead)
	router.POST("/posts/refresh", h.Refresh)
	router.DELETE("/posts", h.DeletePosts)
	router.GET("/changes", h.Changes)
	router.GET("/view", h.View)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	return router
}

type ApiServerConfig struct {
	Name string
	Addr string
}

// ApiServer is the engine module serving HTTP until its context is done.
type ApiServer struct {
	Config ApiServerConfig

	Handler http.Handler
}

func NewApiServer(config ApiServerConfig, handler http.Handler) *ApiServer {
	return &ApiServer{Config: config, Handler: handler}
}

func (s *ApiServer) RunModule(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.Config.Addr,
		Handler: s.Handler,
	}

	errs := make(chan error, 1)
	go func() {
		Logger.Log.Infof("api server listening on %s", s.Config.Addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	Logger.Log.Info("api server shutdown")
	return nil
}

func (s *ApiServer) Name() string {
	return s.Config.Name
}
