package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seongmin-dev/lockerdesk/api"
	"github.com/seongmin-dev/lockerdesk/config"
	"github.com/seongmin-dev/lockerdesk/internal/notify"
	"github.com/seongmin-dev/lockerdesk/internal/service/lockers"
)

// Run assembles the router and serves HTTP until the context is canceled
// or the server fails.
func Run(ctx context.Context, cfg *config.Config, engine lockers.Engine, hub *notify.Hub, throttle api.LookupThrottle) error {
	router := newRouter(cfg, engine, hub, throttle)

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func newRouter(cfg *config.Config, engine lockers.Engine, hub *notify.Hub, throttle api.LookupThrottle) *gin.Engine {
	router := gin.Default()

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	public := api.NewPublicHandler(
		engine,
		throttle,
		int64(cfg.Locker.LookupFailLimit),
		time.Duration(cfg.Locker.LookupFailWindowSecs)*time.Second,
	)
	public.Register(router.Group("/api/public"))

	api.NewStreamHandler(hub).Register(router.Group("/api"))

	admin := router.Group("/api/admin", api.AdminAuth(cfg.Admin.Token))
	api.NewAdminHandler(engine).Register(admin)

	return router
}
