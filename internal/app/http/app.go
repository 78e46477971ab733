package httpapp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	appmiddleware "aperture_studio/internal/middleware"
	httprouters "aperture_studio/internal/transport/http"

	"github.com/arl/statsviz"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// HealthChecker опрашивается обработчиком /health
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type Server struct {
	m       *http.ServeMux
	log     *slog.Logger
	e       *echo.Echo
	routers *httprouters.Routers
	host    string
	port    string
	token   string
	health  []HealthChecker
}

func New(log *slog.Logger, token string, host, port string, routers *httprouters.Routers, health ...HealthChecker) *Server {
	e := echo.New()
	e.HideBanner = true

	validate := validator.New()
	e.Validator = &CustomValidator{validator: validate}

	e.Use(session.Middleware(sessions.NewCookieStore([]byte(token))))

	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(appmiddleware.PrometheusMetrics)

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				slog.String("URI", v.URI),
				slog.Int("status", v.Status),
				slog.String("remote ip", v.RemoteIP),
			)

			return nil
		},
	}))

	mux := http.NewServeMux()
	err := statsviz.Register(mux)
	if err != nil {
		log.Info("Statsviz start with error", slog.Any("error:", err.Error()))
	}

	return &Server{
		m:       mux,
		log:     log,
		e:       e,
		routers: routers,
		host:    host,
		port:    port,
		token:   token,
		health:  health,
	}
}

func (s *Server) healthHandler(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	for _, check := range s.health {
		if err := check.HealthCheck(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) MustRun() {
	const op = "http.Server.MustRun"

	s.log.Info(op, slog.String("Start", "server"))

	if err := s.Start(); err != nil {
		panic(err)
	}
}

func (s *Server) Start() error {
	const op = "http.Server.Start"

	if err := s.e.Start(fmt.Sprintf(":%s", s.port)); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("%s server stopped: %w", op, err)
	}

	return nil
}

func (s *Server) Stop() error {
	const op = "http.Server.Stop"

	optCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	s.log.Info("stopping", op, "http server")

	if err := s.e.Shutdown(optCtx); err != nil {
		return fmt.Errorf("%s could not shutdown server gracefuly: %w", op, err)
	}

	return nil
}

func (s *Server) BuildRouters() {
	s.e.GET("/health", s.healthHandler)

	api := s.e.Group("/api/v1")
	{
		debug := s.e.Group("/debug")
		{
			debug.GET("/statsviz/", echo.WrapHandler(s.m))
			debug.GET("/statsviz/*", echo.WrapHandler(s.m))
		}

		s.e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

		swagger := s.e.Group("/swag")
		{
			swagger.GET("/swagger/*", echoSwagger.WrapHandler)
		}

		galleryGroup := api.Group("/galleries")
		{
			galleryGroup.POST("", s.routers.CreateGallery)
			galleryGroup.GET("", s.routers.ListGalleries)
			galleryGroup.GET("/:gallery_id", s.routers.GetGallery)
			galleryGroup.PUT("/:gallery_id", s.routers.UpdateGallery)
			galleryGroup.DELETE("/:gallery_id", s.routers.DeleteGallery)
			galleryGroup.GET("/:gallery_id/media", s.routers.ListGalleryMedia)
			galleryGroup.PUT("/:gallery_id/media/:media_id/selection", s.routers.SetPhotographerSelection)
			galleryGroup.GET("/:gallery_id/grants/:client_id", s.routers.GetGrant)
			galleryGroup.DELETE("/:gallery_id/grants/:client_id", s.routers.RevokeAccess)
			galleryGroup.GET("/:gallery_id/packages", s.routers.ListGalleryPackages)
		}

		mediaGroup := api.Group("/media")
		{
			mediaGroup.POST("/upload", s.routers.UploadMedia)
			mediaGroup.DELETE("/:media_id", s.routers.DeleteMedia)
		}

		api.POST("/grants", s.routers.GrantAccess)

		packageGroup := api.Group("/packages")
		{
			packageGroup.POST("", s.routers.CreatePackage)
			packageGroup.GET("/:package_id", s.routers.GetPackage)
			packageGroup.POST("/:package_id/approve", s.routers.ApprovePackage)
			packageGroup.POST("/:package_id/deliver", s.routers.DeliverPackage)
		}

		api.POST("/admin/reconcile", s.routers.Reconcile)

		// Клиентские маршруты закрыты share-токеном из гранта
		clientGroup := api.Group("/client")
		clientGroup.Use(echojwt.WithConfig(echojwt.Config{
			SigningKey:  []byte(s.token),
			TokenLookup: "header:Authorization:Bearer ,query:token",
		}))
		{
			clientGroup.GET("/galleries/:slug", s.routers.GetClientGallery)
			clientGroup.POST("/galleries/:gallery_id/verify-password", s.routers.VerifyGalleryPassword)
			clientGroup.GET("/galleries/:gallery_id/media", s.routers.ListClientGalleryMedia)
			clientGroup.PUT("/galleries/:gallery_id/media/:media_id/selection", s.routers.SetClientSelection)
			clientGroup.GET("/packages/:package_id/links", s.routers.GetDownloadLinks)
			clientGroup.GET("/packages/:package_id/archive", s.routers.DownloadArchive)
			clientGroup.GET("/archive/progress/:job_id", s.routers.GetArchiveProgress)
			clientGroup.POST("/media/:media_id/view", s.routers.RecordMediaView)
		}
	}
}
