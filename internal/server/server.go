package server

import (
	"backend-ofmen/internal/auth"
	"backend-ofmen/internal/comment"
	"backend-ofmen/internal/config"
	"backend-ofmen/internal/feed"
	"backend-ofmen/internal/logging"
	"backend-ofmen/internal/media"
	"backend-ofmen/internal/metrics"
	"backend-ofmen/internal/post"
	"backend-ofmen/internal/ratelimit"
	"backend-ofmen/internal/social"
	"backend-ofmen/internal/storage"
	"backend-ofmen/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// multipartOverhead leaves room for form fields around the largest file.
const multipartOverhead = 1 << 20

// CDN folders for post media and profile pictures.
const (
	postsFolder    = "posts"
	profilesFolder = "profiles"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
	Log    *logrus.Logger
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client, log *logrus.Logger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = config.DefaultMaxUploadBytes
	}
	cfg.MaxUploadBytes = maxUpload

	app := fiber.New(fiber.Config{
		BodyLimit: int(maxUpload) + multipartOverhead,
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(metrics.Middleware())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient, log),
		Log:    log,
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.App.Get("/metrics", metrics.Handler())

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)
	limit := ratelimit.New(s.Cfg.RateLimitRPS, s.Cfg.RateLimitBurst).Handler()

	uploader := media.NewCloudUploader(s.Cfg.CDNBaseURL, s.Cfg.CDNCloudName, s.Cfg.CDNUploadPreset, nil)

	authSvc := auth.NewService(s.Cfg.JWTSecret, s.DB)
	storageSvc := storage.NewService(s.DB, uploader.WithFolder(postsFolder), s.Cfg.MaxUploadBytes, s.Log)
	profileStorage := storage.NewService(s.DB, uploader.WithFolder(profilesFolder), s.Cfg.MaxUploadBytes, s.Log)
	postSvc := post.NewService(s.DB, storageSvc)
	commentSvc := comment.NewService(s.DB, s.Stream)
	feedSvc := feed.NewService(s.DB, postSvc, commentSvc)
	socialSvc := social.NewService(s.DB, s.Stream, profileStorage)

	auth.RegisterRoutes(s.App.Group("/auth"), authSvc, jwtMiddleware)
	feed.RegisterRoutes(s.App.Group("/feed"), feedSvc, authSvc, jwtMiddleware, limit)
	comment.RegisterRoutes(s.App.Group("/posts/:postID/comments"), commentSvc, authSvc, jwtMiddleware, limit)
	post.RegisterRoutes(s.App.Group("/posts"), postSvc, authSvc, jwtMiddleware, limit)
	social.RegisterRoutes(s.App.Group("/profiles"), socialSvc, postSvc, jwtMiddleware, limit)
	storage.RegisterRoutes(s.App.Group("/media"), storageSvc, jwtMiddleware, limit)
	stream.RegisterRoutes(s.App.Group("/stream"),
		stream.Handler(stream.ObserveFunc[social.Profile](socialSvc.ObserveProfile)),
		stream.Handler(stream.ObserveFunc[[]comment.Comment](commentSvc.Observe)),
	)
}
