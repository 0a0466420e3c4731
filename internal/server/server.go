package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"artfolio/internal/models"
)

// RecordStore is the persistence the handlers need.
type RecordStore interface {
	ListPaintings(ctx context.Context, categoryID *int64) ([]*models.Painting, error)
	GetPainting(ctx context.Context, id int64) (*models.Painting, error)
	CreatePainting(ctx context.Context, p *models.Painting) error
	UpdatePainting(ctx context.Context, p *models.Painting, replaceImage bool) error
	DeletePainting(ctx context.Context, id int64) error

	ListCategories(ctx context.Context) ([]*models.Category, error)
	CreateCategory(ctx context.Context, c *models.Category) error
	UpdateCategory(ctx context.Context, c *models.Category) error
	DeleteCategory(ctx context.Context, id int64) error
}

// ImagePipeline produces and discards stored image renditions.
type ImagePipeline interface {
	ProcessAndStore(ctx context.Context, src []byte, originalName string) (*models.UploadManifest, error)
	DiscardManifest(ctx context.Context, m *models.UploadManifest)
}

// ImageCache serves image bytes for "{tier}/{fileName}" paths.
type ImageCache interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

type Server struct {
	cfg    *models.Config
	router *gin.Engine
	db     RecordStore
	pipe   ImagePipeline
	cache  ImageCache

	srv *http.Server
}

func NewServer(cfg *models.Config, db RecordStore, pipe ImagePipeline, cache ImageCache) *Server {
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.BaseURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Static("/web", "./web")

	s := &Server{cfg: cfg, router: r, db: db, pipe: pipe, cache: cache}

	r.GET("/", func(c *gin.Context) {
		c.File("./web/index.html")
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/paintings", s.handleListPaintings)
		api.GET("/paintings/:id", s.handleGetPainting)
		api.GET("/categories", s.handleListCategories)
		api.GET("/image/:tier/:file", s.handleGetImage)

		api.POST("/login", s.handleLogin)
		api.GET("/login", s.handleSessionCheck)

		admin := api.Group("", s.requireAuth())
		{
			admin.POST("/upload", s.handleUpload)

			admin.POST("/paintings", s.handleCreatePainting)
			admin.PUT("/paintings/:id", s.handleUpdatePainting)
			admin.DELETE("/paintings/:id", s.handleDeletePainting)

			admin.POST("/categories", s.handleCreateCategory)
			admin.PUT("/categories/:id", s.handleUpdateCategory)
			admin.DELETE("/categories/:id", s.handleDeleteCategory)
		}
	}

	s.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: r,
	}

	return s
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler exposes the router, used by the handler tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
