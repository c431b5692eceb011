package itemsapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"item-console/internal/model"
	"item-console/internal/store"

	"github.com/CAFxX/httpcompression"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ItemRepository is the persistence the service needs.
type ItemRepository interface {
	List(ctx context.Context) ([]model.StoredItem, error)
	Get(ctx context.Context, id model.ItemID) (model.StoredItem, error)
	Create(ctx context.Context, item model.Item) (model.StoredItem, error)
	Update(ctx context.Context, id model.ItemID, item model.Item) (model.StoredItem, error)
	Delete(ctx context.Context, id model.ItemID) error
	Changes(ctx context.Context, id model.ItemID) ([]store.Change, error)
}

type ServerConfig struct {
	// FrontendOrigin is the only origin granted CORS access. "*" allows any.
	FrontendOrigin string
	// DisableCompression turns off gzip/brotli response encoding.
	DisableCompression bool
}

// Server is a small development implementation of the items service.
type Server struct {
	cfg     ServerConfig
	engine  *gin.Engine
	handler http.Handler
}

func NewServer(cfg ServerConfig, repo ItemRepository, logger *logrus.Logger) (*Server, error) {
	cfg.FrontendOrigin = strings.TrimSpace(cfg.FrontendOrigin)
	if repo == nil {
		return nil, errors.New("itemsapi: nil repository")
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))
	engine.Use(cors(cfg.FrontendOrigin))

	engine.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexPage))
	})
	NewItemHandler(repo, logger).RegisterRoutes(engine)

	s := &Server{cfg: cfg, engine: engine, handler: engine}
	if !cfg.DisableCompression {
		compress, err := httpcompression.DefaultAdapter()
		if err != nil {
			return nil, err
		}
		s.handler = compress(engine)
	}
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.handler }

const indexPage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Items API</title></head>
<body>
<h1>Items API</h1>
<ul>
<li><code>GET /items/</code> list every item</li>
<li><code>POST /items/</code> create an item: <code>{"name": "string", "description": "string", "price": float, "tax": float}</code></li>
<li><code>PUT /items/{item_id}</code> replace an item</li>
<li><code>DELETE /items/{item_id}</code> delete an item</li>
<li><code>GET /cdc/items</code> change journal (optional <code>?item_id=</code>)</li>
</ul>
</body>
</html>
`
