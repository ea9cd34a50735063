package web

import "github.com/gin-gonic/gin"

// Router is what route registrars receive.
type Router = gin.IRouter

// Handler is a gin middleware or endpoint.
type Handler = gin.HandlerFunc

// RouteFunc is the value exported as http_router. It registers routes under
// prefix; an empty prefix means the root.
type RouteFunc func(prefix string, register func(r Router))

type Options struct {
	// Middlewares run after the built-in ones.
	Middlewares []Handler
}

type Option func(*Options)

func WithMiddlewares(m ...Handler) Option {
	return func(o *Options) { o.Middlewares = append(o.Middlewares, m...) }
}
