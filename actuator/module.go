// Package actuator serves health, build and runtime introspection endpoints
// on the web module's router.
package actuator

import (
	"context"
	"errors"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skekre98/edgeagent/config"
	"github.com/skekre98/edgeagent/core"
	"github.com/skekre98/edgeagent/web"
)

const Name = "actuator"

// Inspector is the read side of the module runtime.
type Inspector interface {
	Modules() []core.ModuleInfo
	Capabilities() []core.CapabilityInfo
}

// Info describes the running agent on /info.
type Info struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Home     string `json:"home"`
	ConfPath string `json:"confPath"`
}

type module struct {
	rt      Inspector
	cfg     config.Root
	metrics http.Handler
	info    Info
	started time.Time

	route web.RouteFunc
}

// Component returns the actuator module. metrics may be nil.
func Component(rt Inspector, cfg config.Root, metrics http.Handler, info Info) core.Component {
	m := &module{rt: rt, cfg: cfg, metrics: metrics, info: info}
	return core.Component{
		Load:   m.load,
		Unload: func(context.Context) error { return nil },
		Start:  m.start,
		Stop:   func(context.Context) error { return nil },
	}
}

func (m *module) load(l *core.Linker) error {
	return core.Import(l, web.CapRouter, &m.route)
}

func (m *module) start(context.Context) error {
	if m.route == nil {
		return errors.New("actuator: http_router unavailable")
	}
	m.started = time.Now()
	m.route(m.cfg.Actuator.BasePath, m.register)
	return nil
}

func (m *module) register(r web.Router) {
	r.GET("/health", m.health)
	r.GET("/info", m.infoHandler)
	r.GET("/modules", m.modules)
	if m.cfg.Observability.Metrics.Enabled && m.metrics != nil {
		r.GET(m.cfg.Observability.Metrics.Path, gin.WrapH(m.metrics))
	}
}

func (m *module) health(c *gin.Context) {
	var failed []string
	for _, mi := range m.rt.Modules() {
		if mi.State == core.StateFailed {
			failed = append(failed, mi.Name)
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "DEGRADED",
			"failed": failed,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (m *module) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"app": m.info,
		"runtime": gin.H{
			"go":           runtime.Version(),
			"numGoroutine": runtime.NumGoroutine(),
			"time":         time.Now().UTC().Format(time.RFC3339),
			"uptime":       time.Since(m.started).Round(time.Second).String(),
			"pid":          os.Getpid(),
		},
	})
}

func (m *module) modules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"modules":      m.rt.Modules(),
		"capabilities": m.rt.Capabilities(),
	})
}
