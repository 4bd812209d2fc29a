package extension

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crimson-sun/logship/internal/model"
)

// BatchFunc receives one decoded batch and must acknowledge it: a nil
// return acknowledges delivery, an error surfaces as an invocation
// failure to the host.
type BatchFunc func(ctx context.Context, batch []model.RawLogRecord) error

// Listener is the local HTTP endpoint the host POSTs log batches to.
type Listener struct {
	addr    string
	deliver BatchFunc
	server  *http.Server
	lis     net.Listener
}

// NewListener creates a listener on addr delivering decoded batches to
// fn.
func NewListener(addr string, fn BatchFunc) *Listener {
	return &Listener{addr: addr, deliver: fn}
}

// Start binds the listener and begins serving in the background.
func (l *Listener) Start() error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.POST("/", l.handleBatch)

	l.server = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
	}

	lis, err := net.Listen("tcp", l.addr)
	if err != nil {
		return err
	}
	l.lis = lis

	go l.server.Serve(lis)
	return nil
}

// Addr returns the bound address. Only valid after Start.
func (l *Listener) Addr() string {
	return l.lis.Addr().String()
}

// Stop gracefully shuts the listener down, letting in-flight batch
// deliveries finish so their events reach the queue before it closes.
func (l *Listener) Stop() error {
	if l.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return l.server.Shutdown(ctx)
}

func (l *Listener) handleBatch(c *gin.Context) {
	var wire []wireRecord
	if err := c.ShouldBindJSON(&wire); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed log batch"})
		return
	}

	if err := l.deliver(c.Request.Context(), decodeBatch(wire)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusOK)
}
