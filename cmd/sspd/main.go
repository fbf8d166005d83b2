// Command sspd is the demo binary wiring the circuit to the WAL sidecar and
// the HTTP/WS frontend, mirroring the teacher's cmd/main.go + internal/app
// wiring one-for-one.
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/zoravur/spooky-engine/config"
	"github.com/zoravur/spooky-engine/engine/circuit"
	"github.com/zoravur/spooky-engine/enginelog"
	"github.com/zoravur/spooky-engine/httpapi"
	"github.com/zoravur/spooky-engine/walsidecar"
)

func main() {
	cfg := config.New()
	if err := enginelog.Init(cfg.Development); err != nil {
		panic(err)
	}
	log := enginelog.L()

	c := circuit.NewCircuit()
	handler := httpapi.NewHandler(c)

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: handler.Routes()}
	go func() {
		log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server error", zap.Error(err))
		}
	}()

	go func() {
		conn, err := net.Dial("tcp", cfg.WALAddr)
		if err != nil {
			log.Warn("wal sidecar: dial failed, running without a WAL source", zap.Error(err))
			return
		}
		defer conn.Close()
		consumer := &walsidecar.Consumer{Circuit: c, Optimistic: cfg.OptimisticDefault}
		if err := consumer.Run(conn); err != nil {
			log.Error("wal sidecar: stream ended", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Error("http server shutdown error", zap.Error(err))
	}
}
