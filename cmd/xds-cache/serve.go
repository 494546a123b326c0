// Copyright Project Contour Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"github.com/alecthomas/kingpin/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/projectcontour/contour/internal/httpsvc"
	"github.com/projectcontour/contour/internal/metrics"
	"github.com/projectcontour/contour/internal/statusprobe"
	"github.com/projectcontour/contour/internal/workgroup"
	"github.com/projectcontour/contour/internal/xds"
	xds_v3 "github.com/projectcontour/contour/internal/xds/v3"
)

const buildVersion = "xds-cache (devel)"

// serveContext holds the flags for the serve subcommand.
type serveContext struct {
	Debug bool

	xdsAddr string
	xdsPort int

	metricsAddr string
	metricsPort int

	ads bool
}

func registerServe(app *kingpin.Application) (*kingpin.CmdClause, *serveContext) {
	ctx := &serveContext{
		xdsAddr:     "0.0.0.0",
		xdsPort:     8001,
		metricsAddr: "0.0.0.0",
		metricsPort: 8002,
		ads:         true,
	}

	serve := app.Command("serve", "Run the xDS snapshot cache server.")
	serve.Flag("debug", "Enable debug logging.").BoolVar(&ctx.Debug)
	serve.Flag("xds-address", "xDS gRPC server address.").Default(ctx.xdsAddr).StringVar(&ctx.xdsAddr)
	serve.Flag("xds-port", "xDS gRPC server port.").Default("8001").IntVar(&ctx.xdsPort)
	serve.Flag("metrics-address", "Metrics and status HTTP server address.").Default(ctx.metricsAddr).StringVar(&ctx.metricsAddr)
	serve.Flag("metrics-port", "Metrics and status HTTP server port.").Default("8002").IntVar(&ctx.metricsPort)
	serve.Flag("ads", "Enforce ADS consistency ordering.").Default("true").BoolVar(&ctx.ads)

	return serve, ctx
}

func doServe(log logrus.FieldLogger, sc *serveContext) error {
	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)
	m.SetBuildInfo("main", "devel", buildVersion)

	cache := xds_v3.NewSnapshotCache(sc.ads)
	cache.Metrics = m

	cacheServer := xds_v3.NewCacheServer(log.WithField("context", "xds"), cache)

	var group workgroup.Group

	group.Add(func(stop <-chan struct{}) error {
		listener, err := net.Listen("tcp", net.JoinHostPort(sc.xdsAddr, itoa(sc.xdsPort)))
		if err != nil {
			return err
		}

		g := xds.RegisterServer(cacheServer, registry)

		go func() {
			<-stop
			g.GracefulStop()
		}()

		log.WithField("address", listener.Addr().String()).Info("started xDS gRPC server")
		return g.Serve(listener)
	})

	metricsSvc := httpsvc.Service{
		Addr:        sc.metricsAddr,
		Port:        sc.metricsPort,
		FieldLogger: log.WithField("context", "metrics"),
	}
	metricsSvc.ServeMux.Handle("/metrics", metricsAPI(registry))
	statusprobe.Register(&metricsSvc.ServeMux, cache.NodeStatus)

	group.AddContext(func(ctx context.Context) {
		_ = metricsSvc.Start(ctx)
	})

	return group.Run()
}

func metricsAPI(registry *prometheus.Registry) http.Handler {
	return metrics.Handler(registry)
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
