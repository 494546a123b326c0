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
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/projectcontour/contour/internal/xds"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.StandardLogger()

	app := kingpin.New("xds-cache", "Standalone xDS snapshot cache and ADS server.")
	app.HelpFlag.Short('h')

	serve, serveCtx := registerServe(app)
	typeurl := app.Command("typeurl", "Print the canonical type URL table.")
	version := app.Command("version", "Print build information.")

	args := os.Args[1:]
	switch kingpin.MustParse(app.Parse(args)) {
	case serve.FullCommand():
		if serveCtx.Debug {
			log.SetLevel(logrus.DebugLevel)
		}

		if err := doServe(log, serveCtx); err != nil {
			log.WithError(err).Fatal("xds-cache server failed")
		}
	case typeurl.FullCommand():
		printTypeURLTable()
	case version.FullCommand():
		println(buildVersion)
	default:
		app.Usage(args)
		os.Exit(2)
	}
}

func printTypeURLTable() {
	for _, t := range []string{
		xds.ClusterType,
		xds.EndpointType,
		xds.ListenerType,
		xds.RouteType,
		xds.VirtualHostType,
		xds.SecretType,
		xds.RuntimeType,
		xds.ScopedRouteType,
		xds.ExtensionConfigType,
	} {
		println(xds.Shorten(t) + "\t" + t)
	}
}
