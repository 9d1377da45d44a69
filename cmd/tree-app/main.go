// Package main is the entry point for the tree-app server.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/mongokit/cmd/tree-app/app"
)

func main() {
	app.NewApp().Run()
}
