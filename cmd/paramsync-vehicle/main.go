package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/autopeer-io/paramsync/cmd/paramsync-vehicle/app"
)

func main() {
	app.NewApp().Run()
}
